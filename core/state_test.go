package core

import (
	"testing"

	"github.com/WeiliangChenOIST/FORK-STEPS/rng"
)

func TestRunExhaustsLimitingReactant(t *testing.T) {
	st, tet, a, b, c := bimolState(t, 3)
	if err := st.SetTetCount(tet, a, 100); err != nil {
		t.Fatalf("SetTetCount: %v", err)
	}
	if err := st.SetTetCount(tet, b, 80); err != nil {
		t.Fatalf("SetTetCount: %v", err)
	}

	// At this kcst and volume the channel fires millions of times per
	// second, so one simulated second drains the limiting reactant.
	if err := st.Run(1.0); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if got := tet.Count(b); got != 0 {
		t.Errorf("limiting reactant count = %d, want 0", got)
	}
	if got := tet.Count(c); got != 80 {
		t.Errorf("product count = %d, want 80", got)
	}
	if got := tet.Count(a); got != 20 {
		t.Errorf("excess reactant count = %d, want 20", got)
	}
	if got := st.Steps(); got != 80 {
		t.Errorf("Steps() = %d, want 80", got)
	}
	// Quiescence pins the clock to the requested end time.
	if got := st.Time(); got != 1.0 {
		t.Errorf("Time() = %g, want 1.0", got)
	}
}

func TestMassConservationDuringRun(t *testing.T) {
	st, tet, a, b, c := bimolState(t, 5)
	if err := st.SetTetCount(tet, a, 500); err != nil {
		t.Fatalf("SetTetCount: %v", err)
	}
	if err := st.SetTetCount(tet, b, 400); err != nil {
		t.Fatalf("SetTetCount: %v", err)
	}

	prev := st.Time()
	for i := 0; i < 100; i++ {
		applied, err := st.Step()
		if err != nil {
			t.Fatalf("Step %d: %v", i, err)
		}
		if !applied {
			t.Fatalf("step %d reported quiescence with reactants remaining", i)
		}
		if st.Time() <= prev {
			t.Fatalf("step %d: clock did not advance (%g -> %g)", i, prev, st.Time())
		}
		prev = st.Time()

		// Every occurrence converts one A and one B into one C.
		if tet.Count(a)+tet.Count(c) != 500 {
			t.Fatalf("step %d: A+C = %d, want 500", i, tet.Count(a)+tet.Count(c))
		}
		if tet.Count(b)+tet.Count(c) != 400 {
			t.Fatalf("step %d: B+C = %d, want 400", i, tet.Count(b)+tet.Count(c))
		}
	}
}

func TestQuiescentStepConsumesNoRandomNumbers(t *testing.T) {
	sd, _, _, _ := bimolDef(t)
	src := &countingSource{inner: rng.NewStd(1)}
	st, err := NewState(sd, src)
	if err != nil {
		t.Fatalf("NewState: %v", err)
	}
	comp, err := st.AddComp(0)
	if err != nil {
		t.Fatalf("AddComp: %v", err)
	}
	if _, err := st.AddTet(comp, testVol); err != nil {
		t.Fatalf("AddTet: %v", err)
	}
	if err := st.Setup(); err != nil {
		t.Fatalf("Setup: %v", err)
	}

	applied, err := st.Step()
	if err != nil {
		t.Fatalf("Step: %v", err)
	}
	if applied {
		t.Fatal("Step applied an event with zero total propensity")
	}
	if src.draws != 0 {
		t.Errorf("quiescent step drew %d random numbers, want 0", src.draws)
	}

	if err := st.Run(0.25); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if src.draws != 0 {
		t.Errorf("quiescent run drew %d random numbers, want 0", src.draws)
	}
	if got := st.Time(); got != 0.25 {
		t.Errorf("Time() after quiescent run = %g, want 0.25", got)
	}
}

func TestRunRejectsEarlierEndTime(t *testing.T) {
	st, _, _, _, _ := bimolState(t, 1)
	if err := st.Run(0.5); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if err := st.Run(0.1); err == nil {
		t.Error("Run accepted an end time before the current clock")
	}
}

func TestClampedCountIgnoresConsumption(t *testing.T) {
	st, tet, a, b, c := bimolState(t, 9)
	if err := st.SetTetCount(tet, a, 10); err != nil {
		t.Fatalf("SetTetCount: %v", err)
	}
	if err := st.SetTetCount(tet, b, 5); err != nil {
		t.Fatalf("SetTetCount: %v", err)
	}
	tet.SetClamped(a, true)

	if err := st.Run(1.0); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if got := tet.Count(a); got != 10 {
		t.Errorf("clamped count = %d, want 10", got)
	}
	if got := tet.Count(b); got != 0 {
		t.Errorf("unclamped reactant = %d, want 0", got)
	}
	if got := tet.Count(c); got != 5 {
		t.Errorf("product count = %d, want 5", got)
	}
}

func TestSetCompCountDistributesEverything(t *testing.T) {
	const n = 3000
	st, tets, x := diffChainState(t, 3, 1e-9, 13)
	comp := st.Comp("cyt")

	if err := st.SetCompCount(comp, x, n); err != nil {
		t.Fatalf("SetCompCount: %v", err)
	}
	if got := st.CompCount(comp, x); got != n {
		t.Errorf("CompCount() = %d, want %d", got, n)
	}
	// Equal volumes: each element should get a nontrivial share.
	for i, tet := range tets {
		if tet.Count(x) == 0 {
			t.Errorf("element %d received nothing from a %d-molecule fill", i, n)
		}
	}

	// Refilling replaces, not accumulates.
	if err := st.SetCompCount(comp, x, 10); err != nil {
		t.Fatalf("SetCompCount: %v", err)
	}
	if got := st.CompCount(comp, x); got != 10 {
		t.Errorf("CompCount() after refill = %d, want 10", got)
	}
}

func TestSetCompConcRoundTrip(t *testing.T) {
	st, tet, a, _, _ := bimolState(t, 1)
	comp := st.Comp("cyt")

	const conc = 1e-6
	if err := st.SetCompConc(comp, a, conc); err != nil {
		t.Fatalf("SetCompConc: %v", err)
	}
	if got := tet.Count(a); got == 0 {
		t.Fatal("concentration fill produced no molecules")
	}
	got := st.CompConc(comp, a)
	if got < 0.99*conc || got > 1.01*conc {
		t.Errorf("CompConc() = %g, want ~%g", got, conc)
	}
}

func TestResetClearsRun(t *testing.T) {
	st, tet, a, b, _ := bimolState(t, 21)
	if err := st.SetTetCount(tet, a, 50); err != nil {
		t.Fatalf("SetTetCount: %v", err)
	}
	if err := st.SetTetCount(tet, b, 50); err != nil {
		t.Fatalf("SetTetCount: %v", err)
	}
	if _, err := st.RunEvents(10); err != nil {
		t.Fatalf("RunEvents: %v", err)
	}
	if st.Steps() != 10 || st.Time() == 0 {
		t.Fatalf("run did not progress: steps=%d time=%g", st.Steps(), st.Time())
	}

	if err := st.Reset(); err != nil {
		t.Fatalf("Reset: %v", err)
	}
	if st.Time() != 0 || st.Steps() != 0 {
		t.Errorf("clock after Reset = (%g,%d), want (0,0)", st.Time(), st.Steps())
	}
	if got := st.TotalRate(); got != 0 {
		t.Errorf("TotalRate() after Reset = %g, want 0", got)
	}
	for gidx := 0; gidx < 3; gidx++ {
		if tet.Count(gidx) != 0 {
			t.Errorf("species %d count after Reset = %d, want 0", gidx, tet.Count(gidx))
		}
	}
}

func TestRunEventsStopsAtQuiescence(t *testing.T) {
	st, tet, a, b, _ := bimolState(t, 2)
	if err := st.SetTetCount(tet, a, 5); err != nil {
		t.Fatalf("SetTetCount: %v", err)
	}
	if err := st.SetTetCount(tet, b, 3); err != nil {
		t.Fatalf("SetTetCount: %v", err)
	}

	applied, err := st.RunEvents(100)
	if err != nil {
		t.Fatalf("RunEvents: %v", err)
	}
	// Only three conversions are possible.
	if applied != 3 {
		t.Errorf("RunEvents applied %d events, want 3", applied)
	}
}

func TestGeometryFrozenAfterSetup(t *testing.T) {
	st, _, _, _, _ := bimolState(t, 1)
	comp := st.Comp("cyt")
	if _, err := st.AddTet(comp, testVol); err == nil {
		t.Error("AddTet accepted after setup")
	}
	if _, err := st.AddComp(0); err == nil {
		t.Error("AddComp accepted after setup")
	}
	if err := st.Setup(); err == nil {
		t.Error("second Setup accepted")
	}
}
