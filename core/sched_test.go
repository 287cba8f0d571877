package core

import (
	"math"
	"math/rand/v2"
	"testing"

	"gonum.org/v1/gonum/floats"

	"github.com/WeiliangChenOIST/FORK-STEPS/model"
	"github.com/WeiliangChenOIST/FORK-STEPS/rng"
)

// stubProc is a rate-only process for exercising the scheduler in
// isolation.
type stubProc struct {
	kprocBase
	rate float64
}

func (p *stubProc) SetupDeps(s *State)                         {}
func (p *stubProc) DependsOnSpecAt(gidx int, elem ElemID) bool { return false }
func (p *stubProc) Reset()                                     {}
func (p *stubProc) Rate() float64                              { return p.rate }
func (p *stubProc) Apply(s *State) ([]SchedIDX, error)         { return nil, nil }
func (p *stubProc) readSet() []depKey                          { return nil }
func (p *stubProc) writeSet() []depKey                         { return nil }

func stubScheduler(t *testing.T, rates []float64) *Scheduler {
	t.Helper()
	kprocs := make([]KProc, len(rates))
	for i, r := range rates {
		p := &stubProc{rate: r}
		p.setSchedIDX(SchedIDX(i))
		kprocs[i] = p
	}
	s := newScheduler(kprocs)
	if err := s.Reset(); err != nil {
		t.Fatalf("Reset: %v", err)
	}
	return s
}

func TestSchedulerSelectBoundaries(t *testing.T) {
	s := stubScheduler(t, []float64{1, 2, 3})
	if s.Total() != 6 {
		t.Fatalf("Total() = %g, want 6", s.Total())
	}

	cases := []struct {
		draw float64
		want SchedIDX
	}{
		{0.0, 0},
		{1.0 / 6.0, 0},
		{0.1668, 1},
		{0.5, 1},
		{0.999, 2},
	}
	for _, c := range cases {
		got, ok := s.Select(c.draw)
		if !ok {
			t.Fatalf("Select(%g) reported quiescence", c.draw)
		}
		if got != c.want {
			t.Errorf("Select(%g) = %d, want %d", c.draw, got, c.want)
		}
	}
}

func TestSchedulerSelectSkipsZeroRates(t *testing.T) {
	s := stubScheduler(t, []float64{0, 0, 5, 0, 5})
	for _, draw := range []float64{0.0, 0.25, 0.49} {
		got, ok := s.Select(draw)
		if !ok || got != 2 {
			t.Errorf("Select(%g) = (%d,%v), want process 2", draw, got, ok)
		}
	}
	for _, draw := range []float64{0.51, 0.99} {
		got, ok := s.Select(draw)
		if !ok || got != 4 {
			t.Errorf("Select(%g) = (%d,%v), want process 4", draw, got, ok)
		}
	}
}

func TestSchedulerSelectSkipsZeroBlocks(t *testing.T) {
	// A leading block of all-zero rates must not capture a selector of
	// exactly zero; the draw has to land on the first positive-rate
	// process in a later block.
	rates := make([]float64, schedBlockSize+1)
	rates[schedBlockSize] = 5
	s := stubScheduler(t, rates)
	if s.Total() != 5 {
		t.Fatalf("Total() = %g, want 5", s.Total())
	}

	for _, draw := range []float64{0.0, 0.5, 0.999} {
		got, ok := s.Select(draw)
		if !ok {
			t.Fatalf("Select(%g) reported quiescence with total propensity %g", draw, s.Total())
		}
		if got != SchedIDX(schedBlockSize) {
			t.Errorf("Select(%g) = %d, want %d", draw, got, schedBlockSize)
		}
	}
}

func TestSchedulerQuiescence(t *testing.T) {
	s := stubScheduler(t, make([]float64, 10))
	if s.Total() != 0 {
		t.Fatalf("Total() = %g, want 0", s.Total())
	}
	if _, ok := s.Select(0.5); ok {
		t.Error("Select on a quiescent scheduler reported a winner")
	}
}

func TestSchedulerSelectAcrossBlocks(t *testing.T) {
	// More processes than one partial-sum block holds, so selection
	// must descend through the block walk.
	const n = 3*schedBlockSize + 7
	rates := make([]float64, n)
	for i := range rates {
		rates[i] = 1
	}
	s := stubScheduler(t, rates)

	for _, k := range []int{0, schedBlockSize - 1, schedBlockSize, 2 * schedBlockSize, n - 1} {
		draw := (float64(k) + 0.5) / float64(n)
		got, ok := s.Select(draw)
		if !ok {
			t.Fatalf("Select(%g) reported quiescence", draw)
		}
		if got != SchedIDX(k) {
			t.Errorf("Select(%g) = %d, want %d", draw, got, k)
		}
	}
}

func TestSchedulerIncrementalMatchesFullSum(t *testing.T) {
	const n = 200
	r := rand.New(rand.NewPCG(99, 7))
	rates := make([]float64, n)
	for i := range rates {
		rates[i] = r.Float64()
	}
	s := stubScheduler(t, rates)

	for step := 0; step < 5000; step++ {
		idx := SchedIDX(r.IntN(n))
		rate := r.Float64() * 10
		rates[idx] = rate
		if err := s.Update(idx, rate); err != nil {
			t.Fatalf("Update: %v", err)
		}
	}

	want := floats.Sum(rates)
	if got := s.Total(); math.Abs(got-want) > 1e-9*want {
		t.Errorf("Total() after incremental updates = %g, full sum = %g", got, want)
	}
	for i, w := range rates {
		if got := s.Rate(SchedIDX(i)); got != w {
			t.Errorf("Rate(%d) = %g, want %g", i, got, w)
		}
	}
}

// mixedState builds a 4-tet chain carrying both the A+B→C reaction and
// diffusion of A, so applied events exercise reaction and hop update
// paths together.
func mixedState(t *testing.T, seed uint64) (st *State, a, b int) {
	t.Helper()
	sd := model.NewStatedef()
	a = mustAddSpec(t, sd, "A")
	b = mustAddSpec(t, sd, "B")
	mustAddSpec(t, sd, "C")
	ridx, err := sd.AddReac("assoc", []int{1, 1, 0}, []int{0, 0, 1}, testKcst)
	if err != nil {
		t.Fatalf("AddReac: %v", err)
	}
	didx, err := sd.AddDiff("diffA", a, 1e-3)
	if err != nil {
		t.Fatalf("AddDiff: %v", err)
	}
	cidx, err := sd.AddComp("cyt")
	if err != nil {
		t.Fatalf("AddComp: %v", err)
	}
	if err := sd.CompAddReac(cidx, ridx); err != nil {
		t.Fatalf("CompAddReac: %v", err)
	}
	if err := sd.CompAddDiff(cidx, didx); err != nil {
		t.Fatalf("CompAddDiff: %v", err)
	}
	if err := sd.Freeze(); err != nil {
		t.Fatalf("Freeze: %v", err)
	}

	st, err = NewState(sd, rng.NewStd(seed))
	if err != nil {
		t.Fatalf("NewState: %v", err)
	}
	comp, err := st.AddComp(0)
	if err != nil {
		t.Fatalf("AddComp: %v", err)
	}
	tets := make([]*Tet, 4)
	for i := range tets {
		tets[i], err = st.AddTet(comp, testVol)
		if err != nil {
			t.Fatalf("AddTet %d: %v", i, err)
		}
	}
	for i := 0; i+1 < len(tets); i++ {
		if err := st.ConnectTets(tets[i], tets[i+1], 1.0, 1.0); err != nil {
			t.Fatalf("ConnectTets %d: %v", i, err)
		}
	}
	if err := st.Setup(); err != nil {
		t.Fatalf("Setup: %v", err)
	}
	return st, a, b
}

func TestIncrementalRatesMatchRecomputeAfterEvents(t *testing.T) {
	st, a, b := mixedState(t, 31)
	tets := st.Tets()
	if err := st.SetTetCount(tets[0], a, 400); err != nil {
		t.Fatalf("SetTetCount: %v", err)
	}
	if err := st.SetTetCount(tets[3], b, 300); err != nil {
		t.Fatalf("SetTetCount: %v", err)
	}

	if n, err := st.RunEvents(500); err != nil {
		t.Fatalf("RunEvents: %v", err)
	} else if n == 0 {
		t.Fatal("no events applied")
	}

	total := 0.0
	for _, k := range st.KProcs() {
		want := k.Rate()
		total += want
		got := st.KProcRate(k.SchedIDX())
		if math.Abs(got-want) > 1e-12*math.Max(want, 1) {
			t.Errorf("process %d cached rate %g, recomputed %g", k.SchedIDX(), got, want)
		}
	}
	if got := st.TotalRate(); math.Abs(got-total) > 1e-9*math.Max(total, 1) {
		t.Errorf("TotalRate() = %g, full recompute = %g", got, total)
	}
}

func TestSchedulerRejectsNegativeRates(t *testing.T) {
	s := stubScheduler(t, []float64{1, 1})
	if err := s.Update(0, -0.5); err == nil {
		t.Error("Update accepted a negative propensity")
	}

	bad := &stubProc{rate: -1}
	bad.setSchedIDX(0)
	s2 := newScheduler([]KProc{bad})
	if err := s2.Reset(); err == nil {
		t.Error("Reset accepted a negative propensity")
	}
}

func TestSchedulerRejectsNaNRates(t *testing.T) {
	s := stubScheduler(t, []float64{1, 1})
	if err := s.Update(0, math.NaN()); err == nil {
		t.Error("Update accepted a NaN propensity")
	}
	if got := s.Total(); got != 2 {
		t.Errorf("Total() after rejected update = %g, want 2", got)
	}

	bad := &stubProc{rate: math.NaN()}
	bad.setSchedIDX(0)
	s2 := newScheduler([]KProc{bad})
	if err := s2.Reset(); err == nil {
		t.Error("Reset accepted a NaN propensity")
	}
}
