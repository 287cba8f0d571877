package core

import (
	"math"
	"testing"

	"github.com/WeiliangChenOIST/FORK-STEPS/model"
	"github.com/WeiliangChenOIST/FORK-STEPS/rng"
)

func TestFallingFactorial(t *testing.T) {
	cases := []struct {
		n, m int
		want float64
	}{
		{0, 0, 1},
		{5, 0, 1},
		{5, 1, 5},
		{5, 2, 20},
		{5, 3, 60},
		{1, 2, 0},
		{0, 1, 0},
		{3, 3, 6},
	}
	for _, c := range cases {
		if got := fallingFactorial(c.n, c.m); got != c.want {
			t.Errorf("fallingFactorial(%d,%d) = %g, want %g", c.n, c.m, got, c.want)
		}
	}
}

func TestReacPropensityBimolecular(t *testing.T) {
	st, tet, a, b, _ := bimolState(t, 1)
	if err := st.SetTetCount(tet, a, 10); err != nil {
		t.Fatalf("SetTetCount: %v", err)
	}
	if err := st.SetTetCount(tet, b, 4); err != nil {
		t.Fatalf("SetTetCount: %v", err)
	}

	r := findReac(t, st)
	// Second order: ccst = kcst / (N_A·V), propensity = ccst·nA·nB.
	want := testKcst / (model.Avogadro * testVol) * 10 * 4
	if got := r.Rate(); math.Abs(got-want)/want > 1e-12 {
		t.Errorf("Rate() = %g, want %g", got, want)
	}
	if got := st.TotalRate(); math.Abs(got-want)/want > 1e-12 {
		t.Errorf("TotalRate() = %g, want %g", got, want)
	}
}

func TestReacZeroReactantZeroRate(t *testing.T) {
	st, tet, a, _, _ := bimolState(t, 1)
	if err := st.SetTetCount(tet, a, 1000); err != nil {
		t.Fatalf("SetTetCount: %v", err)
	}
	// B stays at zero, so the propensity must be exactly zero, not
	// merely small.
	if got := findReac(t, st).Rate(); got != 0 {
		t.Errorf("Rate() with a missing reactant = %g, want exactly 0", got)
	}
}

func TestReacSecondOrderSameSpecies(t *testing.T) {
	sd := model.NewStatedef()
	a := mustAddSpec(t, sd, "A")
	mustAddSpec(t, sd, "D")
	ridx, err := sd.AddReac("dimerize", []int{2, 0}, []int{0, 1}, testKcst)
	if err != nil {
		t.Fatalf("AddReac: %v", err)
	}
	cidx, err := sd.AddComp("cyt")
	if err != nil {
		t.Fatalf("AddComp: %v", err)
	}
	if err := sd.CompAddReac(cidx, ridx); err != nil {
		t.Fatalf("CompAddReac: %v", err)
	}
	if err := sd.Freeze(); err != nil {
		t.Fatalf("Freeze: %v", err)
	}

	st, err := NewState(sd, rng.NewStd(1))
	if err != nil {
		t.Fatalf("NewState: %v", err)
	}
	comp, err := st.AddComp(0)
	if err != nil {
		t.Fatalf("AddComp: %v", err)
	}
	tet, err := st.AddTet(comp, testVol)
	if err != nil {
		t.Fatalf("AddTet: %v", err)
	}
	if err := st.Setup(); err != nil {
		t.Fatalf("Setup: %v", err)
	}

	r := findReac(t, st)

	// A lone molecule cannot dimerize.
	if err := st.SetTetCount(tet, a, 1); err != nil {
		t.Fatalf("SetTetCount: %v", err)
	}
	if got := r.Rate(); got != 0 {
		t.Errorf("Rate() with one molecule = %g, want exactly 0", got)
	}

	// ccst = kcst·(N_A·V)^-1 / 2!, propensity = ccst·n·(n-1).
	if err := st.SetTetCount(tet, a, 7); err != nil {
		t.Fatalf("SetTetCount: %v", err)
	}
	want := testKcst / (model.Avogadro * testVol) / 2 * 7 * 6
	if got := r.Rate(); math.Abs(got-want)/want > 1e-12 {
		t.Errorf("Rate() = %g, want %g", got, want)
	}
}

func TestReacApplyMovesStoichiometry(t *testing.T) {
	st, tet, a, b, c := bimolState(t, 1)
	if err := st.SetTetCount(tet, a, 3); err != nil {
		t.Fatalf("SetTetCount: %v", err)
	}
	if err := st.SetTetCount(tet, b, 3); err != nil {
		t.Fatalf("SetTetCount: %v", err)
	}

	r := findReac(t, st)
	if _, err := r.Apply(st); err != nil {
		t.Fatalf("Apply: %v", err)
	}
	if tet.Count(a) != 2 || tet.Count(b) != 2 || tet.Count(c) != 1 {
		t.Errorf("counts after one occurrence = (%d,%d,%d), want (2,2,1)",
			tet.Count(a), tet.Count(b), tet.Count(c))
	}
}

func TestReacInactiveHasZeroRate(t *testing.T) {
	st, tet, a, b, _ := bimolState(t, 1)
	if err := st.SetTetCount(tet, a, 10); err != nil {
		t.Fatalf("SetTetCount: %v", err)
	}
	if err := st.SetTetCount(tet, b, 10); err != nil {
		t.Fatalf("SetTetCount: %v", err)
	}

	r := findReac(t, st)
	if r.Rate() == 0 {
		t.Fatal("expected a positive propensity before deactivation")
	}
	r.SetActive(false)
	if got := r.Rate(); got != 0 {
		t.Errorf("Rate() while inactive = %g, want 0", got)
	}
}

func TestReacSetKcstAndReset(t *testing.T) {
	st, tet, a, b, _ := bimolState(t, 1)
	if err := st.SetTetCount(tet, a, 10); err != nil {
		t.Fatalf("SetTetCount: %v", err)
	}
	if err := st.SetTetCount(tet, b, 10); err != nil {
		t.Fatalf("SetTetCount: %v", err)
	}

	r := findReac(t, st)
	base := r.Rate()
	r.SetKcst(2 * testKcst)
	if got := r.Rate(); math.Abs(got-2*base)/base > 1e-12 {
		t.Errorf("Rate() after doubling kcst = %g, want %g", got, 2*base)
	}
	if got := r.Kcst(); got != 2*testKcst {
		t.Errorf("Kcst() = %g, want %g", got, 2*testKcst)
	}

	r.SetActive(false)
	r.Reset()
	if !r.Active() {
		t.Error("Reset did not reactivate the channel")
	}
	if got := r.Kcst(); got != testKcst {
		t.Errorf("Kcst() after Reset = %g, want definition value %g", got, testKcst)
	}
	if got := r.Rate(); math.Abs(got-base)/base > 1e-12 {
		t.Errorf("Rate() after Reset = %g, want %g", got, base)
	}
}

func TestSetCompReacControls(t *testing.T) {
	st, tet, a, b, _ := bimolState(t, 1)
	if err := st.SetTetCount(tet, a, 10); err != nil {
		t.Fatalf("SetTetCount: %v", err)
	}
	if err := st.SetTetCount(tet, b, 10); err != nil {
		t.Fatalf("SetTetCount: %v", err)
	}
	comp := st.Comp("cyt")

	if !st.CompReacActive(comp, 0) {
		t.Fatal("reaction unexpectedly inactive after setup")
	}
	if err := st.SetCompReacActive(comp, 0, false); err != nil {
		t.Fatalf("SetCompReacActive: %v", err)
	}
	if st.CompReacActive(comp, 0) {
		t.Error("reaction still reported active after deactivation")
	}
	if got := st.TotalRate(); got != 0 {
		t.Errorf("TotalRate() with the only channel inactive = %g, want 0", got)
	}

	if err := st.SetCompReacActive(comp, 0, true); err != nil {
		t.Fatalf("SetCompReacActive: %v", err)
	}
	base := st.TotalRate()
	if base == 0 {
		t.Fatal("expected a positive total propensity after reactivation")
	}
	if err := st.SetCompReacK(comp, 0, 2*testKcst); err != nil {
		t.Fatalf("SetCompReacK: %v", err)
	}
	if got := st.TotalRate(); math.Abs(got-2*base)/base > 1e-12 {
		t.Errorf("TotalRate() after doubling kcst = %g, want %g", got, 2*base)
	}

	if err := st.SetCompReacK(comp, 7, 1.0); err == nil {
		t.Error("SetCompReacK for an unknown reaction index accepted")
	}
}
