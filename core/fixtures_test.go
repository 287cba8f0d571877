package core

import (
	"testing"

	"github.com/WeiliangChenOIST/FORK-STEPS/model"
	"github.com/WeiliangChenOIST/FORK-STEPS/rng"
)

// Shared test constants. testVol is a femtolitre-scale element, the size
// regime the solver is meant for.
const (
	testVol  = 1e-18 // litres
	testKcst = 1e8   // M^-1 s^-1
)

// bimolDef builds a frozen A+B→C model with one compartment.
func bimolDef(t *testing.T) (sd *model.Statedef, a, b, c int) {
	t.Helper()
	sd = model.NewStatedef()
	a = mustAddSpec(t, sd, "A")
	b = mustAddSpec(t, sd, "B")
	c = mustAddSpec(t, sd, "C")
	ridx, err := sd.AddReac("assoc", []int{1, 1, 0}, []int{0, 0, 1}, testKcst)
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
	return sd, a, b, c
}

// bimolState instantiates bimolDef in a single tet and runs setup.
func bimolState(t *testing.T, seed uint64) (st *State, tet *Tet, a, b, c int) {
	t.Helper()
	sd, a, b, c := bimolDef(t)
	st, err := NewState(sd, rng.NewStd(seed))
	if err != nil {
		t.Fatalf("NewState: %v", err)
	}
	comp, err := st.AddComp(0)
	if err != nil {
		t.Fatalf("AddComp: %v", err)
	}
	tet, err = st.AddTet(comp, testVol)
	if err != nil {
		t.Fatalf("AddTet: %v", err)
	}
	if err := st.Setup(); err != nil {
		t.Fatalf("Setup: %v", err)
	}
	return st, tet, a, b, c
}

// diffChainState builds a chain of n equal tets with one diffusing
// species and symmetric unit coupling, and runs setup.
func diffChainState(t *testing.T, n int, dcst float64, seed uint64) (st *State, tets []*Tet, spec int) {
	t.Helper()
	sd := model.NewStatedef()
	spec = mustAddSpec(t, sd, "X")
	didx, err := sd.AddDiff("diffX", spec, dcst)
	if err != nil {
		t.Fatalf("AddDiff: %v", err)
	}
	cidx, err := sd.AddComp("cyt")
	if err != nil {
		t.Fatalf("AddComp: %v", err)
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
	tets = make([]*Tet, n)
	for i := range tets {
		tets[i], err = st.AddTet(comp, testVol)
		if err != nil {
			t.Fatalf("AddTet %d: %v", i, err)
		}
	}
	for i := 0; i+1 < n; i++ {
		if err := st.ConnectTets(tets[i], tets[i+1], 1.0, 1.0); err != nil {
			t.Fatalf("ConnectTets %d: %v", i, err)
		}
	}
	if err := st.Setup(); err != nil {
		t.Fatalf("Setup: %v", err)
	}
	return st, tets, spec
}

func mustAddSpec(t *testing.T, sd *model.Statedef, name string) int {
	t.Helper()
	gidx, err := sd.AddSpec(name)
	if err != nil {
		t.Fatalf("AddSpec(%s): %v", name, err)
	}
	return gidx
}

// findReac returns the lone Reac channel of a single-tet fixture.
func findReac(t *testing.T, st *State) *Reac {
	t.Helper()
	for _, k := range st.KProcs() {
		if r, ok := k.(*Reac); ok {
			return r
		}
	}
	t.Fatal("no Reac channel in state")
	return nil
}

// countingSource wraps a source and counts draws. It is deliberately not
// checkpointable.
type countingSource struct {
	inner rng.Source
	draws int
}

func (c *countingSource) Float64() float64 {
	c.draws++
	return c.inner.Float64()
}
