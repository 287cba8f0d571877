package model

// SpecDef describes one chemical species. The global index is assigned by
// the Statedef in registration order and is the identity used for all
// per-species count bookkeeping in the solver.
type SpecDef struct {
	Name string
	GIdx int
}
