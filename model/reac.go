package model

// ReacDef describes one volume reaction channel: a mass-action conversion
// of LHS species into RHS species inside a compartment.
//
// LHS and RHS are dense stoichiometry vectors indexed by global species
// index. Coefficients are molecule counts and must be non-negative; the
// reaction order is the sum of the LHS coefficients.
type ReacDef struct {
	Name string
	Idx  int

	LHS []int
	RHS []int

	// Kcst is the macroscopic rate constant, in units of
	// (molar)^(1-order) s^-1.
	Kcst float64
}

// Order returns the reaction order (sum of reactant coefficients).
func (r *ReacDef) Order() int {
	order := 0
	for _, c := range r.LHS {
		order += c
	}
	return order
}

// Delta returns RHS[gidx] - LHS[gidx], the net count change of a species
// per occurrence.
func (r *ReacDef) Delta(gidx int) int {
	return r.RHS[gidx] - r.LHS[gidx]
}
