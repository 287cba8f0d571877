package model

// SReacDef describes one surface reaction channel on a patch triangle.
// Surface reactions can couple surface-bound species (on the triangle
// itself) with volume species in the triangle's inner tetrahedron, so the
// stoichiometry is split into a surface part and a volume part.
type SReacDef struct {
	Name string
	Idx  int

	// Surface-bound reactants and products, on the triangle.
	SLHS []int
	SRHS []int

	// Volume reactants and products, in the inner tetrahedron.
	VLHS []int
	VRHS []int

	Kcst float64
}

// Order returns the total reaction order across surface and volume
// reactants.
func (r *SReacDef) Order() int {
	order := 0
	for _, c := range r.SLHS {
		order += c
	}
	for _, c := range r.VLHS {
		order += c
	}
	return order
}

// SurfDelta returns the net surface count change of a species per
// occurrence.
func (r *SReacDef) SurfDelta(gidx int) int {
	return r.SRHS[gidx] - r.SLHS[gidx]
}

// VolDelta returns the net inner-volume count change of a species per
// occurrence.
func (r *SReacDef) VolDelta(gidx int) int {
	return r.VRHS[gidx] - r.VLHS[gidx]
}
