package model

// DiffDef describes a diffusion rule: one species moving between adjacent
// tetrahedra of a compartment with diffusion constant Dcst (m^2 s^-1).
// The solver expands a rule into one directional hop process per mesh face
// per direction.
type DiffDef struct {
	Name string
	Idx  int

	// Spec is the global index of the diffusing species.
	Spec int

	Dcst float64
}
