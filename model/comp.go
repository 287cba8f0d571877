package model

// CompDef describes a named compartment: the set of volume reactions and
// diffusion rules active in every tetrahedron belonging to it. One CompDef
// is shared by all geometry built against it; the Statedef owns it.
type CompDef struct {
	Name string
	Idx  int

	// Reacs and Diffs hold indices into the Statedef's reaction and
	// diffusion registries.
	Reacs []int
	Diffs []int
}

func (c *CompDef) hasReac(ridx int) bool {
	for _, r := range c.Reacs {
		if r == ridx {
			return true
		}
	}
	return false
}
