package model

// PatchDef describes a named patch: the set of surface reactions active on
// every triangle belonging to it.
type PatchDef struct {
	Name string
	Idx  int

	// SReacs holds indices into the Statedef's surface-reaction registry.
	SReacs []int
}

func (p *PatchDef) hasSReac(ridx int) bool {
	for _, r := range p.SReacs {
		if r == ridx {
			return true
		}
	}
	return false
}
