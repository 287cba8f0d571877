package model

import "fmt"

// Avogadro constant, molecules per mole.
const Avogadro = 6.02214076e23

// Statedef is the registry of everything a simulation state is built from:
// species, reaction channels, diffusion rules, compartments, and patches.
// It is assembled through the Add* calls and then locked with Freeze; the
// solver only accepts frozen definitions.
//
// A Statedef is owned by the caller that builds it and shared, read-only,
// by every solver state instantiated from it.
type Statedef struct {
	specs   []*SpecDef
	reacs   []*ReacDef
	sreacs  []*SReacDef
	diffs   []*DiffDef
	comps   []*CompDef
	patches []*PatchDef

	specsByName map[string]int
	compsByName map[string]int

	frozen bool
}

// NewStatedef returns an empty, unfrozen registry.
func NewStatedef() *Statedef {
	return &Statedef{
		specsByName: make(map[string]int),
		compsByName: make(map[string]int),
	}
}

// CountSpecs returns the number of registered species.
func (s *Statedef) CountSpecs() int { return len(s.specs) }

// CountReacs returns the number of registered volume reactions.
func (s *Statedef) CountReacs() int { return len(s.reacs) }

// CountComps returns the number of registered compartments.
func (s *Statedef) CountComps() int { return len(s.comps) }

// Frozen reports whether Freeze has completed.
func (s *Statedef) Frozen() bool { return s.frozen }

// AddSpec registers a species and returns its global index.
func (s *Statedef) AddSpec(name string) (int, error) {
	if s.frozen {
		return 0, configErrorf("cannot add species %q to a frozen statedef", name)
	}
	if name == "" {
		return 0, configErrorf("species name must not be empty")
	}
	if _, dup := s.specsByName[name]; dup {
		return 0, configErrorf("species %q already defined", name)
	}
	gidx := len(s.specs)
	s.specs = append(s.specs, &SpecDef{Name: name, GIdx: gidx})
	s.specsByName[name] = gidx
	return gidx, nil
}

// AddReac registers a volume reaction. The stoichiometry vectors must be
// dense over the species registered so far.
func (s *Statedef) AddReac(name string, lhs, rhs []int, kcst float64) (int, error) {
	if s.frozen {
		return 0, configErrorf("cannot add reaction %q to a frozen statedef", name)
	}
	if err := s.checkStoich(name, lhs); err != nil {
		return 0, err
	}
	if err := s.checkStoich(name, rhs); err != nil {
		return 0, err
	}
	if kcst < 0 {
		return 0, configErrorf("reaction %q: negative rate constant %g", name, kcst)
	}
	ridx := len(s.reacs)
	s.reacs = append(s.reacs, &ReacDef{
		Name: name,
		Idx:  ridx,
		LHS:  append([]int(nil), lhs...),
		RHS:  append([]int(nil), rhs...),
		Kcst: kcst,
	})
	return ridx, nil
}

// AddSReac registers a surface reaction with surface (triangle) and volume
// (inner tetrahedron) stoichiometry parts.
func (s *Statedef) AddSReac(name string, slhs, srhs, vlhs, vrhs []int, kcst float64) (int, error) {
	if s.frozen {
		return 0, configErrorf("cannot add surface reaction %q to a frozen statedef", name)
	}
	for _, side := range [][]int{slhs, srhs, vlhs, vrhs} {
		if err := s.checkStoich(name, side); err != nil {
			return 0, err
		}
	}
	if kcst < 0 {
		return 0, configErrorf("surface reaction %q: negative rate constant %g", name, kcst)
	}
	ridx := len(s.sreacs)
	s.sreacs = append(s.sreacs, &SReacDef{
		Name: name,
		Idx:  ridx,
		SLHS: append([]int(nil), slhs...),
		SRHS: append([]int(nil), srhs...),
		VLHS: append([]int(nil), vlhs...),
		VRHS: append([]int(nil), vrhs...),
		Kcst: kcst,
	})
	return ridx, nil
}

// AddDiff registers a diffusion rule for one species.
func (s *Statedef) AddDiff(name string, spec int, dcst float64) (int, error) {
	if s.frozen {
		return 0, configErrorf("cannot add diffusion rule %q to a frozen statedef", name)
	}
	if spec < 0 || spec >= len(s.specs) {
		return 0, configErrorf("diffusion rule %q references undefined species index %d", name, spec)
	}
	if dcst < 0 {
		return 0, configErrorf("diffusion rule %q: negative diffusion constant %g", name, dcst)
	}
	didx := len(s.diffs)
	s.diffs = append(s.diffs, &DiffDef{Name: name, Idx: didx, Spec: spec, Dcst: dcst})
	return didx, nil
}

// AddComp registers a compartment and returns its index.
func (s *Statedef) AddComp(name string) (int, error) {
	if s.frozen {
		return 0, configErrorf("cannot add compartment %q to a frozen statedef", name)
	}
	if name == "" {
		return 0, configErrorf("compartment name must not be empty")
	}
	if _, dup := s.compsByName[name]; dup {
		return 0, configErrorf("compartment %q already defined", name)
	}
	cidx := len(s.comps)
	s.comps = append(s.comps, &CompDef{Name: name, Idx: cidx})
	s.compsByName[name] = cidx
	return cidx, nil
}

// AddPatch registers a patch and returns its index.
func (s *Statedef) AddPatch(name string) (int, error) {
	if s.frozen {
		return 0, configErrorf("cannot add patch %q to a frozen statedef", name)
	}
	if name == "" {
		return 0, configErrorf("patch name must not be empty")
	}
	pidx := len(s.patches)
	s.patches = append(s.patches, &PatchDef{Name: name, Idx: pidx})
	return pidx, nil
}

// CompAddReac makes a registered reaction active in a compartment.
func (s *Statedef) CompAddReac(cidx, ridx int) error {
	if s.frozen {
		return configErrorf("cannot edit a frozen statedef")
	}
	if cidx < 0 || cidx >= len(s.comps) {
		return configErrorf("undefined compartment index %d", cidx)
	}
	if ridx < 0 || ridx >= len(s.reacs) {
		return configErrorf("undefined reaction index %d", ridx)
	}
	c := s.comps[cidx]
	if c.hasReac(ridx) {
		return configErrorf("reaction %q already active in compartment %q", s.reacs[ridx].Name, c.Name)
	}
	c.Reacs = append(c.Reacs, ridx)
	return nil
}

// CompAddDiff makes a registered diffusion rule active in a compartment.
func (s *Statedef) CompAddDiff(cidx, didx int) error {
	if s.frozen {
		return configErrorf("cannot edit a frozen statedef")
	}
	if cidx < 0 || cidx >= len(s.comps) {
		return configErrorf("undefined compartment index %d", cidx)
	}
	if didx < 0 || didx >= len(s.diffs) {
		return configErrorf("undefined diffusion rule index %d", didx)
	}
	s.comps[cidx].Diffs = append(s.comps[cidx].Diffs, didx)
	return nil
}

// PatchAddSReac makes a registered surface reaction active on a patch.
func (s *Statedef) PatchAddSReac(pidx, ridx int) error {
	if s.frozen {
		return configErrorf("cannot edit a frozen statedef")
	}
	if pidx < 0 || pidx >= len(s.patches) {
		return configErrorf("undefined patch index %d", pidx)
	}
	if ridx < 0 || ridx >= len(s.sreacs) {
		return configErrorf("undefined surface reaction index %d", ridx)
	}
	p := s.patches[pidx]
	if p.hasSReac(ridx) {
		return configErrorf("surface reaction %q already active on patch %q", s.sreacs[ridx].Name, p.Name)
	}
	p.SReacs = append(p.SReacs, ridx)
	return nil
}

// Freeze validates the whole registry and locks it against further edits.
// A frozen Statedef is what the solver builds geometry against.
func (s *Statedef) Freeze() error {
	if s.frozen {
		return configErrorf("statedef already frozen")
	}
	nspecs := len(s.specs)
	for _, r := range s.reacs {
		if len(r.LHS) != nspecs || len(r.RHS) != nspecs {
			return configErrorf("reaction %q: stoichiometry length mismatch (want %d species)", r.Name, nspecs)
		}
	}
	for _, r := range s.sreacs {
		for _, side := range [][]int{r.SLHS, r.SRHS, r.VLHS, r.VRHS} {
			if len(side) != nspecs {
				return configErrorf("surface reaction %q: stoichiometry length mismatch (want %d species)", r.Name, nspecs)
			}
		}
	}
	s.frozen = true
	return nil
}

// Spec returns the species definition at gidx.
func (s *Statedef) Spec(gidx int) *SpecDef { return s.specs[gidx] }

// SpecByName looks a species up by name.
func (s *Statedef) SpecByName(name string) (*SpecDef, bool) {
	gidx, ok := s.specsByName[name]
	if !ok {
		return nil, false
	}
	return s.specs[gidx], true
}

// Reac returns the volume reaction definition at ridx.
func (s *Statedef) Reac(ridx int) *ReacDef { return s.reacs[ridx] }

// SReac returns the surface reaction definition at ridx.
func (s *Statedef) SReac(ridx int) *SReacDef { return s.sreacs[ridx] }

// Diff returns the diffusion rule at didx.
func (s *Statedef) Diff(didx int) *DiffDef { return s.diffs[didx] }

// Comp returns the compartment definition at cidx.
func (s *Statedef) Comp(cidx int) *CompDef { return s.comps[cidx] }

// CompByName looks a compartment up by name.
func (s *Statedef) CompByName(name string) (*CompDef, bool) {
	cidx, ok := s.compsByName[name]
	if !ok {
		return nil, false
	}
	return s.comps[cidx], true
}

// Patch returns the patch definition at pidx.
func (s *Statedef) Patch(pidx int) *PatchDef { return s.patches[pidx] }

func (s *Statedef) checkStoich(owner string, side []int) error {
	if len(side) != len(s.specs) {
		return configErrorf("%s: stoichiometry vector has length %d, want %d", owner, len(side), len(s.specs))
	}
	for gidx, c := range side {
		if c < 0 {
			return configErrorf("%s: negative stoichiometry %d for species %q", owner, c, s.specs[gidx].Name)
		}
	}
	return nil
}

// CountFromConc converts a molar concentration in a volume (litres) to a
// molecule count, rounding to the nearest whole molecule.
func CountFromConc(conc, volLitres float64) int {
	n := conc * Avogadro * volLitres
	return int(n + 0.5)
}

// ConcFromCount converts a molecule count in a volume (litres) to a molar
// concentration.
func ConcFromCount(count int, volLitres float64) float64 {
	if volLitres <= 0 {
		return 0
	}
	return float64(count) / (Avogadro * volLitres)
}

// String implements fmt.Stringer for debugging output.
func (s *Statedef) String() string {
	return fmt.Sprintf("statedef{specs=%d reacs=%d sreacs=%d diffs=%d comps=%d patches=%d frozen=%v}",
		len(s.specs), len(s.reacs), len(s.sreacs), len(s.diffs), len(s.comps), len(s.patches), s.frozen)
}
