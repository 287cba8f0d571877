package core

import "github.com/WeiliangChenOIST/FORK-STEPS/model"

// Diff is one directional diffusive hop: a single species moving from a
// source tetrahedron to one neighbour across one face. Its propensity is a
// constant per-molecule hazard times the source count.
type Diff struct {
	kprocBase
	def *model.DiffDef
	src *Tet
	dst *Tet

	dcst  float64 // runtime-overridable copy of def.Dcst
	scale float64 // geometric coupling for this face, (length^-2)
}

func newDiff(def *model.DiffDef, src, dst *Tet, scale float64) *Diff {
	d := &Diff{def: def, src: src, dst: dst, dcst: def.Dcst, scale: scale}
	d.active = true
	return d
}

// Def returns the diffusion rule this hop instantiates.
func (d *Diff) Def() *model.DiffDef { return d.def }

// Src returns the source element of the hop.
func (d *Diff) Src() *Tet { return d.src }

// Dst returns the destination element of the hop.
func (d *Diff) Dst() *Tet { return d.dst }

// CouplingScale returns the per-face geometric hazard scale for a hop
// across a face of the given area between elements of the given source
// volume, with centre-to-centre distance dist. Units follow the mesh.
func CouplingScale(area, vol, dist float64) float64 {
	return area / (vol * dist)
}

// SetupDeps registers the source count in the dependency graph.
func (d *Diff) SetupDeps(s *State) {
	for _, k := range d.readSet() {
		s.graph.register(k, d.idx)
	}
}

// DependsOnSpecAt reports whether the hop hazard reads species gidx in the
// given element. Only the source count matters.
func (d *Diff) DependsOnSpecAt(gidx int, elem ElemID) bool {
	return elem == d.src.id && gidx == d.def.Spec
}

// Reset restores the definition diffusion constant and reactivates the
// hop.
func (d *Diff) Reset() {
	d.dcst = d.def.Dcst
	d.active = true
}

// Rate returns the current propensity.
func (d *Diff) Rate() float64 {
	if !d.active {
		return 0
	}
	return d.dcst * d.scale * float64(d.src.counts[d.def.Spec])
}

// Apply moves one molecule from source to destination.
func (d *Diff) Apply(s *State) ([]SchedIDX, error) {
	if err := d.src.addCount(d.def.Spec, -1); err != nil {
		return nil, err
	}
	if err := d.dst.addCount(d.def.Spec, 1); err != nil {
		return nil, err
	}
	return d.upd, nil
}

func (d *Diff) readSet() []depKey {
	return []depKey{{Elem: d.src.id, Spec: d.def.Spec}}
}

func (d *Diff) writeSet() []depKey {
	return []depKey{
		{Elem: d.src.id, Spec: d.def.Spec},
		{Elem: d.dst.id, Spec: d.def.Spec},
	}
}
