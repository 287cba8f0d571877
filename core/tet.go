package core

import "github.com/WeiliangChenOIST/FORK-STEPS/model"

// tetFaces is the number of faces of a tetrahedron, and therefore the
// maximum number of diffusion neighbours.
const tetFaces = 4

// Tet is one tetrahedral volume element. It owns its per-species molecule
// counts and the kinetic processes local to it; its compartment backref
// identifies membership only and never owns it.
//
// A ghost tet stands in for an element owned by another worker in the
// distributed variant: diffusive hops may land in it, but it sources no
// processes of its own.
type Tet struct {
	id    ElemID
	def   *model.CompDef
	comp  *Comp
	vol   float64
	ghost bool

	counts  []int
	clamped []bool

	kprocs []KProc

	next  [tetFaces]*Tet
	scale [tetFaces]float64
}

// ID returns the element identity within its state.
func (t *Tet) ID() ElemID { return t.id }

// Vol returns the element volume in litres.
func (t *Tet) Vol() float64 { return t.vol }

// Comp returns the grouping element this tet belongs to, nil for ghosts.
func (t *Tet) Comp() *Comp { return t.comp }

// Ghost reports whether this tet is a remote-owned placeholder.
func (t *Tet) Ghost() bool { return t.ghost }

// Count returns the molecule count of species gidx.
func (t *Tet) Count(gidx int) int { return t.counts[gidx] }

// Clamped reports whether species gidx is clamped in this element.
func (t *Tet) Clamped(gidx int) bool { return t.clamped[gidx] }

// SetClamped freezes or releases the count of species gidx. A clamped
// count ignores all production and consumption.
func (t *Tet) SetClamped(gidx int, clamp bool) { t.clamped[gidx] = clamp }

// Next returns the neighbour across the given face, nil if unconnected.
func (t *Tet) Next(face int) *Tet { return t.next[face] }

// addCount applies a signed count change, honouring the clamp flag.
// Driving a count negative is an invariant violation.
func (t *Tet) addCount(gidx, delta int) error {
	if t.clamped[gidx] {
		return nil
	}
	n := t.counts[gidx] + delta
	if n < 0 {
		return invariantErrorf("count of species %d in element %d driven to %d", gidx, t.id, n)
	}
	t.counts[gidx] = n
	return nil
}

func (t *Tet) setCount(gidx, n int) {
	t.counts[gidx] = n
}

// connect attaches a neighbour across the first free face and records the
// geometric coupling scale for hops in that direction.
func (t *Tet) connect(neighbour *Tet, scale float64) error {
	for f := 0; f < tetFaces; f++ {
		if t.next[f] == nil {
			t.next[f] = neighbour
			t.scale[f] = scale
			return nil
		}
	}
	return configErrorf("element %d already has %d neighbours", t.id, tetFaces)
}
