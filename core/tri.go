package core

import "github.com/WeiliangChenOIST/FORK-STEPS/model"

// Tri is one boundary-face element. It owns its surface-bound molecule
// counts and its surface-reaction processes; the patch backref identifies
// membership only. The inner tet link couples surface reactions to the
// adjacent volume.
type Tri struct {
	id    ElemID
	def   *model.PatchDef
	patch *Patch
	area  float64

	counts  []int
	clamped []bool

	kprocs []KProc

	inner *Tet
}

// ID returns the element identity within its state.
func (t *Tri) ID() ElemID { return t.id }

// Area returns the face area.
func (t *Tri) Area() float64 { return t.area }

// Patch returns the grouping element this tri belongs to.
func (t *Tri) Patch() *Patch { return t.patch }

// Inner returns the tetrahedron on the inner side of the face, nil if the
// patch is free-standing.
func (t *Tri) Inner() *Tet { return t.inner }

// Count returns the surface count of species gidx.
func (t *Tri) Count(gidx int) int { return t.counts[gidx] }

// Clamped reports whether species gidx is clamped on this face.
func (t *Tri) Clamped(gidx int) bool { return t.clamped[gidx] }

// SetClamped freezes or releases the surface count of species gidx.
func (t *Tri) SetClamped(gidx int, clamp bool) { t.clamped[gidx] = clamp }

func (t *Tri) addCount(gidx, delta int) error {
	if t.clamped[gidx] {
		return nil
	}
	n := t.counts[gidx] + delta
	if n < 0 {
		return invariantErrorf("surface count of species %d in element %d driven to %d", gidx, t.id, n)
	}
	t.counts[gidx] = n
	return nil
}

func (t *Tri) setCount(gidx, n int) {
	t.counts[gidx] = n
}
