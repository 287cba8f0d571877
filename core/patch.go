package core

import "github.com/WeiliangChenOIST/FORK-STEPS/model"

// Patch is a named grouping of boundary faces sharing one patch
// definition. The aggregate area is maintained incrementally on AddTri.
type Patch struct {
	def  *model.PatchDef
	tris []*Tri
	area float64
}

// Def returns the shared patch definition.
func (p *Patch) Def() *model.PatchDef { return p.def }

// Area returns the aggregate area of all member faces.
func (p *Patch) Area() float64 { return p.area }

// Tris returns the member faces in insertion order.
func (p *Patch) Tris() []*Tri { return p.tris }

// Count returns the total surface count of species gidx across members.
func (p *Patch) Count(gidx int) int {
	n := 0
	for _, t := range p.tris {
		n += t.counts[gidx]
	}
	return n
}

func (p *Patch) addTri(t *Tri) error {
	if t.def != p.def {
		return configErrorf("tri built against patchdef %q cannot join patch %q", t.def.Name, p.def.Name)
	}
	p.tris = append(p.tris, t)
	p.area += t.area
	return nil
}

// PickTriByArea selects a member face with probability proportional to its
// area. The boundary rule matches reaction selection: the first member
// whose cumulative area reaches the scaled selector is returned, and the
// last member absorbs floating-point overshoot.
func (p *Patch) PickTriByArea(rand01 float64) *Tri {
	if len(p.tris) == 0 {
		return nil
	}
	if len(p.tris) == 1 {
		return p.tris[0]
	}

	selector := rand01 * p.area
	accum := 0.0
	for _, t := range p.tris {
		accum += t.area
		if selector <= accum {
			return t
		}
	}
	return p.tris[len(p.tris)-1]
}
