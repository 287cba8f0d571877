package core

import "github.com/WeiliangChenOIST/FORK-STEPS/model"

// Comp is a named compartment: the ordered set of tetrahedra sharing one
// compartment definition. The aggregate volume is maintained incrementally
// as members are added and is never recomputed during a run. Membership is
// append-only once setup has completed.
type Comp struct {
	def  *model.CompDef
	tets []*Tet
	vol  float64
}

// Def returns the shared compartment definition.
func (c *Comp) Def() *model.CompDef { return c.def }

// Vol returns the aggregate volume of all member tets, in litres.
func (c *Comp) Vol() float64 { return c.vol }

// Tets returns the member elements in insertion order.
func (c *Comp) Tets() []*Tet { return c.tets }

// Count returns the total count of species gidx across all members.
func (c *Comp) Count(gidx int) int {
	n := 0
	for _, t := range c.tets {
		n += t.counts[gidx]
	}
	return n
}

func (c *Comp) addTet(t *Tet) error {
	if t.def != c.def {
		return configErrorf("tet built against compdef %q cannot join compartment %q", t.def.Name, c.def.Name)
	}
	c.tets = append(c.tets, t)
	c.vol += t.vol
	return nil
}

// PickTetByVol selects a member tetrahedron with probability proportional
// to its volume. rand01 must be a uniform draw in [0,1). The first member
// whose cumulative volume reaches the scaled selector wins; any residual
// floating-point overshoot falls to the last member.
func (c *Comp) PickTetByVol(rand01 float64) *Tet {
	if len(c.tets) == 0 {
		return nil
	}
	if len(c.tets) == 1 {
		return c.tets[0]
	}

	selector := rand01 * c.vol
	accum := 0.0
	for _, t := range c.tets {
		accum += t.vol
		if selector <= accum {
			return t
		}
	}
	return c.tets[len(c.tets)-1]
}
