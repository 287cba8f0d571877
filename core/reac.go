package core

import (
	"math"

	"github.com/WeiliangChenOIST/FORK-STEPS/model"
)

// Reac is a mass-action volume reaction channel in one tetrahedron. Its
// propensity is the product of falling-factorial reactant terms scaled by
// a stochastic rate constant derived from the macroscopic kcst and the
// element volume.
type Reac struct {
	kprocBase
	def *model.ReacDef
	tet *Tet

	kcst float64 // runtime-overridable copy of def.Kcst
	ccst float64
}

func newReac(def *model.ReacDef, tet *Tet) *Reac {
	r := &Reac{def: def, tet: tet}
	r.active = true
	r.kcst = def.Kcst
	r.refreshCcst()
	return r
}

// Def returns the reaction definition this channel instantiates.
func (r *Reac) Def() *model.ReacDef { return r.def }

// Kcst returns the channel's current macroscopic rate constant.
func (r *Reac) Kcst() float64 { return r.kcst }

// SetKcst overrides the rate constant for this channel only. The caller
// must requeue the channel afterwards; the solver state does that for
// compartment-level updates.
func (r *Reac) SetKcst(kcst float64) {
	r.kcst = kcst
	r.refreshCcst()
}

// refreshCcst converts the macroscopic constant into the stochastic
// per-occurrence constant: kcst · (N_A·V)^(1-order) / Π m_s!
func (r *Reac) refreshCcst() {
	order := r.def.Order()
	fact := 1.0
	for _, m := range r.def.LHS {
		if m > 1 {
			fact *= factorial(m)
		}
	}
	r.ccst = r.kcst * math.Pow(model.Avogadro*r.tet.vol, float64(1-order)) / fact
}

// SetupDeps registers the channel's reactant counts in the dependency
// graph.
func (r *Reac) SetupDeps(s *State) {
	for _, k := range r.readSet() {
		s.graph.register(k, r.idx)
	}
}

// DependsOnSpecAt reports whether the propensity reads species gidx in the
// given element.
func (r *Reac) DependsOnSpecAt(gidx int, elem ElemID) bool {
	return elem == r.tet.id && r.def.LHS[gidx] > 0
}

// Reset restores the definition rate constant and reactivates the channel.
func (r *Reac) Reset() {
	r.kcst = r.def.Kcst
	r.active = true
	r.refreshCcst()
}

// Rate returns the current propensity.
func (r *Reac) Rate() float64 {
	if !r.active {
		return 0
	}
	h := 1.0
	for gidx, m := range r.def.LHS {
		if m == 0 {
			continue
		}
		h *= fallingFactorial(r.tet.counts[gidx], m)
		if h == 0 {
			return 0
		}
	}
	return r.ccst * h
}

// Apply executes one occurrence: reactants down, products up.
func (r *Reac) Apply(s *State) ([]SchedIDX, error) {
	for gidx := range r.def.LHS {
		if d := r.def.Delta(gidx); d != 0 {
			if err := r.tet.addCount(gidx, d); err != nil {
				return nil, err
			}
		}
	}
	return r.upd, nil
}

func (r *Reac) readSet() []depKey {
	var keys []depKey
	for gidx, m := range r.def.LHS {
		if m > 0 {
			keys = append(keys, depKey{Elem: r.tet.id, Spec: gidx})
		}
	}
	return keys
}

func (r *Reac) writeSet() []depKey {
	var keys []depKey
	for gidx := range r.def.LHS {
		if r.def.Delta(gidx) != 0 {
			keys = append(keys, depKey{Elem: r.tet.id, Spec: gidx})
		}
	}
	return keys
}
