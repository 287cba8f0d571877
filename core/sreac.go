package core

import (
	"math"

	"github.com/WeiliangChenOIST/FORK-STEPS/model"
)

// SReac is a mass-action surface reaction channel on one boundary face.
// It reads and mutates surface counts on the face itself and, when the
// definition carries volume stoichiometry, counts in the inner
// tetrahedron.
type SReac struct {
	kprocBase
	def *model.SReacDef
	tri *Tri

	kcst float64
	ccst float64
}

func newSReac(def *model.SReacDef, tri *Tri) *SReac {
	r := &SReac{def: def, tri: tri}
	r.active = true
	r.kcst = def.Kcst
	r.refreshCcst()
	return r
}

// Def returns the surface reaction definition this channel instantiates.
func (r *SReac) Def() *model.SReacDef { return r.def }

// Kcst returns the channel's current macroscopic rate constant.
func (r *SReac) Kcst() float64 { return r.kcst }

// SetKcst overrides the rate constant for this channel only.
func (r *SReac) SetKcst(kcst float64) {
	r.kcst = kcst
	r.refreshCcst()
}

// refreshCcst scales the macroscopic constant by the inner tet volume when
// the channel consumes volume species, otherwise by the face area.
func (r *SReac) refreshCcst() {
	order := r.def.Order()
	fact := 1.0
	hasVol := false
	for _, m := range r.def.SLHS {
		if m > 1 {
			fact *= factorial(m)
		}
	}
	for _, m := range r.def.VLHS {
		if m > 0 {
			hasVol = true
		}
		if m > 1 {
			fact *= factorial(m)
		}
	}
	measure := r.tri.area
	if hasVol && r.tri.inner != nil {
		measure = r.tri.inner.vol
	}
	r.ccst = r.kcst * math.Pow(model.Avogadro*measure, float64(1-order)) / fact
}

// SetupDeps registers the surface and inner-volume reactant counts.
func (r *SReac) SetupDeps(s *State) {
	for _, k := range r.readSet() {
		s.graph.register(k, r.idx)
	}
}

// DependsOnSpecAt reports whether the propensity reads species gidx in the
// given element, covering both the face and its inner tet.
func (r *SReac) DependsOnSpecAt(gidx int, elem ElemID) bool {
	if elem == r.tri.id && r.def.SLHS[gidx] > 0 {
		return true
	}
	if r.tri.inner != nil && elem == r.tri.inner.id && r.def.VLHS[gidx] > 0 {
		return true
	}
	return false
}

// Reset restores the definition rate constant and reactivates the channel.
func (r *SReac) Reset() {
	r.kcst = r.def.Kcst
	r.active = true
	r.refreshCcst()
}

// Rate returns the current propensity.
func (r *SReac) Rate() float64 {
	if !r.active {
		return 0
	}
	h := 1.0
	for gidx, m := range r.def.SLHS {
		if m == 0 {
			continue
		}
		h *= fallingFactorial(r.tri.counts[gidx], m)
		if h == 0 {
			return 0
		}
	}
	if r.tri.inner != nil {
		for gidx, m := range r.def.VLHS {
			if m == 0 {
				continue
			}
			h *= fallingFactorial(r.tri.inner.counts[gidx], m)
			if h == 0 {
				return 0
			}
		}
	}
	return r.ccst * h
}

// Apply executes one occurrence on the face and its inner tet.
func (r *SReac) Apply(s *State) ([]SchedIDX, error) {
	for gidx := range r.def.SLHS {
		if d := r.def.SurfDelta(gidx); d != 0 {
			if err := r.tri.addCount(gidx, d); err != nil {
				return nil, err
			}
		}
	}
	if r.tri.inner != nil {
		for gidx := range r.def.VLHS {
			if d := r.def.VolDelta(gidx); d != 0 {
				if err := r.tri.inner.addCount(gidx, d); err != nil {
					return nil, err
				}
			}
		}
	}
	return r.upd, nil
}

func (r *SReac) readSet() []depKey {
	var keys []depKey
	for gidx, m := range r.def.SLHS {
		if m > 0 {
			keys = append(keys, depKey{Elem: r.tri.id, Spec: gidx})
		}
	}
	if r.tri.inner != nil {
		for gidx, m := range r.def.VLHS {
			if m > 0 {
				keys = append(keys, depKey{Elem: r.tri.inner.id, Spec: gidx})
			}
		}
	}
	return keys
}

func (r *SReac) writeSet() []depKey {
	var keys []depKey
	for gidx := range r.def.SLHS {
		if r.def.SurfDelta(gidx) != 0 {
			keys = append(keys, depKey{Elem: r.tri.id, Spec: gidx})
		}
	}
	if r.tri.inner != nil {
		for gidx := range r.def.VLHS {
			if r.def.VolDelta(gidx) != 0 {
				keys = append(keys, depKey{Elem: r.tri.inner.id, Spec: gidx})
			}
		}
	}
	return keys
}
