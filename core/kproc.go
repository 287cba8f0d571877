package core

// ElemID identifies a geometry element (tetrahedron or triangle) within
// one State. IDs are assigned in registration order and are stable for the
// lifetime of the state.
type ElemID int

// SchedIDX is the stable schedule index of a kinetic process. It is the
// identity used by the dependency graph and by the scheduler's partial-sum
// structure.
type SchedIDX int

// depKey addresses one (element, species) count in the dependency graph.
type depKey struct {
	Elem ElemID
	Spec int
}

// KProc is one elementary kinetic process: a reaction channel in a single
// element or a directional diffusive hop across one mesh face. Concrete
// variants differ only in their propensity formula and their effect on
// counts.
//
// A process is owned by the geometry element it lives in and is destroyed
// with it. SetupDeps is called exactly once, after every process in the
// state has been constructed; it must not assume anything about the
// construction order of other processes.
type KProc interface {
	// SchedIDX returns the process's schedule index.
	SchedIDX() SchedIDX

	// SetupDeps registers every (element, species) count this process's
	// propensity reads into the state's dependency graph.
	SetupDeps(s *State)

	// DependsOnSpecAt reports whether the propensity reads the count of
	// species gidx in the given element. Pure; used by the dependency
	// completeness check.
	DependsOnSpecAt(gidx int, elem ElemID) bool

	// Reset clears transient per-process state (runtime rate-constant
	// overrides, activation flags). It does not touch element counts.
	Reset()

	// Rate returns the current propensity. Never negative; exactly zero
	// whenever any required reactant count is zero.
	Rate() float64

	// Apply executes one discrete occurrence, mutating counts, and
	// returns the schedule indices whose propensities must be
	// recomputed.
	Apply(s *State) ([]SchedIDX, error)

	// Active reports whether the process can fire. Inactive processes
	// have propensity zero regardless of counts.
	Active() bool

	// SetActive toggles the process on or off.
	SetActive(active bool)

	setSchedIDX(idx SchedIDX)
	setUpdVec(upd []SchedIDX)

	// readSet enumerates the (element, species) counts the propensity
	// reads; writeSet enumerates the counts Apply mutates.
	readSet() []depKey
	writeSet() []depKey
}

// kprocBase carries the bookkeeping shared by all process variants: the
// schedule index and the cached update vector assembled after dependency
// setup.
type kprocBase struct {
	idx    SchedIDX
	active bool
	upd    []SchedIDX
}

func (k *kprocBase) SchedIDX() SchedIDX       { return k.idx }
func (k *kprocBase) setSchedIDX(idx SchedIDX) { k.idx = idx }
func (k *kprocBase) setUpdVec(upd []SchedIDX) { k.upd = upd }
func (k *kprocBase) Active() bool             { return k.active }
func (k *kprocBase) SetActive(active bool)    { k.active = active }

// fallingFactorial returns n·(n-1)·…·(n-m+1), the number of ordered ways
// to pick m molecules out of n. Zero when n < m, so a missing reactant
// forces a propensity of exactly zero.
func fallingFactorial(n, m int) float64 {
	if n < m {
		return 0
	}
	p := 1.0
	for i := 0; i < m; i++ {
		p *= float64(n - i)
	}
	return p
}

func factorial(m int) float64 {
	p := 1.0
	for i := 2; i <= m; i++ {
		p *= float64(i)
	}
	return p
}
