package core

// DepGraph maps each (element, species) count to the set of kinetic
// processes whose propensity reads it. It is built once, after every
// process has been constructed, and is read-only afterwards. Completeness
// is a correctness requirement, not an optimization: a missing edge means
// a stale propensity that silently skews the statistics.
type DepGraph struct {
	deps map[depKey][]SchedIDX
}

func newDepGraph() *DepGraph {
	return &DepGraph{deps: make(map[depKey][]SchedIDX)}
}

func (g *DepGraph) register(key depKey, idx SchedIDX) {
	for _, have := range g.deps[key] {
		if have == idx {
			return
		}
	}
	g.deps[key] = append(g.deps[key], idx)
}

// Dependents returns the schedule indices of every process reading the
// count of species gidx in the given element.
func (g *DepGraph) Dependents(elem ElemID, gidx int) []SchedIDX {
	return g.deps[depKey{Elem: elem, Spec: gidx}]
}

// updVecFor assembles the cached update vector for one process: the union
// of dependent sets over every count the process mutates, deduplicated,
// including the process itself when self-dependent.
func (g *DepGraph) updVecFor(k KProc) []SchedIDX {
	seen := make(map[SchedIDX]bool)
	var upd []SchedIDX
	for _, key := range k.writeSet() {
		for _, idx := range g.deps[key] {
			if !seen[idx] {
				seen[idx] = true
				upd = append(upd, idx)
			}
		}
	}
	return upd
}
