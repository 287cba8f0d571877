package tetopsplit

import "fmt"

// Partition assigns every global mesh element to exactly one worker. The
// assignment is an input to this layer — how it was produced (graph
// partitioner, striping, hand layout) is outside the solver's concern.
//
// EToW[k] is the worker owning global element k.
type Partition struct {
	NWorkers int
	EToW     []int
}

// Uniform returns a contiguous block partition of numElems elements over
// nWorkers workers, a convenient default for tests and demos.
func Uniform(numElems, nWorkers int) Partition {
	etow := make([]int, numElems)
	per := (numElems + nWorkers - 1) / nWorkers
	for k := range etow {
		w := k / per
		if w >= nWorkers {
			w = nWorkers - 1
		}
		etow[k] = w
	}
	return Partition{NWorkers: nWorkers, EToW: etow}
}

// Validate checks that the partition covers exactly numElems elements,
// references only existing workers, and leaves no worker implied but
// missing. Violations are configuration errors.
func (p Partition) Validate(numElems int) error {
	if p.NWorkers <= 0 {
		return fmt.Errorf("tetopsplit: partition needs at least one worker, got %d", p.NWorkers)
	}
	if len(p.EToW) != numElems {
		return fmt.Errorf("tetopsplit: partition covers %d elements, mesh has %d", len(p.EToW), numElems)
	}
	for k, w := range p.EToW {
		if w < 0 || w >= p.NWorkers {
			return fmt.Errorf("tetopsplit: element %d assigned to undefined worker %d", k, w)
		}
	}
	return nil
}

// Owner returns the worker owning global element k.
func (p Partition) Owner(k int) int { return p.EToW[k] }
