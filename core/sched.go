package core

import (
	"math"

	"gonum.org/v1/gonum/floats"
)

// schedBlockSize is the width of one partial-sum block. Selection walks
// block sums first and only descends into one block, keeping the weighted
// draw sub-linear in the number of processes.
const schedBlockSize = 64

// rebuildInterval bounds floating-point drift in the incrementally
// maintained sums: after this many incremental updates the block sums and
// grand total are recomputed from the cached rates.
const rebuildInterval = 1 << 20

// Scheduler holds the cached propensity of every kinetic process and a
// blocked partial-sum structure over them. SELECT walks the sums; APPLY
// pushes recomputed rates back through Update so only the processes named
// by the dependency graph are touched.
type Scheduler struct {
	kprocs []KProc

	rates     []float64
	blockSums []float64
	total     float64

	updates int
}

func newScheduler(kprocs []KProc) *Scheduler {
	nblocks := (len(kprocs) + schedBlockSize - 1) / schedBlockSize
	s := &Scheduler{
		kprocs:    kprocs,
		rates:     make([]float64, len(kprocs)),
		blockSums: make([]float64, nblocks),
	}
	return s
}

// Reset recomputes every cached propensity from its process and rebuilds
// the sums from scratch.
func (s *Scheduler) Reset() error {
	for i, k := range s.kprocs {
		r := k.Rate()
		if math.IsNaN(r) || r < 0 {
			return invariantErrorf("process %d computed invalid propensity %g", i, r)
		}
		s.rates[i] = r
	}
	s.rebuild()
	return nil
}

// Update replaces the cached propensity of one process and adjusts the
// affected block sum and the grand total incrementally.
func (s *Scheduler) Update(idx SchedIDX, rate float64) error {
	if math.IsNaN(rate) || rate < 0 {
		return invariantErrorf("process %d computed invalid propensity %g", idx, rate)
	}
	old := s.rates[idx]
	s.rates[idx] = rate
	s.blockSums[int(idx)/schedBlockSize] += rate - old
	s.total += rate - old

	s.updates++
	if s.updates >= rebuildInterval {
		s.rebuild()
	}
	return nil
}

// Total returns the current total propensity. Zero means quiescence.
func (s *Scheduler) Total() float64 { return s.total }

// Rate returns the cached propensity of one process.
func (s *Scheduler) Rate(idx SchedIDX) float64 { return s.rates[idx] }

// Select performs the propensity-weighted draw: the scaled selector is
// matched against cumulative sums, and the first process whose running sum
// reaches it wins. The boundary is inclusive on the accumulating side,
// the same rule the geometry-weighted picks use. Returns false when the
// system is quiescent.
func (s *Scheduler) Select(rand01 float64) (SchedIDX, bool) {
	if s.total <= 0 {
		return 0, false
	}
	selector := rand01 * s.total

	accum := 0.0
	block := -1
	for b, bs := range s.blockSums {
		// A zero-sum block can never hold the winner; matching one on
		// a selector of exactly zero would strand the in-block walk.
		if bs > 0 && selector <= accum+bs {
			block = b
			break
		}
		accum += bs
	}
	if block < 0 {
		// Selector overshot the last partial sum; clamp to the last
		// block that holds any propensity.
		for b := len(s.blockSums) - 1; b >= 0; b-- {
			if s.blockSums[b] > 0 {
				block = b
				break
			}
		}
		if block < 0 {
			return 0, false
		}
		accum = s.total - s.blockSums[block]
		selector = accum + s.blockSums[block]
	}

	lo := block * schedBlockSize
	hi := lo + schedBlockSize
	if hi > len(s.rates) {
		hi = len(s.rates)
	}
	last := -1
	for i := lo; i < hi; i++ {
		if s.rates[i] == 0 {
			continue
		}
		last = i
		accum += s.rates[i]
		if selector <= accum {
			return SchedIDX(i), true
		}
	}
	if last >= 0 {
		return SchedIDX(last), true
	}
	return 0, false
}

// rebuild recomputes block sums and the grand total from the cached rates.
func (s *Scheduler) rebuild() {
	for b := range s.blockSums {
		lo := b * schedBlockSize
		hi := lo + schedBlockSize
		if hi > len(s.rates) {
			hi = len(s.rates)
		}
		s.blockSums[b] = floats.Sum(s.rates[lo:hi])
	}
	s.total = floats.Sum(s.blockSums)
	s.updates = 0
}
