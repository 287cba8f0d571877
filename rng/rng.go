// Package rng abstracts the uniform random source consumed by the solver.
// The solver treats the generator as an opaque stream of uniform [0,1)
// values; any generator implementation can be plugged in.
package rng

import (
	"encoding/binary"
	"fmt"
	"math/rand/v2"
)

// Source is an opaque stream of uniform values in [0,1).
type Source interface {
	// Float64 returns the next uniform value in [0,1).
	Float64() float64
}

// Checkpointable is implemented by sources whose stream position can be
// serialized and later restored, which the solver needs for exact
// checkpoint/restore of a run.
type Checkpointable interface {
	Source
	// Snapshot captures the stream position.
	Snapshot() ([]byte, error)
	// Restore rewinds or advances the source to a previously captured
	// stream position.
	Restore(snap []byte) error
}

// StdSource wraps the standard library PCG generator and tracks the number
// of values drawn so that the stream position can be checkpointed.
type StdSource struct {
	seed  uint64
	drawn uint64
	r     *rand.Rand
}

// NewStd returns a seeded, checkpointable source.
func NewStd(seed uint64) *StdSource {
	return &StdSource{
		seed: seed,
		r:    rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15)),
	}
}

// Float64 implements Source.
func (s *StdSource) Float64() float64 {
	s.drawn++
	return s.r.Float64()
}

// Snapshot implements Checkpointable. The position is recorded as
// (seed, draws); Restore replays the stream, which is cheap for the
// event counts this solver deals in.
func (s *StdSource) Snapshot() ([]byte, error) {
	buf := make([]byte, 16)
	binary.LittleEndian.PutUint64(buf[0:8], s.seed)
	binary.LittleEndian.PutUint64(buf[8:16], s.drawn)
	return buf, nil
}

// Restore implements Checkpointable.
func (s *StdSource) Restore(snap []byte) error {
	if len(snap) != 16 {
		return fmt.Errorf("rng: snapshot must be 16 bytes, got %d", len(snap))
	}
	seed := binary.LittleEndian.Uint64(snap[0:8])
	drawn := binary.LittleEndian.Uint64(snap[8:16])

	s.seed = seed
	s.drawn = 0
	s.r = rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
	for i := uint64(0); i < drawn; i++ {
		s.Float64()
	}
	return nil
}
