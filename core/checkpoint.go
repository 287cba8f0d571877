package core

import (
	"context"
	"encoding/gob"
	"fmt"
	"io"

	"github.com/WeiliangChenOIST/FORK-STEPS/internal/logging"
	"github.com/WeiliangChenOIST/FORK-STEPS/rng"
)

// checkpointData is the serialized form of all mutable run state. The
// scheduler's partial sums are deliberately absent: they are rebuilt from
// the restored counts, which keeps the format decoupled from the selection
// structure.
type checkpointData struct {
	Time  float64
	Steps uint64

	TetCounts  [][]int
	TetClamped [][]bool
	TriCounts  [][]int
	TriClamped [][]bool

	Active []bool
	ReacK  map[int]float64

	RNG []byte
}

// Checkpoint serializes the full mutable state — counts, clamps, clock,
// per-process overrides, and the random stream position — as an opaque
// byte stream. The random source must be checkpointable or resumption
// cannot be exact.
func (s *State) Checkpoint(w io.Writer) error {
	if !s.setup {
		return configErrorf("setup has not run")
	}
	cp, ok := s.rng.(rng.Checkpointable)
	if !ok {
		return configErrorf("random source %T does not support checkpointing", s.rng)
	}
	snap, err := cp.Snapshot()
	if err != nil {
		return fmt.Errorf("snapshot rng: %w", err)
	}

	data := checkpointData{
		Time:   s.time,
		Steps:  s.nsteps,
		Active: make([]bool, len(s.kprocs)),
		ReacK:  make(map[int]float64),
		RNG:    snap,
	}
	for _, t := range s.tets {
		data.TetCounts = append(data.TetCounts, append([]int(nil), t.counts...))
		data.TetClamped = append(data.TetClamped, append([]bool(nil), t.clamped...))
	}
	for _, t := range s.tris {
		data.TriCounts = append(data.TriCounts, append([]int(nil), t.counts...))
		data.TriClamped = append(data.TriClamped, append([]bool(nil), t.clamped...))
	}
	for i, k := range s.kprocs {
		data.Active[i] = k.Active()
		switch r := k.(type) {
		case *Reac:
			data.ReacK[i] = r.kcst
		case *SReac:
			data.ReacK[i] = r.kcst
		}
	}

	if err := gob.NewEncoder(w).Encode(&data); err != nil {
		return fmt.Errorf("encode checkpoint: %w", err)
	}
	s.log.Info(context.Background(), "checkpoint written",
		logging.Any("time", s.time),
		logging.Any("steps", s.nsteps),
	)
	return nil
}

// Restore loads a checkpoint into a state built over identical geometry
// and model definition, then rebuilds propensities and scheduler sums from
// the restored counts. After a restore the state produces the identical
// event sequence the checkpointed run would have produced.
func (s *State) Restore(r io.Reader) error {
	if !s.setup {
		return configErrorf("setup has not run")
	}
	cp, ok := s.rng.(rng.Checkpointable)
	if !ok {
		return configErrorf("random source %T does not support checkpointing", s.rng)
	}

	var data checkpointData
	if err := gob.NewDecoder(r).Decode(&data); err != nil {
		return fmt.Errorf("decode checkpoint: %w", err)
	}
	if len(data.TetCounts) != len(s.tets) || len(data.TriCounts) != len(s.tris) {
		return configErrorf("checkpoint geometry mismatch: %d/%d elements, state has %d/%d",
			len(data.TetCounts), len(data.TriCounts), len(s.tets), len(s.tris))
	}
	if len(data.Active) != len(s.kprocs) {
		return configErrorf("checkpoint process count mismatch: %d, state has %d",
			len(data.Active), len(s.kprocs))
	}

	if err := cp.Restore(data.RNG); err != nil {
		return fmt.Errorf("restore rng: %w", err)
	}
	s.time = data.Time
	s.nsteps = data.Steps
	for i, t := range s.tets {
		copy(t.counts, data.TetCounts[i])
		copy(t.clamped, data.TetClamped[i])
	}
	for i, t := range s.tris {
		copy(t.counts, data.TriCounts[i])
		copy(t.clamped, data.TriClamped[i])
	}
	for i, k := range s.kprocs {
		k.SetActive(data.Active[i])
		if kcst, have := data.ReacK[i]; have {
			switch r := k.(type) {
			case *Reac:
				r.SetKcst(kcst)
			case *SReac:
				r.SetKcst(kcst)
			}
		}
	}

	if err := s.sched.Reset(); err != nil {
		return err
	}
	s.log.Info(context.Background(), "checkpoint restored",
		logging.Any("time", s.time),
		logging.Any("steps", s.nsteps),
	)
	return nil
}
