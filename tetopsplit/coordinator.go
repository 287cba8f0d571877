package tetopsplit

import (
	"context"
	"errors"
	"math"
	"sync"
	"time"

	"github.com/WeiliangChenOIST/FORK-STEPS/core"
	"github.com/WeiliangChenOIST/FORK-STEPS/internal/logging"
	"github.com/WeiliangChenOIST/FORK-STEPS/internal/observability"
	"github.com/WeiliangChenOIST/FORK-STEPS/model"
	"github.com/WeiliangChenOIST/FORK-STEPS/rng"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// DefaultSyncInterval is the default simulated-time width of one sync
// round. The interval bounds the staleness of cross-boundary information:
// smaller tracks the exact process more closely, larger amortizes the
// rendezvous cost over more local events.
const DefaultSyncInterval = 1e-4

// Config carries cluster construction options.
type Config struct {
	// Interval is the sim-time width of one sync round; zero selects
	// DefaultSyncInterval.
	Interval float64
	// Seeds holds one RNG seed per worker; zero-length derives seeds
	// from the base seed.
	Seeds []uint64
	// BaseSeed is used when Seeds is empty.
	BaseSeed uint64
	// RecvTimeout bounds the wait at the rendezvous; zero selects 30s.
	RecvTimeout time.Duration

	Logger    logging.Logger
	Collector *observability.SyncCollector
}

// Coordinator owns the workers of one distributed run and drives their
// sync rounds. Strict global event ordering is deliberately relaxed:
// events are causally consistent up to the sync interval, and the
// reported global clock is the minimum across workers' local clocks.
type Coordinator struct {
	part     Partition
	workers  []*Worker
	interval float64

	log       logging.Logger
	collector *observability.SyncCollector
	tracer    trace.Tracer

	round  uint64
	global float64
}

// NewCluster partitions the mesh across workers, builds one local solver
// state per worker with ghost elements along the cuts, and wires the
// in-process transport between them.
func NewCluster(def *model.Statedef, mesh Mesh, part Partition, cfg Config) (*Coordinator, error) {
	if err := part.Validate(len(mesh.Vols)); err != nil {
		return nil, err
	}
	if cfg.Interval == 0 {
		cfg.Interval = DefaultSyncInterval
	}
	if cfg.Interval < 0 {
		return nil, errors.New("tetopsplit: sync interval must be positive")
	}
	if cfg.RecvTimeout == 0 {
		cfg.RecvTimeout = 30 * time.Second
	}
	if cfg.Logger == nil {
		cfg.Logger = logging.Noop()
	}

	tr := NewChanTransport(part.NWorkers, cfg.RecvTimeout)
	workers := make([]*Worker, part.NWorkers)
	comps := make([]*core.Comp, part.NWorkers)
	for wid := range workers {
		seed := cfg.BaseSeed + uint64(wid)*0x9e37
		if len(cfg.Seeds) > wid {
			seed = cfg.Seeds[wid]
		}
		st, err := core.NewState(def, rng.NewStd(seed))
		if err != nil {
			return nil, err
		}
		st.SetLogger(cfg.Logger.With(logging.Int("worker", wid)))
		comp, err := st.AddComp(mesh.Comp)
		if err != nil {
			return nil, err
		}
		comps[wid] = comp
		workers[wid] = &Worker{
			id:         wid,
			st:         st,
			tr:         tr,
			owned:      make(map[int]*core.Tet),
			ghosts:     make(map[int]*core.Tet),
			ghostPeer:  make(map[int]int),
			peerGhosts: make(map[int][]int),
			exports:    make(map[int][]int),
			mirrors:    make(map[int][]int),
		}
	}

	for k, vol := range mesh.Vols {
		w := workers[part.Owner(k)]
		t, err := w.st.AddTet(comps[w.id], vol)
		if err != nil {
			return nil, err
		}
		w.owned[k] = t
	}

	for _, conn := range mesh.Conns {
		wa, wb := part.Owner(conn.A), part.Owner(conn.B)
		if wa == wb {
			w := workers[wa]
			if err := w.st.ConnectTets(w.owned[conn.A], w.owned[conn.B], conn.ScaleAB, conn.ScaleBA); err != nil {
				return nil, err
			}
			continue
		}
		if err := wireBoundary(workers[wa], comps[wa], conn.A, conn.B, wb, mesh.Vols[conn.B], conn.ScaleAB); err != nil {
			return nil, err
		}
		if err := wireBoundary(workers[wb], comps[wb], conn.B, conn.A, wa, mesh.Vols[conn.A], conn.ScaleBA); err != nil {
			return nil, err
		}
	}

	for _, w := range workers {
		if err := w.st.Setup(); err != nil {
			return nil, err
		}
	}

	return &Coordinator{
		part:      part,
		workers:   workers,
		interval:  cfg.Interval,
		log:       cfg.Logger,
		collector: cfg.Collector,
		tracer:    otel.Tracer("tetopsplit"),
	}, nil
}

// wireBoundary gives worker w a ghost for remote element rElem and a
// directional hop from its owned element oElem into it.
func wireBoundary(w *Worker, comp *core.Comp, oElem, rElem, owner int, rVol, scale float64) error {
	ghost := w.ghosts[rElem]
	if ghost == nil {
		var err error
		ghost, err = w.st.AddGhostTet(comp, rVol)
		if err != nil {
			return err
		}
		w.ghosts[rElem] = ghost
		w.ghostPeer[rElem] = owner
		w.peerGhosts[owner] = appendUniqueSorted(w.peerGhosts[owner], rElem)
	}
	if err := w.st.ConnectTets(w.owned[oElem], ghost, scale, 0); err != nil {
		return err
	}
	w.exports[owner] = appendUniqueSorted(w.exports[owner], oElem)
	w.addPeer(owner)
	return nil
}

// Workers returns the cluster's workers in rank order.
func (c *Coordinator) Workers() []*Worker { return c.workers }

// GlobalTime returns the globally reported clock: the minimum across
// workers' local clocks.
func (c *Coordinator) GlobalTime() float64 {
	t := math.Inf(1)
	for _, w := range c.workers {
		if wt := w.Clock(); wt < t {
			t = wt
		}
	}
	if math.IsInf(t, 1) {
		return 0
	}
	return t
}

// SetTetCount routes an external count mutation to the owning worker.
func (c *Coordinator) SetTetCount(gElem, gidx, n int) error {
	w := c.workers[c.part.Owner(gElem)]
	return w.st.SetTetCount(w.owned[gElem], gidx, n)
}

// TetCount reads a count from the owning worker.
func (c *Coordinator) TetCount(gElem, gidx int) int {
	w := c.workers[c.part.Owner(gElem)]
	return w.owned[gElem].Count(gidx)
}

// TotalCount sums a species over every owned element of every worker.
// Between rounds ghosts are empty, so the sum is exact.
func (c *Coordinator) TotalCount(gidx int) int {
	n := 0
	for _, w := range c.workers {
		for _, t := range w.owned {
			n += t.Count(gidx)
		}
	}
	return n
}

// RunUntil drives sync rounds until the global clock reaches endTime.
// Each round: all workers advance to the horizon, exchange arrival deltas,
// refresh boundary mirrors, and the coordinator verifies every mirror
// against its owner. Any protocol or mirror mismatch aborts the run.
func (c *Coordinator) RunUntil(ctx context.Context, endTime float64) error {
	for c.global < endTime {
		horizon := c.global + c.interval
		if horizon > endTime {
			horizon = endTime
		}
		if err := c.runRound(ctx, horizon); err != nil {
			return err
		}
		c.global = c.GlobalTime()
	}
	return nil
}

func (c *Coordinator) runRound(ctx context.Context, horizon float64) error {
	round := c.round
	ctx, span := c.tracer.Start(ctx, "tetopsplit.sync_round",
		trace.WithAttributes(
			attribute.Int64("round", int64(round)),
			attribute.Float64("horizon", horizon),
		))
	defer span.End()

	if err := c.forAllWorkers(func(w *Worker) error {
		if err := w.AdvanceTo(horizon); err != nil {
			return err
		}
		c.collector.SetWorkerClock(w.id, w.Clock())
		return nil
	}); err != nil {
		return err
	}

	barrierStart := time.Now()
	deltas := make([]int, len(c.workers))
	if err := c.forAllWorkers(func(w *Worker) error {
		n, err := w.ExchangeDeltas(round, horizon)
		deltas[w.id] = n
		return err
	}); err != nil {
		return err
	}
	if err := c.forAllWorkers(func(w *Worker) error {
		return w.ExchangeMirrors(round, horizon)
	}); err != nil {
		return err
	}
	c.collector.BarrierWaited(time.Since(barrierStart).Seconds())

	if err := c.verifyMirrors(); err != nil {
		return err
	}

	total := 0
	for _, n := range deltas {
		total += n
	}
	c.collector.RoundCompleted(total)
	c.round++

	c.log.Debug(ctx, "sync round complete",
		logging.Any("round", round),
		logging.Any("horizon", horizon),
		logging.Int("deltas", total),
	)
	return nil
}

// verifyMirrors cross-checks every worker's boundary mirrors against the
// owner's authoritative counts. A mismatch means the synchronization
// protocol broke an invariant, which is fatal.
func (c *Coordinator) verifyMirrors() error {
	for _, w := range c.workers {
		for gElem, counts := range w.mirrors {
			owner := c.workers[c.part.Owner(gElem)]
			t := owner.owned[gElem]
			if t == nil {
				return desyncErrorf("worker %d mirrors element %d which has no owner", w.id, gElem)
			}
			for gidx, n := range counts {
				if have := t.Count(gidx); have != n {
					return desyncErrorf("worker %d mirror of element %d species %d is %d, owner %d has %d",
						w.id, gElem, gidx, n, owner.id, have)
				}
			}
		}
	}
	return nil
}

// forAllWorkers runs f concurrently across workers and joins their
// errors. Worker internals stay single-threaded; only distinct workers
// run in parallel.
func (c *Coordinator) forAllWorkers(f func(w *Worker) error) error {
	var wg sync.WaitGroup
	errs := make([]error, len(c.workers))
	for i, w := range c.workers {
		wg.Add(1)
		go func(i int, w *Worker) {
			defer wg.Done()
			errs[i] = f(w)
		}(i, w)
	}
	wg.Wait()
	return errors.Join(errs...)
}
