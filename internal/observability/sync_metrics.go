package observability

import (
	"net/http"
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// SyncCollector exposes Prometheus metrics for the distributed
// coordination layer: one time series set per coordinator.
type SyncCollector struct {
	gatherer prometheus.Gatherer

	RoundsTotal     prometheus.Counter
	DeltasExchanged prometheus.Counter
	BarrierWait     prometheus.Histogram
	WorkerClock     *prometheus.GaugeVec
}

// NewSyncCollector registers distributed-sync metrics against the provided
// registerer.
func NewSyncCollector(reg prometheus.Registerer) (*SyncCollector, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	gatherer := prometheus.DefaultGatherer
	if g, ok := reg.(prometheus.Gatherer); ok {
		gatherer = g
	}

	rounds, err := registerCounter(reg, prometheus.NewCounter(prometheus.CounterOpts{
		Name: "tetopsplit_sync_rounds_total",
		Help: "Cumulative number of completed boundary synchronization rounds.",
	}), "tetopsplit_sync_rounds_total")
	if err != nil {
		return nil, err
	}

	deltas, err := registerCounter(reg, prometheus.NewCounter(prometheus.CounterOpts{
		Name: "tetopsplit_boundary_deltas_total",
		Help: "Cumulative number of boundary count deltas exchanged between workers.",
	}), "tetopsplit_boundary_deltas_total")
	if err != nil {
		return nil, err
	}

	barrier, err := registerHistogram(reg, prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "tetopsplit_barrier_wait_seconds",
		Help:    "Wall-clock time workers spend waiting at the sync barrier each round.",
		Buckets: []float64{1e-6, 1e-5, 1e-4, 1e-3, 1e-2, 0.1, 1, 5},
	}), "tetopsplit_barrier_wait_seconds")
	if err != nil {
		return nil, err
	}

	clocks, err := registerGaugeVec(reg, prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "tetopsplit_worker_clock_seconds",
		Help: "Local simulation clock of each worker.",
	}, []string{"worker"}), "tetopsplit_worker_clock_seconds")
	if err != nil {
		return nil, err
	}

	return &SyncCollector{
		gatherer:        gatherer,
		RoundsTotal:     rounds,
		DeltasExchanged: deltas,
		BarrierWait:     barrier,
		WorkerClock:     clocks,
	}, nil
}

// Handler exposes a ready-to-use /metrics handler.
func (c *SyncCollector) Handler() http.Handler {
	gatherer := c.gatherer
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}

// RoundCompleted records one finished sync round and the number of deltas
// it moved.
func (c *SyncCollector) RoundCompleted(deltas int) {
	if c == nil {
		return
	}
	c.RoundsTotal.Inc()
	c.DeltasExchanged.Add(float64(deltas))
}

// BarrierWaited records how long one worker waited at the rendezvous.
func (c *SyncCollector) BarrierWaited(seconds float64) {
	if c == nil {
		return
	}
	c.BarrierWait.Observe(seconds)
}

// SetWorkerClock publishes a worker's local simulation clock.
func (c *SyncCollector) SetWorkerClock(worker int, simTime float64) {
	if c == nil {
		return
	}
	c.WorkerClock.WithLabelValues(strconv.Itoa(worker)).Set(simTime)
}
