package observability

import (
	"fmt"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// SolverCollector bundles Prometheus metrics for the exact solver loop. It
// satisfies the core package's Recorder interface so the state can drive
// the gauges directly from its step loop.
type SolverCollector struct {
	gatherer prometheus.Gatherer

	EventsApplied   prometheus.Counter
	TotalPropensity prometheus.Gauge
	SimTime         prometheus.Gauge
	StepDurations   prometheus.Histogram
}

// NewSolverCollector registers solver Prometheus metrics against the
// provided registerer, defaulting to the global Prometheus registry when
// nil.
func NewSolverCollector(reg prometheus.Registerer) (*SolverCollector, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	gatherer := prometheus.DefaultGatherer
	if g, ok := reg.(prometheus.Gatherer); ok {
		gatherer = g
	}

	events, err := registerCounter(reg, prometheus.NewCounter(prometheus.CounterOpts{
		Name: "solver_events_applied_total",
		Help: "Cumulative number of elementary kinetic events applied.",
	}), "solver_events_applied_total")
	if err != nil {
		return nil, err
	}

	propensity, err := registerGauge(reg, prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "solver_total_propensity",
		Help: "Current total propensity across all kinetic processes. Zero means quiescence.",
	}), "solver_total_propensity")
	if err != nil {
		return nil, err
	}

	simTime, err := registerGauge(reg, prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "solver_sim_time_seconds",
		Help: "Current simulation clock.",
	}), "solver_sim_time_seconds")
	if err != nil {
		return nil, err
	}

	steps, err := registerHistogram(reg, prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "solver_step_duration_seconds",
		Help:    "Wall-clock duration of one SELECT/APPLY cycle.",
		Buckets: []float64{1e-7, 1e-6, 1e-5, 1e-4, 1e-3, 1e-2, 0.1, 1},
	}), "solver_step_duration_seconds")
	if err != nil {
		return nil, err
	}

	return &SolverCollector{
		gatherer:        gatherer,
		EventsApplied:   events,
		TotalPropensity: propensity,
		SimTime:         simTime,
		StepDurations:   steps,
	}, nil
}

// EventApplied satisfies core.Recorder.
func (c *SolverCollector) EventApplied(totalRate float64) {
	if c == nil {
		return
	}
	c.EventsApplied.Inc()
	c.TotalPropensity.Set(totalRate)
}

// ClockAdvanced satisfies core.Recorder.
func (c *SolverCollector) ClockAdvanced(simTime float64) {
	if c == nil {
		return
	}
	c.SimTime.Set(simTime)
}

// StepDuration satisfies core.Recorder.
func (c *SolverCollector) StepDuration(seconds float64) {
	if c == nil {
		return
	}
	c.StepDurations.Observe(seconds)
}

// Handler exposes a ready-to-use /metrics handler.
func (c *SolverCollector) Handler() http.Handler {
	gatherer := c.gatherer
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}

// Gatherer returns the Prometheus gatherer associated with the collector.
func (c *SolverCollector) Gatherer() prometheus.Gatherer {
	if c == nil {
		return nil
	}
	return c.gatherer
}

func registerCounter(reg prometheus.Registerer, counter prometheus.Counter, name string) (prometheus.Counter, error) {
	if err := reg.Register(counter); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(prometheus.Counter); ok {
				return existing, nil
			}
			return nil, fmt.Errorf("collector %s already registered with incompatible type", name)
		}
		return nil, err
	}
	return counter, nil
}

func registerGauge(reg prometheus.Registerer, gauge prometheus.Gauge, name string) (prometheus.Gauge, error) {
	if err := reg.Register(gauge); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(prometheus.Gauge); ok {
				return existing, nil
			}
			return nil, fmt.Errorf("collector %s already registered with incompatible type", name)
		}
		return nil, err
	}
	return gauge, nil
}

func registerGaugeVec(reg prometheus.Registerer, vec *prometheus.GaugeVec, name string) (*prometheus.GaugeVec, error) {
	if err := reg.Register(vec); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(*prometheus.GaugeVec); ok {
				return existing, nil
			}
			return nil, fmt.Errorf("collector %s already registered with incompatible type", name)
		}
		return nil, err
	}
	return vec, nil
}

func registerHistogram(reg prometheus.Registerer, hist prometheus.Histogram, name string) (prometheus.Histogram, error) {
	if err := reg.Register(hist); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(prometheus.Histogram); ok {
				return existing, nil
			}
			return nil, fmt.Errorf("collector %s already registered with incompatible type", name)
		}
		return nil, err
	}
	return hist, nil
}
