package service

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics exposes dispatch metrics.  A nil *Metrics records nothing.
type Metrics struct {
	gatherer prometheus.Gatherer

	DispatchDuration prometheus.Histogram
	DispatchErrors   prometheus.Counter
	ResultOps        *prometheus.CounterVec
	ScheduledActions prometheus.Gauge
}

// NewMetrics registers the metrics with the given registerer, or the
// default one.  Registering twice returns the existing collectors.
func NewMetrics(reg prometheus.Registerer) (*Metrics, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	gatherer := prometheus.DefaultGatherer
	if g, ok := reg.(prometheus.Gatherer); ok {
		gatherer = g
	}

	duration, err := register(reg, prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "charter_dispatch_duration_seconds",
		Help:    "Time spent running the kernel and applying its ops, per dispatch.",
		Buckets: []float64{0.0005, 0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 1},
	}), "charter_dispatch_duration_seconds")
	if err != nil {
		return nil, err
	}

	errs, err := register(reg, prometheus.NewCounter(prometheus.CounterOpts{
		Name: "charter_dispatch_errors_total",
		Help: "Dispatches aborted by an error.",
	}), "charter_dispatch_errors_total")
	if err != nil {
		return nil, err
	}

	ops, err := register(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "charter_result_ops_total",
		Help: "Result ops produced, by operation.",
	}, []string{"operation"}), "charter_result_ops_total")
	if err != nil {
		return nil, err
	}

	scheduled, err := register(reg, prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "charter_scheduled_actions",
		Help: "Scheduled actions waiting to run.",
	}), "charter_scheduled_actions")
	if err != nil {
		return nil, err
	}

	return &Metrics{
		gatherer:         gatherer,
		DispatchDuration: duration,
		DispatchErrors:   errs,
		ResultOps:        ops,
		ScheduledActions: scheduled,
	}, nil
}

// Gatherer returns the gatherer associated with the registerer.
func (m *Metrics) Gatherer() prometheus.Gatherer {
	if m == nil {
		return nil
	}
	return m.gatherer
}

func (m *Metrics) ObserveDispatch(d time.Duration) {
	if m == nil || m.DispatchDuration == nil {
		return
	}
	m.DispatchDuration.Observe(d.Seconds())
}

func (m *Metrics) IncErrors() {
	if m == nil || m.DispatchErrors == nil {
		return
	}
	m.DispatchErrors.Inc()
}

func (m *Metrics) CountOp(operation string) {
	if m == nil || m.ResultOps == nil {
		return
	}
	m.ResultOps.WithLabelValues(operation).Inc()
}

func (m *Metrics) SetScheduled(n int) {
	if m == nil || m.ScheduledActions == nil {
		return
	}
	m.ScheduledActions.Set(float64(n))
}

func register[C prometheus.Collector](reg prometheus.Registerer, c C, name string) (C, error) {
	if err := reg.Register(c); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(C); ok {
				return existing, nil
			}
			var zero C
			return zero, fmt.Errorf("collector %s already registered with incompatible type", name)
		}
		var zero C
		return zero, err
	}
	return c, nil
}
