package observability

import (
	"context"
	"errors"

	"github.com/aretw0/clarify/pkg/domain"
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "clarify"

// Step results used as the "result" label.
const (
	ResultOK    = "ok"
	ResultError = "error"
)

// Metrics holds the workflow collectors.
type Metrics struct {
	steps           *prometheus.CounterVec
	stepDuration    *prometheus.HistogramVec
	classifications *prometheus.CounterVec
	suspensions     prometheus.Counter
	completions     prometheus.Counter
}

// NewMetrics creates the collectors and registers them on reg.
// Registering twice on the same registry reuses the existing collectors.
func NewMetrics(reg prometheus.Registerer) (*Metrics, error) {
	if reg == nil {
		return nil, errors.New("observability: nil registerer")
	}
	m := &Metrics{
		steps: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "steps_total",
			Help:      "Workflow steps executed, by step and result.",
		}, []string{"step", "result"}),
		stepDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "step_duration_seconds",
			Help:      "Duration of workflow steps.",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.5, 1, 2.5, 5, 10, 30, 60},
		}, []string{"step"}),
		classifications: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "classifications_total",
			Help:      "User replies classified, by outcome.",
		}, []string{"outcome"}),
		suspensions: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "suspensions_total",
			Help:      "Times a session suspended waiting for the user.",
		}),
		completions: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "completions_total",
			Help:      "Sessions that produced a final result.",
		}),
	}

	m.steps = register(reg, m.steps)
	m.stepDuration = register(reg, m.stepDuration)
	m.classifications = register(reg, m.classifications)
	m.suspensions = register(reg, m.suspensions)
	m.completions = register(reg, m.completions)
	return m, nil
}

func register[C prometheus.Collector](reg prometheus.Registerer, c C) C {
	if err := reg.Register(c); err != nil {
		var are prometheus.AlreadyRegisteredError
		if errors.As(err, &are) {
			if existing, ok := are.ExistingCollector.(C); ok {
				return existing
			}
		}
	}
	return c
}

// Hooks returns lifecycle hooks feeding the collectors.
func (m *Metrics) Hooks() domain.LifecycleHooks {
	return domain.LifecycleHooks{
		OnStepLeave: func(_ context.Context, e *domain.StepEvent) {
			result := ResultOK
			if e.Err != nil {
				result = ResultError
			}
			step := string(e.Phase)
			m.steps.WithLabelValues(step, result).Inc()
			m.stepDuration.WithLabelValues(step).Observe(e.Duration.Seconds())
		},
		OnSuspend: func(context.Context, *domain.StepEvent) {
			m.suspensions.Inc()
		},
		OnComplete: func(context.Context, *domain.StepEvent) {
			m.completions.Inc()
		},
		OnClassified: func(_ context.Context, e *domain.ClassificationEvent) {
			m.classifications.WithLabelValues(string(e.Outcome)).Inc()
		},
	}
}

// Steps exposes clarify_steps_total.
func (m *Metrics) Steps() *prometheus.CounterVec { return m.steps }

// Classifications exposes clarify_classifications_total.
func (m *Metrics) Classifications() *prometheus.CounterVec { return m.classifications }

func (m *Metrics) Suspensions() prometheus.Counter { return m.suspensions }

func (m *Metrics) Completions() prometheus.Counter { return m.completions }
