package observability

import (
	"context"

	"github.com/aretw0/voyage/pkg/domain"
	"github.com/aretw0/voyage/pkg/tools"
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the Prometheus collectors of the conversation loop.
type Metrics struct {
	Steps        *prometheus.CounterVec
	StepDuration *prometheus.HistogramVec
	ToolCalls    *prometheus.CounterVec
	ToolDuration *prometheus.HistogramVec
	Pauses       prometheus.Counter
}

// NewMetrics creates the collectors and registers them with reg.
// A nil reg leaves them unregistered.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		Steps: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "voyage_steps_total",
				Help: "Total number of executed steps",
			},
			[]string{"phase", "next"},
		),
		StepDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "voyage_step_duration_seconds",
				Help:    "Duration of steps, model calls included",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"phase"},
		),
		ToolCalls: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "voyage_tool_calls_total",
				Help: "Total number of tool invocations",
			},
			[]string{"tool_name", "is_error"},
		),
		ToolDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name: "voyage_tool_duration_seconds",
				Help: "Duration of tool executions",
			},
			[]string{"tool_name"},
		),
		Pauses: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "voyage_approval_pauses_total",
			Help: "Total number of sessions paused before the email step",
		}),
	}
	if reg != nil {
		reg.MustRegister(m.Steps, m.StepDuration, m.ToolCalls, m.ToolDuration, m.Pauses)
	}
	return m
}

// Hooks returns lifecycle hooks recording into the collectors.
func (m *Metrics) Hooks() domain.LifecycleHooks {
	return domain.LifecycleHooks{
		OnStepLeave: func(_ context.Context, e *domain.StepEvent) {
			m.Steps.WithLabelValues(string(e.Phase), string(e.Next)).Inc()
			m.StepDuration.WithLabelValues(string(e.Phase)).Observe(e.Duration.Seconds())
		},
		OnToolReturn: func(_ context.Context, e *domain.ToolEvent) {
			isErr := "false"
			if e.IsError {
				isErr = "true"
			}
			// Names come from the model; unknown ones share a single label value.
			name := tools.ParseKind(e.ToolName).String()
			m.ToolCalls.WithLabelValues(name, isErr).Inc()
			m.ToolDuration.WithLabelValues(name).Observe(e.Duration.Seconds())
		},
		OnPause: func(context.Context, *domain.StepEvent) {
			m.Pauses.Inc()
		},
	}
}
