package orchestrator

import (
	"fmt"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics turns progress events into Prometheus series. Observe is safe for
// concurrent use and can be registered directly as an onProgress callback.
type Metrics struct {
	runs     prometheus.Counter
	sections *prometheus.CounterVec
	retries  prometheus.Counter
	duration *prometheus.HistogramVec

	mu      sync.Mutex
	started map[string]ProgressEvent
}

// NewMetrics creates the collectors and registers them with reg. A nil reg
// leaves them unregistered.
func NewMetrics(reg prometheus.Registerer) (*Metrics, error) {
	m := &Metrics{
		runs: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "memoforge_runs_total",
			Help: "Total number of completed document runs",
		}),
		sections: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "memoforge_sections_total",
				Help: "Total number of generated sections by outcome",
			},
			[]string{"outcome"},
		),
		retries: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "memoforge_section_retries_total",
			Help: "Total number of section generation retries",
		}),
		duration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "memoforge_section_duration_seconds",
				Help:    "Wall time from section start to terminal state",
				Buckets: prometheus.ExponentialBuckets(0.5, 2, 10),
			},
			[]string{"outcome"},
		),
		started: make(map[string]ProgressEvent),
	}
	if reg != nil {
		for _, c := range []prometheus.Collector{m.runs, m.sections, m.retries, m.duration} {
			if err := reg.Register(c); err != nil {
				return nil, fmt.Errorf("register metrics: %w", err)
			}
		}
	}
	return m, nil
}

// Observe records one event.
func (m *Metrics) Observe(ev ProgressEvent) {
	key := ev.RunID + "\x00" + ev.Section
	switch ev.Kind {
	case EventSectionStarted:
		m.mu.Lock()
		m.started[key] = ev
		m.mu.Unlock()
	case EventSectionRetried:
		m.retries.Inc()
	case EventSectionSucceeded, EventSectionFailed:
		outcome := "succeeded"
		if ev.Kind == EventSectionFailed {
			outcome = "failed"
		}
		m.sections.WithLabelValues(outcome).Inc()

		m.mu.Lock()
		start, ok := m.started[key]
		delete(m.started, key)
		m.mu.Unlock()
		if ok && !ev.At.IsZero() && !start.At.IsZero() {
			m.duration.WithLabelValues(outcome).Observe(ev.At.Sub(start.At).Seconds())
		}
	case EventRunCompleted:
		m.runs.Inc()
	}
}

// Consume observes every event from ch until it is closed.
func (m *Metrics) Consume(ch <-chan ProgressEvent) {
	for ev := range ch {
		m.Observe(ev)
	}
}
