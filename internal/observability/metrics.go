package observability

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Pipeline stages timed by the dispatch loop.
const (
	StageInterpret  = "interpret"
	StageExecute    = "execute"
	StageGenerate   = "generate"
	StageCycleTotal = "cycle_total"
)

// Metrics groups all Prometheus instruments used by the service.
type Metrics struct {
	ActiveSessions  prometheus.Gauge
	SessionEvents   *prometheus.CounterVec
	IntentsMatched  *prometheus.CounterVec
	Rejections      *prometheus.CounterVec
	Outcomes        *prometheus.CounterVec
	GeneratorErrors *prometheus.CounterVec
	WSMessages      *prometheus.CounterVec
	StageLatency    *prometheus.HistogramVec
	MatchConfidence prometheus.Histogram

	stages *stageWindow
}

// NewMetrics registers the instruments with reg, or the default registry
// when reg is nil.
func NewMetrics(namespace string, reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	f := promauto.With(reg)
	return &Metrics{
		ActiveSessions: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "active_sessions",
			Help:      "Number of active command sessions.",
		}),
		SessionEvents: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "session_events_total",
			Help:      "Session events by type.",
		}, []string{"event"}),
		IntentsMatched: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "intents_matched_total",
			Help:      "Interpreted utterances by matched intent.",
		}, []string{"intent"}),
		Rejections: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "command_rejections_total",
			Help:      "Commands that did not execute, by error kind.",
		}, []string{"kind"}),
		Outcomes: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "dispatch_outcomes_total",
			Help:      "Dispatch cycle outcomes.",
		}, []string{"outcome"}),
		GeneratorErrors: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "generator_errors_total",
			Help:      "Content generator failures by reason.",
		}, []string{"reason"}),
		WSMessages: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "ws_messages_total",
			Help:      "WebSocket messages by direction and type.",
		}, []string{"direction", "type"}),
		StageLatency: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "stage_latency_ms",
			Help:      "Dispatch stage latency in milliseconds.",
			Buckets:   []float64{0.5, 1, 2, 5, 10, 25, 50, 100, 250, 500, 1000, 2500, 5000},
		}, []string{"stage"}),
		MatchConfidence: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "match_confidence",
			Help:      "Confidence of the best intent match.",
			Buckets:   prometheus.LinearBuckets(0.1, 0.1, 10),
		}),
		stages: newStageWindow(256),
	}
}

// ObserveStage records a stage duration in the histogram and rolling window.
func (m *Metrics) ObserveStage(stage string, d time.Duration) {
	if m == nil {
		return
	}
	ms := float64(d.Microseconds()) / 1000
	m.StageLatency.WithLabelValues(stage).Observe(ms)
	m.stages.Observe(stage, ms)
}

func (m *Metrics) ObserveIndicator(name string) {
	if m == nil {
		return
	}
	m.stages.ObserveIndicator(name)
}

func (m *Metrics) ObserveMatch(intent string, confidence float64) {
	if m == nil {
		return
	}
	m.IntentsMatched.WithLabelValues(intent).Inc()
	m.MatchConfidence.Observe(confidence)
}

func (m *Metrics) ObserveOutcome(outcome, errorKind string) {
	if m == nil {
		return
	}
	m.Outcomes.WithLabelValues(outcome).Inc()
	if errorKind != "" {
		m.Rejections.WithLabelValues(errorKind).Inc()
	}
}

func (m *Metrics) ObserveGeneratorError(reason string) {
	if m == nil {
		return
	}
	m.GeneratorErrors.WithLabelValues(reason).Inc()
}

func (m *Metrics) SessionEvent(event string) {
	if m == nil {
		return
	}
	m.SessionEvents.WithLabelValues(event).Inc()
}

func (m *Metrics) SnapshotStages() StageSnapshot {
	if m == nil {
		return StageSnapshot{GeneratedAt: time.Now().UTC()}
	}
	return m.stages.Snapshot()
}

func (m *Metrics) ResetStages() {
	if m == nil {
		return
	}
	m.stages.Reset()
}

func MetricsHandler() http.Handler {
	return promhttp.Handler()
}

// HandlerFor serves the metrics gathered by g.
func HandlerFor(g prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(g, promhttp.HandlerOpts{})
}
