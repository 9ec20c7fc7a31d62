package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Recorder implements the domain Metrics interface using Prometheus.
type Recorder struct {
	pipelineRuns    *prometheus.CounterVec
	pipelineLatency prometheus.Histogram
	generatorTime   *prometheus.HistogramVec
	generatorErrors *prometheus.CounterVec
	approvals       *prometheus.CounterVec
	notifications   *prometheus.CounterVec
	providerLatency *prometheus.HistogramVec
	providerErrors  *prometheus.CounterVec
	errorsTotal     *prometheus.CounterVec
}

// New registers the recorder on the default registry.
func New() *Recorder {
	return NewWithRegisterer(prometheus.DefaultRegisterer)
}

// NewWithRegisterer registers the recorder on reg. Tests pass a fresh registry.
func NewWithRegisterer(reg prometheus.Registerer) *Recorder {
	f := promauto.With(reg)
	return &Recorder{
		pipelineRuns: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "fingenius_pipeline_runs_total",
				Help: "Automation pipeline runs by outcome",
			},
			[]string{"status"},
		),
		pipelineLatency: f.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "fingenius_pipeline_duration_seconds",
				Help:    "End-to-end pipeline duration per user",
				Buckets: prometheus.DefBuckets,
			},
		),
		generatorTime: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "fingenius_generator_duration_seconds",
				Help:    "Suggestion generator latency",
				Buckets: []float64{.0005, .001, .005, .01, .05, .1, .5, 1},
			},
			[]string{"generator"},
		),
		generatorErrors: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "fingenius_generator_errors_total",
				Help: "Suggestion generator failures",
			},
			[]string{"generator"},
		),
		approvals: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "fingenius_approvals_total",
				Help: "Approval attempts by result",
			},
			[]string{"result"},
		),
		notifications: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "fingenius_notifications_total",
				Help: "Notification deliveries by channel and result",
			},
			[]string{"channel", "result"},
		),
		providerLatency: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "fingenius_provider_call_duration_seconds",
				Help:    "Aggregation provider call latency",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"operation"},
		),
		providerErrors: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "fingenius_provider_errors_total",
				Help: "Aggregation provider call failures",
			},
			[]string{"operation"},
		),
		errorsTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "fingenius_errors_total",
				Help: "Total number of errors encountered",
			},
			[]string{"type"},
		),
	}
}

func (r *Recorder) RecordPipelineRun(status string, seconds float64) {
	r.pipelineRuns.WithLabelValues(status).Inc()
	r.pipelineLatency.Observe(seconds)
}

func (r *Recorder) RecordGenerator(name string, seconds float64, err error) {
	r.generatorTime.WithLabelValues(name).Observe(seconds)
	if err != nil {
		r.generatorErrors.WithLabelValues(name).Inc()
	}
}

func (r *Recorder) RecordApproval(result string) {
	r.approvals.WithLabelValues(result).Inc()
}

func (r *Recorder) RecordNotification(channel, result string) {
	r.notifications.WithLabelValues(channel, result).Inc()
}

func (r *Recorder) RecordProviderCall(op string, seconds float64, err error) {
	r.providerLatency.WithLabelValues(op).Observe(seconds)
	if err != nil {
		r.providerErrors.WithLabelValues(op).Inc()
	}
}

// RecordError records an error occurrence.
func (r *Recorder) RecordError(kind string) {
	r.errorsTotal.WithLabelValues(kind).Inc()
}

// Nop discards everything.
type Nop struct{}

func (Nop) RecordPipelineRun(string, float64)         {}
func (Nop) RecordGenerator(string, float64, error)    {}
func (Nop) RecordApproval(string)                     {}
func (Nop) RecordNotification(string, string)         {}
func (Nop) RecordProviderCall(string, float64, error) {}
func (Nop) RecordError(string)                        {}
