package metrics

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	once sync.Once

	TrainingLatency = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "fingenius",
			Subsystem: "training",
			Name:      "duration_seconds",
			Help:      "Duration of model training runs",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"model"},
	)

	TrainingRuns = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "fingenius",
			Subsystem: "training",
			Name:      "runs_total",
			Help:      "Model training runs by outcome (trained, skipped, error)",
		},
		[]string{"model", "outcome"},
	)

	ModelVersion = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: "fingenius",
			Subsystem: "training",
			Name:      "model_version",
			Help:      "Latest persisted version per shared model",
		},
		[]string{"model"},
	)
)

func Register() {
	once.Do(func() {
		prometheus.MustRegister(TrainingLatency, TrainingRuns, ModelVersion)
	})
}

// ObserveTraining records one run. Register must have been called for the
// values to be exported.
func ObserveTraining(model, outcome string, d time.Duration) {
	TrainingLatency.WithLabelValues(model).Observe(d.Seconds())
	TrainingRuns.WithLabelValues(model, outcome).Inc()
}
