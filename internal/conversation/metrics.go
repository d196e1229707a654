package conversation

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type collectors struct {
	runs     *prometheus.CounterVec
	messages *prometheus.CounterVec
	skipped  *prometheus.CounterVec
	duration prometheus.Histogram
}

func newCollectors(reg prometheus.Registerer) *collectors {
	factory := promauto.With(reg)
	return &collectors{
		runs: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "converse",
			Name:      "runs_total",
			Help:      "Generation runs by outcome.",
		}, []string{"outcome"}),
		messages: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "converse",
			Name:      "messages_posted_total",
			Help:      "Messages posted by kind.",
		}, []string{"kind"}),
		skipped: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "converse",
			Name:      "items_skipped_total",
			Help:      "Generated posts and replies that were not posted, by reason.",
		}, []string{"kind", "reason"}),
		duration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: "converse",
			Name:      "run_duration_seconds",
			Help:      "Wall-clock duration of completed runs.",
			Buckets:   []float64{5, 15, 30, 60, 120, 300, 600, 1200},
		}),
	}
}
