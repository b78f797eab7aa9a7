package services

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"cryptogram/internal/models"
)

// Metrics holds the bot's custom Prometheus metrics. HTTP-level metrics
// come from the fiberprometheus middleware; these cover the posting core.
type Metrics struct {
	PostCycles       *prometheus.CounterVec
	PostCycleLatency prometheus.Histogram
	FeedErrors       prometheus.Counter
}

var (
	metricsInstance *Metrics
	metricsOnce     sync.Once
)

// InitMetrics registers the posting-core metrics. Safe to call more than
// once; the same instance is returned.
func InitMetrics() *Metrics {
	metricsOnce.Do(func() {
		metricsInstance = &Metrics{
			PostCycles: promauto.NewCounterVec(prometheus.CounterOpts{
				Name: "cryptogram_post_cycles_total",
				Help: "Posting cycles by outcome (success or the failed stage)",
			}, []string{"outcome"}),

			PostCycleLatency: promauto.NewHistogram(prometheus.HistogramOpts{
				Name:    "cryptogram_post_cycle_duration_seconds",
				Help:    "End-to-end posting cycle latency in seconds",
				Buckets: []float64{0.5, 1, 2, 5, 10, 30, 60, 120},
			}),

			FeedErrors: promauto.NewCounter(prometheus.CounterOpts{
				Name: "cryptogram_price_feed_errors_total",
				Help: "Price feed fetches that returned an error",
			}),
		}
	})
	return metricsInstance
}

// ObserveCycle records one finished posting cycle.
func (m *Metrics) ObserveCycle(result *models.PostCycleResult, elapsed time.Duration) {
	outcome := "success"
	if !result.Success {
		outcome = result.Stage
		if outcome == "" {
			outcome = "unknown"
		}
	}
	m.PostCycles.WithLabelValues(outcome).Inc()
	m.PostCycleLatency.Observe(elapsed.Seconds())
	if result.Stage == models.StageMarketData {
		m.FeedErrors.Inc()
	}
}
