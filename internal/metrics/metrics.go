package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Collector holds the Prometheus metrics for clustering runs. Each collector
// owns its registry, so tests can create as many as they like.
type Collector struct {
	registry *prometheus.Registry

	Runs        *prometheus.CounterVec
	Sweeps      prometheus.Histogram
	Swaps       prometheus.Counter
	Evaluations prometheus.Counter
	Duration    prometheus.Histogram
}

func NewCollector(namespace string) *Collector {
	c := &Collector{
		registry: prometheus.NewRegistry(),
		Runs: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "runs_total",
				Help:      "Clustering runs by outcome",
			},
			[]string{"outcome"},
		),
		Sweeps: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "sweeps",
			Help:      "Sweeps needed per restart",
			Buckets:   prometheus.ExponentialBuckets(1, 2, 10),
		}),
		Swaps: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "swaps_total",
			Help:      "Medoid swaps applied",
		}),
		Evaluations: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "swap_evaluations_total",
			Help:      "Candidate swaps evaluated",
		}),
		Duration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "run_duration_seconds",
			Help:      "Wall time of a clustering run",
			Buckets:   prometheus.DefBuckets,
		}),
	}
	c.registry.MustRegister(c.Runs, c.Sweeps, c.Swaps, c.Evaluations, c.Duration)
	return c
}

// ObserveRestart records the work done by one restart.
func (c *Collector) ObserveRestart(sweeps, swaps, evaluations int) {
	c.Sweeps.Observe(float64(sweeps))
	c.Swaps.Add(float64(swaps))
	c.Evaluations.Add(float64(evaluations))
}

// ObserveRun records the outcome and duration of a whole run.
func (c *Collector) ObserveRun(outcome string, d time.Duration) {
	c.Runs.WithLabelValues(outcome).Inc()
	c.Duration.Observe(d.Seconds())
}

func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}

// Handler serves the collector's registry in the Prometheus text format.
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{})
}
