// Package metrics exposes prometheus counters for the map/reduce stages.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	log "github.com/sirupsen/logrus"
)

var (
	// RecordsTotal counts input lines by app and parse outcome.
	RecordsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "tripcount",
			Name:      "records_total",
			Help:      "Input lines seen by the map stage, by outcome",
		},
		[]string{"app", "outcome"},
	)

	// PairsTotal counts (key, count) pairs crossing each stage boundary.
	PairsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "tripcount",
			Name:      "pairs_total",
			Help:      "Key/count pairs produced per stage",
		},
		[]string{"stage"},
	)

	// TaskDuration observes map and reduce task latency.
	TaskDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "tripcount",
			Name:      "task_duration_seconds",
			Help:      "Duration of map and reduce tasks",
			Buckets:   prometheus.ExponentialBuckets(0.005, 2, 14),
		},
		[]string{"phase"},
	)

	// WorkerSetupFailures counts workers that could not load their side input.
	WorkerSetupFailures = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: "tripcount",
			Name:      "worker_setup_failures_total",
			Help:      "Workers aborted during setup",
		},
	)
)

// Stage names for PairsTotal.
const (
	StageMap     = "map"
	StageCombine = "combine"
	StageReduce  = "reduce"
)

// ObserveTask records the duration of a task started at start.
func ObserveTask(phase string, start time.Time) {
	TaskDuration.WithLabelValues(phase).Observe(time.Since(start).Seconds())
}

// Handler routes /metrics to the default registry.
func Handler() http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	return mux
}

// Serve exposes /metrics on addr in the background.
func Serve(addr string) *http.Server {
	srv := &http.Server{Addr: addr, Handler: Handler()}
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Errorf("[Metrics] serve %s: %v", addr, err)
		}
	}()
	log.Infof("[Metrics] Listening on %s", addr)
	return srv
}
