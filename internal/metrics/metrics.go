package metrics

import (
	"net/http"
	"os"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	PipelineRuns = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "foodtrend_pipeline_runs_total",
		Help: "Total pipeline runs by kind (train, score, collect)",
	}, []string{"kind"})
	PipelineErrors = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "foodtrend_pipeline_errors_total",
		Help: "Total pipeline run errors by kind",
	}, []string{"kind"})
	PipelineDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "foodtrend_pipeline_duration_seconds",
		Help:    "Pipeline run duration seconds by kind",
		Buckets: prometheus.DefBuckets,
	}, []string{"kind"})
	EmbeddingBatches = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "foodtrend_embedding_batches_total",
		Help: "Total text embedding batches encoded",
	})
	PredictionsWritten = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "foodtrend_predictions_written_total",
		Help: "Total trend predictions persisted",
	})
	CollectorFetches = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "foodtrend_collector_fetches_total",
		Help: "Total subreddit listing fetches",
	}, []string{"subreddit"})
)

func init() {
	prometheus.MustRegister(PipelineRuns, PipelineErrors, PipelineDuration,
		EmbeddingBatches, PredictionsWritten, CollectorFetches)
}

// StartServer starts a metrics HTTP server on addr (e.g., ":9090").
func StartServer(addr string) {
	if addr == "" {
		addr = os.Getenv("METRICS_ADDR")
	}
	if addr == "" {
		return
	}
	http.Handle("/metrics", promhttp.Handler())
	http.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusOK) })
	go func() { _ = http.ListenAndServe(addr, nil) }()
}

// ObserveRun records one pipeline run duration for a kind.
func ObserveRun(kind string, start time.Time) {
	PipelineDuration.WithLabelValues(kind).Observe(time.Since(start).Seconds())
}
