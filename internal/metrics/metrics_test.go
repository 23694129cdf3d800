package metrics

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func TestMetricsExposure(t *testing.T) {
	PipelineRuns.WithLabelValues("train").Inc()
	PipelineErrors.WithLabelValues("score").Inc()
	EmbeddingBatches.Inc()
	PredictionsWritten.Add(3)
	CollectorFetches.WithLabelValues("food").Inc()
	ObserveRun("train", time.Now().Add(-1500*time.Millisecond))

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rec := httptest.NewRecorder()
	promhttp.Handler().ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("metrics status: %d", rec.Code)
	}
	body := rec.Body.String()
	for _, m := range []string{
		"foodtrend_pipeline_runs_total",
		"foodtrend_pipeline_errors_total",
		"foodtrend_pipeline_duration_seconds",
		"foodtrend_embedding_batches_total",
		"foodtrend_predictions_written_total",
		"foodtrend_collector_fetches_total",
	} {
		if !strings.Contains(body, m) {
			t.Fatalf("expected metric %s in body", m)
		}
	}
}
