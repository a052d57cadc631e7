package metrics

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestObserveTask(t *testing.T) {
	ObserveTask("map", time.Now().Add(-10*time.Millisecond))
	if n := testutil.CollectAndCount(TaskDuration); n < 1 {
		t.Fatalf("expected at least one histogram series, got %d", n)
	}
}

func TestPairsTotal(t *testing.T) {
	before := testutil.ToFloat64(PairsTotal.WithLabelValues(StageCombine))
	PairsTotal.WithLabelValues(StageCombine).Add(3)
	if got := testutil.ToFloat64(PairsTotal.WithLabelValues(StageCombine)) - before; got != 3 {
		t.Fatalf("expected +3, got %v", got)
	}
}

func TestHandler(t *testing.T) {
	WorkerSetupFailures.Inc()
	rec := httptest.NewRecorder()
	Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "tripcount_worker_setup_failures_total") {
		t.Fatalf("metrics endpoint does not expose tripcount metrics")
	}
}
