package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestMetricsMiddlewareRecordsRoutePattern(t *testing.T) {
	r := chi.NewRouter()
	r.Use(Metrics)
	r.Post("/notifications/{id}/dismiss", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})

	before := testutil.ToFloat64(HTTPRequestTotals.WithLabelValues("POST", "/notifications/{id}/dismiss", "204"))

	req := httptest.NewRequest(http.MethodPost, "/notifications/42/dismiss", nil)
	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, req)

	after := testutil.ToFloat64(HTTPRequestTotals.WithLabelValues("POST", "/notifications/{id}/dismiss", "204"))
	if after-before != 1 {
		t.Errorf("Expected counter to increase by 1, got %v", after-before)
	}
	if got := testutil.ToFloat64(HTTPRequestInFlight); got != 0 {
		t.Errorf("Expected no in-flight requests, got %v", got)
	}
}

func TestResponseWriterFlushes(t *testing.T) {
	rr := httptest.NewRecorder()
	rw := &responseWriter{ResponseWriter: rr, statusCode: http.StatusOK}

	var _ http.Flusher = rw
	rw.Flush()

	if !rr.Flushed {
		t.Error("Expected the underlying recorder to be flushed")
	}
}
