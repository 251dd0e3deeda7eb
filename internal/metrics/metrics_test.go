package metrics

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestMiddlewareUsesRoutePattern(t *testing.T) {
	router := chi.NewRouter()
	router.Use(Middleware("test"))
	router.Get("/api/sessions/{id}", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	})

	for _, id := range []string{"a", "b"} {
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/sessions/"+id, nil))
	}

	got := testutil.ToFloat64(httpRequests.With(prometheus.Labels{
		"service": "test",
		"method":  http.MethodGet,
		"path":    "/api/sessions/{id}",
		"status":  "418",
	}))
	if got != 2 {
		t.Fatalf("expected 2 requests recorded under the route pattern, got %v", got)
	}
}

func TestObserveHelpers(t *testing.T) {
	before := testutil.ToFloat64(aiCalls.WithLabelValues("stub", "evaluate", "success"))
	ObserveAICall("stub", "evaluate", "success", 10*time.Millisecond)
	if after := testutil.ToFloat64(aiCalls.WithLabelValues("stub", "evaluate", "success")); after != before+1 {
		t.Fatalf("expected ai call counter to increase, got %v -> %v", before, after)
	}

	ObserveJob("evaluate_answer", "acked", time.Second)
	if got := testutil.ToFloat64(jobsProcessed.WithLabelValues("evaluate_answer", "acked")); got < 1 {
		t.Fatalf("expected job counter to be recorded, got %v", got)
	}
}

func TestSetQueueDepth(t *testing.T) {
	SetQueueDepth(3, 1)
	if got := testutil.ToFloat64(queueDepth.WithLabelValues("pending")); got != 3 {
		t.Fatalf("expected pending depth 3, got %v", got)
	}
	if got := testutil.ToFloat64(queueDepth.WithLabelValues("processing")); got != 1 {
		t.Fatalf("expected processing depth 1, got %v", got)
	}
}

func TestHandlerServesMetrics(t *testing.T) {
	ObserveAICall("stub", "generate", "success", time.Millisecond)

	rec := httptest.NewRecorder()
	Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "interviewer_ai_calls_total") {
		t.Fatal("expected ai call metric in exposition")
	}
}
