package handler

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/redeemly/redeemly/internal/metrics"
)

func TestMetricsHandler_ExpositionFormat(t *testing.T) {
	recorder := metrics.NewInMemory()
	recorder.IncRedemptionSuccess()
	recorder.IncRedemptionSuccess()
	recorder.IncRedemptionFailure("code_already_used")
	recorder.ObserveRedemptionDuration(50 * time.Millisecond)
	recorder.IncCodesGenerated(100)
	recorder.IncEventPublished("success")
	recorder.SetEventQueueDepth(7)

	h := NewMetricsHandler(recorder)

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rec := httptest.NewRecorder()
	h.Metrics(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); !strings.HasPrefix(ct, "text/plain") {
		t.Errorf("expected text/plain content type, got %s", ct)
	}

	body := rec.Body.String()
	for _, want := range []string{
		`redeemly_redemptions_total{status="success"} 2`,
		`redeemly_redemption_failures_total{outcome="code_already_used"} 1`,
		"redeemly_redemption_duration_seconds_count 1",
		"redeemly_codes_generated_total 100",
		`redeemly_events_published_total{status="success"} 1`,
		"redeemly_event_queue_depth 7",
	} {
		if !strings.Contains(body, want) {
			t.Errorf("expected body to contain %q, got:\n%s", want, body)
		}
	}
}

func TestMetricsHandler_NilSnapshotter(t *testing.T) {
	h := NewMetricsHandler(nil)

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rec := httptest.NewRecorder()
	h.Metrics(rec, req)

	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected status 503, got %d", rec.Code)
	}
}
