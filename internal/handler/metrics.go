package handler

import (
	"fmt"
	"net/http"

	"github.com/redeemly/redeemly/internal/metrics"
)

// MetricsHandler exposes in-memory metrics.
type MetricsHandler struct {
	snapshotter metrics.Snapshotter
}

// NewMetricsHandler creates a new MetricsHandler.
func NewMetricsHandler(snapshotter metrics.Snapshotter) *MetricsHandler {
	return &MetricsHandler{snapshotter: snapshotter}
}

// Metrics returns metrics in Prometheus exposition format.
func (h *MetricsHandler) Metrics(w http.ResponseWriter, r *http.Request) {
	if h.snapshotter == nil {
		w.WriteHeader(http.StatusServiceUnavailable)
		return
	}

	snap := h.snapshotter.Snapshot()

	w.Header().Set("Content-Type", "text/plain; version=0.0.4")

	writeMetric(w, "redeemly_redemptions_total{status=\"success\"} %d\n", snap.RedemptionSuccesses)
	for outcome, count := range snap.RedemptionFailures {
		writeMetric(w, "redeemly_redemption_failures_total{outcome=%q} %d\n", outcome, count)
	}
	writeMetric(w, "redeemly_redemption_duration_seconds_count %d\n", snap.RedemptionDurationCount)
	writeMetric(w, "redeemly_redemption_duration_seconds_sum %.6f\n", float64(snap.RedemptionDurationTotalNs)/1e9)

	writeMetric(w, "redeemly_campaign_cache_hits_total %d\n", snap.CampaignCacheHits)
	writeMetric(w, "redeemly_campaign_cache_misses_total %d\n", snap.CampaignCacheMisses)

	writeMetric(w, "redeemly_codes_generated_total %d\n", snap.CodesGenerated)
	writeMetric(w, "redeemly_code_batches_retried_total %d\n", snap.BatchesRetried)

	writeMetric(w, "redeemly_events_published_total{status=\"success\"} %d\n", snap.EventsPublished)
	writeMetric(w, "redeemly_events_published_total{status=\"dropped\"} %d\n", snap.EventsDropped)

	writeMetric(w, "redeemly_events_processed_total{status=\"success\"} %d\n", snap.EventsProcessed)
	writeMetric(w, "redeemly_events_processed_total{status=\"failed\"} %d\n", snap.EventsProcessedFailed)

	writeMetric(w, "redeemly_event_batches_total %d\n", snap.EventBatches)
	writeMetric(w, "redeemly_event_queue_depth %d\n", snap.EventQueueDepth)
}

func writeMetric(w http.ResponseWriter, format string, args ...any) {
	_, _ = fmt.Fprintf(w, format, args...)
}
