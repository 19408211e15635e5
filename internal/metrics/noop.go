package metrics

import "time"

// NoopRecorder implements Recorder with no-op methods.
type NoopRecorder struct{}

// NewNoop returns a Recorder that discards all metrics.
func NewNoop() Recorder {
	return &NoopRecorder{}
}

// IncRedemptionSuccess is a no-op.
func (n *NoopRecorder) IncRedemptionSuccess() {}

// IncRedemptionFailure is a no-op.
func (n *NoopRecorder) IncRedemptionFailure(kind string) {}

// ObserveRedemptionDuration is a no-op.
func (n *NoopRecorder) ObserveRedemptionDuration(duration time.Duration) {}

// IncCampaignCacheHit is a no-op.
func (n *NoopRecorder) IncCampaignCacheHit() {}

// IncCampaignCacheMiss is a no-op.
func (n *NoopRecorder) IncCampaignCacheMiss() {}

// IncCodesGenerated is a no-op.
func (n *NoopRecorder) IncCodesGenerated(count int) {}

// IncBatchRetried is a no-op.
func (n *NoopRecorder) IncBatchRetried() {}

// IncEventPublished is a no-op.
func (n *NoopRecorder) IncEventPublished(status string) {}

// IncEventProcessed is a no-op.
func (n *NoopRecorder) IncEventProcessed(status string) {}

// ObserveEventBatchSize is a no-op.
func (n *NoopRecorder) ObserveEventBatchSize(size int) {}

// SetEventQueueDepth is a no-op.
func (n *NoopRecorder) SetEventQueueDepth(depth int64) {}
