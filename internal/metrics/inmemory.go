package metrics

import (
	"sync"
	"sync/atomic"
	"time"
)

// Snapshot captures current in-memory counters.
type Snapshot struct {
	RedemptionSuccesses       uint64            `json:"redemption_successes"`
	RedemptionFailures        map[string]uint64 `json:"redemption_failures,omitempty"`
	RedemptionDurationCount   uint64            `json:"redemption_duration_count"`
	RedemptionDurationTotalNs int64             `json:"redemption_duration_total_ns"`
	CampaignCacheHits         uint64            `json:"campaign_cache_hits"`
	CampaignCacheMisses       uint64            `json:"campaign_cache_misses"`
	CodesGenerated            uint64            `json:"codes_generated"`
	BatchesRetried            uint64            `json:"batches_retried"`
	EventsPublished           uint64            `json:"events_published"`
	EventsDropped             uint64            `json:"events_dropped"`
	EventsProcessed           uint64            `json:"events_processed"`
	EventsProcessedFailed     uint64            `json:"events_processed_failed"`
	EventBatches              uint64            `json:"event_batches"`
	EventQueueDepth           int64             `json:"event_queue_depth"`
}

// InMemoryRecorder stores metrics in memory, for tests and the ops
// snapshot endpoint.
type InMemoryRecorder struct {
	redemptionSuccesses       uint64
	redemptionDurationCount   uint64
	redemptionDurationTotalNs int64
	campaignCacheHits         uint64
	campaignCacheMisses       uint64
	codesGenerated            uint64
	batchesRetried            uint64
	eventsPublished           uint64
	eventsDropped             uint64
	eventsProcessed           uint64
	eventsProcessedFailed     uint64
	eventBatches              uint64
	eventQueueDepth           int64

	mu       sync.Mutex
	failures map[string]uint64
}

// NewInMemory returns a Recorder that stores counters in memory.
func NewInMemory() *InMemoryRecorder {
	return &InMemoryRecorder{failures: make(map[string]uint64)}
}

// Snapshot returns a copy of the counters.
func (m *InMemoryRecorder) Snapshot() Snapshot {
	m.mu.Lock()
	failures := make(map[string]uint64, len(m.failures))
	for kind, count := range m.failures {
		failures[kind] = count
	}
	m.mu.Unlock()

	return Snapshot{
		RedemptionSuccesses:       atomic.LoadUint64(&m.redemptionSuccesses),
		RedemptionFailures:        failures,
		RedemptionDurationCount:   atomic.LoadUint64(&m.redemptionDurationCount),
		RedemptionDurationTotalNs: atomic.LoadInt64(&m.redemptionDurationTotalNs),
		CampaignCacheHits:         atomic.LoadUint64(&m.campaignCacheHits),
		CampaignCacheMisses:       atomic.LoadUint64(&m.campaignCacheMisses),
		CodesGenerated:            atomic.LoadUint64(&m.codesGenerated),
		BatchesRetried:            atomic.LoadUint64(&m.batchesRetried),
		EventsPublished:           atomic.LoadUint64(&m.eventsPublished),
		EventsDropped:             atomic.LoadUint64(&m.eventsDropped),
		EventsProcessed:           atomic.LoadUint64(&m.eventsProcessed),
		EventsProcessedFailed:     atomic.LoadUint64(&m.eventsProcessedFailed),
		EventBatches:              atomic.LoadUint64(&m.eventBatches),
		EventQueueDepth:           atomic.LoadInt64(&m.eventQueueDepth),
	}
}

// IncRedemptionSuccess increments the success counter.
func (m *InMemoryRecorder) IncRedemptionSuccess() {
	atomic.AddUint64(&m.redemptionSuccesses, 1)
}

// IncRedemptionFailure increments the failure counter for a kind.
func (m *InMemoryRecorder) IncRedemptionFailure(kind string) {
	m.mu.Lock()
	m.failures[kind]++
	m.mu.Unlock()
}

// ObserveRedemptionDuration records redemption duration.
func (m *InMemoryRecorder) ObserveRedemptionDuration(duration time.Duration) {
	atomic.AddUint64(&m.redemptionDurationCount, 1)
	atomic.AddInt64(&m.redemptionDurationTotalNs, duration.Nanoseconds())
}

// IncCampaignCacheHit increments cache hit counter.
func (m *InMemoryRecorder) IncCampaignCacheHit() {
	atomic.AddUint64(&m.campaignCacheHits, 1)
}

// IncCampaignCacheMiss increments cache miss counter.
func (m *InMemoryRecorder) IncCampaignCacheMiss() {
	atomic.AddUint64(&m.campaignCacheMisses, 1)
}

// IncCodesGenerated adds to the generated-code counter.
func (m *InMemoryRecorder) IncCodesGenerated(count int) {
	atomic.AddUint64(&m.codesGenerated, uint64(count))
}

// IncBatchRetried increments the batch retry counter.
func (m *InMemoryRecorder) IncBatchRetried() {
	atomic.AddUint64(&m.batchesRetried, 1)
}

// IncEventPublished counts publishes by status.
func (m *InMemoryRecorder) IncEventPublished(status string) {
	if status == "dropped" {
		atomic.AddUint64(&m.eventsDropped, 1)
		return
	}
	atomic.AddUint64(&m.eventsPublished, 1)
}

// IncEventProcessed counts processed events by status.
func (m *InMemoryRecorder) IncEventProcessed(status string) {
	if status == "success" {
		atomic.AddUint64(&m.eventsProcessed, 1)
		return
	}
	atomic.AddUint64(&m.eventsProcessedFailed, 1)
}

// ObserveEventBatchSize counts batches; sizes are not histogrammed.
func (m *InMemoryRecorder) ObserveEventBatchSize(size int) {
	atomic.AddUint64(&m.eventBatches, 1)
}

// SetEventQueueDepth records the current queue depth.
func (m *InMemoryRecorder) SetEventQueueDepth(depth int64) {
	atomic.StoreInt64(&m.eventQueueDepth, depth)
}
