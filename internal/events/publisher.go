// Package events provides redemption event capture and processing.
package events

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/redeemly/redeemly/internal/metrics"
)

const (
	// StreamKey is the Redis stream for redemption events.
	StreamKey = "stream:redemption_events"

	// DeadLetterStreamKey is the Redis stream for poison messages.
	DeadLetterStreamKey = "stream:redemption_events:dlq"

	// MaxStreamLen is the approximate max length of the stream.
	MaxStreamLen = 100000

	// PublishTimeout is the max time to wait for Redis publish.
	PublishTimeout = 100 * time.Millisecond
)

// EventPayload is the compressed event format for the Redis stream.
type EventPayload struct {
	CampaignID    string `json:"cid"`
	CodeID        string `json:"coid,omitempty"` // empty when the code was never found
	UniqueCode    string `json:"uc"`
	Outcome       string `json:"o"`
	RedemptionURL string `json:"u,omitempty"`  // truncated
	Source        string `json:"s,omitempty"`
	Device        string `json:"d,omitempty"`
	UserAgent     string `json:"ua,omitempty"` // truncated
	VisitorHash   string `json:"vh"`
	OccurredAt    int64  `json:"t"` // Unix milliseconds
}

// Publisher enqueues redemption events to the Redis stream.
type Publisher struct {
	redis   *redis.Client
	logger  *slog.Logger
	metrics metrics.Recorder
}

// NewPublisher creates a new event publisher.
func NewPublisher(client *redis.Client, logger *slog.Logger, recorder metrics.Recorder) *Publisher {
	if recorder == nil {
		recorder = metrics.NewNoop()
	}
	return &Publisher{
		redis:   client,
		logger:  logger.With("component", "events.publisher"),
		metrics: recorder,
	}
}

// Publish adds a redemption event to the stream synchronously.
func (p *Publisher) Publish(ctx context.Context, event EventPayload) (string, error) {
	data, err := json.Marshal(event)
	if err != nil {
		return "", fmt.Errorf("marshal event: %w", err)
	}

	result, err := p.redis.XAdd(ctx, &redis.XAddArgs{
		Stream: StreamKey,
		MaxLen: MaxStreamLen,
		Approx: true, // ~MAXLEN for performance
		ID:     "*",  // Auto-generate ID
		Values: map[string]interface{}{
			"payload": string(data),
		},
	}).Result()

	if err != nil {
		return "", fmt.Errorf("xadd: %w", err)
	}

	return result, nil
}

// PublishAsync publishes without blocking the caller. The redemption
// response never waits on the event log; errors are logged and the
// event is dropped.
func (p *Publisher) PublishAsync(event EventPayload) {
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), PublishTimeout)
		defer cancel()

		streamID, err := p.Publish(ctx, event)
		if err != nil {
			p.logger.Warn("failed to publish redemption event",
				"campaign_id", event.CampaignID,
				"outcome", event.Outcome,
				"error", err,
			)
			p.metrics.IncEventPublished("dropped")
			return
		}

		p.logger.Debug("redemption event published",
			"campaign_id", event.CampaignID,
			"outcome", event.Outcome,
			"stream_id", streamID,
		)
		p.metrics.IncEventPublished("success")
	}()
}

// GenerateVisitorHash creates a privacy-safe requester identifier.
// Uses SHA256(IP + UserAgent + daily_salt) truncated to 16 hex chars.
func GenerateVisitorHash(ip, userAgent string, occurredAt time.Time) string {
	// Daily salt rotates at midnight UTC
	dailySalt := fmt.Sprintf("redeemly:%s", occurredAt.UTC().Format("2006-01-02"))

	data := ip + userAgent + dailySalt
	hash := sha256.Sum256([]byte(data))
	return hex.EncodeToString(hash[:])[:16]
}

// TruncateMeta truncates free-form request metadata to max 500 chars.
func TruncateMeta(s string) string {
	if len(s) > 500 {
		return s[:500]
	}
	return s
}
