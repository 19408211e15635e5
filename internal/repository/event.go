package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/redeemly/redeemly/internal/model"
)

// EventRepository provides database access for redemption events.
type EventRepository struct {
	repo *Repository
}

// NewEventRepository creates a new EventRepository.
func NewEventRepository(repo *Repository) *EventRepository {
	return &EventRepository{repo: repo}
}

// BulkInsert inserts multiple redemption events with idempotency via
// ON CONFLICT DO NOTHING on the event id.
func (r *EventRepository) BulkInsert(ctx context.Context, events []*model.RedemptionEvent) error {
	if len(events) == 0 {
		return nil
	}

	batch := &pgx.Batch{}

	query := `
		INSERT INTO redemption_events (
			id, event_id, campaign_id, code_id, unique_code, outcome,
			redemption_url, source, device, user_agent, visitor_hash, occurred_at, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, NOW())
		ON CONFLICT (event_id) DO NOTHING
	`

	for _, event := range events {
		batch.Queue(query,
			event.ID,
			event.EventID,
			event.CampaignID,
			nullableString(event.CodeID),
			nullableString(event.UniqueCode),
			event.Outcome,
			nullableString(event.RedemptionURL),
			nullableString(event.Source),
			nullableString(event.Device),
			nullableString(event.UserAgent),
			event.VisitorHash,
			event.OccurredAt,
		)
	}

	results := r.repo.pool.SendBatch(ctx, batch)
	defer results.Close()

	for i := 0; i < len(events); i++ {
		if _, err := results.Exec(); err != nil {
			return fmt.Errorf("batch insert event %d: %w", i, err)
		}
	}

	return nil
}

// OutcomeCount is one row of an outcome breakdown.
type OutcomeCount struct {
	Outcome string `json:"outcome"`
	Count   int64  `json:"count"`
}

// OutcomeBreakdown aggregates event outcomes for a campaign, for
// operator dashboards.
func (r *EventRepository) OutcomeBreakdown(ctx context.Context, campaignID string) ([]OutcomeCount, error) {
	query := `
		SELECT outcome, COUNT(*)
		FROM redemption_events
		WHERE campaign_id = $1
		GROUP BY outcome
		ORDER BY COUNT(*) DESC
	`

	rows, err := r.repo.pool.Query(ctx, query, campaignID)
	if err != nil {
		return nil, fmt.Errorf("failed to query outcome breakdown: %w", err)
	}
	defer rows.Close()

	var counts []OutcomeCount
	for rows.Next() {
		var c OutcomeCount
		if err := rows.Scan(&c.Outcome, &c.Count); err != nil {
			return nil, fmt.Errorf("failed to scan outcome count: %w", err)
		}
		counts = append(counts, c)
	}

	return counts, rows.Err()
}

// nullableString converts empty strings to nil for nullable columns.
func nullableString(s string) any {
	if s == "" {
		return nil
	}
	return s
}
