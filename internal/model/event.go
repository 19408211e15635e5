// Package model defines domain entities for the application.
package model

import "time"

// RedemptionEvent records the provenance of a redemption attempt for
// the async event log. Events are advisory; the transactional
// aggregates on campaign and user rows are the source of truth.
type RedemptionEvent struct {
	ID      string `json:"id"`       // ULID (time-sortable)
	EventID string `json:"event_id"` // Idempotency key

	CampaignID string `json:"campaign_id"`
	CodeID     string `json:"code_id"`
	UniqueCode string `json:"unique_code"`

	// Outcome is "redeemed" or the failure kind ("code_already_used",
	// "campaign_expired", ...).
	Outcome string `json:"outcome"`

	// Request provenance.
	RedemptionURL string `json:"redemption_url,omitempty"` // truncated to 500 chars
	Source        string `json:"source,omitempty"`
	Device        string `json:"device,omitempty"`
	UserAgent     string `json:"user_agent,omitempty"` // truncated to 500 chars

	// Privacy-safe requester identification: SHA256(IP+UA+daily salt)[0:16].
	VisitorHash string `json:"visitor_hash"`

	OccurredAt time.Time `json:"occurred_at"`
	CreatedAt  time.Time `json:"created_at"`
}

// Redemption event outcomes.
const (
	EventOutcomeRedeemed         = "redeemed"
	EventOutcomeCampaignNotFound = "campaign_not_found"
	EventOutcomeCampaignInactive = "campaign_inactive"
	EventOutcomeCampaignExpired  = "campaign_expired"
	EventOutcomeCodeNotFound     = "code_not_found"
	EventOutcomeCodeMismatch     = "code_campaign_mismatch"
	EventOutcomeCodeAlreadyUsed  = "code_already_used"
	EventOutcomeCodeExpired      = "code_expired"
	EventOutcomeLimitReached     = "redemption_limit_reached"
	EventOutcomeInternalError    = "internal_error"
)
