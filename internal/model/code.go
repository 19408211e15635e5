package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// RedemptionCode represents a unique token redeemable exactly once
// against its owning campaign.
//
// Once Used is true the redeemer fields and RedeemedAt are set and
// never change again; the conditional update in the repository is the
// only writer of that transition.
type RedemptionCode struct {
	ID         string `json:"id"`
	CampaignID string `json:"campaign_id"`
	UniqueCode string `json:"unique_code"`

	// Value snapshot taken from the campaign at creation time, so
	// later campaign edits do not reprice issued codes.
	RedemptionValue decimal.Decimal `json:"redemption_value"`

	Used       bool       `json:"used"`
	UserID     *string    `json:"user_id,omitempty"`
	UserEmail  *string    `json:"user_email,omitempty"`
	RedeemedAt *time.Time `json:"redeemed_at,omitempty"`

	// Provenance metadata captured at redemption time.
	RedemptionURL *string `json:"redemption_url,omitempty"`
	Source        *string `json:"source,omitempty"`
	Device        *string `json:"device,omitempty"`

	ExpiresAt *time.Time `json:"expires_at,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
}

// IsExpired reports whether the code has passed its expiry. The
// expiry instant itself is still valid.
func (c *RedemptionCode) IsExpired(now time.Time) bool {
	return c.ExpiresAt != nil && now.After(*c.ExpiresAt)
}

// RedeemedBy returns a display value for who redeemed the code, for
// already-used messaging. Empty for unused codes.
func (c *RedemptionCode) RedeemedBy() string {
	if c.UserEmail != nil {
		return *c.UserEmail
	}
	if c.UserID != nil {
		return *c.UserID
	}
	return ""
}
