// Package model defines domain entities for the application.
package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// CampaignStatus represents the computed status of a campaign.
type CampaignStatus string

const (
	CampaignStatusActive   CampaignStatus = "active"
	CampaignStatusInactive CampaignStatus = "inactive"
	CampaignStatusExpired  CampaignStatus = "expired"
	CampaignStatusDeleted  CampaignStatus = "deleted"
)

// Campaign represents a promotional campaign owning a pool of
// redemption codes.
type Campaign struct {
	ID                   string          `json:"id"`
	Name                 string          `json:"name"`
	Description          string          `json:"description,omitempty"`
	RedemptionValue      decimal.Decimal `json:"redemption_value"`
	Active               bool            `json:"active"`
	MaxRedemptions       *int64          `json:"max_redemptions,omitempty"`
	CurrentRedemptions   int64           `json:"current_redemptions"`
	TotalRedemptionValue decimal.Decimal `json:"total_redemption_value"`
	CodePrefix           string          `json:"code_prefix,omitempty"`
	ExpiresAt            *time.Time      `json:"expires_at,omitempty"`
	DeletedAt            *time.Time      `json:"-"`
	CreatedAt            time.Time       `json:"created_at"`
	UpdatedAt            time.Time       `json:"updated_at"`
}

// Status computes the current status of the campaign.
func (c *Campaign) Status() CampaignStatus {
	if c.DeletedAt != nil {
		return CampaignStatusDeleted
	}
	if !c.Active {
		return CampaignStatusInactive
	}
	if c.IsExpired(time.Now()) {
		return CampaignStatusExpired
	}
	return CampaignStatusActive
}

// IsExpired reports whether the campaign has passed its expiry.
// The expiry instant itself is still valid.
func (c *Campaign) IsExpired(now time.Time) bool {
	return c.ExpiresAt != nil && now.After(*c.ExpiresAt)
}

// AtRedemptionLimit reports whether the redemption cap is reached.
// Campaigns without a cap never hit the limit.
func (c *Campaign) AtRedemptionLimit() bool {
	return c.MaxRedemptions != nil && c.CurrentRedemptions >= *c.MaxRedemptions
}
