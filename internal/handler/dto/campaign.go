// Package dto provides Data Transfer Objects for API requests and responses.
package dto

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/redeemly/redeemly/internal/model"
)

// CreateCampaignRequest represents the request body for creating a campaign.
type CreateCampaignRequest struct {
	Name            string          `json:"name"`
	Description     string          `json:"description,omitempty"`
	RedemptionValue decimal.Decimal `json:"redemption_value"`
	MaxRedemptions  *int64          `json:"max_redemptions,omitempty"`
	CodePrefix      string          `json:"code_prefix,omitempty"`
	ExpiresAt       *time.Time      `json:"expires_at,omitempty"`
}

// UpdateCampaignRequest represents the request body for updating a campaign.
// Absent fields are left unchanged.
type UpdateCampaignRequest struct {
	Name            *string          `json:"name,omitempty"`
	Description     *string          `json:"description,omitempty"`
	RedemptionValue *decimal.Decimal `json:"redemption_value,omitempty"`
	Active          *bool            `json:"active,omitempty"`
	MaxRedemptions  *int64           `json:"max_redemptions,omitempty"`
	ExpiresAt       *time.Time       `json:"expires_at,omitempty"`
}

// CampaignResponse represents a campaign in API responses.
type CampaignResponse struct {
	ID                   string          `json:"id"`
	Name                 string          `json:"name"`
	Description          string          `json:"description,omitempty"`
	RedemptionValue      decimal.Decimal `json:"redemption_value"`
	Status               string          `json:"status"`
	MaxRedemptions       *int64          `json:"max_redemptions,omitempty"`
	CurrentRedemptions   int64           `json:"current_redemptions"`
	TotalRedemptionValue decimal.Decimal `json:"total_redemption_value"`
	CodePrefix           string          `json:"code_prefix,omitempty"`
	ExpiresAt            *time.Time      `json:"expires_at,omitempty"`
	CreatedAt            time.Time       `json:"created_at"`
	UpdatedAt            time.Time       `json:"updated_at"`
}

// CampaignListResponse represents a paginated list of campaigns.
type CampaignListResponse struct {
	Data       []CampaignResponse `json:"data"`
	Pagination *Pagination        `json:"pagination"`
}

// Pagination provides cursor-based pagination info.
type Pagination struct {
	NextCursor string `json:"next_cursor,omitempty"`
	HasMore    bool   `json:"has_more"`
}

// ErrorResponse represents an API error.
type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

// CampaignStatsResponse aggregates counters for one campaign.
type CampaignStatsResponse struct {
	CampaignID           string           `json:"campaign_id"`
	TotalCodes           int64            `json:"total_codes"`
	UsedCodes            int64            `json:"used_codes"`
	RemainingCodes       int64            `json:"remaining_codes"`
	CurrentRedemptions   int64            `json:"current_redemptions"`
	TotalRedemptionValue decimal.Decimal  `json:"total_redemption_value"`
	Outcomes             map[string]int64 `json:"outcomes"`
}

// ToCampaignResponse converts a Campaign model to CampaignResponse DTO.
func ToCampaignResponse(campaign *model.Campaign) *CampaignResponse {
	return &CampaignResponse{
		ID:                   campaign.ID,
		Name:                 campaign.Name,
		Description:          campaign.Description,
		RedemptionValue:      campaign.RedemptionValue,
		Status:               string(campaign.Status()),
		MaxRedemptions:       campaign.MaxRedemptions,
		CurrentRedemptions:   campaign.CurrentRedemptions,
		TotalRedemptionValue: campaign.TotalRedemptionValue,
		CodePrefix:           campaign.CodePrefix,
		ExpiresAt:            campaign.ExpiresAt,
		CreatedAt:            campaign.CreatedAt,
		UpdatedAt:            campaign.UpdatedAt,
	}
}

// ToCampaignListResponse converts a slice of Campaign models to CampaignListResponse.
func ToCampaignListResponse(campaigns []*model.Campaign, nextCursor string, hasMore bool) *CampaignListResponse {
	responses := make([]CampaignResponse, len(campaigns))
	for i, campaign := range campaigns {
		responses[i] = *ToCampaignResponse(campaign)
	}
	return &CampaignListResponse{
		Data: responses,
		Pagination: &Pagination{
			NextCursor: nextCursor,
			HasMore:    hasMore,
		},
	}
}
