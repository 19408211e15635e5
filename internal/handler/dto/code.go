package dto

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/redeemly/redeemly/internal/model"
)

// CreateCodeBatchRequest represents the request body for bulk code creation.
type CreateCodeBatchRequest struct {
	Quantity  int        `json:"quantity"`
	Preset    string     `json:"preset,omitempty"`
	ExpiresAt *time.Time `json:"expires_at,omitempty"`
}

// CodeResponse represents a redemption code in API responses.
type CodeResponse struct {
	ID              string          `json:"id"`
	CampaignID      string          `json:"campaign_id"`
	UniqueCode      string          `json:"unique_code"`
	RedemptionValue decimal.Decimal `json:"redemption_value"`
	Used            bool            `json:"used"`
	UserEmail       *string         `json:"user_email,omitempty"`
	RedeemedAt      *time.Time      `json:"redeemed_at,omitempty"`
	ExpiresAt       *time.Time      `json:"expires_at,omitempty"`
	CreatedAt       time.Time       `json:"created_at"`
}

// CodeBatchResponse represents the outcome of a bulk creation.
type CodeBatchResponse struct {
	CampaignID string         `json:"campaign_id"`
	Count      int            `json:"count"`
	Preset     string         `json:"preset"`
	Collisions int            `json:"generation_collisions"`
	Codes      []CodeResponse `json:"codes"`
}

// CodeListResponse represents a paginated list of codes.
type CodeListResponse struct {
	Data       []CodeResponse `json:"data"`
	Pagination *Pagination    `json:"pagination"`
}

// ToCodeResponse converts a RedemptionCode model to CodeResponse DTO.
func ToCodeResponse(code *model.RedemptionCode) *CodeResponse {
	return &CodeResponse{
		ID:              code.ID,
		CampaignID:      code.CampaignID,
		UniqueCode:      code.UniqueCode,
		RedemptionValue: code.RedemptionValue,
		Used:            code.Used,
		UserEmail:       code.UserEmail,
		RedeemedAt:      code.RedeemedAt,
		ExpiresAt:       code.ExpiresAt,
		CreatedAt:       code.CreatedAt,
	}
}

// ToCodeListResponse converts a slice of RedemptionCode models to CodeListResponse.
func ToCodeListResponse(codes []*model.RedemptionCode, nextCursor string, hasMore bool) *CodeListResponse {
	responses := make([]CodeResponse, len(codes))
	for i, code := range codes {
		responses[i] = *ToCodeResponse(code)
	}
	return &CodeListResponse{
		Data: responses,
		Pagination: &Pagination{
			NextCursor: nextCursor,
			HasMore:    hasMore,
		},
	}
}
