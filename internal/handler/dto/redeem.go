package dto

import (
	"time"

	"github.com/shopspring/decimal"
)

// RedeemRequest represents the request body for a redemption attempt.
// Callers either pass campaign_id and code directly or pass the full
// landing URL and let the server extract the pair.
type RedeemRequest struct {
	CampaignID string `json:"campaign_id,omitempty"`
	Code       string `json:"code,omitempty"`
	URL        string `json:"url,omitempty"`
	Email      string `json:"email"`
	Source     string `json:"source,omitempty"`
	Device     string `json:"device,omitempty"`
}

// RedeemResponse is returned on a successful redemption.
type RedeemResponse struct {
	CodeID          string          `json:"code_id"`
	UniqueCode      string          `json:"unique_code"`
	RedemptionValue decimal.Decimal `json:"redemption_value"`
	RedeemedAt      time.Time       `json:"redeemed_at"`
	UserID          string          `json:"user_id"`
	NewBalance      decimal.Decimal `json:"new_balance"`
	CampaignName    string          `json:"campaign_name"`
}

// AlreadyUsedResponse carries prior-redemption context on a 409.
type AlreadyUsedResponse struct {
	Error      string    `json:"error"`
	Code       string    `json:"code"`
	RedeemedBy string    `json:"redeemed_by,omitempty"`
	RedeemedAt time.Time `json:"redeemed_at"`
}
