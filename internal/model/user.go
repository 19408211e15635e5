// Package model defines domain entities for the application.
package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// User represents a redeemer account. Balance and the two totals are
// denormalized aggregates maintained by the redemption transaction.
type User struct {
	ID                   string          `json:"id"`
	Email                string          `json:"email"`
	Balance              decimal.Decimal `json:"balance"`
	TotalRedemptions     int64           `json:"total_redemptions"`
	TotalRedemptionValue decimal.Decimal `json:"total_redemption_value"`
	Admin                bool            `json:"admin"`
	CreatedAt            time.Time       `json:"created_at"`
	UpdatedAt            time.Time       `json:"updated_at"`
}
