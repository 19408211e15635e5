package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

// Validation failures return before any repository call, so a nil
// repo is safe here.
func TestCreateCampaignValidation(t *testing.T) {
	yesterday := time.Now().Add(-24 * time.Hour)
	negative := int64(-1)
	zero := int64(0)

	tests := []struct {
		name    string
		input   CreateCampaignInput
		wantErr error
	}{
		{
			name:    "empty_name",
			input:   CreateCampaignInput{Name: "   ", RedemptionValue: value("10.00")},
			wantErr: ErrInvalidCampaignName,
		},
		{
			name:    "zero_value",
			input:   CreateCampaignInput{Name: "Promo", RedemptionValue: decimal.Zero},
			wantErr: ErrInvalidValue,
		},
		{
			name:    "negative_value",
			input:   CreateCampaignInput{Name: "Promo", RedemptionValue: value("-5.00")},
			wantErr: ErrInvalidValue,
		},
		{
			name:    "negative_max_redemptions",
			input:   CreateCampaignInput{Name: "Promo", RedemptionValue: value("10.00"), MaxRedemptions: &negative},
			wantErr: ErrInvalidMaxRedemption,
		},
		{
			name:    "zero_max_redemptions",
			input:   CreateCampaignInput{Name: "Promo", RedemptionValue: value("10.00"), MaxRedemptions: &zero},
			wantErr: ErrInvalidMaxRedemption,
		},
		{
			name:    "prefix_too_long",
			input:   CreateCampaignInput{Name: "Promo", RedemptionValue: value("10.00"), CodePrefix: "TOOLONGPREFIX"},
			wantErr: ErrInvalidPrefix,
		},
		{
			name:    "prefix_bad_characters",
			input:   CreateCampaignInput{Name: "Promo", RedemptionValue: value("10.00"), CodePrefix: "ab-c"},
			wantErr: ErrInvalidPrefix,
		},
		{
			name:    "expires_in_past",
			input:   CreateCampaignInput{Name: "Promo", RedemptionValue: value("10.00"), ExpiresAt: &yesterday},
			wantErr: ErrExpiresInPast,
		},
	}

	svc := NewCampaignService(nil, nil)
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			_, err := svc.CreateCampaign(context.Background(), test.input)
			if !errors.Is(err, test.wantErr) {
				t.Fatalf("got %v, want %v", err, test.wantErr)
			}
		})
	}
}
