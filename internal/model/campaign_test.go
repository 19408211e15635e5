package model

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

func TestCampaignStatus(t *testing.T) {
	now := time.Now()
	past := now.Add(-time.Hour)
	future := now.Add(time.Hour)

	tests := []struct {
		name     string
		campaign Campaign
		want     CampaignStatus
	}{
		{"active_no_expiry", Campaign{Active: true}, CampaignStatusActive},
		{"active_future_expiry", Campaign{Active: true, ExpiresAt: &future}, CampaignStatusActive},
		{"inactive", Campaign{Active: false}, CampaignStatusInactive},
		{"expired", Campaign{Active: true, ExpiresAt: &past}, CampaignStatusExpired},
		{"deleted_wins", Campaign{Active: true, DeletedAt: &past}, CampaignStatusDeleted},
		{"inactive_wins_over_expired", Campaign{Active: false, ExpiresAt: &past}, CampaignStatusInactive},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			if got := test.campaign.Status(); got != test.want {
				t.Fatalf("Status() = %q, want %q", got, test.want)
			}
		})
	}
}

func TestCampaignExpiryInstantIsValid(t *testing.T) {
	at := time.Now()
	c := Campaign{Active: true, ExpiresAt: &at}

	if c.IsExpired(at) {
		t.Fatal("the expiry instant itself must still be valid")
	}
	if !c.IsExpired(at.Add(time.Nanosecond)) {
		t.Fatal("any instant after expiry must be expired")
	}
}

func TestCampaignAtRedemptionLimit(t *testing.T) {
	cap := int64(10)

	uncapped := Campaign{CurrentRedemptions: 1 << 40}
	if uncapped.AtRedemptionLimit() {
		t.Fatal("campaign without cap never hits the limit")
	}

	under := Campaign{MaxRedemptions: &cap, CurrentRedemptions: 9}
	if under.AtRedemptionLimit() {
		t.Fatal("9 of 10 is under the limit")
	}

	at := Campaign{MaxRedemptions: &cap, CurrentRedemptions: 10}
	if !at.AtRedemptionLimit() {
		t.Fatal("10 of 10 is at the limit")
	}
}

func TestRedemptionCodeExpiry(t *testing.T) {
	at := time.Now()
	code := RedemptionCode{ExpiresAt: &at, RedemptionValue: decimal.New(25, 0)}

	if code.IsExpired(at) {
		t.Fatal("the expiry instant itself must still be valid")
	}
	if !code.IsExpired(at.Add(time.Second)) {
		t.Fatal("past expiry must be expired")
	}

	forever := RedemptionCode{}
	if forever.IsExpired(at.Add(1000 * time.Hour)) {
		t.Fatal("code without expiry never expires")
	}
}

func TestRedemptionCodeRedeemedBy(t *testing.T) {
	email := "a@example.com"
	id := "user-1"

	if got := (&RedemptionCode{UserEmail: &email, UserID: &id}).RedeemedBy(); got != email {
		t.Fatalf("RedeemedBy() = %q, want email", got)
	}
	if got := (&RedemptionCode{UserID: &id}).RedeemedBy(); got != id {
		t.Fatalf("RedeemedBy() = %q, want user id", got)
	}
	if got := (&RedemptionCode{}).RedeemedBy(); got != "" {
		t.Fatalf("RedeemedBy() = %q, want empty", got)
	}
}
