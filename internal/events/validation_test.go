package events

import (
	"testing"
	"time"

	"github.com/redeemly/redeemly/internal/model"
)

func TestValidateEventPayload(t *testing.T) {
	valid := EventPayload{
		CampaignID:  "summer_2026",
		CodeID:      "01JX5K",
		UniqueCode:  "ABCD1234",
		Outcome:     model.EventOutcomeRedeemed,
		VisitorHash: "0123456789abcdef",
		OccurredAt:  time.Now().UnixMilli(),
	}

	if err := ValidateEventPayload(valid); err != nil {
		t.Fatalf("expected valid payload, got %v", err)
	}

	cases := []struct {
		name    string
		payload EventPayload
	}{
		{"missing_campaign_id", EventPayload{Outcome: model.EventOutcomeRedeemed, VisitorHash: "0123456789abcdef", OccurredAt: 1}},
		{"unknown_outcome", EventPayload{CampaignID: "c", Outcome: "exploded", VisitorHash: "0123456789abcdef", OccurredAt: 1}},
		{"missing_visitor_hash", EventPayload{CampaignID: "c", Outcome: model.EventOutcomeRedeemed, OccurredAt: 1}},
		{"invalid_visitor_hash", EventPayload{CampaignID: "c", Outcome: model.EventOutcomeRedeemed, VisitorHash: "not-hex!", OccurredAt: 1}},
		{"missing_occurred_at", EventPayload{CampaignID: "c", Outcome: model.EventOutcomeRedeemed, VisitorHash: "0123456789abcdef"}},
	}

	for _, tc := range cases {
		if err := ValidateEventPayload(tc.payload); err == nil {
			t.Fatalf("expected error for %s", tc.name)
		}
	}
}

// Outcome names that a failed precondition maps to must all be
// publishable.
func TestValidOutcomesCoverFailureKinds(t *testing.T) {
	outcomes := []string{
		model.EventOutcomeRedeemed,
		model.EventOutcomeCampaignNotFound,
		model.EventOutcomeCampaignInactive,
		model.EventOutcomeCampaignExpired,
		model.EventOutcomeCodeNotFound,
		model.EventOutcomeCodeMismatch,
		model.EventOutcomeCodeAlreadyUsed,
		model.EventOutcomeCodeExpired,
		model.EventOutcomeLimitReached,
		model.EventOutcomeInternalError,
	}

	for _, outcome := range outcomes {
		if !validOutcomes[outcome] {
			t.Errorf("outcome %q not accepted by validation", outcome)
		}
	}
}
