// Package events provides redemption event capture and processing.
package events

import (
	"fmt"

	"github.com/redeemly/redeemly/internal/model"
)

const (
	maxCampaignIDLength = 50
	maxCodeLength       = 32
	maxMetaLength       = 500
	visitorHashLength   = 16
)

// validOutcomes is the closed set of outcome names a payload may carry.
var validOutcomes = map[string]bool{
	model.EventOutcomeRedeemed:         true,
	model.EventOutcomeCampaignNotFound: true,
	model.EventOutcomeCampaignInactive: true,
	model.EventOutcomeCampaignExpired:  true,
	model.EventOutcomeCodeNotFound:     true,
	model.EventOutcomeCodeMismatch:     true,
	model.EventOutcomeCodeAlreadyUsed:  true,
	model.EventOutcomeCodeExpired:      true,
	model.EventOutcomeLimitReached:     true,
	model.EventOutcomeInternalError:    true,
}

// ValidateEventPayload validates redemption event payload fields.
func ValidateEventPayload(payload EventPayload) error {
	if payload.CampaignID == "" {
		return fmt.Errorf("campaign_id is required")
	}
	if len(payload.CampaignID) > maxCampaignIDLength {
		return fmt.Errorf("campaign_id too long")
	}
	if len(payload.UniqueCode) > maxCodeLength {
		return fmt.Errorf("unique_code too long")
	}
	if !validOutcomes[payload.Outcome] {
		return fmt.Errorf("unknown outcome %q", payload.Outcome)
	}
	if payload.VisitorHash == "" {
		return fmt.Errorf("visitor_hash is required")
	}
	if len(payload.VisitorHash) != visitorHashLength || !isHex(payload.VisitorHash) {
		return fmt.Errorf("visitor_hash must be %d hex chars", visitorHashLength)
	}
	if payload.OccurredAt <= 0 {
		return fmt.Errorf("occurred_at must be set")
	}
	if len(payload.RedemptionURL) > maxMetaLength {
		return fmt.Errorf("redemption_url too long")
	}
	if len(payload.UserAgent) > maxMetaLength {
		return fmt.Errorf("user_agent too long")
	}
	return nil
}

func isHex(value string) bool {
	for i := 0; i < len(value); i++ {
		ch := value[i]
		if (ch >= '0' && ch <= '9') || (ch >= 'a' && ch <= 'f') || (ch >= 'A' && ch <= 'F') {
			continue
		}
		return false
	}
	return true
}
