// Package service provides business logic for the application.
package service

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/shopspring/decimal"

	"github.com/redeemly/redeemly/internal/metrics"
	"github.com/redeemly/redeemly/internal/model"
	"github.com/redeemly/redeemly/internal/repository"
)

// Redemption errors. Preconditions are checked in this order; the
// first failure short-circuits.
var (
	ErrCampaignNotFound       = errors.New("campaign not found")
	ErrCampaignInactive       = errors.New("campaign is inactive")
	ErrCampaignExpired        = errors.New("campaign is expired")
	ErrCodeNotFound           = errors.New("code not found")
	ErrCodeCampaignMismatch   = errors.New("code does not belong to campaign")
	ErrCodeAlreadyUsed        = errors.New("code already used")
	ErrCodeExpired            = errors.New("code is expired")
	ErrRedemptionLimitReached = errors.New("campaign redemption limit reached")
	ErrInvalidEmail           = errors.New("invalid redeemer email")
	ErrMissingInput           = errors.New("campaign id and code are required")
)

// AlreadyUsedError carries context about the prior redemption so the
// caller can tell the user who used the code and when. It matches
// ErrCodeAlreadyUsed under errors.Is.
type AlreadyUsedError struct {
	RedeemedAt time.Time
	RedeemedBy string
}

func (e *AlreadyUsedError) Error() string {
	return fmt.Sprintf("code already used by %s at %s", e.RedeemedBy, e.RedeemedAt.Format(time.RFC3339))
}

// Is makes the typed error match its sentinel.
func (e *AlreadyUsedError) Is(target error) bool {
	return target == ErrCodeAlreadyUsed
}

// RedemptionStore is the persistence surface the engine depends on.
// *repository.Repository satisfies it; tests use a fake.
type RedemptionStore interface {
	GetCampaignByID(ctx context.Context, id string) (*model.Campaign, error)
	GetCodeByValue(ctx context.Context, uniqueCode string) (*model.RedemptionCode, error)
	RedeemCode(ctx context.Context, params repository.RedeemParams) (*repository.RedeemRecord, error)
}

// RedemptionService is the sole authority for the unused-to-used code
// transition and its dependent aggregate updates.
type RedemptionService struct {
	store   RedemptionStore
	metrics metrics.Recorder
	now     func() time.Time
}

// NewRedemptionService creates a new RedemptionService.
func NewRedemptionService(store RedemptionStore, recorder metrics.Recorder) *RedemptionService {
	if recorder == nil {
		recorder = metrics.NewNoop()
	}
	return &RedemptionService{
		store:   store,
		metrics: recorder,
		now:     time.Now,
	}
}

// RedeemInput defines input for a redemption attempt.
type RedeemInput struct {
	CampaignID string
	Code       string
	Email      string

	// Provenance, all optional.
	RedemptionURL string
	Source        string
	Device        string
}

// RedemptionResult is returned on a successful redemption.
type RedemptionResult struct {
	CodeID          string          `json:"code_id"`
	UniqueCode      string          `json:"unique_code"`
	RedemptionValue decimal.Decimal `json:"redemption_value"`
	RedeemedAt      time.Time       `json:"redeemed_at"`
	UserID          string          `json:"user_id"`
	NewBalance      decimal.Decimal `json:"new_balance"`
	CampaignName    string          `json:"campaign_name"`
}

// Redeem validates every precondition in order, then performs the
// transition through the store's single-transaction RedeemCode.
//
// The precondition reads are advisory; the conditional update inside
// RedeemCode is what decides a race. Two concurrent attempts on one
// code both pass the reads, exactly one commits, the other surfaces
// ErrCodeAlreadyUsed.
func (s *RedemptionService) Redeem(ctx context.Context, input RedeemInput) (*RedemptionResult, error) {
	start := s.now()

	result, err := s.redeem(ctx, input)
	if err != nil {
		s.metrics.IncRedemptionFailure(FailureOutcome(err))
		return nil, err
	}

	s.metrics.IncRedemptionSuccess()
	s.metrics.ObserveRedemptionDuration(s.now().Sub(start))
	return result, nil
}

func (s *RedemptionService) redeem(ctx context.Context, input RedeemInput) (*RedemptionResult, error) {
	campaignID := strings.TrimSpace(input.CampaignID)
	codeValue := strings.ToUpper(strings.TrimSpace(input.Code))
	if campaignID == "" || codeValue == "" {
		return nil, ErrMissingInput
	}

	email, err := normalizeEmail(input.Email)
	if err != nil {
		return nil, err
	}

	now := s.now()

	campaign, err := s.store.GetCampaignByID(ctx, campaignID)
	if err != nil {
		if errors.Is(err, repository.ErrCampaignNotFound) {
			return nil, ErrCampaignNotFound
		}
		return nil, fmt.Errorf("load campaign: %w", err)
	}
	if !campaign.Active {
		return nil, ErrCampaignInactive
	}
	if campaign.IsExpired(now) {
		return nil, ErrCampaignExpired
	}

	code, err := s.store.GetCodeByValue(ctx, codeValue)
	if err != nil {
		if errors.Is(err, repository.ErrCodeNotFound) {
			return nil, ErrCodeNotFound
		}
		return nil, fmt.Errorf("load code: %w", err)
	}
	if code.CampaignID != campaign.ID {
		return nil, ErrCodeCampaignMismatch
	}
	if code.Used {
		return nil, alreadyUsed(code)
	}
	if code.IsExpired(now) {
		return nil, ErrCodeExpired
	}

	record, err := s.store.RedeemCode(ctx, repository.RedeemParams{
		CodeID:        code.ID,
		CampaignID:    campaign.ID,
		UserID:        ulid.Make().String(),
		UserEmail:     email,
		Value:         code.RedemptionValue,
		Now:           now,
		RedemptionURL: optional(input.RedemptionURL),
		Source:        optional(input.Source),
		Device:        optional(input.Device),
	})
	if err != nil {
		switch {
		case errors.Is(err, repository.ErrCodeAlreadyRedeemed):
			// Lost the race. Re-read for who/when context.
			if fresh, readErr := s.store.GetCodeByValue(ctx, codeValue); readErr == nil && fresh.Used {
				return nil, alreadyUsed(fresh)
			}
			return nil, ErrCodeAlreadyUsed
		case errors.Is(err, repository.ErrCampaignLimitReached):
			return nil, ErrRedemptionLimitReached
		}
		return nil, fmt.Errorf("redeem code: %w", err)
	}

	return &RedemptionResult{
		CodeID:          code.ID,
		UniqueCode:      code.UniqueCode,
		RedemptionValue: code.RedemptionValue,
		RedeemedAt:      record.RedeemedAt,
		UserID:          record.UserID,
		NewBalance:      record.NewBalance,
		CampaignName:    record.CampaignName,
	}, nil
}

// FailureOutcome maps a redemption error to its event/metric outcome
// name. Unknown errors are infrastructure failures.
func FailureOutcome(err error) string {
	switch {
	case errors.Is(err, ErrCampaignNotFound):
		return model.EventOutcomeCampaignNotFound
	case errors.Is(err, ErrCampaignInactive):
		return model.EventOutcomeCampaignInactive
	case errors.Is(err, ErrCampaignExpired):
		return model.EventOutcomeCampaignExpired
	case errors.Is(err, ErrCodeNotFound):
		return model.EventOutcomeCodeNotFound
	case errors.Is(err, ErrCodeCampaignMismatch):
		return model.EventOutcomeCodeMismatch
	case errors.Is(err, ErrCodeAlreadyUsed):
		return model.EventOutcomeCodeAlreadyUsed
	case errors.Is(err, ErrCodeExpired):
		return model.EventOutcomeCodeExpired
	case errors.Is(err, ErrRedemptionLimitReached):
		return model.EventOutcomeLimitReached
	default:
		return model.EventOutcomeInternalError
	}
}

func alreadyUsed(code *model.RedemptionCode) *AlreadyUsedError {
	used := &AlreadyUsedError{RedeemedBy: code.RedeemedBy()}
	if code.RedeemedAt != nil {
		used.RedeemedAt = *code.RedeemedAt
	}
	return used
}

// normalizeEmail trims, lowercases, and validates the redeemer email.
func normalizeEmail(email string) (string, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" {
		return "", ErrInvalidEmail
	}
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email {
		return "", ErrInvalidEmail
	}
	return email, nil
}

// optional converts empty strings to nil pointers for nullable columns.
func optional(s string) *string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	return &s
}
