package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/redeemly/redeemly/internal/codegen"
	"github.com/redeemly/redeemly/internal/metrics"
	"github.com/redeemly/redeemly/internal/model"
	"github.com/redeemly/redeemly/internal/repository"
)

// Code batch errors.
var (
	ErrInvalidQuantity = errors.New("quantity must be between 1 and 1000")
	ErrUnknownPreset   = errors.New("unknown code preset")
)

// MaxCodesPerBatch bounds the admin bulk-creation surface. The
// generator itself can go higher; the API cannot.
const MaxCodesPerBatch = 1000

// CodeService handles code batch creation and lookup.
type CodeService struct {
	repo    *repository.Repository
	metrics metrics.Recorder
}

// NewCodeService creates a new CodeService.
func NewCodeService(repo *repository.Repository, recorder metrics.Recorder) *CodeService {
	if recorder == nil {
		recorder = metrics.NewNoop()
	}
	return &CodeService{repo: repo, metrics: recorder}
}

// CreateBatchInput defines input for bulk code creation.
type CreateBatchInput struct {
	CampaignID string
	Quantity   int
	// Preset selects the code shape: "standard" (default), "campaign"
	// (uses the campaign's code prefix), or "pin".
	Preset    string
	ExpiresAt *time.Time
}

// CreateBatchOutput lists the created codes.
type CreateBatchOutput struct {
	Campaign *model.Campaign
	Codes    []*model.RedemptionCode
	Metadata codegen.BatchMetadata
}

// CreateBatch generates quantity unique codes for a campaign and
// persists them. Each code snapshots the campaign's current value so
// later campaign edits do not reprice issued codes.
//
// If the database unique index rejects the batch (a generated code
// already exists from an earlier batch), generation is retried once
// with fresh codes before giving up.
func (s *CodeService) CreateBatch(ctx context.Context, input CreateBatchInput) (*CreateBatchOutput, error) {
	if input.Quantity < 1 || input.Quantity > MaxCodesPerBatch {
		return nil, ErrInvalidQuantity
	}

	campaign, err := s.repo.GetCampaignByID(ctx, input.CampaignID)
	if err != nil {
		if errors.Is(err, repository.ErrCampaignNotFound) {
			return nil, ErrCampaignNotFound
		}
		return nil, fmt.Errorf("load campaign: %w", err)
	}

	cfg, err := presetFor(input.Preset, campaign)
	if err != nil {
		return nil, err
	}

	var codes []*model.RedemptionCode
	var meta codegen.BatchMetadata
	for attempt := 0; ; attempt++ {
		batch, err := codegen.GenerateBulk(input.Quantity, cfg)
		if err != nil {
			return nil, fmt.Errorf("generate codes: %w", err)
		}
		meta = batch.Metadata

		codes = buildCodes(batch.Codes, campaign, input.ExpiresAt)
		err = s.repo.CreateCodesBatch(ctx, codes)
		if err == nil {
			break
		}
		if errors.Is(err, repository.ErrCodeValueExists) && attempt == 0 {
			// Cross-batch collision caught by the unique index.
			s.metrics.IncBatchRetried()
			continue
		}
		return nil, fmt.Errorf("persist code batch: %w", err)
	}

	s.metrics.IncCodesGenerated(len(codes))

	return &CreateBatchOutput{
		Campaign: campaign,
		Codes:    codes,
		Metadata: meta,
	}, nil
}

// presetFor resolves a preset name against a campaign.
func presetFor(name string, campaign *model.Campaign) (codegen.Config, error) {
	switch name {
	case "", "standard":
		return codegen.PresetStandard(), nil
	case "campaign":
		prefix := campaign.CodePrefix
		if prefix == "" {
			prefix = "RD"
		}
		return codegen.PresetCampaign(prefix), nil
	case "pin":
		return codegen.PresetPIN(), nil
	default:
		return codegen.Config{}, fmt.Errorf("%w: %q", ErrUnknownPreset, name)
	}
}

// buildCodes wraps raw code strings into persistable models.
func buildCodes(values []string, campaign *model.Campaign, expiresAt *time.Time) []*model.RedemptionCode {
	now := time.Now().UTC()
	codes := make([]*model.RedemptionCode, len(values))
	for i, value := range values {
		codes[i] = &model.RedemptionCode{
			ID:              ulid.Make().String(),
			CampaignID:      campaign.ID,
			UniqueCode:      value,
			RedemptionValue: campaign.RedemptionValue,
			ExpiresAt:       expiresAt,
			CreatedAt:       now,
		}
	}
	return codes
}

// ListCodesInput defines input for listing a campaign's codes.
type ListCodesInput struct {
	CampaignID string
	Cursor     string
	Limit      int
	Used       *bool
}

// ListCodesOutput defines output for listing codes.
type ListCodesOutput struct {
	Codes      []*model.RedemptionCode
	NextCursor string
	HasMore    bool
}

// ListCodes retrieves a paginated list of a campaign's codes.
func (s *CodeService) ListCodes(ctx context.Context, input ListCodesInput) (*ListCodesOutput, error) {
	if input.Limit <= 0 || input.Limit > 100 {
		input.Limit = 20
	}

	// Existence check so an unknown campaign is a 404, not an empty list.
	if _, err := s.repo.GetCampaignByID(ctx, input.CampaignID); err != nil {
		if errors.Is(err, repository.ErrCampaignNotFound) {
			return nil, ErrCampaignNotFound
		}
		return nil, err
	}

	codes, nextCursor, err := s.repo.ListCodes(ctx, repository.CodeFilter{
		CampaignID: input.CampaignID,
		Used:       input.Used,
	}, input.Cursor, input.Limit)
	if err != nil {
		if errors.Is(err, repository.ErrInvalidCursor) {
			return nil, ErrInvalidCursor
		}
		return nil, fmt.Errorf("failed to list codes: %w", err)
	}

	return &ListCodesOutput{
		Codes:      codes,
		NextCursor: nextCursor,
		HasMore:    nextCursor != "",
	}, nil
}

// GetCode retrieves a single code by ID.
func (s *CodeService) GetCode(ctx context.Context, id string) (*model.RedemptionCode, error) {
	code, err := s.repo.GetCodeByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrCodeNotFound) {
			return nil, ErrCodeNotFound
		}
		return nil, err
	}
	return code, nil
}
