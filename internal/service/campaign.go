package service

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/shopspring/decimal"

	"github.com/redeemly/redeemly/internal/model"
	"github.com/redeemly/redeemly/internal/repository"
)

// Campaign validation errors.
var (
	ErrInvalidCampaignName  = errors.New("campaign name is required")
	ErrInvalidValue         = errors.New("redemption value must be positive")
	ErrInvalidMaxRedemption = errors.New("max redemptions must be positive when set")
	ErrInvalidPrefix        = errors.New("invalid code prefix format")
	ErrExpiresInPast        = errors.New("expires_at must be in the future")
	ErrInvalidCursor        = errors.New("invalid pagination cursor")
)

// Prefix validation: 1-8 uppercase alphanumerics.
var prefixRegex = regexp.MustCompile(`^[A-Z0-9]{1,8}$`)

// CampaignService handles campaign management logic.
type CampaignService struct {
	repo  *repository.Repository
	cache CampaignCache
}

// NewCampaignService creates a new CampaignService. The cache is
// optional; when present, updates and deletes invalidate the cached
// campaign so the public path stops serving stale metadata.
func NewCampaignService(repo *repository.Repository, campaignCache CampaignCache) *CampaignService {
	return &CampaignService{repo: repo, cache: campaignCache}
}

// invalidate drops the cached campaign. Errors are logged nowhere on
// purpose; the entry ages out within its TTL anyway.
func (s *CampaignService) invalidate(ctx context.Context, id string) {
	if s.cache != nil {
		_ = s.cache.DeleteCampaign(ctx, id)
	}
}

// CreateCampaignInput defines input for creating a campaign.
type CreateCampaignInput struct {
	Name            string
	Description     string
	RedemptionValue decimal.Decimal
	MaxRedemptions  *int64
	CodePrefix      string
	ExpiresAt       *time.Time
}

// CreateCampaign validates input and creates a campaign.
func (s *CampaignService) CreateCampaign(ctx context.Context, input CreateCampaignInput) (*model.Campaign, error) {
	name := strings.TrimSpace(input.Name)
	if name == "" {
		return nil, ErrInvalidCampaignName
	}
	if !input.RedemptionValue.IsPositive() {
		return nil, ErrInvalidValue
	}
	if input.MaxRedemptions != nil && *input.MaxRedemptions <= 0 {
		return nil, ErrInvalidMaxRedemption
	}
	prefix := strings.ToUpper(strings.TrimSpace(input.CodePrefix))
	if prefix != "" && !prefixRegex.MatchString(prefix) {
		return nil, ErrInvalidPrefix
	}
	if input.ExpiresAt != nil && input.ExpiresAt.Before(time.Now()) {
		return nil, ErrExpiresInPast
	}

	now := time.Now().UTC()
	campaign := &model.Campaign{
		ID:                   ulid.Make().String(),
		Name:                 name,
		Description:          strings.TrimSpace(input.Description),
		RedemptionValue:      input.RedemptionValue,
		Active:               true,
		MaxRedemptions:       input.MaxRedemptions,
		TotalRedemptionValue: decimal.Zero,
		CodePrefix:           prefix,
		ExpiresAt:            input.ExpiresAt,
		CreatedAt:            now,
		UpdatedAt:            now,
	}

	if err := s.repo.CreateCampaign(ctx, campaign); err != nil {
		return nil, fmt.Errorf("failed to create campaign: %w", err)
	}

	return campaign, nil
}

// GetCampaign retrieves a campaign by ID.
func (s *CampaignService) GetCampaign(ctx context.Context, id string) (*model.Campaign, error) {
	campaign, err := s.repo.GetCampaignByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrCampaignNotFound) {
			return nil, ErrCampaignNotFound
		}
		return nil, err
	}
	return campaign, nil
}

// ListCampaignsInput defines input for listing campaigns.
type ListCampaignsInput struct {
	Cursor     string
	Limit      int
	ActiveOnly bool
}

// ListCampaignsOutput defines output for listing campaigns.
type ListCampaignsOutput struct {
	Campaigns  []*model.Campaign
	NextCursor string
	HasMore    bool
}

// ListCampaigns retrieves a paginated list of campaigns.
func (s *CampaignService) ListCampaigns(ctx context.Context, input ListCampaignsInput) (*ListCampaignsOutput, error) {
	if input.Limit <= 0 || input.Limit > 100 {
		input.Limit = 20
	}

	campaigns, nextCursor, err := s.repo.ListCampaigns(ctx, repository.CampaignFilter{
		ActiveOnly: input.ActiveOnly,
	}, input.Cursor, input.Limit)
	if err != nil {
		if errors.Is(err, repository.ErrInvalidCursor) {
			return nil, ErrInvalidCursor
		}
		return nil, fmt.Errorf("failed to list campaigns: %w", err)
	}

	return &ListCampaignsOutput{
		Campaigns:  campaigns,
		NextCursor: nextCursor,
		HasMore:    nextCursor != "",
	}, nil
}

// UpdateCampaignInput defines input for updating campaign metadata.
// Nil fields are left unchanged.
type UpdateCampaignInput struct {
	ID              string
	Name            *string
	Description     *string
	RedemptionValue *decimal.Decimal
	Active          *bool
	MaxRedemptions  *int64
	ExpiresAt       *time.Time
}

// UpdateCampaign updates campaign metadata. Aggregate counters are
// never touched here; only the redemption transaction writes those.
func (s *CampaignService) UpdateCampaign(ctx context.Context, input UpdateCampaignInput) (*model.Campaign, error) {
	campaign, err := s.GetCampaign(ctx, input.ID)
	if err != nil {
		return nil, err
	}

	if input.Name != nil {
		name := strings.TrimSpace(*input.Name)
		if name == "" {
			return nil, ErrInvalidCampaignName
		}
		campaign.Name = name
	}
	if input.Description != nil {
		campaign.Description = strings.TrimSpace(*input.Description)
	}
	if input.RedemptionValue != nil {
		if !input.RedemptionValue.IsPositive() {
			return nil, ErrInvalidValue
		}
		campaign.RedemptionValue = *input.RedemptionValue
	}
	if input.Active != nil {
		campaign.Active = *input.Active
	}
	if input.MaxRedemptions != nil {
		if *input.MaxRedemptions <= 0 {
			return nil, ErrInvalidMaxRedemption
		}
		campaign.MaxRedemptions = input.MaxRedemptions
	}
	if input.ExpiresAt != nil {
		if input.ExpiresAt.Before(time.Now()) {
			return nil, ErrExpiresInPast
		}
		campaign.ExpiresAt = input.ExpiresAt
	}

	if err := s.repo.UpdateCampaign(ctx, campaign); err != nil {
		if errors.Is(err, repository.ErrCampaignNotFound) {
			return nil, ErrCampaignNotFound
		}
		return nil, fmt.Errorf("failed to update campaign: %w", err)
	}

	s.invalidate(ctx, campaign.ID)

	return campaign, nil
}

// DeleteCampaign soft-deletes a campaign. Issued codes keep their
// reference; the campaign simply stops being served.
func (s *CampaignService) DeleteCampaign(ctx context.Context, id string) error {
	if err := s.repo.DeleteCampaign(ctx, id); err != nil {
		if errors.Is(err, repository.ErrCampaignNotFound) {
			return ErrCampaignNotFound
		}
		return fmt.Errorf("failed to delete campaign: %w", err)
	}

	s.invalidate(ctx, id)

	return nil
}
