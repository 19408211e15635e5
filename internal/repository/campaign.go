package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/redeemly/redeemly/internal/model"
)

// Common errors for campaign repository operations.
var (
	ErrCampaignNotFound = errors.New("campaign not found")
	ErrInvalidCursor    = errors.New("invalid pagination cursor")
)

const campaignColumns = `id, name, description, redemption_value, active, max_redemptions,
	current_redemptions, total_redemption_value, code_prefix, expires_at, deleted_at, created_at, updated_at`

// CreateCampaign inserts a new campaign.
func (r *Repository) CreateCampaign(ctx context.Context, campaign *model.Campaign) error {
	query := `
		INSERT INTO campaigns (id, name, description, redemption_value, active, max_redemptions,
			current_redemptions, total_redemption_value, code_prefix, expires_at, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	`

	_, err := r.pool.Exec(ctx, query,
		campaign.ID,
		campaign.Name,
		campaign.Description,
		campaign.RedemptionValue,
		campaign.Active,
		campaign.MaxRedemptions,
		campaign.CurrentRedemptions,
		campaign.TotalRedemptionValue,
		campaign.CodePrefix,
		campaign.ExpiresAt,
		campaign.CreatedAt,
		campaign.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create campaign: %w", err)
	}

	return nil
}

// GetCampaignByID retrieves a campaign by its ID.
func (r *Repository) GetCampaignByID(ctx context.Context, id string) (*model.Campaign, error) {
	query := `SELECT ` + campaignColumns + ` FROM campaigns WHERE id = $1 AND deleted_at IS NULL`

	campaign, err := scanCampaign(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrCampaignNotFound
		}
		return nil, fmt.Errorf("failed to get campaign by ID: %w", err)
	}

	return campaign, nil
}

// CampaignFilter defines filters for listing campaigns.
type CampaignFilter struct {
	ActiveOnly    bool
	CreatedAfter  *time.Time
	CreatedBefore *time.Time
}

// ListCampaigns retrieves a paginated list of campaigns.
func (r *Repository) ListCampaigns(ctx context.Context, filter CampaignFilter, cursor string, limit int) ([]*model.Campaign, string, error) {
	var cursorData *PaginationCursor
	if cursor != "" {
		var err error
		cursorData, err = decodeCursor(cursor)
		if err != nil {
			return nil, "", ErrInvalidCursor
		}
	}

	query := `SELECT ` + campaignColumns + ` FROM campaigns WHERE deleted_at IS NULL`
	var args []any
	argIndex := 1

	if filter.ActiveOnly {
		query += " AND active = true"
	}

	if cursorData != nil {
		query += fmt.Sprintf(" AND (created_at, id) < ($%d, $%d)", argIndex, argIndex+1)
		args = append(args, cursorData.CreatedAt, cursorData.ID)
		argIndex += 2
	}

	if filter.CreatedAfter != nil {
		query += fmt.Sprintf(" AND created_at >= $%d", argIndex)
		args = append(args, *filter.CreatedAfter)
		argIndex++
	}

	if filter.CreatedBefore != nil {
		query += fmt.Sprintf(" AND created_at <= $%d", argIndex)
		args = append(args, *filter.CreatedBefore)
		argIndex++
	}

	query += fmt.Sprintf(" ORDER BY created_at DESC, id DESC LIMIT $%d", argIndex)
	args = append(args, limit+1) // Fetch one extra to determine hasMore

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, "", fmt.Errorf("failed to list campaigns: %w", err)
	}
	defer rows.Close()

	var campaigns []*model.Campaign
	for rows.Next() {
		campaign, err := scanCampaign(rows)
		if err != nil {
			return nil, "", fmt.Errorf("failed to scan campaign: %w", err)
		}
		campaigns = append(campaigns, campaign)
	}

	if err := rows.Err(); err != nil {
		return nil, "", fmt.Errorf("error iterating campaigns: %w", err)
	}

	var nextCursor string
	if len(campaigns) > limit {
		campaigns = campaigns[:limit]
		last := campaigns[len(campaigns)-1]
		nextCursor = encodeCursor(&PaginationCursor{
			ID:        last.ID,
			CreatedAt: last.CreatedAt,
		})
	}

	return campaigns, nextCursor, nil
}

// SearchCampaignsByName retrieves campaigns whose name contains the
// given fragment, case-insensitively. Used by the admin lookup.
func (r *Repository) SearchCampaignsByName(ctx context.Context, name string, limit int) ([]*model.Campaign, error) {
	query := `SELECT ` + campaignColumns + ` FROM campaigns
		WHERE deleted_at IS NULL AND name ILIKE '%' || $1 || '%'
		ORDER BY created_at DESC LIMIT $2`

	rows, err := r.pool.Query(ctx, query, name, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to search campaigns: %w", err)
	}
	defer rows.Close()

	var campaigns []*model.Campaign
	for rows.Next() {
		campaign, err := scanCampaign(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan campaign: %w", err)
		}
		campaigns = append(campaigns, campaign)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating campaigns: %w", err)
	}

	return campaigns, nil
}

// UpdateCampaign updates a campaign's metadata. Aggregate counters are
// only written by the redemption transaction, never here.
func (r *Repository) UpdateCampaign(ctx context.Context, campaign *model.Campaign) error {
	query := `
		UPDATE campaigns
		SET name = $2, description = $3, redemption_value = $4, active = $5,
			max_redemptions = $6, code_prefix = $7, expires_at = $8, updated_at = NOW()
		WHERE id = $1 AND deleted_at IS NULL
	`

	result, err := r.pool.Exec(ctx, query,
		campaign.ID,
		campaign.Name,
		campaign.Description,
		campaign.RedemptionValue,
		campaign.Active,
		campaign.MaxRedemptions,
		campaign.CodePrefix,
		campaign.ExpiresAt,
	)
	if err != nil {
		return fmt.Errorf("failed to update campaign: %w", err)
	}

	if result.RowsAffected() == 0 {
		return ErrCampaignNotFound
	}

	return nil
}

// DeleteCampaign performs a soft delete on a campaign. Codes keep
// their foreign key; the campaign is simply no longer served.
func (r *Repository) DeleteCampaign(ctx context.Context, id string) error {
	query := `
		UPDATE campaigns
		SET deleted_at = NOW()
		WHERE id = $1 AND deleted_at IS NULL
	`

	result, err := r.pool.Exec(ctx, query, id)
	if err != nil {
		return fmt.Errorf("failed to delete campaign: %w", err)
	}

	if result.RowsAffected() == 0 {
		return ErrCampaignNotFound
	}

	return nil
}

// scanCampaign scans a single row into a Campaign model.
func scanCampaign(row pgx.Row) (*model.Campaign, error) {
	var campaign model.Campaign
	err := row.Scan(
		&campaign.ID,
		&campaign.Name,
		&campaign.Description,
		&campaign.RedemptionValue,
		&campaign.Active,
		&campaign.MaxRedemptions,
		&campaign.CurrentRedemptions,
		&campaign.TotalRedemptionValue,
		&campaign.CodePrefix,
		&campaign.ExpiresAt,
		&campaign.DeletedAt,
		&campaign.CreatedAt,
		&campaign.UpdatedAt,
	)
	return &campaign, err
}
