package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"github.com/redeemly/redeemly/internal/model"
)

// Common errors for redemption code repository operations.
var (
	ErrCodeNotFound = errors.New("redemption code not found")
	// ErrCodeValueExists means a generated batch collided with a code
	// already in the database; the unique index on unique_code is the
	// backstop against generator bugs.
	ErrCodeValueExists = errors.New("code value already exists")
	// ErrCodeAlreadyRedeemed is returned when the conditional update
	// finds the code consumed. The losing side of a concurrent
	// redemption observes this.
	ErrCodeAlreadyRedeemed = errors.New("code already redeemed")
	// ErrCampaignLimitReached means the campaign's max_redemptions
	// guard rejected the counter increment; the whole redemption
	// rolls back.
	ErrCampaignLimitReached = errors.New("campaign redemption limit reached")
)

// insertChunkSize bounds multi-row INSERT parameter counts.
const insertChunkSize = 1000

const codeColumns = `id, campaign_id, unique_code, redemption_value, used, user_id, user_email,
	redeemed_at, redemption_url, source, device, expires_at, created_at`

// CreateCodesBatch inserts pregenerated codes in chunks. All chunks
// run in one transaction so a collision aborts the whole batch.
func (r *Repository) CreateCodesBatch(ctx context.Context, codes []*model.RedemptionCode) error {
	if len(codes) == 0 {
		return nil
	}

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin batch transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	for start := 0; start < len(codes); start += insertChunkSize {
		end := start + insertChunkSize
		if end > len(codes) {
			end = len(codes)
		}
		if err := insertCodeChunk(ctx, tx, codes[start:end]); err != nil {
			if isUniqueViolation(err) {
				return ErrCodeValueExists
			}
			return fmt.Errorf("failed to insert code chunk: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit code batch: %w", err)
	}

	return nil
}

// insertCodeChunk builds a single multi-row INSERT for one chunk.
func insertCodeChunk(ctx context.Context, tx pgx.Tx, codes []*model.RedemptionCode) error {
	values := make([]string, len(codes))
	args := make([]any, 0, len(codes)*6)

	for i, code := range codes {
		base := i * 6
		values[i] = fmt.Sprintf("($%d, $%d, $%d, $%d, $%d, $%d)",
			base+1, base+2, base+3, base+4, base+5, base+6)
		args = append(args,
			code.ID,
			code.CampaignID,
			code.UniqueCode,
			code.RedemptionValue,
			code.ExpiresAt,
			code.CreatedAt,
		)
	}

	query := fmt.Sprintf(`
		INSERT INTO redemption_codes (id, campaign_id, unique_code, redemption_value, expires_at, created_at)
		VALUES %s
	`, strings.Join(values, ", "))

	_, err := tx.Exec(ctx, query, args...)
	return err
}

// GetCodeByID retrieves a redemption code by its ID.
func (r *Repository) GetCodeByID(ctx context.Context, id string) (*model.RedemptionCode, error) {
	query := `SELECT ` + codeColumns + ` FROM redemption_codes WHERE id = $1`

	code, err := scanCode(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrCodeNotFound
		}
		return nil, fmt.Errorf("failed to get code by ID: %w", err)
	}

	return code, nil
}

// GetCodeByValue retrieves a redemption code by its unique code value.
// This is the hot path for redemptions.
func (r *Repository) GetCodeByValue(ctx context.Context, uniqueCode string) (*model.RedemptionCode, error) {
	query := `SELECT ` + codeColumns + ` FROM redemption_codes WHERE unique_code = $1`

	code, err := scanCode(r.pool.QueryRow(ctx, query, uniqueCode))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrCodeNotFound
		}
		return nil, fmt.Errorf("failed to get code by value: %w", err)
	}

	return code, nil
}

// CodeFilter defines filters for listing codes.
type CodeFilter struct {
	CampaignID string
	// Used filters by redemption state when non-nil.
	Used *bool
}

// ListCodes retrieves a paginated list of codes for a campaign.
func (r *Repository) ListCodes(ctx context.Context, filter CodeFilter, cursor string, limit int) ([]*model.RedemptionCode, string, error) {
	var cursorData *PaginationCursor
	if cursor != "" {
		var err error
		cursorData, err = decodeCursor(cursor)
		if err != nil {
			return nil, "", ErrInvalidCursor
		}
	}

	query := `SELECT ` + codeColumns + ` FROM redemption_codes WHERE campaign_id = $1`
	args := []any{filter.CampaignID}
	argIndex := 2

	if filter.Used != nil {
		query += fmt.Sprintf(" AND used = $%d", argIndex)
		args = append(args, *filter.Used)
		argIndex++
	}

	if cursorData != nil {
		query += fmt.Sprintf(" AND (created_at, id) < ($%d, $%d)", argIndex, argIndex+1)
		args = append(args, cursorData.CreatedAt, cursorData.ID)
		argIndex += 2
	}

	query += fmt.Sprintf(" ORDER BY created_at DESC, id DESC LIMIT $%d", argIndex)
	args = append(args, limit+1)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, "", fmt.Errorf("failed to list codes: %w", err)
	}
	defer rows.Close()

	var codes []*model.RedemptionCode
	for rows.Next() {
		code, err := scanCode(rows)
		if err != nil {
			return nil, "", fmt.Errorf("failed to scan code: %w", err)
		}
		codes = append(codes, code)
	}

	if err := rows.Err(); err != nil {
		return nil, "", fmt.Errorf("error iterating codes: %w", err)
	}

	var nextCursor string
	if len(codes) > limit {
		codes = codes[:limit]
		last := codes[len(codes)-1]
		nextCursor = encodeCursor(&PaginationCursor{
			ID:        last.ID,
			CreatedAt: last.CreatedAt,
		})
	}

	return codes, nextCursor, nil
}

// RedeemParams carries everything the redemption transaction writes.
type RedeemParams struct {
	CodeID     string
	CampaignID string
	UserID     string // new user id if the email has no account yet
	UserEmail  string
	Value      decimal.Decimal
	Now        time.Time

	RedemptionURL *string
	Source        *string
	Device        *string
}

// RedeemRecord is what the redemption transaction returns on success.
type RedeemRecord struct {
	UserID               string
	NewBalance           decimal.Decimal
	TotalRedemptions     int64
	TotalRedemptionValue decimal.Decimal
	CampaignName         string
	RedeemedAt           time.Time
}

// RedeemCode performs the unused-to-used transition and every
// dependent aggregate update in a single transaction.
//
// The conditional UPDATE on used=false is the concurrency guard: of
// two concurrent attempts exactly one sees RowsAffected=1. Everything
// else piggybacks on that row lock, so either all four writes commit
// or none do.
func (r *Repository) RedeemCode(ctx context.Context, params RedeemParams) (*RedeemRecord, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin redemption transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	// Resolve the redeemer inside the transaction. ON CONFLICT keeps
	// concurrent first-time redemptions by the same email from racing.
	userQuery := `
		INSERT INTO users (id, email, balance, total_redemptions, total_redemption_value, created_at, updated_at)
		VALUES ($1, $2, 0, 0, 0, $3, $3)
		ON CONFLICT (email) DO UPDATE SET updated_at = EXCLUDED.updated_at
		RETURNING id
	`
	var userID string
	if err := tx.QueryRow(ctx, userQuery, params.UserID, params.UserEmail, params.Now).Scan(&userID); err != nil {
		return nil, fmt.Errorf("failed to resolve redeemer: %w", err)
	}

	// The race guard. Never split into read-then-write.
	codeQuery := `
		UPDATE redemption_codes
		SET used = true, user_id = $2, user_email = $3, redeemed_at = $4,
			redemption_url = $5, source = $6, device = $7
		WHERE id = $1 AND used = false
	`
	result, err := tx.Exec(ctx, codeQuery,
		params.CodeID,
		userID,
		params.UserEmail,
		params.Now,
		params.RedemptionURL,
		params.Source,
		params.Device,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to mark code used: %w", err)
	}
	if result.RowsAffected() == 0 {
		return nil, ErrCodeAlreadyRedeemed
	}

	// Redeemer aggregates.
	balanceQuery := `
		UPDATE users
		SET balance = balance + $2,
			total_redemptions = total_redemptions + 1,
			total_redemption_value = total_redemption_value + $2,
			updated_at = $3
		WHERE id = $1
		RETURNING balance, total_redemptions, total_redemption_value
	`
	record := RedeemRecord{UserID: userID, RedeemedAt: params.Now}
	err = tx.QueryRow(ctx, balanceQuery, userID, params.Value, params.Now).Scan(
		&record.NewBalance,
		&record.TotalRedemptions,
		&record.TotalRedemptionValue,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to update redeemer aggregates: %w", err)
	}

	// Campaign aggregates, guarded by the cap. A miss here rolls the
	// code transition back too.
	campaignQuery := `
		UPDATE campaigns
		SET current_redemptions = current_redemptions + 1,
			total_redemption_value = total_redemption_value + $2,
			updated_at = $3
		WHERE id = $1 AND deleted_at IS NULL
			AND (max_redemptions IS NULL OR current_redemptions < max_redemptions)
		RETURNING name
	`
	err = tx.QueryRow(ctx, campaignQuery, params.CampaignID, params.Value, params.Now).Scan(&record.CampaignName)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrCampaignLimitReached
		}
		return nil, fmt.Errorf("failed to update campaign aggregates: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit redemption: %w", err)
	}

	return &record, nil
}

// CountCodes returns total and used code counts for a campaign.
func (r *Repository) CountCodes(ctx context.Context, campaignID string) (total, used int64, err error) {
	query := `
		SELECT COUNT(*), COUNT(*) FILTER (WHERE used)
		FROM redemption_codes
		WHERE campaign_id = $1
	`
	if err := r.pool.QueryRow(ctx, query, campaignID).Scan(&total, &used); err != nil {
		return 0, 0, fmt.Errorf("failed to count codes: %w", err)
	}
	return total, used, nil
}

// scanCode scans a single row into a RedemptionCode model.
func scanCode(row pgx.Row) (*model.RedemptionCode, error) {
	var code model.RedemptionCode
	err := row.Scan(
		&code.ID,
		&code.CampaignID,
		&code.UniqueCode,
		&code.RedemptionValue,
		&code.Used,
		&code.UserID,
		&code.UserEmail,
		&code.RedeemedAt,
		&code.RedemptionURL,
		&code.Source,
		&code.Device,
		&code.ExpiresAt,
		&code.CreatedAt,
	)
	return &code, err
}
