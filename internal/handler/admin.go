package handler

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/redeemly/redeemly/internal/model"
	"github.com/redeemly/redeemly/internal/repository"
)

// AdminCodeSearcher defines the interface for code lookup operations.
type AdminCodeSearcher interface {
	GetCodeByValue(ctx context.Context, uniqueCode string) (*model.RedemptionCode, error)
	SearchCampaignsByName(ctx context.Context, name string, limit int) ([]*model.Campaign, error)
}

// AdminKeyLister defines the interface for listing API keys.
type AdminKeyLister interface {
	ListAPIKeysByUserID(ctx context.Context, userID string) ([]*model.APIKey, error)
}

// AdminUserGetter defines the interface for user lookups.
type AdminUserGetter interface {
	GetUserByID(ctx context.Context, id string) (*model.User, error)
	GetUserByEmail(ctx context.Context, email string) (*model.User, error)
}

// AdminHandler provides admin-only endpoints for debugging and operations.
type AdminHandler struct {
	codeRepo AdminCodeSearcher
	keyRepo  AdminKeyLister
	userRepo AdminUserGetter
	logger   *slog.Logger
}

// NewAdminHandler creates a new AdminHandler.
func NewAdminHandler(codeRepo AdminCodeSearcher, keyRepo AdminKeyLister, userRepo AdminUserGetter, logger *slog.Logger) *AdminHandler {
	return &AdminHandler{
		codeRepo: codeRepo,
		keyRepo:  keyRepo,
		userRepo: userRepo,
		logger:   logger,
	}
}

// LookupResponse represents the response for an admin lookup.
type LookupResponse struct {
	Codes     []model.RedemptionCode `json:"codes,omitempty"`
	Campaigns []model.Campaign       `json:"campaigns,omitempty"`
	Total     int                    `json:"total"`
}

// Lookup handles GET /api/v1/admin/lookup?q={code|campaign name}
// Tries an exact code match first, then a partial campaign name match.
func (h *AdminHandler) Lookup(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query().Get("q")
	if query == "" {
		writeErrorJSON(w, http.StatusBadRequest, "MISSING_QUERY", "query parameter 'q' is required")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	var response LookupResponse

	if code, err := h.codeRepo.GetCodeByValue(ctx, query); err == nil {
		response.Codes = append(response.Codes, *code)
	}

	if len(response.Codes) == 0 {
		campaigns, err := h.codeRepo.SearchCampaignsByName(ctx, query, 20)
		if err != nil {
			h.logger.Error("failed to search campaigns by name",
				"error", err,
				"query", truncateForLog(query, 100),
			)
		} else {
			for _, campaign := range campaigns {
				response.Campaigns = append(response.Campaigns, *campaign)
			}
		}
	}

	response.Total = len(response.Codes) + len(response.Campaigns)

	writeJSON(w, http.StatusOK, response)
}

// AdminAPIKeyListResponse represents the response for API key listing.
type AdminAPIKeyListResponse struct {
	Keys  []model.APIKeyResponse `json:"keys"`
	Total int                    `json:"total"`
}

// ListAPIKeysByUser handles GET /api/v1/admin/api-keys?user_id={id}
// Lists all API keys for a specific user (admin only).
func (h *AdminHandler) ListAPIKeysByUser(w http.ResponseWriter, r *http.Request) {
	userID := r.URL.Query().Get("user_id")
	if userID == "" {
		writeErrorJSON(w, http.StatusBadRequest, "MISSING_USER_ID", "query parameter 'user_id' is required")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	keys, err := h.keyRepo.ListAPIKeysByUserID(ctx, userID)
	if err != nil {
		h.logger.Error("failed to list API keys",
			"error", err,
			"user_id", userID,
		)
		writeErrorJSON(w, http.StatusInternalServerError, "INTERNAL_ERROR", "failed to list API keys")
		return
	}

	response := AdminAPIKeyListResponse{
		Keys:  make([]model.APIKeyResponse, 0, len(keys)),
		Total: len(keys),
	}

	for _, key := range keys {
		response.Keys = append(response.Keys, key.ToResponse())
	}

	writeJSON(w, http.StatusOK, response)
}

// GetUser handles GET /api/v1/admin/users/{id}
// Returns a user with balance and redemption counters. The id segment
// also accepts an email address for support lookups.
func (h *AdminHandler) GetUser(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" {
		writeErrorJSON(w, http.StatusBadRequest, "MISSING_USER_ID", "user id is required")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	var (
		user *model.User
		err  error
	)
	if strings.Contains(id, "@") {
		user, err = h.userRepo.GetUserByEmail(ctx, id)
	} else {
		user, err = h.userRepo.GetUserByID(ctx, id)
	}
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			writeErrorJSON(w, http.StatusNotFound, "USER_NOT_FOUND", "user not found")
			return
		}
		h.logger.Error("failed to get user", "error", err)
		writeErrorJSON(w, http.StatusInternalServerError, "INTERNAL_ERROR", "failed to get user")
		return
	}

	writeJSON(w, http.StatusOK, user)
}

// StatsResponse represents operational statistics.
type StatsResponse struct {
	Timestamp time.Time `json:"timestamp"`
	Service   string    `json:"service"`
	Version   string    `json:"version"`
	Uptime    string    `json:"uptime,omitempty"`
}

// Stats handles GET /api/v1/admin/stats
// Returns basic operational statistics.
func (h *AdminHandler) Stats(w http.ResponseWriter, r *http.Request) {
	response := StatsResponse{
		Timestamp: time.Now().UTC(),
		Service:   "redeemly",
		Version:   "1.0.0", // TODO: inject at build time
	}
	writeJSON(w, http.StatusOK, response)
}

// truncateForLog truncates a string for logging purposes.
func truncateForLog(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}

// writeErrorJSON writes a JSON error response.
func writeErrorJSON(w http.ResponseWriter, status int, code, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{
		"error": message,
		"code":  code,
	})
}
