package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/redeemly/redeemly/internal/handler/dto"
	"github.com/redeemly/redeemly/internal/service"
)

// CampaignHandler handles HTTP requests for campaign operations.
type CampaignHandler struct {
	svc    *service.CampaignService
	logger *slog.Logger
}

// NewCampaignHandler creates a new CampaignHandler.
func NewCampaignHandler(svc *service.CampaignService, logger *slog.Logger) *CampaignHandler {
	return &CampaignHandler{
		svc:    svc,
		logger: logger,
	}
}

// Create handles POST /api/v1/campaigns.
func (h *CampaignHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req dto.CreateCampaignRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "INVALID_JSON", "Invalid request body")
		return
	}

	input := service.CreateCampaignInput{
		Name:            req.Name,
		Description:     req.Description,
		RedemptionValue: req.RedemptionValue,
		MaxRedemptions:  req.MaxRedemptions,
		CodePrefix:      req.CodePrefix,
		ExpiresAt:       req.ExpiresAt,
	}

	campaign, err := h.svc.CreateCampaign(r.Context(), input)
	if err != nil {
		h.handleServiceError(w, err)
		return
	}

	h.logger.Info("campaign_created",
		"campaign_id", campaign.ID,
		"name", campaign.Name,
		"has_limit", campaign.MaxRedemptions != nil,
	)

	writeJSON(w, http.StatusCreated, dto.ToCampaignResponse(campaign))
}

// Get handles GET /api/v1/campaigns/{id}.
func (h *CampaignHandler) Get(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" {
		h.writeError(w, http.StatusBadRequest, "MISSING_ID", "Campaign ID is required")
		return
	}

	campaign, err := h.svc.GetCampaign(r.Context(), id)
	if err != nil {
		h.handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, dto.ToCampaignResponse(campaign))
}

// List handles GET /api/v1/campaigns.
func (h *CampaignHandler) List(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()

	limit := 20
	if l := query.Get("limit"); l != "" {
		if parsed, err := strconv.Atoi(l); err == nil && parsed > 0 && parsed <= 100 {
			limit = parsed
		}
	}

	input := service.ListCampaignsInput{
		Cursor:     query.Get("cursor"),
		Limit:      limit,
		ActiveOnly: query.Get("active") == "true",
	}

	result, err := h.svc.ListCampaigns(r.Context(), input)
	if err != nil {
		h.handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, dto.ToCampaignListResponse(result.Campaigns, result.NextCursor, result.HasMore))
}

// Update handles PATCH /api/v1/campaigns/{id}.
func (h *CampaignHandler) Update(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" {
		h.writeError(w, http.StatusBadRequest, "MISSING_ID", "Campaign ID is required")
		return
	}

	var req dto.UpdateCampaignRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "INVALID_JSON", "Invalid request body")
		return
	}

	input := service.UpdateCampaignInput{
		ID:              id,
		Name:            req.Name,
		Description:     req.Description,
		RedemptionValue: req.RedemptionValue,
		Active:          req.Active,
		MaxRedemptions:  req.MaxRedemptions,
		ExpiresAt:       req.ExpiresAt,
	}

	campaign, err := h.svc.UpdateCampaign(r.Context(), input)
	if err != nil {
		h.handleServiceError(w, err)
		return
	}

	h.logger.Info("campaign_updated",
		"campaign_id", campaign.ID,
		"name", campaign.Name,
	)

	writeJSON(w, http.StatusOK, dto.ToCampaignResponse(campaign))
}

// Delete handles DELETE /api/v1/campaigns/{id}.
func (h *CampaignHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" {
		h.writeError(w, http.StatusBadRequest, "MISSING_ID", "Campaign ID is required")
		return
	}

	if err := h.svc.DeleteCampaign(r.Context(), id); err != nil {
		h.handleServiceError(w, err)
		return
	}

	h.logger.Info("campaign_deleted", "campaign_id", id)

	w.WriteHeader(http.StatusNoContent)
}

// handleServiceError maps service errors to HTTP responses.
func (h *CampaignHandler) handleServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, service.ErrCampaignNotFound):
		h.writeError(w, http.StatusNotFound, "CAMPAIGN_NOT_FOUND", "Campaign not found")
	case errors.Is(err, service.ErrInvalidCampaignName):
		h.writeError(w, http.StatusBadRequest, "INVALID_NAME", "Campaign name is required")
	case errors.Is(err, service.ErrInvalidValue):
		h.writeError(w, http.StatusBadRequest, "INVALID_VALUE", "Redemption value must be positive")
	case errors.Is(err, service.ErrInvalidMaxRedemption):
		h.writeError(w, http.StatusBadRequest, "INVALID_MAX_REDEMPTIONS", "Max redemptions must be positive")
	case errors.Is(err, service.ErrInvalidPrefix):
		h.writeError(w, http.StatusBadRequest, "INVALID_PREFIX", "Code prefix must be 1-8 uppercase alphanumerics")
	case errors.Is(err, service.ErrExpiresInPast):
		h.writeError(w, http.StatusUnprocessableEntity, "EXPIRES_IN_PAST", "Expiry date must be in the future")
	case errors.Is(err, service.ErrInvalidCursor):
		h.writeError(w, http.StatusBadRequest, "INVALID_CURSOR", "Invalid pagination cursor")
	default:
		h.logger.Error("internal_error", "error", err)
		h.writeError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "An internal error occurred")
	}
}

// writeError writes an error response.
func (h *CampaignHandler) writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, dto.ErrorResponse{
		Error: message,
		Code:  code,
	})
}
