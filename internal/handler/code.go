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

// CodeHandler handles HTTP requests for code batch operations.
type CodeHandler struct {
	svc    *service.CodeService
	logger *slog.Logger
}

// NewCodeHandler creates a new CodeHandler.
func NewCodeHandler(svc *service.CodeService, logger *slog.Logger) *CodeHandler {
	return &CodeHandler{
		svc:    svc,
		logger: logger,
	}
}

// CreateBatch handles POST /api/v1/campaigns/{id}/codes.
func (h *CodeHandler) CreateBatch(w http.ResponseWriter, r *http.Request) {
	campaignID := chi.URLParam(r, "id")
	if campaignID == "" {
		h.writeError(w, http.StatusBadRequest, "MISSING_ID", "Campaign ID is required")
		return
	}

	var req dto.CreateCodeBatchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "INVALID_JSON", "Invalid request body")
		return
	}

	result, err := h.svc.CreateBatch(r.Context(), service.CreateBatchInput{
		CampaignID: campaignID,
		Quantity:   req.Quantity,
		Preset:     req.Preset,
		ExpiresAt:  req.ExpiresAt,
	})
	if err != nil {
		h.handleServiceError(w, err)
		return
	}

	h.logger.Info("codes_created",
		"campaign_id", campaignID,
		"count", len(result.Codes),
		"preset", result.Metadata.Preset,
		"collisions", result.Metadata.Collisions,
	)

	codes := make([]dto.CodeResponse, len(result.Codes))
	for i, code := range result.Codes {
		codes[i] = *dto.ToCodeResponse(code)
	}
	writeJSON(w, http.StatusCreated, dto.CodeBatchResponse{
		CampaignID: campaignID,
		Count:      len(codes),
		Preset:     result.Metadata.Preset,
		Collisions: result.Metadata.Collisions,
		Codes:      codes,
	})
}

// List handles GET /api/v1/campaigns/{id}/codes.
func (h *CodeHandler) List(w http.ResponseWriter, r *http.Request) {
	campaignID := chi.URLParam(r, "id")
	if campaignID == "" {
		h.writeError(w, http.StatusBadRequest, "MISSING_ID", "Campaign ID is required")
		return
	}

	query := r.URL.Query()

	limit := 20
	if l := query.Get("limit"); l != "" {
		if parsed, err := strconv.Atoi(l); err == nil && parsed > 0 && parsed <= 100 {
			limit = parsed
		}
	}

	input := service.ListCodesInput{
		CampaignID: campaignID,
		Cursor:     query.Get("cursor"),
		Limit:      limit,
	}
	if used := query.Get("used"); used != "" {
		if parsed, err := strconv.ParseBool(used); err == nil {
			input.Used = &parsed
		}
	}

	result, err := h.svc.ListCodes(r.Context(), input)
	if err != nil {
		h.handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, dto.ToCodeListResponse(result.Codes, result.NextCursor, result.HasMore))
}

// Get handles GET /api/v1/codes/{id}.
func (h *CodeHandler) Get(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" {
		h.writeError(w, http.StatusBadRequest, "MISSING_ID", "Code ID is required")
		return
	}

	code, err := h.svc.GetCode(r.Context(), id)
	if err != nil {
		h.handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, dto.ToCodeResponse(code))
}

// handleServiceError maps service errors to HTTP responses.
func (h *CodeHandler) handleServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, service.ErrCampaignNotFound):
		h.writeError(w, http.StatusNotFound, "CAMPAIGN_NOT_FOUND", "Campaign not found")
	case errors.Is(err, service.ErrCodeNotFound):
		h.writeError(w, http.StatusNotFound, "CODE_NOT_FOUND", "Code not found")
	case errors.Is(err, service.ErrInvalidQuantity):
		h.writeError(w, http.StatusBadRequest, "INVALID_QUANTITY", "Quantity must be between 1 and 1000")
	case errors.Is(err, service.ErrUnknownPreset):
		h.writeError(w, http.StatusBadRequest, "UNKNOWN_PRESET", "Unknown code preset")
	case errors.Is(err, service.ErrInvalidCursor):
		h.writeError(w, http.StatusBadRequest, "INVALID_CURSOR", "Invalid pagination cursor")
	default:
		h.logger.Error("internal_error", "error", err)
		h.writeError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "An internal error occurred")
	}
}

// writeError writes an error response.
func (h *CodeHandler) writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, dto.ErrorResponse{
		Error: message,
		Code:  code,
	})
}
