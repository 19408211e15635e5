package handler

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/redeemly/redeemly/internal/handler/dto"
	"github.com/redeemly/redeemly/internal/repository"
)

// StatsHandler serves per-campaign aggregates. Counters come from two
// places: the campaign row (transactional truth) and the event log
// (attempt breakdown, eventually consistent).
type StatsHandler struct {
	repo   *repository.Repository
	events *repository.EventRepository
	logger *slog.Logger
}

// NewStatsHandler creates a new StatsHandler.
func NewStatsHandler(repo *repository.Repository, events *repository.EventRepository, logger *slog.Logger) *StatsHandler {
	return &StatsHandler{
		repo:   repo,
		events: events,
		logger: logger.With("component", "handler.stats"),
	}
}

// CampaignStats handles GET /api/v1/campaigns/{id}/stats.
func (h *StatsHandler) CampaignStats(w http.ResponseWriter, r *http.Request) {
	campaignID := chi.URLParam(r, "id")
	if campaignID == "" {
		h.writeError(w, http.StatusBadRequest, "MISSING_ID", "Campaign ID is required")
		return
	}

	campaign, err := h.repo.GetCampaignByID(r.Context(), campaignID)
	if err != nil {
		if errors.Is(err, repository.ErrCampaignNotFound) {
			h.writeError(w, http.StatusNotFound, "CAMPAIGN_NOT_FOUND", "Campaign not found")
			return
		}
		h.logger.Error("failed to load campaign", "campaign_id", campaignID, "error", err)
		h.writeError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to fetch stats")
		return
	}

	total, used, err := h.repo.CountCodes(r.Context(), campaignID)
	if err != nil {
		h.logger.Error("failed to count codes", "campaign_id", campaignID, "error", err)
		h.writeError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to fetch stats")
		return
	}

	breakdown, err := h.events.OutcomeBreakdown(r.Context(), campaignID)
	if err != nil {
		h.logger.Error("failed to load outcome breakdown", "campaign_id", campaignID, "error", err)
		h.writeError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to fetch stats")
		return
	}

	outcomes := make(map[string]int64, len(breakdown))
	for _, oc := range breakdown {
		outcomes[oc.Outcome] = oc.Count
	}

	writeJSON(w, http.StatusOK, dto.CampaignStatsResponse{
		CampaignID:           campaign.ID,
		TotalCodes:           total,
		UsedCodes:            used,
		RemainingCodes:       total - used,
		CurrentRedemptions:   campaign.CurrentRedemptions,
		TotalRedemptionValue: campaign.TotalRedemptionValue,
		Outcomes:             outcomes,
	})
}

// writeError writes an error response.
func (h *StatsHandler) writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, dto.ErrorResponse{
		Error: message,
		Code:  code,
	})
}
