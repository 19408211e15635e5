package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/redeemly/redeemly/internal/events"
	"github.com/redeemly/redeemly/internal/handler/dto"
	"github.com/redeemly/redeemly/internal/model"
	"github.com/redeemly/redeemly/internal/service"
	"github.com/redeemly/redeemly/internal/urlparse"
)

// RedeemHandler handles the public redemption surface.
type RedeemHandler struct {
	svc       *service.RedemptionService
	publisher *events.Publisher
	parseCfg  urlparse.Config
	logger    *slog.Logger
}

// NewRedeemHandler creates a new RedeemHandler.
func NewRedeemHandler(svc *service.RedemptionService, publisher *events.Publisher, logger *slog.Logger) *RedeemHandler {
	return &RedeemHandler{
		svc:       svc,
		publisher: publisher,
		logger:    logger,
	}
}

// Preview handles GET /redeem. It validates the landing URL without
// touching any code, so landing pages can show errors before the user
// commits. The whole request URI is run through the parser; warnings
// are advisory and never block.
func (h *RedeemHandler) Preview(w http.ResponseWriter, r *http.Request) {
	validation := urlparse.Validate(r.URL.RequestURI(), h.parseCfg)

	status := http.StatusOK
	if !validation.Valid {
		status = http.StatusBadRequest
	}

	h.setSecurityHeaders(w)
	writeJSON(w, status, validation)
}

// Redeem handles POST /redeem. The request either carries campaign_id
// and code directly or a landing URL to extract them from.
func (h *RedeemHandler) Redeem(w http.ResponseWriter, r *http.Request) {
	var req dto.RedeemRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "INVALID_JSON", "Invalid request body")
		return
	}

	redemptionURL := req.URL
	if req.URL != "" && (req.CampaignID == "" || req.Code == "") {
		parsed := urlparse.Parse(req.URL, h.parseCfg)
		if !parsed.Valid {
			h.writeError(w, http.StatusBadRequest, "INVALID_URL", "URL is missing a valid campaign_id or code")
			return
		}
		req.CampaignID = parsed.CampaignID
		req.Code = parsed.UniqueCode
	}

	start := time.Now()

	result, err := h.svc.Redeem(r.Context(), service.RedeemInput{
		CampaignID:    req.CampaignID,
		Code:          req.Code,
		Email:         req.Email,
		RedemptionURL: redemptionURL,
		Source:        req.Source,
		Device:        req.Device,
	})
	duration := time.Since(start)

	if err != nil {
		// Validation failures never reached a campaign; nothing to
		// aggregate them under.
		if !errors.Is(err, service.ErrMissingInput) && !errors.Is(err, service.ErrInvalidEmail) {
			h.publishOutcome(r, req, redemptionURL, "", service.FailureOutcome(err))
		}
		h.handleRedeemError(w, r, req.CampaignID, err, duration)
		return
	}

	h.publishOutcome(r, req, redemptionURL, result.CodeID, model.EventOutcomeRedeemed)

	h.logger.Info("redeem_success",
		"campaign_id", req.CampaignID,
		"code_id", result.CodeID,
		"duration_ms", float64(duration.Microseconds())/1000,
	)

	h.setSecurityHeaders(w)
	writeJSON(w, http.StatusOK, dto.RedeemResponse{
		CodeID:          result.CodeID,
		UniqueCode:      result.UniqueCode,
		RedemptionValue: result.RedemptionValue,
		RedeemedAt:      result.RedeemedAt,
		UserID:          result.UserID,
		NewBalance:      result.NewBalance,
		CampaignName:    result.CampaignName,
	})
}

// publishOutcome records the attempt on the event stream,
// fire-and-forget. Invalid-input failures carry no campaign and are
// skipped; there is nothing to aggregate them under.
func (h *RedeemHandler) publishOutcome(r *http.Request, req dto.RedeemRequest, redemptionURL, codeID, outcome string) {
	if h.publisher == nil || req.CampaignID == "" {
		return
	}

	occurredAt := time.Now()
	userAgent := r.Header.Get("User-Agent")
	h.publisher.PublishAsync(events.EventPayload{
		CampaignID:    req.CampaignID,
		CodeID:        codeID,
		UniqueCode:    req.Code,
		Outcome:       outcome,
		RedemptionURL: events.TruncateMeta(redemptionURL),
		Source:        req.Source,
		Device:        req.Device,
		UserAgent:     events.TruncateMeta(userAgent),
		VisitorHash:   events.GenerateVisitorHash(getClientIP(r), userAgent, occurredAt),
		OccurredAt:    occurredAt.UnixMilli(),
	})
}

// handleRedeemError maps redemption failures to HTTP responses.
func (h *RedeemHandler) handleRedeemError(w http.ResponseWriter, r *http.Request, campaignID string, err error, duration time.Duration) {
	logAttempt := func(reason string) {
		h.logger.Info("redeem_rejected",
			"campaign_id", campaignID,
			"reason", reason,
			"duration_ms", float64(duration.Microseconds())/1000,
		)
	}

	var used *service.AlreadyUsedError

	switch {
	case errors.Is(err, service.ErrCampaignNotFound):
		logAttempt("campaign_not_found")
		h.writeError(w, http.StatusNotFound, "CAMPAIGN_NOT_FOUND", "Campaign not found")

	case errors.Is(err, service.ErrCampaignInactive):
		logAttempt("campaign_inactive")
		h.writeError(w, http.StatusForbidden, "CAMPAIGN_INACTIVE", "Campaign is not active")

	case errors.Is(err, service.ErrCampaignExpired):
		logAttempt("campaign_expired")
		h.writeError(w, http.StatusGone, "CAMPAIGN_EXPIRED", "Campaign has expired")

	case errors.Is(err, service.ErrCodeNotFound):
		logAttempt("code_not_found")
		h.writeError(w, http.StatusNotFound, "CODE_NOT_FOUND", "Code not found")

	case errors.Is(err, service.ErrCodeCampaignMismatch):
		// Reported as not found so codes cannot be probed across
		// campaigns.
		logAttempt("code_campaign_mismatch")
		h.writeError(w, http.StatusNotFound, "CODE_NOT_FOUND", "Code not found")

	case errors.As(err, &used):
		logAttempt("code_already_used")
		h.setSecurityHeaders(w)
		writeJSON(w, http.StatusConflict, dto.AlreadyUsedResponse{
			Error:      "Code has already been redeemed",
			Code:       "CODE_ALREADY_USED",
			RedeemedBy: used.RedeemedBy,
			RedeemedAt: used.RedeemedAt,
		})

	case errors.Is(err, service.ErrCodeAlreadyUsed):
		logAttempt("code_already_used")
		h.writeError(w, http.StatusConflict, "CODE_ALREADY_USED", "Code has already been redeemed")

	case errors.Is(err, service.ErrCodeExpired):
		logAttempt("code_expired")
		h.writeError(w, http.StatusGone, "CODE_EXPIRED", "Code has expired")

	case errors.Is(err, service.ErrRedemptionLimitReached):
		logAttempt("limit_reached")
		h.writeError(w, http.StatusConflict, "LIMIT_REACHED", "Campaign redemption limit reached")

	case errors.Is(err, service.ErrMissingInput):
		logAttempt("missing_input")
		h.writeError(w, http.StatusBadRequest, "MISSING_INPUT", "Campaign ID and code are required")

	case errors.Is(err, service.ErrInvalidEmail):
		logAttempt("invalid_email")
		h.writeError(w, http.StatusBadRequest, "INVALID_EMAIL", "A valid redeemer email is required")

	default:
		h.logger.Error("redeem_error",
			"campaign_id", campaignID,
			"error", err,
			"duration_ms", float64(duration.Microseconds())/1000,
		)
		h.writeError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "An internal error occurred")
	}
}

// writeError writes a JSON error response for redemption failures.
func (h *RedeemHandler) writeError(w http.ResponseWriter, status int, code, message string) {
	h.setSecurityHeaders(w)
	writeJSON(w, status, dto.ErrorResponse{
		Error: message,
		Code:  code,
	})
}

// setSecurityHeaders applies headers for the public surface.
func (h *RedeemHandler) setSecurityHeaders(w http.ResponseWriter) {
	w.Header().Set("X-Content-Type-Options", "nosniff")
	w.Header().Set("X-Frame-Options", "DENY")
	w.Header().Set("Referrer-Policy", "strict-origin-when-cross-origin")
	w.Header().Set("Cache-Control", "private, max-age=0")
}

// getClientIP extracts the client IP address from the request.
func getClientIP(r *http.Request) string {
	// Check Cloudflare header first
	if ip := r.Header.Get("CF-Connecting-IP"); ip != "" {
		return ip
	}
	// Check X-Forwarded-For
	if ip := r.Header.Get("X-Forwarded-For"); ip != "" {
		// Take the first IP in the chain
		for i := 0; i < len(ip); i++ {
			if ip[i] == ',' {
				return ip[:i]
			}
		}
		return ip
	}
	// Check X-Real-IP
	if ip := r.Header.Get("X-Real-IP"); ip != "" {
		return ip
	}
	// Fall back to RemoteAddr
	return r.RemoteAddr
}
