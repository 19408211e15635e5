package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/redeemly/redeemly/internal/handler/dto"
	"github.com/redeemly/redeemly/internal/urlparse"
)

// ParseHandler exposes landing-URL validation to integrators.
type ParseHandler struct {
	logger *slog.Logger
}

// NewParseHandler creates a new ParseHandler.
func NewParseHandler(logger *slog.Logger) *ParseHandler {
	return &ParseHandler{logger: logger}
}

// parseRequest represents the request body for URL validation.
type parseRequest struct {
	URL string `json:"url"`
	// Strict flags unexpected query parameters as warnings.
	Strict bool `json:"strict,omitempty"`
}

// Validate handles POST /api/v1/parse. The response always has status
// 200; a malformed URL is a valid answer, not a request error.
func (h *ParseHandler) Validate(w http.ResponseWriter, r *http.Request) {
	var req parseRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, dto.ErrorResponse{
			Error: "Invalid request body",
			Code:  "INVALID_JSON",
		})
		return
	}

	validation := urlparse.Validate(req.URL, urlparse.Config{StrictParams: req.Strict})

	writeJSON(w, http.StatusOK, validation)
}
