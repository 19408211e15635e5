// Package urlparse extracts campaign identifiers and redemption codes
// from redemption landing URLs.
//
// A single grammar applies everywhere: campaign_id and code query
// parameters, validated against configurable patterns. Parsing never
// returns an error; malformed input yields a result with Valid=false.
package urlparse

import (
	"fmt"
	"net/url"
	"regexp"
	"strings"
)

// Default validation patterns. The code pattern admits an optional
// campaign prefix ("H2-XXXXXXX") alongside plain codes, matching every
// generator preset.
var (
	defaultCampaignIDPattern = regexp.MustCompile(`^[a-zA-Z0-9_-]{1,50}$`)
	defaultCodePattern       = regexp.MustCompile(`^(?:[A-Z0-9]{1,8}-)?[A-Z0-9]{4,32}$`)
)

// Query parameter names.
const (
	ParamCampaignID = "campaign_id"
	ParamCode       = "code"
)

// syntheticBase makes scheme-less and path-only inputs parseable by
// net/url so query extraction works uniformly across input shapes.
const syntheticBase = "http://redemption.invalid"

// Config controls validation. Nil pattern fields fall back to the
// defaults above.
type Config struct {
	CampaignIDPattern *regexp.Regexp
	CodePattern       *regexp.Regexp
	// StrictParams turns unknown query parameters into warnings.
	// They are still captured; warnings never flip validity.
	StrictParams bool
}

func (c Config) withDefaults() Config {
	if c.CampaignIDPattern == nil {
		c.CampaignIDPattern = defaultCampaignIDPattern
	}
	if c.CodePattern == nil {
		c.CodePattern = defaultCodePattern
	}
	return c
}

// Result is the normalized output of Parse.
type Result struct {
	CampaignID  string            `json:"campaign_id"`
	UniqueCode  string            `json:"code"`
	ExtraParams map[string]string `json:"extra_params,omitempty"`
	OriginalURL string            `json:"original_url"`
	Valid       bool              `json:"valid"`
}

// Parse extracts campaign_id and code from rawURL.
//
// Accepted shapes: absolute URL, path+query ("/redeem?..."), bare
// query ("?..."), and host-relative strings without a scheme. Valid is
// true only when both required parameters are present and match their
// patterns.
func Parse(rawURL string, cfg Config) Result {
	cfg = cfg.withDefaults()
	result := Result{OriginalURL: rawURL}

	values, ok := extractQuery(rawURL)
	if !ok {
		return result
	}

	campaignID := strings.TrimSpace(values.Get(ParamCampaignID))
	code := strings.TrimSpace(values.Get(ParamCode))

	result.CampaignID = campaignID
	result.UniqueCode = code
	result.ExtraParams = extraParams(values)
	result.Valid = campaignID != "" && cfg.CampaignIDPattern.MatchString(campaignID) &&
		code != "" && cfg.CodePattern.MatchString(code)

	return result
}

// Validation is the itemized output of Validate, for landing pages
// that need human-readable feedback.
type Validation struct {
	Valid    bool     `json:"valid"`
	Errors   []string `json:"errors,omitempty"`
	Warnings []string `json:"warnings,omitempty"`
	Data     *Result  `json:"data,omitempty"`
}

// misnamings maps common wrong parameter names to the expected ones.
var misnamings = map[string]string{
	"campaign":    ParamCampaignID,
	"campaignid":  ParamCampaignID,
	"unique_code": ParamCode,
	"coupon":      ParamCode,
}

// Validate parses rawURL and reports every problem it finds rather
// than stopping at the first. Data is populated only when valid.
func Validate(rawURL string, cfg Config) Validation {
	cfg = cfg.withDefaults()

	values, ok := extractQuery(rawURL)
	if !ok {
		return Validation{Errors: []string{"URL could not be parsed"}}
	}

	var v Validation

	campaignID := strings.TrimSpace(values.Get(ParamCampaignID))
	switch {
	case campaignID == "":
		v.Errors = append(v.Errors, "Missing required parameter: "+ParamCampaignID)
	case !cfg.CampaignIDPattern.MatchString(campaignID):
		v.Errors = append(v.Errors, fmt.Sprintf("Invalid campaign_id format: %q", campaignID))
	}

	code := strings.TrimSpace(values.Get(ParamCode))
	switch {
	case code == "":
		v.Errors = append(v.Errors, "Missing required parameter: "+ParamCode)
	case !cfg.CodePattern.MatchString(code):
		v.Errors = append(v.Errors, fmt.Sprintf("Invalid code format: %q", code))
	}

	for name := range values {
		if name == ParamCampaignID || name == ParamCode {
			continue
		}
		if want, known := misnamings[strings.ToLower(name)]; known {
			v.Warnings = append(v.Warnings, fmt.Sprintf("Parameter %q looks misnamed; did you mean %q?", name, want))
		} else if cfg.StrictParams {
			v.Warnings = append(v.Warnings, fmt.Sprintf("Unexpected parameter: %q", name))
		}
	}

	v.Valid = len(v.Errors) == 0
	if v.Valid {
		data := Result{
			CampaignID:  campaignID,
			UniqueCode:  code,
			ExtraParams: extraParams(values),
			OriginalURL: rawURL,
			Valid:       true,
		}
		v.Data = &data
	}

	return v
}

// Build assembles a redemption landing path for the given pair. The
// inverse of Parse; rejects values that Parse would refuse.
func Build(campaignID, code string, cfg Config) (string, error) {
	cfg = cfg.withDefaults()

	if !cfg.CampaignIDPattern.MatchString(campaignID) {
		return "", fmt.Errorf("campaign id %q does not match pattern", campaignID)
	}
	if !cfg.CodePattern.MatchString(code) {
		return "", fmt.Errorf("code %q does not match pattern", code)
	}

	q := url.Values{}
	q.Set(ParamCampaignID, campaignID)
	q.Set(ParamCode, code)
	return "/redeem?" + q.Encode(), nil
}

// extractQuery normalizes the four accepted input shapes into query
// values. Returns false when the input cannot be interpreted as any
// URL-like shape.
func extractQuery(rawURL string) (url.Values, bool) {
	raw := strings.TrimSpace(rawURL)
	if raw == "" {
		return nil, false
	}

	// Bare query string.
	if strings.HasPrefix(raw, "?") {
		values, err := url.ParseQuery(raw[1:])
		if err != nil {
			return nil, false
		}
		return values, true
	}

	parsed, err := url.Parse(raw)
	if err != nil {
		return nil, false
	}

	// Scheme-less host-relative input ("example.com/redeem?...")
	// parses as a path; re-parse against a synthetic base so the
	// query survives either way.
	if parsed.Scheme == "" {
		base, _ := url.Parse(syntheticBase)
		parsed = base.ResolveReference(parsed)
	}

	values, err := url.ParseQuery(parsed.RawQuery)
	if err != nil {
		return nil, false
	}
	return values, true
}

// extraParams collects everything besides the two required parameters.
// Returns nil when there is nothing extra. Multi-valued parameters
// keep their first value.
func extraParams(values url.Values) map[string]string {
	var extra map[string]string
	for name, vals := range values {
		if name == ParamCampaignID || name == ParamCode {
			continue
		}
		if extra == nil {
			extra = make(map[string]string)
		}
		if len(vals) > 0 {
			extra[name] = vals[0]
		}
	}
	return extra
}
