package codegen

import (
	"fmt"
	"strings"
)

// UniquenessReport is the result of a post-hoc duplicate scan.
type UniquenessReport struct {
	Unique      bool
	Total       int
	UniqueCount int
	// Duplicates lists each value that appears more than once, one
	// entry per distinct value, in first-seen order.
	Duplicates []string
}

// VerifyUniqueness scans codes for duplicates. It is a pure check and
// works on externally supplied batches as well as generator output.
func VerifyUniqueness(codes []string) UniquenessReport {
	freq := make(map[string]int, len(codes))
	order := make([]string, 0, len(codes))

	for _, code := range codes {
		if freq[code] == 0 {
			order = append(order, code)
		}
		freq[code]++
	}

	var dups []string
	for _, code := range order {
		if freq[code] > 1 {
			dups = append(dups, code)
		}
	}

	return UniquenessReport{
		Unique:      len(dups) == 0,
		Total:       len(codes),
		UniqueCount: len(order),
		Duplicates:  dups,
	}
}

// FormatReport is the result of validating a single code against a
// generation config.
type FormatReport struct {
	Valid  bool
	Errors []string
}

// ValidateFormat checks that code matches the shape cfg generates:
// required prefix and separator, exact random-part length, and every
// character drawn from the alphabet. Used as a post-generation
// self-check and to vet imported codes.
func ValidateFormat(code string, cfg Config) FormatReport {
	cfg = cfg.withDefaults()

	var errs []string

	body := code
	if cfg.Prefix != "" {
		lead := cfg.Prefix + cfg.Separator
		if !strings.HasPrefix(code, lead) {
			errs = append(errs, fmt.Sprintf("code must start with %q", lead))
			// Can't meaningfully check the rest without the prefix.
			return FormatReport{Valid: false, Errors: errs}
		}
		body = strings.TrimPrefix(code, lead)
	}

	if len(body) != cfg.Length {
		errs = append(errs, fmt.Sprintf("expected %d characters after prefix, got %d", cfg.Length, len(body)))
	}

	for i := 0; i < len(body); i++ {
		if !strings.ContainsRune(cfg.Alphabet, rune(body[i])) {
			errs = append(errs, fmt.Sprintf("character %q at position %d not in alphabet", body[i], i))
		}
	}

	return FormatReport{Valid: len(errs) == 0, Errors: errs}
}
