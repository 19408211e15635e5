package events

import (
	"strings"
	"testing"
	"time"
)

func TestGenerateVisitorHash_Deterministic(t *testing.T) {
	t.Parallel()

	ip := "192.168.1.100"
	userAgent := "Mozilla/5.0 (Windows NT 10.0; Win64; x64)"
	occurredAt := time.Date(2026, 1, 15, 12, 0, 0, 0, time.UTC)

	hash1 := GenerateVisitorHash(ip, userAgent, occurredAt)
	hash2 := GenerateVisitorHash(ip, userAgent, occurredAt)

	if hash1 != hash2 {
		t.Error("Same inputs should produce same hash")
	}

	// Hash should be 16 hex chars
	if len(hash1) != 16 {
		t.Errorf("Hash length = %d, want 16", len(hash1))
	}
}

func TestGenerateVisitorHash_DailyRotation(t *testing.T) {
	t.Parallel()

	ip := "192.168.1.100"
	userAgent := "Mozilla/5.0"

	day1 := time.Date(2026, 1, 15, 12, 0, 0, 0, time.UTC)
	day2 := time.Date(2026, 1, 16, 12, 0, 0, 0, time.UTC) // Next day

	hash1 := GenerateVisitorHash(ip, userAgent, day1)
	hash2 := GenerateVisitorHash(ip, userAgent, day2)

	if hash1 == hash2 {
		t.Error("Different days should produce different hashes to prevent cross-day tracking")
	}
}

func TestGenerateVisitorHash_SameDayDifferentTime(t *testing.T) {
	t.Parallel()

	ip := "192.168.1.100"
	userAgent := "Mozilla/5.0"

	morning := time.Date(2026, 1, 15, 6, 0, 0, 0, time.UTC)
	evening := time.Date(2026, 1, 15, 18, 0, 0, 0, time.UTC)

	hash1 := GenerateVisitorHash(ip, userAgent, morning)
	hash2 := GenerateVisitorHash(ip, userAgent, evening)

	// Same day should produce same hash regardless of time
	if hash1 != hash2 {
		t.Error("Same day should produce same hash regardless of time")
	}
}

func TestGenerateVisitorHash_DifferentInputs(t *testing.T) {
	t.Parallel()

	occurredAt := time.Date(2026, 1, 15, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name string
		ip1  string
		ua1  string
		ip2  string
		ua2  string
	}{
		{"different IP", "192.168.1.1", "Mozilla/5.0", "192.168.1.2", "Mozilla/5.0"},
		{"different UA", "192.168.1.1", "Chrome/100", "192.168.1.1", "Firefox/100"},
		{"both different", "10.0.0.1", "Safari/15", "10.0.0.2", "Edge/100"},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			hash1 := GenerateVisitorHash(tt.ip1, tt.ua1, occurredAt)
			hash2 := GenerateVisitorHash(tt.ip2, tt.ua2, occurredAt)

			if hash1 == hash2 {
				t.Error("Different inputs should produce different hashes")
			}
		})
	}
}

func TestTruncateMeta(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		input   string
		wantLen int
	}{
		{"short value", "Mozilla/5.0", 11},
		{"exact 500", strings.Repeat("x", 500), 500},
		{"over 500", strings.Repeat("x", 600), 500},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			result := TruncateMeta(tt.input)
			if len(result) != tt.wantLen {
				t.Errorf("TruncateMeta length = %d, want %d", len(result), tt.wantLen)
			}
		})
	}
}

func TestTruncateMeta_PreservesContent(t *testing.T) {
	t.Parallel()

	ua := "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36"
	if result := TruncateMeta(ua); result != ua {
		t.Errorf("Short value should be preserved, got %q", result)
	}
}
