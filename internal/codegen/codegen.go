// Package codegen generates and verifies redemption codes.
//
// Codes are drawn uniformly from a configured alphabet using
// crypto/rand. Uniqueness within a batch is enforced with an in-memory
// set; the database unique index on unique_code is the backstop across
// batches.
package codegen

import (
	"crypto/rand"
	"errors"
	"fmt"
	"math"
	"math/big"
	"strings"
	"time"
)

// Generation errors.
var (
	ErrInvalidCount        = errors.New("code count must be positive")
	ErrBatchTooLarge       = errors.New("code count exceeds maximum batch size")
	ErrGenerationExhausted = errors.New("retry budget exhausted before generating requested codes")
	ErrInvalidConfig       = errors.New("invalid generation config")
)

const (
	// MaxBatchSize is the hard cap on codes per GenerateBulk call.
	MaxBatchSize = 50000

	// retryFactor bounds total candidate draws to count*retryFactor.
	// Misconfigured tiny alphabets fail fast instead of spinning.
	retryFactor = 100
)

// Config describes the shape of generated codes. Every field's effect
// is explicit; zero values are filled in by withDefaults.
type Config struct {
	// Length is the number of random characters, excluding prefix
	// and separator.
	Length int
	// Alphabet is the character set candidates are drawn from.
	Alphabet string
	// Prefix is prepended verbatim to every code.
	Prefix string
	// Separator sits between prefix and random part. Ignored when
	// Prefix is empty.
	Separator string
	// Preset names the preset this config came from, for metadata.
	Preset string
}

const standardAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

// PresetStandard is the default shape: 8 uppercase alphanumerics.
func PresetStandard() Config {
	return Config{
		Length:   8,
		Alphabet: standardAlphabet,
		Preset:   "standard",
	}
}

// PresetCampaign produces prefixed codes, e.g. "H2-XXXXXXX".
func PresetCampaign(prefix string) Config {
	return Config{
		Length:    7,
		Alphabet:  standardAlphabet,
		Prefix:    strings.ToUpper(prefix),
		Separator: "-",
		Preset:    "campaign",
	}
}

// PresetPIN produces short numeric codes for voice/SMS entry.
func PresetPIN() Config {
	return Config{
		Length:   6,
		Alphabet: "0123456789",
		Preset:   "pin",
	}
}

// withDefaults fills zero-valued fields from the standard preset.
func (c Config) withDefaults() Config {
	if c.Length == 0 {
		c.Length = 8
	}
	if c.Alphabet == "" {
		c.Alphabet = standardAlphabet
	}
	if c.Preset == "" {
		c.Preset = "custom"
	}
	return c
}

// validate rejects configs that cannot produce well-formed codes.
func (c Config) validate() error {
	if c.Length < 1 {
		return fmt.Errorf("%w: length %d", ErrInvalidConfig, c.Length)
	}
	if len(c.Alphabet) < 2 {
		return fmt.Errorf("%w: alphabet needs at least 2 characters", ErrInvalidConfig)
	}
	seen := make(map[rune]struct{}, len(c.Alphabet))
	for _, r := range c.Alphabet {
		if _, dup := seen[r]; dup {
			return fmt.Errorf("%w: alphabet has duplicate character %q", ErrInvalidConfig, r)
		}
		seen[r] = struct{}{}
	}
	return nil
}

// keyspace returns the number of distinct codes this config can
// produce, capped at MaxInt64.
func (c Config) keyspace() int64 {
	space := math.Pow(float64(len(c.Alphabet)), float64(c.Length))
	if space > float64(math.MaxInt64) {
		return math.MaxInt64
	}
	return int64(space)
}

// BatchResult is the outcome of a successful GenerateBulk call.
type BatchResult struct {
	Codes     []string
	Generated int
	Metadata  BatchMetadata
}

// BatchMetadata carries operator-facing details about a batch.
type BatchMetadata struct {
	Preset     string
	Length     int
	Alphabet   int // alphabet size
	Collisions int // redraws caused by in-batch duplicates
	Elapsed    time.Duration
}

// GenerateBulk produces count unique codes under cfg.
//
// Candidates are drawn until count distinct codes are accepted or the
// retry budget (count*retryFactor draws) is spent, whichever comes
// first. The returned slice is guaranteed duplicate-free and exactly
// count long.
func GenerateBulk(count int, cfg Config) (*BatchResult, error) {
	if count <= 0 {
		return nil, fmt.Errorf("%w: got %d", ErrInvalidCount, count)
	}
	if count > MaxBatchSize {
		return nil, fmt.Errorf("%w: %d > %d", ErrBatchTooLarge, count, MaxBatchSize)
	}

	cfg = cfg.withDefaults()
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	if int64(count) > cfg.keyspace() {
		return nil, fmt.Errorf("%w: keyspace %d smaller than requested count %d",
			ErrGenerationExhausted, cfg.keyspace(), count)
	}

	start := time.Now()
	budget := count * retryFactor
	seen := make(map[string]struct{}, count)
	codes := make([]string, 0, count)
	collisions := 0

	for draws := 0; len(codes) < count; draws++ {
		if draws >= budget {
			return nil, fmt.Errorf("%w: %d draws produced %d of %d codes",
				ErrGenerationExhausted, draws, len(codes), count)
		}
		candidate, err := draw(cfg)
		if err != nil {
			return nil, fmt.Errorf("draw candidate: %w", err)
		}
		if _, dup := seen[candidate]; dup {
			collisions++
			continue
		}
		seen[candidate] = struct{}{}
		codes = append(codes, candidate)
	}

	return &BatchResult{
		Codes:     codes,
		Generated: len(codes),
		Metadata: BatchMetadata{
			Preset:     cfg.Preset,
			Length:     cfg.Length,
			Alphabet:   len(cfg.Alphabet),
			Collisions: collisions,
			Elapsed:    time.Since(start),
		},
	}, nil
}

// draw builds one candidate code from cfg using crypto/rand.
func draw(cfg Config) (string, error) {
	var b strings.Builder
	b.Grow(len(cfg.Prefix) + len(cfg.Separator) + cfg.Length)

	if cfg.Prefix != "" {
		b.WriteString(cfg.Prefix)
		b.WriteString(cfg.Separator)
	}

	max := big.NewInt(int64(len(cfg.Alphabet)))
	for i := 0; i < cfg.Length; i++ {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", err
		}
		b.WriteByte(cfg.Alphabet[n.Int64()])
	}

	return b.String(), nil
}
