// Package id mints identifiers for telemetry records.
//
// Records carry prefixed ULIDs (met_*, alr_*, scr_*): the prefix names the
// record kind in logs, and the ULID part is k-sortable, so record IDs order
// by ingestion time even when recorded_at timestamps collide. Devices keep
// plain UUIDs; their identity is assigned once at registration and never
// needs to sort.
package id

import (
	"crypto/rand"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
)

// Record ID prefixes, one per telemetry kind.
const (
	MetricPrefix     = "met"
	AlertPrefix      = "alr"
	ScreenshotPrefix = "scr"
)

// Generator mints ULIDs from a guarded entropy source.
type Generator struct {
	entropy   io.Reader
	entropyMu sync.Mutex // Protects entropy reader
}

var (
	defaultGenerator *Generator
	once             sync.Once
)

// Default returns the singleton generator instance.
func Default() *Generator {
	once.Do(func() {
		defaultGenerator = NewGenerator()
	})
	return defaultGenerator
}

// NewGenerator creates a generator backed by crypto/rand.
func NewGenerator() *Generator {
	return &Generator{entropy: rand.Reader}
}

// NewGeneratorWithEntropy creates a generator with a custom entropy source.
// Useful for testing with deterministic entropy.
func NewGeneratorWithEntropy(entropy io.Reader) *Generator {
	return &Generator{entropy: entropy}
}

// Generate creates a new ULID.
func (g *Generator) Generate() ulid.ULID {
	g.entropyMu.Lock()
	defer g.entropyMu.Unlock()

	return ulid.MustNew(ulid.Timestamp(time.Now()), g.entropy)
}

// WithPrefix creates a prefixed ULID string.
func (g *Generator) WithPrefix(prefix string) string {
	return prefix + "_" + g.Generate().String()
}

// NewMetricID mints the ID for a metric record.
func NewMetricID() string { return Default().WithPrefix(MetricPrefix) }

// NewAlertID mints the ID for an alert record.
func NewAlertID() string { return Default().WithPrefix(AlertPrefix) }

// NewScreenshotID mints the ID for a screenshot record.
func NewScreenshotID() string { return Default().WithPrefix(ScreenshotPrefix) }

// Parse parses a record ID, with or without its kind prefix.
func Parse(raw string) (ulid.ULID, error) {
	if i := strings.LastIndexByte(raw, '_'); i >= 0 {
		raw = raw[i+1:]
	}
	return ulid.Parse(raw)
}

// IsValid reports whether raw carries a well-formed ULID.
func IsValid(raw string) bool {
	_, err := Parse(raw)
	return err == nil
}

// Timestamp extracts the mint time from a record ID.
func Timestamp(raw string) (time.Time, error) {
	parsed, err := Parse(raw)
	if err != nil {
		return time.Time{}, err
	}
	return ulid.Time(parsed.Time()), nil
}
