package id

import (
	"strings"
	"sync"
	"testing"
	"time"
)

func TestGenerateUnique(t *testing.T) {
	gen := NewGenerator()

	id1 := gen.Generate()
	id2 := gen.Generate()

	if id1.String() == id2.String() {
		t.Error("Generated IDs should be unique")
	}
}

func TestRecordIDFormat(t *testing.T) {
	ids := map[string]string{
		MetricPrefix:     NewMetricID(),
		AlertPrefix:      NewAlertID(),
		ScreenshotPrefix: NewScreenshotID(),
	}

	for prefix, recordID := range ids {
		parts := strings.Split(recordID, "_")
		if len(parts) != 2 {
			t.Errorf("ID should have format 'prefix_ulid', got: %s", recordID)
		}

		if parts[0] != prefix {
			t.Errorf("Expected prefix '%s', got '%s' in ID: %s", prefix, parts[0], recordID)
		}

		if len(parts[1]) != 26 {
			t.Errorf("ULID should be 26 characters, got %d in ID: %s", len(parts[1]), recordID)
		}
	}
}

func TestParseStripsPrefix(t *testing.T) {
	recordID := NewMetricID()

	parsed, err := Parse(recordID)
	if err != nil {
		t.Fatalf("Failed to parse prefixed ID: %v", err)
	}

	bare := strings.TrimPrefix(recordID, MetricPrefix+"_")
	if parsed.String() != bare {
		t.Errorf("Parsed ULID doesn't match ID body: %s != %s", parsed.String(), bare)
	}
}

func TestIsValid(t *testing.T) {
	if !IsValid(NewAlertID()) {
		t.Error("Minted record ID should be valid")
	}

	if !IsValid(Default().Generate().String()) {
		t.Error("Bare ULID should be valid")
	}

	invalidIDs := []string{
		"",
		"invalid",
		"1234567890",
		"met_",
		"zzzzzzzzzzzzzzzzzzzzzzzzzzz", // Invalid characters
	}

	for _, raw := range invalidIDs {
		if IsValid(raw) {
			t.Errorf("ID should be invalid: %s", raw)
		}
	}
}

func TestTimestamp(t *testing.T) {
	before := time.Now()
	recordID := NewScreenshotID()
	after := time.Now()

	ts, err := Timestamp(recordID)
	if err != nil {
		t.Fatalf("Failed to extract timestamp: %v", err)
	}

	// ULID timestamps have millisecond precision, so allow small variance
	beforeMs := before.UnixMilli()
	afterMs := after.UnixMilli()
	tsMs := ts.UnixMilli()

	if tsMs < beforeMs || tsMs > afterMs {
		t.Errorf("Timestamp should be between %d and %d ms, got %d ms", beforeMs, afterMs, tsMs)
	}
}

func TestLexicographicSorting(t *testing.T) {
	// Generate IDs with delays to ensure different timestamps
	ids := make([]string, 5)
	for i := 0; i < 5; i++ {
		ids[i] = NewMetricID()
		time.Sleep(2 * time.Millisecond)
	}

	// Same prefix, so the whole string is k-sortable
	for i := 1; i < len(ids); i++ {
		if ids[i] <= ids[i-1] {
			t.Errorf("IDs should be lexicographically sorted: %s should be > %s", ids[i], ids[i-1])
		}
	}
}

func TestConcurrentGeneration(t *testing.T) {
	gen := NewGenerator()

	const goroutines = 50
	const idsPerGoroutine = 100

	var wg sync.WaitGroup
	idChan := make(chan string, goroutines*idsPerGoroutine)

	for i := 0; i < goroutines; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < idsPerGoroutine; j++ {
				idChan <- gen.Generate().String()
			}
		}()
	}

	wg.Wait()
	close(idChan)

	seen := make(map[string]bool)
	count := 0
	for raw := range idChan {
		if seen[raw] {
			t.Errorf("Duplicate ID found in concurrent generation: %s", raw)
		}
		seen[raw] = true
		count++
	}

	expected := goroutines * idsPerGoroutine
	if count != expected {
		t.Errorf("Expected %d unique IDs, got %d", expected, count)
	}
}

func TestDefaultGenerator(t *testing.T) {
	gen1 := Default()
	gen2 := Default()

	if gen1 != gen2 {
		t.Error("Default() should return the same instance")
	}
}

func BenchmarkGenerate(b *testing.B) {
	gen := NewGenerator()

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = gen.Generate()
	}
}

func BenchmarkNewMetricID(b *testing.B) {
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = NewMetricID()
	}
}
