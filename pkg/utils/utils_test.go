package utils

import (
	"strings"
	"testing"
	"time"
)

func TestGenerateIDUnique(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 1000; i++ {
		id := GenerateProducerID()
		if !strings.HasPrefix(id, "producer_") {
			t.Fatalf("unexpected prefix: %s", id)
		}
		if seen[id] {
			t.Fatalf("duplicate id generated: %s", id)
		}
		seen[id] = true
	}
}

func TestGenerateTraceID(t *testing.T) {
	id := GenerateTraceID()
	if len(id) != 32 {
		t.Errorf("trace id length = %d, want 32", len(id))
	}
}

func TestIsExpired(t *testing.T) {
	defer func() { Now = time.Now }()

	base := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	Now = func() time.Time { return base }

	if IsExpired(base.Add(-time.Minute), 2*time.Minute) {
		t.Error("should not be expired within ttl")
	}
	if !IsExpired(base.Add(-3*time.Minute), 2*time.Minute) {
		t.Error("should be expired past ttl")
	}
}

func TestTimestampRoundTrip(t *testing.T) {
	ts := time.Date(2026, 2, 3, 4, 5, 6, 0, time.UTC)
	parsed, err := ParseTimestamp(FormatTimestamp(ts))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if !parsed.Equal(ts) {
		t.Errorf("round trip mismatch: %v != %v", parsed, ts)
	}
}
