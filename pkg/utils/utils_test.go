package utils

import (
	"testing"
	"time"

	"github.com/oklog/ulid/v2"
)

func TestNewULIDFromTimestamp(t *testing.T) {
	u := New()
	at := time.Date(2025, 3, 14, 9, 26, 53, 0, time.UTC)

	id, err := u.NewULIDFromTimestamp(at)
	if err != nil {
		t.Fatalf("NewULIDFromTimestamp failed: %v", err)
	}

	parsed, err := ulid.Parse(id)
	if err != nil {
		t.Fatalf("Expected a valid ULID, got %q: %v", id, err)
	}
	if got := ulid.Time(parsed.Time()); !got.Equal(at) {
		t.Errorf("Expected timestamp %v, got %v", at, got)
	}
}
