package cache

import (
	"context"
	"errors"
	"testing"
)

func TestMemoryStore(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()

	if _, err := m.Get(ctx, "CBC"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("Get on empty store = %v, want ErrNotFound", err)
	}

	d := Digest{TestName: "CBC", SummaryText: "hemoglobin carries oxygen"}
	if err := m.Put(ctx, d); err != nil {
		t.Fatalf("Put: %v", err)
	}
	got, err := m.Get(ctx, "CBC")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got != d {
		t.Fatalf("Get = %+v", got)
	}

	// exact-string matching, no normalization
	if _, err := m.Get(ctx, "cbc"); !errors.Is(err, ErrNotFound) {
		t.Fatal("keys must not be case-normalized")
	}

	// last write wins
	_ = m.Put(ctx, Digest{TestName: "CBC", SummaryText: "second"})
	got, _ = m.Get(ctx, "CBC")
	if got.SummaryText != "second" {
		t.Fatalf("SummaryText = %q, want last write", got.SummaryText)
	}
}
