package waiver

import (
	"context"
	"testing"
	"time"
)

func TestMemoryStoreAddReplaces(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	now := time.Now()

	first := Waiver{
		ID:         "w1",
		TargetID:   "no-public-buckets",
		ResourceID: "bucket-1",
		Reason:     "initial exception",
		ExpiresAt:  now.Add(time.Hour),
	}
	if err := store.Add(ctx, first); err != nil {
		t.Fatalf("Add() error = %v", err)
	}

	// Same pair, later expiry. Last write wins.
	second := first
	second.ID = "w2"
	second.Reason = "extended exception"
	second.ExpiresAt = now.Add(48 * time.Hour)
	if err := store.Add(ctx, second); err != nil {
		t.Fatalf("Add() error = %v", err)
	}

	got, err := store.Get(ctx, "no-public-buckets", "bucket-1")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if got == nil || got.ID != "w2" || got.Reason != "extended exception" {
		t.Errorf("Get() = %+v, want the replacing waiver", got)
	}

	all, err := store.List(ctx)
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(all) != 1 {
		t.Errorf("List() has %d waivers, want 1", len(all))
	}
}

func TestMemoryStoreAddAssignsID(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	if err := store.Add(ctx, Waiver{TargetID: "t", ResourceID: "r"}); err != nil {
		t.Fatalf("Add() error = %v", err)
	}
	got, err := store.Get(ctx, "t", "r")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if got.ID == "" {
		t.Error("Add() did not assign an ID")
	}
}

func TestMemoryStoreRemove(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	if err := store.Add(ctx, Waiver{ID: "w1", TargetID: "t", ResourceID: "r"}); err != nil {
		t.Fatalf("Add() error = %v", err)
	}

	existed, err := store.Remove(ctx, "t", "r")
	if err != nil {
		t.Fatalf("Remove() error = %v", err)
	}
	if !existed {
		t.Error("Remove() = false for a stored pair")
	}

	existed, err = store.Remove(ctx, "t", "r")
	if err != nil {
		t.Fatalf("Remove() error = %v", err)
	}
	if existed {
		t.Error("Remove() = true for an absent pair")
	}

	got, err := store.Get(ctx, "t", "r")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if got != nil {
		t.Errorf("Get() after remove = %+v, want nil", got)
	}
}

func TestMemoryStoreIsWaivedExpiry(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	expiry := time.Date(2026, 8, 24, 12, 0, 0, 0, time.UTC)

	err := store.Add(ctx, Waiver{
		ID:         "w1",
		TargetID:   "t",
		ResourceID: "r",
		ExpiresAt:  expiry,
	})
	if err != nil {
		t.Fatalf("Add() error = %v", err)
	}

	tests := []struct {
		name string
		now  time.Time
		want bool
	}{
		{"before expiry", expiry.Add(-time.Second), true},
		{"exactly at expiry", expiry, false},
		{"after expiry", expiry.Add(time.Second), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := store.IsWaived(ctx, "t", "r", tt.now)
			if err != nil {
				t.Fatalf("IsWaived() error = %v", err)
			}
			if got != tt.want {
				t.Errorf("IsWaived(%s) = %v, want %v", tt.name, got, tt.want)
			}
		})
	}

	waived, err := store.IsWaived(ctx, "t", "unknown-resource", expiry.Add(-time.Hour))
	if err != nil {
		t.Fatalf("IsWaived() error = %v", err)
	}
	if waived {
		t.Error("IsWaived() = true for an unknown pair")
	}
}

func TestMemoryStoreListActive(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	now := time.Now()

	waivers := []Waiver{
		{ID: "a", TargetID: "policy-a", ResourceID: "r1", ExpiresAt: now.Add(time.Hour)},
		{ID: "b", TargetID: "policy-b", ResourceID: "r1", ExpiresAt: now.Add(-time.Hour)},
		{ID: "c", TargetID: "policy-c", ResourceID: "r2", ExpiresAt: now.Add(24 * time.Hour)},
	}
	for _, w := range waivers {
		if err := store.Add(ctx, w); err != nil {
			t.Fatalf("Add(%s) error = %v", w.ID, err)
		}
	}

	active, err := store.ListActive(ctx, now)
	if err != nil {
		t.Fatalf("ListActive() error = %v", err)
	}
	if len(active) != 2 {
		t.Fatalf("ListActive() has %d waivers, want 2", len(active))
	}
	// Ordered by (target, resource).
	if active[0].TargetID != "policy-a" || active[1].TargetID != "policy-c" {
		t.Errorf("ListActive() order = %s, %s", active[0].TargetID, active[1].TargetID)
	}

	all, err := store.List(ctx)
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(all) != 3 {
		t.Errorf("List() has %d waivers, want 3 including expired", len(all))
	}
}
