package stores

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/cloudgovern/cloudgovern/pkg/compliance"
	"github.com/cloudgovern/cloudgovern/pkg/condition"
	"github.com/cloudgovern/cloudgovern/pkg/policy"
	"github.com/cloudgovern/cloudgovern/pkg/waiver"
)

func setupTestStore(t *testing.T) *SQLiteStore {
	t.Helper()

	store, err := NewSQLiteStore(Config{Path: ":memory:"})
	if err != nil {
		t.Fatalf("NewSQLiteStore() error = %v", err)
	}

	ctx := context.Background()
	if err := store.Init(ctx); err != nil {
		t.Fatalf("Init() error = %v", err)
	}
	if err := store.Migrate(ctx); err != nil {
		t.Fatalf("Migrate() error = %v", err)
	}

	t.Cleanup(func() {
		_ = store.Close()
	})

	return store
}

func samplePolicy(id string) *policy.Policy {
	now := time.Now().UTC().Truncate(time.Second)
	return &policy.Policy{
		ID:       id,
		Name:     "Sample " + id,
		Type:     "security",
		Enabled:  true,
		Severity: policy.SeverityHigh,
		Rules: []policy.Rule{{
			ID:        "r1",
			Condition: condition.Condition{Kind: condition.KindFieldEquals, Field: "resource.metadata.public", Value: true},
			Action:    policy.ActionDeny,
			Message:   "resource is public",
		}},
		CreatedAt: now,
		UpdatedAt: now,
	}
}

func TestSQLiteStorePolicyCRUD(t *testing.T) {
	ctx := context.Background()
	store := setupTestStore(t)

	p := samplePolicy("no-public")
	if err := store.SavePolicy(ctx, p); err != nil {
		t.Fatalf("SavePolicy() error = %v", err)
	}

	got, err := store.GetPolicy(ctx, "no-public")
	if err != nil {
		t.Fatalf("GetPolicy() error = %v", err)
	}
	if got == nil {
		t.Fatal("GetPolicy() = nil for a stored policy")
	}
	if got.ID != p.ID || got.Severity != p.Severity || len(got.Rules) != 1 {
		t.Errorf("GetPolicy() = %+v", got)
	}
	if got.Rules[0].Condition.Kind != condition.KindFieldEquals {
		t.Errorf("condition round-trip lost kind: %+v", got.Rules[0].Condition)
	}

	// Missing IDs are nil, not an error.
	got, err = store.GetPolicy(ctx, "absent")
	if err != nil {
		t.Fatalf("GetPolicy(absent) error = %v", err)
	}
	if got != nil {
		t.Errorf("GetPolicy(absent) = %+v, want nil", got)
	}

	// Save again with changes; the ID conflict is an update.
	p.Enabled = false
	p.Type = "cost"
	if err := store.SavePolicy(ctx, p); err != nil {
		t.Fatalf("SavePolicy(update) error = %v", err)
	}
	got, err = store.GetPolicy(ctx, "no-public")
	if err != nil {
		t.Fatalf("GetPolicy() error = %v", err)
	}
	if got.Enabled || got.Type != "cost" {
		t.Errorf("update not applied: %+v", got)
	}

	existed, err := store.DeletePolicy(ctx, "no-public")
	if err != nil {
		t.Fatalf("DeletePolicy() error = %v", err)
	}
	if !existed {
		t.Error("DeletePolicy() = false for a stored policy")
	}

	existed, err = store.DeletePolicy(ctx, "no-public")
	if err != nil {
		t.Fatalf("DeletePolicy() error = %v", err)
	}
	if existed {
		t.Error("DeletePolicy() = true for a deleted policy")
	}
}

func TestSQLiteStoreListPoliciesFilter(t *testing.T) {
	ctx := context.Background()
	store := setupTestStore(t)

	security := samplePolicy("b-security")
	cost := samplePolicy("a-cost")
	cost.Type = "cost"
	cost.Severity = policy.SeverityLow
	disabled := samplePolicy("c-disabled")
	disabled.Enabled = false

	for _, p := range []*policy.Policy{security, cost, disabled} {
		if err := store.SavePolicy(ctx, p); err != nil {
			t.Fatalf("SavePolicy(%s) error = %v", p.ID, err)
		}
	}

	all, err := store.ListPolicies(ctx, policy.Filter{})
	if err != nil {
		t.Fatalf("ListPolicies() error = %v", err)
	}
	if len(all) != 3 {
		t.Fatalf("got %d policies, want 3", len(all))
	}
	// Ordered by ID.
	if all[0].ID != "a-cost" || all[1].ID != "b-security" || all[2].ID != "c-disabled" {
		t.Errorf("order = %s, %s, %s", all[0].ID, all[1].ID, all[2].ID)
	}

	byType, err := store.ListPolicies(ctx, policy.Filter{Type: "cost"})
	if err != nil {
		t.Fatalf("ListPolicies(type) error = %v", err)
	}
	if len(byType) != 1 || byType[0].ID != "a-cost" {
		t.Errorf("type filter = %+v", byType)
	}

	bySeverity, err := store.ListPolicies(ctx, policy.Filter{Severity: policy.SeverityHigh})
	if err != nil {
		t.Fatalf("ListPolicies(severity) error = %v", err)
	}
	if len(bySeverity) != 2 {
		t.Errorf("severity filter returned %d, want 2", len(bySeverity))
	}

	enabled := true
	byEnabled, err := store.ListPolicies(ctx, policy.Filter{Enabled: &enabled})
	if err != nil {
		t.Fatalf("ListPolicies(enabled) error = %v", err)
	}
	if len(byEnabled) != 2 {
		t.Errorf("enabled filter returned %d, want 2", len(byEnabled))
	}
}

func TestSQLiteStoreWaivers(t *testing.T) {
	ctx := context.Background()
	store := setupTestStore(t)
	now := time.Now().UTC()

	w := waiver.Waiver{
		ID:         uuid.NewString(),
		TargetID:   "no-public",
		ResourceID: "bucket-1",
		Reason:     "public website bucket",
		ApprovedBy: "security-team",
		ApprovedAt: now,
		ExpiresAt:  now.Add(time.Hour),
	}
	if err := store.Add(ctx, w); err != nil {
		t.Fatalf("Add() error = %v", err)
	}

	// Adding the same pair again replaces the record.
	replacement := w
	replacement.ID = uuid.NewString()
	replacement.Reason = "extended exception"
	replacement.ExpiresAt = now.Add(48 * time.Hour)
	if err := store.Add(ctx, replacement); err != nil {
		t.Fatalf("Add(replacement) error = %v", err)
	}

	got, err := store.Get(ctx, "no-public", "bucket-1")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if got == nil || got.ID != replacement.ID || got.Reason != "extended exception" {
		t.Errorf("Get() = %+v, want the replacing waiver", got)
	}

	all, err := store.List(ctx)
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(all) != 1 {
		t.Errorf("List() has %d waivers, want 1", len(all))
	}

	waived, err := store.IsWaived(ctx, "no-public", "bucket-1", now)
	if err != nil {
		t.Fatalf("IsWaived() error = %v", err)
	}
	if !waived {
		t.Error("IsWaived() = false before expiry")
	}

	waived, err = store.IsWaived(ctx, "no-public", "bucket-1", now.Add(72*time.Hour))
	if err != nil {
		t.Fatalf("IsWaived() error = %v", err)
	}
	if waived {
		t.Error("IsWaived() = true after expiry")
	}

	active, err := store.ListActive(ctx, now.Add(72*time.Hour))
	if err != nil {
		t.Fatalf("ListActive() error = %v", err)
	}
	if len(active) != 0 {
		t.Errorf("ListActive() past expiry has %d waivers, want 0", len(active))
	}

	existed, err := store.Remove(ctx, "no-public", "bucket-1")
	if err != nil {
		t.Fatalf("Remove() error = %v", err)
	}
	if !existed {
		t.Error("Remove() = false for a stored pair")
	}
	existed, err = store.Remove(ctx, "no-public", "bucket-1")
	if err != nil {
		t.Fatalf("Remove() error = %v", err)
	}
	if existed {
		t.Error("Remove() = true for an absent pair")
	}
}

func TestSQLiteStoreReports(t *testing.T) {
	ctx := context.Background()
	store := setupTestStore(t)
	base := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)

	scores := []int{60, 75, 90}
	for i, score := range scores {
		report := &compliance.Report{
			ID:            uuid.NewString(),
			Framework:     "baseline",
			FrameworkName: "CloudGovern Baseline",
			GeneratedAt:   base.AddDate(0, 0, i),
			Score:         score,
			Grade:         compliance.GradeFor(score),
			TotalControls: 4,
			Violations: []policy.Violation{
				{PolicyID: "baseline", RuleID: "c1", ResourceID: "r1", Status: policy.ViolationOpen},
				{PolicyID: "baseline", RuleID: "c2", ResourceID: "r2", Status: policy.ViolationWaived},
			},
		}
		if err := store.SaveReport(ctx, report); err != nil {
			t.Fatalf("SaveReport(%d) error = %v", i, err)
		}
	}

	reports, err := store.ListReports(ctx, "baseline", 2)
	if err != nil {
		t.Fatalf("ListReports() error = %v", err)
	}
	if len(reports) != 2 {
		t.Fatalf("got %d reports, want 2", len(reports))
	}
	// Newest first.
	if reports[0].Score != 90 || reports[1].Score != 75 {
		t.Errorf("order = %d, %d, want 90, 75", reports[0].Score, reports[1].Score)
	}

	got, err := store.GetReport(ctx, reports[0].ID)
	if err != nil {
		t.Fatalf("GetReport() error = %v", err)
	}
	if got == nil || got.Score != 90 || len(got.Violations) != 2 {
		t.Errorf("GetReport() = %+v", got)
	}

	got, err = store.GetReport(ctx, "absent")
	if err != nil {
		t.Fatalf("GetReport(absent) error = %v", err)
	}
	if got != nil {
		t.Errorf("GetReport(absent) = %+v, want nil", got)
	}

	// Trend excludes points before the window and orders oldest first.
	points, err := store.GetTrend(ctx, "baseline", base.AddDate(0, 0, 1))
	if err != nil {
		t.Fatalf("GetTrend() error = %v", err)
	}
	if len(points) != 2 {
		t.Fatalf("got %d trend points, want 2", len(points))
	}
	if points[0].Score != 75 || points[1].Score != 90 {
		t.Errorf("trend order = %d, %d, want 75, 90", points[0].Score, points[1].Score)
	}
	// Only the open violation counts.
	if points[0].OpenViolations != 1 {
		t.Errorf("OpenViolations = %d, want 1", points[0].OpenViolations)
	}
	if points[1].Grade != compliance.GradeA {
		t.Errorf("grade = %s, want A", points[1].Grade)
	}

	other, err := store.GetTrend(ctx, "soc2", time.Time{})
	if err != nil {
		t.Fatalf("GetTrend(other) error = %v", err)
	}
	if len(other) != 0 {
		t.Errorf("trend for an unknown framework has %d points, want 0", len(other))
	}
}

func TestSQLiteStorePoolSettings(t *testing.T) {
	ctx := context.Background()

	store, err := NewSQLiteStore(Config{
		Path:            ":memory:",
		MaxOpenConns:    1,
		MaxIdleConns:    1,
		ConnMaxLifetime: time.Minute,
	})
	if err != nil {
		t.Fatalf("NewSQLiteStore() error = %v", err)
	}
	if err := store.Init(ctx); err != nil {
		t.Fatalf("Init() error = %v", err)
	}
	t.Cleanup(func() {
		_ = store.Close()
	})

	if got := store.db.Stats().MaxOpenConnections; got != 1 {
		t.Errorf("MaxOpenConnections = %d, want configured 1", got)
	}

	// Zero-valued pool fields fall back to the defaults.
	fallback, err := NewSQLiteStore(Config{Path: ":memory:"})
	if err != nil {
		t.Fatalf("NewSQLiteStore() error = %v", err)
	}
	if err := fallback.Init(ctx); err != nil {
		t.Fatalf("Init() error = %v", err)
	}
	t.Cleanup(func() {
		_ = fallback.Close()
	})

	if got := fallback.db.Stats().MaxOpenConnections; got != 25 {
		t.Errorf("MaxOpenConnections = %d, want default 25", got)
	}
}
