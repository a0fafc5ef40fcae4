package policy

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/cloudgovern/cloudgovern/pkg/condition"
	"github.com/cloudgovern/cloudgovern/pkg/resource"
	"github.com/cloudgovern/cloudgovern/pkg/waiver"
)

func testEngine(opts ...Option) *Engine {
	return NewEngine(zerolog.New(nil).Level(zerolog.Disabled), opts...)
}

func publicBucketInput() *resource.EvaluationInput {
	return &resource.EvaluationInput{
		Resource: &resource.Resource{
			ID:       "bucket-1",
			Type:     "aws_s3_bucket",
			Provider: "aws",
			Tags:     map[string]string{},
			Metadata: map[string]interface{}{"public": true},
		},
	}
}

func TestEvaluateNoShortCircuit(t *testing.T) {
	e := testEngine()

	p := Policy{
		ID:      "bucket-hygiene",
		Name:    "Bucket hygiene",
		Enabled: true,
		Rules: []Rule{
			{
				ID:        "no-public",
				Condition: condition.Condition{Kind: condition.KindFieldEquals, Field: "resource.metadata.public", Value: true},
				Action:    ActionDeny,
				Message:   "public buckets are not allowed",
			},
			{
				ID:        "owner-tag",
				Condition: condition.Condition{Kind: condition.KindTagMissing, Key: "Owner"},
				Action:    ActionWarn,
				Message:   "bucket has no Owner tag",
			},
			{
				ID:        "audit-note",
				Condition: condition.Condition{Kind: condition.KindResourceType, Value: "aws_s3_bucket"},
				Action:    ActionNotify,
				Message:   "bucket change recorded",
			},
		},
	}

	result := e.Evaluate(&p, publicBucketInput())

	if result.Passed || !result.Denied {
		t.Fatalf("result = passed %v denied %v, want denied", result.Passed, result.Denied)
	}
	if len(result.RuleResults) != 3 {
		t.Fatalf("got %d rule results, want 3", len(result.RuleResults))
	}
	for _, rr := range result.RuleResults {
		if !rr.Fired {
			t.Errorf("rule %s did not fire", rr.RuleID)
		}
	}
	// The deny in rule one must not suppress the later warning and
	// notification.
	if len(result.Warnings) != 1 || result.Warnings[0] != "bucket has no Owner tag" {
		t.Errorf("warnings = %v, want the owner-tag warning", result.Warnings)
	}
	if len(result.Notifications) != 1 {
		t.Errorf("notifications = %v, want one entry", result.Notifications)
	}
}

func TestEvaluateRequireApproval(t *testing.T) {
	e := testEngine()

	p := Policy{
		ID:      "delete-gate",
		Enabled: true,
		Rules: []Rule{{
			ID:        "mass-delete",
			Condition: condition.Condition{Kind: condition.KindFieldGT, Field: "plan.totalDeletes", Value: 5},
			Action:    ActionRequireApproval,
			Message:   "large delete needs signoff",
		}},
	}

	result := e.Evaluate(&p, &resource.EvaluationInput{Plan: &resource.PlanSummary{TotalDeletes: 8}})
	if !result.Passed {
		t.Error("require_approval alone should not deny")
	}
	if !result.ApprovalRequired {
		t.Error("ApprovalRequired not set")
	}

	result = e.Evaluate(&p, &resource.EvaluationInput{Plan: &resource.PlanSummary{TotalDeletes: 2}})
	if result.ApprovalRequired {
		t.Error("ApprovalRequired set when the rule did not fire")
	}
}

func TestEvaluateAllDenyWins(t *testing.T) {
	e := testEngine()

	policies := []Policy{
		{
			ID:      "passing",
			Enabled: true,
			Rules: []Rule{{
				ID:        "never-fires",
				Condition: condition.Condition{Kind: condition.KindProvider, Value: "gcp"},
				Action:    ActionDeny,
			}},
		},
		{
			ID:      "warning-only",
			Enabled: true,
			Rules: []Rule{{
				ID:        "always-warns",
				Condition: condition.Condition{Kind: condition.KindProvider, Value: "aws"},
				Action:    ActionWarn,
				Message:   "aws resource touched",
			}},
		},
		{
			ID:      "denying",
			Name:    "Deny public",
			Enabled: true,
			Rules: []Rule{{
				ID:        "no-public",
				Condition: condition.Condition{Kind: condition.KindFieldEquals, Field: "resource.metadata.public", Value: true},
				Action:    ActionDeny,
				Message:   "public buckets are not allowed",
			}},
		},
	}

	agg := e.EvaluateAll(context.Background(), policies, publicBucketInput())

	if agg.Allowed || !agg.Denied {
		t.Fatalf("aggregate = allowed %v denied %v, want denied", agg.Allowed, agg.Denied)
	}
	if agg.TotalPolicies != 3 || agg.PassedPolicies != 2 || agg.FailedPolicies != 1 {
		t.Errorf("counts = %d/%d/%d, want 3/2/1", agg.TotalPolicies, agg.PassedPolicies, agg.FailedPolicies)
	}
	if len(agg.Denials) != 1 {
		t.Fatalf("got %d denials, want 1", len(agg.Denials))
	}
	d := agg.Denials[0]
	if d.PolicyID != "denying" || d.RuleID != "no-public" || d.PolicyName != "Deny public" {
		t.Errorf("denial = %+v", d)
	}
	if len(agg.Warnings) != 1 {
		t.Errorf("warnings = %v, want the aws warning despite the deny", agg.Warnings)
	}
}

func TestEvaluateAllSkipsDisabled(t *testing.T) {
	e := testEngine()

	policies := []Policy{
		{
			ID:      "disabled-deny",
			Enabled: false,
			Rules: []Rule{{
				ID:        "always",
				Condition: condition.Condition{Kind: condition.KindFieldExists, Field: "resource.id"},
				Action:    ActionDeny,
			}},
		},
		{
			ID:      "enabled-pass",
			Enabled: true,
			Rules: []Rule{{
				ID:        "never",
				Condition: condition.Condition{Kind: condition.KindProvider, Value: "gcp"},
				Action:    ActionDeny,
			}},
		},
	}

	agg := e.EvaluateAll(context.Background(), policies, publicBucketInput())

	if !agg.Allowed {
		t.Error("disabled policy denied the operation")
	}
	// Disabled policies contribute nothing, including to the count.
	if agg.TotalPolicies != 1 {
		t.Errorf("TotalPolicies = %d, want 1", agg.TotalPolicies)
	}
}

func TestEvaluateAllEmpty(t *testing.T) {
	e := testEngine()
	agg := e.EvaluateAll(context.Background(), nil, publicBucketInput())
	if !agg.Allowed || agg.TotalPolicies != 0 {
		t.Errorf("empty policy set: allowed %v total %d, want allowed with 0", agg.Allowed, agg.TotalPolicies)
	}
}

// failingWaiverStore errors on lookup so scans can prove the failure is
// propagated rather than read as "not waived".
type failingWaiverStore struct{}

var errWaiverStore = errors.New("waiver store unavailable")

func (failingWaiverStore) Add(context.Context, waiver.Waiver) error { return errWaiverStore }
func (failingWaiverStore) Remove(context.Context, string, string) (bool, error) {
	return false, errWaiverStore
}
func (failingWaiverStore) Get(context.Context, string, string) (*waiver.Waiver, error) {
	return nil, errWaiverStore
}
func (failingWaiverStore) List(context.Context) ([]waiver.Waiver, error) {
	return nil, errWaiverStore
}
func (failingWaiverStore) ListActive(context.Context, time.Time) ([]waiver.Waiver, error) {
	return nil, errWaiverStore
}
func (failingWaiverStore) IsWaived(context.Context, string, string, time.Time) (bool, error) {
	return false, errWaiverStore
}

func scanPolicies() []Policy {
	return []Policy{
		{
			ID:                 "no-public-buckets",
			Name:               "No public buckets",
			Enabled:            true,
			Severity:           SeverityCritical,
			AutoAttachPatterns: []string{"type:aws_s3_bucket"},
			Rules: []Rule{{
				ID:        "public",
				Condition: condition.Condition{Kind: condition.KindFieldEquals, Field: "resource.metadata.public", Value: true},
				Action:    ActionDeny,
				Message:   "bucket is public",
			}},
		},
		{
			ID:                 "instance-only",
			Enabled:            true,
			AutoAttachPatterns: []string{"type:aws_instance"},
			Rules: []Rule{{
				ID:        "always",
				Condition: condition.Condition{Kind: condition.KindFieldExists, Field: "resource.id"},
				Action:    ActionWarn,
				Message:   "instance scanned",
			}},
		},
	}
}

func scanResources() []resource.Resource {
	return []resource.Resource{
		{
			ID:       "bucket-public",
			Type:     "aws_s3_bucket",
			Provider: "aws",
			Metadata: map[string]interface{}{"public": true},
		},
		{
			ID:       "bucket-private",
			Type:     "aws_s3_bucket",
			Provider: "aws",
			Metadata: map[string]interface{}{"public": false},
		},
	}
}

func TestScanResourcesScopeFilter(t *testing.T) {
	e := testEngine()

	violations, err := e.ScanResources(context.Background(), scanPolicies(), scanResources())
	if err != nil {
		t.Fatalf("ScanResources() error = %v", err)
	}

	// instance-only is scoped away from both buckets; only the public
	// bucket violates no-public-buckets.
	if len(violations) != 1 {
		t.Fatalf("got %d violations, want 1: %+v", len(violations), violations)
	}
	v := violations[0]
	if v.PolicyID != "no-public-buckets" || v.ResourceID != "bucket-public" {
		t.Errorf("violation = %+v", v)
	}
	if v.Status != ViolationOpen {
		t.Errorf("status = %s, want open", v.Status)
	}
	if v.Severity != SeverityCritical {
		t.Errorf("severity = %s, want critical", v.Severity)
	}
}

func TestScanResourcesWaivedStatusFrozen(t *testing.T) {
	store := waiver.NewMemoryStore()
	now := time.Now()
	err := store.Add(context.Background(), waiver.Waiver{
		ID:         "w1",
		TargetID:   "no-public-buckets",
		ResourceID: "bucket-public",
		Reason:     "public website bucket",
		ApprovedAt: now,
		ExpiresAt:  now.Add(time.Hour),
	})
	if err != nil {
		t.Fatalf("Add() error = %v", err)
	}

	e := testEngine(WithWaiverStore(store))

	violations, err := e.ScanResources(context.Background(), scanPolicies(), scanResources())
	if err != nil {
		t.Fatalf("ScanResources() error = %v", err)
	}
	if len(violations) != 1 {
		t.Fatalf("got %d violations, want 1", len(violations))
	}
	if violations[0].Status != ViolationWaived {
		t.Errorf("status = %s, want waived", violations[0].Status)
	}
}

func TestScanResourcesWaiverStoreFailure(t *testing.T) {
	e := testEngine(WithWaiverStore(failingWaiverStore{}))

	_, err := e.ScanResources(context.Background(), scanPolicies(), scanResources())
	if err == nil {
		t.Fatal("ScanResources() error = nil, want waiver store failure")
	}
	if !errors.Is(err, errWaiverStore) {
		t.Errorf("error = %v, want wrapped store error", err)
	}
}

func TestScanResourcesCustomRegistry(t *testing.T) {
	registry := condition.FuncRegistry{
		"always": func(map[string]interface{}, resource.Flattened) bool { return true },
	}
	e := testEngine(WithRegistry(registry))

	policies := []Policy{{
		ID:      "custom-check",
		Enabled: true,
		Rules: []Rule{{
			ID:        "ext",
			Condition: condition.Condition{Kind: condition.KindCustom, Name: "always"},
			Action:    ActionWarn,
			Message:   "custom fired",
		}},
	}}

	violations, err := e.ScanResources(context.Background(), policies, scanResources()[:1])
	if err != nil {
		t.Fatalf("ScanResources() error = %v", err)
	}
	if len(violations) != 1 {
		t.Fatalf("got %d violations, want 1", len(violations))
	}
}
