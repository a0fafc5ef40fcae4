package policy

import (
	"time"

	"github.com/cloudgovern/cloudgovern/pkg/condition"
)

// Severity represents the severity level of a policy or violation.
type Severity string

const (
	// SeverityInfo is for informational findings.
	SeverityInfo Severity = "info"

	// SeverityLow is for minor findings.
	SeverityLow Severity = "low"

	// SeverityMedium is for findings that should be reviewed.
	SeverityMedium Severity = "medium"

	// SeverityHigh is for findings that should block operations.
	SeverityHigh Severity = "high"

	// SeverityCritical is for findings that must be addressed immediately.
	SeverityCritical Severity = "critical"
)

// Action is what a fired rule contributes to the evaluation result.
type Action string

const (
	// ActionDeny blocks the operation. Any fired deny rule wins over any
	// number of passing policies.
	ActionDeny Action = "deny"

	// ActionWarn surfaces a warning without blocking.
	ActionWarn Action = "warn"

	// ActionRequireApproval gates the operation on human approval.
	ActionRequireApproval Action = "require_approval"

	// ActionNotify emits a notification without blocking.
	ActionNotify Action = "notify"
)

// Rule is a trigger-mode rule: the condition is phrased as the bad state,
// and a true evaluation fires the rule.
type Rule struct {
	// ID is the rule identifier, unique within its policy.
	ID string `json:"id" yaml:"id"`

	// Description explains what the rule guards against.
	Description string `json:"description,omitempty" yaml:"description,omitempty"`

	// Condition is the violation pattern. True means the rule fires.
	Condition condition.Condition `json:"condition" yaml:"condition"`

	// Action is contributed to the result when the rule fires.
	Action Action `json:"action" yaml:"action"`

	// Message is the human-readable explanation attached to the action.
	Message string `json:"message,omitempty" yaml:"message,omitempty"`
}

// Policy is an ordered set of trigger-mode rules with scope patterns.
type Policy struct {
	// ID is the unique policy identifier.
	ID string `json:"id" yaml:"id"`

	// Name is the human-readable policy name.
	Name string `json:"name" yaml:"name"`

	// Description provides a human-readable description.
	Description string `json:"description,omitempty" yaml:"description,omitempty"`

	// Type categorizes the policy (e.g. "security", "cost", "tagging").
	Type string `json:"type,omitempty" yaml:"type,omitempty"`

	// Enabled indicates if the policy is active. Disabled policies are
	// excluded from evaluation entirely.
	Enabled bool `json:"enabled" yaml:"enabled"`

	// Severity is the severity assigned to violations of this policy.
	Severity Severity `json:"severity,omitempty" yaml:"severity,omitempty"`

	// Labels are free-form organizational labels.
	Labels []string `json:"labels,omitempty" yaml:"labels,omitempty"`

	// AutoAttachPatterns scope the policy to matching resources. An empty
	// list means the policy applies to every resource.
	AutoAttachPatterns []string `json:"auto_attach_patterns,omitempty" yaml:"auto_attach_patterns,omitempty"`

	// Rules are evaluated in order; all firing rules are collected, there
	// is no short-circuit on the first deny.
	Rules []Rule `json:"rules" yaml:"rules"`

	// CreatedAt is when the policy was created.
	CreatedAt time.Time `json:"created_at,omitempty" yaml:"created_at,omitempty"`

	// UpdatedAt is when the policy was last updated.
	UpdatedAt time.Time `json:"updated_at,omitempty" yaml:"updated_at,omitempty"`
}

// RuleResult records the outcome of one rule within a policy evaluation.
type RuleResult struct {
	// RuleID is the evaluated rule.
	RuleID string `json:"rule_id"`

	// Fired is true when the rule's condition matched.
	Fired bool `json:"fired"`

	// Action is the rule's action, echoed for fired rules.
	Action Action `json:"action,omitempty"`

	// Message is the rule's message, echoed for fired rules.
	Message string `json:"message,omitempty"`
}

// Result is the outcome of evaluating one policy against one input.
type Result struct {
	// PolicyID is the evaluated policy.
	PolicyID string `json:"policy_id"`

	// Passed is true iff no deny rule fired.
	Passed bool `json:"passed"`

	// Denied mirrors !Passed.
	Denied bool `json:"denied"`

	// RuleResults holds one entry per rule, in rule order.
	RuleResults []RuleResult `json:"rule_results"`

	// Warnings collects messages from fired warn rules.
	Warnings []string `json:"warnings,omitempty"`

	// Notifications collects messages from fired notify rules.
	Notifications []string `json:"notifications,omitempty"`

	// ApprovalRequired is true when any require_approval rule fired.
	ApprovalRequired bool `json:"approval_required"`
}

// Denial identifies one fired deny rule in an aggregate result.
type Denial struct {
	// PolicyID is the denying policy.
	PolicyID string `json:"policy_id"`

	// PolicyName is the denying policy's name.
	PolicyName string `json:"policy_name"`

	// RuleID is the fired deny rule.
	RuleID string `json:"rule_id"`

	// Message is the rule's message.
	Message string `json:"message"`
}

// AggregateResult merges the results of many policies against one input.
// Deny wins: a single denying policy makes the whole result denied.
type AggregateResult struct {
	// Allowed is true iff no policy denied.
	Allowed bool `json:"allowed"`

	// Denied mirrors !Allowed.
	Denied bool `json:"denied"`

	// Denials lists every fired deny rule, in policy order.
	Denials []Denial `json:"denials,omitempty"`

	// Warnings concatenates warnings across policies, preserving order.
	Warnings []string `json:"warnings,omitempty"`

	// Notifications concatenates notifications across policies.
	Notifications []string `json:"notifications,omitempty"`

	// ApprovalRequired is true when any policy required approval.
	ApprovalRequired bool `json:"approval_required"`

	// TotalPolicies counts evaluated (enabled) policies only.
	TotalPolicies int `json:"total_policies"`

	// PassedPolicies counts evaluated policies with no fired deny rule.
	PassedPolicies int `json:"passed_policies"`

	// FailedPolicies counts evaluated policies with a fired deny rule.
	FailedPolicies int `json:"failed_policies"`

	// Duration is the total evaluation time.
	Duration time.Duration `json:"duration"`
}

// ViolationStatus classifies a violation record.
type ViolationStatus string

const (
	// ViolationOpen is an unsuppressed violation.
	ViolationOpen ViolationStatus = "open"

	// ViolationWaived is a violation suppressed by an active waiver.
	// Status is assigned once at construction time and never mutated.
	ViolationWaived ViolationStatus = "waived"
)

// Violation records one (policy-or-framework, rule-or-control, resource)
// combination that failed. For framework scans, PolicyID/PolicyName carry
// the framework and RuleID carries the control.
type Violation struct {
	// PolicyID is the violated policy or framework.
	PolicyID string `json:"policy_id"`

	// PolicyName is the violated policy's or framework's name.
	PolicyName string `json:"policy_name,omitempty"`

	// RuleID is the fired rule or failed control.
	RuleID string `json:"rule_id"`

	// Description explains the rule or control.
	Description string `json:"description,omitempty"`

	// Severity is the violation severity.
	Severity Severity `json:"severity"`

	// Action is the fired rule's action. Empty for assertion-mode
	// violations, which carry Remediation instead.
	Action Action `json:"action,omitempty"`

	// Message is the human-readable violation message.
	Message string `json:"message,omitempty"`

	// Remediation provides suggested fixes for assertion-mode violations.
	Remediation string `json:"remediation,omitempty"`

	// ResourceID identifies the offending resource.
	ResourceID string `json:"resource_id"`

	// ResourceType is the offending resource's type.
	ResourceType string `json:"resource_type,omitempty"`

	// ResourceName is the offending resource's name.
	ResourceName string `json:"resource_name,omitempty"`

	// Provider is the offending resource's cloud provider.
	Provider string `json:"provider,omitempty"`

	// Status is open or waived, frozen at construction time by consulting
	// the waiver store.
	Status ViolationStatus `json:"status"`
}

// Filter selects policies from a policy store.
type Filter struct {
	// Type filters by policy type when non-empty.
	Type string `json:"type,omitempty"`

	// Severity filters by policy severity when non-empty.
	Severity Severity `json:"severity,omitempty"`

	// Enabled filters by enabled state when non-nil.
	Enabled *bool `json:"enabled,omitempty"`
}

// Match reports whether a policy satisfies the filter.
func (f Filter) Match(p *Policy) bool {
	if f.Type != "" && p.Type != f.Type {
		return false
	}
	if f.Severity != "" && p.Severity != f.Severity {
		return false
	}
	if f.Enabled != nil && p.Enabled != *f.Enabled {
		return false
	}
	return true
}

// Validate checks a policy's structural shape, including every rule
// condition. It is run at the storage boundary so evaluation stays total.
func Validate(p *Policy) error {
	if p.ID == "" {
		return &ValidationError{Field: "id", Message: "policy id is required"}
	}
	if len(p.Rules) == 0 {
		return &ValidationError{Field: "rules", Message: "policy must include at least one rule"}
	}
	for i := range p.Rules {
		r := &p.Rules[i]
		if r.ID == "" {
			return &ValidationError{Field: "rules", Message: "rule id is required", Rule: i}
		}
		switch r.Action {
		case ActionDeny, ActionWarn, ActionRequireApproval, ActionNotify:
		default:
			return &ValidationError{Field: "action", Message: "unknown action " + string(r.Action), Rule: i}
		}
		if err := condition.Validate(r.Condition); err != nil {
			return &ValidationError{Field: "condition", Message: err.Error(), Rule: i}
		}
	}
	return nil
}

// ValidationError reports a structural problem in a policy document.
type ValidationError struct {
	// Field is the offending field.
	Field string `json:"field"`

	// Message describes the problem.
	Message string `json:"message"`

	// Rule is the offending rule index, when applicable.
	Rule int `json:"rule,omitempty"`
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	return e.Field + ": " + e.Message
}
