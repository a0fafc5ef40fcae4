// Package compliance implements assertion-mode evaluation: controls whose
// predicates are phrased as the required state, so a false evaluation is a
// violation. Frameworks group controls and are scanned across whole
// resource inventories, producing scored, graded reports with waiver
// reclassification.
package compliance

import (
	"sort"
	"time"

	"github.com/cloudgovern/cloudgovern/pkg/policy"
	"github.com/cloudgovern/cloudgovern/pkg/resource"
)

// Predicate asserts the required state of a resource. True means the
// resource is compliant with the control.
type Predicate func(*resource.Resource) bool

// Control is one assertion-mode requirement within a framework.
type Control struct {
	// ID is the control identifier, unique within its framework.
	ID string `json:"id"`

	// Title is the short control title.
	Title string `json:"title"`

	// Description explains the requirement.
	Description string `json:"description,omitempty"`

	// Category groups related controls (e.g. "encryption", "network").
	Category string `json:"category,omitempty"`

	// Severity is assigned to violations of this control.
	Severity policy.Severity `json:"severity"`

	// ApplicableResourceTypes is the applicability gate. A resource whose
	// type is not listed is skipped and counted as not applicable, never
	// as passed or failed.
	ApplicableResourceTypes []string `json:"applicable_resource_types"`

	// Predicate asserts the required state. False produces a violation.
	Predicate Predicate `json:"-"`

	// Remediation guides fixing a violation.
	Remediation string `json:"remediation,omitempty"`
}

// AppliesTo reports whether the control's applicability gate admits the
// resource type.
func (c *Control) AppliesTo(resourceType string) bool {
	for _, t := range c.ApplicableResourceTypes {
		if t == resourceType {
			return true
		}
	}
	return false
}

// Framework is a named, versioned set of controls.
type Framework struct {
	// ID is the unique framework identifier.
	ID string `json:"id"`

	// Name is the human-readable framework name.
	Name string `json:"name"`

	// Version is the framework version.
	Version string `json:"version,omitempty"`

	// Controls are the framework's controls.
	Controls []Control `json:"controls"`
}

// Categories returns the deduplicated, sorted set of control categories.
func (f *Framework) Categories() []string {
	seen := make(map[string]struct{}, len(f.Controls))
	var out []string
	for i := range f.Controls {
		cat := f.Controls[i].Category
		if cat == "" {
			continue
		}
		if _, ok := seen[cat]; ok {
			continue
		}
		seen[cat] = struct{}{}
		out = append(out, cat)
	}
	sort.Strings(out)
	return out
}

// ControlOutcome classifies one control's result within a framework scan.
type ControlOutcome string

const (
	// OutcomePassed means every applicable resource satisfied the control.
	OutcomePassed ControlOutcome = "passed"

	// OutcomeFailed means at least one applicable resource produced an
	// open violation.
	OutcomeFailed ControlOutcome = "failed"

	// OutcomeWaived means the control produced violations, all of them
	// suppressed by active waivers.
	OutcomeWaived ControlOutcome = "waived"

	// OutcomeNotApplicable means no scanned resource was admitted by the
	// control's applicability gate.
	OutcomeNotApplicable ControlOutcome = "not_applicable"
)

// Report is the immutable result of one framework scan. It is constructed
// fresh per scan and optionally appended to an external report store for
// trend queries.
type Report struct {
	// ID is the unique report identifier.
	ID string `json:"id"`

	// Framework is the scanned framework's ID.
	Framework string `json:"framework"`

	// FrameworkName is the scanned framework's name.
	FrameworkName string `json:"framework_name,omitempty"`

	// GeneratedAt is when the scan ran.
	GeneratedAt time.Time `json:"generated_at"`

	// Scope counts the resources scanned.
	Scope int `json:"scope"`

	// Score is the 0-100 compliance score.
	Score int `json:"score"`

	// Grade is the letter grade for Score.
	Grade Grade `json:"grade"`

	// TotalControls counts the framework's controls.
	TotalControls int `json:"total_controls"`

	// PassedControls counts controls with no violations among applicable
	// resources.
	PassedControls int `json:"passed_controls"`

	// FailedControls counts controls with at least one open violation.
	FailedControls int `json:"failed_controls"`

	// WaivedControls counts controls whose violations are all waived.
	WaivedControls int `json:"waived_controls"`

	// NotApplicable counts controls that admitted no scanned resource.
	NotApplicable int `json:"not_applicable"`

	// Violations lists every violation, open and waived.
	Violations []policy.Violation `json:"violations,omitempty"`

	// ByCategory counts open violations per control category.
	ByCategory map[string]int `json:"by_category,omitempty"`

	// BySeverity counts open violations per severity.
	BySeverity map[policy.Severity]int `json:"by_severity,omitempty"`
}
