package compliance

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/cloudgovern/cloudgovern/pkg/policy"
	"github.com/cloudgovern/cloudgovern/pkg/resource"
	"github.com/cloudgovern/cloudgovern/pkg/waiver"
)

// EvaluateControl runs one control against a resource set and returns one
// violation per applicable resource whose predicate evaluated false.
// Resources outside the applicability gate produce nothing.
func EvaluateControl(control *Control, resources []resource.Resource) []policy.Violation {
	violations, _ := evaluateControl(control, resources)
	return violations
}

// evaluateControl additionally reports how many resources were applicable,
// for report aggregation.
func evaluateControl(control *Control, resources []resource.Resource) (violations []policy.Violation, applicable int) {
	for i := range resources {
		res := &resources[i]
		res.Normalize()

		if !control.AppliesTo(res.Type) {
			continue
		}
		applicable++

		if control.Predicate != nil && control.Predicate(res) {
			continue
		}

		violations = append(violations, policy.Violation{
			RuleID:       control.ID,
			Description:  control.Description,
			Severity:     control.Severity,
			Message:      control.Title,
			Remediation:  control.Remediation,
			ResourceID:   res.ID,
			ResourceType: res.Type,
			ResourceName: res.Name,
			Provider:     res.Provider,
			Status:       policy.ViolationOpen,
		})
	}
	return violations, applicable
}

// Evaluate scans a framework across a resource inventory and assembles an
// immutable report. The waiver store, when provided, reclassifies
// violations at construction time; a store failure aborts the scan rather
// than degrading into an unwaived result. A nil store means nothing is
// waived.
//
// Scoring: score = round(passed / totalApplicable * 100) where
// totalApplicable = totalControls - notApplicable. An empty resource set,
// or a framework whose controls are all inapplicable, yields a vacuous
// pass: score 100 with notApplicable = totalControls.
func Evaluate(ctx context.Context, logger zerolog.Logger, f *Framework, resources []resource.Resource, waivers waiver.Store) (*Report, error) {
	now := time.Now()

	report := &Report{
		ID:            uuid.NewString(),
		Framework:     f.ID,
		FrameworkName: f.Name,
		GeneratedAt:   now,
		Scope:         len(resources),
		TotalControls: len(f.Controls),
		ByCategory:    make(map[string]int),
		BySeverity:    make(map[policy.Severity]int),
	}

	for i := range f.Controls {
		control := &f.Controls[i]

		violations, applicable := evaluateControl(control, resources)

		if applicable == 0 {
			report.NotApplicable++
			continue
		}

		if len(violations) == 0 {
			report.PassedControls++
			continue
		}

		open := 0
		for vi := range violations {
			v := &violations[vi]
			v.PolicyID = f.ID
			v.PolicyName = f.Name

			if waivers != nil {
				waived, err := waivers.IsWaived(ctx, control.ID, v.ResourceID, now)
				if err != nil {
					return nil, fmt.Errorf("waiver lookup for control %s on resource %s: %w", control.ID, v.ResourceID, err)
				}
				if waived {
					v.Status = policy.ViolationWaived
				}
			}

			if v.Status == policy.ViolationOpen {
				open++
				if control.Category != "" {
					report.ByCategory[control.Category]++
				}
				report.BySeverity[v.Severity]++
			}
		}
		report.Violations = append(report.Violations, violations...)

		if open == 0 {
			report.WaivedControls++
		} else {
			report.FailedControls++
		}
	}

	report.Score = Score(report.PassedControls, report.TotalControls, report.NotApplicable)
	report.Grade = GradeFor(report.Score)

	logger.Debug().
		Str("framework", f.ID).
		Int("resources", len(resources)).
		Int("score", report.Score).
		Str("grade", string(report.Grade)).
		Int("failed", report.FailedControls).
		Int("waived", report.WaivedControls).
		Int("not_applicable", report.NotApplicable).
		Msg("Framework evaluation completed")

	return report, nil
}
