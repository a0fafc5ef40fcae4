package policy

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/cloudgovern/cloudgovern/pkg/condition"
	"github.com/cloudgovern/cloudgovern/pkg/resource"
	"github.com/cloudgovern/cloudgovern/pkg/waiver"
)

// Engine evaluates trigger-mode policies. Evaluation proper is pure and
// never errors; the only I/O on the evaluation path is the waiver lookup
// performed when a violation record is constructed during a scan.
type Engine struct {
	logger   zerolog.Logger
	registry condition.Registry
	waivers  waiver.Store
}

// Option configures an Engine.
type Option func(*Engine)

// WithRegistry injects a custom-condition registry. Without one, custom
// conditions evaluate to false.
func WithRegistry(r condition.Registry) Option {
	return func(e *Engine) {
		e.registry = r
	}
}

// WithWaiverStore injects the waiver store consulted during scans.
func WithWaiverStore(s waiver.Store) Option {
	return func(e *Engine) {
		e.waivers = s
	}
}

// NewEngine creates a policy evaluation engine.
func NewEngine(logger zerolog.Logger, opts ...Option) *Engine {
	e := &Engine{
		logger: logger.With().Str("component", "policy-engine").Logger(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Evaluate runs one policy's rules against one input. The input is
// flattened once; every rule is evaluated, in order, with no short-circuit
// on the first deny so that warnings and notifications from later rules
// still surface.
func (e *Engine) Evaluate(p *Policy, input *resource.EvaluationInput) Result {
	flat := resource.FlattenInput(input)

	result := Result{
		PolicyID:    p.ID,
		Passed:      true,
		RuleResults: make([]RuleResult, 0, len(p.Rules)),
	}

	for i := range p.Rules {
		rule := &p.Rules[i]
		fired := condition.Evaluate(rule.Condition, flat, e.registry)

		rr := RuleResult{RuleID: rule.ID, Fired: fired}
		if fired {
			rr.Action = rule.Action
			rr.Message = rule.Message

			switch rule.Action {
			case ActionDeny:
				result.Passed = false
			case ActionWarn:
				result.Warnings = append(result.Warnings, rule.Message)
			case ActionNotify:
				result.Notifications = append(result.Notifications, rule.Message)
			case ActionRequireApproval:
				result.ApprovalRequired = true
			}
		}
		result.RuleResults = append(result.RuleResults, rr)
	}

	result.Denied = !result.Passed
	return result
}

// EvaluateAll runs every enabled policy against one input and reduces the
// results with deny-wins conflict resolution. Disabled policies are
// excluded entirely and do not count toward TotalPolicies.
func (e *Engine) EvaluateAll(ctx context.Context, policies []Policy, input *resource.EvaluationInput) AggregateResult {
	start := time.Now()

	agg := AggregateResult{Allowed: true}

	for i := range policies {
		p := &policies[i]
		if !p.Enabled {
			continue
		}
		if err := ctx.Err(); err != nil {
			// Partial results are safe to discard; nothing external was
			// touched.
			break
		}

		agg.TotalPolicies++
		result := e.Evaluate(p, input)

		if result.Denied {
			agg.FailedPolicies++
			for _, rr := range result.RuleResults {
				if rr.Fired && rr.Action == ActionDeny {
					agg.Denials = append(agg.Denials, Denial{
						PolicyID:   p.ID,
						PolicyName: p.Name,
						RuleID:     rr.RuleID,
						Message:    rr.Message,
					})
				}
			}
		} else {
			agg.PassedPolicies++
		}

		agg.Warnings = append(agg.Warnings, result.Warnings...)
		agg.Notifications = append(agg.Notifications, result.Notifications...)
		agg.ApprovalRequired = agg.ApprovalRequired || result.ApprovalRequired
	}

	agg.Denied = len(agg.Denials) > 0
	agg.Allowed = !agg.Denied
	agg.Duration = time.Since(start)

	e.logger.Debug().
		Bool("allowed", agg.Allowed).
		Int("policies", agg.TotalPolicies).
		Int("denials", len(agg.Denials)).
		Dur("duration", agg.Duration).
		Msg("Aggregate policy evaluation completed")

	return agg
}

// ScanResources cross-products policies against resources, pre-filtered by
// the scope matcher and enabled state, and emits one violation per fired
// rule. Violation status is frozen at construction time by consulting the
// waiver store; a waiver store failure aborts the scan rather than being
// silently read as "not waived".
func (e *Engine) ScanResources(ctx context.Context, policies []Policy, resources []resource.Resource) ([]Violation, error) {
	start := time.Now()
	now := time.Now()

	var violations []Violation

	for ri := range resources {
		res := &resources[ri]
		res.Normalize()
		input := &resource.EvaluationInput{Resource: res}

		for pi := range policies {
			p := &policies[pi]
			if !p.Enabled || !Matches(p, res) {
				continue
			}

			result := e.Evaluate(p, input)
			for _, rr := range result.RuleResults {
				if !rr.Fired {
					continue
				}

				v, err := e.newViolation(ctx, p, rr, res, now)
				if err != nil {
					return nil, fmt.Errorf("waiver lookup for policy %s on resource %s: %w", p.ID, res.ID, err)
				}
				violations = append(violations, v)
			}
		}
	}

	e.logger.Debug().
		Int("resources", len(resources)).
		Int("policies", len(policies)).
		Int("violations", len(violations)).
		Dur("duration", time.Since(start)).
		Msg("Resource scan completed")

	return violations, nil
}

// newViolation constructs a violation record with its status assigned
// exactly once.
func (e *Engine) newViolation(ctx context.Context, p *Policy, rr RuleResult, res *resource.Resource, now time.Time) (Violation, error) {
	status := ViolationOpen
	if e.waivers != nil {
		waived, err := e.waivers.IsWaived(ctx, p.ID, res.ID, now)
		if err != nil {
			return Violation{}, err
		}
		if waived {
			status = ViolationWaived
		}
	}

	return Violation{
		PolicyID:     p.ID,
		PolicyName:   p.Name,
		RuleID:       rr.RuleID,
		Description:  p.Description,
		Severity:     p.Severity,
		Action:       rr.Action,
		Message:      rr.Message,
		ResourceID:   res.ID,
		ResourceType: res.Type,
		ResourceName: res.Name,
		Provider:     res.Provider,
		Status:       status,
	}, nil
}
