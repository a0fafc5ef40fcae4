package engine

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/cloudgovern/cloudgovern/pkg/compliance"
	"github.com/cloudgovern/cloudgovern/pkg/condition"
	"github.com/cloudgovern/cloudgovern/pkg/policy"
	"github.com/cloudgovern/cloudgovern/pkg/resource"
	"github.com/cloudgovern/cloudgovern/pkg/telemetry"
	"github.com/cloudgovern/cloudgovern/pkg/waiver"
)

// Governor is the top-level governance service. It wires the policy
// engine, the framework registry, and the persistence layer together and
// classifies every error it returns.
type Governor struct {
	logger   zerolog.Logger
	engine   *policy.Engine
	store    PolicyStore
	reports  ReportStore
	waivers  waiver.Store
	registry condition.Registry
	metrics  *telemetry.Metrics
	tracer   *telemetry.Tracer
	events   *telemetry.EventPublisher

	mu         sync.RWMutex
	frameworks map[string]*compliance.Framework
}

// GovernorOption configures a Governor.
type GovernorOption func(*Governor)

// WithWaiverStore injects the waiver store used for violation
// reclassification.
func WithWaiverStore(s waiver.Store) GovernorOption {
	return func(g *Governor) {
		g.waivers = s
	}
}

// WithReportStore injects the store compliance reports are persisted to.
func WithReportStore(s ReportStore) GovernorOption {
	return func(g *Governor) {
		g.reports = s
	}
}

// WithConditionRegistry injects the registry backing custom conditions.
func WithConditionRegistry(r condition.Registry) GovernorOption {
	return func(g *Governor) {
		g.registry = r
	}
}

// WithMetrics injects the metrics collector.
func WithMetrics(m *telemetry.Metrics) GovernorOption {
	return func(g *Governor) {
		g.metrics = m
	}
}

// WithTracer injects the tracer.
func WithTracer(t *telemetry.Tracer) GovernorOption {
	return func(g *Governor) {
		g.tracer = t
	}
}

// WithEvents injects the publisher that denials, notifications, and scan
// summaries are delivered through.
func WithEvents(ep *telemetry.EventPublisher) GovernorOption {
	return func(g *Governor) {
		g.events = ep
	}
}

// NewGovernor creates a governance service backed by the given policy
// store.
func NewGovernor(logger zerolog.Logger, store PolicyStore, opts ...GovernorOption) *Governor {
	g := &Governor{
		logger:     logger.With().Str("component", "governor").Logger(),
		store:      store,
		frameworks: make(map[string]*compliance.Framework),
	}
	for _, opt := range opts {
		opt(g)
	}

	engineOpts := []policy.Option{}
	if g.registry != nil {
		engineOpts = append(engineOpts, policy.WithRegistry(g.registry))
	}
	if g.waivers != nil {
		engineOpts = append(engineOpts, policy.WithWaiverStore(g.waivers))
	}
	g.engine = policy.NewEngine(logger, engineOpts...)

	return g
}

// RegisterFramework adds a compliance framework to the registry, replacing
// any framework with the same ID.
func (g *Governor) RegisterFramework(f *compliance.Framework) error {
	if f == nil || f.ID == "" {
		return NewValidationError("framework must have an ID", nil).
			WithOperation("register_framework")
	}

	g.mu.Lock()
	g.frameworks[f.ID] = f
	g.mu.Unlock()

	g.logger.Debug().
		Str("framework", f.ID).
		Int("controls", len(f.Controls)).
		Msg("Framework registered")
	return nil
}

// Frameworks returns the IDs of all registered frameworks, sorted.
func (g *Governor) Frameworks() []string {
	g.mu.RLock()
	defer g.mu.RUnlock()

	ids := make([]string, 0, len(g.frameworks))
	for id := range g.frameworks {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// framework looks up a registered framework.
func (g *Governor) framework(id string) (*compliance.Framework, bool) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	f, ok := g.frameworks[id]
	return f, ok
}

// EvaluateInput runs every enabled stored policy against one evaluation
// input with deny-wins aggregation.
func (g *Governor) EvaluateInput(ctx context.Context, input *resource.EvaluationInput) (*policy.AggregateResult, error) {
	resourceID := ""
	if input.Resource != nil {
		resourceID = input.Resource.ID
	}
	ctx, span := g.tracer.StartEvaluationSpan(ctx, resourceID)
	defer span.End()

	policies, err := g.store.ListPolicies(ctx, policy.Filter{})
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, g.storageErr("list policies", err)
	}

	agg := g.engine.EvaluateAll(ctx, policies, input)

	decision := "allowed"
	if agg.Denied {
		decision = "denied"
	}
	g.metrics.RecordEvaluation(decision, agg.Duration)

	for _, d := range agg.Denials {
		_ = g.events.PublishDenial(d.PolicyID, resourceID, d.Message)
	}
	for _, msg := range agg.Notifications {
		_ = g.events.PublishNotification("", resourceID, msg)
	}
	if agg.ApprovalRequired {
		_ = g.events.PublishApprovalRequired("", resourceID, "approval required before proceeding")
	}

	telemetry.RecordSuccess(span)
	return &agg, nil
}

// Scan runs every enabled stored policy across a resource inventory and
// returns the violations, waiver status already assigned.
func (g *Governor) Scan(ctx context.Context, resources []resource.Resource) ([]policy.Violation, error) {
	start := time.Now()
	ctx, span := g.tracer.StartScanSpan(ctx, len(resources))
	defer span.End()

	policies, err := g.store.ListPolicies(ctx, policy.Filter{})
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, g.storageErr("list policies", err)
	}

	violations, err := g.engine.ScanResources(ctx, policies, resources)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, g.storageErr("scan resources", err)
	}

	for i := range violations {
		v := &violations[i]
		g.metrics.RecordViolation(string(v.Severity), string(v.Status))
		if v.Status == policy.ViolationOpen {
			_ = g.events.PublishViolation(v.PolicyID, v.ResourceID, string(v.Severity), v.Message)
		}
	}
	g.metrics.RecordScan(len(resources), len(violations), time.Since(start))
	_ = g.events.PublishScanCompleted(len(resources), len(violations))

	telemetry.RecordSuccess(span)
	return violations, nil
}

// EvaluateFramework scans a registered framework across a resource
// inventory, persists the resulting report when a report store is
// configured, and returns it. An unknown framework ID is a not-found
// error, distinct from an empty result.
func (g *Governor) EvaluateFramework(ctx context.Context, frameworkID string, resources []resource.Resource) (*compliance.Report, error) {
	start := time.Now()
	ctx, span := g.tracer.StartFrameworkSpan(ctx, frameworkID)
	defer span.End()

	f, ok := g.framework(frameworkID)
	if !ok {
		err := NewNotFoundError("framework not registered", nil).
			WithTarget(frameworkID).
			WithOperation("evaluate_framework")
		telemetry.RecordError(span, err)
		return nil, err
	}

	report, err := compliance.Evaluate(ctx, g.logger, f, resources, g.waivers)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, NewStorageError("framework evaluation failed", err).
			WithTarget(frameworkID).
			WithOperation("evaluate_framework")
	}

	if g.reports != nil {
		if err := g.reports.SaveReport(ctx, report); err != nil {
			telemetry.RecordError(span, err)
			return nil, NewStorageError("report persistence failed", err).
				WithTarget(frameworkID).
				WithOperation("save_report")
		}
	}

	g.metrics.RecordFrameworkScan(frameworkID, report.Score, time.Since(start))
	_ = g.events.PublishReportGenerated(frameworkID, report.Score, string(report.Grade))

	telemetry.RecordSuccess(span)
	return report, nil
}

// Trend returns the stored compliance trend for a framework, oldest point
// first.
func (g *Governor) Trend(ctx context.Context, frameworkID string, since time.Time) ([]TrendPoint, error) {
	if _, ok := g.framework(frameworkID); !ok {
		return nil, NewNotFoundError("framework not registered", nil).
			WithTarget(frameworkID).
			WithOperation("trend")
	}
	if g.reports == nil {
		return nil, NewValidationError("no report store configured", nil).
			WithOperation("trend")
	}

	points, err := g.reports.GetTrend(ctx, frameworkID, since)
	if err != nil {
		return nil, g.storageErr("load trend", err)
	}
	return points, nil
}

// GetPolicy retrieves a stored policy. An unknown ID is a not-found error.
func (g *Governor) GetPolicy(ctx context.Context, id string) (*policy.Policy, error) {
	p, err := g.store.GetPolicy(ctx, id)
	if err != nil {
		return nil, g.storageErr("get policy", err)
	}
	if p == nil {
		return nil, NewNotFoundError("policy not found", nil).
			WithTarget(id).
			WithOperation("get_policy")
	}
	return p, nil
}

// SavePolicy validates and persists a policy. Invalid policies, including
// any rule condition carrying an uncompilable pattern, are rejected here
// so evaluation never sees them.
func (g *Governor) SavePolicy(ctx context.Context, p *policy.Policy) error {
	if err := policy.Validate(p); err != nil {
		return NewValidationError("policy rejected", err).
			WithTarget(p.ID).
			WithOperation("save_policy")
	}
	if err := g.store.SavePolicy(ctx, p); err != nil {
		return g.storageErr("save policy", err)
	}
	return nil
}

// DeletePolicy removes a stored policy. An unknown ID is a not-found error.
func (g *Governor) DeletePolicy(ctx context.Context, id string) error {
	existed, err := g.store.DeletePolicy(ctx, id)
	if err != nil {
		return g.storageErr("delete policy", err)
	}
	if !existed {
		return NewNotFoundError("policy not found", nil).
			WithTarget(id).
			WithOperation("delete_policy")
	}
	return nil
}

// ListPolicies lists stored policies matching the filter.
func (g *Governor) ListPolicies(ctx context.Context, filter policy.Filter) ([]policy.Policy, error) {
	policies, err := g.store.ListPolicies(ctx, filter)
	if err != nil {
		return nil, g.storageErr("list policies", err)
	}
	return policies, nil
}

// SetPolicyEnabled flips a stored policy's enabled flag.
func (g *Governor) SetPolicyEnabled(ctx context.Context, id string, enabled bool) error {
	p, err := g.GetPolicy(ctx, id)
	if err != nil {
		return err
	}
	if p.Enabled == enabled {
		return nil
	}
	p.Enabled = enabled
	p.UpdatedAt = time.Now()
	if err := g.store.SavePolicy(ctx, p); err != nil {
		return g.storageErr("save policy", err)
	}
	return nil
}

// AddWaiver stores a waiver, replacing any prior waiver for the same
// (target, resource) pair.
func (g *Governor) AddWaiver(ctx context.Context, w waiver.Waiver) error {
	if g.waivers == nil {
		return NewValidationError("no waiver store configured", nil).
			WithOperation("add_waiver")
	}
	if err := g.waivers.Add(ctx, w); err != nil {
		return g.storageErr("add waiver", err)
	}
	return nil
}

// RemoveWaiver deletes the waiver for a pair. An absent pair is a
// not-found error.
func (g *Governor) RemoveWaiver(ctx context.Context, targetID, resourceID string) error {
	if g.waivers == nil {
		return NewValidationError("no waiver store configured", nil).
			WithOperation("remove_waiver")
	}
	existed, err := g.waivers.Remove(ctx, targetID, resourceID)
	if err != nil {
		return g.storageErr("remove waiver", err)
	}
	if !existed {
		return NewNotFoundError("waiver not found", nil).
			WithTarget(targetID).
			WithOperation("remove_waiver")
	}
	return nil
}

// ListWaivers returns stored waivers, optionally restricted to those still
// active.
func (g *Governor) ListWaivers(ctx context.Context, activeOnly bool) ([]waiver.Waiver, error) {
	if g.waivers == nil {
		return nil, NewValidationError("no waiver store configured", nil).
			WithOperation("list_waivers")
	}
	var (
		waivers []waiver.Waiver
		err     error
	)
	if activeOnly {
		waivers, err = g.waivers.ListActive(ctx, time.Now())
	} else {
		waivers, err = g.waivers.List(ctx)
	}
	if err != nil {
		return nil, g.storageErr("list waivers", err)
	}
	return waivers, nil
}

// storageErr wraps a persistence failure and counts it.
func (g *Governor) storageErr(operation string, err error) error {
	g.metrics.RecordError(string(ErrorClassStorage), ErrCodeStorage)
	return NewStorageError(operation+" failed", err).WithOperation(operation)
}
