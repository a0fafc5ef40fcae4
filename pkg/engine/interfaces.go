package engine

import (
	"context"
	"time"

	"github.com/cloudgovern/cloudgovern/pkg/compliance"
	"github.com/cloudgovern/cloudgovern/pkg/policy"
)

// PolicyStore manages governance policy persistence.
type PolicyStore interface {
	// GetPolicy retrieves a policy by ID. It returns nil with no error
	// when no policy has that ID.
	GetPolicy(ctx context.Context, id string) (*policy.Policy, error)

	// SavePolicy persists a policy, replacing any existing policy with
	// the same ID.
	SavePolicy(ctx context.Context, p *policy.Policy) error

	// DeletePolicy removes a policy. It returns whether a policy with
	// that ID existed.
	DeletePolicy(ctx context.Context, id string) (bool, error)

	// ListPolicies lists policies matching the filter.
	ListPolicies(ctx context.Context, filter policy.Filter) ([]policy.Policy, error)
}

// ReportStore persists compliance reports for trend queries.
type ReportStore interface {
	// SaveReport persists a report.
	SaveReport(ctx context.Context, report *compliance.Report) error

	// GetReport retrieves a report by ID. It returns nil with no error
	// when no report has that ID.
	GetReport(ctx context.Context, id string) (*compliance.Report, error)

	// ListReports lists reports for a framework, newest first, up to limit.
	// A limit of zero means no limit.
	ListReports(ctx context.Context, frameworkID string, limit int) ([]compliance.Report, error)

	// GetTrend returns one point per stored report for the framework
	// within the window, ordered oldest to newest.
	GetTrend(ctx context.Context, frameworkID string, since time.Time) ([]TrendPoint, error)
}

// TrendPoint is one report's summary within a compliance trend.
type TrendPoint struct {
	// GeneratedAt is when the underlying report was generated.
	GeneratedAt time.Time `json:"generated_at"`

	// Score is the report's compliance score.
	Score int `json:"score"`

	// Grade is the report's letter grade.
	Grade compliance.Grade `json:"grade"`

	// OpenViolations counts the report's open violations.
	OpenViolations int `json:"open_violations"`
}
