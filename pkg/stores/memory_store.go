package stores

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/cloudgovern/cloudgovern/pkg/compliance"
	"github.com/cloudgovern/cloudgovern/pkg/engine"
	"github.com/cloudgovern/cloudgovern/pkg/policy"
)

// Interface conformance checks.
var (
	_ engine.PolicyStore = (*SQLiteStore)(nil)
	_ engine.ReportStore = (*SQLiteStore)(nil)
	_ engine.PolicyStore = (*MemoryStore)(nil)
	_ engine.ReportStore = (*MemoryStore)(nil)
)

// MemoryStore keeps policies and reports in process memory. It backs
// single-shot CLI invocations that load policies from files and tests that
// do not need a database.
type MemoryStore struct {
	mu       sync.RWMutex
	policies map[string]policy.Policy
	reports  []compliance.Report
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		policies: make(map[string]policy.Policy),
	}
}

// SavePolicy persists a policy, replacing any prior policy with the same ID.
func (s *MemoryStore) SavePolicy(_ context.Context, p *policy.Policy) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.policies[p.ID] = *p
	return nil
}

// GetPolicy retrieves a policy by ID. A missing ID returns nil with no
// error.
func (s *MemoryStore) GetPolicy(_ context.Context, id string) (*policy.Policy, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.policies[id]
	if !ok {
		return nil, nil
	}
	return &p, nil
}

// DeletePolicy removes a policy, reporting whether it existed.
func (s *MemoryStore) DeletePolicy(_ context.Context, id string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.policies[id]
	delete(s.policies, id)
	return ok, nil
}

// ListPolicies lists stored policies matching the filter, ordered by ID.
func (s *MemoryStore) ListPolicies(_ context.Context, filter policy.Filter) ([]policy.Policy, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	policies := []policy.Policy{}
	for _, p := range s.policies {
		p := p
		if filter.Match(&p) {
			policies = append(policies, p)
		}
	}
	sort.Slice(policies, func(i, j int) bool { return policies[i].ID < policies[j].ID })
	return policies, nil
}

// SaveReport persists a compliance report.
func (s *MemoryStore) SaveReport(_ context.Context, report *compliance.Report) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.reports = append(s.reports, *report)
	return nil
}

// GetReport retrieves a report by ID. A missing ID returns nil with no
// error.
func (s *MemoryStore) GetReport(_ context.Context, id string) (*compliance.Report, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for i := range s.reports {
		if s.reports[i].ID == id {
			report := s.reports[i]
			return &report, nil
		}
	}
	return nil, nil
}

// ListReports lists reports for a framework, newest first, up to limit.
func (s *MemoryStore) ListReports(_ context.Context, frameworkID string, limit int) ([]compliance.Report, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	reports := []compliance.Report{}
	for i := range s.reports {
		if s.reports[i].Framework == frameworkID {
			reports = append(reports, s.reports[i])
		}
	}
	sort.Slice(reports, func(i, j int) bool {
		return reports[i].GeneratedAt.After(reports[j].GeneratedAt)
	})
	if limit > 0 && len(reports) > limit {
		reports = reports[:limit]
	}
	return reports, nil
}

// GetTrend returns one point per stored report for the framework within
// the window, ordered oldest to newest.
func (s *MemoryStore) GetTrend(_ context.Context, frameworkID string, since time.Time) ([]engine.TrendPoint, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	points := []engine.TrendPoint{}
	for i := range s.reports {
		r := &s.reports[i]
		if r.Framework != frameworkID || r.GeneratedAt.Before(since) {
			continue
		}

		open := 0
		for vi := range r.Violations {
			if r.Violations[vi].Status == policy.ViolationOpen {
				open++
			}
		}
		points = append(points, engine.TrendPoint{
			GeneratedAt:    r.GeneratedAt,
			Score:          r.Score,
			Grade:          r.Grade,
			OpenViolations: open,
		})
	}
	sort.Slice(points, func(i, j int) bool {
		return points[i].GeneratedAt.Before(points[j].GeneratedAt)
	})
	return points, nil
}
