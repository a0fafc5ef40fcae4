package stores

import (
	"context"
	"database/sql"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/sqlite3"
	"github.com/golang-migrate/migrate/v4/source/iofs"

	// SQLite driver
	_ "modernc.org/sqlite"

	"github.com/cloudgovern/cloudgovern/pkg/compliance"
	"github.com/cloudgovern/cloudgovern/pkg/engine"
	"github.com/cloudgovern/cloudgovern/pkg/policy"
	"github.com/cloudgovern/cloudgovern/pkg/waiver"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// SQLiteStore persists policies, waivers, and compliance reports in a
// single SQLite database. It implements engine.PolicyStore,
// engine.ReportStore, and waiver.Store.
type SQLiteStore struct {
	db  *sql.DB
	cfg Config
}

// Config holds SQLite store configuration
type Config struct {
	Path            string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

// NewSQLiteStore creates a new SQLite store instance
func NewSQLiteStore(cfg Config) (*SQLiteStore, error) {
	if cfg.Path == "" {
		return nil, fmt.Errorf("database path is required")
	}

	return &SQLiteStore{
		cfg: cfg,
	}, nil
}

// Init initializes the database connection and enables WAL mode.
func (s *SQLiteStore) Init(ctx context.Context) error {
	dsn := fmt.Sprintf("%s?_foreign_keys=on&_journal_mode=WAL&_busy_timeout=5000&_synchronous=NORMAL&_txlock=immediate", s.cfg.Path)

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}

	maxOpen := s.cfg.MaxOpenConns
	if maxOpen <= 0 {
		maxOpen = 25
	}
	maxIdle := s.cfg.MaxIdleConns
	if maxIdle <= 0 {
		maxIdle = 5
	}
	lifetime := s.cfg.ConnMaxLifetime
	if lifetime <= 0 {
		lifetime = 5 * time.Minute
	}
	db.SetMaxOpenConns(maxOpen)
	db.SetMaxIdleConns(maxIdle)
	db.SetConnMaxLifetime(lifetime)

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return fmt.Errorf("failed to ping database: %w", err)
	}

	// Ensure foreign keys are enabled (connection-level setting)
	if _, err := db.ExecContext(ctx, "PRAGMA foreign_keys = ON"); err != nil {
		_ = db.Close()
		return fmt.Errorf("failed to enable foreign keys: %w", err)
	}

	s.db = db
	return nil
}

// Close closes the database connection
func (s *SQLiteStore) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// Migrate runs database migrations.
func (s *SQLiteStore) Migrate(_ context.Context) error {
	if s.db == nil {
		return fmt.Errorf("database not initialized")
	}

	sourceDriver, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return fmt.Errorf("failed to create migration source: %w", err)
	}

	driver, err := sqlite3.WithInstance(s.db, &sqlite3.Config{})
	if err != nil {
		return fmt.Errorf("failed to create database driver: %w", err)
	}

	m, err := migrate.NewWithInstance("iofs", sourceDriver, "sqlite3", driver)
	if err != nil {
		return fmt.Errorf("failed to create migration instance: %w", err)
	}

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	return nil
}

// HealthCheck verifies the database connection is alive
func (s *SQLiteStore) HealthCheck(ctx context.Context) error {
	if s.db == nil {
		return fmt.Errorf("database not initialized")
	}
	return s.db.PingContext(ctx)
}

// Policy operations

// SavePolicy persists a policy, replacing any prior policy with the same ID.
func (s *SQLiteStore) SavePolicy(ctx context.Context, p *policy.Policy) error {
	document, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("failed to marshal policy %s: %w", p.ID, err)
	}

	query := `
		INSERT INTO policies (id, type, severity, enabled, document, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			type = excluded.type,
			severity = excluded.severity,
			enabled = excluded.enabled,
			document = excluded.document,
			updated_at = excluded.updated_at
	`

	_, err = s.db.ExecContext(ctx, query,
		p.ID,
		p.Type,
		string(p.Severity),
		boolToInt(p.Enabled),
		string(document),
		p.CreatedAt,
		p.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to save policy %s: %w", p.ID, err)
	}

	return nil
}

// GetPolicy retrieves a policy by ID. A missing ID returns nil with no
// error.
func (s *SQLiteStore) GetPolicy(ctx context.Context, id string) (*policy.Policy, error) {
	query := `SELECT document FROM policies WHERE id = ?`

	var document string
	err := s.db.QueryRowContext(ctx, query, id).Scan(&document)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get policy %s: %w", id, err)
	}

	p := &policy.Policy{}
	if err := json.Unmarshal([]byte(document), p); err != nil {
		return nil, fmt.Errorf("failed to unmarshal policy %s: %w", id, err)
	}

	return p, nil
}

// DeletePolicy removes a policy, reporting whether it existed.
func (s *SQLiteStore) DeletePolicy(ctx context.Context, id string) (bool, error) {
	result, err := s.db.ExecContext(ctx, `DELETE FROM policies WHERE id = ?`, id)
	if err != nil {
		return false, fmt.Errorf("failed to delete policy %s: %w", id, err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get rows affected: %w", err)
	}

	return rows > 0, nil
}

// ListPolicies lists stored policies matching the filter, ordered by ID.
func (s *SQLiteStore) ListPolicies(ctx context.Context, filter policy.Filter) ([]policy.Policy, error) {
	query := `SELECT document FROM policies WHERE 1=1`
	args := []interface{}{}

	if filter.Type != "" {
		query += ` AND type = ?`
		args = append(args, filter.Type)
	}
	if filter.Severity != "" {
		query += ` AND severity = ?`
		args = append(args, string(filter.Severity))
	}
	if filter.Enabled != nil {
		query += ` AND enabled = ?`
		args = append(args, boolToInt(*filter.Enabled))
	}
	query += ` ORDER BY id`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list policies: %w", err)
	}
	defer rows.Close()

	policies := []policy.Policy{}
	for rows.Next() {
		var document string
		if err := rows.Scan(&document); err != nil {
			return nil, fmt.Errorf("failed to scan policy: %w", err)
		}

		var p policy.Policy
		if err := json.Unmarshal([]byte(document), &p); err != nil {
			return nil, fmt.Errorf("failed to unmarshal policy: %w", err)
		}
		policies = append(policies, p)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate policies: %w", err)
	}

	return policies, nil
}

// Waiver operations

// Add stores a waiver, replacing any existing waiver for the same
// (TargetID, ResourceID) pair.
func (s *SQLiteStore) Add(ctx context.Context, w waiver.Waiver) error {
	query := `
		INSERT INTO waivers (target_id, resource_id, id, reason, approved_by, approved_at, expires_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(target_id, resource_id) DO UPDATE SET
			id = excluded.id,
			reason = excluded.reason,
			approved_by = excluded.approved_by,
			approved_at = excluded.approved_at,
			expires_at = excluded.expires_at
	`

	_, err := s.db.ExecContext(ctx, query,
		w.TargetID,
		w.ResourceID,
		w.ID,
		w.Reason,
		w.ApprovedBy,
		w.ApprovedAt,
		w.ExpiresAt,
	)
	if err != nil {
		return fmt.Errorf("failed to add waiver for %s/%s: %w", w.TargetID, w.ResourceID, err)
	}

	return nil
}

// Remove deletes the waiver for a pair, reporting whether one existed.
func (s *SQLiteStore) Remove(ctx context.Context, targetID, resourceID string) (bool, error) {
	result, err := s.db.ExecContext(ctx,
		`DELETE FROM waivers WHERE target_id = ? AND resource_id = ?`,
		targetID, resourceID,
	)
	if err != nil {
		return false, fmt.Errorf("failed to remove waiver for %s/%s: %w", targetID, resourceID, err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get rows affected: %w", err)
	}

	return rows > 0, nil
}

// Get returns the waiver for a pair, active or not. A missing pair returns
// nil with no error.
func (s *SQLiteStore) Get(ctx context.Context, targetID, resourceID string) (*waiver.Waiver, error) {
	query := `
		SELECT id, target_id, resource_id, reason, approved_by, approved_at, expires_at
		FROM waivers
		WHERE target_id = ? AND resource_id = ?
	`

	w := &waiver.Waiver{}
	err := s.db.QueryRowContext(ctx, query, targetID, resourceID).Scan(
		&w.ID,
		&w.TargetID,
		&w.ResourceID,
		&w.Reason,
		&w.ApprovedBy,
		&w.ApprovedAt,
		&w.ExpiresAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get waiver for %s/%s: %w", targetID, resourceID, err)
	}

	return w, nil
}

// List returns every stored waiver, including expired ones.
func (s *SQLiteStore) List(ctx context.Context) ([]waiver.Waiver, error) {
	return s.listWaivers(ctx,
		`SELECT id, target_id, resource_id, reason, approved_by, approved_at, expires_at
		 FROM waivers ORDER BY target_id, resource_id`)
}

// ListActive returns waivers with ExpiresAt strictly after now.
func (s *SQLiteStore) ListActive(ctx context.Context, now time.Time) ([]waiver.Waiver, error) {
	return s.listWaivers(ctx,
		`SELECT id, target_id, resource_id, reason, approved_by, approved_at, expires_at
		 FROM waivers WHERE expires_at > ? ORDER BY target_id, resource_id`, now)
}

func (s *SQLiteStore) listWaivers(ctx context.Context, query string, args ...interface{}) ([]waiver.Waiver, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list waivers: %w", err)
	}
	defer rows.Close()

	waivers := []waiver.Waiver{}
	for rows.Next() {
		var w waiver.Waiver
		err := rows.Scan(
			&w.ID,
			&w.TargetID,
			&w.ResourceID,
			&w.Reason,
			&w.ApprovedBy,
			&w.ApprovedAt,
			&w.ExpiresAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan waiver: %w", err)
		}
		waivers = append(waivers, w)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate waivers: %w", err)
	}

	return waivers, nil
}

// IsWaived reports whether an active waiver exists for the pair at the
// given instant.
func (s *SQLiteStore) IsWaived(ctx context.Context, targetID, resourceID string, now time.Time) (bool, error) {
	query := `
		SELECT COUNT(1) FROM waivers
		WHERE target_id = ? AND resource_id = ? AND expires_at > ?
	`

	var count int
	if err := s.db.QueryRowContext(ctx, query, targetID, resourceID, now).Scan(&count); err != nil {
		return false, fmt.Errorf("failed to check waiver for %s/%s: %w", targetID, resourceID, err)
	}

	return count > 0, nil
}

// Report operations

// SaveReport persists a compliance report.
func (s *SQLiteStore) SaveReport(ctx context.Context, report *compliance.Report) error {
	document, err := json.Marshal(report)
	if err != nil {
		return fmt.Errorf("failed to marshal report %s: %w", report.ID, err)
	}

	open := 0
	for i := range report.Violations {
		if report.Violations[i].Status == policy.ViolationOpen {
			open++
		}
	}

	query := `
		INSERT INTO reports (id, framework_id, generated_at, score, grade, open_violations, document)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`

	_, err = s.db.ExecContext(ctx, query,
		report.ID,
		report.Framework,
		report.GeneratedAt,
		report.Score,
		string(report.Grade),
		open,
		string(document),
	)
	if err != nil {
		return fmt.Errorf("failed to save report %s: %w", report.ID, err)
	}

	return nil
}

// GetReport retrieves a report by ID. A missing ID returns nil with no
// error.
func (s *SQLiteStore) GetReport(ctx context.Context, id string) (*compliance.Report, error) {
	var document string
	err := s.db.QueryRowContext(ctx, `SELECT document FROM reports WHERE id = ?`, id).Scan(&document)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get report %s: %w", id, err)
	}

	report := &compliance.Report{}
	if err := json.Unmarshal([]byte(document), report); err != nil {
		return nil, fmt.Errorf("failed to unmarshal report %s: %w", id, err)
	}

	return report, nil
}

// ListReports lists reports for a framework, newest first, up to limit.
func (s *SQLiteStore) ListReports(ctx context.Context, frameworkID string, limit int) ([]compliance.Report, error) {
	query := `SELECT document FROM reports WHERE framework_id = ? ORDER BY generated_at DESC`
	args := []interface{}{frameworkID}
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list reports: %w", err)
	}
	defer rows.Close()

	reports := []compliance.Report{}
	for rows.Next() {
		var document string
		if err := rows.Scan(&document); err != nil {
			return nil, fmt.Errorf("failed to scan report: %w", err)
		}

		var report compliance.Report
		if err := json.Unmarshal([]byte(document), &report); err != nil {
			return nil, fmt.Errorf("failed to unmarshal report: %w", err)
		}
		reports = append(reports, report)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate reports: %w", err)
	}

	return reports, nil
}

// GetTrend returns one point per stored report for the framework within
// the window, ordered oldest to newest. It reads the indexed columns only,
// never the report documents.
func (s *SQLiteStore) GetTrend(ctx context.Context, frameworkID string, since time.Time) ([]engine.TrendPoint, error) {
	query := `
		SELECT generated_at, score, grade, open_violations
		FROM reports
		WHERE framework_id = ? AND generated_at >= ?
		ORDER BY generated_at ASC
	`

	rows, err := s.db.QueryContext(ctx, query, frameworkID, since)
	if err != nil {
		return nil, fmt.Errorf("failed to load trend: %w", err)
	}
	defer rows.Close()

	points := []engine.TrendPoint{}
	for rows.Next() {
		var (
			p     engine.TrendPoint
			grade string
		)
		if err := rows.Scan(&p.GeneratedAt, &p.Score, &grade, &p.OpenViolations); err != nil {
			return nil, fmt.Errorf("failed to scan trend point: %w", err)
		}
		p.Grade = compliance.Grade(grade)
		points = append(points, p)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate trend points: %w", err)
	}

	return points, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
