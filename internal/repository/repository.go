// Package repository provides the audit-store implementations.
package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/alertalink/linkguard/internal/domain"
)

var (
	ErrNotFound     = errors.New("record not found")
	ErrInvalidInput = errors.New("invalid input")
)

// SQLRepository implements domain.Repository using database/sql.
// Works with both SQLite and PostgreSQL drivers.
type SQLRepository struct {
	db     *sql.DB
	driver string
}

// New creates a new repository based on configuration.
func New(cfg domain.RepositoryConfig) (domain.Repository, error) {
	var db *sql.DB
	var err error

	switch cfg.Driver {
	case "sqlite":
		db, err = openSQLite(cfg)
	case "postgres":
		db, err = openPostgres(cfg)
	default:
		return nil, fmt.Errorf("unsupported driver: %s", cfg.Driver)
	}

	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if cfg.MaxOpenConns > 0 {
		db.SetMaxOpenConns(cfg.MaxOpenConns)
	}
	if cfg.MaxIdleConns > 0 {
		db.SetMaxIdleConns(cfg.MaxIdleConns)
	}
	if cfg.ConnMaxLifetime > 0 {
		db.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	}

	repo := &SQLRepository{
		db:     db,
		driver: cfg.Driver,
	}

	if err := repo.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return repo, nil
}

func (r *SQLRepository) migrate() error {
	for _, schema := range AllSchemas() {
		if _, err := r.db.Exec(schema); err != nil {
			return err
		}
	}
	return nil
}

// SaveAnalysis stores a completed analysis record.
func (r *SQLRepository) SaveAnalysis(ctx context.Context, a *domain.Analysis) error {
	if a.ID == "" {
		return fmt.Errorf("%w: analysis id is required", ErrInvalidInput)
	}

	signals, _ := json.Marshal(a.Signals)

	query := `
		INSERT INTO analyses (
			id, url, normalized_url, score, risk_level, model_used, signals, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err := r.db.ExecContext(ctx, r.rebind(query),
		a.ID, a.URL, a.NormalizedURL,
		a.Score, string(a.RiskLevel), string(a.ModelUsed),
		string(signals), a.CreatedAt,
	)
	return err
}

// GetAnalysis retrieves an analysis by ID.
func (r *SQLRepository) GetAnalysis(ctx context.Context, id string) (*domain.Analysis, error) {
	query := `
		SELECT id, url, normalized_url, score, risk_level, model_used, signals, created_at
		FROM analyses
		WHERE id = ?
	`

	var a domain.Analysis
	var signals string

	err := r.db.QueryRowContext(ctx, r.rebind(query), id).Scan(
		&a.ID, &a.URL, &a.NormalizedURL,
		&a.Score, &a.RiskLevel, &a.ModelUsed,
		&signals, &a.CreatedAt,
	)

	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	if signals != "" {
		json.Unmarshal([]byte(signals), &a.Signals)
	}

	return &a, nil
}

// ListAnalysesByURL retrieves the most recent analyses for a normalized URL.
func (r *SQLRepository) ListAnalysesByURL(ctx context.Context, normalizedURL string, limit int) ([]*domain.Analysis, error) {
	if limit <= 0 {
		limit = 20
	}

	query := `
		SELECT id, url, normalized_url, score, risk_level, model_used, signals, created_at
		FROM analyses
		WHERE normalized_url = ?
		ORDER BY created_at DESC
		LIMIT ?
	`

	rows, err := r.db.QueryContext(ctx, r.rebind(query), normalizedURL, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var analyses []*domain.Analysis
	for rows.Next() {
		var a domain.Analysis
		var signals string

		if err := rows.Scan(
			&a.ID, &a.URL, &a.NormalizedURL,
			&a.Score, &a.RiskLevel, &a.ModelUsed,
			&signals, &a.CreatedAt,
		); err != nil {
			return nil, err
		}

		if signals != "" {
			json.Unmarshal([]byte(signals), &a.Signals)
		}

		analyses = append(analyses, &a)
	}

	return analyses, rows.Err()
}

// SaveReport stores a user-submitted URL report.
func (r *SQLRepository) SaveReport(ctx context.Context, rep *domain.Report) error {
	if rep.ID == "" {
		return fmt.Errorf("%w: report id is required", ErrInvalidInput)
	}
	if rep.URL == "" {
		return fmt.Errorf("%w: report url is required", ErrInvalidInput)
	}

	query := `
		INSERT INTO reports (id, url, reason, reporter_ip, created_at)
		VALUES (?, ?, ?, ?, ?)
	`

	_, err := r.db.ExecContext(ctx, r.rebind(query),
		rep.ID, rep.URL, rep.Reason, rep.ReporterIP, rep.CreatedAt,
	)
	return err
}

// ListReports retrieves reports submitted since the given time.
func (r *SQLRepository) ListReports(ctx context.Context, since time.Time, limit int) ([]*domain.Report, error) {
	if limit <= 0 {
		limit = 100
	}

	query := `
		SELECT id, url, reason, reporter_ip, created_at
		FROM reports
		WHERE created_at >= ?
		ORDER BY created_at DESC
		LIMIT ?
	`

	rows, err := r.db.QueryContext(ctx, r.rebind(query), since, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var reports []*domain.Report
	for rows.Next() {
		var rep domain.Report
		if err := rows.Scan(&rep.ID, &rep.URL, &rep.Reason, &rep.ReporterIP, &rep.CreatedAt); err != nil {
			return nil, err
		}
		reports = append(reports, &rep)
	}

	return reports, rows.Err()
}

// Ping checks database connectivity.
func (r *SQLRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

// Close closes the database connection.
func (r *SQLRepository) Close() error {
	return r.db.Close()
}

// rebind converts ? placeholders to $1, $2, etc. for PostgreSQL.
func (r *SQLRepository) rebind(query string) string {
	if r.driver != "postgres" {
		return query
	}

	var result []byte
	n := 1
	for i := 0; i < len(query); i++ {
		if query[i] == '?' {
			result = append(result, '$')
			result = append(result, fmt.Sprintf("%d", n)...)
			n++
		} else {
			result = append(result, query[i])
		}
	}
	return string(result)
}
