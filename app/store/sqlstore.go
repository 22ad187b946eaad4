package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	log "github.com/go-pkgz/lgr"
	"github.com/go-pkgz/repeater"
	"github.com/go-pkgz/repeater/strategy"
	_ "github.com/jackc/pgx/v5/stdlib" // postgres driver, registered as "pgx"
	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite" // sqlite driver
)

// ErrNotFound returned when a job doesn't exist
var ErrNotFound = errors.New("job not found")

// Query identifies one of the parameterized write queries the store knows how to run
type Query string

// write queries, executed through Channel
const (
	// QueryInsertJob params: id, name, status, project, commands, started_at
	QueryInsertJob Query = "insert-job"
	// QueryUpdateJobStatus params: status, ended_at, id
	QueryUpdateJobStatus Query = "update-job-status"
)

var queries = map[Query]string{
	QueryInsertJob: `INSERT INTO jobs (id, name, status, project, commands, started_at, ended_at)
		VALUES (?, ?, ?, ?, ?, ?, '')`,
	QueryUpdateJobStatus: `UPDATE jobs SET status = ?, ended_at = ? WHERE id = ?`,
}

// SQLStore runs job queries on SQLite or Postgres
type SQLStore struct {
	db     *sqlx.DB
	driver string
}

// NewSQLStore opens the database for dsn and makes sure the schema exists.
// postgres:// and postgresql:// urls use pgx, anything else is a path to sqlite file.
func NewSQLStore(ctx context.Context, dsn string) (*SQLStore, error) {
	driver, source := driverFor(dsn)
	db, err := sqlx.Open(driver, source)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s database: %w", driver, err)
	}

	// postgres may be still starting up, give it a few attempts
	rptr := repeater.New(&strategy.Backoff{Repeats: 3, Duration: 50 * time.Millisecond, Factor: 2})
	if err := rptr.Do(ctx, func() error { return db.PingContext(ctx) }); err != nil {
		if closeErr := db.Close(); closeErr != nil {
			return nil, fmt.Errorf("failed to ping %s database: %w (also failed to close db: %v)", driver, err, closeErr)
		}
		return nil, fmt.Errorf("failed to ping %s database: %w", driver, err)
	}

	s := &SQLStore{db: db, driver: driver}
	if err := s.initialize(ctx); err != nil {
		if closeErr := db.Close(); closeErr != nil {
			return nil, fmt.Errorf("%w (also failed to close db: %v)", err, closeErr)
		}
		return nil, err
	}
	log.Printf("[DEBUG] %s job store ready", driver)
	return s, nil
}

// driverFor returns sql driver name and data source for dsn
func driverFor(dsn string) (driver, source string) {
	if strings.HasPrefix(dsn, "postgres://") || strings.HasPrefix(dsn, "postgresql://") {
		return "pgx", dsn
	}
	if !strings.Contains(dsn, "?") {
		// writes are serialized by the channel, but web reads may overlap with them
		return "sqlite", dsn + "?_pragma=busy_timeout(5000)"
	}
	return "sqlite", dsn
}

// initialize creates the database schema
func (s *SQLStore) initialize(ctx context.Context) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS jobs (
			id TEXT PRIMARY KEY,
			name TEXT NOT NULL,
			status TEXT NOT NULL,
			project TEXT NOT NULL,
			commands TEXT NOT NULL,
			started_at TEXT NOT NULL,
			ended_at TEXT NOT NULL DEFAULT ''
		)`,
		`CREATE INDEX IF NOT EXISTS idx_jobs_started_at ON jobs(started_at)`,
		`CREATE INDEX IF NOT EXISTS idx_jobs_name ON jobs(name)`,
	}
	if s.driver == "sqlite" {
		// enable WAL mode for better concurrency
		stmts = append([]string{"PRAGMA journal_mode=WAL"}, stmts...)
	}

	for _, stmt := range stmts {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("failed to initialize schema: %w", err)
		}
	}
	return nil
}

// Exec runs a known write query with ordered params. Implements Executor for Channel.
func (s *SQLStore) Exec(ctx context.Context, q Query, params ...any) error {
	text, ok := queries[q]
	if !ok {
		return fmt.Errorf("unknown query %q", q)
	}

	res, err := s.db.ExecContext(ctx, s.db.Rebind(text), params...)
	if err != nil {
		return fmt.Errorf("failed to execute %s: %w", q, err)
	}

	if q == QueryUpdateJobStatus {
		n, err := res.RowsAffected()
		if err != nil {
			return fmt.Errorf("failed to get affected rows for %s: %w", q, err)
		}
		if n == 0 {
			return fmt.Errorf("%s: %w", q, ErrNotFound)
		}
	}
	return nil
}

// ListJobs returns up to limit most recent jobs, newest first
func (s *SQLStore) ListJobs(ctx context.Context, limit int) ([]JobSummary, error) {
	if limit <= 0 {
		limit = 100
	}
	rows := []jobRow{}
	query := s.db.Rebind(`SELECT id, name, status, project, started_at, ended_at
		FROM jobs ORDER BY started_at DESC LIMIT ?`)
	if err := s.db.SelectContext(ctx, &rows, query, limit); err != nil {
		return nil, fmt.Errorf("failed to query jobs: %w", err)
	}

	res := make([]JobSummary, 0, len(rows))
	for _, r := range rows {
		summary, err := r.summary()
		if err != nil {
			log.Printf("[WARN] skip job %s: %v", r.ID, err)
			continue
		}
		res = append(res, summary)
	}
	return res, nil
}

// GetJob returns a single job by id
func (s *SQLStore) GetJob(ctx context.Context, id string) (JobRecord, error) {
	var r jobRow
	query := s.db.Rebind(`SELECT id, name, status, project, commands, started_at, ended_at FROM jobs WHERE id = ?`)
	if err := s.db.GetContext(ctx, &r, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return JobRecord{}, ErrNotFound
		}
		return JobRecord{}, fmt.Errorf("failed to get job %s: %w", id, err)
	}
	return r.record()
}

// LatestJobID returns id of the most recently started job with the given name
func (s *SQLStore) LatestJobID(ctx context.Context, name string) (string, error) {
	var id string
	query := s.db.Rebind(`SELECT id FROM jobs WHERE name = ? ORDER BY started_at DESC LIMIT 1`)
	if err := s.db.GetContext(ctx, &id, query, name); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", ErrNotFound
		}
		return "", fmt.Errorf("failed to get latest job %s: %w", name, err)
	}
	return id, nil
}

// Close closes the database connection
func (s *SQLStore) Close() error {
	return s.db.Close()
}
