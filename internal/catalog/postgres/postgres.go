// Package postgres implements the catalog using PostgreSQL.
package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/lib/pq"

	"spritefactory/internal/catalog"
)

// Store is the PostgreSQL-backed catalog.
type Store struct {
	db *sql.DB
}

var _ catalog.Recorder = (*Store)(nil)

// New connects to databaseURL and applies pending migrations.
func New(ctx context.Context, databaseURL string) (*Store, error) {
	db, err := sql.Open("postgres", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to open catalog database: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to reach catalog database: %w", err)
	}
	if _, err := Migrate(db); err != nil {
		db.Close()
		return nil, err
	}
	return &Store{db: db}, nil
}

// Record upserts the entry for e.JobID.
func (s *Store) Record(ctx context.Context, e catalog.Entry) error {
	query := `
		INSERT INTO assets (job_id, task, artifact_dir, files, exit_code, status, error, started_at, finished_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (job_id) DO UPDATE SET
			task = EXCLUDED.task,
			artifact_dir = EXCLUDED.artifact_dir,
			files = EXCLUDED.files,
			exit_code = EXCLUDED.exit_code,
			status = EXCLUDED.status,
			error = EXCLUDED.error,
			started_at = EXCLUDED.started_at,
			finished_at = EXCLUDED.finished_at
	`

	files := e.Files
	if files == nil {
		files = []string{}
	}

	var exitCode sql.NullInt64
	if e.ExitCode != nil {
		exitCode = sql.NullInt64{Int64: int64(*e.ExitCode), Valid: true}
	}

	_, err := s.db.ExecContext(ctx, query,
		e.JobID,
		e.Task,
		e.ArtifactDir,
		pq.Array(files),
		exitCode,
		string(e.Status),
		e.Error,
		e.StartedAt,
		e.FinishedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to record %s: %w", e.JobID, err)
	}
	return nil
}

// Get returns the entry for jobID or sql.ErrNoRows.
func (s *Store) Get(ctx context.Context, jobID string) (*catalog.Entry, error) {
	query := `
		SELECT job_id, task, artifact_dir, files, exit_code, status, error, started_at, finished_at
		FROM assets WHERE job_id = $1
	`

	var (
		e        catalog.Entry
		exitCode sql.NullInt64
		status   string
	)
	err := s.db.QueryRowContext(ctx, query, jobID).Scan(
		&e.JobID,
		&e.Task,
		&e.ArtifactDir,
		pq.Array(&e.Files),
		&exitCode,
		&status,
		&e.Error,
		&e.StartedAt,
		&e.FinishedAt,
	)
	if err != nil {
		return nil, err
	}

	e.Status = catalog.Status(status)
	if exitCode.Valid {
		code := int(exitCode.Int64)
		e.ExitCode = &code
	}
	return &e, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}
