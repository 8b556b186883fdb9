// Package jobs records the lifecycle of every document task in SQLite.
package jobs

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"docintel/internal/domain"
	"docintel/internal/logger"
)

// Status is the lifecycle state of a job.
type Status string

const (
	StatusStarted   Status = "Started"
	StatusCompleted Status = "Completed"
	StatusAborted   Status = "Aborted"
)

// Job is one recorded task.
type Job struct {
	ID        int64      `json:"id"`
	Name      string     `json:"job_name"`
	Status    Status     `json:"status"`
	StartTime time.Time  `json:"start_time"`
	EndTime   *time.Time `json:"end_time,omitempty"`
}

const schema = `
CREATE TABLE IF NOT EXISTS jobs (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    job_name TEXT NOT NULL,
    status TEXT NOT NULL,
    start_time TIMESTAMP NOT NULL,
    end_time TIMESTAMP
);

CREATE INDEX IF NOT EXISTS idx_jobs_status ON jobs(status);
CREATE INDEX IF NOT EXISTS idx_jobs_name ON jobs(job_name);
`

// Store wraps the SQLite connection holding the jobs table.
type Store struct {
	conn *sql.DB
	now  func() time.Time
}

// Open opens (or creates) the database at path and runs migrations. The
// special path ":memory:" keeps everything in process.
func Open(path string) (*Store, error) {
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("failed to create data directory: %w", err)
		}
	}
	conn, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// SQLite allows one writer; a single connection also keeps :memory: shared.
	conn.SetMaxOpenConns(1)
	if _, err := conn.Exec(schema); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}
	return &Store{conn: conn, now: func() time.Time { return time.Now().UTC() }}, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.conn.Close()
}

// Create records a new Started job and returns its id.
func (s *Store) Create(ctx context.Context, name string) (int64, error) {
	res, err := s.conn.ExecContext(ctx,
		`INSERT INTO jobs (job_name, status, start_time) VALUES (?, ?, ?)`,
		name, string(StatusStarted), s.now())
	if err != nil {
		return 0, fmt.Errorf("create job: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("create job: %w", err)
	}
	logger.Info("Job %d (%s) started.", id, name)
	return id, nil
}

// Update sets the status of a job. Completed and Aborted also stamp the end time.
func (s *Store) Update(ctx context.Context, id int64, status Status) error {
	var end any
	if status == StatusCompleted || status == StatusAborted {
		end = s.now()
	}
	res, err := s.conn.ExecContext(ctx,
		`UPDATE jobs SET status = ?, end_time = COALESCE(?, end_time) WHERE id = ?`,
		string(status), end, id)
	if err != nil {
		return fmt.Errorf("update job %d: %w", id, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		logger.Warn("Job ID %d not found for update.", id)
		return fmt.Errorf("%w: job %d", domain.ErrNotFound, id)
	}
	logger.Info("Job %d updated to status: %s", id, status)
	return nil
}

// Get returns one job.
func (s *Store) Get(ctx context.Context, id int64) (Job, error) {
	row := s.conn.QueryRowContext(ctx,
		`SELECT id, job_name, status, start_time, end_time FROM jobs WHERE id = ?`, id)
	j, err := scanJob(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Job{}, fmt.Errorf("%w: job %d", domain.ErrNotFound, id)
	}
	return j, err
}

// List returns jobs newest first, optionally filtered by status. A
// non-positive limit returns everything.
func (s *Store) List(ctx context.Context, status Status, limit int) ([]Job, error) {
	query := `SELECT id, job_name, status, start_time, end_time FROM jobs`
	var args []any
	if status != "" {
		query += ` WHERE status = ?`
		args = append(args, string(status))
	}
	query += ` ORDER BY id DESC`
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}
	rows, err := s.conn.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list jobs: %w", err)
	}
	defer rows.Close()

	var out []Job
	for rows.Next() {
		j, err := scanJob(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, j)
	}
	return out, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanJob(sc scanner) (Job, error) {
	var (
		j      Job
		status string
		end    sql.NullTime
	)
	if err := sc.Scan(&j.ID, &j.Name, &status, &j.StartTime, &end); err != nil {
		return Job{}, err
	}
	j.Status = Status(status)
	if end.Valid {
		t := end.Time
		j.EndTime = &t
	}
	return j, nil
}

// Track runs fn inside a job named name: the job is Completed when fn
// succeeds and Aborted otherwise. fn's error is returned unchanged.
func (s *Store) Track(ctx context.Context, name string, fn func(jobID int64) error) (int64, error) {
	id, err := s.Create(ctx, name)
	if err != nil {
		return 0, err
	}
	// Status writes must land even when the request context is gone.
	bg := context.WithoutCancel(ctx)
	if err := fn(id); err != nil {
		if uerr := s.Update(bg, id, StatusAborted); uerr != nil {
			logger.Error("Failed to mark job %d aborted: %v", id, uerr)
		}
		return id, err
	}
	if err := s.Update(bg, id, StatusCompleted); err != nil {
		logger.Error("Failed to mark job %d completed: %v", id, err)
	}
	return id, nil
}
