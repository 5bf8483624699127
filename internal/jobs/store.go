// Package jobs persists render job records so detached renders can
// report progress and callers can poll for the outcome.
package jobs

import (
	"crypto/rand"
	"database/sql"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

// Job statuses. A render moves pending -> running -> done or failed;
// abandoned marks jobs whose process went away without finishing.
const (
	StatusPending   = "pending"
	StatusRunning   = "running"
	StatusDone      = "done"
	StatusFailed    = "failed"
	StatusAbandoned = "abandoned"
)

// Job is one render request's persistent record.
type Job struct {
	ID        string
	Template  string
	Status    string
	Progress  int
	Step      string
	Output    string
	Error     string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Store wraps the sqlite database holding job records.
type Store struct {
	db *sql.DB
}

const schema = `
CREATE TABLE IF NOT EXISTS jobs (
	id         TEXT PRIMARY KEY,
	template   TEXT NOT NULL,
	status     TEXT NOT NULL,
	progress   INTEGER NOT NULL DEFAULT 0,
	step       TEXT NOT NULL DEFAULT '',
	output     TEXT NOT NULL DEFAULT '',
	error      TEXT NOT NULL DEFAULT '',
	created_at TIMESTAMP NOT NULL,
	updated_at TIMESTAMP NOT NULL
);
`

// Open creates or opens the job database at path.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("open job store: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("init job store: %w", err)
	}
	return &Store{db: db}, nil
}

func (s *Store) Close() error { return s.db.Close() }

// Create registers a new pending job for the named template and returns
// its id.
func (s *Store) Create(template string) (string, error) {
	id, err := newID()
	if err != nil {
		return "", err
	}
	now := time.Now().UTC()
	_, err = s.db.Exec(
		`INSERT INTO jobs (id, template, status, created_at, updated_at) VALUES (?, ?, ?, ?, ?)`,
		id, template, StatusPending, now, now,
	)
	if err != nil {
		return "", fmt.Errorf("create job: %w", err)
	}
	return id, nil
}

// UpdateProgress records the percentage and human-readable step of a
// running job.
func (s *Store) UpdateProgress(id string, percent int, step string) error {
	if percent < 0 {
		percent = 0
	} else if percent > 100 {
		percent = 100
	}
	return s.update(id,
		`UPDATE jobs SET status = ?, progress = ?, step = ?, updated_at = ? WHERE id = ?`,
		StatusRunning, percent, step, time.Now().UTC(), id)
}

// Finish marks the job done with its output path.
func (s *Store) Finish(id, output string) error {
	return s.update(id,
		`UPDATE jobs SET status = ?, progress = 100, output = ?, updated_at = ? WHERE id = ?`,
		StatusDone, output, time.Now().UTC(), id)
}

// Fail marks the job failed with the error message.
func (s *Store) Fail(id, msg string) error {
	return s.update(id,
		`UPDATE jobs SET status = ?, error = ?, updated_at = ? WHERE id = ?`,
		StatusFailed, msg, time.Now().UTC(), id)
}

// MarkAbandoned flags running or pending jobs untouched for longer than
// age. Renders cannot be cancelled mid-flight; this is the only way a
// stuck record leaves the active set.
func (s *Store) MarkAbandoned(age time.Duration) (int, error) {
	cutoff := time.Now().UTC().Add(-age)
	res, err := s.db.Exec(
		`UPDATE jobs SET status = ?, updated_at = ? WHERE status IN (?, ?) AND updated_at < ?`,
		StatusAbandoned, time.Now().UTC(), StatusPending, StatusRunning, cutoff,
	)
	if err != nil {
		return 0, fmt.Errorf("mark abandoned: %w", err)
	}
	n, _ := res.RowsAffected()
	return int(n), nil
}

// ErrNotFound reports a job id with no record.
var ErrNotFound = errors.New("job not found")

// Get returns the job record for id.
func (s *Store) Get(id string) (Job, error) {
	row := s.db.QueryRow(
		`SELECT id, template, status, progress, step, output, error, created_at, updated_at FROM jobs WHERE id = ?`, id)
	var j Job
	err := row.Scan(&j.ID, &j.Template, &j.Status, &j.Progress, &j.Step, &j.Output, &j.Error, &j.CreatedAt, &j.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return Job{}, ErrNotFound
	}
	if err != nil {
		return Job{}, fmt.Errorf("get job: %w", err)
	}
	return j, nil
}

// List returns the most recent jobs, newest first.
func (s *Store) List(limit int) ([]Job, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.Query(
		`SELECT id, template, status, progress, step, output, error, created_at, updated_at FROM jobs ORDER BY created_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("list jobs: %w", err)
	}
	defer rows.Close()

	var out []Job
	for rows.Next() {
		var j Job
		if err := rows.Scan(&j.ID, &j.Template, &j.Status, &j.Progress, &j.Step, &j.Output, &j.Error, &j.CreatedAt, &j.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan job: %w", err)
		}
		out = append(out, j)
	}
	return out, rows.Err()
}

func (s *Store) update(id, query string, args ...any) error {
	res, err := s.db.Exec(query, args...)
	if err != nil {
		return fmt.Errorf("update job %s: %w", id, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func newID() (string, error) {
	var b [8]byte
	if _, err := rand.Read(b[:]); err != nil {
		return "", fmt.Errorf("job id: %w", err)
	}
	return hex.EncodeToString(b[:]), nil
}
