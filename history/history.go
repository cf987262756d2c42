// Package history keeps a log of dispatched jobs in sqlite so that an
// interrupted job can be resumed from the first unsent line.
package history

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/mastercactapus/lasersend/stream"

	_ "modernc.org/sqlite"
)

// ErrNotFound is returned when there is no job to resume.
var ErrNotFound = errors.New("no incomplete job")

const schemaSQL = `
CREATE TABLE IF NOT EXISTS jobs (
	id          TEXT PRIMARY KEY,
	file        TEXT NOT NULL,
	started_at  TEXT NOT NULL,
	finished_at TEXT,
	total       INTEGER NOT NULL,
	sent        INTEGER NOT NULL DEFAULT 0,
	last_index  INTEGER NOT NULL DEFAULT 0,
	status      TEXT NOT NULL,
	error_kind  TEXT NOT NULL DEFAULT ''
);

CREATE INDEX IF NOT EXISTS idx_jobs_file ON jobs(file, started_at);
`

// timeFormat sorts lexically in time order.
const timeFormat = "2006-01-02T15:04:05.000000000Z"

// Job statuses.
const (
	StatusRunning = "running"
	StatusDone    = "done"
	StatusFailed  = "failed"
)

// Job is one dispatch of a file.
type Job struct {
	ID         string
	File       string
	StartedAt  time.Time
	FinishedAt time.Time
	Total      int
	Sent       int

	// LastIndex is the index of the first line not yet sent.
	LastIndex int
	Status    string
	ErrorKind stream.Kind
}

// Store is a job log backed by a sqlite database.
type Store struct {
	db  *sql.DB
	now func() time.Time
}

// Open opens (or creates) the database at path.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open history: %w", err)
	}
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(schemaSQL); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}

	return &Store{db: db, now: time.Now}, nil
}

func (s *Store) Close() error { return s.db.Close() }

func (s *Store) timestamp() string { return s.now().UTC().Format(timeFormat) }

// Begin records the start of a dispatch of total lines of file, starting at start.
func (s *Store) Begin(file string, total, start int) (*Job, error) {
	job := &Job{
		ID:        uuid.NewString(),
		File:      file,
		Total:     total,
		LastIndex: start,
		Status:    StatusRunning,
	}
	ts := s.timestamp()
	job.StartedAt, _ = time.Parse(timeFormat, ts)

	_, err := s.db.Exec(`
		INSERT INTO jobs (id, file, started_at, total, last_index, status)
		VALUES (?, ?, ?, ?, ?, ?)`,
		job.ID, job.File, ts, job.Total, job.LastIndex, job.Status,
	)
	if err != nil {
		return nil, fmt.Errorf("begin job: %w", err)
	}
	return job, nil
}

// Progress records that the line at index was sent.
func (s *Store) Progress(id string, index int) error {
	_, err := s.db.Exec(`UPDATE jobs SET sent = sent + 1, last_index = ? WHERE id = ?`, index+1, id)
	if err != nil {
		return fmt.Errorf("update job %s: %w", id, err)
	}
	return nil
}

// Finish records the outcome of a dispatch.
func (s *Store) Finish(id string, r stream.Result) error {
	status := StatusDone
	if !r.Done() {
		status = StatusFailed
	}
	res, err := s.db.Exec(`
		UPDATE jobs SET finished_at = ?, last_index = ?, status = ?, error_kind = ?
		WHERE id = ?`,
		s.timestamp(), r.Next, status, string(r.Kind()), id,
	)
	if err != nil {
		return fmt.Errorf("finish job %s: %w", id, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("finish job %s: %w", id, sql.ErrNoRows)
	}
	return nil
}

const jobColumns = `id, file, started_at, COALESCE(finished_at, ''), total, sent, last_index, status, error_kind`

func scanJob(row interface{ Scan(...interface{}) error }) (*Job, error) {
	var (
		j                 Job
		started, finished string
		kind              string
	)
	err := row.Scan(&j.ID, &j.File, &started, &finished, &j.Total, &j.Sent, &j.LastIndex, &j.Status, &kind)
	if err != nil {
		return nil, err
	}
	j.ErrorKind = stream.Kind(kind)
	j.StartedAt, _ = time.Parse(timeFormat, started)
	if finished != "" {
		j.FinishedAt, _ = time.Parse(timeFormat, finished)
	}
	return &j, nil
}

// Get returns the job with the given ID.
func (s *Store) Get(id string) (*Job, error) {
	j, err := scanJob(s.db.QueryRow(`SELECT `+jobColumns+` FROM jobs WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("job %s: %w", id, ErrNotFound)
	}
	return j, err
}

// LastIncomplete returns the most recent job for file if it did not
// finish. A job left running by a crashed process counts as incomplete.
func (s *Store) LastIncomplete(file string) (*Job, error) {
	j, err := scanJob(s.db.QueryRow(`
		SELECT `+jobColumns+` FROM jobs
		WHERE file = ?
		ORDER BY started_at DESC, rowid DESC
		LIMIT 1`, file))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("last job for %s: %w", file, err)
	}
	if j.Status == StatusDone {
		return nil, ErrNotFound
	}
	return j, nil
}

// Recent returns up to n jobs, newest first.
func (s *Store) Recent(n int) ([]Job, error) {
	rows, err := s.db.Query(`SELECT `+jobColumns+` FROM jobs ORDER BY started_at DESC, rowid DESC LIMIT ?`, n)
	if err != nil {
		return nil, fmt.Errorf("list jobs: %w", err)
	}
	defer rows.Close()

	var jobs []Job
	for rows.Next() {
		j, err := scanJob(rows)
		if err != nil {
			return nil, fmt.Errorf("list jobs: %w", err)
		}
		jobs = append(jobs, *j)
	}
	return jobs, rows.Err()
}
