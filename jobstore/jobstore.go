// Package jobstore persists snapshots of tile jobs in a SQLite database,
// so that an interrupted job can be resumed from its last checkpoint.
//
// Note: User must properly initialize the sqlite3 library generic driver
// (e.g. import _ "github.com/mattn/go-sqlite3") before using this package.
package jobstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/eak1mov/go-tilescheme/scheme"
	"github.com/google/uuid"
)

var ErrJobNotFound = errors.New("tilescheme: job not found")

// Job is a summary of a stored job.
type Job struct {
	ID        string
	CreatedAt time.Time
	UpdatedAt time.Time
	Total     int64
	Processed int64
	Done      bool
}

// Store implements job snapshot storage on top of a SQLite database.
type Store struct {
	db     *sql.DB
	logger *slog.Logger
	now    func() time.Time
}

type storeConfig struct {
	Logger *slog.Logger
	Now    func() time.Time
}

type StoreOption func(*storeConfig)

func WithLogger(logger *slog.Logger) StoreOption {
	return func(c *storeConfig) { c.Logger = logger }
}

// WithClock replaces the time source used for job timestamps.
func WithClock(now func() time.Time) StoreOption {
	return func(c *storeConfig) { c.Now = now }
}

// Open opens (and creates if needed) a job database at the given path.
//
// The returned Store must be closed after use to release database resources.
func Open(filePath string, opts ...StoreOption) (*Store, error) {
	config := storeConfig{
		Logger: slog.New(slog.DiscardHandler),
		Now:    time.Now,
	}
	for _, opt := range opts {
		opt(&config)
	}

	var err error
	db, err := sql.Open("sqlite3", filePath)
	if err != nil {
		return nil, err
	}
	defer func() {
		if err != nil {
			db.Close()
		}
	}()

	_, err = db.Exec(`
		CREATE TABLE IF NOT EXISTS jobs (
			id TEXT PRIMARY KEY,
			created_at INTEGER NOT NULL,
			updated_at INTEGER NOT NULL,
			total INTEGER NOT NULL,
			processed INTEGER NOT NULL,
			done INTEGER NOT NULL,
			snapshot BLOB NOT NULL
		);
	`)
	if err != nil {
		return nil, err
	}

	return &Store{db: db, logger: config.Logger, now: config.Now}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

// Create stores the initial snapshot of a new job and returns its id.
func (s *Store) Create(ctx context.Context, snapshot scheme.Snapshot) (string, error) {
	data, err := snapshot.Encode()
	if err != nil {
		return "", err
	}

	id := uuid.NewString()
	now := s.now().Unix()
	_, err = s.db.ExecContext(ctx,
		"INSERT INTO jobs (id, created_at, updated_at, total, processed, done, snapshot) VALUES (?, ?, ?, ?, ?, ?, ?)",
		id, now, now, snapshot.Stats.Total, processed(snapshot), snapshot.Done(), data)
	if err != nil {
		return "", err
	}

	s.logger.Debug("tilescheme: job created", "job", id, "total", snapshot.Stats.Total)
	return id, nil
}

// Save replaces the stored snapshot of a job.
func (s *Store) Save(ctx context.Context, id string, snapshot scheme.Snapshot) error {
	data, err := snapshot.Encode()
	if err != nil {
		return err
	}

	result, err := s.db.ExecContext(ctx,
		"UPDATE jobs SET updated_at = ?, total = ?, processed = ?, done = ?, snapshot = ? WHERE id = ?",
		s.now().Unix(), snapshot.Stats.Total, processed(snapshot), snapshot.Done(), data, id)
	if err != nil {
		return err
	}
	n, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("%w: %s", ErrJobNotFound, id)
	}

	s.logger.Debug("tilescheme: job saved", "job", id, "cursor", snapshot.Cursor)
	return nil
}

// Load returns the last stored snapshot of a job.
func (s *Store) Load(ctx context.Context, id string) (scheme.Snapshot, error) {
	var data []byte
	err := s.db.QueryRowContext(ctx, "SELECT snapshot FROM jobs WHERE id = ?", id).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return scheme.Snapshot{}, fmt.Errorf("%w: %s", ErrJobNotFound, id)
	}
	if err != nil {
		return scheme.Snapshot{}, err
	}
	return scheme.DecodeSnapshot(data)
}

// List returns all jobs, oldest first.
func (s *Store) List(ctx context.Context) ([]Job, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT id, created_at, updated_at, total, processed, done FROM jobs ORDER BY created_at, id")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	jobs := make([]Job, 0)
	for rows.Next() {
		var job Job
		var createdAt, updatedAt int64
		if err := rows.Scan(&job.ID, &createdAt, &updatedAt, &job.Total, &job.Processed, &job.Done); err != nil {
			return nil, err
		}
		job.CreatedAt = time.Unix(createdAt, 0)
		job.UpdatedAt = time.Unix(updatedAt, 0)
		jobs = append(jobs, job)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return jobs, nil
}

// Delete removes a job.
func (s *Store) Delete(ctx context.Context, id string) error {
	result, err := s.db.ExecContext(ctx, "DELETE FROM jobs WHERE id = ?", id)
	if err != nil {
		return err
	}
	n, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("%w: %s", ErrJobNotFound, id)
	}
	return nil
}

func processed(snapshot scheme.Snapshot) int64 {
	return snapshot.Stats.Visited + snapshot.Stats.Skipped + snapshot.Stats.Failed
}
