package jobs

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	_ "modernc.org/sqlite"
)

// Store keeps job records in sqlite. Records older than the TTL are treated as
// gone and removed by Prune.
type Store struct {
	db  *sql.DB
	ttl time.Duration
	now func() time.Time
}

func NewStore(dbPath string, ttl time.Duration) (*Store, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, err
	}
	// one writer at a time; concurrent workers would otherwise hit SQLITE_BUSY
	db.SetMaxOpenConns(1)

	_, err = db.Exec(`
		CREATE TABLE IF NOT EXISTS jobs (
			id TEXT NOT NULL PRIMARY KEY,
			kind TEXT NOT NULL,
			status TEXT NOT NULL,
			data TEXT NOT NULL,
			created_at INTEGER NOT NULL
		)
	`)
	if err != nil {
		db.Close()
		return nil, err
	}

	return &Store{db: db, ttl: ttl, now: time.Now}, nil
}

// Save inserts or replaces a job record.
func (s *Store) Save(ctx context.Context, job Job) error {
	data, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("encode job %s: %w", job.ID, err)
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO jobs (id, kind, status, data, created_at)
		 VALUES (?, ?, ?, ?, ?)
		 ON CONFLICT(id)
		 DO UPDATE SET status = excluded.status, data = excluded.data`,
		job.ID, string(job.Kind), string(job.Status), string(data), job.CreatedAt.UnixNano(),
	)
	if err != nil {
		return fmt.Errorf("store job %s: %w", job.ID, err)
	}
	return nil
}

func (s *Store) Get(ctx context.Context, id string) (Job, error) {
	var data string
	var createdAt int64

	err := s.db.QueryRowContext(ctx,
		`SELECT data, created_at FROM jobs WHERE id = ?`, id,
	).Scan(&data, &createdAt)
	if errors.Is(err, sql.ErrNoRows) {
		return Job{}, fmt.Errorf("%w: %s", ErrJobNotFound, id)
	}
	if err != nil {
		return Job{}, fmt.Errorf("load job %s: %w", id, err)
	}

	if s.now().Sub(time.Unix(0, createdAt)) > s.ttl {
		return Job{}, fmt.Errorf("%w: %s (expired)", ErrJobNotFound, id)
	}

	var job Job
	if err := json.Unmarshal([]byte(data), &job); err != nil {
		return Job{}, fmt.Errorf("decode job %s: %w", id, err)
	}
	return job, nil
}

// Prune deletes records older than the TTL and reports how many were removed.
func (s *Store) Prune(ctx context.Context) (int64, error) {
	cutoff := s.now().Add(-s.ttl).UnixNano()
	res, err := s.db.ExecContext(ctx, `DELETE FROM jobs WHERE created_at < ?`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("prune jobs: %w", err)
	}
	return res.RowsAffected()
}

func (s *Store) Close() error {
	return s.db.Close()
}
