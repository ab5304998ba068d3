package db

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS runs (
	id              TEXT PRIMARY KEY,
	started_at      TEXT NOT NULL,
	finished_at     TEXT NOT NULL,
	keywords        TEXT NOT NULL,
	location        TEXT NOT NULL,
	records_fetched INTEGER NOT NULL,
	malformed       INTEGER NOT NULL,
	duplicates      INTEGER NOT NULL,
	jobs_reported   INTEGER NOT NULL,
	customized      INTEGER NOT NULL,
	failed          INTEGER NOT NULL,
	source_failures TEXT NOT NULL
);
CREATE TABLE IF NOT EXISTS run_jobs (
	run_id               TEXT NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
	job_id               TEXT NOT NULL,
	title                TEXT NOT NULL,
	company              TEXT NOT NULL,
	location             TEXT NOT NULL,
	source               TEXT NOT NULL,
	url                  TEXT NOT NULL,
	posted_at            TEXT,
	score                INTEGER NOT NULL,
	quality_tier         TEXT NOT NULL,
	matched_skills       TEXT NOT NULL,
	customization_status TEXT NOT NULL,
	error_reason         TEXT NOT NULL,
	output_folder        TEXT NOT NULL,
	seen_at              TEXT NOT NULL,
	PRIMARY KEY (run_id, job_id)
);
CREATE INDEX IF NOT EXISTS run_jobs_job_id ON run_jobs(job_id);
`

// SQLiteStore is the local run-history backend
type SQLiteStore struct {
	Pool *sql.DB
}

// OpenSQLite opens (creating if needed) a SQLite history file and applies the schema
func OpenSQLite(ctx context.Context, path string) (*SQLiteStore, error) {
	// modernc sqlite uses DSN like: file:foo.db?_pragma=busy_timeout(5000)
	dsn := fmt.Sprintf("file:%s?_pragma=busy_timeout(5000)&_pragma=foreign_keys(1)", path)

	pool, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite %s: %w", path, err)
	}

	// sqlite wants a single writer
	pool.SetMaxOpenConns(1)
	pool.SetConnMaxLifetime(5 * time.Minute)

	pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	if err := pool.PingContext(pingCtx); err != nil {
		_ = pool.Close()
		return nil, fmt.Errorf("failed to ping sqlite %s: %w", path, err)
	}

	if _, err := pool.ExecContext(ctx, sqliteSchema); err != nil {
		_ = pool.Close()
		return nil, fmt.Errorf("failed to apply schema: %w", err)
	}

	return &SQLiteStore{Pool: pool}, nil
}

// Close implements Store
func (s *SQLiteStore) Close() error {
	if s == nil || s.Pool == nil {
		return nil
	}
	return s.Pool.Close()
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

func parseTime(s string) (time.Time, error) {
	return time.Parse(time.RFC3339Nano, s)
}

// SaveRun implements Store
func (s *SQLiteStore) SaveRun(ctx context.Context, run *RunRecord) error {
	failures, err := marshalJSON(run.SourceFailures)
	if err != nil {
		return err
	}
	customized, failed := run.counts()

	tx, err := s.Pool.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	_, err = tx.ExecContext(ctx,
		`INSERT INTO runs (id, started_at, finished_at, keywords, location, records_fetched,
		                   malformed, duplicates, jobs_reported, customized, failed, source_failures)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		run.ID.String(), formatTime(run.StartedAt), formatTime(run.FinishedAt), run.Keywords, run.Location,
		run.RecordsFetched, run.Malformed, run.Duplicates, len(run.Jobs), customized, failed, failures,
	)
	if err != nil {
		return fmt.Errorf("failed to insert run: %w", err)
	}

	for _, j := range run.Jobs {
		skills, err := skillsJSON(j.MatchedSkills)
		if err != nil {
			return err
		}
		var postedAt any
		if j.PostedAt != nil {
			postedAt = formatTime(*j.PostedAt)
		}
		_, err = tx.ExecContext(ctx,
			`INSERT INTO run_jobs (run_id, job_id, title, company, location, source, url, posted_at, score,
			                       quality_tier, matched_skills, customization_status, error_reason, output_folder, seen_at)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			run.ID.String(), j.JobID, j.Title, j.Company, j.Location, j.Source, j.URL, postedAt, j.Score,
			j.QualityTier, skills, j.CustomizationStatus, j.ErrorReason, j.OutputFolder, formatTime(run.StartedAt),
		)
		if err != nil {
			return fmt.Errorf("failed to insert job %s: %w", j.JobID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit run: %w", err)
	}
	return nil
}

// FirstSeen implements Store
func (s *SQLiteStore) FirstSeen(ctx context.Context, jobIDs []string) (map[string]time.Time, error) {
	seen := make(map[string]time.Time)
	if len(jobIDs) == 0 {
		return seen, nil
	}

	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(jobIDs)), ",")
	args := make([]any, len(jobIDs))
	for i, id := range jobIDs {
		args[i] = id
	}

	rows, err := s.Pool.QueryContext(ctx,
		`SELECT job_id, MIN(seen_at) FROM run_jobs WHERE job_id IN (`+placeholders+`) GROUP BY job_id`,
		args...,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query history: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var id, at string
		if err := rows.Scan(&id, &at); err != nil {
			return nil, fmt.Errorf("failed to scan history: %w", err)
		}
		t, err := parseTime(at)
		if err != nil {
			return nil, fmt.Errorf("bad seen_at for %s: %w", id, err)
		}
		seen[id] = t
	}
	return seen, rows.Err()
}

// RecentRuns implements Store
func (s *SQLiteStore) RecentRuns(ctx context.Context, limit int) ([]RunSummary, error) {
	rows, err := s.Pool.QueryContext(ctx,
		`SELECT id, started_at, finished_at, keywords, location, jobs_reported, customized, failed
		 FROM runs ORDER BY started_at DESC LIMIT ?`,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}
	defer rows.Close()

	var runs []RunSummary
	for rows.Next() {
		var r RunSummary
		var id, started, finished string
		if err := rows.Scan(&id, &started, &finished, &r.Keywords, &r.Location, &r.JobsReported, &r.Customized, &r.Failed); err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}
		if r.ID, err = uuid.Parse(id); err != nil {
			return nil, fmt.Errorf("bad run id %q: %w", id, err)
		}
		if r.StartedAt, err = parseTime(started); err != nil {
			return nil, err
		}
		if r.FinishedAt, err = parseTime(finished); err != nil {
			return nil, err
		}
		runs = append(runs, r)
	}
	return runs, rows.Err()
}
