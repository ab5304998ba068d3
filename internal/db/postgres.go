package db

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const postgresSchema = `
CREATE TABLE IF NOT EXISTS runs (
	id              UUID PRIMARY KEY,
	started_at      TIMESTAMPTZ NOT NULL,
	finished_at     TIMESTAMPTZ NOT NULL,
	keywords        TEXT NOT NULL,
	location        TEXT NOT NULL,
	records_fetched INTEGER NOT NULL,
	malformed       INTEGER NOT NULL,
	duplicates      INTEGER NOT NULL,
	jobs_reported   INTEGER NOT NULL,
	customized      INTEGER NOT NULL,
	failed          INTEGER NOT NULL,
	source_failures JSONB NOT NULL
);
CREATE TABLE IF NOT EXISTS run_jobs (
	run_id               UUID NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
	job_id               TEXT NOT NULL,
	title                TEXT NOT NULL,
	company              TEXT NOT NULL,
	location             TEXT NOT NULL,
	source               TEXT NOT NULL,
	url                  TEXT NOT NULL,
	posted_at            TIMESTAMPTZ,
	score                INTEGER NOT NULL,
	quality_tier         TEXT NOT NULL,
	matched_skills       JSONB NOT NULL,
	customization_status TEXT NOT NULL,
	error_reason         TEXT NOT NULL,
	output_folder        TEXT NOT NULL,
	seen_at              TIMESTAMPTZ NOT NULL,
	PRIMARY KEY (run_id, job_id)
);
CREATE INDEX IF NOT EXISTS run_jobs_job_id ON run_jobs(job_id);
`

// PostgresStore is the shared run-history backend
type PostgresStore struct {
	pool *pgxpool.Pool
}

// ConnectPostgres creates a connection pool and applies the schema
func ConnectPostgres(ctx context.Context, databaseURL string) (*PostgresStore, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	if _, err := pool.Exec(ctx, postgresSchema); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to apply schema: %w", err)
	}

	return &PostgresStore{pool: pool}, nil
}

// Close implements Store
func (s *PostgresStore) Close() error {
	if s.pool != nil {
		s.pool.Close()
	}
	return nil
}

// SaveRun implements Store
func (s *PostgresStore) SaveRun(ctx context.Context, run *RunRecord) error {
	failures, err := marshalJSON(run.SourceFailures)
	if err != nil {
		return err
	}
	customized, failed := run.counts()

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	_, err = tx.Exec(ctx,
		`INSERT INTO runs (id, started_at, finished_at, keywords, location, records_fetched,
		                   malformed, duplicates, jobs_reported, customized, failed, source_failures)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`,
		run.ID, run.StartedAt, run.FinishedAt, run.Keywords, run.Location, run.RecordsFetched,
		run.Malformed, run.Duplicates, len(run.Jobs), customized, failed, failures,
	)
	if err != nil {
		return fmt.Errorf("failed to insert run: %w", err)
	}

	batch := &pgx.Batch{}
	for _, j := range run.Jobs {
		skills, err := skillsJSON(j.MatchedSkills)
		if err != nil {
			return err
		}
		batch.Queue(
			`INSERT INTO run_jobs (run_id, job_id, title, company, location, source, url, posted_at, score,
			                       quality_tier, matched_skills, customization_status, error_reason, output_folder, seen_at)
			 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)`,
			run.ID, j.JobID, j.Title, j.Company, j.Location, j.Source, j.URL, j.PostedAt, j.Score,
			j.QualityTier, skills, j.CustomizationStatus, j.ErrorReason, j.OutputFolder, run.StartedAt,
		)
	}
	if err := tx.SendBatch(ctx, batch).Close(); err != nil {
		return fmt.Errorf("failed to insert jobs: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit run: %w", err)
	}
	return nil
}

// FirstSeen implements Store
func (s *PostgresStore) FirstSeen(ctx context.Context, jobIDs []string) (map[string]time.Time, error) {
	seen := make(map[string]time.Time)
	if len(jobIDs) == 0 {
		return seen, nil
	}

	rows, err := s.pool.Query(ctx,
		`SELECT job_id, MIN(seen_at) FROM run_jobs WHERE job_id = ANY($1) GROUP BY job_id`,
		jobIDs,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query history: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var id string
		var at time.Time
		if err := rows.Scan(&id, &at); err != nil {
			return nil, fmt.Errorf("failed to scan history: %w", err)
		}
		seen[id] = at
	}
	return seen, rows.Err()
}

// RecentRuns implements Store
func (s *PostgresStore) RecentRuns(ctx context.Context, limit int) ([]RunSummary, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, started_at, finished_at, keywords, location, jobs_reported, customized, failed
		 FROM runs ORDER BY started_at DESC LIMIT $1`,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}
	defer rows.Close()

	var runs []RunSummary
	for rows.Next() {
		var r RunSummary
		if err := rows.Scan(&r.ID, &r.StartedAt, &r.FinishedAt, &r.Keywords, &r.Location,
			&r.JobsReported, &r.Customized, &r.Failed); err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}
		runs = append(runs, r)
	}
	return runs, rows.Err()
}

// Verify interface compliance
var (
	_ Store = (*PostgresStore)(nil)
	_ Store = (*SQLiteStore)(nil)
)
