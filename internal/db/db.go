// Package db persists run history: one row per run and one per reported job, in Postgres
// (pgx) or a local SQLite file (modernc).
package db

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/jonathan/job-digest/internal/report"
	"github.com/jonathan/job-digest/internal/types"
)

// Store records runs and answers history queries
type Store interface {
	// SaveRun persists a run and its jobs in one transaction
	SaveRun(ctx context.Context, run *RunRecord) error
	// FirstSeen returns, for each id already recorded by an earlier run, when it was first reported
	FirstSeen(ctx context.Context, jobIDs []string) (map[string]time.Time, error)
	// RecentRuns lists the latest runs, newest first
	RecentRuns(ctx context.Context, limit int) ([]RunSummary, error)
	Close() error
}

// Open connects to the store named by dsn: postgres:// URLs use pgx, anything else is a
// SQLite file path.
func Open(ctx context.Context, dsn string) (Store, error) {
	if IsPostgres(dsn) {
		return ConnectPostgres(ctx, dsn)
	}
	return OpenSQLite(ctx, dsn)
}

// IsPostgres reports whether dsn names a Postgres database
func IsPostgres(dsn string) bool {
	return strings.HasPrefix(dsn, "postgres://") || strings.HasPrefix(dsn, "postgresql://")
}

// RunRecord is one run as persisted
type RunRecord struct {
	ID             uuid.UUID
	StartedAt      time.Time
	FinishedAt     time.Time
	Keywords       string
	Location       string
	RecordsFetched int
	Malformed      int
	Duplicates     int
	SourceFailures map[string]string
	Jobs           []JobRecord
}

// JobRecord is one reported job within a run
type JobRecord struct {
	JobID               string
	Title               string
	Company             string
	Location            string
	Source              string
	URL                 string
	PostedAt            *time.Time
	Score               int
	QualityTier         string
	MatchedSkills       []string
	CustomizationStatus string
	ErrorReason         string
	OutputFolder        string
}

// RunSummary is a row of the run listing
type RunSummary struct {
	ID           uuid.UUID
	StartedAt    time.Time
	FinishedAt   time.Time
	Keywords     string
	Location     string
	JobsReported int
	Customized   int
	Failed       int
}

// NewRunRecord flattens a digest for storage
func NewRunRecord(id uuid.UUID, d *report.Digest) *RunRecord {
	stats := report.ComputeStats(d)
	run := &RunRecord{
		ID:             id,
		StartedAt:      d.StartedAt,
		FinishedAt:     d.FinishedAt,
		Keywords:       d.Settings.Keywords,
		Location:       d.Settings.Location,
		RecordsFetched: stats.RecordsFetched,
		Malformed:      d.Malformed,
		Duplicates:     d.Duplicates,
		SourceFailures: make(map[string]string),
		Jobs:           make([]JobRecord, 0, len(d.Jobs)),
	}
	for _, s := range stats.FailedSources {
		run.SourceFailures[string(s.Source)] = s.Error
	}

	for i := range d.Jobs {
		job := &d.Jobs[i]
		rec := JobRecord{
			JobID:               job.ID,
			Title:               job.Title,
			Company:             job.Company,
			Location:            job.Location,
			Source:              string(job.Source),
			URL:                 job.URL,
			PostedAt:            job.PostedAt,
			Score:               job.Score,
			QualityTier:         string(job.QualityTier),
			MatchedSkills:       job.MatchedSkills,
			CustomizationStatus: report.NotSelected,
		}
		if r := d.Result(job.ID); r != nil {
			rec.CustomizationStatus = string(r.Status)
			rec.ErrorReason = r.Reason()
			rec.OutputFolder = r.OutputFolder
		}
		run.Jobs = append(run.Jobs, rec)
	}
	return run
}

// counts returns how many jobs were customized successfully and how many failed
func (r *RunRecord) counts() (customized, failed int) {
	for _, j := range r.Jobs {
		switch j.CustomizationStatus {
		case string(types.StatusSuccess):
			customized++
		case string(types.StatusFailed):
			failed++
		}
	}
	return customized, failed
}

func marshalJSON(v any) (string, error) {
	if v == nil {
		return "null", nil
	}
	b, err := json.Marshal(v)
	if err != nil {
		return "", fmt.Errorf("failed to marshal: %w", err)
	}
	return string(b), nil
}

func skillsJSON(skills []string) (string, error) {
	if skills == nil {
		skills = []string{}
	}
	return marshalJSON(skills)
}
