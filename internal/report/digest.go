// Package report aggregates run statistics and renders the digest as email, CSV and console output.
package report

import (
	"errors"
	"time"

	"github.com/jonathan/job-digest/internal/config"
	"github.com/jonathan/job-digest/internal/scoring"
	"github.com/jonathan/job-digest/internal/sources"
	"github.com/jonathan/job-digest/internal/types"
)

// Settings is the filter profile echoed in the digest
type Settings struct {
	Keywords        string
	Location        string
	TimeRangeHours  int
	RequiredSkills  []string
	PreferredSkills []string
	ExcludeKeywords []string
	MinScore        int
}

// SettingsFromConfig copies the reported filter settings out of the run configuration
func SettingsFromConfig(cfg *config.Config) Settings {
	return Settings{
		Keywords:        cfg.SearchKeywords,
		Location:        cfg.Location,
		TimeRangeHours:  cfg.TimeRangeHours,
		RequiredSkills:  cfg.RequiredSkills,
		PreferredSkills: cfg.PreferredSkills,
		ExcludeKeywords: cfg.ExcludeKeywords,
		MinScore:        cfg.MinSkillMatchScore,
	}
}

// SourceSummary is one adapter's contribution to the run
type SourceSummary struct {
	Source   types.SourceKind
	Records  int
	Skipped  bool
	Error    string
	Duration time.Duration
}

// Failed reports whether the adapter failed or was skipped
func (s SourceSummary) Failed() bool {
	return s.Error != ""
}

// SummarizeSources converts adapter outcomes for reporting
func SummarizeSources(outcomes []sources.Outcome) []SourceSummary {
	out := make([]SourceSummary, 0, len(outcomes))
	for _, o := range outcomes {
		s := SourceSummary{Source: o.Source, Records: len(o.Records), Skipped: o.Skipped, Duration: o.Duration}
		if o.Err != nil {
			s.Error = reasonOf(o.Err)
		}
		out = append(out, s)
	}
	return out
}

// reasonOf prefers the adapter's own message over the full wrapped chain
func reasonOf(err error) string {
	var adapterErr *sources.AdapterError
	if errors.As(err, &adapterErr) && adapterErr.Message != "" {
		return adapterErr.Message
	}
	return err.Error()
}

// Digest is everything one run produced
type Digest struct {
	RunID      string
	StartedAt  time.Time
	FinishedAt time.Time
	Settings   Settings

	Sources []SourceSummary
	// Malformed counts records dropped by the normalizer
	Malformed int
	// Duplicates counts records merged away by the deduplicator
	Duplicates int
	Stages     []scoring.StageStats
	// Jobs are the surviving jobs in ranked order
	Jobs []types.Job
	// Results holds customization outcomes for the selected jobs, in ranked order
	Results []types.CustomizationResult

	// Delivery problems recorded after the report was built (store, archive)
	Warnings []string
}

// Result returns the customization outcome for a job, or nil if it was not selected
func (d *Digest) Result(jobID string) *types.CustomizationResult {
	for i := range d.Results {
		if d.Results[i].JobID == jobID {
			return &d.Results[i]
		}
	}
	return nil
}
