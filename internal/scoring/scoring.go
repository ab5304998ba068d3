// Package scoring filters jobs through the configured stages and assigns relevance
// scores and quality tiers.
package scoring

import (
	"strings"
	"time"

	"github.com/jonathan/job-digest/internal/config"
	"github.com/jonathan/job-digest/internal/types"
)

// Stage names, in execution order
const (
	StageTimeWindow     = "time_window"
	StageExcludeKeyword = "exclude_keywords"
	StageRequiredSkills = "required_skills"
	StagePreferredScore = "preferred_scoring"
	StageMinScore       = "min_score"
)

// Options holds everything the filter and scorer need
type Options struct {
	Now             time.Time
	TimeRange       time.Duration
	UnknownPostedAt config.UnknownPostedAtPolicy

	ExcludeKeywords []string
	RequiredSkills  []string
	PreferredSkills []string

	MinScore        int
	RequiredBonus   int
	HighThreshold   int
	MediumThreshold int

	TimeWindow   bool
	Exclude      bool
	Required     bool
	MinScoreGate bool
}

// OptionsFromConfig derives scoring options from the run configuration
func OptionsFromConfig(cfg *config.Config, now time.Time) Options {
	return Options{
		Now:             now,
		TimeRange:       time.Duration(cfg.TimeRangeHours) * time.Hour,
		UnknownPostedAt: cfg.UnknownPostedAt,
		ExcludeKeywords: lowerAll(cfg.ExcludeKeywords),
		RequiredSkills:  lowerAll(cfg.RequiredSkills),
		PreferredSkills: lowerAll(cfg.PreferredSkills),
		MinScore:        cfg.MinSkillMatchScore,
		RequiredBonus:   cfg.RequiredSkillBonus,
		HighThreshold:   cfg.HighTierThreshold,
		MediumThreshold: cfg.MediumTierThreshold,
		TimeWindow:      cfg.FilterTimeWindow,
		Exclude:         cfg.FilterExclude,
		Required:        cfg.FilterRequired,
		MinScoreGate:    cfg.FilterMinScore,
	}
}

// StageStats records how many jobs entered and left one stage
type StageStats struct {
	Stage   string
	Enabled bool
	In      int
	Out     int
}

// Dropped returns the number of jobs the stage removed
func (s StageStats) Dropped() int {
	return s.In - s.Out
}

// Result is the scored job list plus per-stage accounting
type Result struct {
	Jobs   []types.Job
	Stages []StageStats
	// UnknownPostedAt counts jobs that reached the time-window stage without a posting time
	UnknownPostedAt int
}

// Apply runs the filter stages in order and scores the survivors. The input slice is
// not modified; scored jobs are copies.
func Apply(jobs []types.Job, opts Options) *Result {
	result := &Result{}
	current := make([]types.Job, len(jobs))
	copy(current, jobs)

	for _, job := range current {
		if !job.HasPostedAt() {
			result.UnknownPostedAt++
		}
	}

	current = result.stage(StageTimeWindow, opts.TimeWindow, current, func(j *types.Job) bool {
		return WithinWindow(j, opts.Now, opts.TimeRange, opts.UnknownPostedAt)
	})
	current = result.stage(StageExcludeKeyword, opts.Exclude && len(opts.ExcludeKeywords) > 0, current, func(j *types.Job) bool {
		return !ContainsExcluded(j, opts.ExcludeKeywords)
	})
	current = result.stage(StageRequiredSkills, opts.Required && len(opts.RequiredSkills) > 0, current, func(j *types.Job) bool {
		return HasAllSkills(j.Description, opts.RequiredSkills)
	})

	for i := range current {
		Score(&current[i], opts)
	}
	result.Stages = append(result.Stages, StageStats{Stage: StagePreferredScore, Enabled: true, In: len(current), Out: len(current)})

	current = result.stage(StageMinScore, opts.MinScoreGate, current, func(j *types.Job) bool {
		return j.Score >= opts.MinScore
	})

	result.Jobs = current
	return result
}

func (r *Result) stage(name string, enabled bool, jobs []types.Job, keep func(*types.Job) bool) []types.Job {
	stats := StageStats{Stage: name, Enabled: enabled, In: len(jobs)}
	if !enabled {
		stats.Out = len(jobs)
		r.Stages = append(r.Stages, stats)
		return jobs
	}

	kept := jobs[:0:0]
	for i := range jobs {
		if keep(&jobs[i]) {
			kept = append(kept, jobs[i])
		}
	}
	stats.Out = len(kept)
	r.Stages = append(r.Stages, stats)
	return kept
}

// WithinWindow reports whether a job passes the time-window stage. Jobs without a
// posting time follow the unknown policy.
func WithinWindow(job *types.Job, now time.Time, window time.Duration, unknown config.UnknownPostedAtPolicy) bool {
	if !job.HasPostedAt() {
		return unknown != config.PolicyExclude
	}
	return !job.PostedAt.Before(now.Add(-window))
}

// ContainsExcluded reports whether the title or description contains any excluded keyword
func ContainsExcluded(job *types.Job, keywords []string) bool {
	title := strings.ToLower(job.Title)
	description := strings.ToLower(job.Description)
	for _, kw := range keywords {
		if kw == "" {
			continue
		}
		if strings.Contains(title, kw) || strings.Contains(description, kw) {
			return true
		}
	}
	return false
}

// HasAllSkills reports whether text contains every skill, case-insensitively.
// An empty skill list is trivially satisfied.
func HasAllSkills(text string, skills []string) bool {
	lower := strings.ToLower(text)
	for _, skill := range skills {
		if skill != "" && !strings.Contains(lower, strings.ToLower(skill)) {
			return false
		}
	}
	return true
}

// Score sets MatchedSkills, Score and QualityTier on job. Each preferred skill found in
// the description adds one point; containing every required skill adds the bonus.
func Score(job *types.Job, opts Options) {
	description := strings.ToLower(job.Description)

	matched := make([]string, 0, len(opts.PreferredSkills))
	for _, skill := range opts.PreferredSkills {
		if skill != "" && strings.Contains(description, strings.ToLower(skill)) {
			matched = append(matched, skill)
		}
	}

	score := len(matched)
	if len(opts.RequiredSkills) > 0 && HasAllSkills(job.Description, opts.RequiredSkills) {
		score += opts.RequiredBonus
	}

	job.MatchedSkills = matched
	job.Score = score
	job.QualityTier = Tier(score, opts.HighThreshold, opts.MediumThreshold)
}

// Tier maps a score onto a quality tier
func Tier(score, high, medium int) types.QualityTier {
	switch {
	case score >= high:
		return types.TierHigh
	case score >= medium:
		return types.TierMedium
	default:
		return types.TierLow
	}
}

func lowerAll(values []string) []string {
	out := make([]string, 0, len(values))
	for _, v := range values {
		v = strings.ToLower(strings.TrimSpace(v))
		if v != "" {
			out = append(out, v)
		}
	}
	return out
}
