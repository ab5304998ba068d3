package scoring

import (
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/jonathan/job-digest/internal/config"
	"github.com/jonathan/job-digest/internal/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var now = time.Date(2026, 10, 18, 12, 0, 0, 0, time.UTC)

func hoursAgo(h int) *time.Time {
	t := now.Add(-time.Duration(h) * time.Hour)
	return &t
}

func baseOptions() Options {
	return Options{
		Now:             now,
		TimeRange:       24 * time.Hour,
		UnknownPostedAt: config.PolicyInclude,
		PreferredSkills: []string{"python", "aws"},
		MinScore:        1,
		RequiredBonus:   3,
		HighThreshold:   3,
		MediumThreshold: 1,
		TimeWindow:      true,
		Exclude:         true,
		Required:        true,
		MinScoreGate:    true,
	}
}

func TestApply_RequiredSkillScenario(t *testing.T) {
	opts := baseOptions()
	opts.RequiredSkills = []string{"kubernetes"}

	jobs := []types.Job{{ID: "1", Title: "ML Engineer", Description: "python, aws, kubernetes experience", PostedAt: hoursAgo(1)}}
	result := Apply(jobs, opts)

	require.Len(t, result.Jobs, 1)
	job := result.Jobs[0]
	assert.Equal(t, 2+3, job.Score)
	assert.Equal(t, []string{"python", "aws"}, job.MatchedSkills)
	assert.Equal(t, types.TierHigh, job.QualityTier)

	// Input is untouched
	assert.Zero(t, jobs[0].Score)
}

func TestApply_TimeWindowExcludesOldJob(t *testing.T) {
	opts := baseOptions()
	jobs := []types.Job{
		{ID: "old", Description: "python", PostedAt: hoursAgo(30)},
		{ID: "new", Description: "python", PostedAt: hoursAgo(5)},
	}

	result := Apply(jobs, opts)
	require.Len(t, result.Jobs, 1)
	assert.Equal(t, "new", result.Jobs[0].ID)
	assert.Equal(t, 1, result.Stages[0].Dropped())
}

func TestApply_UnknownPostedAtPolicy(t *testing.T) {
	jobs := []types.Job{
		{ID: "unknown", Description: "python"},
		{ID: "known", Description: "python", PostedAt: hoursAgo(2)},
	}

	t.Run("include keeps unknown", func(t *testing.T) {
		opts := baseOptions()
		opts.UnknownPostedAt = config.PolicyInclude
		result := Apply(jobs, opts)
		assert.Len(t, result.Jobs, 2)
		assert.Equal(t, 1, result.UnknownPostedAt)
	})

	t.Run("exclude drops unknown", func(t *testing.T) {
		opts := baseOptions()
		opts.UnknownPostedAt = config.PolicyExclude
		result := Apply(jobs, opts)
		require.Len(t, result.Jobs, 1)
		assert.Equal(t, "known", result.Jobs[0].ID)
	})

	t.Run("disabled window keeps both regardless of policy", func(t *testing.T) {
		opts := baseOptions()
		opts.UnknownPostedAt = config.PolicyExclude
		opts.TimeWindow = false
		result := Apply(jobs, opts)
		assert.Len(t, result.Jobs, 2)
		assert.False(t, result.Stages[0].Enabled)
	})
}

func TestApply_ExcludeKeywords(t *testing.T) {
	opts := baseOptions()
	opts.ExcludeKeywords = []string{"intern", "junior"}
	jobs := []types.Job{
		{ID: "title", Title: "ML Intern", Description: "python"},
		{ID: "desc", Title: "ML Engineer", Description: "Python role, JUNIOR level"},
		{ID: "ok", Title: "ML Engineer", Description: "python"},
	}

	result := Apply(jobs, opts)
	require.Len(t, result.Jobs, 1)
	assert.Equal(t, "ok", result.Jobs[0].ID)
}

func TestApply_RequiredSkillsAllMustMatch(t *testing.T) {
	opts := baseOptions()
	opts.RequiredSkills = []string{"kubernetes", "go"}
	opts.MinScoreGate = false
	jobs := []types.Job{
		{ID: "both", Description: "Kubernetes and Go services"},
		{ID: "one", Description: "Kubernetes only"},
		{ID: "title-only", Title: "Go Kubernetes Engineer", Description: "nothing relevant"},
	}

	result := Apply(jobs, opts)
	require.Len(t, result.Jobs, 1)
	for _, job := range result.Jobs {
		for _, skill := range opts.RequiredSkills {
			assert.Contains(t, strings.ToLower(job.Description), skill)
		}
	}
}

func TestApply_EmptyRequiredIsPassThrough(t *testing.T) {
	opts := baseOptions()
	opts.MinScoreGate = false
	jobs := []types.Job{{ID: "a"}, {ID: "b", Description: "python"}}

	result := Apply(jobs, opts)
	assert.Len(t, result.Jobs, 2)
	assert.Equal(t, 0, result.Jobs[0].Score, "no bonus without required skills")
	assert.False(t, result.Stages[2].Enabled)
}

func TestApply_MinScoreGate(t *testing.T) {
	opts := baseOptions()
	opts.MinScore = 2
	jobs := []types.Job{
		{ID: "one", Description: "python"},
		{ID: "two", Description: "python on aws"},
	}

	result := Apply(jobs, opts)
	require.Len(t, result.Jobs, 1)
	assert.Equal(t, "two", result.Jobs[0].ID)

	last := result.Stages[len(result.Stages)-1]
	assert.Equal(t, StageMinScore, last.Stage)
	assert.Equal(t, 2, last.In)
	assert.Equal(t, 1, last.Out)
}

func TestScore_MonotonicInPreferredMatches(t *testing.T) {
	skills := []string{"python", "aws", "pytorch", "docker", "sql"}
	opts := baseOptions()
	opts.PreferredSkills = skills

	prev := -1
	for n := 0; n <= len(skills); n++ {
		job := types.Job{Description: strings.Join(skills[:n], " ")}
		Score(&job, opts)
		assert.GreaterOrEqual(t, job.Score, prev, fmt.Sprintf("%d matches", n))
		assert.Len(t, job.MatchedSkills, n)
		prev = job.Score
	}
}

func TestTier(t *testing.T) {
	tests := []struct {
		score int
		want  types.QualityTier
	}{
		{score: 0, want: types.TierLow},
		{score: 1, want: types.TierMedium},
		{score: 2, want: types.TierMedium},
		{score: 3, want: types.TierHigh},
		{score: 10, want: types.TierHigh},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Tier(tt.score, 3, 1), "score %d", tt.score)
	}
	assert.Equal(t, types.TierMedium, Tier(4, 5, 4), "thresholds come from configuration")
}

func TestOptionsFromConfig(t *testing.T) {
	cfg, err := config.Load(config.MapLookup(map[string]string{
		config.KeyRequiredSkills:  " Kubernetes ,",
		config.KeyTimeRangeHours:  "48",
		config.KeyFilterExclude:   "false",
		config.KeyExcludeKeywords: "intern",
	}))
	require.NoError(t, err)

	opts := OptionsFromConfig(cfg, now)
	assert.Equal(t, []string{"kubernetes"}, opts.RequiredSkills)
	assert.Equal(t, 48*time.Hour, opts.TimeRange)
	assert.False(t, opts.Exclude)
	assert.Equal(t, now, opts.Now)
}
