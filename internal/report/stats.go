package report

import (
	"sort"

	"github.com/jonathan/job-digest/internal/types"
)

const topSkillsCount = 5

// Count is a named tally
type Count struct {
	Name  string
	Count int
}

// CustomizationStats tallies customization outcomes
type CustomizationStats struct {
	Selected  int
	Succeeded int
	Skipped   int
	Failed    int
	APICalls  int
}

// Stats is the aggregate view of a run
type Stats struct {
	TotalJobs      int
	BySource       []Count
	ByTier         map[types.QualityTier]int
	TopSkills      []Count
	Customization  CustomizationStats
	FailedSources  []SourceSummary
	RecordsFetched int
}

// ComputeStats aggregates source, tier, skill and customization counts
func ComputeStats(d *Digest) Stats {
	stats := Stats{
		TotalJobs: len(d.Jobs),
		ByTier:    map[types.QualityTier]int{types.TierHigh: 0, types.TierMedium: 0, types.TierLow: 0},
	}

	bySource := make(map[string]int)
	skills := make(map[string]int)
	for i := range d.Jobs {
		job := &d.Jobs[i]
		bySource[string(job.Source)]++
		stats.ByTier[job.QualityTier]++
		for _, s := range job.MatchedSkills {
			skills[s]++
		}
	}
	stats.BySource = sortedCounts(bySource, 0)
	stats.TopSkills = sortedCounts(skills, topSkillsCount)

	for _, s := range d.Sources {
		stats.RecordsFetched += s.Records
		if s.Failed() {
			stats.FailedSources = append(stats.FailedSources, s)
		}
	}

	for i := range d.Results {
		r := &d.Results[i]
		stats.Customization.Selected++
		stats.Customization.APICalls += r.APICallsMade
		switch r.Status {
		case types.StatusSuccess:
			stats.Customization.Succeeded++
		case types.StatusSkipped:
			stats.Customization.Skipped++
		case types.StatusFailed:
			stats.Customization.Failed++
		}
	}
	return stats
}

// sortedCounts orders by count descending, then name; limit <= 0 keeps everything
func sortedCounts(m map[string]int, limit int) []Count {
	out := make([]Count, 0, len(m))
	for name, n := range m {
		out = append(out, Count{Name: name, Count: n})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Name < out[j].Name
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}
