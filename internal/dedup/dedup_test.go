package dedup

import (
	"strings"
	"testing"

	"github.com/jonathan/job-digest/internal/normalize"
	"github.com/jonathan/job-digest/internal/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func job(title, company, location, url, description string) types.Job {
	j := types.Job{Title: title, Company: company, Location: location, URL: url, Description: description}
	j.ID = normalize.JobID(&j)
	return j
}

func ids(jobs []types.Job) []string {
	out := make([]string, len(jobs))
	for i, j := range jobs {
		out[i] = j.ID
	}
	return out
}

func TestDeduplicate_SameURLKeepsLongerDescription(t *testing.T) {
	short := job("ML Engineer", "Acme", "Pune", "https://acme.ai/jobs/1", strings.Repeat("s", 50))
	short.Source = "indeed"
	long := job("Machine Learning Engineer", "Acme Inc", "Pune", "https://acme.ai/jobs/1?utm_source=ddg", strings.Repeat("l", 200))
	long.Source = types.WebSearchSource("naukri")

	result := Deduplicate([]types.Job{short, long})
	require.Len(t, result.Jobs, 1)
	assert.Len(t, result.Jobs[0].Description, 200)
	assert.Equal(t, types.WebSearchSource("naukri"), result.Jobs[0].Source)
	assert.Equal(t, 1, result.RemovedCount())
}

func TestDeduplicate_TieKeepsEarliest(t *testing.T) {
	a := job("ML Engineer", "Acme", "Pune", "https://acme.ai/jobs/1", "same length")
	a.Source = "csv"
	b := job("ML Engineer", "Acme", "Pune", "https://acme.ai/jobs/1", "same-length")
	b.Source = "indeed"

	result := Deduplicate([]types.Job{a, b})
	require.Len(t, result.Jobs, 1)
	assert.Equal(t, types.Source("csv"), result.Jobs[0].Source)
}

func TestDeduplicate_TripleWhenURLMissing(t *testing.T) {
	withURL := job("ML Engineer", "Acme", "Pune", "https://acme.ai/jobs/1", "short")
	bare := job("  ml engineer", "ACME", "pune ", "", "a much longer description")
	other := job("ML Engineer", "Acme", "Delhi", "", "different city")

	result := Deduplicate([]types.Job{withURL, bare, other})
	require.Len(t, result.Jobs, 2)
	assert.Equal(t, "a much longer description", result.Jobs[0].Description)
	assert.Equal(t, "different city", result.Jobs[1].Description)
}

func TestDeduplicate_DifferentURLsSameTripleAreDistinct(t *testing.T) {
	a := job("ML Engineer", "Acme", "Pune", "https://acme.ai/jobs/1", "one")
	b := job("ML Engineer", "Acme", "Pune", "https://acme.ai/jobs/2", "two")

	result := Deduplicate([]types.Job{a, b})
	assert.Len(t, result.Jobs, 2)
	assert.Zero(t, result.RemovedCount())
}

func TestDeduplicate_BareRecordDoesNotBridgeDistinctURLs(t *testing.T) {
	tests := []struct {
		name  string
		order []int
	}{
		{name: "urls first", order: []int{0, 1, 2}},
		{name: "bare first", order: []int{2, 0, 1}},
		{name: "bare between", order: []int{0, 2, 1}},
	}
	all := []types.Job{
		job("ML Engineer", "Acme", "Pune", "https://in.indeed.com/viewjob?jk=111", "first"),
		job("ML Engineer", "Acme", "Pune", "https://in.indeed.com/viewjob?jk=222", "second"),
		job("ML Engineer", "Acme", "Pune", "", "bare"),
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			input := make([]types.Job, 0, len(tt.order))
			for _, i := range tt.order {
				input = append(input, all[i])
			}

			result := Deduplicate(input)
			require.Len(t, result.Jobs, 2)
			assert.Equal(t, 1, result.RemovedCount())

			urls := map[string]bool{}
			for _, j := range result.Jobs {
				urls[normalize.CanonicalURL(j.URL)] = true
			}
			assert.True(t, urls[normalize.CanonicalURL(all[0].URL)], "jk=111 kept")
			assert.True(t, urls[normalize.CanonicalURL(all[1].URL)], "jk=222 kept")
		})
	}
}

func TestDeduplicate_GroupsAreIdempotent(t *testing.T) {
	a := job("ML Engineer", "Acme", "Pune", "https://acme.ai/jobs/1", "the longest description of all")
	b := job("ML Engineer", "Acme", "Pune", "", "bb")
	c := job("ML Engineer", "Acme", "Pune", "https://acme.ai/jobs/2", "ccc")
	d := job("Data Scientist", "Beta", "Delhi", "https://beta.io/9", "dd")
	e := job("Data Scientist", "Beta", "Delhi", "https://beta.io/9#apply", "ddd")

	input := []types.Job{a, d, b, c, e}
	first := Deduplicate(input)
	require.Len(t, first.Jobs, 3)
	assert.Equal(t, a.ID, first.Jobs[0].ID)
	assert.Equal(t, e.ID, first.Jobs[1].ID, "group position is its earliest member, content is the richest")
	assert.Equal(t, c.ID, first.Jobs[2].ID)
	assert.Equal(t, []string{b.ID}, first.Removed[a.ID])

	second := Deduplicate(first.Jobs)
	assert.Equal(t, ids(first.Jobs), ids(second.Jobs))
	assert.Zero(t, second.RemovedCount())
}

func TestDeduplicate_UniqueURLsAndIDs(t *testing.T) {
	input := []types.Job{
		job("A", "X", "", "https://x.io/1", "1"),
		job("B", "Y", "", "https://x.io/1", "22"),
		job("C", "Z", "", "https://x.io/2", "3"),
		job("C", "Z", "", "https://x.io/2/", "333"),
		job("D", "W", "", "", ""),
		job("D", "W", "", "", "4"),
	}

	result := Deduplicate(input)
	seenURL := map[string]bool{}
	seenID := map[string]bool{}
	for _, j := range result.Jobs {
		canonical := normalize.CanonicalURL(j.URL)
		if canonical != "" {
			assert.False(t, seenURL[canonical], "duplicate url %s", canonical)
			seenURL[canonical] = true
		}
		assert.False(t, seenID[j.ID], "duplicate id %s", j.ID)
		seenID[j.ID] = true
	}
	assert.Len(t, result.Jobs, 3)
}

func TestDeduplicate_Empty(t *testing.T) {
	result := Deduplicate(nil)
	assert.Empty(t, result.Jobs)
	assert.Zero(t, result.RemovedCount())
}
