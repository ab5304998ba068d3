package report

import (
	"bytes"
	"encoding/csv"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonathan/job-digest/internal/scoring"
	"github.com/jonathan/job-digest/internal/sources"
	"github.com/jonathan/job-digest/internal/types"
)

func sampleDigest() *Digest {
	posted := time.Date(2026, 3, 1, 6, 0, 0, 0, time.UTC)
	return &Digest{
		RunID: "run-1",
		Settings: Settings{
			Keywords:        "Machine Learning Engineer",
			Location:        "India",
			TimeRangeHours:  24,
			PreferredSkills: []string{"python", "pytorch"},
			MinScore:        1,
		},
		Sources: []SourceSummary{
			{Source: types.SourceIndeed, Records: 4},
			{Source: types.SourceLinkedIn, Skipped: true, Error: "session cookie not configured"},
			{Source: types.SourceWebSearch, Records: 6},
		},
		Malformed:  1,
		Duplicates: 2,
		Stages: []scoring.StageStats{
			{Stage: scoring.StageTimeWindow, Enabled: true, In: 7, Out: 5},
			{Stage: scoring.StageExcludeKeyword, Enabled: false, In: 5, Out: 5},
			{Stage: scoring.StageMinScore, Enabled: true, In: 5, Out: 3},
		},
		Jobs: []types.Job{
			{ID: "a1", Title: "ML Engineer", Company: "Acme", Location: "Bengaluru", Source: "indeed",
				PostedText: "2 hours ago", PostedAt: &posted, URL: "https://in.indeed.com/viewjob?jk=1",
				MatchedSkills: []string{"python", "pytorch", "sql", "aws", "docker"}, Score: 8, QualityTier: types.TierHigh,
				SearchQuery: "Machine Learning Engineer"},
			{ID: "b2", Title: "Data Scientist <R&D>", Company: "Globex", Location: "Remote", Source: "web_search:naukri",
				URL: "https://www.naukri.com/job/2", MatchedSkills: []string{"python"}, Score: 1, QualityTier: types.TierMedium},
			{ID: "c3", Title: "AI Intern", Company: "Initech", Location: "Pune", Source: "web_search:naukri",
				URL: "https://www.naukri.com/job/3", MatchedSkills: []string{"python", "pytorch"}, Score: 2, QualityTier: types.TierMedium},
		},
		Results: []types.CustomizationResult{
			{JobID: "a1", Status: types.StatusSuccess, OutputFolder: "out/ML Engineer - Acme", APICallsMade: 3},
			{JobID: "b2", Status: types.StatusFailed, ErrorReason: types.ReasonCustomizationError, ErrorCode: types.CodeRetriesExhausted, APICallsMade: 4},
		},
	}
}

func TestComputeStats(t *testing.T) {
	stats := ComputeStats(sampleDigest())

	assert.Equal(t, 3, stats.TotalJobs)
	assert.Equal(t, []Count{{Name: "web_search:naukri", Count: 2}, {Name: "indeed", Count: 1}}, stats.BySource)
	assert.Equal(t, 1, stats.ByTier[types.TierHigh])
	assert.Equal(t, 2, stats.ByTier[types.TierMedium])
	assert.Equal(t, 0, stats.ByTier[types.TierLow])
	assert.Equal(t, []Count{
		{Name: "python", Count: 3},
		{Name: "pytorch", Count: 2},
		{Name: "aws", Count: 1},
		{Name: "docker", Count: 1},
		{Name: "sql", Count: 1},
	}, stats.TopSkills)
	assert.Equal(t, CustomizationStats{Selected: 2, Succeeded: 1, Failed: 1, APICalls: 7}, stats.Customization)
	assert.Equal(t, 10, stats.RecordsFetched)
	require.Len(t, stats.FailedSources, 1)
	assert.Equal(t, types.SourceLinkedIn, stats.FailedSources[0].Source)
}

func TestSummarizeSources(t *testing.T) {
	outcomes := []sources.Outcome{
		{Source: types.SourceCSV, Records: make([]types.RawRecord, 3)},
		{Source: types.SourceIndeed, Err: &sources.AdapterError{Source: types.SourceIndeed, Message: "search page failed", Cause: errors.New("503")}},
		{Source: types.SourceWebSearch, Err: errors.New("deadline exceeded")},
	}

	got := SummarizeSources(outcomes)
	require.Len(t, got, 3)
	assert.Equal(t, 3, got[0].Records)
	assert.False(t, got[0].Failed())
	assert.Equal(t, "search page failed", got[1].Error)
	assert.Equal(t, "deadline exceeded", got[2].Error)
}

func TestSubject(t *testing.T) {
	d := sampleDigest()
	assert.Equal(t, "Job Digest — 3 matches", Subject(d))
	d.Jobs = d.Jobs[:1]
	assert.Equal(t, "Job Digest — 1 match", Subject(d))
	d.Jobs = nil
	assert.Equal(t, "Job Digest — no matches", Subject(d))
}

func TestSkillSummary(t *testing.T) {
	assert.Equal(t, "none", SkillSummary(nil))
	assert.Equal(t, "python, sql", SkillSummary([]string{"python", "sql"}))
	assert.Equal(t, "a, b, c (+2 more)", SkillSummary([]string{"a", "b", "c", "d", "e"}))
}

func TestPlainText(t *testing.T) {
	body := PlainText(sampleDigest())

	assert.Contains(t, body, `Found 3 matching jobs for "Machine Learning Engineer" in India (last 24 hours).`)
	assert.Contains(t, body, "time_window")
	assert.NotContains(t, body, "exclude_keywords", "disabled stages are not listed")
	assert.Contains(t, body, "High: 1  Medium: 2  Low: 0")
	assert.Contains(t, body, "1. ML Engineer at Acme (Bengaluru)")
	assert.Contains(t, body, "Skills: python, pytorch, sql (+2 more)")
	assert.Contains(t, body, "posted unknown")
	assert.Contains(t, body, "2 selected: 1 succeeded, 1 failed, 0 skipped (7 model calls)")
	assert.Contains(t, body, "Data Scientist <R&D> at Globex: failed (customization_error/retries_exhausted)")
	assert.Contains(t, body, "linkedin skipped: session cookie not configured")
}

func TestPlainText_NoMatches(t *testing.T) {
	d := sampleDigest()
	d.Jobs = nil
	d.Results = nil

	body := PlainText(d)
	assert.Contains(t, body, "No jobs matched your filters")
	assert.Contains(t, body, "Preferred skills: python, pytorch")
	assert.Contains(t, body, "Required skills:  (none)")
	assert.Contains(t, body, "SOURCE FAILURES")
	assert.NotContains(t, body, "TOP MATCHES")
}

func TestHTML(t *testing.T) {
	d := sampleDigest()
	d.Warnings = []string{"history store unavailable"}

	html, err := HTML(d)
	require.NoError(t, err)
	assert.Contains(t, html, "<h2>Job Digest — 3 matches</h2>")
	assert.Contains(t, html, "Data Scientist &lt;R&amp;D&gt;")
	assert.Contains(t, html, `href="https://in.indeed.com/viewjob?jk=1"`)
	assert.Contains(t, html, "High: 1")
	assert.Contains(t, html, "Resume: success")
	assert.Contains(t, html, "history store unavailable")

	d.Jobs = nil
	html, err = HTML(d)
	require.NoError(t, err)
	assert.Contains(t, html, "No jobs matched your filters")
}

func TestWriteCSV(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteCSV(&buf, sampleDigest()))

	rows, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, 4)
	assert.Equal(t, CSVHeader, rows[0])

	first := rows[1]
	assert.Equal(t, "indeed", first[0])
	assert.Equal(t, "2026-03-01T06:00:00Z", first[5])
	assert.Equal(t, "8", first[7])
	assert.Equal(t, "high", first[8])
	assert.Equal(t, "python; pytorch; sql; aws; docker", first[9])
	assert.Equal(t, "success", first[10])
	assert.Equal(t, "out/ML Engineer - Acme", first[11])
	assert.Equal(t, "Machine Learning Engineer", first[12])

	assert.Equal(t, "failed: customization_error/retries_exhausted", rows[2][10])
	assert.Equal(t, "", rows[2][5])
	assert.Equal(t, NotSelected, rows[3][10])
}

func TestWriteCSVFile_HeaderOnlyWhenEmpty(t *testing.T) {
	path := filepath.Join(t.TempDir(), "reports", "job_listings.csv")
	require.NoError(t, WriteCSVFile(path, &Digest{}))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, strings.Join(CSVHeader, ",")+"\n", string(data))
}

func TestAttachmentName(t *testing.T) {
	assert.Equal(t, "job_listings_20260301_0905.csv", AttachmentName(time.Date(2026, 3, 1, 9, 5, 30, 0, time.UTC)))
}
