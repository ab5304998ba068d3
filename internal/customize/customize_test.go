package customize

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonathan/job-digest/internal/config"
	"github.com/jonathan/job-digest/internal/llm"
	"github.com/jonathan/job-digest/internal/resume"
	"github.com/jonathan/job-digest/internal/schemas"
	"github.com/jonathan/job-digest/internal/types"
)

const baseResume = `Jane Doe
jane@example.com

EXPERIENCE
Machine Learning Engineer, Acme Analytics (2019 - 2023)
- Built demand forecasting models in Python and PyTorch
- Deployed ranking services backed by SQL feature stores

EDUCATION
B.Tech Computer Science (2019)

SKILLS
Python, PyTorch, SQL, Machine Learning`

type stage string

const (
	stageAnalyze   stage = "analyze"
	stageCustomize stage = "customize"
	stageCover     stage = "cover"
)

type callKey struct {
	stage stage
	title string
}

var titlePattern = regexp.MustCompile(`Title: (.*)\n`)

// fakeModel answers each stage by job title. Scripted errors are returned before the
// response for that stage and title.
type fakeModel struct {
	mu        sync.Mutex
	errs      map[callKey][]error
	responses map[callKey]string
	calls     map[callKey]int

	delay       time.Duration
	inFlight    atomic.Int32
	maxInFlight atomic.Int32
}

func newFakeModel() *fakeModel {
	return &fakeModel{
		errs:      make(map[callKey][]error),
		responses: make(map[callKey]string),
		calls:     make(map[callKey]int),
	}
}

func (f *fakeModel) failWith(s stage, title string, errs ...error) {
	f.errs[callKey{s, title}] = errs
}

func (f *fakeModel) respond(s stage, title, text string) {
	f.responses[callKey{s, title}] = text
}

func (f *fakeModel) count(s stage, title string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[callKey{s, title}]
}

func classify(prompt string) stage {
	switch {
	case strings.Contains(prompt, "expert technical recruiter"):
		return stageAnalyze
	case strings.Contains(prompt, "tailoring a candidate's resume"):
		return stageCustomize
	default:
		return stageCover
	}
}

func (f *fakeModel) Complete(_ context.Context, req llm.Request) (string, error) {
	n := f.inFlight.Add(1)
	defer f.inFlight.Add(-1)
	for {
		peak := f.maxInFlight.Load()
		if n <= peak || f.maxInFlight.CompareAndSwap(peak, n) {
			break
		}
	}
	if f.delay > 0 {
		time.Sleep(f.delay)
	}

	title := ""
	if m := titlePattern.FindStringSubmatch(req.Prompt); m != nil {
		title = m[1]
	}
	key := callKey{classify(req.Prompt), title}

	f.mu.Lock()
	f.calls[key]++
	call := f.calls[key]
	errs := f.errs[key]
	response, ok := f.responses[key]
	f.mu.Unlock()

	if call <= len(errs) {
		return "", errs[call-1]
	}
	if ok {
		return response, nil
	}

	switch key.stage {
	case stageAnalyze:
		return "```json\n" + fmt.Sprintf(`{"role_title":%q,"seniority":"mid","required_skills":["python"],"preferred_skills":["pytorch"],"responsibilities":["build models"],"keywords":["forecasting"]}`, title) + "\n```", nil
	case stageCustomize:
		return baseResume, nil
	default:
		return "Dear hiring team,\n\nI would like to apply for the " + title + " role.\n\nJane Doe", nil
	}
}

func (f *fakeModel) Provider() llm.Provider { return llm.ProviderGemini }
func (f *fakeModel) Close() error           { return nil }

func quietLogger() logrus.FieldLogger {
	log := logrus.New()
	log.SetLevel(logrus.PanicLevel)
	return log
}

func rateLimited() error {
	return &llm.ProviderError{Provider: llm.ProviderGemini, Kind: llm.KindRateLimited, StatusCode: 429}
}

func newTestCustomizer(t *testing.T, model llm.Client, attempts int, opts Options) *Customizer {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "resume.md")
	require.NoError(t, os.WriteFile(path, []byte(baseResume), 0o644))
	base, err := resume.Load(path)
	require.NoError(t, err)

	caller := &llm.Caller{
		Client: model,
		Config: llm.DefaultGeminiConfig(),
		Policy: llm.RetryPolicy{
			MaxAttempts: attempts,
			BaseDelay:   time.Millisecond,
			MaxDelay:    time.Millisecond,
		},
		Log: quietLogger(),
	}
	if opts.Now == nil {
		opts.Now = func() time.Time { return time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC) }
	}
	return New(caller, base, opts, quietLogger())
}

func testJob(i int, title, company string) types.Job {
	return types.Job{
		ID:            fmt.Sprintf("%016x", i+1),
		Title:         title,
		Company:       company,
		Location:      "Bengaluru",
		Description:   "We need Python and PyTorch experience for forecasting.",
		Source:        types.Source(types.SourceIndeed),
		URL:           fmt.Sprintf("https://in.indeed.com/viewjob?jk=%d", i),
		PostedText:    "1 day ago",
		MatchedSkills: []string{"python", "pytorch"},
		Score:         2,
		QualityTier:   types.TierMedium,
		Seq:           i,
	}
}

func TestRun_AllSucceedAndMaterialize(t *testing.T) {
	model := newFakeModel()
	out := t.TempDir()
	c := newTestCustomizer(t, model, 3, Options{OutputDir: out, Concurrency: 2, FactCheck: config.FactCheckStrict})

	jobs := []types.Job{testJob(0, "ML Engineer", "Acme"), testJob(1, "Data Scientist", "Globex")}
	results := c.Run(context.Background(), jobs)
	require.Len(t, results, 2)

	for i, r := range results {
		assert.Equal(t, types.StatusSuccess, r.Status, r.ErrorDetail)
		assert.Equal(t, types.StateSuccess, r.FinalState)
		assert.Equal(t, jobs[i].ID, r.JobID)
		assert.Equal(t, 3, r.APICallsMade)
		assert.Equal(t, "gemini-2.5-flash", r.ModelUsed)
		assert.Equal(t, baseResume, r.ResumeText)
		assert.Contains(t, r.CoverLetterText, jobs[i].Title)
		require.NotNil(t, r.Analysis)
		assert.Equal(t, jobs[i].Title, r.Analysis.RoleTitle)
	}

	folder := filepath.Join(out, "ML Engineer - Acme")
	assert.Equal(t, folder, results[0].OutputFolder)
	for _, name := range []string{ResumeFile, CoverLetterFile, "original_resume.md", JobInfoFile} {
		assert.FileExists(t, filepath.Join(folder, name))
	}
	original, err := os.ReadFile(filepath.Join(folder, "original_resume.md"))
	require.NoError(t, err)
	assert.Equal(t, baseResume, string(original))
	info, err := os.ReadFile(filepath.Join(folder, JobInfoFile))
	require.NoError(t, err)
	assert.NoError(t, schemas.Validate(schemas.JobInfo, info))
}

func TestRun_CustomizingExhaustsRetriesForOneJob(t *testing.T) {
	model := newFakeModel()
	model.failWith(stageCustomize, "Data Scientist", rateLimited(), rateLimited())
	out := t.TempDir()
	c := newTestCustomizer(t, model, 2, Options{OutputDir: out, Concurrency: 2})

	jobs := []types.Job{
		testJob(0, "ML Engineer", "Acme"),
		testJob(1, "Data Scientist", "Globex"),
		testJob(2, "AI Researcher", "Initech"),
	}
	results := c.Run(context.Background(), jobs)

	failed := results[1]
	assert.Equal(t, types.StatusFailed, failed.Status)
	assert.Equal(t, types.StateFailed, failed.FinalState)
	assert.Equal(t, types.StateCustomizing, failed.FailedStage)
	assert.Equal(t, "customization_error/retries_exhausted", failed.Reason())
	assert.Equal(t, 3, failed.APICallsMade, "one analysis call plus two customizing attempts")
	assert.Empty(t, failed.ResumeText)
	assert.Empty(t, failed.OutputFolder)
	assert.NoDirExists(t, filepath.Join(out, "Data Scientist - Globex"))
	assert.Equal(t, 0, model.count(stageCover, "Data Scientist"))

	assert.Equal(t, types.StatusSuccess, results[0].Status)
	assert.Equal(t, types.StatusSuccess, results[2].Status)
	assert.DirExists(t, filepath.Join(out, "AI Researcher - Initech"))
}

func TestRun_TransientFailuresRecoverWithinBound(t *testing.T) {
	model := newFakeModel()
	model.failWith(stageCustomize, "ML Engineer", rateLimited(), &llm.ProviderError{Kind: llm.KindUnavailable})
	c := newTestCustomizer(t, model, 3, Options{Concurrency: 1})

	results := c.Run(context.Background(), []types.Job{testJob(0, "ML Engineer", "Acme")})

	assert.Equal(t, types.StatusSuccess, results[0].Status)
	assert.Equal(t, 5, results[0].APICallsMade)
	assert.Empty(t, results[0].OutputFolder, "no output dir configured")
}

func TestProcess_FailureReasons(t *testing.T) {
	tests := []struct {
		name       string
		setup      func(m *fakeModel)
		wantReason string
		wantStage  types.CustomizationState
		wantCalls  int
	}{
		{
			name: "analysis not json",
			setup: func(m *fakeModel) {
				m.respond(stageAnalyze, "ML Engineer", "Sorry, I cannot help with that.")
			},
			wantReason: "analysis_error/invalid_response",
			wantStage:  types.StateAnalyzing,
			wantCalls:  1,
		},
		{
			name: "analysis missing fields",
			setup: func(m *fakeModel) {
				m.respond(stageAnalyze, "ML Engineer", `{"seniority":"mid"}`)
			},
			wantReason: "analysis_error/invalid_response",
			wantStage:  types.StateAnalyzing,
			wantCalls:  1,
		},
		{
			name: "analysis blocked",
			setup: func(m *fakeModel) {
				m.failWith(stageAnalyze, "ML Engineer", llm.InvalidResponse(llm.ProviderGemini, "blocked"))
			},
			wantReason: "analysis_error/invalid_response",
			wantStage:  types.StateAnalyzing,
			wantCalls:  1,
		},
		{
			name: "analysis auth failure",
			setup: func(m *fakeModel) {
				m.failWith(stageAnalyze, "ML Engineer", &llm.ProviderError{Kind: llm.KindAuth, StatusCode: 401})
			},
			wantReason: "analysis_error/provider_error",
			wantStage:  types.StateAnalyzing,
			wantCalls:  1,
		},
		{
			name: "customized resume too short",
			setup: func(m *fakeModel) {
				m.respond(stageCustomize, "ML Engineer", "Jane Doe")
			},
			wantReason: "customization_error/invalid_response",
			wantStage:  types.StateCustomizing,
			wantCalls:  2,
		},
		{
			name: "cover letter times out",
			setup: func(m *fakeModel) {
				timeout := &llm.ProviderError{Kind: llm.KindTimeout}
				m.failWith(stageCover, "ML Engineer", timeout, timeout, timeout)
			},
			wantReason: "cover_letter_error/retries_exhausted",
			wantStage:  types.StateGeneratingCoverLetter,
			wantCalls:  5,
		},
		{
			name: "cover letter empty",
			setup: func(m *fakeModel) {
				m.respond(stageCover, "ML Engineer", "   ")
			},
			wantReason: "cover_letter_error/invalid_response",
			wantStage:  types.StateGeneratingCoverLetter,
			wantCalls:  3,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			model := newFakeModel()
			tt.setup(model)
			c := newTestCustomizer(t, model, 3, Options{})

			job := testJob(0, "ML Engineer", "Acme")
			result := c.Process(context.Background(), &job)

			assert.Equal(t, types.StatusFailed, result.Status)
			assert.Equal(t, tt.wantReason, result.Reason())
			assert.Equal(t, tt.wantStage, result.FailedStage)
			assert.Equal(t, tt.wantCalls, result.APICallsMade)
			assert.NotEmpty(t, result.ErrorDetail)
			assert.Empty(t, result.CoverLetterText)
		})
	}
}

func TestProcess_EmptyDescriptionIsSkipped(t *testing.T) {
	model := newFakeModel()
	c := newTestCustomizer(t, model, 3, Options{})

	job := testJob(0, "ML Engineer", "Acme")
	job.Description = "  "
	result := c.Process(context.Background(), &job)

	assert.Equal(t, types.StatusSkipped, result.Status)
	assert.Equal(t, types.StatePending, result.FinalState)
	assert.Equal(t, 0, result.APICallsMade)
	assert.NotEmpty(t, result.Note)
	assert.Equal(t, 0, model.count(stageAnalyze, "ML Engineer"))
}

func TestProcess_FactCheckModes(t *testing.T) {
	fabricated := baseResume + "\n- Ran Kubernetes clusters since 2025"

	tests := []struct {
		mode       config.FactCheckMode
		wantStatus types.CustomizationStatus
		wantTokens []string
	}{
		{mode: config.FactCheckStrict, wantStatus: types.StatusFailed},
		{mode: config.FactCheckWarn, wantStatus: types.StatusSuccess, wantTokens: []string{"kubernetes", "2025"}},
		{mode: config.FactCheckOff, wantStatus: types.StatusSuccess},
	}
	for _, tt := range tests {
		t.Run(string(tt.mode), func(t *testing.T) {
			model := newFakeModel()
			model.respond(stageCustomize, "ML Engineer", fabricated)
			c := newTestCustomizer(t, model, 3, Options{FactCheck: tt.mode, Skills: []string{"Kubernetes", "python"}})

			job := testJob(0, "ML Engineer", "Acme")
			result := c.Process(context.Background(), &job)

			assert.Equal(t, tt.wantStatus, result.Status)
			assert.Equal(t, tt.wantTokens, result.FactCheckWarnings)
			if tt.mode == config.FactCheckStrict {
				assert.Equal(t, "fabrication_detected/unsupported_tokens", result.Reason())
				assert.Contains(t, result.ErrorDetail, "kubernetes")
				assert.Equal(t, 0, model.count(stageCover, "ML Engineer"))
			}
		})
	}
}

func TestRun_RespectsConcurrencyLimit(t *testing.T) {
	model := newFakeModel()
	model.delay = 5 * time.Millisecond
	c := newTestCustomizer(t, model, 1, Options{Concurrency: 2})

	jobs := make([]types.Job, 6)
	for i := range jobs {
		jobs[i] = testJob(i, fmt.Sprintf("Role %d", i), "Acme")
	}
	results := c.Run(context.Background(), jobs)

	for i, r := range results {
		assert.Equal(t, jobs[i].ID, r.JobID)
		assert.Equal(t, types.StatusSuccess, r.Status)
	}
	assert.LessOrEqual(t, model.maxInFlight.Load(), int32(2))
}

func TestRun_MaterializeFailureFailsOnlyThatJob(t *testing.T) {
	model := newFakeModel()
	out := filepath.Join(t.TempDir(), "not-a-dir")
	require.NoError(t, os.WriteFile(out, []byte("x"), 0o644))
	c := newTestCustomizer(t, model, 1, Options{OutputDir: out})

	results := c.Run(context.Background(), []types.Job{testJob(0, "ML Engineer", "Acme")})

	assert.Equal(t, types.StatusFailed, results[0].Status)
	assert.Equal(t, "materialize_error/io_error", results[0].Reason())
	assert.Empty(t, results[0].ResumeText)
}

func TestOptionsFromConfig(t *testing.T) {
	cfg, err := config.Load(config.MapLookup(map[string]string{
		config.KeyRequiredSkills:   "Go",
		config.KeyPreferredSkills:  "python,sql",
		config.KeyModelConcurrency: "4",
		config.KeyFactCheckMode:    "warn",
		config.KeyOutputDir:        "out",
	}))
	require.NoError(t, err)

	opts := OptionsFromConfig(cfg)
	assert.Equal(t, "out", opts.OutputDir)
	assert.Equal(t, 4, opts.Concurrency)
	assert.Equal(t, config.FactCheckWarn, opts.FactCheck)
	assert.Equal(t, []string{"go", "python", "sql"}, opts.Skills)
}

func TestParseAnalysis(t *testing.T) {
	analysis, err := ParseAnalysis("Here you go:\n{\"role_title\":\"ML\",\"required_skills\":[\"python\"],\"preferred_skills\":[\"sql\"]}\nThanks")
	require.NoError(t, err)
	assert.Equal(t, "ML", analysis.RoleTitle)
	assert.Equal(t, []string{"python", "sql"}, analysis.AllSkills())

	_, err = ParseAnalysis(`{"role_title":"ML","required_skills":"python"}`)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "does not match schema")
}

func TestCheckStructure(t *testing.T) {
	source := strings.Repeat("x", 100)
	assert.NoError(t, CheckStructure(source, strings.Repeat("y", 100)))
	assert.NoError(t, CheckStructure(source, strings.Repeat("y", 30)))
	assert.Error(t, CheckStructure(source, strings.Repeat("y", 29)))
	assert.Error(t, CheckStructure(source, strings.Repeat("y", 301)))
	assert.Error(t, CheckStructure(source, " \n "))
}
