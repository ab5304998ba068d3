// Package customize drives the per-job resume customization state machine:
// analyzing, customizing, generating_cover_letter, then success or failed.
package customize

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/jonathan/job-digest/internal/config"
	"github.com/jonathan/job-digest/internal/llm"
	"github.com/jonathan/job-digest/internal/prompts"
	"github.com/jonathan/job-digest/internal/resume"
	"github.com/jonathan/job-digest/internal/schemas"
	"github.com/jonathan/job-digest/internal/types"
)

// Customized resume length must stay within these multiples of the source length
const (
	minLengthRatio = 0.3
	maxLengthRatio = 3.0
)

// Options configures a Customizer
type Options struct {
	// OutputDir receives one folder per successful job; empty disables materialization
	OutputDir   string
	Concurrency int
	FactCheck   config.FactCheckMode
	// Skills is the configured skill vocabulary checked by the fact-containment check
	Skills []string
	Now    func() time.Time
}

// OptionsFromConfig derives customizer options from the run configuration
func OptionsFromConfig(cfg *config.Config) Options {
	skills := make([]string, 0, len(cfg.RequiredSkills)+len(cfg.PreferredSkills))
	skills = append(skills, cfg.RequiredSkills...)
	skills = append(skills, cfg.PreferredSkills...)
	return Options{
		OutputDir:   cfg.OutputDir,
		Concurrency: cfg.ModelConcurrency,
		FactCheck:   cfg.FactCheckMode,
		Skills:      skills,
	}
}

// Customizer runs selected jobs through the model call chain
type Customizer struct {
	Caller *llm.Caller
	Resume *resume.Resume
	Opts   Options
	Log    logrus.FieldLogger
}

// New creates a Customizer
func New(caller *llm.Caller, base *resume.Resume, opts Options, log logrus.FieldLogger) *Customizer {
	if log == nil {
		log = logrus.StandardLogger()
	}
	if opts.Concurrency < 1 {
		opts.Concurrency = 1
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.FactCheck == "" {
		opts.FactCheck = config.FactCheckStrict
	}
	return &Customizer{Caller: caller, Resume: base, Opts: opts, Log: log}
}

// Run processes jobs with at most Opts.Concurrency jobs in flight. The returned results
// are index-aligned with jobs. A failing job never affects the others.
func (c *Customizer) Run(ctx context.Context, jobs []types.Job) []types.CustomizationResult {
	results := make([]types.CustomizationResult, len(jobs))
	folders := PlanFolders(jobs)

	var g errgroup.Group
	g.SetLimit(c.Opts.Concurrency)
	for i := range jobs {
		g.Go(func() error {
			job := &jobs[i]
			result := c.Process(ctx, job)
			if result.Status == types.StatusSuccess && c.Opts.OutputDir != "" {
				c.materializeInto(job, &result, folders[i])
			}
			results[i] = result
			return nil
		})
	}
	_ = g.Wait()

	return results
}

func (c *Customizer) materializeInto(job *types.Job, result *types.CustomizationResult, folder string) {
	dir, err := Materialize(c.Opts.OutputDir, folder, job, result, c.Resume, c.Opts.Now())
	if err != nil {
		c.Log.WithFields(logrus.Fields{"job_id": job.ID, "folder": folder}).WithError(err).Warn("failed to write output folder")
		result.Status = types.StatusFailed
		result.FinalState = types.StateFailed
		result.ErrorReason = types.ReasonMaterializeError
		result.ErrorCode = types.CodeIOError
		result.ErrorDetail = err.Error()
		result.ResumeText = ""
		result.CoverLetterText = ""
		return
	}
	result.OutputFolder = dir
}

// jobRun is the mutable state of one job moving through the machine
type jobRun struct {
	job         *types.Job
	state       types.CustomizationState
	analysis    *types.JobAnalysis
	resume      string
	coverLetter string
	result      types.CustomizationResult
	log         logrus.FieldLogger
}

func (r *jobRun) terminal() bool {
	return r.state == types.StateSuccess || r.state == types.StateFailed
}

// fail moves the run to the failed state, recording the stage that was running
func (r *jobRun) fail(reason, code string, err error) types.CustomizationState {
	r.result.Status = types.StatusFailed
	r.result.FailedStage = r.state
	r.result.ErrorReason = reason
	r.result.ErrorCode = code
	if err != nil {
		r.result.ErrorDetail = err.Error()
	}
	r.log.WithFields(logrus.Fields{"stage": r.state, "reason": reason, "code": code}).WithError(err).Warn("customization failed")
	return types.StateFailed
}

// Process runs one job through the state machine without touching the filesystem
func (c *Customizer) Process(ctx context.Context, job *types.Job) types.CustomizationResult {
	run := &jobRun{
		job:   job,
		state: types.StatePending,
		result: types.CustomizationResult{
			JobID:      job.ID,
			FinalState: types.StatePending,
		},
		log: c.Log.WithFields(logrus.Fields{"job_id": job.ID, "job": job.DisplayName()}),
	}

	if strings.TrimSpace(job.Description) == "" {
		run.result.Status = types.StatusSkipped
		run.result.Note = "no job description available"
		run.log.Info("skipping customization: empty description")
		return run.result
	}

	run.state = types.StateAnalyzing
	for !run.terminal() {
		run.log.WithField("stage", run.state).Debug("entering stage")
		run.state = c.step(ctx, run)
	}

	run.result.FinalState = run.state
	if run.state == types.StateSuccess {
		run.result.Status = types.StatusSuccess
		run.result.ResumeText = run.resume
		run.result.CoverLetterText = run.coverLetter
		run.log.WithField("api_calls", run.result.APICallsMade).Info("customization complete")
	}
	return run.result
}

// step executes the current stage and returns the next state
func (c *Customizer) step(ctx context.Context, r *jobRun) types.CustomizationState {
	switch r.state {
	case types.StateAnalyzing:
		return c.analyze(ctx, r)
	case types.StateCustomizing:
		return c.customize(ctx, r)
	case types.StateGeneratingCoverLetter:
		return c.coverLetter(ctx, r)
	default:
		return r.fail(types.ReasonCustomizationError, types.CodeProviderError, fmt.Errorf("unexpected state %q", r.state))
	}
}

func (c *Customizer) call(ctx context.Context, r *jobRun, prompt string, tier llm.ModelTier, jsonMode bool) (string, error) {
	completion, err := c.Caller.Call(ctx, prompt, tier, jsonMode)
	r.result.APICallsMade += completion.Attempts
	r.result.ModelUsed = completion.Model
	return completion.Text, err
}

func (c *Customizer) analyze(ctx context.Context, r *jobRun) types.CustomizationState {
	input := fmt.Sprintf("Title: %s\nCompany: %s\nLocation: %s\n\n%s", r.job.Title, r.job.Company, r.job.Location, r.job.Description)
	prompt := llm.BuildExtractionPrompt(llm.JobAnalysisSchema(), input)

	text, err := c.call(ctx, r, prompt, llm.TierStandard, true)
	if err != nil {
		return r.fail(types.ReasonAnalysisError, errorCode(err), err)
	}

	analysis, err := ParseAnalysis(text)
	if err != nil {
		return r.fail(types.ReasonAnalysisError, types.CodeInvalidResponse, err)
	}
	r.analysis = analysis
	r.result.Analysis = analysis
	return types.StateCustomizing
}

func (c *Customizer) customize(ctx context.Context, r *jobRun) types.CustomizationState {
	analysisJSON, err := json.MarshalIndent(r.analysis, "", "  ")
	if err != nil {
		return r.fail(types.ReasonCustomizationError, types.CodeInvalidResponse, err)
	}

	prompt, err := prompts.Render(prompts.CustomizeResume, map[string]string{
		"Title":    r.job.Title,
		"Company":  r.job.Company,
		"Location": r.job.Location,
		"Analysis": string(analysisJSON),
		"Resume":   c.Resume.Text,
	})
	if err != nil {
		return r.fail(types.ReasonCustomizationError, types.CodeInvalidResponse, err)
	}

	text, err := c.call(ctx, r, prompt, llm.TierAdvanced, false)
	if err != nil {
		return r.fail(types.ReasonCustomizationError, errorCode(err), err)
	}

	customized := llm.CleanTextBlock(text)
	if err := CheckStructure(c.Resume.Text, customized); err != nil {
		return r.fail(types.ReasonCustomizationError, types.CodeInvalidResponse, err)
	}

	if c.Opts.FactCheck != config.FactCheckOff {
		vocabulary := append(append([]string{}, c.Opts.Skills...), r.analysis.AllSkills()...)
		if unsupported := FactCheck(c.Resume.Text, customized, vocabulary); len(unsupported) > 0 {
			if c.Opts.FactCheck == config.FactCheckStrict {
				return r.fail(types.ReasonFabricationDetected, types.CodeUnsupportedToken,
					fmt.Errorf("output mentions %s, absent from the base resume", strings.Join(unsupported, ", ")))
			}
			r.result.FactCheckWarnings = unsupported
			r.result.Note = "fact check: " + strings.Join(unsupported, ", ")
			r.log.WithField("tokens", unsupported).Warn("customized resume mentions tokens absent from the base resume")
		}
	}

	r.resume = customized
	return types.StateGeneratingCoverLetter
}

func (c *Customizer) coverLetter(ctx context.Context, r *jobRun) types.CustomizationState {
	prompt, err := prompts.Render(prompts.CoverLetter, map[string]string{
		"Title":       r.job.Title,
		"Company":     r.job.Company,
		"Location":    r.job.Location,
		"Description": r.job.Description,
		"Resume":      r.resume,
	})
	if err != nil {
		return r.fail(types.ReasonCoverLetterError, types.CodeInvalidResponse, err)
	}

	text, err := c.call(ctx, r, prompt, llm.TierStandard, false)
	if err != nil {
		return r.fail(types.ReasonCoverLetterError, errorCode(err), err)
	}

	letter := llm.CleanTextBlock(text)
	if letter == "" {
		return r.fail(types.ReasonCoverLetterError, types.CodeInvalidResponse, errors.New("empty cover letter"))
	}
	r.coverLetter = letter
	return types.StateSuccess
}

// ParseAnalysis extracts and validates the analyzing-stage JSON
func ParseAnalysis(text string) (*types.JobAnalysis, error) {
	cleaned := llm.CleanJSONBlock(text)
	if err := schemas.Validate(schemas.JobAnalysis, []byte(cleaned)); err != nil {
		var validationErr *schemas.ValidationError
		if errors.As(err, &validationErr) {
			return nil, fmt.Errorf("analysis does not match schema: %s", validationErr.Summary())
		}
		return nil, fmt.Errorf("analysis is not valid JSON: %w", err)
	}

	var analysis types.JobAnalysis
	if err := json.Unmarshal([]byte(cleaned), &analysis); err != nil {
		return nil, fmt.Errorf("failed to decode analysis: %w", err)
	}
	return &analysis, nil
}

// CheckStructure rejects customized output that is empty or whose length is far from the source
func CheckStructure(source, output string) error {
	if strings.TrimSpace(output) == "" {
		return errors.New("customized resume is empty")
	}
	src := len([]rune(strings.TrimSpace(source)))
	if src == 0 {
		return nil
	}
	ratio := float64(len([]rune(output))) / float64(src)
	if ratio < minLengthRatio || ratio > maxLengthRatio {
		return fmt.Errorf("customized resume length is %.2fx the source, outside [%.1f, %.1f]", ratio, minLengthRatio, maxLengthRatio)
	}
	return nil
}

// errorCode maps a model-call failure to the CustomizationResult error code
func errorCode(err error) string {
	var exhausted *llm.RetryExhaustedError
	if errors.As(err, &exhausted) {
		return types.CodeRetriesExhausted
	}
	var providerErr *llm.ProviderError
	if errors.As(err, &providerErr) && providerErr.Kind == llm.KindInvalidResponse {
		return types.CodeInvalidResponse
	}
	return types.CodeProviderError
}
