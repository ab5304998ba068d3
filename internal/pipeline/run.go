// Package pipeline provides the high-level orchestration for one digest run.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/jonathan/job-digest/internal/archive"
	"github.com/jonathan/job-digest/internal/config"
	"github.com/jonathan/job-digest/internal/customize"
	"github.com/jonathan/job-digest/internal/db"
	"github.com/jonathan/job-digest/internal/dedup"
	"github.com/jonathan/job-digest/internal/llm"
	"github.com/jonathan/job-digest/internal/normalize"
	"github.com/jonathan/job-digest/internal/observability"
	"github.com/jonathan/job-digest/internal/pipeline/steps"
	"github.com/jonathan/job-digest/internal/ranking"
	"github.com/jonathan/job-digest/internal/report"
	"github.com/jonathan/job-digest/internal/resume"
	"github.com/jonathan/job-digest/internal/scoring"
	"github.com/jonathan/job-digest/internal/sources"
	"github.com/jonathan/job-digest/internal/types"
)

// RunOptions holds the configuration and collaborators for one run.
// Nil collaborators are built from Config.
type RunOptions struct {
	Config *config.Config
	Log    logrus.FieldLogger
	// Out receives step banners and the console summary
	Out io.Writer

	// Adapters replaces the configured source adapters
	Adapters   []sources.Adapter
	SourceDeps sources.Deps

	// ModelClient replaces the provider client built from LLM_PROVIDER
	ModelClient llm.Client
	RetryPolicy *llm.RetryPolicy

	Sender   report.Sender
	Store    db.Store
	Archiver *archive.Archiver

	Now func() time.Time
}

// runner carries the state of one run between steps
type runner struct {
	opts    RunOptions
	cfg     *config.Config
	log     logrus.FieldLogger
	out     io.Writer
	now     func() time.Time
	tracker *steps.Tracker
	digest  *report.Digest
	csvData []byte
}

// RunPipeline executes one batch run. Only startup problems are returned as errors:
// invalid configuration, an unreadable base resume, a model client that cannot be
// built, or a concurrent run holding the output directory. Source, model and delivery
// failures are recorded in the returned digest.
func RunPipeline(ctx context.Context, opts RunOptions) (*report.Digest, error) {
	cfg := opts.Config
	if cfg == nil {
		return nil, errors.New("pipeline: config is required")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	r := &runner{opts: opts, cfg: cfg, log: opts.Log, out: opts.Out, now: opts.Now}
	if r.log == nil {
		r.log = logrus.StandardLogger()
	}
	if r.out == nil {
		r.out = os.Stdout
	}
	if r.now == nil {
		r.now = time.Now
	}

	runID := uuid.New()
	r.log = r.log.WithField("run_id", runID.String())

	lock, err := AcquireLock(cfg.OutputDir)
	if err != nil {
		return nil, err
	}
	defer func() { _ = lock.Unlock() }()

	// Everything that can fail fatally happens before the first network call
	var customizer *customize.Customizer
	if cfg.EnableCustomization {
		base, err := resume.Load(cfg.BaseResumePath)
		if err != nil {
			return nil, fmt.Errorf("loading base resume: %w", err)
		}
		caller, err := r.newCaller(ctx)
		if err != nil {
			return nil, fmt.Errorf("creating model client: %w", err)
		}
		defer func() { _ = caller.Client.Close() }()
		customizer = customize.New(caller, base, customize.OptionsFromConfig(cfg), r.log)
	}

	started := r.now()
	r.tracker = steps.NewTracker(r.now)
	r.digest = &report.Digest{
		RunID:     runID.String(),
		StartedAt: started,
		Settings:  report.SettingsFromConfig(cfg),
	}

	outcomes, err := r.gatherSources(ctx)
	if err != nil {
		return nil, err
	}
	jobs, err := r.normalize(outcomes, started)
	if err != nil {
		return nil, err
	}
	if jobs, err = r.deduplicate(jobs); err != nil {
		return nil, err
	}
	if jobs, err = r.filterScore(jobs, started); err != nil {
		return nil, err
	}
	if err := r.rank(jobs); err != nil {
		return nil, err
	}
	if err := r.customize(ctx, customizer); err != nil {
		return nil, err
	}
	if err := r.buildReport(ctx); err != nil {
		return nil, err
	}
	if err := r.deliver(ctx); err != nil {
		return nil, err
	}

	observability.NewPrinter(r.out).PrintDigest(r.digest)
	for _, rec := range r.tracker.Records() {
		r.log.WithFields(logrus.Fields{"step": rec.Step, "status": rec.Status, "duration": rec.Duration}).Debug("step finished")
	}
	return r.digest, nil
}

func (r *runner) begin(step string) error {
	if err := r.tracker.Begin(step); err != nil {
		return err
	}
	fmt.Fprintln(r.out, steps.Banner(step))
	return nil
}

func (r *runner) warn(format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	r.digest.Warnings = append(r.digest.Warnings, msg)
	r.log.Warn(msg)
}

func (r *runner) newCaller(ctx context.Context) (*llm.Caller, error) {
	cfg := r.cfg
	modelConfig := llm.DefaultConfig(llm.Provider(cfg.LLMProvider)).
		WithModelForAllTiers(cfg.ModelName).
		WithMaxTokens(cfg.ModelMaxTokens)

	client := r.opts.ModelClient
	if client == nil {
		var err error
		client, err = llm.NewClient(ctx, modelConfig, cfg.APIKey())
		if err != nil {
			return nil, err
		}
	}

	policy := llm.DefaultRetryPolicy()
	policy.MaxAttempts = cfg.ModelMaxAttempts
	if r.opts.RetryPolicy != nil {
		policy = *r.opts.RetryPolicy
	}

	return &llm.Caller{
		Client:  client,
		Config:  modelConfig,
		Policy:  policy,
		Timeout: cfg.ModelCallTimeout,
		Log:     r.log,
	}, nil
}

// gatherSources runs every adapter concurrently. Adapters that could not be built are
// reported alongside the ones that ran.
func (r *runner) gatherSources(ctx context.Context) ([]sources.Outcome, error) {
	if err := r.begin(steps.GatherSources); err != nil {
		return nil, err
	}

	adapters := r.opts.Adapters
	var notStarted []sources.Outcome
	if adapters == nil {
		deps := r.opts.SourceDeps
		if deps.Log == nil {
			deps.Log = r.log
		}
		adapters, notStarted = sources.Build(ctx, r.cfg, deps)
	}

	outcomes := sources.FanOut(ctx, adapters, r.cfg.SourceTimeout, r.log)
	all := append(append([]sources.Outcome{}, outcomes...), notStarted...)
	r.digest.Sources = report.SummarizeSources(all)

	var failed int
	for _, o := range all {
		if o.Err != nil {
			failed++
		}
	}
	r.tracker.Finish(steps.GatherSources, steps.StatusCompleted, fmt.Sprintf("%d sources, %d failed", len(all), failed))
	return outcomes, nil
}

func (r *runner) normalize(outcomes []sources.Outcome, now time.Time) ([]types.Job, error) {
	if err := r.begin(steps.Normalize); err != nil {
		return nil, err
	}

	jobs, malformed := normalize.New(now).NormalizeAll(sources.Merge(outcomes))
	for _, m := range malformed {
		r.log.WithField("source", m.Source).Warn(m.Error())
	}
	r.digest.Malformed = len(malformed)

	r.tracker.Finish(steps.Normalize, steps.StatusCompleted, "")
	return jobs, nil
}

func (r *runner) deduplicate(jobs []types.Job) ([]types.Job, error) {
	if err := r.begin(steps.Deduplicate); err != nil {
		return nil, err
	}

	result := dedup.Deduplicate(jobs)
	r.digest.Duplicates = result.RemovedCount()
	if r.digest.Duplicates > 0 {
		r.log.WithField("removed", r.digest.Duplicates).Info("merged duplicate postings")
	}

	r.tracker.Finish(steps.Deduplicate, steps.StatusCompleted, "")
	return result.Jobs, nil
}

func (r *runner) filterScore(jobs []types.Job, now time.Time) ([]types.Job, error) {
	if err := r.begin(steps.FilterScore); err != nil {
		return nil, err
	}

	result := scoring.Apply(jobs, scoring.OptionsFromConfig(r.cfg, now))
	r.digest.Stages = result.Stages
	if result.UnknownPostedAt > 0 {
		r.log.WithFields(logrus.Fields{
			"count":  result.UnknownPostedAt,
			"policy": r.cfg.UnknownPostedAt,
		}).Info("jobs without a posting time reached the time window")
	}

	r.tracker.Finish(steps.FilterScore, steps.StatusCompleted, "")
	return result.Jobs, nil
}

func (r *runner) rank(jobs []types.Job) error {
	if err := r.begin(steps.Rank); err != nil {
		return err
	}
	r.digest.Jobs = ranking.Rank(jobs)
	r.tracker.Finish(steps.Rank, steps.StatusCompleted, "")
	return nil
}

func (r *runner) customize(ctx context.Context, customizer *customize.Customizer) error {
	if err := r.begin(steps.Customize); err != nil {
		return err
	}
	if customizer == nil {
		fmt.Fprintln(r.out, "Resume customization disabled.")
		r.tracker.Finish(steps.Customize, steps.StatusSkipped, "disabled")
		return nil
	}

	selected := ranking.TopN(r.digest.Jobs, r.cfg.MaxResumesToCustomize)
	if len(selected) == 0 {
		fmt.Fprintln(r.out, "No jobs selected for customization.")
		r.tracker.Finish(steps.Customize, steps.StatusSkipped, "no jobs selected")
		return nil
	}

	r.digest.Results = customizer.Run(ctx, selected)
	r.tracker.Finish(steps.Customize, steps.StatusCompleted, fmt.Sprintf("%d jobs", len(selected)))
	return nil
}

// buildReport writes the summary CSV and, when configured, the run history and the
// archive. None of these failures end the run.
func (r *runner) buildReport(ctx context.Context) error {
	if err := r.begin(steps.BuildReport); err != nil {
		return err
	}
	r.digest.FinishedAt = r.now()

	csvData, err := report.CSVBytes(r.digest)
	if err != nil {
		r.warn("summary CSV could not be rendered: %v", err)
	}
	r.csvData = csvData

	if err := report.WriteCSVFile(r.cfg.SummaryCSV, r.digest); err != nil {
		r.warn("summary CSV not written: %v", err)
	} else {
		fmt.Fprintf(r.out, "Summary CSV written to %s\n", r.cfg.SummaryCSV)
	}

	r.recordHistory(ctx)
	r.archive(ctx)

	r.tracker.Finish(steps.BuildReport, steps.StatusCompleted, "")
	return nil
}

func (r *runner) recordHistory(ctx context.Context) {
	store := r.opts.Store
	if store == nil {
		if r.cfg.HistoryDB == "" {
			return
		}
		var err error
		store, err = db.Open(ctx, r.cfg.HistoryDB)
		if err != nil {
			r.warn("run history unavailable: %v", err)
			return
		}
		defer func() { _ = store.Close() }()
	}

	ids := make([]string, len(r.digest.Jobs))
	for i := range r.digest.Jobs {
		ids[i] = r.digest.Jobs[i].ID
	}
	seen, err := store.FirstSeen(ctx, ids)
	if err != nil {
		r.log.WithError(err).Warn("failed to query run history")
	} else if len(seen) > 0 {
		r.log.WithField("count", len(seen)).Info("jobs already reported by earlier runs")
	}

	runID, err := uuid.Parse(r.digest.RunID)
	if err != nil {
		r.warn("run history not recorded: %v", err)
		return
	}
	if err := store.SaveRun(ctx, db.NewRunRecord(runID, r.digest)); err != nil {
		r.warn("run history not recorded: %v", err)
	}
}

func (r *runner) archive(ctx context.Context) {
	archiver := r.opts.Archiver
	if archiver == nil {
		if r.cfg.ArchiveBucket == "" {
			return
		}
		var err error
		archiver, err = archive.New(ctx, r.cfg.ArchiveBucket, r.cfg.ArchivePrefix)
		if err != nil {
			r.warn("archive unavailable: %v", err)
			return
		}
	}

	keys, err := archiver.Upload(ctx, r.digest, r.csvData)
	if err != nil {
		r.warn("archive incomplete: %v", err)
		return
	}
	r.log.WithFields(logrus.Fields{"bucket": archiver.Bucket, "objects": len(keys)}).Info("archived run")
}

// deliver sends the digest email. A transport failure is recorded, never returned.
func (r *runner) deliver(ctx context.Context) error {
	if err := r.begin(steps.Deliver); err != nil {
		return err
	}
	if !r.cfg.EnableEmail {
		fmt.Fprintln(r.out, "Email disabled.")
		r.tracker.Finish(steps.Deliver, steps.StatusSkipped, "disabled")
		return nil
	}

	sender := r.opts.Sender
	if sender == nil {
		sender = &report.SMTPSender{
			Host:     r.cfg.SMTPHost,
			Port:     r.cfg.SMTPPort,
			Username: r.cfg.GmailUser,
			Password: r.cfg.GmailPass,
		}
	}

	email, err := report.BuildEmail(r.digest, r.cfg.GmailUser, Recipients(r.cfg.ToEmail), r.csvData, r.now())
	if err == nil {
		err = sender.Send(ctx, email)
	}
	if err != nil {
		r.warn("email not sent: %v", err)
		r.tracker.Finish(steps.Deliver, steps.StatusFailed, err.Error())
		return nil
	}

	fmt.Fprintf(r.out, "Digest emailed to %s\n", r.cfg.ToEmail)
	r.tracker.Finish(steps.Deliver, steps.StatusCompleted, "")
	return nil
}

// Recipients splits a comma-separated address list
func Recipients(list string) []string {
	var out []string
	for _, addr := range strings.Split(list, ",") {
		if addr = strings.TrimSpace(addr); addr != "" {
			out = append(out, addr)
		}
	}
	return out
}
