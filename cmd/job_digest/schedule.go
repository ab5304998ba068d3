package main

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/jonathan/job-digest/internal/config"
	"github.com/jonathan/job-digest/internal/pipeline"
)

const defaultSchedule = "0 8 * * *"

var (
	scheduleOpts runFlags
	scheduleSpec string
)

var scheduleCommand = &cobra.Command{
	Use:   "schedule",
	Short: "Run the digest on a cron schedule until interrupted",
	Long: `Runs the same pipeline as "run" on a standard five-field cron expression (or a descriptor
such as @daily or "@every 6h"). Each tick is an independent run; a failed tick is logged and
the scheduler keeps going. A tick that fires while the previous one is still running is skipped.`,
	Args: cobra.NoArgs,
	RunE: runSchedule,
}

func init() {
	scheduleOpts.bind(scheduleCommand)
	scheduleCommand.Flags().StringVar(&scheduleSpec, "cron", defaultSchedule, "Cron expression for runs")
	rootCmd.AddCommand(scheduleCommand)
}

// newScheduler validates spec and registers job on a cron that skips overlapping ticks
func newScheduler(spec string, log logrus.FieldLogger, job func()) (*cron.Cron, error) {
	if _, err := cron.ParseStandard(spec); err != nil {
		return nil, fmt.Errorf("invalid cron expression %q: %w", spec, err)
	}
	logger := cron.PrintfLogger(log)
	c := cron.New(cron.WithLogger(logger), cron.WithChain(cron.Recover(logger), cron.SkipIfStillRunning(logger)))
	if _, err := c.AddFunc(spec, job); err != nil {
		return nil, fmt.Errorf("cron.AddFunc: %w", err)
	}
	return c, nil
}

func runSchedule(cmd *cobra.Command, _ []string) error {
	cfg, err := scheduleOpts.loadConfig(cmd)
	if err != nil {
		return err
	}
	log := newLogger(cfg.Verbose)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	c, err := newScheduler(scheduleSpec, log, func() { runTick(ctx, cmd, cfg, log) })
	if err != nil {
		return err
	}

	c.Start()
	log.WithField("cron", scheduleSpec).Info("scheduler started")
	<-ctx.Done()

	// wait for a running tick to finish
	<-c.Stop().Done()
	log.Info("scheduler stopped")
	return nil
}

func runTick(ctx context.Context, cmd *cobra.Command, cfg *config.Config, log logrus.FieldLogger) {
	log.Info("scheduled run starting")
	d, err := pipeline.RunPipeline(ctx, pipeline.RunOptions{
		Config: cfg,
		Log:    log,
		Out:    cmd.OutOrStdout(),
	})
	if err != nil {
		log.WithError(err).Error("scheduled run failed")
		return
	}
	log.WithFields(logrus.Fields{"run_id": d.RunID, "jobs": len(d.Jobs), "warnings": len(d.Warnings)}).Info("scheduled run finished")
}
