package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/jonathan/job-digest/internal/config"
	"github.com/jonathan/job-digest/internal/pipeline"
)

// runFlags are shared by run and schedule
type runFlags struct {
	configPath  string
	resume      string
	outputDir   string
	maxResumes  int
	noEmail     bool
	noCustomize bool
	verbose     bool
}

func (f *runFlags) bind(cmd *cobra.Command) {
	// Config file flag (processed first)
	cmd.Flags().StringVar(&f.configPath, "config", "", "Path to a YAML or JSON config file (env and flags override its values)")
	cmd.Flags().StringVarP(&f.resume, "resume", "r", "", "Base resume (.txt, .md, .pdf, .docx)")
	cmd.Flags().StringVarP(&f.outputDir, "output-dir", "o", "", "Directory for customized resume folders")
	cmd.Flags().IntVar(&f.maxResumes, "max-resumes", 0, "Number of top jobs to customize")
	cmd.Flags().BoolVar(&f.noEmail, "no-email", false, "Skip sending the digest email")
	cmd.Flags().BoolVar(&f.noCustomize, "no-customize", false, "Skip resume customization")
	cmd.Flags().BoolVarP(&f.verbose, "verbose", "v", false, "Print detailed debug information")
}

// overrides returns the option values set explicitly on the command line
func (f *runFlags) overrides(cmd *cobra.Command) map[string]string {
	values := map[string]string{}
	flags := cmd.Flags()
	if flags.Changed("resume") {
		values[config.KeyBaseResumePath] = f.resume
	}
	if flags.Changed("output-dir") {
		values[config.KeyOutputDir] = f.outputDir
	}
	if flags.Changed("max-resumes") {
		values[config.KeyMaxResumes] = strconv.Itoa(f.maxResumes)
	}
	if f.noEmail {
		values[config.KeyEnableEmail] = "false"
	}
	if f.noCustomize {
		values[config.KeyEnableCustomization] = "false"
	}
	return values
}

// loadConfig resolves options from flags, then the environment, then the config file,
// then the keychain, then defaults
func (f *runFlags) loadConfig(cmd *cobra.Command) (*config.Config, error) {
	lookups := []config.Lookup{config.MapLookup(f.overrides(cmd)), config.EnvLookup()}
	if f.configPath != "" {
		fileLookup, err := config.FileLookup(f.configPath)
		if err != nil {
			return nil, fmt.Errorf("failed to load config: %w", err)
		}
		lookups = append(lookups, fileLookup)
	}
	lookups = append(lookups, config.KeychainLookup())

	cfg, err := config.Load(config.Chain(lookups...))
	if err != nil {
		return nil, err
	}
	cfg.Verbose = f.verbose
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func newLogger(verbose bool) *logrus.Logger {
	log := logrus.New()
	log.SetOutput(os.Stderr)
	log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	if verbose {
		log.SetLevel(logrus.DebugLevel)
	} else {
		log.SetLevel(logrus.InfoLevel)
	}
	return log
}

var runOpts runFlags

var runCommand = &cobra.Command{
	Use:   "run",
	Short: "Run one digest: gather, filter, rank, customize, report",
	Long: `Runs the whole pipeline once: sources -> normalize -> dedup -> filter & score -> rank ->
resume customization -> CSV, history, archive and email.

Source, model and delivery failures are reported in the digest and do not fail the run.
Only configuration problems found at startup exit non-zero.`,
	Args: cobra.NoArgs,
	RunE: runPipelineCmd,
}

func init() {
	runOpts.bind(runCommand)
	rootCmd.AddCommand(runCommand)
}

func runPipelineCmd(cmd *cobra.Command, _ []string) error {
	cfg, err := runOpts.loadConfig(cmd)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	_, err = pipeline.RunPipeline(ctx, pipeline.RunOptions{
		Config: cfg,
		Log:    newLogger(cfg.Verbose),
		Out:    cmd.OutOrStdout(),
	})
	return err
}
