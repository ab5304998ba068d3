package sources

import (
	"context"
	"errors"

	"github.com/jonathan/job-digest/internal/config"
	"github.com/jonathan/job-digest/internal/fetch"
	"github.com/jonathan/job-digest/internal/types"
	"github.com/sirupsen/logrus"
)

// Deps carries the shared collaborators adapters are built with.
type Deps struct {
	Fetcher *fetch.Fetcher
	// Engine overrides the web search backend; nil selects one from the config
	Engine SearchEngine
	Log    logrus.FieldLogger
}

// Factory builds an adapter from configuration. Returning an error wrapping
// ErrNotConfigured marks the source as skipped rather than failed.
type Factory func(ctx context.Context, cfg *config.Config, deps Deps) (Adapter, error)

type registration struct {
	enabled func(cfg *config.Config) bool
	build   Factory
}

// registry is the lookup table of source kinds to adapter factories.
var registry = map[types.SourceKind]registration{
	types.SourceCSV: {
		enabled: func(cfg *config.Config) bool { return cfg.CSVSourcePath != "" },
		build:   newCSVFromConfig,
	},
	types.SourceIndeed: {
		enabled: func(cfg *config.Config) bool { return cfg.EnableIndeed },
		build:   newIndeedFromConfig,
	},
	types.SourceLinkedIn: {
		enabled: func(cfg *config.Config) bool { return cfg.EnableLinkedIn },
		build:   newLinkedInFromConfig,
	},
	types.SourceWebSearch: {
		enabled: func(cfg *config.Config) bool { return cfg.EnableWebSearch },
		build:   newWebSearchFromConfig,
	},
}

// Order is the merge order of adapter results.
var Order = []types.SourceKind{
	types.SourceCSV,
	types.SourceIndeed,
	types.SourceLinkedIn,
	types.SourceWebSearch,
}

// Build creates the enabled adapters in Order. Sources that are enabled but cannot run
// are returned as skipped outcomes so the report can list them.
func Build(ctx context.Context, cfg *config.Config, deps Deps) ([]Adapter, []Outcome) {
	if deps.Log == nil {
		deps.Log = logrus.StandardLogger()
	}
	if deps.Fetcher == nil {
		deps.Fetcher = fetch.NewFetcher(cfg.FetchTimeout, cfg.ScrapeRatePerSec, cfg.UseBrowser, deps.Log)
	}

	var adapters []Adapter
	var skipped []Outcome
	for _, kind := range Order {
		reg, ok := registry[kind]
		if !ok || !reg.enabled(cfg) {
			continue
		}
		adapter, err := reg.build(ctx, cfg, deps)
		if err != nil {
			var adapterErr *AdapterError
			if !errors.As(err, &adapterErr) {
				err = &AdapterError{Source: kind, Message: "setup failed", Cause: err}
			}
			skipped = append(skipped, Outcome{Source: kind, Err: err, Skipped: errors.Is(err, ErrNotConfigured)})
			deps.Log.WithField("source", kind).WithError(err).Warn("source not started")
			continue
		}
		adapters = append(adapters, adapter)
	}
	return adapters, skipped
}

// Merge flattens outcomes into one record list, keeping outcome order.
func Merge(outcomes []Outcome) []types.RawRecord {
	var total int
	for _, o := range outcomes {
		total += len(o.Records)
	}
	records := make([]types.RawRecord, 0, total)
	for _, o := range outcomes {
		records = append(records, o.Records...)
	}
	return records
}
