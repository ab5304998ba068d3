// Package steps provides step definitions, dependency validation, and step tracking
// for the job digest pipeline.
package steps

import (
	"fmt"
	"time"
)

// Step names
const (
	GatherSources = "gather_sources"
	Normalize     = "normalize"
	Deduplicate   = "deduplicate"
	FilterScore   = "filter_score"
	Rank          = "rank"
	Customize     = "customize"
	BuildReport   = "build_report"
	Deliver       = "deliver"
)

// Step categories
const (
	CategoryIngestion     = "ingestion"
	CategoryMatching      = "matching"
	CategoryCustomization = "customization"
	CategoryReport        = "report"
)

// Step statuses
const (
	StatusCompleted = "completed"
	StatusSkipped   = "skipped"
	StatusFailed    = "failed"
)

// StepDefinition defines metadata for a pipeline step
type StepDefinition struct {
	Name         string
	Title        string
	Category     string
	Dependencies []string
	// Optional dependencies only need to have finished, in any status
	Optional []string
}

// StepRegistry holds all step definitions
var StepRegistry = map[string]StepDefinition{
	GatherSources: {
		Name:     GatherSources,
		Title:    "Gathering postings from sources",
		Category: CategoryIngestion,
	},
	Normalize: {
		Name:         Normalize,
		Title:        "Normalizing records",
		Category:     CategoryIngestion,
		Dependencies: []string{GatherSources},
	},
	Deduplicate: {
		Name:         Deduplicate,
		Title:        "Removing duplicate postings",
		Category:     CategoryMatching,
		Dependencies: []string{Normalize},
	},
	FilterScore: {
		Name:         FilterScore,
		Title:        "Filtering and scoring jobs",
		Category:     CategoryMatching,
		Dependencies: []string{Deduplicate},
	},
	Rank: {
		Name:         Rank,
		Title:        "Ranking matches",
		Category:     CategoryMatching,
		Dependencies: []string{FilterScore},
	},
	Customize: {
		Name:         Customize,
		Title:        "Customizing resumes",
		Category:     CategoryCustomization,
		Dependencies: []string{Rank},
	},
	BuildReport: {
		Name:         BuildReport,
		Title:        "Building report",
		Category:     CategoryReport,
		Dependencies: []string{Rank},
		Optional:     []string{Customize},
	},
	Deliver: {
		Name:         Deliver,
		Title:        "Delivering digest",
		Category:     CategoryReport,
		Dependencies: []string{BuildReport},
	},
}

// Order is the execution order used for step numbering
var Order = []string{GatherSources, Normalize, Deduplicate, FilterScore, Rank, Customize, BuildReport, Deliver}

// DependencyError represents a dependency validation error
type DependencyError struct {
	Step                string
	MissingDependencies []string
}

func (e *DependencyError) Error() string {
	return fmt.Sprintf("step %s: missing dependencies: %v", e.Step, e.MissingDependencies)
}

// StepRecord is the outcome of one executed step
type StepRecord struct {
	Step     string
	Status   string
	Duration time.Duration
	Note     string
}

// Tracker records step outcomes for one run. It is used from the run's single
// coordinating goroutine and is not safe for concurrent use.
type Tracker struct {
	records map[string]*StepRecord
	order   []string
	started map[string]time.Time
	now     func() time.Time
}

// NewTracker creates an empty tracker; now defaults to time.Now
func NewTracker(now func() time.Time) *Tracker {
	if now == nil {
		now = time.Now
	}
	return &Tracker{records: map[string]*StepRecord{}, started: map[string]time.Time{}, now: now}
}

// ValidateDependencies checks that every required dependency of a step has completed
// and every optional one has at least finished
func (t *Tracker) ValidateDependencies(stepName string) error {
	def, ok := StepRegistry[stepName]
	if !ok {
		return fmt.Errorf("unknown step: %s", stepName)
	}

	var missing []string
	for _, dep := range def.Dependencies {
		rec, ok := t.records[dep]
		if !ok || rec.Status != StatusCompleted {
			missing = append(missing, dep)
		}
	}
	for _, dep := range def.Optional {
		if _, ok := t.records[dep]; !ok {
			missing = append(missing, dep)
		}
	}

	if len(missing) > 0 {
		return &DependencyError{Step: stepName, MissingDependencies: missing}
	}
	return nil
}

// Begin validates dependencies and starts the step clock
func (t *Tracker) Begin(stepName string) error {
	if err := t.ValidateDependencies(stepName); err != nil {
		return err
	}
	t.started[stepName] = t.now()
	return nil
}

// Finish records the step outcome
func (t *Tracker) Finish(stepName, status, note string) {
	var d time.Duration
	if start, ok := t.started[stepName]; ok {
		d = t.now().Sub(start)
	}
	if _, ok := t.records[stepName]; !ok {
		t.order = append(t.order, stepName)
	}
	t.records[stepName] = &StepRecord{Step: stepName, Status: status, Duration: d, Note: note}
}

// Record returns the outcome of a step, or nil if it has not finished
// Records returns finished steps in the order they finished
func (t *Tracker) Records() []StepRecord {
	out := make([]StepRecord, 0, len(t.order))
	for _, name := range t.order {
		out = append(out, *t.records[name])
	}
	return out
}

// Banner returns the "Step i/n: title" line for a step
func Banner(stepName string) string {
	def := StepRegistry[stepName]
	for i, name := range Order {
		if name == stepName {
			return fmt.Sprintf("Step %d/%d: %s...", i+1, len(Order), def.Title)
		}
	}
	return def.Title + "..."
}
