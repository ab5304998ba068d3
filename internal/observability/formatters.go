// Package observability provides formatted console output for the run summary.
package observability

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/jonathan/job-digest/internal/report"
	"github.com/jonathan/job-digest/internal/scoring"
	"github.com/jonathan/job-digest/internal/types"
)

const (
	// boxWidth is the default width for formatted output boxes
	boxWidth = 60
	// maxItemsToShow is the default number of items to display in lists
	maxItemsToShow = 5
)

// Printer handles formatted console output
type Printer struct {
	out io.Writer
}

// NewPrinter creates a new Printer that writes to the given writer
func NewPrinter(out io.Writer) *Printer {
	return &Printer{out: out}
}

// truncate shortens s to n runes, marking the cut with "..."
func truncate(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n-3]) + "..."
}

// printBox prints a formatted box with a title and content
//
//nolint:errcheck // writing to stdout; errors are not recoverable
func (p *Printer) printBox(title string, content string) {
	border := strings.Repeat("─", boxWidth-2)
	fmt.Fprintf(p.out, "┌%s┐\n", border)
	fmt.Fprintf(p.out, "│ %-*s │\n", boxWidth-4, title)
	fmt.Fprintf(p.out, "├%s┤\n", border)

	lines := strings.Split(content, "\n")
	for _, line := range lines {
		line = truncate(line, boxWidth-4)
		fmt.Fprintf(p.out, "│ %-*s │\n", boxWidth-4, line)
	}

	fmt.Fprintf(p.out, "└%s┘\n", border)
}

// PrintSources outputs how many records each adapter returned and why any failed.
func (p *Printer) PrintSources(summaries []report.SourceSummary) {
	if len(summaries) == 0 {
		return
	}

	var sb strings.Builder
	for _, s := range summaries {
		switch {
		case s.Skipped:
			sb.WriteString(fmt.Sprintf("– %-12s skipped: %s\n", s.Source, s.Error))
		case s.Failed():
			sb.WriteString(fmt.Sprintf("✗ %-12s failed: %s\n", s.Source, s.Error))
		default:
			sb.WriteString(fmt.Sprintf("✓ %-12s %d records (%s)\n", s.Source, s.Records, s.Duration.Round(time.Millisecond)))
		}
	}

	p.printBox("SOURCES", strings.TrimSuffix(sb.String(), "\n"))
}

// PrintFilterStages outputs the job count entering and leaving each filter stage.
func (p *Printer) PrintFilterStages(stages []scoring.StageStats, malformed, duplicates int) {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Malformed records dropped: %d\n", malformed))
	sb.WriteString(fmt.Sprintf("Duplicates merged:         %d\n", duplicates))
	if len(stages) > 0 {
		sb.WriteString("\n")
	}
	for _, st := range stages {
		if !st.Enabled {
			sb.WriteString(fmt.Sprintf("  %-18s (disabled)\n", st.Stage))
			continue
		}
		sb.WriteString(fmt.Sprintf("  %-18s %4d → %-4d (-%d)\n", st.Stage, st.In, st.Out, st.Dropped()))
	}

	p.printBox("FILTERING", strings.TrimSuffix(sb.String(), "\n"))
}

// PrintTopMatches outputs the top N ranked jobs with scores and matched skills.
func (p *Printer) PrintTopMatches(jobs []types.Job) {
	if len(jobs) == 0 {
		p.printBox("TOP MATCHES", "No jobs matched the filters")
		return
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Total jobs ranked: %d\n\n", len(jobs)))

	count := min(len(jobs), maxItemsToShow)
	for i := 0; i < count; i++ {
		job := jobs[i]
		sb.WriteString(fmt.Sprintf("#%d  %s\n", i+1, job.Title))
		sb.WriteString(fmt.Sprintf("    %s · %s\n", job.Company, job.Location))
		sb.WriteString(fmt.Sprintf("    Score: %d [%s]  Posted: %s\n", job.Score, job.QualityTier, report.PostedLabel(&job)))
		if len(job.MatchedSkills) > 0 {
			sb.WriteString(fmt.Sprintf("    Skills: %s\n", truncate(report.SkillSummary(job.MatchedSkills), 40)))
		}
		if i < count-1 {
			sb.WriteString("\n")
		}
	}

	if len(jobs) > maxItemsToShow {
		sb.WriteString(fmt.Sprintf("\n... and %d more jobs", len(jobs)-maxItemsToShow))
	}

	p.printBox("TOP MATCHES", sb.String())
}

// PrintCustomization outputs the per-job outcome of the resume customization pipeline.
//
//nolint:errcheck // writing to stdout; errors are not recoverable
func (p *Printer) PrintCustomization(jobs []types.Job, results []types.CustomizationResult) {
	if len(results) == 0 {
		return
	}

	titles := make(map[string]string, len(jobs))
	for i := range jobs {
		titles[jobs[i].ID] = jobs[i].DisplayName()
	}

	var sb strings.Builder
	for i, r := range results {
		name := titles[r.JobID]
		if name == "" {
			name = r.JobID
		}
		switch r.Status {
		case types.StatusSuccess:
			sb.WriteString(fmt.Sprintf("✅ %s\n", name))
			sb.WriteString(fmt.Sprintf("   %d calls, %s\n", r.APICallsMade, r.ModelUsed))
			if len(r.FactCheckWarnings) > 0 {
				sb.WriteString(fmt.Sprintf("   ⚠ unsupported: %s\n", strings.Join(r.FactCheckWarnings, ", ")))
			}
		case types.StatusSkipped:
			sb.WriteString(fmt.Sprintf("– %s\n", name))
			sb.WriteString(fmt.Sprintf("   skipped: %s\n", r.Note))
		default:
			sb.WriteString(fmt.Sprintf("❌ %s\n", name))
			sb.WriteString(fmt.Sprintf("   %s after %d calls\n", r.Reason(), r.APICallsMade))
		}
		if i < len(results)-1 {
			sb.WriteString("\n")
		}
	}

	p.printBox("RESUME CUSTOMIZATION", sb.String())
}

// PrintWarnings outputs non-fatal delivery problems, or a clean bill of health.
//
//nolint:errcheck // writing to stdout; errors are not recoverable
func (p *Printer) PrintWarnings(warnings []string) {
	if len(warnings) == 0 {
		fmt.Fprintf(p.out, "┌%s┐\n", strings.Repeat("─", boxWidth-2))
		fmt.Fprintf(p.out, "│ %-*s │\n", boxWidth-4, "✅ ALL OUTPUTS DELIVERED")
		fmt.Fprintf(p.out, "└%s┘\n", strings.Repeat("─", boxWidth-2))
		return
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("%d problems:\n\n", len(warnings)))
	for i, w := range warnings {
		sb.WriteString(fmt.Sprintf("⚠ %s", w))
		if i < len(warnings)-1 {
			sb.WriteString("\n")
		}
	}

	p.printBox("WARNINGS", sb.String())
}

// PrintDigest prints every section of the run summary
func (p *Printer) PrintDigest(d *report.Digest) {
	p.PrintSources(d.Sources)
	p.PrintFilterStages(d.Stages, d.Malformed, d.Duplicates)
	p.PrintTopMatches(d.Jobs)
	p.PrintCustomization(d.Jobs, d.Results)
	p.PrintWarnings(d.Warnings)
}
