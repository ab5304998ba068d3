package report

import (
	"bytes"
	"fmt"
	"html/template"
	"strings"

	"github.com/jonathan/job-digest/internal/types"
)

const (
	topMatchesCount = 5
	skillsPerMatch  = 3
)

// Subject returns the email subject line
func Subject(d *Digest) string {
	switch n := len(d.Jobs); n {
	case 0:
		return "Job Digest — no matches"
	case 1:
		return "Job Digest — 1 match"
	default:
		return fmt.Sprintf("Job Digest — %d matches", n)
	}
}

// SkillSummary lists the first three skills and how many were left out
func SkillSummary(skills []string) string {
	if len(skills) == 0 {
		return "none"
	}
	if len(skills) <= skillsPerMatch {
		return strings.Join(skills, ", ")
	}
	return fmt.Sprintf("%s (+%d more)", strings.Join(skills[:skillsPerMatch], ", "), len(skills)-skillsPerMatch)
}

// PostedLabel is the posting time shown in reports
func PostedLabel(job *types.Job) string {
	if job.PostedText != "" {
		return job.PostedText
	}
	if job.HasPostedAt() {
		return job.PostedAt.Format("2006-01-02 15:04")
	}
	return "unknown"
}

func listOrNone(items []string) string {
	if len(items) == 0 {
		return "(none)"
	}
	return strings.Join(items, ", ")
}

// PlainText renders the text/plain email body
func PlainText(d *Digest) string {
	stats := ComputeStats(d)
	var sb strings.Builder

	if len(d.Jobs) == 0 {
		writeNoMatches(&sb, d)
		writeSourceFailures(&sb, stats)
		return sb.String()
	}

	fmt.Fprintf(&sb, "Found %d matching jobs for %q in %s (last %d hours).\n\n",
		stats.TotalJobs, d.Settings.Keywords, d.Settings.Location, d.Settings.TimeRangeHours)

	sb.WriteString("FILTER SUMMARY\n")
	fmt.Fprintf(&sb, "  Records fetched: %d, malformed: %d, duplicates merged: %d\n", stats.RecordsFetched, d.Malformed, d.Duplicates)
	for _, st := range d.Stages {
		if !st.Enabled {
			continue
		}
		fmt.Fprintf(&sb, "  %-18s %d -> %d\n", st.Stage, st.In, st.Out)
	}

	sb.WriteString("\nSOURCES\n")
	for _, c := range stats.BySource {
		fmt.Fprintf(&sb, "  %-24s %d\n", c.Name, c.Count)
	}

	sb.WriteString("\nQUALITY\n")
	fmt.Fprintf(&sb, "  High: %d  Medium: %d  Low: %d\n",
		stats.ByTier[types.TierHigh], stats.ByTier[types.TierMedium], stats.ByTier[types.TierLow])

	if len(stats.TopSkills) > 0 {
		sb.WriteString("\nTOP SKILLS\n")
		for _, c := range stats.TopSkills {
			fmt.Fprintf(&sb, "  %s (%d)\n", c.Name, c.Count)
		}
	}

	sb.WriteString("\nTOP MATCHES\n")
	for i := range d.Jobs[:min(len(d.Jobs), topMatchesCount)] {
		job := &d.Jobs[i]
		fmt.Fprintf(&sb, "%d. %s at %s (%s)\n", i+1, job.Title, job.Company, job.Location)
		fmt.Fprintf(&sb, "   Score %d [%s], posted %s, via %s\n", job.Score, job.QualityTier, PostedLabel(job), job.Source)
		fmt.Fprintf(&sb, "   Skills: %s\n", SkillSummary(job.MatchedSkills))
		fmt.Fprintf(&sb, "   %s\n", job.URL)
	}

	if stats.Customization.Selected > 0 {
		sb.WriteString("\nRESUME CUSTOMIZATION\n")
		c := stats.Customization
		fmt.Fprintf(&sb, "  %d selected: %d succeeded, %d failed, %d skipped (%d model calls)\n",
			c.Selected, c.Succeeded, c.Failed, c.Skipped, c.APICalls)
		for i := range d.Results {
			r := &d.Results[i]
			if r.Status == types.StatusSuccess {
				continue
			}
			fmt.Fprintf(&sb, "  - %s: %s %s\n", jobName(d, r.JobID), r.Status, resultReason(r))
		}
	}

	writeSourceFailures(&sb, stats)
	writeWarnings(&sb, d)
	return sb.String()
}

func writeNoMatches(sb *strings.Builder, d *Digest) {
	s := d.Settings
	sb.WriteString("No jobs matched your filters in this run.\n\n")
	sb.WriteString("SETTINGS\n")
	fmt.Fprintf(sb, "  Keywords:         %s\n", s.Keywords)
	fmt.Fprintf(sb, "  Location:         %s\n", s.Location)
	fmt.Fprintf(sb, "  Time range:       last %d hours\n", s.TimeRangeHours)
	fmt.Fprintf(sb, "  Required skills:  %s\n", listOrNone(s.RequiredSkills))
	fmt.Fprintf(sb, "  Preferred skills: %s\n", listOrNone(s.PreferredSkills))
	fmt.Fprintf(sb, "  Excluded:         %s\n", listOrNone(s.ExcludeKeywords))
	fmt.Fprintf(sb, "  Min score:        %d\n", s.MinScore)
}

func writeSourceFailures(sb *strings.Builder, stats Stats) {
	if len(stats.FailedSources) == 0 {
		return
	}
	sb.WriteString("\nSOURCE FAILURES\n")
	for _, s := range stats.FailedSources {
		state := "failed"
		if s.Skipped {
			state = "skipped"
		}
		fmt.Fprintf(sb, "  - %s %s: %s\n", s.Source, state, s.Error)
	}
}

func writeWarnings(sb *strings.Builder, d *Digest) {
	if len(d.Warnings) == 0 {
		return
	}
	sb.WriteString("\nWARNINGS\n")
	for _, w := range d.Warnings {
		fmt.Fprintf(sb, "  - %s\n", w)
	}
}

func resultReason(r *types.CustomizationResult) string {
	if r.Status == types.StatusFailed {
		return "(" + r.Reason() + ")"
	}
	if r.Note != "" {
		return "(" + r.Note + ")"
	}
	return ""
}

func jobName(d *Digest, id string) string {
	for i := range d.Jobs {
		if d.Jobs[i].ID == id {
			return d.Jobs[i].DisplayName()
		}
	}
	return id
}

type htmlMatch struct {
	Rank     int
	Job      *types.Job
	Posted   string
	Skills   string
	Status   string
	Reason   string
	Selected bool
}

type htmlView struct {
	Digest    *Digest
	Stats     Stats
	Subject   string
	Matches   []htmlMatch
	NoMatches bool
	Required  string
	Preferred string
	Excluded  string
	High      int
	Medium    int
	Low       int
}

var htmlTemplate = template.Must(template.New("digest").Parse(`<!DOCTYPE html>
<html><body style="font-family: Arial, sans-serif; color: #222;">
<h2>{{.Subject}}</h2>
{{if .NoMatches}}
<p>No jobs matched your filters in this run.</p>
<table cellpadding="4">
<tr><td>Keywords</td><td>{{.Digest.Settings.Keywords}}</td></tr>
<tr><td>Location</td><td>{{.Digest.Settings.Location}}</td></tr>
<tr><td>Time range</td><td>last {{.Digest.Settings.TimeRangeHours}} hours</td></tr>
<tr><td>Required skills</td><td>{{.Required}}</td></tr>
<tr><td>Preferred skills</td><td>{{.Preferred}}</td></tr>
<tr><td>Excluded</td><td>{{.Excluded}}</td></tr>
<tr><td>Min score</td><td>{{.Digest.Settings.MinScore}}</td></tr>
</table>
{{else}}
<p>Found <b>{{.Stats.TotalJobs}}</b> matching jobs for <b>{{.Digest.Settings.Keywords}}</b> in {{.Digest.Settings.Location}} (last {{.Digest.Settings.TimeRangeHours}} hours).</p>
<h3>Sources</h3>
<ul>{{range .Stats.BySource}}<li>{{.Name}}: {{.Count}}</li>{{end}}</ul>
<h3>Quality</h3>
<p>High: {{.High}} &middot; Medium: {{.Medium}} &middot; Low: {{.Low}}</p>
{{if .Stats.TopSkills}}<h3>Top skills</h3>
<ul>{{range .Stats.TopSkills}}<li>{{.Name}} ({{.Count}})</li>{{end}}</ul>{{end}}
<h3>Top matches</h3>
<ol>{{range .Matches}}
<li><a href="{{.Job.URL}}">{{.Job.Title}}</a> at {{.Job.Company}} ({{.Job.Location}})<br>
Score {{.Job.Score}} [{{.Job.QualityTier}}], posted {{.Posted}}, via {{.Job.Source}}<br>
Skills: {{.Skills}}{{if .Selected}}<br>Resume: {{.Status}} {{.Reason}}{{end}}</li>{{end}}
</ol>
{{with .Stats.Customization}}{{if .Selected}}<h3>Resume customization</h3>
<p>{{.Selected}} selected: {{.Succeeded}} succeeded, {{.Failed}} failed, {{.Skipped}} skipped.</p>{{end}}{{end}}
{{end}}
{{if .Stats.FailedSources}}<h3>Source failures</h3>
<ul>{{range .Stats.FailedSources}}<li>{{.Source}}: {{.Error}}</li>{{end}}</ul>{{end}}
{{if .Digest.Warnings}}<h3>Warnings</h3>
<ul>{{range .Digest.Warnings}}<li>{{.}}</li>{{end}}</ul>{{end}}
</body></html>
`))

// HTML renders the text/html email body
func HTML(d *Digest) (string, error) {
	view := htmlView{
		Digest:    d,
		Stats:     ComputeStats(d),
		Subject:   Subject(d),
		NoMatches: len(d.Jobs) == 0,
		Required:  listOrNone(d.Settings.RequiredSkills),
		Preferred: listOrNone(d.Settings.PreferredSkills),
		Excluded:  listOrNone(d.Settings.ExcludeKeywords),
	}
	view.High = view.Stats.ByTier[types.TierHigh]
	view.Medium = view.Stats.ByTier[types.TierMedium]
	view.Low = view.Stats.ByTier[types.TierLow]
	for i := range d.Jobs[:min(len(d.Jobs), topMatchesCount)] {
		job := &d.Jobs[i]
		m := htmlMatch{Rank: i + 1, Job: job, Posted: PostedLabel(job), Skills: SkillSummary(job.MatchedSkills)}
		if r := d.Result(job.ID); r != nil {
			m.Selected = true
			m.Status = string(r.Status)
			m.Reason = resultReason(r)
		}
		view.Matches = append(view.Matches, m)
	}

	var buf bytes.Buffer
	if err := htmlTemplate.Execute(&buf, view); err != nil {
		return "", fmt.Errorf("failed to render HTML digest: %w", err)
	}
	return buf.String(), nil
}
