// Package normalize maps raw adapter records into canonical jobs.
package normalize

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
	"time"

	"github.com/jonathan/job-digest/internal/types"
)

// MalformedRecordError represents a raw record missing mandatory fields
type MalformedRecordError struct {
	Source  types.Source
	Index   int
	Missing []string
	URL     string
}

func (e *MalformedRecordError) Error() string {
	msg := fmt.Sprintf("malformed record #%d from %s: missing %s", e.Index, e.Source, strings.Join(e.Missing, ", "))
	if e.URL != "" {
		msg += " (" + e.URL + ")"
	}
	return msg
}

// Normalizer converts raw records into jobs. Now is the reference time for relative
// posting times; it is fixed per run so every record is parsed against the same instant.
type Normalizer struct {
	Now time.Time
}

// New creates a Normalizer anchored at now
func New(now time.Time) *Normalizer {
	return &Normalizer{Now: now}
}

// Normalize converts one raw record. index is the record's discovery position and
// becomes the job's Seq.
func (n *Normalizer) Normalize(rec types.RawRecord, index int) (*types.Job, error) {
	title := cleanField(rec.Get(types.FieldTitle))
	company := cleanField(rec.Get(types.FieldCompany))

	var missing []string
	if title == "" {
		missing = append(missing, types.FieldTitle)
	}
	if company == "" {
		missing = append(missing, types.FieldCompany)
	}
	if len(missing) > 0 {
		return nil, &MalformedRecordError{
			Source:  rec.Source,
			Index:   index,
			Missing: missing,
			URL:     strings.TrimSpace(rec.Get(types.FieldURL)),
		}
	}

	location := cleanField(rec.Get(types.FieldLocation))
	rawURL := strings.TrimSpace(rec.Get(types.FieldURL))
	link := CanonicalURL(rawURL)
	if link == "" {
		link = rawURL
	}

	posted := cleanField(rec.Get(types.FieldPosted))
	job := &types.Job{
		Title:         title,
		Company:       company,
		Location:      location,
		Description:   strings.TrimSpace(rec.Get(types.FieldDescription)),
		Source:        rec.Source,
		PostedText:    posted,
		PostedAt:      ParsePostedAt(rec.Source.Kind(), posted, rec.Get(types.FieldPostedDateTime), n.Now),
		URL:           link,
		SearchQuery:   strings.TrimSpace(rec.Get(types.FieldSearchQuery)),
		MatchedSkills: []string{},
		Seq:           index,
	}
	job.ID = JobID(job)
	return job, nil
}

// NormalizeAll converts records in order. Malformed records are dropped and returned
// so the caller can count and report them.
func (n *Normalizer) NormalizeAll(records []types.RawRecord) ([]types.Job, []*MalformedRecordError) {
	jobs := make([]types.Job, 0, len(records))
	var dropped []*MalformedRecordError
	for i, rec := range records {
		job, err := n.Normalize(rec, i)
		if err != nil {
			if malformed, ok := err.(*MalformedRecordError); ok {
				dropped = append(dropped, malformed)
			}
			continue
		}
		jobs = append(jobs, *job)
	}
	return jobs, dropped
}

// Key returns the comparison form of free text: trimmed, lower-case, single-spaced.
func Key(s string) string {
	return strings.ToLower(strings.Join(strings.Fields(s), " "))
}

// JobID derives the stable job identifier from normalized title, company and URL.
// Jobs without a URL hash the location instead so that distinct postings without
// links keep distinct identifiers.
func JobID(job *types.Job) string {
	third := CanonicalURL(job.URL)
	if third == "" {
		third = "loc:" + Key(job.Location)
	}
	sum := sha256.Sum256([]byte(Key(job.Title) + "|" + Key(job.Company) + "|" + third))
	return hex.EncodeToString(sum[:8])
}

func cleanField(s string) string {
	s = strings.ReplaceAll(s, "\u00a0", " ")
	return strings.Join(strings.Fields(s), " ")
}
