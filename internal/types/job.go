// Package types provides type definitions for structured data used throughout the job-digest system.
//
//nolint:revive // types is a standard Go package name pattern
package types

import (
	"strings"
	"time"
)

// SourceKind identifies a family of source adapters
type SourceKind string

const (
	// SourceCSV is a static CSV export of postings
	SourceCSV SourceKind = "csv"
	// SourceIndeed is the Indeed search results page
	SourceIndeed SourceKind = "indeed"
	// SourceLinkedIn is the LinkedIn guest jobs API
	SourceLinkedIn SourceKind = "linkedin"
	// SourceWebSearch covers postings discovered through a web search engine
	SourceWebSearch SourceKind = "web_search"
)

// Source is the tag carried by every job, e.g. "indeed" or "web_search:naukri"
type Source string

// WebSearchSource builds the source tag for a posting found on a portal through web search
func WebSearchSource(portal string) Source {
	return Source(string(SourceWebSearch) + ":" + strings.ToLower(strings.TrimSpace(portal)))
}

// Kind returns the adapter family of the source tag
func (s Source) Kind() SourceKind {
	str := string(s)
	if idx := strings.Index(str, ":"); idx >= 0 {
		return SourceKind(str[:idx])
	}
	return SourceKind(str)
}

// QualityTier is the coarse relevance bucket derived from score thresholds
type QualityTier string

const (
	// TierHigh is for jobs at or above the high threshold
	TierHigh QualityTier = "high"
	// TierMedium is for jobs at or above the medium threshold
	TierMedium QualityTier = "medium"
	// TierLow is everything else
	TierLow QualityTier = "low"
)

// Job represents one discovered posting after normalization
type Job struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	Company     string `json:"company"`
	Location    string `json:"location"`
	Description string `json:"description"`
	Source      Source `json:"source"`
	// PostedText is the raw posting-time text as published by the source
	PostedText string     `json:"posted"`
	PostedAt   *time.Time `json:"posted_at,omitempty"`
	URL        string     `json:"url"`

	SearchQuery string `json:"search_query,omitempty"`

	MatchedSkills []string    `json:"matched_skills"`
	Score         int         `json:"score"`
	QualityTier   QualityTier `json:"quality_tier"`

	// Seq is the discovery order assigned by the pipeline; it breaks ties deterministically
	Seq int `json:"-"`
}

// HasPostedAt reports whether the posting time is known
func (j *Job) HasPostedAt() bool {
	return j.PostedAt != nil && !j.PostedAt.IsZero()
}

// DisplayName returns "<title> at <company>" for log and report lines
func (j *Job) DisplayName() string {
	return j.Title + " at " + j.Company
}
