// Package types provides type definitions for structured data used throughout the job-digest system.
//
//nolint:revive // types is a standard Go package name pattern
package types

// Well-known RawRecord keys. Adapters fill what they can; the normalizer decides the rest.
const (
	FieldTitle          = "title"
	FieldCompany        = "company"
	FieldLocation       = "location"
	FieldDescription    = "description"
	FieldURL            = "url"
	FieldPosted         = "posted"
	FieldPostedDateTime = "posted_datetime"
	FieldSearchQuery    = "search_query"
	FieldSnippet        = "snippet"
)

// RawRecord is source-specific free-form key/value data returned by an adapter
type RawRecord struct {
	Source Source
	Fields map[string]string
}

// NewRawRecord creates an empty record for a source
func NewRawRecord(source Source) RawRecord {
	return RawRecord{Source: source, Fields: make(map[string]string)}
}

// Get returns the value for key, or "" when absent
func (r RawRecord) Get(key string) string {
	if r.Fields == nil {
		return ""
	}
	return r.Fields[key]
}

// Set stores a value, allocating the map if needed
func (r *RawRecord) Set(key, value string) {
	if r.Fields == nil {
		r.Fields = make(map[string]string)
	}
	r.Fields[key] = value
}
