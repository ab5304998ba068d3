package normalize

import (
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/jonathan/job-digest/internal/types"
)

// strategy is one way of reading a posting time out of the raw fields
type strategy func(posted, datetime string, now time.Time) *time.Time

var (
	relativeCountPattern = regexp.MustCompile(`(\d+)\s*\+?\s*(minute|min|hour|hr|day|week|month)s?\b`)
	relativeOnePattern   = regexp.MustCompile(`\b(?:a|an|one)\s+(minute|hour|day|week|month)\b`)
	immediatePattern     = regexp.MustCompile(`\b(?:just|today|now)\b`)
	yesterdayPattern     = regexp.MustCompile(`\byesterday\b`)
)

// absoluteLayouts are tried in order for absolute timestamps
var absoluteLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
	"2006-01-02",
	"02 Jan 2006",
	"2 Jan 2006",
	"Jan 2, 2006",
	"January 2, 2006",
	"2 January 2006",
}

func fromDatetime(_, datetime string, now time.Time) *time.Time {
	return parseAbsolute(datetime, now.Location())
}

func fromPostedAbsolute(posted, _ string, now time.Time) *time.Time {
	return parseAbsolute(posted, now.Location())
}

func fromPostedRelative(posted, _ string, now time.Time) *time.Time {
	return ParseRelative(posted, now)
}

// strategies lists, per source family, the order in which posting-time fields are tried.
// Scraped boards publish relative text; CSV exports and detail pages usually carry dates.
var strategies = map[types.SourceKind][]strategy{
	types.SourceCSV:       {fromDatetime, fromPostedAbsolute, fromPostedRelative},
	types.SourceIndeed:    {fromPostedRelative, fromPostedAbsolute},
	types.SourceLinkedIn:  {fromPostedRelative, fromDatetime},
	types.SourceWebSearch: {fromDatetime, fromPostedRelative, fromPostedAbsolute},
}

// ParsePostedAt returns the best-effort posting time for a record, or nil when no
// strategy for the source can read it.
func ParsePostedAt(kind types.SourceKind, posted, datetime string, now time.Time) *time.Time {
	chain, ok := strategies[kind]
	if !ok {
		chain = strategies[types.SourceWebSearch]
	}
	for _, try := range chain {
		if t := try(posted, datetime, now); t != nil {
			return t
		}
	}
	return nil
}

// ParseRelative reads texts such as "Posted 3 days ago", "30+ days ago", "an hour ago",
// "Just posted" and "yesterday". A month counts as 30 days. Unreadable text returns nil.
func ParseRelative(text string, now time.Time) *time.Time {
	lower := strings.ToLower(strings.TrimSpace(text))
	if lower == "" {
		return nil
	}

	if m := relativeCountPattern.FindStringSubmatch(lower); m != nil {
		n, err := strconv.Atoi(m[1])
		if err == nil {
			return ago(now, n, m[2])
		}
	}
	if m := relativeOnePattern.FindStringSubmatch(lower); m != nil {
		return ago(now, 1, m[1])
	}
	if yesterdayPattern.MatchString(lower) {
		t := now.Add(-24 * time.Hour)
		return &t
	}
	if immediatePattern.MatchString(lower) {
		t := now
		return &t
	}
	return nil
}

func ago(now time.Time, n int, unit string) *time.Time {
	var d time.Duration
	switch unit {
	case "minute", "min":
		d = time.Minute
	case "hour", "hr":
		d = time.Hour
	case "day":
		d = 24 * time.Hour
	case "week":
		d = 7 * 24 * time.Hour
	case "month":
		d = 30 * 24 * time.Hour
	default:
		return nil
	}
	t := now.Add(-time.Duration(n) * d)
	return &t
}

func parseAbsolute(text string, loc *time.Location) *time.Time {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}
	for _, layout := range absoluteLayouts {
		if t, err := time.ParseInLocation(layout, text, loc); err == nil {
			return &t
		}
	}
	return nil
}
