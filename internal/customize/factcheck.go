package customize

import (
	"regexp"
	"sort"
	"strings"
)

var yearPattern = regexp.MustCompile(`\b(?:19|20)\d{2}\b`)

// FactCheck returns vocabulary terms and four-digit years that appear in output but not
// in source. Matching is case-insensitive on word boundaries.
func FactCheck(source, output string, vocabulary []string) []string {
	src := strings.ToLower(source)
	out := strings.ToLower(output)

	seen := make(map[string]bool)
	var unsupported []string
	for _, term := range vocabulary {
		term = strings.ToLower(strings.TrimSpace(term))
		if term == "" || seen[term] {
			continue
		}
		seen[term] = true
		if containsTerm(out, term) && !containsTerm(src, term) {
			unsupported = append(unsupported, term)
		}
	}

	sourceYears := make(map[string]bool)
	for _, y := range yearPattern.FindAllString(src, -1) {
		sourceYears[y] = true
	}
	var years []string
	for _, y := range yearPattern.FindAllString(out, -1) {
		if !sourceYears[y] && !seen[y] {
			seen[y] = true
			years = append(years, y)
		}
	}
	sort.Strings(years)

	return append(unsupported, years...)
}

// containsTerm reports whether term occurs in text with non-alphanumeric neighbours
func containsTerm(text, term string) bool {
	for from := 0; ; {
		idx := strings.Index(text[from:], term)
		if idx < 0 {
			return false
		}
		start := from + idx
		end := start + len(term)
		if boundary(text, start-1) && boundary(text, end) {
			return true
		}
		from = start + 1
	}
}

func boundary(text string, i int) bool {
	if i < 0 || i >= len(text) {
		return true
	}
	b := text[i]
	return !(b >= 'a' && b <= 'z' || b >= '0' && b <= '9')
}
