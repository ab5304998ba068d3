package sources

import (
	"context"
	"errors"
	"strings"
	"unicode/utf8"

	"github.com/PuerkitoBio/goquery"
	"github.com/jonathan/job-digest/internal/config"
	"github.com/jonathan/job-digest/internal/fetch"
	"github.com/jonathan/job-digest/internal/types"
	"github.com/sirupsen/logrus"
)

// UnknownCompany is used when a detail page names no employer
const UnknownCompany = "Unknown Company"

// maxFallbackDescription bounds descriptions taken from the whole page body
const maxFallbackDescription = 2000

// jobIndicators mark a search hit as a job posting rather than an article or profile
var jobIndicators = []string{
	"job", "career", "hiring", "vacancy", "position", "opening",
	"recruitment", "apply", "opportunity", "employment",
}

var (
	titleSelectors = []string{
		"h1.job-title", `h1[data-testid="job-title"]`, ".job-header h1",
		"h1.jobTitle", ".jobtitle h1", "h1.title", ".job-title", "h1", "title",
	}
	companySelectors = []string{
		".company-name", ".companyName", `[data-testid="company-name"]`,
		".employer", ".company", ".hiring-company", ".job-company",
		"span.company", "div.company",
	}
	locationSelectors = []string{
		".location", ".job-location", `[data-testid="location"]`,
		".companyLocation", ".work-location", ".job-loc",
	}
	postedSelectors = []string{
		".posted-date", ".job-posted", `[data-testid="posted-date"]`,
		".date-posted", "time", ".posting-date", ".job-date",
	}
)

// WebSearchAdapter discovers postings by searching the web for portal-specific queries
// and scraping each job-related hit.
type WebSearchAdapter struct {
	Queries           []string
	MaxResults        int
	Location          string
	FetchDescriptions bool
	Engine            SearchEngine
	Fetcher           *fetch.Fetcher
	Log               logrus.FieldLogger
}

func newWebSearchFromConfig(ctx context.Context, cfg *config.Config, deps Deps) (Adapter, error) {
	engine := deps.Engine
	if engine == nil {
		if cfg.GoogleSearchAPIKey != "" && cfg.GoogleSearchCX != "" {
			google, err := NewGoogleSearch(ctx, cfg.GoogleSearchAPIKey, cfg.GoogleSearchCX)
			if err != nil {
				return nil, &AdapterError{Source: types.SourceWebSearch, Message: "search engine setup failed", Cause: err}
			}
			engine = google
		} else {
			engine = &DuckDuckGo{Fetcher: deps.Fetcher}
		}
	}
	return &WebSearchAdapter{
		Queries:           cfg.WebSearchQueries(),
		MaxResults:        cfg.MaxSearchResults,
		Location:          cfg.Location,
		FetchDescriptions: cfg.FetchDescriptions,
		Engine:            engine,
		Fetcher:           deps.Fetcher,
		Log:               deps.Log,
	}, nil
}

// Kind implements Adapter
func (a *WebSearchAdapter) Kind() types.SourceKind {
	return types.SourceWebSearch
}

// Fetch implements Adapter. A failing query is logged and skipped; the adapter
// fails only when every query fails.
func (a *WebSearchAdapter) Fetch(ctx context.Context) ([]types.RawRecord, error) {
	log := logOrDefault(a.Log).WithFields(logrus.Fields{"source": types.SourceWebSearch, "engine": a.Engine.Name()})

	seen := make(map[string]bool)
	var records []types.RawRecord
	var failures []error

	for _, query := range a.Queries {
		if err := ctx.Err(); err != nil {
			return records, nil
		}
		hits, err := a.Engine.Search(ctx, query, a.MaxResults)
		if err != nil {
			log.WithField("query", query).WithError(err).Warn("search query failed")
			failures = append(failures, err)
			continue
		}
		log.WithFields(logrus.Fields{"query": query, "hits": len(hits)}).Debug("search query done")

		for _, hit := range hits {
			if hit.URL == "" || seen[hit.URL] || !IsJobRelated(hit.Title, hit.Snippet) {
				continue
			}
			rec, err := a.recordFromHit(ctx, hit, query)
			if err != nil {
				log.WithField("url", hit.URL).WithError(err).Warn("could not scrape search hit")
				continue
			}
			seen[hit.URL] = true
			records = append(records, rec)
		}
	}

	if len(a.Queries) > 0 && len(failures) == len(a.Queries) {
		return nil, &AdapterError{Source: types.SourceWebSearch, Message: "all search queries failed", Cause: errors.Join(failures...)}
	}
	return records, nil
}

func (a *WebSearchAdapter) recordFromHit(ctx context.Context, hit SearchHit, query string) (types.RawRecord, error) {
	portal := fetch.DetectPortal(hit.URL)
	rec := types.NewRawRecord(types.WebSearchSource(portal.Key))
	rec.Set(types.FieldURL, hit.URL)
	rec.Set(types.FieldSearchQuery, query)
	rec.Set(types.FieldSnippet, hit.Snippet)

	if !a.FetchDescriptions {
		rec.Set(types.FieldTitle, hit.Title)
		rec.Set(types.FieldCompany, UnknownCompany)
		rec.Set(types.FieldLocation, a.Location)
		rec.Set(types.FieldDescription, hit.Snippet)
		return rec, nil
	}

	html, err := a.Fetcher.HTML(ctx, hit.URL)
	if err != nil {
		return rec, err
	}
	details, err := ScrapeDetails(html, hit.Title, a.Location)
	if err != nil {
		return rec, err
	}
	for k, v := range details {
		rec.Set(k, v)
	}
	return rec, nil
}

// IsJobRelated reports whether a search hit looks like a job posting
func IsJobRelated(title, snippet string) bool {
	text := strings.ToLower(title + " " + snippet)
	for _, indicator := range jobIndicators {
		if strings.Contains(text, indicator) {
			return true
		}
	}
	return false
}

// ScrapeDetails extracts posting fields from a detail page using selector cascades.
// Missing fields fall back to the search hit title, UnknownCompany and the configured location.
func ScrapeDetails(html, fallbackTitle, fallbackLocation string) (map[string]string, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, err
	}
	root := doc.Selection

	fields := map[string]string{
		types.FieldTitle:    orDefault(fetch.FirstText(root, titleSelectors...), fallbackTitle),
		types.FieldCompany:  orDefault(fetch.FirstText(root, companySelectors...), UnknownCompany),
		types.FieldLocation: orDefault(fetch.FirstText(root, locationSelectors...), fallbackLocation),
		types.FieldPosted:   fetch.FirstText(root, postedSelectors...),
	}
	if datetime, ok := root.Find("time[datetime]").First().Attr("datetime"); ok {
		fields[types.FieldPostedDateTime] = strings.TrimSpace(datetime)
	}

	description := ""
	for _, selector := range fetch.JobPostingSelectors() {
		if sel := root.Find(selector).First(); sel.Length() > 0 {
			description = fetch.CleanText(sel.Text())
			break
		}
	}
	if description == "" {
		description = truncateRunes(fetch.MainText(doc, []string{"main"}), maxFallbackDescription)
	}
	fields[types.FieldDescription] = description
	return fields, nil
}

func orDefault(value, fallback string) string {
	if value == "" {
		return fallback
	}
	return value
}

func truncateRunes(s string, limit int) string {
	if utf8.RuneCountInString(s) <= limit {
		return s
	}
	runes := []rune(s)
	return string(runes[:limit])
}
