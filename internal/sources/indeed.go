package sources

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/jonathan/job-digest/internal/config"
	"github.com/jonathan/job-digest/internal/fetch"
	"github.com/jonathan/job-digest/internal/types"
	"github.com/sirupsen/logrus"
)

// DefaultIndeedBaseURL is the Indeed site searched for postings.
const DefaultIndeedBaseURL = "https://in.indeed.com"

// IndeedAdapter scrapes the Indeed search results page sorted by date.
type IndeedAdapter struct {
	BaseURL           string
	Keywords          string
	Location          string
	FetchDescriptions bool
	Fetcher           *fetch.Fetcher
	Log               logrus.FieldLogger
}

func newIndeedFromConfig(_ context.Context, cfg *config.Config, deps Deps) (Adapter, error) {
	return &IndeedAdapter{
		BaseURL:           DefaultIndeedBaseURL,
		Keywords:          cfg.SearchKeywords,
		Location:          cfg.Location,
		FetchDescriptions: cfg.FetchDescriptions,
		Fetcher:           deps.Fetcher,
		Log:               deps.Log,
	}, nil
}

// Kind implements Adapter
func (a *IndeedAdapter) Kind() types.SourceKind {
	return types.SourceIndeed
}

// SearchURL returns the results page URL for the configured query
func (a *IndeedAdapter) SearchURL() string {
	return fmt.Sprintf("%s/jobs?q=%s&l=%s&sort=date",
		strings.TrimRight(a.BaseURL, "/"), url.QueryEscape(a.Keywords), url.QueryEscape(a.Location))
}

// Fetch implements Adapter
func (a *IndeedAdapter) Fetch(ctx context.Context) ([]types.RawRecord, error) {
	searchURL := a.SearchURL()
	html, err := a.Fetcher.HTML(ctx, searchURL)
	if err != nil {
		return nil, &AdapterError{Source: types.SourceIndeed, Message: "search page fetch failed", Cause: err}
	}

	records, err := parseIndeedCards(html, searchURL)
	if err != nil {
		return nil, &AdapterError{Source: types.SourceIndeed, Message: "search page parse failed", Cause: err}
	}

	if a.FetchDescriptions {
		fillDescriptions(ctx, a.Fetcher, records, logOrDefault(a.Log).WithField("source", types.SourceIndeed))
	}
	return records, nil
}

// parseIndeedCards extracts one record per complete job card. Cards missing any of
// title, company, location, date or link are skipped.
func parseIndeedCards(html, pageURL string) ([]types.RawRecord, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, err
	}

	var records []types.RawRecord
	doc.Find("div.job_seen_beacon").Each(func(_ int, card *goquery.Selection) {
		title := fetch.FirstText(card, "h2.jobTitle span")
		company := fetch.FirstText(card, "span.companyName", "[data-testid='company-name']")
		location := fetch.FirstText(card, "div.companyLocation", "[data-testid='text-location']")
		posted := fetch.FirstText(card, "span.date")
		href, _ := card.Find("a").First().Attr("href")

		if title == "" || company == "" || location == "" || posted == "" || strings.TrimSpace(href) == "" {
			return
		}

		rec := types.NewRawRecord(types.Source(types.SourceIndeed))
		rec.Set(types.FieldTitle, title)
		rec.Set(types.FieldCompany, company)
		rec.Set(types.FieldLocation, location)
		rec.Set(types.FieldPosted, posted)
		rec.Set(types.FieldURL, resolveURL(pageURL, href))
		records = append(records, rec)
	})
	return records, nil
}

// fillDescriptions fetches each record's detail page. A failed detail fetch leaves
// the description empty; the record itself is kept.
func fillDescriptions(ctx context.Context, f *fetch.Fetcher, records []types.RawRecord, log logrus.FieldLogger) {
	for i := range records {
		if ctx.Err() != nil {
			return
		}
		link := records[i].Get(types.FieldURL)
		html, err := f.HTML(ctx, link)
		if err != nil {
			log.WithField("url", link).WithError(err).Warn("description fetch failed")
			continue
		}
		text, err := fetch.ExtractMainText(html, fetch.JobPostingSelectors())
		if err != nil {
			log.WithField("url", link).WithError(err).Warn("description parse failed")
			continue
		}
		records[i].Set(types.FieldDescription, text)
	}
}

// resolveURL makes href absolute relative to base.
func resolveURL(base, href string) string {
	href = strings.TrimSpace(href)
	ref, err := url.Parse(href)
	if err != nil {
		return href
	}
	baseURL, err := url.Parse(base)
	if err != nil {
		return href
	}
	return baseURL.ResolveReference(ref).String()
}

func logOrDefault(log logrus.FieldLogger) logrus.FieldLogger {
	if log == nil {
		return logrus.StandardLogger()
	}
	return log
}
