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

// DefaultLinkedInBaseURL is the LinkedIn host queried for guest job listings.
const DefaultLinkedInBaseURL = "https://www.linkedin.com"

// LinkedInAdapter queries the LinkedIn guest job search endpoint with a session cookie.
type LinkedInAdapter struct {
	BaseURL           string
	Keywords          string
	Location          string
	TimeRangeHours    int
	Cookie            string
	FetchDescriptions bool
	Fetcher           *fetch.Fetcher
	Log               logrus.FieldLogger
}

func newLinkedInFromConfig(_ context.Context, cfg *config.Config, deps Deps) (Adapter, error) {
	if strings.TrimSpace(cfg.LinkedInCookie) == "" {
		return nil, &AdapterError{
			Source:  types.SourceLinkedIn,
			Message: "LINKEDIN_SESSION_COOKIE not provided",
			Cause:   ErrNotConfigured,
		}
	}
	return &LinkedInAdapter{
		BaseURL:           DefaultLinkedInBaseURL,
		Keywords:          cfg.SearchKeywords,
		Location:          cfg.Location,
		TimeRangeHours:    cfg.TimeRangeHours,
		Cookie:            cfg.LinkedInCookie,
		FetchDescriptions: cfg.FetchDescriptions,
		Fetcher:           deps.Fetcher,
		Log:               deps.Log,
	}, nil
}

// Kind implements Adapter
func (a *LinkedInAdapter) Kind() types.SourceKind {
	return types.SourceLinkedIn
}

// SearchURL returns the guest search endpoint for the configured query.
// f_TPR takes the window in seconds.
func (a *LinkedInAdapter) SearchURL() string {
	q := url.Values{}
	q.Set("keywords", a.Keywords)
	q.Set("location", a.Location)
	q.Set("f_TPR", fmt.Sprintf("r%d", a.TimeRangeHours*3600))
	q.Set("sortBy", "DD")
	return strings.TrimRight(a.BaseURL, "/") + "/jobs-guest/jobs/api/seeMoreJobPostings/search?" + q.Encode()
}

// Fetch implements Adapter
func (a *LinkedInAdapter) Fetch(ctx context.Context) ([]types.RawRecord, error) {
	f := a.Fetcher.WithHeaders(map[string]string{"Cookie": "li_at=" + a.Cookie})

	searchURL := a.SearchURL()
	html, err := f.HTML(ctx, searchURL)
	if err != nil {
		return nil, &AdapterError{Source: types.SourceLinkedIn, Message: "search request failed", Cause: err}
	}

	records, err := parseLinkedInCards(html, searchURL)
	if err != nil {
		return nil, &AdapterError{Source: types.SourceLinkedIn, Message: "search response parse failed", Cause: err}
	}

	if a.FetchDescriptions {
		fillDescriptions(ctx, f, records, logOrDefault(a.Log).WithField("source", types.SourceLinkedIn))
	}
	return records, nil
}

func parseLinkedInCards(html, pageURL string) ([]types.RawRecord, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, err
	}

	var records []types.RawRecord
	doc.Find("li").Each(func(_ int, card *goquery.Selection) {
		title := fetch.FirstText(card, "h3")
		company := fetch.FirstText(card, "h4")
		location := fetch.FirstText(card, ".job-search-card__location")
		timeEl := card.Find("time").First()
		posted := fetch.CleanText(timeEl.Text())
		href, _ := card.Find("a").First().Attr("href")

		if title == "" || company == "" || location == "" || timeEl.Length() == 0 || strings.TrimSpace(href) == "" {
			return
		}

		rec := types.NewRawRecord(types.Source(types.SourceLinkedIn))
		rec.Set(types.FieldTitle, title)
		rec.Set(types.FieldCompany, company)
		rec.Set(types.FieldLocation, location)
		rec.Set(types.FieldPosted, posted)
		if datetime, ok := timeEl.Attr("datetime"); ok {
			rec.Set(types.FieldPostedDateTime, strings.TrimSpace(datetime))
		}
		rec.Set(types.FieldURL, resolveURL(pageURL, href))
		records = append(records, rec)
	})
	return records, nil
}
