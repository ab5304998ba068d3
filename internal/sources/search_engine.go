package sources

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/jonathan/job-digest/internal/fetch"
	"google.golang.org/api/customsearch/v1"
	"google.golang.org/api/option"
)

// SearchHit is one web search result
type SearchHit struct {
	Title   string
	URL     string
	Snippet string
}

// SearchEngine runs a web search query
type SearchEngine interface {
	Name() string
	Search(ctx context.Context, query string, limit int) ([]SearchHit, error)
}

// DefaultDuckDuckGoURL is the HTML endpoint of DuckDuckGo, usable without an API key.
const DefaultDuckDuckGoURL = "https://html.duckduckgo.com/html/"

// DuckDuckGo scrapes the DuckDuckGo HTML results page.
type DuckDuckGo struct {
	Endpoint string
	Fetcher  *fetch.Fetcher
}

// Name implements SearchEngine
func (d *DuckDuckGo) Name() string {
	return "duckduckgo"
}

// Search implements SearchEngine
func (d *DuckDuckGo) Search(ctx context.Context, query string, limit int) ([]SearchHit, error) {
	endpoint := d.Endpoint
	if endpoint == "" {
		endpoint = DefaultDuckDuckGoURL
	}
	html, err := d.Fetcher.HTML(ctx, endpoint+"?q="+url.QueryEscape(query))
	if err != nil {
		return nil, err
	}
	return parseDuckDuckGo(html, limit)
}

func parseDuckDuckGo(html string, limit int) ([]SearchHit, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, fmt.Errorf("failed to parse search results: %w", err)
	}

	var hits []SearchHit
	doc.Find(".result").EachWithBreak(func(_ int, result *goquery.Selection) bool {
		link := result.Find(".result__title a").First()
		if link.Length() == 0 {
			return true
		}
		href, _ := link.Attr("href")
		target := unwrapDuckDuckGoLink(href)
		if target == "" {
			return true
		}
		hits = append(hits, SearchHit{
			Title:   fetch.CleanText(link.Text()),
			URL:     target,
			Snippet: fetch.FirstText(result, ".result__snippet"),
		})
		return limit <= 0 || len(hits) < limit
	})
	return hits, nil
}

// unwrapDuckDuckGoLink resolves DuckDuckGo's "/l/?uddg=<target>" redirect links.
func unwrapDuckDuckGoLink(href string) string {
	href = strings.TrimSpace(href)
	if href == "" {
		return ""
	}
	if strings.HasPrefix(href, "//") {
		href = "https:" + href
	}
	u, err := url.Parse(href)
	if err != nil {
		return ""
	}
	if target := u.Query().Get("uddg"); target != "" && strings.HasSuffix(u.Host, "duckduckgo.com") {
		return target
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return ""
	}
	return href
}

// googlePageSize is the maximum number of results the Custom Search API returns per call.
const googlePageSize = 10

// GoogleSearch uses the Google Programmable Search (Custom Search JSON) API.
type GoogleSearch struct {
	svc *customsearch.Service
	cx  string
}

// NewGoogleSearch creates a search engine for the given API key and engine ID.
func NewGoogleSearch(ctx context.Context, apiKey, cx string, opts ...option.ClientOption) (*GoogleSearch, error) {
	opts = append([]option.ClientOption{option.WithAPIKey(apiKey)}, opts...)
	svc, err := customsearch.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create customsearch service: %w", err)
	}
	return &GoogleSearch{svc: svc, cx: cx}, nil
}

// Name implements SearchEngine
func (g *GoogleSearch) Name() string {
	return "google"
}

// Search implements SearchEngine
func (g *GoogleSearch) Search(ctx context.Context, query string, limit int) ([]SearchHit, error) {
	if limit <= 0 {
		limit = googlePageSize
	}

	var hits []SearchHit
	for start := 1; len(hits) < limit; start += googlePageSize {
		num := min(googlePageSize, limit-len(hits))
		resp, err := g.svc.Cse.List().Cx(g.cx).Q(query).Num(int64(num)).Start(int64(start)).Context(ctx).Do()
		if err != nil {
			if len(hits) > 0 {
				// Keep the pages already retrieved
				return hits, nil
			}
			return nil, fmt.Errorf("search failed: %w", err)
		}
		for _, item := range resp.Items {
			hits = append(hits, SearchHit{
				Title:   fetch.CleanText(item.Title),
				URL:     item.Link,
				Snippet: fetch.CleanText(item.Snippet),
			})
		}
		if len(resp.Items) < num {
			break
		}
	}
	return hits, nil
}
