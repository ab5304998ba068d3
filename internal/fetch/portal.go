package fetch

import (
	"net/url"
	"strings"
)

// Portal describes a job board recognized by host name.
type Portal struct {
	// Key is the lower-case identifier used in source tags, e.g. "naukri"
	Key string
	// Name is the display name, e.g. "Naukri"
	Name string
}

// portalHosts maps registrable host suffixes to portals. Order matters for the lookup
// only when one suffix contains another, which none currently do.
var portalHosts = []struct {
	suffix string
	portal Portal
}{
	{"naukri.com", Portal{Key: "naukri", Name: "Naukri"}},
	{"shine.com", Portal{Key: "shine", Name: "Shine"}},
	{"monster.com", Portal{Key: "monster", Name: "Monster"}},
	{"foundit.in", Portal{Key: "monster", Name: "Monster"}},
	{"glassdoor.com", Portal{Key: "glassdoor", Name: "Glassdoor"}},
	{"glassdoor.co.in", Portal{Key: "glassdoor", Name: "Glassdoor"}},
	{"freshersworld.com", Portal{Key: "freshersworld", Name: "FreshersWorld"}},
	{"timesjobs.com", Portal{Key: "timesjobs", Name: "TimesJobs"}},
	{"instahyre.com", Portal{Key: "instahyre", Name: "Instahyre"}},
	{"linkedin.com", Portal{Key: "linkedin", Name: "LinkedIn"}},
	{"indeed.com", Portal{Key: "indeed", Name: "Indeed"}},
}

// DetectPortal identifies the job board a URL belongs to. Unknown hosts map to a
// portal keyed by the host itself (without "www."), so the origin is never lost.
func DetectPortal(rawURL string) Portal {
	host := Host(rawURL)
	if host == "" {
		return Portal{Key: "unknown", Name: "Web"}
	}
	for _, entry := range portalHosts {
		if host == entry.suffix || strings.HasSuffix(host, "."+entry.suffix) {
			return entry.portal
		}
	}
	return Portal{Key: host, Name: "Web (" + host + ")"}
}

// Host returns the lower-case host of rawURL without a leading "www.", or "" when unparseable.
func Host(rawURL string) string {
	u, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil {
		return ""
	}
	host := strings.ToLower(u.Hostname())
	return strings.TrimPrefix(host, "www.")
}
