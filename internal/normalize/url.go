package normalize

import (
	"net/url"
	"sort"
	"strings"
)

// trackingParams are query parameters that never identify a posting
var trackingParams = map[string]bool{
	"gclid": true, "fbclid": true, "msclkid": true, "refid": true, "trackingid": true,
	"trk": true, "ref": true, "src": true, "source": true, "from": true, "position": true,
	"pagenum": true, "tk": true, "vjs": true, "xkcb": true, "sid": true,
}

// CanonicalURL returns the comparable form of a posting link, or "" when the link is
// not an absolute http(s) URL. Scheme and host are lower-cased, the fragment and
// tracking parameters are dropped, and the remaining parameters are sorted.
// LinkedIn links keep only currentJobId and Indeed view links keep only jk.
func CanonicalURL(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return ""
	}
	if strings.HasPrefix(raw, "//") {
		raw = "https:" + raw
	}
	u, err := url.Parse(raw)
	if err != nil {
		return ""
	}
	u.Scheme = strings.ToLower(u.Scheme)
	if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return ""
	}
	u.Host = strings.ToLower(u.Host)
	u.Fragment = ""
	u.RawFragment = ""
	u.User = nil
	if len(u.Path) > 1 {
		u.Path = strings.TrimRight(u.Path, "/")
		u.RawPath = ""
	}

	query := u.Query()
	keep := func(string) bool { return true }
	switch {
	case strings.HasSuffix(u.Host, "linkedin.com"):
		keep = func(k string) bool { return k == "currentJobId" }
	case strings.Contains(u.Host, "indeed.") && (strings.HasPrefix(u.Path, "/viewjob") || strings.HasPrefix(u.Path, "/rc/clk")):
		keep = func(k string) bool { return k == "jk" }
	}

	keys := make([]string, 0, len(query))
	for k := range query {
		lower := strings.ToLower(k)
		if strings.HasPrefix(lower, "utm_") || trackingParams[lower] || !keep(k) {
			continue
		}
		keys = append(keys, k)
	}
	sort.Strings(keys)

	cleaned := url.Values{}
	for _, k := range keys {
		cleaned[k] = query[k]
	}
	u.RawQuery = cleaned.Encode()
	return u.String()
}
