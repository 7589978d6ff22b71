package pipeline

import (
	"html"
	"net/url"
	"regexp"
	"sort"
	"strings"

	"github.com/IshaanNene/SecondPrice/internal/types"
)

// HTMLSanitizeMiddleware strips tags, decodes entities and collapses
// whitespace in the given string fields (all fields when none are given).
type HTMLSanitizeMiddleware struct {
	fields  []string
	stripRe *regexp.Regexp
}

func NewHTMLSanitizeMiddleware(fields ...string) *HTMLSanitizeMiddleware {
	return &HTMLSanitizeMiddleware{
		fields:  fields,
		stripRe: regexp.MustCompile(`<[^>]*>`),
	}
}

func (m *HTMLSanitizeMiddleware) Name() string { return "html_sanitize" }

func (m *HTMLSanitizeMiddleware) Process(raw *types.RawListing) (*types.RawListing, error) {
	fields := m.fields
	if len(fields) == 0 {
		fields = raw.Keys()
	}
	for _, key := range fields {
		if s := raw.GetString(key); s != "" {
			cleaned := m.stripRe.ReplaceAllString(s, "")
			cleaned = html.UnescapeString(cleaned)
			cleaned = strings.Join(strings.Fields(cleaned), " ")
			raw.Set(key, cleaned)
		}
	}
	return raw, nil
}

// CanonicalizeURL normalizes a URL for deduplication: lowercase scheme and
// host, no fragment, sorted query, no trailing slash.
func CanonicalizeURL(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return rawURL
	}

	u.Scheme = strings.ToLower(u.Scheme)
	u.Host = strings.ToLower(u.Host)
	u.Fragment = ""

	if u.RawQuery != "" {
		params := u.Query()
		keys := make([]string, 0, len(params))
		for k := range params {
			keys = append(keys, k)
		}
		sort.Strings(keys)

		var sorted []string
		for _, k := range keys {
			vals := params[k]
			sort.Strings(vals)
			for _, v := range vals {
				sorted = append(sorted, url.QueryEscape(k)+"="+url.QueryEscape(v))
			}
		}
		u.RawQuery = strings.Join(sorted, "&")
	}

	if u.Path != "/" && strings.HasSuffix(u.Path, "/") {
		u.Path = strings.TrimRight(u.Path, "/")
	}
	return u.String()
}
