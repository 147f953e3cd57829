package utils

import (
	"net/url"
	"regexp"
	"sort"
	"strings"

	"golang.org/x/net/idna"
)

// Matches explicit schemes and the scheme-less invite/shortener hosts that
// scam posts use to dodge link previews.
var linkRegex = regexp.MustCompile(`(?i)(https?://[^\s<>]+|\b(?:discord\.gg|discord\.com/invite|bit\.ly|t\.me)/[^\s<>]+)`)

var trackingParams = []string{"utm_source", "utm_medium", "utm_campaign", "utm_term", "utm_content", "fbclid", "gclid"}

func ExtractURLs(content string) []string {
	return linkRegex.FindAllString(content, -1)
}

func HasURL(content string) bool {
	return linkRegex.MatchString(content)
}

// NormalizeURL lower-cases and punycodes the host, strips credentials,
// fragments and tracking parameters, and sorts the query. It returns the
// normalized link and its host.
func NormalizeURL(raw string) (string, string, error) {
	raw = strings.TrimRight(raw, ".,)>")
	lower := strings.ToLower(raw)
	if !strings.HasPrefix(lower, "http://") && !strings.HasPrefix(lower, "https://") {
		raw = "https://" + raw
	}

	parsed, err := url.Parse(raw)
	if err != nil {
		return "", "", err
	}

	host := strings.ToLower(parsed.Hostname())
	if ascii, err := idna.ToASCII(host); err == nil {
		host = ascii
	}
	if port := parsed.Port(); port != "" {
		parsed.Host = host + ":" + port
	} else {
		parsed.Host = host
	}
	parsed.Scheme = strings.ToLower(parsed.Scheme)
	parsed.Fragment = ""
	parsed.User = nil

	query := parsed.Query()
	for _, key := range trackingParams {
		query.Del(key)
	}
	parsed.RawQuery = sortedQuery(query)

	return parsed.String(), host, nil
}

func sortedQuery(values url.Values) string {
	if len(values) == 0 {
		return ""
	}
	keys := make([]string, 0, len(values))
	for key := range values {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, key := range keys {
		for _, v := range values[key] {
			parts = append(parts, url.QueryEscape(key)+"="+url.QueryEscape(v))
		}
	}
	return strings.Join(parts, "&")
}
