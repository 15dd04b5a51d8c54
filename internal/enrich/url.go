package enrich

import "strings"

// NormalizeURL trims the raw website and prepends https:// when it has no http(s)
// scheme. It reports false for empty input. No further validation is done;
// malformed URLs fail at fetch time.
func NormalizeURL(raw string) (string, bool) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return "", false
	}
	lower := strings.ToLower(trimmed)
	if strings.HasPrefix(lower, "http://") || strings.HasPrefix(lower, "https://") {
		return trimmed, true
	}
	return "https://" + trimmed, true
}
