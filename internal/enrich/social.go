package enrich

import (
	"regexp"
	"strings"
)

// socialPatterns holds one URL-shape pattern per platform. Each is applied to the
// whole document independently.
var socialPatterns = map[Platform]*regexp.Regexp{
	PlatformInstagram: regexp.MustCompile(`(?i)https?://(?:www\.)?instagram\.com/[A-Za-z0-9_.]+/?`),
	PlatformFacebook:  regexp.MustCompile(`(?i)https?://(?:www\.)?facebook\.com/[A-Za-z0-9_.\-]+/?`),
	PlatformX:         regexp.MustCompile(`(?i)https?://(?:www\.)?(?:twitter|x)\.com/[A-Za-z0-9_]+/?`),
	PlatformYouTube: regexp.MustCompile(
		`(?i)https?://(?:www\.)?youtube\.com/(?:channel/|c/|user/|@)?[A-Za-z0-9_.\-]+/?`,
	),
	PlatformTikTok: regexp.MustCompile(`(?i)https?://(?:www\.)?tiktok\.com/@?[A-Za-z0-9_.\-]+/?`),
	PlatformLinkedIn: regexp.MustCompile(
		`(?i)https?://(?:www\.)?linkedin\.com/(?:company/|in/)?[A-Za-z0-9_.\-%]+/?`,
	),
}

// nonProfilePaths are first path segments that platforms use for embeds,
// share buttons and tracking pixels rather than for accounts.
var nonProfilePaths = map[string]struct{}{
	"embed":        {},
	"watch":        {},
	"tr":           {},
	"sharer":       {},
	"sharer.php":   {},
	"share":        {},
	"share.php":    {},
	"sharing":      {},
	"sharearticle": {},
	"intent":       {},
	"plugins":      {},
	"dialog":       {},
	"i":            {},
	"hashtag":      {},
}

// ExtractSocialLinks returns the first profile URL found for each platform.
// Platforms with no match are absent from the map; later links for an
// already-matched platform are ignored. Embed, share and pixel URLs are skipped.
func ExtractSocialLinks(html string) map[Platform]string {
	links := make(map[Platform]string, len(socialPatterns))
	for _, platform := range Platforms {
		for _, match := range socialPatterns[platform].FindAllString(html, -1) {
			if isProfileURL(match) {
				links[platform] = match
				break
			}
		}
	}
	return links
}

func isProfileURL(match string) bool {
	_, rest, _ := strings.Cut(match, "://")
	_, path, _ := strings.Cut(rest, "/")
	segment, _, _ := strings.Cut(path, "/")
	if segment == "" {
		return false
	}
	_, reserved := nonProfilePaths[strings.ToLower(segment)]
	return !reserved
}
