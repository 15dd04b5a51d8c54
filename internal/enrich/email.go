package enrich

import (
	"regexp"
	"strings"
)

const emailPattern = `[A-Za-z0-9._%+\-]+@[A-Za-z0-9.\-]+\.[A-Za-z]{2,}`

var (
	mailtoRegex = regexp.MustCompile(`(?i)mailto:(` + emailPattern + `)`)
	emailRegex  = regexp.MustCompile(`(?i)` + emailPattern)
)

// blockedEmailDomains are placeholder and vendor domains that show up in embedded
// widgets, analytics snippets and templates. A candidate whose domain contains any
// of these is discarded. The list is a heuristic, not an exhaustive filter.
var blockedEmailDomains = []string{
	"example.com",
	"example.org",
	"domain.com",
	"email.com",
	"yourdomain.com",
	"sentry.io",
	"wixpress.com",
	"sentry-next.wixpress.com",
	"google-analytics.com",
	"googletagmanager.com",
	"googleapis.com",
	"gstatic.com",
	"cloudflare.com",
	"jsdelivr.net",
	"facebook.com",
	"instagram.com",
	"twitter.com",
	"schema.org",
	"w3.org",
}

// Asset filenames such as logo@2x.png match the email grammar.
var blockedEmailSuffixes = []string{
	".png",
	".jpg",
	".jpeg",
	".gif",
	".svg",
	".webp",
}

// ExtractEmail returns the first usable email address in html, or "".
//
// A mailto: target is authoritative and returned as soon as one is found.
// Otherwise every email-shaped substring is considered in document order,
// including text inside scripts and styles, and the first one that survives the
// domain blocklist wins.
func ExtractEmail(html string) string {
	if m := mailtoRegex.FindStringSubmatch(html); m != nil {
		return m[1]
	}
	for _, candidate := range emailRegex.FindAllString(html, -1) {
		if !isBlockedEmail(candidate) {
			return candidate
		}
	}
	return ""
}

func isBlockedEmail(email string) bool {
	at := strings.LastIndexByte(email, '@')
	if at < 0 {
		return true
	}
	domain := strings.ToLower(email[at+1:])
	for _, blocked := range blockedEmailDomains {
		if strings.Contains(domain, blocked) {
			return true
		}
	}
	for _, suffix := range blockedEmailSuffixes {
		if strings.HasSuffix(domain, suffix) {
			return true
		}
	}
	return false
}
