// Package enrich derives a contact email and social profile links for a business
// from the raw HTML of its website.
package enrich

import (
	"context"
)

// Platform identifies one of the social networks the extractor recognizes.
type Platform string

// Supported platforms. The set is closed; SocialLinks never carries other keys.
const (
	PlatformInstagram Platform = "instagram"
	PlatformFacebook  Platform = "facebook"
	PlatformX         Platform = "x"
	PlatformYouTube   Platform = "youtube"
	PlatformTikTok    Platform = "tiktok"
	PlatformLinkedIn  Platform = "linkedin"
)

// Platforms lists every supported platform in a stable order.
var Platforms = []Platform{
	PlatformInstagram,
	PlatformFacebook,
	PlatformX,
	PlatformYouTube,
	PlatformTikTok,
	PlatformLinkedIn,
}

// Result is the outcome of one enrichment. Email is nil when no address was found.
type Result struct {
	Email       *string             `json:"email"`
	SocialLinks map[Platform]string `json:"socialLinks"`
}

// Empty returns the result reported for every failure mode.
func Empty() Result {
	return Result{SocialLinks: map[Platform]string{}}
}

// Success reports whether the result carries an email or at least one social link.
// Only successful results are eligible for a credit charge.
func (r Result) Success() bool {
	return r.Email != nil || len(r.SocialLinks) > 0
}

// EmailValue returns the email or an empty string.
func (r Result) EmailValue() string {
	if r.Email == nil {
		return ""
	}
	return *r.Email
}

// Page is the body of a successfully fetched website.
type Page struct {
	URL        string
	StatusCode int
	Body       []byte
}

// Fetcher retrieves a page under the enrichment resource bounds. Implementations
// return one of the failure types declared in errors.go on failure.
type Fetcher interface {
	Fetch(ctx context.Context, url string) (Page, error)
}
