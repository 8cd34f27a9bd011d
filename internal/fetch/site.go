// Package fetch - site.go provides job board family detection and
// family-specific selectors.
package fetch

import (
	"net/url"
	"strings"
)

// Site represents a known job board family.
type Site string

const (
	// SiteIndeed is the Indeed job board family
	SiteIndeed Site = "indeed"
	// SiteLinkedIn is the LinkedIn jobs family
	SiteLinkedIn Site = "linkedin"
	// SiteGeneric is any unrecognized listing site
	SiteGeneric Site = "generic"
)

// DetectSite identifies the job board family from a URL.
func DetectSite(urlStr string) Site {
	parsed, err := url.Parse(urlStr)
	if err != nil {
		return SiteGeneric
	}

	host := strings.ToLower(parsed.Host)

	if strings.Contains(host, "indeed.com") {
		return SiteIndeed
	}
	if strings.Contains(host, "linkedin.com") {
		return SiteLinkedIn
	}

	return SiteGeneric
}

// SiteDescriptionSelectors returns the detail-page description selectors for
// a job board family, most specific first.
func SiteDescriptionSelectors(site Site) []string {
	switch site {
	case SiteIndeed:
		return []string{
			".jobsearch-jobDescriptionText",
			"#jobDescriptionText",
			".jobsearch-JobComponent-description",
		}
	case SiteLinkedIn:
		return []string{
			".jobs-description",
			".jobs-description-content",
			".description__text",
		}
	default:
		return JobPostingSelectors()
	}
}

// SiteExternalIDAttr returns the anchor attribute carrying the board's own
// posting ID, or empty if the family has none (the URL is used instead).
func SiteExternalIDAttr(site Site) string {
	switch site {
	case SiteIndeed:
		return "data-jk"
	case SiteLinkedIn:
		return "data-id"
	default:
		return ""
	}
}
