package scrape

import (
	"context"
	"strings"
	"time"

	"github.com/jonathan/job-match-pro/internal/db"
	"github.com/jonathan/job-match-pro/internal/fetch"
)

// PageFetcher is the fallback extractor: a plain HTTP GET plus generic
// boilerplate-stripping text extraction. It yields at most one coarse
// posting — description only, structured fields blank — when the browser
// path fails entirely. Best effort, single attempt, no deep retry.
type PageFetcher struct {
	options *fetch.Options
}

// NewPageFetcher creates a fallback extractor.
func NewPageFetcher(options *fetch.Options) *PageFetcher {
	if options == nil {
		options = fetch.DefaultOptions()
	}
	return &PageFetcher{options: options}
}

// Extract fetches the listing URL directly and returns a single degraded
// posting carrying whatever main text could be recovered.
func (f *PageFetcher) Extract(ctx context.Context, listingURL string, cfg *Config) ([]db.JobPosting, error) {
	result, err := fetch.URL(ctx, listingURL, f.options)
	if err != nil {
		return nil, err
	}

	site := fetch.DetectSite(listingURL)
	text, err := fetch.ExtractMainText(result.HTML, fetch.SiteDescriptionSelectors(site))
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(text) == "" {
		return nil, &fetch.Error{URL: listingURL, Message: "no content extracted"}
	}

	return []db.JobPosting{{
		Description: text,
		URL:         listingURL,
		ExternalID:  listingURL, // no per-posting ID in degraded mode
		PostedAt:    time.Now(),
	}}, nil
}
