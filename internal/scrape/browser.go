package scrape

import (
	"context"
	"fmt"
	"log"
	"math/rand"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/jonathan/job-match-pro/internal/db"
	"github.com/jonathan/job-match-pro/internal/fetch"
)

const (
	// MaxCardsPerSource bounds cost and detection risk per listing page.
	MaxCardsPerSource = 10

	// listingTimeout bounds the listing-page render including the wait for
	// job cards to appear.
	listingTimeout = 30 * time.Second

	// descriptionTimeout bounds each detail-page render. A timeout degrades
	// to a placeholder description, it never fails the card.
	descriptionTimeout = 10 * time.Second

	// descriptionPlaceholder stands in when the detail page cannot be read.
	descriptionPlaceholder = "Description not available"
)

// Renderer renders a URL to HTML, optionally waiting for a selector. The
// production implementation is fetch.Browser.
type Renderer interface {
	Render(url string, waitSelector string, timeout time.Duration) (string, error)
}

// BrowserScraper is the primary extractor. It renders a listing page in a
// headless browser, enumerates job cards via the source's selectors, and
// opens each posting's detail page for the full description.
type BrowserScraper struct {
	renderer Renderer

	// sleep is swappable for tests; defaults to time.Sleep.
	sleep func(time.Duration)
	rand  *rand.Rand
}

// NewBrowserScraper creates a browser-backed extractor on top of a renderer.
func NewBrowserScraper(renderer Renderer) *BrowserScraper {
	return &BrowserScraper{
		renderer: renderer,
		sleep:    time.Sleep,
		rand:     rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// Extract scrapes one listing page. Per-card field extraction tolerates
// missing elements: a card missing any required field is skipped, never
// aborts the page.
func (s *BrowserScraper) Extract(ctx context.Context, listingURL string, cfg *Config) ([]db.JobPosting, error) {
	html, err := s.renderer.Render(listingURL, cfg.JobCardSelector, listingTimeout)
	if err != nil {
		return nil, fmt.Errorf("failed to render listing page: %w", err)
	}

	cards, err := parseJobCards(html, cfg, listingURL)
	if err != nil {
		return nil, err
	}

	postings := make([]db.JobPosting, 0, len(cards))
	for _, card := range cards {
		if err := ctx.Err(); err != nil {
			return postings, err
		}

		// Small randomized delay between page loads to reduce load and
		// detectability.
		s.randomDelay(time.Second, 3*time.Second)

		description := s.fetchDescription(card.URL, cfg.Type)

		postings = append(postings, db.JobPosting{
			Title:       card.Title,
			Company:     card.Company,
			Location:    card.Location,
			Description: description,
			URL:         card.URL,
			ExternalID:  card.ExternalID,
			PostedAt:    time.Now(),
		})
	}

	return postings, nil
}

// fetchDescription renders a posting's detail page and extracts the full
// description text. Failures and timeouts degrade to a placeholder.
func (s *BrowserScraper) fetchDescription(postingURL string, site fetch.Site) string {
	html, err := s.renderer.Render(postingURL, "", descriptionTimeout)
	if err != nil {
		log.Printf("[scraper] Description fetch failed for %s: %v", postingURL, err)
		return descriptionPlaceholder
	}

	text, err := fetch.ExtractMainText(html, fetch.SiteDescriptionSelectors(site))
	if err != nil || strings.TrimSpace(text) == "" {
		return descriptionPlaceholder
	}
	return text
}

func (s *BrowserScraper) randomDelay(minDelay, maxDelay time.Duration) {
	spread := maxDelay - minDelay
	s.sleep(minDelay + time.Duration(s.rand.Int63n(int64(spread))))
}

// jobCard holds the fields read off a single listing card.
type jobCard struct {
	Title      string
	Company    string
	Location   string
	URL        string
	ExternalID string
}

// parseJobCards enumerates up to MaxCardsPerSource job cards from rendered
// listing HTML. Cards missing a required field (title, company, location,
// URL) are dropped individually.
func parseJobCards(html string, cfg *Config, baseURL string) ([]jobCard, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, fmt.Errorf("failed to parse listing HTML: %w", err)
	}

	base, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse listing URL %q: %w", baseURL, err)
	}

	idAttr := fetch.SiteExternalIDAttr(cfg.Type)

	var cards []jobCard
	doc.Find(cfg.JobCardSelector).EachWithBreak(func(i int, sel *goquery.Selection) bool {
		if len(cards) >= MaxCardsPerSource {
			return false
		}

		card, ok := extractCard(sel, cfg, base, idAttr)
		if !ok {
			log.Printf("[scraper] Skipping card %d on %s: missing required fields", i, baseURL)
			return true
		}
		cards = append(cards, card)
		return true
	})

	return cards, nil
}

// extractCard reads one card's fields. Returns ok=false when any required
// field is absent.
func extractCard(sel *goquery.Selection, cfg *Config, base *url.URL, idAttr string) (jobCard, bool) {
	title := strings.TrimSpace(sel.Find(cfg.TitleSelector).First().Text())
	company := strings.TrimSpace(sel.Find(cfg.CompanySelector).First().Text())
	location := strings.TrimSpace(sel.Find(cfg.LocationSelector).First().Text())

	link := sel.Find("a[href]").First()
	href, _ := link.Attr("href")
	href = strings.TrimSpace(href)

	if title == "" || company == "" || location == "" || href == "" {
		return jobCard{}, false
	}

	postingURL := resolveURL(base, href)

	externalID := ""
	if idAttr != "" {
		externalID, _ = link.Attr(idAttr)
		externalID = strings.TrimSpace(externalID)
	}
	// Boards without a stable ID attribute dedup on the posting URL.
	if externalID == "" {
		externalID = postingURL
	}

	return jobCard{
		Title:      title,
		Company:    company,
		Location:   location,
		URL:        postingURL,
		ExternalID: externalID,
	}, true
}

// resolveURL resolves a possibly-relative href against the listing URL.
func resolveURL(base *url.URL, href string) string {
	ref, err := url.Parse(href)
	if err != nil {
		return href
	}
	return base.ResolveReference(ref).String()
}
