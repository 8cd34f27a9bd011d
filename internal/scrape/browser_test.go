package scrape

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonathan/job-match-pro/internal/fetch"
)

var indeedConfig = &Config{
	Type:             fetch.SiteIndeed,
	JobCardSelector:  ".job_seen_beacon",
	TitleSelector:    ".jobTitle",
	CompanySelector:  ".companyName",
	LocationSelector: ".companyLocation",
}

func indeedCard(title, company, location, href, jk string) string {
	return fmt.Sprintf(`<div class="job_seen_beacon">
		<a href=%q data-jk=%q>
			<span class="jobTitle">%s</span>
		</a>
		<span class="companyName">%s</span>
		<span class="companyLocation">%s</span>
	</div>`, href, jk, title, company, location)
}

func listingPage(cards ...string) string {
	return "<html><body>" + strings.Join(cards, "\n") + "</body></html>"
}

// fakeRenderer serves canned HTML per URL.
type fakeRenderer struct {
	pages   map[string]string
	err     error
	renders []string
}

func (r *fakeRenderer) Render(url, waitSelector string, timeout time.Duration) (string, error) {
	r.renders = append(r.renders, url)
	if r.err != nil {
		return "", r.err
	}
	if html, ok := r.pages[url]; ok {
		return html, nil
	}
	return "", fmt.Errorf("no page for %s", url)
}

// newTestScraper removes delays and fixes the RNG seed.
func newTestScraper(r Renderer) *BrowserScraper {
	s := NewBrowserScraper(r)
	s.sleep = func(time.Duration) {}
	s.rand = rand.New(rand.NewSource(1))
	return s
}

func TestParseJobCards_ExtractsFields(t *testing.T) {
	html := listingPage(
		indeedCard("Go Engineer", "Acme", "Berlin", "/viewjob?jk=abc", "abc"),
		indeedCard("Data Engineer", "Globex", "Remote", "https://www.indeed.com/viewjob?jk=def", "def"),
	)

	cards, err := parseJobCards(html, indeedConfig, "https://www.indeed.com/jobs?q=go")
	require.NoError(t, err)
	require.Len(t, cards, 2)

	assert.Equal(t, "Go Engineer", cards[0].Title)
	assert.Equal(t, "Acme", cards[0].Company)
	assert.Equal(t, "Berlin", cards[0].Location)
	assert.Equal(t, "https://www.indeed.com/viewjob?jk=abc", cards[0].URL, "relative href resolved")
	assert.Equal(t, "abc", cards[0].ExternalID)

	assert.Equal(t, "def", cards[1].ExternalID)
}

func TestParseJobCards_SkipsIncompleteCards(t *testing.T) {
	missingCompany := `<div class="job_seen_beacon">
		<a href="/viewjob?jk=broken" data-jk="broken"><span class="jobTitle">Broken</span></a>
		<span class="companyLocation">Nowhere</span>
	</div>`
	html := listingPage(
		indeedCard("Good Job", "Acme", "Berlin", "/viewjob?jk=ok", "ok"),
		missingCompany,
	)

	cards, err := parseJobCards(html, indeedConfig, "https://www.indeed.com/jobs")
	require.NoError(t, err)
	require.Len(t, cards, 1, "incomplete card skipped, page not aborted")
	assert.Equal(t, "ok", cards[0].ExternalID)
}

func TestParseJobCards_CapsAtMaxCards(t *testing.T) {
	var cardHTML []string
	for i := 0; i < MaxCardsPerSource+5; i++ {
		id := fmt.Sprintf("job%d", i)
		cardHTML = append(cardHTML, indeedCard("T "+id, "C", "L", "/viewjob?jk="+id, id))
	}

	cards, err := parseJobCards(listingPage(cardHTML...), indeedConfig, "https://www.indeed.com/jobs")
	require.NoError(t, err)
	assert.Len(t, cards, MaxCardsPerSource)
}

func TestParseJobCards_GenericFallsBackToURLAsExternalID(t *testing.T) {
	cfg := &Config{
		Type:             fetch.SiteGeneric,
		JobCardSelector:  ".card",
		TitleSelector:    ".title",
		CompanySelector:  ".company",
		LocationSelector: ".location",
	}
	html := `<html><body><div class="card">
		<a href="/jobs/42"><span class="title">Backend Dev</span></a>
		<span class="company">Initech</span>
		<span class="location">Austin</span>
	</div></body></html>`

	cards, err := parseJobCards(html, cfg, "https://jobs.example.com/list")
	require.NoError(t, err)
	require.Len(t, cards, 1)
	assert.Equal(t, "https://jobs.example.com/jobs/42", cards[0].ExternalID)
}

func TestBrowserScraper_ExtractFetchesDescriptions(t *testing.T) {
	listing := "https://www.indeed.com/jobs?q=go"
	detail := "https://www.indeed.com/viewjob?jk=abc"
	renderer := &fakeRenderer{pages: map[string]string{
		listing: listingPage(indeedCard("Go Engineer", "Acme", "Berlin", "/viewjob?jk=abc", "abc")),
		detail: `<html><body>
			<div class="jobsearch-jobDescriptionText">Build Go services at scale.</div>
		</body></html>`,
	}}
	scraper := newTestScraper(renderer)

	postings, err := scraper.Extract(context.Background(), listing, indeedConfig)
	require.NoError(t, err)
	require.Len(t, postings, 1)

	p := postings[0]
	assert.Equal(t, "Go Engineer", p.Title)
	assert.Equal(t, "Acme", p.Company)
	assert.Equal(t, "abc", p.ExternalID)
	assert.Equal(t, "Build Go services at scale.", p.Description)
	assert.Equal(t, []string{listing, detail}, renderer.renders)
}

func TestBrowserScraper_DescriptionTimeoutUsesPlaceholder(t *testing.T) {
	listing := "https://www.indeed.com/jobs?q=go"
	renderer := &fakeRenderer{pages: map[string]string{
		listing: listingPage(indeedCard("Go Engineer", "Acme", "Berlin", "/viewjob?jk=abc", "abc")),
		// detail page intentionally absent -> render error
	}}
	scraper := newTestScraper(renderer)

	postings, err := scraper.Extract(context.Background(), listing, indeedConfig)
	require.NoError(t, err, "a failed description never fails the card")
	require.Len(t, postings, 1)
	assert.Equal(t, descriptionPlaceholder, postings[0].Description)
}

func TestBrowserScraper_ListingRenderErrorPropagates(t *testing.T) {
	renderer := &fakeRenderer{err: errors.New("net::ERR_TIMED_OUT")}
	scraper := newTestScraper(renderer)

	_, err := scraper.Extract(context.Background(), "https://www.indeed.com/jobs", indeedConfig)
	assert.Error(t, err)
}
