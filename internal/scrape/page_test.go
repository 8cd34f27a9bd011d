package scrape

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonathan/job-match-pro/internal/fetch"
)

func TestPageFetcher_ExtractReturnsCoarsePosting(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`<html><body>
			<nav>Home | Jobs</nav>
			<div class="job-description">Senior Go engineer, Berlin or remote.</div>
			<footer>Copyright</footer>
		</body></html>`))
	}))
	defer server.Close()

	fetcher := NewPageFetcher(nil)
	postings, err := fetcher.Extract(context.Background(), server.URL, nil)
	require.NoError(t, err)
	require.Len(t, postings, 1)

	p := postings[0]
	assert.Equal(t, "Senior Go engineer, Berlin or remote.", p.Description)
	assert.Equal(t, server.URL, p.URL)
	assert.Equal(t, server.URL, p.ExternalID)
	assert.Empty(t, p.Title, "degraded mode leaves structured fields blank")
	assert.Empty(t, p.Company)
}

func TestPageFetcher_ExtractEmptyContent(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`<html><body><script>boot();</script></body></html>`))
	}))
	defer server.Close()

	fetcher := NewPageFetcher(nil)
	_, err := fetcher.Extract(context.Background(), server.URL, nil)

	var fetchErr *fetch.Error
	require.ErrorAs(t, err, &fetchErr)
	assert.Contains(t, fetchErr.Message, "no content")
}

func TestPageFetcher_ExtractHTTPError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))
	defer server.Close()

	fetcher := NewPageFetcher(nil)
	_, err := fetcher.Extract(context.Background(), server.URL, nil)
	assert.Error(t, err)
}
