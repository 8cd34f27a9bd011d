package scrape

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonathan/job-match-pro/internal/db"
	"github.com/jonathan/job-match-pro/internal/resilience"
)

var testScrapingConfig = json.RawMessage(`{
	"type": "generic",
	"job_card_selector": ".card",
	"title_selector": ".title",
	"company_selector": ".company",
	"location_selector": ".location"
}`)

func testSource(id int64, name string) db.Source {
	return db.Source{
		ID:             id,
		Name:           name,
		URL:            "https://jobs.example.com/list",
		ScrapingConfig: testScrapingConfig,
		IsActive:       true,
	}
}

// fakeStore keys inserted postings by (source, external_id) so repeated
// inserts of the same posting are ignored, mirroring ON CONFLICT DO NOTHING.
type fakeStore struct {
	sources []db.Source

	inserted   map[string]int64
	nextID     int64
	insertErr  error
	touched    []int64
	listErr    error
	insertCnt  int
	touchErr   error
	lastLimits []int
}

func newFakeStore(sources ...db.Source) *fakeStore {
	return &fakeStore{sources: sources, inserted: make(map[string]int64), nextID: 1}
}

func (s *fakeStore) ListActiveSources(ctx context.Context, limit int) ([]db.Source, error) {
	s.lastLimits = append(s.lastLimits, limit)
	if s.listErr != nil {
		return nil, s.listErr
	}
	if len(s.sources) > limit {
		return s.sources[:limit], nil
	}
	return s.sources, nil
}

func (s *fakeStore) InsertJobPostings(ctx context.Context, postings []db.JobPosting, sourceID int64) ([]int64, error) {
	s.insertCnt++
	if s.insertErr != nil {
		return nil, s.insertErr
	}
	var ids []int64
	for _, p := range postings {
		key := fmt.Sprintf("%d:%s", sourceID, p.ExternalID)
		if _, dup := s.inserted[key]; dup {
			continue
		}
		s.inserted[key] = s.nextID
		ids = append(ids, s.nextID)
		s.nextID++
	}
	return ids, nil
}

func (s *fakeStore) TouchSourceScraped(ctx context.Context, sourceID int64) error {
	if s.touchErr != nil {
		return s.touchErr
	}
	s.touched = append(s.touched, sourceID)
	return nil
}

// fakeExtractor returns canned postings or a canned error and counts calls.
type fakeExtractor struct {
	postings []db.JobPosting
	err      error
	calls    int
}

func (e *fakeExtractor) Extract(ctx context.Context, listingURL string, cfg *Config) ([]db.JobPosting, error) {
	e.calls++
	return e.postings, e.err
}

// fakeSeenCache is an in-memory SeenCache.
type fakeSeenCache struct {
	keys    map[string]bool
	seenErr error
	markErr error
}

func newFakeSeenCache() *fakeSeenCache {
	return &fakeSeenCache{keys: make(map[string]bool)}
}

func (c *fakeSeenCache) Seen(ctx context.Context, sourceID int64, externalID string) (bool, error) {
	if c.seenErr != nil {
		return false, c.seenErr
	}
	return c.keys[fmt.Sprintf("%d:%s", sourceID, externalID)], nil
}

func (c *fakeSeenCache) MarkSeen(ctx context.Context, sourceID int64, externalID string) error {
	if c.markErr != nil {
		return c.markErr
	}
	c.keys[fmt.Sprintf("%d:%s", sourceID, externalID)] = true
	return nil
}

func posting(externalID string) db.JobPosting {
	return db.JobPosting{
		ExternalID:  externalID,
		Title:       "Go Engineer",
		Company:     "Acme",
		Location:    "Berlin",
		Description: "Build things",
		URL:         "https://jobs.example.com/" + externalID,
		PostedAt:    time.Now(),
	}
}

// fastOptions removes real sleeping from retry backoff.
func fastOptions() Options {
	return Options{
		FailureThreshold: 3,
		ResetTimeout:     time.Hour,
		Retry: &resilience.RetryPolicy{
			MaxAttempts: 3,
			BaseDelay:   time.Millisecond,
			MaxDelay:    time.Millisecond,
			Sleep:       func(ctx context.Context, d time.Duration) error { return nil },
		},
	}
}

func testLimiter() *resilience.RateLimiter {
	return resilience.NewRateLimiter(1000, time.Second)
}

func TestRunCycle_PersistsAndTouchesSource(t *testing.T) {
	store := newFakeStore(testSource(1, "ExampleBoard"))
	primary := &fakeExtractor{postings: []db.JobPosting{posting("a"), posting("b")}}
	fallback := &fakeExtractor{}
	var hooked []int64
	opts := fastOptions()
	opts.OnPersisted = func(ctx context.Context, jobIDs []int64) error {
		hooked = append(hooked, jobIDs...)
		return nil
	}

	o := NewOrchestrator(store, primary, fallback, testLimiter(), opts)
	require.NoError(t, o.RunCycle(context.Background()))

	assert.Equal(t, 1, primary.calls)
	assert.Zero(t, fallback.calls)
	assert.Len(t, store.inserted, 2)
	assert.Equal(t, []int64{1}, store.touched)
	assert.Len(t, hooked, 2)
}

func TestRunCycle_RerunIsIdempotent(t *testing.T) {
	store := newFakeStore(testSource(1, "ExampleBoard"))
	primary := &fakeExtractor{postings: []db.JobPosting{posting("a")}}
	o := NewOrchestrator(store, primary, &fakeExtractor{}, testLimiter(), fastOptions())

	require.NoError(t, o.RunCycle(context.Background()))
	require.NoError(t, o.RunCycle(context.Background()))

	assert.Len(t, store.inserted, 1, "same external ID persisted once")
}

func TestRunCycle_FallbackInvokedOnPrimaryFailure(t *testing.T) {
	store := newFakeStore(testSource(1, "ExampleBoard"))
	primary := &fakeExtractor{err: errors.New("browser crashed")}
	fallback := &fakeExtractor{postings: []db.JobPosting{posting("degraded")}}

	o := NewOrchestrator(store, primary, fallback, testLimiter(), fastOptions())
	require.NoError(t, o.RunCycle(context.Background()))

	assert.Equal(t, 3, primary.calls, "primary retried to exhaustion")
	assert.Equal(t, 1, fallback.calls, "fallback tried exactly once")
	assert.Len(t, store.inserted, 1)
}

func TestRunCycle_FallbackInvokedOnZeroResults(t *testing.T) {
	store := newFakeStore(testSource(1, "ExampleBoard"))
	primary := &fakeExtractor{postings: nil}
	fallback := &fakeExtractor{postings: []db.JobPosting{posting("degraded")}}

	o := NewOrchestrator(store, primary, fallback, testLimiter(), fastOptions())
	require.NoError(t, o.RunCycle(context.Background()))

	assert.Equal(t, 1, primary.calls, "an empty success is not retried")
	assert.Equal(t, 1, fallback.calls)
}

func TestRunCycle_BreakerOpensAndSkipsSource(t *testing.T) {
	store := newFakeStore(testSource(1, "FlakyBoard"))
	primary := &fakeExtractor{err: errors.New("always down")}
	fallback := &fakeExtractor{err: errors.New("also down")}

	o := NewOrchestrator(store, primary, fallback, testLimiter(), fastOptions())

	// Threshold 3 with 3 retry attempts: one cycle opens the breaker.
	require.NoError(t, o.RunCycle(context.Background()))
	assert.Equal(t, 3, primary.calls)

	require.NoError(t, o.RunCycle(context.Background()))
	assert.Equal(t, 3, primary.calls, "open breaker skips without invoking the extractor")
	assert.Equal(t, 1, fallback.calls, "fallback not tried while benched")
	assert.Empty(t, store.touched)
}

func TestRunCycle_PersistFailureLeavesSourceUntouched(t *testing.T) {
	store := newFakeStore(testSource(1, "ExampleBoard"))
	store.insertErr = errors.New("db down")
	primary := &fakeExtractor{postings: []db.JobPosting{posting("a")}}

	o := NewOrchestrator(store, primary, &fakeExtractor{}, testLimiter(), fastOptions())
	require.NoError(t, o.RunCycle(context.Background()), "per-source failure never aborts the cycle")

	assert.Empty(t, store.touched, "last_scraped_at only advances after a successful persist")
}

func TestRunCycle_SeenCacheMarkedOnlyAfterPersist(t *testing.T) {
	store := newFakeStore(testSource(1, "ExampleBoard"))
	store.insertErr = errors.New("db down")
	primary := &fakeExtractor{postings: []db.JobPosting{posting("a"), posting("b")}}
	seen := newFakeSeenCache()
	opts := fastOptions()
	opts.Seen = seen

	o := NewOrchestrator(store, primary, &fakeExtractor{}, testLimiter(), opts)

	// Cycle 1: persistence fails, so nothing may be marked seen.
	require.NoError(t, o.RunCycle(context.Background()))
	assert.Empty(t, store.inserted)
	assert.Empty(t, seen.keys, "failed insert leaves postings unseen")

	// Cycle 2: the database recovers and the same postings go through.
	store.insertErr = nil
	require.NoError(t, o.RunCycle(context.Background()))
	assert.Len(t, store.inserted, 2, "postings re-attempted after a failed persist")
	assert.Len(t, seen.keys, 2)
	assert.Equal(t, []int64{1}, store.touched)
}

func TestRunCycle_AllSeenSkipsInsertAndTouchesSource(t *testing.T) {
	store := newFakeStore(testSource(1, "ExampleBoard"))
	primary := &fakeExtractor{postings: []db.JobPosting{posting("a")}}
	seen := newFakeSeenCache()
	opts := fastOptions()
	opts.Seen = seen

	o := NewOrchestrator(store, primary, &fakeExtractor{}, testLimiter(), opts)

	require.NoError(t, o.RunCycle(context.Background()))
	require.Equal(t, 1, store.insertCnt)

	require.NoError(t, o.RunCycle(context.Background()))
	assert.Equal(t, 1, store.insertCnt, "fully-seen batch skips the insert round trip")
	assert.Equal(t, []int64{1, 1}, store.touched, "timestamp still advances so the source rotates out of the batch")
}

func TestRunCycle_SeenCacheErrorPassesPostingsThrough(t *testing.T) {
	store := newFakeStore(testSource(1, "ExampleBoard"))
	primary := &fakeExtractor{postings: []db.JobPosting{posting("a")}}
	seen := newFakeSeenCache()
	seen.seenErr = errors.New("redis down")
	opts := fastOptions()
	opts.Seen = seen

	o := NewOrchestrator(store, primary, &fakeExtractor{}, testLimiter(), opts)
	require.NoError(t, o.RunCycle(context.Background()))

	assert.Len(t, store.inserted, 1, "cache outage falls back to database dedup")
}

func TestRunCycle_BadConfigAbortsSourceOnly(t *testing.T) {
	bad := testSource(1, "Broken")
	bad.ScrapingConfig = json.RawMessage(`{"type": "generic"}`)
	good := testSource(2, "ExampleBoard")
	store := newFakeStore(bad, good)
	primary := &fakeExtractor{postings: []db.JobPosting{posting("a")}}

	o := NewOrchestrator(store, primary, &fakeExtractor{}, testLimiter(), fastOptions())
	require.NoError(t, o.RunCycle(context.Background()))

	assert.Equal(t, []int64{2}, store.touched, "healthy source still processed")
}

func TestRunCycle_ListSourcesErrorIsFatal(t *testing.T) {
	store := newFakeStore()
	store.listErr = errors.New("connection refused")

	o := NewOrchestrator(store, &fakeExtractor{}, &fakeExtractor{}, testLimiter(), fastOptions())
	err := o.RunCycle(context.Background())
	assert.ErrorContains(t, err, "active sources")
}

func TestRunCycle_RespectsMaxSourcesPerRun(t *testing.T) {
	store := newFakeStore(testSource(1, "A"), testSource(2, "B"), testSource(3, "C"), testSource(4, "D"))
	primary := &fakeExtractor{postings: []db.JobPosting{posting("a")}}

	o := NewOrchestrator(store, primary, &fakeExtractor{}, testLimiter(), fastOptions())
	require.NoError(t, o.RunCycle(context.Background()))

	assert.Equal(t, []int{DefaultMaxSourcesPerRun}, store.lastLimits)
}
