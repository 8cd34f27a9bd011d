package scrape

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/jonathan/job-match-pro/internal/db"
	"github.com/jonathan/job-match-pro/internal/resilience"
)

// DefaultMaxSourcesPerRun caps how many sources one cycle processes so a
// single run never overloads the shared browser session.
const DefaultMaxSourcesPerRun = 3

// Breaker defaults: a source is benched after 5 consecutive failed attempts
// and probed again after 10 minutes.
const (
	DefaultFailureThreshold = 5
	DefaultResetTimeout     = 10 * time.Minute
)

// Extractor turns a listing URL into job postings. Implementations report
// failure through the error return; the orchestrator decides fallback, there
// is no implicit propagation across the fallback boundary.
type Extractor interface {
	Extract(ctx context.Context, listingURL string, cfg *Config) ([]db.JobPosting, error)
}

// Store is the persistence surface the orchestrator needs.
type Store interface {
	ListActiveSources(ctx context.Context, limit int) ([]db.Source, error)
	InsertJobPostings(ctx context.Context, postings []db.JobPosting, sourceID int64) ([]int64, error)
	TouchSourceScraped(ctx context.Context, sourceID int64) error
}

// SeenCache is an optional pre-insert dedup cache of recently persisted
// postings. Seen is consulted before insertion; MarkSeen is called only for
// postings that were actually persisted, so a failed insert leaves them
// unseen for the next cycle.
type SeenCache interface {
	Seen(ctx context.Context, sourceID int64, externalID string) (bool, error)
	MarkSeen(ctx context.Context, sourceID int64, externalID string) error
}

// Options configures an Orchestrator.
type Options struct {
	MaxSourcesPerRun int
	FailureThreshold int
	ResetTimeout     time.Duration
	Retry            *resilience.RetryPolicy

	// Seen is an optional pre-insert dedup cache.
	Seen SeenCache

	// OnPersisted, if set, is invoked with the IDs of newly inserted
	// postings (e.g. to trigger match scoring). Errors are logged only.
	OnPersisted func(ctx context.Context, jobIDs []int64) error
}

// Orchestrator coordinates one scraping cycle: it pulls the oldest-scraped
// active sources, runs each through the primary extractor under rate
// limiting, circuit breaking and bounded retry, falls back to the degraded
// page fetcher, and persists results idempotently. A source's failure never
// aborts the cycle.
type Orchestrator struct {
	store    Store
	primary  Extractor
	fallback Extractor
	limiter  *resilience.RateLimiter
	opts     Options

	mu       sync.Mutex
	breakers map[int64]*resilience.CircuitBreaker
}

// NewOrchestrator wires an orchestrator. limiter is shared across all
// outbound requests of the cycle.
func NewOrchestrator(store Store, primary, fallback Extractor, limiter *resilience.RateLimiter, opts Options) *Orchestrator {
	if opts.MaxSourcesPerRun <= 0 {
		opts.MaxSourcesPerRun = DefaultMaxSourcesPerRun
	}
	if opts.FailureThreshold <= 0 {
		opts.FailureThreshold = DefaultFailureThreshold
	}
	if opts.ResetTimeout <= 0 {
		opts.ResetTimeout = DefaultResetTimeout
	}
	if opts.Retry == nil {
		opts.Retry = resilience.DefaultRetryPolicy()
	}
	return &Orchestrator{
		store:    store,
		primary:  primary,
		fallback: fallback,
		limiter:  limiter,
		opts:     opts,
		breakers: make(map[int64]*resilience.CircuitBreaker),
	}
}

// RunCycle executes one scraping cycle. It returns an error only when the
// source batch itself cannot be loaded; per-source failures are logged and
// the cycle continues. A cycle where every source fails is not fatal — the
// scheduler re-invokes on its own cadence.
func (o *Orchestrator) RunCycle(ctx context.Context) error {
	sources, err := o.store.ListActiveSources(ctx, o.opts.MaxSourcesPerRun)
	if err != nil {
		return fmt.Errorf("failed to load active sources: %w", err)
	}
	log.Printf("[scraper] Found %d active source(s) to scrape", len(sources))

	for _, source := range sources {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := o.scrapeSource(ctx, source); err != nil {
			log.Printf("[scraper] Source %q failed: %v — continuing", source.Name, err)
		}
	}
	return nil
}

// scrapeSource processes a single source end to end.
func (o *Orchestrator) scrapeSource(ctx context.Context, source db.Source) error {
	cfg, err := ParseConfig(source.ScrapingConfig)
	if err != nil {
		// Configuration errors abort this source only.
		return err
	}

	breaker := o.breaker(source.ID)
	if !breaker.CanExecute() {
		log.Printf("[scraper] Circuit open for source %q — skipping this cycle", source.Name)
		return nil
	}

	postings, err := o.extractWithRetry(ctx, source, cfg, breaker)
	if err != nil || len(postings) == 0 {
		if err != nil {
			log.Printf("[scraper] Primary extraction failed for %q: %v — trying fallback", source.Name, err)
		} else {
			log.Printf("[scraper] Primary extraction returned no postings for %q — trying fallback", source.Name)
		}
		postings = o.extractFallback(ctx, source, cfg)
	}

	if len(postings) == 0 {
		return errors.New("no postings extracted")
	}
	breaker.RecordSuccess()

	postings = o.filterSeen(ctx, source.ID, postings)
	if len(postings) == 0 {
		log.Printf("[scraper] All postings from %q recently seen — nothing to persist", source.Name)
		// Extraction succeeded; advance the timestamp so the source does not
		// monopolize the oldest-first batch.
		if err := o.store.TouchSourceScraped(ctx, source.ID); err != nil {
			return fmt.Errorf("failed to update last_scraped_at: %w", err)
		}
		return nil
	}

	inserted, err := o.store.InsertJobPostings(ctx, postings, source.ID)
	if err != nil {
		return fmt.Errorf("failed to persist postings: %w", err)
	}
	log.Printf("[scraper] Persisted %d new posting(s) from %q (%d scraped)", len(inserted), source.Name, len(postings))
	o.markSeen(ctx, source.ID, postings)

	if err := o.store.TouchSourceScraped(ctx, source.ID); err != nil {
		return fmt.Errorf("failed to update last_scraped_at: %w", err)
	}

	if o.opts.OnPersisted != nil && len(inserted) > 0 {
		if err := o.opts.OnPersisted(ctx, inserted); err != nil {
			log.Printf("[scraper] Post-persist hook failed for %q: %v", source.Name, err)
		}
	}
	return nil
}

// extractWithRetry runs the primary extractor under the shared rate limiter
// with bounded, jittered backoff. Every failed attempt counts against the
// source's circuit breaker.
func (o *Orchestrator) extractWithRetry(ctx context.Context, source db.Source, cfg *Config, breaker *resilience.CircuitBreaker) ([]db.JobPosting, error) {
	var postings []db.JobPosting
	err := o.opts.Retry.Do(ctx, func() error {
		if err := o.limiter.Wait(ctx); err != nil {
			return err
		}
		extracted, err := o.primary.Extract(ctx, source.URL, cfg)
		if err != nil {
			return err
		}
		postings = extracted
		return nil
	}, func(attempt int, err error) {
		breaker.RecordFailure()
		log.Printf("[scraper] Attempt %d on %q failed: %v", attempt+1, source.Name, err)
	})
	return postings, err
}

// extractFallback runs the degraded page fetcher: rate-limited, single
// attempt, no retry. Failure yields no postings, never an abort.
func (o *Orchestrator) extractFallback(ctx context.Context, source db.Source, cfg *Config) []db.JobPosting {
	if err := o.limiter.Wait(ctx); err != nil {
		return nil
	}
	postings, err := o.fallback.Extract(ctx, source.URL, cfg)
	if err != nil {
		log.Printf("[scraper] Fallback extraction failed for %q: %v", source.Name, err)
		return nil
	}
	return postings
}

// filterSeen drops postings whose (source, external_id) pair was persisted
// recently according to the optional cache. The cache is read-only here;
// marking happens after a successful insert. Cache errors are logged and the
// posting passes through: the database constraint is the dedup authority.
func (o *Orchestrator) filterSeen(ctx context.Context, sourceID int64, postings []db.JobPosting) []db.JobPosting {
	if o.opts.Seen == nil {
		return postings
	}

	kept := postings[:0]
	for _, p := range postings {
		seen, err := o.opts.Seen.Seen(ctx, sourceID, p.ExternalID)
		if err != nil {
			log.Printf("[scraper] Seen cache unavailable: %v", err)
			kept = append(kept, p)
			continue
		}
		if !seen {
			kept = append(kept, p)
		}
	}
	return kept
}

// markSeen records persisted postings in the optional cache. Failures are
// logged only: a missed mark costs one redundant ON CONFLICT round trip.
func (o *Orchestrator) markSeen(ctx context.Context, sourceID int64, postings []db.JobPosting) {
	if o.opts.Seen == nil {
		return
	}
	for _, p := range postings {
		if err := o.opts.Seen.MarkSeen(ctx, sourceID, p.ExternalID); err != nil {
			log.Printf("[scraper] Seen cache mark failed: %v", err)
		}
	}
}

// breaker returns the source's circuit breaker, creating it on first use.
// Breakers persist across cycles so an open circuit keeps a failing source
// benched.
func (o *Orchestrator) breaker(sourceID int64) *resilience.CircuitBreaker {
	o.mu.Lock()
	defer o.mu.Unlock()

	cb, ok := o.breakers[sourceID]
	if !ok {
		cb = resilience.NewCircuitBreaker(o.opts.FailureThreshold, o.opts.ResetTimeout)
		o.breakers[sourceID] = cb
	}
	return cb
}
