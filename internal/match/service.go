package match

import (
	"context"
	"fmt"
	"log"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/jonathan/job-match-pro/internal/db"
)

// defaultScoringConcurrency bounds concurrent score computations. Scoring is
// CPU-only; a small limit keeps the worker from starving the scrape cycle.
const defaultScoringConcurrency = 4

// Store is the persistence surface the match service needs.
type Store interface {
	GetJobPostingsByIDs(ctx context.Context, ids []int64) ([]db.JobPosting, error)
	ListResumes(ctx context.Context) ([]db.Resume, error)
	UpsertMatchScore(ctx context.Context, userID uuid.UUID, jobID int64, score float64) error
}

// Service scores newly persisted postings against all stored resumes and
// records the results for notification tracking.
type Service struct {
	store       Store
	engine      *Engine
	concurrency int
}

// NewService creates a match service with the default engine weights.
func NewService(store Store) *Service {
	return &Service{
		store:       store,
		engine:      NewDefaultEngine(),
		concurrency: defaultScoringConcurrency,
	}
}

// ScorePostings scores each posting against every stored resume and upserts
// the (user, job) scores. Individual scoring failures are logged and skipped;
// scores are advisory and must not block the pipeline.
func (s *Service) ScorePostings(ctx context.Context, jobIDs []int64) error {
	if len(jobIDs) == 0 {
		return nil
	}

	postings, err := s.store.GetJobPostingsByIDs(ctx, jobIDs)
	if err != nil {
		return fmt.Errorf("failed to load postings for scoring: %w", err)
	}
	resumes, err := s.store.ListResumes(ctx)
	if err != nil {
		return fmt.Errorf("failed to load resumes for scoring: %w", err)
	}
	if len(resumes) == 0 {
		return nil
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.concurrency)

	for _, posting := range postings {
		for _, resume := range resumes {
			g.Go(func() error {
				resumeLoc := ""
				if resume.Location != nil {
					resumeLoc = *resume.Location
				}
				result := s.engine.ScoreWithLocation(resume.Text, posting.Description, resumeLoc, posting.Location)

				if err := s.store.UpsertMatchScore(gctx, resume.UserID, posting.ID, result.OverallScore); err != nil {
					// Logged, not fatal: remaining pairs still get scored.
					log.Printf("[matcher] Failed to store score for user %s job %d: %v", resume.UserID, posting.ID, err)
				}
				return nil
			})
		}
	}

	return g.Wait()
}
