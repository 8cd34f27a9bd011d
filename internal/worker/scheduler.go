// Package worker runs the periodic scrape and notification jobs on a cron
// schedule.
package worker

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/robfig/cron/v3"
)

// Job is a named unit of periodic work. Errors are logged, never fatal: the
// scheduler re-fires on its own cadence.
type Job struct {
	Name     string
	Interval time.Duration
	Run      func(ctx context.Context) error
}

// Scheduler wraps robfig/cron and manages the periodic jobs. Each job also
// runs once immediately on start so a fresh deployment does useful work
// without waiting for the first tick.
type Scheduler struct {
	cron *cron.Cron
	jobs []Job
}

// New creates a Scheduler for the given jobs.
func New(jobs ...Job) *Scheduler {
	return &Scheduler{
		cron: cron.New(cron.WithLogger(cron.DefaultLogger)),
		jobs: jobs,
	}
}

// Start registers every job and starts the scheduler.
func (s *Scheduler) Start(ctx context.Context) error {
	for _, job := range s.jobs {
		job := job
		spec := fmt.Sprintf("@every %s", job.Interval)
		_, err := s.cron.AddFunc(spec, func() {
			s.runJob(ctx, job)
		})
		if err != nil {
			return fmt.Errorf("cron.AddFunc for %s: %w", job.Name, err)
		}
		log.Printf("[scheduler] Registered job %q — spec: %s", job.Name, spec)
	}

	s.cron.Start()
	log.Printf("[scheduler] Cron started with %d job(s)", len(s.jobs))

	// Run immediately on startup (non-blocking)
	for _, job := range s.jobs {
		job := job
		go s.runJob(ctx, job)
	}

	return nil
}

// Stop gracefully shuts down the scheduler and waits for running jobs.
func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
	log.Println("[scheduler] Cron stopped")
}

func (s *Scheduler) runJob(ctx context.Context, job Job) {
	if ctx.Err() != nil {
		return
	}
	log.Printf("[scheduler] Job %q started", job.Name)
	if err := job.Run(ctx); err != nil {
		log.Printf("[scheduler] Job %q error: %v", job.Name, err)
		return
	}
	log.Printf("[scheduler] Job %q complete", job.Name)
}
