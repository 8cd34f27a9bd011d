package db

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
)

// InsertJobPostings persists scraped postings for a source. Insertion is
// idempotent on (source_id, external_id): a conflicting row is skipped, never
// overwritten. Returns the IDs of the rows actually inserted.
func (db *DB) InsertJobPostings(ctx context.Context, postings []JobPosting, sourceID int64) ([]int64, error) {
	inserted := make([]int64, 0, len(postings))
	for _, p := range postings {
		var id int64
		err := db.pool.QueryRow(ctx,
			`INSERT INTO jobs (title, company, location, description, source_id, external_id, url, posted_at)
			 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
			 ON CONFLICT (source_id, external_id) DO NOTHING
			 RETURNING id`,
			p.Title, p.Company, p.Location, p.Description, sourceID, p.ExternalID, p.URL, p.PostedAt,
		).Scan(&id)
		if err == pgx.ErrNoRows {
			// Duplicate (source_id, external_id): already stored.
			continue
		}
		if err != nil {
			return inserted, fmt.Errorf("failed to insert posting %q for source %d: %w", p.ExternalID, sourceID, err)
		}
		inserted = append(inserted, id)
	}
	return inserted, nil
}

// GetJobPostingsByIDs returns postings by primary key.
func (db *DB) GetJobPostingsByIDs(ctx context.Context, ids []int64) ([]JobPosting, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	rows, err := db.pool.Query(ctx,
		`SELECT id, source_id, external_id, title, company, location, description, url, posted_at
		 FROM jobs
		 WHERE id = ANY($1)`,
		ids,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to get postings: %w", err)
	}
	defer rows.Close()

	var postings []JobPosting
	for rows.Next() {
		var p JobPosting
		if err := rows.Scan(&p.ID, &p.SourceID, &p.ExternalID, &p.Title, &p.Company, &p.Location, &p.Description, &p.URL, &p.PostedAt); err != nil {
			return nil, fmt.Errorf("failed to scan posting: %w", err)
		}
		postings = append(postings, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate postings: %w", err)
	}
	return postings, nil
}

// ListResumes returns all stored resumes.
func (db *DB) ListResumes(ctx context.Context) ([]Resume, error) {
	rows, err := db.pool.Query(ctx,
		`SELECT id, user_id, resume_text, location FROM resumes`,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list resumes: %w", err)
	}
	defer rows.Close()

	var resumes []Resume
	for rows.Next() {
		var r Resume
		if err := rows.Scan(&r.ID, &r.UserID, &r.Text, &r.Location); err != nil {
			return nil, fmt.Errorf("failed to scan resume: %w", err)
		}
		resumes = append(resumes, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate resumes: %w", err)
	}
	return resumes, nil
}
