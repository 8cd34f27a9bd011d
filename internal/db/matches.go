package db

import (
	"context"
	"fmt"

	"github.com/google/uuid"
)

// UpsertMatchScore stores or refreshes the match score for a (user, job)
// pair. Refreshing a score does not clear the notified flag.
func (db *DB) UpsertMatchScore(ctx context.Context, userID uuid.UUID, jobID int64, score float64) error {
	_, err := db.pool.Exec(ctx,
		`INSERT INTO job_matches (user_id, job_id, match_score)
		 VALUES ($1, $2, $3)
		 ON CONFLICT (user_id, job_id)
		 DO UPDATE SET match_score = EXCLUDED.match_score, updated_at = NOW()`,
		userID, jobID, score,
	)
	if err != nil {
		return fmt.Errorf("failed to upsert match score for job %d: %w", jobID, err)
	}
	return nil
}

// ListUnnotifiedMatches returns the user's un-notified matches at or above
// minScore, best matches first.
func (db *DB) ListUnnotifiedMatches(ctx context.Context, userID uuid.UUID, minScore float64) ([]MatchedJob, error) {
	rows, err := db.pool.Query(ctx,
		`SELECT j.id, j.source_id, j.external_id, j.title, j.company, j.location, j.description, j.url, j.posted_at,
		        m.match_score
		 FROM jobs j
		 JOIN job_matches m ON m.job_id = j.id
		 WHERE m.user_id = $1 AND m.is_notified = false AND m.match_score >= $2
		 ORDER BY m.match_score DESC`,
		userID, minScore,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list unnotified matches: %w", err)
	}
	defer rows.Close()

	var matches []MatchedJob
	for rows.Next() {
		var m MatchedJob
		if err := rows.Scan(&m.ID, &m.SourceID, &m.ExternalID, &m.Title, &m.Company, &m.Location,
			&m.Description, &m.URL, &m.PostedAt, &m.Score); err != nil {
			return nil, fmt.Errorf("failed to scan match: %w", err)
		}
		matches = append(matches, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate matches: %w", err)
	}
	return matches, nil
}

// MarkMatchesNotified flags the given job matches as notified for the user.
// Called only after the delivery channel confirmed the send.
func (db *DB) MarkMatchesNotified(ctx context.Context, userID uuid.UUID, jobIDs []int64) error {
	if len(jobIDs) == 0 {
		return nil
	}
	_, err := db.pool.Exec(ctx,
		`UPDATE job_matches
		 SET is_notified = true, notified_at = NOW()
		 WHERE user_id = $1 AND job_id = ANY($2)`,
		userID, jobIDs,
	)
	if err != nil {
		return fmt.Errorf("failed to mark matches notified: %w", err)
	}
	return nil
}

// ListEnabledNotificationRecipients returns users with email notifications
// enabled along with their minimum-score thresholds.
func (db *DB) ListEnabledNotificationRecipients(ctx context.Context) ([]Recipient, error) {
	rows, err := db.pool.Query(ctx,
		`SELECT DISTINCT u.id, u.email, ep.min_match_score
		 FROM users u
		 JOIN email_preferences ep ON u.id = ep.user_id
		 WHERE ep.is_enabled = true`,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list notification recipients: %w", err)
	}
	defer rows.Close()

	var recipients []Recipient
	for rows.Next() {
		var r Recipient
		if err := rows.Scan(&r.UserID, &r.Email, &r.MinScore); err != nil {
			return nil, fmt.Errorf("failed to scan recipient: %w", err)
		}
		recipients = append(recipients, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate recipients: %w", err)
	}
	return recipients, nil
}
