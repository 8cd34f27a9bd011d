package db

import (
	"context"
	"fmt"
)

// ListActiveSources returns up to limit active sources, oldest-scraped-first.
// Never-scraped sources (NULL timestamp) sort first so they are not starved.
func (db *DB) ListActiveSources(ctx context.Context, limit int) ([]Source, error) {
	rows, err := db.pool.Query(ctx,
		`SELECT id, name, url, scraping_config, is_active, last_scraped_at
		 FROM job_sources
		 WHERE is_active = true
		 ORDER BY last_scraped_at ASC NULLS FIRST
		 LIMIT $1`,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list active sources: %w", err)
	}
	defer rows.Close()

	var sources []Source
	for rows.Next() {
		var s Source
		if err := rows.Scan(&s.ID, &s.Name, &s.URL, &s.ScrapingConfig, &s.IsActive, &s.LastScrapedAt); err != nil {
			return nil, fmt.Errorf("failed to scan source: %w", err)
		}
		sources = append(sources, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate sources: %w", err)
	}
	return sources, nil
}

// TouchSourceScraped advances a source's last_scraped_at to now.
func (db *DB) TouchSourceScraped(ctx context.Context, sourceID int64) error {
	_, err := db.pool.Exec(ctx,
		`UPDATE job_sources SET last_scraped_at = NOW() WHERE id = $1`,
		sourceID,
	)
	if err != nil {
		return fmt.Errorf("failed to touch source %d: %w", sourceID, err)
	}
	return nil
}
