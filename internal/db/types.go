package db

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Source is a scrapable job board endpoint. Sources are managed out of band;
// the scraper only reads them and advances LastScrapedAt after a run.
type Source struct {
	ID             int64           `json:"id"`
	Name           string          `json:"name"`
	URL            string          `json:"url"`
	ScrapingConfig json.RawMessage `json:"scraping_config"`
	IsActive       bool            `json:"is_active"`
	LastScrapedAt  *time.Time      `json:"last_scraped_at,omitempty"`
}

// JobPosting is a single scraped job advertisement, deduplicated per source
// by ExternalID. Immutable after creation.
type JobPosting struct {
	ID          int64     `json:"id"`
	SourceID    int64     `json:"source_id"`
	ExternalID  string    `json:"external_id"`
	Title       string    `json:"title"`
	Company     string    `json:"company"`
	Location    string    `json:"location"`
	Description string    `json:"description"`
	URL         string    `json:"url"`
	PostedAt    time.Time `json:"posted_at"`
}

// Resume is a stored resume used by the match service.
type Resume struct {
	ID       int64     `json:"id"`
	UserID   uuid.UUID `json:"user_id"`
	Text     string    `json:"resume_text"`
	Location *string   `json:"location,omitempty"`
}

// Recipient is a user with email notifications enabled.
type Recipient struct {
	UserID   uuid.UUID `json:"user_id"`
	Email    string    `json:"email"`
	MinScore float64   `json:"min_match_score"`
}

// MatchedJob is a posting joined with its match score for a user.
type MatchedJob struct {
	JobPosting
	Score float64 `json:"match_score"`
}
