package news

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
	"time"
)

// SortOrder controls how fetched articles are ordered.
type SortOrder string

const (
	SortDate      SortOrder = "date"
	SortRelevance SortOrder = "relevance"
)

// ModelMode selects which model backend a query asks for.
type ModelMode string

const (
	ModeLocal  ModelMode = "local"
	ModeRemote ModelMode = "remote"
)

// MaxResultsLimit caps max_results at what a search provider can page
// through (Naver stops at start 1000 with 100 per page).
const MaxResultsLimit = 1100

// Query describes a single temperature request. It is passed by value and
// never mutated after validation.
type Query struct {
	Term            string    `json:"term"`
	MaxResults      int       `json:"max_results"`
	Days            int       `json:"days"`
	Sort            SortOrder `json:"sort"`
	IncludeFullText bool      `json:"include_full_text"`
	ModelMode       ModelMode `json:"model_mode"`
}

// Validate checks the query fields. Days == 0 means no date window.
func (q Query) Validate() error {
	if strings.TrimSpace(q.Term) == "" {
		return fmt.Errorf("term is required")
	}
	if q.MaxResults <= 0 {
		return fmt.Errorf("max_results must be positive, got %d", q.MaxResults)
	}
	if q.MaxResults > MaxResultsLimit {
		return fmt.Errorf("max_results must be at most %d, got %d", MaxResultsLimit, q.MaxResults)
	}
	if q.Days < 0 {
		return fmt.Errorf("days must not be negative, got %d", q.Days)
	}
	switch q.Sort {
	case SortDate, SortRelevance:
	default:
		return fmt.Errorf("unknown sort %q", q.Sort)
	}
	switch q.ModelMode {
	case ModeLocal, ModeRemote:
	default:
		return fmt.Errorf("unknown model_mode %q", q.ModelMode)
	}
	return nil
}

// WithDefaults fills zero-valued optional fields.
func (q Query) WithDefaults() Query {
	q.Term = strings.TrimSpace(q.Term)
	if q.MaxResults == 0 {
		q.MaxResults = 10
	}
	if q.Sort == "" {
		q.Sort = SortDate
	}
	if q.ModelMode == "" {
		q.ModelMode = ModeLocal
	}
	return q
}

// Cutoff returns the oldest publication time accepted for now, or the zero
// time when the query has no date window.
func (q Query) Cutoff(now time.Time) time.Time {
	if q.Days == 0 {
		return time.Time{}
	}
	return now.Add(-time.Duration(q.Days) * 24 * time.Hour)
}

// ArticleRecord is the normalized form of an upstream search hit.
type ArticleRecord struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	URL         string    `json:"url"`
	Source      string    `json:"source,omitempty"`
	PublishedAt time.Time `json:"published_at"`
	Snippet     string    `json:"snippet"`
	FullText    *string   `json:"full_text,omitempty"`
}

// Text returns the body to analyze: full text when present, else the
// snippet, else the title.
func (a ArticleRecord) Text() string {
	if a.FullText != nil && strings.TrimSpace(*a.FullText) != "" {
		return *a.FullText
	}
	if strings.TrimSpace(a.Snippet) != "" {
		return a.Snippet
	}
	return a.Title
}

// RecordID derives a stable article id from its source URL.
func RecordID(url string) string {
	hash := sha256.Sum256([]byte(url))
	return hex.EncodeToString(hash[:])[:16]
}
