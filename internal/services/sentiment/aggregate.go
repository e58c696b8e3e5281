package sentiment

import (
	"math"
	"time"

	"news-temperature/internal/services/llm"
	"news-temperature/internal/services/news"
)

type Counts struct {
	Positive int `json:"positive"`
	Neutral  int `json:"neutral"`
	Negative int `json:"negative"`
}

// Report is the aggregate answer to one query.
type Report struct {
	Query       news.Query       `json:"query"`
	Temperature *float64         `json:"temperature"`
	Degrees     *int             `json:"degrees"`
	AllFailed   bool             `json:"all_failed"`
	Counts      Counts           `json:"counts"`
	FailedCount int              `json:"failed_count"`
	PerArticle  []AnalysisResult `json:"per_article"`
	Backend     string           `json:"backend"`
	GeneratedAt time.Time        `json:"generated_at"`
}

// Aggregate folds per-article results into a Report. Only ok results
// contribute to counts and temperature; the temperature is the
// confidence-weighted mean of label scores. GeneratedAt is left for the
// caller to stamp.
func Aggregate(q news.Query, backend string, results []AnalysisResult) Report {
	report := Report{
		Query:      q,
		Backend:    backend,
		PerArticle: make([]AnalysisResult, len(results)),
	}
	copy(report.PerArticle, results)

	var weighted, confSum float64
	for _, r := range results {
		if r.Status != StatusOK {
			report.FailedCount++
			continue
		}
		switch r.Sentiment {
		case llm.Positive:
			report.Counts.Positive++
		case llm.Negative:
			report.Counts.Negative++
		default:
			report.Counts.Neutral++
		}
		weighted += r.Sentiment.Score() * r.SentimentConfidence
		confSum += r.SentimentConfidence
	}

	if len(results) == 0 {
		return report
	}
	if confSum == 0 {
		report.AllFailed = true
		return report
	}

	t := min(max(weighted/confSum, -1), 1)
	degrees := Degrees(t)
	report.Temperature = &t
	report.Degrees = &degrees
	return report
}

// Degrees maps a temperature in [-1,1] onto 0..100.
func Degrees(t float64) int {
	return int(math.Round((t + 1) * 50))
}
