package sentiment

import (
	"context"
	"math"
	"time"

	"github.com/rs/zerolog/log"

	"news-temperature/internal/failure"
	"news-temperature/internal/services/llm"
	"news-temperature/internal/services/news"
)

// Status tells how far analysis of one article got.
type Status string

const (
	StatusOK      Status = "ok"
	StatusPartial Status = "partial"
	StatusFailed  Status = "failed"
)

// AnalysisResult is the outcome for one article.
type AnalysisResult struct {
	ArticleID           string        `json:"article_id"`
	Title               string        `json:"title"`
	URL                 string        `json:"url"`
	Sentiment           llm.Label     `json:"sentiment"`
	SentimentConfidence float64       `json:"sentiment_confidence"`
	Degrees             int           `json:"degrees"`
	Summary             string        `json:"summary"`
	Status              Status        `json:"status"`
	Error               *failure.Kind `json:"error,omitempty"`
}

// RetryPolicy bounds retries of RateLimited and Timeout failures. Attempts
// counts the first call.
type RetryPolicy struct {
	Attempts  int
	BaseDelay time.Duration
	Factor    float64
}

// DefaultRetryPolicy waits 1s then 2s between three attempts.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{Attempts: 3, BaseDelay: time.Second, Factor: 2}
}

// Delay is the wait before the given attempt (1-based).
func (p RetryPolicy) Delay(attempt int) time.Duration {
	if attempt <= 1 {
		return 0
	}
	return time.Duration(float64(p.BaseDelay) * math.Pow(p.Factor, float64(attempt-2)))
}

type ProcessorOptions struct {
	CallTimeout time.Duration
	Retry       RetryPolicy
}

// Processor turns one article into an AnalysisResult, isolating
// non-fatal failures to that article.
type Processor struct {
	callTimeout time.Duration
	retry       RetryPolicy
	sleep       func(ctx context.Context, d time.Duration) error
}

func NewProcessor(opts ProcessorOptions) *Processor {
	if opts.CallTimeout <= 0 {
		opts.CallTimeout = 60 * time.Second
	}
	if opts.Retry.Attempts <= 0 {
		opts.Retry = DefaultRetryPolicy()
	}
	if opts.Retry.Factor <= 0 {
		opts.Retry.Factor = 2
	}
	return &Processor{
		callTimeout: opts.CallTimeout,
		retry:       opts.Retry,
		sleep:       sleepContext,
	}
}

// Process summarizes then classifies article. Only fatal failures are
// returned as errors; everything else is folded into the result.
func (p *Processor) Process(ctx context.Context, article news.ArticleRecord, backend llm.Backend) (AnalysisResult, error) {
	result, err := p.analyze(ctx, article, backend)
	if err != nil {
		return AnalysisResult{}, err
	}
	result.Degrees = Degrees(result.Sentiment.Score() * result.SentimentConfidence)
	return result, nil
}

func (p *Processor) analyze(ctx context.Context, article news.ArticleRecord, backend llm.Backend) (AnalysisResult, error) {
	result := AnalysisResult{
		ArticleID: article.ID,
		Title:     article.Title,
		URL:       article.URL,
		Sentiment: llm.Neutral,
		Status:    StatusOK,
	}
	text := article.Text()
	logger := log.With().Str("article_id", article.ID).Str("backend", backend.Name()).Logger()

	err := p.call(ctx, article.ID, "summarize", func(ctx context.Context) error {
		summary, err := backend.Summarize(ctx, text)
		if err == nil {
			result.Summary = summary
		}
		return err
	})
	if done, fatal := p.settle(&result, err); fatal != nil {
		return AnalysisResult{}, fatal
	} else if done {
		return result, nil
	}
	// Unreadable text never gets a made-up summary.
	if err != nil && !llm.Unusable(text) {
		logger.Warn().Err(err).Msg("Summary failed, using extractive fallback")
		result.Summary = llm.ExtractiveSummary(text, 300)
	}

	err = p.call(ctx, article.ID, "classify", func(ctx context.Context) error {
		label, confidence, err := backend.ClassifySentiment(ctx, text)
		if err == nil {
			result.Sentiment = label
			result.SentimentConfidence = min(max(confidence, 0), 1)
		}
		return err
	})
	if done, fatal := p.settle(&result, err); fatal != nil {
		return AnalysisResult{}, fatal
	} else if done {
		return result, nil
	}
	if err != nil {
		logger.Warn().Err(err).Msg("Classification failed, using neutral placeholder")
		result.Sentiment = llm.Neutral
		result.SentimentConfidence = 0
	}

	return result, nil
}

// settle applies err to result. It reports whether processing should stop
// and returns err itself when it is fatal to the batch.
func (p *Processor) settle(result *AnalysisResult, err error) (bool, error) {
	if err == nil {
		return false, nil
	}

	kind := failure.KindOf(err)
	switch {
	case kind.Fatal():
		return true, err
	case kind == failure.InferenceError:
		result.Status = StatusPartial
		result.Error = &kind
		return false, nil
	default:
		result.Status = StatusFailed
		result.Error = &kind
		result.Summary = ""
		result.Sentiment = llm.Neutral
		result.SentimentConfidence = 0
		return true, nil
	}
}

// call runs fn under the per-call timeout, retrying retryable failures
// with exponential backoff.
func (p *Processor) call(ctx context.Context, articleID, op string, fn func(context.Context) error) error {
	var err error
	for attempt := 1; attempt <= p.retry.Attempts; attempt++ {
		if wait := p.retry.Delay(attempt); wait > 0 {
			if serr := p.sleep(ctx, wait); serr != nil {
				return failure.New(failure.Timeout, op, serr)
			}
		}

		callCtx, cancel := context.WithTimeout(ctx, p.callTimeout)
		err = fn(callCtx)
		cancel()

		if err == nil {
			return nil
		}
		if !failure.KindOf(err).Retryable() {
			return err
		}
		log.Warn().
			Err(err).
			Str("article_id", articleID).
			Str("op", op).
			Int("attempt", attempt).
			Str("kind", string(failure.KindOf(err))).
			Msg("Backend call failed")
	}
	return err
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
