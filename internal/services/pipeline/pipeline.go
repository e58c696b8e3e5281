package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"news-temperature/internal/cache"
	"news-temperature/internal/failure"
	"news-temperature/internal/services/llm"
	"news-temperature/internal/services/news"
	"news-temperature/internal/services/sentiment"
)

// State is a step of one pipeline run.
type State string

const (
	StateFetching    State = "fetching"
	StateResolving   State = "resolving"
	StateProcessing  State = "processing"
	StateAggregating State = "aggregating"
	StateDone        State = "done"
	StateAborted     State = "aborted"
)

const defaultWorkers = 4

// Credentials are the per-query secrets. Empty fields fall back to
// whatever the source factory and resolver were configured with.
type Credentials struct {
	NaverClientID     string
	NaverClientSecret string
	OpenAIKey         string
}

// Fetcher retrieves the articles for a query.
type Fetcher interface {
	Fetch(ctx context.Context, q news.Query) ([]news.ArticleRecord, error)
}

// SourceFactory builds the article source for one run's credentials.
type SourceFactory func(creds Credentials) (Fetcher, error)

// BackendResolver picks the model backend for a run.
type BackendResolver interface {
	Resolve(ctx context.Context, mode llm.Mode, remoteKey string, caps []llm.Capability) (llm.Backend, error)
}

// Analyzer turns one article into a result.
type Analyzer interface {
	Process(ctx context.Context, article news.ArticleRecord, backend llm.Backend) (sentiment.AnalysisResult, error)
}

type Options struct {
	Workers int
	Now     func() time.Time
}

// Pipeline runs fetch, resolve, per-article analysis and aggregation for
// one query at a time. A Pipeline holds no per-run state and is safe for
// concurrent Run calls.
type Pipeline struct {
	sources   SourceFactory
	resolver  BackendResolver
	processor Analyzer
	workers   int
	now       func() time.Time
}

func New(sources SourceFactory, resolver BackendResolver, processor Analyzer, opts Options) *Pipeline {
	if opts.Workers <= 0 {
		opts.Workers = defaultWorkers
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Pipeline{
		sources:   sources,
		resolver:  resolver,
		processor: processor,
		workers:   opts.Workers,
		now:       opts.Now,
	}
}

// run is the state of one Run call.
type run struct {
	id     string
	state  State
	logger zerolog.Logger
}

func (r *run) transition(next State) {
	r.logger.Info().Str("from", string(r.state)).Str("state", string(next)).Msg("Pipeline state")
	r.state = next
}

func (r *run) abort(err error) error {
	r.logger.Error().
		Err(err).
		Str("from", string(r.state)).
		Str("state", string(StateAborted)).
		Str("kind", string(failure.KindOf(err))).
		Msg("Pipeline aborted")
	r.state = StateAborted
	return err
}

// Run answers q. On abort it returns a *failure.Error and no report.
func (p *Pipeline) Run(ctx context.Context, q news.Query, creds Credentials) (*sentiment.Report, error) {
	q = q.WithDefaults()
	if err := q.Validate(); err != nil {
		return nil, failure.New(failure.InvalidQuery, "validate query", err)
	}

	r := &run{id: uuid.NewString()}
	r.logger = log.With().Str("run_id", r.id).Str("term", q.Term).Logger()
	started := p.now()

	r.transition(StateFetching)
	source, err := p.sources(creds)
	if err != nil {
		return nil, r.abort(asFailure(failure.MissingCredential, "build source", err))
	}
	articles, err := source.Fetch(ctx, q)
	if err != nil {
		return nil, r.abort(asFailure(failure.UpstreamUnavailable, "fetch", err))
	}
	r.logger.Info().Int("articles", len(articles)).Msg("Articles fetched")

	r.transition(StateResolving)
	backend, err := p.resolver.Resolve(ctx, llm.Mode(q.ModelMode), creds.OpenAIKey, llm.AllCapabilities)
	if err != nil {
		return nil, r.abort(asFailure(failure.NoBackendAvailable, "resolve backend", err))
	}
	r.logger.Info().Str("backend", backend.Name()).Msg("Backend resolved")

	r.transition(StateProcessing)
	results, err := p.process(ctx, r, articles, backend)
	if err != nil {
		return nil, r.abort(err)
	}
	if err := ctx.Err(); err != nil {
		return nil, r.abort(failure.New(failure.Timeout, "process", err))
	}

	r.transition(StateAggregating)
	report := sentiment.Aggregate(q, backend.Name(), results)
	report.GeneratedAt = p.now()

	r.transition(StateDone)
	event := r.logger.Info().
		Int("failed", report.FailedCount).
		Bool("all_failed", report.AllFailed).
		Dur("elapsed", p.now().Sub(started))
	if report.Temperature != nil {
		event = event.Float64("temperature", *report.Temperature)
	}
	event.Msg("Pipeline finished")

	return &report, nil
}

// process fans articles out to at most p.workers goroutines. Results keep
// fetch order. The first fatal error stops new articles from starting;
// articles already running finish, and every result is then discarded.
func (p *Pipeline) process(ctx context.Context, r *run, articles []news.ArticleRecord, backend llm.Backend) ([]sentiment.AnalysisResult, error) {
	results := make([]sentiment.AnalysisResult, len(articles))

	var (
		stopped  atomic.Bool
		fatalErr atomic.Pointer[error]
	)

	var g errgroup.Group
	g.SetLimit(p.workers)

	for i, article := range articles {
		if stopped.Load() {
			break
		}
		g.Go(func() error {
			if stopped.Load() {
				return nil
			}
			res, err := p.processor.Process(ctx, article, backend)
			if err != nil {
				if stopped.CompareAndSwap(false, true) {
					fatalErr.Store(&err)
				}
				return nil
			}
			results[i] = res
			r.logger.Debug().
				Str("article_id", res.ArticleID).
				Str("status", string(res.Status)).
				Str("sentiment", string(res.Sentiment)).
				Msg("Article analyzed")
			return nil
		})
	}
	_ = g.Wait()

	if errp := fatalErr.Load(); errp != nil {
		return nil, *errp
	}
	return results, nil
}

// Store mirrors report into store under a fresh key for sessionID and
// returns the key.
func Store(ctx context.Context, store cache.ResultStore, sessionID string, report *sentiment.Report) (string, error) {
	data, err := json.Marshal(report)
	if err != nil {
		return "", fmt.Errorf("failed to marshal report: %w", err)
	}

	key := cache.ResultKey(sessionID, report.Query.Term, report.GeneratedAt)
	if err := store.Put(ctx, key, data); err != nil {
		return "", fmt.Errorf("failed to store report: %w", err)
	}
	return key, nil
}

// asFailure makes sure err carries a failure kind, using fallback when it
// does not.
func asFailure(fallback failure.Kind, op string, err error) error {
	if failure.KindOf(err) == failure.Unknown {
		return failure.New(fallback, op, err)
	}
	return err
}
