package news

import (
	"context"
	"sort"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"news-temperature/internal/failure"
)

const (
	defaultPageSize        = 100
	defaultFullTextWorkers = 4
)

// PageRequest asks a provider for one page of search hits. Start is the
// 1-based offset of the first hit.
type PageRequest struct {
	Term  string
	Start int
	Size  int
	Sort  SortOrder
}

// Page is one batch of hits in upstream order.
type Page struct {
	Records []ArticleRecord
	// Exhausted is set when no further pages exist.
	Exhausted bool
}

// Provider is an upstream news search backend.
type Provider interface {
	Name() string
	Search(ctx context.Context, req PageRequest) (Page, error)
}

// FullTextFetcher resolves an article URL to its body text.
type FullTextFetcher interface {
	FetchText(ctx context.Context, url string) (string, error)
}

// AdapterOptions tunes an Adapter. Zero values pick defaults.
type AdapterOptions struct {
	PageSize        int
	FullTextWorkers int
	Now             func() time.Time
}

// Adapter turns a Query into an ordered list of ArticleRecords.
type Adapter struct {
	provider        Provider
	fetcher         FullTextFetcher
	pageSize        int
	fullTextWorkers int
	now             func() time.Time
}

// NewAdapter wires a provider and an optional full-text fetcher.
func NewAdapter(provider Provider, fetcher FullTextFetcher, opts AdapterOptions) *Adapter {
	if opts.PageSize <= 0 {
		opts.PageSize = defaultPageSize
	}
	if opts.FullTextWorkers <= 0 {
		opts.FullTextWorkers = defaultFullTextWorkers
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Adapter{
		provider:        provider,
		fetcher:         fetcher,
		pageSize:        opts.PageSize,
		fullTextWorkers: opts.FullTextWorkers,
		now:             opts.Now,
	}
}

// Fetch queries the provider until q.MaxResults records inside the date
// window are collected or the provider runs dry. Each call re-queries
// upstream. Only a failure of the first page is reported, as
// UpstreamUnavailable.
func (a *Adapter) Fetch(ctx context.Context, q Query) ([]ArticleRecord, error) {
	cutoff := q.Cutoff(a.now())
	records := make([]ArticleRecord, 0, min(q.MaxResults, a.pageSize))
	seen := make(map[string]struct{})
	start := 1

	for page := 0; len(records) < q.MaxResults; page++ {
		res, err := a.provider.Search(ctx, PageRequest{
			Term:  q.Term,
			Start: start,
			Size:  a.pageSize,
			Sort:  q.Sort,
		})
		if err != nil {
			if page == 0 {
				return nil, failure.New(failure.UpstreamUnavailable, "search "+a.provider.Name(), err)
			}
			log.Warn().Err(err).
				Str("provider", a.provider.Name()).
				Int("start", start).
				Int("collected", len(records)).
				Msg("Stopping pagination after page failure")
			break
		}

		pastWindow := false
		for _, rec := range res.Records {
			if !cutoff.IsZero() && rec.PublishedAt.Before(cutoff) {
				pastWindow = true
				continue
			}
			if _, dup := seen[rec.ID]; dup {
				continue
			}
			seen[rec.ID] = struct{}{}
			records = append(records, rec)
			if len(records) == q.MaxResults {
				break
			}
		}

		if res.Exhausted || len(res.Records) == 0 {
			break
		}
		// date-ordered pages only get older from here
		if pastWindow && q.Sort == SortDate {
			break
		}
		start += len(res.Records)
	}

	if q.Sort == SortDate {
		sort.SliceStable(records, func(i, j int) bool {
			return records[i].PublishedAt.After(records[j].PublishedAt)
		})
	}

	if q.IncludeFullText && a.fetcher != nil {
		a.attachFullText(ctx, records)
	}

	log.Debug().
		Str("provider", a.provider.Name()).
		Str("term", q.Term).
		Int("records", len(records)).
		Msg("Fetched articles")

	return records, nil
}

// attachFullText fills FullText in place. A failed fetch leaves the record
// snippet-only.
func (a *Adapter) attachFullText(ctx context.Context, records []ArticleRecord) {
	var g errgroup.Group
	g.SetLimit(a.fullTextWorkers)

	for i := range records {
		g.Go(func() error {
			text, err := a.fetcher.FetchText(ctx, records[i].URL)
			if err != nil {
				log.Debug().Err(err).
					Str("article_id", records[i].ID).
					Str("url", records[i].URL).
					Msg("Full text unavailable, keeping snippet")
				return nil
			}
			records[i].FullText = &text
			return nil
		})
	}
	_ = g.Wait()
}
