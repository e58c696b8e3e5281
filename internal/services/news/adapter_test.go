package news

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sync"
	"testing"
	"time"

	"news-temperature/internal/failure"
)

var fixedNow = time.Date(2025, time.November, 10, 12, 0, 0, 0, time.UTC)

type fakeProvider struct {
	mu       sync.Mutex
	pages    []Page
	errAt    map[int]error
	requests []PageRequest
}

func (f *fakeProvider) Name() string { return "fake" }

func (f *fakeProvider) Search(_ context.Context, req PageRequest) (Page, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	idx := len(f.requests)
	f.requests = append(f.requests, req)
	if err := f.errAt[idx]; err != nil {
		return Page{}, err
	}
	if idx >= len(f.pages) {
		return Page{Exhausted: true}, nil
	}
	return f.pages[idx], nil
}

type fakeFetcher struct {
	failURLs map[string]bool
}

func (f *fakeFetcher) FetchText(_ context.Context, url string) (string, error) {
	if f.failURLs[url] {
		return "", errors.New("403 forbidden")
	}
	return "full body of " + url, nil
}

func record(n int, age time.Duration) ArticleRecord {
	url := fmt.Sprintf("https://example.com/%d", n)
	return ArticleRecord{
		ID:          RecordID(url),
		Title:       fmt.Sprintf("title %d", n),
		URL:         url,
		PublishedAt: fixedNow.Add(-age),
		Snippet:     fmt.Sprintf("snippet %d", n),
	}
}

func newTestAdapter(p Provider, f FullTextFetcher) *Adapter {
	return NewAdapter(p, f, AdapterOptions{
		PageSize: 2,
		Now:      func() time.Time { return fixedNow },
	})
}

func TestFetchPaginatesUntilMaxResults(t *testing.T) {
	t.Parallel()

	p := &fakeProvider{pages: []Page{
		{Records: []ArticleRecord{record(1, time.Hour), record(2, 2*time.Hour)}},
		{Records: []ArticleRecord{record(3, 3*time.Hour), record(4, 4*time.Hour)}},
		{Records: []ArticleRecord{record(5, 5*time.Hour), record(6, 6*time.Hour)}},
	}}

	got, err := newTestAdapter(p, nil).Fetch(context.Background(), Query{Term: "x", MaxResults: 3, Sort: SortRelevance})
	if err != nil {
		t.Fatalf("Fetch error: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("expected 3 records, got %d", len(got))
	}
	if len(p.requests) != 2 {
		t.Fatalf("expected 2 page requests, got %d", len(p.requests))
	}
	if p.requests[1].Start != 3 {
		t.Fatalf("second page should start at 3, got %d", p.requests[1].Start)
	}
}

func TestFetchStopsWhenUpstreamExhausted(t *testing.T) {
	t.Parallel()

	p := &fakeProvider{pages: []Page{
		{Records: []ArticleRecord{record(1, time.Hour)}, Exhausted: true},
	}}

	got, err := newTestAdapter(p, nil).Fetch(context.Background(), Query{Term: "x", MaxResults: 10, Sort: SortRelevance})
	if err != nil {
		t.Fatalf("Fetch error: %v", err)
	}
	if len(got) != 1 || len(p.requests) != 1 {
		t.Fatalf("expected 1 record from 1 request, got %d from %d", len(got), len(p.requests))
	}
}

func TestFetchDropsArticlesOutsideDateWindow(t *testing.T) {
	t.Parallel()

	p := &fakeProvider{pages: []Page{
		{Records: []ArticleRecord{record(1, time.Hour), record(2, 50*time.Hour)}},
		{Records: []ArticleRecord{record(3, 60*time.Hour)}},
	}}

	got, err := newTestAdapter(p, nil).Fetch(context.Background(), Query{Term: "x", MaxResults: 10, Days: 1, Sort: SortDate})
	if err != nil {
		t.Fatalf("Fetch error: %v", err)
	}
	if len(got) != 1 || got[0].URL != "https://example.com/1" {
		t.Fatalf("expected only the fresh article, got %+v", got)
	}
	if len(p.requests) != 1 {
		t.Fatalf("date-sorted pagination should stop once past the window, made %d requests", len(p.requests))
	}
}

func TestFetchEverythingFilteredIsEmptyNotError(t *testing.T) {
	t.Parallel()

	p := &fakeProvider{pages: []Page{
		{Records: []ArticleRecord{record(1, 100*time.Hour)}, Exhausted: true},
	}}

	got, err := newTestAdapter(p, nil).Fetch(context.Background(), Query{Term: "x", MaxResults: 5, Days: 2, Sort: SortDate})
	if err != nil {
		t.Fatalf("Fetch error: %v", err)
	}
	if len(got) != 0 {
		t.Fatalf("expected no records, got %d", len(got))
	}
}

func TestFetchSortsByDateStably(t *testing.T) {
	t.Parallel()

	a := record(1, 3*time.Hour)
	b := record(2, time.Hour)
	c := record(3, 3*time.Hour)
	p := &fakeProvider{pages: []Page{{Records: []ArticleRecord{a, b, c}, Exhausted: true}}}

	got, err := newTestAdapter(p, nil).Fetch(context.Background(), Query{Term: "x", MaxResults: 5, Sort: SortDate})
	if err != nil {
		t.Fatalf("Fetch error: %v", err)
	}
	want := []string{b.ID, a.ID, c.ID}
	for i, id := range want {
		if got[i].ID != id {
			t.Fatalf("position %d: got %s, want %s", i, got[i].ID, id)
		}
	}
}

func TestFetchRelevanceKeepsUpstreamOrder(t *testing.T) {
	t.Parallel()

	a := record(1, 3*time.Hour)
	b := record(2, time.Hour)
	p := &fakeProvider{pages: []Page{{Records: []ArticleRecord{a, b}, Exhausted: true}}}

	got, err := newTestAdapter(p, nil).Fetch(context.Background(), Query{Term: "x", MaxResults: 5, Sort: SortRelevance})
	if err != nil {
		t.Fatalf("Fetch error: %v", err)
	}
	if got[0].ID != a.ID || got[1].ID != b.ID {
		t.Fatalf("relevance order changed: %+v", got)
	}
}

func TestFetchFirstPageFailureIsUpstreamUnavailable(t *testing.T) {
	t.Parallel()

	p := &fakeProvider{errAt: map[int]error{0: errors.New("connection refused")}}

	_, err := newTestAdapter(p, nil).Fetch(context.Background(), Query{Term: "x", MaxResults: 5, Sort: SortDate})
	if !failure.Is(err, failure.UpstreamUnavailable) {
		t.Fatalf("expected UpstreamUnavailable, got %v", err)
	}
}

func TestFetchLaterPageFailureKeepsCollected(t *testing.T) {
	t.Parallel()

	p := &fakeProvider{
		pages: []Page{{Records: []ArticleRecord{record(1, time.Hour), record(2, time.Hour)}}},
		errAt: map[int]error{1: errors.New("502")},
	}

	got, err := newTestAdapter(p, nil).Fetch(context.Background(), Query{Term: "x", MaxResults: 5, Sort: SortRelevance})
	if err != nil {
		t.Fatalf("Fetch error: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 records, got %d", len(got))
	}
}

func TestFetchFullTextFailureDegradesToSnippet(t *testing.T) {
	t.Parallel()

	var recs []ArticleRecord
	for i := 1; i <= 5; i++ {
		recs = append(recs, record(i, time.Duration(i)*time.Hour))
	}
	p := &fakeProvider{pages: []Page{{Records: recs, Exhausted: true}}}
	f := &fakeFetcher{failURLs: map[string]bool{"https://example.com/3": true}}

	got, err := newTestAdapter(p, f).Fetch(context.Background(), Query{
		Term: "x", MaxResults: 5, Sort: SortDate, IncludeFullText: true,
	})
	if err != nil {
		t.Fatalf("Fetch error: %v", err)
	}
	if len(got) != 5 {
		t.Fatalf("expected 5 records, got %d", len(got))
	}
	for _, r := range got {
		if r.URL == "https://example.com/3" {
			if r.FullText != nil {
				t.Fatalf("failed fetch should leave FullText nil")
			}
			if r.Text() != "snippet 3" {
				t.Fatalf("expected snippet fallback, got %q", r.Text())
			}
			continue
		}
		if r.FullText == nil {
			t.Fatalf("record %s missing full text", r.URL)
		}
	}
}

func TestFetchDeduplicatesRepeatedHits(t *testing.T) {
	t.Parallel()

	p := &fakeProvider{pages: []Page{
		{Records: []ArticleRecord{record(1, time.Hour), record(2, time.Hour)}},
		{Records: []ArticleRecord{record(2, time.Hour), record(3, time.Hour)}, Exhausted: true},
	}}

	got, err := newTestAdapter(p, nil).Fetch(context.Background(), Query{Term: "x", MaxResults: 10, Sort: SortRelevance})
	if err != nil {
		t.Fatalf("Fetch error: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("expected 3 unique records, got %d", len(got))
	}
}

func TestFetchHugeMaxResultsDoesNotPreallocate(t *testing.T) {
	t.Parallel()

	for _, limit := range []int{1 << 40, math.MaxInt} {
		p := &fakeProvider{pages: []Page{
			{Records: []ArticleRecord{record(1, time.Hour), record(2, 2*time.Hour)}},
		}}

		got, err := newTestAdapter(p, nil).Fetch(context.Background(), Query{Term: "x", MaxResults: limit, Sort: SortRelevance})
		if err != nil {
			t.Fatalf("max %d: Fetch error: %v", limit, err)
		}
		if len(got) != 2 {
			t.Fatalf("max %d: expected the 2 upstream records, got %d", limit, len(got))
		}
	}
}
