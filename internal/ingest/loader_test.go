package ingest

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"news-temperature/internal/services/news"
)

func TestLoaderSearchFiltersByTerm(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	if _, err := WriteSampleData(dir); err != nil {
		t.Fatalf("WriteSampleData: %v", err)
	}

	loader := NewLoader(dir)
	page, err := loader.Search(context.Background(), news.PageRequest{Term: "반도체", Start: 1})
	if err != nil {
		t.Fatalf("Search error: %v", err)
	}
	if !page.Exhausted {
		t.Fatalf("fixture search should be a single page")
	}
	if len(page.Records) != 3 {
		t.Fatalf("expected 3 Korean semiconductor fixtures, got %d", len(page.Records))
	}
	for _, r := range page.Records {
		if r.ID != news.RecordID(r.URL) {
			t.Fatalf("record id not derived from url: %+v", r)
		}
	}

	page, err = loader.Search(context.Background(), news.PageRequest{Term: "chipmakers", Start: 1})
	if err != nil || len(page.Records) != 1 {
		t.Fatalf("expected case-insensitive match, got %d (%v)", len(page.Records), err)
	}
}

func TestLoaderFetchText(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	if _, err := WriteSampleData(dir); err != nil {
		t.Fatalf("WriteSampleData: %v", err)
	}
	loader := NewLoader(dir)

	body, err := loader.FetchText(context.Background(), "https://example.com/semiconductor-exports")
	if err != nil || body == "" {
		t.Fatalf("expected fixture body, got %q (%v)", body, err)
	}
	if _, err := loader.FetchText(context.Background(), "https://example.com/semiconductor-briefing"); err == nil {
		t.Fatalf("fixture without body should fail")
	}
}

func TestLoaderRejectsBrokenFile(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "bad.json"), []byte("{not json"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	if _, err := NewLoader(dir).Search(context.Background(), news.PageRequest{Term: "x", Start: 1}); err == nil {
		t.Fatalf("expected decode error")
	}
}
