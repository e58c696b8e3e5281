package ingest

import (
	"context"
	"encoding/json"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"news-temperature/internal/services/news"
)

// FixtureArticle is the on-disk shape of a recorded search hit.
type FixtureArticle struct {
	Title       string    `json:"title"`
	URL         string    `json:"url"`
	Source      string    `json:"source"`
	Description string    `json:"description"`
	PublishedAt time.Time `json:"published_at"`
	Body        string    `json:"body,omitempty"`
}

// Loader serves articles from a directory of JSON fixture files, so the
// pipeline can run without network access. It implements news.Provider.
type Loader struct {
	dir string
}

// NewLoader creates a Loader reading *.json files under dir.
func NewLoader(dir string) *Loader {
	return &Loader{dir: dir}
}

func (l *Loader) Name() string {
	return "file"
}

// Search returns every fixture whose title or description contains the
// term, in file-then-array order, as a single exhausted page.
func (l *Loader) Search(ctx context.Context, req news.PageRequest) (news.Page, error) {
	if req.Start > 1 {
		return news.Page{Exhausted: true}, nil
	}

	fixtures, err := l.LoadFromDirectory(ctx)
	if err != nil {
		return news.Page{}, err
	}

	term := strings.ToLower(strings.TrimSpace(req.Term))
	records := make([]news.ArticleRecord, 0, len(fixtures))
	for _, f := range fixtures {
		haystack := strings.ToLower(f.Title + " " + f.Description)
		if term != "" && !strings.Contains(haystack, term) {
			continue
		}
		records = append(records, f.Record())
	}

	return news.Page{Records: records, Exhausted: true}, nil
}

// FetchText serves fixture bodies by URL, acting as the link fetcher in
// offline runs.
func (l *Loader) FetchText(ctx context.Context, url string) (string, error) {
	fixtures, err := l.LoadFromDirectory(ctx)
	if err != nil {
		return "", err
	}
	for _, f := range fixtures {
		if f.URL == url && f.Body != "" {
			return f.Body, nil
		}
	}
	return "", fmt.Errorf("no fixture body for %s", url)
}

// LoadFromDirectory loads all JSON files from the loader's directory.
func (l *Loader) LoadFromDirectory(ctx context.Context) ([]FixtureArticle, error) {
	var all []FixtureArticle
	err := filepath.WalkDir(l.dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if d.IsDir() || !strings.HasSuffix(strings.ToLower(path), ".json") {
			return nil
		}

		articles, err := LoadFromFile(path)
		if err != nil {
			return err
		}
		all = append(all, articles...)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("load fixtures from %s: %w", l.dir, err)
	}
	return all, nil
}

// LoadFromFile loads fixture articles from a single JSON file.
func LoadFromFile(filePath string) ([]FixtureArticle, error) {
	file, err := os.Open(filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open file %s: %w", filePath, err)
	}
	defer file.Close()

	var articles []FixtureArticle
	if err := json.NewDecoder(file).Decode(&articles); err != nil {
		return nil, fmt.Errorf("failed to decode JSON from %s: %w", filePath, err)
	}

	log.Debug().Str("file", filePath).Int("articles", len(articles)).Msg("Loaded fixture file")
	return articles, nil
}

// Record converts a fixture into the normalized article form.
func (f FixtureArticle) Record() news.ArticleRecord {
	return news.ArticleRecord{
		ID:          news.RecordID(f.URL),
		Title:       f.Title,
		URL:         f.URL,
		Source:      f.Source,
		PublishedAt: f.PublishedAt,
		Snippet:     f.Description,
	}
}

// WriteSampleData writes a small Korean/English fixture set to dir, for
// demos of the offline mode.
func WriteSampleData(dir string) (string, error) {
	now := time.Now().UTC()
	samples := []FixtureArticle{
		{
			Title:       "반도체 수출 3개월 연속 성장",
			URL:         "https://example.com/semiconductor-exports",
			Source:      "example.com",
			Description: "반도체 수출이 3개월 연속 성장하며 업계의 투자 확대와 혁신 기대가 커지고 있다.",
			PublishedAt: now.Add(-2 * time.Hour),
			Body:        "반도체 수출이 3개월 연속 성장했다. 정부는 투자 확대와 협력 강화를 통해 혁신을 지원하겠다고 밝혔다. 업계는 실적 개선을 기대하고 있다.",
		},
		{
			Title:       "반도체 업계, 공급망 위기 우려",
			URL:         "https://example.com/semiconductor-supply-risk",
			Source:      "example.com",
			Description: "공급망 문제로 반도체 생산 차질이 우려되며 일부 기업은 손실을 경고했다.",
			PublishedAt: now.Add(-5 * time.Hour),
		},
		{
			Title:       "반도체 산업 설명회 개최",
			URL:         "https://example.com/semiconductor-briefing",
			Source:      "example.com",
			Description: "산업통상자원부가 반도체 산업 동향 설명회를 개최했다.",
			PublishedAt: now.Add(-26 * time.Hour),
		},
		{
			Title:       "Chipmakers report record growth as AI demand surges",
			URL:         "https://example.com/chipmakers-growth",
			Source:      "example.com",
			Description: "Semiconductor makers posted strong gains and raised guidance amid AI investment.",
			PublishedAt: now.Add(-3 * time.Hour),
		},
	}

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create fixture dir: %w", err)
	}
	path := filepath.Join(dir, "sample.json")
	data, err := json.MarshalIndent(samples, "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshal samples: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("write samples: %w", err)
	}
	return path, nil
}
