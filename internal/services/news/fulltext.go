package news

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/PuerkitoBio/goquery"
	readability "github.com/go-shiori/go-readability"
)

const (
	browserUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"

	minBodyRunes = 50
	maxPageBytes = 4 << 20
)

// bodySelectors are tried in order; the first match with enough text wins.
var bodySelectors = []string{
	"#newsct_article",
	"#newsEndContents",
	".news_end_body_body",
	"._article_body_contents",
	"#articleBodyContents",
	"#article-view-content-div",
	".article-view-content",
	".article-body",
	".article_content",
	"#article_content",
	"#article-body",
	"article .content",
	"article .body",
	`[id*="article"][id*="body"]`,
	`[class*="article"][class*="body"]`,
	`[class*="article"][class*="content"]`,
}

// LinkFetcher downloads an article page and extracts its body text.
type LinkFetcher struct {
	client *http.Client
}

// NewLinkFetcher wraps client; nil uses a 15s timeout client.
func NewLinkFetcher(client *http.Client) *LinkFetcher {
	if client == nil {
		client = &http.Client{Timeout: 15 * time.Second}
	}
	return &LinkFetcher{client: client}
}

// FetchText returns the article body. Known article containers are tried
// first, then readability scoring over the whole page.
func (f *LinkFetcher) FetchText(ctx context.Context, link string) (string, error) {
	if link == "" {
		return "", fmt.Errorf("empty article url")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, link, nil)
	if err != nil {
		return "", fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("User-Agent", browserUserAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")
	req.Header.Set("Accept-Language", "ko-KR,ko;q=0.9,en-US;q=0.8,en;q=0.7")

	resp, err := f.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("request page: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("page returned %s", resp.Status)
	}

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxPageBytes))
	if err != nil {
		return "", fmt.Errorf("read page: %w", err)
	}

	if text, ok := extractBySelectors(raw); ok {
		return text, nil
	}

	pageURL, _ := url.Parse(link)
	article, err := readability.FromReader(bytes.NewReader(raw), pageURL)
	if err != nil {
		return "", fmt.Errorf("readability: %w", err)
	}
	text := cleanArticleText(article.TextContent)
	if utf8.RuneCountInString(text) < minBodyRunes {
		return "", fmt.Errorf("extracted body too short (%d runes)", utf8.RuneCountInString(text))
	}
	return text, nil
}

func extractBySelectors(raw []byte) (string, bool) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(raw))
	if err != nil {
		return "", false
	}
	doc.Find("script, style, noscript, iframe, figure, figcaption, .byline, .reporter_area").Remove()

	// Keep block boundaries as line breaks for cleanArticleText.
	doc.Find("br").ReplaceWithHtml("\n")
	doc.Find("p, div, li, h1, h2, h3, h4, tr, blockquote").AppendHtml("\n")

	for _, sel := range bodySelectors {
		node := doc.Find(sel).First()
		if node.Length() == 0 {
			continue
		}
		text := cleanArticleText(node.Text())
		if utf8.RuneCountInString(text) >= minBodyRunes {
			return text, true
		}
	}
	return "", false
}

// stripTags drops markup from feed descriptions.
func stripTags(s string) string {
	if !strings.Contains(s, "<") {
		return cleanMarkup(s)
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(s))
	if err != nil {
		return cleanMarkup(s)
	}
	return normalizeSpace(doc.Text())
}

func normalizeSpace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
