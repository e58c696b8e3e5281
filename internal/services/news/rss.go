package news

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/mmcdole/gofeed"
)

// GoogleNewsRSS is the default search feed template; {query} is replaced by
// the escaped search term.
const GoogleNewsRSS = "https://news.google.com/rss/search?q={query}&hl=ko&gl=KR&ceid=KR:ko"

// RSSClient searches any RSS/Atom endpoint that takes the term in its URL.
// Feeds carry a single page, so every search is exhausted after one call.
type RSSClient struct {
	template string
	client   *http.Client
	parser   *gofeed.Parser
}

// NewRSSClient builds a feed searcher from a URL template containing {query}.
func NewRSSClient(template string, client *http.Client) *RSSClient {
	if template == "" {
		template = GoogleNewsRSS
	}
	if client == nil {
		client = &http.Client{Timeout: 15 * time.Second}
	}
	return &RSSClient{
		template: template,
		client:   client,
		parser:   gofeed.NewParser(),
	}
}

func (c *RSSClient) Name() string {
	return "rss"
}

func (c *RSSClient) Search(ctx context.Context, req PageRequest) (Page, error) {
	if req.Start > 1 {
		return Page{Exhausted: true}, nil
	}

	feedURL := strings.ReplaceAll(c.template, "{query}", url.QueryEscape(req.Term))
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, feedURL, nil)
	if err != nil {
		return Page{}, fmt.Errorf("build request: %w", err)
	}
	httpReq.Header.Set("User-Agent", browserUserAgent)

	resp, err := c.client.Do(httpReq)
	if err != nil {
		return Page{}, fmt.Errorf("fetch feed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return Page{}, fmt.Errorf("feed returned %s", resp.Status)
	}

	feed, err := c.parser.Parse(resp.Body)
	if err != nil {
		return Page{}, fmt.Errorf("parse feed: %w", err)
	}

	records := make([]ArticleRecord, 0, len(feed.Items))
	for _, item := range feed.Items {
		if item.Link == "" {
			continue
		}

		var publishedAt time.Time
		if item.PublishedParsed != nil {
			publishedAt = *item.PublishedParsed
		} else if item.UpdatedParsed != nil {
			publishedAt = *item.UpdatedParsed
		}

		snippet := item.Description
		if snippet == "" {
			snippet = item.Content
		}

		records = append(records, ArticleRecord{
			ID:          RecordID(item.Link),
			Title:       cleanMarkup(item.Title),
			URL:         item.Link,
			Source:      hostOf(item.Link),
			PublishedAt: publishedAt,
			Snippet:     stripTags(snippet),
		})
	}

	return Page{Records: records, Exhausted: true}, nil
}
