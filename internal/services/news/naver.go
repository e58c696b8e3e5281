package news

import (
	"context"
	"encoding/json"
	"fmt"
	"html"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

const (
	NaverSearchURL = "https://openapi.naver.com/v1/search/news.json"

	naverMaxDisplay = 100
	naverMaxStart   = 1000
)

// NaverClient searches the Naver news API.
type NaverClient struct {
	endpoint     string
	clientID     string
	clientSecret string
	client       *http.Client
}

type naverResponse struct {
	Total   int `json:"total"`
	Start   int `json:"start"`
	Display int `json:"display"`
	Items   []struct {
		Title        string `json:"title"`
		OriginalLink string `json:"originallink"`
		Link         string `json:"link"`
		Description  string `json:"description"`
		PubDate      string `json:"pubDate"`
	} `json:"items"`
}

// NewNaverClient builds a client. An empty endpoint uses NaverSearchURL.
func NewNaverClient(endpoint, clientID, clientSecret string, client *http.Client) *NaverClient {
	if endpoint == "" {
		endpoint = NaverSearchURL
	}
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}
	return &NaverClient{
		endpoint:     endpoint,
		clientID:     clientID,
		clientSecret: clientSecret,
		client:       client,
	}
}

func (c *NaverClient) Name() string {
	return "naver"
}

// Search fetches one page. Relevance maps to Naver's "sim" ordering.
func (c *NaverClient) Search(ctx context.Context, req PageRequest) (Page, error) {
	if c.clientID == "" || c.clientSecret == "" {
		return Page{}, fmt.Errorf("naver client id and secret are required")
	}
	if req.Start > naverMaxStart {
		return Page{Exhausted: true}, nil
	}

	display := min(max(req.Size, 1), naverMaxDisplay)
	sortParam := "date"
	if req.Sort == SortRelevance {
		sortParam = "sim"
	}

	params := url.Values{}
	params.Set("query", req.Term)
	params.Set("display", strconv.Itoa(display))
	params.Set("start", strconv.Itoa(max(req.Start, 1)))
	params.Set("sort", sortParam)

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, c.endpoint+"?"+params.Encode(), nil)
	if err != nil {
		return Page{}, fmt.Errorf("build request: %w", err)
	}
	httpReq.Header.Set("X-Naver-Client-Id", c.clientID)
	httpReq.Header.Set("X-Naver-Client-Secret", c.clientSecret)

	resp, err := c.client.Do(httpReq)
	if err != nil {
		return Page{}, fmt.Errorf("naver request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return Page{}, fmt.Errorf("naver returned %s: %s", resp.Status, strings.TrimSpace(string(body)))
	}

	var apiResp naverResponse
	if err := json.NewDecoder(resp.Body).Decode(&apiResp); err != nil {
		return Page{}, fmt.Errorf("decode naver response: %w", err)
	}

	records := make([]ArticleRecord, 0, len(apiResp.Items))
	for _, item := range apiResp.Items {
		link := item.OriginalLink
		if link == "" {
			link = item.Link
		}
		publishedAt, _ := time.Parse(time.RFC1123Z, item.PubDate)

		records = append(records, ArticleRecord{
			ID:          RecordID(link),
			Title:       cleanMarkup(item.Title),
			URL:         link,
			Source:      hostOf(link),
			PublishedAt: publishedAt,
			Snippet:     cleanMarkup(item.Description),
		})
	}

	start := max(req.Start, 1)
	exhausted := len(apiResp.Items) < display ||
		start+display > apiResp.Total ||
		start+display > naverMaxStart

	return Page{Records: records, Exhausted: exhausted}, nil
}

var markupReplacer = strings.NewReplacer("<b>", "", "</b>", "")

// cleanMarkup removes search-highlight tags and HTML entities.
func cleanMarkup(s string) string {
	return strings.TrimSpace(html.UnescapeString(markupReplacer.Replace(s)))
}

func hostOf(link string) string {
	u, err := url.Parse(link)
	if err != nil {
		return ""
	}
	return strings.TrimPrefix(u.Hostname(), "www.")
}
