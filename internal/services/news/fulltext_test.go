package news

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

const articleBody = "정부는 오늘 반도체 산업 지원을 위한 새로운 투자 계획을 발표했다. 업계는 성장과 혁신이 가속화될 것으로 기대하고 있다."

func TestLinkFetcherUsesArticleSelector(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("User-Agent") == "" {
			t.Errorf("missing user agent")
		}
		_, _ = w.Write([]byte(`<html><body>
			<div class="nav">menu</div>
			<div id="newsct_article"><script>var x=1;</script><p>` + articleBody + `</p></div>
		</body></html>`))
	}))
	defer server.Close()

	text, err := NewLinkFetcher(server.Client()).FetchText(context.Background(), server.URL+"/a")
	if err != nil {
		t.Fatalf("FetchText error: %v", err)
	}
	if text != articleBody {
		t.Fatalf("unexpected text: %q", text)
	}
}

func TestLinkFetcherFallsBackToReadability(t *testing.T) {
	t.Parallel()

	paragraph := strings.Repeat("The council approved the new transit budget after a long debate about growth. ", 8)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`<html><head><title>Budget</title></head><body>
			<main><div class="story"><p>` + paragraph + `</p><p>` + paragraph + `</p></div></main>
		</body></html>`))
	}))
	defer server.Close()

	text, err := NewLinkFetcher(server.Client()).FetchText(context.Background(), server.URL+"/b")
	if err != nil {
		t.Fatalf("FetchText error: %v", err)
	}
	if !strings.Contains(text, "transit budget") {
		t.Fatalf("readability text missing body: %q", text)
	}
}

func TestLinkFetcherErrorStatus(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))
	defer server.Close()

	if _, err := NewLinkFetcher(server.Client()).FetchText(context.Background(), server.URL); err == nil {
		t.Fatalf("expected error on 403")
	}
}

func TestStripTags(t *testing.T) {
	t.Parallel()

	got := stripTags(`<a href="x">Headline</a>&nbsp;<font>Publisher</font>`)
	if !strings.Contains(got, "Headline") || strings.Contains(got, "<") {
		t.Fatalf("unexpected stripped text %q", got)
	}
}
