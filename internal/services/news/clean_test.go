package news

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestCleanArticleText(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		in   string
		want string
	}{
		{"plain", "수출이 늘었다.\n\n  투자도 늘었다. ", "수출이 늘었다. 투자도 늘었다."},
		{"hashtags", "반도체 수출 호조 #반도체 #수출\n#경제", "반도체 수출 호조"},
		{"caption line", "[사진=연합뉴스]\n수출이 늘었다.", "수출이 늘었다."},
		{"inline caption", "수출이 늘었다. 사진=연합뉴스 투자도 늘었다.", "수출이 늘었다. 투자도 늘었다."},
		{"related articles", "수출이 늘었다.\n관련 기사 반도체 위기 심화\n관련기사: 적자 확대", "수출이 늘었다."},
		{"copyright footer", "수출이 늘었다.\nCopyright ⓒ 연합뉴스. 무단 전재 및 재배포 금지", "수출이 늘었다."},
		{"inline copyright", "수출이 늘었다. 무단전재-재배포금지", "수출이 늘었다."},
		{"reporter email", "수출이 늘었다.\n홍길동 기자 hong@example.co.kr", "수출이 늘었다."},
		{"dateline", "(서울=연합뉴스) 홍길동 기자 = 수출이 늘었다.", "수출이 늘었다."},
		{"empty", "  \n ", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := cleanArticleText(tt.in); got != tt.want {
				t.Fatalf("cleanArticleText(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestLinkFetcherCleansBoilerplate(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`<html><body>
			<div id="newsct_article">
				<p>(서울=연합뉴스) 홍길동 기자 = ` + articleBody + `</p>
				<p>[사진=연합뉴스]</p>
				<p>#반도체 #투자</p>
				<p>관련 기사 반도체 위기 심화</p>
				<p>hong@example.co.kr</p>
				<p>Copyright ⓒ 연합뉴스. 무단 전재 및 재배포 금지</p>
			</div>
		</body></html>`))
	}))
	defer server.Close()

	text, err := NewLinkFetcher(server.Client()).FetchText(context.Background(), server.URL+"/c")
	if err != nil {
		t.Fatalf("FetchText error: %v", err)
	}
	if text != articleBody {
		t.Fatalf("boilerplate survived: %q", text)
	}
}
