package pipeline

import (
	"errors"
	"net/http"

	"news-temperature/internal/failure"
	"news-temperature/internal/ingest"
	"news-temperature/internal/services/news"
)

// SourceConfig selects and configures the article provider. Fixtures win
// over Naver; Naver wins over RSS; RSS is used only when enabled.
type SourceConfig struct {
	FixturesDir string

	NaverEndpoint     string
	NaverClientID     string
	NaverClientSecret string

	RSSEnabled  bool
	RSSTemplate string

	// HTTPClient is shared by provider and link fetcher; nil lets each
	// pick its own timeout.
	HTTPClient *http.Client
	Adapter    news.AdapterOptions
}

// NewSourceFactory returns a SourceFactory that overlays per-run Naver
// credentials on cfg.
func NewSourceFactory(cfg SourceConfig) SourceFactory {
	return func(creds Credentials) (Fetcher, error) {
		if cfg.FixturesDir != "" {
			loader := ingest.NewLoader(cfg.FixturesDir)
			return news.NewAdapter(loader, loader, cfg.Adapter), nil
		}

		fetcher := news.NewLinkFetcher(cfg.HTTPClient)

		id, secret := cfg.NaverClientID, cfg.NaverClientSecret
		if creds.NaverClientID != "" || creds.NaverClientSecret != "" {
			id, secret = creds.NaverClientID, creds.NaverClientSecret
		}
		if id != "" && secret != "" {
			provider := news.NewNaverClient(cfg.NaverEndpoint, id, secret, cfg.HTTPClient)
			return news.NewAdapter(provider, fetcher, cfg.Adapter), nil
		}

		if cfg.RSSEnabled {
			provider := news.NewRSSClient(cfg.RSSTemplate, cfg.HTTPClient)
			return news.NewAdapter(provider, fetcher, cfg.Adapter), nil
		}

		return nil, failure.New(failure.MissingCredential, "build source",
			errors.New("Naver client id and secret are required"))
	}
}
