package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"io"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"news-temperature/internal/cache"
	"news-temperature/internal/config"
	httphandler "news-temperature/internal/http"
	"news-temperature/internal/ingest"
	"news-temperature/internal/services/llm"
	"news-temperature/internal/services/news"
	"news-temperature/internal/services/pipeline"
	"news-temperature/internal/services/sentiment"
)

func main() {
	// Parse command line flags
	var (
		port         = flag.String("port", "", "Port to run the server on (overrides PORT)")
		fixtures     = flag.String("fixtures", "", "Serve articles from JSON fixtures in this directory")
		writeSamples = flag.String("write-samples", "", "Write sample fixtures to this directory and exit")
		term         = flag.String("query", "", "Run one query, print the report and exit")
		mode         = flag.String("mode", "local", "Model mode for -query: local or remote")
		maxResults   = flag.Int("max", 10, "Maximum articles for -query")
		days         = flag.Int("days", 0, "Only articles from the last N days for -query (0 = no limit)")
		sortOrder    = flag.String("sort", "date", "Sort for -query: date or relevance")
		fullText     = flag.Bool("full-text", false, "Fetch full article text for -query")
	)
	flag.Parse()

	setupLogging()

	// Generate fixtures for offline runs
	if *writeSamples != "" {
		path, err := ingest.WriteSampleData(*writeSamples)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to write sample data")
		}
		log.Info().Str("path", path).Msg("Sample data written")
		return
	}

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load config")
	}
	if *port != "" {
		cfg.Server.Port = *port
	}
	if *fixtures != "" {
		cfg.Fixtures.Dir = *fixtures
	}

	runner := newPipeline(cfg)

	// One-shot query mode prints the report instead of serving
	if *term != "" {
		q := news.Query{
			Term:            *term,
			MaxResults:      *maxResults,
			Days:            *days,
			Sort:            news.SortOrder(*sortOrder),
			IncludeFullText: *fullText,
			ModelMode:       news.ModelMode(*mode),
		}
		ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
		code := runOnce(ctx, runner, q, os.Stdout)
		stop()
		if code != 0 {
			os.Exit(code)
		}
		return
	}

	// Initialize result store
	store, err := newStore(cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to open result store")
	}
	defer store.Close()

	// Setup router
	router := httphandler.NewRouter(httphandler.RouterOptions{
		RequestTimeout: cfg.Server.RequestTimeout,
		RateLimit:      cfg.Server.RateLimit,
		RateBurst:      cfg.Server.RateBurst,
	})
	router.RegisterTemperatureRoutes(httphandler.NewTemperatureHandler(runner, store))
	router.RegisterHealthRoutes(readiness(store))

	// Create HTTP server
	server := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	// Start server in a goroutine
	go func() {
		log.Info().Str("port", cfg.Server.Port).Msg("Starting server")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("Failed to start server")
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down server")

	// Give outstanding requests 30 seconds to complete
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Server shutdown error")
	}
	log.Info().Msg("Server stopped")
}

func setupLogging() {
	zerolog.TimeFieldFormat = time.RFC3339
	level, err := zerolog.ParseLevel(strings.ToLower(os.Getenv("LOG_LEVEL")))
	if err != nil || level == zerolog.NoLevel {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)

	if os.Getenv("LOG_FORMAT") == "console" {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen})
	}
}

func newPipeline(cfg *config.Config) *pipeline.Pipeline {
	httpClient := &http.Client{Timeout: cfg.Pipeline.FetchTimeout}

	sources := pipeline.NewSourceFactory(pipeline.SourceConfig{
		FixturesDir:       cfg.Fixtures.Dir,
		NaverEndpoint:     cfg.Naver.Endpoint,
		NaverClientID:     cfg.Naver.ClientID,
		NaverClientSecret: cfg.Naver.ClientSecret,
		RSSEnabled:        cfg.RSS.Enabled,
		RSSTemplate:       cfg.RSS.Template,
		HTTPClient:        httpClient,
		Adapter:           news.AdapterOptions{FullTextWorkers: cfg.Pipeline.FullTextWorkers},
	})

	resolver := llm.NewResolver(
		llm.LocalModelLoader(cfg.LocalModel.Path),
		llm.OpenAIFactory(llm.OpenAIConfig{
			Model:   cfg.OpenAI.Model,
			BaseURL: cfg.OpenAI.BaseURL,
			Timeout: cfg.OpenAI.Timeout,
		}),
	)

	processor := sentiment.NewProcessor(sentiment.ProcessorOptions{
		CallTimeout: cfg.Pipeline.CallTimeout,
		Retry: sentiment.RetryPolicy{
			Attempts:  cfg.Pipeline.RetryAttempts,
			BaseDelay: cfg.Pipeline.BackoffBase,
			Factor:    2,
		},
	})

	return pipeline.New(sources, &defaultKeyResolver{Resolver: resolver, key: cfg.OpenAI.APIKey}, processor,
		pipeline.Options{Workers: cfg.Pipeline.Workers})
}

// defaultKeyResolver supplies the configured OpenAI key when a request
// brings none.
type defaultKeyResolver struct {
	*llm.Resolver
	key string
}

func (r *defaultKeyResolver) Resolve(ctx context.Context, mode llm.Mode, remoteKey string, caps []llm.Capability) (llm.Backend, error) {
	if remoteKey == "" {
		remoteKey = r.key
	}
	return r.Resolver.Resolve(ctx, mode, remoteKey, caps)
}

func newStore(cfg *config.Config) (cache.ResultStore, error) {
	if cfg.Cache.Driver == "redis" {
		return cache.NewRedisCache(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB, cfg.Cache.TTL)
	}
	return cache.NewFileStore(cfg.Cache.Dir, cfg.Cache.TTL)
}

func readiness(store cache.ResultStore) func(context.Context) error {
	pinger, ok := store.(interface{ Ping(context.Context) error })
	if !ok {
		return nil
	}
	return pinger.Ping
}

// runOnce runs q and writes the report to out as indented JSON. It
// returns the process exit code.
func runOnce(ctx context.Context, runner *pipeline.Pipeline, q news.Query, out io.Writer) int {
	report, err := runner.Run(ctx, q, pipeline.Credentials{})
	if err != nil {
		log.Error().Err(err).Msg("Query failed")
		return 1
	}

	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	if err := enc.Encode(report); err != nil {
		log.Error().Err(err).Msg("Failed to print report")
		return 1
	}
	return 0
}
