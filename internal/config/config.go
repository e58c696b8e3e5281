package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
	"gopkg.in/yaml.v3"
)

const configPathEnv = "NEWSTEMP_CONFIG"

type Config struct {
	Server     ServerConfig     `yaml:"server"`
	Naver      NaverConfig      `yaml:"naver"`
	RSS        RSSConfig        `yaml:"rss"`
	Fixtures   FixturesConfig   `yaml:"fixtures"`
	OpenAI     OpenAIConfig     `yaml:"openai"`
	LocalModel LocalModelConfig `yaml:"local_model"`
	Pipeline   PipelineConfig   `yaml:"pipeline"`
	Cache      CacheConfig      `yaml:"cache"`
	Redis      RedisConfig      `yaml:"redis"`
}

type ServerConfig struct {
	Port           string        `yaml:"port"`
	ReadTimeout    time.Duration `yaml:"read_timeout"`
	WriteTimeout   time.Duration `yaml:"write_timeout"`
	IdleTimeout    time.Duration `yaml:"idle_timeout"`
	RequestTimeout time.Duration `yaml:"request_timeout"`
	RateLimit      int           `yaml:"rate_limit_per_minute"`
	RateBurst      int           `yaml:"rate_burst"`
}

type NaverConfig struct {
	Endpoint     string `yaml:"endpoint"`
	ClientID     string `yaml:"client_id"`
	ClientSecret string `yaml:"client_secret"`
}

type RSSConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Template string `yaml:"template"`
}

// FixturesConfig points the pipeline at recorded articles instead of a
// live provider.
type FixturesConfig struct {
	Dir string `yaml:"dir"`
}

type OpenAIConfig struct {
	APIKey  string        `yaml:"api_key"`
	Model   string        `yaml:"model"`
	BaseURL string        `yaml:"base_url"`
	Timeout time.Duration `yaml:"timeout"`
}

type LocalModelConfig struct {
	Path string `yaml:"path"`
}

type PipelineConfig struct {
	Workers         int           `yaml:"workers"`
	CallTimeout     time.Duration `yaml:"call_timeout"`
	RetryAttempts   int           `yaml:"retry_attempts"`
	BackoffBase     time.Duration `yaml:"backoff_base"`
	FullTextWorkers int           `yaml:"full_text_workers"`
	FetchTimeout    time.Duration `yaml:"fetch_timeout"`
}

type CacheConfig struct {
	Driver string        `yaml:"driver"`
	Dir    string        `yaml:"dir"`
	TTL    time.Duration `yaml:"ttl"`
}

type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

// Load builds the configuration from defaults, an optional YAML file named
// by NEWSTEMP_CONFIG, then the environment (a .env file is read first when
// present). Environment values win over the file.
func Load() (*Config, error) {
	if err := godotenv.Load(); err == nil {
		log.Debug().Msg("Loaded .env file")
	}

	cfg := defaults()

	if path := os.Getenv(configPathEnv); path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config %s: %w", path, err)
		}
		if err := yaml.Unmarshal(raw, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
		}
	}

	cfg.applyEnv()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func defaults() *Config {
	return &Config{
		Server: ServerConfig{
			Port:           "8080",
			ReadTimeout:    30 * time.Second,
			WriteTimeout:   10 * time.Minute,
			IdleTimeout:    60 * time.Second,
			RequestTimeout: 10 * time.Minute,
			RateLimit:      30,
			RateBurst:      5,
		},
		RSS: RSSConfig{
			Enabled: false,
		},
		OpenAI: OpenAIConfig{
			Model:   "gpt-4o-mini",
			Timeout: 60 * time.Second,
		},
		LocalModel: LocalModelConfig{
			Path: "models/lexicon.yaml",
		},
		Pipeline: PipelineConfig{
			Workers:         4,
			CallTimeout:     60 * time.Second,
			RetryAttempts:   3,
			BackoffBase:     time.Second,
			FullTextWorkers: 4,
			FetchTimeout:    15 * time.Second,
		},
		Cache: CacheConfig{
			Driver: "file",
			TTL:    24 * time.Hour,
		},
		Redis: RedisConfig{
			Addr: "localhost:6379",
		},
	}
}

func (c *Config) applyEnv() {
	c.Server.Port = getEnv("PORT", c.Server.Port)
	c.Server.ReadTimeout = getEnvAsDuration("READ_TIMEOUT", c.Server.ReadTimeout)
	c.Server.WriteTimeout = getEnvAsDuration("WRITE_TIMEOUT", c.Server.WriteTimeout)
	c.Server.IdleTimeout = getEnvAsDuration("IDLE_TIMEOUT", c.Server.IdleTimeout)
	c.Server.RequestTimeout = getEnvAsDuration("REQUEST_TIMEOUT", c.Server.RequestTimeout)
	c.Server.RateLimit = getEnvAsInt("RATE_LIMIT_PER_MINUTE", c.Server.RateLimit)
	c.Server.RateBurst = getEnvAsInt("RATE_BURST", c.Server.RateBurst)

	c.Naver.Endpoint = getEnv("NAVER_ENDPOINT", c.Naver.Endpoint)
	c.Naver.ClientID = getEnv("NAVER_CLIENT_ID", c.Naver.ClientID)
	c.Naver.ClientSecret = getEnv("NAVER_CLIENT_SECRET", c.Naver.ClientSecret)

	c.RSS.Enabled = getEnvAsBool("RSS_ENABLED", c.RSS.Enabled)
	c.RSS.Template = getEnv("RSS_TEMPLATE", c.RSS.Template)

	c.Fixtures.Dir = getEnv("FIXTURES_DIR", c.Fixtures.Dir)

	c.OpenAI.APIKey = getEnv("OPENAI_API_KEY", c.OpenAI.APIKey)
	c.OpenAI.Model = getEnv("LLM_MODEL", c.OpenAI.Model)
	c.OpenAI.BaseURL = getEnv("OPENAI_BASE_URL", c.OpenAI.BaseURL)
	c.OpenAI.Timeout = getEnvAsDuration("OPENAI_TIMEOUT", c.OpenAI.Timeout)

	c.LocalModel.Path = getEnv("LOCAL_MODEL_PATH", c.LocalModel.Path)

	c.Pipeline.Workers = getEnvAsInt("PIPELINE_WORKERS", c.Pipeline.Workers)
	c.Pipeline.CallTimeout = getEnvAsDuration("PIPELINE_CALL_TIMEOUT", c.Pipeline.CallTimeout)
	c.Pipeline.RetryAttempts = getEnvAsInt("PIPELINE_RETRY_ATTEMPTS", c.Pipeline.RetryAttempts)
	c.Pipeline.BackoffBase = getEnvAsDuration("PIPELINE_BACKOFF_BASE", c.Pipeline.BackoffBase)
	c.Pipeline.FullTextWorkers = getEnvAsInt("PIPELINE_FULL_TEXT_WORKERS", c.Pipeline.FullTextWorkers)
	c.Pipeline.FetchTimeout = getEnvAsDuration("PIPELINE_FETCH_TIMEOUT", c.Pipeline.FetchTimeout)

	c.Cache.Driver = strings.ToLower(getEnv("CACHE_DRIVER", c.Cache.Driver))
	c.Cache.Dir = getEnv("CACHE_DIR", c.Cache.Dir)
	c.Cache.TTL = getEnvAsDuration("CACHE_TTL", c.Cache.TTL)

	c.Redis.Addr = getEnv("REDIS_ADDR", c.Redis.Addr)
	c.Redis.Password = getEnv("REDIS_PASSWORD", c.Redis.Password)
	c.Redis.DB = getEnvAsInt("REDIS_DB", c.Redis.DB)
}

// Validate rejects values the pipeline cannot run with. Missing
// credentials are not errors here; they can arrive per request.
func (c *Config) Validate() error {
	switch {
	case c.Pipeline.Workers < 1:
		return fmt.Errorf("pipeline workers must be at least 1, got %d", c.Pipeline.Workers)
	case c.Pipeline.RetryAttempts < 1:
		return fmt.Errorf("pipeline retry attempts must be at least 1, got %d", c.Pipeline.RetryAttempts)
	case c.Pipeline.CallTimeout <= 0:
		return fmt.Errorf("pipeline call timeout must be positive")
	case c.Pipeline.BackoffBase < 0:
		return fmt.Errorf("pipeline backoff base must not be negative")
	case c.Server.RateLimit < 1 || c.Server.RateBurst < 1:
		return fmt.Errorf("rate limit and burst must be at least 1")
	}

	switch c.Cache.Driver {
	case "file", "redis":
	default:
		return fmt.Errorf("unknown cache driver %q", c.Cache.Driver)
	}
	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
		log.Warn().Str("key", key).Str("value", value).Msg("Ignoring invalid integer")
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
		log.Warn().Str("key", key).Str("value", value).Msg("Ignoring invalid boolean")
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
		log.Warn().Str("key", key).Str("value", value).Msg("Ignoring invalid duration")
	}
	return defaultValue
}
