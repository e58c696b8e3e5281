package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv(configPathEnv, "")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Pipeline.Workers != 4 || cfg.Pipeline.CallTimeout != 60*time.Second || cfg.Pipeline.RetryAttempts != 3 {
		t.Fatalf("unexpected pipeline defaults %+v", cfg.Pipeline)
	}
	if cfg.Cache.Driver != "file" || cfg.OpenAI.Model != "gpt-4o-mini" {
		t.Fatalf("unexpected defaults %+v %+v", cfg.Cache, cfg.OpenAI)
	}
}

func TestLoadFileThenEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := `
server:
  port: "9090"
pipeline:
  workers: 8
  call_timeout: 5s
cache:
  driver: redis
naver:
  client_id: from-file
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	t.Setenv(configPathEnv, path)
	t.Setenv("PIPELINE_WORKERS", "2")
	t.Setenv("NAVER_CLIENT_SECRET", "from-env")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Server.Port != "9090" || cfg.Pipeline.CallTimeout != 5*time.Second || cfg.Cache.Driver != "redis" {
		t.Fatalf("file values not applied: %+v", cfg)
	}
	if cfg.Pipeline.Workers != 2 {
		t.Fatalf("env should win over file, workers = %d", cfg.Pipeline.Workers)
	}
	if cfg.Naver.ClientID != "from-file" || cfg.Naver.ClientSecret != "from-env" {
		t.Fatalf("naver = %+v", cfg.Naver)
	}
	if cfg.Pipeline.RetryAttempts != 3 {
		t.Fatalf("unset values should keep defaults, attempts = %d", cfg.Pipeline.RetryAttempts)
	}
}

func TestLoadRejectsBadValues(t *testing.T) {
	t.Setenv(configPathEnv, "")

	t.Setenv("CACHE_DRIVER", "memcached")
	if _, err := Load(); err == nil {
		t.Fatalf("expected unknown driver error")
	}

	t.Setenv("CACHE_DRIVER", "")
	t.Setenv("PIPELINE_WORKERS", "0")
	if _, err := Load(); err == nil {
		t.Fatalf("expected workers error")
	}
}

func TestLoadMissingConfigFile(t *testing.T) {
	t.Setenv(configPathEnv, filepath.Join(t.TempDir(), "absent.yaml"))

	if _, err := Load(); err == nil {
		t.Fatalf("expected error for missing config file")
	}
}

func TestInvalidEnvKeepsDefault(t *testing.T) {
	t.Setenv(configPathEnv, "")
	t.Setenv("PIPELINE_CALL_TIMEOUT", "soon")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Pipeline.CallTimeout != 60*time.Second {
		t.Fatalf("call timeout = %v", cfg.Pipeline.CallTimeout)
	}
}
