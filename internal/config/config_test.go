package config

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfigValidation(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr bool
		errMsg  string
	}{
		{
			name:   "defaults",
			mutate: func(c *Config) {},
		},
		{
			name:    "unknown generator",
			mutate:  func(c *Config) { c.Generation.Generator = "gpt" },
			wantErr: true,
			errMsg:  "Generator",
		},
		{
			name:    "unknown storage backend",
			mutate:  func(c *Config) { c.Storage.Backend = "s3" },
			wantErr: true,
			errMsg:  "Backend",
		},
		{
			name:    "bad redis address",
			mutate:  func(c *Config) { c.Storage.Redis.Addr = "no-port" },
			wantErr: true,
			errMsg:  "Addr",
		},
		{
			name: "redis backend needs an address",
			mutate: func(c *Config) {
				c.Storage.Backend = "redis"
				c.Storage.Redis.Addr = ""
			},
			wantErr: true,
			errMsg:  "storage.redis.addr",
		},
		{
			name:    "cache ttl too short",
			mutate:  func(c *Config) { c.Analysis.CacheTTL = time.Millisecond },
			wantErr: true,
			errMsg:  "CacheTTL",
		},
		{
			name:    "concurrency zero",
			mutate:  func(c *Config) { c.Analysis.Concurrency = 0 },
			wantErr: true,
			errMsg:  "Concurrency",
		},
		{
			name:    "negative quality weight",
			mutate:  func(c *Config) { c.Analysis.QualityWeights.Security = -1 },
			wantErr: true,
			errMsg:  "Security",
		},
		{
			name:    "all quality weights zero",
			mutate:  func(c *Config) { c.Analysis.QualityWeights = QualityWeights{} },
			wantErr: true,
			errMsg:  "quality_weights",
		},
		{
			name:    "bad log level",
			mutate:  func(c *Config) { c.Logging.Level = "trace" },
			wantErr: true,
			errMsg:  "Level",
		},
		{
			name: "ollama generator needs a model",
			mutate: func(c *Config) {
				c.Generation.Generator = "ollama"
				c.Ollama.Model = ""
			},
			wantErr: true,
			errMsg:  "ollama.model",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)

			err := cfg.validate()
			if !tt.wantErr {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.errMsg)
		})
	}
}

func TestValidateFillsFilesystemDir(t *testing.T) {
	t.Setenv("XDG_DATA_HOME", "/data")
	cfg := Default()
	cfg.Storage.Backend = "filesystem"

	require.NoError(t, cfg.validate())
	assert.Equal(t, filepath.Join("/data", "codeorc"), cfg.Storage.Dir)
}

func TestLoadMissingDefaultFileUsesDefaults(t *testing.T) {
	t.Setenv("CODEORC_CONFIG", filepath.Join(t.TempDir(), "absent.yaml"))
	t.Setenv("CODEORC_STORAGE_BACKEND", "")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, Default().Analysis.CacheTTL, cfg.Analysis.CacheTTL)
	assert.Equal(t, "memory", cfg.Storage.Backend)
}

func TestLoadMissingExplicitFileFails(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "reading config file")
}

func TestLoadYAMLOverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	yaml := `
generation:
  generator: template
  module_timeout: 2m
analysis:
  cache_ttl: 30s
  concurrency: 2
  cycles:
    medium_max_nodes: 3
    boundaries:
      domain: [ui, infra]
storage:
  backend: sqlite
  sqlite:
    dsn: ":memory:"
logging:
  level: debug
  format: json
`
	require.NoError(t, os.WriteFile(path, []byte(yaml), 0644))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 2*time.Minute, cfg.Generation.ModuleTimeout)
	assert.Equal(t, 30*time.Second, cfg.Analysis.CacheTTL)
	assert.Equal(t, 2, cfg.Analysis.Concurrency)
	assert.Equal(t, 256, cfg.Analysis.CacheEntries, "unset fields keep defaults")
	assert.Equal(t, 3, cfg.Analysis.Cycles.MediumMaxNodes)
	assert.Equal(t, []string{"ui", "infra"}, cfg.Analysis.Cycles.Boundaries["domain"])
	assert.Equal(t, "sqlite", cfg.Storage.Backend)
	assert.Equal(t, ":memory:", cfg.Storage.SQLite.DSN)
	assert.Equal(t, "json", cfg.Logging.Format)
}

func TestLoadEnvOverrides(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("storage:\n  backend: memory\n"), 0644))

	t.Setenv("CODEORC_STORAGE_BACKEND", "redis")
	t.Setenv("CODEORC_REDIS_ADDR", "cache.internal:6380")
	t.Setenv("CODEORC_REDIS_DB", "3")
	t.Setenv("CODEORC_CACHE_TTL", "90s")
	t.Setenv("CODEORC_LOG_LEVEL", "warn")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "redis", cfg.Storage.Backend)
	assert.Equal(t, "cache.internal:6380", cfg.Storage.Redis.Addr)
	assert.Equal(t, 3, cfg.Storage.Redis.DB)
	assert.Equal(t, 90*time.Second, cfg.Analysis.CacheTTL)
	assert.Equal(t, "warn", cfg.Logging.Level)
}

func TestLoadRejectsMalformedYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("analysis: [unclosed"), 0644))

	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "parsing config file")
}

func TestGetConfigPath(t *testing.T) {
	t.Run("explicit env", func(t *testing.T) {
		t.Setenv("CODEORC_CONFIG", "/etc/codeorc.yaml")
		assert.Equal(t, "/etc/codeorc.yaml", getConfigPath())
	})
	t.Run("xdg", func(t *testing.T) {
		t.Setenv("CODEORC_CONFIG", "")
		t.Setenv("XDG_CONFIG_HOME", "/xdg")
		assert.Equal(t, filepath.Join("/xdg", "codeorc", "config.yaml"), getConfigPath())
	})
}

func TestExpandTilde(t *testing.T) {
	home, err := os.UserHomeDir()
	require.NoError(t, err)

	assert.Equal(t, filepath.Join(home, "runs"), expandTilde("~/runs"))
	assert.Equal(t, "/abs/runs", expandTilde("/abs/runs"))
	assert.Equal(t, "~user/runs", expandTilde("~user/runs"))
}

func TestNewLogger(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(LoggingConfig{Level: "warn", Format: "json"}, &buf)

	logger.Info("hidden")
	logger.Warn("shown", "module", "core")

	out := buf.String()
	assert.NotContains(t, out, "hidden")
	assert.True(t, strings.HasPrefix(out, "{"), "json handler expected, got %q", out)
	assert.Contains(t, out, `"module":"core"`)
}
