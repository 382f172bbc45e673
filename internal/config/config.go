package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Generation GenerationConfig `yaml:"generation" validate:"required"`
	Analysis   AnalysisConfig   `yaml:"analysis" validate:"required"`
	Storage    StorageConfig    `yaml:"storage" validate:"required"`
	Ollama     OllamaConfig     `yaml:"ollama"`
	Logging    LoggingConfig    `yaml:"logging"`
}

type GenerationConfig struct {
	// Generator selects the code-producing collaborator
	Generator     string        `yaml:"generator" validate:"required,oneof=template ollama"`
	ModuleTimeout time.Duration `yaml:"module_timeout" validate:"min=0,max=1h"`
	Checkpoints   bool          `yaml:"checkpoints"`
	// OutputDir receives generated files when set
	OutputDir string `yaml:"output_dir"`
}

type StorageConfig struct {
	Backend string       `yaml:"backend" validate:"required,oneof=memory filesystem redis sqlite"`
	Dir     string       `yaml:"dir" validate:"required_if=Backend filesystem"`
	Redis   RedisConfig  `yaml:"redis"`
	SQLite  SQLiteConfig `yaml:"sqlite"`
}

type RedisConfig struct {
	Addr     string        `yaml:"addr" validate:"omitempty,hostname_port"`
	Password string        `yaml:"password"`
	DB       int           `yaml:"db" validate:"min=0,max=15"`
	Prefix   string        `yaml:"prefix"`
	TTL      time.Duration `yaml:"ttl" validate:"min=0"`
}

type SQLiteConfig struct {
	DSN string `yaml:"dsn"`
}

type OllamaConfig struct {
	Host   string `yaml:"host" validate:"omitempty,url"`
	Model  string `yaml:"model"`
	System string `yaml:"system"`
	// PromptTemplate is a text/template file overriding the built-in prompt
	PromptTemplate string          `yaml:"prompt_template"`
	RateLimit      RateLimitConfig `yaml:"rate_limit"`
}

type LoggingConfig struct {
	Level  string `yaml:"level" validate:"omitempty,oneof=debug info warn error"`
	Format string `yaml:"format" validate:"omitempty,oneof=text json"`
}

// Default returns a configuration that works without a file: template
// generation, in-memory storage, text logs at info.
func Default() *Config {
	return &Config{
		Generation: GenerationConfig{
			Generator:     "template",
			ModuleTimeout: 5 * time.Minute,
			Checkpoints:   true,
		},
		Analysis: DefaultAnalysis(),
		Storage: StorageConfig{
			Backend: "memory",
			Redis: RedisConfig{
				Addr:   "localhost:6379",
				Prefix: "codeorc:",
			},
			SQLite: SQLiteConfig{DSN: "codeorc.db"},
		},
		Ollama: OllamaConfig{
			Host:  "http://localhost:11434",
			Model: "qwen2.5-coder",
			RateLimit: RateLimitConfig{
				RequestsPerMinute: 30,
				BurstSize:         5,
			},
		},
		Logging: LoggingConfig{Level: "info", Format: "text"},
	}
}

// Load reads .env, then the YAML file at path (or the discovered default
// path), then environment overrides, and validates the result. A missing file
// at the discovered path is not an error; a missing explicit path is.
func Load(path string) (*Config, error) {
	_ = godotenv.Load()

	explicit := path != ""
	if !explicit {
		path = getConfigPath()
	}

	cfg := Default()
	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, fs.ErrNotExist) && !explicit:
	case err != nil:
		return nil, fmt.Errorf("reading config file: %w", err)
	default:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing config file: %w", err)
		}
	}

	cfg.applyEnv()

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

func getConfigPath() string {
	// 1. Explicit config path via environment variable
	if path := os.Getenv("CODEORC_CONFIG"); path != "" {
		return path
	}

	// 2. XDG_CONFIG_HOME (XDG Base Directory Specification)
	if xdgConfig := os.Getenv("XDG_CONFIG_HOME"); xdgConfig != "" {
		return filepath.Join(xdgConfig, "codeorc", "config.yaml")
	}

	// 3. Default to ~/.config/codeorc/config.yaml
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".config", "codeorc", "config.yaml")
}

// DataDir is where file-backed stores live when no directory is configured.
func DataDir() string {
	if xdgData := os.Getenv("XDG_DATA_HOME"); xdgData != "" {
		return filepath.Join(xdgData, "codeorc")
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".local", "share", "codeorc")
}

func (c *Config) applyEnv() {
	setString := func(dst *string, keys ...string) {
		for _, k := range keys {
			if v := os.Getenv(k); v != "" {
				*dst = v
				return
			}
		}
	}

	setString(&c.Generation.Generator, "CODEORC_GENERATOR")
	setString(&c.Storage.Backend, "CODEORC_STORAGE_BACKEND")
	setString(&c.Storage.Dir, "CODEORC_STORAGE_DIR")
	setString(&c.Storage.Redis.Addr, "CODEORC_REDIS_ADDR", "REDIS_ADDR")
	setString(&c.Storage.Redis.Password, "CODEORC_REDIS_PASSWORD", "REDIS_PASSWORD")
	setString(&c.Storage.SQLite.DSN, "CODEORC_SQLITE_DSN")
	setString(&c.Ollama.Host, "CODEORC_OLLAMA_HOST", "OLLAMA_HOST")
	setString(&c.Ollama.Model, "CODEORC_OLLAMA_MODEL")
	setString(&c.Logging.Level, "CODEORC_LOG_LEVEL")
	setString(&c.Logging.Format, "CODEORC_LOG_FORMAT")

	if v := os.Getenv("CODEORC_CACHE_TTL"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			c.Analysis.CacheTTL = d
		}
	}
	if v := os.Getenv("CODEORC_REDIS_DB"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.Storage.Redis.DB = n
		}
	}
}

// expandTilde expands a tilde (~) at the beginning of a path to the user's home directory
func expandTilde(path string) string {
	if strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return path
		}
		return filepath.Join(home, path[2:])
	}
	return path
}

func (c *Config) validate() error {
	c.Storage.Dir = expandTilde(c.Storage.Dir)
	c.Generation.OutputDir = expandTilde(c.Generation.OutputDir)
	c.Ollama.PromptTemplate = expandTilde(c.Ollama.PromptTemplate)
	if c.Storage.Backend == "filesystem" && c.Storage.Dir == "" {
		c.Storage.Dir = DataDir()
	}
	if c.Analysis.Cycles.MediumMaxNodes == 0 {
		c.Analysis.Cycles.MediumMaxNodes = DefaultAnalysis().Cycles.MediumMaxNodes
	}

	validate := validator.New()
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("config validation failed: %w", err)
	}

	switch {
	case c.Storage.Backend == "redis" && c.Storage.Redis.Addr == "":
		return fmt.Errorf("config validation failed: storage.redis.addr is required for the redis backend")
	case c.Storage.Backend == "sqlite" && c.Storage.SQLite.DSN == "":
		return fmt.Errorf("config validation failed: storage.sqlite.dsn is required for the sqlite backend")
	case c.Generation.Generator == "ollama" && (c.Ollama.Host == "" || c.Ollama.Model == ""):
		return fmt.Errorf("config validation failed: ollama.host and ollama.model are required for the ollama generator")
	}

	return c.Analysis.QualityWeights.check()
}
