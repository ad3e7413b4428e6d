// Package config loads clarify settings from a YAML file and the environment.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/aretw0/clarify/internal/logging"
	"github.com/aretw0/clarify/pkg/persistence/middleware"
	"gopkg.in/yaml.v3"
)

// DefaultPath is read when no --config flag is given. A missing file is not an error.
const DefaultPath = "clarify.yaml"

// Store backends.
const (
	BackendMemory = "memory"
	BackendFile   = "file"
	BackendRedis  = "redis"
	BackendSQLite = "sqlite"
)

// Model providers.
const (
	ProviderGemini = "gemini"
	ProviderGroq   = "groq"
)

// Environment variables overriding the file.
const (
	EnvProvider      = "CLARIFY_LLM_PROVIDER"
	EnvGeminiKey     = "GEMINI_API_KEY"
	EnvGroqKey       = "GROQ_API_KEY"
	EnvModel         = "CLARIFY_MODEL"
	EnvTavilyKey     = "TAVILY_API_KEY"
	EnvStore         = "CLARIFY_STORE"
	EnvRedisURL      = "CLARIFY_REDIS_URL"
	EnvSQLitePath    = "CLARIFY_SQLITE_PATH"
	EnvEncryptionKey = "CLARIFY_ENCRYPTION_KEY"
	EnvLogLevel      = "CLARIFY_LOG_LEVEL"
)

type Config struct {
	LLM        LLMConfig    `yaml:"llm"`
	Search     SearchConfig `yaml:"search"`
	Store      StoreConfig  `yaml:"store"`
	Server     ServerConfig `yaml:"server"`
	PromptsDir string       `yaml:"prompts_dir"`
	LogLevel   string       `yaml:"log_level"`
}

type LLMConfig struct {
	Provider string        `yaml:"provider"`
	APIKey   string        `yaml:"api_key"`
	// Model is empty for the provider's default.
	Model    string        `yaml:"model"`
	BaseURL  string        `yaml:"base_url"`
	Timeout  time.Duration `yaml:"timeout"`

	// Per-step sampling temperatures.
	Temperatures Temperatures `yaml:"temperatures"`
}

type Temperatures struct {
	Interpret float32 `yaml:"interpret"`
	Classify  float32 `yaml:"classify"`
	Finalize  float32 `yaml:"finalize"`
}

type SearchConfig struct {
	Enabled    bool          `yaml:"enabled"`
	APIKey     string        `yaml:"api_key"`
	MaxResults int           `yaml:"max_results"`
	Depth      string        `yaml:"depth"`
	Snippets   int           `yaml:"snippets"`
	Timeout    time.Duration `yaml:"timeout"`
}

type StoreConfig struct {
	Backend       string        `yaml:"backend"`
	Dir           string        `yaml:"dir"`
	SQLitePath    string        `yaml:"sqlite_path"`
	RedisURL      string        `yaml:"redis_url"`
	RedisPrefix   string        `yaml:"redis_prefix"`
	TTL           time.Duration `yaml:"ttl"`
	LockTTL       time.Duration `yaml:"lock_ttl"`
	EncryptionKey string        `yaml:"encryption_key"`
}

type ServerConfig struct {
	Addr        string `yaml:"addr"`
	MetricsAddr string `yaml:"metrics_addr"`
}

// Default returns the settings used when nothing is configured.
func Default() Config {
	return Config{
		LLM: LLMConfig{
			Provider: ProviderGemini,
			Timeout:  60 * time.Second,
			Temperatures: Temperatures{
				Interpret: 0.3,
				Classify:  0.0,
				Finalize:  0.7,
			},
		},
		Search: SearchConfig{
			Enabled:    true,
			MaxResults: 3,
			Depth:      "advanced",
			Snippets:   2,
			Timeout:    10 * time.Second,
		},
		Store: StoreConfig{
			Backend:     BackendFile,
			Dir:         ".clarify/sessions",
			SQLitePath:  ".clarify/clarify.db",
			RedisURL:    "redis://localhost:6379/0",
			RedisPrefix: "clarify:session:",
			LockTTL:     30 * time.Second,
		},
		Server: ServerConfig{
			Addr: ":8080",
		},
		LogLevel: "info",
	}
}

// Load reads path over the defaults and applies environment overrides.
// An empty path means DefaultPath. A missing file is only an error when
// explicit is true.
func Load(path string, explicit bool) (Config, error) {
	cfg := Default()
	if path == "" {
		path = DefaultPath
	}

	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("failed to parse %s: %w", path, err)
		}
	case errors.Is(err, os.ErrNotExist) && !explicit:
	default:
		return cfg, fmt.Errorf("failed to read config: %w", err)
	}

	if err := cfg.applyEnv(os.LookupEnv); err != nil {
		return cfg, err
	}
	return cfg, cfg.Validate()
}

func (c *Config) applyEnv(lookup func(string) (string, bool)) error {
	str := func(key string, dst *string) {
		if v, ok := lookup(key); ok && strings.TrimSpace(v) != "" {
			*dst = strings.TrimSpace(v)
		}
	}
	str(EnvProvider, &c.LLM.Provider)
	if c.LLM.Provider == ProviderGroq {
		str(EnvGroqKey, &c.LLM.APIKey)
	} else {
		str(EnvGeminiKey, &c.LLM.APIKey)
	}
	str(EnvModel, &c.LLM.Model)
	str(EnvTavilyKey, &c.Search.APIKey)
	str(EnvStore, &c.Store.Backend)
	str(EnvRedisURL, &c.Store.RedisURL)
	str(EnvSQLitePath, &c.Store.SQLitePath)
	str(EnvEncryptionKey, &c.Store.EncryptionKey)
	str(EnvLogLevel, &c.LogLevel)

	if v, ok := lookup("CLARIFY_SEARCH_ENABLED"); ok && v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("CLARIFY_SEARCH_ENABLED: %w", err)
		}
		c.Search.Enabled = b
	}
	return nil
}

// Validate rejects settings no component can run with.
func (c Config) Validate() error {
	var errs []error

	switch c.Store.Backend {
	case BackendMemory, BackendFile, BackendRedis, BackendSQLite:
	default:
		errs = append(errs, fmt.Errorf("store.backend: unknown backend %q", c.Store.Backend))
	}
	if c.Store.EncryptionKey != "" {
		if _, err := middleware.ParseKey(c.Store.EncryptionKey); err != nil {
			errs = append(errs, fmt.Errorf("store.encryption_key: %w", err))
		}
	}
	switch c.LLM.Provider {
	case ProviderGemini, ProviderGroq:
	default:
		errs = append(errs, fmt.Errorf("llm.provider: unknown provider %q", c.LLM.Provider))
	}
	if c.Store.LockTTL < 0 {
		errs = append(errs, errors.New("store.lock_ttl must not be negative"))
	}
	if _, err := logging.ParseLevel(c.LogLevel); err != nil {
		errs = append(errs, fmt.Errorf("log_level: %w", err))
	}
	for name, t := range map[string]float32{
		"interpret": c.LLM.Temperatures.Interpret,
		"classify":  c.LLM.Temperatures.Classify,
		"finalize":  c.LLM.Temperatures.Finalize,
	} {
		if t < 0 || t > 2 {
			errs = append(errs, fmt.Errorf("llm.temperatures.%s: %.2f out of range [0, 2]", name, t))
		}
	}
	if c.Search.Snippets < 0 {
		errs = append(errs, errors.New("search.snippets must not be negative"))
	}
	if c.Search.MaxResults < 0 {
		errs = append(errs, errors.New("search.max_results must not be negative"))
	}
	switch c.Search.Depth {
	case "", "basic", "advanced":
	default:
		errs = append(errs, fmt.Errorf("search.depth: unknown depth %q", c.Search.Depth))
	}
	return errors.Join(errs...)
}

// SearchActive reports whether lookups should run.
func (c Config) SearchActive() bool {
	return c.Search.Enabled && c.Search.APIKey != "" && c.Search.Snippets > 0
}
