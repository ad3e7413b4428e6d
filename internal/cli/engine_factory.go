package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/aretw0/clarify"
	"github.com/aretw0/clarify/internal/config"
	"github.com/aretw0/clarify/pkg/adapters/file"
	"github.com/aretw0/clarify/pkg/adapters/genai"
	"github.com/aretw0/clarify/pkg/adapters/groq"
	httpAdapter "github.com/aretw0/clarify/pkg/adapters/http"
	"github.com/aretw0/clarify/pkg/adapters/loam"
	"github.com/aretw0/clarify/pkg/adapters/memory"
	"github.com/aretw0/clarify/pkg/adapters/redis"
	"github.com/aretw0/clarify/pkg/adapters/sqlite"
	"github.com/aretw0/clarify/pkg/adapters/tavily"
	"github.com/aretw0/clarify/pkg/observability"
	"github.com/aretw0/clarify/pkg/persistence/middleware"
	"github.com/aretw0/clarify/pkg/ports"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

// ErrMissingAPIKey is returned when no model key is configured outside offline mode.
var ErrMissingAPIKey = fmt.Errorf("no model API key (set %s or %s, or use --offline to run without a model)", config.EnvGeminiKey, config.EnvGroqKey)

// BuildOptions tweak how the App is assembled.
type BuildOptions struct {
	// Offline swaps the model for a placeholder generator and the keyword classifier.
	Offline bool
	// Debug logs every lifecycle event.
	Debug bool
}

// App is a fully wired service plus the resources it owns.
type App struct {
	Config   config.Config
	Service  *clarify.Service
	Store    ports.SessionStore
	Streams  *httpAdapter.StreamManager
	Registry *prometheus.Registry
	Logger   *slog.Logger

	closers []func() error
}

// Close releases stores and clients.
func (a *App) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		errs = append(errs, a.closers[i]())
	}
	return errors.Join(errs...)
}

// NewApp assembles the service described by cfg.
func NewApp(ctx context.Context, cfg config.Config, logger *slog.Logger, opts BuildOptions) (*App, error) {
	app := &App{
		Config:   cfg,
		Logger:   logger,
		Registry: prometheus.NewRegistry(),
		Streams:  httpAdapter.NewStreamManager(logger),
	}
	app.Registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	store, locker, err := app.newStore(ctx, cfg.Store)
	if err != nil {
		_ = app.Close()
		return nil, err
	}
	app.Store = store

	engineOpts, err := app.engineOptions(cfg, opts)
	if err != nil {
		_ = app.Close()
		return nil, err
	}

	gen, err := newGenerator(ctx, cfg.LLM, opts.Offline, logger)
	if err != nil {
		_ = app.Close()
		return nil, err
	}

	svcOpts := []clarify.Option{
		clarify.WithLogger(logger),
		clarify.WithChangeListener(app.Streams.Listener()),
	}
	if locker != nil {
		svcOpts = append(svcOpts, clarify.WithLocker(locker), clarify.WithLockTTL(cfg.Store.LockTTL))
	}
	app.Service = clarify.NewWithGenerator(gen, store, engineOpts, svcOpts...)
	return app, nil
}

func (a *App) engineOptions(cfg config.Config, opts BuildOptions) ([]clarify.EngineOption, error) {
	metrics, err := observability.NewMetrics(a.Registry)
	if err != nil {
		return nil, err
	}
	hooks := metrics.Hooks()
	if opts.Debug {
		hooks = hooks.Merge(observability.LogHooks(a.Logger))
	}

	engineOpts := []clarify.EngineOption{
		clarify.WithEngineLogger(a.Logger),
		clarify.WithLifecycleHooks(hooks),
		clarify.WithTemperatures(cfg.LLM.Temperatures.Interpret, cfg.LLM.Temperatures.Finalize),
		clarify.WithClassifyTemperature(cfg.LLM.Temperatures.Classify),
		clarify.WithSearchSnippets(cfg.Search.Snippets),
		clarify.WithSearchTimeout(cfg.Search.Timeout),
	}
	if opts.Offline {
		engineOpts = append(engineOpts, clarify.WithKeywordClassifier())
	}

	if cfg.PromptsDir != "" {
		lib, err := loam.Open(cfg.PromptsDir)
		if err != nil {
			return nil, fmt.Errorf("failed to load prompts from %s: %w", cfg.PromptsDir, err)
		}
		engineOpts = append(engineOpts, clarify.WithPrompts(lib))
	}

	if cfg.SearchActive() && !opts.Offline {
		engineOpts = append(engineOpts, clarify.WithSearcher(tavily.New(cfg.Search.APIKey,
			tavily.WithMaxResults(cfg.Search.MaxResults),
			tavily.WithDepth(cfg.Search.Depth),
			tavily.WithLogger(a.Logger),
		)))
	} else {
		a.Logger.Debug("Search disabled", "enabled", cfg.Search.Enabled, "offline", opts.Offline)
	}
	return engineOpts, nil
}

func newGenerator(ctx context.Context, cfg config.LLMConfig, offline bool, logger *slog.Logger) (ports.Generator, error) {
	if offline {
		return memory.NewGenerator(), nil
	}
	if cfg.APIKey == "" {
		return nil, ErrMissingAPIKey
	}
	if cfg.Provider == config.ProviderGroq {
		return groq.New(groq.Config{
			APIKey:  cfg.APIKey,
			Model:   cfg.Model,
			BaseURL: cfg.BaseURL,
			Timeout: cfg.Timeout,
		}, groq.WithLogger(logger))
	}
	return genai.New(ctx, genai.Config{
		APIKey:  cfg.APIKey,
		Model:   cfg.Model,
		BaseURL: cfg.BaseURL,
		Timeout: cfg.Timeout,
	}, genai.WithLogger(logger))
}

// newStore opens the configured backend, wrapped in the encryption
// middleware when a key is set. The locker is nil for single-process backends.
func (a *App) newStore(ctx context.Context, cfg config.StoreConfig) (ports.SessionStore, ports.DistributedLocker, error) {
	var (
		store  ports.SessionStore
		locker ports.DistributedLocker
	)

	switch cfg.Backend {
	case config.BackendMemory:
		store = memory.NewStore()
	case config.BackendFile:
		store = file.New(cfg.Dir)
	case config.BackendSQLite:
		if dir := filepath.Dir(cfg.SQLitePath); dir != "." {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, nil, fmt.Errorf("failed to create %s: %w", dir, err)
			}
		}
		s, err := sqlite.New(cfg.SQLitePath)
		if err != nil {
			return nil, nil, err
		}
		a.closers = append(a.closers, s.Close)
		store = s
	case config.BackendRedis:
		s, err := redis.NewFromURL(cfg.RedisURL, redis.WithPrefix(cfg.RedisPrefix), redis.WithTTL(cfg.TTL))
		if err != nil {
			return nil, nil, err
		}
		a.closers = append(a.closers, s.Close)
		if err := s.Ping(ctx); err != nil {
			return nil, nil, fmt.Errorf("redis unreachable: %w", err)
		}
		store = s
		locker = redis.NewLocker(s.Client(), s.Prefix())
	default:
		return nil, nil, fmt.Errorf("unknown store backend %q", cfg.Backend)
	}

	if cfg.EncryptionKey != "" {
		key, err := middleware.ParseKey(cfg.EncryptionKey)
		if err != nil {
			return nil, nil, err
		}
		mw, err := middleware.NewEncryptionMiddleware(middleware.EncryptionConfig{ActiveKey: key})
		if err != nil {
			return nil, nil, err
		}
		store = middleware.Chain(store, mw)
	}

	a.Logger.Debug("Session store ready", "backend", cfg.Backend, "encrypted", cfg.EncryptionKey != "")
	return store, locker, nil
}
