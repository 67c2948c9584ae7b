// Package cli assembles the archguide process from configuration: the
// oracle, the session store stack, the retriever, hooks and the surfaces
// that the cobra commands start.
package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/aretw0/archguide"
	"github.com/aretw0/archguide/internal/config"
	"github.com/aretw0/archguide/pkg/adapters/file"
	"github.com/aretw0/archguide/pkg/adapters/genai"
	httpapi "github.com/aretw0/archguide/pkg/adapters/http"
	"github.com/aretw0/archguide/pkg/adapters/memory"
	"github.com/aretw0/archguide/pkg/adapters/redis"
	"github.com/aretw0/archguide/pkg/observability"
	"github.com/aretw0/archguide/pkg/persistence/middleware"
	"github.com/aretw0/archguide/pkg/ports"
)

// App is a fully wired engine plus the pieces the surfaces share.
type App struct {
	Config  config.Config
	Logger  *slog.Logger
	Engine  *archguide.Engine
	Oracle  ports.Oracle
	Metrics *observability.Metrics
	Streams *httpapi.StreamManager

	closers []func() error
}

// BuildOption adjusts how Build wires the App.
type BuildOption func(*buildOptions)

type buildOptions struct {
	oracle ports.Oracle
}

// WithOracle skips the configured provider and uses o.
func WithOracle(o ports.Oracle) BuildOption {
	return func(b *buildOptions) {
		b.oracle = o
	}
}

// Build wires an App from cfg.
func Build(ctx context.Context, cfg config.Config, logger *slog.Logger, opts ...BuildOption) (*App, error) {
	var b buildOptions
	for _, opt := range opts {
		opt(&b)
	}

	app := &App{
		Config:  cfg,
		Logger:  logger,
		Metrics: observability.NewMetrics(),
		Streams: httpapi.NewStreamManager(logger),
	}

	app.Oracle = b.oracle
	if app.Oracle == nil {
		o, err := newOracle(ctx, cfg, logger)
		if err != nil {
			return nil, err
		}
		app.Oracle = o
	}

	stack, err := OpenStore(cfg, logger)
	if err != nil {
		return nil, err
	}
	app.closers = append(app.closers, stack.Close)

	engineOpts := []archguide.Option{
		archguide.WithLogger(logger),
		archguide.WithStore(stack.Store),
		archguide.WithTacticsCount(cfg.Tactics.K),
		archguide.WithLifecycleHooks(observability.Chain(
			observability.LogHooks(logger),
			app.Metrics.Hooks(),
		)),
		archguide.WithObserver(app.Streams),
	}
	if stack.Locker != nil {
		engineOpts = append(engineOpts, archguide.WithLocker(stack.Locker, cfg.Redis.LockTTL))
	}

	if cfg.CorpusPath != "" {
		corpus, err := memory.LoadCorpus(cfg.CorpusPath)
		if err != nil {
			_ = app.Close()
			return nil, fmt.Errorf("error loading corpus: %w", err)
		}
		logger.Info("Corpus loaded", "path", cfg.CorpusPath, "passages", corpus.Len())
		engineOpts = append(engineOpts, archguide.WithRetriever(corpus))
	}

	engine, err := archguide.New(app.Oracle, engineOpts...)
	if err != nil {
		_ = app.Close()
		return nil, fmt.Errorf("error initializing engine: %w", err)
	}
	app.Engine = engine
	return app, nil
}

// Close releases the store connections.
func (a *App) Close() error {
	var errs []error
	for _, c := range a.closers {
		errs = append(errs, c())
	}
	a.closers = nil
	return errors.Join(errs...)
}

func newOracle(ctx context.Context, cfg config.Config, logger *slog.Logger) (ports.Oracle, error) {
	key := cfg.Oracle.APIKey()
	if key == "" {
		return nil, fmt.Errorf("no API key: set %s", cfg.Oracle.APIKeyEnv)
	}
	return genai.New(ctx, key,
		genai.WithModel(cfg.Oracle.Model),
		genai.WithTemperature(cfg.Oracle.Temperature),
		genai.WithLogger(logger),
	)
}

// StoreStack is the configured session store, wrapped by the persistence
// middlewares, and the distributed locker when the backend has one.
type StoreStack struct {
	Store  ports.SessionStore
	Locker ports.DistributedLocker
	Close  func() error
}

// OpenStore opens the configured backend. It does not need an oracle, so the
// session commands use it directly.
func OpenStore(cfg config.Config, logger *slog.Logger) (StoreStack, error) {
	stack := StoreStack{Close: func() error { return nil }}

	switch cfg.Store.Backend {
	case config.StoreMemory:
		stack.Store = memory.NewStore()
	case config.StoreFile:
		stack.Store = file.New(cfg.Store.Dir)
	case config.StoreRedis:
		opts := []redis.Option{redis.WithPrefix(cfg.Redis.Prefix)}
		if cfg.Redis.TTL > 0 {
			opts = append(opts, redis.WithTTL(cfg.Redis.TTL))
		}
		rs := redis.New(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB, opts...)
		stack.Store = rs
		stack.Locker = redis.NewLocker(rs.Client(), cfg.Redis.Prefix+"lock:")
		stack.Close = rs.Close
	default:
		return stack, fmt.Errorf("unknown store backend %q", cfg.Store.Backend)
	}

	var mws []middleware.Middleware
	if cfg.Store.MaskPII {
		mws = append(mws, middleware.NewPIIMiddleware(cfg.Store.PIIPatterns))
	}
	if cfg.Store.EncryptionKey != "" {
		if len(cfg.Store.EncryptionKey) != 32 {
			return stack, fmt.Errorf("encryption key must be 32 bytes, got %d", len(cfg.Store.EncryptionKey))
		}
		mws = append(mws, middleware.NewEncryptionMiddleware(middleware.EncryptionConfig{
			ActiveKey: []byte(cfg.Store.EncryptionKey),
		}))
	}
	stack.Store = middleware.Chain(stack.Store, mws...)

	logger.Debug("Session store ready",
		"backend", cfg.Store.Backend,
		"encrypted", cfg.Store.EncryptionKey != "",
		"mask_pii", cfg.Store.MaskPII,
	)
	return stack, nil
}
