package cli

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/aretw0/voyage"
	"github.com/aretw0/voyage/internal/config"
	"github.com/aretw0/voyage/pkg/adapters/anthropic"
	"github.com/aretw0/voyage/pkg/adapters/file"
	"github.com/aretw0/voyage/pkg/adapters/memory"
	"github.com/aretw0/voyage/pkg/adapters/redis"
	"github.com/aretw0/voyage/pkg/adapters/scripted"
	"github.com/aretw0/voyage/pkg/observability"
	"github.com/aretw0/voyage/pkg/persistence/middleware"
	"github.com/aretw0/voyage/pkg/ports"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

// piiContent matches email addresses and card-like digit runs.
var piiContent = []string{
	`[A-Za-z0-9._%+-]+@[A-Za-z0-9.-]+\.[A-Za-z]{2,}`,
	`\b(?:\d[ -]?){13,16}\b`,
}

var piiArgKeys = []string{`(?i)email`, `(?i)passport`, `(?i)card`}

// App bundles the agent with what the commands need around it.
type App struct {
	Agent   *voyage.Agent
	Config  config.Config
	Logger  *slog.Logger
	Metrics *prometheus.Registry
	// Offline is true when the scripted model stands in for Anthropic.
	Offline bool

	closers []func() error
}

// Close releases the store connections.
func (a *App) Close() error {
	var errs []error
	for _, c := range a.closers {
		errs = append(errs, c())
	}
	return errors.Join(errs...)
}

// NewApp builds the agent from the configuration: the session store with
// its middleware, the chat model, metrics and logging hooks. Extra options
// are applied last.
func NewApp(cfg config.Config, logger *slog.Logger, extra ...voyage.Option) (*App, error) {
	app := &App{
		Config:  cfg,
		Logger:  logger,
		Metrics: prometheus.NewRegistry(),
	}
	app.Metrics.MustRegister(collectors.NewGoCollector())

	store, locker, err := app.createStore(cfg)
	if err != nil {
		return nil, err
	}

	model, offline := createModel(cfg, logger)
	app.Offline = offline

	metrics := observability.NewMetrics(app.Metrics)
	opts := []voyage.Option{
		voyage.WithStore(store),
		voyage.WithLogger(logger),
		voyage.WithApprovalTimeout(cfg.ApprovalTimeout),
		voyage.WithMaxSteps(cfg.MaxSteps),
		voyage.WithLifecycleHooks(metrics.Hooks()),
		voyage.WithLifecycleHooks(observability.LoggingHooks(logger)),
	}
	if locker != nil {
		opts = append(opts, voyage.WithLocker(locker))
	}
	opts = append(opts, extra...)

	agent, err := voyage.New(model, opts...)
	if err != nil {
		_ = app.Close()
		return nil, fmt.Errorf("error initializing agent: %w", err)
	}
	app.Agent = agent
	return app, nil
}

func (a *App) createStore(cfg config.Config) (ports.StateStore, ports.DistributedLocker, error) {
	var (
		store  ports.StateStore
		locker ports.DistributedLocker
	)

	switch cfg.Store {
	case config.StoreMemory:
		store = memory.NewStore()
	case config.StoreRedis:
		rs := redis.New(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB, redis.WithTTL(cfg.SessionTTL))
		a.closers = append(a.closers, rs.Close)
		store = rs
		locker = redis.NewLocker(rs.Client(), "voyage:")
	default:
		store = file.New(cfg.SessionDir)
	}

	var mws []middleware.Middleware
	if cfg.MaskPII {
		mws = append(mws, middleware.NewPIIMiddleware(middleware.PIIConfig{
			ArgKeys: piiArgKeys,
			Content: piiContent,
		}))
	}
	key, err := cfg.Key()
	if err != nil {
		return nil, nil, err
	}
	if key != nil {
		mws = append(mws, middleware.NewEncryptionMiddleware(middleware.EncryptionConfig{ActiveKey: key}))
	}

	return middleware.Chain(store, mws...), locker, nil
}

func createModel(cfg config.Config, logger *slog.Logger) (ports.ChatModel, bool) {
	if cfg.Offline || cfg.AnthropicAPIKey == "" {
		if !cfg.Offline {
			logger.Warn("ANTHROPIC_API_KEY is not set, using the offline model")
		}
		return scripted.New(), true
	}
	return anthropic.New(cfg.AnthropicAPIKey,
		anthropic.WithModel(cfg.Model),
		anthropic.WithMaxTokens(cfg.MaxTokens),
		anthropic.WithLogger(logger),
	), false
}
