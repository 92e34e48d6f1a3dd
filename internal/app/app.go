// Package app wires the coffee machine's dependencies from configuration.
package app

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"coffee-machine/internal/config"
	"coffee-machine/internal/database"
	"coffee-machine/internal/events"
	"coffee-machine/internal/machine"
	"coffee-machine/internal/menu"
	"coffee-machine/internal/metrics"
	"coffee-machine/internal/observability"
	"coffee-machine/internal/session"

	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

const (
	janitorInterval = 10 * time.Minute
	salesRetention  = 90 // days
)

// App holds the application's dependencies.
type App struct {
	Config      *config.Config
	Logger      *zap.Logger
	Coordinator *machine.Coordinator
	Sessions    *session.Manager
	Tokens      *session.Tokens
	Metrics     *metrics.Store
	Publisher   *events.Publisher // nil without a Kafka broker

	db              *database.DB
	redis           *redis.Client
	tracerProvider  trace.TracerProvider
	shutdownTracing func(context.Context) error
	wg              sync.WaitGroup
}

// New creates and initializes a new App instance. Close releases what it
// opened.
func New(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*App, error) {
	a := &App{Config: cfg, Logger: logger}

	if cfg.SecretGenerated {
		logger.Warn("SESSION_SECRET not set, using a random secret; sessions will not survive a restart")
	}

	tp, shutdown, err := observability.SetupTracing(ctx, observability.TracingConfig{
		Endpoint:   cfg.OtelEndpoint,
		AuthHeader: cfg.OtelAuthHeader,
	})
	if err != nil {
		return nil, err
	}
	a.tracerProvider = tp
	a.shutdownTracing = shutdown

	if err := a.init(ctx); err != nil {
		a.Close(ctx)
		return nil, err
	}
	return a, nil
}

func (a *App) init(ctx context.Context) error {
	cfg := a.Config

	catalog, err := menu.Default()
	if err != nil {
		return fmt.Errorf("failed to load menu: %w", err)
	}
	a.Coordinator = machine.NewCoordinator(catalog,
		machine.WithLogger(a.Logger.Named("machine")),
		machine.WithTracer(a.tracerProvider.Tracer("coffee-machine/machine")),
	)

	// Sales are always kept in SQLite, whatever holds the sessions.
	a.db, err = database.NewDB(cfg.DatabasePath, a.Logger)
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	a.Metrics = metrics.NewStore(a.db.SQL)

	store, err := a.newSessionStore(ctx)
	if err != nil {
		return err
	}
	a.Sessions = session.NewManager(store, a.Logger.Named("session"))
	a.Tokens = session.NewTokens(cfg.SessionSecret, cfg.SessionTTL)

	if cfg.KafkaBroker != "" {
		producer, err := events.NewKafkaProducer(cfg.KafkaBroker, cfg.KafkaSalesTopic, a.tracerProvider)
		if err != nil {
			return err
		}
		a.Publisher = events.NewPublisher(producer, a.Logger.Named("events"))
		a.Logger.Info("publishing sales to kafka",
			zap.String("broker", cfg.KafkaBroker),
			zap.String("topic", cfg.KafkaSalesTopic),
		)
	}
	return nil
}

func (a *App) newSessionStore(ctx context.Context) (session.Store, error) {
	cfg := a.Config
	a.Logger.Info("session store selected", zap.String("kind", cfg.SessionStore), zap.Duration("ttl", cfg.SessionTTL))

	switch cfg.SessionStore {
	case config.StoreMemory:
		return session.NewMemoryStore(cfg.SessionTTL), nil
	case config.StoreFile:
		store, err := session.NewFileStore(cfg.SessionDir, cfg.SessionTTL)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize file session store: %w", err)
		}
		return store, nil
	case config.StoreSQLite:
		return session.NewSQLiteStore(a.db.SQL, cfg.SessionTTL), nil
	case config.StoreRedis:
		a.redis = session.NewRedisClient(cfg.RedisAddr)
		store := session.NewRedisStore(a.redis, cfg.SessionTTL)
		if err := store.Ping(ctx); err != nil {
			return nil, err
		}
		return store, nil
	default:
		return nil, fmt.Errorf("unknown session store %q", cfg.SessionStore)
	}
}

// SaleRecorders returns every sink a fulfilled order goes to.
func (a *App) SaleRecorders() []machine.SaleRecorder {
	recorders := []machine.SaleRecorder{a.Metrics}
	if a.Publisher != nil {
		recorders = append(recorders, a.Publisher)
	}
	return recorders
}

// StartBackground runs the session janitor and the sales retention sweep
// until ctx is done. Close waits for them.
func (a *App) StartBackground(ctx context.Context) {
	a.wg.Add(2)
	go func() {
		defer a.wg.Done()
		a.Sessions.RunJanitor(ctx, janitorInterval)
	}()
	go func() {
		defer a.wg.Done()
		a.runSalesCleanup(ctx, 24*time.Hour)
	}()
}

func (a *App) runSalesCleanup(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := a.Metrics.Cleanup(ctx, salesRetention)
			if err != nil {
				a.Logger.Error("sales cleanup failed", zap.Error(err))
				continue
			}
			a.Logger.Info("old sales removed", zap.Int64("count", n))
		}
	}
}

// Close stops background work and releases connections. Call it after the
// context given to StartBackground is cancelled.
func (a *App) Close(ctx context.Context) error {
	a.wg.Wait()

	var errs error
	if a.Publisher != nil {
		errs = errors.Join(errs, a.Publisher.Close())
	}
	if a.redis != nil {
		errs = errors.Join(errs, a.redis.Close())
	}
	if a.db != nil {
		errs = errors.Join(errs, a.db.Close())
	}
	if a.shutdownTracing != nil {
		errs = errors.Join(errs, a.shutdownTracing(ctx))
	}
	return errs
}
