// Package server initializes and runs the homesite backend: it selects the
// credential store, wires the auth service, and runs the HTTP and gRPC
// servers until a shutdown signal arrives.
package server

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/dmitrijs2005/homesite/internal/logging"
	"github.com/dmitrijs2005/homesite/internal/server/config"
	"github.com/dmitrijs2005/homesite/internal/server/httpapi"
	"github.com/dmitrijs2005/homesite/internal/server/metrics"
	"github.com/dmitrijs2005/homesite/internal/server/ratelimit"
	"github.com/dmitrijs2005/homesite/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/homesite/internal/server/services"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/redis/go-redis/v9"

	gs "github.com/dmitrijs2005/homesite/internal/server/grpc"
)

type App struct {
	config      *config.Config
	logger      logging.Logger
	db          *sql.DB
	redis       *redis.Client
	userService *services.UserService
	metrics     *metrics.Metrics
	limiter     ratelimit.Limiter
}

// openDB is a seam for tests.
var openDB = func(dsn string) (*sql.DB, error) {
	return sql.Open(repomanager.DriverName, dsn)
}

// NewApp connects storage and builds the services. With an empty DSN the
// in-memory store is used and nothing survives a restart.
func NewApp(ctx context.Context, c *config.Config, logger logging.Logger) (*App, error) {

	app := &App{config: c, logger: logger.With("module", "app"), metrics: metrics.New()}

	if c.UsesDefaultSecret() {
		app.logger.Warn(ctx, "using the development secret key, set HOMESITE_SECRET_KEY in production")
	}

	rm, err := app.initStorage(ctx)
	if err != nil {
		return nil, err
	}

	app.userService = services.NewUserService(app.db, rm, c, logger)
	app.userService.SetObserver(app.metrics)

	app.initLimiter(ctx)

	return app, nil
}

func (app *App) initStorage(ctx context.Context) (repomanager.RepositoryManager, error) {
	if app.config.DatabaseDSN == "" {
		app.logger.Warn(ctx, "no database DSN configured, using in-memory store")
		return repomanager.NewMemoryRepositoryManager(), nil
	}

	db, err := openDB(app.config.DatabaseDSN)
	if err != nil {
		return nil, fmt.Errorf("db init error: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("db ping error: %w", err)
	}

	rm := repomanager.NewPostgresRepositoryManager()
	if err := rm.RunMigrations(ctx, db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("migrations error: %w", err)
	}

	app.db = db
	app.metrics.Registry().MustRegister(collectors.NewDBStatsCollector(db, "homesite"))
	return rm, nil
}

func (app *App) initLimiter(ctx context.Context) {
	c := app.config
	if c.AuthRateLimit <= 0 {
		app.logger.Info(ctx, "auth rate limiting disabled")
		return
	}

	if c.RedisAddr != "" {
		app.redis = redis.NewClient(&redis.Options{
			Addr:     c.RedisAddr,
			Password: c.RedisPassword,
			DB:       c.RedisDB,
		})
		if err := app.redis.Ping(ctx).Err(); err != nil {
			app.logger.Warn(ctx, "redis unreachable, limiter fails open until it recovers", "addr", c.RedisAddr, "error", err)
		}
		app.limiter = ratelimit.NewRedisLimiter(app.redis, c.AuthRateLimit, c.AuthRateWindow)
		return
	}

	app.limiter = ratelimit.NewMemoryLimiter(c.AuthRateLimit, c.AuthRateWindow)
}

func (app *App) routerConfig() *httpapi.RouterConfig {
	return &httpapi.RouterConfig{
		Users:       app.userService,
		Logger:      app.logger,
		Metrics:     app.metrics,
		AuthLimiter: app.limiter,
	}
}

func (app *App) initSignalHandler(cancelFunc context.CancelFunc) {
	// Channel to catch OS signals.
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	go func() {
		<-sigs
		cancelFunc()
	}()
}

func (app *App) startHTTPServer(ctx context.Context, cancelFunc context.CancelFunc) {
	s := httpapi.NewHTTPServer(app.config.EndpointAddrHTTP, httpapi.NewRouter(app.routerConfig()), app.logger, app.config.ShutdownTimeout)

	if err := s.Run(ctx); err != nil {
		app.logger.Error(ctx, "http server failed", "error", err)
		cancelFunc()
	}
}

func (app *App) startGRPCServer(ctx context.Context, cancelFunc context.CancelFunc) {
	s := gs.NewGRPCServer(app.config.EndpointAddrGRPC, app.logger, app.userService, app.metrics)
	if app.limiter != nil {
		s.SetLimiter(app.limiter)
	}

	if err := s.Run(ctx); err != nil {
		app.logger.Error(ctx, "grpc server failed", "error", err)
		cancelFunc()
	}
}

// Run serves until ctx is canceled or a termination signal arrives, then
// releases storage and cache connections.
func (app *App) Run(ctx context.Context) {

	ctx, cancelFunc := context.WithCancel(ctx)
	defer cancelFunc()

	app.logger.Info(ctx, "Starting app...")

	app.initSignalHandler(cancelFunc)

	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()
		app.startHTTPServer(ctx, cancelFunc)
	}()

	if app.config.EndpointAddrGRPC != "" {
		wg.Add(1)
		go func() {
			defer wg.Done()
			app.startGRPCServer(ctx, cancelFunc)
		}()
	}

	wg.Wait()

	if err := app.Close(); err != nil {
		app.logger.Error(ctx, "close failed", "error", err)
	}
	app.logger.Info(ctx, "App stopped")
}

// Close releases the database and Redis connections, if any.
func (app *App) Close() error {
	var errs []error
	if app.db != nil {
		errs = append(errs, app.db.Close())
		app.db = nil
	}
	if app.redis != nil {
		errs = append(errs, app.redis.Close())
		app.redis = nil
	}
	return errors.Join(errs...)
}
