// Package app wires configuration, infrastructure, and every domain package
// into the three runtime modes: api, worker, and migrate.
package app

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"

	"github.com/openintent-ai/openintent/internal/config"
	"github.com/openintent-ai/openintent/internal/httpserver"
	"github.com/openintent-ai/openintent/internal/platform"
	"github.com/openintent-ai/openintent/internal/telemetry"
	"github.com/openintent-ai/openintent/internal/version"
	"github.com/openintent-ai/openintent/pkg/event"
	"github.com/openintent-ai/openintent/pkg/governance"
	"github.com/openintent-ai/openintent/pkg/intent"
	"github.com/openintent-ai/openintent/pkg/lease"
	"github.com/openintent-ai/openintent/pkg/portfolio"
	"github.com/openintent-ai/openintent/pkg/retry"
	"github.com/openintent-ai/openintent/pkg/toolbroker"
)

// Run is the application entry point. It loads infrastructure and starts
// the mode selected by cfg.Mode.
func Run(ctx context.Context, cfg *config.Config) error {
	logger := telemetry.NewLogger(cfg.LogFormat, cfg.LogLevel)
	slog.SetDefault(logger)

	logger.Info("starting openintent",
		"mode", cfg.Mode,
		"listen", cfg.ListenAddr(),
		"version", version.Version,
	)

	if cfg.Mode == "migrate" {
		if err := platform.RunMigrations(cfg.DatabaseURL, cfg.MigrationsDir); err != nil {
			return fmt.Errorf("running migrations: %w", err)
		}
		logger.Info("migrations applied")
		return nil
	}

	shutdownTracer, err := telemetry.InitTracer(ctx, cfg.OTLPEndpoint, "openintent", version.Version)
	if err != nil {
		return fmt.Errorf("initializing tracer: %w", err)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownTracer(shutdownCtx); err != nil {
			logger.Error("shutting down tracer", "error", err)
		}
	}()

	db, err := platform.NewPostgresPool(ctx, cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("connecting to database: %w", err)
	}
	defer db.Close()

	rdb, err := platform.NewRedisClient(ctx, cfg.RedisURL)
	if err != nil {
		return fmt.Errorf("connecting to redis: %w", err)
	}
	defer func() {
		if err := rdb.Close(); err != nil {
			logger.Error("closing redis", "error", err)
		}
	}()

	metricsReg := telemetry.NewMetricsRegistry(telemetry.All()...)

	deps, err := buildDomain(cfg, db, logger)
	if err != nil {
		return fmt.Errorf("building domain layer: %w", err)
	}

	switch cfg.Mode {
	case "api":
		return runAPI(ctx, cfg, logger, db, rdb, metricsReg, deps)
	case "worker":
		return runWorker(ctx, logger, deps)
	default:
		return fmt.Errorf("unknown mode: %s", cfg.Mode)
	}
}

// domain holds every domain Store/Service/Handler, wired together and ready
// to mount or run.
type domain struct {
	broker *event.Broker

	intentH *intent.Handler

	leaseH  *lease.Handler
	sweeper *lease.Sweeper

	eventH *event.Handler

	portfolioH *portfolio.Handler
	recomputer *portfolio.Recomputer

	retryH *retry.Handler

	toolbrokerH *toolbroker.Handler

	governanceH *governance.Handler
}

func buildDomain(cfg *config.Config, db *pgxpool.Pool, logger *slog.Logger) (*domain, error) {
	broker := event.NewBroker(cfg.EventSubscriberQueueSize, logger)

	intentStore := intent.NewStore(db).WithPublisher(broker).WithIdempotencyWindow(cfg.IdempotencyWindow)
	intentH := intent.NewHandler(intentStore, logger)

	leaseStore := lease.NewStore(db).WithPublisher(broker)
	leaseSvc := lease.NewService(leaseStore)
	leaseH := lease.NewHandler(leaseSvc, logger)
	sweeper := lease.NewSweeper(leaseStore, cfg.LeaseSweepInterval, logger)

	eventStore := event.NewStore(db)
	eventH := event.NewHandler(eventStore, broker, logger)

	portfolioStore := portfolio.NewStore(db, intentStore).WithPublisher(broker)
	portfolioH := portfolio.NewHandler(portfolioStore, logger)
	recomputer := portfolio.NewRecomputer(portfolioStore, cfg.PortfolioRecomputeInterval, logger)

	retryStore := retry.NewStore(db, intentStore).WithPublisher(broker)
	retryH := retry.NewHandler(retryStore, logger)

	var vault *toolbroker.Vault
	if cfg.VaultKeyBase64 != "" {
		masterKey, err := base64.StdEncoding.DecodeString(cfg.VaultKeyBase64)
		if err != nil {
			return nil, fmt.Errorf("decoding VAULT_KEY_BASE64: %w", err)
		}
		vault, err = toolbroker.NewVault(masterKey)
		if err != nil {
			return nil, fmt.Errorf("initializing credential vault: %w", err)
		}
	} else {
		logger.Warn("VAULT_KEY_BASE64 not set; tool broker credential storage is disabled")
	}
	toolbrokerStore := toolbroker.NewStore(db, vault).WithPublisher(broker)
	toolbrokerRegistry := toolbroker.NewRegistry()
	toolbrokerSvc := toolbroker.NewService(toolbrokerStore, toolbrokerRegistry, toolbroker.StaticEndpoints{}, logger)
	toolbrokerH := toolbroker.NewHandler(toolbrokerStore, toolbrokerSvc, logger)

	governanceStore := governance.NewStore(db, intentStore).WithPublisher(broker)
	governanceNotifier := governance.NewNotifier(cfg.SlackBotToken, cfg.SlackGovernanceChannel, logger)
	governanceSvc := governance.NewService(governanceStore, governanceNotifier)
	governanceH := governance.NewHandler(governanceSvc, logger)

	return &domain{
		broker:      broker,
		intentH:     intentH,
		leaseH:      leaseH,
		sweeper:     sweeper,
		eventH:      eventH,
		portfolioH:  portfolioH,
		recomputer:  recomputer,
		retryH:      retryH,
		toolbrokerH: toolbrokerH,
		governanceH: governanceH,
	}, nil
}

// mountIntents composes every per-intent resource handler onto a single
// router so that /intents/{intentID}/... can be shared across packages
// without conflicting chi mounts at the same path.
func mountIntents(deps *domain) chi.Router {
	r := chi.NewRouter()
	deps.intentH.Mount(r)
	r.Route("/{intentID}", func(r chi.Router) {
		deps.retryH.Mount(r)
		deps.governanceH.Mount(r)
		r.Mount("/leases", deps.leaseH.Routes())
		r.Mount("/tools", deps.toolbrokerH.InvokeRoutes())
		r.Mount("/events", deps.eventH.Routes())
	})
	return r
}

func runAPI(ctx context.Context, cfg *config.Config, logger *slog.Logger, db *pgxpool.Pool, rdb *redis.Client, metricsReg *prometheus.Registry, deps *domain) error {
	srv := httpserver.NewServer(cfg, logger, db, rdb, metricsReg)

	srv.APIRouter.Mount("/intents", mountIntents(deps))
	srv.APIRouter.Mount("/portfolios", deps.portfolioH.Routes())
	srv.APIRouter.Mount("/tools", deps.toolbrokerH.Routes())
	srv.APIRouter.Mount("/streams/events", deps.eventH.StreamRoutes())

	httpSrv := &http.Server{
		Addr:         cfg.ListenAddr(),
		Handler:      srv,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("api server listening", "addr", cfg.ListenAddr())
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("http server: %w", err)
		}
		close(errCh)
	}()

	select {
	case <-ctx.Done():
		logger.Info("shutting down api server")
		deps.broker.Shutdown()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return httpSrv.Shutdown(shutdownCtx)
	case err := <-errCh:
		return err
	}
}

func runWorker(ctx context.Context, logger *slog.Logger, deps *domain) error {
	logger.Info("worker started")

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error { return deps.sweeper.Run(ctx) })
	g.Go(func() error { return deps.recomputer.Run(ctx) })

	return g.Wait()
}
