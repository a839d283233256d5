package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	httptransport "github.com/spec-kit/sla-tracker/internal/api/http"
	"github.com/spec-kit/sla-tracker/internal/api/http/handlers"
	"github.com/spec-kit/sla-tracker/internal/auth"
	"github.com/spec-kit/sla-tracker/internal/config"
	"github.com/spec-kit/sla-tracker/internal/events"
	"github.com/spec-kit/sla-tracker/internal/observability"
	"github.com/spec-kit/sla-tracker/internal/persistence"
	"github.com/spec-kit/sla-tracker/internal/repository"
	"github.com/spec-kit/sla-tracker/internal/service"
	"github.com/spec-kit/sla-tracker/internal/worker"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger, err := observability.NewLogger(cfg.Logger)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logger.Sync() //nolint:errcheck

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	pg, err := persistence.NewPostgres(ctx, cfg.Postgres, logger)
	if err != nil {
		logger.Fatal("failed to connect postgres", zap.Error(err))
	}
	defer pg.Close()

	if cfg.Postgres.RunMigrations {
		if err := persistence.RunMigrations(ctx, pg.PoolHandle(), logger); err != nil {
			logger.Fatal("failed to run migrations", zap.Error(err))
		}
	}

	redis := persistence.NewRedis(cfg.Redis, logger)
	defer redis.Close()

	pool := pg.PoolHandle()
	teamRepo := repository.NewTeamRepository(pool)
	policyRepo := repository.NewPolicyRepository(pool)
	ticketRepo := repository.NewTicketRepository(pool)

	metrics := observability.NewMetrics()
	dispatcher := events.NewInMemoryDispatcher()

	authService := service.NewAuthService(*cfg, teamRepo)
	ticketService := service.NewTicketService(cfg.Tickets, service.TicketDependencies{
		TicketRepo: ticketRepo,
		TeamRepo:   teamRepo,
		PolicyRepo: policyRepo,
		Dispatcher: dispatcher,
	})
	policyService := service.NewPolicyService(policyRepo)
	metricsService := service.NewMetricsService(ticketRepo, policyRepo, persistence.NewMetricsCache(redis), logger)
	notificationService := service.NewNotificationService(dispatcher, logger, cfg.Notification)
	worker.StartNotificationWorker(notificationService)

	scheduler := worker.NewAlertScheduler(worker.SchedulerDependencies{
		TeamRepo:   teamRepo,
		TicketRepo: ticketRepo,
		PolicyRepo: policyRepo,
		Dispatcher: dispatcher,
		Dedup:      persistence.NewAlertDedup(redis),
		Metrics:    metrics,
		Logger:     logger,
	}, cfg.Alerts.CheckInterval(), cfg.Alerts.DedupTTL())
	scheduler.Start()
	defer scheduler.Stop()

	authMiddleware := auth.NewAuthMiddleware(authService.TokenManager(), teamRepo)

	app := fiber.New()
	httptransport.RegisterMiddlewares(app, logger, metrics, cfg.App.RequestTimeout())

	httptransport.RegisterRoutes(app, httptransport.RouteConfig{
		Health:         handlers.NewHealthHandler(cfg.App.Name, cfg.App.Version, pg, redis),
		Auth:           handlers.NewAuthHandler(authService),
		Tickets:        handlers.NewTicketsHandler(ticketService, metricsService),
		Policies:       handlers.NewPoliciesHandler(policyService),
		Metrics:        handlers.NewMetricsHandler(metricsService),
		AuthMiddleware: authMiddleware,
	})

	go func() {
		if err := app.Listen(cfg.App.Addr()); err != nil {
			logger.Fatal("fiber listen", zap.Error(err))
		}
	}()

	waitForShutdown(logger)

	_ = app.Shutdown()
}

func waitForShutdown(logger *zap.Logger) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigCh
	logger.Info("shutting down", zap.String("signal", sig.String()))
}
