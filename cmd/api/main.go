package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	httptransport "github.com/spec-kit/collab-service/internal/api/http"
	"github.com/spec-kit/collab-service/internal/api/http/handlers"
	"github.com/spec-kit/collab-service/internal/auth"
	"github.com/spec-kit/collab-service/internal/config"
	"github.com/spec-kit/collab-service/internal/events"
	"github.com/spec-kit/collab-service/internal/observability"
	"github.com/spec-kit/collab-service/internal/persistence"
	"github.com/spec-kit/collab-service/internal/presence"
	"github.com/spec-kit/collab-service/internal/repository"
	"github.com/spec-kit/collab-service/internal/service"
	"github.com/spec-kit/collab-service/internal/worker"
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

	redis := persistence.NewRedis(ctx, cfg.Redis, logger)
	defer redis.Close()

	var userRepo repository.UserRepository
	if pool := pg.PoolHandle(); pool != nil {
		userRepo = repository.NewUserRepository(pool)
	} else {
		logger.Warn("using in-memory user store; accounts are lost on restart")
		userRepo = repository.NewMemoryUserRepository()
	}

	var registry presence.Registry
	switch cfg.Presence.Backend {
	case "redis":
		registry = presence.NewRedisRegistry(redis.Client, cfg.Presence.RoomTTL())
	default:
		registry = presence.NewMemoryRegistry()
	}

	metrics := observability.NewMetrics()
	dispatcher := events.NewInMemoryDispatcher(logger)
	worker.StartNotificationWorker(service.NewNotificationService(dispatcher, logger, cfg.Notification), logger)

	authService := service.NewAuthService(*cfg, service.AuthDependencies{
		UserRepo:   userRepo,
		Dispatcher: dispatcher,
		Logger:     logger,
	})
	authorizer := auth.NewAuthorizer(authService.TokenManager(), userRepo, logger)
	authMiddleware := auth.NewAuthMiddleware(authorizer, metrics)

	app := fiber.New(fiber.Config{
		AppName:      cfg.App.Name,
		ErrorHandler: httptransport.ErrorHandler(logger, metrics),
	})
	httptransport.RegisterMiddlewares(app, logger, metrics, cfg.App.RequestTimeout())

	dependencies := map[string]handlers.Pinger{"redis": redis}
	if pg.PoolHandle() != nil {
		dependencies["postgres"] = pg
	}

	httptransport.RegisterRoutes(app, httptransport.RouteConfig{
		Health:         handlers.NewHealthHandler(cfg.App.Name, cfg.App.Version, dependencies, metrics),
		Users:          handlers.NewUsersHandler(authService, service.NewUserService(userRepo)),
		Presence:       handlers.NewPresenceHandler(service.NewPresenceService(registry, dispatcher, logger)),
		AuthMiddleware: authMiddleware,
	})

	go func() {
		if err := app.Listen(cfg.App.Addr()); err != nil {
			logger.Fatal("fiber listen", zap.Error(err))
		}
	}()

	waitForShutdown(logger)

	if err := app.Shutdown(); err != nil {
		logger.Error("shutdown", zap.Error(err))
	}
}

func waitForShutdown(logger *zap.Logger) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigCh
	logger.Info("shutting down", zap.String("signal", sig.String()))
}
