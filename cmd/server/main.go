package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	fiberlogger "github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/jackc/pgx/v5/pgxpool"
	"golang.org/x/sync/errgroup"

	"github.com/fleetcore/backend/internal/config"
	"github.com/fleetcore/backend/internal/delivery/http"
	"github.com/fleetcore/backend/internal/delivery/mqtt"
	"github.com/fleetcore/backend/internal/domain"
	"github.com/fleetcore/backend/internal/repository/postgres"
	"github.com/fleetcore/backend/internal/repository/redis"
	"github.com/fleetcore/backend/internal/service"
	"github.com/fleetcore/backend/pkg/log"
)

func main() {
	// Load environment variables
	cfg, dotenv := config.Load()

	opts := log.NewOptions()
	opts.Name = "fleet"
	opts.Level = cfg.LogLevel
	opts.Format = cfg.LogFormat
	opts.EnableColor = !cfg.IsProduction()
	log.Init(opts)
	logger := log.Std()
	defer func() { _ = logger.Sync() }()

	if !dotenv {
		logger.Info("no .env file found, using system environment")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Dependency Injection: Repositories
	dataRepo, closeRepo := openRepository(ctx, cfg, logger)
	defer closeRepo()

	containment, closeContainment := openContainmentStore(cfg, logger)
	defer closeContainment()

	// Dependency Injection: Services
	weatherSvc := service.NewWeatherService(cfg.OpenWeatherAPIKey)
	trafficSvc := service.NewTrafficService(cfg.TomTomAPIKey)
	profileSvc := service.NewDriverProfileService(dataRepo, logger)
	complianceSvc := service.NewComplianceService(dataRepo, logger)
	etaSvc := service.NewETAService(trafficSvc, weatherSvc, profileSvc, logger)
	conditionsSvc := service.NewConditionsService(trafficSvc, weatherSvc)
	geofenceSvc := service.NewGeofenceService(dataRepo, dataRepo, containment, logger,
		service.WithAlertHistory(cfg.AlertHistorySize))

	if err := geofenceSvc.LoadZones(ctx); err != nil {
		logger.Error(err, "failed to load geofence zones")
		os.Exit(1)
	}

	alertLog := logger.WithName("alerts")
	geofenceSvc.Subscribe(func(a domain.GeofenceAlert) {
		alertLog.Info(a.Message, "alert_id", a.ID, "vehicle_id", a.VehicleID, "zone_id", a.ZoneID, "severity", a.Severity)
	})

	g, gctx := errgroup.WithContext(ctx)

	if cfg.MQTTEnabled {
		if err := startMQTT(gctx, g, cfg, geofenceSvc, logger); err != nil {
			logger.Error(err, "mqtt disabled")
		}
	}

	// Fiber App
	app := fiber.New(fiber.Config{
		AppName:      "Fleet API v1.0",
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		ErrorHandler: http.ErrorHandler,
	})

	// Middleware
	app.Use(recover.New())
	app.Use(fiberlogger.New(fiberlogger.Config{
		Format: "[${time}] ${status} - ${method} ${path} (${latency})\n",
	}))
	app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowMethods: "GET,POST,PUT,PATCH,DELETE,OPTIONS",
		AllowHeaders: "Origin,Content-Type,Accept,Authorization",
	}))

	// Routes
	http.SetupRoutes(app, http.Services{
		Compliance: complianceSvc,
		Geofence:   geofenceSvc,
		ETA:        etaSvc,
		Profiles:   profileSvc,
		Conditions: conditionsSvc,
		Repo:       dataRepo,
	}, logger)

	g.Go(func() error {
		logger.Info("server starting", "port", cfg.Port)
		return app.Listen(":" + cfg.Port)
	})

	// Graceful shutdown
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down server")
		return app.ShutdownWithTimeout(cfg.ShutdownTimeout)
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error(err, "server stopped with error")
		return
	}
	logger.Info("server exited gracefully")
}

// openRepository connects to PostgreSQL, falling back to the in-memory
// repository when no database is reachable.
func openRepository(ctx context.Context, cfg *config.Config, logger log.Logger) (service.DataRepository, func()) {
	if cfg.DatabaseURL == "" {
		logger.Warn("DATABASE_URL not set, running with in-memory data only")
		return postgres.NewMockRepository(), func() {}
	}

	connectCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	pool, err := pgxpool.New(connectCtx, cfg.DatabaseURL)
	if err == nil {
		err = pool.Ping(connectCtx)
		if err != nil {
			pool.Close()
		}
	}
	if err != nil {
		logger.Warn("could not connect to database, running with in-memory data only", "error", err.Error())
		return postgres.NewMockRepository(), func() {}
	}

	repo := postgres.NewPostgresRepository(pool)
	if err := repo.Migrate(connectCtx); err != nil {
		logger.Error(err, "failed to migrate database")
		pool.Close()
		os.Exit(1)
	}

	logger.Info("connected to PostgreSQL")
	return repo, pool.Close
}

// openContainmentStore connects to redis when enabled, falling back to
// process memory.
func openContainmentStore(cfg *config.Config, logger log.Logger) (domain.ContainmentStore, func()) {
	if !cfg.RedisEnabled {
		return service.NewMemoryContainmentStore(), func() {}
	}

	store, err := redis.NewContainmentStore(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB, logger)
	if err != nil {
		logger.Warn("redis unavailable, keeping containment in memory", "error", err.Error())
		return service.NewMemoryContainmentStore(), func() {}
	}

	logger.Info("connected to redis", "addr", cfg.RedisAddr)
	return store, func() {
		if err := store.Close(); err != nil {
			logger.Error(err, "failed to close redis")
		}
	}
}

func startMQTT(ctx context.Context, g *errgroup.Group, cfg *config.Config, geofenceSvc *service.GeofenceService, logger log.Logger) error {
	client, err := mqtt.NewClient(mqtt.Config{
		BrokerURL: cfg.MQTTBrokerURL,
		ClientID:  cfg.MQTTClientID,
		Username:  cfg.MQTTUsername,
		Password:  cfg.MQTTPassword,
	}, logger)
	if err != nil {
		return err
	}
	if err := client.Start(ctx); err != nil {
		return err
	}

	// Subscribe blocks until the broker is reachable
	positions := mqtt.NewPositionSubscriber(geofenceSvc, logger)
	g.Go(func() error {
		if err := positions.Start(ctx, client, cfg.MQTTPositionTopic); err != nil {
			logger.Warn("position subscription failed", "error", err.Error())
		}
		return nil
	})

	alerts := mqtt.NewAlertPublisher(client, cfg.MQTTAlertTopic, logger)
	geofenceSvc.Subscribe(alerts.Handle)

	g.Go(func() error { return alerts.Run(ctx) })
	g.Go(func() error {
		<-ctx.Done()
		disconnectCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		client.Disconnect(disconnectCtx)
		return nil
	})
	return nil
}
