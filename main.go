// Package main provides the entry point of the professional verification service
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/amirphl/vetverify/app/handlers"
	"github.com/amirphl/vetverify/app/middleware"
	"github.com/amirphl/vetverify/app/router"
	"github.com/amirphl/vetverify/app/scheduler"
	"github.com/amirphl/vetverify/app/services"
	businessflow "github.com/amirphl/vetverify/business_flow"
	"github.com/amirphl/vetverify/config"
	_ "github.com/amirphl/vetverify/docs"
	"github.com/amirphl/vetverify/logger"
	"github.com/amirphl/vetverify/repository"
	"github.com/gofiber/fiber/v3"
	"github.com/redis/go-redis/v9"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

// @title Professional Verification API
// @version 1.0
// @description Verification workflow for veterinarians and vendors
// @BasePath /
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization

const notificationBuffer = 32

// Application represents the main application structure
type Application struct {
	router    *router.FiberRouter
	config    *config.ProductionConfig
	server    *fiber.App
	stopFuncs []func()
}

func main() {
	cfg, err := config.LoadProductionConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	log, logCloser := logger.Init(cfg.Logging)
	defer logCloser.Close()

	log.Info("Starting professional verification service",
		"environment", cfg.Deployment.Environment,
		"version", cfg.Deployment.Version)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	app, err := initializeApplication(ctx, cfg, log)
	if err != nil {
		log.Error("Failed to initialize application", "error", err)
		os.Exit(1)
	}

	app.router.SetupRoutes()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		address := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
		log.Info("Server starting", "address", address)

		if err := app.server.Listen(address); err != nil {
			log.Error("Failed to start server", "error", err)
			os.Exit(1)
		}
	}()

	<-sigChan
	log.Info("Shutting down gracefully...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer shutdownCancel()

	if err := app.server.ShutdownWithContext(shutdownCtx); err != nil {
		log.Error("Error during shutdown", "error", err)
	}

	// Stop background workers in reverse start order
	for i := len(app.stopFuncs) - 1; i >= 0; i-- {
		app.stopFuncs[i]()
	}
	cancel()

	log.Info("Server stopped")
}

// initializeDatabase initializes the database connection with connection pooling
func initializeDatabase(cfg config.DatabaseConfig, log *slog.Logger) (*gorm.DB, error) {
	dsn := fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		cfg.Host, cfg.Port, cfg.User, cfg.Password, cfg.Name, cfg.SSLMode)

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get underlying sql.DB: %w", err)
	}

	sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	sqlDB.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	sqlDB.SetConnMaxIdleTime(cfg.ConnMaxIdleTime)

	if err := sqlDB.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	log.Info("Database connection established",
		"max_open_conns", cfg.MaxOpenConns,
		"max_idle_conns", cfg.MaxIdleConns)

	if cfg.AutoMigrate {
		if err := repository.AutoMigrate(db); err != nil {
			return nil, err
		}
		log.Info("Database schema migrated")
	}

	return db, nil
}

// initializeCache initializes the Cache client and verifies connectivity
func initializeCache(cfg config.CacheConfig, log *slog.Logger) (*redis.Client, error) {
	if !cfg.Enabled || cfg.Provider != "redis" {
		return nil, nil
	}

	opt, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		return nil, fmt.Errorf("invalid redis url: %w", err)
	}
	opt.DB = cfg.RedisDB

	rc := redis.NewClient(opt)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := rc.Ping(ctx).Err(); err != nil {
		_ = rc.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	log.Info("Redis connection established", "db", cfg.RedisDB)
	return rc, nil
}

// startCacheHealthMonitor periodically pings Redis. The returned cancel function stops the monitor.
func startCacheHealthMonitor(parent context.Context, client *redis.Client, interval time.Duration, log *slog.Logger) func() {
	monitorCtx, cancel := context.WithCancel(parent)
	if interval <= 0 {
		interval = 30 * time.Second
	}
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-monitorCtx.Done():
				return
			case <-ticker.C:
				ctx, c := context.WithTimeout(context.Background(), 3*time.Second)
				if err := client.Ping(ctx).Err(); err != nil {
					log.Warn("Redis healthcheck failed", "error", err)
				}
				c()
			}
		}
	}()
	return cancel
}

// initializeEmailProvider returns the AMQP publisher when messaging is on, a logging provider otherwise
func initializeEmailProvider(cfg config.MessagingConfig, log *slog.Logger) (services.EmailProvider, func(), error) {
	if !cfg.Enabled {
		return services.NewLogEmailProvider(), func() {}, nil
	}
	publisher, err := services.NewAMQPEmailPublisher(cfg)
	if err != nil {
		return nil, nil, err
	}
	log.Info("Email publisher connected", "exchange", cfg.EmailExchange)
	return publisher, publisher.Close, nil
}

// initializeDocumentStore returns nil when storage is disabled
func initializeDocumentStore(ctx context.Context, cfg config.StorageConfig, log *slog.Logger) (services.DocumentStore, error) {
	if !cfg.Enabled {
		log.Warn("Document storage disabled, uploads will be rejected")
		return nil, nil
	}
	store, err := services.NewMinioDocumentStore(cfg)
	if err != nil {
		return nil, err
	}
	ensureCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := store.EnsureBucket(ensureCtx); err != nil {
		return nil, err
	}
	log.Info("Document storage ready", "bucket", cfg.Bucket)
	return store, nil
}

// initializeApplication initializes the main application components
func initializeApplication(ctx context.Context, cfg *config.ProductionConfig, log *slog.Logger) (*Application, error) {
	var stopFuncs []func()

	db, err := initializeDatabase(cfg.Database, log)
	if err != nil {
		return nil, err
	}
	stopFuncs = append(stopFuncs, func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})

	rc, err := initializeCache(cfg.Cache, log)
	if err != nil {
		return nil, err
	}
	if rc != nil {
		stopFuncs = append(stopFuncs, func() { _ = rc.Close() })
		stopFuncs = append(stopFuncs, startCacheHealthMonitor(ctx, rc, 30*time.Second, log))
	}

	// Repositories
	accountRepo := repository.NewAccountRepository(db)
	profileRepo := repository.NewProfessionalProfileRepository(db)
	documentRepo := repository.NewVerificationDocumentRepository(db)
	decisionRepo := repository.NewReviewDecisionRepository(db)
	auditRepo := repository.NewAuditLogRepository(db)
	notificationRepo := repository.NewNotificationRepository(db)
	queueRepo := repository.NewReviewQueueRepository(db)
	txManager := repository.NewGormTxManager(db)

	// Services
	tokenService, err := services.NewTokenService(
		cfg.JWT.Issuer,
		cfg.JWT.Audience,
		cfg.JWT.Leeway,
		cfg.JWT.UseRSAKeys,
		cfg.JWT.PublicKey,
		cfg.JWT.SecretKey,
		rc,
		cfg.Cache.RedisPrefix,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize token service: %w", err)
	}

	var locker businessflow.AccountLocker
	if cfg.Verification.DistributedAccountLock && rc != nil {
		locker = services.NewRedisAccountLocker(rc, cfg.Cache.RedisPrefix)
		log.Info("Using distributed account locks")
	} else {
		locker = businessflow.NewKeyedAccountLocker()
	}

	emitter := services.NewNotificationEmitter(notificationBuffer)
	var broadcaster services.Broadcaster = emitter
	if rc != nil {
		bus := services.NewRedisNotificationBus(rc, cfg.Cache.RedisPrefix, emitter)
		busCtx, busCancel := context.WithCancel(ctx)
		go func() {
			if err := bus.Run(busCtx); err != nil && busCtx.Err() == nil {
				log.Error("Notification bus stopped", "error", err)
			}
		}()
		stopFuncs = append(stopFuncs, busCancel)
		broadcaster = bus
	}

	emailProvider, closeEmail, err := initializeEmailProvider(cfg.Messaging, log)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize email publisher: %w", err)
	}
	stopFuncs = append(stopFuncs, closeEmail)

	hub := services.NewNotificationHub(notificationRepo, emailProvider, broadcaster)

	store, err := initializeDocumentStore(ctx, cfg.Storage, log)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize document storage: %w", err)
	}

	// Business flows
	verificationFlow := businessflow.NewVerificationFlow(
		accountRepo,
		profileRepo,
		documentRepo,
		decisionRepo,
		auditRepo,
		txManager,
		store,
		locker,
		hub,
		cfg.Verification,
	)
	reviewQueueFlow := businessflow.NewReviewQueueFlow(queueRepo, accountRepo, auditRepo, verificationFlow, cfg.Verification)
	notificationFlow := businessflow.NewNotificationFlow(accountRepo, notificationRepo, auditRepo, emitter)
	documentFlow := businessflow.NewDocumentFlow(
		accountRepo,
		documentRepo,
		auditRepo,
		store,
		locker,
		hub,
		cfg.Verification,
		cfg.Storage.PresignExpiry,
	)

	// Handlers
	h := router.Handlers{
		Verification: handlers.NewVerificationHandler(verificationFlow),
		ReviewQueue:  handlers.NewReviewQueueHandler(reviewQueueFlow),
		Notification: handlers.NewNotificationHandler(notificationFlow),
		Document:     handlers.NewDocumentHandler(documentFlow),
	}
	authMiddleware := middleware.NewAuthMiddleware(tokenService)
	fiberRouter := router.NewFiberRouter(cfg, h, authMiddleware)

	if cfg.Scheduler.Enabled {
		sched := scheduler.NewVerificationScheduler(verificationFlow, documentFlow, cfg.Scheduler, log)
		stop, err := sched.Start(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to start scheduler: %w", err)
		}
		stopFuncs = append(stopFuncs, stop)
	}

	return &Application{
		router:    fiberRouter,
		config:    cfg,
		server:    fiberRouter.GetApp(),
		stopFuncs: stopFuncs,
	}, nil
}
