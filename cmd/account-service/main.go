package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/prohmpiriya/role-portal/internal/di"
	"github.com/prohmpiriya/role-portal/internal/events"
	"github.com/prohmpiriya/role-portal/internal/metrics"
	"github.com/prohmpiriya/role-portal/pkg/config"
	"github.com/prohmpiriya/role-portal/pkg/database"
	"github.com/prohmpiriya/role-portal/pkg/logger"
	"github.com/prohmpiriya/role-portal/pkg/redis"
	"github.com/prohmpiriya/role-portal/pkg/telemetry"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	if err := logger.Init(&logger.Config{
		Level:       cfg.App.LogLevel,
		ServiceName: cfg.App.Name,
		Development: cfg.IsDevelopment(),
	}); err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer logger.Sync()

	appLog := logger.Get()
	appLog.Info("Starting account service", zap.String("version", cfg.App.Version), zap.String("environment", cfg.App.Environment))
	if cfg.UsesDevSecret() {
		appLog.Warn("JWT_SECRET not set, using dev-only default (NEVER use in production)")
	}

	ctx := context.Background()

	telemetryCfg := &telemetry.Config{
		Enabled:        cfg.OTel.Enabled,
		ServiceName:    cfg.OTel.ServiceName,
		ServiceVersion: cfg.App.Version,
		Environment:    cfg.App.Environment,
		CollectorAddr:  cfg.OTel.CollectorAddr,
		SampleRatio:    cfg.OTel.SampleRatio,
	}
	if _, err := telemetry.Init(ctx, telemetryCfg); err != nil {
		appLog.Warn("Failed to initialize telemetry", zap.Error(err))
	} else if telemetryCfg.Enabled {
		appLog.Info("Telemetry initialized", zap.String("collector", telemetryCfg.CollectorAddr))
	}
	defer telemetry.Shutdown(ctx)

	var db *database.PostgresDB
	if cfg.Database.Enabled {
		dbCfg := database.DefaultPostgresConfig()
		dbCfg.Host = cfg.Database.Host
		dbCfg.Port = cfg.Database.Port
		dbCfg.User = cfg.Database.User
		dbCfg.Password = cfg.Database.Password
		dbCfg.Database = cfg.Database.DBName
		dbCfg.SSLMode = cfg.Database.SSLMode
		dbCfg.MaxConns = int32(cfg.Database.MaxConns)
		dbCfg.MinConns = int32(cfg.Database.MinConns)
		dbCfg.MaxConnLifetime = cfg.Database.ConnMaxLifetime
		dbCfg.MaxConnIdleTime = cfg.Database.ConnMaxIdleTime
		dbCfg.EnableTracing = cfg.OTel.Enabled
		dbCfg.OnRetry = logRetry(appLog, "postgres")

		db, err = database.NewPostgres(ctx, dbCfg)
		if err != nil {
			appLog.Fatal("Database connection failed", zap.Error(err))
		}
		defer db.Close()
		appLog.Info("Database connected", zap.Int32("min_conns", dbCfg.MinConns), zap.Int32("max_conns", dbCfg.MaxConns))
	} else {
		appLog.Warn("DATABASE_ENABLED is false, using the in-memory credential store")
	}

	var redisClient *redis.Client
	if cfg.Redis.Enabled {
		redisCfg := redis.DefaultConfig()
		redisCfg.Host = cfg.Redis.Host
		redisCfg.Port = cfg.Redis.Port
		redisCfg.Password = cfg.Redis.Password
		redisCfg.DB = cfg.Redis.DB
		redisCfg.PoolSize = cfg.Redis.PoolSize
		redisCfg.OnRetry = logRetry(appLog, "redis")

		redisClient, err = redis.NewClient(ctx, redisCfg)
		if err != nil {
			appLog.Fatal("Redis connection failed", zap.Error(err))
		}
		defer redisClient.Close()
		appLog.Info("Redis connected", zap.String("addr", redisCfg.Addr()))
	}

	var publisher events.Publisher = events.NewNoOpPublisher()
	if cfg.Kafka.Enabled {
		kp, err := events.NewKafkaPublisher(ctx, &events.KafkaConfig{
			Brokers:     cfg.Kafka.Brokers,
			Topic:       cfg.Kafka.Topic,
			ClientID:    cfg.Kafka.ClientID,
			ServiceName: cfg.App.Name,
		})
		if err != nil {
			appLog.Warn("Kafka unavailable, account events disabled", zap.Error(err))
		} else {
			publisher = kp
			appLog.Info("Kafka publisher ready", zap.Strings("brokers", cfg.Kafka.Brokers), zap.String("topic", cfg.Kafka.Topic))
		}
	}
	defer publisher.Close()

	container, err := di.NewContainer(&di.ContainerConfig{
		Config:  cfg,
		DB:      db,
		Redis:   redisClient,
		Events:  publisher,
		Metrics: metrics.New(),
		Logger:  appLog,
	})
	if err != nil {
		appLog.Fatal("Failed to build container", zap.Error(err))
	}
	defer container.Close()

	if err := container.SeedAdmin(ctx); err != nil {
		appLog.Fatal("Failed to seed admin user", zap.Error(err))
	}

	if cfg.IsDevelopment() {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	srv := &http.Server{
		Addr:         cfg.Server.Addr(),
		Handler:      container.Router(),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	go func() {
		appLog.Info("Account service listening", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			appLog.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	appLog.Info("Shutting down server...")

	shutdownTimeout := cfg.Server.ShutdownTimeout
	if shutdownTimeout <= 0 {
		shutdownTimeout = 10 * time.Second
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		appLog.Error("Server forced to shutdown", zap.Error(err))
	}

	appLog.Info("Server exited gracefully")
}

func logRetry(l *logger.Logger, backend string) func(attempt int, err error, next time.Duration) {
	return func(attempt int, err error, next time.Duration) {
		l.Warn("Connection attempt failed, retrying",
			zap.String("backend", backend),
			zap.Int("attempt", attempt),
			zap.Duration("next", next),
			zap.Error(err),
		)
	}
}
