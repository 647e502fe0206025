// Command api boots the HTTP front (C11): it loads configuration, wires the
// reservation store, outbox store, add-on catalog and create-reservation use
// case, and serves spec.md §6's three routes behind tracing, rate-limit and
// HTTPS-enforcement middleware. Grounded on backend-booking/main.go's
// load-config/init-logger/init-telemetry/connect-db/build-router/
// graceful-shutdown sequence.
package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rbravo-mcr/reservas-api/internal/addon"
	"github.com/rbravo-mcr/reservas-api/internal/codegen"
	"github.com/rbravo-mcr/reservas-api/internal/config"
	"github.com/rbravo-mcr/reservas-api/internal/database"
	"github.com/rbravo-mcr/reservas-api/internal/httpapi"
	"github.com/rbravo-mcr/reservas-api/internal/logger"
	"github.com/rbravo-mcr/reservas-api/internal/repository"
	"github.com/rbravo-mcr/reservas-api/internal/reservation"
	"github.com/rbravo-mcr/reservas-api/internal/telemetry"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	if err := logger.Init(&logger.Config{
		Level:       "info",
		ServiceName: cfg.App.Name,
		Development: cfg.IsDevelopment(),
	}); err != nil {
		log.Fatalf("failed to initialize logger: %v", err)
	}
	defer logger.Sync()

	appLog := logger.Get()
	appLog.Infow("starting reservas-api", "environment", cfg.App.Environment, "version", cfg.App.Version)

	ctx := context.Background()

	if _, err := telemetry.Init(ctx, &telemetry.Config{
		Enabled:        cfg.OTel.Enabled,
		ServiceName:    cfg.OTel.ServiceName,
		ServiceVersion: cfg.App.Version,
		Environment:    cfg.App.Environment,
		CollectorAddr:  cfg.OTel.CollectorAddr,
	}); err != nil {
		appLog.Warnw("failed to initialize telemetry", "error", err)
	}
	defer telemetry.Shutdown(ctx)

	pool, err := database.NewPool(ctx, &database.Config{
		Host:            cfg.Database.Host,
		Port:            cfg.Database.Port,
		User:            cfg.Database.User,
		Password:        cfg.Database.Password,
		Database:        cfg.Database.DBName,
		SSLMode:         cfg.Database.SSLMode,
		MaxConns:        cfg.Database.MaxConns,
		MinConns:        cfg.Database.MinConns,
		MaxConnLifetime: cfg.Database.ConnMaxLifetime,
		MaxConnIdleTime: cfg.Database.ConnMaxIdleTime,
		MaxRetries:      3,
		RetryInterval:   2 * time.Second,
		EnableTracing:   cfg.OTel.Enabled,
	})
	if err != nil {
		appLog.Fatalw("database connection failed", "error", err)
	}
	defer pool.Close()
	appLog.Infow("database connected", "max_conns", cfg.Database.MaxConns)

	var rdb *redis.Client
	if cfg.Redis.Host != "" {
		rdb = redis.NewClient(&redis.Options{
			Addr:         cfg.Redis.Addr(),
			Password:     cfg.Redis.Password,
			DB:           cfg.Redis.DB,
			DialTimeout:  cfg.Redis.DialTimeout,
			ReadTimeout:  cfg.Redis.ReadTimeout,
			WriteTimeout: cfg.Redis.WriteTimeout,
		})
		if err := rdb.Ping(ctx).Err(); err != nil {
			appLog.Warnw("redis unavailable, rate limiter falls back to in-memory", "error", err)
			rdb = nil
		}
	}

	reservationRepo := repository.NewPostgresReservationRepository(pool)
	outboxRepo := repository.NewPostgresOutboxRepository(pool)
	addonCatalog := addon.NewPostgresCatalog(pool)

	reservationService := reservation.NewService(reservationRepo, outboxRepo, &codegen.Generator{MaxRetries: cfg.Code.MaxRetries}, nil)

	router := httpapi.NewRouter(httpapi.RouterConfig{
		ServiceName:           cfg.OTel.ServiceName,
		ForceHTTPS:            cfg.Server.ForceHTTPS,
		DefaultPerMinute:      cfg.RateLimit.DefaultPerMinute,
		ReservationsPerMinute: cfg.RateLimit.ReservationsPerMinute,
	}, reservationService, addonCatalog, rdb)

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	go func() {
		appLog.Infow("http server listening", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			appLog.Fatalw("http server error", "error", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	appLog.Info("shutting down http server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		appLog.Fatalw("server forced to shutdown", "error", err)
	}
	appLog.Info("server exited gracefully")
}
