// Command worker boots C8, the background outbox dispatcher: it loads
// configuration, wires the reservation/outbox stores, the Stripe and
// supplier provider adapters (C6, composed with C4/C5), and the status
// reconciler (C9), then runs the poll loop until a termination signal
// arrives. Grounded on backend-booking/main.go's bootstrap shape, adapted
// to a worker process with no HTTP surface.
package main

import (
	"context"
	"log"
	"os/signal"
	"syscall"
	"time"

	"github.com/rbravo-mcr/reservas-api/internal/config"
	"github.com/rbravo-mcr/reservas-api/internal/database"
	"github.com/rbravo-mcr/reservas-api/internal/logger"
	"github.com/rbravo-mcr/reservas-api/internal/outbox"
	"github.com/rbravo-mcr/reservas-api/internal/provider"
	"github.com/rbravo-mcr/reservas-api/internal/reconciler"
	"github.com/rbravo-mcr/reservas-api/internal/repository"
	"github.com/rbravo-mcr/reservas-api/internal/resilience"
	"github.com/rbravo-mcr/reservas-api/internal/telemetry"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	if err := logger.Init(&logger.Config{
		Level:       "info",
		ServiceName: cfg.App.Name + "-worker",
		Development: cfg.IsDevelopment(),
	}); err != nil {
		log.Fatalf("failed to initialize logger: %v", err)
	}
	defer logger.Sync()

	appLog := logger.Get()
	appLog.Infow("starting reservas-api outbox worker", "environment", cfg.App.Environment)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if _, err := telemetry.Init(ctx, &telemetry.Config{
		Enabled:        cfg.OTel.Enabled,
		ServiceName:    cfg.OTel.ServiceName + "-worker",
		ServiceVersion: cfg.App.Version,
		Environment:    cfg.App.Environment,
		CollectorAddr:  cfg.OTel.CollectorAddr,
	}); err != nil {
		appLog.Warnw("failed to initialize telemetry", "error", err)
	}
	defer telemetry.Shutdown(context.Background())

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

	reservationRepo := repository.NewPostgresReservationRepository(pool)
	outboxRepo := repository.NewPostgresOutboxRepository(pool)

	retryCfg := resilience.RetryConfig{
		MaxRetries:    cfg.Retry.MaxRetries,
		BaseDelay:     cfg.Retry.BaseDelay,
		BackoffFactor: cfg.Retry.BackoffFactor,
		MaxDelay:      cfg.Retry.MaxDelay,
	}
	breakerCfg := resilience.BreakerConfig{
		FailureThreshold: cfg.Breaker.FailureThreshold,
		RecoveryTimeout:  cfg.Breaker.RecoveryTimeout,
	}

	paymentAdapter := provider.NewPaymentAdapter(cfg.Provider.StripeAPIKey, cfg.Provider.TimeoutSeconds, retryCfg, breakerCfg)
	bookingAdapter := provider.NewBookingAdapter(nil, cfg.Provider.BookingBaseURL, cfg.Provider.TimeoutSeconds, retryCfg, breakerCfg)

	recon := reconciler.New(reservationRepo, nil)

	worker := outbox.New(outboxRepo, paymentAdapter, bookingAdapter, recon, outbox.Config{
		BatchSize:    cfg.Outbox.BatchSize,
		PollInterval: cfg.Outbox.PollInterval,
	}, nil)

	go func() {
		if err := worker.Start(ctx); err != nil {
			appLog.Errorw("outbox worker stopped with error", "error", err)
		}
	}()

	<-ctx.Done()
	appLog.Info("shutting down outbox worker...")
	worker.Stop()
	appLog.Info("outbox worker exited gracefully")
}
