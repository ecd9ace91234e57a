package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/angelmondragon/vinoteca-backend/internal/cron"
	"github.com/angelmondragon/vinoteca-backend/internal/orders"
	"github.com/angelmondragon/vinoteca-backend/internal/settings"
	"github.com/angelmondragon/vinoteca-backend/internal/wines"
	"github.com/angelmondragon/vinoteca-backend/pkg/config"
	"github.com/angelmondragon/vinoteca-backend/pkg/firestore"
	"github.com/angelmondragon/vinoteca-backend/pkg/instance"
	"github.com/angelmondragon/vinoteca-backend/pkg/logger"
	"github.com/angelmondragon/vinoteca-backend/pkg/mail"
	"github.com/angelmondragon/vinoteca-backend/pkg/metrics"
	"github.com/angelmondragon/vinoteca-backend/pkg/redis"
)

const lockKeyFormat = "vinoteca:cron-worker:lock:%s"

func main() {
	logg := logger.New(logger.Options{ServiceName: "cron-worker"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "cron-worker",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx = logg.WithFields(ctx, map[string]any{
		"env":      cfg.App.Env,
		"instance": instance.GetID(),
	})

	if err := run(ctx, cfg, logg); err != nil && !errors.Is(err, context.Canceled) {
		logg.Error(ctx, "cron worker stopped unexpectedly", err)
		os.Exit(1)
	}
	logg.Info(ctx, "cron worker shutting down gracefully")
}

func run(ctx context.Context, cfg *config.Config, logg *logger.Logger) error {
	fsClient, err := firestore.New(ctx, cfg.GCP, cfg.Firestore, logg)
	if err != nil {
		return err
	}
	defer func() {
		if err := fsClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing firestore", err)
		}
	}()

	redisClient, err := redis.New(ctx, cfg.Redis, logg)
	if err != nil {
		return err
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing redis", err)
		}
	}()

	wineRepo, err := wines.NewRepository(fsClient, cfg.Firestore.ProductsCollection)
	if err != nil {
		return err
	}
	// Images are never deleted from the worker.
	wineService, err := wines.NewService(wineRepo, nil, logg)
	if err != nil {
		return err
	}
	settingsRepo, err := settings.NewRepository(fsClient, cfg.Firestore.SettingsCollection)
	if err != nil {
		return err
	}
	settingsService, err := settings.NewService(settingsRepo, logg)
	if err != nil {
		return err
	}
	orderRepo, err := orders.NewRepository(fsClient, cfg.Firestore.OrdersCollection)
	if err != nil {
		return err
	}
	orderService, err := orders.NewService(orderRepo, logg)
	if err != nil {
		return err
	}

	registry := cron.NewRegistry()
	pendingJob, err := cron.NewPendingOrderJob(cron.PendingOrderJobParams{
		Orders: orderService,
		TTL:    cfg.Cron.PendingOrderTTL,
		Logger: logg,
	})
	if err != nil {
		return err
	}
	registry.Register(pendingJob)

	if cfg.Contact.Recipient != "" && cfg.Sendgrid.APIKey != "" {
		mailer, err := mail.NewSendGridMailer(cfg.Sendgrid, logg)
		if err != nil {
			return err
		}
		lowStockJob, err := cron.NewLowStockAlertJob(cron.LowStockAlertJobParams{
			Wines:     wineService,
			Settings:  settingsService,
			Mailer:    mailer,
			Recipient: cfg.Contact.Recipient,
			Logger:    logg,
		})
		if err != nil {
			return err
		}
		registry.Register(lowStockJob)
	} else {
		logg.Warn(ctx, "low stock alerts disabled: contact recipient or sendgrid key missing")
	}

	lock, err := cron.NewRedisLock(redisClient, fmt.Sprintf(lockKeyFormat, envOrLocal(cfg.App.Env)), cfg.Cron.LockTTL)
	if err != nil {
		return err
	}

	service, err := cron.NewService(cron.ServiceParams{
		Logger:   logg,
		Registry: registry,
		Lock:     lock,
		Metrics:  metrics.NewCronJobMetrics(prometheus.DefaultRegisterer),
		Interval: cfg.Cron.Interval,
	})
	if err != nil {
		return err
	}

	metricsServer := &http.Server{
		Addr:              ":" + cfg.App.Port,
		Handler:           promhttp.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		if err := metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logg.Error(ctx, "metrics server stopped", err)
		}
	}()
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = metricsServer.Shutdown(shutdownCtx)
	}()

	logg.Info(ctx, "starting cron worker")
	return service.Run(ctx)
}

func envOrLocal(env string) string {
	if env == "" {
		return "local"
	}
	return env
}
