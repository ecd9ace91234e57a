package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/angelmondragon/vinoteca-backend/api/controllers"
	"github.com/angelmondragon/vinoteca-backend/api/routes"
	"github.com/angelmondragon/vinoteca-backend/internal/auth"
	"github.com/angelmondragon/vinoteca-backend/internal/cart"
	"github.com/angelmondragon/vinoteca-backend/internal/checkout"
	"github.com/angelmondragon/vinoteca-backend/internal/combos"
	"github.com/angelmondragon/vinoteca-backend/internal/contact"
	"github.com/angelmondragon/vinoteca-backend/internal/media"
	"github.com/angelmondragon/vinoteca-backend/internal/orders"
	"github.com/angelmondragon/vinoteca-backend/internal/settings"
	"github.com/angelmondragon/vinoteca-backend/internal/subscribers"
	mpwebhook "github.com/angelmondragon/vinoteca-backend/internal/webhooks/mercadopago"
	"github.com/angelmondragon/vinoteca-backend/internal/wines"
	"github.com/angelmondragon/vinoteca-backend/pkg/config"
	"github.com/angelmondragon/vinoteca-backend/pkg/firebase"
	"github.com/angelmondragon/vinoteca-backend/pkg/firestore"
	"github.com/angelmondragon/vinoteca-backend/pkg/instance"
	"github.com/angelmondragon/vinoteca-backend/pkg/logger"
	"github.com/angelmondragon/vinoteca-backend/pkg/mail"
	"github.com/angelmondragon/vinoteca-backend/pkg/mercadopago"
	"github.com/angelmondragon/vinoteca-backend/pkg/metrics"
	"github.com/angelmondragon/vinoteca-backend/pkg/pubsub"
	"github.com/angelmondragon/vinoteca-backend/pkg/redis"
	"github.com/angelmondragon/vinoteca-backend/pkg/storage/gcs"
)

const (
	currency        = "ARS"
	shutdownTimeout = 15 * time.Second
)

func main() {
	logg := logger.New(logger.Options{ServiceName: "api"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "api",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	if err := run(cfg, logg); err != nil {
		logg.Error(context.Background(), "api server stopped unexpectedly", err)
		os.Exit(1)
	}
}

func run(cfg *config.Config, logg *logger.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	fsClient, err := firestore.New(ctx, cfg.GCP, cfg.Firestore, logg)
	if err != nil {
		return err
	}
	defer closeWith(logg, "firestore", fsClient.Close)

	redisClient, err := redis.New(ctx, cfg.Redis, logg)
	if err != nil {
		return err
	}
	defer closeWith(logg, "redis", redisClient.Close)

	gcsClient, err := gcs.NewClient(ctx, cfg.GCS, cfg.GCP, logg)
	if err != nil {
		return err
	}
	defer closeWith(logg, "gcs", gcsClient.Close)

	firebaseAuth, err := firebase.NewAuthClient(ctx, cfg.GCP, logg)
	if err != nil {
		return err
	}

	mpClient, err := mercadopago.NewClient(cfg.MercadoPago, cfg.Breaker, logg)
	if err != nil {
		return err
	}

	mailer, err := mail.NewSendGridMailer(cfg.Sendgrid, logg)
	if err != nil {
		return err
	}

	pingers := map[string]controllers.Pinger{
		"firestore": fsClient,
		"redis":     redisClient,
		"gcs":       gcsClient,
	}

	var publisher pubsub.EventPublisher = pubsub.NoopPublisher{}
	if cfg.PubSub.OrdersTopic != "" {
		psClient, err := pubsub.NewClient(ctx, cfg.GCP, cfg.PubSub, logg)
		if err != nil {
			return err
		}
		defer closeWith(logg, "pubsub", psClient.Close)
		publisher = pubsub.NewTopicPublisher(psClient.OrdersPublisher())
		pingers["pubsub"] = psClient
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	met := metrics.New(registry)

	wineRepo, err := wines.NewRepository(fsClient, cfg.Firestore.ProductsCollection)
	if err != nil {
		return err
	}
	wineService, err := wines.NewService(wineRepo, gcsClient, logg)
	if err != nil {
		return err
	}

	comboRepo, err := combos.NewRepository(fsClient, cfg.Firestore.CombosCollection)
	if err != nil {
		return err
	}
	comboService, err := combos.NewService(comboRepo, wineService, logg)
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

	settingsRepo, err := settings.NewRepository(fsClient, cfg.Firestore.SettingsCollection)
	if err != nil {
		return err
	}
	settingsService, err := settings.NewService(settingsRepo, logg)
	if err != nil {
		return err
	}

	subscriberRepo, err := subscribers.NewRepository(fsClient, cfg.Firestore.NewsletterCollection)
	if err != nil {
		return err
	}
	subscriberService, err := subscribers.NewService(subscriberRepo, logg)
	if err != nil {
		return err
	}

	cartService, err := cart.NewService(redisClient, wineService, logg, cart.Config{
		TTL:                  cfg.Cart.TTL,
		NotificationDuration: cfg.Cart.NotificationDuration,
		IdleEviction:         time.Hour,
	})
	if err != nil {
		return err
	}

	checkoutService, err := checkout.NewService(checkout.Deps{
		Carts:     cartService,
		Gateway:   mpClient,
		Orders:    orderService,
		Settings:  settingsService,
		Locker:    redisClient,
		Publisher: publisher,
		Metrics:   met,
		Logger:    logg,
	}, checkout.Config{
		LockTTL:  cfg.Checkout.LockTTL,
		Currency: currency,
		BackURLs: mercadopago.BackURLs{
			Success: cfg.MercadoPago.SuccessURL,
			Failure: cfg.MercadoPago.FailureURL,
			Pending: cfg.MercadoPago.PendingURL,
		},
		NotificationURL:     cfg.MercadoPago.NotificationURL,
		StatementDescriptor: cfg.MercadoPago.StatementDescriptor,
	})
	if err != nil {
		return err
	}

	contactService, err := contact.NewService(mailer, redisClient, cfg.Contact, met, logg)
	if err != nil {
		return err
	}

	mediaService, err := media.NewService(gcsClient, cfg.Media.MaxUploadBytes(), logg)
	if err != nil {
		return err
	}

	authService, err := auth.NewService(auth.ServiceParams{
		Firebase: firebaseAuth,
		Mailer:   mailer,
		Admins:   cfg.Firebase,
		Logger:   logg,
	})
	if err != nil {
		return err
	}

	webhookGuard, err := mpwebhook.NewIdempotencyGuard(redisClient, cfg.MercadoPago.WebhookTTL, "mercadopago")
	if err != nil {
		return err
	}
	webhookService, err := mpwebhook.NewService(mpwebhook.ServiceParams{
		Payments:  mpClient,
		Orders:    orderService,
		Stock:     wineService,
		Guard:     webhookGuard,
		Publisher: publisher,
		Metrics:   met,
		Logger:    logg,
	})
	if err != nil {
		return err
	}

	handler := routes.NewRouter(cfg, logg, routes.Infra{
		Redis:    redisClient,
		Pingers:  pingers,
		Metrics:  met,
		Gatherer: registry,
	}, routes.Services{
		Auth:        authService,
		Wines:       wineService,
		Combos:      comboService,
		Cart:        cartService,
		Checkout:    checkoutService,
		Orders:      orderService,
		Settings:    settingsService,
		Subscribers: subscriberService,
		Contact:     contactService,
		Media:       mediaService,
		Webhook:     webhookService,
	})

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port
	logCtx := logg.WithFields(ctx, map[string]any{
		"env":      cfg.App.Env,
		"addr":     addr,
		"instance": instance.GetID(),
		"sandbox":  mpClient.Sandbox(),
	})
	logg.Info(logCtx, "starting api server")

	server := &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logg.Info(logCtx, "shutting down api server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}

func closeWith(logg *logger.Logger, name string, fn func() error) {
	if err := fn(); err != nil {
		logg.Error(logg.WithField(context.Background(), "dependency", name), "error closing dependency", err)
	}
}
