package routes

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/angelmondragon/vinoteca-backend/api/controllers"
	webhookcontrollers "github.com/angelmondragon/vinoteca-backend/api/controllers/webhooks"
	"github.com/angelmondragon/vinoteca-backend/api/middleware"
	"github.com/angelmondragon/vinoteca-backend/internal/auth"
	"github.com/angelmondragon/vinoteca-backend/internal/cart"
	"github.com/angelmondragon/vinoteca-backend/internal/checkout"
	"github.com/angelmondragon/vinoteca-backend/internal/combos"
	"github.com/angelmondragon/vinoteca-backend/internal/contact"
	"github.com/angelmondragon/vinoteca-backend/internal/media"
	"github.com/angelmondragon/vinoteca-backend/internal/orders"
	"github.com/angelmondragon/vinoteca-backend/internal/settings"
	"github.com/angelmondragon/vinoteca-backend/internal/subscribers"
	"github.com/angelmondragon/vinoteca-backend/internal/wines"
	"github.com/angelmondragon/vinoteca-backend/pkg/config"
	"github.com/angelmondragon/vinoteca-backend/pkg/logger"
	"github.com/angelmondragon/vinoteca-backend/pkg/metrics"
	pkgredis "github.com/angelmondragon/vinoteca-backend/pkg/redis"
)

// RedisStore is the slice of the Redis client the HTTP layer needs for
// idempotency replay and rate limiting.
type RedisStore interface {
	pkgredis.IdempotencyStore
	IncrWithTTL(ctx context.Context, key string, ttl time.Duration) (int64, error)
}

type Services struct {
	Auth        auth.Service
	Wines       wines.Service
	Combos      combos.Service
	Cart        cart.Service
	Checkout    checkout.Service
	Orders      orders.Service
	Settings    settings.Service
	Subscribers subscribers.Service
	Contact     contact.Service
	Media       media.Service
	Webhook     webhookcontrollers.MercadoPagoWebhookService
}

type Infra struct {
	Redis    RedisStore
	Pingers  map[string]controllers.Pinger
	Metrics  *metrics.Metrics
	Gatherer prometheus.Gatherer
}

func NewRouter(cfg *config.Config, logg *logger.Logger, infra Infra, svc Services) http.Handler {
	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.Metrics(infra.Metrics),
		middleware.CORS(cfg.CORS.AllowedOrigins),
	)

	signupPolicy := middleware.NewRateLimitPolicy("signup", time.Hour, 10, 3)
	resetPolicy := middleware.NewRateLimitPolicy("password-reset", 15*time.Minute, 10, 3)
	newsletterPolicy := middleware.NewRateLimitPolicy("newsletter", time.Hour, 20, 5)

	idempotency := middleware.Idempotency(infra.Redis, logg)
	authenticated := middleware.Auth(svc.Auth, logg)
	admin := []func(http.Handler) http.Handler{authenticated, middleware.RequireAdmin(logg)}

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, infra.Pingers))
	})
	if infra.Gatherer != nil {
		r.Handle("/metrics", promhttp.HandlerFor(infra.Gatherer, promhttp.HandlerOpts{}))
	}

	r.Route("/api", func(r chi.Router) {
		r.Get("/settings", controllers.SettingsGet(svc.Settings, logg))

		r.Route("/wines", func(r chi.Router) {
			r.Get("/", controllers.WineList(svc.Wines, logg))
			r.Get("/featured", controllers.WineFeatured(svc.Wines, logg))
			r.Get("/{id}", controllers.WineDetail(svc.Wines, logg))
			r.Group(func(r chi.Router) {
				r.Use(admin...)
				r.Use(idempotency)
				r.Post("/", controllers.AdminWineCreate(svc.Wines, logg))
				r.Put("/{id}", controllers.AdminWineUpdate(svc.Wines, logg))
				r.Delete("/{id}", controllers.AdminWineDelete(svc.Wines, logg))
			})
		})

		r.Route("/combos", func(r chi.Router) {
			r.Get("/", controllers.ComboList(svc.Combos, logg))
			r.Get("/{id}", controllers.ComboDetail(svc.Combos, logg))
			r.Group(func(r chi.Router) {
				r.Use(admin...)
				r.Use(idempotency)
				r.Post("/", controllers.AdminComboCreate(svc.Combos, logg))
				r.Put("/{id}", controllers.AdminComboUpdate(svc.Combos, logg))
				r.Delete("/{id}", controllers.AdminComboDelete(svc.Combos, logg))
			})
		})

		r.Route("/cart", func(r chi.Router) {
			r.Use(middleware.CartSession(logg))
			r.Get("/", controllers.CartGet(svc.Cart, logg))
			r.Delete("/", controllers.CartClear(svc.Cart, logg))
			r.Post("/items", controllers.CartAddItem(svc.Cart, logg))
			r.Patch("/items/{productId}", controllers.CartUpdateItem(svc.Cart, logg))
			r.Delete("/items/{productId}", controllers.CartRemoveItem(svc.Cart, logg))
			r.Post("/toggle", controllers.CartToggle(svc.Cart, logg))
			r.Put("/shipping", controllers.CartShipping(svc.Cart, logg))
		})

		r.Route("/mercadopago", func(r chi.Router) {
			r.Post("/webhook", webhookcontrollers.MercadoPagoWebhook(svc.Webhook, logg))
			r.With(middleware.CartSession(logg), idempotency).Post("/create-preference", controllers.CheckoutPreference(svc.Checkout, logg))
		})

		r.Route("/checkout", func(r chi.Router) {
			r.Use(middleware.CartSession(logg))
			r.With(idempotency).Post("/custom", controllers.CheckoutCustom(svc.Checkout, logg))
			r.Post("/return", controllers.CheckoutReturn(svc.Checkout, logg))
		})

		r.With(idempotency).Post("/contact", controllers.ContactSubmit(svc.Contact, logg))
		r.With(middleware.RateLimit(newsletterPolicy, infra.Redis, logg)).Post("/newsletter", controllers.NewsletterSubscribe(svc.Subscribers, logg))

		r.Route("/auth", func(r chi.Router) {
			r.With(middleware.RateLimit(signupPolicy, infra.Redis, logg)).Post("/signup", controllers.AuthSignUp(svc.Auth, logg))
			r.With(middleware.RateLimit(resetPolicy, infra.Redis, logg)).Post("/password-reset", controllers.AuthPasswordReset(svc.Auth, logg))
			r.Group(func(r chi.Router) {
				r.Use(authenticated)
				r.Get("/profile", controllers.AuthMe(svc.Auth, logg))
				r.Patch("/profile", controllers.AuthUpdateProfile(svc.Auth, logg))
			})
		})

		r.Route("/admin", func(r chi.Router) {
			r.Use(admin...)
			r.Use(idempotency)

			r.Route("/orders", func(r chi.Router) {
				r.Get("/", controllers.AdminOrderList(svc.Orders, logg))
				r.Get("/{id}", controllers.AdminOrderDetail(svc.Orders, logg))
				r.Patch("/{id}/status", controllers.AdminOrderUpdateStatus(svc.Orders, logg))
				r.Delete("/{id}", controllers.AdminOrderDelete(svc.Orders, logg))
			})

			r.Get("/subscribers", controllers.AdminSubscriberList(svc.Subscribers, logg))
			r.Delete("/subscribers/{id}", controllers.AdminSubscriberDelete(svc.Subscribers, logg))

			r.Put("/settings", controllers.AdminSettingsUpdate(svc.Settings, logg))

			r.Route("/media", func(r chi.Router) {
				r.Get("/", controllers.MediaList(svc.Media, logg))
				r.Post("/", controllers.MediaUpload(svc.Media, cfg.Media.MaxUploadBytes(), logg))
				r.Delete("/", controllers.MediaDelete(svc.Media, logg))
			})

			r.Get("/wines/low-stock", controllers.AdminWineLowStock(svc.Wines, controllers.LowStockThreshold(svc.Settings), logg))
		})
	})

	return r
}
