package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	App         AppConfig
	GCP         GCPConfig
	Firestore   FirestoreConfig
	GCS         GCSConfig
	Firebase    FirebaseConfig
	Redis       RedisConfig
	MercadoPago MercadoPagoConfig
	Breaker     BreakerConfig
	Sendgrid    SendgridConfig
	Contact     ContactConfig
	Cart        CartConfig
	Checkout    CheckoutConfig
	Media       MediaConfig
	PubSub      PubSubConfig
	CORS        CORSConfig
	Cron        CronConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.MercadoPago.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

type AppConfig struct {
	Env           string `envconfig:"VINOTECA_APP_ENV" required:"true"`
	Port          string `envconfig:"VINOTECA_APP_PORT" required:"true"`
	LogLevel      string `envconfig:"VINOTECA_LOG_LEVEL" default:"info"`
	LogWarnStack  bool   `envconfig:"VINOTECA_LOG_WARN_STACK" default:"false"`
	PublicBaseURL string `envconfig:"VINOTECA_PUBLIC_BASE_URL" default:"http://localhost:3000"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type GCPConfig struct {
	ProjectID              string `envconfig:"VINOTECA_GCP_PROJECT_ID" required:"true"`
	ApplicationCredentials string `envconfig:"VINOTECA_GOOGLE_APPLICATION_CREDENTIALS"`
}

type FirestoreConfig struct {
	DatabaseID           string `envconfig:"VINOTECA_FIRESTORE_DATABASE_ID" default:"(default)"`
	ProductsCollection   string `envconfig:"VINOTECA_FIRESTORE_PRODUCTS_COLLECTION" default:"products"`
	CombosCollection     string `envconfig:"VINOTECA_FIRESTORE_COMBOS_COLLECTION" default:"combos"`
	OrdersCollection     string `envconfig:"VINOTECA_FIRESTORE_ORDERS_COLLECTION" default:"orders"`
	NewsletterCollection string `envconfig:"VINOTECA_FIRESTORE_NEWSLETTER_COLLECTION" default:"newsletter-subscriptions"`
	SettingsCollection   string `envconfig:"VINOTECA_FIRESTORE_SETTINGS_COLLECTION" default:"site-settings"`
}

type GCSConfig struct {
	BucketName    string `envconfig:"VINOTECA_GCS_BUCKET_NAME" required:"true"`
	PublicBaseURL string `envconfig:"VINOTECA_GCS_PUBLIC_BASE_URL" default:"https://storage.googleapis.com"`
}

type FirebaseConfig struct {
	AdminEmails []string `envconfig:"VINOTECA_FIREBASE_ADMIN_EMAILS"`
}

// IsAdminEmail reports whether email belongs to the configured admin list.
func (f FirebaseConfig) IsAdminEmail(email string) bool {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" {
		return false
	}
	for _, candidate := range f.AdminEmails {
		if strings.ToLower(strings.TrimSpace(candidate)) == email {
			return true
		}
	}
	return false
}

type RedisConfig struct {
	URL          string        `envconfig:"VINOTECA_REDIS_URL" required:"true"`
	Address      string        `envconfig:"VINOTECA_REDIS_ADDR"`
	Password     string        `envconfig:"VINOTECA_REDIS_PASSWORD"`
	DB           int           `envconfig:"VINOTECA_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"VINOTECA_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"VINOTECA_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"VINOTECA_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"VINOTECA_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"VINOTECA_REDIS_WRITE_TIMEOUT" default:"5s"`
}

type MercadoPagoConfig struct {
	AccessToken         string        `envconfig:"VINOTECA_MP_ACCESS_TOKEN"`
	ProductionToken     string        `envconfig:"VINOTECA_MP_PRODUCTION_ACCESS_TOKEN"`
	BaseURL             string        `envconfig:"VINOTECA_MP_BASE_URL" default:"https://api.mercadopago.com"`
	Timeout             time.Duration `envconfig:"VINOTECA_MP_TIMEOUT" default:"5s"`
	NotificationURL     string        `envconfig:"VINOTECA_MP_NOTIFICATION_URL"`
	SuccessURL          string        `envconfig:"VINOTECA_MP_SUCCESS_URL"`
	FailureURL          string        `envconfig:"VINOTECA_MP_FAILURE_URL"`
	PendingURL          string        `envconfig:"VINOTECA_MP_PENDING_URL"`
	StatementDescriptor string        `envconfig:"VINOTECA_MP_STATEMENT_DESCRIPTOR" default:"VINOTECA"`
	WebhookTTL          time.Duration `envconfig:"VINOTECA_MP_WEBHOOK_IDEMPOTENCY_TTL" default:"72h"`
}

// Token returns the credential in use. A production token wins over the sandbox one.
func (m MercadoPagoConfig) Token() string {
	if t := strings.TrimSpace(m.ProductionToken); t != "" {
		return t
	}
	return strings.TrimSpace(m.AccessToken)
}

// Sandbox reports whether the configured credential set targets the sandbox.
func (m MercadoPagoConfig) Sandbox() bool {
	if strings.TrimSpace(m.ProductionToken) != "" {
		return false
	}
	return strings.HasPrefix(strings.TrimSpace(m.AccessToken), "TEST-")
}

func (m MercadoPagoConfig) validate() error {
	if m.Token() == "" {
		return fmt.Errorf("either %s or %s is required", EnvMPAccessToken, EnvMPProductionToken)
	}
	return nil
}

type BreakerConfig struct {
	MaxRequests      uint32        `envconfig:"VINOTECA_BREAKER_MAX_REQUESTS" default:"1"`
	Interval         time.Duration `envconfig:"VINOTECA_BREAKER_INTERVAL" default:"60s"`
	Timeout          time.Duration `envconfig:"VINOTECA_BREAKER_TIMEOUT" default:"30s"`
	FailureThreshold uint32        `envconfig:"VINOTECA_BREAKER_FAILURE_THRESHOLD" default:"5"`
}

type SendgridConfig struct {
	APIKey      string `envconfig:"VINOTECA_SENDGRID_API_KEY"`
	DefaultFrom string `envconfig:"VINOTECA_SENDGRID_FROM_EMAIL"`
	FromName    string `envconfig:"VINOTECA_SENDGRID_FROM_NAME" default:"Vinoteca"`
}

type ContactConfig struct {
	Recipient  string        `envconfig:"VINOTECA_CONTACT_RECIPIENT"`
	Window     time.Duration `envconfig:"VINOTECA_CONTACT_RATE_LIMIT_WINDOW" default:"10m"`
	IPLimit    int           `envconfig:"VINOTECA_CONTACT_RATE_LIMIT_IP_LIMIT" default:"5"`
	EmailLimit int           `envconfig:"VINOTECA_CONTACT_RATE_LIMIT_EMAIL_LIMIT" default:"3"`
}

type CartConfig struct {
	NotificationDuration time.Duration `envconfig:"VINOTECA_CART_NOTIFICATION_DURATION" default:"3s"`
	TTL                  time.Duration `envconfig:"VINOTECA_CART_TTL" default:"720h"`
}

type CheckoutConfig struct {
	LockTTL time.Duration `envconfig:"VINOTECA_CHECKOUT_LOCK_TTL" default:"30s"`
}

type MediaConfig struct {
	MaxUploadMB int `envconfig:"VINOTECA_MAX_UPLOAD_MB" default:"5"`
}

// MaxUploadBytes converts the configured limit into bytes.
func (m MediaConfig) MaxUploadBytes() int64 {
	if m.MaxUploadMB <= 0 {
		return 5 << 20
	}
	return int64(m.MaxUploadMB) << 20
}

type PubSubConfig struct {
	OrdersTopic string `envconfig:"VINOTECA_PUBSUB_ORDERS_TOPIC"`
}

type CORSConfig struct {
	AllowedOrigins []string `envconfig:"VINOTECA_CORS_ALLOWED_ORIGINS" default:"http://localhost:3000"`
}

type CronConfig struct {
	Interval        time.Duration `envconfig:"VINOTECA_CRON_INTERVAL" default:"1h"`
	LockTTL         time.Duration `envconfig:"VINOTECA_CRON_LOCK_TTL" default:"30m"`
	PendingOrderTTL time.Duration `envconfig:"VINOTECA_CRON_PENDING_ORDER_TTL" default:"72h"`
}
