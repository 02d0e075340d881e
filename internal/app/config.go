package app

import (
	"os"
	"time"

	"github.com/cristalhq/aconfig"
	"github.com/cristalhq/aconfig/aconfigyaml"
	"github.com/go-faster/errors"
)

// Config holds the complete application configuration, loadable from
// environment variables (SHOP_ prefix), flags, or YAML config files.
type Config struct {
	Addr        string `default:"0.0.0.0:8080" usage:"API server listen address"`
	DatabaseURL string `usage:"PostgreSQL connection URL (SHOP_DATABASE_URL or DATABASE_URL)" flag:"database-url"`
	JWTSecret   string `usage:"HMAC secret for admin JWT verification" flag:"jwt-secret"`
	CMS         CMSConfig
	Catalog     CatalogConfig
	Bag         BagConfig
	Checkout    CheckoutConfig
	Mail        MailConfig
	RateLimit   RateLimitConfig
	CORS        CORSConfig
	Graceful    GracefulConfig
}

// CMSConfig selects and configures the headless CMS catalog source. When
// SpaceID is empty the catalog is served from the local products table.
type CMSConfig struct {
	SpaceID       string `usage:"CMS space identifier" flag:"cms-space"`
	Environment   string `default:"master" usage:"CMS environment" flag:"cms-env"`
	DeliveryToken string `usage:"CMS delivery API token" flag:"cms-delivery-token"`
	PreviewToken  string `usage:"CMS preview API token" flag:"cms-preview-token"`
	ContentType   string `default:"product" usage:"CMS content type for products" flag:"cms-content-type"`
}

// CatalogConfig controls the catalog resolver cache.
type CatalogConfig struct {
	TTL      time.Duration `default:"5m" usage:"Catalog cache TTL" flag:"catalog-ttl"`
	PageSize int           `default:"100" usage:"Collection fetch page size" flag:"catalog-page-size"`
}

// BagConfig selects the bag snapshot backend.
type BagConfig struct {
	Storage string        `default:"postgres" usage:"Bag snapshot backend: postgres or file" flag:"bag-storage"`
	Dir     string        `default:"data/bags" usage:"Snapshot directory for the file backend" flag:"bag-dir"`
	IdleTTL time.Duration `default:"30m" usage:"Evict in-memory bag stores idle for this long" flag:"bag-idle-ttl"`
}

// CheckoutConfig holds order placement settings.
type CheckoutConfig struct {
	WhatsAppPhone string `usage:"Store WhatsApp number, international format without +" flag:"whatsapp-phone"`
	NotifyEmail   string `usage:"Store inbox receiving order confirmation copies" flag:"notify-email"`
}

// MailConfig configures the transactional mail provider.
type MailConfig struct {
	Endpoint string `usage:"Mail provider send URL" flag:"mail-endpoint"`
	APIKey   string `usage:"Mail provider API key" flag:"mail-api-key"`
	From     string `usage:"Sender address on outgoing mail" flag:"mail-from"`
}

// RateLimitConfig controls the per-client sliding window rate limiter.
type RateLimitConfig struct {
	Max    int           `default:"100" usage:"Max requests per window"`
	Window time.Duration `default:"1m"  usage:"Rate limit window duration"`
}

// CORSConfig controls Cross-Origin Resource Sharing headers.
type CORSConfig struct {
	Origins          []string `default:"*" usage:"Allowed CORS origins"`
	AllowCredentials bool     `default:"false" usage:"Allow credentials (cookies, auth headers)" flag:"cors-credentials"`
}

// GracefulConfig controls graceful shutdown timing.
type GracefulConfig struct {
	ReadinessDelay  time.Duration `default:"3s"  usage:"Delay after readiness=false before shutdown" flag:"readiness-delay"`
	ShutdownTimeout time.Duration `default:"15s" usage:"Maximum shutdown duration" flag:"shutdown-timeout"`
}

// LoadConfig loads configuration from environment variables, YAML config
// files, and applies platform-specific defaults.
func LoadConfig() (*Config, error) {
	var cfg Config
	loader := aconfig.LoaderFor(&cfg, aconfig.Config{
		EnvPrefix: "SHOP",
		Files:     []string{"config.yaml", "/etc/storefront/config.yaml"},
		FileDecoders: map[string]aconfig.FileDecoder{
			".yaml": aconfigyaml.New(),
		},
	})
	if err := loader.Load(); err != nil {
		return nil, errors.Wrap(err, "load config")
	}
	cfg.applyPlatformDefaults()

	if cfg.DatabaseURL == "" {
		return nil, errors.New("database URL is required: set SHOP_DATABASE_URL or DATABASE_URL")
	}

	return &cfg, nil
}

// applyPlatformDefaults maps platform-provided environment variables (Railway,
// Render, etc.) that use standard names like DATABASE_URL and PORT to the
// application's SHOP_-prefixed configuration.
func (c *Config) applyPlatformDefaults() {
	if c.DatabaseURL == "" {
		if v := os.Getenv("DATABASE_URL"); v != "" {
			c.DatabaseURL = v
		}
	}
	if port := os.Getenv("PORT"); port != "" && c.Addr == "0.0.0.0:8080" {
		c.Addr = "0.0.0.0:" + port
	}
}
