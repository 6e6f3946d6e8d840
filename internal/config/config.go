package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

const (
	StorageDriverPostgres = "postgres"
	StorageDriverMemory   = "memory"

	LockoutStoreMemory = "memory"
	LockoutStoreRedis  = "redis"

	CMSProviderStrapi = "strapi"
	CMSProviderMemory = "memory"
)

// Config holds runtime configuration sourced from env vars.
type Config struct {
	Port        string
	Env         string
	CORSOrigins []string
	LogLevel    string

	StorageDriver string
	DatabaseURL   string

	JWTSecret        string
	JWTRefreshSecret string
	JWTIssuer        string
	AccessTTL        time.Duration
	RefreshTTL       time.Duration

	LockoutMaxAttempts int
	LockoutWindow      time.Duration
	LockoutStore       string
	RedisURL           string

	CMSProvider        string
	StrapiURL          string
	StrapiAPIToken     string
	CMSTimeout         time.Duration
	ContentSeedFile    string
	NotFoundRedirectMS int

	StripeSecretKey          string
	StripeWebhookSecret      string
	PaymentTrustClientPrefix bool
}

// Load reads configuration from the environment and performs minimal validation.
func Load() (Config, error) {
	var intErr error
	positive := func(key string, def int) int {
		n, err := positiveInt(key, def)
		if err != nil && intErr == nil {
			intErr = err
		}
		return n
	}

	cfg := Config{
		Port:        fallback(os.Getenv("PORT"), "8080"),
		Env:         fallback(os.Getenv("APP_ENV"), fallback(os.Getenv("NODE_ENV"), "development")),
		CORSOrigins: parseCSV(fallback(os.Getenv("CORS_ALLOWED_ORIGINS"), "*")),
		LogLevel:    fallback(os.Getenv("LOG_LEVEL"), "info"),

		StorageDriver: strings.ToLower(fallback(os.Getenv("STORAGE_DRIVER"), StorageDriverPostgres)),
		DatabaseURL:   strings.TrimSpace(os.Getenv("DATABASE_URL")),

		JWTSecret:        strings.TrimSpace(os.Getenv("JWT_SECRET")),
		JWTRefreshSecret: strings.TrimSpace(os.Getenv("JWT_REFRESH_SECRET")),
		JWTIssuer:        fallback(os.Getenv("JWT_ISSUER"), "access-web"),
		AccessTTL:        time.Duration(positive("JWT_ACCESS_TTL_HOURS", 168)) * time.Hour,
		RefreshTTL:       time.Duration(positive("JWT_REFRESH_TTL_HOURS", 720)) * time.Hour,

		LockoutMaxAttempts: positive("LOCKOUT_MAX_ATTEMPTS", 5),
		LockoutWindow:      time.Duration(positive("LOCKOUT_WINDOW_MINUTES", 30)) * time.Minute,
		LockoutStore:       strings.ToLower(fallback(os.Getenv("LOCKOUT_STORE"), LockoutStoreMemory)),
		RedisURL:           strings.TrimSpace(os.Getenv("REDIS_URL")),

		CMSProvider:        strings.ToLower(fallback(os.Getenv("CMS_PROVIDER"), CMSProviderStrapi)),
		StrapiURL:          strings.TrimRight(fallback(os.Getenv("STRAPI_URL"), "http://localhost:1337"), "/"),
		StrapiAPIToken:     strings.TrimSpace(os.Getenv("STRAPI_API_TOKEN")),
		CMSTimeout:         time.Duration(positive("CMS_TIMEOUT_SECONDS", 5)) * time.Second,
		ContentSeedFile:    strings.TrimSpace(os.Getenv("CONTENT_SEED_FILE")),
		NotFoundRedirectMS: positive("NOT_FOUND_REDIRECT_MS", 2000),

		StripeSecretKey:          strings.TrimSpace(os.Getenv("STRIPE_SECRET_KEY")),
		StripeWebhookSecret:      strings.TrimSpace(os.Getenv("STRIPE_WEBHOOK_SECRET")),
		PaymentTrustClientPrefix: parseBool(os.Getenv("PAYMENT_TRUST_CLIENT_PREFIX")),
	}

	if intErr != nil {
		return Config{}, intErr
	}

	switch cfg.StorageDriver {
	case StorageDriverPostgres:
		if cfg.DatabaseURL == "" {
			return Config{}, errors.New("DATABASE_URL is required")
		}
	case StorageDriverMemory:
	default:
		return Config{}, fmt.Errorf("unsupported STORAGE_DRIVER %q", cfg.StorageDriver)
	}

	if cfg.JWTSecret == "" {
		return Config{}, errors.New("JWT_SECRET is required")
	}
	if cfg.JWTRefreshSecret == "" {
		return Config{}, errors.New("JWT_REFRESH_SECRET is required")
	}

	switch cfg.LockoutStore {
	case LockoutStoreRedis:
		if cfg.RedisURL == "" {
			return Config{}, errors.New("REDIS_URL is required when LOCKOUT_STORE=redis")
		}
	case LockoutStoreMemory:
	default:
		return Config{}, fmt.Errorf("unsupported LOCKOUT_STORE %q", cfg.LockoutStore)
	}

	switch cfg.CMSProvider {
	case CMSProviderStrapi, CMSProviderMemory:
	default:
		return Config{}, fmt.Errorf("unsupported CMS_PROVIDER %q", cfg.CMSProvider)
	}

	return cfg, nil
}

// HTTPAddress returns the host:port pair for the HTTP server to bind to.
func (c Config) HTTPAddress() string {
	return fmt.Sprintf(":%s", c.Port)
}

// IsProduction reports whether cookies must carry the Secure attribute.
func (c Config) IsProduction() bool {
	return strings.EqualFold(c.Env, "production")
}

// PaymentsEnabled reports whether a payment provider key is configured.
func (c Config) PaymentsEnabled() bool {
	return c.StripeSecretKey != ""
}

func fallback(value, def string) string {
	if strings.TrimSpace(value) == "" {
		return def
	}
	return strings.TrimSpace(value)
}

// positiveInt returns def when key is unset and an error naming key when
// the value is not a positive integer.
func positiveInt(key string, def int) (int, error) {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return def, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n <= 0 {
		return 0, fmt.Errorf("%s must be a positive integer, got %q", key, raw)
	}
	return n, nil
}

func parseBool(value string) bool {
	b, err := strconv.ParseBool(strings.TrimSpace(value))
	return err == nil && b
}

func parseCSV(input string) []string {
	parts := strings.Split(input, ",")
	var out []string
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			out = append(out, trimmed)
		}
	}
	if len(out) == 0 {
		return []string{"*"}
	}
	return out
}
