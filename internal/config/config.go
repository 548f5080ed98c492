package config

import (
	"context"
	"os"
	"strconv"
	"time"

	"vipps/internal/domain"
)

// Config holds all configuration for the application.
type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Redis    RedisConfig
	NewRelic NewRelicConfig
	Vipps    VippsConfig
	Poller   PollerConfig
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Port         string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// DatabaseConfig holds PostgreSQL configuration.
type DatabaseConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	DBName   string
	SSLMode  string
}

// RedisConfig holds Redis configuration.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// NewRelicConfig holds New Relic configuration.
type NewRelicConfig struct {
	AppName    string
	LicenseKey string
	Enabled    bool
}

// VippsConfig holds payment provider configuration.
type VippsConfig struct {
	BaseURL              string
	APIVersion           string // ecomm, checkout or epayment
	MerchantSerialNumber string
	SubscriptionKey      string
	ClientID             string
	ClientSecret         string
	Currency             string
	CallbackURL          string
	FallbackURL          string
	SuccessURL           string
	PendingURL           string
	CartRestoreURL       string
	ExpiryWindow         time.Duration
	FallbackStatusCheck  bool
}

// PollerConfig holds reconciliation poller configuration.
type PollerConfig struct {
	Interval    time.Duration
	PageSize    int
	MaxAttempts int
	Throttle    time.Duration
}

// Load loads configuration from environment variables.
func Load() *Config {
	return &Config{
		Server: ServerConfig{
			Port:         getEnv("SERVER_PORT", "8080"),
			ReadTimeout:  getDurationEnv("SERVER_READ_TIMEOUT", 10*time.Second),
			WriteTimeout: getDurationEnv("SERVER_WRITE_TIMEOUT", 10*time.Second),
		},
		Database: DatabaseConfig{
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getEnv("DB_PORT", "5432"),
			User:     getEnv("DB_USER", "postgres"),
			Password: getEnv("DB_PASSWORD", "postgres"),
			DBName:   getEnv("DB_NAME", "vipps_gateway"),
			SSLMode:  getEnv("DB_SSLMODE", "disable"),
		},
		Redis: RedisConfig{
			Addr:     getEnv("REDIS_ADDR", "localhost:6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getIntEnv("REDIS_DB", 0),
		},
		NewRelic: NewRelicConfig{
			AppName:    getEnv("NEW_RELIC_APP_NAME", "vipps-gateway"),
			LicenseKey: getEnv("NEW_RELIC_LICENSE_KEY", ""),
			Enabled:    getBoolEnv("NEW_RELIC_ENABLED", false),
		},
		Vipps: VippsConfig{
			BaseURL:              getEnv("VIPPS_BASE_URL", "https://apitest.vipps.no"),
			APIVersion:           getEnv("VIPPS_API_VERSION", "epayment"),
			MerchantSerialNumber: getEnv("VIPPS_MERCHANT_SERIAL_NUMBER", ""),
			SubscriptionKey:      getEnv("VIPPS_SUBSCRIPTION_KEY", ""),
			ClientID:             getEnv("VIPPS_CLIENT_ID", ""),
			ClientSecret:         getEnv("VIPPS_CLIENT_SECRET", ""),
			Currency:             getEnv("VIPPS_CURRENCY", "NOK"),
			CallbackURL:          getEnv("VIPPS_CALLBACK_URL", "http://localhost:8080/v1/vipps/callback"),
			FallbackURL:          getEnv("VIPPS_FALLBACK_URL", "http://localhost:8080/v1/vipps/fallback"),
			SuccessURL:           getEnv("VIPPS_SUCCESS_URL", "/checkout/success"),
			PendingURL:           getEnv("VIPPS_PENDING_URL", "/checkout/pending"),
			CartRestoreURL:       getEnv("VIPPS_CART_RESTORE_URL", "/checkout/cart?restore=1"),
			ExpiryWindow:         getDurationEnv("VIPPS_EXPIRY_WINDOW", 5*time.Minute),
			FallbackStatusCheck:  getBoolEnv("VIPPS_FALLBACK_STATUS_CHECK", false),
		},
		Poller: PollerConfig{
			Interval:    getDurationEnv("POLLER_INTERVAL", time.Minute),
			PageSize:    getIntEnv("POLLER_PAGE_SIZE", 100),
			MaxAttempts: getIntEnv("POLLER_MAX_ATTEMPTS", 50),
			Throttle:    getDurationEnv("POLLER_THROTTLE", time.Second),
		},
	}
}

// PaymentActionResolver resolves the merchant's configured payment action
// from the environment on every call, so a configuration change applies to
// the next reconciliation pass without a restart.
type PaymentActionResolver struct{}

// PaymentAction returns the configured payment action.
func (PaymentActionResolver) PaymentAction(ctx context.Context, storeID string) (domain.PaymentAction, error) {
	if getEnv("VIPPS_PAYMENT_ACTION", "authorize") == string(domain.PaymentActionAuthorizeCapture) {
		return domain.PaymentActionAuthorizeCapture, nil
	}
	return domain.PaymentActionAuthorize, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getIntEnv(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getBoolEnv(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
		}
	}
	return defaultValue
}

func getDurationEnv(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}
