package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

const (
	EnvPrefix = ""

	AppEnvDev  = "dev"
	AppEnvProd = "prod"
)

type Config struct {
	App      AppConfig
	Backend  BackendConfig
	State    StateConfig
	Session  SessionConfig
	Payment  PaymentConfig
	Checkout CheckoutConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	return &cfg, nil
}

type AppConfig struct {
	Env          string `envconfig:"JUICEKART_APP_ENV" default:"dev"`
	Port         string `envconfig:"JUICEKART_APP_PORT" default:"7420"`
	LogLevel     string `envconfig:"JUICEKART_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"JUICEKART_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

// BackendConfig points the client at the storefront REST backend.
type BackendConfig struct {
	BaseURL string        `envconfig:"JUICEKART_BACKEND_BASE_URL" required:"true"`
	Timeout time.Duration `envconfig:"JUICEKART_BACKEND_TIMEOUT" default:"10s"`
}

// StateConfig locates the durable local state file.
type StateConfig struct {
	Path string `envconfig:"JUICEKART_STATE_PATH" default:"juicekart.db"`
}

// SessionConfig tunes silent token refresh.
type SessionConfig struct {
	RefreshLeeway time.Duration `envconfig:"JUICEKART_SESSION_REFRESH_LEEWAY" default:"30s"`
}

// PaymentConfig describes the hosted payment return flow.
type PaymentConfig struct {
	// ReturnURL is the route the gateway redirects the browser to after a
	// hosted payment completes. The local HTTP surface serves it.
	ReturnURL string `envconfig:"JUICEKART_PAYMENT_RETURN_URL" default:"http://localhost:7420/payments/return"`
}

// CheckoutConfig carries storefront-wide checkout settings.
type CheckoutConfig struct {
	Currency string `envconfig:"JUICEKART_CHECKOUT_CURRENCY" default:"GHS"`
}
