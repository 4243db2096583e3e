package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/caarlos0/env/v10"
)

const (
	BackendPostgres = "postgres"
	BackendMemory   = "memory"
	BackendRedis    = "redis"
	BackendStripe   = "stripe"
	BackendFake     = "fake"
)

type Config struct {
	Port string `env:"PORT" envDefault:"8082"`
	// PublicURL is where this service is reachable from a browser; the dev
	// checkout links point at it.
	PublicURL       string        `env:"PUBLIC_URL" envDefault:"http://localhost:8082"`
	DatabaseURL     string        `env:"DATABASE_URL"`
	RedisURL        string        `env:"REDIS_URL"`
	KafkaBrokers    []string      `env:"KAFKA_BROKERS" envSeparator:","`
	KafkaTopic      string        `env:"KAFKA_TOPIC" envDefault:"payment.session.state_changed"`
	NatsURL         string        `env:"NATS_URL"`
	JaegerEndpoint  string        `env:"JAEGER_ENDPOINT" envDefault:"jaeger:4318"`
	OTelEnabled     bool          `env:"OTEL_ENABLED" envDefault:"true"`
	SessionLockTTL  time.Duration `env:"SESSION_LOCK_TTL" envDefault:"1m"`
	ShutdownTimeout time.Duration `env:"SHUTDOWN_TIMEOUT" envDefault:"5s"`

	LedgerBackend    string `env:"LEDGER_BACKEND" envDefault:"postgres"`
	ProviderBackend  string `env:"PROVIDER_BACKEND" envDefault:"stripe"`
	GateStoreBackend string `env:"GATE_STORE_BACKEND" envDefault:"redis"`

	Stripe StripeConfig `envPrefix:"STRIPE_"`
	Gate   GateConfig   `envPrefix:"GATE_"`
	Retry  RetryConfig  `envPrefix:"RETRY_"`
}

type StripeConfig struct {
	SecretKey     string `env:"SECRET_KEY"`
	WebhookSecret string `env:"WEBHOOK_SECRET"`
	// SuccessURL is the page users land on after checkout.
	SuccessURL  string `env:"SUCCESS_URL" envDefault:"http://localhost:8501"`
	Currency    string `env:"CURRENCY" envDefault:"usd"`
	UnitAmount  int64  `env:"UNIT_AMOUNT" envDefault:"100"`
	ProductName string `env:"PRODUCT_NAME" envDefault:"AI Cover Letter Generation"`
	// RequestTimeout bounds each HTTP call to Stripe.
	RequestTimeout time.Duration `env:"REQUEST_TIMEOUT" envDefault:"5s"`
}

type GateConfig struct {
	Timeout      time.Duration `env:"TIMEOUT" envDefault:"5m"`
	MaxRetries   int           `env:"MAX_RETRIES" envDefault:"5"`
	PollInterval time.Duration `env:"POLL_INTERVAL" envDefault:"2s"`
	StateTTL     time.Duration `env:"STATE_TTL" envDefault:"10m"`
}

type RetryConfig struct {
	MaxAttempts     int           `env:"MAX_ATTEMPTS" envDefault:"3"`
	InitialInterval time.Duration `env:"INITIAL_INTERVAL" envDefault:"1s"`
	ProviderMaxWait time.Duration `env:"PROVIDER_MAX_WAIT" envDefault:"10s"`
	LedgerMaxWait   time.Duration `env:"LEDGER_MAX_WAIT" envDefault:"5s"`
	Jitter          float64       `env:"JITTER" envDefault:"0.1"`
}

func Load() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// ProviderCallBudget is the longest one retried provider call can take.
func (c *Config) ProviderCallBudget() time.Duration {
	attempts := time.Duration(c.Retry.MaxAttempts)
	if attempts < 1 {
		return 0
	}
	return attempts*c.Stripe.RequestTimeout + (attempts-1)*c.Retry.ProviderMaxWait
}

func (c *Config) Validate() error {
	var errs []error

	switch c.LedgerBackend {
	case BackendPostgres:
		if c.DatabaseURL == "" {
			errs = append(errs, errors.New("DATABASE_URL is required for the postgres ledger"))
		}
	case BackendMemory:
	default:
		errs = append(errs, fmt.Errorf("invalid LEDGER_BACKEND: %s (must be 'postgres' or 'memory')", c.LedgerBackend))
	}

	switch c.ProviderBackend {
	case BackendStripe:
		if c.Stripe.SecretKey == "" {
			errs = append(errs, errors.New("STRIPE_SECRET_KEY is required for the stripe provider"))
		}
		if c.Stripe.WebhookSecret == "" {
			errs = append(errs, errors.New("STRIPE_WEBHOOK_SECRET is required for the stripe provider"))
		}
	case BackendFake:
	default:
		errs = append(errs, fmt.Errorf("invalid PROVIDER_BACKEND: %s (must be 'stripe' or 'fake')", c.ProviderBackend))
	}

	switch c.GateStoreBackend {
	case BackendRedis:
		if c.RedisURL == "" {
			errs = append(errs, errors.New("REDIS_URL is required for the redis gate store"))
		}
	case BackendMemory:
	default:
		errs = append(errs, fmt.Errorf("invalid GATE_STORE_BACKEND: %s (must be 'redis' or 'memory')", c.GateStoreBackend))
	}

	if c.Stripe.UnitAmount <= 0 {
		errs = append(errs, errors.New("STRIPE_UNIT_AMOUNT must be positive"))
	}
	if c.Gate.Timeout <= 0 || c.Gate.PollInterval <= 0 {
		errs = append(errs, errors.New("GATE_TIMEOUT and GATE_POLL_INTERVAL must be positive"))
	}
	if c.Gate.MaxRetries < 1 {
		errs = append(errs, errors.New("GATE_MAX_RETRIES must be at least 1"))
	}
	if c.Gate.StateTTL < c.Gate.Timeout {
		errs = append(errs, errors.New("GATE_STATE_TTL must not be shorter than GATE_TIMEOUT"))
	}
	if c.Retry.MaxAttempts < 1 {
		errs = append(errs, errors.New("RETRY_MAX_ATTEMPTS must be at least 1"))
	}
	if c.Retry.Jitter < 0 || c.Retry.Jitter >= 1 {
		errs = append(errs, errors.New("RETRY_JITTER must be in [0, 1)"))
	}
	if c.Stripe.RequestTimeout <= 0 {
		errs = append(errs, errors.New("STRIPE_REQUEST_TIMEOUT must be positive"))
	}
	// A lock must outlive the slowest retried provider call made under it.
	if c.SessionLockTTL <= c.ProviderCallBudget() {
		errs = append(errs, fmt.Errorf("SESSION_LOCK_TTL must exceed the worst-case provider call time (%s)", c.ProviderCallBudget()))
	}
	if c.ShutdownTimeout <= 0 {
		errs = append(errs, errors.New("SHUTDOWN_TIMEOUT must be positive"))
	}

	return errors.Join(errs...)
}
