package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/flexprice/subscriptions/internal/types"
	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Configuration struct {
	Deployment    DeploymentConfig    `mapstructure:"deployment" validate:"required"`
	Server        ServerConfig        `mapstructure:"server" validate:"required"`
	Logging       LoggingConfig       `mapstructure:"logging" validate:"required"`
	Postgres      PostgresConfig      `mapstructure:"postgres"`
	Auth          AuthConfig          `mapstructure:"auth"`
	Payment       PaymentConfig       `mapstructure:"payment" validate:"required"`
	Billing       BillingConfig       `mapstructure:"billing" validate:"required"`
	Subscriptions SubscriptionsConfig `mapstructure:"subscriptions"`
	Cache         CacheConfig         `mapstructure:"cache" validate:"required"`
	Purge         PurgeConfig         `mapstructure:"purge"`
	Webhook       WebhookConfig       `mapstructure:"webhook"`
	Sentry        SentryConfig        `mapstructure:"sentry"`
	Cleanup       CleanupConfig       `mapstructure:"cleanup"`
}

type DeploymentConfig struct {
	Mode types.RunMode `mapstructure:"mode" validate:"required,oneof=local api cron"`
}

type ServerConfig struct {
	Address string `mapstructure:"address" validate:"required"`
}

type LoggingConfig struct {
	Level types.LogLevel `mapstructure:"level" validate:"required"`
}

type PostgresConfig struct {
	Host         string `mapstructure:"host"`
	Port         int    `mapstructure:"port"`
	User         string `mapstructure:"user"`
	Password     string `mapstructure:"password"`
	DBName       string `mapstructure:"dbname"`
	SSLMode      string `mapstructure:"sslmode"`
	MaxOpenConns int    `mapstructure:"max_open_conns"`
	MaxIdleConns int    `mapstructure:"max_idle_conns"`
}

// AuthConfig controls bearer-token authentication of the account routes.
// Disabled is meant for tests and local runs only.
type AuthConfig struct {
	Secret   string `mapstructure:"secret"`
	Disabled bool   `mapstructure:"disabled"`
}

type PaymentConfig struct {
	Provider types.PaymentProviderType `mapstructure:"provider" validate:"required,oneof=stripe none"`
	// Timeout bounds every provider call made while serving a request.
	Timeout time.Duration `mapstructure:"timeout" validate:"required"`
	Stripe  StripeConfig  `mapstructure:"stripe"`
}

type StripeConfig struct {
	SecretKey     string `mapstructure:"secret_key"`
	WebhookSecret string `mapstructure:"webhook_secret"`
}

type BillingConfig struct {
	// VATPercent is a whole percentage, 20 means 20%.
	VATPercent    float64 `mapstructure:"vat_percent" validate:"gte=0,lt=100"`
	SellerCountry string  `mapstructure:"seller_country"`
}

type SubscriptionsConfig struct {
	// AllowMultiple treats every plan as allowing multiple active subscriptions.
	AllowMultiple bool `mapstructure:"allow_multiple"`
}

type CacheConfig struct {
	Provider types.CacheProviderType `mapstructure:"provider" validate:"required,oneof=memory redis"`
	TTL      time.Duration           `mapstructure:"ttl"`
	Redis    RedisConfig             `mapstructure:"redis"`
}

type RedisConfig struct {
	Address  string `mapstructure:"address"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

type PurgeConfig struct {
	Provider types.PurgeProviderType `mapstructure:"provider"`
	// Timeout bounds a background purge after the request has returned.
	Timeout  time.Duration           `mapstructure:"timeout"`
	Fastly   FastlyConfig            `mapstructure:"fastly"`
}

type FastlyConfig struct {
	APIToken  string `mapstructure:"api_token"`
	ServiceID string `mapstructure:"service_id"`
	BaseURL   string `mapstructure:"base_url"`
}

type WebhookConfig struct {
	// RenewURL receives a POST after every processed renewal. Empty disables it.
	RenewURL        string                    `mapstructure:"renew_url"`
	Provider        types.WebhookProviderType `mapstructure:"provider"`
	Topic           string                    `mapstructure:"topic"`
	MaxRetries      int                       `mapstructure:"max_retries"`
	// InitialInterval and MaxInterval bound the redelivery backoff.
	InitialInterval time.Duration             `mapstructure:"initial_interval"`
	MaxInterval     time.Duration             `mapstructure:"max_interval"`
	Svix            SvixConfig                `mapstructure:"svix"`
}

type SvixConfig struct {
	AuthToken string `mapstructure:"auth_token"`
	BaseURL   string `mapstructure:"base_url"`
	AppID     string `mapstructure:"app_id"`
}

type SentryConfig struct {
	Enabled     bool    `mapstructure:"enabled"`
	DSN         string  `mapstructure:"dsn"`
	Environment string  `mapstructure:"environment"`
	SampleRate  float64 `mapstructure:"sample_rate"`
}

// CleanupConfig drives the stale provider customer cleanup job.
type CleanupConfig struct {
	Schedule      string        `mapstructure:"schedule"`
	OlderThan     time.Duration `mapstructure:"older_than"`
	RatePerSecond float64       `mapstructure:"rate_per_second"`
}

func NewConfig() (*Configuration, error) {
	// .env is optional and only fills variables that are not already set
	_ = godotenv.Load()

	v := viper.New()

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath("./internal/config")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	v.AddConfigPath("/etc/subscriptions")

	v.SetEnvPrefix("SUBSCRIPTIONS")
	v.SetEnvKeyReplacer(strings.NewReplacer(
		".", "_",
		"-", "_",
	))
	v.AutomaticEnv()

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		fmt.Printf("Error reading config file: %v\n", err)
		if !errors.As(err, &viper.ConfigFileNotFoundError{}) {
			return nil, err
		}
	} else {
		fmt.Printf("Using config file: %s\n", v.ConfigFileUsed())
	}

	var config Configuration
	if err := v.Unmarshal(&config); err != nil {
		return nil, err
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return &config, nil
}

func setDefaults(v *viper.Viper) {
	d := GetDefaultConfig()
	v.SetDefault("deployment.mode", d.Deployment.Mode)
	v.SetDefault("server.address", d.Server.Address)
	v.SetDefault("logging.level", d.Logging.Level)
	v.SetDefault("postgres.host", d.Postgres.Host)
	v.SetDefault("postgres.port", d.Postgres.Port)
	v.SetDefault("postgres.sslmode", d.Postgres.SSLMode)
	v.SetDefault("postgres.max_open_conns", d.Postgres.MaxOpenConns)
	v.SetDefault("postgres.max_idle_conns", d.Postgres.MaxIdleConns)
	v.SetDefault("payment.provider", d.Payment.Provider)
	v.SetDefault("payment.timeout", d.Payment.Timeout)
	v.SetDefault("billing.vat_percent", d.Billing.VATPercent)
	v.SetDefault("cache.provider", d.Cache.Provider)
	v.SetDefault("cache.ttl", d.Cache.TTL)
	v.SetDefault("purge.provider", d.Purge.Provider)
	v.SetDefault("purge.timeout", d.Purge.Timeout)
	v.SetDefault("purge.fastly.base_url", d.Purge.Fastly.BaseURL)
	v.SetDefault("webhook.provider", d.Webhook.Provider)
	v.SetDefault("webhook.topic", d.Webhook.Topic)
	v.SetDefault("webhook.max_retries", d.Webhook.MaxRetries)
	v.SetDefault("webhook.initial_interval", d.Webhook.InitialInterval)
	v.SetDefault("webhook.max_interval", d.Webhook.MaxInterval)
	v.SetDefault("cleanup.schedule", d.Cleanup.Schedule)
	v.SetDefault("cleanup.older_than", d.Cleanup.OlderThan)
	v.SetDefault("cleanup.rate_per_second", d.Cleanup.RatePerSecond)
}

func (c Configuration) Validate() error {
	validate := validator.New()
	return validate.Struct(c)
}

// GetDefaultConfig returns a default configuration for local development
// This is useful for running scripts or other non-web applications
func GetDefaultConfig() *Configuration {
	return &Configuration{
		Deployment: DeploymentConfig{Mode: types.ModeLocal},
		Server:     ServerConfig{Address: ":8080"},
		Logging:    LoggingConfig{Level: types.LogLevelInfo},
		Postgres: PostgresConfig{
			Host:         "localhost",
			Port:         5432,
			SSLMode:      "disable",
			MaxOpenConns: 10,
			MaxIdleConns: 5,
		},
		Payment: PaymentConfig{
			Provider: types.PaymentProviderNone,
			Timeout:  15 * time.Second,
		},
		Billing: BillingConfig{VATPercent: 20},
		Cache: CacheConfig{
			Provider: types.CacheProviderMemory,
			TTL:      30 * time.Minute,
		},
		Purge: PurgeConfig{
			Provider: types.PurgeProviderNone,
			Timeout:  30 * time.Second,
			Fastly:   FastlyConfig{BaseURL: "https://api.fastly.com"},
		},
		Webhook: WebhookConfig{
			Provider:        types.WebhookProviderHTTP,
			Topic:           "webhooks",
			MaxRetries:      3,
			InitialInterval: time.Second,
			MaxInterval:     10 * time.Second,
		},
		Cleanup: CleanupConfig{
			Schedule:      "@daily",
			OlderThan:     30 * 24 * time.Hour,
			RatePerSecond: 10,
		},
	}
}

func (c PostgresConfig) GetDSN() string {
	return fmt.Sprintf(
		"user=%s password=%s dbname=%s host=%s port=%d sslmode=%s",
		c.User,
		c.Password,
		c.DBName,
		c.Host,
		c.Port,
		c.SSLMode,
	)
}
