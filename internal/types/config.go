package types

type RunMode string

const (
	// ModeLocal runs the API server and the cron scheduler in one process
	ModeLocal RunMode = "local"
	// ModeAPI runs just the API server
	ModeAPI RunMode = "api"
	// ModeCron runs just the scheduled maintenance jobs
	ModeCron RunMode = "cron"
)

type LogLevel string

const (
	LogLevelDebug LogLevel = "debug"
	LogLevelInfo  LogLevel = "info"
	LogLevelWarn  LogLevel = "warn"
	LogLevelError LogLevel = "error"
)

// PaymentProviderType selects the PaymentProvider implementation.
type PaymentProviderType string

const (
	PaymentProviderStripe PaymentProviderType = "stripe"
	// PaymentProviderNone accepts every request without contacting a provider.
	PaymentProviderNone PaymentProviderType = "none"
)

// CacheProviderType selects the backing store of the local response cache.
type CacheProviderType string

const (
	CacheProviderMemory CacheProviderType = "memory"
	CacheProviderRedis  CacheProviderType = "redis"
)

// PurgeProviderType selects the CDN purge implementation.
type PurgeProviderType string

const (
	PurgeProviderNone   PurgeProviderType = "none"
	PurgeProviderFastly PurgeProviderType = "fastly"
)

// WebhookProviderType selects how outbound webhooks are delivered.
type WebhookProviderType string

const (
	WebhookProviderHTTP WebhookProviderType = "http"
	WebhookProviderSvix WebhookProviderType = "svix"
)
