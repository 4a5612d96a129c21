package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// ErrInvalidConfig is returned when the loaded configuration fails validation
var ErrInvalidConfig = errors.New("config: invalid configuration")

// Config holds all application configuration
type Config struct {
	App         AppConfig
	HTTP        HTTPConfig
	Log         LogConfig
	Commerce    CommerceConfig
	Billing     BillingConfig
	Sync        SyncConfig
	Idempotency IdempotencyConfig
	Redis       RedisConfig
	Telemetry   TelemetryConfig
	Connector   ConnectorConfig
}

// AppConfig holds application-specific settings
type AppConfig struct {
	Name    string
	Env     string
	Port    string
	Version string
}

// HTTPConfig holds HTTP server configuration
type HTTPConfig struct {
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
	MaxHeaderBytes  int
	ShutdownTimeout time.Duration
	TrustedProxies  []string
}

// LogConfig holds logging configuration
type LogConfig struct {
	Level      string // debug, info, warn, error
	Format     string // json, console
	Output     string // stdout, stderr, or file path
	TimeFormat string
}

// CommerceConfig holds commercetools API credentials
type CommerceConfig struct {
	ProjectKey     string
	ClientID       string
	ClientSecret   string
	Scopes         []string
	APIURL         string
	AuthURL        string
	TimeoutSeconds int
}

// BillingConfig holds Zuora API credentials and account defaults
type BillingConfig struct {
	BaseURL        string
	ClientID       string
	ClientSecret   string
	Currency       string
	TimeoutSeconds int
}

// SyncConfig holds notification processing settings
type SyncConfig struct {
	// OrderFetchDelay is waited before reading a newly created order
	OrderFetchDelay time.Duration
	// TermMonths is the initial and renewal term of every subscription
	TermMonths int
	// MaxBodySize caps push delivery bodies in bytes
	MaxBodySize int64
	// ProcessingTimeout bounds the background processing of one delivery; 0 disables it
	ProcessingTimeout time.Duration
}

// IdempotencyConfig holds delivery de-duplication settings
type IdempotencyConfig struct {
	Enabled bool
	TTL     time.Duration
	// AllowInMemoryFallback keeps de-duplication process-local when Redis is unreachable
	AllowInMemoryFallback bool
}

// RedisConfig holds Redis connection settings
type RedisConfig struct {
	Host      string
	Port      int
	Password  string
	DB        int
	KeyPrefix string
}

// TelemetryConfig holds OpenTelemetry configuration
type TelemetryConfig struct {
	Enabled           bool
	CollectorEndpoint string  // OTEL Collector gRPC endpoint (e.g., "localhost:4317")
	SamplingRatio     float64 // 0.0-1.0
	ServiceName       string
	Insecure          bool // plaintext gRPC, development only
	MetricsInterval   time.Duration
	LogsEnabled       bool
}

// ConnectorConfig holds the settings of the commerce subscription managed by the connector CLI
type ConnectorConfig struct {
	SubscriptionKey string
	TopicName       string
	GCPProjectID    string
}

// legacyEnv maps config keys to the environment variable names used by
// existing deployments. SYNC_-prefixed names take precedence.
var legacyEnv = map[string]string{
	"commerce.project_key":   "CTP_PROJECT_KEY",
	"commerce.client_id":     "CTP_CLIENT_ID",
	"commerce.client_secret": "CTP_CLIENT_SECRET",
	"commerce.scopes":        "CTP_SCOPE",
	"commerce.api_url":       "CTP_API_URL",
	"commerce.auth_url":      "CTP_AUTH_URL",
	"billing.base_url":       "ZUORA_BASEURL",
	"billing.client_id":      "ZUORA_CLIENT_ID",
	"billing.client_secret":  "ZUORA_CLIENT_SECRET",
	"connector.topic_name":   "CONNECT_GCP_TOPIC_NAME",
	"connector.gcp_project":  "CONNECT_GCP_PROJECT_ID",
}

// Load loads configuration from TOML file and environment variables
// Priority (highest to lowest):
// 1. Environment variables with SYNC_ prefix (e.g., SYNC_BILLING_CLIENT_SECRET)
// 2. Legacy deployment variables (e.g., ZUORA_CLIENT_SECRET)
// 3. config.toml
// 4. Built-in defaults
func Load() (*Config, error) {
	v := viper.New()

	v.SetConfigName("config")
	v.SetConfigType("toml")
	v.AddConfigPath(".")
	v.AddConfigPath("/app")

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	v.SetEnvPrefix("SYNC")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	for key, legacy := range legacyEnv {
		prefixed := "SYNC_" + strings.ToUpper(strings.ReplaceAll(key, ".", "_"))
		if err := v.BindEnv(key, prefixed, legacy); err != nil {
			return nil, fmt.Errorf("bind env %s: %w", key, err)
		}
	}

	cfg := &Config{
		App: AppConfig{
			Name:    v.GetString("app.name"),
			Env:     v.GetString("app.env"),
			Port:    v.GetString("app.port"),
			Version: v.GetString("app.version"),
		},
		HTTP: HTTPConfig{
			ReadTimeout:     v.GetDuration("http.read_timeout"),
			WriteTimeout:    v.GetDuration("http.write_timeout"),
			IdleTimeout:     v.GetDuration("http.idle_timeout"),
			MaxHeaderBytes:  v.GetInt("http.max_header_bytes"),
			ShutdownTimeout: v.GetDuration("http.shutdown_timeout"),
			TrustedProxies:  v.GetStringSlice("http.trusted_proxies"),
		},
		Log: LogConfig{
			Level:      v.GetString("log.level"),
			Format:     v.GetString("log.format"),
			Output:     v.GetString("log.output"),
			TimeFormat: v.GetString("log.time_format"),
		},
		Commerce: CommerceConfig{
			ProjectKey:     v.GetString("commerce.project_key"),
			ClientID:       v.GetString("commerce.client_id"),
			ClientSecret:   v.GetString("commerce.client_secret"),
			Scopes:         v.GetStringSlice("commerce.scopes"),
			APIURL:         v.GetString("commerce.api_url"),
			AuthURL:        v.GetString("commerce.auth_url"),
			TimeoutSeconds: v.GetInt("commerce.timeout_seconds"),
		},
		Billing: BillingConfig{
			BaseURL:        v.GetString("billing.base_url"),
			ClientID:       v.GetString("billing.client_id"),
			ClientSecret:   v.GetString("billing.client_secret"),
			Currency:       v.GetString("billing.currency"),
			TimeoutSeconds: v.GetInt("billing.timeout_seconds"),
		},
		Sync: SyncConfig{
			OrderFetchDelay:   v.GetDuration("sync.order_fetch_delay"),
			TermMonths:        v.GetInt("sync.term_months"),
			MaxBodySize:       v.GetInt64("sync.max_body_size"),
			ProcessingTimeout: v.GetDuration("sync.processing_timeout"),
		},
		Idempotency: IdempotencyConfig{
			Enabled:               v.GetBool("idempotency.enabled"),
			TTL:                   v.GetDuration("idempotency.ttl"),
			AllowInMemoryFallback: v.GetBool("idempotency.allow_in_memory_fallback"),
		},
		Redis: RedisConfig{
			Host:      v.GetString("redis.host"),
			Port:      v.GetInt("redis.port"),
			Password:  v.GetString("redis.password"),
			DB:        v.GetInt("redis.db"),
			KeyPrefix: v.GetString("redis.key_prefix"),
		},
		Telemetry: TelemetryConfig{
			Enabled:           v.GetBool("telemetry.enabled"),
			CollectorEndpoint: v.GetString("telemetry.collector_endpoint"),
			SamplingRatio:     v.GetFloat64("telemetry.sampling_ratio"),
			ServiceName:       v.GetString("telemetry.service_name"),
			Insecure:          v.GetBool("telemetry.insecure"),
			MetricsInterval:   v.GetDuration("telemetry.metrics_interval"),
			LogsEnabled:       v.GetBool("telemetry.logs_enabled"),
		},
		Connector: ConnectorConfig{
			SubscriptionKey: v.GetString("connector.subscription_key"),
			TopicName:       v.GetString("connector.topic_name"),
			GCPProjectID:    v.GetString("connector.gcp_project"),
		},
	}

	// order_fetch_delay=0 and idempotency.enabled=false are meaningful, so
	// their defaults only apply when the key is absent
	if !v.IsSet("sync.order_fetch_delay") {
		cfg.Sync.OrderFetchDelay = 2 * time.Second
	}
	if !v.IsSet("idempotency.enabled") {
		cfg.Idempotency.Enabled = true
	}
	if !v.IsSet("idempotency.allow_in_memory_fallback") {
		cfg.Idempotency.AllowInMemoryFallback = true
	}

	applyDefaults(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// applyDefaults sets default values for any empty config fields
func applyDefaults(cfg *Config) {
	if cfg.App.Name == "" {
		cfg.App.Name = "billing-sync"
	}
	if cfg.App.Env == "" {
		cfg.App.Env = "development"
	}
	if cfg.App.Port == "" {
		cfg.App.Port = "8080"
	}
	if cfg.App.Version == "" {
		cfg.App.Version = "dev"
	}
	if cfg.HTTP.ReadTimeout == 0 {
		cfg.HTTP.ReadTimeout = 15 * time.Second
	}
	if cfg.HTTP.WriteTimeout == 0 {
		cfg.HTTP.WriteTimeout = 15 * time.Second
	}
	if cfg.HTTP.IdleTimeout == 0 {
		cfg.HTTP.IdleTimeout = 60 * time.Second
	}
	if cfg.HTTP.MaxHeaderBytes == 0 {
		cfg.HTTP.MaxHeaderBytes = 1 << 20
	}
	if cfg.HTTP.ShutdownTimeout == 0 {
		cfg.HTTP.ShutdownTimeout = 30 * time.Second
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "console"
	}
	if cfg.Log.Output == "" {
		cfg.Log.Output = "stdout"
	}
	if cfg.Billing.Currency == "" {
		cfg.Billing.Currency = "USD"
	}
	if cfg.Sync.TermMonths == 0 {
		cfg.Sync.TermMonths = 6
	}
	if cfg.Sync.MaxBodySize == 0 {
		cfg.Sync.MaxBodySize = 1 << 20 // 1MB
	}
	if cfg.Idempotency.TTL == 0 {
		cfg.Idempotency.TTL = 24 * time.Hour
	}
	if cfg.Redis.Port == 0 {
		cfg.Redis.Port = 6379
	}
	if cfg.Telemetry.CollectorEndpoint == "" {
		cfg.Telemetry.CollectorEndpoint = "localhost:4317"
	}
	if cfg.Telemetry.SamplingRatio == 0 {
		cfg.Telemetry.SamplingRatio = 1.0
	}
	if cfg.Telemetry.ServiceName == "" {
		cfg.Telemetry.ServiceName = cfg.App.Name
	}
	if cfg.Telemetry.MetricsInterval == 0 {
		cfg.Telemetry.MetricsInterval = 60 * time.Second
	}
	if cfg.Connector.SubscriptionKey == "" {
		cfg.Connector.SubscriptionKey = "billing-sync-subscription"
	}
}

// Validate checks settings that have no sensible fallback. Credentials are
// validated by the adapters that use them.
func (c *Config) Validate() error {
	var problems []string

	if c.Sync.OrderFetchDelay < 0 {
		problems = append(problems, "sync.order_fetch_delay cannot be negative")
	}
	if c.Sync.TermMonths <= 0 {
		problems = append(problems, "sync.term_months must be positive")
	}
	if c.Sync.MaxBodySize <= 0 {
		problems = append(problems, "sync.max_body_size must be positive")
	}
	if len(c.Billing.Currency) != 3 {
		problems = append(problems, fmt.Sprintf("billing.currency must be an ISO 4217 code, got %q", c.Billing.Currency))
	}
	if c.Telemetry.SamplingRatio < 0.0 || c.Telemetry.SamplingRatio > 1.0 {
		problems = append(problems, fmt.Sprintf("telemetry.sampling_ratio must be between 0.0 and 1.0, got %f", c.Telemetry.SamplingRatio))
	}

	if c.App.Env == "production" {
		if c.Idempotency.Enabled && c.Redis.Host == "" && !c.Idempotency.AllowInMemoryFallback {
			problems = append(problems, "redis.host is required in production when idempotency is enabled without in-memory fallback")
		}
		if c.Telemetry.Enabled && c.Telemetry.Insecure {
			problems = append(problems, "telemetry.insecure must be false in production")
		}
	}

	if len(problems) > 0 {
		return fmt.Errorf("%w: %s", ErrInvalidConfig, strings.Join(problems, "; "))
	}
	return nil
}

// IsProduction reports whether the app runs in the production environment
func (c *Config) IsProduction() bool {
	return c.App.Env == "production"
}
