package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/ordertrack/backend/internal/domain/tracking"
)

// Config holds all application configuration
type Config struct {
	App       AppConfig
	Database  DatabaseConfig
	Redis     RedisConfig
	Log       LogConfig
	HTTP      HTTPConfig
	Reconcile ReconcileConfig
	Platform  PlatformConfig
	Carrier   CarrierConfig
	Chat      ChatConfig
	Messaging MessagingConfig
	Webhook   WebhookConfig
	Markers   MarkersConfig
}

// LogConfig holds logging configuration
type LogConfig struct {
	Level  string // debug, info, warn, error
	Format string // json, console
	Output string // stdout, stderr, or file path
}

// AppConfig holds application-specific settings
type AppConfig struct {
	Name string
	Env  string
	Port string
}

// DatabaseConfig holds database connection settings
type DatabaseConfig struct {
	Host            string
	Port            int
	User            string
	Password        string
	DBName          string
	SSLMode         string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime int // in minutes
	ConnMaxIdleTime int // in minutes
}

// RedisConfig holds Redis connection settings
type RedisConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
}

// HTTPConfig holds HTTP server configuration
type HTTPConfig struct {
	ReadTimeout      time.Duration
	WriteTimeout     time.Duration
	IdleTimeout      time.Duration
	MaxHeaderBytes   int
	MaxBodySize      int64
	CORSAllowOrigins []string
	CORSAllowMethods []string
	CORSAllowHeaders []string
	TrustedProxies   []string
}

// ReconcileConfig holds the polling loop configuration
type ReconcileConfig struct {
	Enabled      bool
	Interval     time.Duration // time between cycles
	CycleTimeout time.Duration // hard deadline for a full cycle
	CallTimeout  time.Duration // deadline for a single outbound call
	LockTTL      time.Duration // cycle lock expiry
}

// PlatformConfig holds the commerce platform API settings
type PlatformConfig struct {
	BaseURL            string
	AccessToken        string
	Timeout            time.Duration
	StatusFieldKey     string // key of the operational status field on the order
	BranchFieldKey     string // key of the supply-branch field on the order
	NestedOrderPayload bool   // order object wrapped under an "order" key
	DefaultBranchLabel string // customer-facing fallback when the branch is unknown
}

// CarrierConfig holds the carrier tracking-page fetch settings
type CarrierConfig struct {
	Timeout     time.Duration
	MaxPageSize int64 // cap on fetched page bytes
}

// ChatConfig holds the operations chat bot settings
type ChatConfig struct {
	BaseURL  string
	BotToken string
	ChatID   string
	Timeout  time.Duration
}

// MessagingConfig holds the customer messaging provider settings
type MessagingConfig struct {
	BaseURL            string
	ClientID           string
	ClientSecret       string
	Timeout            time.Duration
	PickupTemplate     string
	DeliveryTemplate   string
	DefaultPhonePrefix string // country calling code applied to local numbers
}

// WebhookConfig holds inbound webhook verification settings
type WebhookConfig struct {
	Secret string // HMAC secret; empty disables signature checks
}

// MarkersConfig holds the locale-specific status marker strings
type MarkersConfig struct {
	Courier              string
	TagArrivedAtBranch   string
	TagArrivedAtCustomer string
	TagCollected         string
	PageIntermediate     []string
	PageTerminal         []string
}

// Load loads configuration from TOML file and environment variables
// Priority (highest to lowest):
// 1. Environment variables with TRACK_ prefix (e.g., TRACK_DATABASE_PASSWORD)
// 2. config.toml
// 3. Built-in defaults
func Load() (*Config, error) {
	v := viper.New()

	// Set config file settings
	v.SetConfigName("config")
	v.SetConfigType("toml")
	v.AddConfigPath(".")
	v.AddConfigPath("/app")

	// Read config file
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
		// Config file not found is OK, we'll use defaults and env vars
	}

	// Enable environment variable override
	v.SetEnvPrefix("TRACK")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Build config struct
	cfg := &Config{
		App: AppConfig{
			Name: v.GetString("app.name"),
			Env:  v.GetString("app.env"),
			Port: v.GetString("app.port"),
		},
		Database: DatabaseConfig{
			Host:            v.GetString("database.host"),
			Port:            v.GetInt("database.port"),
			User:            v.GetString("database.user"),
			Password:        v.GetString("database.password"),
			DBName:          v.GetString("database.dbname"),
			SSLMode:         v.GetString("database.sslmode"),
			MaxOpenConns:    v.GetInt("database.max_open_conns"),
			MaxIdleConns:    v.GetInt("database.max_idle_conns"),
			ConnMaxLifetime: v.GetInt("database.conn_max_lifetime"),
			ConnMaxIdleTime: v.GetInt("database.conn_max_idle_time"),
		},
		Redis: RedisConfig{
			Host:     v.GetString("redis.host"),
			Port:     v.GetInt("redis.port"),
			Password: v.GetString("redis.password"),
			DB:       v.GetInt("redis.db"),
		},
		Log: LogConfig{
			Level:  v.GetString("log.level"),
			Format: v.GetString("log.format"),
			Output: v.GetString("log.output"),
		},
		HTTP: HTTPConfig{
			ReadTimeout:      v.GetDuration("http.read_timeout"),
			WriteTimeout:     v.GetDuration("http.write_timeout"),
			IdleTimeout:      v.GetDuration("http.idle_timeout"),
			MaxHeaderBytes:   v.GetInt("http.max_header_bytes"),
			MaxBodySize:      v.GetInt64("http.max_body_size"),
			CORSAllowOrigins: v.GetStringSlice("http.cors_allow_origins"),
			CORSAllowMethods: v.GetStringSlice("http.cors_allow_methods"),
			CORSAllowHeaders: v.GetStringSlice("http.cors_allow_headers"),
			TrustedProxies:   v.GetStringSlice("http.trusted_proxies"),
		},
		Reconcile: ReconcileConfig{
			Enabled:      v.GetBool("reconcile.enabled"),
			Interval:     v.GetDuration("reconcile.interval"),
			CycleTimeout: v.GetDuration("reconcile.cycle_timeout"),
			CallTimeout:  v.GetDuration("reconcile.call_timeout"),
			LockTTL:      v.GetDuration("reconcile.lock_ttl"),
		},
		Platform: PlatformConfig{
			BaseURL:            v.GetString("platform.base_url"),
			AccessToken:        v.GetString("platform.access_token"),
			Timeout:            v.GetDuration("platform.timeout"),
			StatusFieldKey:     v.GetString("platform.status_field_key"),
			BranchFieldKey:     v.GetString("platform.branch_field_key"),
			NestedOrderPayload: v.GetBool("platform.nested_order_payload"),
			DefaultBranchLabel: v.GetString("platform.default_branch_label"),
		},
		Carrier: CarrierConfig{
			Timeout:     v.GetDuration("carrier.timeout"),
			MaxPageSize: v.GetInt64("carrier.max_page_size"),
		},
		Chat: ChatConfig{
			BaseURL:  v.GetString("chat.base_url"),
			BotToken: v.GetString("chat.bot_token"),
			ChatID:   v.GetString("chat.chat_id"),
			Timeout:  v.GetDuration("chat.timeout"),
		},
		Messaging: MessagingConfig{
			BaseURL:            v.GetString("messaging.base_url"),
			ClientID:           v.GetString("messaging.client_id"),
			ClientSecret:       v.GetString("messaging.client_secret"),
			Timeout:            v.GetDuration("messaging.timeout"),
			PickupTemplate:     v.GetString("messaging.pickup_template"),
			DeliveryTemplate:   v.GetString("messaging.delivery_template"),
			DefaultPhonePrefix: v.GetString("messaging.default_phone_prefix"),
		},
		Webhook: WebhookConfig{
			Secret: v.GetString("webhook.secret"),
		},
		Markers: MarkersConfig{
			Courier:              v.GetString("markers.courier"),
			TagArrivedAtBranch:   v.GetString("markers.tag_arrived_at_branch"),
			TagArrivedAtCustomer: v.GetString("markers.tag_arrived_at_customer"),
			TagCollected:         v.GetString("markers.tag_collected"),
			PageIntermediate:     v.GetStringSlice("markers.page_intermediate"),
			PageTerminal:         v.GetStringSlice("markers.page_terminal"),
		},
	}

	// Apply defaults for empty values
	applyDefaults(cfg)

	// Validate configuration
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// applyDefaults sets default values for any empty config fields
func applyDefaults(cfg *Config) {
	if cfg.App.Name == "" {
		cfg.App.Name = "ordertrack-backend"
	}
	if cfg.App.Env == "" {
		cfg.App.Env = "development"
	}
	if cfg.App.Port == "" {
		cfg.App.Port = "8080"
	}
	if cfg.Database.Host == "" {
		cfg.Database.Host = "localhost"
	}
	if cfg.Database.Port == 0 {
		cfg.Database.Port = 5432
	}
	if cfg.Database.User == "" {
		cfg.Database.User = "postgres"
	}
	if cfg.Database.DBName == "" {
		cfg.Database.DBName = "ordertrack"
	}
	if cfg.Database.SSLMode == "" {
		cfg.Database.SSLMode = "disable"
	}
	if cfg.Database.MaxOpenConns == 0 {
		cfg.Database.MaxOpenConns = 25
	}
	if cfg.Database.MaxIdleConns == 0 {
		cfg.Database.MaxIdleConns = 5
	}
	if cfg.Database.ConnMaxLifetime == 0 {
		cfg.Database.ConnMaxLifetime = 60
	}
	if cfg.Database.ConnMaxIdleTime == 0 {
		cfg.Database.ConnMaxIdleTime = 30
	}
	if cfg.Redis.Host == "" {
		cfg.Redis.Host = "localhost"
	}
	if cfg.Redis.Port == 0 {
		cfg.Redis.Port = 6379
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
		cfg.HTTP.MaxHeaderBytes = 1 << 20 // 1MB
	}
	if cfg.HTTP.MaxBodySize == 0 {
		cfg.HTTP.MaxBodySize = 2 << 20 // 2MB
	}
	// NOTE: CORS origins are intentionally not given a default fallback to "*".
	// An empty list means no cross-origin requests are allowed until explicitly configured.
	if len(cfg.HTTP.CORSAllowMethods) == 0 {
		cfg.HTTP.CORSAllowMethods = []string{"GET", "POST", "OPTIONS"}
	}
	if len(cfg.HTTP.CORSAllowHeaders) == 0 {
		cfg.HTTP.CORSAllowHeaders = []string{"Content-Type", "X-Request-ID", "X-Webhook-Signature"}
	}
	if cfg.Reconcile.Interval == 0 {
		cfg.Reconcile.Interval = 30 * time.Minute
	}
	if cfg.Reconcile.CycleTimeout == 0 {
		cfg.Reconcile.CycleTimeout = 10 * time.Minute
	}
	if cfg.Reconcile.CallTimeout == 0 {
		cfg.Reconcile.CallTimeout = 30 * time.Second
	}
	if cfg.Reconcile.LockTTL == 0 {
		cfg.Reconcile.LockTTL = 15 * time.Minute
	}
	if cfg.Platform.Timeout == 0 {
		cfg.Platform.Timeout = 30 * time.Second
	}
	if cfg.Platform.StatusFieldKey == "" {
		cfg.Platform.StatusFieldKey = "operational_status"
	}
	if cfg.Platform.BranchFieldKey == "" {
		cfg.Platform.BranchFieldKey = "supply_branch"
	}
	if cfg.Platform.DefaultBranchLabel == "" {
		cfg.Platform.DefaultBranchLabel = "הסניף הקרוב"
	}
	if cfg.Carrier.Timeout == 0 {
		cfg.Carrier.Timeout = 30 * time.Second
	}
	if cfg.Carrier.MaxPageSize == 0 {
		cfg.Carrier.MaxPageSize = 1 << 20 // 1MB
	}
	if cfg.Chat.Timeout == 0 {
		cfg.Chat.Timeout = 15 * time.Second
	}
	if cfg.Messaging.Timeout == 0 {
		cfg.Messaging.Timeout = 15 * time.Second
	}
	if cfg.Messaging.PickupTemplate == "" {
		cfg.Messaging.PickupTemplate = "order_arrived_pickup"
	}
	if cfg.Messaging.DeliveryTemplate == "" {
		cfg.Messaging.DeliveryTemplate = "order_in_transit"
	}
	if cfg.Messaging.DefaultPhonePrefix == "" {
		cfg.Messaging.DefaultPhonePrefix = "+972"
	}

	defaults := tracking.DefaultStatusMarkers()
	if cfg.Markers.Courier == "" {
		cfg.Markers.Courier = defaults.Courier
	}
	if cfg.Markers.TagArrivedAtBranch == "" {
		cfg.Markers.TagArrivedAtBranch = defaults.TagArrivedAtBranch
	}
	if cfg.Markers.TagArrivedAtCustomer == "" {
		cfg.Markers.TagArrivedAtCustomer = defaults.TagArrivedAtCustomer
	}
	if cfg.Markers.TagCollected == "" {
		cfg.Markers.TagCollected = defaults.TagCollected
	}
	if len(cfg.Markers.PageIntermediate) == 0 {
		cfg.Markers.PageIntermediate = defaults.PageIntermediate
	}
	if len(cfg.Markers.PageTerminal) == 0 {
		cfg.Markers.PageTerminal = defaults.PageTerminal
	}
}

// validate performs validation on the configuration
func (c *Config) validate() error {
	// Validate connection pool settings
	if c.Database.MaxOpenConns <= 0 {
		return fmt.Errorf("database.max_open_conns must be positive")
	}
	if c.Database.MaxIdleConns < 0 {
		return fmt.Errorf("database.max_idle_conns cannot be negative")
	}
	if c.Database.MaxIdleConns > c.Database.MaxOpenConns {
		return fmt.Errorf("database.max_idle_conns (%d) cannot exceed database.max_open_conns (%d)",
			c.Database.MaxIdleConns, c.Database.MaxOpenConns)
	}

	if c.Reconcile.CycleTimeout > c.Reconcile.LockTTL {
		return fmt.Errorf("reconcile.cycle_timeout (%s) cannot exceed reconcile.lock_ttl (%s)",
			c.Reconcile.CycleTimeout, c.Reconcile.LockTTL)
	}

	// Production-specific validations
	if c.App.Env == "production" {
		if c.Database.Password == "" {
			return fmt.Errorf("database.password is required in production")
		}
		if c.Database.SSLMode == "disable" {
			return fmt.Errorf("database.sslmode cannot be 'disable' in production")
		}
		if c.Platform.BaseURL == "" {
			return fmt.Errorf("platform.base_url is required in production")
		}
		if c.Platform.AccessToken == "" {
			return fmt.Errorf("platform.access_token is required in production")
		}
		if c.Webhook.Secret == "" {
			return fmt.Errorf("webhook.secret is required in production")
		}
		// CORS must not use wildcard in production
		for _, origin := range c.HTTP.CORSAllowOrigins {
			if origin == "*" {
				return fmt.Errorf("cors_allow_origins cannot be '*' in production (use specific origins)")
			}
		}
	}

	return nil
}

// StatusMarkers converts the marker section into the domain value
func (m *MarkersConfig) StatusMarkers() tracking.StatusMarkers {
	return tracking.StatusMarkers{
		Courier:              m.Courier,
		TagArrivedAtBranch:   m.TagArrivedAtBranch,
		TagArrivedAtCustomer: m.TagArrivedAtCustomer,
		TagCollected:         m.TagCollected,
		PageIntermediate:     m.PageIntermediate,
		PageTerminal:         m.PageTerminal,
	}
}

// DSN returns the database connection string with properly escaped values
func (d *DatabaseConfig) DSN() string {
	u := url.URL{
		Scheme: "postgres",
		User:   url.UserPassword(d.User, d.Password),
		Host:   fmt.Sprintf("%s:%d", d.Host, d.Port),
		Path:   d.DBName,
	}
	q := u.Query()
	q.Set("sslmode", d.SSLMode)
	u.RawQuery = q.Encode()
	return u.String()
}
