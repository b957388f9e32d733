package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all application configuration
type Config struct {
	App       AppConfig
	Database  DatabaseConfig
	Redis     RedisConfig
	JWT       JWTConfig
	Log       LogConfig
	HTTP      HTTPConfig
	Scheduler SchedulerConfig
	MCF       MCFConfig
	Cursor    CursorConfig
	Telemetry TelemetryConfig
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
	Driver          string // postgres, sqlite
	Path            string // sqlite file path
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

// Addr returns host:port
func (r *RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%d", r.Host, r.Port)
}

// JWTConfig holds the admin API token settings
type JWTConfig struct {
	Secret                string
	Issuer                string
	AccessTokenExpiration time.Duration
}

// HTTPConfig holds HTTP server configuration
type HTTPConfig struct {
	ReadTimeout    time.Duration
	WriteTimeout   time.Duration
	IdleTimeout    time.Duration
	MaxHeaderBytes int
	MaxBodySize    int64
	TrustedProxies []string
}

// SchedulerConfig holds reconciliation job intervals
type SchedulerConfig struct {
	Enabled                  bool
	InventoryCurrentInterval time.Duration
	InventoryFullInterval    time.Duration
	OrderStatusInterval      time.Duration
	ResubmitInterval         time.Duration
	JobTimeout               time.Duration
	RunOnStart               bool
}

// MCFConfig holds fulfillment provider settings
type MCFConfig struct {
	SellerID           string
	MarketplaceID      string
	Region             string // na, eu, fe
	Endpoint           string // overrides the region endpoint when set
	AccessKeyID        string
	SecretKey          string
	SigningRegion      string
	Simulate           bool
	RequestTimeout     time.Duration
	PackingSlipComment string
	ShipConfirmation   bool
	InventoryPageSize  int
	OrderPageSize      int
	ResubmitBatchSize  int
	MaxAttempts        int
	LeaseTTL           time.Duration
	EnabledStoreIDs    []int64
}

// CursorConfig selects where sync cursors live
type CursorConfig struct {
	Backend string // database, redis
}

// TelemetryConfig holds OpenTelemetry configuration
type TelemetryConfig struct {
	Enabled           bool    // Whether to enable OpenTelemetry
	CollectorEndpoint string  // OTEL Collector endpoint (e.g., "localhost:4317")
	SamplingRatio     float64 // Sampling ratio (0.0-1.0, 1.0 = 100%)
	ServiceName       string  // Service name for traces
	Insecure          bool    // Use insecure (non-TLS) connection (development only)
	MetricsEnabled    bool
	MetricsInterval   time.Duration
	// Database tracing options
	DBTraceEnabled bool // Enable database query tracing (otelgorm)
	DBLogFullSQL   bool // Log full SQL statements (dev only)
	// Log export through the OTLP logs pipeline
	LogsEnabled bool
	// Pyroscope continuous profiling
	ProfilingEnabled  bool
	ProfilerAddress   string // e.g. "http://pyroscope:4040"
	ProfilerAuthUser  string
	ProfilerAuthToken string
}

// Provider regions with a known endpoint.
var regionEndpoints = map[string]string{
	"na": "https://mws.amazonservices.com",
	"eu": "https://mws-eu.amazonservices.com",
	"fe": "https://mws-fe.amazonservices.com",
}

// EndpointURL returns the custom endpoint when set, else the region endpoint.
func (m *MCFConfig) EndpointURL() string {
	if m.Endpoint != "" {
		return strings.TrimRight(m.Endpoint, "/")
	}
	return regionEndpoints[strings.ToLower(m.Region)]
}

// Load loads configuration from TOML file and environment variables
// Priority (highest to lowest):
// 1. Environment variables with MCF_ prefix (e.g., MCF_DATABASE_PASSWORD)
// 2. config.toml
// 3. Built-in defaults
func Load() (*Config, error) {
	v := viper.New()

	v.SetConfigName("config")
	v.SetConfigType("toml")
	v.AddConfigPath(".")
	v.AddConfigPath("/app")

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
		// Config file not found is OK, we'll use defaults and env vars
	}

	v.SetEnvPrefix("MCF")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	v.SetDefault("scheduler.enabled", true)

	cfg := &Config{
		App: AppConfig{
			Name: v.GetString("app.name"),
			Env:  v.GetString("app.env"),
			Port: v.GetString("app.port"),
		},
		Database: DatabaseConfig{
			Driver:          v.GetString("database.driver"),
			Path:            v.GetString("database.path"),
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
		JWT: JWTConfig{
			Secret:                v.GetString("jwt.secret"),
			Issuer:                v.GetString("jwt.issuer"),
			AccessTokenExpiration: v.GetDuration("jwt.access_token_expiration"),
		},
		Log: LogConfig{
			Level:  v.GetString("log.level"),
			Format: v.GetString("log.format"),
			Output: v.GetString("log.output"),
		},
		HTTP: HTTPConfig{
			ReadTimeout:    v.GetDuration("http.read_timeout"),
			WriteTimeout:   v.GetDuration("http.write_timeout"),
			IdleTimeout:    v.GetDuration("http.idle_timeout"),
			MaxHeaderBytes: v.GetInt("http.max_header_bytes"),
			MaxBodySize:    v.GetInt64("http.max_body_size"),
			TrustedProxies: v.GetStringSlice("http.trusted_proxies"),
		},
		Scheduler: SchedulerConfig{
			Enabled:                  v.GetBool("scheduler.enabled"),
			InventoryCurrentInterval: v.GetDuration("scheduler.inventory_current_interval"),
			InventoryFullInterval:    v.GetDuration("scheduler.inventory_full_interval"),
			OrderStatusInterval:      v.GetDuration("scheduler.order_status_interval"),
			ResubmitInterval:         v.GetDuration("scheduler.resubmit_interval"),
			JobTimeout:               v.GetDuration("scheduler.job_timeout"),
			RunOnStart:               v.GetBool("scheduler.run_on_start"),
		},
		MCF: MCFConfig{
			SellerID:           v.GetString("mcf.seller_id"),
			MarketplaceID:      v.GetString("mcf.marketplace_id"),
			Region:             v.GetString("mcf.region"),
			Endpoint:           v.GetString("mcf.endpoint"),
			AccessKeyID:        v.GetString("mcf.access_key_id"),
			SecretKey:          v.GetString("mcf.secret_key"),
			SigningRegion:      v.GetString("mcf.signing_region"),
			Simulate:           v.GetBool("mcf.simulate"),
			RequestTimeout:     v.GetDuration("mcf.request_timeout"),
			PackingSlipComment: v.GetString("mcf.packing_slip_comment"),
			ShipConfirmation:   v.GetBool("mcf.ship_confirmation"),
			InventoryPageSize:  v.GetInt("mcf.inventory_page_size"),
			OrderPageSize:      v.GetInt("mcf.order_page_size"),
			ResubmitBatchSize:  v.GetInt("mcf.resubmit_batch_size"),
			MaxAttempts:        v.GetInt("mcf.max_attempts"),
			LeaseTTL:           v.GetDuration("mcf.lease_ttl"),
			EnabledStoreIDs:    toInt64s(v.GetIntSlice("mcf.enabled_store_ids")),
		},
		Cursor: CursorConfig{
			Backend: v.GetString("cursor.backend"),
		},
		Telemetry: TelemetryConfig{
			Enabled:           v.GetBool("telemetry.enabled"),
			CollectorEndpoint: v.GetString("telemetry.collector_endpoint"),
			SamplingRatio:     v.GetFloat64("telemetry.sampling_ratio"),
			ServiceName:       v.GetString("telemetry.service_name"),
			Insecure:          v.GetBool("telemetry.insecure"),
			MetricsEnabled:    v.GetBool("telemetry.metrics_enabled"),
			MetricsInterval:   v.GetDuration("telemetry.metrics_interval"),
			DBTraceEnabled:    v.GetBool("telemetry.db_trace_enabled"),
			DBLogFullSQL:      v.GetBool("telemetry.db_log_full_sql"),
			LogsEnabled:       v.GetBool("telemetry.logs_enabled"),
			ProfilingEnabled:  v.GetBool("telemetry.profiling_enabled"),
			ProfilerAddress:   v.GetString("telemetry.profiler_address"),
			ProfilerAuthUser:  v.GetString("telemetry.profiler_auth_user"),
			ProfilerAuthToken: v.GetString("telemetry.profiler_auth_token"),
		},
	}

	applyDefaults(cfg)

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func toInt64s(in []int) []int64 {
	if len(in) == 0 {
		return nil
	}
	out := make([]int64, 0, len(in))
	for _, v := range in {
		out = append(out, int64(v))
	}
	return out
}

// applyDefaults sets default values for any empty config fields
func applyDefaults(cfg *Config) {
	if cfg.App.Name == "" {
		cfg.App.Name = "mcf-fulfillment"
	}
	if cfg.App.Env == "" {
		cfg.App.Env = "development"
	}
	if cfg.App.Port == "" {
		cfg.App.Port = "8080"
	}
	if cfg.Database.Driver == "" {
		cfg.Database.Driver = "postgres"
	}
	if cfg.Database.Path == "" {
		cfg.Database.Path = "fulfillment.db"
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
		cfg.Database.DBName = "fulfillment"
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
	if cfg.JWT.Issuer == "" {
		cfg.JWT.Issuer = "mcf-fulfillment"
	}
	if cfg.JWT.AccessTokenExpiration == 0 {
		cfg.JWT.AccessTokenExpiration = 15 * time.Minute
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
		cfg.HTTP.WriteTimeout = 60 * time.Second
	}
	if cfg.HTTP.IdleTimeout == 0 {
		cfg.HTTP.IdleTimeout = 60 * time.Second
	}
	if cfg.HTTP.MaxHeaderBytes == 0 {
		cfg.HTTP.MaxHeaderBytes = 1 << 20 // 1MB
	}
	if cfg.HTTP.MaxBodySize == 0 {
		cfg.HTTP.MaxBodySize = 1 << 20 // 1MB
	}
	if cfg.Scheduler.InventoryCurrentInterval == 0 {
		cfg.Scheduler.InventoryCurrentInterval = 15 * time.Minute
	}
	if cfg.Scheduler.InventoryFullInterval == 0 {
		cfg.Scheduler.InventoryFullInterval = 5 * time.Minute
	}
	if cfg.Scheduler.OrderStatusInterval == 0 {
		cfg.Scheduler.OrderStatusInterval = 15 * time.Minute
	}
	if cfg.Scheduler.ResubmitInterval == 0 {
		cfg.Scheduler.ResubmitInterval = time.Hour
	}
	if cfg.Scheduler.JobTimeout == 0 {
		cfg.Scheduler.JobTimeout = 10 * time.Minute
	}
	if cfg.MCF.Region == "" {
		cfg.MCF.Region = "na"
	}
	if cfg.MCF.SigningRegion == "" {
		cfg.MCF.SigningRegion = "us-east-1"
	}
	if cfg.MCF.RequestTimeout == 0 {
		cfg.MCF.RequestTimeout = 30 * time.Second
	}
	if cfg.MCF.PackingSlipComment == "" {
		cfg.MCF.PackingSlipComment = "Thank you for your order!"
	}
	if cfg.MCF.InventoryPageSize == 0 {
		cfg.MCF.InventoryPageSize = 45
	}
	if cfg.MCF.OrderPageSize == 0 {
		cfg.MCF.OrderPageSize = 50
	}
	if cfg.MCF.ResubmitBatchSize == 0 {
		cfg.MCF.ResubmitBatchSize = 20
	}
	if cfg.MCF.MaxAttempts == 0 {
		cfg.MCF.MaxAttempts = 5
	}
	if cfg.MCF.LeaseTTL == 0 {
		cfg.MCF.LeaseTTL = 10 * time.Minute
	}
	if cfg.Cursor.Backend == "" {
		cfg.Cursor.Backend = "database"
	}
	if cfg.Telemetry.CollectorEndpoint == "" {
		cfg.Telemetry.CollectorEndpoint = "localhost:4317" // Default gRPC endpoint
	}
	if cfg.Telemetry.SamplingRatio == 0 {
		cfg.Telemetry.SamplingRatio = 1.0
	}
	if cfg.Telemetry.ServiceName == "" {
		cfg.Telemetry.ServiceName = "mcf-fulfillment"
	}
	if cfg.Telemetry.MetricsInterval == 0 {
		cfg.Telemetry.MetricsInterval = 60 * time.Second
	}
}

// validate performs validation on the configuration
func (c *Config) validate() error {
	switch c.Database.Driver {
	case "postgres", "sqlite":
	default:
		return fmt.Errorf("database.driver must be postgres or sqlite, got %q", c.Database.Driver)
	}
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

	switch c.Cursor.Backend {
	case "database", "redis":
	default:
		return fmt.Errorf("cursor.backend must be database or redis, got %q", c.Cursor.Backend)
	}

	if !c.MCF.Simulate {
		if c.MCF.SellerID == "" {
			return fmt.Errorf("mcf.seller_id is required unless mcf.simulate is set")
		}
		if c.MCF.EndpointURL() == "" {
			return fmt.Errorf("mcf.region %q has no endpoint and mcf.endpoint is empty", c.MCF.Region)
		}
	}
	if c.MCF.MaxAttempts < 1 {
		return fmt.Errorf("mcf.max_attempts must be at least 1")
	}

	if c.App.Env == "production" {
		if c.JWT.Secret == "" {
			return fmt.Errorf("jwt.secret is required in production")
		}
		if len(c.JWT.Secret) < 32 {
			return fmt.Errorf("jwt.secret must be at least 32 characters in production")
		}
		if c.Database.Driver == "postgres" && c.Database.SSLMode == "disable" {
			return fmt.Errorf("database.sslmode cannot be 'disable' in production")
		}
		if c.MCF.Simulate {
			return fmt.Errorf("mcf.simulate cannot be enabled in production")
		}
		if c.Telemetry.DBLogFullSQL {
			return fmt.Errorf("telemetry.db_log_full_sql must be false in production to prevent sensitive data exposure in traces")
		}
	}

	if c.Telemetry.ProfilingEnabled && c.Telemetry.ProfilerAddress == "" {
		return fmt.Errorf("telemetry.profiler_address is required when profiling is enabled")
	}
	if c.Telemetry.SamplingRatio < 0.0 || c.Telemetry.SamplingRatio > 1.0 {
		return fmt.Errorf("telemetry.sampling_ratio must be between 0.0 and 1.0, got %f", c.Telemetry.SamplingRatio)
	}

	return nil
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
