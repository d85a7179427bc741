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
	App        AppConfig
	Database   DatabaseConfig
	Redis      RedisConfig
	Broker     BrokerConfig
	Outbox     OutboxConfig
	DeadLetter DeadLetterConfig
	Alerting   AlertingConfig
	Payment    PaymentConfig
	Log        LogConfig
	HTTP       HTTPConfig
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

// RedisConfig holds Redis connection settings for the lock service
type RedisConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
}

// BrokerConfig holds RabbitMQ connection settings
type BrokerConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	VHost    string
	Exchange string
}

// OutboxConfig holds the outbox publisher configuration surface
type OutboxConfig struct {
	Enabled        bool
	BatchSize      int
	PollInterval   time.Duration
	MaxRetryCount  int
	AlertThreshold int
	GlobalLockTTL  time.Duration
	RecordLockTTL  time.Duration
}

// DeadLetterConfig holds the dead letter replay configuration surface
type DeadLetterConfig struct {
	Enabled        bool
	ReplayInterval time.Duration
	ReplayCeiling  int
}

// AlertingConfig holds alert escalation endpoints
type AlertingConfig struct {
	WebhookURL  string
	EmailAPIURL string
	EmailTo     string
	Timeout     time.Duration
}

// PaymentConfig holds the downstream payment provider endpoint. An empty
// APIURL switches the client to accept-all mode for local development.
type PaymentConfig struct {
	APIURL  string
	Timeout time.Duration
}

// LogConfig holds logging configuration
type LogConfig struct {
	Level  string // debug, info, warn, error
	Format string // json, console
	Output string // stdout, stderr, or file path
}

// HTTPConfig holds HTTP server configuration
type HTTPConfig struct {
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration
}

// Load loads configuration from TOML file and environment variables
// Priority (highest to lowest):
// 1. Environment variables with ORDERHUB_ prefix (e.g. ORDERHUB_DATABASE_PASSWORD)
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

	v.SetEnvPrefix("ORDERHUB")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Bool defaults must be set on viper: a false from GetBool is
	// indistinguishable from unset afterwards.
	v.SetDefault("outbox.enabled", true)
	v.SetDefault("dead_letter.enabled", true)

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
		Broker: BrokerConfig{
			Host:     v.GetString("broker.host"),
			Port:     v.GetInt("broker.port"),
			User:     v.GetString("broker.user"),
			Password: v.GetString("broker.password"),
			VHost:    v.GetString("broker.vhost"),
			Exchange: v.GetString("broker.exchange"),
		},
		Outbox: OutboxConfig{
			Enabled:        v.GetBool("outbox.enabled"),
			BatchSize:      v.GetInt("outbox.batch_size"),
			PollInterval:   v.GetDuration("outbox.poll_interval"),
			MaxRetryCount:  v.GetInt("outbox.max_retry_count"),
			AlertThreshold: v.GetInt("outbox.alert_threshold"),
			GlobalLockTTL:  v.GetDuration("outbox.global_lock_ttl"),
			RecordLockTTL:  v.GetDuration("outbox.record_lock_ttl"),
		},
		DeadLetter: DeadLetterConfig{
			Enabled:        v.GetBool("dead_letter.enabled"),
			ReplayInterval: v.GetDuration("dead_letter.replay_interval"),
			ReplayCeiling:  v.GetInt("dead_letter.replay_ceiling"),
		},
		Alerting: AlertingConfig{
			WebhookURL:  v.GetString("alerting.webhook_url"),
			EmailAPIURL: v.GetString("alerting.email_api_url"),
			EmailTo:     v.GetString("alerting.email_to"),
			Timeout:     v.GetDuration("alerting.timeout"),
		},
		Payment: PaymentConfig{
			APIURL:  v.GetString("payment.api_url"),
			Timeout: v.GetDuration("payment.timeout"),
		},
		Log: LogConfig{
			Level:  v.GetString("log.level"),
			Format: v.GetString("log.format"),
			Output: v.GetString("log.output"),
		},
		HTTP: HTTPConfig{
			ReadTimeout:  v.GetDuration("http.read_timeout"),
			WriteTimeout: v.GetDuration("http.write_timeout"),
			IdleTimeout:  v.GetDuration("http.idle_timeout"),
		},
	}

	applyDefaults(cfg)

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// applyDefaults sets default values for any empty config fields
func applyDefaults(cfg *Config) {
	if cfg.App.Name == "" {
		cfg.App.Name = "orderhub-backend"
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
		cfg.Database.DBName = "orderhub"
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
	if cfg.Broker.Host == "" {
		cfg.Broker.Host = "localhost"
	}
	if cfg.Broker.Port == 0 {
		cfg.Broker.Port = 5672
	}
	if cfg.Broker.User == "" {
		cfg.Broker.User = "guest"
	}
	if cfg.Broker.Password == "" {
		cfg.Broker.Password = "guest"
	}
	if cfg.Broker.VHost == "" {
		cfg.Broker.VHost = "/"
	}
	if cfg.Broker.Exchange == "" {
		cfg.Broker.Exchange = "order-events"
	}
	if cfg.Outbox.BatchSize == 0 {
		cfg.Outbox.BatchSize = 100
	}
	if cfg.Outbox.PollInterval == 0 {
		cfg.Outbox.PollInterval = 5 * time.Second
	}
	if cfg.Outbox.MaxRetryCount == 0 {
		cfg.Outbox.MaxRetryCount = 5
	}
	if cfg.Outbox.AlertThreshold == 0 {
		cfg.Outbox.AlertThreshold = 3
	}
	if cfg.Outbox.GlobalLockTTL == 0 {
		cfg.Outbox.GlobalLockTTL = 30 * time.Second
	}
	if cfg.Outbox.RecordLockTTL == 0 {
		cfg.Outbox.RecordLockTTL = 5 * time.Minute
	}
	if cfg.DeadLetter.ReplayInterval == 0 {
		cfg.DeadLetter.ReplayInterval = 5 * time.Minute
	}
	if cfg.DeadLetter.ReplayCeiling == 0 {
		cfg.DeadLetter.ReplayCeiling = 3
	}
	if cfg.Alerting.EmailTo == "" {
		cfg.Alerting.EmailTo = "ops-team@orderhub.example.com"
	}
	if cfg.Alerting.Timeout == 0 {
		cfg.Alerting.Timeout = 10 * time.Second
	}
	if cfg.Payment.Timeout == 0 {
		cfg.Payment.Timeout = 10 * time.Second
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
}

// validate performs validation on the configuration
func (c *Config) validate() error {
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
	if c.Outbox.AlertThreshold >= c.Outbox.MaxRetryCount {
		return fmt.Errorf("outbox.alert_threshold (%d) must be below outbox.max_retry_count (%d)",
			c.Outbox.AlertThreshold, c.Outbox.MaxRetryCount)
	}
	if c.App.Env == "production" {
		if c.Database.Password == "" {
			return fmt.Errorf("database.password is required in production")
		}
		if c.Database.SSLMode == "disable" {
			return fmt.Errorf("database.sslmode cannot be 'disable' in production")
		}
	}
	return nil
}

// Addr returns the host:port address for the Redis client
func (r *RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%d", r.Host, r.Port)
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

// URL returns the AMQP connection string
func (b *BrokerConfig) URL() string {
	u := url.URL{
		Scheme: "amqp",
		User:   url.UserPassword(b.User, b.Password),
		Host:   fmt.Sprintf("%s:%d", b.Host, b.Port),
		Path:   b.VHost,
	}
	return u.String()
}
