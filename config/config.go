package config

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config represents the overall application configuration.
type Config struct {
	Server      ServerConfig      `yaml:"server"`
	Database    DatabaseConfig    `yaml:"database"`
	Auth        AuthConfig        `yaml:"auth"`
	Log         LogConfig         `yaml:"log"`
	Billing     BillingConfig     `yaml:"billing"`
	Reservation ReservationConfig `yaml:"reservation"`
	Push        PushConfig        `yaml:"push"`
	WorkerPool  WorkerPoolConfig  `yaml:"worker_pool"`
	Redis       RedisConfig       `yaml:"redis"`
}

// WorkerPoolConfig holds the configuration for the notification worker pool.
type WorkerPoolConfig struct {
	Size int `yaml:"size"`
}

// PushConfig holds the VAPID keys for web push notifications.
type PushConfig struct {
	PublicKey  string `yaml:"vapid_public_key"`
	PrivateKey string `yaml:"vapid_private_key"`
	Subject    string `yaml:"subject"`
	TTL        int    `yaml:"ttl"`
}

// ServerConfig holds the server-related configuration.
type ServerConfig struct {
	Port            int     `yaml:"port"`
	Mode            string  `yaml:"mode"`
	RequestIPHeader string  `yaml:"request_ip_header"`
	RateLimitPerSec float64 `yaml:"rate_limit_per_sec"`
	RateLimitBurst  int     `yaml:"rate_limit_burst"`
	// Budget for requests that change state; GET and HEAD use the one above.
	WriteRateLimitPerSec float64 `yaml:"write_rate_limit_per_sec"`
	WriteRateLimitBurst  int     `yaml:"write_rate_limit_burst"`
	CacheTTLSeconds      int     `yaml:"cache_ttl_seconds"`
}

// DatabaseConfig holds the database connection configuration.
type DatabaseConfig struct {
	Driver                 string `yaml:"driver"` // postgres or sqlite
	DSN                    string `yaml:"dsn"`
	MaxOpenConns           int    `yaml:"max_open_conns"`
	MaxIdleConns           int    `yaml:"max_idle_conns"`
	ConnMaxLifetimeMinutes int    `yaml:"conn_max_lifetime_minutes"`
	AutoMigrate            bool   `yaml:"auto_migrate"`
	LogSQL                 bool   `yaml:"log_sql"`
}

// AuthConfig holds the HS256 secret shared with the identity provider.
type AuthConfig struct {
	JWTSecret     string `yaml:"jwt_secret"`
	Issuer        string `yaml:"issuer"`
	TokenTTLHours int    `yaml:"token_ttl_hours"`
}

type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"` // json or console
}

// BillingConfig controls rounding and the scheduled monthly rent run.
type BillingConfig struct {
	Scale      int32            `yaml:"scale"`
	Timezone   string           `yaml:"timezone"`
	Location   *time.Location   `yaml:"-"`
	MonthlyRun MonthlyRunConfig `yaml:"monthly_run"`
}

type MonthlyRunConfig struct {
	Enabled         bool          `yaml:"enabled"`
	Day             int           `yaml:"day"`
	IntervalMinutes int           `yaml:"interval_minutes"`
	Interval        time.Duration `yaml:"-"` // Ignored by YAML parser
}

type ReservationConfig struct {
	MinHours int `yaml:"min_hours"`
	MaxHours int `yaml:"max_hours"`
}

// RedisConfig configures the lifecycle event stream.
type RedisConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
	Stream   string `yaml:"stream"`
	MaxLen   int64  `yaml:"max_len"`
}

// Load reads the configuration from the given path. Variables from a .env
// file in the working directory, if present, are loaded first, and the
// environment overrides secrets from the file.
func Load(path string) (*Config, error) {
	_ = godotenv.Load()

	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var cfg Config
	decoder := yaml.NewDecoder(f)
	if err := decoder.Decode(&cfg); err != nil {
		return nil, err
	}

	applyEnv(&cfg)
	if err := applyDefaults(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Path returns CONFIG_PATH or the default config location.
func Path() string {
	if p := os.Getenv("CONFIG_PATH"); p != "" {
		return p
	}
	return "./config/config.yaml"
}

func applyEnv(cfg *Config) {
	setString(&cfg.Database.DSN, "DATABASE_DSN")
	setString(&cfg.Database.Driver, "DATABASE_DRIVER")
	setString(&cfg.Auth.JWTSecret, "JWT_SECRET")
	setString(&cfg.Redis.Addr, "REDIS_ADDR")
	setString(&cfg.Redis.Password, "REDIS_PASSWORD")
	setString(&cfg.Push.PublicKey, "VAPID_PUBLIC_KEY")
	setString(&cfg.Push.PrivateKey, "VAPID_PRIVATE_KEY")
	setString(&cfg.Log.Level, "LOG_LEVEL")
	if v := os.Getenv("PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Server.Port = port
		}
	}
}

func setString(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func applyDefaults(cfg *Config) error {
	if cfg.Server.Port <= 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Server.RateLimitPerSec <= 0 {
		cfg.Server.RateLimitPerSec = 10
	}
	if cfg.Server.RateLimitBurst <= 0 {
		cfg.Server.RateLimitBurst = 5
	}
	if cfg.Server.WriteRateLimitPerSec <= 0 {
		cfg.Server.WriteRateLimitPerSec = 2
	}
	if cfg.Server.WriteRateLimitBurst <= 0 {
		cfg.Server.WriteRateLimitBurst = 5
	}
	if cfg.Server.CacheTTLSeconds <= 0 {
		cfg.Server.CacheTTLSeconds = 300
	}

	if cfg.Database.Driver == "" {
		cfg.Database.Driver = "postgres"
	}
	if cfg.Database.MaxOpenConns <= 0 {
		cfg.Database.MaxOpenConns = 10
	}
	if cfg.Database.MaxIdleConns <= 0 {
		cfg.Database.MaxIdleConns = 5
	}
	if cfg.Database.ConnMaxLifetimeMinutes <= 0 {
		cfg.Database.ConnMaxLifetimeMinutes = 30
	}

	if cfg.Auth.TokenTTLHours <= 0 {
		cfg.Auth.TokenTTLHours = 12
	}

	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "json"
	}

	if cfg.Billing.Timezone == "" {
		cfg.Billing.Timezone = "UTC"
	}
	loc, err := time.LoadLocation(cfg.Billing.Timezone)
	if err != nil {
		return err
	}
	cfg.Billing.Location = loc
	if cfg.Billing.Scale < 0 {
		cfg.Billing.Scale = 0
	}
	if cfg.Billing.MonthlyRun.Day <= 0 || cfg.Billing.MonthlyRun.Day > 28 {
		cfg.Billing.MonthlyRun.Day = 1
	}
	if cfg.Billing.MonthlyRun.IntervalMinutes <= 0 {
		cfg.Billing.MonthlyRun.IntervalMinutes = 60
	}
	cfg.Billing.MonthlyRun.Interval = time.Duration(cfg.Billing.MonthlyRun.IntervalMinutes) * time.Minute

	if cfg.Reservation.MinHours <= 0 {
		cfg.Reservation.MinHours = 1
	}
	if cfg.Reservation.MaxHours <= 0 {
		cfg.Reservation.MaxHours = 72
	}

	if cfg.Push.TTL <= 0 {
		cfg.Push.TTL = 3600
	}

	if cfg.WorkerPool.Size <= 0 {
		cfg.WorkerPool.Size = 1
	}

	if cfg.Redis.Stream == "" {
		cfg.Redis.Stream = "boarding:room-events"
	}
	if cfg.Redis.MaxLen <= 0 {
		cfg.Redis.MaxLen = 10000
	}
	return nil
}
