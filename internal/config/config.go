package config

import (
	"errors"
	"log"
	"log/slog"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Env      string         `json:"env"`
	Http     HttpConfig     `json:"http"`
	Postgres PostgresConfig `json:"postgres"`
	Redis    RedisConfig    `json:"redis"`
	Store    StoreConfig    `json:"store"`
	Provider ProviderConfig `json:"provider"`
	APIKey   string         `json:"api_key,omitempty"`
	Events   EventsConfig   `json:"events"`
}

type HttpConfig struct {
	Port            string        `json:"port"`
	ReadTimeout     time.Duration `json:"read_timeout"`
	WriteTimeout    time.Duration `json:"write_timeout"`
	ShutdownTimeout time.Duration `json:"shutdown_timeout"`
}

type PostgresConfig struct {
	Host     string `json:"host"`
	Port     int    `json:"port"`
	Database string `json:"database"`
	User     string `json:"user"`
	Password string `json:"password,omitempty"`
	SSLMode  string `json:"ssl_mode"`

	MaxConns        int32
	MinConns        int32
	MaxConnLifetime time.Duration
}

// RedisConfig with an empty Addr disables the provider cache and event queue.
type RedisConfig struct {
	Addr         string        `json:"addr"`
	Password     string        `json:"password,omitempty"`
	DB           int           `json:"db"`
	PoolSize     int           `json:"pool_size"`
	DialTimeout  time.Duration `json:"dial_timeout"`
	ReadTimeout  time.Duration `json:"read_timeout"`
	WriteTimeout time.Duration `json:"write_timeout"`
}

const (
	StoreDriverPostgres = "postgres"
	StoreDriverMemory   = "memory"
)

type StoreConfig struct {
	Driver        string        `json:"driver"`
	OpTimeout     time.Duration `json:"op_timeout"`
	SweepInterval time.Duration `json:"sweep_interval"`
}

type ProviderConfig struct {
	BaseURL   string        `json:"base_url"`
	APIKey    string        `json:"api_key,omitempty"`
	Timeout   time.Duration `json:"timeout"`
	Retries   int           `json:"retries"`
	RateLimit float64       `json:"rate_limit"`
	CacheTTL  time.Duration `json:"cache_ttl"`
}

type EventsConfig struct {
	WebhookURL string `json:"webhook_url"`
	Disabled   bool   `json:"disabled"`
}

func Load() (*Config, error) {

	stdLogger := slog.New(slog.NewTextHandler(os.Stdout, nil))

	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		stdLogger.Warn(".env load warning", slog.Any("error", err))
	}

	cfg := &Config{
		Env: getEnv("ENV", "local"),
		Http: HttpConfig{
			Port:            getEnv("HTTP_PORT", ":8080"),
			ReadTimeout:     getEnvDuration("HTTP_READ_TIMEOUT", 10*time.Second),
			WriteTimeout:    getEnvDuration("HTTP_WRITE_TIMEOUT", 15*time.Second),
			ShutdownTimeout: getEnvDuration("HTTP_SHUTDOWN_TIMEOUT", 10*time.Second),
		},
		Postgres: PostgresConfig{
			Host:            getEnv("POSTGRES_HOST", "pg-local"),
			Port:            getEnvInt("POSTGRES_PORT", 5432),
			Database:        getEnv("POSTGRES_DB", "trafine"),
			User:            getEnv("POSTGRES_USER", "postgres"),
			Password:        getEnv("POSTGRES_PASSWORD", "postgres"),
			SSLMode:         getEnv("POSTGRES_SSL_MODE", "disable"),
			MaxConns:        int32(getEnvInt("POSTGRES_MAX_CONNS", 20)),
			MinConns:        1,
			MaxConnLifetime: 1 * time.Hour,
		},
		Redis: RedisConfig{
			Addr:         getEnv("REDIS_ADDR", "redis-local:6379"),
			Password:     getEnv("REDIS_PASSWORD", ""),
			DB:           getEnvInt("REDIS_DB", 0),
			PoolSize:     getEnvInt("REDIS_POOL_SIZE", 10),
			DialTimeout:  getEnvDuration("REDIS_DIAL_TIMEOUT", 2*time.Second),
			ReadTimeout:  getEnvDuration("REDIS_READ_TIMEOUT", 500*time.Millisecond),
			WriteTimeout: getEnvDuration("REDIS_WRITE_TIMEOUT", 500*time.Millisecond),
		},
		Store: StoreConfig{
			Driver:        getEnv("STORE_DRIVER", StoreDriverPostgres),
			OpTimeout:     getEnvDuration("STORE_OP_TIMEOUT", 3*time.Second),
			SweepInterval: getEnvDuration("STORE_SWEEP_INTERVAL", time.Minute),
		},
		Provider: ProviderConfig{
			BaseURL:   getEnv("TOMTOM_BASE_URL", "https://api.tomtom.com"),
			APIKey:    getEnv("TOMTOM_API_KEY", ""),
			Timeout:   getEnvDuration("PROVIDER_TIMEOUT", 5*time.Second),
			Retries:   getEnvInt("PROVIDER_RETRIES", 1),
			RateLimit: getEnvFloat("PROVIDER_RATE_LIMIT", 5),
			CacheTTL:  getEnvDuration("PROVIDER_CACHE_TTL", 30*time.Second),
		},
		APIKey: getEnv("API_KEY", "super-secret-key"),
		Events: EventsConfig{
			WebhookURL: getEnv("EVENTS_WEBHOOK_URL", ""),
			Disabled:   getEnvBool("EVENTS_DISABLED", false),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	stdLogger.Info("Config loaded successfully",
		slog.String("env", cfg.Env),
		slog.String("http_port", cfg.Http.Port),
		slog.String("store_driver", cfg.Store.Driver),
		slog.String("postgres_db", cfg.Postgres.Database),
		slog.String("redis_addr", cfg.Redis.Addr),
		slog.String("provider_url", cfg.Provider.BaseURL))

	return cfg, nil
}

func (c *Config) Validate() error {

	if c.Http.Port == "" || (len(c.Http.Port) > 0 && c.Http.Port[0] != ':') {
		return errors.New("HTTP_PORT must start with ':' like ':8080'")
	}

	switch c.Store.Driver {
	case StoreDriverPostgres:
		if c.Postgres.Host == "" {
			return errors.New("POSTGRES_HOST required")
		}
	case StoreDriverMemory:
	default:
		return errors.New("STORE_DRIVER must be postgres or memory")
	}

	if c.Store.OpTimeout <= 0 {
		return errors.New("STORE_OP_TIMEOUT must be positive")
	}

	if c.Redis.Addr != "" && (c.Redis.DialTimeout <= 0 || c.Redis.ReadTimeout <= 0 || c.Redis.WriteTimeout <= 0) {
		return errors.New("REDIS_*_TIMEOUT must be positive")
	}

	if c.Provider.Timeout <= 0 {
		return errors.New("PROVIDER_TIMEOUT must be positive")
	}
	if c.Provider.Retries < 0 {
		return errors.New("PROVIDER_RETRIES must not be negative")
	}

	if c.Provider.APIKey == "" {
		log.Println("WARN: TOMTOM_API_KEY is empty, provider requests will be rejected upstream")
	}

	if c.Events.Disabled || c.Events.WebhookURL == "" {
		log.Println("WARN: incident event webhooks DISABLED")
	}

	return nil
}

func getEnv(key, def string) string {
	if v, ok := os.LookupEnv(key); ok {
		return v
	}
	return def
}

func getEnvInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}

func getEnvFloat(key string, def float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return def
}

func getEnvDuration(key string, def time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return def
}

func getEnvBool(key string, def bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return def
}
