package config

import (
	"testing"
	"time"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("STORE_DRIVER", "memory")
	t.Setenv("REDIS_ADDR", "")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Store.Driver != StoreDriverMemory {
		t.Fatalf("driver=%q", cfg.Store.Driver)
	}
	if cfg.Redis.Addr != "" {
		t.Fatalf("expected redis disabled, got %q", cfg.Redis.Addr)
	}
	if cfg.Provider.Timeout != 5*time.Second {
		t.Fatalf("provider timeout=%v", cfg.Provider.Timeout)
	}
	if cfg.Store.OpTimeout != 3*time.Second {
		t.Fatalf("store timeout=%v", cfg.Store.OpTimeout)
	}
	if cfg.Redis.ReadTimeout != 500*time.Millisecond || cfg.Redis.DialTimeout != 2*time.Second {
		t.Fatalf("unexpected redis timeouts: %+v", cfg.Redis)
	}
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("STORE_DRIVER", "memory")
	t.Setenv("PROVIDER_TIMEOUT", "750ms")
	t.Setenv("PROVIDER_RETRIES", "3")
	t.Setenv("PROVIDER_RATE_LIMIT", "2.5")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Provider.Timeout != 750*time.Millisecond || cfg.Provider.Retries != 3 || cfg.Provider.RateLimit != 2.5 {
		t.Fatalf("unexpected provider config: %+v", cfg.Provider)
	}
}

func TestValidate(t *testing.T) {
	base := func() *Config {
		return &Config{
			Http:     HttpConfig{Port: ":8080"},
			Postgres: PostgresConfig{Host: "db"},
			Store:    StoreConfig{Driver: StoreDriverPostgres, OpTimeout: time.Second},
			Provider: ProviderConfig{Timeout: time.Second, APIKey: "k"},
			Events:   EventsConfig{WebhookURL: "http://hook"},
		}
	}

	if err := base().Validate(); err != nil {
		t.Fatalf("unexpected err: %v", err)
	}

	cases := map[string]func(c *Config){
		"port_without_colon": func(c *Config) { c.Http.Port = "8080" },
		"unknown_driver":     func(c *Config) { c.Store.Driver = "mongo" },
		"no_pg_host":         func(c *Config) { c.Postgres.Host = "" },
		"zero_store_timeout": func(c *Config) { c.Store.OpTimeout = 0 },
		"zero_provider_tmo":  func(c *Config) { c.Provider.Timeout = 0 },
		"negative_retries":   func(c *Config) { c.Provider.Retries = -1 },
		"redis_no_timeout":   func(c *Config) { c.Redis = RedisConfig{Addr: "redis:6379"} },
	}
	for name, mutate := range cases {
		c := base()
		mutate(c)
		if err := c.Validate(); err == nil {
			t.Fatalf("%s: expected error", name)
		}
	}
}
