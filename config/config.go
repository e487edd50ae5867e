package config

import (
	"log"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config represents the overall application configuration.
type Config struct {
	Remote     RemoteConfig     `yaml:"remote"`
	Refresh    RefreshConfig    `yaml:"refresh"`
	Health     HealthConfig     `yaml:"health"`
	Server     ServerConfig     `yaml:"server"`
	Database   DatabaseConfig   `yaml:"database"`
	Push       PushConfig       `yaml:"push"`
	WorkerPool WorkerPoolConfig `yaml:"worker_pool"`
}

// RemoteConfig describes how to reach the queue service.
type RemoteConfig struct {
	BaseURL           string        `yaml:"base_url"`
	LocalURL          string        `yaml:"local_url"`
	ProductionURL     string        `yaml:"production_url"`
	PathPrefix        string        `yaml:"path_prefix"`
	HTTPProxy         string        `yaml:"http_proxy"`
	TimeoutSeconds    int           `yaml:"timeout_seconds"`
	Timeout           time.Duration `yaml:"-"`
	ProbeTimeoutMs    int           `yaml:"probe_timeout_ms"`
	ProbeCacheSeconds int           `yaml:"probe_cache_seconds"`
	RateLimitPerSec   float64       `yaml:"rate_limit_per_sec"`
	RateLimitBurst    int           `yaml:"rate_limit_burst"`
}

// ProbeTimeout bounds the local availability probe.
func (r RemoteConfig) ProbeTimeout() time.Duration {
	return time.Duration(r.ProbeTimeoutMs) * time.Millisecond
}

// ProbeCacheTTL is how long a probe answer is reused.
func (r RemoteConfig) ProbeCacheTTL() time.Duration {
	return time.Duration(r.ProbeCacheSeconds) * time.Second
}

// RefreshConfig holds the initial auto-refresh settings.
type RefreshConfig struct {
	Enabled     bool          `yaml:"enabled"`
	IntervalMs  int           `yaml:"interval_ms"`
	Interval    time.Duration `yaml:"-"`
	MaxParallel int           `yaml:"max_parallel"`
}

// HealthConfig holds the health monitor settings.
type HealthConfig struct {
	IntervalSeconds int           `yaml:"interval_seconds"`
	Interval        time.Duration `yaml:"-"`
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

// Enabled reports whether both VAPID keys are present.
func (p PushConfig) Enabled() bool {
	return p.PublicKey != "" && p.PrivateKey != ""
}

// ServerConfig holds the server-related configuration.
type ServerConfig struct {
	Port            int     `yaml:"port"`
	RateLimitPerSec float64 `yaml:"rate_limit_per_sec"`
	RateLimitBurst  int     `yaml:"rate_limit_burst"`
	CacheTTLSeconds int     `yaml:"cache_ttl_seconds"`
}

// DatabaseConfig holds the database connection configuration. An empty
// DSN disables persistence.
type DatabaseConfig struct {
	DSN                    string `yaml:"dsn"`
	MaxOpenConns           int    `yaml:"max_open_conns"`
	MaxIdleConns           int    `yaml:"max_idle_conns"`
	ConnMaxLifetimeMinutes int    `yaml:"conn_max_lifetime_minutes"`
}

// Load reads the configuration from the given path. QUEUE_API_URL, when
// set, overrides remote.base_url.
func Load(path string) (*Config, error) {
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

	cfg.applyDefaults()
	return &cfg, nil
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	var cfg Config
	cfg.applyDefaults()
	return &cfg
}

func (cfg *Config) applyDefaults() {
	if url := os.Getenv("QUEUE_API_URL"); url != "" {
		cfg.Remote.BaseURL = url
	}
	if cfg.Remote.LocalURL == "" {
		cfg.Remote.LocalURL = "http://localhost:8080"
	}
	if cfg.Remote.PathPrefix == "" {
		cfg.Remote.PathPrefix = "/api"
	}
	if cfg.Remote.TimeoutSeconds <= 0 {
		cfg.Remote.TimeoutSeconds = 15
	}
	cfg.Remote.Timeout = time.Duration(cfg.Remote.TimeoutSeconds) * time.Second
	if cfg.Remote.ProbeTimeoutMs <= 0 {
		cfg.Remote.ProbeTimeoutMs = 2000
	}
	if cfg.Remote.ProbeCacheSeconds <= 0 {
		cfg.Remote.ProbeCacheSeconds = 30
	}

	if cfg.Refresh.IntervalMs < 5000 || cfg.Refresh.IntervalMs > 60000 {
		if cfg.Refresh.IntervalMs != 0 {
			log.Printf("refresh.interval_ms %d is outside 5000-60000; defaulting to 10000", cfg.Refresh.IntervalMs)
		}
		cfg.Refresh.IntervalMs = 10000
	}
	cfg.Refresh.Interval = time.Duration(cfg.Refresh.IntervalMs) * time.Millisecond

	if cfg.Health.IntervalSeconds <= 0 {
		cfg.Health.IntervalSeconds = 30
	}
	cfg.Health.Interval = time.Duration(cfg.Health.IntervalSeconds) * time.Second

	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8090
	}
	if cfg.Server.RateLimitPerSec <= 0 {
		cfg.Server.RateLimitPerSec = 10
	}
	if cfg.Server.RateLimitBurst <= 0 {
		cfg.Server.RateLimitBurst = 5
	}

	if cfg.Push.TTL <= 0 {
		cfg.Push.TTL = 3600
	}

	if cfg.WorkerPool.Size <= 0 {
		log.Printf("worker_pool.size is not set or invalid; defaulting to 1")
		cfg.WorkerPool.Size = 1
	}
}
