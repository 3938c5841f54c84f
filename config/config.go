package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config represents the overall application configuration.
type Config struct {
	Server     ServerConfig     `yaml:"server"`
	Database   DatabaseConfig   `yaml:"database"`
	Liveness   LivenessConfig   `yaml:"liveness"`
	Push       PushConfig       `yaml:"push"`
	WorkerPool WorkerPoolConfig `yaml:"worker_pool"`
	MQTT       MQTTConfig       `yaml:"mqtt"`
}

// ServerConfig holds the HTTP server configuration.
type ServerConfig struct {
	Port            int     `yaml:"port"`
	RateLimitPerSec float64 `yaml:"rate_limit_per_sec"`
	RateLimitBurst  int     `yaml:"rate_limit_burst"`
	CacheTTLSeconds int     `yaml:"cache_ttl_seconds"`
}

// DatabaseConfig holds the database connection configuration. A DSN ending
// in .db (or the literal ":memory:") selects sqlite, anything else postgres.
type DatabaseConfig struct {
	DSN                    string `yaml:"dsn"`
	MaxOpenConns           int    `yaml:"max_open_conns"`
	MaxIdleConns           int    `yaml:"max_idle_conns"`
	ConnMaxLifetimeMinutes int    `yaml:"conn_max_lifetime_minutes"`
}

// LivenessConfig tunes the offline sweep. If timeout is smaller than the
// check interval, slots can flap under normal report jitter; both values are
// forced positive on load.
type LivenessConfig struct {
	TimeoutSeconds       int           `yaml:"timeout_seconds"`
	CheckIntervalSeconds int           `yaml:"check_interval_seconds"`
	Timeout              time.Duration `yaml:"-"`
	CheckInterval        time.Duration `yaml:"-"`
}

// PushConfig holds the VAPID keys for web push notifications.
type PushConfig struct {
	PublicKey  string `yaml:"vapid_public_key"`
	PrivateKey string `yaml:"vapid_private_key"`
	Subject    string `yaml:"subject"`
	TTL        int    `yaml:"ttl"`
}

// WorkerPoolConfig holds the configuration for the notification worker pool.
type WorkerPoolConfig struct {
	Size int `yaml:"size"`
}

// MQTTConfig enables the optional MQTT telemetry bridge.
type MQTTConfig struct {
	Enabled   bool   `yaml:"enabled"`
	BrokerURL string `yaml:"broker_url"`
	ClientID  string `yaml:"client_id"`
	Topic     string `yaml:"topic"`
	QoS       byte   `yaml:"qos"`
	Username  string `yaml:"username"`
	Password  string `yaml:"password"`
}

// Load reads the configuration from the given path and applies defaults to
// zero or invalid values.
func Load(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var cfg Config
	decoder := yaml.NewDecoder(f)
	if err := decoder.Decode(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}

	cfg.applyDefaults()
	return &cfg, nil
}

func (cfg *Config) applyDefaults() {
	if cfg.Server.Port <= 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Server.RateLimitPerSec <= 0 {
		cfg.Server.RateLimitPerSec = 10
	}
	if cfg.Server.RateLimitBurst <= 0 {
		cfg.Server.RateLimitBurst = 5
	}
	if cfg.Server.CacheTTLSeconds <= 0 {
		cfg.Server.CacheTTLSeconds = 5
	}

	if cfg.Liveness.TimeoutSeconds <= 0 {
		cfg.Liveness.TimeoutSeconds = 30
	}
	if cfg.Liveness.CheckIntervalSeconds <= 0 {
		cfg.Liveness.CheckIntervalSeconds = 5
	}
	cfg.Liveness.Timeout = time.Duration(cfg.Liveness.TimeoutSeconds) * time.Second
	cfg.Liveness.CheckInterval = time.Duration(cfg.Liveness.CheckIntervalSeconds) * time.Second

	if cfg.Push.TTL <= 0 {
		cfg.Push.TTL = 3600
	}
	if cfg.WorkerPool.Size <= 0 {
		cfg.WorkerPool.Size = 1
	}

	if cfg.MQTT.Topic == "" {
		cfg.MQTT.Topic = "parking/+/telemetry"
	}
	if cfg.MQTT.ClientID == "" {
		cfg.MQTT.ClientID = "parking-status-backend"
	}
}
