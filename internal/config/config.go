package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	libconfig "parkgate/libs/config"
)

// Config defines the visitor portal configuration.
type Config struct {
	HTTP struct {
		Port string `yaml:"port" env:"PORTAL_HTTP_PORT"`
	} `yaml:"http"`
	API struct {
		BaseURL        string `yaml:"baseUrl" env:"PORTAL_API_BASE_URL"`
		TimeoutSeconds int    `yaml:"timeoutSeconds" env:"PORTAL_API_TIMEOUT"`
		Secret         string `yaml:"secret" env:"PORTAL_API_SECRET"`
		GateID         string `yaml:"gateId" env:"PORTAL_GATE_ID"`
		Source         string `yaml:"source" env:"PORTAL_SOURCE"`
	} `yaml:"api"`
	Lookup struct {
		DefaultRegion string `yaml:"defaultRegion" env:"PORTAL_DEFAULT_REGION"`
	} `yaml:"lookup"`
	Poll struct {
		Attempts   int `yaml:"attempts" env:"PORTAL_POLL_ATTEMPTS"`
		IntervalMs int `yaml:"intervalMs" env:"PORTAL_POLL_INTERVAL_MS"`
	} `yaml:"poll"`
	Redis struct {
		Addr       string `yaml:"addr" env:"PORTAL_REDIS_ADDR"`
		Password   string `yaml:"password" env:"PORTAL_REDIS_PASSWORD"`
		DB         int    `yaml:"db" env:"PORTAL_REDIS_DB"`
		TTLSeconds int    `yaml:"ttlSeconds" env:"PORTAL_REDIS_TTL"`
	} `yaml:"redis"`
	Receipt struct {
		EmailEndpoint string `yaml:"emailEndpoint" env:"PORTAL_RECEIPT_EMAIL_ENDPOINT"`
	} `yaml:"receipt"`
	Journal struct {
		DSN string `yaml:"dsn" env:"PORTAL_JOURNAL_DSN"`
	} `yaml:"journal"`
}

// Load reads configuration via the shared helper and validates it.
func Load() (*Config, error) {
	cfg := &Config{}
	cfg.HTTP.Port = "8090"
	cfg.API.TimeoutSeconds = 10
	cfg.API.GateID = "web_portal"
	cfg.API.Source = "driver_portal"
	cfg.Lookup.DefaultRegion = "BG"
	cfg.Poll.Attempts = 6
	cfg.Poll.IntervalMs = 2000
	cfg.Redis.TTLSeconds = 86400

	if err := libconfig.LoadConfig(cfg); err != nil {
		return nil, err
	}

	if strings.TrimSpace(cfg.API.BaseURL) == "" {
		return nil, errors.New("config: api base url required")
	}
	if cfg.Poll.Attempts <= 0 {
		return nil, errors.New("config: poll attempts must be positive")
	}
	return cfg, nil
}

// HTTPAddress returns :port style.
func (c *Config) HTTPAddress() string {
	port := strings.TrimSpace(c.HTTP.Port)
	if port == "" {
		port = "8090"
	}
	if strings.HasPrefix(port, ":") {
		return port
	}
	return fmt.Sprintf(":%s", port)
}

// APITimeout returns the parking API client timeout.
func (c *Config) APITimeout() time.Duration {
	if c.API.TimeoutSeconds <= 0 {
		return 10 * time.Second
	}
	return time.Duration(c.API.TimeoutSeconds) * time.Second
}

// PollInterval returns the reconciliation poll delay.
func (c *Config) PollInterval() time.Duration {
	if c.Poll.IntervalMs <= 0 {
		return 2 * time.Second
	}
	return time.Duration(c.Poll.IntervalMs) * time.Millisecond
}

// StoreTTL returns the Redis slot lifetime.
func (c *Config) StoreTTL() time.Duration {
	if c.Redis.TTLSeconds <= 0 {
		return 24 * time.Hour
	}
	return time.Duration(c.Redis.TTLSeconds) * time.Second
}
