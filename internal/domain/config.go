package domain

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds the complete LinkGuard configuration.
type Config struct {
	Server     ServerConfig     `yaml:"server"`
	Repository RepositoryConfig `yaml:"repository"`
	Cache      CacheConfig      `yaml:"cache"`
	EventBus   EventBusConfig   `yaml:"eventBus"`
	Reputation ReputationConfig `yaml:"reputation"`
	Model      ModelConfig      `yaml:"model"`
	Weights    WeightsConfig    `yaml:"weights"`
	Rules      []CustomRule     `yaml:"rules"`
	Logging    LoggingConfig    `yaml:"logging"`
	Tracing    TracingConfig    `yaml:"tracing"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host         string `yaml:"host"`
	Port         int    `yaml:"port"`
	ReadTimeout  int    `yaml:"readTimeout"`  // seconds
	WriteTimeout int    `yaml:"writeTimeout"` // seconds
}

// ReputationConfig configures the three external evidence clients.
type ReputationConfig struct {
	TrancoAPIKey   string        `yaml:"trancoApiKey"`
	TrancoAPIEmail string        `yaml:"trancoApiEmail"`
	TrancoBaseURL  string        `yaml:"trancoBaseUrl"`
	TrancoInterval time.Duration `yaml:"trancoInterval"`

	VirusTotalAPIKey    string        `yaml:"virustotalApiKey"`
	VirusTotalBaseURL   string        `yaml:"virustotalBaseUrl"`
	VirusTotalInterval  time.Duration `yaml:"virustotalInterval"`
	VirusTotalThreshold int           `yaml:"virustotalThreshold"`

	WhoisEnabled  bool          `yaml:"whoisEnabled"`
	WhoisInterval time.Duration `yaml:"whoisInterval"`

	LookupTimeout time.Duration `yaml:"lookupTimeout"`
	CacheTTL      time.Duration `yaml:"cacheTtl"`
}

// ModelConfig points at the trained classifier artifact.
type ModelConfig struct {
	Path string `yaml:"path"`
}

// WeightsConfig points at the calibrated weight table artifact.
type WeightsConfig struct {
	Path      string `yaml:"path"`
	HotReload bool   `yaml:"hotReload"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level  string `yaml:"level"`  // debug, info, warn, error
	Format string `yaml:"format"` // json, text
}

// TracingConfig holds OpenTelemetry settings.
type TracingConfig struct {
	Enabled     bool   `yaml:"enabled"`
	ServiceName string `yaml:"serviceName"`
}

// DefaultConfig returns the single-node default: SQLite audit store, local
// LRU cache, channel bus, heuristic weights built in.
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Host:         "0.0.0.0",
			Port:         8080,
			ReadTimeout:  30,
			WriteTimeout: 30,
		},
		Repository: RepositoryConfig{
			Driver:     "sqlite",
			SQLitePath: "./linkguard.db",
		},
		Cache: CacheConfig{
			Type:         "memory",
			LocalMaxSize: 10000,
			LocalTTL:     5 * time.Minute,
		},
		EventBus: EventBusConfig{
			Type:              "channel",
			ChannelBufferSize: 1000,
		},
		Reputation: ReputationConfig{
			TrancoBaseURL:       "https://tranco-list.eu/api",
			TrancoInterval:      1100 * time.Millisecond,
			VirusTotalBaseURL:   "https://www.virustotal.com/api/v3",
			VirusTotalInterval:  15 * time.Second,
			VirusTotalThreshold: 2,
			WhoisEnabled:        true,
			WhoisInterval:       time.Second,
			LookupTimeout:       10 * time.Second,
			CacheTTL:            24 * time.Hour,
		},
		Weights: WeightsConfig{
			HotReload: true,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
		Tracing: TracingConfig{
			Enabled:     false,
			ServiceName: "linkguard",
		},
	}
}

// LoadConfig reads a YAML config file over the defaults, then applies
// environment overrides for secrets so API keys never live in the file.
func LoadConfig(path string) (*Config, error) {
	cfg := DefaultConfig()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
		}
	}

	cfg.applyEnv()
	return cfg, nil
}

func (c *Config) applyEnv() {
	if v := os.Getenv("LINKGUARD_TRANCO_API_KEY"); v != "" {
		c.Reputation.TrancoAPIKey = v
	}
	if v := os.Getenv("LINKGUARD_TRANCO_API_EMAIL"); v != "" {
		c.Reputation.TrancoAPIEmail = v
	}
	if v := os.Getenv("LINKGUARD_VIRUSTOTAL_API_KEY"); v != "" {
		c.Reputation.VirusTotalAPIKey = v
	}
	if v := os.Getenv("LINKGUARD_REDIS_PASSWORD"); v != "" {
		c.Cache.RedisPassword = v
	}
	if v := os.Getenv("LINKGUARD_POSTGRES_PASSWORD"); v != "" {
		c.Repository.PostgresPassword = v
	}
	if v := os.Getenv("LINKGUARD_NATS_TOKEN"); v != "" {
		c.EventBus.NATSToken = v
	}
}
