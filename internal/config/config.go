// Package config provides unified configuration loading for the invoice pipeline.
// Supports YAML files, environment variables, and programmatic overrides.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds all configuration for the invoice pipeline.
type Config struct {
	Server        ServerConfig        `yaml:"server"`
	Storage       StorageConfig       `yaml:"storage"`
	Queue         QueueConfig         `yaml:"queue"`
	Engine        EngineConfig        `yaml:"engine"`
	Cache         CacheConfig         `yaml:"cache"`
	Observability ObservabilityConfig `yaml:"observability"`
}

// ServerConfig holds HTTP trigger server settings.
type ServerConfig struct {
	Host             string        `yaml:"host"`
	Port             int           `yaml:"port"`
	ReadTimeout      time.Duration `yaml:"read_timeout"`
	WriteTimeout     time.Duration `yaml:"write_timeout"`
	IdleTimeout      time.Duration `yaml:"idle_timeout"`
	GracefulShutdown time.Duration `yaml:"graceful_shutdown"`
}

// StorageConfig names the buckets the pipeline reads and writes.
type StorageConfig struct {
	Region        string `yaml:"region"`
	InputBucket   string `yaml:"input_bucket"`
	StagingBucket string `yaml:"staging_bucket"`
	OutputBucket  string `yaml:"output_bucket"`
}

// QueueConfig holds submission-queue settings. The visibility timeout
// must exceed worst-case submission latency, not job runtime.
type QueueConfig struct {
	URL               string        `yaml:"url"`
	VisibilityTimeout time.Duration `yaml:"visibility_timeout"`
	WaitTime          time.Duration `yaml:"wait_time"`
}

// EngineConfig holds extraction-engine settings.
type EngineConfig struct {
	BlueprintName  string        `yaml:"blueprint_name"`
	BlueprintParam string        `yaml:"blueprint_param"`
	ProfileARN     string        `yaml:"profile_arn"`
	OutputPrefix   string        `yaml:"output_prefix"`
	PollInterval   time.Duration `yaml:"poll_interval"`
	PollTimeout    time.Duration `yaml:"poll_timeout"`
}

// CacheConfig holds blueprint-cache settings.
type CacheConfig struct {
	Driver string        `yaml:"driver"` // memory or redis
	TTL    time.Duration `yaml:"ttl"`
	Redis  RedisConfig   `yaml:"redis"`
}

// RedisConfig holds Redis-specific settings.
type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
	PoolSize int    `yaml:"pool_size"`
}

// ObservabilityConfig holds logging settings.
type ObservabilityConfig struct {
	LogLevel    string `yaml:"log_level"`
	LogFormat   string `yaml:"log_format"`
	ServiceName string `yaml:"service_name"`
}

// Load reads configuration from a YAML file and applies environment overrides.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config file: %w", err)
		}

		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config file: %w", err)
		}
	}

	applyEnvOverrides(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	return cfg, nil
}

// DefaultConfig returns a configuration with sensible defaults for development.
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Host:             "0.0.0.0",
			Port:             8086,
			ReadTimeout:      30 * time.Second,
			WriteTimeout:     30 * time.Second,
			IdleTimeout:      120 * time.Second,
			GracefulShutdown: 10 * time.Second,
		},
		Storage: StorageConfig{
			Region: "us-east-1",
		},
		Queue: QueueConfig{
			VisibilityTimeout: 2 * time.Minute,
			WaitTime:          20 * time.Second,
		},
		Engine: EngineConfig{
			BlueprintName:  "invoices",
			BlueprintParam: "/invoice-pipeline/invoices_blueprint_arn",
			OutputPrefix:   "raw_job_outputs",
			PollInterval:   5 * time.Second,
			PollTimeout:    10 * time.Minute,
		},
		Cache: CacheConfig{
			Driver: "memory",
			TTL:    time.Hour,
			Redis: RedisConfig{
				Addr:     "localhost:6379",
				DB:       0,
				PoolSize: 10,
			},
		},
		Observability: ObservabilityConfig{
			LogLevel:    "info",
			LogFormat:   "json",
			ServiceName: "invoice-pipeline",
		},
	}
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", c.Server.Port)
	}

	if c.Cache.Driver != "memory" && c.Cache.Driver != "redis" {
		return fmt.Errorf("invalid cache driver: %s", c.Cache.Driver)
	}

	if c.Engine.PollInterval <= 0 {
		return fmt.Errorf("poll_interval must be positive")
	}

	if c.Engine.PollTimeout <= 0 {
		return fmt.Errorf("poll_timeout must be positive")
	}

	if c.Engine.BlueprintName == "" {
		return fmt.Errorf("blueprint_name is required")
	}

	return nil
}

// applyEnvOverrides applies environment variable overrides to config.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("SERVER_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Server.Port = port
		}
	}

	if v := os.Getenv("SERVER_HOST"); v != "" {
		cfg.Server.Host = v
	}

	if v := os.Getenv("AWS_REGION"); v != "" {
		cfg.Storage.Region = v
	}

	if v := os.Getenv("INPUT_BUCKET"); v != "" {
		cfg.Storage.InputBucket = v
	}

	if v := os.Getenv("STAGING_BUCKET"); v != "" {
		cfg.Storage.StagingBucket = v
	}

	if v := os.Getenv("OUTPUT_BUCKET"); v != "" {
		cfg.Storage.OutputBucket = v
	}

	if v := os.Getenv("INVOICES_QUEUE_URL"); v != "" {
		cfg.Queue.URL = v
	}

	if v := os.Getenv("BLUEPRINT_NAME"); v != "" {
		cfg.Engine.BlueprintName = v
	}

	if v := os.Getenv("BLUEPRINT_PARAM_NAME"); v != "" {
		cfg.Engine.BlueprintParam = v
	}

	if v := os.Getenv("DATA_AUTOMATION_PROFILE_ARN"); v != "" {
		cfg.Engine.ProfileARN = v
	}

	if v := os.Getenv("REDIS_URL"); v != "" {
		cfg.Cache.Driver = "redis"
		cfg.Cache.Redis.Addr = strings.TrimPrefix(v, "redis://")
	}

	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.Observability.LogLevel = v
	}

	if v := os.Getenv("LOG_FORMAT"); v != "" {
		cfg.Observability.LogFormat = v
	}
}
