// Package config provides worker configuration management.
// Priority: defaults < file < env.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds all schedflow worker configuration.
type Config struct {
	Version int `yaml:"version"`

	Queue     QueueConfig     `yaml:"queue"`
	Database  DatabaseConfig  `yaml:"database"`
	Search    SearchConfig    `yaml:"search"`
	Embedding EmbeddingConfig `yaml:"embedding"`
	Planner   PlannerConfig   `yaml:"planner"`
	Archive   ArchiveConfig   `yaml:"archive"`
	Pipeline  PipelineConfig  `yaml:"pipeline"`
	Telemetry TelemetryConfig `yaml:"telemetry"`
	Logging   LoggingConfig   `yaml:"logging"`
}

// QueueConfig controls SQS intake.
type QueueConfig struct {
	URL               string        `yaml:"url"`
	Region            string        `yaml:"region"`
	MaxMessages       int           `yaml:"max_messages"` // per receive batch (SQS cap: 10)
	WaitTime          time.Duration `yaml:"wait_time"`    // long-poll duration
	VisibilityTimeout time.Duration `yaml:"visibility_timeout"`
	Endpoint          string        `yaml:"endpoint"` // override for LocalStack
}

// DatabaseConfig controls the Postgres calendar store.
type DatabaseConfig struct {
	URL      string        `yaml:"url"`
	MaxConns int           `yaml:"max_conns"`
	Timeout  time.Duration `yaml:"timeout"`
}

// SearchConfig controls the Redis vector index.
type SearchConfig struct {
	Address   string        `yaml:"address"`
	Password  string        `yaml:"password"`
	Database  int           `yaml:"database"`
	IndexName string        `yaml:"index_name"`
	KeyPrefix string        `yaml:"key_prefix"`
	Timeout   time.Duration `yaml:"timeout"`
	PoolSize  int           `yaml:"pool_size"`
}

// EmbeddingConfig controls the embedding-service client.
type EmbeddingConfig struct {
	URL     string        `yaml:"url"`
	Timeout time.Duration `yaml:"timeout"`
	Retries int           `yaml:"retries"`
}

// PlannerConfig controls the optimizer client.
type PlannerConfig struct {
	URL      string        `yaml:"url"`
	Username string        `yaml:"username"`
	Password string        `yaml:"password"`
	Timeout  time.Duration `yaml:"timeout"`
}

// ArchiveConfig controls the S3 failed-message archive.
type ArchiveConfig struct {
	Enabled bool   `yaml:"enabled"`
	Bucket  string `yaml:"bucket"`
	Region  string `yaml:"region"`
	Prefix  string `yaml:"prefix"`
}

// PipelineConfig controls per-message processing behavior.
type PipelineConfig struct {
	// MaxExpansionDepth bounds recursive meeting expansion.
	MaxExpansionDepth int `yaml:"max_expansion_depth"`
	// FetchConcurrency bounds parallel attendee/calendar fetches.
	FetchConcurrency int `yaml:"fetch_concurrency"`
	// MessageTimeout is the per-message processing deadline.
	MessageTimeout time.Duration `yaml:"message_timeout"`
	// IOTimeout bounds individual collaborator calls.
	IOTimeout time.Duration `yaml:"io_timeout"`
}

// TelemetryConfig controls OTLP trace export.
type TelemetryConfig struct {
	Enabled       bool    `yaml:"enabled"`
	Endpoint      string  `yaml:"endpoint"`
	ServiceName   string  `yaml:"service_name"`
	Environment   string  `yaml:"environment"`
	SamplingRatio float64 `yaml:"sampling_ratio"`
	InsecureTLS   bool    `yaml:"insecure_tls"`
}

// LoggingConfig controls the structured logger.
type LoggingConfig struct {
	Level string `yaml:"level"` // debug | info | warn | error
	JSON  bool   `yaml:"json"`
}

// Default returns sensible defaults.
func Default() *Config {
	return &Config{
		Version: 1,
		Queue: QueueConfig{
			Region:            "us-east-1",
			MaxMessages:       10,
			WaitTime:          20 * time.Second,
			VisibilityTimeout: 2 * time.Minute,
		},
		Database: DatabaseConfig{
			MaxConns: 8,
			Timeout:  10 * time.Second,
		},
		Search: SearchConfig{
			Address:   "localhost:6379",
			IndexName: "event-vectors",
			KeyPrefix: "schedflow:events:",
			Timeout:   5 * time.Second,
			PoolSize:  10,
		},
		Embedding: EmbeddingConfig{
			Timeout: 15 * time.Second,
			Retries: 2,
		},
		Planner: PlannerConfig{
			Timeout: 30 * time.Second,
		},
		Archive: ArchiveConfig{
			Region: "us-east-1",
			Prefix: "failed-messages/",
		},
		Pipeline: PipelineConfig{
			MaxExpansionDepth: 5,
			FetchConcurrency:  8,
			MessageTimeout:    2 * time.Minute,
			IOTimeout:         10 * time.Second,
		},
		Telemetry: TelemetryConfig{
			Endpoint:      "localhost:4317",
			ServiceName:   "schedflow",
			Environment:   "development",
			SamplingRatio: 1.0,
			InsecureTLS:   true,
		},
		Logging: LoggingConfig{Level: "info"},
	}
}

// Load reads configuration from a YAML file layered over defaults,
// then applies environment overrides. An empty path skips the file.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config %q: %w", path, err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config %q: %w", path, err)
		}
	}

	cfg.applyEnv()
	return cfg, nil
}

// applyEnv overlays SCHEDFLOW_* environment variables.
func (c *Config) applyEnv() {
	if v := os.Getenv("SCHEDFLOW_QUEUE_URL"); v != "" {
		c.Queue.URL = v
	}
	if v := os.Getenv("SCHEDFLOW_QUEUE_REGION"); v != "" {
		c.Queue.Region = v
	}
	if v := os.Getenv("SCHEDFLOW_DATABASE_URL"); v != "" {
		c.Database.URL = v
	}
	if v := os.Getenv("SCHEDFLOW_SEARCH_ADDRESS"); v != "" {
		c.Search.Address = v
	}
	if v := os.Getenv("SCHEDFLOW_SEARCH_PASSWORD"); v != "" {
		c.Search.Password = v
	}
	if v := os.Getenv("SCHEDFLOW_EMBEDDING_URL"); v != "" {
		c.Embedding.URL = v
	}
	if v := os.Getenv("SCHEDFLOW_PLANNER_URL"); v != "" {
		c.Planner.URL = v
	}
	if v := os.Getenv("SCHEDFLOW_ARCHIVE_BUCKET"); v != "" {
		c.Archive.Bucket = v
		c.Archive.Enabled = true
	}
	if v := os.Getenv("SCHEDFLOW_OTLP_ENDPOINT"); v != "" {
		c.Telemetry.Endpoint = v
		c.Telemetry.Enabled = true
	}
	if v := os.Getenv("SCHEDFLOW_LOG_LEVEL"); v != "" {
		c.Logging.Level = v
	}
	if v := os.Getenv("SCHEDFLOW_FETCH_CONCURRENCY"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			c.Pipeline.FetchConcurrency = n
		}
	}
}

// Validate checks that required settings are present and coherent.
func (c *Config) Validate() error {
	if c.Queue.URL == "" {
		return fmt.Errorf("queue.url is required")
	}
	if c.Database.URL == "" {
		return fmt.Errorf("database.url is required")
	}
	if c.Embedding.URL == "" {
		return fmt.Errorf("embedding.url is required")
	}
	if c.Planner.URL == "" {
		return fmt.Errorf("planner.url is required")
	}
	if c.Queue.MaxMessages < 1 || c.Queue.MaxMessages > 10 {
		return fmt.Errorf("queue.max_messages must be 1..10, got %d", c.Queue.MaxMessages)
	}
	if c.Pipeline.MaxExpansionDepth < 1 {
		return fmt.Errorf("pipeline.max_expansion_depth must be positive")
	}
	if c.Pipeline.FetchConcurrency < 1 {
		return fmt.Errorf("pipeline.fetch_concurrency must be positive")
	}
	if c.Archive.Enabled && c.Archive.Bucket == "" {
		return fmt.Errorf("archive.bucket is required when archive is enabled")
	}
	return nil
}
