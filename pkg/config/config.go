// Package config loads application configuration from files, environment
// variables, and flags via viper.
package config

import (
	"fmt"
	"os"

	"github.com/spf13/viper"

	"github.com/soundprediction/cartograph/pkg/projection"
	"github.com/soundprediction/cartograph/pkg/transformer"
)

// Config holds all configuration for the application
type Config struct {
	// Log configuration
	Log LogConfig `mapstructure:"log"`

	// Server configuration
	Server ServerConfig `mapstructure:"server"`

	// Transformer holds the geometric transformer defaults; requests may
	// override them per call.
	Transformer transformer.Config `mapstructure:"transformer"`

	// Projector holds the manifold projector defaults.
	Projector projection.Config `mapstructure:"projector"`

	// Embedding configuration
	Embedding EmbeddingConfig `mapstructure:"embedding"`

	// CircuitBreaker configuration for the remote embedding provider.
	CircuitBreaker CircuitBreakerConfig `mapstructure:"circuit_breaker"`

	// Telemetry configuration
	Telemetry TelemetryConfig `mapstructure:"telemetry"`
}

// LogConfig holds logging configuration
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// ServerConfig holds server configuration
type ServerConfig struct {
	Host string `mapstructure:"host"`
	Port int    `mapstructure:"port"`
	Mode string `mapstructure:"mode"` // gin mode: debug, release, test
}

// EmbeddingConfig holds configuration for the raw embedding provider used
// to seed node vectors from labels.
type EmbeddingConfig struct {
	Provider   string `mapstructure:"provider"` // local, openai
	Model      string `mapstructure:"model"`
	APIKey     string `mapstructure:"api_key"`
	BaseURL    string `mapstructure:"base_url"`
	Dimensions int    `mapstructure:"dimensions"`
}

// CircuitBreakerConfig holds configuration for circuit breaking
type CircuitBreakerConfig struct {
	Enabled          bool    `mapstructure:"enabled"`
	MaxRequests      uint32  `mapstructure:"max_requests"`
	Interval         int     `mapstructure:"interval"` // in seconds
	Timeout          int     `mapstructure:"timeout"`  // in seconds
	ReadyToTripRatio float64 `mapstructure:"ready_to_trip_ratio"`
}

// TelemetryConfig holds telemetry configuration
type TelemetryConfig struct {
	ParquetPath string `mapstructure:"parquet_path"`
}

// Load reads configuration from viper's configured sources and returns
// the assembled Config with defaults applied.
func Load() (*Config, error) {
	setDefaults()

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	return &cfg, nil
}

func setDefaults() {
	viper.SetDefault("log.level", "info")
	viper.SetDefault("log.format", "text")

	viper.SetDefault("server.host", "localhost")
	viper.SetDefault("server.port", 8080)
	viper.SetDefault("server.mode", "release")

	viper.SetDefault("transformer.hidden_dim", 64)
	viper.SetDefault("transformer.num_heads", 4)
	viper.SetDefault("transformer.num_layers", 2)
	viper.SetDefault("transformer.use_layer_norm", true)

	viper.SetDefault("projector.n_components", 2)
	viper.SetDefault("projector.n_neighbors", 15)
	viper.SetDefault("projector.min_dist", 0.1)
	viper.SetDefault("projector.spread", 1.0)
	viper.SetDefault("projector.metric", "euclidean")
	viper.SetDefault("projector.n_epochs", 200)

	viper.SetDefault("embedding.provider", "local")
	viper.SetDefault("embedding.model", "all-MiniLM-L6-v2")

	viper.SetDefault("circuit_breaker.enabled", false)
	viper.SetDefault("circuit_breaker.max_requests", 1)
	viper.SetDefault("circuit_breaker.interval", 60)
	viper.SetDefault("circuit_breaker.timeout", 30)
	viper.SetDefault("circuit_breaker.ready_to_trip_ratio", 0.6)

	if path := os.Getenv("CARTOGRAPH_TELEMETRY_PATH"); path != "" {
		viper.SetDefault("telemetry.parquet_path", path)
	}
}
