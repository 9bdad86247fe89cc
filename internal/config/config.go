package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/viper"
)

// TLSConfig holds TLS configuration
type TLSConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	CertFile string `mapstructure:"cert_file"`
	KeyFile  string `mapstructure:"key_file"`
}

// MonitoringConfig holds monitoring configuration
type MonitoringConfig struct {
	Enabled     bool   `mapstructure:"enabled"`      // Enable/disable monitoring
	BindAddress string `mapstructure:"bind_address"` // Address to bind monitoring server (default: :9090)
	MetricsPath string `mapstructure:"metrics_path"` // Path for metrics endpoint (default: /metrics)
}

// IngestConfig holds request body ingestion settings
type IngestConfig struct {
	// Maximum body size in bytes, -1 disables the limit
	BodyLimit int64 `mapstructure:"body_limit"`

	// Bytes read from the connection per chunk event, 512B - 2MB, default: 64KB
	StreamingBufferSize int `mapstructure:"streaming_buffer_size"`

	// Strip AWS Signature V4 chunk framing before counting and buffering
	DecodeAWSChunked bool `mapstructure:"decode_aws_chunked"`

	// Decode JSON numbers as json.Number instead of float64
	JSONUseNumber bool `mapstructure:"json_use_number"`
}

// Config holds the application configuration
type Config struct {
	// Server configuration
	BindAddress       string    `mapstructure:"bind_address"`
	LogLevel          string    `mapstructure:"log_level"`
	LogFormat         string    `mapstructure:"log_format"`       // "text" (default) or "json"
	LogHealthRequests bool      `mapstructure:"log_health_requests"`
	ShutdownTimeout   int       `mapstructure:"shutdown_timeout"` // Graceful shutdown timeout in seconds
	TLS               TLSConfig `mapstructure:"tls"`

	// Monitoring configuration
	Monitoring MonitoringConfig `mapstructure:"monitoring"`

	// Body ingestion configuration
	Ingest IngestConfig `mapstructure:"ingest"`
}

// InitConfig initializes the configuration system
func InitConfig(cfgFile string) {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		home, err := os.UserHomeDir()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error finding home directory: %v\n", err)
			os.Exit(1)
		}

		// Search config in home directory with name ".body-ingest" (without extension)
		viper.AddConfigPath(home)
		viper.AddConfigPath(".")
		viper.AddConfigPath("./config")
		viper.SetConfigType("yaml")
		viper.SetConfigName(".body-ingest")
	}

	// BODYINGEST_INGEST_BODY_LIMIT maps to ingest.body_limit
	viper.SetEnvPrefix("BODYINGEST")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	setDefaults()

	if err := viper.ReadInConfig(); err == nil {
		fmt.Fprintf(os.Stderr, "Using config file: %s\n", viper.ConfigFileUsed())
	}
}

// Load loads the configuration from viper
func Load() (*Config, error) {
	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := validate(&cfg); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &cfg, nil
}

// setDefaults sets default configuration values
func setDefaults() {
	viper.SetDefault("bind_address", "0.0.0.0:8080")
	viper.SetDefault("log_level", "info")
	viper.SetDefault("log_format", "text")
	viper.SetDefault("log_health_requests", false)
	viper.SetDefault("shutdown_timeout", 30)

	// TLS defaults
	viper.SetDefault("tls.enabled", false)

	// Monitoring defaults
	viper.SetDefault("monitoring.enabled", false)
	viper.SetDefault("monitoring.bind_address", ":9090")
	viper.SetDefault("monitoring.metrics_path", "/metrics")

	// Ingest defaults: 10MB limit, 64KB chunks
	viper.SetDefault("ingest.body_limit", 10*1024*1024)
	viper.SetDefault("ingest.streaming_buffer_size", 64*1024)
	viper.SetDefault("ingest.decode_aws_chunked", true)
	viper.SetDefault("ingest.json_use_number", false)
}

// validate validates the configuration
func validate(cfg *Config) error {
	if cfg.BindAddress == "" {
		return fmt.Errorf("bind_address is required")
	}

	if cfg.LogFormat != "" && cfg.LogFormat != "text" && cfg.LogFormat != "json" {
		return fmt.Errorf("log_format: unsupported value %q (supported: text, json)", cfg.LogFormat)
	}

	if cfg.ShutdownTimeout < 0 {
		return fmt.Errorf("shutdown_timeout cannot be negative")
	}

	if cfg.TLS.Enabled {
		if cfg.TLS.CertFile == "" {
			return fmt.Errorf("tls.cert_file is required when TLS is enabled")
		}
		if cfg.TLS.KeyFile == "" {
			return fmt.Errorf("tls.key_file is required when TLS is enabled")
		}

		if _, err := os.Stat(cfg.TLS.CertFile); os.IsNotExist(err) {
			return fmt.Errorf("TLS certificate file does not exist: %s", cfg.TLS.CertFile)
		}
		if _, err := os.Stat(cfg.TLS.KeyFile); os.IsNotExist(err) {
			return fmt.Errorf("TLS key file does not exist: %s", cfg.TLS.KeyFile)
		}
	}

	if cfg.Monitoring.Enabled && cfg.Monitoring.MetricsPath == "" {
		return fmt.Errorf("monitoring.metrics_path is required when monitoring is enabled")
	}

	return validateIngest(cfg)
}

// validateIngest validates the ingest configuration
func validateIngest(cfg *Config) error {
	if cfg.Ingest.BodyLimit < -1 {
		return fmt.Errorf("ingest.body_limit: must be -1 (unlimited) or a non-negative byte count, got %d", cfg.Ingest.BodyLimit)
	}

	// Only validate if streaming buffer size is explicitly set
	if cfg.Ingest.StreamingBufferSize > 0 {
		if cfg.Ingest.StreamingBufferSize < 512 {
			return fmt.Errorf("ingest.streaming_buffer_size: minimum value is 512 bytes, got %d", cfg.Ingest.StreamingBufferSize)
		}
		if cfg.Ingest.StreamingBufferSize > 2*1024*1024 {
			return fmt.Errorf("ingest.streaming_buffer_size: maximum value is 2MB (2097152 bytes), got %d", cfg.Ingest.StreamingBufferSize)
		}
	}

	return nil
}

// GetStreamingBufferSize returns the chunk size used when pumping request bodies
func (cfg *Config) GetStreamingBufferSize() int {
	if cfg.Ingest.StreamingBufferSize > 0 {
		return cfg.Ingest.StreamingBufferSize
	}
	return 64 * 1024
}

// IsBodyLimitEnabled reports whether a body size ceiling is configured
func (cfg *Config) IsBodyLimitEnabled() bool {
	return cfg.Ingest.BodyLimit >= 0
}
