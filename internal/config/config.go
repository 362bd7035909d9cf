package config

import (
	"fmt"
	"os"
	"time"

	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v2"
)

// Config represents the complete application configuration
type Config struct {
	Server     ServerConfig     `yaml:"server" envconfig:"SERVER"`
	Database   DatabaseConfig   `yaml:"database" envconfig:"DATABASE"`
	Source     SourceConfig     `yaml:"source" envconfig:"SOURCE"`
	Logging    LoggingConfig    `yaml:"logging" envconfig:"LOGGING"`
	Security   SecurityConfig   `yaml:"security" envconfig:"SECURITY"`
	Validation ValidationConfig `yaml:"validation" envconfig:"VALIDATION"`
	Notify     NotifyConfig     `yaml:"notify" envconfig:"NOTIFY"`
}

// ServerConfig contains HTTP server configuration
type ServerConfig struct {
	Port            int           `yaml:"port" envconfig:"PORT" default:"8080"`
	ReadTimeout     time.Duration `yaml:"read_timeout" envconfig:"READ_TIMEOUT" default:"15s"`
	WriteTimeout    time.Duration `yaml:"write_timeout" envconfig:"WRITE_TIMEOUT" default:"60s"`
	IdleTimeout     time.Duration `yaml:"idle_timeout" envconfig:"IDLE_TIMEOUT" default:"60s"`
	MaxHeaderBytes  int           `yaml:"max_header_bytes" envconfig:"MAX_HEADER_BYTES" default:"1048576"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" envconfig:"SHUTDOWN_TIMEOUT" default:"30s"`
	RunTimeout      time.Duration `yaml:"run_timeout" envconfig:"RUN_TIMEOUT" default:"5m"`
}

// DatabaseConfig contains the Postgres connection settings for both the
// market data tables and the validation result store.
type DatabaseConfig struct {
	URL            string        `yaml:"url" envconfig:"URL"`
	MaxConns       int32         `yaml:"max_conns" envconfig:"MAX_CONNS" default:"8"`
	ConnectTimeout time.Duration `yaml:"connect_timeout" envconfig:"CONNECT_TIMEOUT" default:"10s"`
}

// SourceConfig selects where table rows are read from. The default reads the
// tables from Postgres; "excel" reads sheets from a workbook instead, which
// is how ad-hoc exports get validated.
type SourceConfig struct {
	Kind      string `yaml:"kind" envconfig:"KIND" default:"postgres"`
	ExcelFile string `yaml:"excel_file" envconfig:"EXCEL_FILE"`
}

// LoggingConfig contains logging configuration
type LoggingConfig struct {
	Level       string `yaml:"level" envconfig:"LEVEL" default:"info"`
	Format      string `yaml:"format" envconfig:"FORMAT" default:"json"`
	Output      string `yaml:"output" envconfig:"OUTPUT" default:"both"`
	FilePath    string `yaml:"file_path" envconfig:"FILE_PATH" default:"logs/app.log"`
	Development bool   `yaml:"development" envconfig:"DEVELOPMENT" default:"false"`
}

// SecurityConfig contains security-related configuration
type SecurityConfig struct {
	AllowedOrigins []string        `yaml:"allowed_origins" envconfig:"ALLOWED_ORIGINS" default:"http://localhost:8080"`
	EnableCORS     bool            `yaml:"enable_cors" envconfig:"ENABLE_CORS" default:"true"`
	RateLimit      RateLimitConfig `yaml:"rate_limit" envconfig:"RATE_LIMIT"`
}

// RateLimitConfig contains rate limiting configuration
type RateLimitConfig struct {
	Enabled bool    `yaml:"enabled" envconfig:"ENABLED" default:"true"`
	RPS     float64 `yaml:"rps" envconfig:"RPS" default:"100"`
	Burst   int     `yaml:"burst" envconfig:"BURST" default:"50"`
}

// ValidationConfig tunes the validation engine.
type ValidationConfig struct {
	Concurrency int    `yaml:"concurrency" envconfig:"CONCURRENCY" default:"4"`
	ResultsDir  string `yaml:"results_dir" envconfig:"RESULTS_DIR" default:"data/results"`
	ListLimit   int    `yaml:"list_limit" envconfig:"LIST_LIMIT" default:"50"`

	// DividendAdjustments scales reported dividend amounts per symbol before
	// yield checks. Used for symbols whose vendor feed reports amounts on a
	// different share basis.
	DividendAdjustments map[string]float64 `yaml:"dividend_adjustments" envconfig:"DIVIDEND_ADJUSTMENTS"`
}

// NotifyConfig configures anomaly alert delivery. An empty webhook URL
// disables alerting.
type NotifyConfig struct {
	WebhookURL string        `yaml:"webhook_url" envconfig:"WEBHOOK_URL"`
	Timeout    time.Duration `yaml:"timeout" envconfig:"TIMEOUT" default:"10s"`
}

// Load loads configuration from environment variables and config file
func Load() (*Config, error) {
	var cfg Config

	// Load from environment variables first
	if err := envconfig.Process("IDXVAL", &cfg); err != nil {
		return nil, fmt.Errorf("failed to load config from env: %w", err)
	}

	// Load from config file if exists
	configFile := getConfigFilePath()
	if configFile != "" {
		fileConfig, err := loadFromFile(configFile)
		if err != nil {
			return nil, fmt.Errorf("failed to load config from file: %w", err)
		}
		cfg = mergeConfigs(*fileConfig, cfg)
	}

	// Validate configuration
	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &cfg, nil
}

// loadFromFile loads configuration from YAML file
func loadFromFile(filePath string) (*Config, error) {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// mergeConfigs merges file config with env config (env takes precedence)
func mergeConfigs(fileConfig, envConfig Config) Config {
	if envConfig.Database.URL == "" {
		envConfig.Database.URL = fileConfig.Database.URL
	}
	if envConfig.Source.ExcelFile == "" {
		envConfig.Source.ExcelFile = fileConfig.Source.ExcelFile
	}
	if envConfig.Notify.WebhookURL == "" {
		envConfig.Notify.WebhookURL = fileConfig.Notify.WebhookURL
	}
	if len(envConfig.Validation.DividendAdjustments) == 0 {
		envConfig.Validation.DividendAdjustments = fileConfig.Validation.DividendAdjustments
	}

	return envConfig
}

// validate validates the configuration
func (c *Config) validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", c.Server.Port)
	}

	if c.Server.ReadTimeout <= 0 {
		return fmt.Errorf("server read timeout must be positive")
	}

	if c.Server.WriteTimeout <= 0 {
		return fmt.Errorf("server write timeout must be positive")
	}

	switch c.Source.Kind {
	case "postgres":
		if c.Database.URL == "" {
			return fmt.Errorf("database url is required for the postgres source")
		}
	case "excel":
		if c.Source.ExcelFile == "" {
			return fmt.Errorf("excel file path is required for the excel source")
		}
	default:
		return fmt.Errorf("unknown source kind: %q", c.Source.Kind)
	}

	if c.Validation.Concurrency <= 0 {
		c.Validation.Concurrency = 4
	}
	if c.Validation.ListLimit <= 0 {
		c.Validation.ListLimit = 50
	}
	for symbol, factor := range c.Validation.DividendAdjustments {
		if factor <= 0 {
			return fmt.Errorf("dividend adjustment for %s must be positive, got %g", symbol, factor)
		}
	}

	if len(c.Security.AllowedOrigins) == 0 {
		return fmt.Errorf("at least one allowed origin must be specified")
	}

	if c.Logging.Format != "json" {
		c.Logging.Format = "json"
	}
	if c.Logging.Output != "both" && c.Logging.Output != "file" && c.Logging.Output != "console" {
		c.Logging.Output = "both"
	}
	if c.Logging.FilePath == "" {
		c.Logging.FilePath = "logs/app.log"
	}

	return nil
}

// getConfigFilePath returns the path to the config file
func getConfigFilePath() string {
	locations := []string{
		"config.yaml",
		"configs/config.yaml",
		"../configs/config.yaml",
	}

	for _, location := range locations {
		if _, err := os.Stat(location); err == nil {
			return location
		}
	}

	return "" // No config file found, use env vars only
}

// Default returns default configuration
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Port:            8080,
			ReadTimeout:     15 * time.Second,
			WriteTimeout:    60 * time.Second,
			IdleTimeout:     60 * time.Second,
			MaxHeaderBytes:  1 << 20, // 1MB
			ShutdownTimeout: 30 * time.Second,
			RunTimeout:      5 * time.Minute,
		},
		Database: DatabaseConfig{
			MaxConns:       8,
			ConnectTimeout: 10 * time.Second,
		},
		Source: SourceConfig{
			Kind: "postgres",
		},
		Logging: LoggingConfig{
			Level:    "info",
			Format:   "json",
			Output:   "both",
			FilePath: "logs/app.log",
		},
		Security: SecurityConfig{
			AllowedOrigins: []string{"http://localhost:8080"},
			EnableCORS:     true,
			RateLimit: RateLimitConfig{
				Enabled: true,
				RPS:     100,
				Burst:   50,
			},
		},
		Validation: ValidationConfig{
			Concurrency: 4,
			ResultsDir:  "data/results",
			ListLimit:   50,
		},
		Notify: NotifyConfig{
			Timeout: 10 * time.Second,
		},
	}
}
