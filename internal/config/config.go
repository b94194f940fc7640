// internal/config/config.go
package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
)

// Config holds the entire application configuration.
type Config struct {
	Logger    LoggerConfig    `mapstructure:"logger" yaml:"logger"`
	Browser   BrowserConfig   `mapstructure:"browser" yaml:"browser"`
	Network   NetworkConfig   `mapstructure:"network" yaml:"network"`
	LLM       LLMConfig       `mapstructure:"llm" yaml:"llm"`
	Crawler   CrawlerConfig   `mapstructure:"crawler" yaml:"crawler"`
	Store     StoreConfig     `mapstructure:"store" yaml:"store"`
	Server    ServerConfig    `mapstructure:"server" yaml:"server"`
	Launcher  LauncherConfig  `mapstructure:"launcher" yaml:"launcher"`
	DataDir   string          `mapstructure:"data_dir" yaml:"data_dir"`
}

// LoggerConfig holds all the configuration for the logger.
type LoggerConfig struct {
	Level       string `mapstructure:"level" yaml:"level"`
	Format      string `mapstructure:"format" yaml:"format"`
	AddSource   bool   `mapstructure:"add_source" yaml:"add_source"`
	ServiceName string `mapstructure:"service_name" yaml:"service_name"`
	LogFile     string `mapstructure:"log_file" yaml:"log_file"`
	MaxSize     int    `mapstructure:"max_size" yaml:"max_size"`
	MaxBackups  int    `mapstructure:"max_backups" yaml:"max_backups"`
	MaxAge      int    `mapstructure:"max_age" yaml:"max_age"`
	Compress    bool   `mapstructure:"compress" yaml:"compress"`
}

// BrowserConfig holds settings for the headless browser instance.
type BrowserConfig struct {
	Headless      bool     `mapstructure:"headless" yaml:"headless"`
	DisableGPU    bool     `mapstructure:"disable_gpu" yaml:"disable_gpu"`
	DebuggingPort int      `mapstructure:"debugging_port" yaml:"debugging_port"`
	UserAgent     string   `mapstructure:"user_agent" yaml:"user_agent"`
	Args          []string `mapstructure:"args" yaml:"args"`
}

// NetworkConfig tunes navigation and settle behavior.
type NetworkConfig struct {
	NavigationTimeout time.Duration `mapstructure:"navigation_timeout" yaml:"navigation_timeout"`
	PostLoadWait      time.Duration `mapstructure:"post_load_wait" yaml:"post_load_wait"`
}

// LLMProvider identifies a supported decision-service backend.
type LLMProvider string

const (
	ProviderGemini LLMProvider = "gemini"
)

// LLMConfig defines the decision-service client settings.
type LLMConfig struct {
	Provider          LLMProvider   `mapstructure:"provider" yaml:"provider"`
	Model             string        `mapstructure:"model" yaml:"model"`
	APIKey            string        `mapstructure:"api_key" yaml:"-"`
	Endpoint          string        `mapstructure:"endpoint" yaml:"endpoint"`
	APITimeout        time.Duration `mapstructure:"api_timeout" yaml:"api_timeout"`
	Temperature       float32       `mapstructure:"temperature" yaml:"temperature"`
	MaxTokens         int           `mapstructure:"max_tokens" yaml:"max_tokens"`
	RequestsPerMinute float64       `mapstructure:"requests_per_minute" yaml:"requests_per_minute"`
}

// CrawlerConfig bounds the decide-act-record loop.
type CrawlerConfig struct {
	MaxStepsPerSource int           `mapstructure:"max_steps_per_source" yaml:"max_steps_per_source"`
	HistoryWindow     int           `mapstructure:"history_window" yaml:"history_window"`
	LinkCap           int           `mapstructure:"link_cap" yaml:"link_cap"`
	BodyPreviewChars  int           `mapstructure:"body_preview_chars" yaml:"body_preview_chars"`
	SnapshotTimeout   time.Duration `mapstructure:"snapshot_timeout" yaml:"snapshot_timeout"`
	StepBackoff       time.Duration `mapstructure:"step_backoff" yaml:"step_backoff"`
	Screenshots       bool          `mapstructure:"screenshots" yaml:"screenshots"`
}

// StoreBackend selects the knowledge store implementation.
type StoreBackend string

const (
	StoreDisabled StoreBackend = ""
	StoreWeaviate StoreBackend = "weaviate"
	StorePostgres StoreBackend = "postgres"
)

// StoreConfig configures the external knowledge store.
type StoreConfig struct {
	Backend  StoreBackend   `mapstructure:"backend" yaml:"backend"`
	Weaviate WeaviateConfig `mapstructure:"weaviate" yaml:"weaviate"`
	Postgres PostgresConfig `mapstructure:"postgres" yaml:"postgres"`
}

// WeaviateConfig holds the Weaviate cloud connection details.
type WeaviateConfig struct {
	URL    string `mapstructure:"url" yaml:"url"`
	APIKey string `mapstructure:"api_key" yaml:"-"`
	Class  string `mapstructure:"class" yaml:"class"`
}

// PostgresConfig holds the connection string for the Postgres backend.
type PostgresConfig struct {
	URL string `mapstructure:"url" yaml:"-"`
}

// ServerConfig configures the job API.
type ServerConfig struct {
	Port            int           `mapstructure:"port" yaml:"port"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout" yaml:"shutdown_timeout"`
}

// LauncherConfig configures the multi-process launcher.
type LauncherConfig struct {
	BasePort   int           `mapstructure:"base_port" yaml:"base_port"`
	JobTimeout time.Duration `mapstructure:"job_timeout" yaml:"job_timeout"`
	Parallel   bool          `mapstructure:"parallel" yaml:"parallel"`
}

// SetDefaults initializes default values for all configuration parameters.
func SetDefaults(v *viper.Viper) {
	// -- Logger --
	v.SetDefault("logger.level", "info")
	v.SetDefault("logger.format", "console")
	v.SetDefault("logger.add_source", false)
	v.SetDefault("logger.service_name", "lodestar")
	v.SetDefault("logger.log_file", "")
	v.SetDefault("logger.max_size", 100)
	v.SetDefault("logger.max_backups", 5)
	v.SetDefault("logger.max_age", 30)
	v.SetDefault("logger.compress", true)

	// -- Browser --
	v.SetDefault("browser.headless", true)
	v.SetDefault("browser.disable_gpu", true)
	v.SetDefault("browser.debugging_port", 0)
	v.SetDefault("browser.user_agent", "")

	// -- Network --
	v.SetDefault("network.navigation_timeout", "30s")
	v.SetDefault("network.post_load_wait", "2s")

	// -- LLM --
	v.SetDefault("llm.provider", "gemini")
	v.SetDefault("llm.model", "gemini-2.5-flash")
	v.SetDefault("llm.api_timeout", "60s")
	v.SetDefault("llm.temperature", 0.2)
	v.SetDefault("llm.max_tokens", 2048)
	v.SetDefault("llm.requests_per_minute", 30)

	// -- Crawler --
	v.SetDefault("crawler.max_steps_per_source", 20)
	v.SetDefault("crawler.history_window", 8)
	v.SetDefault("crawler.link_cap", 40)
	v.SetDefault("crawler.body_preview_chars", 2000)
	v.SetDefault("crawler.snapshot_timeout", "5s")
	v.SetDefault("crawler.step_backoff", "1s")
	v.SetDefault("crawler.screenshots", false)

	// -- Store --
	v.SetDefault("store.backend", "")
	v.SetDefault("store.weaviate.class", "News")

	// -- Server --
	v.SetDefault("server.port", 5000)
	v.SetDefault("server.shutdown_timeout", "15s")

	// -- Launcher --
	v.SetDefault("launcher.base_port", 9222)
	v.SetDefault("launcher.job_timeout", "10m")
	v.SetDefault("launcher.parallel", true)

	v.SetDefault("data_dir", "sessions")
}

// NewDefaultConfig creates a configuration populated with default values.
func NewDefaultConfig() *Config {
	v := viper.New()
	SetDefaults(v)

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		// Cannot happen with the defaults above.
		panic(fmt.Sprintf("failed to unmarshal default config: %v", err))
	}
	return &cfg
}

// NewConfigFromViper creates a configuration instance from a viper object.
func NewConfigFromViper(v *viper.Viper) (*Config, error) {
	// Bind environment variables for sensitive values.
	v.BindEnv("llm.api_key", "LODESTAR_LLM_API_KEY", "GEMINI_API_KEY")
	v.BindEnv("store.weaviate.url", "WEAVIATE_URL")
	v.BindEnv("store.weaviate.api_key", "WEAVIATE_API_KEY")
	v.BindEnv("store.postgres.url", "LODESTAR_STORE_POSTGRES_URL")

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return &cfg, nil
}

// Validate checks the configuration for required fields and sane values.
func (c *Config) Validate() error {
	if c.Crawler.MaxStepsPerSource <= 0 {
		return fmt.Errorf("crawler.max_steps_per_source must be a positive integer")
	}
	if c.Crawler.HistoryWindow <= 0 {
		return fmt.Errorf("crawler.history_window must be a positive integer")
	}
	if c.Crawler.LinkCap <= 0 {
		return fmt.Errorf("crawler.link_cap must be a positive integer")
	}
	if c.Network.NavigationTimeout <= 0 {
		return fmt.Errorf("network.navigation_timeout must be a positive duration")
	}
	switch c.Store.Backend {
	case StoreDisabled, StoreWeaviate, StorePostgres:
	default:
		return fmt.Errorf("store.backend must be one of '', 'weaviate', 'postgres' (got %q)", c.Store.Backend)
	}
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port must be a valid TCP port")
	}
	return nil
}
