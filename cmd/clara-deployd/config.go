package main

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// defaultDSN is the registry location when neither database.dsn nor
// data_dir is configured.
const defaultDSN = "./data/clara-deployd.db"

// =============================================================================
// Config Types
// =============================================================================

// Config holds all daemon configuration.
type Config struct {
	DataDir   string          `mapstructure:"data_dir"`
	Server    ServerConfig    `mapstructure:"server"`
	Database  DatabaseConfig  `mapstructure:"database"`
	Log       LogConfig       `mapstructure:"log"`
	Catalog   CatalogConfig   `mapstructure:"catalog"`
	Deploy    DeployConfig    `mapstructure:"deploy"`
	Runner    RunnerConfig    `mapstructure:"runner"`
	Health    HealthConfig    `mapstructure:"health"`
	Providers ProvidersConfig `mapstructure:"providers"`
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

// Address returns the server address in host:port format.
func (c ServerConfig) Address() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// DatabaseConfig holds deployment registry configuration.
type DatabaseConfig struct {
	DSN string `mapstructure:"dsn"`
}

// LogConfig holds logging configuration.
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// CatalogConfig holds the service catalog override.
type CatalogConfig struct {
	// Path is a YAML file merged over the compiled-in service catalog.
	// Empty means the compiled-in catalog is used as-is.
	Path string `mapstructure:"path"`
}

// DeployConfig bounds the remote deployment steps.
type DeployConfig struct {
	// ConnectTimeout bounds SSH dialing to a target.
	ConnectTimeout time.Duration `mapstructure:"connect_timeout"`

	// CommandTimeout bounds individual remote commands.
	CommandTimeout time.Duration `mapstructure:"command_timeout"`

	// InstallTimeout bounds the Docker install step on bare targets.
	InstallTimeout time.Duration `mapstructure:"install_timeout"`

	// PullTimeout bounds the image pull step.
	PullTimeout time.Duration `mapstructure:"pull_timeout"`

	// DeployTimeout is the whole-invocation watchdog.
	DeployTimeout time.Duration `mapstructure:"deploy_timeout"`

	// VerifySettle is the grace period before the first container check.
	VerifySettle time.Duration `mapstructure:"verify_settle"`

	// VerifyInterval is the delay between container checks.
	VerifyInterval time.Duration `mapstructure:"verify_interval"`

	// VerifyAttempts is the number of container checks before giving up.
	VerifyAttempts int `mapstructure:"verify_attempts"`
}

// RunnerConfig sizes the deployment worker pool.
type RunnerConfig struct {
	// MaxConcurrent is the number of deployments executed in parallel.
	MaxConcurrent int `mapstructure:"max_concurrent"`

	// QueueSize is the capacity of the pending-deployment queue.
	// Submissions beyond it are rejected, not blocked.
	QueueSize int `mapstructure:"queue_size"`
}

// HealthConfig drives the endpoint reconciliation worker, which flips
// registry records whose endpoints stop or resume answering.
type HealthConfig struct {
	Enabled       bool          `mapstructure:"enabled"`
	Interval      time.Duration `mapstructure:"interval"`
	ProbeTimeout  time.Duration `mapstructure:"probe_timeout"`
	MaxConcurrent int           `mapstructure:"max_concurrent"`
}

// ProvidersConfig holds cloud provider credentials. An empty field means
// that provider is not configured and its endpoints return 503.
// Set via environment, e.g. CLARA_PROVIDERS_HETZNER_TOKEN.
type ProvidersConfig struct {
	AWSAccessKeyID     string `mapstructure:"aws_access_key_id"`
	AWSSecretAccessKey string `mapstructure:"aws_secret_access_key"`
	DOToken            string `mapstructure:"do_token"`
	HetznerToken       string `mapstructure:"hetzner_token"`
}

// =============================================================================
// Config Loading
// =============================================================================

// LoadConfig loads configuration from file and environment.
func LoadConfig(configPath string) (*Config, error) {
	v := viper.New()

	// Set defaults
	v.SetDefault("data_dir", "")
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8090)
	v.SetDefault("server.read_timeout", "30s")
	v.SetDefault("server.write_timeout", "30s")
	v.SetDefault("server.shutdown_timeout", "30s")
	v.SetDefault("database.dsn", defaultDSN)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("catalog.path", "")

	// Remote step timeouts
	v.SetDefault("deploy.connect_timeout", "30s")
	v.SetDefault("deploy.command_timeout", "5m")
	v.SetDefault("deploy.install_timeout", "8m")
	v.SetDefault("deploy.pull_timeout", "10m")
	v.SetDefault("deploy.deploy_timeout", "10m")
	v.SetDefault("deploy.verify_settle", "2s")
	v.SetDefault("deploy.verify_interval", "1s")
	v.SetDefault("deploy.verify_attempts", 4)

	// Worker pool defaults
	v.SetDefault("runner.max_concurrent", 4)
	v.SetDefault("runner.queue_size", 64)

	// Endpoint reconciliation defaults
	v.SetDefault("health.enabled", true)
	v.SetDefault("health.interval", "60s")
	v.SetDefault("health.probe_timeout", "10s")
	v.SetDefault("health.max_concurrent", 5)

	// Provider credentials (set via environment)
	v.SetDefault("providers.aws_access_key_id", "")
	v.SetDefault("providers.aws_secret_access_key", "")
	v.SetDefault("providers.do_token", "")
	v.SetDefault("providers.hetzner_token", "")

	// Load from file if provided
	if configPath != "" {
		v.SetConfigFile(configPath)
		if err := v.ReadInConfig(); err != nil {
			// Only return error if file was explicitly specified and is invalid
			if _, ok := err.(viper.ConfigParseError); ok {
				return nil, fmt.Errorf("failed to parse config file: %w", err)
			}
			// File not found is OK, we'll use defaults
		}
	}

	// Enable environment variable overrides
	v.SetEnvPrefix("CLARA")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// data_dir relocates the registry unless an explicit DSN wins
	if dataDir := v.GetString("data_dir"); dataDir != "" {
		if v.GetString("database.dsn") == defaultDSN {
			v.Set("database.dsn", filepath.Join(dataDir, "clara-deployd.db"))
		}
	}

	// Unmarshal config
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return &cfg, nil
}

// =============================================================================
// Logger Setup
// =============================================================================

// SetupLogger creates a logger with the configured level and format.
func SetupLogger(cfg *Config) *slog.Logger {
	var level slog.Level
	switch strings.ToLower(cfg.Log.Level) {
	case "debug":
		level = slog.LevelDebug
	case "info":
		level = slog.LevelInfo
	case "warn", "warning":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{
		Level: level,
	}

	var handler slog.Handler
	if strings.ToLower(cfg.Log.Format) == "text" {
		handler = slog.NewTextHandler(os.Stdout, opts)
	} else {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	}

	return slog.New(handler)
}
