package config

import (
	"fmt"
	"maps"
	"os"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"

	"github.com/eugenenazirov/bucket-config-server/internal/environment"
)

const (
	defaultPort            = "8888"
	defaultLogLevel        = "info"
	defaultRateLimitRPS    = 25.0
	defaultRateLimitBurst  = 50
	defaultApplicationName = "application"
	defaultProfileName     = "default"
	defaultBackend         = BackendS3
)

// Supported storage backends.
const (
	BackendS3   = "s3"
	BackendGCS  = "gcs"
	BackendFile = "file"
)

// Config aggregates runtime configuration resolved from multiple sources.
// Precedence: CLI flags > YAML config > Environment variables > Defaults
type Config struct {
	Port                 string
	LogLevel             string
	ShutdownGracePeriod  time.Duration
	ReadHeaderTimeout    time.Duration
	WriteTimeout         time.Duration
	IdleTimeout          time.Duration
	EnableRequestLogging bool
	RateLimitRPS         float64
	RateLimitBurst       int

	Server  ServerProperties
	Storage StorageConfig
}

// ServerProperties holds the lookup defaults and the overrides merged into
// every environment.
type ServerProperties struct {
	DefaultApplication string
	DefaultProfile     string
	DefaultLabel       string
	Overrides          map[string]string
	Order              int
}

// StorageConfig selects and configures the object storage backend.
type StorageConfig struct {
	Backend         string
	Bucket          string
	Prefix          string
	Region          string
	Endpoint        string
	UsePathStyle    bool
	AccessKeyID     string
	SecretAccessKey string
	CredentialsFile string
	Root            string
}

// yamlConfig represents the YAML configuration file structure.
type yamlConfig struct {
	Port                 string        `yaml:"port"`
	LogLevel             string        `yaml:"log_level"`
	ShutdownGracePeriod  string        `yaml:"shutdown_grace_period"`
	ReadHeaderTimeout    string        `yaml:"read_header_timeout"`
	WriteTimeout         string        `yaml:"write_timeout"`
	IdleTimeout          string        `yaml:"idle_timeout"`
	EnableRequestLogging *bool         `yaml:"enable_request_logging"`
	RateLimit            yamlRateLimit `yaml:"rate_limit"`
	Server               yamlServer    `yaml:"server"`
	Storage              yamlStorage   `yaml:"storage"`
}

// yamlRateLimit represents the rate limit section in YAML.
type yamlRateLimit struct {
	RPS   *float64 `yaml:"rps"`
	Burst *int     `yaml:"burst"`
}

type yamlServer struct {
	DefaultApplication string            `yaml:"default_application"`
	DefaultProfile     string            `yaml:"default_profile"`
	DefaultLabel       string            `yaml:"default_label"`
	Overrides          map[string]string `yaml:"overrides"`
	Order              *int              `yaml:"order"`
}

type yamlStorage struct {
	Backend         string `yaml:"backend"`
	Bucket          string `yaml:"bucket"`
	Prefix          string `yaml:"prefix"`
	Region          string `yaml:"region"`
	Endpoint        string `yaml:"endpoint"`
	UsePathStyle    *bool  `yaml:"use_path_style"`
	AccessKeyID     string `yaml:"access_key_id"`
	SecretAccessKey string `yaml:"secret_access_key"`
	CredentialsFile string `yaml:"credentials_file"`
	Root            string `yaml:"root"`
}

// envConfig lists the environment variables understood by the service.
type envConfig struct {
	Port               string            `env:"PORT"`
	LogLevel           string            `env:"LOG_LEVEL"`
	RateLimitRPS       *float64          `env:"RATE_LIMIT_RPS"`
	RateLimitBurst     *int              `env:"RATE_LIMIT_BURST"`
	DefaultApplication string            `env:"CONFIG_DEFAULT_APPLICATION"`
	DefaultProfile     string            `env:"CONFIG_DEFAULT_PROFILE"`
	DefaultLabel       string            `env:"CONFIG_DEFAULT_LABEL"`
	Overrides          map[string]string `env:"CONFIG_OVERRIDES" envKeyValSeparator:"="`
	Backend            string            `env:"STORAGE_BACKEND"`
	Bucket             string            `env:"STORAGE_BUCKET"`
	Prefix             string            `env:"STORAGE_PREFIX"`
	Region             string            `env:"AWS_REGION"`
	Endpoint           string            `env:"STORAGE_ENDPOINT"`
	UsePathStyle       *bool             `env:"STORAGE_USE_PATH_STYLE"`
	Root               string            `env:"STORAGE_ROOT"`
	CredentialsFile    string            `env:"GOOGLE_APPLICATION_CREDENTIALS"`
}

// CLIOverrides holds command-line flag overrides.
type CLIOverrides struct {
	ConfigFile     string
	Port           *string
	LogLevel       *string
	Backend        *string
	Bucket         *string
	RateLimitRPS   *float64
	RateLimitBurst *int
	Overrides      map[string]string
}

// Load extracts configuration from multiple sources with precedence:
// CLI flags > YAML config > Environment variables > Defaults
func Load(overrides *CLIOverrides) (Config, error) {
	cfg := defaultConfig()

	// Apply environment variables
	if err := applyEnvConfig(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse environment: %w", err)
	}

	// Load from YAML file if specified (overrides environment)
	if overrides != nil && overrides.ConfigFile != "" {
		yamlCfg, err := loadFromFile(overrides.ConfigFile)
		if err != nil {
			return Config{}, fmt.Errorf("load YAML config: %w", err)
		}
		if err := applyYAMLConfig(&cfg, yamlCfg); err != nil {
			return Config{}, fmt.Errorf("apply YAML config: %w", err)
		}
	}

	// Apply CLI overrides (highest precedence)
	if overrides != nil {
		applyCLIOverrides(&cfg, overrides)
	}

	// Validate final configuration
	if err := validateConfig(cfg); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

// defaultConfig returns a Config with default values.
func defaultConfig() Config {
	return Config{
		Port:                 defaultPort,
		LogLevel:             defaultLogLevel,
		ShutdownGracePeriod:  10 * time.Second,
		ReadHeaderTimeout:    5 * time.Second,
		WriteTimeout:         15 * time.Second,
		IdleTimeout:          60 * time.Second,
		EnableRequestLogging: true,
		RateLimitRPS:         defaultRateLimitRPS,
		RateLimitBurst:       defaultRateLimitBurst,
		Server: ServerProperties{
			DefaultApplication: defaultApplicationName,
			DefaultProfile:     defaultProfileName,
			Overrides:          map[string]string{},
			Order:              environment.LowestPrecedence,
		},
		Storage: StorageConfig{
			Backend: defaultBackend,
		},
	}
}

// loadFromFile loads configuration from a YAML file.
func loadFromFile(path string) (*yamlConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read file: %w", err)
	}

	var yamlCfg yamlConfig
	if err := yaml.Unmarshal(data, &yamlCfg); err != nil {
		return nil, fmt.Errorf("parse YAML: %w", err)
	}

	return &yamlCfg, nil
}

// applyYAMLConfig applies YAML configuration to the Config struct.
func applyYAMLConfig(cfg *Config, yamlCfg *yamlConfig) error {
	setString(&cfg.Port, yamlCfg.Port)
	setString(&cfg.LogLevel, yamlCfg.LogLevel)

	durations := []struct {
		name string
		raw  string
		dst  *time.Duration
	}{
		{name: "shutdown_grace_period", raw: yamlCfg.ShutdownGracePeriod, dst: &cfg.ShutdownGracePeriod},
		{name: "read_header_timeout", raw: yamlCfg.ReadHeaderTimeout, dst: &cfg.ReadHeaderTimeout},
		{name: "write_timeout", raw: yamlCfg.WriteTimeout, dst: &cfg.WriteTimeout},
		{name: "idle_timeout", raw: yamlCfg.IdleTimeout, dst: &cfg.IdleTimeout},
	}
	for _, d := range durations {
		if d.raw == "" {
			continue
		}
		parsed, err := time.ParseDuration(d.raw)
		if err != nil {
			return fmt.Errorf("%s: %w", d.name, err)
		}
		*d.dst = parsed
	}

	if yamlCfg.EnableRequestLogging != nil {
		cfg.EnableRequestLogging = *yamlCfg.EnableRequestLogging
	}
	if yamlCfg.RateLimit.RPS != nil {
		cfg.RateLimitRPS = *yamlCfg.RateLimit.RPS
	}
	if yamlCfg.RateLimit.Burst != nil {
		cfg.RateLimitBurst = *yamlCfg.RateLimit.Burst
	}

	server := yamlCfg.Server
	setString(&cfg.Server.DefaultApplication, server.DefaultApplication)
	setString(&cfg.Server.DefaultProfile, server.DefaultProfile)
	setString(&cfg.Server.DefaultLabel, server.DefaultLabel)
	maps.Copy(cfg.Server.Overrides, server.Overrides)
	if server.Order != nil {
		cfg.Server.Order = *server.Order
	}

	storage := yamlCfg.Storage
	setString(&cfg.Storage.Backend, storage.Backend)
	setString(&cfg.Storage.Bucket, storage.Bucket)
	setString(&cfg.Storage.Prefix, storage.Prefix)
	setString(&cfg.Storage.Region, storage.Region)
	setString(&cfg.Storage.Endpoint, storage.Endpoint)
	setString(&cfg.Storage.AccessKeyID, storage.AccessKeyID)
	setString(&cfg.Storage.SecretAccessKey, storage.SecretAccessKey)
	setString(&cfg.Storage.CredentialsFile, storage.CredentialsFile)
	setString(&cfg.Storage.Root, storage.Root)
	if storage.UsePathStyle != nil {
		cfg.Storage.UsePathStyle = *storage.UsePathStyle
	}

	return nil
}

// applyEnvConfig applies environment variable configuration.
func applyEnvConfig(cfg *Config) error {
	var envCfg envConfig
	if err := env.Parse(&envCfg); err != nil {
		return err
	}

	setString(&cfg.Port, envCfg.Port)
	setString(&cfg.LogLevel, envCfg.LogLevel)
	if envCfg.RateLimitRPS != nil {
		cfg.RateLimitRPS = *envCfg.RateLimitRPS
	}
	if envCfg.RateLimitBurst != nil {
		cfg.RateLimitBurst = *envCfg.RateLimitBurst
	}

	setString(&cfg.Server.DefaultApplication, envCfg.DefaultApplication)
	setString(&cfg.Server.DefaultProfile, envCfg.DefaultProfile)
	setString(&cfg.Server.DefaultLabel, envCfg.DefaultLabel)
	maps.Copy(cfg.Server.Overrides, envCfg.Overrides)

	setString(&cfg.Storage.Backend, envCfg.Backend)
	setString(&cfg.Storage.Bucket, envCfg.Bucket)
	setString(&cfg.Storage.Prefix, envCfg.Prefix)
	setString(&cfg.Storage.Region, envCfg.Region)
	setString(&cfg.Storage.Endpoint, envCfg.Endpoint)
	setString(&cfg.Storage.Root, envCfg.Root)
	setString(&cfg.Storage.CredentialsFile, envCfg.CredentialsFile)
	if envCfg.UsePathStyle != nil {
		cfg.Storage.UsePathStyle = *envCfg.UsePathStyle
	}

	return nil
}

// applyCLIOverrides applies command-line flag overrides.
func applyCLIOverrides(cfg *Config, overrides *CLIOverrides) {
	if overrides.Port != nil {
		setString(&cfg.Port, *overrides.Port)
	}
	if overrides.LogLevel != nil {
		setString(&cfg.LogLevel, *overrides.LogLevel)
	}
	if overrides.Backend != nil {
		setString(&cfg.Storage.Backend, *overrides.Backend)
	}
	if overrides.Bucket != nil {
		setString(&cfg.Storage.Bucket, *overrides.Bucket)
	}
	if overrides.RateLimitRPS != nil && *overrides.RateLimitRPS >= 0 {
		cfg.RateLimitRPS = *overrides.RateLimitRPS
	}
	if overrides.RateLimitBurst != nil && *overrides.RateLimitBurst >= 0 {
		cfg.RateLimitBurst = *overrides.RateLimitBurst
	}
	maps.Copy(cfg.Server.Overrides, overrides.Overrides)
}

// validateConfig validates the final configuration.
func validateConfig(cfg Config) error {
	if cfg.RateLimitRPS < 0 {
		return fmt.Errorf("RATE_LIMIT_RPS must be >= 0")
	}
	if cfg.RateLimitBurst < 0 {
		return fmt.Errorf("RATE_LIMIT_BURST must be >= 0")
	}
	if strings.TrimSpace(cfg.Server.DefaultApplication) == "" {
		return fmt.Errorf("default application name cannot be empty")
	}
	if strings.TrimSpace(cfg.Server.DefaultProfile) == "" {
		return fmt.Errorf("default profile cannot be empty")
	}

	switch cfg.Storage.Backend {
	case BackendS3, BackendGCS:
		if cfg.Storage.Bucket == "" {
			return fmt.Errorf("storage bucket is required for the %s backend", cfg.Storage.Backend)
		}
	case BackendFile:
		if cfg.Storage.Root == "" {
			return fmt.Errorf("storage root is required for the file backend")
		}
	default:
		return fmt.Errorf("unknown storage backend %q", cfg.Storage.Backend)
	}
	return nil
}

func setString(dst *string, value string) {
	if value = strings.TrimSpace(value); value != "" {
		*dst = value
	}
}
