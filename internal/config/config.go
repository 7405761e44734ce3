package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// EnvPrefix prefixes every environment variable read by this package and
// by the environment secret source.
const EnvPrefix = "CHAINCONF_"

// DefaultSecretsFile is the secrets path used when none is configured. Only
// this path may be absent; an explicitly configured one must exist.
const DefaultSecretsFile = "secrets.json"

const (
	defaultPort            = "8080"
	defaultDefinitionsFile = "networks.yaml"
	defaultLogLevel        = "info"
	defaultRateLimitRPS    = 25.0
	defaultRateLimitBurst  = 50
	defaultVerifyRPS       = 2.0
	defaultVerifyTimeout   = 10 * time.Second
)

// Config aggregates runtime configuration resolved from multiple sources.
// Precedence: CLI flags > Environment variables > YAML config > Defaults
type Config struct {
	DefinitionsFile string
	SecretsFile     string
	IdentityFile    string
	// SecretsPassphrase unlocks a passphrase-encrypted secrets file. It is
	// only ever read from the environment.
	SecretsPassphrase string
	DefaultNetwork    string
	LogLevel          string

	Port                 string
	ShutdownGracePeriod  time.Duration
	ReadHeaderTimeout    time.Duration
	WriteTimeout         time.Duration
	IdleTimeout          time.Duration
	EnableRequestLogging bool
	RateLimitRPS         float64
	RateLimitBurst       int

	VerifyRPS     float64
	VerifyTimeout time.Duration
}

// yamlConfig represents the YAML configuration file structure.
type yamlConfig struct {
	DefinitionsFile      string        `yaml:"definitions_file"`
	SecretsFile          string        `yaml:"secrets_file"`
	IdentityFile         string        `yaml:"identity_file"`
	DefaultNetwork       string        `yaml:"default_network"`
	LogLevel             string        `yaml:"log_level"`
	Port                 string        `yaml:"port"`
	ShutdownGracePeriod  string        `yaml:"shutdown_grace_period"`
	ReadHeaderTimeout    string        `yaml:"read_header_timeout"`
	WriteTimeout         string        `yaml:"write_timeout"`
	IdleTimeout          string        `yaml:"idle_timeout"`
	EnableRequestLogging *bool         `yaml:"enable_request_logging"`
	RateLimit            yamlRateLimit `yaml:"rate_limit"`
	Verify               yamlVerify    `yaml:"verify"`
}

// yamlRateLimit represents the rate limit section in YAML.
type yamlRateLimit struct {
	RPS   *float64 `yaml:"rps"`
	Burst *int     `yaml:"burst"`
}

// yamlVerify represents the chain-ID probe section in YAML.
type yamlVerify struct {
	RPS     *float64 `yaml:"rps"`
	Timeout string   `yaml:"timeout"`
}

// CLIOverrides holds command-line flag overrides.
type CLIOverrides struct {
	ConfigFile      string
	DefinitionsFile *string
	SecretsFile     *string
	IdentityFile    *string
	DefaultNetwork  *string
	LogLevel        *string
	Port            *string
	RateLimitRPS    *float64
	RateLimitBurst  *int
}

// Load extracts configuration from multiple sources with precedence:
// CLI flags > Environment variables > YAML config > Defaults
func Load(overrides *CLIOverrides) (Config, error) {
	cfg := defaultConfig()

	if overrides != nil && overrides.ConfigFile != "" {
		yamlCfg, err := loadFromFile(overrides.ConfigFile)
		if err != nil {
			return Config{}, fmt.Errorf("load YAML config: %w", err)
		}
		if err := applyYAMLConfig(&cfg, yamlCfg); err != nil {
			return Config{}, fmt.Errorf("apply YAML config: %w", err)
		}
	}

	// Apply environment variables (override YAML)
	applyEnvConfig(&cfg)

	// Apply CLI overrides (highest precedence)
	if overrides != nil {
		applyCLIOverrides(&cfg, overrides)
	}

	if err := validateConfig(cfg); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

// defaultConfig returns a Config with default values.
func defaultConfig() Config {
	return Config{
		DefinitionsFile:      defaultDefinitionsFile,
		SecretsFile:          DefaultSecretsFile,
		LogLevel:             defaultLogLevel,
		Port:                 defaultPort,
		ShutdownGracePeriod:  10 * time.Second,
		ReadHeaderTimeout:    5 * time.Second,
		WriteTimeout:         15 * time.Second,
		IdleTimeout:          60 * time.Second,
		EnableRequestLogging: true,
		RateLimitRPS:         defaultRateLimitRPS,
		RateLimitBurst:       defaultRateLimitBurst,
		VerifyRPS:            defaultVerifyRPS,
		VerifyTimeout:        defaultVerifyTimeout,
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
	setString(&cfg.DefinitionsFile, yamlCfg.DefinitionsFile)
	setString(&cfg.SecretsFile, yamlCfg.SecretsFile)
	setString(&cfg.IdentityFile, yamlCfg.IdentityFile)
	setString(&cfg.DefaultNetwork, yamlCfg.DefaultNetwork)
	setString(&cfg.LogLevel, yamlCfg.LogLevel)
	setString(&cfg.Port, yamlCfg.Port)

	durations := []struct {
		name string
		raw  string
		dst  *time.Duration
	}{
		{"shutdown_grace_period", yamlCfg.ShutdownGracePeriod, &cfg.ShutdownGracePeriod},
		{"read_header_timeout", yamlCfg.ReadHeaderTimeout, &cfg.ReadHeaderTimeout},
		{"write_timeout", yamlCfg.WriteTimeout, &cfg.WriteTimeout},
		{"idle_timeout", yamlCfg.IdleTimeout, &cfg.IdleTimeout},
		{"verify.timeout", yamlCfg.Verify.Timeout, &cfg.VerifyTimeout},
	}
	for _, d := range durations {
		if d.raw == "" {
			continue
		}
		value, err := time.ParseDuration(d.raw)
		if err != nil {
			return fmt.Errorf("%s: %w", d.name, err)
		}
		*d.dst = value
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

	if yamlCfg.Verify.RPS != nil {
		cfg.VerifyRPS = *yamlCfg.Verify.RPS
	}

	return nil
}

// applyEnvConfig applies environment variable configuration.
func applyEnvConfig(cfg *Config) {
	if port := strings.TrimSpace(os.Getenv("PORT")); port != "" {
		cfg.Port = port
	}

	setString(&cfg.Port, env("PORT"))
	setString(&cfg.DefinitionsFile, env("DEFINITIONS_FILE"))
	setString(&cfg.SecretsFile, env("SECRETS_FILE"))
	setString(&cfg.IdentityFile, env("IDENTITY_FILE"))
	setString(&cfg.DefaultNetwork, env("NETWORK"))
	setString(&cfg.LogLevel, env("LOG_LEVEL"))

	// Not trimmed: whitespace may be part of the passphrase.
	cfg.SecretsPassphrase = os.Getenv(EnvPrefix + "SECRETS_PASSPHRASE")

	if rps := env("RATE_LIMIT_RPS"); rps != "" {
		if value, err := strconv.ParseFloat(rps, 64); err == nil && value >= 0 {
			cfg.RateLimitRPS = value
		}
	}

	if burst := env("RATE_LIMIT_BURST"); burst != "" {
		if value, err := strconv.Atoi(burst); err == nil && value >= 0 {
			cfg.RateLimitBurst = value
		}
	}

	if rps := env("VERIFY_RPS"); rps != "" {
		if value, err := strconv.ParseFloat(rps, 64); err == nil && value >= 0 {
			cfg.VerifyRPS = value
		}
	}
}

// applyCLIOverrides applies command-line flag overrides.
func applyCLIOverrides(cfg *Config, overrides *CLIOverrides) {
	setStringPtr(&cfg.DefinitionsFile, overrides.DefinitionsFile)
	setStringPtr(&cfg.SecretsFile, overrides.SecretsFile)
	setStringPtr(&cfg.IdentityFile, overrides.IdentityFile)
	setStringPtr(&cfg.DefaultNetwork, overrides.DefaultNetwork)
	setStringPtr(&cfg.LogLevel, overrides.LogLevel)
	setStringPtr(&cfg.Port, overrides.Port)

	if overrides.RateLimitRPS != nil && *overrides.RateLimitRPS >= 0 {
		cfg.RateLimitRPS = *overrides.RateLimitRPS
	}

	if overrides.RateLimitBurst != nil && *overrides.RateLimitBurst >= 0 {
		cfg.RateLimitBurst = *overrides.RateLimitBurst
	}
}

// validateConfig validates the final configuration.
func validateConfig(cfg Config) error {
	if cfg.RateLimitRPS < 0 {
		return fmt.Errorf("rate limit rps must be >= 0")
	}
	if cfg.RateLimitBurst < 0 {
		return fmt.Errorf("rate limit burst must be >= 0")
	}
	if cfg.VerifyRPS < 0 {
		return fmt.Errorf("verify rps must be >= 0")
	}
	if cfg.VerifyTimeout <= 0 {
		return fmt.Errorf("verify timeout must be positive")
	}
	if strings.TrimSpace(cfg.DefinitionsFile) == "" {
		return fmt.Errorf("definitions file cannot be empty")
	}
	return nil
}

func env(name string) string {
	return strings.TrimSpace(os.Getenv(EnvPrefix + name))
}

func setString(dst *string, value string) {
	if value = strings.TrimSpace(value); value != "" {
		*dst = value
	}
}

func setStringPtr(dst *string, value *string) {
	if value != nil {
		setString(dst, *value)
	}
}
