package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

const (
	DefaultRelayListen   = "127.0.0.1:7071"
	DefaultRelayURL      = "ws://127.0.0.1:7071/relay"
	DefaultIdleThreshold = 60 * time.Second
)

type Config struct {
	LogLevel      string        `yaml:"log_level" validate:"oneof=trace debug info warn error"`
	LogFormat     string        `yaml:"log_format" validate:"oneof=json console"`
	RelayListen   string        `yaml:"relay_listen" validate:"omitempty,hostname_port"`
	RelayURL      string        `yaml:"relay_url" validate:"omitempty,url"`
	RelayToken    string        `yaml:"relay_token"`
	MetricsListen string        `yaml:"metrics_listen" validate:"omitempty,hostname_port"`
	IdleThreshold time.Duration `yaml:"idle_threshold" validate:"min=1s"`
	// UpdateURL is polled for the latest release. Empty disables the check.
	UpdateURL string `yaml:"update_url" validate:"omitempty,url"`
}

// Flags carries command-line overrides. Zero values leave the lower
// layers untouched.
type Flags struct {
	LogLevel      string
	LogFormat     string
	RelayListen   string
	RelayURL      string
	RelayToken    string
	MetricsListen string
	IdleThreshold time.Duration
}

var validate = validator.New(validator.WithRequiredStructEnabled())

func defaults() *Config {
	return &Config{
		LogLevel:      "info",
		LogFormat:     "console",
		RelayListen:   DefaultRelayListen,
		RelayURL:      DefaultRelayURL,
		IdleThreshold: DefaultIdleThreshold,
	}
}

// Load resolves configuration from flags > env > config file > defaults.
func Load(flags Flags) (*Config, error) {
	cfg := defaults()

	// 1. Config file over defaults
	if cfgPath := configFilePath(); cfgPath != "" {
		data, err := os.ReadFile(cfgPath)
		if err != nil {
			return nil, fmt.Errorf("failed to read %s: %w", cfgPath, err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse %s: %w", cfgPath, err)
		}
	}

	// 2. Environment variables override config file
	if err := applyEnv(cfg); err != nil {
		return nil, err
	}

	// 3. CLI flags override everything
	override(&cfg.LogLevel, flags.LogLevel)
	override(&cfg.LogFormat, flags.LogFormat)
	override(&cfg.RelayListen, flags.RelayListen)
	override(&cfg.RelayURL, flags.RelayURL)
	override(&cfg.RelayToken, flags.RelayToken)
	override(&cfg.MetricsListen, flags.MetricsListen)
	if flags.IdleThreshold != 0 {
		cfg.IdleThreshold = flags.IdleThreshold
	}

	cfg.LogLevel = strings.ToLower(cfg.LogLevel)
	if err := validate.Struct(cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", describe(err))
	}
	return cfg, nil
}

func applyEnv(cfg *Config) error {
	override(&cfg.LogLevel, os.Getenv("POWERWATCH_LOG_LEVEL"))
	override(&cfg.LogFormat, os.Getenv("POWERWATCH_LOG_FORMAT"))
	override(&cfg.RelayListen, os.Getenv("POWERWATCH_RELAY_LISTEN"))
	override(&cfg.RelayURL, os.Getenv("POWERWATCH_RELAY_URL"))
	override(&cfg.RelayToken, os.Getenv("POWERWATCH_RELAY_TOKEN"))
	override(&cfg.MetricsListen, os.Getenv("POWERWATCH_METRICS_LISTEN"))
	override(&cfg.UpdateURL, os.Getenv("POWERWATCH_UPDATE_URL"))

	if v := os.Getenv("POWERWATCH_IDLE_THRESHOLD"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("POWERWATCH_IDLE_THRESHOLD: %w", err)
		}
		cfg.IdleThreshold = d
	}
	return nil
}

func override(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}

// describe turns validator output into one line per offending key.
func describe(err error) error {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		msgs = append(msgs, fmt.Sprintf("%s failed %q (got %v)", fe.Field(), fe.Tag(), fe.Value()))
	}
	return errors.New(strings.Join(msgs, "; "))
}

func configFilePath() string {
	if p := os.Getenv("POWERWATCH_CONFIG"); p != "" {
		return p
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	p := filepath.Join(home, ".powerwatch", "config.yaml")
	if _, err := os.Stat(p); err == nil {
		return p
	}
	return ""
}
