package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/foxess-cli/foxess/pkg/foxess"
	"github.com/foxess-cli/foxess/pkg/format"
)

const (
	// PathEnv names the environment variable holding the config file path.
	PathEnv = "FOXESS_CONFIG"

	apiKeyEnv   = "FOXESS_API_KEY"
	baseURLEnv  = "FOXESS_BASE_URL"
	timeoutEnv  = "FOXESS_TIMEOUT"
	decimalsEnv = "FOXESS_DECIMALS"
)

// Config holds settings that can come from a YAML file or the environment.
type Config struct {
	APIKey   string        `yaml:"apiKey"`
	BaseURL  string        `yaml:"baseURL"`
	Timeout  time.Duration `yaml:"-"`
	Decimals int           `yaml:"decimals"`
}

type fileConfig struct {
	Config  `yaml:",inline"`
	Timeout string `yaml:"timeout"`
}

// Default returns the built-in defaults.
func Default() Config {
	return Config{
		BaseURL:  foxess.DefaultBaseURL,
		Timeout:  foxess.DefaultTimeout,
		Decimals: format.DefaultDecimals,
	}
}

// Load reads the optional YAML file at path on top of the defaults and then
// applies environment overrides. Empty environment variables are ignored. An empty path falls back to FOXESS_CONFIG;
// if neither is set no file is read.
func Load(path string) (Config, error) {
	cfg := Default()

	if path == "" {
		path = os.Getenv(PathEnv)
	}
	if path != "" {
		if err := loadFromFile(path, &cfg); err != nil {
			return Config{}, err
		}
	}

	if err := populateFromEnv(&cfg); err != nil {
		return Config{}, err
	}
	if cfg.Decimals < 0 {
		return Config{}, fmt.Errorf("config: decimals must not be negative, got %d", cfg.Decimals)
	}
	return cfg, nil
}

func loadFromFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("config: read file: %w", err)
	}

	fc := fileConfig{Config: *cfg}
	if err := yaml.Unmarshal(data, &fc); err != nil {
		return fmt.Errorf("config: decode yaml: %w", err)
	}
	if fc.Timeout != "" {
		d, err := time.ParseDuration(fc.Timeout)
		if err != nil {
			return fmt.Errorf("config: parse timeout: %w", err)
		}
		fc.Config.Timeout = d
	}
	*cfg = fc.Config
	return nil
}

func populateFromEnv(cfg *Config) error {
	if v := os.Getenv(apiKeyEnv); v != "" {
		cfg.APIKey = v
	}
	if v := os.Getenv(baseURLEnv); v != "" {
		cfg.BaseURL = v
	}
	if v := os.Getenv(timeoutEnv); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("config: parse %s: %w", timeoutEnv, err)
		}
		cfg.Timeout = d
	}
	if v := os.Getenv(decimalsEnv); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("config: parse %s: %w", decimalsEnv, err)
		}
		cfg.Decimals = n
	}
	return nil
}
