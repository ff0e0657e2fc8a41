package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/viper"
)

// envPrefix is the environment variable prefix for all service settings, so
// that nested keys like "stores.batch_size" resolve to
// NODENORM_STORES_BATCH_SIZE.
const envPrefix = "NODENORM"

func newViper() *viper.Viper {
	v := viper.New()
	v.SetConfigType("yaml")
	v.SetEnvPrefix(envPrefix)
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	return v
}

// Load reads the YAML file at configPath, merges NODENORM_* environment
// overrides and the legacy environment names, applies defaults, and validates
// the result.
func Load(configPath string) (*Config, error) {
	v := newViper()
	v.SetConfigFile(configPath)

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("config: failed to read config file %q: %w", configPath, err)
	}

	return finalize(v)
}

// LoadFromEnv builds a Config entirely from environment variables and
// defaults, for containerised deployments with no config file.
func LoadFromEnv() (*Config, error) {
	return finalize(newViper())
}

func finalize(v *viper.Viper) (*Config, error) {
	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("config: failed to unmarshal configuration: %w", err)
	}

	applyLegacyEnv(cfg)
	ApplyDefaults(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config: validation failed: %w", err)
	}
	return cfg, nil
}

// applyLegacyEnv honors the environment names used by existing deployments,
// which predate the NODENORM_ prefix scheme.
func applyLegacyEnv(cfg *Config) {
	if host := os.Getenv("REDIS_HOST"); host != "" {
		cfg.Stores.Host = host
	}
	if port := os.Getenv("REDIS_PORT"); port != "" {
		cfg.Stores.Port = port
	}
	if bs := os.Getenv("EQ_BATCH_SIZE"); bs != "" {
		if n, err := strconv.Atoi(bs); err == nil && n > 0 {
			cfg.Stores.BatchSize = n
		}
	}
	if bv := os.Getenv("BABEL_VERSION"); bv != "" {
		cfg.BabelVersion = bv
	}
	if root := os.Getenv("SERVER_ROOT"); root != "" {
		cfg.Server.Root = root
	}
}
