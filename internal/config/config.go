// Package config provides configuration loading, defaults, and validation for
// the node normalization service.
package config

import (
	"fmt"
	"time"

	"github.com/biograph-io/nodenorm/internal/infrastructure/monitoring/logging"
)

// Config is the top-level service configuration.
type Config struct {
	Server       ServerConfig   `mapstructure:"server"`
	Log          logging.Config `mapstructure:"log"`
	Stores       StoresConfig   `mapstructure:"stores"`
	Labels       LabelsConfig   `mapstructure:"labels"`
	Ingest       IngestConfig   `mapstructure:"ingest"`
	Version      string         `mapstructure:"version"`
	BabelVersion string         `mapstructure:"babel_version"`
}

// ServerConfig controls the HTTP listener.
type ServerConfig struct {
	Port            int           `mapstructure:"port"`
	Root            string        `mapstructure:"root"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

// StoresConfig controls the backing key-value stores.
type StoresConfig struct {
	// ConfigFile is the path to the store-topology YAML mapping each logical
	// store name to a standalone or cluster descriptor.
	ConfigFile string `mapstructure:"config_file"`

	// Host and Port, when set, override the host/port of every standalone
	// descriptor in ConfigFile. Populated from REDIS_HOST / REDIS_PORT.
	Host string `mapstructure:"host"`
	Port string `mapstructure:"port"`

	// BatchSize is the multi-get chunk ceiling. Populated from EQ_BATCH_SIZE.
	BatchSize int `mapstructure:"batch_size"`

	// BlockSize is the ingestion pipeline flush threshold, in operations.
	BlockSize int `mapstructure:"block_size"`

	// OpTimeout bounds each store round-trip.
	OpTimeout time.Duration `mapstructure:"op_timeout"`
}

// LabelsConfig controls preferred-label selection. Loaded from a JSON document
// at startup; the policy itself is pure.
type LabelsConfig struct {
	// PolicyFile is the path to the JSON document carrying
	// preferred_name_boost_prefixes and demote_labels_longer_than.
	PolicyFile string `mapstructure:"policy_file"`
}

// IngestConfig controls compendium/conflation loading.
type IngestConfig struct {
	CompendiumDirectory string              `mapstructure:"compendium_directory"`
	ConflationDirectory string              `mapstructure:"conflation_directory"`
	DataFiles           []string            `mapstructure:"data_files"`
	Conflations         []ConflationSource  `mapstructure:"conflations"`
	SchemaFile          string              `mapstructure:"schema_file"`
	Object              ObjectStorageConfig `mapstructure:"object_storage"`
}

// ConflationSource names a conflation file and the store it loads into.
type ConflationSource struct {
	File  string `mapstructure:"file"`
	Store string `mapstructure:"store"`
}

// ObjectStorageConfig describes an optional S3-compatible bucket holding
// compendium files. When Endpoint is empty, ingestion reads local disk only.
type ObjectStorageConfig struct {
	Endpoint  string `mapstructure:"endpoint"`
	AccessKey string `mapstructure:"access_key"`
	SecretKey string `mapstructure:"secret_key"`
	Bucket    string `mapstructure:"bucket"`
	UseSSL    bool   `mapstructure:"use_ssl"`
}

// Validate checks invariants that would otherwise fail at first use.
func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port %d out of range", c.Server.Port)
	}
	if c.Stores.BatchSize <= 0 {
		return fmt.Errorf("stores.batch_size must be positive, got %d", c.Stores.BatchSize)
	}
	if c.Stores.BlockSize <= 0 {
		return fmt.Errorf("stores.block_size must be positive, got %d", c.Stores.BlockSize)
	}
	if c.Stores.ConfigFile == "" {
		return fmt.Errorf("stores.config_file is required")
	}
	return nil
}
