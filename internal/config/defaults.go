package config

import "time"

// ApplyDefaults fills unset fields with service defaults.
func ApplyDefaults(cfg *Config) {
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Server.ReadTimeout == 0 {
		cfg.Server.ReadTimeout = 60 * time.Second
	}
	if cfg.Server.WriteTimeout == 0 {
		cfg.Server.WriteTimeout = 120 * time.Second
	}
	if cfg.Server.ShutdownTimeout == 0 {
		cfg.Server.ShutdownTimeout = 30 * time.Second
	}
	if cfg.Stores.ConfigFile == "" {
		cfg.Stores.ConfigFile = "redis_config.yaml"
	}
	if cfg.Stores.BatchSize == 0 {
		cfg.Stores.BatchSize = 2500
	}
	if cfg.Stores.BlockSize == 0 {
		cfg.Stores.BlockSize = 1000
	}
	if cfg.Stores.OpTimeout == 0 {
		cfg.Stores.OpTimeout = 30 * time.Second
	}
	if cfg.Labels.PolicyFile == "" {
		cfg.Labels.PolicyFile = "label_policy.json"
	}
	if cfg.Ingest.SchemaFile == "" {
		cfg.Ingest.SchemaFile = "valid_data_format.json"
	}
	if cfg.Version == "" {
		cfg.Version = "dev"
	}
}
