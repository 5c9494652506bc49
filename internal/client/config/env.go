package config

import "github.com/kelseyhightower/envconfig"

// parseEnv overlays config with GOPHVAULT_* environment variables.
// Malformed values panic.
func parseEnv(config *Config) {
	if err := envconfig.Process(EnvPrefix, config); err != nil {
		panic(err)
	}
}
