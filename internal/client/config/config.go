package config

import (
	"os"
	"time"
)

// EnvPrefix is prepended to every environment variable name, e.g. GOPHVAULT_TOKEN.
const EnvPrefix = "GOPHVAULT"

// Config holds runtime settings for the GophVault client.
//
// Fields:
//   - ServerURL: base URL of the REST API, without the /api suffix.
//   - Token: JWT sent as a bearer token.
//   - ChunkSize: size of every chunk but the last one.
//   - Parallelism: upper bound of chunk uploads in flight.
//   - MaxRetries / RetryDelay: per-chunk retry policy; the delay doubles on every attempt.
//   - RequestTimeout: timeout of a single HTTP request.
//   - StateDB: sqlite file that remembers unfinished uploads for resume.
type Config struct {
	ServerURL      string        `envconfig:"SERVER_URL"`
	Token          string        `envconfig:"TOKEN"`
	ChunkSize      int64         `envconfig:"CHUNK_SIZE"`
	Parallelism    int           `envconfig:"PARALLELISM"`
	MaxRetries     int           `envconfig:"MAX_RETRIES"`
	RetryDelay     time.Duration `envconfig:"RETRY_DELAY"`
	RequestTimeout time.Duration `envconfig:"REQUEST_TIMEOUT"`
	StateDB        string        `envconfig:"STATE_DB"`
}

// Flags lists every command-line flag consumed by the configuration loaders,
// so callers can strip them before parsing subcommands.
var Flags = []string{"-a", "-k", "-b", "-j", "-r", "-db", "-c", "-config", "--config"}

// LoadDefaults populates c with sensible defaults.
func (c *Config) LoadDefaults() {
	c.ServerURL = "http://127.0.0.1:8080"
	c.ChunkSize = 1 << 20
	c.Parallelism = 4
	c.MaxRetries = 3
	c.RetryDelay = 500 * time.Millisecond
	c.RequestTimeout = time.Minute
	c.StateDB = "gophvault-client.db"
}

// LoadConfig constructs a Config, applies defaults, then overlays values from
// JSON (if present), the environment and command-line flags. Later sources
// take precedence over earlier ones.
func LoadConfig() *Config {
	cfg := &Config{}
	cfg.LoadDefaults()
	parseJson(cfg, os.Args[1:])
	parseEnv(cfg)
	parseFlags(cfg, os.Args[1:])
	return cfg
}
