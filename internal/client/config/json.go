package config

import (
	"encoding/json"
	"os"

	"github.com/dmitrijs2005/gophvault/internal/flagx"
	"github.com/dmitrijs2005/gophvault/internal/timex"
)

// JsonConfig is a DTO used exclusively for JSON unmarshalling. Only keys
// present in the file override the current values.
type JsonConfig struct {
	ServerURL      *string         `json:"server_url"`
	Token          *string         `json:"token"`
	ChunkSize      *int64          `json:"chunk_size"`
	Parallelism    *int            `json:"parallelism"`
	MaxRetries     *int            `json:"max_retries"`
	RetryDelay     *timex.Duration `json:"retry_delay"`
	RequestTimeout *timex.Duration `json:"request_timeout"`
	StateDB        *string         `json:"state_db"`
}

func set[T any](dst *T, src *T) {
	if src != nil {
		*dst = *src
	}
}

// parseJson overlays cfg with the JSON file named by -c/-config in args.
// Read or decode errors panic.
func parseJson(cfg *Config, args []string) {
	path := flagx.ConfigPath(args)
	if path == "" {
		return
	}

	data, err := os.ReadFile(path)
	if err != nil {
		panic(err)
	}

	var jc JsonConfig
	if err := json.Unmarshal(data, &jc); err != nil {
		panic(err)
	}

	set(&cfg.ServerURL, jc.ServerURL)
	set(&cfg.Token, jc.Token)
	set(&cfg.ChunkSize, jc.ChunkSize)
	set(&cfg.Parallelism, jc.Parallelism)
	set(&cfg.MaxRetries, jc.MaxRetries)
	set(&cfg.StateDB, jc.StateDB)

	if jc.RetryDelay != nil {
		cfg.RetryDelay = jc.RetryDelay.Duration
	}
	if jc.RequestTimeout != nil {
		cfg.RequestTimeout = jc.RequestTimeout.Duration
	}
}
