// Package config loads runtime configuration for the GophVault client.
//
// Sources & precedence
//
//  1. Built-in defaults (see (*Config).LoadDefaults).
//  2. Optional JSON file selected with -c or -config.
//  3. GOPHVAULT_* environment variables.
//  4. Command-line flags, which override earlier values.
//
// Supported flags
//
//	-a string   base URL of the GophVault server
//	-k string   bearer token
//	-b int      chunk size in bytes
//	-j int      number of chunks uploaded in parallel
//	-r int      retries per chunk
//	-db string  path of the local upload state database
//
// # JSON schema
//
// Durations accept either strings like "30s" or integer nanoseconds:
//
//	{
//	  "server_url": "http://127.0.0.1:8080",
//	  "token": "eyJ...",
//	  "chunk_size": 1048576,
//	  "parallelism": 4,
//	  "max_retries": 3,
//	  "retry_delay": "500ms",
//	  "request_timeout": "1m",
//	  "state_db": "gophvault-client.db"
//	}
package config
