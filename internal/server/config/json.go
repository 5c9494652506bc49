package config

import (
	"encoding/json"
	"os"

	"github.com/dmitrijs2005/gophvault/internal/flagx"
	"github.com/dmitrijs2005/gophvault/internal/timex"
)

// JsonConfig is the on-disk shape of the configuration file. Interval fields
// use timex.Duration so both "15m" and integer nanoseconds are accepted.
// Only keys present in the file override the current values.
type JsonConfig struct {
	EndpointAddrHTTP        *string         `json:"endpoint_addr_http"`
	EndpointAddrGRPC        *string         `json:"endpoint_addr_grpc"`
	DatabaseDSN             *string         `json:"database_dsn"`
	SecretKey               *string         `json:"secret_key"`
	Env                     *string         `json:"env"`
	LogLevel                *string         `json:"log_level"`
	MediaRoot               *string         `json:"media_root"`
	StagingDir              *string         `json:"staging_dir"`
	EncryptionKey           *string         `json:"encryption_key"`
	EncryptionPassphrase    *string         `json:"encryption_passphrase"`
	EncryptionSalt          *string         `json:"encryption_salt"`
	BlobBackend             *string         `json:"blob_backend"`
	S3RootUser              *string         `json:"s3_root_user"`
	S3RootPassword          *string         `json:"s3_root_password"`
	S3Bucket                *string         `json:"s3_bucket"`
	S3Region                *string         `json:"s3_region"`
	S3BaseEndpoint          *string         `json:"s3_base_endpoint"`
	NATSURL                 *string         `json:"nats_url"`
	NATSSubjectPrefix       *string         `json:"nats_subject_prefix"`
	EventSource             *string         `json:"event_source"`
	SessionTTL              *timex.Duration `json:"session_ttl"`
	CleanupInterval         *timex.Duration `json:"cleanup_interval"`
	SummarizerEndpoint      *string         `json:"summarizer_endpoint"`
	SummarizerTimeout       *timex.Duration `json:"summarizer_timeout"`
	SummaryMaxLength        *int            `json:"summary_max_length"`
	MaxConcurrentAssemblies *int            `json:"max_concurrent_assemblies"`
	MaxRequestBytes         *int64          `json:"max_request_bytes"`
}

func set[T any](dst *T, src *T) {
	if src != nil {
		*dst = *src
	}
}

// parseJson overlays config with the JSON file named by -c/-config in args.
// Nothing happens when no file is given. Read or decode errors panic.
func parseJson(config *Config, args []string) {
	path := flagx.ConfigPath(args)
	if path == "" {
		return
	}

	data, err := os.ReadFile(path)
	if err != nil {
		panic(err)
	}

	var c JsonConfig
	if err := json.Unmarshal(data, &c); err != nil {
		panic(err)
	}

	set(&config.EndpointAddrHTTP, c.EndpointAddrHTTP)
	set(&config.EndpointAddrGRPC, c.EndpointAddrGRPC)
	set(&config.DatabaseDSN, c.DatabaseDSN)
	set(&config.SecretKey, c.SecretKey)
	set(&config.Env, c.Env)
	set(&config.LogLevel, c.LogLevel)
	set(&config.MediaRoot, c.MediaRoot)
	set(&config.StagingDir, c.StagingDir)
	set(&config.EncryptionKey, c.EncryptionKey)
	set(&config.EncryptionPassphrase, c.EncryptionPassphrase)
	set(&config.EncryptionSalt, c.EncryptionSalt)
	set(&config.BlobBackend, c.BlobBackend)
	set(&config.S3RootUser, c.S3RootUser)
	set(&config.S3RootPassword, c.S3RootPassword)
	set(&config.S3Bucket, c.S3Bucket)
	set(&config.S3Region, c.S3Region)
	set(&config.S3BaseEndpoint, c.S3BaseEndpoint)
	set(&config.NATSURL, c.NATSURL)
	set(&config.NATSSubjectPrefix, c.NATSSubjectPrefix)
	set(&config.EventSource, c.EventSource)
	set(&config.SummarizerEndpoint, c.SummarizerEndpoint)
	set(&config.SummaryMaxLength, c.SummaryMaxLength)
	set(&config.MaxConcurrentAssemblies, c.MaxConcurrentAssemblies)
	set(&config.MaxRequestBytes, c.MaxRequestBytes)

	if c.SessionTTL != nil {
		config.SessionTTL = c.SessionTTL.Duration
	}
	if c.CleanupInterval != nil {
		config.CleanupInterval = c.CleanupInterval.Duration
	}
	if c.SummarizerTimeout != nil {
		config.SummarizerTimeout = c.SummarizerTimeout.Duration
	}
}
