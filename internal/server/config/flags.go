package config

import (
	"flag"

	"github.com/dmitrijs2005/gophvault/internal/flagx"
)

// parseFlags populates selected server Config fields from command-line flags.
//
// Supported flags (short forms):
//
//	-a string   HTTP bind address (e.g., ":8080")
//	-g string   gRPC bind address (e.g., ":50051")
//	-d string   PostgreSQL DSN
//	-s string   JWT HMAC secret key
//	-m string   media root for encrypted blobs
//	-t string   chunk staging directory
//	-k string   content encryption key
//	-b string   blob backend ("local" or "s3")
//	-n string   NATS URL for event notifications
//	-w int      max concurrent assemblies
//
// Only these flags are inspected; everything else in args is ignored.
func parseFlags(config *Config, args []string) {
	args = flagx.FilterArgs(args, []string{"-a", "-g", "-d", "-s", "-m", "-t", "-k", "-b", "-n", "-w"})

	fs := flag.NewFlagSet("main", flag.ContinueOnError)

	fs.StringVar(&config.EndpointAddrHTTP, "a", config.EndpointAddrHTTP, "address and port to serve HTTP")
	fs.StringVar(&config.EndpointAddrGRPC, "g", config.EndpointAddrGRPC, "address and port to serve gRPC health")
	fs.StringVar(&config.DatabaseDSN, "d", config.DatabaseDSN, "database DSN")
	fs.StringVar(&config.SecretKey, "s", config.SecretKey, "secret key")
	fs.StringVar(&config.MediaRoot, "m", config.MediaRoot, "media root")
	fs.StringVar(&config.StagingDir, "t", config.StagingDir, "chunk staging directory")
	fs.StringVar(&config.EncryptionKey, "k", config.EncryptionKey, "content encryption key")
	fs.StringVar(&config.BlobBackend, "b", config.BlobBackend, "blob backend: local or s3")
	fs.StringVar(&config.NATSURL, "n", config.NATSURL, "NATS URL")
	fs.IntVar(&config.MaxConcurrentAssemblies, "w", config.MaxConcurrentAssemblies, "max concurrent assemblies")

	if err := fs.Parse(args); err != nil {
		panic(err)
	}
}
