package config

import (
	"flag"

	"github.com/dmitrijs2005/gophvault/internal/flagx"
)

// parseFlags populates selected Config fields from command-line flags.
// Everything in args that is not a configuration flag is ignored, so
// subcommands and their own flags can share the command line.
func parseFlags(cfg *Config, args []string) {
	args = flagx.FilterArgs(args, []string{"-a", "-k", "-b", "-j", "-r", "-db"})

	fs := flag.NewFlagSet("main", flag.ContinueOnError)

	fs.StringVar(&cfg.ServerURL, "a", cfg.ServerURL, "server base URL")
	fs.StringVar(&cfg.Token, "k", cfg.Token, "bearer token")
	fs.Int64Var(&cfg.ChunkSize, "b", cfg.ChunkSize, "chunk size in bytes")
	fs.IntVar(&cfg.Parallelism, "j", cfg.Parallelism, "parallel chunk uploads")
	fs.IntVar(&cfg.MaxRetries, "r", cfg.MaxRetries, "retries per chunk")
	fs.StringVar(&cfg.StateDB, "db", cfg.StateDB, "upload state database")

	if err := fs.Parse(args); err != nil {
		panic(err)
	}
}
