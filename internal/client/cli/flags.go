package cli

import (
	"flag"
	"fmt"
	"io"
)

// parseArgs parses fs over args where flags and positional arguments may be
// interleaved, and checks the number of positionals.
func parseArgs(fs *flag.FlagSet, args []string, want int, errOut io.Writer) ([]string, error) {
	fs.SetOutput(errOut)

	var positional []string
	for {
		if err := fs.Parse(args); err != nil {
			return nil, fmt.Errorf("%w: %s: %v", ErrUsage, fs.Name(), err)
		}
		args = fs.Args()
		if len(args) == 0 {
			break
		}
		positional = append(positional, args[0])
		args = args[1:]
	}

	if len(positional) != want {
		fs.Usage()
		return nil, fmt.Errorf("%w: %s expects %d argument(s), got %d", ErrUsage, fs.Name(), want, len(positional))
	}
	return positional, nil
}
