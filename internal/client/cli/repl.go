package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"strings"
)

// shell reads commands line by line and runs them until EOF, "exit" or
// cancellation. A failing command is reported and the loop goes on.
func (a *App) shell(ctx context.Context) error {
	scanner := bufio.NewScanner(a.in)

	for {
		if a.interactive {
			fmt.Fprint(a.errOut, "gophvault> ")
		}
		if ctx.Err() != nil || !scanner.Scan() {
			break
		}

		parts := strings.Fields(scanner.Text())
		if len(parts) == 0 {
			continue
		}

		switch parts[0] {
		case "exit", "quit":
			return nil
		case "shell":
			fmt.Fprintln(a.errOut, "already in shell")
			continue
		}

		if err := a.Run(ctx, parts); err != nil && !errors.Is(err, context.Canceled) {
			fmt.Fprintln(a.errOut, "error:", err)
		}
	}

	if err := scanner.Err(); err != nil {
		return err
	}
	return ctx.Err()
}
