// Package cmd holds the CLI surface: a small command dispatcher and the serve
// command that wires the pipeline together.
package cmd

import (
	"context"
	"fmt"
	"os"
)

const usage = `Usage: intentrelay <command>

Commands:
  serve    start the HTTP relay server
  help     show this message

Run "intentrelay serve -h" for serve flags.`

// Execute dispatches to the named command.
func Execute(ctx context.Context, args []string) error {
	if len(args) == 0 {
		fmt.Fprintln(os.Stderr, usage)
		return nil
	}

	switch args[0] {
	case "serve":
		return serve(ctx, args[1:])
	case "help", "-h", "--help":
		fmt.Println(usage)
		return nil
	}
	return fmt.Errorf("unknown command %q\n\n%s", args[0], usage)
}
