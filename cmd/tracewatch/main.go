// Package main provides the tracewatch CLI entrypoint: a thin
// demonstrator over the event/sampler/store/query/adapter/snapshot core.
// Nothing in the core packages imports this one.
//
// Usage:
//
//	tracewatch serve --config <path> [--out <snapshot-path>]
//	tracewatch query --snapshot <path> [--kind k] [--actor a] [--format json|table|yaml]
//	tracewatch inspect actor <handle> --snapshot <path>
//	tracewatch live <rfc3339-timestamp> --snapshot <path> [--tui]
package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/urfave/cli/v2"
)

// Commit is set via -ldflags at build time.
var commit = "unknown"

func main() {
	app := &cli.App{
		Name:           "tracewatch",
		Usage:          "Time-travel debugging engine for a concurrent actor runtime",
		Version:        fmt.Sprintf("0.1.0 (commit: %s)", commit),
		ExitErrHandler: exitErrHandler,
		Commands: []*cli.Command{
			serveCommand(),
			queryCommand(),
			inspectCommand(),
			liveCommand(),
		},
	}

	if err := app.Run(os.Args); err != nil {
		os.Exit(1)
	}
}

func exitErrHandler(_ *cli.Context, err error) {
	if err == nil {
		return
	}
	var exitCoder cli.ExitCoder
	if errors.As(err, &exitCoder) {
		code := exitCoder.ExitCode()
		msg := exitCoder.Error()
		if msg != "" && msg != fmt.Sprintf("exit status %d", code) {
			fmt.Fprintln(os.Stderr, msg)
		}
		os.Exit(code)
	}
	fmt.Fprintf(os.Stderr, "Error: %v\n", err)
	os.Exit(1)
}
