// unitwrap runs a set of example test suites through the unitwrap runner.
// It is also the template for a test program: declare suite getters in a
// table, turn the command line into a context and hand both to
// runner.Process.
//
// Supported modes (-m): BASIC prints results as text, CONSOLE reads
// commands interactively, AUTOMATED writes <root>-Results.xml.
package main

import (
	"context"
	"errors"
	"os"
	"os/signal"

	"github.com/fatih/color"
	"github.com/mattn/go-isatty"
	"github.com/nethoundsh/unitwrap/internal/runner"
	"github.com/nethoundsh/unitwrap/pkg/args"
)

func main() {
	os.Exit(run(os.Args))
}

// Exit codes: 0 = all tests passed, 1 = error, 2 = at least one failure.
func run(argv []string) int {
	c, err := args.GetContext(argv)
	if err != nil {
		if errors.Is(err, args.ErrHelp) {
			return 0
		}
		return 1
	}

	// Cancelled on Ctrl+C; suites still queued are skipped.
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if c.NoColor {
		color.NoColor = true
	}
	// Progress bar: only on a real terminal (not piped).
	showProgress := !c.NoProgress && isatty.IsTerminal(os.Stderr.Fd())

	opts := runner.Options{Context: c, ShowProgress: showProgress}
	return runner.Process(ctx, opts, exampleSuites, nil)
}
