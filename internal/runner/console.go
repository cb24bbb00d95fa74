package runner

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/fatih/color"
	"github.com/nethoundsh/unitwrap/pkg/report"
	"github.com/nethoundsh/unitwrap/pkg/suite"
)

const consoleMenu = "\n***************** UNITWRAP CONSOLE - MAIN MENU *****************\n" +
	"(R)un  (S)elect  (L)ist  (F)ailures  (Q)uit\n" +
	"Enter command: "

// RunConsole drives the suites from commands read on opts.In, one per
// line. It returns the last run when the user quits or input ends.
func RunConsole(ctx context.Context, opts Options, reg *suite.Registry) (report.Run, error) {
	out := opts.out()
	basic := report.Basic{Level: report.LevelVerbose}
	if err := basic.Header(out); err != nil {
		return report.Run{}, err
	}

	in := bufio.NewScanner(opts.in())
	var last report.Run
	for {
		if err := ctx.Err(); err != nil {
			return last, err
		}
		if _, err := io.WriteString(out, consoleMenu); err != nil {
			return last, err
		}
		if !in.Scan() {
			if err := in.Err(); err != nil {
				return last, fmt.Errorf("reading command: %w", err)
			}
			return last, nil
		}
		cmd := strings.ToUpper(strings.TrimSpace(in.Text()))
		if cmd == "" {
			continue
		}

		var err error
		switch cmd[0] {
		case 'R':
			last, err = runRendered(ctx, opts, basic, reg.Suites(), false)
		case 'S':
			var s *suite.Suite
			if s, err = selectSuite(in, out, reg); err == nil && s != nil {
				last, err = runRendered(ctx, opts, basic, []*suite.Suite{s}, false)
			}
		case 'L':
			err = listSuites(out, reg)
		case 'F':
			err = listFailures(out, last)
		case 'Q':
			return last, nil
		default:
			_, err = fmt.Fprintf(out, "Unknown command '%s'.\n", cmd)
		}
		if err != nil {
			return last, err
		}
	}
}

// selectSuite asks for a suite number. A nil suite means the answer was
// not a valid number.
func selectSuite(in *bufio.Scanner, out io.Writer, reg *suite.Registry) (*suite.Suite, error) {
	suites := reg.Suites()
	if len(suites) == 0 {
		_, err := io.WriteString(out, "No suites registered.\n")
		return nil, err
	}
	if _, err := fmt.Fprintf(out, "Enter number of suite to run (1-%d): ", len(suites)); err != nil {
		return nil, err
	}
	if !in.Scan() {
		return nil, in.Err()
	}
	n, err := strconv.Atoi(strings.TrimSpace(in.Text()))
	if err != nil || n < 1 || n > len(suites) {
		_, err := io.WriteString(out, "Invalid suite number.\n")
		return nil, err
	}
	return suites[n-1], nil
}

func yesNo(f func() error) string {
	if f != nil {
		return "Yes"
	}
	return "No"
}

func listSuites(out io.Writer, reg *suite.Registry) error {
	var b strings.Builder
	b.WriteString("\n--------------------- Registered Suites -----------------------\n")
	fmt.Fprintf(&b, "%6s  %-30s%7s%10s%8s\n", "#", "Suite Name", "Init?", "Cleanup?", "#Tests")
	for i, s := range reg.Suites() {
		fmt.Fprintf(&b, "%5d.  %-30s%7s%10s%8d\n", i+1, s.Title, yesNo(s.Init), yesNo(s.Cleanup), len(s.Tests))
	}
	fmt.Fprintf(&b, "---------------------------------------------------------------\nTotal Number of Suites : %d\n", reg.Len())
	_, err := io.WriteString(out, b.String())
	return err
}

func listFailures(out io.Writer, run report.Run) error {
	var b strings.Builder
	n := 0
	for _, s := range run.Suites {
		if s.InitFailed {
			n++
			fmt.Fprintf(&b, "%4d. %s - Suite initialization failed\n", n, s.Title)
		}
		for _, t := range s.Tests {
			for _, f := range t.Failures {
				n++
				fmt.Fprintf(&b, "%4d. %s:%d  - %s\n      %s / %s\n", n, f.File, f.Line, f.Condition, s.Title, t.Title)
			}
		}
		if s.CleanupFailed {
			n++
			fmt.Fprintf(&b, "%4d. %s - Suite cleanup failed\n", n, s.Title)
		}
	}
	if n == 0 {
		_, err := io.WriteString(out, "\nNo failures.\n")
		return err
	}
	_, err := fmt.Fprintf(out, "\n%s\n%s", color.RedString("--------------- Test Failures ---------------"), b.String())
	return err
}
