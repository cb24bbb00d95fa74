package report

import (
	"fmt"
	"io"

	"github.com/fatih/color"
)

// Level selects how much the basic renderer prints.
type Level int

const (
	LevelSilent Level = iota
	LevelNormal
	LevelVerbose
)

var levelNames = [...]string{"SILENT", "NORMAL", "VERBOSE"}

func (l Level) String() string {
	if l < 0 || int(l) >= len(levelNames) {
		return fmt.Sprintf("Level(%d)", int(l))
	}
	return levelNames[l]
}

// ParseLevel accepts the upper-case level names printed by String.
func ParseLevel(s string) (Level, bool) {
	for i, name := range levelNames {
		if s == name {
			return Level(i), true
		}
	}
	return 0, false
}

const banner = "\n\n     unitwrap - unit test wrapper for Go\n\n\n"

type errWriter struct {
	w   io.Writer
	err error
}

func (ew *errWriter) printf(format string, a ...any) {
	if ew.err == nil {
		_, ew.err = fmt.Fprintf(ew.w, format, a...)
	}
}

func (ew *errWriter) println(a ...any) {
	if ew.err == nil {
		_, ew.err = fmt.Fprintln(ew.w, a...)
	}
}

// Basic renders runs as plain console text.
type Basic struct {
	Level Level
}

func (b Basic) Header(w io.Writer) error {
	if b.Level == LevelSilent {
		return nil
	}
	_, err := io.WriteString(w, banner)
	return err
}

// Suite prints the per-test lines of one suite. Only the verbose level
// prints anything here.
func (b Basic) Suite(w io.Writer, s SuiteResult) error {
	if b.Level != LevelVerbose || s.Inactive {
		return nil
	}
	ew := &errWriter{w: w}
	ew.printf("Suite: %s\n", s.Title)
	if s.InitFailed {
		ew.printf("  %s - Suite initialization failed for '%s'.\n", color.YellowString("WARNING"), s.Title)
	}
	for _, t := range s.Tests {
		if t.Inactive || s.InitFailed {
			continue
		}
		if !t.Failed() {
			ew.printf("  Test: %s ...%s\n", t.Title, color.GreenString("passed"))
			continue
		}
		ew.printf("  Test: %s ...%s\n", t.Title, color.RedString("FAILED"))
		for i, f := range t.Failures {
			ew.printf("    %d. %s:%d  - %s\n", i+1, f.File, f.Line, f.Condition)
		}
	}
	if s.CleanupFailed {
		ew.printf("  %s - Suite cleanup failed for '%s'.\n", color.YellowString("WARNING"), s.Title)
	}
	return ew.err
}

// Footer prints the failure listing (normal level), the run summary and
// the elapsed time.
func (b Basic) Footer(w io.Writer, run Run) error {
	if b.Level == LevelSilent {
		return nil
	}
	ew := &errWriter{w: w}
	if b.Level == LevelNormal {
		for _, s := range run.Suites {
			if s.InitFailed {
				ew.printf("\nSuite %s had an initialization failure.\n", s.Title)
				continue
			}
			for _, t := range s.Tests {
				if !t.Failed() {
					continue
				}
				ew.printf("\nSuite %s, Test %s had failures:\n", s.Title, t.Title)
				for i, f := range t.Failures {
					ew.printf("    %d. %s:%d  - %s\n", i+1, f.File, f.Line, f.Condition)
				}
			}
			if s.CleanupFailed {
				ew.printf("\nSuite %s had a cleanup failure.\n", s.Title)
			}
		}
	}

	sum := run.Summary()
	ew.println()
	ew.printf("%-12s%8s%7s%7s%7s%7s%9s\n", "Run Summary:", "Type", "Total", "Ran", "Passed", "Failed", "Inactive")
	ew.printf("%20s%7d%7d%7s%s%9d\n", "suites", sum.Suites.Total, sum.Suites.Ran, "n/a", failedCell(sum.Suites.Failed), sum.Suites.Inactive)
	ew.printf("%20s%7d%7d%7d%s%9d\n", "tests", sum.Tests.Total, sum.Tests.Ran, sum.Tests.Passed, failedCell(sum.Tests.Failed), sum.Tests.Inactive)
	ew.printf("%20s%7d%7d%7d%s%9s\n", "asserts", sum.Asserts.Total, sum.Asserts.Ran, sum.Asserts.Passed, failedCell(sum.Asserts.Failed), "n/a")
	ew.println()
	ew.printf("Elapsed time = %8.3f seconds\n", run.Elapsed.Seconds())
	return ew.err
}

func failedCell(n int) string {
	cell := fmt.Sprintf("%7d", n)
	if n > 0 {
		return color.RedString("%s", cell)
	}
	return cell
}
