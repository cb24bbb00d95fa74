// Package args turns a test program's command line into a run Context.
package args

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"

	env "github.com/netflix/go-env"
	"github.com/nethoundsh/unitwrap/pkg/filter"
	"github.com/nethoundsh/unitwrap/pkg/report"
	"github.com/spf13/pflag"
)

var (
	// ErrHelp is returned by GetContext when -h was given.
	ErrHelp    = errors.New("help requested")
	ErrInvalid = errors.New("invalid arguments")
)

// MaxPath bounds -f values; longer ones are ignored.
const MaxPath = 1024

const defaultCommand = "unitwrap"

type Mode int

const (
	ModeBasic Mode = iota
	ModeConsole
	ModeAutomated
)

var modeNames = [...]string{"BASIC", "CONSOLE", "AUTOMATED"}

func (m Mode) String() string {
	if m < 0 || int(m) >= len(modeNames) {
		return fmt.Sprintf("Mode(%d)", int(m))
	}
	return modeNames[m]
}

func ParseMode(s string) (Mode, bool) {
	for i, name := range modeNames {
		if s == name {
			return Mode(i), true
		}
	}
	return 0, false
}

// Context is what a test program needs to know to run its suites.
type Context struct {
	Mode       Mode
	Level      report.Level
	Filename   string
	Workers    int
	Includes   []string
	Excludes   []string
	NoColor    bool
	NoProgress bool
}

func (c Context) Filter() filter.Config {
	return filter.Config{Includes: c.Includes, Excludes: c.Excludes}
}

type environment struct {
	Mode    string `env:"UNITWRAP_MODE,default=BASIC"`
	Level   string `env:"UNITWRAP_LEVEL,default=VERBOSE"`
	File    string `env:"UNITWRAP_FILE"`
	Workers string `env:"UNITWRAP_WORKERS,default=1"`
}

// fromEnvironment returns the defaults, overridden by UNITWRAP_* variables.
// Variables set to the empty string keep the default.
func fromEnvironment() (Context, error) {
	ctx := Context{Mode: ModeBasic, Level: report.LevelVerbose, Workers: 1}

	var e environment
	if _, err := env.UnmarshalFromEnviron(&e); err != nil {
		return ctx, fmt.Errorf("reading environment: %w", err)
	}
	if e.Mode != "" {
		m, ok := ParseMode(e.Mode)
		if !ok {
			return ctx, fmt.Errorf("%w: %s is invalid for UNITWRAP_MODE", ErrInvalid, e.Mode)
		}
		ctx.Mode = m
	}
	if e.Level != "" {
		l, ok := report.ParseLevel(e.Level)
		if !ok {
			return ctx, fmt.Errorf("%w: %s is invalid for UNITWRAP_LEVEL", ErrInvalid, e.Level)
		}
		ctx.Level = l
	}
	if len(e.File) < MaxPath {
		ctx.Filename = e.File
	}
	if e.Workers != "" {
		n, err := strconv.Atoi(e.Workers)
		if err != nil || n < 1 {
			return ctx, fmt.Errorf("%w: %s is invalid for UNITWRAP_WORKERS", ErrInvalid, e.Workers)
		}
		ctx.Workers = n
	}
	return ctx, nil
}

// modeValue and levelValue report a bad value on stderr and keep parsing,
// so a later -h still counts.
type modeValue struct {
	mode *Mode
	bad  *bool
}

func (v modeValue) String() string { return v.mode.String() }
func (v modeValue) Type() string   { return "mode" }

func (v modeValue) Set(s string) error {
	m, ok := ParseMode(s)
	if !ok {
		fmt.Fprintf(os.Stderr, "%s is invalid for m option.\n", s)
		*v.bad = true
		return nil
	}
	*v.mode = m
	return nil
}

type levelValue struct {
	level *report.Level
	bad   *bool
}

func (v levelValue) String() string { return v.level.String() }
func (v levelValue) Type() string   { return "level" }

func (v levelValue) Set(s string) error {
	l, ok := report.ParseLevel(s)
	if !ok {
		fmt.Fprintf(os.Stderr, "%s is invalid for b option.\n", s)
		*v.bad = true
		return nil
	}
	*v.level = l
	return nil
}

type fileValue struct{ name *string }

func (v fileValue) String() string { return *v.name }
func (v fileValue) Type() string   { return "filepath" }

func (v fileValue) Set(s string) error {
	if len(s) < MaxPath {
		*v.name = s
	}
	return nil
}

func commandName(argv []string) string {
	if len(argv) == 0 || argv[0] == "" {
		return defaultCommand
	}
	return argv[0]
}

// ParseArgs parses argv (program name first) over the environment
// defaults. Problems are reported on standard error as they are found; the
// returned error only tells the caller that parsing failed.
func ParseArgs(argv []string) (Context, bool, error) {
	command := commandName(argv)
	// A bad environment value fails the parse, but argv is still read so
	// that -h can win over it.
	ctx, envErr := fromEnvironment()
	if envErr != nil {
		fmt.Fprintf(os.Stderr, "%s: %v\n", command, envErr)
	}

	fs := pflag.NewFlagSet(command, pflag.ContinueOnError)
	fs.SetOutput(io.Discard)
	fs.Usage = func() {}

	var bad bool
	var include, exclude string
	fs.VarP(modeValue{mode: &ctx.Mode, bad: &bad}, "mode", "m", "run mode")
	fs.VarP(fileValue{name: &ctx.Filename}, "file", "f", "report root")
	fs.VarP(levelValue{level: &ctx.Level, bad: &bad}, "level", "b", "basic output level")
	fs.IntVarP(&ctx.Workers, "workers", "j", ctx.Workers, "suites run concurrently")
	fs.StringVarP(&include, "include", "i", "", "tests to run")
	fs.StringVarP(&exclude, "exclude", "x", "", "tests to skip")
	fs.BoolVar(&ctx.NoColor, "no-color", false, "disable colored output")
	fs.BoolVar(&ctx.NoProgress, "no-progress", false, "disable the progress bar")
	help := fs.BoolP("help", "h", false, "display help")

	var rest []string
	if len(argv) > 1 {
		rest = argv[1:]
	}
	if err := fs.Parse(rest); err != nil {
		fmt.Fprintf(os.Stderr, "%s: %v\n", command, err)
		return ctx, *help, fmt.Errorf("%w: %v", ErrInvalid, err)
	}
	if envErr != nil {
		return ctx, *help, envErr
	}
	if bad {
		return ctx, *help, ErrInvalid
	}
	if ctx.Workers < 1 {
		fmt.Fprintf(os.Stderr, "%s: -j must be a positive integer, got %d\n", command, ctx.Workers)
		return ctx, *help, fmt.Errorf("%w: workers %d", ErrInvalid, ctx.Workers)
	}

	ctx.Includes = filter.ParsePatterns(include)
	ctx.Excludes = filter.ParsePatterns(exclude)
	for _, check := range []struct {
		name     string
		patterns []string
	}{{"-i", ctx.Includes}, {"-x", ctx.Excludes}} {
		if err := filter.Validate(check.name, check.patterns); err != nil {
			fmt.Fprintf(os.Stderr, "%s: %v\n", command, err)
			return ctx, *help, fmt.Errorf("%w: %v", ErrInvalid, err)
		}
	}
	return ctx, *help, nil
}

const usageText = `
Usage: %s [options]
Options:
  -m <mode>      Mode for running test: BASIC, CONSOLE or AUTOMATED
  -f <filepath>  <filepath> root for automated test report (default is "./result")
  -b <level>     Output level for basic mode: SILENT, NORMAL or VERBOSE
  -j <workers>   Number of suites run concurrently (default 1)
  -i <patterns>  Comma-separated glob patterns of tests to run
  -x <patterns>  Comma-separated glob patterns of tests to skip
  --no-color     Disable colored output
  --no-progress  Disable the progress bar
  -h             Display this help and exit

`

// Usage prints the option summary on standard output.
func Usage(command string) {
	fmt.Fprintf(os.Stdout, usageText, command)
}

// GetContext parses argv and prints the usage text when parsing fails or
// help was asked for. Help wins over a parse error.
func GetContext(argv []string) (Context, error) {
	ctx, help, err := ParseArgs(argv)
	if err != nil || help {
		Usage(commandName(argv))
		if help {
			return ctx, ErrHelp
		}
		return ctx, err
	}
	return ctx, nil
}
