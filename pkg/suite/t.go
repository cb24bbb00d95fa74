package suite

import (
	"fmt"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/google/go-cmp/cmp"
	"github.com/nethoundsh/unitwrap/pkg/capture"
	"github.com/nethoundsh/unitwrap/pkg/report"
)

// T records the assertions of one running test. Every assertion counts,
// failed ones are kept with the caller's file and line.
type T struct {
	suite    string
	name     string
	asserts  int
	failures []report.Failure
}

// fatalAbort unwinds a test stopped by AssertFatal.
type fatalAbort struct{}

func (t *T) Suite() string { return t.suite }

func (t *T) Name() string { return t.name }

// Failed reports whether any assertion failed so far.
func (t *T) Failed() bool { return len(t.failures) > 0 }

func (t *T) record(ok bool, condition string, skip int) bool {
	t.asserts++
	if ok {
		return true
	}
	_, file, line, _ := runtime.Caller(skip + 1)
	t.failures = append(t.failures, report.Failure{
		File:      filepath.Base(file),
		Line:      line,
		Condition: condition,
	})
	return false
}

// Assert records ok; condition describes what was asserted.
func (t *T) Assert(ok bool, condition string) bool {
	return t.record(ok, condition, 1)
}

func (t *T) Assertf(ok bool, format string, args ...any) bool {
	if ok {
		return t.record(true, "", 1)
	}
	return t.record(false, fmt.Sprintf(format, args...), 1)
}

// AssertFatal is Assert, but a failure ends the test immediately.
func (t *T) AssertFatal(ok bool, condition string) {
	if !t.record(ok, condition, 1) {
		panic(fatalAbort{})
	}
}

// Fail records an unconditional failure.
func (t *T) Fail(condition string) {
	t.record(false, condition, 1)
}

// CheckOutput asserts that proc writes exactly want to standard output.
// An empty want asserts that nothing is written.
func (t *T) CheckOutput(proc func(), want string) bool {
	res, err := capture.Check(capture.Stdout, proc, want)
	return t.recordCapture("CheckOutput", err, 1, res)
}

// CheckError asserts that proc writes exactly want to standard error.
func (t *T) CheckError(proc func(), want string) bool {
	res, err := capture.Check(capture.Stderr, proc, want)
	return t.recordCapture("CheckError", err, 1, res)
}

// CheckStreams runs proc once and asserts both standard channels.
func (t *T) CheckStreams(proc func(), wantOut, wantErr string) bool {
	out, errRes, err := capture.CheckStd(proc, wantOut, wantErr)
	return t.recordCapture("CheckStreams", err, 1, out, errRes)
}

func (t *T) recordCapture(op string, err error, skip int, results ...capture.Result) bool {
	ok := err == nil
	for _, r := range results {
		ok = ok && r.Match
	}
	if ok {
		return t.record(true, "", skip+1)
	}
	return t.record(false, op+": "+describeCapture(err, results), skip+1)
}

func describeCapture(err error, results []capture.Result) string {
	if err != nil {
		return err.Error()
	}
	var parts []string
	for _, r := range results {
		switch {
		case r.Match:
		case r.Overflow:
			parts = append(parts, fmt.Sprintf("%s: %s written overflows the %s capture buffer",
				r.Channel, humanize.Bytes(uint64(r.Written)), humanize.Bytes(uint64(r.BufferSize))))
		default:
			parts = append(parts, fmt.Sprintf("%s mismatch (-want +got):\n%s", r.Channel, cmp.Diff(r.Expected, r.Captured)))
		}
	}
	return strings.Join(parts, "; ")
}

// Run executes the test with a fresh T. A panic other than an
// AssertFatal abort is recorded as a failed assertion at the panic site.
func (tc Test) Run(suiteTitle string) (res report.TestResult) {
	t := &T{suite: suiteTitle, name: tc.Title}
	defer func() {
		if r := recover(); r != nil {
			if _, ok := r.(fatalAbort); !ok {
				file, line := panicSite()
				t.asserts++
				t.failures = append(t.failures, report.Failure{
					File:      file,
					Line:      line,
					Condition: fmt.Sprintf("panic: %v", r),
				})
			}
		}
		res = report.TestResult{Title: tc.Title, Asserts: t.asserts, Failures: t.failures}
	}()
	tc.Func(t)
	return res
}

// panicSite returns the first non-runtime frame below runtime.gopanic.
func panicSite() (string, int) {
	pcs := make([]uintptr, 32)
	n := runtime.Callers(3, pcs)
	frames := runtime.CallersFrames(pcs[:n])
	afterPanic := false
	for {
		f, more := frames.Next()
		if afterPanic && !strings.HasPrefix(f.Function, "runtime.") {
			return filepath.Base(f.File), f.Line
		}
		if f.Function == "runtime.gopanic" {
			afterPanic = true
		}
		if !more {
			return "", 0
		}
	}
}
