package suite

import (
	"fmt"
	"os"
	"strings"
	"testing"
)

func runTest(f func(t *T)) (asserts int, failures []string, lines []int) {
	res := Test{Title: "t", Func: f}.Run("s")
	for _, fl := range res.Failures {
		failures = append(failures, fl.Condition)
		lines = append(lines, fl.Line)
	}
	return res.Asserts, failures, lines
}

func TestAssertions(t *testing.T) {
	asserts, failures, _ := runTest(func(t *T) {
		t.Assert(true, "true")
		t.Assert(false, "false")
		t.Assertf(2+2 == 5, "2+2 == %d", 5)
		t.Fail("unconditional")
	})
	if asserts != 4 {
		t.Fatalf("asserts = %d, want 4", asserts)
	}
	want := []string{"false", "2+2 == 5", "unconditional"}
	if strings.Join(failures, "|") != strings.Join(want, "|") {
		t.Fatalf("failures = %q, want %q", failures, want)
	}
}

func TestFailureLocation(t *testing.T) {
	res := Test{Title: "t", Func: func(t *T) {
		t.Assert(false, "here")
	}}.Run("s")
	if len(res.Failures) != 1 {
		t.Fatalf("failures = %+v", res.Failures)
	}
	if f := res.Failures[0]; f.File != "t_test.go" || f.Line == 0 {
		t.Fatalf("failure located at %s:%d, want t_test.go", f.File, f.Line)
	}
}

func TestAssertFatalStopsTest(t *testing.T) {
	reached := false
	asserts, failures, _ := runTest(func(t *T) {
		t.AssertFatal(false, "must hold")
		reached = true
	})
	if reached {
		t.Fatalf("test continued after AssertFatal")
	}
	if asserts != 1 || len(failures) != 1 || failures[0] != "must hold" {
		t.Fatalf("asserts = %d, failures = %q", asserts, failures)
	}
}

func TestPanicRecordedAsFailure(t *testing.T) {
	res := Test{Title: "t", Func: func(t *T) {
		t.Assert(true, "before")
		panic("boom")
	}}.Run("s")
	if res.Asserts != 2 || len(res.Failures) != 1 {
		t.Fatalf("unexpected result: %+v", res)
	}
	f := res.Failures[0]
	if f.Condition != "panic: boom" {
		t.Fatalf("condition = %q", f.Condition)
	}
	if f.File != "t_test.go" {
		t.Fatalf("panic located in %q, want t_test.go", f.File)
	}
}

func TestCheckOutput(t *testing.T) {
	asserts, failures, _ := runTest(func(t *T) {
		t.CheckOutput(func() { fmt.Print("hello\n") }, "hello\n")
		t.CheckOutput(func() { fmt.Print("hello\n") }, "bye\n")
		t.CheckOutput(func() {}, "")
	})
	if asserts != 3 || len(failures) != 1 {
		t.Fatalf("asserts = %d, failures = %q", asserts, failures)
	}
	if !strings.HasPrefix(failures[0], "CheckOutput: stdout mismatch") {
		t.Fatalf("unexpected condition %q", failures[0])
	}
}

func TestCheckError(t *testing.T) {
	asserts, failures, _ := runTest(func(t *T) {
		t.CheckError(func() { fmt.Fprint(os.Stderr, "oops\n") }, "oops\n")
		t.CheckError(func() { fmt.Print("oops\n") }, "oops\n")
	})
	if asserts != 2 || len(failures) != 1 {
		t.Fatalf("asserts = %d, failures = %q", asserts, failures)
	}
	if !strings.Contains(failures[0], "stderr mismatch") {
		t.Fatalf("unexpected condition %q", failures[0])
	}
}

func TestCheckStreams(t *testing.T) {
	asserts, failures, _ := runTest(func(t *T) {
		t.CheckStreams(func() {
			fmt.Print("out\n")
			fmt.Fprint(os.Stderr, "err\n")
		}, "out\n", "err\n")
		t.CheckStreams(func() { fmt.Print("out\n") }, "out\n", "err\n")
	})
	if asserts != 2 || len(failures) != 1 {
		t.Fatalf("asserts = %d, failures = %q", asserts, failures)
	}
	if strings.Contains(failures[0], "stdout") || !strings.Contains(failures[0], "stderr") {
		t.Fatalf("condition should name only stderr: %q", failures[0])
	}
}

func TestCheckOutputOverflow(t *testing.T) {
	_, failures, _ := runTest(func(t *T) {
		t.CheckOutput(func() { fmt.Print(strings.Repeat("x", 1<<20)) }, "x")
	})
	if len(failures) != 1 || !strings.Contains(failures[0], "overflows") {
		t.Fatalf("failures = %q", failures)
	}
}

func TestCheckOutputNested(t *testing.T) {
	_, failures, _ := runTest(func(t *T) {
		t.CheckOutput(func() {
			t.CheckOutput(func() {}, "")
		}, "")
	})
	if len(failures) != 1 || !strings.Contains(failures[0], "already being captured") {
		t.Fatalf("failures = %q", failures)
	}
}
