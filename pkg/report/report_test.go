package report

import (
	"bytes"
	"encoding/xml"
	"flag"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/fatih/color"
	"github.com/google/go-cmp/cmp"
	"golang.org/x/tools/txtar"
)

var writeGolden = flag.Bool("write-golden", false, "rewrite testdata/report.txtar from the current renderers")

const goldenPath = "testdata/report.txtar"

func sampleRun() Run {
	return Run{
		Suites: []SuiteResult{
			{
				Title: "Test suite #1",
				Tests: []TestResult{
					{Title: "TS#1 - Test #1", Asserts: 3, Failures: []Failure{
						{File: "example_test.go", Line: 68, Condition: "3 == myAddition(2, 2)"},
					}},
					{Title: "TS#1 - Test #2", Asserts: 3},
				},
			},
			{
				Title: "Test suite 2",
				Tests: []TestResult{{Title: "First test of TS2", Asserts: 5}},
			},
		},
	}
}

func renderBasic(t *testing.T, level Level, run Run) string {
	t.Helper()
	var buf bytes.Buffer
	b := Basic{Level: level}
	if err := b.Header(&buf); err != nil {
		t.Fatalf("Header: %v", err)
	}
	for _, s := range run.Suites {
		if err := b.Suite(&buf, s); err != nil {
			t.Fatalf("Suite: %v", err)
		}
	}
	if err := b.Footer(&buf, run); err != nil {
		t.Fatalf("Footer: %v", err)
	}
	return buf.String()
}

func TestGolden(t *testing.T) {
	oldNoColor := color.NoColor
	color.NoColor = true
	defer func() { color.NoColor = oldNoColor }()

	archive, err := txtar.ParseFile(goldenPath)
	if err != nil {
		t.Fatalf("parsing %s: %v", goldenPath, err)
	}

	run := sampleRun()
	var xmlBuf bytes.Buffer
	generated := time.Date(2019, time.December, 4, 22, 29, 36, 0, time.UTC)
	if err := WriteXML(&xmlBuf, run, generated); err != nil {
		t.Fatalf("WriteXML: %v", err)
	}
	got := map[string]string{
		"verbose.txt": renderBasic(t, LevelVerbose, run),
		"normal.txt":  renderBasic(t, LevelNormal, run),
		"results.xml": xmlBuf.String(),
	}

	if *writeGolden {
		for i, f := range archive.Files {
			archive.Files[i].Data = []byte(got[f.Name])
		}
		if err := os.WriteFile(goldenPath, txtar.Format(archive), 0o644); err != nil {
			t.Fatalf("writing %s: %v", goldenPath, err)
		}
		return
	}

	if len(archive.Files) != len(got) {
		t.Fatalf("golden archive has %d files, want %d", len(archive.Files), len(got))
	}
	for _, f := range archive.Files {
		t.Run(f.Name, func(t *testing.T) {
			if diff := cmp.Diff(string(f.Data), got[f.Name]); diff != "" {
				t.Errorf("%s mismatch (-want +got):\n%s", f.Name, diff)
			}
		})
	}
}

func TestBasicSilent(t *testing.T) {
	if out := renderBasic(t, LevelSilent, sampleRun()); out != "" {
		t.Fatalf("silent level printed %q", out)
	}
}

func TestBasicSuiteWarnings(t *testing.T) {
	oldNoColor := color.NoColor
	color.NoColor = true
	defer func() { color.NoColor = oldNoColor }()

	var buf bytes.Buffer
	s := SuiteResult{Title: "broken", InitFailed: true, Tests: []TestResult{{Title: "never"}}}
	if err := (Basic{Level: LevelVerbose}).Suite(&buf, s); err != nil {
		t.Fatalf("Suite: %v", err)
	}
	want := "Suite: broken\n  WARNING - Suite initialization failed for 'broken'.\n"
	if buf.String() != want {
		t.Fatalf("got %q, want %q", buf.String(), want)
	}
}

func TestSummary(t *testing.T) {
	run := Run{Suites: []SuiteResult{
		{Title: "a", Tests: []TestResult{
			{Title: "pass", Asserts: 2},
			{Title: "fail", Asserts: 2, Failures: []Failure{{Condition: "x"}}},
			{Title: "skipped", Inactive: true},
		}},
		{Title: "b", InitFailed: true, Tests: []TestResult{{Title: "t1"}, {Title: "t2"}}},
		{Title: "c", Inactive: true, Tests: []TestResult{{Title: "t", Inactive: true}}},
		{Title: "d", CleanupFailed: true, Tests: []TestResult{{Title: "t", Asserts: 1}}},
	}}
	want := Summary{
		Suites:  Row{Total: 4, Ran: 3, Failed: 2, Inactive: 1},
		Tests:   Row{Total: 7, Ran: 3, Passed: 2, Failed: 1, Inactive: 2},
		Asserts: Row{Total: 5, Ran: 5, Passed: 4, Failed: 1},
	}
	if diff := cmp.Diff(want, run.Summary()); diff != "" {
		t.Fatalf("Summary mismatch (-want +got):\n%s", diff)
	}
	if !run.Failed() {
		t.Fatalf("Failed() = false, want true")
	}
	if (Run{Suites: []SuiteResult{{Title: "ok", Tests: []TestResult{{Title: "t", Asserts: 1}}}}}).Failed() {
		t.Fatalf("passing run reported as failed")
	}
}

func TestParseLevel(t *testing.T) {
	for _, l := range []Level{LevelSilent, LevelNormal, LevelVerbose} {
		got, ok := ParseLevel(l.String())
		if !ok || got != l {
			t.Fatalf("ParseLevel(%q) = %v, %v", l.String(), got, ok)
		}
	}
	if _, ok := ParseLevel("verbose"); ok {
		t.Fatalf("level names are case sensitive")
	}
}

func TestWriteXMLSuiteFailures(t *testing.T) {
	run := Run{Suites: []SuiteResult{
		{Title: "init", InitFailed: true, Tests: []TestResult{{Title: "t"}}},
		{Title: "cleanup", CleanupFailed: true, Tests: []TestResult{{Title: "t", Asserts: 1}}},
		{Title: "off", Inactive: true},
	}}
	var buf bytes.Buffer
	if err := WriteXML(&buf, run, time.Now()); err != nil {
		t.Fatalf("WriteXML: %v", err)
	}
	out := buf.String()
	for _, want := range []string{
		"<FAILURE_REASON>Suite Initialization Failed</FAILURE_REASON>",
		"<FAILURE_REASON>Suite Cleanup Failed</FAILURE_REASON>",
	} {
		if !strings.Contains(out, want) {
			t.Fatalf("report missing %q:\n%s", want, out)
		}
	}
	if strings.Contains(out, "<SUITE_NAME>off</SUITE_NAME>") {
		t.Fatalf("inactive suite listed:\n%s", out)
	}

	var rep xmlReport
	if err := xml.Unmarshal(buf.Bytes(), &rep); err != nil {
		t.Fatalf("decoding report: %v", err)
	}
	var got []string
	for i, s := range rep.Listing.Suites {
		switch {
		case s.Success != nil && s.Failure != nil:
			t.Fatalf("suite entry %d holds both a success and a failure", i)
		case s.Success != nil:
			got = append(got, "success "+s.Success.Name)
		case s.Failure != nil:
			got = append(got, "failure "+s.Failure.Name)
		default:
			t.Fatalf("suite entry %d is empty", i)
		}
	}
	want := []string{"failure init", "success cleanup", "failure cleanup"}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("suite entries mismatch (-want +got):\n%s", diff)
	}
}

func TestWriteFile(t *testing.T) {
	t.Run("creates parent directories", func(t *testing.T) {
		root := filepath.Join(t.TempDir(), "nested", "dir", "run")
		path := ResultsPath(root)
		err := WriteFile(path, func(b *bytes.Buffer) error {
			b.WriteString("<report/>\n")
			return nil
		})
		if err != nil {
			t.Fatalf("WriteFile: %v", err)
		}
		data, err := os.ReadFile(path)
		if err != nil {
			t.Fatalf("reading report: %v", err)
		}
		if string(data) != "<report/>\n" {
			t.Fatalf("unexpected content: %q", data)
		}
		if _, err := os.Stat(path + ".tmp"); !os.IsNotExist(err) {
			t.Fatalf("temporary file left behind: %v", err)
		}
		if !strings.HasSuffix(path, "run-Results.xml") {
			t.Fatalf("unexpected results path %q", path)
		}
	})

	t.Run("render error leaves no file", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "r-Results.xml")
		err := WriteFile(path, func(*bytes.Buffer) error { return os.ErrInvalid })
		if err == nil {
			t.Fatalf("expected error")
		}
		if _, statErr := os.Stat(path); !os.IsNotExist(statErr) {
			t.Fatalf("report written despite render error")
		}
	})
}
