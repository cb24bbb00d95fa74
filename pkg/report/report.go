package report

import "time"

// Failure is one failed assertion.
type Failure struct {
	File      string
	Line      int
	Condition string
}

type TestResult struct {
	Title    string
	Inactive bool
	Asserts  int
	Failures []Failure
}

func (t TestResult) Failed() bool { return len(t.Failures) > 0 }

type SuiteResult struct {
	Title         string
	Inactive      bool
	InitFailed    bool
	CleanupFailed bool
	Tests         []TestResult
}

func (s SuiteResult) Failed() bool { return s.InitFailed || s.CleanupFailed }

// Run is the outcome of one pass over the registry.
type Run struct {
	Suites  []SuiteResult
	Elapsed time.Duration
}

// Row is one line of the run summary table. Passed is meaningless for
// suites and Inactive for asserts; the renderers print n/a for those.
type Row struct {
	Total, Ran, Passed, Failed, Inactive int
}

type Summary struct {
	Suites  Row
	Tests   Row
	Asserts Row
}

func (r Run) Summary() Summary {
	var sum Summary
	for _, s := range r.Suites {
		sum.Suites.Total++
		if s.Inactive {
			sum.Suites.Inactive++
			sum.Tests.Total += len(s.Tests)
			sum.Tests.Inactive += len(s.Tests)
			continue
		}
		sum.Suites.Ran++
		if s.Failed() {
			sum.Suites.Failed++
		}
		if s.InitFailed {
			// Tests of a suite that failed to initialize never ran.
			sum.Tests.Total += len(s.Tests)
			continue
		}
		for _, t := range s.Tests {
			sum.Tests.Total++
			switch {
			case t.Inactive:
				sum.Tests.Inactive++
				continue
			case t.Failed():
				sum.Tests.Failed++
			default:
				sum.Tests.Passed++
			}
			sum.Tests.Ran++
			sum.Asserts.Total += t.Asserts
			sum.Asserts.Ran += t.Asserts
			sum.Asserts.Failed += len(t.Failures)
		}
	}
	sum.Asserts.Passed = sum.Asserts.Ran - sum.Asserts.Failed
	return sum
}

// Failed reports whether any suite setup/teardown or test failed.
func (r Run) Failed() bool {
	s := r.Summary()
	return s.Suites.Failed > 0 || s.Tests.Failed > 0
}
