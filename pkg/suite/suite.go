// Package suite holds test tables: tests grouped into suites, suites
// produced by getters, and a registry that rejects ambiguous tables.
package suite

import (
	"errors"
	"fmt"

	"github.com/nethoundsh/unitwrap/pkg/report"
)

var (
	ErrNilSuite       = errors.New("nil suite")
	ErrNoSuiteTitle   = errors.New("suite has no title")
	ErrDuplicateSuite = errors.New("duplicate suite title")
	ErrNoTestTitle    = errors.New("test has no title")
	ErrNoTestFunc     = errors.New("test has no function")
	ErrDuplicateTest  = errors.New("duplicate test title")
)

// Test is one named test procedure.
type Test struct {
	Title string
	Func  func(t *T)
}

// Suite groups tests behind optional setup and teardown. Init runs once
// before the tests; if it fails none of them run. Cleanup runs once after.
type Suite struct {
	Title   string
	Init    func() error
	Cleanup func() error
	Tests   []Test
}

// Getter returns a suite definition, typically a package-level table.
type Getter func() *Suite

type Registry struct {
	suites []*Suite
	titles map[string]bool
}

func NewRegistry() *Registry {
	return &Registry{titles: make(map[string]bool)}
}

// Add validates s and appends it to the registry.
func (r *Registry) Add(s *Suite) error {
	if s == nil {
		return ErrNilSuite
	}
	if s.Title == "" {
		return ErrNoSuiteTitle
	}
	if r.titles[s.Title] {
		return fmt.Errorf("%w: %q", ErrDuplicateSuite, s.Title)
	}
	seen := make(map[string]bool, len(s.Tests))
	for i, t := range s.Tests {
		switch {
		case t.Title == "":
			return fmt.Errorf("suite %q, test #%d: %w", s.Title, i+1, ErrNoTestTitle)
		case t.Func == nil:
			return fmt.Errorf("suite %q, test %q: %w", s.Title, t.Title, ErrNoTestFunc)
		case seen[t.Title]:
			return fmt.Errorf("suite %q: %w: %q", s.Title, ErrDuplicateTest, t.Title)
		}
		seen[t.Title] = true
	}
	r.titles[s.Title] = true
	r.suites = append(r.suites, s)
	return nil
}

// AddAll registers the suite of every getter in order and stops at the
// first error.
func (r *Registry) AddAll(getters []Getter) error {
	for i, get := range getters {
		if get == nil {
			return fmt.Errorf("suite getter #%d: %w", i+1, ErrNilSuite)
		}
		if err := r.Add(get()); err != nil {
			return err
		}
	}
	return nil
}

func (r *Registry) Suites() []*Suite { return r.suites }

func (r *Registry) Len() int { return len(r.suites) }

// Run executes the suite. Tests for which selected returns false are
// reported inactive; a suite with no selected test is inactive and its
// Init and Cleanup are skipped.
func (s *Suite) Run(selected func(suite, test string) bool) report.SuiteResult {
	res := report.SuiteResult{Title: s.Title, Tests: make([]report.TestResult, len(s.Tests))}
	active := 0
	for i, t := range s.Tests {
		res.Tests[i].Title = t.Title
		if selected != nil && !selected(s.Title, t.Title) {
			res.Tests[i].Inactive = true
			continue
		}
		active++
	}
	if active == 0 && len(s.Tests) > 0 {
		res.Inactive = true
		return res
	}

	if s.Init != nil {
		if err := s.Init(); err != nil {
			res.InitFailed = true
			return res
		}
	}
	for i, t := range s.Tests {
		if res.Tests[i].Inactive {
			continue
		}
		res.Tests[i] = t.Run(s.Title)
	}
	if s.Cleanup != nil {
		if err := s.Cleanup(); err != nil {
			res.CleanupFailed = true
		}
	}
	return res
}
