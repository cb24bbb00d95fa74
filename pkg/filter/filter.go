package filter

import (
	"fmt"
	"path"
	"strings"
)

// Config selects which tests run. Unselected tests are reported as
// inactive rather than dropped.
type Config struct {
	Includes []string
	Excludes []string
}

// ParsePatterns splits a comma-separated pattern list, dropping blanks.
func ParsePatterns(s string) []string {
	if s == "" {
		return nil
	}
	var patterns []string
	for _, p := range strings.Split(s, ",") {
		p = strings.TrimSpace(p)
		if p != "" {
			patterns = append(patterns, p)
		}
	}
	return patterns
}

// Validate rejects malformed glob patterns up front so a typo does not
// silently select nothing.
func Validate(flagName string, patterns []string) error {
	for _, p := range patterns {
		if _, err := path.Match(p, "test"); err != nil {
			return fmt.Errorf("invalid %s pattern %q: %w", flagName, p, err)
		}
	}
	return nil
}

// ShouldRun decides whether a test runs. Patterns match either the test
// title alone or "suite/test".
func (c Config) ShouldRun(suite, test string) bool {
	if len(c.Includes) > 0 && !matchAny(c.Includes, suite, test) {
		return false
	}
	return !matchAny(c.Excludes, suite, test)
}

func (c Config) Empty() bool {
	return len(c.Includes) == 0 && len(c.Excludes) == 0
}

func matchAny(patterns []string, suite, test string) bool {
	qualified := suite + "/" + test
	for _, pattern := range patterns {
		if ok, _ := path.Match(pattern, test); ok {
			return true
		}
		if ok, _ := path.Match(pattern, qualified); ok {
			return true
		}
	}
	return false
}
