package main

import (
	"fmt"
	"os"

	"github.com/nethoundsh/unitwrap/pkg/suite"
)

// exampleSuites is the suite table run by the program. Test suite #1 and
// Test suite 2 each contain one deliberate failure.
var exampleSuites = []suite.Getter{
	additionSuite,
	printSuite,
}

func myAddition(a, b int) int {
	return a + b
}

func printSomething() {
	fmt.Fprint(os.Stdout, "The quick brown fox jumps over the lazy dog!")
}

func additionSuite() *suite.Suite {
	return &suite.Suite{
		Title: "Test suite #1",
		Tests: []suite.Test{
			{Title: "TS#1 - Test #1", Func: func(t *suite.T) {
				t.Assert(2 == myAddition(1, 1), "2 == myAddition(1, 1)")
				t.Assert(3 == myAddition(2, 2), "3 == myAddition(2, 2)")
				t.Assert(5 == myAddition(2, 3), "5 == myAddition(2, 3)")
			}},
			{Title: "TS#1 - Test #2", Func: func(t *suite.T) {
				t.Assert(-2 == myAddition(-1, -1), "-2 == myAddition(-1, -1)")
				t.Assert(-4 == myAddition(-2, -2), "-4 == myAddition(-2, -2)")
				t.Assert(-5 == myAddition(-2, -3), "-5 == myAddition(-2, -3)")
			}},
		},
	}
}

func printSuite() *suite.Suite {
	return &suite.Suite{
		Title: "Test suite 2",
		Tests: []suite.Test{
			{Title: "First test of TS2", Func: func(t *suite.T) {
				t.CheckOutput(printSomething, "The quick brown fox jumps over the lazy dog!\n")
				t.CheckOutput(printSomething, "The quick brown fox jumps over the lazy dog!")
				t.CheckOutput(printSomething, "The quick brown dog jumps over the lazy fox!\n")
			}},
		},
	}
}
