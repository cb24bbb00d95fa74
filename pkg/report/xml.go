package report

import (
	"encoding/xml"
	"fmt"
	"io"
	"strconv"
	"time"
)

// The automated report keeps the element layout of CUnit-Run.dtd so the
// existing XSL stylesheets can render it.
const xmlPreamble = xml.Header +
	`<?xml-stylesheet type="text/xsl" href="CUnit-Run.xsl" ?>` + "\n" +
	`<!DOCTYPE CUNIT_TEST_RUN_REPORT SYSTEM "CUnit-Run.dtd">` + "\n"

// ResultsSuffix is appended to the report root to name the results file.
const ResultsSuffix = "-Results.xml"

type xmlReport struct {
	XMLName xml.Name   `xml:"CUNIT_TEST_RUN_REPORT"`
	Header  struct{}   `xml:"CUNIT_HEADER"`
	Listing xmlListing `xml:"CUNIT_RESULT_LISTING"`
	Summary xmlSummary `xml:"CUNIT_RUN_SUMMARY"`
	Footer  string     `xml:"CUNIT_FOOTER"`
}

type xmlListing struct {
	Suites []xmlSuite `xml:"CUNIT_RUN_SUITE"`
}

type xmlSuite struct {
	Success *xmlSuiteSuccess `xml:"CUNIT_RUN_SUITE_SUCCESS"`
	Failure *xmlSuiteFailure `xml:"CUNIT_RUN_SUITE_FAILURE"`
}

type xmlSuiteSuccess struct {
	Name    string          `xml:"SUITE_NAME"`
	Records []xmlTestRecord `xml:"CUNIT_RUN_TEST_RECORD"`
}

type xmlSuiteFailure struct {
	Name   string `xml:"SUITE_NAME"`
	Reason string `xml:"FAILURE_REASON"`
}

// xmlTestRecord holds either a success or a single failure; a test with
// several failed assertions gets one record per failure.
type xmlTestRecord struct {
	Success *xmlTestSuccess `xml:"CUNIT_RUN_TEST_SUCCESS"`
	Failure *xmlTestFailure `xml:"CUNIT_RUN_TEST_FAILURE"`
}

type xmlTestSuccess struct {
	Name string `xml:"TEST_NAME"`
}

type xmlTestFailure struct {
	Name      string `xml:"TEST_NAME"`
	File      string `xml:"FILE_NAME"`
	Line      int    `xml:"LINE_NUMBER"`
	Condition string `xml:"CONDITION"`
}

type xmlSummary struct {
	Records []xmlSummaryRecord `xml:"CUNIT_RUN_SUMMARY_RECORD"`
}

type xmlSummaryRecord struct {
	Type      string `xml:"TYPE"`
	Total     string `xml:"TOTAL"`
	Run       string `xml:"RUN"`
	Succeeded string `xml:"SUCCEEDED"`
	Failed    string `xml:"FAILED"`
	Inactive  string `xml:"INACTIVE"`
}

// WriteXML writes the automated results report for run. generated is
// stamped into the footer.
func WriteXML(w io.Writer, run Run, generated time.Time) error {
	rep := xmlReport{
		Footer: "File Generated By unitwrap - " + generated.Format(time.ANSIC),
	}
	for _, s := range run.Suites {
		if s.Inactive {
			continue
		}
		if s.InitFailed {
			rep.Listing.Suites = append(rep.Listing.Suites, xmlSuite{
				Failure: &xmlSuiteFailure{Name: s.Title, Reason: "Suite Initialization Failed"},
			})
			continue
		}
		success := &xmlSuiteSuccess{Name: s.Title}
		for _, t := range s.Tests {
			if t.Inactive {
				continue
			}
			if !t.Failed() {
				success.Records = append(success.Records, xmlTestRecord{Success: &xmlTestSuccess{Name: t.Title}})
				continue
			}
			for _, f := range t.Failures {
				success.Records = append(success.Records, xmlTestRecord{Failure: &xmlTestFailure{
					Name:      t.Title,
					File:      f.File,
					Line:      f.Line,
					Condition: f.Condition,
				}})
			}
		}
		rep.Listing.Suites = append(rep.Listing.Suites, xmlSuite{Success: success})
		// A suite entry holds a success or a failure, never both.
		if s.CleanupFailed {
			rep.Listing.Suites = append(rep.Listing.Suites, xmlSuite{
				Failure: &xmlSuiteFailure{Name: s.Title, Reason: "Suite Cleanup Failed"},
			})
		}
	}

	sum := run.Summary()
	itoa := strconv.Itoa
	rep.Summary.Records = []xmlSummaryRecord{
		{Type: "Suites", Total: itoa(sum.Suites.Total), Run: itoa(sum.Suites.Ran), Succeeded: "- NA -", Failed: itoa(sum.Suites.Failed), Inactive: itoa(sum.Suites.Inactive)},
		{Type: "Test Cases", Total: itoa(sum.Tests.Total), Run: itoa(sum.Tests.Ran), Succeeded: itoa(sum.Tests.Passed), Failed: itoa(sum.Tests.Failed), Inactive: itoa(sum.Tests.Inactive)},
		{Type: "Assertions", Total: itoa(sum.Asserts.Total), Run: itoa(sum.Asserts.Ran), Succeeded: itoa(sum.Asserts.Passed), Failed: itoa(sum.Asserts.Failed), Inactive: "n/a"},
	}

	b, err := xml.MarshalIndent(rep, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling XML report: %w", err)
	}
	if _, err := io.WriteString(w, xmlPreamble); err != nil {
		return err
	}
	if _, err := w.Write(b); err != nil {
		return err
	}
	_, err = io.WriteString(w, "\n")
	return err
}
