package report

import (
	"bytes"
	"encoding/xml"
	"strings"

	"github.com/gitlabtools/gl-lint/pkg/lint"
	"github.com/gitlabtools/gl-lint/pkg/rules"
)

type junitTestsuites struct {
	XMLName xml.Name         `xml:"testsuites"`
	Suites  []junitTestsuite `xml:"testsuite"`
}

type junitTestsuite struct {
	Name     string          `xml:"name,attr"`
	Tests    int             `xml:"tests,attr"`
	Failures int             `xml:"failures,attr"`
	Errors   int             `xml:"errors,attr"`
	Cases    []junitTestcase `xml:"testcase"`
}

type junitTestcase struct {
	Name      string        `xml:"name,attr"`
	Classname string        `xml:"classname,attr"`
	Failure   *junitFailure `xml:"failure,omitempty"`
	Error     *junitFailure `xml:"error,omitempty"`
}

type junitFailure struct {
	Message string `xml:"message,attr"`
	Body    string `xml:",chardata"`
}

// JUnit renders one testsuite per input file with one testcase per
// registered rule code: failed when the rule produced diagnostics for
// the file, passing otherwise. Parse, bind, and internal diagnostics get
// their own error testcases. The mapping exists so CI systems can show
// pass/fail counts, not as a precision report.
func JUnit(results []FileResult) ([]byte, error) {
	catalog := rules.Registry()

	doc := junitTestsuites{}
	for _, r := range results {
		byCode := map[string][]lint.Diagnostic{}
		for _, d := range r.Diagnostics {
			byCode[d.Code] = append(byCode[d.Code], d)
		}

		suite := junitTestsuite{Name: r.File}
		for _, desc := range catalog {
			tc := junitTestcase{Name: desc.Code + ": " + desc.Title, Classname: r.File}
			if diags := byCode[desc.Code]; len(diags) > 0 {
				tc.Failure = &junitFailure{
					Message: desc.Title,
					Body:    joinMessages(diags),
				}
				suite.Failures++
			}
			suite.Cases = append(suite.Cases, tc)
		}

		for _, code := range []string{lint.CodeParse, lint.CodeBind, lint.CodeInternal} {
			diags := byCode[code]
			if len(diags) == 0 {
				continue
			}
			suite.Cases = append(suite.Cases, junitTestcase{
				Name:      code,
				Classname: r.File,
				Error:     &junitFailure{Message: code, Body: joinMessages(diags)},
			})
			suite.Errors++
		}

		suite.Tests = len(suite.Cases)
		doc.Suites = append(doc.Suites, suite)
	}

	body, err := xml.MarshalIndent(doc, "", "  ")
	if err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	buf.WriteString(xml.Header)
	buf.Write(body)
	buf.WriteByte('\n')
	return buf.Bytes(), nil
}

func joinMessages(diags []lint.Diagnostic) string {
	lines := make([]string, 0, len(diags))
	for _, d := range diags {
		lines = append(lines, d.Position()+": "+d.Message)
	}
	return strings.Join(lines, "\n")
}
