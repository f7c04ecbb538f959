package report

import (
	"encoding/json"
	"encoding/xml"
	"strings"
	"testing"

	"github.com/charmbracelet/x/exp/golden"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gitlabtools/gl-lint/pkg/lint"
	"github.com/gitlabtools/gl-lint/pkg/yamldoc"
)

func span(line, col, endLine, endCol int) *yamldoc.Span {
	return &yamldoc.Span{StartLine: line, StartCol: col, EndLine: endLine, EndCol: endCol}
}

func sampleResults() []FileResult {
	return []FileResult{{
		File: ".gitlab-ci.yml",
		Diagnostics: []lint.Diagnostic{
			{
				Code:     "GL020",
				Severity: lint.SeverityError,
				Message:  "CI_DEBUG_TRACE is permanently enabled in global variables",
				File:     ".gitlab-ci.yml",
				Span:     span(2, 18, 2, 22),
			},
			{
				Code:     "GL005",
				Severity: lint.SeverityWarning,
				Message:  "image 'node:latest' uses the latest tag",
				Help:     "pin an explicit version tag",
				File:     ".gitlab-ci.yml",
				Job:      "build_job",
				Span:     span(4, 10, 4, 21),
			},
		},
	}}
}

func TestParseFormat(t *testing.T) {
	for _, name := range []string{"console", "json", "sarif", "junit"} {
		format, err := ParseFormat(name)
		require.NoError(t, err)
		assert.Equal(t, name, string(format))
	}

	_, err := ParseFormat("yaml")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown output format")
}

func TestConsoleGolden(t *testing.T) {
	golden.RequireEqual(t, Console(sampleResults()))
}

func TestConsoleCleanRun(t *testing.T) {
	out := Console([]FileResult{{File: "a.yml"}, {File: "b.yml"}})
	assert.Equal(t, "checked 2 file(s): no issues found\n", string(out))
}

func TestJSONFields(t *testing.T) {
	data, err := JSON(sampleResults())
	require.NoError(t, err)

	var decoded []map[string]any
	require.NoError(t, json.Unmarshal(data, &decoded))
	require.Len(t, decoded, 2)

	first := decoded[0]
	assert.Equal(t, "GL020", first["code"])
	assert.Equal(t, "error", first["severity"])
	assert.Equal(t, float64(2), first["line"])
	assert.Equal(t, float64(18), first["column"])
	assert.Nil(t, first["help"], "absent help must be JSON null")

	second := decoded[1]
	assert.Equal(t, "pin an explicit version tag", second["help"])
	assert.Equal(t, float64(21), second["end_column"])
}

func TestJSONNilSpanDefaultsToStart(t *testing.T) {
	data, err := JSON([]FileResult{{
		File: "ci.yml",
		Diagnostics: []lint.Diagnostic{{
			Code: "GL001", Severity: lint.SeverityError, Message: "m", File: "ci.yml",
		}},
	}})
	require.NoError(t, err)

	var decoded []map[string]any
	require.NoError(t, json.Unmarshal(data, &decoded))
	require.Len(t, decoded, 1)
	assert.Equal(t, float64(1), decoded[0]["line"])
	assert.Equal(t, float64(1), decoded[0]["column"])
}

func TestSARIFSingleWarning(t *testing.T) {
	data, err := SARIF([]FileResult{{
		File: "ci.yml",
		Diagnostics: []lint.Diagnostic{{
			Code:     "GL005",
			Severity: lint.SeverityWarning,
			Message:  "image 'node:latest' uses the latest tag",
			File:     "ci.yml",
			Span:     span(4, 10, 4, 21),
		}},
	}})
	require.NoError(t, err)

	var log sarifLog
	require.NoError(t, json.Unmarshal(data, &log))
	assert.Equal(t, "2.1.0", log.Version)
	require.Len(t, log.Runs, 1)

	run := log.Runs[0]
	assert.Equal(t, "gl-lint", run.Tool.Driver.Name)
	assert.Len(t, run.Tool.Driver.Rules, 33)
	require.Len(t, run.Results, 1)
	assert.Equal(t, "GL005", run.Results[0].RuleID)
	assert.Equal(t, "warning", run.Results[0].Level)
	assert.Equal(t, 4, run.Results[0].Locations[0].PhysicalLocation.Region.StartLine)
}

func TestSARIFInfoMapsToNote(t *testing.T) {
	data, err := SARIF([]FileResult{{
		File: "ci.yml",
		Diagnostics: []lint.Diagnostic{{
			Code: "GL008", Severity: lint.SeverityInfo, Message: "m", File: "ci.yml",
		}},
	}})
	require.NoError(t, err)

	var log sarifLog
	require.NoError(t, json.Unmarshal(data, &log))
	assert.Equal(t, "note", log.Runs[0].Results[0].Level)
}

func TestJUnitOneTestcasePerRule(t *testing.T) {
	data, err := JUnit([]FileResult{{
		File: "ci.yml",
		Diagnostics: []lint.Diagnostic{
			{Code: "GL001", Severity: lint.SeverityError, Message: "job has no script", File: "ci.yml"},
			{Code: "GL005", Severity: lint.SeverityWarning, Message: "latest tag", File: "ci.yml"},
			{Code: "GL005", Severity: lint.SeverityWarning, Message: "another latest tag", File: "ci.yml"},
		},
	}})
	require.NoError(t, err)

	var doc junitTestsuites
	require.NoError(t, xml.Unmarshal(data, &doc))
	require.Len(t, doc.Suites, 1)

	suite := doc.Suites[0]
	assert.Equal(t, "ci.yml", suite.Name)
	assert.Equal(t, 33, suite.Tests)
	assert.Equal(t, 2, suite.Failures)
	assert.Equal(t, 0, suite.Errors)
	require.Len(t, suite.Cases, 33)

	failed := 0
	for _, tc := range suite.Cases {
		if tc.Failure != nil {
			failed++
			if strings.HasPrefix(tc.Name, "GL005") {
				// Both GL005 findings aggregate into one failure body.
				assert.Contains(t, tc.Failure.Body, "latest tag")
				assert.Contains(t, tc.Failure.Body, "another latest tag")
			}
		}
	}
	assert.Equal(t, 2, failed)
}

func TestJUnitParseErrorTestcase(t *testing.T) {
	data, err := JUnit([]FileResult{{
		File: "broken.yml",
		Diagnostics: []lint.Diagnostic{{
			Code:     lint.CodeParse,
			Severity: lint.SeverityError,
			Message:  "duplicate mapping key \"stage\"",
			File:     "broken.yml",
		}},
	}})
	require.NoError(t, err)

	var doc junitTestsuites
	require.NoError(t, xml.Unmarshal(data, &doc))
	suite := doc.Suites[0]
	assert.Equal(t, 34, suite.Tests)
	assert.Equal(t, 1, suite.Errors)
	assert.Equal(t, 0, suite.Failures)

	last := suite.Cases[len(suite.Cases)-1]
	assert.Equal(t, "parse", last.Name)
	require.NotNil(t, last.Error)
	assert.Contains(t, last.Error.Body, "duplicate mapping key")
}

func TestJUnitBindErrorTestcase(t *testing.T) {
	data, err := JUnit([]FileResult{{
		File: "odd.yml",
		Diagnostics: []lint.Diagnostic{{
			Code:     lint.CodeBind,
			Severity: lint.SeverityError,
			Message:  "stages must be a sequence of strings",
			File:     "odd.yml",
		}},
	}})
	require.NoError(t, err)

	var doc junitTestsuites
	require.NoError(t, xml.Unmarshal(data, &doc))
	suite := doc.Suites[0]
	assert.Equal(t, 34, suite.Tests)
	assert.Equal(t, 1, suite.Errors)

	last := suite.Cases[len(suite.Cases)-1]
	assert.Equal(t, "bind", last.Name)
	require.NotNil(t, last.Error)
	assert.Contains(t, last.Error.Body, "stages must be a sequence")
}

func TestRenderIsDeterministic(t *testing.T) {
	results := sampleResults()
	for _, format := range Formats() {
		first, err := Render(format, results)
		require.NoError(t, err)
		second, err := Render(format, results)
		require.NoError(t, err)
		assert.Equal(t, first, second, "format %s must be byte-deterministic", format)
	}
}
