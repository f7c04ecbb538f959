// Package report renders diagnostic collections into the supported
// output formats. Formatters are stateless encoders; all of them produce
// byte-identical output for identical input.
package report

import (
	"fmt"

	"github.com/gitlabtools/gl-lint/pkg/lint"
)

// Format identifies one of the supported output formats.
type Format string

const (
	FormatConsole Format = "console"
	FormatJSON    Format = "json"
	FormatSARIF   Format = "sarif"
	FormatJUnit   Format = "junit"
)

// Formats lists the supported formats in display order.
func Formats() []Format {
	return []Format{FormatConsole, FormatJSON, FormatSARIF, FormatJUnit}
}

// ParseFormat validates a format name from the command line.
func ParseFormat(name string) (Format, error) {
	for _, f := range Formats() {
		if string(f) == name {
			return f, nil
		}
	}
	return "", fmt.Errorf("unknown output format %q (expected console, json, sarif, or junit)", name)
}

// FileResult is the outcome of linting one input file. Results keep
// their per-file grouping so formats that report clean files, like
// JUnit, can do so.
type FileResult struct {
	File        string
	Diagnostics []lint.Diagnostic
}

// Diagnostics flattens results into one slice in input-file order.
func Diagnostics(results []FileResult) []lint.Diagnostic {
	var out []lint.Diagnostic
	for _, r := range results {
		out = append(out, r.Diagnostics...)
	}
	return out
}

// Render encodes results in the requested format.
func Render(format Format, results []FileResult) ([]byte, error) {
	switch format {
	case FormatConsole:
		return Console(results), nil
	case FormatJSON:
		return JSON(results)
	case FormatSARIF:
		return SARIF(results)
	case FormatJUnit:
		return JUnit(results)
	default:
		return nil, fmt.Errorf("unknown output format %q", format)
	}
}
