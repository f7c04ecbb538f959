// Package lint defines the shared vocabulary of the linter: severities,
// rule categories, diagnostics, and the configuration that controls which
// rules run and how loud they are.
package lint

import (
	"fmt"
	"sort"

	"github.com/gitlabtools/gl-lint/pkg/yamldoc"
)

// Severity is a diagnostic severity level, ordered from least to most
// severe so levels can be compared directly.
type Severity int

const (
	SeverityInfo Severity = iota
	SeverityWarning
	SeverityError
)

// String returns the lowercase name used in config files and reports.
func (s Severity) String() string {
	switch s {
	case SeverityInfo:
		return "info"
	case SeverityWarning:
		return "warning"
	case SeverityError:
		return "error"
	default:
		return fmt.Sprintf("severity(%d)", int(s))
	}
}

// ParseSeverity parses a severity name as written in config files.
func ParseSeverity(name string) (Severity, error) {
	switch name {
	case "info":
		return SeverityInfo, nil
	case "warning":
		return SeverityWarning, nil
	case "error":
		return SeverityError, nil
	default:
		return SeverityInfo, fmt.Errorf("unknown severity %q (expected info, warning, or error)", name)
	}
}

// Category groups rules by concern. Category names appear in config
// files and in list-rules output.
type Category string

const (
	CategoryStructure    Category = "structure"
	CategoryDocker       Category = "docker"
	CategorySecurity     Category = "security"
	CategoryQuality      Category = "quality"
	CategoryOptimization Category = "optimization"
	CategoryCaching      Category = "caching"
)

// Categories lists all rule categories in display order.
func Categories() []Category {
	return []Category{
		CategoryStructure,
		CategoryDocker,
		CategorySecurity,
		CategoryQuality,
		CategoryOptimization,
		CategoryCaching,
	}
}

// Reserved diagnostic codes that do not belong to any rule.
const (
	// CodeParse marks diagnostics produced by the YAML parser: the file
	// could not be read into a document tree at all.
	CodeParse = "parse"
	// CodeBind marks diagnostics produced by the schema binder: the
	// document parsed but a field had the wrong shape and was omitted
	// from the bound configuration.
	CodeBind = "bind"
	// CodeInternal marks diagnostics produced when a rule panics; the
	// failure is reported instead of aborting the run.
	CodeInternal = "internal"
)

// Diagnostic is one finding against one file. Span is nil for findings
// with no precise location, such as whole-file parse failures; Help and
// Job are optional.
type Diagnostic struct {
	Code     string
	Severity Severity
	Message  string
	Help     string
	File     string
	Job      string
	Span     *yamldoc.Span
}

// Position renders the diagnostic's location as "file:line:col". A nil
// span renders as line 1, column 1.
func (d Diagnostic) Position() string {
	line, col := d.startPos()
	return fmt.Sprintf("%s:%d:%d", d.File, line, col)
}

func (d Diagnostic) startPos() (line, col int) {
	if d.Span == nil {
		return 1, 1
	}
	return d.Span.StartLine, d.Span.StartCol
}

// Sort orders diagnostics by file, then start line, then start column,
// then code. Reports rely on this order being stable across runs.
func Sort(diags []Diagnostic) {
	sort.SliceStable(diags, func(i, j int) bool {
		a, b := diags[i], diags[j]
		if a.File != b.File {
			return a.File < b.File
		}
		aLine, aCol := a.startPos()
		bLine, bCol := b.startPos()
		if aLine != bLine {
			return aLine < bLine
		}
		if aCol != bCol {
			return aCol < bCol
		}
		return a.Code < b.Code
	})
}

// MaxSeverity returns the highest severity present, with ok reporting
// whether there were any diagnostics at all.
func MaxSeverity(diags []Diagnostic) (Severity, bool) {
	if len(diags) == 0 {
		return SeverityInfo, false
	}
	max := diags[0].Severity
	for _, d := range diags[1:] {
		if d.Severity > max {
			max = d.Severity
		}
	}
	return max, true
}
