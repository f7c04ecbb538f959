package report

import (
	"bytes"
	"fmt"

	"github.com/gitlabtools/gl-lint/pkg/lint"
)

// Console renders one block per diagnostic in cargo style:
//
//	warning[GL005]: image 'node:latest' uses the latest tag
//	  --> .gitlab-ci.yml:4:10
//	  help: pin an explicit version tag
//
// Output carries no ANSI styling; callers that want color apply it at
// the terminal boundary.
func Console(results []FileResult) []byte {
	var buf bytes.Buffer
	var errors, warnings, infos int

	for _, d := range Diagnostics(results) {
		switch d.Severity {
		case lint.SeverityError:
			errors++
		case lint.SeverityWarning:
			warnings++
		default:
			infos++
		}

		fmt.Fprintf(&buf, "%s[%s]: %s\n", d.Severity, d.Code, d.Message)
		fmt.Fprintf(&buf, "  --> %s\n", d.Position())
		if d.Help != "" {
			fmt.Fprintf(&buf, "  help: %s\n", d.Help)
		}
		buf.WriteByte('\n')
	}

	if errors+warnings+infos == 0 {
		fmt.Fprintf(&buf, "checked %d file(s): no issues found\n", len(results))
		return buf.Bytes()
	}
	fmt.Fprintf(&buf, "checked %d file(s): %d error(s), %d warning(s), %d info\n",
		len(results), errors, warnings, infos)
	return buf.Bytes()
}
