// Package console provides styled terminal output for the CLI layer.
// Formatting of lint reports themselves lives in pkg/report; this package
// only decorates CLI status messages and renders metadata tables.
package console

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/gitlabtools/gl-lint/pkg/tty"
)

var (
	errorStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("9")).Bold(true)
	warningStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("11")).Bold(true)
	infoStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("12"))
	successStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
	dimStyle     = lipgloss.NewStyle().Faint(true)

	styled = tty.IsStderrTerminal()
)

func render(style lipgloss.Style, prefix, message string) string {
	if !styled {
		return prefix + message
	}
	return style.Render(prefix) + message
}

// FormatErrorMessage formats an error message for terminal display.
func FormatErrorMessage(message string) string {
	return render(errorStyle, "error: ", message)
}

// FormatWarningMessage formats a warning message for terminal display.
func FormatWarningMessage(message string) string {
	return render(warningStyle, "warning: ", message)
}

// FormatInfoMessage formats an informational message for terminal display.
func FormatInfoMessage(message string) string {
	return render(infoStyle, "", message)
}

// FormatSuccessMessage formats a success message for terminal display.
func FormatSuccessMessage(message string) string {
	return render(successStyle, "✓ ", message)
}

// FormatDimMessage formats a de-emphasized message for terminal display.
func FormatDimMessage(message string) string {
	if !styled {
		return message
	}
	return dimStyle.Render(message)
}

// TableConfig describes a table for RenderTable.
type TableConfig struct {
	Title   string
	Headers []string
	Rows    [][]string
}

// RenderTable renders a plain-text table with padded columns. Output is
// deterministic and uncolored so it can be piped or golden-tested.
func RenderTable(config TableConfig) string {
	var out strings.Builder

	if config.Title != "" {
		out.WriteString(config.Title)
		out.WriteString("\n\n")
	}

	widths := make([]int, len(config.Headers))
	for i, h := range config.Headers {
		widths[i] = len(h)
	}
	for _, row := range config.Rows {
		for i, cell := range row {
			if i < len(widths) && len(cell) > widths[i] {
				widths[i] = len(cell)
			}
		}
	}

	writeRow := func(cells []string) {
		for i, cell := range cells {
			if i > 0 {
				out.WriteString("  ")
			}
			if i == len(cells)-1 {
				out.WriteString(cell)
			} else {
				fmt.Fprintf(&out, "%-*s", widths[i], cell)
			}
		}
		out.WriteString("\n")
	}

	writeRow(config.Headers)
	separators := make([]string, len(config.Headers))
	for i := range separators {
		separators[i] = strings.Repeat("-", widths[i])
	}
	writeRow(separators)
	for _, row := range config.Rows {
		writeRow(row)
	}

	return out.String()
}
