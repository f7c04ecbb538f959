package console

import (
	"testing"

	"github.com/charmbracelet/x/exp/golden"
	"github.com/stretchr/testify/assert"
)

func TestFormatMessagesUnstyled(t *testing.T) {
	// Test binaries never run with stderr on a TTY, so output is plain.
	assert.Equal(t, "error: boom", FormatErrorMessage("boom"))
	assert.Equal(t, "warning: careful", FormatWarningMessage("careful"))
	assert.Equal(t, "note", FormatInfoMessage("note"))
	assert.Equal(t, "✓ done", FormatSuccessMessage("done"))
	assert.Equal(t, "quiet", FormatDimMessage("quiet"))
}

func TestRenderTable(t *testing.T) {
	output := RenderTable(TableConfig{
		Title:   "2 rules registered",
		Headers: []string{"Code", "Severity", "Description"},
		Rows: [][]string{
			{"GL001", "error", "Jobs must define script, trigger, extends, or run"},
			{"GL005", "warning", "Images must not rely on the latest tag"},
		},
	})
	golden.RequireEqual(t, []byte(output))
}

func TestRenderTableIsDeterministic(t *testing.T) {
	config := TableConfig{
		Headers: []string{"A", "B"},
		Rows:    [][]string{{"one", "two"}, {"three", "four"}},
	}
	assert.Equal(t, RenderTable(config), RenderTable(config))
}
