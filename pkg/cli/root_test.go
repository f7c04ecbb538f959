package cli

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRootCommandSubcommands(t *testing.T) {
	root := NewRootCommand("test")
	assert.Equal(t, "gl-lint", root.Use)

	var names []string
	for _, cmd := range root.Commands() {
		names = append(names, cmd.Name())
	}
	assert.Contains(t, names, "check")
	assert.Contains(t, names, "list-rules")
	assert.Contains(t, names, "init-config")
}

func TestListRulesOutput(t *testing.T) {
	root := NewRootCommand("test")
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetArgs([]string{"list-rules"})
	require.NoError(t, root.Execute())

	text := out.String()
	assert.Contains(t, text, "33 rules registered")
	assert.Contains(t, text, "GL001")
	assert.Contains(t, text, "GL033")
	assert.Contains(t, text, "security")
}

func TestInitConfigRefusesOverwrite(t *testing.T) {
	t.Chdir(t.TempDir())

	root := NewRootCommand("test")
	root.SetArgs([]string{"init-config"})
	require.NoError(t, root.Execute())

	// The generated file must load cleanly.
	config, source, err := LoadConfig("")
	require.NoError(t, err)
	assert.Equal(t, ".gl-lint.yml", source)
	assert.False(t, config.StrictMode)

	root = NewRootCommand("test")
	root.SetArgs([]string{"init-config"})
	err = root.Execute()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "already exists")
}
