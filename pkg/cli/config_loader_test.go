package cli

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gitlabtools/gl-lint/pkg/lint"
)

func writeConfig(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestLoadConfigYAML(t *testing.T) {
	path := writeConfig(t, ".gl-lint.yml", `strict_mode: true
fail_on_warnings: true
categories:
  optimization: false
rules:
  GL005:
    enabled: false
  GL008:
    level: error
`)

	config, source, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, path, source)
	assert.True(t, config.StrictMode)
	assert.True(t, config.FailOnWarnings)
	assert.False(t, config.Categories[lint.CategoryOptimization])

	gl005 := config.Rules["GL005"]
	require.NotNil(t, gl005.Enabled)
	assert.False(t, *gl005.Enabled)
	assert.Nil(t, gl005.Level)

	gl008 := config.Rules["GL008"]
	require.NotNil(t, gl008.Level)
	assert.Equal(t, lint.SeverityError, *gl008.Level)
}

func TestLoadConfigJSONAndTOML(t *testing.T) {
	jsonPath := writeConfig(t, ".gl-lint.json",
		`{"strict_mode": true, "rules": {"GL012": {"level": "warning"}}}`)
	config, _, err := LoadConfig(jsonPath)
	require.NoError(t, err)
	assert.True(t, config.StrictMode)
	require.NotNil(t, config.Rules["GL012"].Level)
	assert.Equal(t, lint.SeverityWarning, *config.Rules["GL012"].Level)

	tomlPath := writeConfig(t, ".gl-lint.toml", `fail_on_warnings = true

[rules.GL020]
enabled = false
`)
	config, _, err = LoadConfig(tomlPath)
	require.NoError(t, err)
	assert.True(t, config.FailOnWarnings)
	require.NotNil(t, config.Rules["GL020"].Enabled)
	assert.False(t, *config.Rules["GL020"].Enabled)
}

func TestLoadConfigRejectsBadSeverity(t *testing.T) {
	path := writeConfig(t, ".gl-lint.yml", `rules:
  GL005:
    level: critical
`)
	_, _, err := LoadConfig(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid config file")
}

func TestLoadConfigRejectsUnknownKeys(t *testing.T) {
	path := writeConfig(t, ".gl-lint.yml", "strictmode: true\n")
	_, _, err := LoadConfig(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid config file")
}

func TestLoadConfigRejectsBadRuleCode(t *testing.T) {
	path := writeConfig(t, ".gl-lint.yml", `rules:
  NOTARULE:
    enabled: false
`)
	_, _, err := LoadConfig(path)
	require.Error(t, err)
}

func TestLoadConfigDiscovery(t *testing.T) {
	t.Chdir(t.TempDir())

	config, source, err := LoadConfig("")
	require.NoError(t, err)
	assert.Empty(t, source, "no config file means defaults")
	assert.False(t, config.StrictMode)

	require.NoError(t, os.WriteFile(".gl-lint.yml", []byte("strict_mode: true\n"), 0644))
	config, source, err = LoadConfig("")
	require.NoError(t, err)
	assert.Equal(t, ".gl-lint.yml", source)
	assert.True(t, config.StrictMode)
}

func TestLoadConfigMissingExplicitPath(t *testing.T) {
	_, _, err := LoadConfig(filepath.Join(t.TempDir(), "nope.yml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "reading config file")
}
