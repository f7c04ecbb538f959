package cli

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gitlabtools/gl-lint/pkg/lint"
)

func writePipeline(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "ci.yml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestCheckFilesKeepsInputOrder(t *testing.T) {
	clean := writePipeline(t, "job:\n  script: [make]\n")
	broken := writePipeline(t, "job:\n  stage: a\n  stage: b\n")
	missing := filepath.Join(t.TempDir(), "absent.yml")

	results := CheckFiles([]string{broken, clean, missing}, nil)
	require.Len(t, results, 3)
	assert.Equal(t, broken, results[0].File)
	assert.Equal(t, clean, results[1].File)
	assert.Equal(t, missing, results[2].File)

	require.Len(t, results[0].Diagnostics, 1)
	assert.Equal(t, lint.CodeParse, results[0].Diagnostics[0].Code)

	require.Len(t, results[2].Diagnostics, 1)
	assert.Contains(t, results[2].Diagnostics[0].Message, "cannot read file")
}

func TestCheckFilesDeterministicAcrossRuns(t *testing.T) {
	paths := []string{
		writePipeline(t, "a_job:\n  image: node:latest\n  script: [run]\n"),
		writePipeline(t, "b_job:\n  script: [make]\n"),
	}

	first := CheckFiles(paths, nil)
	second := CheckFiles(paths, nil)
	assert.Equal(t, first, second)
}

func TestCheckCommandFlagsOverrideConfigFile(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)

	// The config file leaves strict mode off; --strict must win and
	// escalate the GL005 warning to an error exit.
	require.NoError(t, os.WriteFile(".gl-lint.yml", []byte("strict_mode: false\n"), 0644))
	require.NoError(t, os.WriteFile("ci.yml",
		[]byte("build_job:\n  image: node:latest\n  script: [make]\n"), 0644))

	cmd := NewCheckCommand()
	cmd.SetArgs([]string{"ci.yml", "--output", filepath.Join(dir, "report.txt")})
	require.NoError(t, cmd.Execute(), "GL005 is only a warning without strict mode")

	cmd = NewCheckCommand()
	cmd.SetArgs([]string{"ci.yml", "--strict", "--output", filepath.Join(dir, "report.txt")})
	err := cmd.Execute()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "error(s)")
}

func TestCheckCommandFailOnWarnings(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)
	require.NoError(t, os.WriteFile("ci.yml",
		[]byte("build_job:\n  image: node:latest\n  script: [make]\n"), 0644))

	cmd := NewCheckCommand()
	cmd.SetArgs([]string{"ci.yml", "--fail-on-warnings", "--output", filepath.Join(dir, "report.txt")})
	err := cmd.Execute()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "warning(s)")
}

func TestCheckCommandRejectsUnknownFormat(t *testing.T) {
	cmd := NewCheckCommand()
	cmd.SetArgs([]string{"ci.yml", "--format", "xml"})
	err := cmd.Execute()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown output format")
}
