// Package cli wires the linter core to its command line: argument
// parsing, config discovery, file fan-out, and exit codes. All lint
// logic lives below pkg/rules; this layer only moves bytes.
package cli

import (
	"github.com/spf13/cobra"
)

// NewRootCommand assembles the gl-lint command tree.
func NewRootCommand(version string) *cobra.Command {
	root := &cobra.Command{
		Use:     "gl-lint",
		Short:   "A linter for GitLab CI pipeline configurations",
		Version: version,
		Long: `gl-lint checks GitLab CI configuration files for structural errors,
Docker image pitfalls, security issues, and optimization opportunities.

Run 'gl-lint list-rules' to see the full rule catalog.`,
		SilenceUsage: true,
	}

	root.AddCommand(
		NewCheckCommand(),
		NewListRulesCommand(),
		NewInitConfigCommand(),
	)
	return root
}
