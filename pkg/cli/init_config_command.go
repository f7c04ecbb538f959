package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/gitlabtools/gl-lint/pkg/console"
)

const defaultConfigTemplate = `# gl-lint configuration
# Severity levels: info, warning, error

strict_mode: false
fail_on_warnings: false

# Disable whole categories of rules:
# categories:
#   optimization: false

# Override individual rules:
# rules:
#   GL005:
#     enabled: false
#   GL008:
#     level: warning
`

// NewInitConfigCommand creates the init-config command
func NewInitConfigCommand() *cobra.Command {
	var (
		outputPath string
		force      bool
	)

	cmd := &cobra.Command{
		Use:   "init-config",
		Short: "Write a default .gl-lint.yml configuration file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := os.Stat(outputPath); err == nil && !force {
				msg := fmt.Sprintf("%s already exists (use --force to overwrite)", outputPath)
				fmt.Fprintln(os.Stderr, console.FormatErrorMessage(msg))
				return fmt.Errorf("%s already exists", outputPath)
			}

			if err := os.WriteFile(outputPath, []byte(defaultConfigTemplate), 0644); err != nil {
				fmt.Fprintln(os.Stderr, console.FormatErrorMessage(err.Error()))
				return err
			}
			fmt.Fprintln(os.Stderr, console.FormatSuccessMessage(fmt.Sprintf("wrote %s", outputPath)))
			return nil
		},
	}

	cmd.Flags().StringVarP(&outputPath, "output", "o", ".gl-lint.yml", "where to write the config file")
	cmd.Flags().BoolVar(&force, "force", false, "overwrite an existing file")

	return cmd
}
