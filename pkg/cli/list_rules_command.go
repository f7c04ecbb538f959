package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/gitlabtools/gl-lint/pkg/console"
	"github.com/gitlabtools/gl-lint/pkg/rules"
)

// NewListRulesCommand creates the list-rules command
func NewListRulesCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "list-rules",
		Short: "List all lint rules with their categories and severities",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			catalog := rules.Registry()
			rows := make([][]string, 0, len(catalog))
			for _, desc := range catalog {
				rows = append(rows, []string{
					desc.Code,
					string(desc.Category),
					desc.Severity.String(),
					desc.Title,
				})
			}

			fmt.Fprint(cmd.OutOrStdout(), console.RenderTable(console.TableConfig{
				Title:   fmt.Sprintf("%d rules registered", len(catalog)),
				Headers: []string{"Code", "Category", "Severity", "Description"},
				Rows:    rows,
			}))
			return nil
		},
	}
}
