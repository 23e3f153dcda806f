package commands

import (
	"github.com/spf13/cobra"

	"github.com/fivetwenty-io/linctl/internal/constants"
	"github.com/fivetwenty-io/linctl/pkg/linear"
)

// NewLabelsCommand creates the labels command group.
func NewLabelsCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "labels",
		Short: "Manage issue labels",
	}

	cmd.AddCommand(newLabelsCreateCommand())

	return cmd
}

func newLabelsCreateCommand() *cobra.Command {
	var (
		team  string
		color string
	)

	cmd := &cobra.Command{
		Use:   "create NAME",
		Short: "Create an issue label",
		Long:  "Create an issue label, workspace-wide or for one team. The cached label list is cleared.",
		Args:  usageArgs(cobra.ExactArgs(1)),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := CreateClient()
			if err != nil {
				return err
			}
			defer client.Close()

			input := map[string]any{"name": args[0]}

			if color != "" {
				input["color"] = color
			}

			if team != "" {
				teamID, err := client.ResolveTeamID(cmd.Context(), team)
				if err != nil {
					return err
				}

				input["teamId"] = teamID
			}

			data, err := client.Mutate(cmd.Context(), linear.CreateLabelDocument,
				map[string]any{"input": input}, linear.CacheTypeLabels)
			if err != nil {
				return err
			}

			label := linear.Lookup(data, "issueLabelCreate", "issueLabel")

			format := outputFormat()
			if format != constants.FormatTable {
				return writeStructured(cmd.OutOrStdout(), format, label)
			}

			return renderTable(cmd.OutOrStdout(), []string{"ID", "Name", "Color"}, [][]string{{
				linear.LookupString(label, "id"),
				linear.LookupString(label, "name"),
				linear.LookupString(label, "color"),
			}})
		},
	}

	cmd.Flags().StringVar(&team, "team", "", "team key, name or ID; omit for a workspace label")
	cmd.Flags().StringVar(&color, "color", "", "hex color, e.g. #5e6ad2")

	return cmd
}
