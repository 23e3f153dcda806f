package commands

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/fivetwenty-io/linctl/pkg/linear"
)

// NewExportCommand creates the export command group.
func NewExportCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Stream large listings as NDJSON",
	}

	cmd.AddCommand(newExportIssuesCommand())

	return cmd
}

func newExportIssuesCommand() *cobra.Command {
	var (
		team     string
		assignee string
		flags    paginationFlags
	)

	cmd := &cobra.Command{
		Use:   "issues",
		Short: "Export issues, one JSON object per line",
		Long: `Export issues as newline-delimited JSON. Pages are written as they arrive
and never held in memory together. Without --limit every page is fetched.`,
		Args: usageArgs(cobra.NoArgs),
		RunE: func(cmd *cobra.Command, args []string) error {
			if !cmd.Flags().Changed("all") && !cmd.Flags().Changed("limit") {
				flags.all = true
			}

			opts, err := flags.options(cmd)
			if err != nil {
				return err
			}

			client, err := CreateClient()
			if err != nil {
				return err
			}
			defer client.Close()

			filter := linear.IssueFilter{}

			if team != "" {
				filter.TeamID, err = client.ResolveTeamID(cmd.Context(), team)
				if err != nil {
					return err
				}
			}

			if assignee != "" {
				ids, err := client.Resolve(cmd.Context(), "user", "", assignee)
				if err != nil {
					return err
				}

				filter.AssigneeID = ids[0]
			}

			writer := bufio.NewWriter(cmd.OutOrStdout())
			encoder := json.NewEncoder(writer)

			count, err := client.Paginator().StreamNodes(cmd.Context(), linear.IssuesRequest(filter), opts,
				func(ctx context.Context, nodes []any) error {
					for _, node := range nodes {
						encodeErr := encoder.Encode(node)
						if encodeErr != nil {
							return fmt.Errorf("writing issue: %w", encodeErr)
						}
					}

					return writer.Flush()
				})

			flushErr := writer.Flush()

			Logger().Info("Export finished", map[string]interface{}{"issues": count})

			if err != nil {
				return err
			}

			if flushErr != nil {
				return fmt.Errorf("flushing output: %w", flushErr)
			}

			return nil
		},
	}

	cmd.Flags().StringVar(&team, "team", "", "only issues of this team (key, name or ID)")
	cmd.Flags().StringVar(&assignee, "assignee", "", "only issues assigned to this user (email, name or 'me')")
	flags.register(cmd)

	return cmd
}
