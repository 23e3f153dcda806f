package commands

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/fivetwenty-io/linctl/internal/constants"
	"github.com/fivetwenty-io/linctl/pkg/linear"
)

// listColumns are the node fields shown per entity, after the ID.
var listColumns = map[string][]string{
	"team":    {"key", "name"},
	"user":    {"name", "email", "displayName"},
	"status":  {"name", "type"},
	"label":   {"name"},
	"project": {"name", "slugId"},
	"view":    {"name"},
	"issue":   {"identifier", "title"},
}

// ListResult is the structured output of list.
type ListResult struct {
	Items      []any  `json:"items"                 yaml:"items"`
	NextCursor string `json:"next_cursor,omitempty" yaml:"next_cursor,omitempty"`
	PrevCursor string `json:"prev_cursor,omitempty" yaml:"prev_cursor,omitempty"`
}

type paginationFlags struct {
	limit    int
	after    string
	before   string
	pageSize int
	all      bool
}

func (f *paginationFlags) register(cmd *cobra.Command) {
	cmd.Flags().IntVar(&f.limit, "limit", 0, "maximum number of items (0 means one page, or everything with --all)")
	cmd.Flags().StringVar(&f.after, "after", "", "start after this cursor")
	cmd.Flags().StringVar(&f.before, "before", "", "walk backwards from this cursor")
	cmd.Flags().IntVar(&f.pageSize, "page-size", constants.DefaultPageSize, "items requested per page")
	cmd.Flags().BoolVar(&f.all, "all", false, "fetch every page")
}

func (f *paginationFlags) options(cmd *cobra.Command) (linear.PaginationOptions, error) {
	opts := linear.PaginationOptions{
		After:    f.after,
		Before:   f.before,
		PageSize: f.pageSize,
		All:      f.all,
	}

	if cmd.Flags().Changed("limit") {
		if f.limit <= 0 {
			return opts, usageError(constants.ErrInvalidLimit)
		}

		opts = opts.WithLimit(f.limit)
	}

	if f.pageSize <= 0 {
		return opts, usageError(constants.ErrInvalidPageSize)
	}

	err := opts.Validate()
	if err != nil {
		return opts, usageError(err)
	}

	return opts, nil
}

// NewListCommand creates the list command.
func NewListCommand() *cobra.Command {
	var (
		team  string
		flags paginationFlags
	)

	cmd := &cobra.Command{
		Use:   "list ENTITY",
		Short: "List entities with cursor pagination",
		Long: fmt.Sprintf(`List entities page by page. --after walks forward, --before walks backward;
they cannot be combined.

Entities: %s, issues`, strings.Join(linear.EntityNames(), ", ")),
		Args: usageArgs(cobra.ExactArgs(1)),
		RunE: func(cmd *cobra.Command, args []string) error {
			opts, err := flags.options(cmd)
			if err != nil {
				return err
			}

			entity := strings.ToLower(args[0])
			isIssues := entity == "issue" || entity == "issues"

			if !isIssues {
				if linear.NeedsTeam(entity) && team == "" {
					return usageError(constants.ErrTeamRequired)
				}

				_, err = linear.NewEntityResolver(entity, team)
				if err != nil {
					return usageError(err)
				}
			}

			client, err := CreateClient()
			if err != nil {
				return err
			}
			defer client.Close()

			teamID := ""
			if team != "" {
				teamID, err = client.ResolveTeamID(cmd.Context(), team)
				if err != nil {
					return err
				}
			}

			var (
				request linear.PageRequest
				columns []string
			)

			if isIssues {
				request = linear.IssuesRequest(linear.IssueFilter{TeamID: teamID})
				columns = listColumns["issue"]
			} else {
				resolver, _ := linear.NewEntityResolver(entity, teamID)
				request = resolver.CatalogQuery()
				columns = listColumns[resolver.Entity()]
			}

			result, err := client.Paginator().Paginate(cmd.Context(), request, opts)
			if err != nil {
				return err
			}

			listResult := ListResult{Items: result.Nodes}
			if result.PageInfo.HasNextPage {
				listResult.NextCursor = result.PageInfo.EndCursor
			}

			if result.PageInfo.HasPreviousPage {
				listResult.PrevCursor = result.PageInfo.StartCursor
			}

			return outputList(cmd, listResult, columns)
		},
	}

	cmd.Flags().StringVar(&team, "team", "", "team key, name or ID (required for statuses)")
	flags.register(cmd)

	return cmd
}

func outputList(cmd *cobra.Command, result ListResult, columns []string) error {
	format := outputFormat()
	if format != constants.FormatTable {
		return writeStructured(cmd.OutOrStdout(), format, result)
	}

	header := append([]string{"ID"}, columns...)
	rows := make([][]string, 0, len(result.Items))

	for _, item := range result.Items {
		row := []string{linear.LookupString(item, "id")}
		for _, column := range columns {
			row = append(row, nodeString(linear.Lookup(item, column)))
		}

		rows = append(rows, row)
	}

	err := renderTable(cmd.OutOrStdout(), header, rows)
	if err != nil {
		return err
	}

	writeCursorHint(cmd.ErrOrStderr(), result)

	return nil
}

func writeCursorHint(out io.Writer, result ListResult) {
	if result.NextCursor != "" {
		_, _ = fmt.Fprintf(out, "More results: --after %s\n", result.NextCursor)
	}

	if result.PrevCursor != "" {
		_, _ = fmt.Fprintf(out, "Earlier results: --before %s\n", result.PrevCursor)
	}
}
