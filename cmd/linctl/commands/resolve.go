package commands

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/fivetwenty-io/linctl/internal/constants"
	"github.com/fivetwenty-io/linctl/pkg/linear"
)

// Resolution is one resolved identifier.
type Resolution struct {
	Entity string `json:"entity" yaml:"entity"`
	Input  string `json:"input"  yaml:"input"`
	ID     string `json:"id"     yaml:"id"`
}

// NewResolveCommand creates the resolve command.
func NewResolveCommand() *cobra.Command {
	var team string

	cmd := &cobra.Command{
		Use:   "resolve ENTITY IDENTIFIER...",
		Short: "Resolve human identifiers to IDs",
		Long: fmt.Sprintf(`Resolve team keys, user emails, status names and other human identifiers
to stable IDs. The cache is consulted first, then a filtered query, then a
full listing which refreshes the cache.

Entities: %s`, strings.Join(linear.EntityNames(), ", ")),
		Args: usageArgs(cobra.MinimumNArgs(1)),
		RunE: func(cmd *cobra.Command, args []string) error {
			entity := args[0]
			inputs := args[1:]

			if len(inputs) == 0 {
				return usageError(constants.ErrMissingIdentifier)
			}

			if linear.NeedsTeam(entity) && team == "" {
				return usageError(constants.ErrTeamRequired)
			}

			// validate the entity before any network call
			_, err := linear.NewEntityResolver(entity, team)
			if err != nil {
				return usageError(err)
			}

			client, err := CreateClient()
			if err != nil {
				return err
			}
			defer client.Close()

			ids, err := client.Resolve(cmd.Context(), entity, team, inputs...)
			if err != nil {
				return err
			}

			name := strings.ToLower(entity)
			results := make([]Resolution, len(ids))

			for index, id := range ids {
				results[index] = Resolution{Entity: name, Input: inputs[index], ID: id}
			}

			return outputResolutions(cmd, results)
		},
	}

	cmd.Flags().StringVar(&team, "team", "", "team key, name or ID scoping statuses and labels")

	return cmd
}

func outputResolutions(cmd *cobra.Command, results []Resolution) error {
	format := outputFormat()
	if format != constants.FormatTable {
		return writeStructured(cmd.OutOrStdout(), format, results)
	}

	title := cases.Title(language.English)
	rows := make([][]string, 0, len(results))

	for _, result := range results {
		rows = append(rows, []string{title.String(result.Entity), result.Input, result.ID})
	}

	return renderTable(cmd.OutOrStdout(), []string{"Entity", "Input", "ID"}, rows)
}
