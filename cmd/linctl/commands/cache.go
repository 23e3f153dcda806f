package commands

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/fivetwenty-io/linctl/internal/constants"
	"github.com/fivetwenty-io/linctl/pkg/linear"
)

// NewCacheCommand creates the cache command group.
func NewCacheCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cache",
		Short: "Inspect and clear the local cache",
	}

	cmd.AddCommand(newCacheStatusCommand())
	cmd.AddCommand(newCacheClearCommand())

	return cmd
}

type cacheStatusView struct {
	Type       string `json:"type"        yaml:"type"`
	Exists     bool   `json:"exists"      yaml:"exists"`
	Valid      bool   `json:"valid"       yaml:"valid"`
	AgeSeconds int64  `json:"age_seconds" yaml:"age_seconds"`
	SizeBytes  int    `json:"size_bytes"  yaml:"size_bytes"`
	Items      int    `json:"items"       yaml:"items"`
}

func newCacheStatusCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show validity, age and size of each cache type",
		Args:  usageArgs(cobra.NoArgs),
		RunE: func(cmd *cobra.Command, args []string) error {
			cache, closeCache, err := newCache()
			if err != nil {
				return err
			}
			defer closeCache()

			statuses := cache.Status(cmd.Context())

			views := make([]cacheStatusView, 0, len(statuses))
			for _, status := range statuses {
				views = append(views, cacheStatusView{
					Type:       string(status.Type),
					Exists:     status.Exists,
					Valid:      status.Valid,
					AgeSeconds: int64(status.Age.Seconds()),
					SizeBytes:  status.SizeBytes,
					Items:      status.ItemCount,
				})
			}

			format := outputFormat()
			if format != constants.FormatTable {
				return writeStructured(cmd.OutOrStdout(), format, views)
			}

			rows := make([][]string, 0, len(views))
			for _, view := range views {
				rows = append(rows, cacheStatusRow(view))
			}

			return renderTable(cmd.OutOrStdout(), []string{"Type", "Valid", "Age", "Size", "Items"}, rows)
		},
	}
}

func cacheStatusRow(view cacheStatusView) []string {
	if !view.Exists {
		return []string{view.Type, "", constants.NotAvailable, constants.NotAvailable, constants.NotAvailable}
	}

	valid := ""
	if view.Valid {
		valid = constants.CheckMarkSymbol
	}

	return []string{
		view.Type,
		valid,
		fmt.Sprintf("%ds", view.AgeSeconds),
		strconv.Itoa(view.SizeBytes) + " B",
		strconv.Itoa(view.Items),
	}
}

func newCacheClearCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "clear [TYPE...]",
		Short: "Clear some or all cache types",
		Long:  "Clear the named cache types, or every type when none is given. Clearing an empty cache succeeds.",
		RunE: func(cmd *cobra.Command, args []string) error {
			types := make([]linear.CacheType, 0, len(args))

			for _, arg := range args {
				cacheType, err := linear.ParseCacheType(arg)
				if err != nil {
					return usageError(err)
				}

				types = append(types, cacheType)
			}

			cache, closeCache, err := newCache()
			if err != nil {
				return err
			}
			defer closeCache()

			if len(types) == 0 {
				err = cache.ClearAll(cmd.Context())
				if err != nil {
					return err
				}

				types = linear.AllCacheTypes()
			} else {
				for _, cacheType := range types {
					err = cache.ClearType(cmd.Context(), cacheType)
					if err != nil {
						return err
					}
				}
			}

			cleared := make([]string, 0, len(types))
			for _, cacheType := range types {
				cleared = append(cleared, string(cacheType))
			}

			format := outputFormat()
			if format != constants.FormatTable {
				return writeStructured(cmd.OutOrStdout(), format, map[string][]string{"cleared": cleared})
			}

			rows := make([][]string, 0, len(cleared))
			for _, name := range cleared {
				rows = append(rows, []string{name, constants.CheckMarkSymbol})
			}

			return renderTable(cmd.OutOrStdout(), []string{"Type", "Cleared"}, rows)
		},
	}
}
