package commands

import (
	"github.com/spf13/cobra"

	"github.com/fivetwenty-io/linctl/internal/constants"
)

// Version is the release version, set by main at startup.
var Version = "dev"

// VersionInfo describes the build.
type VersionInfo struct {
	Version string `json:"version" yaml:"version"`
	Commit  string `json:"commit"  yaml:"commit"`
	Built   string `json:"built"   yaml:"built"`
}

// NewVersionCommand creates the version command.
func NewVersionCommand(version, commit, date string) *cobra.Command {
	Version = version

	return &cobra.Command{
		Use:   "version",
		Short: "Display version information",
		Args:  usageArgs(cobra.NoArgs),
		RunE: func(cmd *cobra.Command, args []string) error {
			info := VersionInfo{Version: version, Commit: commit, Built: date}

			format := outputFormat()
			if format != constants.FormatTable {
				return writeStructured(cmd.OutOrStdout(), format, info)
			}

			return renderTable(cmd.OutOrStdout(), []string{"Property", "Value"}, [][]string{
				{"Version", version},
				{"Commit", commit},
				{"Built", date},
			})
		},
	}
}
