package commands

import (
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// NewRootCommand builds the command tree with global flags bound to viper.
func NewRootCommand(version, commit, date string) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "linctl",
		Short: "Linear command-line client",
		Long: `A command-line interface for the Linear GraphQL API.

Identifiers such as team keys, emails and status names are resolved through a
local cache. Transient failures and rate limits are retried with backoff.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.SetFlagErrorFunc(func(_ *cobra.Command, err error) error {
		return usageError(err)
	})

	flags := rootCmd.PersistentFlags()
	flags.StringP("config", "c", "", "config file (default is $HOME/.linctl/config.yml)")
	flags.StringP("profile", "p", "", "profile to use (default is current_profile)")
	flags.StringP("output", "o", "", "output format (table, json, yaml); default table on a terminal, json otherwise")
	flags.BoolP("verbose", "v", false, "debug logging on stderr")
	flags.Bool("no-cache", false, "bypass cache reads")
	flags.String("cache-ttl", "", "cache lifetime for new entries, e.g. 30m")
	flags.Int("max-retries", 0, "retries after a transient failure")
	flags.Bool("metrics", false, "print request metrics to stderr on exit")

	_ = viper.BindPFlag("config", flags.Lookup("config"))
	_ = viper.BindPFlag("profile", flags.Lookup("profile"))
	_ = viper.BindPFlag("output", flags.Lookup("output"))
	_ = viper.BindPFlag("verbose", flags.Lookup("verbose"))
	_ = viper.BindPFlag("no_cache", flags.Lookup("no-cache"))
	_ = viper.BindPFlag("cache.ttl", flags.Lookup("cache-ttl"))
	_ = viper.BindPFlag("retry.max_retries", flags.Lookup("max-retries"))
	_ = viper.BindPFlag("metrics", flags.Lookup("metrics"))

	rootCmd.AddCommand(NewVersionCommand(version, commit, date))
	rootCmd.AddCommand(NewLoginCommand())
	rootCmd.AddCommand(NewConfigCommand())
	rootCmd.AddCommand(NewResolveCommand())
	rootCmd.AddCommand(NewListCommand())
	rootCmd.AddCommand(NewExportCommand())
	rootCmd.AddCommand(NewCacheCommand())
	rootCmd.AddCommand(NewLabelsCommand())

	return rootCmd
}
