package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/fivetwenty-io/linctl/cmd/linctl/commands"
	"github.com/fivetwenty-io/linctl/internal/constants"
)

var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func initConfig() {
	cfgFile := viper.GetString("config")

	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		home, err := os.UserHomeDir()
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(constants.ExitGeneral)
		}

		configDir := filepath.Join(home, constants.ConfigDirName)

		err = os.MkdirAll(configDir, constants.ConfigDirPerm)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error creating config directory: %v\n", err)
		}

		viper.AddConfigPath(configDir)
		viper.SetConfigType("yml")
		viper.SetConfigName("config")
	}

	viper.SetEnvPrefix(constants.EnvPrefix)
	viper.AutomaticEnv()

	// nested keys are not picked up by AutomaticEnv
	_ = viper.BindEnv("api_key")
	_ = viper.BindEnv("endpoint")
	_ = viper.BindEnv("cache.ttl", constants.EnvPrefix+"_CACHE_TTL")
	_ = viper.BindEnv("cache.backend", constants.EnvPrefix+"_CACHE_BACKEND")
	_ = viper.BindEnv("cache.nats_url", constants.EnvPrefix+"_CACHE_NATS_URL")

	err := viper.ReadInConfig()
	if err == nil && viper.GetBool("verbose") {
		fmt.Fprintln(os.Stderr, "Using config file:", viper.ConfigFileUsed())
	}
}

func run() int {
	cobra.OnInitialize(initConfig)

	rootCmd := commands.NewRootCommand(version, commit, date)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	err := rootCmd.ExecuteContext(ctx)

	if viper.GetBool("metrics") {
		summaryErr := commands.Metrics().WriteSummary(os.Stderr)
		if summaryErr != nil {
			fmt.Fprintf(os.Stderr, "Warning: failed to write metrics: %v\n", summaryErr)
		}
	}

	if err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)

		return commands.ExitCode(err)
	}

	return 0
}

func main() {
	os.Exit(run())
}
