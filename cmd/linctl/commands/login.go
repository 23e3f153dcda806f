package commands

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/fivetwenty-io/linctl/internal/constants"
	"github.com/fivetwenty-io/linctl/pkg/linclient"
	"github.com/fivetwenty-io/linctl/pkg/linear"
)

const viewerDocument = `query Viewer { viewer { id name email } }`

// NewLoginCommand creates the login command.
func NewLoginCommand() *cobra.Command {
	var (
		apiKey   string
		endpoint string
	)

	cmd := &cobra.Command{
		Use:   "login",
		Short: "Store an API key for the current profile",
		Long: `Verify a personal API key against the API and store it in the current
profile. Without --api-key the key is read from the terminal without echo.`,
		Args: usageArgs(cobra.NoArgs),
		RunE: func(cmd *cobra.Command, args []string) error {
			if apiKey == "" {
				if !term.IsTerminal(int(os.Stdin.Fd())) {
					return usageError(constants.ErrNoAPIKey)
				}

				_, _ = fmt.Fprint(cmd.ErrOrStderr(), "API key: ")

				keyBytes, err := term.ReadPassword(int(os.Stdin.Fd()))
				if err != nil {
					return fmt.Errorf("failed to read API key: %w", err)
				}

				_, _ = fmt.Fprintln(cmd.ErrOrStderr())

				apiKey = strings.TrimSpace(string(keyBytes))
			}

			if apiKey == "" {
				return usageError(constants.ErrNoAPIKey)
			}

			client, err := linclient.New(&linclient.Config{
				Endpoint: endpoint,
				APIKey:   apiKey,
				Logger:   Logger(),
				Metrics:  Metrics(),
			})
			if err != nil {
				return err
			}
			defer client.Close()

			data, err := client.Query(cmd.Context(), viewerDocument, nil)
			if err != nil {
				return fmt.Errorf("failed to verify API key: %w", err)
			}

			config, err := loadPersistedConfig()
			if err != nil {
				return err
			}

			profile := currentProfileName()

			stored := ensureProfile(config, profile)
			stored.APIKey = apiKey
			stored.Endpoint = endpoint

			if config.CurrentProfile == "" {
				config.CurrentProfile = profile
			}

			err = saveConfigStruct(config)
			if err != nil {
				return fmt.Errorf("failed to save config: %w", err)
			}

			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Logged in as %s (%s), profile %q\n",
				linear.LookupString(data, "viewer", "name"),
				linear.LookupString(data, "viewer", "email"),
				profile)

			return nil
		},
	}

	cmd.Flags().StringVar(&apiKey, "api-key", "", "personal API key (prompted when omitted)")
	cmd.Flags().StringVar(&endpoint, "endpoint", "", "GraphQL endpoint (default "+constants.DefaultAPIEndpoint+")")

	return cmd
}
