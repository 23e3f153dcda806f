package commands

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"golang.org/x/term"

	"github.com/fivetwenty-io/linctl/internal/constants"
	"github.com/fivetwenty-io/linctl/internal/logging"
	"github.com/fivetwenty-io/linctl/internal/metrics"
	"github.com/fivetwenty-io/linctl/pkg/linclient"
	"github.com/fivetwenty-io/linctl/pkg/linear"
)

var (
	collectorOnce sync.Once
	collector     *metrics.Collector

	loggerOnce sync.Once
	logger     linear.Logger
)

// Metrics returns the process-wide collector.
func Metrics() *metrics.Collector {
	collectorOnce.Do(func() {
		collector = metrics.NewCollector()
	})

	return collector
}

// Logger returns the process-wide diagnostic logger. It writes to stderr at
// warn level, or debug with --verbose.
func Logger() linear.Logger {
	loggerOnce.Do(func() {
		level := viper.GetString("log_level")
		if viper.GetBool("verbose") {
			level = "debug"
		}

		zapLogger, err := logging.New(logging.Options{Level: level})
		if err != nil {
			fmt.Fprintf(os.Stderr, "Warning: failed to create logger: %v\n", err)

			logger = linear.NopLogger{}

			return
		}

		logger = zapLogger
	})

	return logger
}

// UsageError marks an error caused by invalid command-line input.
type UsageError struct {
	Err error
}

func (e *UsageError) Error() string { return e.Err.Error() }

func (e *UsageError) Unwrap() error { return e.Err }

func usageError(err error) error {
	if err == nil {
		return nil
	}

	return &UsageError{Err: err}
}

// ExitCode maps an error to the process exit status.
func ExitCode(err error) int {
	if err == nil {
		return 0
	}

	var usage *UsageError
	if errors.As(err, &usage) ||
		errors.Is(err, linear.ErrConflictingCursors) ||
		errors.Is(err, constants.ErrNoAPIKey) {
		return constants.ExitUsage
	}

	switch linear.KindOf(err) {
	case linear.KindAuth:
		return constants.ExitAuth
	case linear.KindNotFound:
		return constants.ExitNotFound
	case linear.KindRateLimited:
		return constants.ExitRateLimited
	default:
		return constants.ExitGeneral
	}
}

func validOutput(format string) bool {
	switch format {
	case constants.FormatJSON, constants.FormatYAML, constants.FormatTable:
		return true
	default:
		return false
	}
}

// outputFormat returns the requested format. Without one, a terminal gets a
// table and anything else gets JSON.
func outputFormat() string {
	format := strings.ToLower(viper.GetString("output"))
	if validOutput(format) {
		return format
	}

	if term.IsTerminal(int(os.Stdout.Fd())) {
		return constants.FormatTable
	}

	return constants.FormatJSON
}

func currentProfileName() string {
	if profile := viper.GetString("profile"); profile != "" {
		return profile
	}

	if profile := viper.GetString("current_profile"); profile != "" {
		return profile
	}

	return constants.DefaultProfile
}

// cacheDir returns <cache-root>/<profile>.
func cacheDir(settings CacheSettings, profile string) (string, error) {
	root := settings.Dir
	if root == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("failed to get user home directory: %w", err)
		}

		root = filepath.Join(home, constants.ConfigDirName, "cache")
	}

	return filepath.Join(root, profile), nil
}

// buildCoreConfig converts CLI configuration into the injected core config.
func buildCoreConfig(config *Config, profile string) (*linear.Config, error) {
	core := linear.DefaultConfig()
	core.Retry = config.Retry
	core.NoCache = viper.GetBool("no_cache")

	if config.Concurrency > 0 {
		core.MaxConcurrency = config.Concurrency
	}

	ttl, err := time.ParseDuration(config.Cache.TTL)
	if err != nil {
		return nil, usageError(fmt.Errorf("%w: cache.ttl: %w", constants.ErrInvalidConfigValue, err))
	}

	core.Cache.TTL = ttl
	core.Cache.Backend = linear.StoreType(config.Cache.Backend)

	switch core.Cache.Backend {
	case linear.StoreTypeFile:
		dir, err := cacheDir(config.Cache, profile)
		if err != nil {
			return nil, err
		}

		core.Cache.Dir = dir
	case linear.StoreTypeNATS:
		core.Cache.NATS = &linear.NATSKVConfig{
			URL:     config.Cache.NATSURL,
			Bucket:  config.Cache.NATSBucket,
			Prefix:  profile,
			Timeout: constants.ShortHTTPTimeout,
		}
	}

	err = core.Validate()
	if err != nil {
		return nil, usageError(err)
	}

	return core, nil
}

// profileCredentials returns the API key and endpoint for profile.
// LINCTL_API_KEY overrides the stored key.
func profileCredentials(config *Config, profile string) (string, string, error) {
	stored, ok := config.Profiles[profile]

	apiKey := viper.GetString("api_key")
	if apiKey == "" && ok {
		apiKey = stored.APIKey
	}

	if apiKey == "" {
		if !ok && profile != constants.DefaultProfile {
			return "", "", usageError(fmt.Errorf("%w: %s", constants.ErrProfileNotFound, profile))
		}

		return "", "", constants.ErrNoAPIKey
	}

	endpoint := viper.GetString("endpoint")
	if endpoint == "" && ok {
		endpoint = stored.Endpoint
	}

	return apiKey, endpoint, nil
}

// newCache builds only the cache, for commands that never reach the API.
func newCache() (*linear.Cache, func(), error) {
	config := loadConfig()
	profile := currentProfileName()

	core, err := buildCoreConfig(config, profile)
	if err != nil {
		return nil, nil, err
	}

	cache, err := linear.NewCacheFromConfig(core.Cache,
		linear.WithCacheLogger(Logger()),
		linear.WithCacheMetrics(Metrics()),
	)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create cache: %w", err)
	}

	closeFn := func() {
		if closer, ok := cache.Store().(interface{ Close() }); ok {
			closer.Close()
		}
	}

	return cache, closeFn, nil
}

// clientFactory builds the API client; tests replace it.
var clientFactory = defaultClientFactory

func defaultClientFactory() (*linclient.Client, error) {
	config := loadConfig()
	profile := currentProfileName()

	apiKey, endpoint, err := profileCredentials(config, profile)
	if err != nil {
		return nil, err
	}

	core, err := buildCoreConfig(config, profile)
	if err != nil {
		return nil, err
	}

	client, err := linclient.New(&linclient.Config{
		Endpoint:  endpoint,
		APIKey:    apiKey,
		Core:      core,
		Logger:    Logger(),
		Metrics:   Metrics(),
		UserAgent: "linctl/" + Version,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create client: %w", err)
	}

	return client, nil
}

// CreateClient returns a client for the selected profile.
func CreateClient() (*linclient.Client, error) {
	return clientFactory()
}

// SetClientFactory replaces the client constructor and returns a function
// restoring the previous one.
func SetClientFactory(factory func() (*linclient.Client, error)) func() {
	previous := clientFactory
	clientFactory = factory

	return func() {
		clientFactory = previous
	}
}

// usageArgs marks argument validation failures as usage errors.
func usageArgs(validate cobra.PositionalArgs) cobra.PositionalArgs {
	return func(cmd *cobra.Command, args []string) error {
		return usageError(validate(cmd, args))
	}
}
