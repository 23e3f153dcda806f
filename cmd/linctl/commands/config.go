package commands

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"time"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/fivetwenty-io/linctl/internal/constants"
	"github.com/fivetwenty-io/linctl/pkg/linear"
)

// Config represents the CLI configuration file.
type Config struct {
	CurrentProfile string                    `json:"current_profile,omitempty" yaml:"current_profile,omitempty"`
	Profiles       map[string]*ProfileConfig `json:"profiles,omitempty"        yaml:"profiles,omitempty"`

	Output      string             `json:"output,omitempty"    yaml:"output,omitempty"`
	LogLevel    string             `json:"log_level,omitempty" yaml:"log_level,omitempty"`
	Concurrency int                `json:"concurrency"         yaml:"concurrency"`
	Cache       CacheSettings      `json:"cache"               yaml:"cache"`
	Retry       linear.RetryConfig `json:"retry"               yaml:"retry"`
}

// ProfileConfig holds the credentials of one workspace.
type ProfileConfig struct {
	APIKey   string `json:"api_key,omitempty"  yaml:"api_key,omitempty"`
	Endpoint string `json:"endpoint,omitempty" yaml:"endpoint,omitempty"`
}

// CacheSettings is the persisted form of linear.CacheConfig.
type CacheSettings struct {
	Backend    string `json:"backend"               yaml:"backend"`
	Dir        string `json:"dir,omitempty"         yaml:"dir,omitempty"`
	TTL        string `json:"ttl"                   yaml:"ttl"`
	NATSURL    string `json:"nats_url,omitempty"    yaml:"nats_url,omitempty"`
	NATSBucket string `json:"nats_bucket,omitempty" yaml:"nats_bucket,omitempty"`
}

// NewConfigCommand creates the config command group.
func NewConfigCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Manage CLI configuration",
		Long:  "Manage linctl configuration including profiles, cache and retry settings",
	}

	cmd.AddCommand(newConfigShowCommand())
	cmd.AddCommand(newConfigSetCommand())
	cmd.AddCommand(newConfigUnsetCommand())

	return cmd
}

func newConfigShowCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Show current configuration",
		Long:  "Display the current CLI configuration. API keys are masked.",
		RunE: func(cmd *cobra.Command, args []string) error {
			config := maskedConfig(loadConfig())

			switch outputFormat() {
			case constants.FormatJSON:
				encoder := json.NewEncoder(cmd.OutOrStdout())
				encoder.SetIndent("", "  ")

				return encoder.Encode(config)
			case constants.FormatYAML:
				return yaml.NewEncoder(cmd.OutOrStdout()).Encode(config)
			default:
				return displayConfigTable(cmd, config)
			}
		},
	}
}

func newConfigSetCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "set KEY VALUE",
		Short: "Set a configuration value",
		Long: `Set a configuration value. Profile keys (api_key, endpoint) apply to the
current profile; use --profile to target another one.`,
		Args: usageArgs(cobra.ExactArgs(2)),
		RunE: func(cmd *cobra.Command, args []string) error {
			config, err := loadPersistedConfig()
			if err != nil {
				return err
			}

			err = setConfigValue(config, currentProfileName(), args[0], args[1])
			if err != nil {
				return usageError(err)
			}

			err = saveConfigStruct(config)
			if err != nil {
				return fmt.Errorf("failed to save config: %w", err)
			}

			display := args[1]
			if args[0] == "api_key" {
				display = maskSecret(display)
			}

			return outputConfigUpdateResult(cmd, "Set", args[0], display)
		},
	}
}

func newConfigUnsetCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "unset KEY",
		Short: "Reset a configuration value to its default",
		Args:  usageArgs(cobra.ExactArgs(1)),
		RunE: func(cmd *cobra.Command, args []string) error {
			config, err := loadPersistedConfig()
			if err != nil {
				return err
			}

			defaults := defaultConfig()

			err = setConfigValue(config, currentProfileName(), args[0], configValue(defaults, currentProfileName(), args[0]))
			if err != nil {
				return usageError(err)
			}

			err = saveConfigStruct(config)
			if err != nil {
				return fmt.Errorf("failed to save config: %w", err)
			}

			return outputConfigUpdateResult(cmd, "Unset", args[0], "")
		},
	}
}

// defaultConfig returns the configuration used when no file exists.
func defaultConfig() *Config {
	retry := linear.DefaultRetryConfig()

	return &Config{
		CurrentProfile: constants.DefaultProfile,
		Profiles:       make(map[string]*ProfileConfig),
		LogLevel:       "warn",
		Concurrency:    constants.DefaultConcurrencyLimit,
		Cache: CacheSettings{
			Backend:    string(linear.StoreTypeFile),
			TTL:        constants.DefaultCacheTTL.String(),
			NATSBucket: constants.DefaultNATSBucket,
		},
		Retry: retry,
	}
}

// loadConfig returns the effective configuration: the file overridden by
// flags and LINCTL_* environment variables.
func loadConfig() *Config {
	return configFrom(viper.GetViper())
}

// loadPersistedConfig returns only what the config file holds. Commands that
// write the file start from it so one-off flags and environment overrides
// are never saved.
func loadPersistedConfig() (*Config, error) {
	configFile, err := configFilePath()
	if err != nil {
		return nil, err
	}

	fileViper := viper.New()
	fileViper.SetConfigFile(configFile)
	fileViper.SetConfigType("yaml")

	err = fileViper.ReadInConfig()
	if errors.Is(err, fs.ErrNotExist) {
		return defaultConfig(), nil
	}

	if err != nil {
		return nil, fmt.Errorf("%w: %w", constants.ErrInvalidConfigFile, err)
	}

	return configFrom(fileViper), nil
}

func configFrom(source *viper.Viper) *Config {
	config := defaultConfig()

	if value := source.GetString("current_profile"); value != "" {
		config.CurrentProfile = value
	}

	config.Output = source.GetString("output")

	if value := source.GetString("log_level"); value != "" {
		config.LogLevel = value
	}

	if source.IsSet("concurrency") {
		config.Concurrency = source.GetInt("concurrency")
	}

	loadCacheSettings(source, &config.Cache)
	loadRetrySettings(source, &config.Retry)
	loadProfiles(source, config)

	return config
}

func loadCacheSettings(source *viper.Viper, settings *CacheSettings) {
	if value := source.GetString("cache.backend"); value != "" {
		settings.Backend = value
	}

	settings.Dir = source.GetString("cache.dir")

	if value := source.GetString("cache.ttl"); value != "" {
		settings.TTL = value
	}

	settings.NATSURL = source.GetString("cache.nats_url")

	if value := source.GetString("cache.nats_bucket"); value != "" {
		settings.NATSBucket = value
	}
}

func loadRetrySettings(source *viper.Viper, retry *linear.RetryConfig) {
	if source.IsSet("retry.max_retries") {
		retry.MaxRetries = source.GetUint32("retry.max_retries")
	}

	if source.IsSet("retry.initial_delay_ms") {
		retry.InitialDelayMs = source.GetUint64("retry.initial_delay_ms")
	}

	if source.IsSet("retry.max_delay_ms") {
		retry.MaxDelayMs = source.GetUint64("retry.max_delay_ms")
	}

	if source.IsSet("retry.exponential_base") {
		retry.ExponentialBase = source.GetFloat64("retry.exponential_base")
	}
}

func loadProfiles(source *viper.Viper, config *Config) {
	for name, raw := range source.GetStringMap("profiles") {
		profileMap, ok := raw.(map[string]interface{})
		if !ok {
			continue
		}

		profile := &ProfileConfig{}
		if value, ok := profileMap["api_key"].(string); ok {
			profile.APIKey = value
		}

		if value, ok := profileMap["endpoint"].(string); ok {
			profile.Endpoint = value
		}

		config.Profiles[name] = profile
	}
}

// configFilePath returns the file viper loaded, or the default location.
func configFilePath() (string, error) {
	configFile := viper.ConfigFileUsed()
	if configFile != "" {
		return configFile, nil
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get user home directory: %w", err)
	}

	configDir := filepath.Join(home, constants.ConfigDirName)

	err = os.MkdirAll(configDir, constants.ConfigDirPerm)
	if err != nil {
		return "", fmt.Errorf("failed to create config directory: %w", err)
	}

	return filepath.Join(configDir, "config.yml"), nil
}

func saveConfigStruct(config *Config) error {
	configFile, err := configFilePath()
	if err != nil {
		return err
	}

	data, err := yaml.Marshal(config)
	if err != nil {
		return fmt.Errorf("failed to marshal config to YAML: %w", err)
	}

	err = os.WriteFile(configFile, data, constants.ConfigFilePerm)
	if err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	// keep the in-process view consistent for the rest of this run
	viper.SetConfigFile(configFile)

	err = viper.ReadInConfig()
	if err != nil {
		return fmt.Errorf("%w: %w", constants.ErrInvalidConfigFile, err)
	}

	return nil
}

// configSetters maps a key to a function updating config. Profile keys apply
// to the named profile.
var configSetters = map[string]func(config *Config, profile, value string) error{
	"api_key": func(c *Config, profile, v string) error {
		ensureProfile(c, profile).APIKey = v

		return nil
	},
	"endpoint": func(c *Config, profile, v string) error {
		ensureProfile(c, profile).Endpoint = v

		return nil
	},
	"current_profile": func(c *Config, _, v string) error {
		c.CurrentProfile = v

		return nil
	},
	"output": func(c *Config, _, v string) error {
		if v != "" && !validOutput(v) {
			return fmt.Errorf("%w: %s", constants.ErrInvalidOutput, v)
		}

		c.Output = v

		return nil
	},
	"log_level": func(c *Config, _, v string) error {
		c.LogLevel = v

		return nil
	},
	"concurrency": func(c *Config, _, v string) error {
		return parseInto(v, func(n int) { c.Concurrency = n })
	},
	"cache.backend": func(c *Config, _, v string) error {
		c.Cache.Backend = v

		return nil
	},
	"cache.dir": func(c *Config, _, v string) error {
		c.Cache.Dir = v

		return nil
	},
	"cache.ttl": func(c *Config, _, v string) error {
		_, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("%w: %w", constants.ErrInvalidConfigValue, err)
		}

		c.Cache.TTL = v

		return nil
	},
	"cache.nats_url": func(c *Config, _, v string) error {
		c.Cache.NATSURL = v

		return nil
	},
	"cache.nats_bucket": func(c *Config, _, v string) error {
		c.Cache.NATSBucket = v

		return nil
	},
	"retry.max_retries": func(c *Config, _, v string) error {
		return parseInto(v, func(n int) { c.Retry.MaxRetries = uint32(n) })
	},
	"retry.initial_delay_ms": func(c *Config, _, v string) error {
		return parseInto(v, func(n int) { c.Retry.InitialDelayMs = uint64(n) })
	},
	"retry.max_delay_ms": func(c *Config, _, v string) error {
		return parseInto(v, func(n int) { c.Retry.MaxDelayMs = uint64(n) })
	},
	"retry.exponential_base": func(c *Config, _, v string) error {
		base, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return fmt.Errorf("%w: %w", constants.ErrInvalidConfigValue, err)
		}

		c.Retry.ExponentialBase = base

		return nil
	},
}

func parseInto(value string, set func(int)) error {
	number, err := strconv.Atoi(value)
	if err != nil || number < 0 {
		return fmt.Errorf("%w: %q is not a non-negative integer", constants.ErrInvalidConfigValue, value)
	}

	set(number)

	return nil
}

func ensureProfile(config *Config, name string) *ProfileConfig {
	if config.Profiles == nil {
		config.Profiles = make(map[string]*ProfileConfig)
	}

	profile, ok := config.Profiles[name]
	if !ok {
		profile = &ProfileConfig{}
		config.Profiles[name] = profile
	}

	return profile
}

func setConfigValue(config *Config, profile, key, value string) error {
	setter, ok := configSetters[key]
	if !ok {
		return fmt.Errorf("%w: %s", constants.ErrUnknownConfigKey, key)
	}

	return setter(config, profile, value)
}

// configValue renders the current value of key, used to reset to defaults.
func configValue(config *Config, profile, key string) string {
	switch key {
	case "api_key", "endpoint":
		return ""
	case "current_profile":
		return config.CurrentProfile
	case "output":
		return config.Output
	case "log_level":
		return config.LogLevel
	case "concurrency":
		return strconv.Itoa(config.Concurrency)
	case "cache.backend":
		return config.Cache.Backend
	case "cache.dir":
		return config.Cache.Dir
	case "cache.ttl":
		return config.Cache.TTL
	case "cache.nats_url":
		return config.Cache.NATSURL
	case "cache.nats_bucket":
		return config.Cache.NATSBucket
	case "retry.max_retries":
		return strconv.FormatUint(uint64(config.Retry.MaxRetries), 10)
	case "retry.initial_delay_ms":
		return strconv.FormatUint(config.Retry.InitialDelayMs, 10)
	case "retry.max_delay_ms":
		return strconv.FormatUint(config.Retry.MaxDelayMs, 10)
	case "retry.exponential_base":
		return strconv.FormatFloat(config.Retry.ExponentialBase, 'f', -1, 64)
	}

	return ""
}

// ConfigKeys lists the keys accepted by config set.
func ConfigKeys() []string {
	keys := make([]string, 0, len(configSetters))
	for key := range configSetters {
		keys = append(keys, key)
	}

	sort.Strings(keys)

	return keys
}

func maskedConfig(config *Config) *Config {
	masked := *config
	masked.Profiles = make(map[string]*ProfileConfig, len(config.Profiles))

	for name, profile := range config.Profiles {
		copied := *profile
		copied.APIKey = maskSecret(copied.APIKey)
		masked.Profiles[name] = &copied
	}

	return &masked
}

func maskSecret(secret string) string {
	const visible = 4

	if len(secret) <= visible {
		if secret == "" {
			return ""
		}

		return "****"
	}

	return "****" + secret[len(secret)-visible:]
}

func displayConfigTable(cmd *cobra.Command, config *Config) error {
	table := tablewriter.NewWriter(cmd.OutOrStdout())
	table.Header("Property", "Value")

	rows := [][]string{
		{"Current Profile", config.CurrentProfile},
		{"Output", formatConfigValue(config.Output)},
		{"Log Level", config.LogLevel},
		{"Concurrency", strconv.Itoa(config.Concurrency)},
		{"Cache Backend", config.Cache.Backend},
		{"Cache Dir", formatConfigValue(config.Cache.Dir)},
		{"Cache TTL", config.Cache.TTL},
		{"Retry Max", strconv.FormatUint(uint64(config.Retry.MaxRetries), 10)},
		{"Retry Initial Delay (ms)", strconv.FormatUint(config.Retry.InitialDelayMs, 10)},
		{"Retry Max Delay (ms)", strconv.FormatUint(config.Retry.MaxDelayMs, 10)},
	}

	if config.Cache.Backend == string(linear.StoreTypeNATS) {
		rows = append(rows,
			[]string{"NATS URL", formatConfigValue(config.Cache.NATSURL)},
			[]string{"NATS Bucket", config.Cache.NATSBucket},
		)
	}

	names := make([]string, 0, len(config.Profiles))
	for name := range config.Profiles {
		names = append(names, name)
	}

	sort.Strings(names)

	for _, name := range names {
		profile := config.Profiles[name]
		rows = append(rows, []string{
			"Profile " + name,
			fmt.Sprintf("key=%s endpoint=%s", formatConfigValue(profile.APIKey), formatConfigValue(profile.Endpoint)),
		})
	}

	for _, row := range rows {
		err := table.Append(row)
		if err != nil {
			return fmt.Errorf("failed to append config row: %w", err)
		}
	}

	err := table.Render()
	if err != nil {
		return fmt.Errorf("failed to render table: %w", err)
	}

	return nil
}

func formatConfigValue(value string) string {
	if value == "" {
		return constants.NotAvailable
	}

	return value
}

func outputConfigUpdateResult(cmd *cobra.Command, action, key, value string) error {
	result := map[string]string{
		"action": action,
		"key":    key,
	}

	if value != "" {
		result["value"] = value
	}

	switch outputFormat() {
	case constants.FormatJSON:
		encoder := json.NewEncoder(cmd.OutOrStdout())
		encoder.SetIndent("", "  ")

		err := encoder.Encode(result)
		if err != nil {
			return fmt.Errorf("failed to encode config result as JSON: %w", err)
		}

		return nil
	case constants.FormatYAML:
		err := yaml.NewEncoder(cmd.OutOrStdout()).Encode(result)
		if err != nil {
			return fmt.Errorf("failed to encode config result as YAML: %w", err)
		}

		return nil
	default:
		table := tablewriter.NewWriter(cmd.OutOrStdout())
		table.Header("Property", "Value")
		_ = table.Append([]string{"Action", action})
		_ = table.Append([]string{"Key", key})

		if value != "" {
			_ = table.Append([]string{"Value", value})
		}

		err := table.Render()
		if err != nil {
			return fmt.Errorf("failed to render update results table: %w", err)
		}

		return nil
	}
}
