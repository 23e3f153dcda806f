package linear

import (
	"fmt"

	"github.com/go-playground/validator/v10"

	"github.com/fivetwenty-io/linctl/internal/constants"
)

// DefaultConfig returns a configuration with an in-memory cache. Callers that
// want persistence set Cache.Backend and Cache.Dir.
func DefaultConfig() *Config {
	return &Config{
		Retry: DefaultRetryConfig(),
		Cache: CacheConfig{
			Backend: StoreTypeMemory,
			TTL:     constants.DefaultCacheTTL,
		},
		MaxConcurrency: constants.DefaultConcurrencyLimit,
	}
}

// Validate checks the configuration for values the components cannot honor.
func (c *Config) Validate() error {
	validate := validator.New(validator.WithRequiredStructEnabled())

	err := validate.Struct(c)
	if err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	return nil
}
