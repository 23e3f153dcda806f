package constants

import "errors"

// Configuration errors.
var (
	ErrNoAPIKey           = errors.New("no API key configured, use 'linctl config set api_key <key>' or LINCTL_API_KEY")
	ErrProfileNotFound    = errors.New("profile not found")
	ErrUnknownConfigKey   = errors.New("unknown configuration key")
	ErrInvalidConfigFile  = errors.New("invalid configuration file")
	ErrInvalidConfigValue = errors.New("invalid configuration value")
)

// Usage errors.
var (
	ErrUnknownEntity     = errors.New("unknown entity type")
	ErrUnknownCacheType  = errors.New("unknown cache type")
	ErrTeamRequired      = errors.New("--team is required for this entity")
	ErrInvalidOutput     = errors.New("invalid output format")
	ErrInvalidPageSize   = errors.New("page size must be positive")
	ErrInvalidLimit      = errors.New("limit must be positive")
	ErrMissingIdentifier = errors.New("at least one identifier is required")
)
