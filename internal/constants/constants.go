package constants

import "time"

// File and directory permissions.
const (
	// ConfigDirPerm is the permission for configuration directories.
	ConfigDirPerm = 0750

	// ConfigFilePerm is the permission for configuration files.
	ConfigFilePerm = 0600

	// CacheDirPerm is the permission for per-profile cache directories.
	CacheDirPerm = 0700

	// CacheFilePerm is the permission for cache files and their temp siblings.
	CacheFilePerm = 0600
)

// HTTP and network timeouts.
const (
	// DefaultHTTPTimeout is the default timeout for HTTP requests.
	DefaultHTTPTimeout = 30 * time.Second

	// ShortHTTPTimeout is used for quick operations.
	ShortHTTPTimeout = 10 * time.Second
)

// Retry defaults.
const (
	// DefaultRetryMax is the default maximum number of retries.
	DefaultRetryMax = 3

	// DefaultRetryInitialDelayMs is the delay before the first retry.
	DefaultRetryInitialDelayMs = 1000

	// DefaultRetryMaxDelayMs caps the computed backoff.
	DefaultRetryMaxDelayMs = 30000

	// ExponentialBackoffBase is the base for exponential backoff.
	ExponentialBackoffBase = 2.0

	// BackoffJitterFraction is the symmetric jitter applied to a computed delay.
	BackoffJitterFraction = 0.25

	// MaxRetryAfter caps a server Retry-After hint.
	MaxRetryAfter = 15 * time.Minute
)

// Concurrency limits.
const (
	// DefaultConcurrencyLimit bounds concurrent resolver and pagination calls.
	DefaultConcurrencyLimit = 10
)

// Pagination limits.
const (
	// DefaultPageSize is the number of nodes requested per page.
	DefaultPageSize = 50

	// MaxPageSize is the largest page the API accepts.
	MaxPageSize = 250

	// CatalogPageSize is the page size used for full resolver sweeps.
	CatalogPageSize = 250
)

// Cache defaults.
const (
	// DefaultCacheTTL is how long cached catalogs stay fresh.
	DefaultCacheTTL = time.Hour

	// CacheFileExt is the extension of per-type cache files.
	CacheFileExt = ".json"

	// CacheTempPrefix prefixes temp siblings written during an atomic cache update.
	CacheTempPrefix = ".tmp-"

	// DefaultNATSBucket is the JetStream KV bucket used by the nats cache backend.
	DefaultNATSBucket = "linctl_cache"
)

// API defaults.
const (
	// DefaultAPIEndpoint is the GraphQL endpoint used when no profile overrides it.
	DefaultAPIEndpoint = "https://api.linear.app/graphql"

	// DefaultProfile names the profile used when none is selected.
	DefaultProfile = "default"

	// ConfigDirName is the directory under $HOME holding config and cache.
	ConfigDirName = ".linctl"

	// EnvPrefix is the prefix for environment variable overrides.
	EnvPrefix = "LINCTL"
)

// Canonical ID shape.
const (
	// IDLength is the length of a canonical (UUID) identifier.
	IDLength = 36

	// IDDashCount is the number of dashes in a canonical identifier.
	IDDashCount = 4
)

// Format constants.
const (
	// FormatJSON for JSON output format.
	FormatJSON = "json"

	// FormatYAML for YAML output format.
	FormatYAML = "yaml"

	// FormatTable for table output format.
	FormatTable = "table"
)

// UI and display constants.
const (
	// NotAvailable is used when information is not available.
	NotAvailable = "N/A"

	// CheckMarkSymbol marks valid entries.
	CheckMarkSymbol = "✓"
)

// Process exit codes.
const (
	ExitGeneral     = 1
	ExitUsage       = 2
	ExitAuth        = 3
	ExitNotFound    = 4
	ExitRateLimited = 5
)
