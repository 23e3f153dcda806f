package linear

import (
	"context"
	"time"
)

// Querier issues a read-only GraphQL document and returns the decoded "data" tree.
type Querier interface {
	Query(ctx context.Context, document string, variables map[string]any) (any, error)
}

// Mutator issues a GraphQL mutation. Implementations may retry, so mutations
// sent through it must be safe to re-apply.
type Mutator interface {
	Mutate(ctx context.Context, document string, variables map[string]any) (any, error)
}

// ByteFetcher downloads raw bytes, e.g. an attachment.
type ByteFetcher interface {
	FetchBytes(ctx context.Context, url string) ([]byte, error)
}

// Transport is the full collaborator surface the core consumes.
type Transport interface {
	Querier
	Mutator
	ByteFetcher
}

// Logger interface for logging.
type Logger interface {
	Debug(msg string, fields map[string]interface{})
	Info(msg string, fields map[string]interface{})
	Warn(msg string, fields map[string]interface{})
	Error(msg string, fields map[string]interface{})
}

// NopLogger discards everything.
type NopLogger struct{}

func (NopLogger) Debug(string, map[string]interface{}) {}
func (NopLogger) Info(string, map[string]interface{})  {}
func (NopLogger) Warn(string, map[string]interface{})  {}
func (NopLogger) Error(string, map[string]interface{}) {}

// Config is built once at startup and injected into every component.
type Config struct {
	// Retry controls the retry engine wrapping every transport call.
	Retry RetryConfig

	// Cache controls the TTL cache backend and lifetime.
	Cache CacheConfig

	// MaxConcurrency bounds fan-out in ResolveMany.
	MaxConcurrency int `validate:"gte=1,lte=100"`

	// NoCache bypasses cache reads in the resolver. Writes still happen so a
	// later cached run benefits from the fresh sweep.
	NoCache bool
}

// CacheConfig configures the TTL cache.
type CacheConfig struct {
	// Backend selects the store: file, nats, memory or none.
	Backend StoreType `validate:"oneof=file nats memory none"`

	// Dir is the per-profile cache directory used by the file backend.
	Dir string `validate:"required_if=Backend file"`

	// TTL is the lifetime written into every entry.
	TTL time.Duration `validate:"gt=0"`

	// NATS configures the nats backend.
	NATS *NATSKVConfig `validate:"required_if=Backend nats"`
}
