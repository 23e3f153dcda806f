package linear

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go"

	"github.com/fivetwenty-io/linctl/internal/constants"
)

// StoreType represents the type of cache backend.
type StoreType string

const (
	// StoreTypeFile stores one file per cache type in a directory.
	StoreTypeFile StoreType = "file"

	// StoreTypeNATS stores one key per cache type in a NATS JetStream KV bucket.
	StoreTypeNATS StoreType = "nats"

	// StoreTypeMemory keeps entries in process memory.
	StoreTypeMemory StoreType = "memory"

	// StoreTypeNone represents no caching.
	StoreTypeNone StoreType = "none"
)

// Static errors for err113 compliance.
var (
	ErrNATSConfigRequired   = errors.New("NATS configuration required for NATS cache")
	ErrCacheDirRequired     = errors.New("cache directory required for file cache")
	ErrUnsupportedStoreType = errors.New("unsupported cache backend")
	ErrStoreKeyNotFound     = errors.New("cache key not found")
)

// Store is the byte-level persistence behind Cache. Write must replace the
// previous value atomically: a reader sees the old value or the new one,
// never a mix.
type Store interface {
	Read(ctx context.Context, name string) ([]byte, error)
	Write(ctx context.Context, name string, data []byte) error
	Remove(ctx context.Context, name string) error
}

// NewStoreFromConfig creates a store backend from configuration.
func NewStoreFromConfig(config CacheConfig) (Store, error) {
	switch config.Backend {
	case StoreTypeFile, "":
		if config.Dir == "" {
			return nil, ErrCacheDirRequired
		}

		return NewFileStore(config.Dir)

	case StoreTypeNATS:
		if config.NATS == nil {
			return nil, ErrNATSConfigRequired
		}

		return NewNATSKVStore(config.NATS)

	case StoreTypeMemory:
		return NewMemoryStore(), nil

	case StoreTypeNone:
		return NewNoOpStore(), nil

	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedStoreType, config.Backend)
	}
}

// FileStore keeps each cache type in its own file under dir.
type FileStore struct {
	dir string
}

// NewFileStore creates the directory (owner-only) if needed.
func NewFileStore(dir string) (*FileStore, error) {
	err := os.MkdirAll(dir, constants.CacheDirPerm)
	if err != nil {
		return nil, fmt.Errorf("creating cache directory: %w", err)
	}

	return &FileStore{dir: dir}, nil
}

// Dir returns the cache directory.
func (s *FileStore) Dir() string {
	return s.dir
}

// Path returns the file backing name.
func (s *FileStore) Path(name string) string {
	return filepath.Join(s.dir, name+constants.CacheFileExt)
}

// Read returns the file contents or ErrStoreKeyNotFound.
func (s *FileStore) Read(ctx context.Context, name string) ([]byte, error) {
	// #nosec G304 -- name comes from the closed CacheType set
	data, err := os.ReadFile(s.Path(name))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, ErrStoreKeyNotFound
	}

	if err != nil {
		return nil, fmt.Errorf("reading cache file: %w", err)
	}

	return data, nil
}

// Write replaces the file through a temp sibling and rename. The temp file is
// created 0600 before any byte is written and gets a unique name so
// concurrent writers never share one; the last rename wins.
func (s *FileStore) Write(ctx context.Context, name string, data []byte) error {
	err := ctx.Err()
	if err != nil {
		return err
	}

	err = os.MkdirAll(s.dir, constants.CacheDirPerm)
	if err != nil {
		return fmt.Errorf("creating cache directory: %w", err)
	}

	tempPath := filepath.Join(s.dir, constants.CacheTempPrefix+name+"-"+uuid.NewString())

	// #nosec G304 -- path is built from the cache dir and a generated name
	file, err := os.OpenFile(tempPath, os.O_WRONLY|os.O_CREATE|os.O_EXCL, constants.CacheFilePerm)
	if err != nil {
		return fmt.Errorf("creating temp cache file: %w", err)
	}

	committed := false

	defer func() {
		if !committed {
			_ = file.Close()
			_ = os.Remove(tempPath)
		}
	}()

	_, err = file.Write(data)
	if err != nil {
		return fmt.Errorf("writing temp cache file: %w", err)
	}

	err = file.Sync()
	if err != nil {
		return fmt.Errorf("syncing temp cache file: %w", err)
	}

	err = file.Close()
	if err != nil {
		return fmt.Errorf("closing temp cache file: %w", err)
	}

	err = os.Rename(tempPath, s.Path(name))
	if err != nil {
		return fmt.Errorf("committing cache file: %w", err)
	}

	committed = true

	return nil
}

// Remove deletes the file; a missing file is not an error.
func (s *FileStore) Remove(ctx context.Context, name string) error {
	err := os.Remove(s.Path(name))
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("removing cache file: %w", err)
	}

	return nil
}

// NATSKVConfig configures the JetStream key-value backend.
type NATSKVConfig struct {
	// URL of the NATS server, e.g. nats://127.0.0.1:4222.
	URL string `validate:"required"`
	// Bucket is created on first use if missing.
	Bucket string
	// Prefix namespaces keys, normally the profile name.
	Prefix string
	// Timeout bounds the initial connection.
	Timeout time.Duration
}

// NATSKVStore keeps each cache type under one key of a KV bucket. A Put
// replaces the value as a unit, which gives the same visibility guarantee as
// the file store's rename.
type NATSKVStore struct {
	conn   *nats.Conn
	kv     nats.KeyValue
	prefix string
}

// NewNATSKVStore connects and binds (or creates) the bucket.
func NewNATSKVStore(config *NATSKVConfig) (*NATSKVStore, error) {
	timeout := config.Timeout
	if timeout == 0 {
		timeout = constants.ShortHTTPTimeout
	}

	bucket := config.Bucket
	if bucket == "" {
		bucket = constants.DefaultNATSBucket
	}

	conn, err := nats.Connect(config.URL, nats.Name("linctl"), nats.Timeout(timeout))
	if err != nil {
		return nil, fmt.Errorf("connecting to NATS: %w", err)
	}

	jetStream, err := conn.JetStream()
	if err != nil {
		conn.Close()

		return nil, fmt.Errorf("opening JetStream context: %w", err)
	}

	keyValue, err := jetStream.KeyValue(bucket)
	if errors.Is(err, nats.ErrBucketNotFound) {
		keyValue, err = jetStream.CreateKeyValue(&nats.KeyValueConfig{
			Bucket:      bucket,
			Description: "linctl catalog cache",
		})
	}

	if err != nil {
		conn.Close()

		return nil, fmt.Errorf("binding KV bucket %s: %w", bucket, err)
	}

	return &NATSKVStore{
		conn:   conn,
		kv:     keyValue,
		prefix: sanitizeKVKey(config.Prefix),
	}, nil
}

func sanitizeKVKey(key string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
			return r
		default:
			return '_'
		}
	}, key)
}

func (s *NATSKVStore) key(name string) string {
	if s.prefix == "" {
		return name
	}

	return s.prefix + "." + name
}

// Read returns the stored value or ErrStoreKeyNotFound.
func (s *NATSKVStore) Read(ctx context.Context, name string) ([]byte, error) {
	entry, err := s.kv.Get(s.key(name))
	if errors.Is(err, nats.ErrKeyNotFound) {
		return nil, ErrStoreKeyNotFound
	}

	if err != nil {
		return nil, fmt.Errorf("reading KV entry: %w", err)
	}

	return entry.Value(), nil
}

// Write replaces the stored value.
func (s *NATSKVStore) Write(ctx context.Context, name string, data []byte) error {
	_, err := s.kv.Put(s.key(name), data)
	if err != nil {
		return fmt.Errorf("writing KV entry: %w", err)
	}

	return nil
}

// Remove deletes the key; a missing key is not an error.
func (s *NATSKVStore) Remove(ctx context.Context, name string) error {
	err := s.kv.Delete(s.key(name))
	if err != nil && !errors.Is(err, nats.ErrKeyNotFound) {
		return fmt.Errorf("deleting KV entry: %w", err)
	}

	return nil
}

// Close drains the connection.
func (s *NATSKVStore) Close() {
	s.conn.Close()
}

// MemoryStore keeps values in a map. Used for tests and ephemeral runs.
type MemoryStore struct {
	mutex sync.RWMutex
	items map[string][]byte
}

// NewMemoryStore creates an empty memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{items: make(map[string][]byte)}
}

// Read returns a copy of the stored value.
func (s *MemoryStore) Read(ctx context.Context, name string) ([]byte, error) {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	data, ok := s.items[name]
	if !ok {
		return nil, ErrStoreKeyNotFound
	}

	return append([]byte(nil), data...), nil
}

// Write stores a copy of data.
func (s *MemoryStore) Write(ctx context.Context, name string, data []byte) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	s.items[name] = append([]byte(nil), data...)

	return nil
}

// Remove deletes name.
func (s *MemoryStore) Remove(ctx context.Context, name string) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	delete(s.items, name)

	return nil
}

// NoOpStore is a store that does nothing (no caching).
type NoOpStore struct{}

// NewNoOpStore creates a new no-op store.
func NewNoOpStore() *NoOpStore {
	return &NoOpStore{}
}

// Read always misses.
func (s *NoOpStore) Read(ctx context.Context, name string) ([]byte, error) {
	return nil, ErrStoreKeyNotFound
}

// Write does nothing.
func (s *NoOpStore) Write(ctx context.Context, name string, data []byte) error {
	return nil
}

// Remove does nothing.
func (s *NoOpStore) Remove(ctx context.Context, name string) error {
	return nil
}
