package linear_test

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fivetwenty-io/linctl/pkg/linear"
)

// newNATSStore binds a throwaway bucket on the server named by
// LINCTL_TEST_NATS_URL, skipping when it is not set.
func newNATSStore(t *testing.T, prefix string) *linear.NATSKVStore {
	t.Helper()

	url, bucket := newNATSBucket(t)

	return openNATSStore(t, url, bucket, prefix)
}

// newNATSBucket names a bucket that is deleted when the test ends.
func newNATSBucket(t *testing.T) (string, string) {
	t.Helper()

	url := natsTestURL(t)
	bucket := "linctl-test-" + uuid.NewString()

	t.Cleanup(func() {
		conn, err := nats.Connect(url)
		if err != nil {
			return
		}
		defer conn.Close()

		if jetStream, err := conn.JetStream(); err == nil {
			_ = jetStream.DeleteKeyValue(bucket)
		}
	})

	return url, bucket
}

func natsTestURL(t *testing.T) string {
	t.Helper()

	url := os.Getenv("LINCTL_TEST_NATS_URL")
	if url == "" {
		t.Skip("LINCTL_TEST_NATS_URL not set, skipping NATS cache test")
	}

	return url
}

func openNATSStore(t *testing.T, url, bucket, prefix string) *linear.NATSKVStore {
	t.Helper()

	store, err := linear.NewNATSKVStore(&linear.NATSKVConfig{
		URL:     url,
		Bucket:  bucket,
		Prefix:  prefix,
		Timeout: 5 * time.Second,
	})
	require.NoError(t, err)
	t.Cleanup(store.Close)

	return store
}

func TestNATSKVStore_ReadWriteRemove(t *testing.T) {
	t.Parallel()

	store := newNATSStore(t, "work space")
	ctx := context.Background()

	_, err := store.Read(ctx, "teams")
	require.ErrorIs(t, err, linear.ErrStoreKeyNotFound)

	require.NoError(t, store.Write(ctx, "teams", []byte(`{"v":1}`)))
	require.NoError(t, store.Write(ctx, "teams", []byte(`{"v":2}`)))

	data, err := store.Read(ctx, "teams")
	require.NoError(t, err)
	assert.JSONEq(t, `{"v":2}`, string(data))

	require.NoError(t, store.Remove(ctx, "teams"))
	require.NoError(t, store.Remove(ctx, "teams"))

	_, err = store.Read(ctx, "teams")
	require.ErrorIs(t, err, linear.ErrStoreKeyNotFound)
}

func TestNATSKVStore_PrefixesIsolateProfiles(t *testing.T) {
	t.Parallel()

	url, bucket := newNATSBucket(t)
	work := openNATSStore(t, url, bucket, "work")
	personal := openNATSStore(t, url, bucket, "personal")
	ctx := context.Background()

	require.NoError(t, work.Write(ctx, "users", []byte(`["w"]`)))

	_, err := personal.Read(ctx, "users")
	require.ErrorIs(t, err, linear.ErrStoreKeyNotFound)

	require.NoError(t, personal.Write(ctx, "users", []byte(`["p"]`)))
	require.NoError(t, personal.Remove(ctx, "users"))

	data, err := work.Read(ctx, "users")
	require.NoError(t, err)
	assert.JSONEq(t, `["w"]`, string(data))
}

func TestNATSKVStore_BacksCache(t *testing.T) {
	t.Parallel()

	store := newNATSStore(t, "default")
	cache := linear.NewCache(store, time.Hour)
	ctx := context.Background()

	require.NoError(t, cache.Set(ctx, linear.CacheTypeTeams, []string{"a", "b"}))
	require.NoError(t, cache.SetKeyed(ctx, linear.CacheTypeStatuses, "team-a", []string{"todo"}))

	raw, ok := cache.Get(ctx, linear.CacheTypeTeams)
	require.True(t, ok)
	assert.JSONEq(t, `["a","b"]`, string(raw))

	raw, ok = cache.GetKeyed(ctx, linear.CacheTypeStatuses, "team-a")
	require.True(t, ok)
	assert.JSONEq(t, `["todo"]`, string(raw))

	require.NoError(t, cache.ClearAll(ctx))

	_, ok = cache.Get(ctx, linear.CacheTypeTeams)
	assert.False(t, ok)
}

func TestNewNATSKVStore_UnreachableServer(t *testing.T) {
	t.Parallel()

	_, err := linear.NewNATSKVStore(&linear.NATSKVConfig{
		URL:     "nats://127.0.0.1:1",
		Timeout: 200 * time.Millisecond,
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "connecting to NATS")

	_, err = linear.NewStoreFromConfig(linear.CacheConfig{Backend: linear.StoreTypeNATS})
	require.ErrorIs(t, err, linear.ErrNATSConfigRequired)
}
