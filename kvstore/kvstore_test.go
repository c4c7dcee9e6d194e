package kvstore

import (
	"context"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestSQLite(t *testing.T, path string) *SQLiteStore {
	t.Helper()

	s, err := NewSQLiteStore(path)
	require.NoError(t, err)
	t.Cleanup(func() {
		require.NoError(t, s.Close())
	})
	return s
}

func newTestRedis(t *testing.T, mr *miniredis.Miniredis) *RedisStore {
	t.Helper()

	s := NewRedisStore(redis.NewClient(&redis.Options{Addr: mr.Addr()}))
	t.Cleanup(func() {
		_ = s.Close()
	})
	return s
}

// storeContract runs the behaviour every backend must share
func storeContract(t *testing.T, s KeyValueStore) {
	ctx := context.Background()

	_, err := s.Get(ctx, "missing")
	require.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, s.Set(ctx, "seenNotificationIds_admin_1", `["1","2"]`))
	v, err := s.Get(ctx, "seenNotificationIds_admin_1")
	require.NoError(t, err)
	assert.Equal(t, `["1","2"]`, v)

	require.NoError(t, s.Set(ctx, "seenNotificationIds_admin_1", `["3"]`))
	v, err = s.Get(ctx, "seenNotificationIds_admin_1")
	require.NoError(t, err)
	assert.Equal(t, `["3"]`, v)
}

func TestMemoryStore(t *testing.T) {
	storeContract(t, NewMemoryStore())
}

func TestSQLiteStore(t *testing.T) {
	storeContract(t, newTestSQLite(t, filepath.Join(t.TempDir(), "kv.db")))
}

func TestRedisStore(t *testing.T) {
	mr := miniredis.RunT(t)
	storeContract(t, newTestRedis(t, mr))
}

func TestSQLiteStoreSurvivesReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "kv.db")
	ctx := context.Background()

	first, err := NewSQLiteStore(path)
	require.NoError(t, err)
	require.NoError(t, first.Set(ctx, "k", "v"))
	require.NoError(t, first.Close())

	second := newTestSQLite(t, path)
	v, err := second.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, "v", v)
}

func TestNewSQLiteStoreRejectsEmptyPath(t *testing.T) {
	_, err := NewSQLiteStore("  ")
	require.Error(t, err)
}

func TestMemoryStoreWatch(t *testing.T) {
	s := NewMemoryStore()
	var got []string

	cancel := s.Watch(func(key string) { got = append(got, key) })
	require.NoError(t, s.Set(context.Background(), "a", "1"))
	cancel()
	cancel()
	require.NoError(t, s.Set(context.Background(), "b", "1"))

	assert.Equal(t, []string{"a"}, got)
}

func TestSQLiteStoreWatch(t *testing.T) {
	s := newTestSQLite(t, filepath.Join(t.TempDir(), "kv.db"))
	var got []string

	cancel := s.Watch(func(key string) { got = append(got, key) })
	defer cancel()
	require.NoError(t, s.Set(context.Background(), "a", "1"))

	assert.Equal(t, []string{"a"}, got)
}

func TestRedisStoreWatchSeesOtherInstances(t *testing.T) {
	mr := miniredis.RunT(t)
	local := newTestRedis(t, mr)
	remote := newTestRedis(t, mr)

	var mu sync.Mutex
	var got []string
	cancel := local.Watch(func(key string) {
		mu.Lock()
		got = append(got, key)
		mu.Unlock()
	})
	defer cancel()

	ctx := context.Background()
	require.NoError(t, local.Set(ctx, "own-write", "1"))
	require.NoError(t, remote.Set(ctx, "deletedNotificationIds_admin_1", `["5"]`))

	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(got) == 1
	}, 2*time.Second, 10*time.Millisecond)

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []string{"deletedNotificationIds_admin_1"}, got)
}
