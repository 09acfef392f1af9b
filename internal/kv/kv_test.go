package kv

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func runStoreSuite(t *testing.T, s Store) {
	t.Helper()
	ctx := context.Background()

	t.Run("missing key", func(t *testing.T) {
		_, err := s.Get(ctx, "absent")
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("set then get", func(t *testing.T) {
		require.NoError(t, s.Set(ctx, "hinduDharmaUsers", []byte(`[]`)))
		got, err := s.Get(ctx, "hinduDharmaUsers")
		require.NoError(t, err)
		assert.Equal(t, `[]`, string(got))
	})

	t.Run("overwrite", func(t *testing.T) {
		require.NoError(t, s.Set(ctx, "k", []byte("one")))
		require.NoError(t, s.Set(ctx, "k", []byte("two")))
		got, err := s.Get(ctx, "k")
		require.NoError(t, err)
		assert.Equal(t, "two", string(got))
	})

	t.Run("delete is idempotent", func(t *testing.T) {
		require.NoError(t, s.Set(ctx, "session:abc", []byte(`{}`)))
		require.NoError(t, s.Delete(ctx, "session:abc"))
		require.NoError(t, s.Delete(ctx, "session:abc"))
		_, err := s.Get(ctx, "session:abc")
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("invalid keys", func(t *testing.T) {
		for _, key := range []string{"", ".hidden", "../escape", "a/b", "with space"} {
			_, err := s.Get(ctx, key)
			assert.ErrorIs(t, err, ErrInvalidKey, "Get(%q)", key)
			assert.ErrorIs(t, s.Set(ctx, key, []byte("x")), ErrInvalidKey, "Set(%q)", key)
			assert.ErrorIs(t, s.Delete(ctx, key), ErrInvalidKey, "Delete(%q)", key)
		}
	})
}

func TestMemoryStore(t *testing.T) {
	runStoreSuite(t, NewMemoryStore())
}

func TestMemoryStoreCopiesValues(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()
	v := []byte("abc")
	require.NoError(t, s.Set(ctx, "k", v))
	v[0] = 'z'
	got, err := s.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, "abc", string(got))
}

func TestFileStore(t *testing.T) {
	s, err := NewFileStore(t.TempDir())
	require.NoError(t, err)
	runStoreSuite(t, s)
}

func TestFileStoreLayout(t *testing.T) {
	dir := t.TempDir()
	s, err := NewFileStore(dir)
	require.NoError(t, err)

	require.NoError(t, s.Set(context.Background(), "hinduDharmaUsers", []byte(`[1]`)))

	b, err := os.ReadFile(filepath.Join(dir, "hinduDharmaUsers.json"))
	require.NoError(t, err)
	assert.Equal(t, `[1]`, string(b))

	leftovers, err := filepath.Glob(filepath.Join(dir, ".kv-*"))
	require.NoError(t, err)
	assert.Empty(t, leftovers)
}

func TestFileStoreLockTableStaysBounded(t *testing.T) {
	s, err := NewFileStore(t.TempDir())
	require.NoError(t, err)
	ctx := context.Background()

	seen := map[*sync.Mutex]bool{}
	for i := 0; i < 2000; i++ {
		key := fmt.Sprintf("hinduDharmaCurrentUser:%d", i)
		require.NoError(t, s.Set(ctx, key, []byte(`{}`)))
		require.NoError(t, s.Delete(ctx, key))
		p, err := s.path(key)
		require.NoError(t, err)
		m := s.lockFor(p)
		assert.Same(t, m, s.lockFor(p), "a path always maps to one lock")
		seen[m] = true
	}
	assert.LessOrEqual(t, len(seen), lockStripes)
}

func TestFileStoreConcurrentWritesSameKey(t *testing.T) {
	s, err := NewFileStore(t.TempDir())
	require.NoError(t, err)
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			assert.NoError(t, s.Set(ctx, "k", []byte(fmt.Sprintf(`{"n":%d}`, i))))
		}(i)
	}
	wg.Wait()

	b, err := s.Get(ctx, "k")
	require.NoError(t, err)
	assert.Contains(t, string(b), `"n":`)
}

func TestFileStoreRequiresDir(t *testing.T) {
	_, err := NewFileStore(" ")
	assert.Error(t, err)
}

func TestFileStoreHonoursCancelledContext(t *testing.T) {
	s, err := NewFileStore(t.TempDir())
	require.NoError(t, err)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, s.Set(ctx, "k", []byte("v")), context.Canceled)
}

func TestSQLiteStore(t *testing.T) {
	s, err := OpenSQLite(context.Background(), filepath.Join(t.TempDir(), "kv.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	runStoreSuite(t, s)
}

func TestSQLiteStorePersistsAcrossReopen(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "kv.db")

	s, err := OpenSQLite(ctx, path)
	require.NoError(t, err)
	require.NoError(t, s.Set(ctx, "k", []byte("v")))
	require.NoError(t, s.Close())

	s, err = OpenSQLite(ctx, path)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	got, err := s.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, "v", string(got))
}

func newRedisStore(t *testing.T) (*RedisStore, *miniredis.Miniredis) {
	t.Helper()
	mr, err := miniredis.Run()
	require.NoError(t, err)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	s := NewRedisStore(rdb, "test")
	t.Cleanup(func() {
		_ = s.Close()
		mr.Close()
	})
	return s, mr
}

func TestRedisStore(t *testing.T) {
	s, _ := newRedisStore(t)
	runStoreSuite(t, s)
}

func TestRedisStorePrefixesKeys(t *testing.T) {
	s, mr := newRedisStore(t)
	require.NoError(t, s.Set(context.Background(), "hinduDharmaUsers", []byte("[]")))

	got, err := mr.Get("test:hinduDharmaUsers")
	require.NoError(t, err)
	assert.Equal(t, "[]", got)
}

func TestOpen(t *testing.T) {
	ctx := context.Background()

	s, err := Open(ctx, Options{Dir: t.TempDir()})
	require.NoError(t, err)
	assert.IsType(t, &FileStore{}, s)

	s, err = Open(ctx, Options{Driver: "MEMORY"})
	require.NoError(t, err)
	assert.IsType(t, &MemoryStore{}, s)

	mr := miniredis.RunT(t)
	s, err = Open(ctx, Options{Driver: DriverRedis, RedisAddr: mr.Addr()})
	require.NoError(t, err)
	assert.IsType(t, &RedisStore{}, s)
	require.NoError(t, s.Close())

	_, err = Open(ctx, Options{Driver: "etcd"})
	assert.Error(t, err)

	_, err = Open(ctx, Options{Driver: DriverSQLite})
	assert.Error(t, err)
}
