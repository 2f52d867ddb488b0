package storage

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// exerciseKV runs the behaviour every backend must share.
func exerciseKV(t *testing.T, kv KV) {
	t.Helper()
	ctx := context.Background()

	t.Run("get absent key", func(t *testing.T) {
		_, err := kv.Get(ctx, "missing")
		assert.True(t, errors.Is(err, ErrNotFound), "expected ErrNotFound, got %v", err)
	})

	t.Run("set then get", func(t *testing.T) {
		require.NoError(t, kv.Set(ctx, KeyCart, []byte(`{"items":[]}`)))

		value, err := kv.Get(ctx, KeyCart)
		require.NoError(t, err)
		assert.Equal(t, `{"items":[]}`, string(value))
	})

	t.Run("set overwrites", func(t *testing.T) {
		require.NoError(t, kv.Set(ctx, KeyAuthToken, []byte("first")))
		require.NoError(t, kv.Set(ctx, KeyAuthToken, []byte("second")))

		value, err := kv.Get(ctx, KeyAuthToken)
		require.NoError(t, err)
		assert.Equal(t, "second", string(value))
	})

	t.Run("delete", func(t *testing.T) {
		require.NoError(t, kv.Set(ctx, KeyUser, []byte("u")))
		require.NoError(t, kv.Delete(ctx, KeyUser))

		_, err := kv.Get(ctx, KeyUser)
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("delete absent key", func(t *testing.T) {
		assert.NoError(t, kv.Delete(ctx, "never-set"))
	})
}

func TestMemory(t *testing.T) {
	kv := NewMemory()
	exerciseKV(t, kv)

	t.Run("values are copied", func(t *testing.T) {
		value := []byte("abc")
		require.NoError(t, kv.Set(context.Background(), "k", value))
		value[0] = 'x'

		got, err := kv.Get(context.Background(), "k")
		require.NoError(t, err)
		assert.Equal(t, "abc", string(got))
	})
}

func TestSQLite(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "storefront.db")

	kv, err := OpenSQLite(ctx, path, "shop.test")
	require.NoError(t, err)
	t.Cleanup(func() { _ = kv.Close() })

	exerciseKV(t, kv)

	t.Run("origins are isolated", func(t *testing.T) {
		other, err := OpenSQLite(ctx, path, "other.test")
		require.NoError(t, err)
		defer func() { _ = other.Close() }()

		_, err = other.Get(ctx, KeyCart)
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("survives reopen", func(t *testing.T) {
		require.NoError(t, kv.Set(ctx, "durable", []byte("yes")))

		reopened, err := OpenSQLite(ctx, path, "shop.test")
		require.NoError(t, err)
		defer func() { _ = reopened.Close() }()

		value, err := reopened.Get(ctx, "durable")
		require.NoError(t, err)
		assert.Equal(t, "yes", string(value))
	})
}

func TestRedis(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	kv := NewRedis(client, "shop.test")
	t.Cleanup(func() { _ = kv.Close() })

	exerciseKV(t, kv)

	t.Run("keys are prefixed with origin", func(t *testing.T) {
		require.NoError(t, kv.Set(context.Background(), KeyCart, []byte("x")))
		assert.True(t, mr.Exists("storefront:shop.test:cart_data"))
	})
}

func TestOpen(t *testing.T) {
	ctx := context.Background()

	t.Run("memory", func(t *testing.T) {
		kv, err := Open(ctx, "memory://", "o")
		require.NoError(t, err)
		assert.IsType(t, &Memory{}, kv)
	})

	t.Run("sqlite", func(t *testing.T) {
		kv, err := Open(ctx, "sqlite://"+filepath.Join(t.TempDir(), "s.db"), "o")
		require.NoError(t, err)
		defer func() { _ = kv.Close() }()
		assert.IsType(t, &SQLite{}, kv)
	})

	t.Run("redis", func(t *testing.T) {
		mr := miniredis.RunT(t)
		kv, err := Open(ctx, "redis://"+mr.Addr()+"/0", "o")
		require.NoError(t, err)
		defer func() { _ = kv.Close() }()
		assert.IsType(t, &Redis{}, kv)
	})

	t.Run("unknown scheme", func(t *testing.T) {
		_, err := Open(ctx, "ftp://example.com", "o")
		assert.Error(t, err)
	})

	t.Run("origin required", func(t *testing.T) {
		_, err := Open(ctx, "memory://", "")
		assert.Error(t, err)
	})
}
