package storage

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gocloud.dev/blob/memblob"
)

func backends(t *testing.T) map[string]Storage {
	t.Helper()
	fs, err := NewFilesystemStorage(t.TempDir())
	require.NoError(t, err)
	return map[string]Storage{
		"filesystem": fs,
		"blob":       NewBlobStorageFromBucket(memblob.OpenBucket(nil), "output"),
	}
}

func TestStorage_WriteRead(t *testing.T) {
	ctx := context.Background()
	for name, s := range backends(t) {
		t.Run(name, func(t *testing.T) {
			require.NoError(t, s.Write(ctx, "site/example.com/index.html", []byte("original")))
			require.NoError(t, s.Write(ctx, "site/example.com/index.html", []byte("updated")))

			data, err := s.Read(ctx, "site/example.com/index.html")
			require.NoError(t, err)
			assert.Equal(t, []byte("updated"), data)

			_, err = s.Read(ctx, "site/missing")
			require.Error(t, err)
			assert.True(t, IsNotExist(err))
		})
	}
}

func TestStorage_ListRecursive(t *testing.T) {
	ctx := context.Background()
	for name, s := range backends(t) {
		t.Run(name, func(t *testing.T) {
			for _, key := range []string{"site/a.html", "site/blog/b.html", "site/blog/deep/c.html", "pjax/a.html", "sitemaps"} {
				require.NoError(t, s.Write(ctx, key, []byte(key)))
			}
			keys, err := s.List(ctx, "site/")
			require.NoError(t, err)
			assert.Equal(t, []string{"site/blog/deep/c.html", "site/blog/b.html", "site/a.html"}, keys)

			keys, err = s.List(ctx, "site")
			require.NoError(t, err)
			assert.Len(t, keys, 4)

			keys, err = s.List(ctx, "nothing/")
			require.NoError(t, err)
			assert.Empty(t, keys)
		})
	}
}

func TestStorage_DeletePrefix(t *testing.T) {
	ctx := context.Background()
	for name, s := range backends(t) {
		t.Run(name, func(t *testing.T) {
			for _, key := range []string{"site/a", "site/b/c", "cache/x.gz"} {
				require.NoError(t, s.Write(ctx, key, []byte(key)))
			}
			n, err := DeletePrefix(ctx, s, "site/")
			require.NoError(t, err)
			assert.Equal(t, 2, n)

			keys, err := s.List(ctx, "")
			require.NoError(t, err)
			assert.Equal(t, []string{"cache/x.gz"}, keys)

			// idempotent
			require.NoError(t, s.Delete(ctx, "site/a"))
		})
	}
}

func TestStorage_KeysStayInsideBaseDir(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	s, err := NewFilesystemStorage(dir)
	require.NoError(t, err)
	require.NoError(t, s.Write(ctx, "../../escape", []byte("x")))
	keys, err := s.List(ctx, "")
	require.NoError(t, err)
	assert.Equal(t, []string{"escape"}, keys)
}

func TestStorage_ConcurrentOperations(t *testing.T) {
	ctx := context.Background()
	for name, s := range backends(t) {
		t.Run(name, func(t *testing.T) {
			var wg sync.WaitGroup
			for i := 0; i < 10; i++ {
				wg.Add(1)
				go func() {
					defer wg.Done()
					_ = s.Write(ctx, "concurrent/key", []byte("data"))
					_, _ = s.Read(ctx, "concurrent/key")
					_, _ = s.List(ctx, "concurrent/")
				}()
			}
			wg.Wait()
			require.NoError(t, s.Close())
		})
	}
}
