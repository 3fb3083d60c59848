package blob

import (
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openStore(t *testing.T) *Store {
	t.Helper()
	store, err := Open(filepath.Join(t.TempDir(), "images.db"), "/images/")
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func TestSaveAndGet(t *testing.T) {
	store := openStore(t)

	url, err := store.Save("1001", []byte("jpeg-bytes"))
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(url, "/images/1001_"), "url: %s", url)

	data, err := store.Get(store.KeyFromURL(url))
	require.NoError(t, err)
	assert.Equal(t, []byte("jpeg-bytes"), data)

	_, err = store.Get("missing-key")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestSave_EmptyPayload(t *testing.T) {
	store := openStore(t)

	_, err := store.Save("1001", nil)
	assert.Error(t, err)
}

func TestSave_SanitizesOwnerCode(t *testing.T) {
	store := openStore(t)

	url, err := store.Save("a/b..c 9", []byte("x"))
	require.NoError(t, err)

	key := store.KeyFromURL(url)
	assert.False(t, strings.ContainsAny(key, "/. "), "key must be path-safe: %s", key)

	url, err = store.Save("///", []byte("x"))
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(store.KeyFromURL(url), "item_"))
}

func TestDelete(t *testing.T) {
	store := openStore(t)

	url, err := store.Save("1001", []byte("jpeg-bytes"))
	require.NoError(t, err)

	require.NoError(t, store.Delete(url))
	_, err = store.Get(store.KeyFromURL(url))
	assert.ErrorIs(t, err, ErrNotFound)

	// Compensation paths may delete twice; the second call is a no-op.
	assert.NoError(t, store.Delete(url))
	assert.NoError(t, store.Delete("/images/never-stored"))
	assert.NoError(t, store.Delete(""))
}

func TestURLsAndSize(t *testing.T) {
	store := openStore(t)

	first, err := store.Save("1001", []byte("a"))
	require.NoError(t, err)
	second, err := store.Save("2002", []byte("b"))
	require.NoError(t, err)

	urls, err := store.URLs()
	require.NoError(t, err)
	require.Len(t, urls, 2)
	assert.Contains(t, urls, first)
	assert.Contains(t, urls, second)

	for url, uploaded := range urls {
		assert.WithinDuration(t, time.Now(), uploaded, time.Minute, "upload time parsed from key of %s", url)
	}

	count, err := store.Size()
	require.NoError(t, err)
	assert.Equal(t, 2, count)
}

func TestKeyFromURL(t *testing.T) {
	store := openStore(t)

	assert.Equal(t, "1001_42", store.KeyFromURL("/images/1001_42"))
	assert.Equal(t, "bare-key", store.KeyFromURL("bare-key"))
	assert.Equal(t, "", store.KeyFromURL(""))
}
