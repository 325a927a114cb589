package cache

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

type sample struct {
	Name string `json:"name"`
}

func newTestStore(t *testing.T, ttls map[Family]time.Duration) *Store {
	t.Helper()
	dir := t.TempDir()
	store, err := NewStore(dir, ttls, zerolog.Nop())
	require.NoError(t, err)
	return store
}

func TestSetThenGetRoundTrips(t *testing.T) {
	store := newTestStore(t, nil)
	ctx := context.Background()

	require.NoError(t, store.Set(ctx, FamilyAmazonASIN, AmazonKey("B01ABCDEFG", ""), sample{Name: "widget"}))

	var got sample
	ok, err := store.Get(ctx, FamilyAmazonASIN, AmazonKey("B01ABCDEFG", ""), &got)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "widget", got.Name)
}

func TestGetMissingKeyIsCleanMiss(t *testing.T) {
	store := newTestStore(t, nil)
	var got sample
	ok, err := store.Get(context.Background(), FamilySupplierProducts, SupplierProductsKey("acme"), &got)
	require.NoError(t, err)
	require.False(t, ok)
}

func TestGetExpiredTTLIsMiss(t *testing.T) {
	store := newTestStore(t, map[Family]time.Duration{FamilyAmazonASIN: time.Millisecond})
	ctx := context.Background()
	key := AmazonKey("B01ABCDEFG", "")
	require.NoError(t, store.Set(ctx, FamilyAmazonASIN, key, sample{Name: "stale"}))

	time.Sleep(5 * time.Millisecond)

	var got sample
	ok, err := store.Get(ctx, FamilyAmazonASIN, key, &got)
	require.NoError(t, err)
	require.False(t, ok)
}

func TestGetCorruptFileIsQuarantinedAndTreatedAsMiss(t *testing.T) {
	dir := t.TempDir()
	store, err := NewStore(dir, nil, zerolog.Nop())
	require.NoError(t, err)

	key := AmazonKey("B01ABCDEFG", "")
	path := filepath.Join(dir, key)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte("{not valid json"), 0o644))

	var got sample
	ok, err := store.Get(context.Background(), FamilyAmazonASIN, key, &got)
	require.NoError(t, err)
	require.False(t, ok)

	entries, err := os.ReadDir(filepath.Dir(path))
	require.NoError(t, err)
	var foundCorrupt bool
	for _, e := range entries {
		if filepath.Ext(e.Name()) != ".json" && len(e.Name()) > 0 {
			foundCorrupt = foundCorrupt || (e.Name() != filepath.Base(path))
		}
	}
	require.True(t, foundCorrupt, "expected a .corrupt.<ts> quarantine file alongside the original key")
}

func TestSetIsAtomicNoTmpLeftBehind(t *testing.T) {
	store := newTestStore(t, nil)
	ctx := context.Background()
	key := SupplierProductsKey("acme")
	require.NoError(t, store.Set(ctx, FamilySupplierProducts, key, sample{Name: "acme"}))

	_, err := os.Stat(store.keyPath(key) + ".tmp")
	require.True(t, os.IsNotExist(err), "tmp file must not survive a successful Set")
}

func TestClearRemovesScope(t *testing.T) {
	store := newTestStore(t, nil)
	ctx := context.Background()
	require.NoError(t, store.Set(ctx, FamilySupplierProducts, "supplier/acme_products_cache.json", sample{Name: "acme"}))

	require.NoError(t, store.Clear(ctx, "supplier"))

	var got sample
	ok, _ := store.Get(ctx, FamilySupplierProducts, "supplier/acme_products_cache.json", &got)
	require.False(t, ok)
}
