package index

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/seedliq/makerbot/internal/domain"
)

func TestFileStoreRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".cache.json")
	store := NewFileStore(path)
	ctx := context.Background()

	idx := domain.VenueIndex{
		"ZRX/ETH": {"binance", "kraken"},
		"OMG/ETH": {"kucoin"},
	}
	require.NoError(t, store.Save(ctx, idx))

	got, err := store.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, idx, got)
}

func TestFileStoreLoadMissing(t *testing.T) {
	store := NewFileStore(filepath.Join(t.TempDir(), "absent.json"))

	_, err := store.Load(context.Background())
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestFileStoreLoadCorrupt(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".cache.json")
	require.NoError(t, os.WriteFile(path, []byte("not json"), 0o644))

	_, err := NewFileStore(path).Load(context.Background())
	assert.Error(t, err)
	assert.NotErrorIs(t, err, domain.ErrNotFound)
}

func TestFileStoreSaveReplacesWholeFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".cache.json")
	store := NewFileStore(path)
	ctx := context.Background()

	require.NoError(t, store.Save(ctx, domain.VenueIndex{"ZRX/ETH": {"binance"}}))
	require.NoError(t, store.Save(ctx, domain.VenueIndex{"OMG/ETH": {"kraken"}}))

	got, err := store.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, domain.VenueIndex{"OMG/ETH": {"kraken"}}, got)
}

func TestFileStoreFormat(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".cache.json")
	store := NewFileStore(path)

	require.NoError(t, store.Save(context.Background(), domain.VenueIndex{"ZRX/ETH": {"binance"}}))

	data, err := os.ReadFile(path)
	require.NoError(t, err)

	var raw map[string]map[string][]string
	require.NoError(t, json.Unmarshal(data, &raw))
	assert.Contains(t, raw, "markets")
	assert.Equal(t, []string{"binance"}, raw["markets"]["ZRX/ETH"])
}
