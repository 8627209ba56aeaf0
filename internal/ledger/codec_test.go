package ledger

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadMissingFileIsEmptyLedger(t *testing.T) {
	nextID, entries, err := Load(filepath.Join(t.TempDir(), "missing.json"))
	require.NoError(t, err)
	assert.Equal(t, int64(0), nextID)
	assert.Empty(t, entries)
}

func TestSaveThenLoadRoundTrips(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ledger.json")
	entries := map[int64]Transaction{
		0: {Name: "ACME", Quantity: 10, Type: Buy},
		1: {Name: "ACME", Quantity: 3, Type: Sell},
	}
	require.NoError(t, Save(path, 2, entries))

	nextID, loaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, int64(2), nextID)
	require.Len(t, loaded, 2)
	assert.Equal(t, int64(0), loaded[0].ID)
	assert.Equal(t, "ACME", loaded[0].Name)
	assert.Equal(t, Sell, loaded[1].Type)
}

func TestSaveOverwritesPreviousContent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ledger.json")
	require.NoError(t, Save(path, 1, map[int64]Transaction{0: {Name: "A", Quantity: 1, Type: Buy}}))
	require.NoError(t, Save(path, 0, map[int64]Transaction{}))

	nextID, entries, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, int64(0), nextID)
	assert.Empty(t, entries)
}
