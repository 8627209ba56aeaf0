package catalog

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/klingon-exchange/tradeledger/internal/apierr"
)

func seedStore(t *testing.T, notifier Notifier) (*Store, string) {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "catalog.json")
	table := map[string]*Instrument{
		"ACME": {Name: "ACME", Price: 10.5, Quantity: 100},
	}
	buf, err := json.Marshal(table)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(dbPath, buf, 0644))

	store, err := Open(Config{DBPath: dbPath, CacheMode: notifier != nil}, notifier)
	require.NoError(t, err)
	return store, dbPath
}

func TestOpenMissingDatabaseStartsEmpty(t *testing.T) {
	store, err := Open(Config{DBPath: filepath.Join(t.TempDir(), "missing.json")}, nil)
	require.NoError(t, err)

	_, err = store.Lookup("ACME")
	require.Error(t, err)
	apiErr, ok := apierr.As(err)
	require.True(t, ok)
	assert.Equal(t, "stock not found", apiErr.Message)
}

func TestLookupReturnsSnapshot(t *testing.T) {
	store, _ := seedStore(t, nil)

	inst, err := store.Lookup("ACME")
	require.NoError(t, err)
	assert.Equal(t, int64(100), inst.Quantity)

	inst.Quantity = 999 // must not alias the store's internal state
	again, err := store.Lookup("ACME")
	require.NoError(t, err)
	assert.Equal(t, int64(100), again.Quantity)
}

func TestUpdateBuyAndSell(t *testing.T) {
	store, dbPath := seedStore(t, nil)

	require.NoError(t, store.Update("ACME", 20, Buy))
	inst, err := store.Lookup("ACME")
	require.NoError(t, err)
	assert.Equal(t, int64(80), inst.Quantity)

	require.NoError(t, store.Update("ACME", 5, Sell))
	inst, err = store.Lookup("ACME")
	require.NoError(t, err)
	assert.Equal(t, int64(85), inst.Quantity)

	raw, err := os.ReadFile(dbPath)
	require.NoError(t, err)
	var table map[string]*Instrument
	require.NoError(t, json.Unmarshal(raw, &table))
	assert.Equal(t, int64(85), table["ACME"].Quantity)
}

func TestUpdateRejectsNegativeQuantity(t *testing.T) {
	store, _ := seedStore(t, nil)

	err := store.Update("ACME", 1000, Buy)
	require.Error(t, err)

	inst, lookupErr := store.Lookup("ACME")
	require.NoError(t, lookupErr)
	assert.Equal(t, int64(100), inst.Quantity, "a rejected update must not mutate state")
}

func TestUpdateRejectsUnknownInstrument(t *testing.T) {
	store, _ := seedStore(t, nil)
	err := store.Update("NOPE", 1, Buy)
	require.Error(t, err)
}

func TestUpdateRejectsInvalidTransactionType(t *testing.T) {
	store, _ := seedStore(t, nil)
	err := store.Update("ACME", 1, TransactionType("hold"))
	require.Error(t, err)
}

type recordingNotifier struct {
	names []string
}

func (r *recordingNotifier) Invalidate(name string) {
	r.names = append(r.names, name)
}

func TestUpdateNotifiesWhenCacheModeEnabled(t *testing.T) {
	notifier := &recordingNotifier{}
	store, _ := seedStore(t, notifier)

	require.NoError(t, store.Update("ACME", 1, Buy))
	assert.Equal(t, []string{"ACME"}, notifier.names)
}

func TestUpdateDoesNotNotifyOnFailure(t *testing.T) {
	notifier := &recordingNotifier{}
	store, _ := seedStore(t, notifier)

	err := store.Update("ACME", 1000, Buy)
	require.Error(t, err)
	assert.Empty(t, notifier.names)
}

