package orderreplica

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/klingon-exchange/tradeledger/internal/catalog"
	"github.com/klingon-exchange/tradeledger/internal/catalogclient"
	"github.com/klingon-exchange/tradeledger/internal/ledger"
)

// newTestCatalog spins up a real catalog service over HTTP, seeded with
// one instrument, so Replica.Trade exercises the actual wire protocol
// instead of a hand-rolled fake.
func newTestCatalog(t *testing.T, name string, quantity int64) (*httptest.Server, *catalogclient.Client) {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "catalog.json")
	table := map[string]*catalog.Instrument{name: {Name: name, Price: 1, Quantity: quantity}}
	buf, err := json.Marshal(table)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(dbPath, buf, 0644))

	store, err := catalog.Open(catalog.Config{DBPath: dbPath}, nil)
	require.NoError(t, err)

	mux := http.NewServeMux()
	catalog.NewServer(store).Routes(mux)
	srv := httptest.NewServer(mux)
	return srv, catalogclient.New(srv.URL)
}

func newTestReplica(t *testing.T, serverID int, catalogClient *catalogclient.Client) *Replica {
	t.Helper()
	r, err := New(Config{
		ServerID: serverID,
		Peers:    map[int]Peer{serverID: {ID: serverID, BaseURL: "http://unused"}},
		DBPath:   filepath.Join(t.TempDir(), "ledger.json"),
	}, catalogClient)
	require.NoError(t, err)
	return r
}

func TestTradeAssignsDenseMonotonicIDs(t *testing.T) {
	srv, catalogClient := newTestCatalog(t, "ACME", 100)
	defer srv.Close()
	r := newTestReplica(t, 1, catalogClient)

	id0, err := r.Trade("ACME", 10, ledger.Buy)
	require.NoError(t, err)
	assert.Equal(t, int64(0), id0)

	id1, err := r.Trade("ACME", 5, ledger.Sell)
	require.NoError(t, err)
	assert.Equal(t, int64(1), id1)

	tx, err := r.LookupOrder(id1)
	require.NoError(t, err)
	assert.Equal(t, int64(5), tx.Quantity)
	assert.Equal(t, ledger.Sell, tx.Type)
}

func TestTradeRejectsNonPositiveQuantity(t *testing.T) {
	srv, catalogClient := newTestCatalog(t, "ACME", 100)
	defer srv.Close()
	r := newTestReplica(t, 1, catalogClient)

	_, err := r.Trade("ACME", 0, ledger.Buy)
	require.Error(t, err)
	_, err = r.Trade("ACME", -5, ledger.Buy)
	require.Error(t, err)
}

func TestTradeRejectsBuyBeyondAvailableQuantity(t *testing.T) {
	srv, catalogClient := newTestCatalog(t, "ACME", 10)
	defer srv.Close()
	r := newTestReplica(t, 1, catalogClient)

	_, err := r.Trade("ACME", 1000, ledger.Buy)
	require.Error(t, err)

	_, lookupErr := r.LookupOrder(0)
	assert.Error(t, lookupErr, "a rejected trade must not assign an id")
}

func TestLookupOrderUnknownID(t *testing.T) {
	srv, catalogClient := newTestCatalog(t, "ACME", 100)
	defer srv.Close()
	r := newTestReplica(t, 1, catalogClient)

	_, err := r.LookupOrder(42)
	require.Error(t, err)
}

func TestPushIsIdempotent(t *testing.T) {
	srv, catalogClient := newTestCatalog(t, "ACME", 100)
	defer srv.Close()
	r := newTestReplica(t, 2, catalogClient)

	entry := ledger.Transaction{Name: "ACME", Quantity: 7, Type: ledger.Buy}
	require.NoError(t, r.Push(5, entry))
	require.NoError(t, r.Push(5, entry))

	nextID, entries := r.DumpDatabase()
	assert.Equal(t, int64(6), nextID)
	assert.Len(t, entries, 1)
}

func TestPushWithNonceDedupesExactRetry(t *testing.T) {
	srv, catalogClient := newTestCatalog(t, "ACME", 100)
	defer srv.Close()
	r := newTestReplica(t, 2, catalogClient)

	entry := ledger.Transaction{Name: "ACME", Quantity: 7, Type: ledger.Buy}
	require.NoError(t, r.PushWithNonce(5, entry, "nonce-a"))
	require.NoError(t, r.PushWithNonce(5, entry, "nonce-a"))

	nextID, entries := r.DumpDatabase()
	assert.Equal(t, int64(6), nextID)
	assert.Len(t, entries, 1)
}

func TestSyncReturnsEntriesFromLastID(t *testing.T) {
	srv, catalogClient := newTestCatalog(t, "ACME", 100)
	defer srv.Close()
	r := newTestReplica(t, 1, catalogClient)

	_, err := r.Trade("ACME", 1, ledger.Buy)
	require.NoError(t, err)
	_, err = r.Trade("ACME", 1, ledger.Buy)
	require.NoError(t, err)

	result := r.Sync(1)
	assert.Len(t, result.Transactions, 1)
	_, ok := result.Transactions[1]
	assert.True(t, ok)
}

func TestSyncAheadOfNextIDIsEmptyNotError(t *testing.T) {
	srv, catalogClient := newTestCatalog(t, "ACME", 100)
	defer srv.Close()
	r := newTestReplica(t, 1, catalogClient)

	result := r.Sync(100)
	assert.Empty(t, result.Transactions)
}

func TestPingPromotesToLeaderUnconditionally(t *testing.T) {
	srv, catalogClient := newTestCatalog(t, "ACME", 100)
	defer srv.Close()
	r := newTestReplica(t, 3, catalogClient)

	assert.Equal(t, int64(-1), r.LeaderID())
	got := r.Ping()
	assert.Equal(t, 3, got)
	assert.True(t, r.IsLeader())
}

func TestReceiveLeaderBroadcastSetsFollowerState(t *testing.T) {
	srv, catalogClient := newTestCatalog(t, "ACME", 100)
	defer srv.Close()
	r := newTestReplica(t, 2, catalogClient)

	r.ReceiveLeaderBroadcast(1)
	assert.False(t, r.IsLeader())
	assert.Equal(t, int64(1), r.LeaderID())
}

func TestResetDatabaseClearsLedger(t *testing.T) {
	srv, catalogClient := newTestCatalog(t, "ACME", 100)
	defer srv.Close()
	r := newTestReplica(t, 1, catalogClient)

	_, err := r.Trade("ACME", 1, ledger.Buy)
	require.NoError(t, err)

	require.NoError(t, r.ResetDatabase())
	nextID, entries := r.DumpDatabase()
	assert.Equal(t, int64(0), nextID)
	assert.Empty(t, entries)
}
