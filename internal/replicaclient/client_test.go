package replicaclient_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/klingon-exchange/tradeledger/internal/catalog"
	"github.com/klingon-exchange/tradeledger/internal/catalogclient"
	"github.com/klingon-exchange/tradeledger/internal/ledger"
	"github.com/klingon-exchange/tradeledger/internal/orderreplica"
	"github.com/klingon-exchange/tradeledger/internal/replicaclient"
)

func newReplicaServer(t *testing.T, serverID int) *httptest.Server {
	t.Helper()
	store, err := catalog.Open(catalog.Config{}, nil)
	require.NoError(t, err)
	catalogMux := http.NewServeMux()
	catalog.NewServer(store).Routes(catalogMux)
	catalogSrv := httptest.NewServer(catalogMux)
	t.Cleanup(catalogSrv.Close)

	r, err := orderreplica.New(orderreplica.Config{
		ServerID: serverID,
		Peers:    map[int]orderreplica.Peer{serverID: {ID: serverID, BaseURL: "http://unused"}},
	}, catalogclient.New(catalogSrv.URL))
	require.NoError(t, err)

	mux := http.NewServeMux()
	orderreplica.NewServer(r, nil).Routes(mux)
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func TestPingReturnsServerID(t *testing.T) {
	srv := newReplicaServer(t, 7)
	c := replicaclient.New(srv.URL, time.Second)

	id, err := c.Ping(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 7, id)
}

func TestPushThenSyncRoundTrips(t *testing.T) {
	srv := newReplicaServer(t, 1)
	c := replicaclient.New(srv.URL, time.Second)

	tx := ledger.Transaction{Name: "ACME", Quantity: 4, Type: ledger.Buy}
	require.NoError(t, c.Push(context.Background(), 0, tx, "nonce-1"))

	result, err := c.Sync(context.Background(), 0)
	require.NoError(t, err)
	require.Len(t, result.Transactions, 1)
	assert.Equal(t, int64(4), result.Transactions[0].Quantity)
}

func TestLeaderBroadcastSucceeds(t *testing.T) {
	srv := newReplicaServer(t, 2)
	c := replicaclient.New(srv.URL, time.Second)
	assert.NoError(t, c.LeaderBroadcast(context.Background(), 1))
}

func TestTradeReturnsRawTransportErrorOnUnreachableHost(t *testing.T) {
	c := replicaclient.New("http://127.0.0.1:1", 200*time.Millisecond)
	_, _, err := c.Trade(context.Background(), "buy", "ACME", 1)
	require.Error(t, err)

	// A transport failure must NOT be an *apierr.Error: the caller tells
	// it apart from a domain error precisely by this distinction.
	type classified interface{ StatusCode() int }
	_, ok := err.(classified)
	assert.False(t, ok)
}
