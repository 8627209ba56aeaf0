package catalogclient

import (
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/klingon-exchange/tradeledger/internal/apierr"
	"github.com/klingon-exchange/tradeledger/internal/catalog"
	"github.com/klingon-exchange/tradeledger/internal/ledger"
)

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	store, err := catalog.Open(catalog.Config{DBPath: filepath.Join(t.TempDir(), "catalog.json")}, nil)
	require.NoError(t, err)

	mux := http.NewServeMux()
	catalog.NewServer(store).Routes(mux)
	return httptest.NewServer(mux)
}

func TestClientLookupNotFound(t *testing.T) {
	srv := newTestServer(t)
	defer srv.Close()

	c := New(srv.URL)
	_, err := c.Lookup("GHOST")
	require.Error(t, err)
	apiErr, ok := apierr.As(err)
	require.True(t, ok)
	assert.Equal(t, apierr.NotFound, apiErr.Kind)
}

func TestClientUpdateUnknownInstrumentIsUpstream(t *testing.T) {
	srv := newTestServer(t)
	defer srv.Close()

	c := New(srv.URL)
	err := c.Update("GHOST", 1, ledger.Buy)
	require.Error(t, err)
	apiErr, ok := apierr.As(err)
	require.True(t, ok)
	assert.Equal(t, apierr.Upstream, apiErr.Kind)
}
