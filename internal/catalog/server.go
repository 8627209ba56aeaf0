// Package catalog is the authoritative store of instruments: it serves
// lookups, applies atomic updates under a single mutex, persists every
// update before acknowledging it, and fires invalidation notifications to
// the front-end (spec.md §4.1).
package catalog

import (
	"net/http"
	"strings"

	"github.com/klingon-exchange/tradeledger/internal/apierr"
	"github.com/klingon-exchange/tradeledger/internal/wire"
	"github.com/klingon-exchange/tradeledger/pkg/logging"
)

// Server exposes the catalog's HTTP surface: GET /lookup/<name> and
// POST /update (spec.md §6).
type Server struct {
	store *Store
	log   *logging.Logger
}

// NewServer wraps a Store with its HTTP handlers.
func NewServer(store *Store) *Server {
	return &Server{store: store, log: logging.GetDefault().Component("catalog-http")}
}

// Routes registers the catalog's handlers on mux.
func (s *Server) Routes(mux *http.ServeMux) {
	mux.HandleFunc("/lookup/", s.handleLookup)
	mux.HandleFunc("/update", s.handleUpdate)
}

func (s *Server) handleLookup(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}
	name := strings.TrimPrefix(r.URL.Path, "/lookup/")
	if name == "" {
		wire.WriteError(w, apierr.NewNotFound("stock not found"))
		return
	}

	inst, err := s.store.Lookup(name)
	if err != nil {
		wire.WriteError(w, err)
		return
	}
	wire.WriteJSON(w, http.StatusOK, inst)
}

type updateRequest struct {
	Name     string `json:"name"`
	Quantity int64  `json:"quantity"`
	Type     string `json:"type"`
}

func (s *Server) handleUpdate(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.NotFound(w, r)
		return
	}

	var req updateRequest
	if err := wire.DecodeJSON(r, &req); err != nil {
		wire.WriteError(w, apierr.NewUpstream("failed to update stock"))
		return
	}

	if err := s.store.Update(req.Name, req.Quantity, TransactionType(req.Type)); err != nil {
		wire.WriteError(w, err)
		return
	}
	wire.WriteSuccess(w, "updated stock successfully")
}
