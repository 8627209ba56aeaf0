// Package frontend is the stateless HTTP gateway (spec.md §4.3): a
// bounded cache in front of the catalog, and a leader-tracking forwarder
// in front of the order replicas.
package frontend

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/klingon-exchange/tradeledger/internal/apierr"
	"github.com/klingon-exchange/tradeledger/internal/catalogclient"
	"github.com/klingon-exchange/tradeledger/internal/ledger"
	"github.com/klingon-exchange/tradeledger/internal/wire"
	"github.com/klingon-exchange/tradeledger/pkg/logging"
)

// Server exposes the front-end's HTTP surface.
type Server struct {
	cache     *Cache
	catalog   *catalogclient.Client
	forwarder *Forwarder
	log       *logging.Logger
}

// NewServer wires a cache, catalog client, and forwarder into a Server.
func NewServer(cache *Cache, catalog *catalogclient.Client, forwarder *Forwarder) *Server {
	return &Server{cache: cache, catalog: catalog, forwarder: forwarder, log: logging.GetDefault().Component("frontend-http")}
}

// Routes registers the front-end's handlers on mux.
func (s *Server) Routes(mux *http.ServeMux) {
	mux.HandleFunc("/stocks/", s.handleStock)
	mux.HandleFunc("/orders", s.handlePlaceOrder)
	mux.HandleFunc("/orders/", s.handleLookupOrder)
	mux.HandleFunc("/invalidate/", s.handleInvalidate)
	mux.HandleFunc("/leader", s.handleLeader)
	mux.HandleFunc("/dump-cache", s.handleDumpCache)
}

func (s *Server) handleStock(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}
	name := strings.TrimPrefix(r.URL.Path, "/stocks/")
	if name == "" {
		wire.WriteError(w, apierr.NewNotFound("stock not found"))
		return
	}

	if inst, ok := s.cache.Fetch(name); ok {
		wire.WriteJSON(w, http.StatusOK, wire.Data{Data: inst})
		return
	}

	inst, err := s.catalog.Lookup(name)
	if err != nil {
		wire.WriteError(w, err)
		return
	}
	s.cache.Insert(inst)
	wire.WriteJSON(w, http.StatusOK, wire.Data{Data: inst})
}

type placeOrderRequest struct {
	Name     string `json:"name"`
	Quantity int64  `json:"quantity"`
	Type     string `json:"type"`
}

type placeOrderResponse struct {
	TransactionNumber int64 `json:"transaction-number"`
}

func (s *Server) handlePlaceOrder(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.NotFound(w, r)
		return
	}
	var req placeOrderRequest
	if err := wire.DecodeJSON(r, &req); err != nil {
		wire.WriteError(w, err)
		return
	}

	var route string
	switch ledger.TransactionType(req.Type) {
	case ledger.Buy:
		route = "buy"
	case ledger.Sell:
		route = "sell"
	default:
		wire.WriteError(w, apierr.NewRejected("could not trade stock"))
		return
	}

	id, err := s.forwarder.ForwardTrade(r.Context(), route, req.Name, req.Quantity)
	if err != nil {
		wire.WriteError(w, err)
		return
	}
	wire.WriteJSON(w, http.StatusOK, wire.Data{Data: placeOrderResponse{TransactionNumber: id}})
}

type orderWire struct {
	Name     string `json:"name"`
	Quantity int64  `json:"quantity"`
	Type     string `json:"type"`
}

func (s *Server) handleLookupOrder(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}
	idStr := strings.TrimPrefix(r.URL.Path, "/orders/")
	id, err := strconv.ParseInt(idStr, 10, 64)
	if err != nil {
		wire.WriteError(w, apierr.NewNotFound("could not find order with number %s", idStr))
		return
	}

	tx, err := s.forwarder.ForwardLookupOrder(r.Context(), id)
	if err != nil {
		wire.WriteError(w, err)
		return
	}
	wire.WriteJSON(w, http.StatusOK, wire.Data{Data: orderWire{Name: tx.Name, Quantity: tx.Quantity, Type: string(tx.Type)}})
}

func (s *Server) handleInvalidate(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.NotFound(w, r)
		return
	}
	name := strings.TrimPrefix(r.URL.Path, "/invalidate/")
	if !s.cache.Invalidate(name) {
		wire.WriteError(w, apierr.NewRejected("could not invalidate cache entry"))
		return
	}
	wire.WriteSuccess(w, "invalidated cache entry")
}

func (s *Server) handleLeader(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}
	host, port, ok := s.forwarder.CurrentLeaderAddr()
	resp := struct {
		LeaderHost string `json:"leader-host"`
		LeaderPort string `json:"leader-port"`
		LeaderID   int64  `json:"leader-id"`
	}{LeaderID: s.forwarder.CurrentLeader()}
	if ok {
		resp.LeaderHost = host
		resp.LeaderPort = port
	}
	wire.WriteJSON(w, http.StatusOK, resp)
}

func (s *Server) handleDumpCache(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}
	wire.WriteJSON(w, http.StatusOK, s.cache.Dump())
}
