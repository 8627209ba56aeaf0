package orderreplica

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/klingon-exchange/tradeledger/internal/apierr"
	"github.com/klingon-exchange/tradeledger/internal/ledger"
	"github.com/klingon-exchange/tradeledger/internal/wire"
	"github.com/klingon-exchange/tradeledger/pkg/logging"
)

// Server exposes one replica's HTTP surface (spec.md §6).
type Server struct {
	replica  *Replica
	shutdown chan struct{}
	log      *logging.Logger
}

// NewServer wraps a Replica with its HTTP handlers. shutdown, if non-nil,
// is closed when POST /shutdown is hit, the test harness's hook for
// terminating this process (spec.md §6 "Test-only").
func NewServer(r *Replica, shutdown chan struct{}) *Server {
	return &Server{replica: r, shutdown: shutdown, log: logging.GetDefault().Component("order-http")}
}

// Routes registers the replica's handlers on mux.
func (s *Server) Routes(mux *http.ServeMux) {
	mux.HandleFunc("/buy", s.handleTrade(ledger.Buy))
	mux.HandleFunc("/sell", s.handleTrade(ledger.Sell))
	mux.HandleFunc("/lookup-order/", s.handleLookupOrder)
	mux.HandleFunc("/ping", s.handlePing)
	mux.HandleFunc("/leader-broadcast", s.handleLeaderBroadcast)
	mux.HandleFunc("/push", s.handlePush)
	mux.HandleFunc("/sync", s.handleSync)
	mux.HandleFunc("/shutdown", s.handleShutdown)
	mux.HandleFunc("/dump-database", s.handleDumpDatabase)
	mux.HandleFunc("/reset-database", s.handleResetDatabase)
}

type tradeRequest struct {
	Name     string `json:"name"`
	Quantity int64  `json:"quantity"`
}

type tradeResponse struct {
	TransactionNumber int64 `json:"transaction-number"`
}

func (s *Server) handleTrade(txType ledger.TransactionType) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.NotFound(w, r)
			return
		}
		var req tradeRequest
		if err := wire.DecodeJSON(r, &req); err != nil {
			wire.WriteError(w, apierr.NewUpstream("could not trade stock"))
			return
		}

		id, err := s.replica.Trade(req.Name, req.Quantity, txType)
		if err != nil {
			wire.WriteError(w, err)
			return
		}
		wire.WriteJSON(w, http.StatusOK, tradeResponse{TransactionNumber: id})
	}
}

func (s *Server) handleLookupOrder(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}
	idStr := strings.TrimPrefix(r.URL.Path, "/lookup-order/")
	id, err := strconv.ParseInt(idStr, 10, 64)
	if err != nil {
		wire.WriteError(w, apierr.NewNotFound("could not find order with number %s", idStr))
		return
	}

	tx, err := s.replica.LookupOrder(id)
	if err != nil {
		wire.WriteError(w, err)
		return
	}
	wire.WriteJSON(w, http.StatusOK, orderWire{Name: tx.Name, Quantity: tx.Quantity, Type: string(tx.Type)})
}

type orderWire struct {
	Name     string `json:"name"`
	Quantity int64  `json:"quantity"`
	Type     string `json:"type"`
}

func (s *Server) handlePing(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}
	serverID := s.replica.Ping()
	wire.WriteJSON(w, http.StatusOK, wire.Success{Success: wire.SuccessBody{
		Code: http.StatusOK, ServerID: serverID, Message: "pong",
	}})
}

type leaderBroadcastRequest struct {
	LeaderID int `json:"leader-id"`
}

func (s *Server) handleLeaderBroadcast(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.NotFound(w, r)
		return
	}
	var req leaderBroadcastRequest
	if err := wire.DecodeJSON(r, &req); err != nil {
		wire.WriteError(w, err)
		return
	}
	s.replica.ReceiveLeaderBroadcast(req.LeaderID)
	wire.WriteSuccess(w, "acknowledge new leader")
}

type pushRequest struct {
	NextID int64  `json:"nextID"`
	Nonce  string `json:"nonce,omitempty"`
	Entry  struct {
		Name     string `json:"name"`
		Quantity int64  `json:"quantity"`
		Type     string `json:"type"`
	} `json:"entry"`
}

func (s *Server) handlePush(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.NotFound(w, r)
		return
	}
	var req pushRequest
	if err := wire.DecodeJSON(r, &req); err != nil {
		wire.WriteError(w, err)
		return
	}
	entry := ledger.Transaction{
		Name:     req.Entry.Name,
		Quantity: req.Entry.Quantity,
		Type:     ledger.TransactionType(req.Entry.Type),
	}
	if err := s.replica.PushWithNonce(req.NextID, entry, req.Nonce); err != nil {
		wire.WriteError(w, apierr.NewUpstream("%v", err))
		return
	}
	wire.WriteSuccess(w, "pushed entry to database")
}

type syncRequest struct {
	LastID int64 `json:"lastID"`
}

type syncResponse struct {
	LeaderID     int64                `json:"leader-id"`
	Transactions map[string]orderWire `json:"transactions"`
}

func (s *Server) handleSync(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}
	var req syncRequest
	_ = wire.DecodeJSON(r, &req) // a body-less sync is treated as lastID=0

	result := s.replica.Sync(req.LastID)
	resp := syncResponse{LeaderID: result.LeaderID, Transactions: make(map[string]orderWire, len(result.Transactions))}
	for id, tx := range result.Transactions {
		resp.Transactions[strconv.FormatInt(id, 10)] = orderWire{Name: tx.Name, Quantity: tx.Quantity, Type: string(tx.Type)}
	}
	wire.WriteJSON(w, http.StatusOK, resp)
}

func (s *Server) handleShutdown(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.NotFound(w, r)
		return
	}
	wire.WriteJSON(w, http.StatusOK, map[string]string{"message": "shutting down server..."})
	if s.shutdown != nil {
		close(s.shutdown)
	}
}

func (s *Server) handleDumpDatabase(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}
	nextID, entries := s.replica.DumpDatabase()
	dumped := make(map[string]orderWire, len(entries))
	for id, tx := range entries {
		dumped[strconv.FormatInt(id, 10)] = orderWire{Name: tx.Name, Quantity: tx.Quantity, Type: string(tx.Type)}
	}
	wire.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"nextID": nextID,
		"ledger": dumped,
	})
}

func (s *Server) handleResetDatabase(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.NotFound(w, r)
		return
	}
	if err := s.replica.ResetDatabase(); err != nil {
		wire.WriteError(w, apierr.NewUpstream("%v", err))
		return
	}
	wire.WriteJSON(w, http.StatusOK, map[string]interface{}{"nextID": int64(0), "ledger": map[string]interface{}{}})
}
