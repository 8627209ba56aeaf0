// Package replicaclient is the HTTP client used to reach an order
// replica, both from a peer replica (push, sync) and from the front-end
// (ping, leader-broadcast, forwarded trades). Centralizing it in one
// package keeps the wire format of each route in exactly one place.
package replicaclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/klingon-exchange/tradeledger/internal/apierr"
	"github.com/klingon-exchange/tradeledger/internal/ledger"
)

// Client talks to a single order replica over HTTP.
type Client struct {
	baseURL string
	http    *http.Client
}

// New builds a Client with the given per-request timeout.
func New(baseURL string, timeout time.Duration) *Client {
	return &Client{baseURL: baseURL, http: &http.Client{Timeout: timeout}}
}

type successEnvelope struct {
	Success struct {
		Code     int    `json:"code"`
		Message  string `json:"message"`
		ServerID int    `json:"server-id"`
	} `json:"success"`
}

type errorEnvelope struct {
	Error struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

// Ping requests this replica declare itself leader; returns its server id.
func (c *Client) Ping(ctx context.Context) (int, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/ping", nil)
	if err != nil {
		return 0, apierr.NewUpstream("%v", err)
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return 0, apierr.NewUpstream("replica unreachable: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return 0, apierr.NewUpstream("ping failed: status %d", resp.StatusCode)
	}
	var env successEnvelope
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		return 0, apierr.NewUpstream("malformed ping response: %v", err)
	}
	return env.Success.ServerID, nil
}

type leaderBroadcastRequest struct {
	LeaderID int `json:"leader-id"`
}

// LeaderBroadcast tells this replica who the elected leader is.
func (c *Client) LeaderBroadcast(ctx context.Context, leaderID int) error {
	body, _ := json.Marshal(leaderBroadcastRequest{LeaderID: leaderID})
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/leader-broadcast", bytes.NewReader(body))
	if err != nil {
		return apierr.NewUpstream("%v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := c.http.Do(req)
	if err != nil {
		return apierr.NewUpstream("replica unreachable: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 400 {
		return apierr.NewUpstream("leader-broadcast failed: status %d", resp.StatusCode)
	}
	return nil
}

type pushRequest struct {
	NextID int64       `json:"nextID"`
	Nonce  string      `json:"nonce,omitempty"`
	Entry  pushPayload `json:"entry"`
}

type pushPayload struct {
	Name     string `json:"name"`
	Quantity int64  `json:"quantity"`
	Type     string `json:"type"`
}

// Push best-effort replicates one committed transaction to this replica.
// nonce identifies this broadcast attempt so the receiving replica can
// recognize an exact-duplicate retry (spec.md's push is already
// idempotent by id; the nonce just lets that be logged instead of silent).
func (c *Client) Push(ctx context.Context, id int64, tx ledger.Transaction, nonce string) error {
	body, _ := json.Marshal(pushRequest{
		NextID: id,
		Nonce:  nonce,
		Entry:  pushPayload{Name: tx.Name, Quantity: tx.Quantity, Type: string(tx.Type)},
	})
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/push", bytes.NewReader(body))
	if err != nil {
		return apierr.NewUpstream("%v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := c.http.Do(req)
	if err != nil {
		return apierr.NewUpstream("replica unreachable: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 400 {
		return apierr.NewUpstream("push failed: status %d", resp.StatusCode)
	}
	return nil
}

// SyncResult mirrors orderreplica.SyncResult on the wire.
type SyncResult struct {
	LeaderID     int64
	Transactions map[int64]ledger.Transaction
}

type syncRequest struct {
	LastID int64 `json:"lastID"`
}

type syncResponse struct {
	LeaderID     int64                          `json:"leader-id"`
	Transactions map[string]syncTransactionWire `json:"transactions"`
}

type syncTransactionWire struct {
	Name     string `json:"name"`
	Quantity int64  `json:"quantity"`
	Type     string `json:"type"`
}

// Sync asks this replica for every entry with id >= lastID, and its
// current leader view.
func (c *Client) Sync(ctx context.Context, lastID int64) (SyncResult, error) {
	body, _ := json.Marshal(syncRequest{LastID: lastID})
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/sync", bytes.NewReader(body))
	if err != nil {
		return SyncResult{}, apierr.NewUpstream("%v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := c.http.Do(req)
	if err != nil {
		return SyncResult{}, apierr.NewUpstream("replica unreachable: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 400 {
		return SyncResult{}, apierr.NewUpstream("sync failed: status %d", resp.StatusCode)
	}

	var sr syncResponse
	if err := json.NewDecoder(resp.Body).Decode(&sr); err != nil {
		return SyncResult{}, apierr.NewUpstream("malformed sync response: %v", err)
	}

	out := SyncResult{LeaderID: sr.LeaderID, Transactions: make(map[int64]ledger.Transaction, len(sr.Transactions))}
	for idStr, w := range sr.Transactions {
		id, convErr := strconv.ParseInt(idStr, 10, 64)
		if convErr != nil {
			continue
		}
		out.Transactions[id] = ledger.Transaction{ID: id, Name: w.Name, Quantity: w.Quantity, Type: ledger.TransactionType(w.Type)}
	}
	return out, nil
}

type tradeRequest struct {
	Name     string `json:"name"`
	Quantity int64  `json:"quantity"`
}

type tradeResponse struct {
	TransactionNumber int64 `json:"transaction-number"`
}

// Trade forwards a buy or sell to this replica, returning its assigned
// transaction id. Returns the raw HTTP status alongside the error so
// callers (the front-end's forward-with-failover) can distinguish a
// domain error (4xx/5xx from a reachable leader) from a transport
// failure that should trigger election.
func (c *Client) Trade(ctx context.Context, route, name string, quantity int64) (int64, int, error) {
	body, _ := json.Marshal(tradeRequest{Name: name, Quantity: quantity})
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/"+route, bytes.NewReader(body))
	if err != nil {
		return 0, 0, apierr.NewUpstream("%v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := c.http.Do(req)
	if err != nil {
		return 0, 0, err // transport failure: caller triggers election
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		var env errorEnvelope
		_ = json.NewDecoder(resp.Body).Decode(&env)
		msg := env.Error.Message
		if msg == "" {
			msg = "could not trade stock"
		}
		if resp.StatusCode == http.StatusNotFound {
			return 0, resp.StatusCode, apierr.NewNotFound(msg)
		}
		return 0, resp.StatusCode, apierr.NewUpstream(msg)
	}

	var tr tradeResponse
	if err := json.NewDecoder(resp.Body).Decode(&tr); err != nil {
		return 0, resp.StatusCode, apierr.NewUpstream("malformed trade response: %v", err)
	}
	return tr.TransactionNumber, resp.StatusCode, nil
}

// LookupOrder forwards a GET /lookup-order/<id> to this replica.
func (c *Client) LookupOrder(ctx context.Context, id int64) (ledger.Transaction, int, error) {
	url := fmt.Sprintf("%s/lookup-order/%d", c.baseURL, id)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return ledger.Transaction{}, 0, apierr.NewUpstream("%v", err)
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return ledger.Transaction{}, 0, err // transport failure: caller triggers election
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		var env errorEnvelope
		_ = json.NewDecoder(resp.Body).Decode(&env)
		msg := env.Error.Message
		if msg == "" {
			msg = fmt.Sprintf("could not find order with number %d", id)
		}
		if resp.StatusCode == http.StatusNotFound {
			return ledger.Transaction{}, resp.StatusCode, apierr.NewNotFound(msg)
		}
		return ledger.Transaction{}, resp.StatusCode, apierr.NewUpstream(msg)
	}

	var w syncTransactionWire
	if err := json.NewDecoder(resp.Body).Decode(&w); err != nil {
		return ledger.Transaction{}, resp.StatusCode, apierr.NewUpstream("malformed order response: %v", err)
	}
	return ledger.Transaction{ID: id, Name: w.Name, Quantity: w.Quantity, Type: ledger.TransactionType(w.Type)}, resp.StatusCode, nil
}
