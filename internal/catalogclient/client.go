// Package catalogclient is the HTTP client order replicas and the
// front-end use to reach the catalog's /lookup and /update routes
// (spec.md §6). Catalog errors are parsed back into apierr.Error so they
// propagate verbatim to the eventual client, as spec.md §7 requires.
package catalogclient

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/klingon-exchange/tradeledger/internal/apierr"
	"github.com/klingon-exchange/tradeledger/internal/catalog"
	"github.com/klingon-exchange/tradeledger/internal/ledger"
)

// Client talks to a single catalog instance over HTTP.
type Client struct {
	baseURL string
	http    *http.Client
}

// New builds a Client for the catalog at baseURL (e.g. "http://127.0.0.1:9000").
func New(baseURL string) *Client {
	return &Client{
		baseURL: baseURL,
		http:    &http.Client{Timeout: 5 * time.Second},
	}
}

type errorEnvelope struct {
	Error struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

// Lookup fetches the current snapshot of an instrument.
func (c *Client) Lookup(name string) (catalog.Instrument, error) {
	resp, err := c.http.Get(fmt.Sprintf("%s/lookup/%s", c.baseURL, name))
	if err != nil {
		return catalog.Instrument{}, apierr.NewUpstream("catalog unreachable: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		var env errorEnvelope
		_ = json.NewDecoder(resp.Body).Decode(&env)
		if env.Error.Message == "" {
			env.Error.Message = "stock not found"
		}
		if resp.StatusCode == http.StatusNotFound {
			return catalog.Instrument{}, apierr.NewNotFound(env.Error.Message)
		}
		return catalog.Instrument{}, apierr.NewUpstream(env.Error.Message)
	}

	var inst catalog.Instrument
	if err := json.NewDecoder(resp.Body).Decode(&inst); err != nil {
		return catalog.Instrument{}, apierr.NewUpstream("malformed catalog response: %v", err)
	}
	return inst, nil
}

type updateRequest struct {
	Name     string `json:"name"`
	Quantity int64  `json:"quantity"`
	Type     string `json:"type"`
}

// Update applies a buy or sell at the catalog.
func (c *Client) Update(name string, quantity int64, txType ledger.TransactionType) error {
	body, err := json.Marshal(updateRequest{Name: name, Quantity: quantity, Type: string(txType)})
	if err != nil {
		return apierr.NewUpstream("%v", err)
	}

	resp, err := c.http.Post(fmt.Sprintf("%s/update", c.baseURL), "application/json", bytes.NewReader(body))
	if err != nil {
		return apierr.NewUpstream("catalog unreachable: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		var env errorEnvelope
		_ = json.NewDecoder(resp.Body).Decode(&env)
		if env.Error.Message == "" {
			env.Error.Message = "failed to update stock"
		}
		return apierr.NewUpstream(env.Error.Message)
	}
	return nil
}
