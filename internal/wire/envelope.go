// Package wire defines the JSON envelope shapes shared by all three HTTP
// services and the small decode/encode helpers used by every handler.
// The shapes are reproduced verbatim from the distilled specification's
// external interface (spec.md §6) and from the original Flask services'
// literal response bodies, so that a client written against the original
// protocol works unmodified against this implementation.
package wire

import (
	"encoding/json"
	"net/http"

	"github.com/klingon-exchange/tradeledger/internal/apierr"
)

// SuccessBody is the `{"success": {...}}` envelope used by the catalog's
// /update, the order replica's /ping, /leader-broadcast and /push, and the
// front-end's /invalidate.
type SuccessBody struct {
	Code     int    `json:"code"`
	Message  string `json:"message"`
	ServerID int    `json:"server-id,omitempty"`
}

// ErrorBody is the `{"error": {...}}` envelope used everywhere a request
// fails.
type ErrorBody struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// Success wraps a SuccessBody for marshaling as {"success": {...}}.
type Success struct {
	Success SuccessBody `json:"success"`
}

// Failure wraps an ErrorBody for marshaling as {"error": {...}}.
type Failure struct {
	Error ErrorBody `json:"error"`
}

// Data wraps an arbitrary payload for marshaling as {"data": {...}}, used
// by the front-end's /stocks, /orders and /orders/<id> routes.
type Data struct {
	Data interface{} `json:"data"`
}

// WriteJSON writes v as a JSON body with the given status code.
func WriteJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// WriteSuccess writes a 200 {"success": {...}} envelope.
func WriteSuccess(w http.ResponseWriter, message string) {
	WriteJSON(w, http.StatusOK, Success{Success: SuccessBody{Code: http.StatusOK, Message: message}})
}

// WriteError writes an {"error": {...}} envelope with the error's own
// status code, or a generic 500 for an unclassified error.
func WriteError(w http.ResponseWriter, err error) {
	if apiErr, ok := apierr.As(err); ok {
		status := apiErr.StatusCode()
		WriteJSON(w, status, Failure{Error: ErrorBody{Code: status, Message: apiErr.Message}})
		return
	}
	WriteJSON(w, http.StatusInternalServerError, Failure{Error: ErrorBody{Code: http.StatusInternalServerError, Message: err.Error()}})
}

// DecodeJSON decodes the request body into v, returning a Rejected error
// on malformed payloads.
func DecodeJSON(r *http.Request, v interface{}) error {
	defer r.Body.Close()
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return apierr.NewRejected("malformed request body: %v", err)
	}
	return nil
}
