// Package api — JSON response envelopes for the colorizer HTTP API.
package api

import (
	"encoding/json"
	"log/slog"
	"net/http"
)

// ErrorBody is the failure envelope. Every failure carries a human-readable
// message and a stable machine code; the underlying error is logged, never
// serialized.
type ErrorBody struct {
	Message string `json:"message"`
	Code    string `json:"code,omitempty"`
}

// Error codes returned in ErrorBody.Code.
const (
	CodeValidation = "validation_failed"
	CodeAuth       = "unauthorized"
	CodeNotFound   = "not_found"
	CodeUpstream   = "upstream_unavailable"
	CodeStorage    = "storage_failure"
	CodeInternal   = "internal_error"
)

// WriteJSON writes v as a JSON response with the given status.
func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// WriteError writes a failure envelope.
func WriteError(w http.ResponseWriter, status int, code, message string) {
	WriteJSON(w, status, &ErrorBody{Message: message, Code: code})
}

// WriteBadRequest writes a 400 validation failure.
func WriteBadRequest(w http.ResponseWriter, message string) {
	WriteError(w, http.StatusBadRequest, CodeValidation, message)
}

// WriteUnauthorized writes a 401 failure.
func WriteUnauthorized(w http.ResponseWriter, message string) {
	if message == "" {
		message = "Authentication required"
	}
	WriteError(w, http.StatusUnauthorized, CodeAuth, message)
}

// WriteNotFound writes a 404 failure.
func WriteNotFound(w http.ResponseWriter, message string) {
	if message == "" {
		message = "Not found"
	}
	WriteError(w, http.StatusNotFound, CodeNotFound, message)
}

// WriteMethodNotAllowed writes a 405 failure.
func WriteMethodNotAllowed(w http.ResponseWriter) {
	WriteError(w, http.StatusMethodNotAllowed, CodeValidation, "The HTTP method is not supported for this endpoint")
}

// WriteInternal writes a 500 failure.
// The err parameter is logged but NEVER exposed to the client.
func WriteInternal(w http.ResponseWriter, err error) {
	slog.Error("internal server error", "error", err)
	WriteError(w, http.StatusInternalServerError, CodeInternal, "Internal server error")
}
