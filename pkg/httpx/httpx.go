// Package httpx holds small JSON response helpers shared by handlers.
package httpx

import (
	"encoding/json"
	"net/http"
)

// WriteJSON writes v with a 200 status.
func WriteJSON(w http.ResponseWriter, v any) {
	WriteJSONStatus(w, http.StatusOK, v)
}

// WriteJSONStatus writes v with an explicit status code.
func WriteJSONStatus(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// ErrorPayload is the consistent error envelope:
// {"error":{"code":"...","message":"..."}}
type ErrorPayload struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// WriteError writes a JSON error envelope with the status text as code.
func WriteError(w http.ResponseWriter, status int, message string) {
	WriteTypedError(w, status, http.StatusText(status), message)
}

// WriteTypedError writes a JSON error envelope with an explicit stable code.
func WriteTypedError(w http.ResponseWriter, status int, code, message string) {
	WriteJSONStatus(w, status, map[string]any{"error": ErrorPayload{Code: code, Message: message}})
}
