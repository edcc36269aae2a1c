// Package httpx provides JSON response helpers and domain error mapping.
package httpx

import (
	"encoding/json"
	"net/http"
)

// MessageBody is the envelope for 401/403/404 responses.
type MessageBody struct {
	Message string `json:"message"`
}

// ErrorBody is the envelope for invariant violations and server errors.
type ErrorBody struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

// ValidationBody is the envelope for 422 responses with field level messages.
type ValidationBody struct {
	Message string            `json:"message"`
	Errors  map[string]string `json:"errors"`
}

// JSON sends a JSON response with the given status code.
func JSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

// Message sends a bare {message} payload.
func Message(w http.ResponseWriter, status int, message string) {
	JSON(w, status, MessageBody{Message: message})
}

// DecodeJSON decodes a JSON request body into the target struct.
func DecodeJSON(r *http.Request, target any) error {
	return json.NewDecoder(r.Body).Decode(target)
}
