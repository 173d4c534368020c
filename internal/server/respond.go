package server

import (
	"encoding/json"
	"net/http"

	"github.com/dmitrymomot/uploadkit/pkg/upload"
)

// WriteJSON writes v with the given status.
func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// WriteError writes the same envelope the upload engine produces.
func WriteError(w http.ResponseWriter, status int, code, message string, details map[string]any) {
	WriteJSON(w, status, upload.Envelope{Error: upload.EnvelopeError{
		Code:    code,
		Message: message,
		Details: details,
	}})
}
