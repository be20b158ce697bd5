// Package response writes the JSON envelope every HTTP handler replies
// with: {"status":"success","data":...} on the happy path and
// {"status":"error","message":...} otherwise.
package response

import (
	"encoding/json"
	"net/http"
)

type Envelope struct {
	Status  string      `json:"status"`
	Message string      `json:"message,omitempty"`
	Data    interface{} `json:"data,omitempty"`
}

func write(w http.ResponseWriter, status int, env Envelope) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	// Encode failures here mean the connection is gone; nothing useful
	// can be written about it on the same connection.
	_ = json.NewEncoder(w).Encode(env)
}

// JSON replies with a success envelope wrapping data.
func JSON(w http.ResponseWriter, status int, data interface{}) {
	write(w, status, Envelope{Status: "success", Data: data})
}

// Error replies with an error envelope carrying a client-facing message.
func Error(w http.ResponseWriter, status int, msg string) {
	write(w, status, Envelope{Status: "error", Message: msg})
}
