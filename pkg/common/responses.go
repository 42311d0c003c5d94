package common

import (
	"encoding/json"
	"net/http"
)

// Envelope is the response shape shared by every endpoint.
type Envelope struct {
	OK      bool        `json:"ok"`
	Message string      `json:"message"`
	Result  interface{} `json:"result"`
}

// RespondJSON sends a successful envelope
func RespondJSON(w http.ResponseWriter, status int, message string, result interface{}) {
	WriteEnvelope(w, status, Envelope{
		OK:      status >= 200 && status < 300,
		Message: message,
		Result:  result,
	})
}

// RespondError sends a failed envelope with a nil result
func RespondError(w http.ResponseWriter, status int, message string) {
	WriteEnvelope(w, status, Envelope{OK: false, Message: message})
}

// WriteEnvelope encodes env as the response body.
func WriteEnvelope(w http.ResponseWriter, status int, env Envelope) error {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	return json.NewEncoder(w).Encode(env)
}
