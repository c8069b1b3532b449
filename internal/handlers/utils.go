package handlers

import (
	"encoding/json"
	"net/http"

	"media-index/internal/logging"
)

type errorBody struct {
	Error string `json:"error"`
}

type statusBody struct {
	Status  string `json:"status"`
	Message string `json:"message,omitempty"`
}

// writeJSON writes v as the JSON body of a response with the given code.
// Encoding errors are only logged since the header is already sent.
func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logging.Error("failed to encode %T response: %v", v, err)
	}
}

func writeJSONError(w http.ResponseWriter, code int, message string) {
	writeJSON(w, code, errorBody{Error: message})
}

func writeJSONStatus(w http.ResponseWriter, code int, status, message string) {
	writeJSON(w, code, statusBody{Status: status, Message: message})
}
