// SPDX-License-Identifier: MIT

package server

import (
	"encoding/json"
	"net/http"

	"github.com/virajmehta/MetaCURE-Public/internal/log"
)

type apiError struct {
	Error  string `json:"error"`
	Status int    `json:"status"`
}

// writeJSON writes a JSON response with the given status code.
func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError writes a JSON error response.
func writeError(w http.ResponseWriter, code int, msg string) {
	writeJSON(w, code, apiError{Error: msg, Status: code})
}

// serverError logs err and answers with a generic 500 so internal paths
// and SQL details never leak to clients.
func serverError(w http.ResponseWriter, r *http.Request, event string, err error) {
	logger := log.WithComponentFromContext(r.Context(), "server")
	logger.Error().Err(err).Str("event", event).Msg("request failed")
	writeError(w, http.StatusInternalServerError, "internal server error")
}
