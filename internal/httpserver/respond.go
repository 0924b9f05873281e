package httpserver

import (
	"encoding/json"
	"log/slog"
	"net/http"
)

// ErrorResponse is the stable JSON envelope for error responses, carrying
// the machine-readable error_kind from spec §7.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

// Respond writes v as a JSON response with the given status code.
func Respond(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v == nil {
		return
	}
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Default().Error("encoding JSON response", "error", err)
	}
}

// RespondError writes a stable error envelope with the given status and
// error_kind.
func RespondError(w http.ResponseWriter, status int, errKind, message string) {
	Respond(w, status, ErrorResponse{Error: errKind, Message: message})
}

// RespondNoContent writes a 204 with no body.
func RespondNoContent(w http.ResponseWriter) {
	w.WriteHeader(http.StatusNoContent)
}
