package httpapi

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/open-crosspost/scheduler-service/internal/store"
)

// jobResponse wraps a single job per spec.md §6's {message, job} envelope.
type jobResponse struct {
	Message string     `json:"message,omitempty"`
	Job     *store.Job `json:"job,omitempty"`
}

type messageResponse struct {
	Message string `json:"message"`
}

type errorResponse struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		slog.Error("encode response", "error", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg})
}

func writeMessage(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, messageResponse{Message: msg})
}
