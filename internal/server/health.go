package server

import (
	"encoding/json"
	"net/http"
)

// HealthHandler reports a JSON snapshot produced by its status function.
type HealthHandler struct {
	status func() any
}

// NewHealthHandler creates a [HealthHandler]. status is called on every request.
func NewHealthHandler(status func() any) *HealthHandler {
	return &HealthHandler{status: status}
}

// Routes returns the HTTP routes this handler serves.
func (h *HealthHandler) Routes() []string {
	return []string{"/healthz"}
}

func (h *HealthHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(h.status()); err != nil {
		http.Error(w, "Failed to encode status", http.StatusInternalServerError)
	}
}
