package handler

import (
	"context"
	"net/http"
	"time"
)

const readyTimeout = 2 * time.Second

// Pinger reports whether a backing service is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

type HealthHandler struct {
	store Pinger
}

func NewHealthHandler(store Pinger) *HealthHandler {
	return &HealthHandler{store: store}
}

func (h *HealthHandler) Healthz(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("ok"))
}

type ReadyResponse struct {
	Ready      bool      `json:"ready"`
	Error      string    `json:"error,omitempty"`
	ServerTime time.Time `json:"serverTime"`
}

// Readyz pings the document store.
func (h *HealthHandler) Readyz(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), readyTimeout)
	defer cancel()

	resp := ReadyResponse{Ready: true, ServerTime: time.Now()}
	status := http.StatusOK
	if err := h.store.Ping(ctx); err != nil {
		resp.Ready = false
		resp.Error = "document store unavailable"
		status = http.StatusServiceUnavailable
	}
	respondJSON(w, status, resp)
}
