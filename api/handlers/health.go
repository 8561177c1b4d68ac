package handlers

import (
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/BaSui01/relaychat/store"
)

// HealthHandler reports service and store health.
type HealthHandler struct {
	store  store.ChatStore
	logger *zap.Logger
}

// HealthStatus is the health endpoint response.
type HealthStatus struct {
	Status    string    `json:"status"`
	Timestamp time.Time `json:"timestamp"`
	Store     string    `json:"store,omitempty"`
}

// NewHealthHandler creates a health handler backed by the chat store.
func NewHealthHandler(st store.ChatStore, logger *zap.Logger) *HealthHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &HealthHandler{store: st, logger: logger}
}

// HandleHealthz is the liveness probe: the process is up.
func (h *HealthHandler) HandleHealthz(w http.ResponseWriter, r *http.Request) {
	WriteJSON(w, http.StatusOK, HealthStatus{Status: "healthy", Timestamp: time.Now()})
}

// HandleHealth is the readiness probe: the store must answer a ping.
func (h *HealthHandler) HandleHealth(w http.ResponseWriter, r *http.Request) {
	status := HealthStatus{Status: "healthy", Timestamp: time.Now(), Store: "pass"}
	code := http.StatusOK
	if err := h.store.Ping(r.Context()); err != nil {
		h.logger.Warn("store ping failed", zap.Error(err))
		status.Status = "unhealthy"
		status.Store = "fail"
		code = http.StatusServiceUnavailable
	}
	WriteJSON(w, code, status)
}
