// Package api assembles the relaychat HTTP surface.
package api

import (
	"net/http"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/BaSui01/relaychat/api/handlers"
	"github.com/BaSui01/relaychat/internal/ctxkeys"
	"github.com/BaSui01/relaychat/relay"
	"github.com/BaSui01/relaychat/store"
)

// Router bundles the API handlers behind one http.Handler.
type Router struct {
	Chat   *handlers.ChatHandler
	Health *handlers.HealthHandler
	mux    *http.ServeMux
}

// NewRouter wires all routes.
func NewRouter(st store.ChatStore, orch *relay.Orchestrator, logger *zap.Logger) *Router {
	r := &Router{
		Chat:   handlers.NewChatHandler(st, orch, logger),
		Health: handlers.NewHealthHandler(st, logger),
		mux:    http.NewServeMux(),
	}

	r.mux.HandleFunc("POST /api/agents", r.Chat.HandleCreateAgent)
	r.mux.HandleFunc("GET /api/agents", r.Chat.HandleListAgents)

	r.mux.HandleFunc("POST /api/rooms", r.Chat.HandleCreateRoom)
	r.mux.HandleFunc("GET /api/rooms/{roomID}", r.Chat.HandleGetRoom)
	r.mux.HandleFunc("POST /api/rooms/{roomID}/participants", r.Chat.HandleAddParticipant)
	r.mux.HandleFunc("GET /api/rooms/{roomID}/participants", r.Chat.HandleListParticipants)
	r.mux.HandleFunc("POST /api/rooms/{roomID}/messages", r.Chat.HandlePostMessage)
	r.mux.HandleFunc("GET /api/rooms/{roomID}/messages", r.Chat.HandleListMessages)
	r.mux.HandleFunc("POST /api/rooms/{roomID}/meeting/start", r.Chat.HandleStartMeeting)
	r.mux.HandleFunc("POST /api/rooms/{roomID}/meeting/end", r.Chat.HandleEndMeeting)

	r.mux.HandleFunc("GET /health", r.Health.HandleHealth)
	r.mux.HandleFunc("GET /healthz", r.Health.HandleHealthz)
	r.mux.Handle("GET /metrics", promhttp.Handler())

	return r
}

// ServeHTTP stamps every request with an ID before routing. Clients may
// supply their own via X-Request-ID.
func (r *Router) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	id := req.Header.Get("X-Request-ID")
	if id == "" {
		id = uuid.NewString()
	}
	w.Header().Set("X-Request-ID", id)
	r.mux.ServeHTTP(w, req.WithContext(ctxkeys.WithRequestID(req.Context(), id)))
}
