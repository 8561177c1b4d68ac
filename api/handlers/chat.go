package handlers

import (
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/BaSui01/relaychat/relay"
	"github.com/BaSui01/relaychat/store"
)

// ChatHandler exposes rooms, participants and messages over HTTP and hands
// user messages to the relay orchestrator. Agent definitions (model binding
// and persona) are registered at runtime and held in process; the store only
// tracks membership.
type ChatHandler struct {
	store        store.ChatStore
	orchestrator *relay.Orchestrator
	logger       *zap.Logger

	mu     sync.RWMutex
	agents map[string]relay.Agent
}

// NewChatHandler creates the chat API handler.
func NewChatHandler(st store.ChatStore, orch *relay.Orchestrator, logger *zap.Logger) *ChatHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ChatHandler{
		store:        st,
		orchestrator: orch,
		logger:       logger.With(zap.String("component", "chat_api")),
		agents:       make(map[string]relay.Agent),
	}
}

// RegisterAgent adds an agent definition programmatically, used at boot to
// preload a fixed roster.
func (h *ChatHandler) RegisterAgent(a relay.Agent) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.agents[a.ID] = a
}

// HandleCreateAgent handles POST /api/agents.
func (h *ChatHandler) HandleCreateAgent(w http.ResponseWriter, r *http.Request) {
	var a relay.Agent
	if err := DecodeJSON(r, &a); err != nil {
		WriteBadRequest(w, "invalid agent body: "+err.Error())
		return
	}
	if a.Name == "" {
		WriteBadRequest(w, "agent name is required")
		return
	}
	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	h.RegisterAgent(a)
	WriteSuccess(w, a)
}

// HandleListAgents handles GET /api/agents.
func (h *ChatHandler) HandleListAgents(w http.ResponseWriter, r *http.Request) {
	h.mu.RLock()
	out := make([]relay.Agent, 0, len(h.agents))
	for _, a := range h.agents {
		out = append(out, a)
	}
	h.mu.RUnlock()
	WriteSuccess(w, out)
}

// HandleCreateRoom handles POST /api/rooms.
func (h *ChatHandler) HandleCreateRoom(w http.ResponseWriter, r *http.Request) {
	var room store.Room
	if err := DecodeJSON(r, &room); err != nil {
		WriteBadRequest(w, "invalid room body: "+err.Error())
		return
	}
	if room.ID == "" {
		room.ID = uuid.NewString()
	}
	if err := h.store.UpsertRoom(r.Context(), &room); err != nil {
		WriteError(w, err, h.logger)
		return
	}
	WriteSuccess(w, room)
}

// HandleGetRoom handles GET /api/rooms/{roomID}.
func (h *ChatHandler) HandleGetRoom(w http.ResponseWriter, r *http.Request) {
	room, err := h.store.GetRoom(r.Context(), r.PathValue("roomID"))
	if err != nil {
		WriteError(w, err, h.logger)
		return
	}
	WriteSuccess(w, room)
}

type addParticipantRequest struct {
	AgentID string `json:"agent_id,omitempty"`
	UserID  string `json:"user_id,omitempty"`
	Name    string `json:"name,omitempty"`
}

// HandleAddParticipant handles POST /api/rooms/{roomID}/participants.
func (h *ChatHandler) HandleAddParticipant(w http.ResponseWriter, r *http.Request) {
	roomID := r.PathValue("roomID")
	var req addParticipantRequest
	if err := DecodeJSON(r, &req); err != nil {
		WriteBadRequest(w, "invalid participant body: "+err.Error())
		return
	}

	p := &store.Participant{
		RoomID:  roomID,
		AgentID: req.AgentID,
		UserID:  req.UserID,
		Name:    req.Name,
	}
	if req.AgentID != "" {
		h.mu.RLock()
		agent, known := h.agents[req.AgentID]
		h.mu.RUnlock()
		if !known {
			WriteBadRequest(w, "unknown agent id "+req.AgentID)
			return
		}
		if p.Name == "" {
			p.Name = agent.Name
		}
	}
	if err := h.store.UpsertParticipant(r.Context(), p); err != nil {
		WriteError(w, err, h.logger)
		return
	}
	WriteSuccess(w, p)
}

// HandleListParticipants handles GET /api/rooms/{roomID}/participants.
func (h *ChatHandler) HandleListParticipants(w http.ResponseWriter, r *http.Request) {
	list, err := h.store.ListParticipants(r.Context(), r.PathValue("roomID"))
	if err != nil {
		WriteError(w, err, h.logger)
		return
	}
	WriteSuccess(w, list)
}

type postMessageRequest struct {
	SenderID        string `json:"sender_id"`
	Content         string `json:"content"`
	TargetAgentName string `json:"target_agent_name,omitempty"`
}

// HandlePostMessage handles POST /api/rooms/{roomID}/messages: it persists
// the user message, responds immediately, and fires the relay in the
// background.
func (h *ChatHandler) HandlePostMessage(w http.ResponseWriter, r *http.Request) {
	roomID := r.PathValue("roomID")
	var req postMessageRequest
	if err := DecodeJSON(r, &req); err != nil {
		WriteBadRequest(w, "invalid message body: "+err.Error())
		return
	}
	if req.Content == "" {
		WriteBadRequest(w, "content is required")
		return
	}

	msg := &store.Message{
		ID:         uuid.NewString(),
		RoomID:     roomID,
		SenderType: store.SenderUser,
		SenderID:   req.SenderID,
		Type:       store.MessageText,
		Content:    req.Content,
	}
	if req.TargetAgentName != "" {
		msg.Metadata = map[string]any{"target_agent_name": req.TargetAgentName}
	}
	if err := h.store.InsertMessage(r.Context(), msg); err != nil {
		WriteError(w, err, h.logger)
		return
	}

	roster, err := h.roomAgents(r, roomID)
	if err != nil {
		WriteError(w, err, h.logger)
		return
	}
	h.orchestrator.Trigger(roomID, msg, roster)
	WriteJSON(w, http.StatusAccepted, Response{
		Success:   true,
		Data:      msg,
		Timestamp: time.Now(),
	})
}

// roomAgents resolves the room's membership against the registered agent
// definitions. Members without a registered definition are skipped.
func (h *ChatHandler) roomAgents(r *http.Request, roomID string) ([]relay.Agent, error) {
	members, err := h.store.ListParticipants(r.Context(), roomID)
	if err != nil {
		return nil, err
	}
	h.mu.RLock()
	defer h.mu.RUnlock()
	var roster []relay.Agent
	for _, m := range members {
		if m.AgentID == "" {
			continue
		}
		agent, ok := h.agents[m.AgentID]
		if !ok {
			h.logger.Warn("room member has no registered agent definition",
				zap.String("room_id", roomID),
				zap.String("agent_id", m.AgentID))
			continue
		}
		roster = append(roster, agent)
	}
	return roster, nil
}

// HandleListMessages handles GET /api/rooms/{roomID}/messages.
func (h *ChatHandler) HandleListMessages(w http.ResponseWriter, r *http.Request) {
	q := store.MessageQuery{RoomID: r.PathValue("roomID")}
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			WriteBadRequest(w, "invalid limit")
			return
		}
		q.Limit = n
	}
	if v := r.URL.Query().Get("after"); v != "" {
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			WriteBadRequest(w, "invalid after timestamp, want RFC3339")
			return
		}
		q.After = t
	}
	msgs, err := h.store.QueryMessages(r.Context(), q)
	if err != nil {
		WriteError(w, err, h.logger)
		return
	}
	WriteSuccess(w, msgs)
}

type startMeetingRequest struct {
	Topic         string     `json:"topic"`
	FacilitatorID string     `json:"facilitator_id,omitempty"`
	EndTime       *time.Time `json:"end_time,omitempty"`
}

// HandleStartMeeting handles POST /api/rooms/{roomID}/meeting/start.
func (h *ChatHandler) HandleStartMeeting(w http.ResponseWriter, r *http.Request) {
	roomID := r.PathValue("roomID")
	var req startMeetingRequest
	if err := DecodeJSON(r, &req); err != nil {
		WriteBadRequest(w, "invalid meeting body: "+err.Error())
		return
	}
	room, err := h.store.GetRoom(r.Context(), roomID)
	if err != nil {
		WriteError(w, err, h.logger)
		return
	}
	room.MeetingActive = true
	room.MeetingTopic = req.Topic
	room.FacilitatorID = req.FacilitatorID
	room.MeetingEndTime = req.EndTime
	if err := h.store.UpsertRoom(r.Context(), room); err != nil {
		WriteError(w, err, h.logger)
		return
	}
	WriteSuccess(w, room)
}

// HandleEndMeeting handles POST /api/rooms/{roomID}/meeting/end. A running
// relay notices the flag flip on its next round and stops.
func (h *ChatHandler) HandleEndMeeting(w http.ResponseWriter, r *http.Request) {
	roomID := r.PathValue("roomID")
	if err := h.store.SetMeetingActive(r.Context(), roomID, false); err != nil {
		WriteError(w, err, h.logger)
		return
	}
	room, err := h.store.GetRoom(r.Context(), roomID)
	if err != nil {
		WriteError(w, err, h.logger)
		return
	}
	WriteSuccess(w, room)
}
