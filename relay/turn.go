package relay

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/BaSui01/relaychat/internal/metrics"
	"github.com/BaSui01/relaychat/store"
)

// runTurn executes one agent turn: typing indicator, generation, sanitizing,
// persistence and history append. It returns the sanitized text and whether
// the turn succeeded. Every attempt counts toward the turn budget; only a
// persisted non-empty response counts as speaking.
func (o *Orchestrator) runTurn(ctx context.Context, s *session, agent Agent, prompt string, extraMeta map[string]any) (string, bool) {
	s.state.TotalTurns++

	o.setTyping(ctx, s.room.RoomID, agent.ID, true)
	defer o.setTyping(ctx, s.room.RoomID, agent.ID, false)

	mem := o.loadMemoryHints(ctx, agent.ID, s.room.RoomID, prompt)

	callCtx := ctx
	if o.cfg.ResponderTimeout > 0 {
		var cancel context.CancelFunc
		callCtx, cancel = context.WithTimeout(ctx, o.cfg.ResponderTimeout)
		defer cancel()
	}

	start := time.Now()
	raw, err := o.responder.Generate(callCtx, agentConfig(agent), prompt, nil, roomHints(s.room), s.images, mem)
	if o.collector != nil {
		o.collector.ObserveResponder(agent.Provider, time.Since(start), err)
	}
	if err != nil {
		o.logger.Warn("agent turn failed",
			zap.String("room_id", s.room.RoomID),
			zap.String("agent_id", agent.ID),
			zap.String("agent_name", agent.Name),
			zap.Int("round", s.state.Round),
			zap.Error(err))
		o.observeTurn(metrics.TurnFailed)
		return "", false
	}

	text := SanitizeResponse(StripReasoning(raw), s.names)
	if text == "" {
		o.logger.Warn("agent returned empty response",
			zap.String("room_id", s.room.RoomID),
			zap.String("agent_name", agent.Name),
			zap.Int("round", s.state.Round))
		o.observeTurn(metrics.TurnEmpty)
		return "", false
	}

	meta := map[string]any{
		"round":      s.state.Round,
		"agent_name": agent.Name,
	}
	for k, v := range extraMeta {
		meta[k] = v
	}

	msg := &store.Message{
		ID:           uuid.NewString(),
		RoomID:       s.room.RoomID,
		SenderType:   store.SenderAgent,
		SenderID:     agent.ID,
		Type:         store.MessageText,
		Content:      text,
		Metadata:     meta,
		IsAIResponse: true,
	}
	if err := o.store.InsertMessage(ctx, msg); err != nil {
		o.logger.Error("persist agent message failed",
			zap.String("room_id", s.room.RoomID),
			zap.String("agent_id", agent.ID),
			zap.Error(err))
		o.observeTurn(metrics.TurnFailed)
		return "", false
	}

	o.logExchange(ctx, agent.ID, s.room.RoomID, prompt, text, meta)

	s.history = append(s.history, HistoryEntry{
		Role:    RoleAgent,
		Name:    agent.Name,
		AgentID: agent.ID,
		Content: text,
	})
	s.state.SpeakCounts[agent.ID]++
	o.observeTurn(metrics.TurnOK)
	return text, true
}
