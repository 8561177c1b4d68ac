package relay

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/BaSui01/relaychat/internal/metrics"
	"github.com/BaSui01/relaychat/store"
)

// SingleAgent answers a user message in a room with exactly one agent. No
// rounds, no pacing: one generation, one reply. During an active meeting the
// reply is framed by the meeting topic instead of the message itself.
func (o *Orchestrator) SingleAgent(ctx context.Context, roomID string, trigger *store.Message, agent Agent) error {
	room, err := o.store.GetRoom(ctx, roomID)
	if err != nil {
		return fmt.Errorf("load room %s: %w", roomID, err)
	}
	o.observeSessionStart("single")

	o.setTyping(ctx, roomID, agent.ID, true)
	defer o.setTyping(ctx, roomID, agent.ID, false)

	prompt := ""
	if trigger != nil {
		prompt = trigger.Content
	}
	mem := o.loadMemoryHints(ctx, agent.ID, roomID, prompt)

	callCtx := ctx
	if o.cfg.ResponderTimeout > 0 {
		var cancel context.CancelFunc
		callCtx, cancel = context.WithTimeout(ctx, o.cfg.ResponderTimeout)
		defer cancel()
	}

	hints := roomHints(RoomContext{
		RoomID:   room.ID,
		RoomName: room.Name,
		RoomType: room.Type,
	})
	start := time.Now()
	var raw string
	if room.MeetingActive && room.MeetingTopic != "" {
		raw, err = o.responder.GenerateMeeting(callCtx, agentConfig(agent), room.MeetingTopic, nil, mem)
	} else {
		raw, err = o.responder.Generate(callCtx, agentConfig(agent), prompt, nil, hints, o.recentImages(ctx, roomID), mem)
	}
	if o.collector != nil {
		o.collector.ObserveResponder(agent.Provider, time.Since(start), err)
	}
	if err != nil {
		o.logger.Warn("single agent turn failed",
			zap.String("room_id", roomID),
			zap.String("agent_name", agent.Name),
			zap.Error(err))
		o.observeTurn(metrics.TurnFailed)
		o.postApology(ctx, roomID, agent)
		return err
	}

	text := SanitizeResponse(StripReasoning(raw), []string{agent.Name})
	if text == "" {
		o.observeTurn(metrics.TurnEmpty)
		o.postApology(ctx, roomID, agent)
		return fmt.Errorf("agent %s returned an empty response", agent.Name)
	}

	msg := &store.Message{
		ID:           uuid.NewString(),
		RoomID:       roomID,
		SenderType:   store.SenderAgent,
		SenderID:     agent.ID,
		Type:         store.MessageText,
		Content:      text,
		Metadata:     map[string]any{"agent_name": agent.Name},
		IsAIResponse: true,
	}
	if err := o.store.InsertMessage(ctx, msg); err != nil {
		o.observeTurn(metrics.TurnFailed)
		return fmt.Errorf("persist reply: %w", err)
	}
	o.logExchange(ctx, agent.ID, roomID, prompt, text, msg.Metadata)
	o.observeTurn(metrics.TurnOK)
	return nil
}

// postApology writes the fallback reply when a single-agent turn fails, so
// the user is never left staring at a typing indicator.
func (o *Orchestrator) postApology(ctx context.Context, roomID string, agent Agent) {
	msg := &store.Message{
		ID:         uuid.NewString(),
		RoomID:     roomID,
		SenderType: store.SenderAgent,
		SenderID:   agent.ID,
		Type:       store.MessageText,
		Content:    apologyMessage,
		Metadata: map[string]any{
			"agent_name": agent.Name,
			"error":      true,
		},
		IsAIResponse: true,
	}
	if err := o.store.InsertMessage(ctx, msg); err != nil {
		o.logger.Error("apology insert failed",
			zap.String("room_id", roomID), zap.Error(err))
	}
}
