package relay

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/BaSui01/relaychat/store"
)

// imageContextLimit bounds how many recent room images are forwarded to the
// responder as visual context.
const imageContextLimit = 4

// resumeRound is where a relay picks up when the room already holds agent
// messages: the introduction phases are over, so the conversation resumes
// mid-discussion instead of greeting again.
const resumeRound = 3

// Relay runs a full multi-agent conversation in the given room, starting from
// the triggering user message. It blocks until a termination condition fires
// and returns the session outcome. At least two distinct agents are required.
func (o *Orchestrator) Relay(ctx context.Context, roomID string, trigger *store.Message, agents []Agent) (*Result, error) {
	roster := dedupeAgents(agents)
	if len(roster) < 2 {
		return nil, fmt.Errorf("relay needs at least two agents, got %d", len(roster))
	}

	s, err := o.newSession(ctx, roomID, trigger, roster)
	if err != nil {
		return nil, err
	}

	mode := "relay"
	if s.facilitator != nil {
		mode = "facilitator"
	}
	o.observeSessionStart(mode)
	o.logger.Info("relay session started",
		zap.String("room_id", roomID),
		zap.String("mode", mode),
		zap.Int("agents", len(roster)),
		zap.Int("start_round", s.startRound))

	reason := o.runRounds(ctx, s)

	res := &Result{
		RoomID:     roomID,
		StopReason: reason,
		Rounds:     s.roundsRun,
		TotalTurns: s.state.TotalTurns,
		StartedAt:  s.state.StartedAt,
		EndedAt:    time.Now(),
	}
	o.observeSessionEnd(reason)
	o.logger.Info("relay session ended",
		zap.String("room_id", roomID),
		zap.String("stop_reason", string(reason)),
		zap.Int("rounds", res.Rounds),
		zap.Int("total_turns", res.TotalTurns))
	return res, nil
}

// newSession snapshots the room, seeds the working history from persisted
// messages and computes the session budgets.
func (o *Orchestrator) newSession(ctx context.Context, roomID string, trigger *store.Message, roster []Agent) (*session, error) {
	room, err := o.store.GetRoom(ctx, roomID)
	if err != nil {
		return nil, fmt.Errorf("load room %s: %w", roomID, err)
	}

	s := &session{
		room: RoomContext{
			RoomID:        room.ID,
			RoomName:      room.Name,
			RoomType:      room.Type,
			MeetingActive: room.MeetingActive,
			MeetingTopic:  room.MeetingTopic,
			FacilitatorID: room.FacilitatorID,
		},
		agents: roster,
		names:  agentNames(roster),
	}

	for i := range roster {
		if roster[i].ID == room.FacilitatorID {
			s.facilitator = &roster[i]
			continue
		}
		s.others = append(s.others, roster[i])
	}

	if s.facilitator != nil {
		s.maxRounds = o.cfg.FacilitatorMaxRounds
		s.maxTime = o.cfg.FacilitatorMaxTime
	} else {
		s.maxRounds = o.cfg.MaxRounds
		s.maxTime = o.cfg.MaxTime
	}
	s.maxTurns = len(roster) * s.maxRounds

	byID := make(map[string]Agent, len(roster))
	for _, a := range roster {
		byID[a.ID] = a
	}

	seeded, err := o.store.QueryMessages(ctx, store.MessageQuery{
		RoomID:     roomID,
		Type:       store.MessageText,
		Descending: true,
		Limit:      o.cfg.HistorySeedLimit,
	})
	if err != nil {
		return nil, fmt.Errorf("seed history for room %s: %w", roomID, err)
	}

	seen := make(map[string]struct{}, len(seeded))
	hasAgentHistory := false
	for i := len(seeded) - 1; i >= 0; i-- {
		msg := seeded[i]
		seen[msg.ID] = struct{}{}
		s.history = append(s.history, entryFromMessage(msg, byID))
		if msg.SenderType == store.SenderAgent {
			hasAgentHistory = true
		}
	}

	if trigger != nil {
		if _, dup := seen[trigger.ID]; !dup {
			s.history = append(s.history, entryFromMessage(trigger, byID))
		}
	}

	if hasAgentHistory {
		s.startRound = resumeRound
	}

	s.images = o.recentImages(ctx, roomID)
	s.state = &RoundState{
		Round:       s.startRound,
		StartedAt:   time.Now(),
		SpeakCounts: make(map[string]int, len(roster)),
	}
	return s, nil
}

// recentImages collects URLs of the latest image messages, best-effort.
func (o *Orchestrator) recentImages(ctx context.Context, roomID string) []string {
	msgs, err := o.store.QueryMessages(ctx, store.MessageQuery{
		RoomID:     roomID,
		Type:       store.MessageImage,
		Descending: true,
		Limit:      imageContextLimit,
	})
	if err != nil {
		o.logger.Debug("image context load failed", zap.String("room_id", roomID), zap.Error(err))
		return nil
	}
	var urls []string
	for _, msg := range msgs {
		if u, ok := msg.Metadata["url"].(string); ok && u != "" {
			urls = append(urls, u)
		}
	}
	return urls
}

func entryFromMessage(msg *store.Message, byID map[string]Agent) HistoryEntry {
	if msg.SenderType == store.SenderAgent {
		name := ""
		if a, ok := byID[msg.SenderID]; ok {
			name = a.Name
		} else if n, ok := msg.Metadata["agent_name"].(string); ok {
			name = n
		}
		return HistoryEntry{Role: RoleAgent, Name: name, AgentID: msg.SenderID, Content: msg.Content}
	}
	return HistoryEntry{Role: RoleUser, Name: "User", Content: msg.Content}
}

// runRounds executes rounds until a budget, the room status or a user
// interruption stops the session. The round budget caps the absolute round
// index, so a resumed session only runs the rounds left below the cap.
func (o *Orchestrator) runRounds(ctx context.Context, s *session) StopReason {
	for round := s.startRound; round < s.maxRounds; round++ {
		s.state.Round = round

		if ctx.Err() != nil || s.elapsed() >= s.maxTime {
			return StopTimeLimit
		}
		if s.state.TotalTurns >= s.maxTurns {
			return StopMessageLimit
		}
		if reason, stop := o.checkRoomStatus(ctx, s); stop {
			return reason
		}
		if round > 0 && o.userInterrupted(ctx, s) {
			return StopUserMessage
		}

		s.roundsRun++
		if s.facilitator != nil && round >= 2 {
			if reason, stop := o.facilitatorRound(ctx, s); stop {
				return reason
			}
			continue
		}

		if reason, stop := o.freeRound(ctx, s, round); stop {
			return reason
		}
	}
	return StopRoundLimit
}

// freeRound gives every roster agent one turn in fixed order.
func (o *Orchestrator) freeRound(ctx context.Context, s *session, round int) (StopReason, bool) {
	for idx, agent := range s.agents {
		if ctx.Err() != nil || s.elapsed() >= s.maxTime {
			return StopTimeLimit, true
		}
		if s.state.TotalTurns >= s.maxTurns {
			return StopMessageLimit, true
		}
		if o.wouldSelfReply(s, agent) {
			o.logger.Debug("turn suppressed, agent spoke last",
				zap.String("room_id", s.room.RoomID),
				zap.String("agent_name", agent.Name))
			continue
		}

		phase := ClassifyPhase(round, isAnnouncer(agent, idx, s.room.FacilitatorID))
		in := PromptInput{
			Phase:      phase,
			Agent:      agent,
			Room:       s.room,
			History:    promptWindow(s.history, agent.ID, o.cfg.HistoryWindow),
			OtherNames: otherNames(s.agents, agent.ID),
			StyleHint:  StyleHint(agent.ID, round, s.state.TotalTurns),
		}
		if s.facilitator != nil {
			in.FacilitatorName = s.facilitator.Name
		}

		o.runTurn(ctx, s, agent, BuildPrompt(in), nil)
		o.pace(ctx, o.cfg.TurnDelay)
	}
	return "", false
}

// wouldSelfReply reports whether the agent authored the latest history entry.
func (o *Orchestrator) wouldSelfReply(s *session, agent Agent) bool {
	if len(s.history) == 0 {
		return false
	}
	last := s.history[len(s.history)-1]
	return last.Role == RoleAgent && last.AgentID == agent.ID
}

// checkRoomStatus re-reads the room and stops the session when a meeting that
// was active at session start has since ended, or its scheduled end time has
// passed. Transient read failures never kill a running session.
func (o *Orchestrator) checkRoomStatus(ctx context.Context, s *session) (StopReason, bool) {
	room, err := o.store.GetRoom(ctx, s.room.RoomID)
	if err != nil {
		if !errors.Is(err, store.ErrNotFound) {
			o.logger.Warn("room status check failed",
				zap.String("room_id", s.room.RoomID), zap.Error(err))
		}
		return "", false
	}
	if room.MeetingEndTime != nil && time.Now().After(*room.MeetingEndTime) {
		if err := o.store.SetMeetingActive(ctx, s.room.RoomID, false); err != nil {
			o.logger.Warn("meeting deactivation failed",
				zap.String("room_id", s.room.RoomID), zap.Error(err))
		}
		return StopMeetingExpired, true
	}
	if s.room.MeetingActive && !room.MeetingActive {
		return StopMeetingEnded, true
	}
	return "", false
}

// userInterrupted reports whether a user posted a message since the session
// started. Poll failures count as no interruption.
func (o *Orchestrator) userInterrupted(ctx context.Context, s *session) bool {
	msgs, err := o.store.QueryMessages(ctx, store.MessageQuery{
		RoomID:     s.room.RoomID,
		SenderType: store.SenderUser,
		After:      s.state.StartedAt,
		Limit:      1,
	})
	if err != nil {
		o.logger.Warn("interruption poll failed",
			zap.String("room_id", s.room.RoomID), zap.Error(err))
		return false
	}
	return len(msgs) > 0
}
