package relay

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/BaSui01/relaychat/internal/ctxkeys"
	"github.com/BaSui01/relaychat/store"
)

// Trigger starts a session for the given user message in the background and
// returns immediately. Message delivery to the user must never wait on agent
// generation; the shared runner caps how many sessions generate at once.
func (o *Orchestrator) Trigger(roomID string, msg *store.Message, agents []Agent) {
	ctx := ctxkeys.WithSessionID(context.Background(), uuid.NewString())
	o.runner.Go(func() { o.dispatch(ctx, roomID, msg, agents) })
}

// dispatch routes a trigger to the right session shape: no agents is a no-op,
// one agent gets a direct reply, two or more run a relay. A mention that
// matches nobody is silently dropped.
func (o *Orchestrator) dispatch(ctx context.Context, roomID string, msg *store.Message, agents []Agent) {
	roster := dedupeAgents(agents)
	defer o.recoverSession(ctx, roomID, roster)

	logger := o.logger
	if sid, ok := ctxkeys.SessionID(ctx); ok {
		logger = logger.With(zap.String("session_id", sid))
	}

	if len(roster) == 0 {
		return
	}

	roster = filterMentioned(roster, msg)
	if len(roster) == 0 {
		logger.Debug("mention matched no agents, dropping trigger",
			zap.String("room_id", roomID))
		return
	}

	if len(roster) == 1 {
		if err := o.SingleAgent(ctx, roomID, msg, roster[0]); err != nil {
			logger.Warn("single agent session failed",
				zap.String("room_id", roomID), zap.Error(err))
		}
		return
	}
	if _, err := o.Relay(ctx, roomID, msg, roster); err != nil {
		logger.Error("relay session failed",
			zap.String("room_id", roomID), zap.Error(err))
	}
}

// filterMentioned narrows the roster to the agents named by the message's
// target hint. Matching is case-insensitive and substring in either
// direction; without a hint the full roster passes through.
func filterMentioned(roster []Agent, msg *store.Message) []Agent {
	if msg == nil {
		return roster
	}
	hint, _ := msg.Metadata["target_agent_name"].(string)
	hint = strings.ToLower(strings.TrimSpace(hint))
	if hint == "" {
		return roster
	}
	var matched []Agent
	for _, a := range roster {
		name := strings.ToLower(a.Name)
		if name == "" {
			continue
		}
		if strings.Contains(name, hint) || strings.Contains(hint, name) {
			matched = append(matched, a)
		}
	}
	return matched
}

// recoverSession is the last line of defense for a background session: on
// panic it posts the apology fallback and clears every typing indicator, so
// the room never hangs on a crashed goroutine.
func (o *Orchestrator) recoverSession(ctx context.Context, roomID string, roster []Agent) {
	r := recover()
	if r == nil {
		return
	}
	o.logger.Error("relay session panicked",
		zap.String("room_id", roomID),
		zap.Any("panic", r))
	if len(roster) > 0 {
		o.postApology(ctx, roomID, roster[0])
	}
	for _, a := range roster {
		o.setTyping(ctx, roomID, a.ID, false)
	}
}
