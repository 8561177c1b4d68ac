package relay

import (
	"context"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/BaSui01/relaychat/internal/metrics"
	"github.com/BaSui01/relaychat/internal/pool"
	"github.com/BaSui01/relaychat/memory"
	"github.com/BaSui01/relaychat/responder"
	"github.com/BaSui01/relaychat/store"
)

// apologyMessage is posted when a session dies to an unrecoverable error, so
// the room is never left hanging mid-conversation.
const apologyMessage = "Sorry, something went wrong on my side. Let's pick this up again in a moment."

// Orchestrator drives multi-agent relay conversations over a chat store.
// One orchestrator serves many rooms; all per-session state lives in the
// session value, so concurrent sessions in different rooms are safe.
type Orchestrator struct {
	store     store.ChatStore
	memory    memory.Service
	responder responder.Responder
	cfg       Config
	logger    *zap.Logger
	collector *metrics.Collector
	runner    *pool.Runner
}

// New creates an orchestrator. The memory service may be nil; memory then
// degrades to empty hints. Logger may be nil.
func New(st store.ChatStore, mem memory.Service, resp responder.Responder, cfg Config, logger *zap.Logger) *Orchestrator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Orchestrator{
		store:     st,
		memory:    mem,
		responder: resp,
		cfg:       cfg.withDefaults(),
		logger:    logger.With(zap.String("component", "relay")),
		runner:    pool.NewRunner(pool.DefaultMaxSessions),
	}
}

// WithCollector attaches a metrics collector and returns the orchestrator.
func (o *Orchestrator) WithCollector(c *metrics.Collector) *Orchestrator {
	o.collector = c
	return o
}

// Wait blocks until every background session started by Trigger has finished.
// Used during graceful shutdown.
func (o *Orchestrator) Wait() {
	o.runner.Wait()
}

// session is the working state of one relay invocation.
type session struct {
	room    RoomContext
	agents  []Agent
	names   []string
	history []HistoryEntry
	state   *RoundState
	images  []string

	facilitator *Agent
	others      []Agent

	startRound int
	roundsRun  int

	maxRounds int
	maxTime   time.Duration
	maxTurns  int
}

func (s *session) elapsed() time.Duration {
	return time.Since(s.state.StartedAt)
}

// pace sleeps for d unless the context ends first.
func (o *Orchestrator) pace(ctx context.Context, d time.Duration) {
	if d <= 0 {
		return
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}

// setTyping flips the typing indicator, swallowing store errors. The
// indicator is cosmetic and must never interfere with the turn itself.
func (o *Orchestrator) setTyping(ctx context.Context, roomID, agentID string, typing bool) {
	if err := o.store.SetTyping(ctx, roomID, agentID, typing); err != nil {
		o.logger.Warn("set typing failed",
			zap.String("room_id", roomID),
			zap.String("agent_id", agentID),
			zap.Bool("typing", typing),
			zap.Error(err))
	}
}

func agentConfig(a Agent) responder.AgentConfig {
	return responder.AgentConfig{
		ID:           a.ID,
		Name:         a.Name,
		Provider:     a.Provider,
		Model:        a.Model,
		SystemPrompt: a.SystemPrompt,
	}
}

func roomHints(room RoomContext) responder.RoomHints {
	return responder.RoomHints{
		RoomName:  room.RoomName,
		RoomType:  room.RoomType,
		Messenger: true,
	}
}

// dedupeAgents drops duplicate IDs, keeping first occurrence order.
func dedupeAgents(agents []Agent) []Agent {
	seen := make(map[string]struct{}, len(agents))
	out := make([]Agent, 0, len(agents))
	for _, a := range agents {
		if a.ID == "" {
			continue
		}
		if _, ok := seen[a.ID]; ok {
			continue
		}
		seen[a.ID] = struct{}{}
		out = append(out, a)
	}
	return out
}

func agentNames(agents []Agent) []string {
	names := make([]string, 0, len(agents))
	for _, a := range agents {
		names = append(names, a.Name)
	}
	return names
}

func otherNames(agents []Agent, excludeID string) []string {
	names := make([]string, 0, len(agents))
	for _, a := range agents {
		if a.ID == excludeID {
			continue
		}
		names = append(names, a.Name)
	}
	return names
}

// loadMemoryHints fetches the agent's long-term memory. Any failure yields
// empty hints; a turn never depends on the memory subsystem.
func (o *Orchestrator) loadMemoryHints(ctx context.Context, agentID, roomID, query string) responder.MemoryHints {
	if o.memory == nil {
		return responder.MemoryHints{}
	}
	mc, err := o.memory.LoadFullContext(ctx, agentID, memory.LookupOptions{RoomID: roomID, Query: query})
	if err != nil || mc == nil {
		if err != nil {
			o.logger.Debug("memory load failed",
				zap.String("agent_id", agentID),
				zap.Error(err))
		}
		return responder.MemoryHints{}
	}
	return responder.MemoryHints{
		Identity:            mc.IdentitySummary,
		RecentConversations: strings.Join(mc.RecentSnippets, "\n"),
	}
}

// logExchange records a prompt/response pair to long-term memory, best-effort.
func (o *Orchestrator) logExchange(ctx context.Context, agentID, roomID, prompt, response string, meta map[string]any) {
	if o.memory == nil {
		return
	}
	if err := o.memory.LogConversation(ctx, agentID, roomID, prompt, response, meta); err != nil {
		o.logger.Debug("memory log failed",
			zap.String("agent_id", agentID),
			zap.Error(err))
	}
}

func (o *Orchestrator) observeTurn(outcome string) {
	if o.collector != nil {
		o.collector.TurnObserved(outcome)
	}
}

func (o *Orchestrator) observeSessionStart(mode string) {
	if o.collector != nil {
		o.collector.SessionStarted(mode)
	}
}

func (o *Orchestrator) observeSessionEnd(reason StopReason) {
	if o.collector != nil {
		o.collector.SessionEnded(string(reason))
	}
}
