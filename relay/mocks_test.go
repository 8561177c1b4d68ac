package relay

import (
	"context"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/BaSui01/relaychat/memory"
	"github.com/BaSui01/relaychat/responder"
	"github.com/BaSui01/relaychat/store"
)

// generateCall records one responder invocation.
type generateCall struct {
	AgentID   string
	AgentName string
	Prompt    string
}

// mockResponder implements responder.Responder with function callbacks.
type mockResponder struct {
	mu         sync.Mutex
	calls      []generateCall
	generateFn func(ctx context.Context, agent responder.AgentConfig, prompt string) (string, error)
	meetingFn  func(ctx context.Context, agent responder.AgentConfig, topic string) (string, error)
}

func (m *mockResponder) Generate(ctx context.Context, agent responder.AgentConfig, prompt string, _ []responder.Turn,
	_ responder.RoomHints, _ []string, _ responder.MemoryHints) (string, error) {
	m.mu.Lock()
	m.calls = append(m.calls, generateCall{AgentID: agent.ID, AgentName: agent.Name, Prompt: prompt})
	m.mu.Unlock()
	if m.generateFn != nil {
		return m.generateFn(ctx, agent, prompt)
	}
	return "reply from " + agent.Name, nil
}

func (m *mockResponder) GenerateMeeting(ctx context.Context, agent responder.AgentConfig, topic string,
	_ []string, _ responder.MemoryHints) (string, error) {
	m.mu.Lock()
	m.calls = append(m.calls, generateCall{AgentID: agent.ID, AgentName: agent.Name, Prompt: "meeting:" + topic})
	m.mu.Unlock()
	if m.meetingFn != nil {
		return m.meetingFn(ctx, agent, topic)
	}
	return "meeting reply from " + agent.Name, nil
}

func (m *mockResponder) callNames() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	names := make([]string, 0, len(m.calls))
	for _, c := range m.calls {
		names = append(names, c.AgentName)
	}
	return names
}

// mockMemory implements memory.Service with function callbacks.
type mockMemory struct {
	mu     sync.Mutex
	logged []string // "agentID:response"
	loadFn func(ctx context.Context, agentID string) (*memory.Context, error)
	logFn  func(ctx context.Context, agentID, roomID, prompt, response string) error
}

func (m *mockMemory) LoadFullContext(ctx context.Context, agentID string, _ memory.LookupOptions) (*memory.Context, error) {
	if m.loadFn != nil {
		return m.loadFn(ctx, agentID)
	}
	return &memory.Context{}, nil
}

func (m *mockMemory) LogConversation(ctx context.Context, agentID, roomID, prompt, response string, _ map[string]any) error {
	m.mu.Lock()
	m.logged = append(m.logged, agentID+":"+response)
	m.mu.Unlock()
	if m.logFn != nil {
		return m.logFn(ctx, agentID, roomID, prompt, response)
	}
	return nil
}

// typingStore wraps the in-memory store and records typing transitions.
type typingStore struct {
	*store.MemoryStore
	mu      sync.Mutex
	typing  []string // "agentID=true" / "agentID=false"
	failSet bool
}

func (s *typingStore) SetTyping(ctx context.Context, roomID, agentID string, typing bool) error {
	s.mu.Lock()
	if typing {
		s.typing = append(s.typing, agentID+"=true")
	} else {
		s.typing = append(s.typing, agentID+"=false")
	}
	fail := s.failSet
	s.mu.Unlock()
	if fail {
		return store.ErrInvalidInput
	}
	return s.MemoryStore.SetTyping(ctx, roomID, agentID, typing)
}

func (s *typingStore) transitions() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, len(s.typing))
	copy(out, s.typing)
	return out
}

// testConfig keeps pacing at zero so tests run instantly.
func testConfig() Config {
	return Config{
		FacilitatorMaxRounds: 20,
		FacilitatorMaxTime:   10 * time.Minute,
		MaxRounds:            5,
		MaxTime:              3 * time.Minute,
		HistorySeedLimit:     20,
		HistoryWindow:        8,
	}
}

func newTestOrchestrator(t *testing.T, st store.ChatStore, resp responder.Responder, cfg Config) *Orchestrator {
	t.Helper()
	return New(st, &mockMemory{}, resp, cfg, zap.NewNop())
}

func seedRoom(t *testing.T, st store.ChatStore, room *store.Room) {
	t.Helper()
	if err := st.UpsertRoom(context.Background(), room); err != nil {
		t.Fatalf("seed room: %v", err)
	}
}

func userMessage(roomID, content string) *store.Message {
	return &store.Message{
		RoomID:     roomID,
		SenderType: store.SenderUser,
		SenderID:   "user-1",
		Type:       store.MessageText,
		Content:    content,
	}
}
