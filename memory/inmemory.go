package memory

import (
	"context"
	"sync"
	"time"
)

const (
	// maxLogsPerAgent bounds the in-process log ring.
	maxLogsPerAgent = 50
	// snippetCount is how many recent utterances a context load returns.
	snippetCount = 5
	// snippetMaxLen truncates long utterances before injection.
	snippetMaxLen = 100
)

type exchange struct {
	RoomID   string
	Prompt   string
	Response string
	At       time.Time
}

type agentRecord struct {
	identity string
	logs     []exchange
}

// InMemoryService is a process-local memory Service, suitable for tests and
// single-instance deployments.
type InMemoryService struct {
	mu     sync.RWMutex
	agents map[string]*agentRecord
}

// NewInMemoryService creates an empty in-process memory service.
func NewInMemoryService() *InMemoryService {
	return &InMemoryService{agents: make(map[string]*agentRecord)}
}

// SetIdentity stores the agent's identity summary.
func (s *InMemoryService) SetIdentity(agentID, summary string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.record(agentID).identity = summary
}

func (s *InMemoryService) record(agentID string) *agentRecord {
	rec, ok := s.agents[agentID]
	if !ok {
		rec = &agentRecord{}
		s.agents[agentID] = rec
	}
	return rec
}

func (s *InMemoryService) LoadFullContext(_ context.Context, agentID string, opts LookupOptions) (*Context, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rec, ok := s.agents[agentID]
	if !ok {
		return &Context{}, nil
	}

	out := &Context{IdentitySummary: rec.identity}
	for i := len(rec.logs) - 1; i >= 0 && len(out.RecentSnippets) < snippetCount; i-- {
		ex := rec.logs[i]
		if opts.RoomID != "" && ex.RoomID != opts.RoomID {
			continue
		}
		out.RecentSnippets = append(out.RecentSnippets, truncate(ex.Response, snippetMaxLen))
	}
	return out, nil
}

func (s *InMemoryService) LogConversation(_ context.Context, agentID, roomID, prompt, response string, _ map[string]any) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec := s.record(agentID)
	rec.logs = append(rec.logs, exchange{
		RoomID:   roomID,
		Prompt:   prompt,
		Response: response,
		At:       time.Now(),
	})
	if len(rec.logs) > maxLogsPerAgent {
		rec.logs = rec.logs[len(rec.logs)-maxLogsPerAgent:]
	}
	return nil
}

func truncate(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n])
}
