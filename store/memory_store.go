package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MemoryStore is an in-memory ChatStore for tests and single-process
// deployments. All state is lost on restart.
type MemoryStore struct {
	mu           sync.RWMutex
	messages     map[string][]*Message     // roomID -> chronological rows
	rooms        map[string]*Room          // roomID -> room
	participants map[string][]*Participant // roomID -> members
	closed       bool
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		messages:     make(map[string][]*Message),
		rooms:        make(map[string]*Room),
		participants: make(map[string][]*Participant),
	}
}

func (s *MemoryStore) InsertMessage(_ context.Context, msg *Message) error {
	if msg == nil || msg.RoomID == "" {
		return ErrInvalidInput
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	cp := *msg
	if cp.ID == "" {
		cp.ID = uuid.NewString()
	}
	if cp.CreatedAt.IsZero() {
		cp.CreatedAt = time.Now()
	}
	if cp.Type == "" {
		cp.Type = MessageText
	}
	msg.ID = cp.ID
	msg.CreatedAt = cp.CreatedAt
	s.messages[cp.RoomID] = append(s.messages[cp.RoomID], &cp)
	return nil
}

func (s *MemoryStore) QueryMessages(_ context.Context, q MessageQuery) ([]*Message, error) {
	if q.RoomID == "" {
		return nil, ErrInvalidInput
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*Message
	for _, m := range s.messages[q.RoomID] {
		if q.SenderType != "" && m.SenderType != q.SenderType {
			continue
		}
		if q.Type != "" && m.Type != q.Type {
			continue
		}
		if !q.After.IsZero() && !m.CreatedAt.After(q.After) {
			continue
		}
		cp := *m
		out = append(out, &cp)
	}
	sort.SliceStable(out, func(i, j int) bool {
		if q.Descending {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	if q.Limit > 0 && len(out) > q.Limit {
		out = out[:q.Limit]
	}
	return out, nil
}

func (s *MemoryStore) UpsertRoom(_ context.Context, room *Room) error {
	if room == nil || room.ID == "" {
		return ErrInvalidInput
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *room
	s.rooms[room.ID] = &cp
	return nil
}

func (s *MemoryStore) GetRoom(_ context.Context, roomID string) (*Room, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	room, ok := s.rooms[roomID]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *room
	return &cp, nil
}

func (s *MemoryStore) SetMeetingActive(_ context.Context, roomID string, active bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	room, ok := s.rooms[roomID]
	if !ok {
		return ErrNotFound
	}
	room.MeetingActive = active
	if !active {
		room.MeetingEndTime = nil
	}
	return nil
}

func (s *MemoryStore) UpsertParticipant(_ context.Context, p *Participant) error {
	if p == nil || p.RoomID == "" || (p.AgentID == "" && p.UserID == "") {
		return ErrInvalidInput
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	list := s.participants[p.RoomID]
	for i, existing := range list {
		if existing.AgentID == p.AgentID && existing.UserID == p.UserID {
			cp := *p
			list[i] = &cp
			return nil
		}
	}
	cp := *p
	s.participants[p.RoomID] = append(list, &cp)
	return nil
}

func (s *MemoryStore) ListParticipants(_ context.Context, roomID string) ([]*Participant, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	list := s.participants[roomID]
	out := make([]*Participant, 0, len(list))
	for _, p := range list {
		cp := *p
		out = append(out, &cp)
	}
	return out, nil
}

func (s *MemoryStore) SetTyping(_ context.Context, roomID, agentID string, typing bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, p := range s.participants[roomID] {
		if p.AgentID == agentID {
			p.IsTyping = typing
			return nil
		}
	}
	// Typing for an unlisted agent is a no-op, not an error.
	return nil
}

func (s *MemoryStore) Ping(_ context.Context) error {
	return nil
}

func (s *MemoryStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}
