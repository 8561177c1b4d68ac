// Package store provides the chat persistence abstraction used by the relay
// orchestrator: messages, participants and room meeting status, with
// pluggable memory, SQL and Redis backends.
package store

import (
	"context"
	"errors"
	"time"
)

var (
	// ErrNotFound is returned when a room does not exist.
	ErrNotFound = errors.New("store: not found")
	// ErrInvalidInput is returned for nil or malformed inputs.
	ErrInvalidInput = errors.New("store: invalid input")
)

// SenderType distinguishes user-authored rows from agent-authored rows.
type SenderType string

const (
	SenderUser  SenderType = "user"
	SenderAgent SenderType = "agent"
)

// MessageType classifies message content.
type MessageType string

const (
	MessageText   MessageType = "text"
	MessageSystem MessageType = "system"
	MessageImage  MessageType = "image"
	MessageFile   MessageType = "file"
)

// Message is one persisted chat row.
type Message struct {
	ID           string         `json:"id"`
	RoomID       string         `json:"room_id"`
	SenderType   SenderType     `json:"sender_type"`
	SenderID     string         `json:"sender_id"`
	Type         MessageType    `json:"type"`
	Content      string         `json:"content"`
	Metadata     map[string]any `json:"metadata,omitempty"`
	IsAIResponse bool           `json:"is_ai_response"`
	CreatedAt    time.Time      `json:"created_at"`
}

// Participant is a member of a room. Either AgentID or UserID is set.
type Participant struct {
	RoomID   string `json:"room_id"`
	AgentID  string `json:"agent_id,omitempty"`
	UserID   string `json:"user_id,omitempty"`
	Name     string `json:"name"`
	IsTyping bool   `json:"is_typing"`
}

// Room holds the meeting status fields the orchestrator polls each round.
type Room struct {
	ID             string     `json:"id"`
	Name           string     `json:"name"`
	Type           string     `json:"type,omitempty"`
	MeetingActive  bool       `json:"meeting_active"`
	MeetingTopic   string     `json:"meeting_topic,omitempty"`
	FacilitatorID  string     `json:"facilitator_id,omitempty"`
	MeetingEndTime *time.Time `json:"meeting_end_time,omitempty"`
}

// MessageQuery filters a room's messages. Zero-valued fields are ignored.
// After selects rows strictly newer than the given instant.
type MessageQuery struct {
	RoomID     string
	SenderType SenderType
	Type       MessageType
	After      time.Time
	Limit      int
	Descending bool
}

// ChatStore is the persistence boundary of the relay orchestrator. Within a
// session there is exactly one writer for agent rows (the orchestrator),
// so plain read-then-write semantics are sufficient.
type ChatStore interface {
	InsertMessage(ctx context.Context, msg *Message) error
	QueryMessages(ctx context.Context, q MessageQuery) ([]*Message, error)

	UpsertRoom(ctx context.Context, room *Room) error
	GetRoom(ctx context.Context, roomID string) (*Room, error)
	SetMeetingActive(ctx context.Context, roomID string, active bool) error

	UpsertParticipant(ctx context.Context, p *Participant) error
	ListParticipants(ctx context.Context, roomID string) ([]*Participant, error)
	SetTyping(ctx context.Context, roomID, agentID string, typing bool) error

	Ping(ctx context.Context) error
	Close() error
}
