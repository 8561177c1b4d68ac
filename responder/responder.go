// Package responder abstracts the external text-generation capability behind
// the relay orchestrator. A responder call is slow and unreliable by nature;
// callers isolate failures per turn.
package responder

import (
	"context"
)

// AgentConfig identifies the generating participant and its model binding.
type AgentConfig struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	Provider     string `json:"provider,omitempty"`
	Model        string `json:"model,omitempty"`
	SystemPrompt string `json:"system_prompt,omitempty"`
}

// RoomHints carries room-level framing for the generation.
type RoomHints struct {
	RoomName  string `json:"room_name,omitempty"`
	RoomType  string `json:"room_type,omitempty"`
	Messenger bool   `json:"messenger,omitempty"`
}

// MemoryHints is pre-rendered long-term memory injected into the system
// prompt. Empty fields are simply omitted.
type MemoryHints struct {
	Identity            string `json:"identity,omitempty"`
	RecentConversations string `json:"recent_conversations,omitempty"`
}

// Turn is one prior exchange passed as structured history.
type Turn struct {
	Role    string `json:"role"`
	Name    string `json:"name,omitempty"`
	Content string `json:"content"`
}

// Responder generates agent replies. Both entry points fail with a generic
// error on provider or model failure.
type Responder interface {
	// Generate produces a conversational reply for the given prompt.
	// History is optional; the relay embeds context in the prompt itself.
	Generate(ctx context.Context, agent AgentConfig, prompt string, history []Turn,
		hints RoomHints, images []string, mem MemoryHints) (string, error)

	// GenerateMeeting produces a meeting-style reply framed by a topic and
	// the other participants instead of free-form history.
	GenerateMeeting(ctx context.Context, agent AgentConfig, topic string,
		others []string, mem MemoryHints) (string, error)
}
