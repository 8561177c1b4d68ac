// Package memory gives agents long-term context across sessions: every
// exchange is logged, and a summarized context (identity plus recent
// utterances) is loaded back per agent. The subsystem is best-effort by
// contract; callers must treat every failure as "no memory available".
package memory

import (
	"context"
)

// Context is the summarized long-term memory for one agent.
type Context struct {
	// IdentitySummary describes who the agent is (persona, style, focus).
	IdentitySummary string `json:"identity_summary,omitempty"`
	// RecentSnippets are the agent's most recent utterances, newest first.
	RecentSnippets []string `json:"recent_snippets,omitempty"`
}

// LookupOptions scopes a context load.
type LookupOptions struct {
	RoomID string
	// Query is a short excerpt of the current prompt, usable by
	// implementations that rank snippets by relevance.
	Query string
}

// Service is the memory boundary consumed by the relay orchestrator.
type Service interface {
	// LoadFullContext returns the agent's summarized memory. Implementations
	// should degrade gracefully; callers treat errors as empty memory.
	LoadFullContext(ctx context.Context, agentID string, opts LookupOptions) (*Context, error)

	// LogConversation records one prompt/response exchange. Failures are
	// logged by callers and never propagated.
	LogConversation(ctx context.Context, agentID, roomID, prompt, response string, metadata map[string]any) error
}
