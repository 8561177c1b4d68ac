package relay

import (
	"time"
)

// Agent is one conversational participant in a room. Agents are supplied by
// the store at session start and never mutated by the orchestrator.
type Agent struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	Provider     string `json:"provider,omitempty"`
	Model        string `json:"model,omitempty"`
	SystemPrompt string `json:"system_prompt,omitempty"`
}

// RoomContext is the immutable per-session snapshot of the room the relay
// runs in. Meeting status is re-read from the store every round; this struct
// only captures what was true when the session started.
type RoomContext struct {
	RoomID        string `json:"room_id"`
	RoomName      string `json:"room_name,omitempty"`
	RoomType      string `json:"room_type,omitempty"`
	MeetingActive bool   `json:"meeting_active"`
	MeetingTopic  string `json:"meeting_topic,omitempty"`
	FacilitatorID string `json:"facilitator_id,omitempty"`
}

// Role marks who authored a history entry.
type Role string

const (
	RoleUser  Role = "user"
	RoleAgent Role = "agent"
)

// HistoryEntry is one append-only record of the session's working memory.
// Entries are never mutated or reordered; append order is chronological order.
type HistoryEntry struct {
	Role    Role   `json:"role"`
	Name    string `json:"name"`
	AgentID string `json:"agent_id,omitempty"`
	Content string `json:"content"`
}

// RoundState holds the transient counters of one relay invocation.
type RoundState struct {
	Round       int            `json:"round"`
	StartedAt   time.Time      `json:"started_at"`
	TotalTurns  int            `json:"total_turns"`
	SpeakCounts map[string]int `json:"speak_counts"`
}

// StopReason explains why a relay session ended.
type StopReason string

const (
	StopTimeLimit      StopReason = "time_limit"
	StopRoundLimit     StopReason = "round_limit"
	StopMessageLimit   StopReason = "message_limit"
	StopMeetingEnded   StopReason = "meeting_ended"
	StopMeetingExpired StopReason = "meeting_expired"
	StopUserMessage    StopReason = "user_message"
)

// Result is the outcome of one relay session.
type Result struct {
	RoomID     string     `json:"room_id"`
	StopReason StopReason `json:"stop_reason"`
	Rounds     int        `json:"rounds"`
	TotalTurns int        `json:"total_turns"`
	StartedAt  time.Time  `json:"started_at"`
	EndedAt    time.Time  `json:"ended_at"`
}

// Config tunes the relay loop. The facilitator budgets are intentionally 4x
// the free-form budgets: a moderated meeting is a longer, structured session.
type Config struct {
	// Round and time budgets when a facilitator is configured.
	FacilitatorMaxRounds int           `json:"facilitator_max_rounds"`
	FacilitatorMaxTime   time.Duration `json:"facilitator_max_time"`

	// Round and time budgets for free-form relays.
	MaxRounds int           `json:"max_rounds"`
	MaxTime   time.Duration `json:"max_time"`

	// TurnDelay is the pacing delay applied after every ordinary turn
	// attempt. FacilitatorDelay separates the facilitator's call-out from
	// the addressee's answer. Both are presentation concerns.
	TurnDelay        time.Duration `json:"turn_delay"`
	FacilitatorDelay time.Duration `json:"facilitator_delay"`

	// HistorySeedLimit bounds how many persisted messages seed the session
	// history. HistoryWindow bounds the prompt context window (last N).
	HistorySeedLimit int `json:"history_seed_limit"`
	HistoryWindow    int `json:"history_window"`

	// ResponderTimeout caps a single responder call. Zero disables the cap
	// and leaves termination to the loop-level time budget.
	ResponderTimeout time.Duration `json:"responder_timeout"`
}

// DefaultConfig returns the production defaults.
func DefaultConfig() Config {
	return Config{
		FacilitatorMaxRounds: 20,
		FacilitatorMaxTime:   10 * time.Minute,
		MaxRounds:            5,
		MaxTime:              3 * time.Minute,
		TurnDelay:            2500 * time.Millisecond,
		FacilitatorDelay:     1500 * time.Millisecond,
		HistorySeedLimit:     20,
		HistoryWindow:        8,
	}
}

func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if c.FacilitatorMaxRounds <= 0 {
		c.FacilitatorMaxRounds = d.FacilitatorMaxRounds
	}
	if c.FacilitatorMaxTime <= 0 {
		c.FacilitatorMaxTime = d.FacilitatorMaxTime
	}
	if c.MaxRounds <= 0 {
		c.MaxRounds = d.MaxRounds
	}
	if c.MaxTime <= 0 {
		c.MaxTime = d.MaxTime
	}
	if c.HistorySeedLimit <= 0 {
		c.HistorySeedLimit = d.HistorySeedLimit
	}
	if c.HistoryWindow <= 0 {
		c.HistoryWindow = d.HistoryWindow
	}
	return c
}
