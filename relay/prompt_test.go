package relay

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func promptFixture(phase Phase) PromptInput {
	return PromptInput{
		Phase: phase,
		Agent: Agent{ID: "a1", Name: "Ava"},
		Room: RoomContext{
			RoomID:       "room-1",
			RoomName:     "Design Sync",
			MeetingTopic: "caching strategy",
		},
		OtherNames: []string{"Ben", "Cara"},
	}
}

func TestBuildPrompt_Greeting(t *testing.T) {
	got := BuildPrompt(promptFixture(PhaseGreeting))
	assert.Contains(t, got, "Design Sync")
	assert.Contains(t, got, "Ben, Cara")
	assert.Contains(t, got, "You are Ava.")
	assert.Contains(t, got, "Greet everyone")
}

func TestBuildPrompt_SmallTalkIncludesHistory(t *testing.T) {
	in := promptFixture(PhaseSmallTalk)
	in.History = []HistoryEntry{
		{Role: RoleAgent, Name: "Ben", AgentID: "b1", Content: "Hello all"},
	}
	got := BuildPrompt(in)
	assert.Contains(t, got, "[Ben]: Hello all")
	assert.Contains(t, got, "ready to begin")
}

func TestBuildPrompt_MeetingStartAnnounces(t *testing.T) {
	got := BuildPrompt(promptFixture(PhaseMeetingStart))
	assert.Contains(t, got, "discussion starts now")
}

func TestBuildPrompt_DiscussionCarriesRulesAndStyle(t *testing.T) {
	in := promptFixture(PhaseDiscussion)
	in.StyleHint = styleMoves[0]
	in.FacilitatorName = "Cara"
	got := BuildPrompt(in)
	assert.Contains(t, got, discussionRules)
	assert.Contains(t, got, styleMoves[0])
	assert.Contains(t, got, "(Facilitator: Cara)")
}

func TestBuildPrompt_FreeDiscussionTopicOmitted(t *testing.T) {
	in := promptFixture(PhaseDiscussion)
	in.Room.MeetingTopic = FreeDiscussionTopic
	got := BuildPrompt(in)
	assert.NotContains(t, got, "Topic:")

	in.Room.MeetingTopic = "caching strategy"
	assert.Contains(t, BuildPrompt(in), `Topic: "caching strategy"`)
}

func TestBuildCallOutPrompt(t *testing.T) {
	t.Run("meeting start announces and asks", func(t *testing.T) {
		got := BuildCallOutPrompt(promptFixture(PhaseMeetingStart), "Ben")
		assert.Contains(t, got, "discussion starts now")
		assert.Contains(t, got, "ask Ben")
		assert.Contains(t, got, "facilitator")
	})

	t.Run("later rounds only ask", func(t *testing.T) {
		got := BuildCallOutPrompt(promptFixture(PhaseDiscussion), "Cara")
		assert.NotContains(t, got, "discussion starts now")
		assert.Contains(t, got, "Ask Cara")
		assert.Contains(t, got, "Do not give your own opinion")
	})
}

func TestBuildAnswerPrompt(t *testing.T) {
	got := BuildAnswerPrompt(promptFixture(PhaseDiscussion), "Cara")
	assert.Contains(t, got, "The facilitator Cara just asked for your view")
	assert.Contains(t, got, discussionRules)
}

func TestPromptWindow(t *testing.T) {
	history := []HistoryEntry{
		{Role: RoleUser, Name: "User", Content: "m0"},
		{Role: RoleAgent, Name: "Ava", AgentID: "a1", Content: "m1"},
		{Role: RoleAgent, Name: "Ben", AgentID: "b1", Content: "m2"},
		{Role: RoleAgent, Name: "Ava", AgentID: "a1", Content: "m3"},
		{Role: RoleAgent, Name: "Ben", AgentID: "b1", Content: "m4"},
	}

	t.Run("filters own entries", func(t *testing.T) {
		got := promptWindow(history, "a1", 8)
		require.Len(t, got, 3)
		for _, h := range got {
			assert.NotEqual(t, "a1", h.AgentID)
		}
	})

	t.Run("caps at window size", func(t *testing.T) {
		got := promptWindow(history, "", 2)
		require.Len(t, got, 2)
		assert.Equal(t, "m3", got[0].Content)
		assert.Equal(t, "m4", got[1].Content)
	})

	t.Run("zero window returns all", func(t *testing.T) {
		assert.Len(t, promptWindow(history, "", 0), 5)
	})
}

func TestWriteHistory_Format(t *testing.T) {
	var b strings.Builder
	writeHistory(&b, []HistoryEntry{
		{Name: "Ava", Content: "first"},
		{Name: "Ben", Content: "second"},
	})
	assert.Equal(t, "[Ava]: first\n\n[Ben]: second\n\n---\n", b.String())
}
