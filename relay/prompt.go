package relay

import (
	"strings"
)

// FreeDiscussionTopic is the sentinel topic meaning "no fixed agenda". A room
// whose topic equals the sentinel gets no topic line in its prompts.
const FreeDiscussionTopic = "free discussion"

// PromptInput carries everything the prompt builder needs for one turn. The
// history must already be windowed and filtered for the acting agent.
type PromptInput struct {
	Phase           Phase
	Agent           Agent
	Room            RoomContext
	History         []HistoryEntry
	OtherNames      []string
	FacilitatorName string
	StyleHint       string
}

// discussionRules are the standing constraints for substantive turns. Brevity
// and non-repetition keep a machine-generated transcript readable.
const discussionRules = "Do not restate points already made. No empty agreement filler. " +
	"Answer in one or two sentences, in a single language."

// BuildPrompt assembles the instruction text for an ordinary relay turn.
func BuildPrompt(in PromptInput) string {
	var b strings.Builder

	switch in.Phase {
	case PhaseGreeting:
		b.WriteString("You are joining the room")
		if in.Room.RoomName != "" {
			b.WriteString(" \"" + in.Room.RoomName + "\"")
		}
		b.WriteString(".\n")
		if len(in.OtherNames) > 0 {
			b.WriteString("Other participants: " + strings.Join(in.OtherNames, ", ") + ".\n")
		}
		b.WriteString(identityLine(in))
		b.WriteString(topicLine(in.Room))
		b.WriteString("\nGreet everyone in one short sentence.")

	case PhaseSmallTalk:
		writeHistory(&b, in.History)
		b.WriteString(identityLine(in))
		b.WriteString(topicLine(in.Room))
		b.WriteString("\nAcknowledge the greetings and say you are ready to begin. " +
			"One sentence, no off-topic small talk.")

	case PhaseMeetingStart:
		writeHistory(&b, in.History)
		b.WriteString(identityLine(in))
		b.WriteString(topicLine(in.Room))
		b.WriteString("\nAnnounce that the discussion starts now and open with your first point.")

	default: // PhaseDiscussion
		writeHistory(&b, in.History)
		b.WriteString(identityLine(in))
		if in.FacilitatorName != "" && in.FacilitatorName != in.Agent.Name {
			b.WriteString("(Facilitator: " + in.FacilitatorName + ")\n")
		}
		b.WriteString(topicLine(in.Room))
		b.WriteString("\n" + discussionRules)
		if in.StyleHint != "" {
			b.WriteString("\n" + in.StyleHint)
		}
	}

	return b.String()
}

// BuildCallOutPrompt assembles the facilitator's turn: explicitly address
// targetName and ask for their view. At MeetingStart the facilitator also
// opens the discussion.
func BuildCallOutPrompt(in PromptInput, targetName string) string {
	var b strings.Builder
	writeHistory(&b, in.History)
	b.WriteString("You are " + in.Agent.Name + ", the facilitator of this discussion.\n")
	b.WriteString(topicLine(in.Room))
	if in.Phase == PhaseMeetingStart {
		b.WriteString("\nAnnounce that the discussion starts now. Then ask " + targetName +
			" directly for their view, addressing them by name.")
	} else {
		b.WriteString("\nAsk " + targetName + " directly for their view on the current point, " +
			"addressing them by name. Do not give your own opinion.")
	}
	b.WriteString("\n" + discussionRules)
	return b.String()
}

// BuildAnswerPrompt assembles the turn of an agent the facilitator just
// addressed.
func BuildAnswerPrompt(in PromptInput, facilitatorName string) string {
	var b strings.Builder
	writeHistory(&b, in.History)
	b.WriteString(identityLine(in))
	b.WriteString("The facilitator " + facilitatorName + " just asked for your view. " +
		"Answer the question directly.\n")
	b.WriteString(topicLine(in.Room))
	b.WriteString("\n" + discussionRules)
	return b.String()
}

func identityLine(in PromptInput) string {
	return "You are " + in.Agent.Name + ".\n"
}

func topicLine(room RoomContext) string {
	if room.MeetingTopic == "" || room.MeetingTopic == FreeDiscussionTopic {
		return ""
	}
	return "Topic: \"" + room.MeetingTopic + "\"\n"
}

func writeHistory(b *strings.Builder, history []HistoryEntry) {
	if len(history) == 0 {
		return
	}
	for i, h := range history {
		if i > 0 {
			b.WriteString("\n\n")
		}
		b.WriteString("[" + h.Name + "]: " + h.Content)
	}
	b.WriteString("\n\n---\n")
}

// promptWindow returns the last n history entries after removing the acting
// agent's own entries. An agent never sees itself as conversational partner
// context.
func promptWindow(history []HistoryEntry, agentID string, n int) []HistoryEntry {
	filtered := make([]HistoryEntry, 0, len(history))
	for _, h := range history {
		if agentID != "" && h.AgentID == agentID {
			continue
		}
		filtered = append(filtered, h)
	}
	return lastEntries(filtered, n)
}

func lastEntries(history []HistoryEntry, n int) []HistoryEntry {
	if n <= 0 || len(history) <= n {
		return history
	}
	return history[len(history)-n:]
}
