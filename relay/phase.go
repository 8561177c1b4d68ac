package relay

// Phase is the conversational stage of a single turn.
type Phase string

const (
	PhaseGreeting     Phase = "greeting"
	PhaseSmallTalk    Phase = "small_talk"
	PhaseMeetingStart Phase = "meeting_start"
	PhaseDiscussion   Phase = "discussion"
)

// ClassifyPhase maps a round index to a phase. It is a pure function: same
// inputs, same output, no hidden state.
//
// Round 0 is everyone's greeting and round 1 everyone's readiness check.
// Round 2 yields MeetingStart for exactly one announcer: the facilitator when
// one exists, otherwise the first agent in roster order. Every other agent
// skips straight from SmallTalk to Discussion; the single "let's begin" voice
// is deliberate, not an omission.
func ClassifyPhase(round int, isAnnouncer bool) Phase {
	switch {
	case round == 0:
		return PhaseGreeting
	case round == 1:
		return PhaseSmallTalk
	case round == 2 && isAnnouncer:
		return PhaseMeetingStart
	default:
		return PhaseDiscussion
	}
}

// isAnnouncer reports whether the agent at rosterIndex is the one that opens
// the substantive discussion: the facilitator if the room has one, otherwise
// the roster head.
func isAnnouncer(agent Agent, rosterIndex int, facilitatorID string) bool {
	if facilitatorID != "" {
		return agent.ID == facilitatorID
	}
	return rosterIndex == 0
}
