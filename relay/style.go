package relay

// styleMoves is the fixed catalog of conversational moves injected into
// Discussion-phase prompts. The hint is advisory text, never enforced.
var styleMoves = [...]string{
	"Rebut the previous point; name the concrete reason you disagree.",
	"Ground the discussion with one specific example.",
	"Ask one pointed question about the weakest part of the last argument.",
	"Reframe the problem from a different angle.",
	"Offer an analogy that clarifies the trade-off.",
	"Take the most promising idea so far one step further.",
	"Compress the core of the discussion into a single line.",
	"Poke holes in whatever the group currently agrees on.",
}

// StyleHint picks a conversational move for an ordinary Discussion turn.
//
// The pick is deliberately deterministic: a derived function of the agent's
// identity, the round index, and the turns taken so far. The hint is
// reproducible for a given transcript prefix yet changes turn to turn because
// its inputs change turn to turn. No RNG, no state.
func StyleHint(agentID string, round, totalTurns int) string {
	seed := round + totalTurns
	if agentID != "" {
		seed += int(agentID[0])
	}
	return styleMoves[seed%len(styleMoves)]
}
