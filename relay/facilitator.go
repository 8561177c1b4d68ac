package relay

import (
	"context"

	"go.uber.org/zap"
)

// facilitatorRound runs one moderated round: the facilitator calls on an
// addressee, then the addressee answers. Both sub-turns draw on the shared
// budgets, so a round can stop between the call-out and the answer.
func (o *Orchestrator) facilitatorRound(ctx context.Context, s *session) (StopReason, bool) {
	fac := *s.facilitator
	round := s.state.Round

	target := o.selectAddressee(s)
	o.logger.Debug("facilitator call-out",
		zap.String("room_id", s.room.RoomID),
		zap.Int("round", round),
		zap.String("facilitator", fac.Name),
		zap.String("addressee", target.Name))

	in := PromptInput{
		Phase:           ClassifyPhase(round, true),
		Agent:           fac,
		Room:            s.room,
		History:         promptWindow(s.history, fac.ID, o.cfg.HistoryWindow),
		OtherNames:      otherNames(s.agents, fac.ID),
		FacilitatorName: fac.Name,
		StyleHint:       StyleHint(fac.ID, round, s.state.TotalTurns),
	}
	o.runTurn(ctx, s, fac, BuildCallOutPrompt(in, target.Name), map[string]any{"is_facilitator": true})
	o.pace(ctx, o.cfg.FacilitatorDelay)

	if ctx.Err() != nil || s.elapsed() >= s.maxTime {
		return StopTimeLimit, true
	}
	if s.state.TotalTurns >= s.maxTurns {
		return StopMessageLimit, true
	}

	ans := PromptInput{
		Phase:           PhaseDiscussion,
		Agent:           target,
		Room:            s.room,
		History:         promptWindow(s.history, target.ID, o.cfg.HistoryWindow),
		OtherNames:      otherNames(s.agents, target.ID),
		FacilitatorName: fac.Name,
		StyleHint:       StyleHint(target.ID, round, s.state.TotalTurns),
	}
	o.runTurn(ctx, s, target, BuildAnswerPrompt(ans, fac.Name), nil)
	o.pace(ctx, o.cfg.TurnDelay)
	return "", false
}

// selectAddressee picks who answers this round: the non-facilitator agent who
// has spoken the least so far, roster order breaking ties. Deterministic, and
// since the addressee's count rises with every answer, every participant is
// reached within len(others) rounds regardless of the starting round.
func (o *Orchestrator) selectAddressee(s *session) Agent {
	target := s.others[0]
	for _, a := range s.others[1:] {
		if s.state.SpeakCounts[a.ID] < s.state.SpeakCounts[target.ID] {
			target = a
		}
	}
	return target
}
