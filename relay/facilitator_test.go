package relay

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/BaSui01/relaychat/store"
)

var (
	testFiona = Agent{ID: "f1", Name: "Fiona"}
	testXavi  = Agent{ID: "x1", Name: "Xavi"}
	testYuna  = Agent{ID: "y1", Name: "Yuna"}
)

func facilitatedRoom() *store.Room {
	return &store.Room{
		ID:            "room-1",
		Name:          "Planning",
		MeetingActive: true,
		MeetingTopic:  "sprint goals",
		FacilitatorID: "f1",
	}
}

func TestRelay_FacilitatedProtocol(t *testing.T) {
	st := store.NewMemoryStore()
	seedRoom(t, st, facilitatedRoom())

	resp := &mockResponder{}
	cfg := testConfig()
	cfg.FacilitatorMaxRounds = 4
	o := newTestOrchestrator(t, st, resp, cfg)

	res, err := o.Relay(context.Background(), "room-1", nil, []Agent{testFiona, testXavi, testYuna})
	require.NoError(t, err)

	assert.Equal(t, StopRoundLimit, res.StopReason)
	assert.Equal(t, 4, res.Rounds)
	// Rounds 0 and 1 are free rounds with all three agents; rounds 2 and 3
	// run the call-and-answer protocol: the facilitator addresses one agent,
	// the addressee answers, rotating through the roster.
	assert.Equal(t, []string{
		"Fiona", "Xavi", "Yuna",
		"Fiona", "Xavi", "Yuna",
		"Fiona", "Xavi",
		"Fiona", "Yuna",
	}, resp.callNames())

	// The round-2 call-out doubles as the meeting opener.
	assert.Contains(t, resp.calls[6].Prompt, "discussion starts now")
	assert.Contains(t, resp.calls[6].Prompt, "ask Xavi")
	// The round-3 call-out only asks.
	assert.NotContains(t, resp.calls[8].Prompt, "discussion starts now")
	assert.Contains(t, resp.calls[8].Prompt, "Ask Yuna")

	// The addressee answers the facilitator by name.
	assert.Contains(t, resp.calls[7].Prompt, "The facilitator Fiona just asked for your view")
}

func TestRelay_FacilitatorCallOutMetadata(t *testing.T) {
	st := store.NewMemoryStore()
	seedRoom(t, st, facilitatedRoom())

	cfg := testConfig()
	cfg.FacilitatorMaxRounds = 3
	o := newTestOrchestrator(t, st, &mockResponder{}, cfg)

	_, err := o.Relay(context.Background(), "room-1", nil, []Agent{testFiona, testXavi, testYuna})
	require.NoError(t, err)

	msgs, err := st.QueryMessages(context.Background(), store.MessageQuery{
		RoomID:     "room-1",
		SenderType: store.SenderAgent,
	})
	require.NoError(t, err)

	var facilitatorTurns int
	for _, m := range msgs {
		if m.Metadata["is_facilitator"] == true {
			facilitatorTurns++
			assert.Equal(t, "f1", m.SenderID)
		}
	}
	assert.Equal(t, 1, facilitatorTurns)
}

func TestRelay_FacilitatorUsesLongerBudgets(t *testing.T) {
	st := store.NewMemoryStore()
	seedRoom(t, st, facilitatedRoom())

	cfg := testConfig()
	cfg.MaxRounds = 1 // would stop a free relay immediately
	cfg.FacilitatorMaxRounds = 3
	o := newTestOrchestrator(t, st, &mockResponder{}, cfg)

	res, err := o.Relay(context.Background(), "room-1", nil, []Agent{testFiona, testXavi})
	require.NoError(t, err)
	assert.Equal(t, 3, res.Rounds)
}

func TestSelectAddressee_PicksLeastSpoken(t *testing.T) {
	o := newTestOrchestrator(t, store.NewMemoryStore(), &mockResponder{}, testConfig())

	s := sessionFixture(testFiona, testXavi, testYuna)
	s.facilitator = &s.agents[0]
	s.others = []Agent{testXavi, testYuna}
	s.state.SpeakCounts = map[string]int{"x1": 3, "y1": 1}

	assert.Equal(t, "y1", o.selectAddressee(s).ID)
}

func TestSelectAddressee_TieBreaksByRosterOrder(t *testing.T) {
	o := newTestOrchestrator(t, store.NewMemoryStore(), &mockResponder{}, testConfig())

	s := sessionFixture(testFiona, testXavi, testYuna)
	s.facilitator = &s.agents[0]
	s.others = []Agent{testXavi, testYuna}
	s.state.SpeakCounts = map[string]int{"x1": 5, "y1": 5}

	assert.Equal(t, "x1", o.selectAddressee(s).ID)

	// Each answer raises the addressee's count, so selection alternates.
	s.state.SpeakCounts["x1"]++
	assert.Equal(t, "y1", o.selectAddressee(s).ID)
	s.state.SpeakCounts["y1"]++
	assert.Equal(t, "x1", o.selectAddressee(s).ID)
}

func TestRelay_ResumedFacilitatedSessionRotatesAddressees(t *testing.T) {
	st := store.NewMemoryStore()
	seedRoom(t, st, facilitatedRoom())
	require.NoError(t, st.InsertMessage(context.Background(), &store.Message{
		RoomID:       "room-1",
		SenderType:   store.SenderAgent,
		SenderID:     "x1",
		Type:         store.MessageText,
		Content:      "picking up where we left off",
		IsAIResponse: true,
	}))

	resp := &mockResponder{}
	cfg := testConfig()
	cfg.FacilitatorMaxRounds = 7
	o := newTestOrchestrator(t, st, resp, cfg)

	res, err := o.Relay(context.Background(), "room-1", nil, []Agent{testFiona, testXavi, testYuna})
	require.NoError(t, err)

	// Prior agent history resumes the session mid-discussion with fresh
	// speak counts. Every resumed round is a call-and-answer pair, and the
	// addressee must still rotate over the whole roster.
	assert.Equal(t, StopRoundLimit, res.StopReason)
	assert.Equal(t, 4, res.Rounds)
	assert.Equal(t, []string{
		"Fiona", "Xavi",
		"Fiona", "Yuna",
		"Fiona", "Xavi",
		"Fiona", "Yuna",
	}, resp.callNames())
}

func TestFacilitatorRound_BudgetBetweenSubTurns(t *testing.T) {
	st := store.NewMemoryStore()
	seedRoom(t, st, facilitatedRoom())

	cfg := testConfig()
	o := newTestOrchestrator(t, st, &mockResponder{}, cfg)

	s, err := o.newSession(context.Background(), "room-1", nil, []Agent{testFiona, testXavi})
	require.NoError(t, err)
	s.state.Round = 2
	// One slot left: the call-out consumes it and the answer never runs.
	s.maxTurns = s.state.TotalTurns + 1
	s.maxTime = time.Minute

	reason, stop := o.facilitatorRound(context.Background(), s)
	assert.True(t, stop)
	assert.Equal(t, StopMessageLimit, reason)
}
