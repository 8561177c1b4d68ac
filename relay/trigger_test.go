package relay

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/BaSui01/relaychat/responder"
	"github.com/BaSui01/relaychat/store"
)

func agentMessages(t *testing.T, st store.ChatStore, roomID string) []*store.Message {
	t.Helper()
	msgs, err := st.QueryMessages(context.Background(), store.MessageQuery{
		RoomID:     roomID,
		SenderType: store.SenderAgent,
	})
	require.NoError(t, err)
	return msgs
}

func TestDispatch_NoAgentsIsNoOp(t *testing.T) {
	st := store.NewMemoryStore()
	seedRoom(t, st, &store.Room{ID: "room-1"})
	o := newTestOrchestrator(t, st, &mockResponder{}, testConfig())

	o.dispatch(context.Background(), "room-1", userMessage("room-1", "hello?"), nil)
	assert.Empty(t, agentMessages(t, st, "room-1"))
}

func TestDispatch_SingleAgentReplies(t *testing.T) {
	st := store.NewMemoryStore()
	seedRoom(t, st, &store.Room{ID: "room-1"})
	o := newTestOrchestrator(t, st, &mockResponder{}, testConfig())

	o.dispatch(context.Background(), "room-1", userMessage("room-1", "hi Ava"), []Agent{testAva})

	msgs := agentMessages(t, st, "room-1")
	require.Len(t, msgs, 1)
	assert.Equal(t, "reply from Ava", msgs[0].Content)
	assert.Equal(t, "a1", msgs[0].SenderID)
}

func TestDispatch_DuplicateAgentsCollapseToSingle(t *testing.T) {
	st := store.NewMemoryStore()
	seedRoom(t, st, &store.Room{ID: "room-1"})
	resp := &mockResponder{}
	o := newTestOrchestrator(t, st, resp, testConfig())

	o.dispatch(context.Background(), "room-1", userMessage("room-1", "hello"), []Agent{testAva, testAva})

	// One direct reply, no relay rounds.
	assert.Equal(t, []string{"Ava"}, resp.callNames())
}

func TestDispatch_MentionSelectsAgent(t *testing.T) {
	st := store.NewMemoryStore()
	seedRoom(t, st, &store.Room{ID: "room-1"})
	resp := &mockResponder{}
	o := newTestOrchestrator(t, st, resp, testConfig())

	msg := userMessage("room-1", "what do you think?")
	msg.Metadata = map[string]any{"target_agent_name": "ben"}
	o.dispatch(context.Background(), "room-1", msg, []Agent{testAva, testBen})

	assert.Equal(t, []string{"Ben"}, resp.callNames())
}

func TestDispatch_MentionMatchingNobodyIsSilent(t *testing.T) {
	st := store.NewMemoryStore()
	seedRoom(t, st, &store.Room{ID: "room-1"})
	resp := &mockResponder{}
	o := newTestOrchestrator(t, st, resp, testConfig())

	msg := userMessage("room-1", "Zoe, are you there?")
	msg.Metadata = map[string]any{"target_agent_name": "Zoe"}
	o.dispatch(context.Background(), "room-1", msg, []Agent{testAva, testBen})

	assert.Empty(t, resp.callNames())
	assert.Empty(t, agentMessages(t, st, "room-1"))
}

func TestFilterMentioned(t *testing.T) {
	roster := []Agent{testAva, testBen}

	t.Run("no hint passes roster through", func(t *testing.T) {
		assert.Len(t, filterMentioned(roster, userMessage("r", "hi")), 2)
		assert.Len(t, filterMentioned(roster, nil), 2)
	})

	t.Run("substring matches either direction", func(t *testing.T) {
		msg := userMessage("r", "")
		msg.Metadata = map[string]any{"target_agent_name": "av"}
		got := filterMentioned(roster, msg)
		require.Len(t, got, 1)
		assert.Equal(t, "Ava", got[0].Name)

		msg.Metadata["target_agent_name"] = "Ava the great"
		got = filterMentioned(roster, msg)
		require.Len(t, got, 1)
		assert.Equal(t, "Ava", got[0].Name)
	})

	t.Run("keeps every match", func(t *testing.T) {
		wide := []Agent{
			{ID: "1", Name: "Ann"},
			{ID: "2", Name: "Annabel"},
			{ID: "3", Name: "Ben"},
		}
		msg := userMessage("r", "")
		msg.Metadata = map[string]any{"target_agent_name": "ann"}
		assert.Len(t, filterMentioned(wide, msg), 2)
	})
}

func TestDispatch_PanicPostsApologyAndClearsTyping(t *testing.T) {
	ts := &typingStore{MemoryStore: store.NewMemoryStore()}
	seedRoom(t, ts, &store.Room{ID: "room-1"})

	resp := &mockResponder{
		generateFn: func(context.Context, responder.AgentConfig, string) (string, error) {
			panic("responder blew up")
		},
	}
	o := newTestOrchestrator(t, ts, resp, testConfig())

	// SingleAgent recovers internally via the error path only for errors;
	// a panic unwinds to dispatch's recovery handler.
	o.dispatch(context.Background(), "room-1", userMessage("room-1", "go"), []Agent{testAva, testBen})

	msgs := agentMessages(t, ts, "room-1")
	require.Len(t, msgs, 1)
	assert.Equal(t, apologyMessage, msgs[0].Content)
	assert.Equal(t, true, msgs[0].Metadata["error"])

	transitions := ts.transitions()
	assert.Equal(t, "a1=false", transitions[len(transitions)-2])
	assert.Equal(t, "b1=false", transitions[len(transitions)-1])
}

func TestSingleAgent_MeetingMode(t *testing.T) {
	st := store.NewMemoryStore()
	seedRoom(t, st, &store.Room{
		ID:            "room-1",
		MeetingActive: true,
		MeetingTopic:  "quarterly review",
	})

	resp := &mockResponder{}
	o := newTestOrchestrator(t, st, resp, testConfig())

	err := o.SingleAgent(context.Background(), "room-1", userMessage("room-1", "thoughts?"), testAva)
	require.NoError(t, err)

	require.Len(t, resp.calls, 1)
	assert.Equal(t, "meeting:quarterly review", resp.calls[0].Prompt)

	msgs := agentMessages(t, st, "room-1")
	require.Len(t, msgs, 1)
	assert.Equal(t, "meeting reply from Ava", msgs[0].Content)
}

func TestSingleAgent_FailurePostsApology(t *testing.T) {
	st := store.NewMemoryStore()
	seedRoom(t, st, &store.Room{ID: "room-1"})

	resp := &mockResponder{
		generateFn: func(context.Context, responder.AgentConfig, string) (string, error) {
			return "", errors.New("provider down")
		},
	}
	o := newTestOrchestrator(t, st, resp, testConfig())

	err := o.SingleAgent(context.Background(), "room-1", userMessage("room-1", "hi"), testAva)
	assert.Error(t, err)

	msgs := agentMessages(t, st, "room-1")
	require.Len(t, msgs, 1)
	assert.Equal(t, apologyMessage, msgs[0].Content)
	assert.Equal(t, true, msgs[0].Metadata["error"])
}

func TestTrigger_RunsInBackground(t *testing.T) {
	st := store.NewMemoryStore()
	seedRoom(t, st, &store.Room{ID: "room-1"})

	done := make(chan struct{})
	resp := &mockResponder{
		generateFn: func(_ context.Context, a responder.AgentConfig, _ string) (string, error) {
			close(done)
			return "reply from " + a.Name, nil
		},
	}
	o := newTestOrchestrator(t, st, resp, testConfig())

	o.Trigger("room-1", userMessage("room-1", "hello"), []Agent{testAva})
	<-done
}
