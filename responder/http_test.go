package responder

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestResponder(t *testing.T, handler http.HandlerFunc) *HTTPResponder {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewHTTPResponder(Config{
		BaseURL: srv.URL,
		APIKey:  "test-key",
		Model:   "default-model",
	}, zap.NewNop())
}

func completionOK(content string) []byte {
	b, _ := json.Marshal(map[string]any{
		"choices": []map[string]any{
			{"message": map[string]any{"role": "assistant", "content": content}},
		},
	})
	return b
}

func TestHTTPResponder_Generate(t *testing.T) {
	var got chatRequest
	r := newTestResponder(t, func(w http.ResponseWriter, req *http.Request) {
		assert.Equal(t, "/v1/chat/completions", req.URL.Path)
		assert.Equal(t, "Bearer test-key", req.Header.Get("Authorization"))
		require.NoError(t, json.NewDecoder(req.Body).Decode(&got))
		w.Write(completionOK("hello there"))
	})

	agent := AgentConfig{ID: "a1", Name: "Ava", SystemPrompt: "You are Ava, terse."}
	out, err := r.Generate(context.Background(), agent, "say hi", nil,
		RoomHints{RoomName: "Lounge", Messenger: true}, nil, MemoryHints{Identity: "curious"})
	require.NoError(t, err)
	assert.Equal(t, "hello there", out)

	assert.Equal(t, "default-model", got.Model)
	require.NotEmpty(t, got.Messages)
	sys := got.Messages[0]
	assert.Equal(t, "system", sys.Role)
	assert.Contains(t, sys.Content, "You are Ava, terse.")
	assert.Contains(t, sys.Content, "Lounge")
	assert.Contains(t, sys.Content, "curious")
	last := got.Messages[len(got.Messages)-1]
	assert.Equal(t, "user", last.Role)
	assert.Equal(t, "say hi", last.Content)
}

func TestHTTPResponder_AgentModelOverride(t *testing.T) {
	var got chatRequest
	r := newTestResponder(t, func(w http.ResponseWriter, req *http.Request) {
		require.NoError(t, json.NewDecoder(req.Body).Decode(&got))
		w.Write(completionOK("ok"))
	})

	agent := AgentConfig{ID: "a1", Name: "Ava", Model: "special-model"}
	_, err := r.Generate(context.Background(), agent, "hi", nil, RoomHints{}, nil, MemoryHints{})
	require.NoError(t, err)
	assert.Equal(t, "special-model", got.Model)
}

func TestHTTPResponder_ImagesAppended(t *testing.T) {
	var got chatRequest
	r := newTestResponder(t, func(w http.ResponseWriter, req *http.Request) {
		require.NoError(t, json.NewDecoder(req.Body).Decode(&got))
		w.Write(completionOK("ok"))
	})

	_, err := r.Generate(context.Background(), AgentConfig{Name: "Ava"}, "look", nil,
		RoomHints{}, []string{"https://img/1.png"}, MemoryHints{})
	require.NoError(t, err)
	last := got.Messages[len(got.Messages)-1]
	assert.Contains(t, last.Content, "https://img/1.png")
}

func TestHTTPResponder_GenerateMeeting(t *testing.T) {
	var got chatRequest
	r := newTestResponder(t, func(w http.ResponseWriter, req *http.Request) {
		require.NoError(t, json.NewDecoder(req.Body).Decode(&got))
		w.Write(completionOK("my point"))
	})

	out, err := r.GenerateMeeting(context.Background(), AgentConfig{Name: "Ava"},
		"sprint goals", []string{"Ben", "Cara"}, MemoryHints{})
	require.NoError(t, err)
	assert.Equal(t, "my point", out)

	last := got.Messages[len(got.Messages)-1]
	assert.Contains(t, last.Content, "sprint goals")
	assert.Contains(t, last.Content, "Ben, Cara")
}

func TestHTTPResponder_ErrorStatus(t *testing.T) {
	r := newTestResponder(t, func(w http.ResponseWriter, req *http.Request) {
		http.Error(w, `{"error":{"message":"rate limited"}}`, http.StatusTooManyRequests)
	})

	_, err := r.Generate(context.Background(), AgentConfig{Name: "Ava"}, "hi", nil,
		RoomHints{}, nil, MemoryHints{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status=429")
}

func TestHTTPResponder_NoChoices(t *testing.T) {
	r := newTestResponder(t, func(w http.ResponseWriter, req *http.Request) {
		w.Write([]byte(`{"choices":[]}`))
	})

	_, err := r.Generate(context.Background(), AgentConfig{Name: "Ava"}, "hi", nil,
		RoomHints{}, nil, MemoryHints{})
	assert.Error(t, err)
}

func TestHTTPResponder_DefaultSystemPrompt(t *testing.T) {
	var got chatRequest
	r := newTestResponder(t, func(w http.ResponseWriter, req *http.Request) {
		require.NoError(t, json.NewDecoder(req.Body).Decode(&got))
		w.Write(completionOK("ok"))
	})

	_, err := r.Generate(context.Background(), AgentConfig{Name: "Ben"}, "hi", nil,
		RoomHints{}, nil, MemoryHints{})
	require.NoError(t, err)
	assert.Contains(t, got.Messages[0].Content, "You are Ben.")
}
