package responder

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/BaSui01/relaychat/internal/pool"
	"github.com/BaSui01/relaychat/internal/tlsutil"
)

// Config configures the HTTP responder. BaseURL points at any
// OpenAI-compatible chat completions endpoint.
type Config struct {
	BaseURL     string        `json:"base_url" yaml:"base_url"`
	APIKey      string        `json:"api_key" yaml:"api_key"`
	Model       string        `json:"model" yaml:"model"`
	Timeout     time.Duration `json:"timeout" yaml:"timeout"`
	MaxTokens   int           `json:"max_tokens" yaml:"max_tokens"`
	Temperature float32       `json:"temperature" yaml:"temperature"`
}

// HTTPResponder generates replies through an OpenAI-compatible chat API. The
// per-agent Model overrides the configured default when set.
type HTTPResponder struct {
	cfg     Config
	client  *http.Client
	buffers *pool.BufferPool
	logger  *zap.Logger
}

// NewHTTPResponder creates a responder with sane defaults.
func NewHTTPResponder(cfg Config, logger *zap.Logger) *HTTPResponder {
	if cfg.Timeout == 0 {
		cfg.Timeout = 60 * time.Second
	}
	if cfg.MaxTokens == 0 {
		cfg.MaxTokens = 1024
	}
	if cfg.Temperature == 0 {
		cfg.Temperature = 0.8
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &HTTPResponder{
		cfg:     cfg,
		client:  tlsutil.SecureHTTPClient(cfg.Timeout),
		buffers: pool.NewBufferPool(),
		logger:  logger.With(zap.String("component", "http_responder")),
	}
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	MaxTokens   int           `json:"max_tokens,omitempty"`
	Temperature float32       `json:"temperature,omitempty"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
		Type    string `json:"type"`
	} `json:"error,omitempty"`
}

func (r *HTTPResponder) Generate(ctx context.Context, agent AgentConfig, prompt string, history []Turn,
	hints RoomHints, images []string, mem MemoryHints) (string, error) {

	messages := []chatMessage{{Role: "system", Content: r.systemPrompt(agent, hints, mem)}}
	for _, t := range history {
		role := "user"
		if t.Role == "assistant" || t.Role == "agent" {
			role = "assistant"
		}
		content := t.Content
		if t.Name != "" && role == "user" {
			content = t.Name + ": " + content
		}
		messages = append(messages, chatMessage{Role: role, Content: content})
	}
	userContent := prompt
	if len(images) > 0 {
		userContent += "\n\nImages shared in this room:\n" + strings.Join(images, "\n")
	}
	messages = append(messages, chatMessage{Role: "user", Content: userContent})

	return r.complete(ctx, agent, messages)
}

func (r *HTTPResponder) GenerateMeeting(ctx context.Context, agent AgentConfig, topic string,
	others []string, mem MemoryHints) (string, error) {

	var b strings.Builder
	b.WriteString("You are in a meeting about: ")
	b.WriteString(topic)
	b.WriteString(".")
	if len(others) > 0 {
		b.WriteString(" The other participants are ")
		b.WriteString(strings.Join(others, ", "))
		b.WriteString(".")
	}
	b.WriteString(" Contribute one focused point to the agenda. Answer in one or two sentences.")

	messages := []chatMessage{
		{Role: "system", Content: r.systemPrompt(agent, RoomHints{}, mem)},
		{Role: "user", Content: b.String()},
	}
	return r.complete(ctx, agent, messages)
}

// systemPrompt assembles the agent persona plus memory and room framing.
func (r *HTTPResponder) systemPrompt(agent AgentConfig, hints RoomHints, mem MemoryHints) string {
	var b strings.Builder
	if agent.SystemPrompt != "" {
		b.WriteString(agent.SystemPrompt)
	} else {
		fmt.Fprintf(&b, "You are %s.", agent.Name)
	}
	if hints.Messenger {
		b.WriteString(" You are chatting in a messenger")
		if hints.RoomName != "" {
			fmt.Fprintf(&b, " room named %q", hints.RoomName)
		}
		b.WriteString(". Keep replies short and conversational.")
	}
	if mem.Identity != "" {
		b.WriteString("\n\nAbout you:\n")
		b.WriteString(mem.Identity)
	}
	if mem.RecentConversations != "" {
		b.WriteString("\n\nThings you said recently:\n")
		b.WriteString(mem.RecentConversations)
	}
	return b.String()
}

func (r *HTTPResponder) complete(ctx context.Context, agent AgentConfig, messages []chatMessage) (string, error) {
	model := agent.Model
	if model == "" {
		model = r.cfg.Model
	}
	body := r.buffers.Get()
	defer r.buffers.Put(body)
	if err := json.NewEncoder(body).Encode(chatRequest{
		Model:       model,
		Messages:    messages,
		MaxTokens:   r.cfg.MaxTokens,
		Temperature: r.cfg.Temperature,
	}); err != nil {
		return "", fmt.Errorf("encode request: %w", err)
	}

	endpoint := strings.TrimRight(r.cfg.BaseURL, "/") + "/v1/chat/completions"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body.Bytes()))
	if err != nil {
		return "", fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if r.cfg.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+r.cfg.APIKey)
	}

	resp, err := r.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("chat completion request: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return "", fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		r.logger.Warn("chat completion failed",
			zap.String("agent", agent.Name),
			zap.Int("status", resp.StatusCode))
		return "", fmt.Errorf("chat completion: status=%d body=%s", resp.StatusCode, truncateBody(data))
	}

	var out chatResponse
	if err := json.Unmarshal(data, &out); err != nil {
		return "", fmt.Errorf("decode response: %w", err)
	}
	if out.Error != nil {
		return "", fmt.Errorf("chat completion: %s", out.Error.Message)
	}
	if len(out.Choices) == 0 {
		return "", fmt.Errorf("chat completion: no choices returned")
	}
	return out.Choices[0].Message.Content, nil
}

func truncateBody(b []byte) string {
	const max = 256
	if len(b) > max {
		b = b[:max]
	}
	return string(b)
}
