package memory

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// RedisService keeps agent memory in Redis: one capped list of exchanges per
// agent plus a per-agent identity string. It survives process restarts and is
// shared across instances.
type RedisService struct {
	client *redis.Client
	logger *zap.Logger
}

// NewRedisService wraps an existing Redis client.
func NewRedisService(client *redis.Client, logger *zap.Logger) *RedisService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RedisService{
		client: client,
		logger: logger.With(zap.String("component", "redis_memory")),
	}
}

func logsKey(agentID string) string { return "agentmem:" + agentID + ":logs" }

func identityKey(agentID string) string { return "agentmem:" + agentID + ":identity" }

type redisExchange struct {
	RoomID   string    `json:"room_id"`
	Prompt   string    `json:"prompt"`
	Response string    `json:"response"`
	At       time.Time `json:"at"`
}

// SetIdentity stores the agent's identity summary.
func (s *RedisService) SetIdentity(ctx context.Context, agentID, summary string) error {
	return s.client.Set(ctx, identityKey(agentID), summary, 0).Err()
}

func (s *RedisService) LoadFullContext(ctx context.Context, agentID string, opts LookupOptions) (*Context, error) {
	out := &Context{}

	identity, err := s.client.Get(ctx, identityKey(agentID)).Result()
	if err != nil && !errors.Is(err, redis.Nil) {
		return nil, err
	}
	out.IdentitySummary = identity

	// Newest first; over-fetch to survive room filtering.
	entries, err := s.client.LRange(ctx, logsKey(agentID), 0, int64(maxLogsPerAgent-1)).Result()
	if err != nil {
		return nil, err
	}
	for _, raw := range entries {
		if len(out.RecentSnippets) >= snippetCount {
			break
		}
		var ex redisExchange
		if err := json.Unmarshal([]byte(raw), &ex); err != nil {
			s.logger.Warn("decode memory entry failed",
				zap.String("agent_id", agentID), zap.Error(err))
			continue
		}
		if opts.RoomID != "" && ex.RoomID != opts.RoomID {
			continue
		}
		out.RecentSnippets = append(out.RecentSnippets, truncate(ex.Response, snippetMaxLen))
	}
	return out, nil
}

func (s *RedisService) LogConversation(ctx context.Context, agentID, roomID, prompt, response string, _ map[string]any) error {
	data, err := json.Marshal(redisExchange{
		RoomID:   roomID,
		Prompt:   prompt,
		Response: response,
		At:       time.Now(),
	})
	if err != nil {
		return fmt.Errorf("encode memory entry: %w", err)
	}
	pipe := s.client.TxPipeline()
	pipe.LPush(ctx, logsKey(agentID), data)
	pipe.LTrim(ctx, logsKey(agentID), 0, int64(maxLogsPerAgent-1))
	_, err = pipe.Exec(ctx)
	return err
}
