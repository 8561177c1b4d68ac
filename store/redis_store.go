package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// RedisStore keeps chat state in Redis. Messages live as JSON values indexed
// per room by a sorted set scored on creation time, so range queries map
// directly onto ZRANGEBYSCORE.
type RedisStore struct {
	client *redis.Client
	logger *zap.Logger
}

// RedisConfig configures the Redis connection.
type RedisConfig struct {
	Addr     string `json:"addr" yaml:"addr"`
	Password string `json:"password" yaml:"password"`
	DB       int    `json:"db" yaml:"db"`
}

// NewRedisStore connects to Redis and verifies the connection.
func NewRedisStore(cfg RedisConfig, logger *zap.Logger) (*RedisStore, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("connect redis at %s: %w", cfg.Addr, err)
	}
	return &RedisStore{
		client: client,
		logger: logger.With(zap.String("component", "redis_store")),
	}, nil
}

// NewRedisStoreFromClient wraps an existing client, used by tests.
func NewRedisStoreFromClient(client *redis.Client, logger *zap.Logger) *RedisStore {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RedisStore{
		client: client,
		logger: logger.With(zap.String("component", "redis_store")),
	}
}

// Client exposes the underlying connection for subsystems that share it.
func (s *RedisStore) Client() *redis.Client { return s.client }

func msgKey(id string) string { return "chat:msg:" + id }

func roomKey(roomID string) string { return "chat:room:" + roomID }

func roomMsgsKey(roomID string) string { return "chat:room:" + roomID + ":msgs" }

func roomMembersKey(roomID string) string { return "chat:room:" + roomID + ":participants" }

func participantField(p *Participant) string {
	if p.AgentID != "" {
		return "agent:" + p.AgentID
	}
	return "user:" + p.UserID
}

func (s *RedisStore) InsertMessage(ctx context.Context, msg *Message) error {
	if msg == nil || msg.RoomID == "" {
		return ErrInvalidInput
	}
	if msg.ID == "" {
		msg.ID = uuid.NewString()
	}
	if msg.CreatedAt.IsZero() {
		msg.CreatedAt = time.Now()
	}
	if msg.Type == "" {
		msg.Type = MessageText
	}

	data, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("encode message: %w", err)
	}

	pipe := s.client.TxPipeline()
	pipe.Set(ctx, msgKey(msg.ID), data, 0)
	pipe.ZAdd(ctx, roomMsgsKey(msg.RoomID), redis.Z{
		Score:  float64(msg.CreatedAt.UnixNano()),
		Member: msg.ID,
	})
	_, err = pipe.Exec(ctx)
	return err
}

func (s *RedisStore) QueryMessages(ctx context.Context, q MessageQuery) ([]*Message, error) {
	if q.RoomID == "" {
		return nil, ErrInvalidInput
	}

	min := "-inf"
	if !q.After.IsZero() {
		min = fmt.Sprintf("(%d", q.After.UnixNano())
	}
	rng := &redis.ZRangeBy{Min: min, Max: "+inf"}

	var ids []string
	var err error
	if q.Descending {
		ids, err = s.client.ZRevRangeByScore(ctx, roomMsgsKey(q.RoomID), rng).Result()
	} else {
		ids, err = s.client.ZRangeByScore(ctx, roomMsgsKey(q.RoomID), rng).Result()
	}
	if err != nil {
		return nil, err
	}

	var out []*Message
	for _, id := range ids {
		data, err := s.client.Get(ctx, msgKey(id)).Result()
		if errors.Is(err, redis.Nil) {
			continue
		}
		if err != nil {
			return nil, err
		}
		var msg Message
		if err := json.Unmarshal([]byte(data), &msg); err != nil {
			s.logger.Warn("decode message failed", zap.String("message_id", id), zap.Error(err))
			continue
		}
		if q.SenderType != "" && msg.SenderType != q.SenderType {
			continue
		}
		if q.Type != "" && msg.Type != q.Type {
			continue
		}
		out = append(out, &msg)
		if q.Limit > 0 && len(out) >= q.Limit {
			break
		}
	}
	return out, nil
}

func (s *RedisStore) UpsertRoom(ctx context.Context, room *Room) error {
	if room == nil || room.ID == "" {
		return ErrInvalidInput
	}
	data, err := json.Marshal(room)
	if err != nil {
		return fmt.Errorf("encode room: %w", err)
	}
	return s.client.Set(ctx, roomKey(room.ID), data, 0).Err()
}

func (s *RedisStore) GetRoom(ctx context.Context, roomID string) (*Room, error) {
	data, err := s.client.Get(ctx, roomKey(roomID)).Result()
	if errors.Is(err, redis.Nil) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	var room Room
	if err := json.Unmarshal([]byte(data), &room); err != nil {
		return nil, fmt.Errorf("decode room: %w", err)
	}
	return &room, nil
}

func (s *RedisStore) SetMeetingActive(ctx context.Context, roomID string, active bool) error {
	room, err := s.GetRoom(ctx, roomID)
	if err != nil {
		return err
	}
	room.MeetingActive = active
	if !active {
		room.MeetingEndTime = nil
	}
	return s.UpsertRoom(ctx, room)
}

func (s *RedisStore) UpsertParticipant(ctx context.Context, p *Participant) error {
	if p == nil || p.RoomID == "" || (p.AgentID == "" && p.UserID == "") {
		return ErrInvalidInput
	}
	data, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("encode participant: %w", err)
	}
	return s.client.HSet(ctx, roomMembersKey(p.RoomID), participantField(p), data).Err()
}

func (s *RedisStore) ListParticipants(ctx context.Context, roomID string) ([]*Participant, error) {
	values, err := s.client.HGetAll(ctx, roomMembersKey(roomID)).Result()
	if err != nil {
		return nil, err
	}
	out := make([]*Participant, 0, len(values))
	for field, data := range values {
		var p Participant
		if err := json.Unmarshal([]byte(data), &p); err != nil {
			s.logger.Warn("decode participant failed",
				zap.String("room_id", roomID), zap.String("field", field), zap.Error(err))
			continue
		}
		out = append(out, &p)
	}
	return out, nil
}

func (s *RedisStore) SetTyping(ctx context.Context, roomID, agentID string, typing bool) error {
	field := "agent:" + agentID
	data, err := s.client.HGet(ctx, roomMembersKey(roomID), field).Result()
	if errors.Is(err, redis.Nil) {
		return nil
	}
	if err != nil {
		return err
	}
	var p Participant
	if err := json.Unmarshal([]byte(data), &p); err != nil {
		return fmt.Errorf("decode participant: %w", err)
	}
	p.IsTyping = typing
	updated, err := json.Marshal(&p)
	if err != nil {
		return fmt.Errorf("encode participant: %w", err)
	}
	return s.client.HSet(ctx, roomMembersKey(roomID), field, updated).Err()
}

func (s *RedisStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

func (s *RedisStore) Close() error {
	return s.client.Close()
}
