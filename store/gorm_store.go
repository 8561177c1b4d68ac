package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormStore persists chat state in a SQL database through GORM. It works with
// any dialect GORM supports; the factory wires SQLite and PostgreSQL.
type GormStore struct {
	db     *gorm.DB
	logger *zap.Logger
}

type messageRow struct {
	ID           string    `gorm:"primaryKey;size:64"`
	RoomID       string    `gorm:"size:64;not null;index:idx_messages_room_created,priority:1"`
	SenderType   string    `gorm:"size:16;index"`
	SenderID     string    `gorm:"size:64"`
	Type         string    `gorm:"size:16"`
	Content      string    `gorm:"type:text"`
	Metadata     string    `gorm:"type:text"`
	IsAIResponse bool      `gorm:"column:is_ai_response"`
	CreatedAt    time.Time `gorm:"index:idx_messages_room_created,priority:2"`
}

func (messageRow) TableName() string { return "chat_messages" }

type roomRow struct {
	ID             string `gorm:"primaryKey;size:64"`
	Name           string `gorm:"size:128"`
	Type           string `gorm:"size:32"`
	MeetingActive  bool
	MeetingTopic   string `gorm:"size:512"`
	FacilitatorID  string `gorm:"size:64"`
	MeetingEndTime *time.Time
	UpdatedAt      time.Time
}

func (roomRow) TableName() string { return "chat_rooms" }

type participantRow struct {
	RoomID   string `gorm:"primaryKey;size:64"`
	AgentID  string `gorm:"primaryKey;size:64;default:''"`
	UserID   string `gorm:"primaryKey;size:64;default:''"`
	Name     string `gorm:"size:128"`
	IsTyping bool
}

func (participantRow) TableName() string { return "chat_participants" }

// NewGormStore migrates the chat schema and returns a ready store.
func NewGormStore(db *gorm.DB, logger *zap.Logger) (*GormStore, error) {
	if db == nil {
		return nil, ErrInvalidInput
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if err := db.AutoMigrate(&messageRow{}, &roomRow{}, &participantRow{}); err != nil {
		return nil, fmt.Errorf("migrate chat schema: %w", err)
	}
	return &GormStore{
		db:     db,
		logger: logger.With(zap.String("component", "gorm_store")),
	}, nil
}

func (s *GormStore) InsertMessage(ctx context.Context, msg *Message) error {
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

	meta := ""
	if len(msg.Metadata) > 0 {
		b, err := json.Marshal(msg.Metadata)
		if err != nil {
			return fmt.Errorf("encode metadata: %w", err)
		}
		meta = string(b)
	}

	row := messageRow{
		ID:           msg.ID,
		RoomID:       msg.RoomID,
		SenderType:   string(msg.SenderType),
		SenderID:     msg.SenderID,
		Type:         string(msg.Type),
		Content:      msg.Content,
		Metadata:     meta,
		IsAIResponse: msg.IsAIResponse,
		CreatedAt:    msg.CreatedAt,
	}
	return s.db.WithContext(ctx).Create(&row).Error
}

func (s *GormStore) QueryMessages(ctx context.Context, q MessageQuery) ([]*Message, error) {
	if q.RoomID == "" {
		return nil, ErrInvalidInput
	}
	tx := s.db.WithContext(ctx).Model(&messageRow{}).Where("room_id = ?", q.RoomID)
	if q.SenderType != "" {
		tx = tx.Where("sender_type = ?", string(q.SenderType))
	}
	if q.Type != "" {
		tx = tx.Where("type = ?", string(q.Type))
	}
	if !q.After.IsZero() {
		tx = tx.Where("created_at > ?", q.After)
	}
	if q.Descending {
		tx = tx.Order("created_at DESC")
	} else {
		tx = tx.Order("created_at ASC")
	}
	if q.Limit > 0 {
		tx = tx.Limit(q.Limit)
	}

	var rows []messageRow
	if err := tx.Find(&rows).Error; err != nil {
		return nil, err
	}
	out := make([]*Message, 0, len(rows))
	for i := range rows {
		out = append(out, messageFromRow(&rows[i], s.logger))
	}
	return out, nil
}

func messageFromRow(row *messageRow, logger *zap.Logger) *Message {
	msg := &Message{
		ID:           row.ID,
		RoomID:       row.RoomID,
		SenderType:   SenderType(row.SenderType),
		SenderID:     row.SenderID,
		Type:         MessageType(row.Type),
		Content:      row.Content,
		IsAIResponse: row.IsAIResponse,
		CreatedAt:    row.CreatedAt,
	}
	if row.Metadata != "" {
		var meta map[string]any
		if err := json.Unmarshal([]byte(row.Metadata), &meta); err != nil {
			logger.Warn("decode message metadata failed",
				zap.String("message_id", row.ID), zap.Error(err))
		} else {
			msg.Metadata = meta
		}
	}
	return msg
}

func (s *GormStore) UpsertRoom(ctx context.Context, room *Room) error {
	if room == nil || room.ID == "" {
		return ErrInvalidInput
	}
	row := roomRow{
		ID:             room.ID,
		Name:           room.Name,
		Type:           room.Type,
		MeetingActive:  room.MeetingActive,
		MeetingTopic:   room.MeetingTopic,
		FacilitatorID:  room.FacilitatorID,
		MeetingEndTime: room.MeetingEndTime,
	}
	return s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		UpdateAll: true,
	}).Create(&row).Error
}

func (s *GormStore) GetRoom(ctx context.Context, roomID string) (*Room, error) {
	var row roomRow
	err := s.db.WithContext(ctx).First(&row, "id = ?", roomID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &Room{
		ID:             row.ID,
		Name:           row.Name,
		Type:           row.Type,
		MeetingActive:  row.MeetingActive,
		MeetingTopic:   row.MeetingTopic,
		FacilitatorID:  row.FacilitatorID,
		MeetingEndTime: row.MeetingEndTime,
	}, nil
}

func (s *GormStore) SetMeetingActive(ctx context.Context, roomID string, active bool) error {
	updates := map[string]any{"meeting_active": active}
	if !active {
		updates["meeting_end_time"] = nil
	}
	res := s.db.WithContext(ctx).Model(&roomRow{}).Where("id = ?", roomID).Updates(updates)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *GormStore) UpsertParticipant(ctx context.Context, p *Participant) error {
	if p == nil || p.RoomID == "" || (p.AgentID == "" && p.UserID == "") {
		return ErrInvalidInput
	}
	row := participantRow{
		RoomID:   p.RoomID,
		AgentID:  p.AgentID,
		UserID:   p.UserID,
		Name:     p.Name,
		IsTyping: p.IsTyping,
	}
	return s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "room_id"}, {Name: "agent_id"}, {Name: "user_id"}},
		UpdateAll: true,
	}).Create(&row).Error
}

func (s *GormStore) ListParticipants(ctx context.Context, roomID string) ([]*Participant, error) {
	var rows []participantRow
	if err := s.db.WithContext(ctx).Where("room_id = ?", roomID).Find(&rows).Error; err != nil {
		return nil, err
	}
	out := make([]*Participant, 0, len(rows))
	for _, row := range rows {
		out = append(out, &Participant{
			RoomID:   row.RoomID,
			AgentID:  row.AgentID,
			UserID:   row.UserID,
			Name:     row.Name,
			IsTyping: row.IsTyping,
		})
	}
	return out, nil
}

func (s *GormStore) SetTyping(ctx context.Context, roomID, agentID string, typing bool) error {
	return s.db.WithContext(ctx).
		Model(&participantRow{}).
		Where("room_id = ? AND agent_id = ?", roomID, agentID).
		Update("is_typing", typing).Error
}

func (s *GormStore) Ping(ctx context.Context) error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

func (s *GormStore) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
