package store

import (
	"fmt"

	"github.com/glebarez/sqlite"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// Supported backend types.
const (
	TypeMemory   = "memory"
	TypeSQLite   = "sqlite"
	TypePostgres = "postgres"
	TypeRedis    = "redis"
)

// Config selects and configures a chat store backend.
type Config struct {
	// Type is one of memory, sqlite, postgres, redis.
	Type string `json:"type" yaml:"type"`
	// DSN is the SQLite file path or PostgreSQL connection string.
	DSN string `json:"dsn" yaml:"dsn"`
	// Redis applies when Type is redis.
	Redis RedisConfig `json:"redis" yaml:"redis"`
}

// New builds the chat store named by cfg.Type. An empty type defaults to the
// in-memory backend.
func New(cfg Config, logger *zap.Logger) (ChatStore, error) {
	switch cfg.Type {
	case "", TypeMemory:
		return NewMemoryStore(), nil
	case TypeSQLite:
		if cfg.DSN == "" {
			return nil, fmt.Errorf("sqlite store: %w: missing dsn", ErrInvalidInput)
		}
		db, err := gorm.Open(sqlite.Open(cfg.DSN), &gorm.Config{
			Logger: gormlogger.Default.LogMode(gormlogger.Silent),
		})
		if err != nil {
			return nil, fmt.Errorf("open sqlite at %s: %w", cfg.DSN, err)
		}
		return NewGormStore(db, logger)
	case TypePostgres:
		if cfg.DSN == "" {
			return nil, fmt.Errorf("postgres store: %w: missing dsn", ErrInvalidInput)
		}
		db, err := gorm.Open(postgres.Open(cfg.DSN), &gorm.Config{
			Logger: gormlogger.Default.LogMode(gormlogger.Silent),
		})
		if err != nil {
			return nil, fmt.Errorf("open postgres: %w", err)
		}
		return NewGormStore(db, logger)
	case TypeRedis:
		return NewRedisStore(cfg.Redis, logger)
	default:
		return nil, fmt.Errorf("unknown store type %q", cfg.Type)
	}
}
