// Package config loads the relaychat service configuration.
//
// Precedence: defaults, then the YAML file, then environment variables with
// the RELAYCHAT prefix (RELAYCHAT_SERVER_ADDR, RELAYCHAT_STORE_TYPE, ...).
package config

import (
	"fmt"
	"time"

	"github.com/BaSui01/relaychat/relay"
	"github.com/BaSui01/relaychat/responder"
	"github.com/BaSui01/relaychat/store"
)

// Config is the full service configuration.
type Config struct {
	Server    ServerConfig    `yaml:"server" env:"SERVER"`
	Log       LogConfig       `yaml:"log" env:"LOG"`
	Store     StoreConfig     `yaml:"store" env:"STORE"`
	Responder ResponderConfig `yaml:"responder" env:"RESPONDER"`
	Relay     RelayConfig     `yaml:"relay" env:"RELAY"`
}

// ServerConfig configures the HTTP API.
type ServerConfig struct {
	Addr            string        `yaml:"addr" env:"ADDR"`
	ReadTimeout     time.Duration `yaml:"read_timeout" env:"READ_TIMEOUT"`
	WriteTimeout    time.Duration `yaml:"write_timeout" env:"WRITE_TIMEOUT"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" env:"SHUTDOWN_TIMEOUT"`
}

// LogConfig configures structured logging.
type LogConfig struct {
	// Level is one of debug, info, warn, error.
	Level string `yaml:"level" env:"LEVEL"`
	// Format is json or console.
	Format string `yaml:"format" env:"FORMAT"`
}

// StoreConfig selects the chat persistence backend.
type StoreConfig struct {
	Type  string      `yaml:"type" env:"TYPE"`
	DSN   string      `yaml:"dsn" env:"DSN"`
	Redis RedisConfig `yaml:"redis" env:"REDIS"`
}

// RedisConfig configures the Redis connection for store and memory.
type RedisConfig struct {
	Addr     string `yaml:"addr" env:"ADDR"`
	Password string `yaml:"password" env:"PASSWORD"`
	DB       int    `yaml:"db" env:"DB"`
}

// ResponderConfig configures the chat completion backend.
type ResponderConfig struct {
	BaseURL     string        `yaml:"base_url" env:"BASE_URL"`
	APIKey      string        `yaml:"api_key" env:"API_KEY"`
	Model       string        `yaml:"model" env:"MODEL"`
	Timeout     time.Duration `yaml:"timeout" env:"TIMEOUT"`
	MaxTokens   int           `yaml:"max_tokens" env:"MAX_TOKENS"`
	Temperature float64       `yaml:"temperature" env:"TEMPERATURE"`
}

// RelayConfig tunes the conversation loop.
type RelayConfig struct {
	FacilitatorMaxRounds int           `yaml:"facilitator_max_rounds" env:"FACILITATOR_MAX_ROUNDS"`
	FacilitatorMaxTime   time.Duration `yaml:"facilitator_max_time" env:"FACILITATOR_MAX_TIME"`
	MaxRounds            int           `yaml:"max_rounds" env:"MAX_ROUNDS"`
	MaxTime              time.Duration `yaml:"max_time" env:"MAX_TIME"`
	TurnDelay            time.Duration `yaml:"turn_delay" env:"TURN_DELAY"`
	FacilitatorDelay     time.Duration `yaml:"facilitator_delay" env:"FACILITATOR_DELAY"`
	HistorySeedLimit     int           `yaml:"history_seed_limit" env:"HISTORY_SEED_LIMIT"`
	HistoryWindow        int           `yaml:"history_window" env:"HISTORY_WINDOW"`
	ResponderTimeout     time.Duration `yaml:"responder_timeout" env:"RESPONDER_TIMEOUT"`
}

// DefaultConfig returns the built-in defaults.
func DefaultConfig() *Config {
	rc := relay.DefaultConfig()
	return &Config{
		Server: ServerConfig{
			Addr:            ":8080",
			ReadTimeout:     15 * time.Second,
			WriteTimeout:    30 * time.Second,
			ShutdownTimeout: 10 * time.Second,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "json",
		},
		Store: StoreConfig{
			Type: store.TypeMemory,
		},
		Responder: ResponderConfig{
			BaseURL:     "http://localhost:11434",
			Timeout:     60 * time.Second,
			MaxTokens:   1024,
			Temperature: 0.8,
		},
		Relay: RelayConfig{
			FacilitatorMaxRounds: rc.FacilitatorMaxRounds,
			FacilitatorMaxTime:   rc.FacilitatorMaxTime,
			MaxRounds:            rc.MaxRounds,
			MaxTime:              rc.MaxTime,
			TurnDelay:            rc.TurnDelay,
			FacilitatorDelay:     rc.FacilitatorDelay,
			HistorySeedLimit:     rc.HistorySeedLimit,
			HistoryWindow:        rc.HistoryWindow,
		},
	}
}

// Validate checks cross-field constraints.
func (c *Config) Validate() error {
	switch c.Store.Type {
	case "", store.TypeMemory:
	case store.TypeSQLite, store.TypePostgres:
		if c.Store.DSN == "" {
			return fmt.Errorf("store type %q requires a dsn", c.Store.Type)
		}
	case store.TypeRedis:
		if c.Store.Redis.Addr == "" {
			return fmt.Errorf("store type redis requires redis.addr")
		}
	default:
		return fmt.Errorf("unknown store type %q", c.Store.Type)
	}
	if c.Relay.MaxRounds < 0 || c.Relay.FacilitatorMaxRounds < 0 {
		return fmt.Errorf("round budgets must not be negative")
	}
	return nil
}

// ToStore converts to the store factory config.
func (c StoreConfig) ToStore() store.Config {
	return store.Config{
		Type: c.Type,
		DSN:  c.DSN,
		Redis: store.RedisConfig{
			Addr:     c.Redis.Addr,
			Password: c.Redis.Password,
			DB:       c.Redis.DB,
		},
	}
}

// ToResponder converts to the HTTP responder config.
func (c ResponderConfig) ToResponder() responder.Config {
	return responder.Config{
		BaseURL:     c.BaseURL,
		APIKey:      c.APIKey,
		Model:       c.Model,
		Timeout:     c.Timeout,
		MaxTokens:   c.MaxTokens,
		Temperature: float32(c.Temperature),
	}
}

// ToRelay converts to the relay loop config.
func (c RelayConfig) ToRelay() relay.Config {
	return relay.Config{
		FacilitatorMaxRounds: c.FacilitatorMaxRounds,
		FacilitatorMaxTime:   c.FacilitatorMaxTime,
		MaxRounds:            c.MaxRounds,
		MaxTime:              c.MaxTime,
		TurnDelay:            c.TurnDelay,
		FacilitatorDelay:     c.FacilitatorDelay,
		HistorySeedLimit:     c.HistorySeedLimit,
		HistoryWindow:        c.HistoryWindow,
		ResponderTimeout:     c.ResponderTimeout,
	}
}
