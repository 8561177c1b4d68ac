package store

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_DefaultsToMemory(t *testing.T) {
	st, err := New(Config{}, nil)
	require.NoError(t, err)
	_, ok := st.(*MemoryStore)
	assert.True(t, ok)
}

func TestNew_SQLite(t *testing.T) {
	dsn := filepath.Join(t.TempDir(), "chat.db")
	st, err := New(Config{Type: TypeSQLite, DSN: dsn}, nil)
	require.NoError(t, err)
	require.NoError(t, st.Close())
}

func TestNew_SQLiteRequiresDSN(t *testing.T) {
	_, err := New(Config{Type: TypeSQLite}, nil)
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestNew_UnknownType(t *testing.T) {
	_, err := New(Config{Type: "cassandra"}, nil)
	assert.Error(t, err)
}
