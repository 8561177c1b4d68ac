package store

import (
	"path/filepath"
	"testing"

	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

func newSQLiteStore(t *testing.T) ChatStore {
	t.Helper()
	dsn := filepath.Join(t.TempDir(), "chat.db")
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)

	st, err := NewGormStore(db, zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })
	return st
}

func TestGormStore(t *testing.T) {
	runStoreSuite(t, newSQLiteStore)
}

func TestNewGormStore_NilDB(t *testing.T) {
	_, err := NewGormStore(nil, zap.NewNop())
	require.ErrorIs(t, err, ErrInvalidInput)
}
