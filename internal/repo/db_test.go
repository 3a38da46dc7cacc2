package repo

import (
	"fmt"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/tbourn/go-image-studio/internal/domain"
)

func TestOpenSQLite_MissingParentDir(t *testing.T) {
	db, err := OpenSQLite(filepath.Join(t.TempDir(), "absent", "history.db"))
	assert.Error(t, err)
	assert.Nil(t, db)
}

func TestOpenSQLite_ConfiguresEveryConnection(t *testing.T) {
	db, err := OpenSQLite(filepath.Join(t.TempDir(), "history.db"))
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	t.Cleanup(func() { _ = sqlDB.Close() })

	assert.Equal(t, 4, sqlDB.Stats().MaxOpenConnections)

	// Two open transactions hold two distinct pooled connections.
	tx1 := db.Begin()
	defer tx1.Rollback()
	tx2 := db.Begin()
	defer tx2.Rollback()

	for i, tx := range []*gorm.DB{tx1, tx2} {
		msg := fmt.Sprintf("connection %d", i)
		var mode string
		var syncVal, busy int
		require.NoError(t, tx.Raw("PRAGMA journal_mode").Row().Scan(&mode), msg)
		require.NoError(t, tx.Raw("PRAGMA synchronous").Row().Scan(&syncVal), msg)
		require.NoError(t, tx.Raw("PRAGMA busy_timeout").Row().Scan(&busy), msg)
		assert.Equal(t, "wal", strings.ToLower(mode), msg)
		assert.Equal(t, 1, syncVal, msg) // NORMAL
		assert.Equal(t, 5000, busy, msg)
	}
}

func TestAutoMigrate_SlotTableUsable(t *testing.T) {
	db, err := OpenSQLite(filepath.Join(t.TempDir(), "history.db"))
	require.NoError(t, err)
	sqlDB, _ := db.DB()
	t.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(t, AutoMigrate(db))
	require.NoError(t, AutoMigrate(db)) // idempotent
	assert.True(t, db.Migrator().HasTable(&domain.StorageSlot{}))

	row := domain.StorageSlot{Key: "image-history", Value: "[]", UpdatedAt: time.Now().UTC()}
	require.NoError(t, db.Create(&row).Error)

	var got domain.StorageSlot
	require.NoError(t, db.Where(&domain.StorageSlot{Key: "image-history"}).First(&got).Error)
	assert.Equal(t, "[]", got.Value)
}

func TestSQLiteDSN(t *testing.T) {
	assert.Equal(t,
		"h.db?_pragma=journal_mode(WAL)&_pragma=synchronous(NORMAL)&_pragma=busy_timeout(5000)",
		sqliteDSN("h.db"))
	assert.True(t, strings.HasPrefix(sqliteDSN("file:h.db?cache=shared"), "file:h.db?cache=shared&_pragma="))
}
