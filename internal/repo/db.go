// Package repo implements the storage slots behind the generation history:
// a single named value holding the serialized collection, readable,
// writable, and watchable for changes made by another execution context.
//
// Four backends share one shape (Load, Save, Watch):
//
//   - MemorySlot: views over a shared in-process MemoryBus (one per "tab")
//   - FileSlot:   a JSON file, watched with fsnotify
//   - SQLiteSlot: one row of the storage_slots table (GORM, pure-Go SQLite)
//   - RedisSlot:  GET/SET plus a Pub/Sub change channel
//
// A slot never notifies its own writes; only other contexts are told.
package repo

import (
	"os"
	"path/filepath"
	"strings"
	"time"

	sqlite "github.com/glebarez/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
	"gorm.io/plugin/opentelemetry/tracing"

	"github.com/tbourn/go-image-studio/internal/domain"
)

// sqlitePragmas apply to every pooled connection; busy_timeout in
// particular is per connection.
var sqlitePragmas = []string{
	"journal_mode(WAL)",
	"synchronous(NORMAL)",
	"busy_timeout(5000)",
}

// OpenSQLite opens (or creates) the database at path with the tracing plugin
// installed. The parent directory must already exist.
func OpenSQLite(path string) (*gorm.DB, error) {
	if dir := filepath.Dir(path); dir != "." {
		if _, err := os.Stat(dir); err != nil {
			return nil, err
		}
	}

	db, err := gorm.Open(sqlite.Open(sqliteDSN(path)), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, err
	}
	if err := db.Use(tracing.NewPlugin(tracing.WithoutMetrics())); err != nil {
		return nil, err
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	sqlDB.SetMaxOpenConns(4)
	sqlDB.SetMaxIdleConns(4)
	sqlDB.SetConnMaxIdleTime(5 * time.Minute)
	return db, nil
}

func sqliteDSN(path string) string {
	sep := "?"
	if strings.Contains(path, "?") {
		sep = "&"
	}
	var b strings.Builder
	b.WriteString(path)
	for _, p := range sqlitePragmas {
		b.WriteString(sep)
		b.WriteString("_pragma=")
		b.WriteString(p)
		sep = "&"
	}
	return b.String()
}

// AutoMigrate creates or updates the storage_slots table.
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(&domain.StorageSlot{})
}
