package repo

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/tbourn/go-image-studio/internal/domain"
)

// SlotVersion returns the UpdatedAt of the slot row, or nil when the row does
// not exist. Pollers compare versions to detect writes from other processes
// without transferring the value.
func SlotVersion(ctx context.Context, db *gorm.DB, key string) (*time.Time, error) {
	var rows []struct {
		UpdatedAt time.Time
	}
	// Scan into a struct rather than MAX(): SQLite returns MAX() as TEXT.
	err := db.WithContext(ctx).
		Model(&domain.StorageSlot{}).
		Select("updated_at").
		Where(&domain.StorageSlot{Key: key}).
		Limit(1).
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, nil
	}
	return &rows[0].UpdatedAt, nil
}
