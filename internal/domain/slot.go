// Package domain defines the core types of the image studio.
package domain

import "time"

// StorageSlot is a single named value in a relational key-value table. The
// SQLite history backend keeps the whole serialized history collection in one
// row, mirroring the single-slot layout of browser storage.
type StorageSlot struct {
	Key       string    `gorm:"type:varchar(128);primaryKey"`
	Value     string    `gorm:"type:text;not null"`
	UpdatedAt time.Time `gorm:"not null;index"`
}

// TableName implements the GORM tabler interface.
func (StorageSlot) TableName() string { return "storage_slots" }
