package repo

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/tbourn/go-image-studio/internal/domain"
)

// DefaultPollInterval is how often SQLiteSlot.Watch checks the row version.
const DefaultPollInterval = time.Second

// SQLiteSlot keeps the value in one row of storage_slots. SQLite has no
// change feed, so Watch polls the row's UpdatedAt.
type SQLiteSlot struct {
	db   *gorm.DB
	key  string
	poll time.Duration

	mu   sync.Mutex
	last []byte
}

// NewSQLiteSlot returns a slot for key. A poll interval <= 0 uses
// DefaultPollInterval.
func NewSQLiteSlot(db *gorm.DB, key string, poll time.Duration) *SQLiteSlot {
	if poll <= 0 {
		poll = DefaultPollInterval
	}
	return &SQLiteSlot{db: db, key: key, poll: poll}
}

// Load returns the row value, or nil when the row does not exist.
func (s *SQLiteSlot) Load(ctx context.Context) ([]byte, error) {
	var row domain.StorageSlot
	err := s.db.WithContext(ctx).Where(&domain.StorageSlot{Key: s.key}).Take(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load slot %q: %w", s.key, err)
	}
	return []byte(row.Value), nil
}

// Save upserts the row.
func (s *SQLiteSlot) Save(ctx context.Context, value []byte) error {
	row := domain.StorageSlot{Key: s.key, Value: string(value), UpdatedAt: time.Now().UTC()}
	err := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "key"}},
		DoUpdates: clause.AssignmentColumns([]string{"value", "updated_at"}),
	}).Create(&row).Error
	if err != nil {
		return fmt.Errorf("save slot %q: %w", s.key, err)
	}
	s.mu.Lock()
	s.last = append(s.last[:0], value...)
	s.mu.Unlock()
	return nil
}

// Watch polls the row version and calls onChange when it moves and the
// value differs from what this slot last wrote.
func (s *SQLiteSlot) Watch(ctx context.Context, onChange func()) (func(), error) {
	seen, err := SlotVersion(ctx, s.db, s.key)
	if err != nil {
		return nil, fmt.Errorf("watch slot %q: %w", s.key, err)
	}

	pollCtx, cancel := context.WithCancel(ctx)
	go func() {
		t := time.NewTicker(s.poll)
		defer t.Stop()
		for {
			select {
			case <-pollCtx.Done():
				return
			case <-t.C:
			}
			v, err := SlotVersion(pollCtx, s.db, s.key)
			if err != nil {
				if pollCtx.Err() == nil {
					log.Warn().Err(err).Str("key", s.key).Msg("history slot poll failed")
				}
				continue
			}
			if sameVersion(seen, v) {
				continue
			}
			seen = v
			if s.ownWrite(pollCtx) {
				continue
			}
			onChange()
		}
	}()
	return cancel, nil
}

func (s *SQLiteSlot) ownWrite(ctx context.Context) bool {
	cur, err := s.Load(ctx)
	if err != nil {
		return false
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.last != nil && bytes.Equal(cur, s.last)
}

func sameVersion(a, b *time.Time) bool {
	if a == nil || b == nil {
		return a == b
	}
	return a.Equal(*b)
}
