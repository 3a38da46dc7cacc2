// Package history is the durable record of past generations.
//
// A Store keeps the collection newest first and capped, persists every
// mutation to an injected Slot, and reloads from the Slot when another
// execution context changes it. Reconciliation is last-writer-wins: there is
// no merge and no conflict detection.
//
// Persistence failures never reach the caller. The in-memory collection
// still reflects the mutation, the failure is logged, and the durable copy
// may lag until the next successful write or reload.
package history

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/tbourn/go-image-studio/internal/domain"
)

// DefaultLimit caps the collection when New is given a non-positive limit.
const DefaultLimit = 50

// Slot is a single named value in shared persistent storage.
//
// Watch must call onChange after writes made by other contexts and must not
// call it for the slot's own Saves. The returned function stops watching.
type Slot interface {
	Load(ctx context.Context) ([]byte, error)
	Save(ctx context.Context, value []byte) error
	Watch(ctx context.Context, onChange func()) (func(), error)
}

// Listener receives a snapshot of the collection after every change.
type Listener func(items []domain.HistoryItem)

// Store is the in-memory cache of the persisted collection.
type Store struct {
	slot  Slot
	limit int
	now   func() time.Time
	newID func() string

	// writeMu orders mutations and their writes. mu guards the cached state
	// and is never held across a Slot call, so a slot that notifies other
	// stores synchronously cannot deadlock against them.
	writeMu sync.Mutex

	mu        sync.Mutex
	items     []domain.HistoryItem
	loaded    bool
	listeners map[int]Listener
	nextID    int
	stopWatch func()
}

// New returns a Store over slot. Call Load before reading.
func New(slot Slot, limit int) *Store {
	if limit <= 0 {
		limit = DefaultLimit
	}
	return &Store{
		slot:      slot,
		limit:     limit,
		now:       func() time.Time { return time.Now().UTC() },
		newID:     uuid.NewString,
		listeners: map[int]Listener{},
	}
}

// Limit reports the collection cap.
func (s *Store) Limit() int { return s.limit }

// Load fills the cache from the slot. Unreadable or unparseable content
// yields an empty collection.
func (s *Store) Load(ctx context.Context) {
	items := s.read(ctx)
	s.mu.Lock()
	s.items = items
	s.loaded = true
	s.mu.Unlock()
	s.notify()
}

// Loaded reports whether Load has completed at least once.
func (s *Store) Loaded() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loaded
}

// Items returns a copy of the collection, newest first.
func (s *Store) Items() []domain.HistoryItem {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]domain.HistoryItem(nil), s.items...)
}

// Add records e with a fresh id and the current time, prepends it, drops
// whatever falls past the cap, and persists the result.
func (s *Store) Add(ctx context.Context, e domain.NewHistoryEntry) domain.HistoryItem {
	item := domain.HistoryItem{
		ID:            s.newID(),
		Prompt:        e.Prompt,
		RevisedPrompt: e.RevisedPrompt,
		ImageURL:      e.ImageURL,
		Size:          e.Size,
		Quality:       e.Quality,
		Style:         e.Style,
		CreatedAt:     s.now(),
	}

	s.mutate(ctx, func(cur []domain.HistoryItem) ([]domain.HistoryItem, bool) {
		next := make([]domain.HistoryItem, 0, min(len(cur)+1, s.limit))
		next = append(next, item)
		for _, it := range cur {
			if len(next) == s.limit {
				break
			}
			next = append(next, it)
		}
		return next, true
	})
	return item
}

// Remove deletes the item with id. An unknown id is a no-op.
func (s *Store) Remove(ctx context.Context, id string) {
	s.mutate(ctx, func(cur []domain.HistoryItem) ([]domain.HistoryItem, bool) {
		next := make([]domain.HistoryItem, 0, len(cur))
		for _, it := range cur {
			if it.ID != id {
				next = append(next, it)
			}
		}
		return next, len(next) != len(cur)
	})
}

// Clear empties the collection.
func (s *Store) Clear(ctx context.Context) {
	s.mutate(ctx, func(cur []domain.HistoryItem) ([]domain.HistoryItem, bool) {
		return []domain.HistoryItem{}, len(cur) > 0
	})
}

// Subscribe registers fn for change notifications and returns a function
// that unregisters it.
func (s *Store) Subscribe(fn Listener) func() {
	s.mu.Lock()
	id := s.nextID
	s.nextID++
	s.listeners[id] = fn
	s.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			s.mu.Lock()
			delete(s.listeners, id)
			s.mu.Unlock()
		})
	}
}

// Watch reloads the cache whenever another context changes the slot. It
// replaces any earlier watch.
func (s *Store) Watch(ctx context.Context) error {
	stop, err := s.slot.Watch(ctx, func() { s.Reload(ctx) })
	if err != nil {
		return err
	}
	s.mu.Lock()
	prev := s.stopWatch
	s.stopWatch = stop
	s.mu.Unlock()
	if prev != nil {
		prev()
	}
	return nil
}

// Reload replaces the cache with the persisted collection and notifies
// listeners when it differs.
func (s *Store) Reload(ctx context.Context) {
	items := s.read(ctx)
	s.mu.Lock()
	changed := !sameItems(s.items, items)
	s.items = items
	s.loaded = true
	s.mu.Unlock()
	if changed {
		log.Debug().Int("items", len(items)).Msg("history reloaded after external change")
		s.notify()
	}
}

// Close stops watching. The Store stays readable.
func (s *Store) Close() {
	s.mu.Lock()
	stop := s.stopWatch
	s.stopWatch = nil
	s.mu.Unlock()
	if stop != nil {
		stop()
	}
}

// mutate applies fn to the cache and persists the result. fn reports whether
// it changed anything; unchanged collections are neither written nor
// announced.
func (s *Store) mutate(ctx context.Context, fn func([]domain.HistoryItem) ([]domain.HistoryItem, bool)) {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	s.mu.Lock()
	next, changed := fn(s.items)
	if changed {
		s.items = next
	}
	s.mu.Unlock()
	if !changed {
		return
	}

	s.persist(ctx, next)
	s.notify()
}

// persist is the only place a storage error is dropped.
func (s *Store) persist(ctx context.Context, items []domain.HistoryItem) {
	if err := s.save(ctx, items); err != nil {
		log.Warn().Err(err).Int("items", len(items)).Msg("history persist failed; keeping in-memory state")
	}
}

func (s *Store) save(ctx context.Context, items []domain.HistoryItem) error {
	if items == nil {
		items = []domain.HistoryItem{}
	}
	b, err := json.Marshal(items)
	if err != nil {
		return err
	}
	return s.slot.Save(ctx, b)
}

// read loads and decodes the slot, failing open to an empty collection.
func (s *Store) read(ctx context.Context) []domain.HistoryItem {
	raw, err := s.slot.Load(ctx)
	if err != nil {
		log.Warn().Err(err).Msg("history load failed; starting empty")
		return []domain.HistoryItem{}
	}
	if len(raw) == 0 {
		return []domain.HistoryItem{}
	}
	var items []domain.HistoryItem
	if err := json.Unmarshal(raw, &items); err != nil {
		log.Warn().Err(err).Msg("history payload unreadable; starting empty")
		return []domain.HistoryItem{}
	}
	if items == nil {
		items = []domain.HistoryItem{}
	}
	if len(items) > s.limit {
		items = items[:s.limit]
	}
	return items
}

func (s *Store) notify() {
	s.mu.Lock()
	snap := append([]domain.HistoryItem(nil), s.items...)
	fns := make([]Listener, 0, len(s.listeners))
	for _, fn := range s.listeners {
		fns = append(fns, fn)
	}
	s.mu.Unlock()

	for _, fn := range fns {
		fn(snap)
	}
}

func sameItems(a, b []domain.HistoryItem) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		x, y := a[i], b[i]
		if !x.CreatedAt.Equal(y.CreatedAt) {
			return false
		}
		x.CreatedAt, y.CreatedAt = time.Time{}, time.Time{}
		if x != y {
			return false
		}
	}
	return true
}
