package repo

import (
	"context"
	"sync"
)

// MemoryBus is a process-local key-value store shared by many MemorySlot
// views. A Save through one view notifies the watchers of every other view
// on the same key, the way a browser storage event reaches the other tabs of
// an origin.
type MemoryBus struct {
	mu       sync.Mutex
	data     map[string][]byte
	watchers map[string]map[*watcher]struct{}
	failSave error
}

type watcher struct {
	view *MemorySlot
	fn   func()
}

// NewMemoryBus returns an empty bus.
func NewMemoryBus() *MemoryBus {
	return &MemoryBus{
		data:     map[string][]byte{},
		watchers: map[string]map[*watcher]struct{}{},
	}
}

// Slot opens a new view on key. Each call is a distinct context.
func (b *MemoryBus) Slot(key string) *MemorySlot {
	return &MemorySlot{bus: b, key: key}
}

// Put writes raw bytes as an outside writer and notifies every view.
func (b *MemoryBus) Put(key string, value []byte) {
	b.store(nil, key, value)
}

// FailSaves makes every subsequent Save return err (nil restores).
// Used to simulate quota errors.
func (b *MemoryBus) FailSaves(err error) {
	b.mu.Lock()
	b.failSave = err
	b.mu.Unlock()
}

func (b *MemoryBus) store(from *MemorySlot, key string, value []byte) {
	b.mu.Lock()
	if value == nil {
		delete(b.data, key)
	} else {
		b.data[key] = append([]byte(nil), value...)
	}
	var notify []func()
	for w := range b.watchers[key] {
		if w.view != from {
			notify = append(notify, w.fn)
		}
	}
	b.mu.Unlock()

	for _, fn := range notify {
		fn()
	}
}

// MemorySlot is one view of a MemoryBus key.
type MemorySlot struct {
	bus *MemoryBus
	key string
}

// Load returns a copy of the stored bytes, or nil when nothing is stored.
func (s *MemorySlot) Load(context.Context) ([]byte, error) {
	s.bus.mu.Lock()
	defer s.bus.mu.Unlock()
	v, ok := s.bus.data[s.key]
	if !ok {
		return nil, nil
	}
	return append([]byte(nil), v...), nil
}

// Save replaces the stored bytes and notifies other views.
func (s *MemorySlot) Save(_ context.Context, value []byte) error {
	s.bus.mu.Lock()
	err := s.bus.failSave
	s.bus.mu.Unlock()
	if err != nil {
		return err
	}
	if value == nil {
		value = []byte{}
	}
	s.bus.store(s, s.key, value)
	return nil
}

// Watch calls onChange synchronously after another view or Put writes the
// key. The returned stop function is idempotent.
func (s *MemorySlot) Watch(ctx context.Context, onChange func()) (func(), error) {
	w := &watcher{view: s, fn: onChange}
	b := s.bus
	b.mu.Lock()
	if b.watchers[s.key] == nil {
		b.watchers[s.key] = map[*watcher]struct{}{}
	}
	b.watchers[s.key][w] = struct{}{}
	b.mu.Unlock()

	return stopOnDone(ctx, func() {
		b.mu.Lock()
		delete(b.watchers[s.key], w)
		b.mu.Unlock()
	}), nil
}

// stopOnDone returns an idempotent stop function that runs release once,
// either when called or when ctx is done.
func stopOnDone(ctx context.Context, release func()) func() {
	var once sync.Once
	done := make(chan struct{})
	stop := func() {
		once.Do(func() {
			close(done)
			release()
		})
	}
	if ctx.Done() != nil {
		go func() {
			select {
			case <-ctx.Done():
				stop()
			case <-done:
			}
		}()
	}
	return stop
}
