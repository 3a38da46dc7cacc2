package repo

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog/log"
)

// FileSlot keeps the value in a single file. Writes go to a sibling temp file
// and are renamed into place so readers never observe a torn value.
type FileSlot struct {
	path string

	mu   sync.Mutex
	last []byte // bytes most recently written by this slot
}

// NewFileSlot returns a slot stored at path. The parent directory must exist.
func NewFileSlot(path string) *FileSlot {
	return &FileSlot{path: path}
}

// Path reports the backing file.
func (s *FileSlot) Path() string { return s.path }

// Load returns the file content, or nil when the file does not exist.
func (s *FileSlot) Load(context.Context) ([]byte, error) {
	b, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", s.path, err)
	}
	return b, nil
}

// Save atomically replaces the file content.
func (s *FileSlot) Save(_ context.Context, value []byte) error {
	dir := filepath.Dir(s.path)
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(s.path)+".*")
	if err != nil {
		return fmt.Errorf("create temp: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(value); err != nil {
		tmp.Close()
		return fmt.Errorf("write temp: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if err := os.Rename(tmp.Name(), s.path); err != nil {
		return fmt.Errorf("replace %s: %w", s.path, err)
	}
	s.last = append(s.last[:0], value...)
	return nil
}

// Watch reports writes to the file by anyone other than this slot. The
// directory is watched because atomic replacement changes the file's inode.
func (s *FileSlot) Watch(ctx context.Context, onChange func()) (func(), error) {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("fsnotify: %w", err)
	}
	if err := w.Add(filepath.Dir(s.path)); err != nil {
		w.Close()
		return nil, fmt.Errorf("watch %s: %w", filepath.Dir(s.path), err)
	}

	target := filepath.Clean(s.path)
	go func() {
		for {
			select {
			case ev, ok := <-w.Events:
				if !ok {
					return
				}
				if filepath.Clean(ev.Name) != target ||
					!ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Create) && !ev.Has(fsnotify.Rename) && !ev.Has(fsnotify.Remove) {
					continue
				}
				if s.ownWrite() {
					continue
				}
				onChange()
			case err, ok := <-w.Errors:
				if !ok {
					return
				}
				log.Warn().Err(err).Str("path", s.path).Msg("history file watch error")
			}
		}
	}()

	return stopOnDone(ctx, func() { _ = w.Close() }), nil
}

// ownWrite reports whether the file currently holds exactly the bytes this
// slot last wrote.
func (s *FileSlot) ownWrite() bool {
	cur, err := os.ReadFile(s.path)
	s.mu.Lock()
	defer s.mu.Unlock()
	if err != nil {
		return false
	}
	return s.last != nil && bytes.Equal(cur, s.last)
}
