package rules

import (
	"context"
	"log/slog"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"github.com/fsnotify/fsnotify"
)

// Store holds the current rules snapshot. Readers take a snapshot once per
// turn; Reload swaps the pointer atomically, so a turn never observes a mix
// of old and new rules.
type Store struct {
	path    string
	current atomic.Pointer[Rules]
	mu      sync.Mutex // serializes reloads
	hooks   []func(*Rules)
}

// NewStore loads path and returns a store holding the result.
func NewStore(path string) (*Store, error) {
	r, err := Load(path)
	if err != nil {
		return nil, err
	}
	s := &Store{path: path}
	s.current.Store(r)
	return s, nil
}

// NewStaticStore wraps an already compiled snapshot. Reload on a static
// store recompiles the defaults.
func NewStaticStore(r *Rules) *Store {
	s := &Store{}
	s.current.Store(r)
	return s
}

// Current returns the active snapshot.
func (s *Store) Current() *Rules {
	return s.current.Load()
}

// Path returns the backing file path, if any.
func (s *Store) Path() string {
	return s.path
}

// OnReload registers fn to run after every successful reload, with the new
// snapshot. Hooks run in registration order while reloads are serialized.
func (s *Store) OnReload(fn func(*Rules)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.hooks = append(s.hooks, fn)
}

// Reload re-reads the backing file. On error the previous snapshot stays
// active.
func (s *Store) Reload() (*Rules, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	r, err := Load(s.path)
	if err != nil {
		return nil, err
	}
	s.current.Store(r)
	for _, fn := range s.hooks {
		fn(r)
	}
	return r, nil
}

// Watch reloads the store whenever its file changes until ctx is done.
// The parent directory is watched so editors that replace the file by
// rename are picked up.
func (s *Store) Watch(ctx context.Context, debounce time.Duration) error {
	if s.path == "" {
		<-ctx.Done()
		return nil
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer watcher.Close()

	if err := watcher.Add(filepath.Dir(s.path)); err != nil {
		return err
	}

	target := filepath.Clean(s.path)
	var timer *time.Timer
	var fire <-chan time.Time

	for {
		select {
		case <-ctx.Done():
			if timer != nil {
				timer.Stop()
			}
			return nil
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != target {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			if timer == nil {
				timer = time.NewTimer(debounce)
			} else {
				timer.Reset(debounce)
			}
			fire = timer.C
		case <-fire:
			fire = nil
			r, err := s.Reload()
			if err != nil {
				slog.Error("Failed to reload rules", "path", s.path, "error", err)
				continue
			}
			slog.Info("Rules reloaded", "path", r.Source)
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			slog.Warn("Rules watcher error", "error", err)
		}
	}
}
