package filestore

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/fsnotify/fsnotify"
	"github.com/pkg/errors"

	"github.com/NycolasFelipe/uninter-gestao-eventos/core"
	"github.com/NycolasFelipe/uninter-gestao-eventos/core/session"
)

const slotOps = fsnotify.Create | fsnotify.Write | fsnotify.Remove | fsnotify.Rename

// Store keeps the token in a single file. Every console process pointing at the same file
// shares the session and follows the others' logins & logouts through fsnotify.
type Store struct {
	path   string
	logger core.Logger

	mu        sync.Mutex
	listeners map[int]func()
	nextID    int
	watcher   *fsnotify.Watcher
}

var (
	_ session.TokenStore = (*Store)(nil)
	_ session.Notifier   = (*Store)(nil)
)

// DefaultPath returns the slot path under the user's runtime dir, which does not survive a reboot.
func DefaultPath(appName, key string) string {
	dir := os.Getenv("XDG_RUNTIME_DIR")
	if dir == "" {
		dir = os.TempDir()
	}
	name := strings.ToLower(strings.Join(strings.Fields(appName), "-"))
	return filepath.Join(dir, name, key)
}

func New(path string, logger core.Logger) (*Store, error) {
	path = filepath.Clean(path)
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, errors.Wrap(err, "creating token slot dir")
	}
	return &Store{
		path:      path,
		logger:    logger,
		listeners: make(map[int]func()),
	}, nil
}

func (s *Store) Path() string {
	return s.path
}

func (s *Store) Get(context.Context) (string, bool, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return "", false, nil
		}
		return "", false, errors.Wrap(err, "reading token slot")
	}
	token := strings.TrimSpace(string(data))
	return token, token != "", nil
}

// Set replaces the slot atomically so that readers never see a partial token.
func (s *Store) Set(_ context.Context, token string) error {
	tmp, err := os.CreateTemp(filepath.Dir(s.path), ".slot-*")
	if err != nil {
		return errors.Wrap(err, "creating temp slot")
	}
	defer os.Remove(tmp.Name()) //nolint:errcheck // gone after a successful rename

	if _, err = tmp.WriteString(token); err != nil {
		_ = tmp.Close()
		return errors.Wrap(err, "writing temp slot")
	}
	if err = tmp.Chmod(0o600); err != nil {
		_ = tmp.Close()
		return errors.Wrap(err, "chmod temp slot")
	}
	if err = tmp.Close(); err != nil {
		return errors.Wrap(err, "closing temp slot")
	}
	return errors.Wrap(os.Rename(tmp.Name(), s.path), "replacing token slot")
}

func (s *Store) Clear(context.Context) error {
	if err := os.Remove(s.path); err != nil && !os.IsNotExist(err) {
		return errors.Wrap(err, "removing token slot")
	}
	return nil
}

// Subscribe starts watching the slot's directory on the first subscription.
// If the watch cannot be set up the error is logged and fn is never called.
func (s *Store) Subscribe(fn func()) func() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.watcher == nil {
		watcher, err := fsnotify.NewWatcher()
		if err == nil {
			err = watcher.Add(filepath.Dir(s.path))
		}
		if err != nil {
			if watcher != nil {
				_ = watcher.Close()
			}
			s.logger.Error("watching token slot", errors.Wrap(err, s.path))
			return func() {}
		}
		s.watcher = watcher
		go s.watch(watcher)
	}

	id := s.nextID
	s.nextID++
	s.listeners[id] = fn

	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		delete(s.listeners, id)
		if len(s.listeners) == 0 && s.watcher != nil {
			_ = s.watcher.Close()
			s.watcher = nil
		}
	}
}

// Close stops watching the slot.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.listeners = make(map[int]func())
	if s.watcher == nil {
		return nil
	}
	err := s.watcher.Close()
	s.watcher = nil
	return err
}

func (s *Store) watch(watcher *fsnotify.Watcher) {
	for {
		select {
		case ev, ok := <-watcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(ev.Name) != s.path || ev.Op&slotOps == 0 {
				continue
			}
			s.notify()
		case err, ok := <-watcher.Errors:
			if !ok {
				return
			}
			s.logger.Warn("token slot watcher", err)
		}
	}
}

func (s *Store) notify() {
	s.mu.Lock()
	fns := make([]func(), 0, len(s.listeners))
	for _, fn := range s.listeners {
		fns = append(fns, fn)
	}
	s.mu.Unlock()

	for _, fn := range fns {
		fn()
	}
}
