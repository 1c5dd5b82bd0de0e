package inmemstore

import (
	"context"
	"sync"

	"github.com/NycolasFelipe/uninter-gestao-eventos/core/session"
)

type (
	// Slot is a token slot shared by several Tabs of the same process.
	Slot struct {
		sync.RWMutex
		token string
		ok    bool
		tabs  []*Tab
	}

	// Tab is one holder of a Slot. Writes made through a Tab signal every other Tab, never itself.
	Tab struct {
		slot *Slot

		mu        sync.Mutex
		listeners map[int]func()
		nextID    int
	}
)

var (
	_ session.TokenStore = (*Tab)(nil)
	_ session.Notifier   = (*Tab)(nil)
)

func NewSlot() *Slot {
	return &Slot{}
}

// New returns a single Tab over a fresh Slot.
func New() *Tab {
	return NewSlot().Tab()
}

// Tab opens a new holder of the slot.
func (s *Slot) Tab() *Tab {
	tab := &Tab{slot: s, listeners: make(map[int]func())}
	s.Lock()
	s.tabs = append(s.tabs, tab)
	s.Unlock()
	return tab
}

func (t *Tab) Get(context.Context) (string, bool, error) {
	t.slot.RLock()
	defer t.slot.RUnlock()
	return t.slot.token, t.slot.ok, nil
}

func (t *Tab) Set(_ context.Context, token string) error {
	t.slot.Lock()
	t.slot.token, t.slot.ok = token, true
	t.slot.Unlock()
	t.slot.signal(t)
	return nil
}

func (t *Tab) Clear(context.Context) error {
	t.slot.Lock()
	t.slot.token, t.slot.ok = "", false
	t.slot.Unlock()
	t.slot.signal(t)
	return nil
}

func (t *Tab) Subscribe(fn func()) func() {
	t.mu.Lock()
	id := t.nextID
	t.nextID++
	t.listeners[id] = fn
	t.mu.Unlock()

	return func() {
		t.mu.Lock()
		delete(t.listeners, id)
		t.mu.Unlock()
	}
}

// signal synchronously notifies every Tab but the writer.
func (s *Slot) signal(writer *Tab) {
	s.RLock()
	tabs := make([]*Tab, 0, len(s.tabs))
	for _, tab := range s.tabs {
		if tab != writer {
			tabs = append(tabs, tab)
		}
	}
	s.RUnlock()

	for _, tab := range tabs {
		tab.mu.Lock()
		fns := make([]func(), 0, len(tab.listeners))
		for _, fn := range tab.listeners {
			fns = append(fns, fn)
		}
		tab.mu.Unlock()

		for _, fn := range fns {
			fn()
		}
	}
}

// Close detaches the Tab from its Slot.
func (t *Tab) Close() error {
	t.slot.Lock()
	defer t.slot.Unlock()
	for i, tab := range t.slot.tabs {
		if tab == t {
			t.slot.tabs = append(t.slot.tabs[:i], t.slot.tabs[i+1:]...)
			break
		}
	}
	return nil
}
