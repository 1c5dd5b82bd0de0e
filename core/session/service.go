package session

import (
	"context"
	"reflect"
	"sync"

	"github.com/pkg/errors"

	"github.com/NycolasFelipe/uninter-gestao-eventos/core"
)

// ErrStaleLogin is returned by Login when a newer login or logout was issued while it was in flight.
var ErrStaleLogin = errors.New("login superseded by a newer session change")

// State is the console's belief about who is logged in.
// Authenticated == (User != nil) always holds.
type State struct {
	Loading       bool        `json:"loading"`
	Authenticated bool        `json:"authenticated"`
	User          *UserClaims `json:"user"`
}

func anonymous() State {
	return State{}
}

func authenticated(claims UserClaims) State {
	return State{Authenticated: true, User: &claims}
}

func (s State) equal(o State) bool {
	return s.Loading == o.Loading && s.Authenticated == o.Authenticated && reflect.DeepEqual(s.User, o.User)
}

type (
	// Service owns the session lifecycle: Bootstrapping -> {Authenticated(user), Anonymous}.
	Service interface {
		State() State
		// Subscribe registers fn to be called with the new State after every change.
		Subscribe(fn func(State)) (unsubscribe func())
		// Bootstrap re-derives the State from the token slot. Malformed tokens count as logged out.
		Bootstrap(ctx context.Context) State
		// Login sends the credentials to the backend exactly as given.
		Login(ctx context.Context, email, password string) (State, error)
		Logout(ctx context.Context) error
		// Close stops following the token slot's change signal.
		Close()
	}

	service struct {
		tokens TokenStore
		auth   Authenticator
		cache  Invalidator
		logger core.Logger

		mu        sync.Mutex
		state     State
		seq       uint64 // bumped by every Login & Logout
		listeners map[int]func(State)
		nextID    int

		closeOnce sync.Once
		unwatch   func()
	}
)

var _ Service = (*service)(nil)

// NewService returns a Service in the Loading state.
// When tokens is a Notifier, the Service re-bootstraps on every change signal until Close is called.
func NewService(tokens TokenStore, auth Authenticator, cache Invalidator, logger core.Logger) Service {
	svc := &service{
		tokens:    tokens,
		auth:      auth,
		cache:     cache,
		logger:    logger,
		state:     State{Loading: true},
		listeners: make(map[int]func(State)),
	}
	if n, ok := tokens.(Notifier); ok {
		svc.unwatch = n.Subscribe(svc.onSlotChanged)
	}
	return svc
}

func (svc *service) State() State {
	svc.mu.Lock()
	defer svc.mu.Unlock()
	return svc.state
}

func (svc *service) Subscribe(fn func(State)) func() {
	svc.mu.Lock()
	id := svc.nextID
	svc.nextID++
	svc.listeners[id] = fn
	svc.mu.Unlock()

	return func() {
		svc.mu.Lock()
		delete(svc.listeners, id)
		svc.mu.Unlock()
	}
}

func (svc *service) Bootstrap(ctx context.Context) State {
	next := svc.derive(ctx)

	svc.mu.Lock()
	changed := svc.commit(next)
	svc.mu.Unlock()

	if changed {
		svc.publish(next)
	}
	return next
}

func (svc *service) Login(ctx context.Context, email, password string) (State, error) {
	svc.mu.Lock()
	svc.seq++
	seq := svc.seq
	svc.mu.Unlock()

	token, err := svc.auth.Login(ctx, email, password)
	if err != nil {
		return svc.State(), errors.Wrap(err, "logging in")
	}
	claims, err := Decode(token)
	if err != nil {
		return svc.State(), errors.Wrap(err, "decoding login token")
	}

	svc.mu.Lock()
	if seq != svc.seq {
		state := svc.state
		svc.mu.Unlock()
		svc.logger.Debug("discarding stale login response", map[string]interface{}{"email": claims.Email})
		return state, ErrStaleLogin
	}
	if err = svc.tokens.Set(ctx, token); err != nil {
		state := svc.state
		svc.mu.Unlock()
		return state, errors.Wrap(err, "storing token")
	}
	next := authenticated(claims)
	svc.commit(next)
	svc.mu.Unlock()

	// stale pre-login data must never reach the next view
	svc.cache.InvalidateAll()
	svc.publish(next)
	svc.logger.Info("logged in", claims)
	return next, nil
}

func (svc *service) Logout(ctx context.Context) error {
	svc.mu.Lock()
	svc.seq++
	err := svc.tokens.Clear(ctx)
	next := anonymous()
	changed := svc.commit(next)
	svc.mu.Unlock()

	svc.cache.InvalidateAll()
	if changed {
		svc.publish(next)
	}
	return errors.Wrap(err, "clearing token")
}

func (svc *service) Close() {
	svc.closeOnce.Do(func() {
		if svc.unwatch != nil {
			svc.unwatch()
		}
	})
}

// onSlotChanged follows logins & logouts made by another holder of the token slot.
func (svc *service) onSlotChanged() {
	next := svc.derive(context.Background())

	svc.mu.Lock()
	prev := svc.state
	changed := svc.commit(next)
	svc.mu.Unlock()

	if !changed {
		return
	}
	if prev.Authenticated != next.Authenticated || !reflect.DeepEqual(prev.User, next.User) {
		// another identity (or none) now owns the slot: cached results belong to the previous one
		svc.cache.InvalidateAll()
	}
	svc.publish(next)
}

func (svc *service) derive(ctx context.Context) State {
	token, ok, err := svc.tokens.Get(ctx)
	if err != nil {
		svc.logger.Error("reading token slot", errors.Wrap(err, "bootstrapping session"))
		return anonymous()
	}
	if !ok {
		return anonymous()
	}
	claims, err := Decode(token)
	if err != nil {
		svc.logger.Debug("ignoring malformed token", err)
		return anonymous()
	}
	return authenticated(claims)
}

// commit must be called with mu held.
func (svc *service) commit(next State) bool {
	if svc.state.equal(next) {
		return false
	}
	svc.state = next
	return true
}

// publish calls the listeners outside of mu so that they may read the State.
func (svc *service) publish(state State) {
	svc.mu.Lock()
	fns := make([]func(State), 0, len(svc.listeners))
	for _, fn := range svc.listeners {
		fns = append(fns, fn)
	}
	svc.mu.Unlock()

	for _, fn := range fns {
		fn(state)
	}
}
