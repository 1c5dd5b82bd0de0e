package session_test

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/dgrijalva/jwt-go"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/NycolasFelipe/uninter-gestao-eventos/core/session"
	"github.com/NycolasFelipe/uninter-gestao-eventos/storage/tokenstore/inmem"
	"github.com/NycolasFelipe/uninter-gestao-eventos/tests"
)

const (
	waitFor = 2 * time.Second
	tick    = 10 * time.Millisecond
)

var errInvalidCredentials = errors.New("Invalid credentials")

// fakeAuth answers logins from a fixed email -> token table.
type fakeAuth struct {
	mu     sync.Mutex
	tokens map[string]string
	emails []string
	gate   map[string]chan struct{} // logins for these emails wait until the channel is closed
}

func (a *fakeAuth) Login(ctx context.Context, email, _ string) (string, error) {
	a.mu.Lock()
	a.emails = append(a.emails, email)
	gate := a.gate[email]
	token, ok := a.tokens[email]
	a.mu.Unlock()

	if gate != nil {
		<-gate
	}
	if !ok {
		return "", errInvalidCredentials
	}
	return token, nil
}

type countingCache struct {
	n int32
}

func (c *countingCache) InvalidateAll() { atomic.AddInt32(&c.n, 1) }
func (c *countingCache) count() int     { return int(atomic.LoadInt32(&c.n)) }

type fixture struct {
	tokens *inmemstore.Tab
	auth   *fakeAuth
	cache  *countingCache
	svc    session.Service
	states []session.State
	mu     sync.Mutex
}

func newFixture(t *testing.T, tokens *inmemstore.Tab, auth *fakeAuth) *fixture {
	f := &fixture{tokens: tokens, auth: auth, cache: new(countingCache)}
	f.svc = session.NewService(tokens, auth, f.cache, testutil.Logger())
	f.svc.Subscribe(func(st session.State) {
		f.mu.Lock()
		f.states = append(f.states, st)
		f.mu.Unlock()
	})
	t.Cleanup(f.svc.Close)
	return f
}

func (f *fixture) published() []session.State {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]session.State(nil), f.states...)
}

func anaToken(t *testing.T) string {
	return testutil.Token(t, jwt.MapClaims{"id": 1, "firstName": "Ana", "lastName": "Lima", "email": "ana@school.test"})
}

func TestService_Bootstrap(t *testing.T) {
	ctx := context.Background()
	valid := anaToken(t)
	registered := segment(`{"alg":"HS256","typ":"JWT"}`) + "." +
		segment(`{"sub":1,"aud":["console"],"id":1,"firstName":"Ana","lastName":"Lima","iat":1700000000.123,"exp":1700086400}`) + ".sig"

	tests := []struct {
		name      string
		stored    *string
		wantAuthd bool
	}{
		{name: "absent", stored: nil},
		{name: "valid token", stored: &valid, wantAuthd: true},
		{name: "numeric sub & audience list", stored: &registered, wantAuthd: true},
		{name: "malformed token", stored: strPtr("not-a-token")},
		{name: "empty token", stored: strPtr("")},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tokens := inmemstore.New()
			if tt.stored != nil {
				require.NoError(t, tokens.Set(ctx, *tt.stored))
			}
			f := newFixture(t, tokens, &fakeAuth{})
			assert.True(t, f.svc.State().Loading)

			st := f.svc.Bootstrap(ctx)
			assert.False(t, st.Loading)
			assert.Equal(t, tt.wantAuthd, st.Authenticated)
			assert.Equal(t, st.Authenticated, st.User != nil)
			assert.Equal(t, st, f.svc.State())
			if tt.wantAuthd {
				assert.Equal(t, "Ana Lima", st.User.DisplayName())
			}

			// bootstrapping again changes nothing
			f.svc.Bootstrap(ctx)
			assert.Len(t, f.published(), 1)
		})
	}
}

func TestService_Login(t *testing.T) {
	ctx := context.Background()
	token := anaToken(t)
	auth := &fakeAuth{tokens: map[string]string{"Ana@School.TEST": token, "bad@school.test": "garbage"}}
	f := newFixture(t, inmemstore.New(), auth)
	f.svc.Bootstrap(ctx)

	// failure leaves everything untouched
	st, err := f.svc.Login(ctx, "nobody@school.test", "x")
	assert.Equal(t, errInvalidCredentials, errors.Cause(err))
	assert.False(t, st.Authenticated)
	assert.Equal(t, 0, f.cache.count())

	// a token that does not decode is never stored
	_, err = f.svc.Login(ctx, "bad@school.test", "x")
	var decErr *session.DecodeError
	assert.True(t, errors.As(err, &decErr))
	_, ok, _ := f.tokens.Get(ctx)
	assert.False(t, ok)

	// credentials reach the backend exactly as typed
	_, err = f.svc.Login(ctx, " Ana@School.TEST ", "secret")
	assert.Equal(t, errInvalidCredentials, errors.Cause(err))
	assert.Equal(t, " Ana@School.TEST ", auth.emails[len(auth.emails)-1])

	st, err = f.svc.Login(ctx, "Ana@School.TEST", "secret")
	require.NoError(t, err)
	assert.True(t, st.Authenticated)
	assert.Equal(t, int64(1), st.User.ID)
	assert.Equal(t, "Ana@School.TEST", auth.emails[len(auth.emails)-1])
	assert.Equal(t, 1, f.cache.count())

	stored, ok, err := f.tokens.Get(ctx)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, token, stored)

	states := f.published()
	require.Len(t, states, 2) // bootstrap, login
	assert.True(t, states[1].Authenticated)
}

func TestService_Logout(t *testing.T) {
	ctx := context.Background()
	tokens := inmemstore.New()
	require.NoError(t, tokens.Set(ctx, anaToken(t)))
	f := newFixture(t, tokens, &fakeAuth{})
	require.True(t, f.svc.Bootstrap(ctx).Authenticated)

	require.NoError(t, f.svc.Logout(ctx))
	assert.False(t, f.svc.State().Authenticated)
	_, ok, _ := tokens.Get(ctx)
	assert.False(t, ok)
	assert.Equal(t, 1, f.cache.count())

	// idempotent
	require.NoError(t, f.svc.Logout(ctx))
	assert.False(t, f.svc.State().Authenticated)
	assert.Len(t, f.published(), 2) // bootstrap, logout
}

func TestService_Login_stale(t *testing.T) {
	ctx := context.Background()
	gate := make(chan struct{})
	auth := &fakeAuth{
		tokens: map[string]string{"ana@school.test": anaToken(t)},
		gate:   map[string]chan struct{}{"ana@school.test": gate},
	}
	f := newFixture(t, inmemstore.New(), auth)
	f.svc.Bootstrap(ctx)

	done := make(chan error)
	go func() {
		_, err := f.svc.Login(ctx, "ana@school.test", "secret")
		done <- err
	}()

	// wait for the login call to reach the backend, then log out before it answers
	require.Eventually(t, func() bool {
		auth.mu.Lock()
		defer auth.mu.Unlock()
		return len(auth.emails) == 1
	}, waitFor, tick)
	require.NoError(t, f.svc.Logout(ctx))
	close(gate)

	assert.Equal(t, session.ErrStaleLogin, <-done)
	assert.False(t, f.svc.State().Authenticated)
	_, ok, _ := f.tokens.Get(ctx)
	assert.False(t, ok, "stale login must not store its token")
}

func TestService_followsOtherTabs(t *testing.T) {
	ctx := context.Background()
	auth := &fakeAuth{tokens: map[string]string{"ana@school.test": anaToken(t)}}
	slot := inmemstore.NewSlot()
	tabA := newFixture(t, slot.Tab(), auth)
	tabB := newFixture(t, slot.Tab(), auth)
	tabA.svc.Bootstrap(ctx)
	tabB.svc.Bootstrap(ctx)

	_, err := tabA.svc.Login(ctx, "ana@school.test", "secret")
	require.NoError(t, err)
	stB := tabB.svc.State()
	require.True(t, stB.Authenticated)
	assert.Equal(t, "ana@school.test", stB.User.Email)
	assert.Equal(t, 1, tabB.cache.count())

	require.NoError(t, tabA.svc.Logout(ctx))
	assert.False(t, tabB.svc.State().Authenticated)
	assert.Equal(t, 2, tabB.cache.count())

	// a closed session stops following the slot
	tabB.svc.Close()
	_, err = tabA.svc.Login(ctx, "ana@school.test", "secret")
	require.NoError(t, err)
	assert.False(t, tabB.svc.State().Authenticated)
}

func TestService_Subscribe_unsubscribe(t *testing.T) {
	ctx := context.Background()
	svc := session.NewService(inmemstore.New(), &fakeAuth{}, new(countingCache), testutil.Logger())
	defer svc.Close()

	var calls int32
	unsubscribe := svc.Subscribe(func(session.State) { atomic.AddInt32(&calls, 1) })
	svc.Bootstrap(ctx)
	unsubscribe()
	require.NoError(t, svc.Logout(ctx)) // already anonymous: no change either way
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
}

func strPtr(s string) *string { return &s }
