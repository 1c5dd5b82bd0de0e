package session

import "context"

type (
	// TokenStore persists the single bearer token slot.
	// Absence is a valid state (logged out); Set overwrites any previous token.
	TokenStore interface {
		Get(ctx context.Context) (token string, ok bool, err error)
		Set(ctx context.Context, token string) error
		Clear(ctx context.Context) error
	}

	// Notifier is implemented by token stores shared with other consoles.
	// Subscribe registers fn to be called whenever the slot may have been changed by another holder.
	Notifier interface {
		Subscribe(fn func()) (unsubscribe func())
	}

	// Authenticator exchanges credentials for a bearer token.
	Authenticator interface {
		Login(ctx context.Context, email, password string) (token string, err error)
	}

	// Invalidator drops every cached request result.
	Invalidator interface {
		InvalidateAll()
	}
)
