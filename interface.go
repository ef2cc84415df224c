package tinkoff

import (
	"context"
	"net/url"
)

// API represents the public interface for interacting with the bank API
type API interface {
	// Identity returns the web-user id and session id held by the client
	Identity() Identity

	// Invoke calls an arbitrary remote method and classifies its result
	Invoke(ctx context.Context, method string, query, form url.Values) (Payload, error)

	// SignUp logs in with a username and password
	SignUp(ctx context.Context, username, password string) (Payload, error)

	// ConfirmBySMS completes a pending operation with a one-time SMS code
	ConfirmBySMS(ctx context.Context, operation, ticket, code string) (Payload, error)

	// LevelUp elevates the session privileges after a successful login
	LevelUp(ctx context.Context) (Payload, error)

	// SessionStatus returns the state of the current session
	SessionStatus(ctx context.Context) (Payload, error)

	// Ping keeps the session alive
	Ping(ctx context.Context) (Payload, error)

	// WarmUpCache asks the remote side to prime its caches
	WarmUpCache(ctx context.Context, fields url.Values) error

	// PersonalInfo returns the profile of the logged in user
	PersonalInfo(ctx context.Context) (Payload, error)

	// AccountsFlat returns the accounts and their balances
	AccountsFlat(ctx context.Context) (Payload, error)
}

// Transport represents the boundary to the remote HTTP service
type Transport interface {
	// Call issues a request to path with the query parameters and, when form is
	// non-empty, a form-encoded body. It returns the raw response body.
	Call(ctx context.Context, path string, query, form url.Values) ([]byte, error)
}

// TransportFunc adapts an ordinary function to the Transport interface
type TransportFunc func(ctx context.Context, path string, query, form url.Values) ([]byte, error)

// Call calls f(ctx, path, query, form)
func (f TransportFunc) Call(ctx context.Context, path string, query, form url.Values) ([]byte, error) {
	return f(ctx, path, query, form)
}

var _ API = (*Client)(nil)
