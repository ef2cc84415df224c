package tinkoff

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"
)

const (
	// DefaultBaseURL is the endpoint of the bank API
	DefaultBaseURL = "https://api.tinkoff.ru"

	// DefaultOrigin identifies the client channel to the remote side
	DefaultOrigin = "web,ib5,platform"
)

// Remote method names
const (
	MethodSignUp        = "sign_up"
	MethodConfirm       = "confirm"
	MethodLevelUp       = "level_up"
	MethodSessionStatus = "session_status"
	MethodWarmUpCache   = "warmup_cache"
	MethodPersonalInfo  = "personal_info"
	MethodAccountsFlat  = "accounts_flat"
	MethodWebUser       = "webuser"
	MethodSession       = "session"
	MethodPing          = "ping"
)

// Client calls the bank API on behalf of one identity. The identity is fixed
// once New returns, so a Client can be shared between goroutines.
type Client struct {
	transport   Transport
	identity    Identity
	origin      string
	fingerprint map[string]string
	log         *zap.Logger
}

// Option configures the client
type Option func(*Client)

// WithTransport sets the transport used for every call
func WithTransport(t Transport) Option {
	return func(c *Client) {
		c.transport = t
	}
}

// WithHTTPClient sets the HTTP client of the default transport. A nil client
// is ignored. The transport is copied first, so an *HTTPTransport shared
// through WithTransport is never modified.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc == nil {
			return
		}
		if ht, ok := c.transport.(*HTTPTransport); ok {
			clone := *ht
			clone.client = hc
			c.transport = &clone
		}
	}
}

// WithBaseURL points the default transport at another endpoint. Like
// WithHTTPClient it changes a copy of the transport.
func WithBaseURL(baseURL string) Option {
	return func(c *Client) {
		if ht, ok := c.transport.(*HTTPTransport); ok {
			clone := *ht
			clone.baseURL = strings.TrimRight(baseURL, "/")
			c.transport = &clone
		}
	}
}

// WithOrigin overrides the origin tag
func WithOrigin(origin string) Option {
	return func(c *Client) {
		c.origin = origin
	}
}

// WithFingerprint replaces the device fingerprint sent on sign up
func WithFingerprint(fp map[string]string) Option {
	return func(c *Client) {
		c.fingerprint = fp
	}
}

// WithLogger sets the logger. Only debug traces are written.
func WithLogger(log *zap.Logger) Option {
	return func(c *Client) {
		c.log = log
	}
}

// New creates a client for known, fetching the absent parts of the identity
// from the remote side.
func New(ctx context.Context, known Identity, opts ...Option) (*Client, error) {
	c := newClient(opts)

	identity, err := bootstrap(ctx, c.transport, c.log, known)
	if err != nil {
		return nil, err
	}
	c.identity = identity

	return c, nil
}

// Resume creates a client holding the identity snapshot of a challenge. It
// makes no remote call, so the snapshot must carry both tokens.
func Resume(ctx context.Context, challenge Challenge, opts ...Option) (*Client, error) {
	if !challenge.Identity.Complete() {
		return nil, ErrIncompleteIdentity
	}

	c := newClient(opts)
	c.identity = challenge.Identity
	return c, nil
}

func newClient(opts []Option) *Client {
	c := &Client{
		transport:   NewHTTPTransport(DefaultBaseURL, nil),
		origin:      DefaultOrigin,
		fingerprint: DefaultFingerprint(),
		log:         zap.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Identity returns the identity held by the client
func (c *Client) Identity() Identity {
	return c.identity
}

// withIdentity returns a copy of the client bound to id
func (c *Client) withIdentity(id Identity) *Client {
	clone := *c
	clone.identity = id
	return &clone
}

// Invoke calls /v1/{method}. The call carries a form body when form is
// non-empty. The payload of an OK result is returned as is; every other
// result code is turned into an error.
func (c *Client) Invoke(ctx context.Context, method string, query, form url.Values) (Payload, error) {
	return invoke(ctx, c.transport, c.log, c.identity, method, query, form)
}

// identityQuery returns the query every identity-bearing call carries
func (c *Client) identityQuery() url.Values {
	q := url.Values{}
	q.Set("origin", c.origin)
	q.Set("sessionid", c.identity.SessionID)
	q.Set("wuid", c.identity.WebUserID)
	return q
}

func invoke(ctx context.Context, transport Transport, log *zap.Logger, id Identity, method string, query, form url.Values) (Payload, error) {
	path := "/v1/" + method
	if len(form) == 0 {
		form = nil
	}

	start := time.Now()
	data, err := transport.Call(ctx, path, query, form)
	if err != nil {
		env, ok := envelopeFromFailure(err)
		if !ok {
			log.Debug("remote call failed",
				zap.String("method", method),
				zap.Duration("took", time.Since(start)),
				zap.Error(err),
			)
			return nil, transportFailure(method, err)
		}
		return classify(log, method, id, env, start)
	}

	env, err := decodeEnvelope(data)
	if err != nil {
		return nil, &TransportError{Method: method, Path: path, Body: data, Err: err}
	}

	return classify(log, method, id, env, start)
}

// envelopeFromFailure recovers a result envelope sent with a non-2xx status
func envelopeFromFailure(err error) (*Envelope, bool) {
	var te *TransportError
	if !errors.As(err, &te) || te.StatusCode == 0 || len(te.Body) == 0 {
		return nil, false
	}
	env, derr := decodeEnvelope(te.Body)
	if derr != nil {
		return nil, false
	}
	return env, true
}

func classify(log *zap.Logger, method string, id Identity, env *Envelope, start time.Time) (Payload, error) {
	log.Debug("remote call finished",
		zap.String("method", method),
		zap.String("result_code", env.ResultCode),
		zap.Duration("took", time.Since(start)),
	)

	switch env.ResultCode {
	case ResultOK:
		payload := Payload(env.Payload)
		if !payload.Present() {
			return nil, nil
		}
		return payload, nil

	case ResultInvalidRequestData:
		return nil, &InvalidRequestDataError{Method: method, Message: env.PlainMessage}

	case ResultWaitingConfirmation:
		return nil, &ConfirmationRequiredError{
			Method: method,
			Challenge: Challenge{
				Operation: env.InitialOperation,
				Ticket:    env.OperationTicket,
				Identity:  id,
				Data:      env.Raw,
			},
		}

	case ResultInsufficientPrivileges:
		return nil, &InsufficientPrivilegesError{Method: method}

	default:
		return nil, &UnrecognizedResultError{Method: method, Code: env.ResultCode}
	}
}
