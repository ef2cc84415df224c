package tinkoff

import (
	"context"
	"encoding/json"
	"errors"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type recordedCall struct {
	path  string
	query url.Values
	form  url.Values
}

// fakeTransport answers each path with a canned body and records the calls
type fakeTransport struct {
	bodies map[string]string
	errs   map[string]error
	calls  []recordedCall
}

func (f *fakeTransport) Call(ctx context.Context, path string, query, form url.Values) ([]byte, error) {
	f.calls = append(f.calls, recordedCall{path: path, query: query, form: form})
	if err, ok := f.errs[path]; ok {
		return nil, err
	}
	return []byte(f.bodies[path]), nil
}

func newTestClient(transport Transport, id Identity) *Client {
	return &Client{
		transport:   transport,
		identity:    id,
		origin:      DefaultOrigin,
		fingerprint: DefaultFingerprint(),
		log:         zap.NewNop(),
	}
}

func respondWith(body string) Transport {
	return TransportFunc(func(ctx context.Context, path string, query, form url.Values) ([]byte, error) {
		return []byte(body), nil
	})
}

func TestInvoke_ClassifiesResultCodes(t *testing.T) {
	tests := []struct {
		name     string
		body     string
		sentinel error
		target   any
	}{
		{
			name:     "invalid request data",
			body:     `{"resultCode":"INVALID_REQUEST_DATA","plainMessage":"bad password"}`,
			sentinel: ErrInvalidRequestData,
			target:   new(*InvalidRequestDataError),
		},
		{
			name:     "waiting confirmation",
			body:     `{"resultCode":"WAITING_CONFIRMATION","initialOperation":"sign_up","operationTicket":"T"}`,
			sentinel: ErrConfirmationRequired,
			target:   new(*ConfirmationRequiredError),
		},
		{
			name:     "insufficient privileges",
			body:     `{"resultCode":"INSUFFICIENT_PRIVILEGES"}`,
			sentinel: ErrInsufficientPrivileges,
			target:   new(*InsufficientPrivilegesError),
		},
		{
			name:     "unknown code",
			body:     `{"resultCode":"REQUEST_RATE_LIMIT_EXCEEDED","payload":{"x":1}}`,
			sentinel: ErrUnrecognizedResult,
			target:   new(*UnrecognizedResultError),
		},
		{
			name:     "missing code",
			body:     `{"payload":true}`,
			sentinel: ErrTransport,
			target:   new(*TransportError),
		},
	}

	sentinels := []error{ErrInvalidRequestData, ErrConfirmationRequired, ErrInsufficientPrivileges, ErrUnrecognizedResult, ErrTransport}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			transport := respondWith(tt.body)
			c := newTestClient(transport, Identity{WebUserID: "W", SessionID: "S"})

			payload, err := c.Invoke(context.Background(), MethodPing, nil, nil)

			assert.Nil(t, payload)
			require.Error(t, err)
			assert.True(t, errors.As(err, tt.target))
			for _, s := range sentinels {
				assert.Equal(t, s == tt.sentinel, errors.Is(err, s), "sentinel %v", s)
			}
		})
	}
}

func TestInvoke_InvalidRequestDataCarriesMessage(t *testing.T) {
	transport := respondWith(`{"resultCode":"INVALID_REQUEST_DATA","plainMessage":"Неверный пароль"}`)
	c := newTestClient(transport, Identity{})

	_, err := c.Invoke(context.Background(), MethodSignUp, nil, nil)

	var ire *InvalidRequestDataError
	require.True(t, errors.As(err, &ire))
	assert.Equal(t, "Неверный пароль", ire.Message)
	assert.Equal(t, MethodSignUp, ire.Method)
}

func TestInvoke_UnrecognizedResultCarriesCode(t *testing.T) {
	transport := respondWith(`{"resultCode":"DEVICE_LINK_NEEDED"}`)
	c := newTestClient(transport, Identity{})

	_, err := c.Invoke(context.Background(), MethodLevelUp, nil, nil)

	var ure *UnrecognizedResultError
	require.True(t, errors.As(err, &ure))
	assert.Equal(t, "DEVICE_LINK_NEEDED", ure.Code)
	assert.Contains(t, err.Error(), "DEVICE_LINK_NEEDED")
}

func TestInvoke_ReturnsPayloadUnchanged(t *testing.T) {
	transport := respondWith(`{"resultCode":"OK","payload":{"accessLevel":"CLIENT","list":[1,2,{"a":null}]}}`)
	c := newTestClient(transport, Identity{})

	payload, err := c.Invoke(context.Background(), MethodSessionStatus, nil, nil)

	require.NoError(t, err)
	assert.True(t, payload.Present())
	assert.JSONEq(t, `{"accessLevel":"CLIENT","list":[1,2,{"a":null}]}`, string(payload))
}

func TestInvoke_SuccessWithoutPayload(t *testing.T) {
	for _, body := range []string{`{"resultCode":"OK"}`, `{"resultCode":"OK","payload":null}`} {
		transport := respondWith(body)
		c := newTestClient(transport, Identity{})

		payload, err := c.Invoke(context.Background(), MethodWarmUpCache, nil, nil)

		require.NoError(t, err, body)
		assert.False(t, payload.Present(), body)
		assert.ErrorIs(t, payload.Decode(&struct{}{}), ErrNoPayload)
	}
}

func TestInvoke_FormDecidesRequestShape(t *testing.T) {
	ft := &fakeTransport{bodies: map[string]string{"/v1/ping": `{"resultCode":"OK"}`}}
	var transport Transport = ft
	c := newTestClient(transport, Identity{})

	query := url.Values{"origin": {"o"}}
	_, err := c.Invoke(context.Background(), MethodPing, query, url.Values{})
	require.NoError(t, err)
	_, err = c.Invoke(context.Background(), MethodPing, query, url.Values{"a": {"b"}})
	require.NoError(t, err)

	require.Len(t, ft.calls, 2)
	assert.Equal(t, "/v1/ping", ft.calls[0].path)
	assert.Nil(t, ft.calls[0].form)
	assert.Equal(t, query, ft.calls[0].query)
	assert.Equal(t, "b", ft.calls[1].form.Get("a"))
	assert.Equal(t, query, ft.calls[1].query)
}

func TestInvoke_TransportFailurePropagates(t *testing.T) {
	cause := errors.New("connection refused")
	var transport Transport = &fakeTransport{errs: map[string]error{"/v1/ping": cause}}
	c := newTestClient(transport, Identity{})

	_, err := c.Invoke(context.Background(), MethodPing, nil, nil)

	assert.ErrorIs(t, err, ErrTransport)
	assert.ErrorIs(t, err, cause)
	var te *TransportError
	require.True(t, errors.As(err, &te))
	assert.Equal(t, MethodPing, te.Method)
}

func TestInvoke_UndecodableBody(t *testing.T) {
	transport := respondWith(`<html>maintenance</html>`)
	c := newTestClient(transport, Identity{})

	_, err := c.Invoke(context.Background(), MethodPing, nil, nil)

	assert.ErrorIs(t, err, ErrTransport)
}

func TestInvoke_EnvelopeOnErrorStatusIsClassified(t *testing.T) {
	transport := TransportFunc(func(ctx context.Context, path string, query, form url.Values) ([]byte, error) {
		return nil, &TransportError{Path: path, StatusCode: 403, Body: []byte(`{"resultCode":"INSUFFICIENT_PRIVILEGES"}`)}
	})
	c := newTestClient(transport, Identity{})

	_, err := c.Invoke(context.Background(), MethodAccountsFlat, nil, nil)

	assert.ErrorIs(t, err, ErrInsufficientPrivileges)
	assert.NotErrorIs(t, err, ErrTransport)
}

func TestInvoke_ErrorStatusWithoutEnvelope(t *testing.T) {
	transport := TransportFunc(func(ctx context.Context, path string, query, form url.Values) ([]byte, error) {
		return nil, &TransportError{Path: path, StatusCode: 502, Body: []byte(`bad gateway`)}
	})
	c := newTestClient(transport, Identity{})

	_, err := c.Invoke(context.Background(), MethodPing, nil, nil)

	var te *TransportError
	require.True(t, errors.As(err, &te))
	assert.Equal(t, 502, te.StatusCode)
	assert.Equal(t, MethodPing, te.Method)
}

func TestInvoke_BodyWithoutResultCodeIgnoresStatus(t *testing.T) {
	for _, body := range []string{`null`, `{}`, `{"payload":true}`, `{"resultCode":""}`} {
		t.Run(body, func(t *testing.T) {
			ok := newTestClient(respondWith(body), Identity{})
			_, err := ok.Invoke(context.Background(), MethodPing, nil, nil)

			var te *TransportError
			require.True(t, errors.As(err, &te))
			assert.Equal(t, MethodPing, te.Method)
			assert.Equal(t, body, string(te.Body))

			failing := newTestClient(TransportFunc(func(ctx context.Context, path string, query, form url.Values) ([]byte, error) {
				return nil, &TransportError{Path: path, StatusCode: 500, Body: []byte(body)}
			}), Identity{})
			_, err = failing.Invoke(context.Background(), MethodPing, nil, nil)

			require.True(t, errors.As(err, &te))
			assert.Equal(t, 500, te.StatusCode)
			assert.NotErrorIs(t, err, ErrUnrecognizedResult)
		})
	}
}

func TestInvoke_ChallengeSnapshotsIdentity(t *testing.T) {
	body := `{"resultCode":"WAITING_CONFIRMATION","initialOperation":"M1","operationTicket":"T1","confirmations":["SMSBYID"],"confirmationData":{"SMSBYID":{"codeLength":4}}}`
	transport := respondWith(body)
	c := newTestClient(transport, Identity{WebUserID: "W1", SessionID: "S1"})

	_, err := c.SignUp(context.Background(), "u", "p")

	challenge, ok := AsChallenge(err)
	require.True(t, ok)
	assert.Equal(t, "M1", challenge.Operation)
	assert.Equal(t, "T1", challenge.Ticket)
	assert.Equal(t, Identity{WebUserID: "W1", SessionID: "S1"}, challenge.Identity)
	assert.JSONEq(t, body, string(challenge.Data))

	var extra struct {
		Confirmations []string `json:"confirmations"`
	}
	require.NoError(t, challenge.Decode(&extra))
	assert.Equal(t, []string{"SMSBYID"}, extra.Confirmations)

	// the challenge survives a JSON round trip for callers that persist it
	encoded, err := json.Marshal(challenge)
	require.NoError(t, err)
	var restored Challenge
	require.NoError(t, json.Unmarshal(encoded, &restored))
	assert.Equal(t, challenge.Identity, restored.Identity)
	assert.Equal(t, challenge.Ticket, restored.Ticket)
}

func TestAsChallenge_OtherErrors(t *testing.T) {
	_, ok := AsChallenge(&InsufficientPrivilegesError{Method: MethodPing})
	assert.False(t, ok)
	_, ok = AsChallenge(nil)
	assert.False(t, ok)
}

func TestBootstrap_FetchesWebUserFirst(t *testing.T) {
	ft := &fakeTransport{bodies: map[string]string{
		"/v1/webuser": `{"resultCode":"OK","payload":{"wuid":"W1"}}`,
		"/v1/session": `{"resultCode":"OK","payload":"S1"}`,
	}}

	id, err := Bootstrap(context.Background(), ft, Identity{})

	require.NoError(t, err)
	assert.Equal(t, Identity{WebUserID: "W1", SessionID: "S1"}, id)
	require.Len(t, ft.calls, 2)

	assert.Equal(t, "/v1/webuser", ft.calls[0].path)
	assert.Empty(t, ft.calls[0].query)

	assert.Equal(t, "/v1/session", ft.calls[1].path)
	assert.Equal(t, "W1", ft.calls[1].query.Get("wuid"))
	assert.False(t, ft.calls[1].query.Has("origin"))
	assert.False(t, ft.calls[1].query.Has("sessionid"))
}

func TestBootstrap_KnownSessionIsSentToWebUser(t *testing.T) {
	ft := &fakeTransport{bodies: map[string]string{
		"/v1/webuser": `{"resultCode":"OK","payload":{"wuid":"W9"}}`,
	}}

	id, err := Bootstrap(context.Background(), ft, Identity{SessionID: "S9"})

	require.NoError(t, err)
	assert.Equal(t, Identity{WebUserID: "W9", SessionID: "S9"}, id)
	require.Len(t, ft.calls, 1)
	assert.Equal(t, "S9", ft.calls[0].query.Get("sessionid"))
	assert.False(t, ft.calls[0].query.Has("origin"))
}

func TestBootstrap_KnownIdentityMakesNoCalls(t *testing.T) {
	ft := &fakeTransport{}

	id, err := Bootstrap(context.Background(), ft, Identity{WebUserID: "W", SessionID: "S"})

	require.NoError(t, err)
	assert.Equal(t, Identity{WebUserID: "W", SessionID: "S"}, id)
	assert.Empty(t, ft.calls)
}

func TestBootstrap_PropagatesFailures(t *testing.T) {
	ft := &fakeTransport{bodies: map[string]string{
		"/v1/webuser": `{"resultCode":"OK","payload":{"wuid":"W1"}}`,
		"/v1/session": `{"resultCode":"INVALID_REQUEST_DATA","plainMessage":"blocked"}`,
	}}

	id, err := Bootstrap(context.Background(), ft, Identity{})

	assert.ErrorIs(t, err, ErrInvalidRequestData)
	assert.Equal(t, Identity{}, id)
}

func TestBootstrap_MalformedPayloads(t *testing.T) {
	tests := map[string]map[string]string{
		"webuser without wuid": {
			"/v1/webuser": `{"resultCode":"OK","payload":{}}`,
		},
		"webuser without payload": {
			"/v1/webuser": `{"resultCode":"OK"}`,
		},
		"session not a string": {
			"/v1/webuser": `{"resultCode":"OK","payload":{"wuid":"W1"}}`,
			"/v1/session": `{"resultCode":"OK","payload":{"id":"S1"}}`,
		},
	}

	for name, bodies := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := Bootstrap(context.Background(), &fakeTransport{bodies: bodies}, Identity{})
			assert.ErrorIs(t, err, ErrTransport)
		})
	}
}

func TestNew_UsesOptions(t *testing.T) {
	ft := &fakeTransport{bodies: map[string]string{
		"/v1/ping": `{"resultCode":"OK","payload":{"accessLevel":"ANONYMOUS"}}`,
	}}

	c, err := New(context.Background(), Identity{WebUserID: "W", SessionID: "S"},
		WithTransport(ft),
		WithOrigin("test"),
		WithLogger(zap.NewNop()),
	)
	require.NoError(t, err)

	_, err = c.Ping(context.Background())
	require.NoError(t, err)

	require.Len(t, ft.calls, 1)
	assert.Equal(t, "test", ft.calls[0].query.Get("origin"))
	assert.Equal(t, "S", ft.calls[0].query.Get("sessionid"))
	assert.Equal(t, "W", ft.calls[0].query.Get("wuid"))
}

func TestNew_BootstrapFailure(t *testing.T) {
	ft := &fakeTransport{bodies: map[string]string{
		"/v1/webuser": `{"resultCode":"INSUFFICIENT_PRIVILEGES"}`,
	}}

	c, err := New(context.Background(), Identity{}, WithTransport(ft))

	assert.Nil(t, c)
	assert.ErrorIs(t, err, ErrInsufficientPrivileges)
}

func TestResume_MakesNoCalls(t *testing.T) {
	ft := &fakeTransport{bodies: map[string]string{
		"/v1/confirm": `{"resultCode":"OK"}`,
	}}
	challenge := Challenge{Operation: "M1", Ticket: "T1", Identity: Identity{WebUserID: "W1", SessionID: "S1"}}

	c, err := Resume(context.Background(), challenge, WithTransport(ft))
	require.NoError(t, err)
	assert.Equal(t, challenge.Identity, c.Identity())
	assert.Empty(t, ft.calls)

	_, err = c.Confirm(context.Background(), challenge, "1234")
	require.NoError(t, err)
	require.Len(t, ft.calls, 1)
	assert.Equal(t, "S1", ft.calls[0].query.Get("sessionid"))
}

func TestResume_RejectsIncompleteSnapshot(t *testing.T) {
	for _, id := range []Identity{{WebUserID: "W1"}, {SessionID: "S1"}, {}} {
		ft := &fakeTransport{bodies: map[string]string{
			"/v1/webuser": `{"resultCode":"OK","payload":{"wuid":"W-new"}}`,
			"/v1/session": `{"resultCode":"OK","payload":"S-new"}`,
		}}

		c, err := Resume(context.Background(), Challenge{Identity: id}, WithTransport(ft))

		assert.Nil(t, c)
		assert.ErrorIs(t, err, ErrIncompleteIdentity)
		assert.Empty(t, ft.calls)
	}
}
