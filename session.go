package tinkoff

import (
	"context"
	"errors"
	"fmt"
	"net/url"

	"go.uber.org/zap"
)

// Identity is the pair of opaque tokens the remote side uses to recognise a
// client. Empty fields are absent.
type Identity struct {
	WebUserID string `json:"wuid,omitempty"`
	SessionID string `json:"sessionid,omitempty"`
}

// Complete reports whether both tokens are known
func (id Identity) Complete() bool {
	return id.WebUserID != "" && id.SessionID != ""
}

// query returns the identity as query parameters, skipping absent tokens
func (id Identity) query() url.Values {
	q := url.Values{}
	if id.SessionID != "" {
		q.Set("sessionid", id.SessionID)
	}
	if id.WebUserID != "" {
		q.Set("wuid", id.WebUserID)
	}
	return q
}

// Bootstrap fills in whatever part of known is absent by asking the remote
// side. The web-user id is fetched first and the session id second; each
// request carries the tokens known at the time it runs. Tokens present in
// known are never replaced.
func Bootstrap(ctx context.Context, transport Transport, known Identity) (Identity, error) {
	return bootstrap(ctx, transport, zap.NewNop(), known)
}

func bootstrap(ctx context.Context, transport Transport, log *zap.Logger, known Identity) (Identity, error) {
	id := known

	if id.WebUserID == "" {
		wuid, err := fetchWebUserID(ctx, transport, log, id)
		if err != nil {
			return known, fmt.Errorf("failed to fetch web user id: %w", err)
		}
		id.WebUserID = wuid
	}

	if id.SessionID == "" {
		sessionID, err := fetchSessionID(ctx, transport, log, id)
		if err != nil {
			return known, fmt.Errorf("failed to fetch session id: %w", err)
		}
		id.SessionID = sessionID
	}

	return id, nil
}

func fetchWebUserID(ctx context.Context, transport Transport, log *zap.Logger, id Identity) (string, error) {
	payload, err := invoke(ctx, transport, log, id, MethodWebUser, id.query(), nil)
	if err != nil {
		return "", err
	}

	var body struct {
		WUID string `json:"wuid"`
	}
	if err := payload.Decode(&body); err != nil {
		return "", &TransportError{Method: MethodWebUser, Err: fmt.Errorf("decode payload: %w", err)}
	}
	if body.WUID == "" {
		return "", &TransportError{Method: MethodWebUser, Err: errors.New("payload has no wuid")}
	}

	return body.WUID, nil
}

func fetchSessionID(ctx context.Context, transport Transport, log *zap.Logger, id Identity) (string, error) {
	payload, err := invoke(ctx, transport, log, id, MethodSession, id.query(), nil)
	if err != nil {
		return "", err
	}

	var sessionID string
	if err := payload.Decode(&sessionID); err != nil {
		return "", &TransportError{Method: MethodSession, Err: fmt.Errorf("decode payload: %w", err)}
	}
	if sessionID == "" {
		return "", &TransportError{Method: MethodSession, Err: errors.New("payload has no session id")}
	}

	return sessionID, nil
}
