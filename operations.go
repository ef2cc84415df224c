package tinkoff

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
)

// confirmationKeySMS is the confirmationData key of an SMS code
const confirmationKeySMS = "SMSBYID"

// SignUp logs in with a username and password. It fails with a
// *ConfirmationRequiredError when the remote side wants an SMS code.
func (c *Client) SignUp(ctx context.Context, username, password string) (Payload, error) {
	form := url.Values{}
	for k, v := range c.fingerprint {
		form.Set(k, v)
	}
	form.Set("wuid", c.identity.WebUserID)
	form.Set("username", username)
	form.Set("password", password)

	return c.Invoke(ctx, MethodSignUp, c.identityQuery(), form)
}

// ConfirmBySMS sends the one-time code for the operation and ticket of a
// challenge. Both must be passed exactly as the challenge carried them.
func (c *Client) ConfirmBySMS(ctx context.Context, operation, ticket, code string) (Payload, error) {
	data, err := json.Marshal(map[string]string{confirmationKeySMS: code})
	if err != nil {
		return nil, fmt.Errorf("failed to encode confirmation data: %w", err)
	}

	form := url.Values{}
	form.Set("initialOperationTicket", ticket)
	form.Set("initialOperation", operation)
	form.Set("confirmationData", string(data))

	return c.Invoke(ctx, MethodConfirm, c.identityQuery(), form)
}

// Confirm answers a challenge with an SMS code, using the identity the
// challenge was raised under rather than the one held by c.
func (c *Client) Confirm(ctx context.Context, challenge Challenge, code string) (Payload, error) {
	return c.withIdentity(challenge.Identity).ConfirmBySMS(ctx, challenge.Operation, challenge.Ticket, code)
}

// LevelUp elevates the privileges of a freshly logged in session
func (c *Client) LevelUp(ctx context.Context) (Payload, error) {
	return c.Invoke(ctx, MethodLevelUp, c.identityQuery(), nil)
}

// SessionStatus returns the access level and remaining lifetime of the session
func (c *Client) SessionStatus(ctx context.Context) (Payload, error) {
	return c.Invoke(ctx, MethodSessionStatus, c.identityQuery(), nil)
}

// Ping keeps the session alive
func (c *Client) Ping(ctx context.Context) (Payload, error) {
	return c.Invoke(ctx, MethodPing, c.identityQuery(), nil)
}

// WarmUpCache asks the remote side to prime the given fields. The payload,
// if any, is discarded.
func (c *Client) WarmUpCache(ctx context.Context, fields url.Values) error {
	_, err := c.Invoke(ctx, MethodWarmUpCache, c.identityQuery(), fields)
	return err
}

// PersonalInfo returns the profile of the logged in user. It needs an
// elevated session.
func (c *Client) PersonalInfo(ctx context.Context) (Payload, error) {
	return c.Invoke(ctx, MethodPersonalInfo, c.identityQuery(), c.wuidForm())
}

// AccountsFlat returns every account with its balance. It needs an elevated
// session.
func (c *Client) AccountsFlat(ctx context.Context) (Payload, error) {
	return c.Invoke(ctx, MethodAccountsFlat, c.identityQuery(), c.wuidForm())
}

func (c *Client) wuidForm() url.Values {
	form := url.Values{}
	form.Set("wuid", c.identity.WebUserID)
	return form
}
