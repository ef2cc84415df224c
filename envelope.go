package tinkoff

import (
	"bytes"
	"encoding/json"
	"errors"
)

// Result codes the client knows how to classify
const (
	ResultOK                     = "OK"
	ResultInvalidRequestData     = "INVALID_REQUEST_DATA"
	ResultWaitingConfirmation    = "WAITING_CONFIRMATION"
	ResultInsufficientPrivileges = "INSUFFICIENT_PRIVILEGES"
)

// Envelope is the decoded response of every remote method
type Envelope struct {
	ResultCode   string          `json:"resultCode"`
	PlainMessage string          `json:"plainMessage,omitempty"`
	Payload      json.RawMessage `json:"payload,omitempty"`

	// Set on WAITING_CONFIRMATION only.
	InitialOperation string `json:"initialOperation,omitempty"`
	OperationTicket  string `json:"operationTicket,omitempty"`

	// Raw is the whole response body, unknown fields included.
	Raw json.RawMessage `json:"-"`
}

var errNoResultCode = errors.New("response has no result code")

// decodeEnvelope fails for bodies without a result code, whatever the HTTP
// status: such a body is not an envelope.
func decodeEnvelope(data []byte) (*Envelope, error) {
	var env Envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, err
	}
	if env.ResultCode == "" {
		return nil, errNoResultCode
	}
	env.Raw = append(json.RawMessage(nil), data...)
	return &env, nil
}

// Payload is the undecoded payload of a successful call. A Payload that is not
// Present means the call succeeded without returning data.
type Payload json.RawMessage

var jsonNull = []byte("null")

// Present reports whether the remote side returned a payload
func (p Payload) Present() bool {
	trimmed := bytes.TrimSpace(p)
	return len(trimmed) > 0 && !bytes.Equal(trimmed, jsonNull)
}

// Decode unmarshals the payload into v
func (p Payload) Decode(v any) error {
	if !p.Present() {
		return ErrNoPayload
	}
	return json.Unmarshal(p, v)
}

// Raw returns the payload as JSON
func (p Payload) Raw() json.RawMessage {
	return json.RawMessage(p)
}

// Challenge is raised when a call needs a second factor. It keeps the
// identity the client held when the call was made, so the confirmation can
// be sent from another client instance or process.
type Challenge struct {
	// Operation is the initialOperation to confirm.
	Operation string `json:"initialOperation"`
	// Ticket is the operationTicket issued for the operation.
	Ticket string `json:"operationTicket"`
	// Identity is the identity in effect when the challenge was raised.
	Identity Identity `json:"identity"`
	// Data is the complete response envelope.
	Data json.RawMessage `json:"data,omitempty"`
}

// Decode unmarshals the challenge envelope into v, which gives access to
// challenge-specific fields the client does not model.
func (c Challenge) Decode(v any) error {
	if len(c.Data) == 0 {
		return ErrNoPayload
	}
	return json.Unmarshal(c.Data, v)
}
