package tinkoff

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidRequestData is returned when the remote side rejected the request data
	ErrInvalidRequestData = errors.New("invalid request data")

	// ErrInsufficientPrivileges is returned when the session lacks the required access level
	ErrInsufficientPrivileges = errors.New("insufficient privileges")

	// ErrConfirmationRequired is returned when the operation waits for a second factor
	ErrConfirmationRequired = errors.New("operation requires confirmation")

	// ErrUnrecognizedResult is returned for result codes the client does not model
	ErrUnrecognizedResult = errors.New("unrecognized result code")

	// ErrTransport is returned when the request did not complete or the response could not be decoded
	ErrTransport = errors.New("transport failure")

	// ErrIncompleteIdentity is returned when an identity lacks a token it must carry
	ErrIncompleteIdentity = errors.New("identity needs both web user id and session id")

	// ErrNoPayload is returned when decoding a payload the remote side did not send
	ErrNoPayload = errors.New("no payload")
)

// InvalidRequestDataError carries the human-readable message of an INVALID_REQUEST_DATA result
type InvalidRequestDataError struct {
	Method  string
	Message string
}

func (e *InvalidRequestDataError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("%s: %s", e.Method, ErrInvalidRequestData)
	}
	return fmt.Sprintf("%s: %s: %s", e.Method, ErrInvalidRequestData, e.Message)
}

func (e *InvalidRequestDataError) Is(target error) bool {
	return target == ErrInvalidRequestData
}

// InsufficientPrivilegesError is returned for an INSUFFICIENT_PRIVILEGES result.
// LevelUp must succeed before the method can be called again.
type InsufficientPrivilegesError struct {
	Method string
}

func (e *InsufficientPrivilegesError) Error() string {
	return fmt.Sprintf("%s: %s", e.Method, ErrInsufficientPrivileges)
}

func (e *InsufficientPrivilegesError) Is(target error) bool {
	return target == ErrInsufficientPrivileges
}

// ConfirmationRequiredError is returned for a WAITING_CONFIRMATION result.
// It is a control-flow signal rather than a failure: the Challenge holds
// everything needed to finish the operation with ConfirmBySMS.
type ConfirmationRequiredError struct {
	Method    string
	Challenge Challenge
}

func (e *ConfirmationRequiredError) Error() string {
	return fmt.Sprintf("%s: %s", e.Method, ErrConfirmationRequired)
}

func (e *ConfirmationRequiredError) Is(target error) bool {
	return target == ErrConfirmationRequired
}

// UnrecognizedResultError carries a result code outside the modelled set
type UnrecognizedResultError struct {
	Method string
	Code   string
}

func (e *UnrecognizedResultError) Error() string {
	return fmt.Sprintf("%s: %s %q", e.Method, ErrUnrecognizedResult, e.Code)
}

func (e *UnrecognizedResultError) Is(target error) bool {
	return target == ErrUnrecognizedResult
}

// TransportError is returned when a request never completed, the remote side
// answered with a non-2xx status and no result envelope, or the response body
// could not be decoded.
type TransportError struct {
	Method     string
	Path       string
	StatusCode int
	Body       []byte
	Err        error
}

func (e *TransportError) Error() string {
	msg := ErrTransport.Error()
	if e.Method != "" {
		msg = e.Method + ": " + msg
	}
	if e.StatusCode != 0 {
		msg = fmt.Sprintf("%s: status %d", msg, e.StatusCode)
	}
	if e.Err != nil {
		msg = msg + ": " + e.Err.Error()
	}
	return msg
}

func (e *TransportError) Is(target error) bool {
	return target == ErrTransport
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// AsChallenge extracts the confirmation challenge from err, if any
func AsChallenge(err error) (Challenge, bool) {
	var cre *ConfirmationRequiredError
	if errors.As(err, &cre) {
		return cre.Challenge, true
	}
	return Challenge{}, false
}

func transportFailure(method string, err error) error {
	var te *TransportError
	if errors.As(err, &te) {
		if te.Method == "" {
			te.Method = method
		}
		return te
	}
	return &TransportError{Method: method, Err: err}
}
