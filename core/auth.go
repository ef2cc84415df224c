package core

import "time"

// PendingConfirmation is a login waiting for its SMS code
type PendingConfirmation struct {
	ID        string    // Unique identifier of the pending confirmation
	WebUserID string    // Web-user id the challenge was raised under
	SessionID string    // Session id the challenge was raised under
	Operation string    // initialOperation to confirm
	Ticket    string    // operationTicket issued by the bank
	IssuedAt  time.Time // When the challenge was raised
	ExpiresAt time.Time // When the resume token stops being accepted
}

// Session is a logged in, elevated bank session
type Session struct {
	WebUserID     string    // Web-user id of the session
	SessionID     string    // Session id to send with every call
	AccessLevel   string    // Access level reported after level up
	EstablishedAt time.Time // When the session was elevated
}
