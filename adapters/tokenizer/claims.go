package tokenizer

import "github.com/golang-jwt/jwt/v5"

// ConfirmationClaims carry a pending confirmation inside a resume token.
// The subject is the web-user id and the JWT ID the confirmation id.
type ConfirmationClaims struct {
	jwt.RegisteredClaims
	SessionID string `json:"sid"`
	Operation string `json:"op"`
	Ticket    string `json:"ticket"`
}
