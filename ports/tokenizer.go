package ports

import "github.com/mishannn/tinkoff/core"

// Tokenizer converts pending confirmations to signed resume tokens and back
type Tokenizer interface {
	ConfirmationToToken(pending *core.PendingConfirmation) (string, error)
	TokenToConfirmation(token string) (*core.PendingConfirmation, error)
}
