package tokenizer

import (
	"crypto/ecdsa"
	"errors"
	"fmt"

	"github.com/golang-jwt/jwt/v5"
	"github.com/mishannn/tinkoff/core"
	"github.com/mishannn/tinkoff/ports"
)

const AudienceConfirmation = "tinkoff:confirmation"

// JWTTokenizer implements the Tokenizer interface using ES256 signed JWTs
type JWTTokenizer struct {
	signKey *ecdsa.PrivateKey
}

// NewJWTTokenizer creates a new JWT tokenizer
func NewJWTTokenizer(signKey *ecdsa.PrivateKey) ports.Tokenizer {
	return &JWTTokenizer{signKey: signKey}
}

// ConfirmationToToken converts a PendingConfirmation to a JWT token
func (j *JWTTokenizer) ConfirmationToToken(pending *core.PendingConfirmation) (string, error) {
	claims := ConfirmationClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   pending.WebUserID,
			ID:        pending.ID,
			ExpiresAt: jwt.NewNumericDate(pending.ExpiresAt),
			IssuedAt:  jwt.NewNumericDate(pending.IssuedAt),
			Audience:  jwt.ClaimStrings{AudienceConfirmation},
		},
		SessionID: pending.SessionID,
		Operation: pending.Operation,
		Ticket:    pending.Ticket,
	}

	token := jwt.NewWithClaims(jwt.SigningMethodES256, claims)

	signedToken, err := token.SignedString(j.signKey)
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}

	return signedToken, nil
}

// TokenToConfirmation converts a JWT token back to a PendingConfirmation
func (j *JWTTokenizer) TokenToConfirmation(tokenStr string) (*core.PendingConfirmation, error) {
	token, err := jwt.ParseWithClaims(tokenStr, &ConfirmationClaims{}, func(token *jwt.Token) (interface{}, error) {
		// Validate the signing method
		if _, ok := token.Method.(*jwt.SigningMethodECDSA); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return &j.signKey.PublicKey, nil
	}, jwt.WithAudience(AudienceConfirmation), jwt.WithExpirationRequired())

	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, core.ErrTokenExpired
		}
		return nil, fmt.Errorf("%w: %v", core.ErrInvalidToken, err)
	}

	if !token.Valid {
		return nil, core.ErrInvalidToken
	}

	claims, ok := token.Claims.(*ConfirmationClaims)
	if !ok {
		return nil, fmt.Errorf("%w: invalid claims type", core.ErrInvalidToken)
	}

	pending := &core.PendingConfirmation{
		ID:        claims.ID,
		WebUserID: claims.Subject,
		SessionID: claims.SessionID,
		Operation: claims.Operation,
		Ticket:    claims.Ticket,
		ExpiresAt: claims.ExpiresAt.Time,
	}
	if claims.IssuedAt != nil {
		pending.IssuedAt = claims.IssuedAt.Time
	}

	return pending, nil
}
