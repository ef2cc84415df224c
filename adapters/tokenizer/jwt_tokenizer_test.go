package tokenizer

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mishannn/tinkoff/core"
)

func newKey(t *testing.T) *ecdsa.PrivateKey {
	t.Helper()
	key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	require.NoError(t, err)
	return key
}

func pendingConfirmation(expiresIn time.Duration) *core.PendingConfirmation {
	now := time.Now().Truncate(time.Second)
	return &core.PendingConfirmation{
		ID:        "c-1",
		WebUserID: "W1",
		SessionID: "S1",
		Operation: "M1",
		Ticket:    "T1",
		IssuedAt:  now,
		ExpiresAt: now.Add(expiresIn),
	}
}

func TestJWTTokenizer_RoundTrip(t *testing.T) {
	tk := NewJWTTokenizer(newKey(t))
	pending := pendingConfirmation(5 * time.Minute)

	token, err := tk.ConfirmationToToken(pending)
	require.NoError(t, err)

	restored, err := tk.TokenToConfirmation(token)
	require.NoError(t, err)

	assert.Equal(t, pending.ID, restored.ID)
	assert.Equal(t, pending.WebUserID, restored.WebUserID)
	assert.Equal(t, pending.SessionID, restored.SessionID)
	assert.Equal(t, pending.Operation, restored.Operation)
	assert.Equal(t, pending.Ticket, restored.Ticket)
	assert.True(t, pending.ExpiresAt.Equal(restored.ExpiresAt))
	assert.True(t, pending.IssuedAt.Equal(restored.IssuedAt))
}

func TestJWTTokenizer_Expired(t *testing.T) {
	tk := NewJWTTokenizer(newKey(t))

	token, err := tk.ConfirmationToToken(pendingConfirmation(-time.Minute))
	require.NoError(t, err)

	_, err = tk.TokenToConfirmation(token)
	assert.ErrorIs(t, err, core.ErrTokenExpired)
}

func TestJWTTokenizer_ForeignKey(t *testing.T) {
	token, err := NewJWTTokenizer(newKey(t)).ConfirmationToToken(pendingConfirmation(time.Minute))
	require.NoError(t, err)

	_, err = NewJWTTokenizer(newKey(t)).TokenToConfirmation(token)
	assert.ErrorIs(t, err, core.ErrInvalidToken)
}

func TestJWTTokenizer_WrongAudience(t *testing.T) {
	key := newKey(t)
	claims := ConfirmationClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "W1",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Minute)),
			Audience:  jwt.ClaimStrings{"session:access"},
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodES256, claims).SignedString(key)
	require.NoError(t, err)

	_, err = NewJWTTokenizer(key).TokenToConfirmation(token)
	assert.ErrorIs(t, err, core.ErrInvalidToken)
}

func TestJWTTokenizer_Garbage(t *testing.T) {
	_, err := NewJWTTokenizer(newKey(t)).TokenToConfirmation("not-a-token")
	assert.ErrorIs(t, err, core.ErrInvalidToken)
}
