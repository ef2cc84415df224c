package ports

import (
	"context"
	"time"
)

// Store keeps track of resume tokens that are being or were already redeemed
type Store interface {
	// Claim atomically reserves a confirmation for the caller. It reports
	// false when another caller holds or has redeemed it.
	Claim(ctx context.Context, confirmationID string, expiry time.Duration) (bool, error)
	// Release gives up a claim so the confirmation can be redeemed again
	Release(ctx context.Context, confirmationID string) error
}
