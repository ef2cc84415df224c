package ports

import "context"

// EventPublisher notifies other components about login progress
type EventPublisher interface {
	PublishConfirmationRequested(ctx context.Context, confirmationID string, webUserID string) error
	PublishSessionEstablished(ctx context.Context, webUserID string, accessLevel string) error
}
