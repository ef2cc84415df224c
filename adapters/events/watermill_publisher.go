package events

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/mishannn/tinkoff/ports"
)

const (
	TopicConfirmationRequested = "tinkoff.confirmation_requested"
	TopicSessionEstablished    = "tinkoff.session_established"
)

// ConfirmationRequestedEvent is published when a login waits for an SMS code
type ConfirmationRequestedEvent struct {
	ConfirmationID string `json:"confirmation_id"`
	WebUserID      string `json:"wuid"`
}

// SessionEstablishedEvent is published when a login reached an elevated session
type SessionEstablishedEvent struct {
	WebUserID   string `json:"wuid"`
	AccessLevel string `json:"access_level"`
}

// WatermillPublisher implements the EventPublisher interface using Watermill
type WatermillPublisher struct {
	publisher message.Publisher
}

// NewWatermillPublisher creates a new Watermill publisher
func NewWatermillPublisher(publisher message.Publisher) ports.EventPublisher {
	return &WatermillPublisher{publisher: publisher}
}

// PublishConfirmationRequested publishes a confirmation requested event
func (p *WatermillPublisher) PublishConfirmationRequested(ctx context.Context, confirmationID string, webUserID string) error {
	return p.publish(ctx, TopicConfirmationRequested, confirmationID, ConfirmationRequestedEvent{
		ConfirmationID: confirmationID,
		WebUserID:      webUserID,
	})
}

// PublishSessionEstablished publishes a session established event
func (p *WatermillPublisher) PublishSessionEstablished(ctx context.Context, webUserID string, accessLevel string) error {
	return p.publish(ctx, TopicSessionEstablished, watermill.NewUUID(), SessionEstablishedEvent{
		WebUserID:   webUserID,
		AccessLevel: accessLevel,
	})
}

func (p *WatermillPublisher) publish(ctx context.Context, topic, id string, event any) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	msg := message.NewMessage(id, payload)
	msg.SetContext(ctx)

	if err := p.publisher.Publish(topic, msg); err != nil {
		return fmt.Errorf("failed to publish event: %w", err)
	}

	return nil
}
