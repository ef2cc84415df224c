package events

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func receive(t *testing.T, messages <-chan *message.Message) *message.Message {
	t.Helper()
	select {
	case msg := <-messages:
		msg.Ack()
		return msg
	case <-time.After(time.Second):
		t.Fatal("no message received")
		return nil
	}
}

func TestWatermillPublisher_Publish(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	pubSub := gochannel.NewGoChannel(gochannel.Config{}, watermill.NopLogger{})
	defer pubSub.Close()

	requested, err := pubSub.Subscribe(ctx, TopicConfirmationRequested)
	require.NoError(t, err)
	established, err := pubSub.Subscribe(ctx, TopicSessionEstablished)
	require.NoError(t, err)

	pub := NewWatermillPublisher(pubSub)

	require.NoError(t, pub.PublishConfirmationRequested(ctx, "c-1", "W1"))
	msg := receive(t, requested)
	assert.Equal(t, "c-1", msg.UUID)
	var reqEvent ConfirmationRequestedEvent
	require.NoError(t, json.Unmarshal(msg.Payload, &reqEvent))
	assert.Equal(t, ConfirmationRequestedEvent{ConfirmationID: "c-1", WebUserID: "W1"}, reqEvent)

	require.NoError(t, pub.PublishSessionEstablished(ctx, "W1", "CLIENT"))
	msg = receive(t, established)
	assert.NotEmpty(t, msg.UUID)
	var estEvent SessionEstablishedEvent
	require.NoError(t, json.Unmarshal(msg.Payload, &estEvent))
	assert.Equal(t, SessionEstablishedEvent{WebUserID: "W1", AccessLevel: "CLIENT"}, estEvent)
}

func TestWatermillPublisher_ClosedPublisher(t *testing.T) {
	pubSub := gochannel.NewGoChannel(gochannel.Config{}, watermill.NopLogger{})
	require.NoError(t, pubSub.Close())

	pub := NewWatermillPublisher(pubSub)

	assert.Error(t, pub.PublishSessionEstablished(context.Background(), "W1", "CLIENT"))
}
