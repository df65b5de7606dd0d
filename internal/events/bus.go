package events

import (
	"context"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
)

const (
	topicBroadcast = "rides.broadcast"
	topicDirected  = "rides.directed"

	metaPartyID = "party_id"
)

// Publisher is the engine-facing side of the fan-out channel.
type Publisher interface {
	// Broadcast delivers the event to every connected observer.
	Broadcast(ctx context.Context, event Event) error

	// Notify delivers the event to one party; if the party is not
	// connected the event is silently dropped.
	Notify(ctx context.Context, partyID string, event Event) error
}

// Bus publishes lifecycle events onto an in-process watermill pub/sub.
// The Dispatcher on the other end routes them to live connections.
type Bus struct {
	publisher message.Publisher
}

// NewBus creates a Bus on top of a watermill publisher.
func NewBus(publisher message.Publisher) *Bus {
	return &Bus{publisher: publisher}
}

var _ Publisher = (*Bus)(nil)

// Broadcast publishes the event on the broadcast topic.
func (b *Bus) Broadcast(ctx context.Context, event Event) error {
	msg, err := wireMessage(event)
	if err != nil {
		return err
	}
	msg.SetContext(ctx)
	return b.publisher.Publish(topicBroadcast, msg)
}

// Notify publishes the event on the directed topic, tagged with the
// target party.
func (b *Bus) Notify(ctx context.Context, partyID string, event Event) error {
	msg, err := wireMessage(event)
	if err != nil {
		return err
	}
	msg.SetContext(ctx)
	msg.Metadata.Set(metaPartyID, partyID)
	return b.publisher.Publish(topicDirected, msg)
}

func wireMessage(event Event) (*message.Message, error) {
	payload, err := event.MarshalWire()
	if err != nil {
		return nil, err
	}
	return message.NewMessage(watermill.NewUUID(), payload), nil
}
