package events

import (
	"context"
	"log"

	"github.com/ThreeDotsLabs/watermill/message"

	"tricycle/internal/presence"
)

// BroadcastSink receives messages destined for every connected observer.
// The websocket hub implements it.
type BroadcastSink interface {
	Broadcast(message []byte)
}

// Dispatcher consumes the fan-out topics and routes each message to live
// connections: broadcast messages to the sink, directed messages through
// the presence registry. Delivery failures are logged and swallowed; they
// never reach the operation that emitted the event.
type Dispatcher struct {
	subscriber message.Subscriber
	sink       BroadcastSink
	registry   *presence.Registry
}

// NewDispatcher creates a Dispatcher.
func NewDispatcher(subscriber message.Subscriber, sink BroadcastSink, registry *presence.Registry) *Dispatcher {
	return &Dispatcher{
		subscriber: subscriber,
		sink:       sink,
		registry:   registry,
	}
}

// Start subscribes to both topics and spawns the delivery loops. It
// returns once the subscriptions are established, so events published
// afterwards are guaranteed a consumer. The loops stop when ctx is done.
func (d *Dispatcher) Start(ctx context.Context) error {
	broadcasts, err := d.subscriber.Subscribe(ctx, topicBroadcast)
	if err != nil {
		return err
	}

	directed, err := d.subscriber.Subscribe(ctx, topicDirected)
	if err != nil {
		return err
	}

	go d.deliverBroadcasts(broadcasts)
	go d.deliverDirected(directed)
	return nil
}

func (d *Dispatcher) deliverBroadcasts(msgs <-chan *message.Message) {
	for msg := range msgs {
		d.sink.Broadcast(msg.Payload)
		msg.Ack()
	}
}

func (d *Dispatcher) deliverDirected(msgs <-chan *message.Message) {
	for msg := range msgs {
		partyID := msg.Metadata.Get(metaPartyID)
		if conn, ok := d.registry.Resolve(partyID); ok {
			if err := conn.Send(msg.Payload); err != nil {
				log.Printf("directed event dropped: party=%s err=%v", partyID, err)
			}
		}
		// Absent party: dropped, the party re-fetches state on reconnect.
		msg.Ack()
	}
}
