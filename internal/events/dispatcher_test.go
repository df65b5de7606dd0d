package events

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"

	"tricycle/internal/presence"
)

type captureSink struct {
	mu       sync.Mutex
	messages [][]byte
}

func (s *captureSink) Broadcast(message []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.messages = append(s.messages, message)
}

func (s *captureSink) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.messages)
}

func (s *captureSink) last() []byte {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.messages) == 0 {
		return nil
	}
	return s.messages[len(s.messages)-1]
}

type captureConn struct {
	mu       sync.Mutex
	messages [][]byte
	sendErr  error
}

func (c *captureConn) Send(message []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.sendErr != nil {
		return c.sendErr
	}
	c.messages = append(c.messages, message)
	return nil
}

func (c *captureConn) count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.messages)
}

func newTestFanout(t *testing.T) (*Bus, *captureSink, *presence.Registry) {
	t.Helper()

	pubSub := gochannel.NewGoChannel(gochannel.Config{}, watermill.NopLogger{})
	t.Cleanup(func() { _ = pubSub.Close() })

	sink := &captureSink{}
	registry := presence.NewRegistry()

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	dispatcher := NewDispatcher(pubSub, sink, registry)
	if err := dispatcher.Start(ctx); err != nil {
		t.Fatalf("failed to start dispatcher: %v", err)
	}

	return NewBus(pubSub), sink, registry
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("condition not met within deadline")
}

func TestDispatcher_BroadcastReachesSink(t *testing.T) {
	bus, sink, _ := newTestFanout(t)

	err := bus.Broadcast(context.Background(), Event{Kind: KindRidesUpdate})
	if err != nil {
		t.Fatalf("broadcast failed: %v", err)
	}

	waitFor(t, func() bool { return sink.count() == 1 })

	var env struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(sink.last(), &env); err != nil {
		t.Fatalf("bad wire payload: %v", err)
	}
	if env.Type != KindRidesUpdate {
		t.Errorf("expected type %q, got %q", KindRidesUpdate, env.Type)
	}
}

func TestDispatcher_DirectedReachesRegisteredParty(t *testing.T) {
	bus, sink, registry := newTestFanout(t)

	conn := &captureConn{}
	registry.Register("customer-1", conn)

	err := bus.Notify(context.Background(), "customer-1", Event{
		Kind:    KindRideAssigned,
		RideID:  "ride-1",
		Message: "Great news! A rider has been assigned to your trip.",
	})
	if err != nil {
		t.Fatalf("notify failed: %v", err)
	}

	waitFor(t, func() bool { return conn.count() == 1 })

	var env struct {
		Type string         `json:"type"`
		Data map[string]any `json:"data"`
	}
	if err := json.Unmarshal(conn.messages[0], &env); err != nil {
		t.Fatalf("bad wire payload: %v", err)
	}
	if env.Type != KindRideAssigned {
		t.Errorf("expected type %q, got %q", KindRideAssigned, env.Type)
	}
	if env.Data["ride_id"] != "ride-1" {
		t.Errorf("expected ride_id ride-1, got %v", env.Data["ride_id"])
	}

	// Directed events must not leak onto the broadcast sink.
	if sink.count() != 0 {
		t.Errorf("directed event leaked to broadcast sink")
	}
}

func TestDispatcher_DirectedToAbsentPartyIsDropped(t *testing.T) {
	bus, _, registry := newTestFanout(t)

	witness := &captureConn{}
	registry.Register("witness", witness)

	ctx := context.Background()
	if err := bus.Notify(ctx, "ghost", Event{Kind: KindRideStarted, RideID: "ride-9"}); err != nil {
		t.Fatalf("notify failed: %v", err)
	}
	// Directed messages are drained in order by a single loop, so once
	// the witness event lands the ghost event has already been handled.
	if err := bus.Notify(ctx, "witness", Event{Kind: KindRideStarted, RideID: "ride-10"}); err != nil {
		t.Fatalf("notify failed: %v", err)
	}
	waitFor(t, func() bool { return witness.count() == 1 })

	// Register afterwards: there is no queueing or redelivery.
	conn := &captureConn{}
	registry.Register("ghost", conn)
	if conn.count() != 0 {
		t.Error("event for an absent party must be dropped, not queued")
	}
}

func TestDispatcher_SendErrorDoesNotStopDelivery(t *testing.T) {
	bus, _, registry := newTestFanout(t)

	broken := &captureConn{sendErr: errClosed}
	healthy := &captureConn{}
	registry.Register("customer-1", broken)
	registry.Register("customer-2", healthy)

	ctx := context.Background()
	if err := bus.Notify(ctx, "customer-1", Event{Kind: KindRideStarted, RideID: "r1"}); err != nil {
		t.Fatalf("notify failed: %v", err)
	}
	if err := bus.Notify(ctx, "customer-2", Event{Kind: KindRideStarted, RideID: "r2"}); err != nil {
		t.Fatalf("notify failed: %v", err)
	}

	waitFor(t, func() bool { return healthy.count() == 1 })
}

var errClosed = &closedErr{}

type closedErr struct{}

func (e *closedErr) Error() string { return "connection closed" }
