package events

import "encoding/json"

// Event kinds carried over the realtime channel. Broadcast kinds go to
// every connected observer; directed kinds go to one party resolved
// through the presence registry.
const (
	KindRidesUpdate    = "rides:update"   // broadcast: ride list changed, re-fetch
	KindRideAssigned   = "ride:assigned"  // directed: a driver claimed the customer's ride
	KindRideStarted    = "ride:started"   // directed: trip is underway
	KindRideCancelled  = "ride:cancelled" // directed: driver dropped the assignment
	KindDriverLocation = "driver:location" // relayed verbatim between members of a ride room
	KindRideArrived    = "ride:arrived"    // relayed verbatim between members of a ride room
)

// Event is one lifecycle notification. Delivery is at-most-once and
// fire-and-forget: a disconnected observer misses it and re-fetches
// authoritative state instead.
type Event struct {
	Kind    string
	RideID  string
	Message string
	Data    map[string]any
}

// envelope is the wire form sent to clients.
type envelope struct {
	Type string         `json:"type"`
	Data map[string]any `json:"data,omitempty"`
}

// MarshalWire encodes the event as the client-facing JSON envelope.
func (e Event) MarshalWire() ([]byte, error) {
	data := make(map[string]any, len(e.Data)+2)
	for k, v := range e.Data {
		data[k] = v
	}
	if e.RideID != "" {
		data["ride_id"] = e.RideID
	}
	if e.Message != "" {
		data["message"] = e.Message
	}
	return json.Marshal(envelope{Type: e.Kind, Data: data})
}
