package ws

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"tricycle/internal/events"
	"tricycle/internal/presence"
	"tricycle/internal/redis"
)

// Inbound message types. The relay kinds are part of the shared event
// vocabulary: clients send and receive them under the same tag.
const (
	msgRegister       = "register"
	msgJoinRide       = "ride:join"
	msgLeaveRide      = "ride:leave"
	msgDriverLocation = events.KindDriverLocation
	msgRideArrived    = events.KindRideArrived
)

const locationWriteTimeout = 2 * time.Second

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// Hub tracks every live websocket connection and the per-ride rooms used
// to scope location and arrival relays. Lifecycle events reach it through
// the fan-out dispatcher; relay messages are forwarded directly between
// clients subscribed to the same ride.
type Hub struct {
	mu          sync.RWMutex
	clients     map[*Client]struct{}
	rooms       map[string]map[*Client]struct{}
	memberships map[*Client]map[string]struct{}

	registry  *presence.Registry
	locations redis.LocationStoreInterface
}

// NewHub creates a Hub. locations may be nil; live fixes are then not
// recorded.
func NewHub(registry *presence.Registry, locations redis.LocationStoreInterface) *Hub {
	return &Hub{
		clients:     make(map[*Client]struct{}),
		rooms:       make(map[string]map[*Client]struct{}),
		memberships: make(map[*Client]map[string]struct{}),
		registry:    registry,
		locations:   locations,
	}
}

// ServeWS handles GET /v1/ws: upgrades the connection and starts the
// client's pumps.
func (h *Hub) ServeWS(c *gin.Context) {
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Printf("ws upgrade failed: %v", err)
		return
	}

	client := &Client{
		id:   uuid.New().String(),
		conn: conn,
		send: make(chan []byte, sendBuffer),
		hub:  h,
	}

	h.addClient(client)

	go client.writePump()
	go client.readPump()
}

// Broadcast delivers a message to every connected client. Slow clients
// are dropped rather than blocking the fan-out.
func (h *Hub) Broadcast(message []byte) {
	h.mu.RLock()
	var stale []*Client
	for client := range h.clients {
		if err := client.Send(message); err != nil {
			stale = append(stale, client)
		}
	}
	h.mu.RUnlock()

	for _, client := range stale {
		h.removeClient(client)
	}
}

// ConnectedClients returns the number of live connections.
func (h *Hub) ConnectedClients() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

func (h *Hub) addClient(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.clients[c] = struct{}{}
}

func (h *Hub) removeClient(c *Client) {
	h.mu.Lock()
	if _, ok := h.clients[c]; !ok {
		h.mu.Unlock()
		return
	}
	delete(h.clients, c)
	for rideID := range h.memberships[c] {
		delete(h.rooms[rideID], c)
		if len(h.rooms[rideID]) == 0 {
			delete(h.rooms, rideID)
		}
	}
	delete(h.memberships, c)
	h.mu.Unlock()

	c.closeSend()
	h.registry.Unregister(c)
}

func (h *Hub) joinRide(c *Client, rideID string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.clients[c]; !ok {
		return
	}
	if h.rooms[rideID] == nil {
		h.rooms[rideID] = make(map[*Client]struct{})
	}
	h.rooms[rideID][c] = struct{}{}
	if h.memberships[c] == nil {
		h.memberships[c] = make(map[string]struct{})
	}
	h.memberships[c][rideID] = struct{}{}
}

func (h *Hub) leaveRide(c *Client, rideID string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.rooms[rideID], c)
	if len(h.rooms[rideID]) == 0 {
		delete(h.rooms, rideID)
	}
	delete(h.memberships[c], rideID)
}

// relayToRide forwards a raw message to every member of a ride room
// except the sender.
func (h *Hub) relayToRide(rideID string, message []byte, sender *Client) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for client := range h.rooms[rideID] {
		if client == sender {
			continue
		}
		if err := client.Send(message); err != nil {
			log.Printf("ride relay dropped: ride=%s client=%s", rideID, client.id)
		}
	}
}

// handleMessage dispatches one inbound client message. raw is the exact
// frame received, relayed verbatim for the room-scoped kinds.
func (h *Hub) handleMessage(c *Client, msgType string, data json.RawMessage, raw []byte) error {
	switch msgType {
	case msgRegister:
		var payload struct {
			PartyID string `json:"party_id"`
		}
		if err := json.Unmarshal(data, &payload); err != nil {
			return err
		}
		if payload.PartyID == "" {
			return fmt.Errorf("register: missing party_id")
		}
		c.partyID = payload.PartyID
		h.registry.Register(payload.PartyID, c)
		return nil

	case msgJoinRide, msgLeaveRide:
		var payload struct {
			RideID string `json:"ride_id"`
		}
		if err := json.Unmarshal(data, &payload); err != nil {
			return err
		}
		if payload.RideID == "" {
			return fmt.Errorf("%s: missing ride_id", msgType)
		}
		if msgType == msgJoinRide {
			h.joinRide(c, payload.RideID)
		} else {
			h.leaveRide(c, payload.RideID)
		}
		return nil

	case msgDriverLocation:
		var payload struct {
			RideID   string  `json:"ride_id"`
			DriverID string  `json:"driver_id"`
			Lat      float64 `json:"lat"`
			Lng      float64 `json:"lng"`
		}
		if err := json.Unmarshal(data, &payload); err != nil {
			return err
		}
		if payload.RideID == "" {
			return fmt.Errorf("driver:location: missing ride_id")
		}
		h.relayToRide(payload.RideID, raw, c)
		if h.locations != nil && payload.DriverID != "" {
			go h.recordLocation(payload.DriverID, payload.Lat, payload.Lng)
		}
		return nil

	case msgRideArrived:
		var payload struct {
			RideID string `json:"ride_id"`
		}
		if err := json.Unmarshal(data, &payload); err != nil {
			return err
		}
		if payload.RideID == "" {
			return fmt.Errorf("ride:arrived: missing ride_id")
		}
		h.relayToRide(payload.RideID, raw, c)
		return nil

	default:
		return fmt.Errorf("unknown message type %q", msgType)
	}
}

// recordLocation persists a live fix, best effort.
func (h *Hub) recordLocation(driverID string, lat, lng float64) {
	ctx, cancel := context.WithTimeout(context.Background(), locationWriteTimeout)
	defer cancel()
	if err := h.locations.UpdateLocation(ctx, driverID, lat, lng); err != nil {
		log.Printf("location update failed: driver=%s err=%v", driverID, err)
	}
}
