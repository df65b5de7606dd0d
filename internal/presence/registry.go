package presence

import "sync"

// Conn is a live connection handle capable of delivering one message.
// Sends are best-effort: an error means the message was dropped, never
// that the triggering operation failed.
type Conn interface {
	Send(message []byte) error
}

// Registry maps a party identifier (customer or driver ID) to its current
// live connection. Entries are ephemeral: the registry is rebuilt purely
// from live connections each process run, and clients re-register after a
// reconnect.
type Registry struct {
	mu      sync.RWMutex
	byParty map[string]Conn
}

// NewRegistry creates an empty Registry.
func NewRegistry() *Registry {
	return &Registry{byParty: make(map[string]Conn)}
}

// Register binds a party to a connection. A prior handle for the same
// party is overwritten, so a reconnect needs no explicit unregister.
func (r *Registry) Register(partyID string, conn Conn) {
	if partyID == "" || conn == nil {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.byParty[partyID] = conn
}

// Resolve returns the party's current connection, if any.
func (r *Registry) Resolve(partyID string) (Conn, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	conn, ok := r.byParty[partyID]
	return conn, ok
}

// Unregister removes every binding that points at the given connection.
// A newer connection registered for the same party is left untouched.
func (r *Registry) Unregister(conn Conn) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for party, c := range r.byParty {
		if c == conn {
			delete(r.byParty, party)
		}
	}
}

// Len returns the number of currently bound parties.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.byParty)
}
