// Package peertable implements the server-side peer table: a single mutex
// guarding the inner-IPv4-to-peer mapping that both hot loops of the
// forwarder read and write on every packet. A plain map behind one
// sync.Mutex is deliberate here: the access pattern is point lookup plus
// occasional insert with no iteration on the hot path, so there is nothing
// for a read-mostly structure to win on, and a single lock keeps the
// contention point easy to reason about.
package peertable

import (
	"net/netip"
	"sync"

	"vpntun/internal/session"
)

// Entry is a peer's last-known outer address and its current session key.
type Entry struct {
	Addr    netip.AddrPort
	Session *session.SessionKey
}

// Table maps an inner VPN IPv4 address to the peer currently holding it.
// There is no TTL or eviction; a stale entry persists until overwritten by
// a re-Hello or the process restarts.
type Table struct {
	mu      sync.Mutex
	entries map[netip.Addr]*Entry
}

// New returns an empty Table.
func New() *Table {
	return &Table{entries: make(map[netip.Addr]*Entry)}
}

// Insert unconditionally replaces any existing entry for inner; a re-Hello
// from the same peer rotates its session.
func (t *Table) Insert(inner netip.Addr, e *Entry) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.entries[inner] = e
}

// Get looks up the entry for inner. The returned *Entry may be mutated
// concurrently by other callers holding the same pointer (its Session has
// its own internal locking); Get itself only protects the map structure.
func (t *Table) Get(inner netip.Addr) (*Entry, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	e, ok := t.entries[inner]
	return e, ok
}
