// (c) 2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package engine

import (
	"sync"

	"github.com/luxfi/floatingtemple/ids"
)

// CanonicalPeer is an interned peer identity. PeerRegistry guarantees that
// two calls to CanonicalPeer for the same peer-id string return the same
// *CanonicalPeer, so pointer equality is equivalent to peer-id equality --
// every map in the engine that is keyed by peer uses this handle rather
// than the raw string.
type CanonicalPeer struct {
	id     string
	handle ids.PeerID
}

// PeerHandle is the type used everywhere a peer identity is needed. It is a
// pointer so that equality is pointer equality, matching §3's
// "CanonicalPeer ... Interning guarantees that pointer/handle equality is
// equivalent to peer-id equality".
type PeerHandle = *CanonicalPeer

// ID returns the opaque peer-id string (conventionally "ip/<host>/<port>",
// per §6; the engine never parses it).
func (p *CanonicalPeer) ID() string { return p.id }

// Handle returns the compact PeerID used for serialization/Dump.
func (p *CanonicalPeer) Handle() ids.PeerID { return p.handle }

func (p *CanonicalPeer) String() string { return p.id }

// PeerRegistry interns CanonicalPeers by id string.
type PeerRegistry struct {
	mu      sync.RWMutex
	byID    map[string]*CanonicalPeer
	next    ids.PeerID
}

// NewPeerRegistry returns an empty registry.
func NewPeerRegistry() *PeerRegistry {
	return &PeerRegistry{byID: make(map[string]*CanonicalPeer)}
}

// Intern returns the canonical *CanonicalPeer for id, creating it on first
// use. Subsequent calls with the same id string return the identical
// pointer.
func (r *PeerRegistry) Intern(id string) PeerHandle {
	r.mu.RLock()
	if p, ok := r.byID[id]; ok {
		r.mu.RUnlock()
		return p
	}
	r.mu.RUnlock()

	r.mu.Lock()
	defer r.mu.Unlock()
	if p, ok := r.byID[id]; ok {
		return p
	}
	p := &CanonicalPeer{id: id, handle: r.next}
	r.next++
	r.byID[id] = p
	return p
}

// Lookup returns the peer already interned for id, if any.
func (r *PeerRegistry) Lookup(id string) (PeerHandle, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.byID[id]
	return p, ok
}

// All returns every peer interned so far, in no particular order.
func (r *PeerRegistry) All() []PeerHandle {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]PeerHandle, 0, len(r.byID))
	for _, p := range r.byID {
		out = append(out, p)
	}
	return out
}
