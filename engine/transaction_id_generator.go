// (c) 2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package engine

import "sync"

// TransactionIDGenerator mints locally-unique, globally-ordered
// TransactionIDs for one peer. The A component is a fixed per-peer
// discriminator (so two peers never mint the same id); B is a monotonic
// counter; C is reserved for sub-allocation within a single reservation
// (SUPPLEMENTED FEATURES: reservation protocol).
//
// A caller that needs several ids whose ordering must be decided before any
// of them is actually used (for example, a commit that spans several
// objects and wants every object's transaction to share one id) calls
// Reserve to claim a contiguous block up front, then Release on whatever
// tail of the block it did not use so the space is not wasted.
type TransactionIDGenerator struct {
	mu sync.Mutex

	peerIndex uint64
	next      uint64 // first unreserved B value
}

// NewTransactionIDGenerator returns a generator that mints ids with A fixed
// to peerIndex.
func NewTransactionIDGenerator(peerIndex uint64) *TransactionIDGenerator {
	return &TransactionIDGenerator{peerIndex: peerIndex, next: 1}
}

// Generate mints a single fresh TransactionID.
func (g *TransactionIDGenerator) Generate() TransactionID {
	g.mu.Lock()
	defer g.mu.Unlock()
	id := TransactionID{A: g.peerIndex, B: g.next, C: 0}
	g.next++
	return id
}

// Reserve claims a contiguous block of up to n ids and returns the first one
// along with how many were actually granted (always n; the return value
// exists so callers can write the same code path as a partially-exhausted
// allocator without this implementation needing to ever refuse). The block
// occupies B values [first.B, first.B+granted).
func (g *TransactionIDGenerator) Reserve(n int) (first TransactionID, granted int) {
	if n <= 0 {
		return TransactionID{}, 0
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	first = TransactionID{A: g.peerIndex, B: g.next, C: 0}
	g.next += uint64(n)
	return first, n
}

// Release returns the unused tail of a reservation starting at unusedFrom
// back to the pool, provided it directly abuts the current frontier (i.e.
// nothing past it has been minted since). Otherwise it is a no-op: ids are
// never reused once something newer may have been handed out, only
// shrunk from the end.
func (g *TransactionIDGenerator) Release(unusedFrom TransactionID, count int) {
	if count <= 0 {
		return
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	if unusedFrom.A != g.peerIndex {
		return
	}
	if unusedFrom.B+uint64(count) == g.next {
		g.next = unusedFrom.B
	}
}
