// (c) 2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

// TestSequencePointVersionMapMonotonicallyGrows grounds §4.E: a
// SequencePoint's version map only ever advances for a given peer, and
// AddPeerTransactionID with an older id is a no-op, matching VersionMap's
// own max-merge semantics.
func TestSequencePointVersionMapMonotonicallyGrows(t *testing.T) {
	peer := &CanonicalPeer{id: "A"}
	sp := NewSequencePoint()

	sp.AddPeerTransactionID(peer, tid(0, 10, 0))
	got, ok := sp.VersionMap().Get(peer)
	assert.True(t, ok)
	assert.Equal(t, tid(0, 10, 0), got)

	sp.AddPeerTransactionID(peer, tid(0, 5, 0))
	got, _ = sp.VersionMap().Get(peer)
	assert.Equal(t, tid(0, 10, 0), got, "an older id must never roll the version map back")

	sp.AddPeerTransactionID(peer, tid(0, 20, 0))
	got, _ = sp.VersionMap().Get(peer)
	assert.Equal(t, tid(0, 20, 0), got)
}

// TestSequencePointRejectedPeersCutoffIsMonotone grounds the rejection-cutoff
// half of HasPeerTransactionID: once AddRejectedPeer records a cutoff for a
// peer, a transaction at or past it is invisible even though the version
// map alone would say otherwise, and a narrower (later) cutoff never
// resurrects ids an earlier cutoff already excluded.
func TestSequencePointRejectedPeersCutoffIsMonotone(t *testing.T) {
	peer := &CanonicalPeer{id: "B"}
	sp := NewSequencePoint()
	sp.AddPeerTransactionID(peer, tid(0, 100, 0))

	assert.True(t, sp.HasPeerTransactionID(peer, tid(0, 50, 0)))

	sp.AddRejectedPeer(peer, tid(0, 50, 0))
	assert.False(t, sp.HasPeerTransactionID(peer, tid(0, 50, 0)), "the cutoff itself is excluded")
	assert.True(t, sp.HasPeerTransactionID(peer, tid(0, 49, 0)), "anything strictly before the cutoff stays visible")

	// A later (larger) rejection start never widens visibility back out:
	// the smallest recorded cutoff always wins.
	sp.AddRejectedPeer(peer, tid(0, 70, 0))
	assert.False(t, sp.HasPeerTransactionID(peer, tid(0, 60, 0)))
}

// TestSequencePointAddInvalidatedRangeDropsSubsumedRejections grounds §4.E's
// claim that a wider invalidation subsumes any rejection cutoffs it covers:
// once an exclusion range [start, end) is recorded, a rejectedPeers entry
// inside that range becomes redundant and is dropped.
func TestSequencePointAddInvalidatedRangeDropsSubsumedRejections(t *testing.T) {
	peer := &CanonicalPeer{id: "C"}
	sp := NewSequencePoint()
	sp.AddRejectedPeer(peer, tid(0, 50, 0))

	rejected, ok := sp.RejectedPeers(peer)
	assert.True(t, ok)
	assert.Len(t, rejected, 1)

	sp.AddInvalidatedRange(peer, tid(0, 40, 0), tid(0, 60, 0))
	_, ok = sp.RejectedPeers(peer)
	assert.False(t, ok, "the invalidated range covers the old rejection cutoff entirely")
}
