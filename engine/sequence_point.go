// (c) 2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package engine

import "sort"

// SequencePoint is the tuple (version_map, exclusions, rejected_peers)
// describing a readable snapshot (§3, §4.E). A transaction (p, t) is
// visible at a SequencePoint iff:
//   - versionMap has (p, t') with t' >= t,
//   - exclusions does not contain (p, t), and
//   - for every recorded start-of-rejection s for p, t < s.
//
// SequencePoints are treated as immutable once handed out as a snapshot;
// TransactionStore holds a separate mutable "current" one that only grows.
type SequencePoint struct {
	versionMap    *VersionMap
	exclusions    *PeerExclusionMap
	rejectedPeers map[PeerHandle][]TransactionID // kept sorted ascending
}

// NewSequencePoint returns an empty SequencePoint.
func NewSequencePoint() *SequencePoint {
	return &SequencePoint{
		versionMap:    NewMaxVersionMap(),
		exclusions:    NewPeerExclusionMap(),
		rejectedPeers: make(map[PeerHandle][]TransactionID),
	}
}

// HasPeerTransactionID implements the visibility rule above.
func (sp *SequencePoint) HasPeerTransactionID(p PeerHandle, t TransactionID) bool {
	if !sp.versionMap.HasPeerTransactionID(p, t) {
		return false
	}
	if sp.exclusions.IsTransactionExcluded(p, t) {
		return false
	}
	if rejected, ok := sp.rejectedPeers[p]; ok && len(rejected) > 0 {
		// The smallest rejected id acts as a cutoff: everything from there
		// on is not visible, regardless of the version map.
		if !t.Less(rejected[0]) {
			return false
		}
	}
	return true
}

// AddPeerTransactionID max-merges (p, t) into the version map.
func (sp *SequencePoint) AddPeerTransactionID(p PeerHandle, t TransactionID) {
	sp.versionMap.Add(p, t)
}

// AddInvalidatedRange adds [start, end) to p's exclusions and drops any
// recorded rejectedPeers[p] entries inside [start, end), since they are
// subsumed by the wider invalidation (§4.E).
func (sp *SequencePoint) AddInvalidatedRange(p PeerHandle, start, end TransactionID) {
	sp.exclusions.AddExcludedRange(p, start, end)

	rejected, ok := sp.rejectedPeers[p]
	if !ok || len(rejected) == 0 {
		return
	}

	lo := sort.Search(len(rejected), func(i int) bool { return !rejected[i].Less(start) })
	hi := sort.Search(len(rejected), func(i int) bool { return !rejected[i].Less(end) })
	if lo >= hi {
		return
	}
	remaining := make([]TransactionID, 0, len(rejected)-(hi-lo))
	remaining = append(remaining, rejected[:lo]...)
	remaining = append(remaining, rejected[hi:]...)
	if len(remaining) == 0 {
		delete(sp.rejectedPeers, p)
	} else {
		sp.rejectedPeers[p] = remaining
	}
}

// AddRejectedPeer records that p's transactions from startTransactionID
// onward are rejected, until further invalidation subsumes the point.
func (sp *SequencePoint) AddRejectedPeer(p PeerHandle, startTransactionID TransactionID) {
	rejected := sp.rejectedPeers[p]
	i := sort.Search(len(rejected), func(i int) bool { return !rejected[i].Less(startTransactionID) })
	if i < len(rejected) && rejected[i] == startTransactionID {
		return
	}
	rejected = append(rejected, MinTransactionID)
	copy(rejected[i+1:], rejected[i:])
	rejected[i] = startTransactionID
	sp.rejectedPeers[p] = rejected
}

// Clone returns a deep copy of sp.
func (sp *SequencePoint) Clone() *SequencePoint {
	out := &SequencePoint{
		versionMap:    sp.versionMap.Clone(),
		exclusions:    sp.exclusions.Clone(),
		rejectedPeers: make(map[PeerHandle][]TransactionID, len(sp.rejectedPeers)),
	}
	for p, ids := range sp.rejectedPeers {
		out.rejectedPeers[p] = append([]TransactionID(nil), ids...)
	}
	return out
}

// VersionMap exposes the underlying version map (read-only use expected).
func (sp *SequencePoint) VersionMap() *VersionMap { return sp.versionMap }

// Exclusions exposes the underlying exclusion map.
func (sp *SequencePoint) Exclusions() *PeerExclusionMap { return sp.exclusions }

// RejectedPeers returns the recorded rejection-start points for p, if any.
func (sp *SequencePoint) RejectedPeers(p PeerHandle) ([]TransactionID, bool) {
	r, ok := sp.rejectedPeers[p]
	return r, ok
}

// Equal reports whether sp and other describe the same snapshot.
func (sp *SequencePoint) Equal(other *SequencePoint) bool {
	if !sp.versionMap.Equal(other.versionMap) {
		return false
	}
	if !sp.exclusions.Equal(other.exclusions) {
		return false
	}
	if len(sp.rejectedPeers) != len(other.rejectedPeers) {
		return false
	}
	for p, ids := range sp.rejectedPeers {
		oids, ok := other.rejectedPeers[p]
		if !ok || len(ids) != len(oids) {
			return false
		}
		for i := range ids {
			if ids[i] != oids[i] {
				return false
			}
		}
	}
	return true
}
