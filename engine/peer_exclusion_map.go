// (c) 2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package engine

// PeerExclusionMap maps each peer to the set of its transactions that have
// been invalidated (rejected and rewound past). "Transaction t of peer p is
// excluded" iff the interval set for p contains t (§3, §4.D).
type PeerExclusionMap struct {
	byPeer map[PeerHandle]*IntervalSet[TransactionID]
}

// NewPeerExclusionMap returns an empty PeerExclusionMap.
func NewPeerExclusionMap() *PeerExclusionMap {
	return &PeerExclusionMap{byPeer: make(map[PeerHandle]*IntervalSet[TransactionID])}
}

// AddExcludedRange marks [start, end) of p's transactions as excluded.
func (m *PeerExclusionMap) AddExcludedRange(p PeerHandle, start, end TransactionID) {
	set, ok := m.byPeer[p]
	if !ok {
		set = NewIntervalSet[TransactionID]()
		m.byPeer[p] = set
	}
	set.AddInterval(start, end)
}

// IsTransactionExcluded reports whether (p, t) has been excluded.
func (m *PeerExclusionMap) IsTransactionExcluded(p PeerHandle, t TransactionID) bool {
	set, ok := m.byPeer[p]
	if !ok {
		return false
	}
	return set.Contains(t)
}

// Clone returns a deep copy of m.
func (m *PeerExclusionMap) Clone() *PeerExclusionMap {
	out := NewPeerExclusionMap()
	for p, set := range m.byPeer {
		out.byPeer[p] = set.Clone()
	}
	return out
}

// Equal reports whether m and other exclude exactly the same (peer,
// transaction) pairs -- elementwise equality of the underlying interval
// sets (§4.D).
func (m *PeerExclusionMap) Equal(other *PeerExclusionMap) bool {
	if len(m.byPeer) != len(other.byPeer) {
		return false
	}
	for p, set := range m.byPeer {
		otherSet, ok := other.byPeer[p]
		if !ok || !set.Equal(otherSet) {
			return false
		}
	}
	return true
}

// Peers returns every peer with at least one exclusion recorded.
func (m *PeerExclusionMap) Peers() []PeerHandle {
	out := make([]PeerHandle, 0, len(m.byPeer))
	for p := range m.byPeer {
		out = append(out, p)
	}
	return out
}
