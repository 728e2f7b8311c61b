// (c) 2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package engine

// compareFunc mirrors the C++ template parameter: it reports whether a
// should be preferred over b when merging two candidate TransactionIDs for
// the same peer. For the max variant this is "a < b" (keep the larger); for
// the min variant it is "a > b" (keep the smaller).
type compareFunc func(a, b TransactionID) bool

func maxCompare(a, b TransactionID) bool { return a.Less(b) }
func minCompare(a, b TransactionID) bool { return b.Less(a) }

// VersionMap maps a CanonicalPeer to the largest (or smallest, under the min
// variant) TransactionID known to have been produced by that peer. It is
// parameterized by a comparator exactly as spec §3/§4.B describes.
type VersionMap struct {
	cmp     compareFunc
	entries map[PeerHandle]TransactionID
}

// NewMaxVersionMap returns an empty VersionMap using the max-merge
// comparator (the variant SequencePoint uses).
func NewMaxVersionMap() *VersionMap {
	return &VersionMap{cmp: maxCompare, entries: make(map[PeerHandle]TransactionID)}
}

// NewMinVersionMap returns an empty VersionMap using the min-merge
// comparator.
func NewMinVersionMap() *VersionMap {
	return &VersionMap{cmp: minCompare, entries: make(map[PeerHandle]TransactionID)}
}

// HasPeerTransactionID reports whether the map has an entry for p that is
// at least as "preferred" as tMin under the comparator: for the max variant
// this means map[p] >= tMin.
func (v *VersionMap) HasPeerTransactionID(p PeerHandle, tMin TransactionID) bool {
	existing, ok := v.entries[p]
	if !ok {
		return false
	}
	// !cmp(tMin, existing): tMin is not strictly preferred over existing,
	// i.e. existing is at least as good as tMin.
	return !v.cmp(tMin, existing)
}

// Get returns the entry for p, if any.
func (v *VersionMap) Get(p PeerHandle) (TransactionID, bool) {
	t, ok := v.entries[p]
	return t, ok
}

// Add merges (p, t) into the map: if p is new, insert it; otherwise keep
// whichever of the existing and new id the comparator prefers. Add is
// idempotent -- adding the same (p, t) twice, or adding a (p, t) that the
// comparator does not prefer over the existing entry, is a no-op.
func (v *VersionMap) Add(p PeerHandle, t TransactionID) {
	existing, ok := v.entries[p]
	if !ok {
		v.entries[p] = t
		return
	}
	if v.cmp(t, existing) {
		return
	}
	v.entries[p] = t
}

// Union returns a new VersionMap containing, for every peer present in
// either v or other, the comparator-preferred id. Union is associative,
// commutative, and has the empty map as identity.
func (v *VersionMap) Union(other *VersionMap) *VersionMap {
	out := &VersionMap{cmp: v.cmp, entries: make(map[PeerHandle]TransactionID, len(v.entries))}
	for p, t := range v.entries {
		out.entries[p] = t
	}
	for p, t := range other.entries {
		out.Add(p, t)
	}
	return out
}

// Intersection returns a new VersionMap containing only peers present in
// both v and other, each mapped to the comparator-preferred of the two ids.
func (v *VersionMap) Intersection(other *VersionMap) *VersionMap {
	out := &VersionMap{cmp: v.cmp, entries: make(map[PeerHandle]TransactionID)}
	for p, t := range v.entries {
		if o, ok := other.entries[p]; ok {
			out.entries[p] = t
			out.Add(p, o)
		}
	}
	return out
}

// LessEqual reports whether v <= other: every (p, t) in v has a
// corresponding entry in other that the comparator finds at least as
// preferred.
func (v *VersionMap) LessEqual(other *VersionMap) bool {
	for p, t := range v.entries {
		o, ok := other.entries[p]
		if !ok {
			return false
		}
		if v.cmp(o, t) {
			// o is strictly less-preferred than t -> other[p] < v[p].
			return false
		}
	}
	return true
}

// Clone returns a deep copy of v.
func (v *VersionMap) Clone() *VersionMap {
	out := &VersionMap{cmp: v.cmp, entries: make(map[PeerHandle]TransactionID, len(v.entries))}
	for p, t := range v.entries {
		out.entries[p] = t
	}
	return out
}

// Equal reports whether v and other hold exactly the same entries.
func (v *VersionMap) Equal(other *VersionMap) bool {
	if len(v.entries) != len(other.entries) {
		return false
	}
	for p, t := range v.entries {
		o, ok := other.entries[p]
		if !ok || o != t {
			return false
		}
	}
	return true
}

// Peers returns every peer with an entry in v.
func (v *VersionMap) Peers() []PeerHandle {
	out := make([]PeerHandle, 0, len(v.entries))
	for p := range v.entries {
		out = append(out, p)
	}
	return out
}

// Len reports the number of peers tracked.
func (v *VersionMap) Len() int { return len(v.entries) }
