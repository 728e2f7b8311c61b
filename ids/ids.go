// (c) 2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package ids provides the identifier types shared across the engine.
// This package has no dependencies on other engine packages to avoid import
// cycles.
package ids

import (
	"bytes"
	"fmt"
)

// ObjectID is a 128-bit shared-object identity: two 64-bit words. Anonymous
// objects get a random ObjectID; named objects get one derived
// deterministically from (namespace, name) so every peer computes the same
// value independently. The exact byte layout is not load-bearing -- only
// equality and ordering are.
type ObjectID [16]byte

// String returns the hex representation of an ObjectID.
func (id ObjectID) String() string {
	return fmt.Sprintf("%x", id[:])
}

// Compare returns -1, 0, or 1 as id is less than, equal to, or greater than
// other, lexicographically over the byte array.
func (id ObjectID) Compare(other ObjectID) int {
	return bytes.Compare(id[:], other[:])
}

// IsZero reports whether id is the zero value.
func (id ObjectID) IsZero() bool {
	return id == ObjectID{}
}

// TransactionID is a totally ordered 192-bit transaction identifier: three
// 64-bit words (A, B, C) compared lexicographically. MinTransactionID is an
// invalid sentinel meaning "no transaction" / "no predecessor".
// MaxTransactionID is an upper sentinel used as the open end of an unbounded
// interval. Every TransactionID actually stored by the engine satisfies
// MinTransactionID < id < MaxTransactionID.
type TransactionID struct {
	A, B, C uint64
}

var (
	// MinTransactionID is the all-zero sentinel. It never identifies a real
	// committed transaction.
	MinTransactionID = TransactionID{}

	// MaxTransactionID is the all-ones sentinel, greater than every real
	// transaction id.
	MaxTransactionID = TransactionID{A: ^uint64(0), B: ^uint64(0), C: ^uint64(0)}
)

// Compare performs the lexicographic compare on (A, B, C) required by
// CompareTransactionIds in the component design.
func (id TransactionID) Compare(other TransactionID) int {
	switch {
	case id.A != other.A:
		return cmpUint64(id.A, other.A)
	case id.B != other.B:
		return cmpUint64(id.B, other.B)
	default:
		return cmpUint64(id.C, other.C)
	}
}

// Less reports whether id sorts strictly before other.
func (id TransactionID) Less(other TransactionID) bool {
	return id.Compare(other) < 0
}

// IsValid reports whether id is neither the min nor the max sentinel.
func (id TransactionID) IsValid() bool {
	return id != MinTransactionID && id != MaxTransactionID
}

// String renders the id as "A.B.C", matching the Dump contract (§6): every
// field that contributes to equality is emitted.
func (id TransactionID) String() string {
	return fmt.Sprintf("%d.%d.%d", id.A, id.B, id.C)
}

func cmpUint64(a, b uint64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}

// PeerID is the interned handle for a CanonicalPeer (see engine.PeerRegistry).
// Interning guarantees that PeerID equality is equivalent to peer-id string
// equality, so PeerID is safe to use as a map key anywhere a peer identity
// is needed.
type PeerID uint32

// String returns a short diagnostic form; the registry holds the real
// peer-id string.
func (id PeerID) String() string {
	return fmt.Sprintf("peer#%d", uint32(id))
}
