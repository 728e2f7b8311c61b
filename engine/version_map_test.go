// (c) 2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func tid(a, b, c uint64) TransactionID { return TransactionID{A: a, B: b, C: c} }

func TestVersionMapAddIsIdempotent(t *testing.T) {
	peer := &CanonicalPeer{id: "A"}
	v := NewMaxVersionMap()
	v.Add(peer, tid(0, 10, 0))
	v.Add(peer, tid(0, 10, 0))
	got, ok := v.Get(peer)
	require.True(t, ok)
	assert.Equal(t, tid(0, 10, 0), got)

	v.Add(peer, tid(0, 5, 0))
	got, _ = v.Get(peer)
	assert.Equal(t, tid(0, 10, 0), got, "max variant keeps the larger id")
}

func TestVersionMapUnionAssociativeCommutative(t *testing.T) {
	a := &CanonicalPeer{id: "A"}
	b := &CanonicalPeer{id: "B"}
	c := &CanonicalPeer{id: "C"}

	m1 := NewMaxVersionMap()
	m1.Add(a, tid(0, 1, 0))
	m2 := NewMaxVersionMap()
	m2.Add(b, tid(0, 2, 0))
	m3 := NewMaxVersionMap()
	m3.Add(c, tid(0, 3, 0))

	left := m1.Union(m2).Union(m3)
	right := m1.Union(m2.Union(m3))
	assert.True(t, left.Equal(right))

	comm1 := m1.Union(m2)
	comm2 := m2.Union(m1)
	assert.True(t, comm1.Equal(comm2))

	empty := NewMaxVersionMap()
	assert.True(t, m1.Union(empty).Equal(m1))
}

func TestVersionMapLessEqualAfterUnion(t *testing.T) {
	a := &CanonicalPeer{id: "A"}
	m1 := NewMaxVersionMap()
	m1.Add(a, tid(0, 1, 0))
	m2 := NewMaxVersionMap()
	m2.Add(a, tid(0, 5, 0))

	u := m1.Union(m2)
	assert.True(t, m1.LessEqual(u))
	assert.True(t, m2.LessEqual(u))
}

func TestVersionMapHasPeerTransactionIDMonotone(t *testing.T) {
	a := &CanonicalPeer{id: "A"}
	m := NewMaxVersionMap()
	m.Add(a, tid(0, 10, 0))

	assert.True(t, m.HasPeerTransactionID(a, tid(0, 10, 0)))
	assert.True(t, m.HasPeerTransactionID(a, tid(0, 5, 0)))
	assert.False(t, m.HasPeerTransactionID(a, tid(0, 11, 0)))
}
