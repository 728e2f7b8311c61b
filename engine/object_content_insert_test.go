// (c) 2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestVersionedObjectContentInsertTransactionIsIdempotentOnID grounds
// §4.H(4): re-inserting an id already present is a no-op that leaves the
// first writer's events untouched, even when the second call's events
// differ, and reports inserted=false.
func TestVersionedObjectContentInsertTransactionIsIdempotentOnID(t *testing.T) {
	peerA := &CanonicalPeer{id: "A"}
	peerB := &CanonicalPeer{id: "B"}
	c := NewVersionedObjectContent()

	id := tid(0, 10, 0)
	first := []CommittedEvent{NewMethodCallEvent("append", []Value{StringValue(1, "first")})}
	inserted, _ := c.InsertTransaction(peerA, id, first, true)
	assert.True(t, inserted)

	second := []CommittedEvent{NewMethodCallEvent("append", []Value{StringValue(1, "second")})}
	inserted, needsReplay := c.InsertTransaction(peerB, id, second, false)
	assert.False(t, inserted, "re-inserting a known id must be a no-op")
	assert.False(t, needsReplay)

	txns, _ := c.GetTransactions(NewMaxVersionMap())
	require.Contains(t, txns, id)
	assert.Equal(t, peerA, txns[id].OriginPeer, "the first writer's origin peer survives")
	require.Len(t, txns[id].Events, 1)
	_, params, err := txns[id].Events[0].MethodCall()
	require.NoError(t, err)
	got, err := params[0].String()
	require.NoError(t, err)
	assert.Equal(t, "first", got, "the first writer's events survive a colliding re-insertion")
}

// TestVersionedObjectContentInsertTransactionReportsNeedsReplay grounds the
// needsReplay half of §4.H(4): inserting at or before
// maxRequestedTransactionID means some earlier GetWorkingVersion call may
// have already cached a result that ignored this id, so the caller must
// re-check; inserting strictly after it does not.
func TestVersionedObjectContentInsertTransactionReportsNeedsReplay(t *testing.T) {
	peerA := &CanonicalPeer{id: "A"}
	c := NewVersionedObjectContent()

	obj := NewLiveObject(noopObject{})
	c.InsertTransaction(peerA, tid(0, 10, 0), []CommittedEvent{NewObjectCreationEvent(obj)}, true)

	sp := NewSequencePoint()
	sp.AddPeerTransactionID(peerA, tid(0, 10, 0))
	self := NewBoundObjectReference(NewSharedObject(ObjectID{9}, c))
	_, _, err := c.GetWorkingVersion(self, NewMaxVersionMap(), sp)
	require.NoError(t, err)

	// maxRequestedTransactionID is now tid(0,10,0): an id at or before it
	// needs a replay re-check, one strictly after it does not.
	_, needsReplay := c.InsertTransaction(peerA, tid(0, 5, 0), []CommittedEvent{NewMethodReturnEvent(EmptyValue())}, false)
	assert.True(t, needsReplay)

	_, needsReplay = c.InsertTransaction(peerA, tid(0, 20, 0), []CommittedEvent{NewMethodReturnEvent(EmptyValue())}, false)
	assert.False(t, needsReplay)
}
