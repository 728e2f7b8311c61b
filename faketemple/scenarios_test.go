// (c) 2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package faketemple_test

import (
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/luxfi/floatingtemple/engine"
	"github.com/luxfi/floatingtemple/faketemple"
)

func newPeer(t *testing.T, name string) engine.PeerHandle {
	t.Helper()
	reg := engine.NewPeerRegistry()
	return reg.Intern(name)
}

func sv(s string) engine.Value { return engine.StringValue(1, s) }

func newObjectAt(id engine.TransactionID, peer engine.PeerHandle, content *engine.VersionedObjectContent, initial string) {
	obj := engine.NewLiveObject(faketemple.NewStringObjectWithValue(initial))
	content.InsertTransaction(peer, id, []engine.CommittedEvent{engine.NewObjectCreationEvent(obj)}, true)
}

func appendAt(id engine.TransactionID, peer engine.PeerHandle, content *engine.VersionedObjectContent, arg string) {
	content.InsertTransaction(peer, id, []engine.CommittedEvent{
		engine.NewMethodCallEvent("append", []engine.Value{sv(arg)}),
		engine.NewMethodReturnEvent(engine.EmptyValue()),
	}, true)
}

func getAt(id engine.TransactionID, peer engine.PeerHandle, content *engine.VersionedObjectContent, ret string) {
	content.InsertTransaction(peer, id, []engine.CommittedEvent{
		engine.NewMethodCallEvent("get", nil),
		engine.NewMethodReturnEvent(sv(ret)),
	}, true)
}

// TestScenario1_AppendGetSinglePeer grounds spec scenario 1: a single peer's
// append then get replay to the expected accumulated string, with no
// rejections.
func TestScenario1_AppendGetSinglePeer(t *testing.T) {
	peerA := newPeer(t, "A")
	content := engine.NewVersionedObjectContent()
	shared := engine.NewSharedObject(engine.ObjectID{1}, content)
	self := engine.NewBoundObjectReference(shared)

	newObjectAt(engine.TransactionID{B: 10}, peerA, content, "apple.")
	appendAt(engine.TransactionID{B: 20}, peerA, content, "banana.")
	getAt(engine.TransactionID{B: 30}, peerA, content, "apple.banana.")

	sp := engine.NewSequencePoint()
	sp.AddPeerTransactionID(peerA, engine.TransactionID{B: 30})

	storeVersion := engine.NewMaxVersionMap()
	storeVersion.Add(peerA, engine.TransactionID{B: 30})

	obj, rejected, err := content.GetWorkingVersion(self, storeVersion, sp)
	require.NoError(t, err)
	assert.Empty(t, rejected)
	require.NotNil(t, obj)
	assert.Equal(t, "apple.banana.", obj.Local().(*faketemple.StringObject).Value())
}

// TestScenario2_ConflictOnLaterPeer grounds spec scenario 2: peer B's
// recorded get() return value ("apple.durian.") never matches what replay
// computes, whether or not peer A's later append is visible, so replay
// reports B's transaction as rejected at every sequence point, and the
// surviving content reflects only A.
func TestScenario2_ConflictOnLaterPeer(t *testing.T) {
	peerA := newPeer(t, "A")
	peerB := newPeer(t, "B")
	content := engine.NewVersionedObjectContent()
	shared := engine.NewSharedObject(engine.ObjectID{2}, content)
	self := engine.NewBoundObjectReference(shared)

	newObjectAt(engine.TransactionID{B: 10}, peerA, content, "apple.")
	appendAt(engine.TransactionID{B: 30}, peerA, content, "cherry.")

	content.InsertTransaction(peerB, engine.TransactionID{B: 20}, []engine.CommittedEvent{
		engine.NewMethodCallEvent("append", []engine.Value{sv("banana.")}),
		engine.NewMethodReturnEvent(engine.EmptyValue()),
		engine.NewMethodCallEvent("get", nil),
		engine.NewMethodReturnEvent(sv("apple.durian.")),
	}, false)

	run := func(aVersion uint64) (*engine.LiveObject, []engine.RejectedTransaction) {
		sp := engine.NewSequencePoint()
		sp.AddPeerTransactionID(peerA, engine.TransactionID{B: aVersion})
		sp.AddPeerTransactionID(peerB, engine.TransactionID{B: 20})

		storeVersion := engine.NewMaxVersionMap()
		storeVersion.Add(peerA, engine.TransactionID{B: aVersion})
		storeVersion.Add(peerB, engine.TransactionID{B: 20})

		obj, rejected, err := content.GetWorkingVersion(self, storeVersion, sp)
		require.NoError(t, err)
		return obj, rejected
	}

	obj1, rejected1 := run(10)
	require.NotNil(t, obj1)
	assert.Equal(t, "apple.", obj1.Local().(*faketemple.StringObject).Value())
	require.Len(t, rejected1, 1)
	assert.Equal(t, peerB, rejected1[0].Peer)
	assert.Equal(t, engine.TransactionID{B: 20}, rejected1[0].ID)

	obj2, rejected2 := run(30)
	require.NotNil(t, obj2)
	assert.Equal(t, "apple.cherry.", obj2.Local().(*faketemple.StringObject).Value())
	require.Len(t, rejected2, 1)
	assert.Equal(t, peerB, rejected2[0].Peer)
}

// TestScenario3_LateArrivingObjectCreation grounds spec scenario 3: an
// append is inserted before its OBJECT_CREATION has arrived, so replay at a
// sequence point that only sees the append returns nil (not ready), and
// succeeds once the creation event is also visible.
func TestScenario3_LateArrivingObjectCreation(t *testing.T) {
	peerA := newPeer(t, "A")
	peerB := newPeer(t, "B")
	content := engine.NewVersionedObjectContent()
	shared := engine.NewSharedObject(engine.ObjectID{3}, content)
	self := engine.NewBoundObjectReference(shared)

	appendAt(engine.TransactionID{B: 20}, peerB, content, "banana.")

	spBOnly := engine.NewSequencePoint()
	spBOnly.AddPeerTransactionID(peerB, engine.TransactionID{B: 20})
	storeVersionBOnly := engine.NewMaxVersionMap()
	storeVersionBOnly.Add(peerB, engine.TransactionID{B: 20})

	obj, rejected, err := content.GetWorkingVersion(self, storeVersionBOnly, spBOnly)
	require.NoError(t, err)
	assert.Empty(t, rejected)
	assert.Nil(t, obj)

	newObjectAt(engine.TransactionID{B: 10}, peerA, content, "apple.")

	sp := engine.NewSequencePoint()
	sp.AddPeerTransactionID(peerA, engine.TransactionID{B: 10})
	sp.AddPeerTransactionID(peerB, engine.TransactionID{B: 20})
	storeVersion := engine.NewMaxVersionMap()
	storeVersion.Add(peerA, engine.TransactionID{B: 10})
	storeVersion.Add(peerB, engine.TransactionID{B: 20})

	obj2, rejected2, err := content.GetWorkingVersion(self, storeVersion, sp)
	require.NoError(t, err)
	assert.Empty(t, rejected2)
	require.NotNil(t, obj2)
	assert.Equal(t, "apple.banana.", obj2.Local().(*faketemple.StringObject).Value())
}

// TestScenario4_SpanningTransactionBoundaries grounds spec scenario 4: a
// METHOD_CALL and its METHOD_RETURN can fall in different transactions, and
// replay still matches them up correctly because matching operates on the
// flattened event stream, not on transaction boundaries.
func TestScenario4_SpanningTransactionBoundaries(t *testing.T) {
	peerA := newPeer(t, "A")
	content := engine.NewVersionedObjectContent()
	shared := engine.NewSharedObject(engine.ObjectID{4}, content)
	self := engine.NewBoundObjectReference(shared)

	obj := engine.NewLiveObject(faketemple.NewStringObjectWithValue("Game. "))
	content.InsertTransaction(peerA, engine.TransactionID{B: 100}, []engine.CommittedEvent{
		engine.NewObjectCreationEvent(obj),
		engine.NewMethodCallEvent("append", []engine.Value{sv("Set. ")}),
	}, true)
	content.InsertTransaction(peerA, engine.TransactionID{B: 200}, []engine.CommittedEvent{
		engine.NewMethodReturnEvent(engine.EmptyValue()),
		engine.NewMethodCallEvent("append", []engine.Value{sv("Match.")}),
	}, true)
	content.InsertTransaction(peerA, engine.TransactionID{B: 300}, []engine.CommittedEvent{
		engine.NewMethodReturnEvent(engine.EmptyValue()),
	}, true)

	sp := engine.NewSequencePoint()
	sp.AddPeerTransactionID(peerA, engine.TransactionID{B: 300})
	storeVersion := engine.NewMaxVersionMap()
	storeVersion.Add(peerA, engine.TransactionID{B: 300})

	got, rejected, err := content.GetWorkingVersion(self, storeVersion, sp)
	require.NoError(t, err)
	assert.Empty(t, rejected)
	require.NotNil(t, got)
	assert.Equal(t, "Game. Set. Match.", got.Local().(*faketemple.StringObject).Value())
}

// TestScenario5_SubMethodCallMatch grounds spec scenario 5: a method call
// that delegates into a second object is recorded as SUB_METHOD_CALL /
// SUB_METHOD_RETURN in the caller's own history, and as a plain METHOD_CALL /
// METHOD_RETURN in the callee's own history, and both replay cleanly on
// their own.
func TestScenario5_SubMethodCallMatch(t *testing.T) {
	peers := engine.NewPeerRegistry()
	peerA := peers.Intern("A")
	store := engine.NewTransactionStore(peerA, peers, nil)
	rt := engine.NewRecordingThread(store)

	require.NoError(t, rt.BeginTransaction())
	targetRef, err := rt.CreateObject(faketemple.NewStringObjectWithValue("box."), "scenario5-target")
	require.NoError(t, err)
	callerRef, err := rt.CreateObject(faketemple.NewBoxObject(), "scenario5-caller")
	require.NoError(t, err)
	require.NoError(t, rt.EndTransaction())

	ret, err := rt.RunProgram(callerRef, "fill", []engine.Value{
		engine.ObjectReferenceValue(0, targetRef),
		sv("lid."),
	}, false)
	require.NoError(t, err)
	assert.True(t, ret.Equal(engine.EmptyValue()))

	sp := store.GetCurrentSequencePoint()
	targetObj, rejected, err := targetRef.SharedObject().Content().GetWorkingVersion(targetRef, sp.VersionMap(), sp)
	require.NoError(t, err)
	assert.Empty(t, rejected)
	require.NotNil(t, targetObj)
	assert.Equal(t, "box.lid.", targetObj.Local().(*faketemple.StringObject).Value())

	callerObj, rejected, err := callerRef.SharedObject().Content().GetWorkingVersion(callerRef, sp.VersionMap(), sp)
	require.NoError(t, err)
	assert.Empty(t, rejected)
	require.NotNil(t, callerObj)
}

// TestScenario6_RewindAndRetryAfterRejection grounds spec scenario 6: once
// replay discovers that a peer's own recorded get() no longer matches a
// concurrent remote append that turns out to sit earlier in the true order,
// the store rejects that peer's own transaction and tells every registered
// RecordingThread to rewind. A live CallMethod bound to the stale
// transaction observes this as RewindRequested, and GetExecutionPhase
// reports the full rewind-then-resume handshake once a call names a
// transaction from before the rejection.
func TestScenario6_RewindAndRetryAfterRejection(t *testing.T) {
	registry := engine.NewPeerRegistry()
	peerA := registry.Intern("A")
	peerB := registry.Intern("B")

	net := faketemple.NewInMemoryNetwork()
	store := engine.NewTransactionStore(peerA, registry, nil)
	store.SetSender(net.Register(peerA, store))

	rt := engine.NewRecordingThread(store)
	defer rt.Close()

	require.NoError(t, rt.BeginTransaction())
	ref, err := rt.CreateObject(faketemple.NewStringObjectWithValue("apple."), "scenario6")
	require.NoError(t, err)
	require.NoError(t, rt.EndTransaction())

	ret, err := rt.RunProgram(ref, "get", nil, false)
	require.NoError(t, err)
	got, err := ret.String()
	require.NoError(t, err)
	assert.Equal(t, "apple.", got)

	content := ref.SharedObject().Content()
	committed, _ := content.GetTransactions(engine.NewMaxVersionMap())
	require.Len(t, committed, 2)
	txnIDs := make([]engine.TransactionID, 0, 2)
	for id := range committed {
		txnIDs = append(txnIDs, id)
	}
	sort.Slice(txnIDs, func(i, j int) bool { return txnIDs[i].Less(txnIDs[j]) })
	createID, getID := txnIDs[0], txnIDs[1]

	// A remote append that, from A's point of view, turns out to have
	// happened between its own object creation and its own get(): the
	// value get() recorded ("apple.") no longer matches the true replay
	// ("apple.banana."), so A's own get transaction must be rejected.
	betweenID := engine.TransactionID{A: createID.A, B: createID.B, C: createID.C + 1}
	content.InsertTransaction(peerB, betweenID, []engine.CommittedEvent{
		engine.NewMethodCallEvent("append", []engine.Value{sv("banana.")}),
		engine.NewMethodReturnEvent(engine.EmptyValue()),
	}, false)

	sp := engine.NewSequencePoint()
	sp.AddPeerTransactionID(peerA, getID)
	sp.AddPeerTransactionID(peerB, betweenID)

	_, err = store.GetLiveObjectAtSequencePoint(ref, sp, false)
	require.NoError(t, err)

	assert.Equal(t, engine.PhaseRewind, store.GetExecutionPhase(getID),
		"the rejected transaction's own id is still inside the rewind window")

	_, err = rt.CallMethod(ref, "get", nil)
	assert.ErrorIs(t, err, engine.RewindRequested,
		"a live CallMethod bound to the rejected transaction must unwind, not just a direct store query")

	assert.Equal(t, engine.PhaseResume, store.GetExecutionPhase(createID),
		"a base transaction from strictly before the rejection is the first to observe resume")
	assert.Equal(t, engine.PhaseNormal, store.GetExecutionPhase(getID),
		"resume clears the pending rewind for everyone after")
}
