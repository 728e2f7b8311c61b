// (c) 2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package engine

import "sync"

// ExecutionPhase is the result of GetExecutionPhase (§4.K).
type ExecutionPhase int

const (
	PhaseNormal ExecutionPhase = iota
	PhaseRewind
	PhaseResume
)

// Store is the subset of TransactionStore that RecordingThread drives
// (§4.K's list of operations exposed to the recording thread).
type Store interface {
	GetLocalPeer() PeerHandle
	GetCurrentSequencePoint() *SequencePoint
	GetLiveObjectAtSequencePoint(ref *ObjectReference, sp *SequencePoint, wait bool) (*LiveObject, error)
	CreateUnboundObjectReference() *ObjectReference
	CreateBoundObjectReference(name string, initial LocalObject) (*ObjectReference, error)
	CreateTransaction(objectTransactions map[*ObjectReference]*SharedObjectTransaction, modifiedObjects map[*ObjectReference]*LiveObject, prevSequencePoint *SequencePoint) (TransactionID, error)
	ObjectsAreIdentical(a, b *ObjectReference) bool
	GetExecutionPhase(baseTransactionID TransactionID) ExecutionPhase
	WaitForRewind()
	RegisterRecordingThread(rt *RecordingThread)
	UnregisterRecordingThread(rt *RecordingThread)
}

type newObjectEntry struct {
	liveObject *LiveObject
	isNamed    bool
}

// RecordingThread is the external interface the interpreter sees during
// normal (forward) execution (§4.J). It buffers PendingEvents, groups them
// into transactions, and participates in the rewind protocol.
type RecordingThread struct {
	store Store

	mu sync.Mutex

	transactionLevel int
	events           []*PendingEvent
	modifiedObjects  map[*ObjectReference]*LiveObject
	newObjects       map[*ObjectReference]newObjectEntry

	currentObjectReference *ObjectReference
	currentLiveObject      *LiveObject

	currentTransactionID TransactionID

	// rejectedTransactionID is a diagnostic record of the most recent
	// rewind notice this thread has received via Rewind; CallMethod's
	// actual unwind decision comes from Store.GetExecutionPhase, not this
	// field (§4.J, §5).
	rejectedTransactionID TransactionID

	committingTransaction bool

	sequencePoint *SequencePoint
}

// NewRecordingThread returns a RecordingThread driven by store.
func NewRecordingThread(store Store) *RecordingThread {
	rt := &RecordingThread{
		store:                 store,
		modifiedObjects:       make(map[*ObjectReference]*LiveObject),
		newObjects:            make(map[*ObjectReference]newObjectEntry),
		rejectedTransactionID: MinTransactionID,
		sequencePoint:         store.GetCurrentSequencePoint(),
	}
	store.RegisterRecordingThread(rt)
	return rt
}

// Close unregisters rt from its store's rewind-notification registry. Call
// it once the thread is done executing.
func (rt *RecordingThread) Close() {
	rt.store.UnregisterRecordingThread(rt)
}

func (rt *RecordingThread) resetPendingLocked() {
	rt.events = nil
	rt.modifiedObjects = make(map[*ObjectReference]*LiveObject)
	rt.newObjects = make(map[*ObjectReference]newObjectEntry)
}

// BeginTransaction opens an explicit transaction, deferring commit until
// the matching EndTransaction (§4.J commit policy).
func (rt *RecordingThread) BeginTransaction() error {
	rt.mu.Lock()
	defer rt.mu.Unlock()
	rt.transactionLevel++
	rt.events = append(rt.events, NewPendingBeginTransaction())
	return nil
}

// EndTransaction closes an explicit transaction. If it is the outermost one
// and at least one event has been recorded, it commits.
func (rt *RecordingThread) EndTransaction() error {
	rt.mu.Lock()
	rt.events = append(rt.events, NewPendingEndTransaction())
	if rt.transactionLevel > 0 {
		rt.transactionLevel--
	}
	shouldCommit := rt.transactionLevel == 0 && len(rt.events) > 0
	rt.mu.Unlock()

	if shouldCommit {
		return rt.commit()
	}
	return nil
}

// CreateObject implements the three creation paths of §4.G: unbound (name
// == "" is not this path -- RecordingThread.CreateObject always creates a
// live, at-least-anonymous object; callers that want an unbound placeholder
// use Store.CreateUnboundObjectReference directly), anonymous bound
// (name == ""), and named bound (name != "", deduplicated by the store).
func (rt *RecordingThread) CreateObject(initial LocalObject, name string) (*ObjectReference, error) {
	ref, err := rt.store.CreateBoundObjectReference(name, initial)
	if err != nil {
		return nil, err
	}

	rt.mu.Lock()
	defer rt.mu.Unlock()

	obj := NewLiveObject(initial)
	rt.newObjects[ref] = newObjectEntry{liveObject: obj, isNamed: name != ""}
	rt.modifiedObjects[ref] = obj

	if rt.currentObjectReference == nil {
		pe := NewPendingObjectCreation(ref, obj)
		pe.CalleeRef = ref
		rt.events = append(rt.events, pe)
	} else {
		e := newPendingEvent(EventSubObjectCreation)
		e.Name = name
		e.NewRef = ref
		e.CalleeRef = rt.currentObjectReference
		e.LiveObjects[ref] = obj
		e.NewObjectRefs[ref] = struct{}{}
		rt.events = append(rt.events, e)
	}
	return ref, nil
}

// CallMethod implements the four-step flow of §4.J. On rewind it returns
// RewindRequested having discarded any events appended after the pre-call
// snapshot, per the cancellation rule of §5.
func (rt *RecordingThread) CallMethod(ref *ObjectReference, method string, params []Value) (Value, error) {
	rt.mu.Lock()

	preCallEventCount := len(rt.events)
	methodCallTransactionID := rt.currentTransactionID
	caller := rt.currentObjectReference
	callerLiveObject := rt.currentLiveObject

	selfObj, ok := rt.modifiedObjects[ref]
	if !ok {
		rt.mu.Unlock()
		var err error
		selfObj, err = rt.store.GetLiveObjectAtSequencePoint(ref, rt.sequencePoint, true)
		if err != nil {
			return Value{}, err
		}
		rt.mu.Lock()
		rt.modifiedObjects[ref] = selfObj
	}

	kind := EventMethodCall
	if caller != nil && !rt.store.ObjectsAreIdentical(caller, ref) {
		kind = EventSubMethodCall
	} else if caller != nil {
		kind = EventSelfMethodCall
	}

	pe := NewPendingMethodCall(caller, ref, selfObj, method, params)
	pe.Kind = kind
	rt.events = append(rt.events, pe)

	rt.currentObjectReference = ref
	rt.currentLiveObject = selfObj
	rt.mu.Unlock()

	newObj, retval, err := selfObj.InvokeMethod(rt, ref, method, params)

	rt.mu.Lock()
	rt.currentObjectReference = caller
	rt.currentLiveObject = callerLiveObject

	if err != nil {
		rt.mu.Unlock()
		return Value{}, err
	}

	if rt.store.GetExecutionPhase(methodCallTransactionID) == PhaseRewind {
		// A rewind covering this call's transaction has been observed:
		// discard everything recorded since the pre-call snapshot and
		// unwind (§4.J step 4, §5 cancellation).
		rt.events = rt.events[:preCallEventCount]
		rt.mu.Unlock()
		return Value{}, RewindRequested
	}

	rt.modifiedObjects[ref] = newObj

	retKind := EventMethodReturn
	switch kind {
	case EventSubMethodCall:
		retKind = EventSubMethodReturn
	case EventSelfMethodCall:
		retKind = EventSelfMethodReturn
	}
	retEvent := NewPendingMethodReturn(retval)
	retEvent.Kind = retKind
	retEvent.CalleeRef = ref
	retEvent.PrevObjectRef = caller
	rt.events = append(rt.events, retEvent)

	shouldCommit := rt.transactionLevel == 0 && rt.currentObjectReference == nil && len(rt.events) > 0
	rt.mu.Unlock()

	if shouldCommit {
		if cerr := rt.commit(); cerr != nil {
			return Value{}, cerr
		}
	}

	return retval, nil
}

// ObjectsAreIdentical delegates to the store.
func (rt *RecordingThread) ObjectsAreIdentical(a, b *ObjectReference) bool {
	return rt.store.ObjectsAreIdentical(a, b)
}

// commit hands the buffered events to the store, guarded against
// re-entrancy by committingTransaction (§4.J).
func (rt *RecordingThread) commit() error {
	rt.mu.Lock()
	if rt.committingTransaction {
		rt.mu.Unlock()
		return nil
	}
	rt.committingTransaction = true
	events := rt.events
	modified := rt.modifiedObjects
	prevSP := rt.sequencePoint
	rt.resetPendingLocked()
	rt.mu.Unlock()

	objectTransactions := make(map[*ObjectReference]*SharedObjectTransaction)
	for _, pe := range events {
		ref := pe.CalleeRef
		if ref == nil {
			// BEGIN_TRANSACTION/END_TRANSACTION apply to the currently
			// open call's object; attribute them to every object this
			// batch touches so every affected SharedObjectTransaction
			// sees the bracketing events.
			for r := range modified {
				txn := objectTransactions[r]
				if txn == nil {
					txn = &SharedObjectTransaction{OriginPeer: rt.store.GetLocalPeer()}
					objectTransactions[r] = txn
				}
				txn.Events = append(txn.Events, pe.ToCommittedEvent(pe.Kind))
			}
			continue
		}

		appendTo := func(r *ObjectReference, kind EventKind) {
			txn := objectTransactions[r]
			if txn == nil {
				txn = &SharedObjectTransaction{OriginPeer: rt.store.GetLocalPeer()}
				objectTransactions[r] = txn
			}
			txn.Events = append(txn.Events, pe.ToCommittedEvent(kind))
		}

		switch pe.Kind {
		case EventSubMethodCall, EventSubMethodReturn:
			// A cross-object call is recorded twice: the caller's own
			// history gets the SUB_METHOD_CALL/SUB_METHOD_RETURN marker (so
			// its replay knows to delegate out at this point), and the
			// callee's own history gets the plain METHOD_CALL/METHOD_RETURN
			// that actually carries the mutation -- from the callee's own
			// perspective this is indistinguishable from any other call.
			if pe.PrevObjectRef != nil {
				appendTo(pe.PrevObjectRef, pe.Kind)
			}
			plainKind := EventMethodCall
			if pe.Kind == EventSubMethodReturn {
				plainKind = EventMethodReturn
			}
			appendTo(ref, plainKind)
		default:
			appendTo(ref, pe.Kind)
		}
	}

	id, err := rt.store.CreateTransaction(objectTransactions, modified, prevSP)

	rt.mu.Lock()
	rt.committingTransaction = false
	if err == nil {
		rt.currentTransactionID = id
		rt.sequencePoint = rt.store.GetCurrentSequencePoint()
	}
	rt.mu.Unlock()

	return err
}

// Rewind is called by the store's recording-thread registry when one of
// this peer's own transactions starting at rejectedID has been rejected
// (§4.J "Rewind protocol"). CallMethod's unwind decision is driven by
// Store.GetExecutionPhase, not by this call directly; Rewind only records
// the most recent rewind notice this thread has been told about. It is safe
// to call from any goroutine.
func (rt *RecordingThread) Rewind(rejectedID TransactionID) {
	rt.mu.Lock()
	defer rt.mu.Unlock()
	rt.rejectedTransactionID = rejectedID
}

// Resume clears the diagnostic rewind notice recorded by Rewind, once
// RunProgram's retry has observed PhaseResume (or simply moved past it).
func (rt *RecordingThread) Resume() {
	rt.mu.Lock()
	defer rt.mu.Unlock()
	rt.rejectedTransactionID = MinTransactionID
}

// RunProgram drives method on initial, retrying from the top whenever
// CallMethod unwinds with RewindRequested, and optionally lingering
// afterward so that late rewinds remain possible (§4.J).
func (rt *RecordingThread) RunProgram(ref *ObjectReference, method string, params []Value, linger bool) (Value, error) {
	for {
		ret, err := rt.CallMethod(ref, method, params)
		if err == RewindRequested {
			rt.store.WaitForRewind()
			rt.Resume()
			continue
		}
		if !linger {
			return ret, err
		}
		rt.store.WaitForRewind()
		rt.Resume()
		return ret, err
	}
}

var _ MethodContext = (*RecordingThread)(nil)
