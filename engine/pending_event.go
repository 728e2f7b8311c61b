// (c) 2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package engine

// PendingEvent is what RecordingThread emits before a transaction commits.
// It parallels CommittedEvent (OBJECT_CREATION, BEGIN/END_TRANSACTION,
// METHOD_CALL, METHOD_RETURN -- the forward-direction variants named in
// §3) but additionally carries the bookkeeping RecordingThread needs to
// later split the buffered events into one SharedObjectTransaction per
// touched SharedObject and to decide, for each recorded call, whether it
// becomes a METHOD_CALL, SELF_METHOD_CALL, or SUB_METHOD_CALL
// CommittedEvent:
//
//   - LiveObjects: the clone-on-write snapshot of every object this event
//     touched, keyed by reference.
//   - NewObjectRefs: the subset of those references that were newly
//     created by this event (so replay can re-pair them as "fresh").
//   - PrevObjectRef: the caller's object reference, or nil at the
//     outermost call.
type PendingEvent struct {
	Kind EventKind

	Name      string
	Params    []Value
	Retval    Value
	CalleeRef *ObjectReference
	NewRef    *ObjectReference
	LiveObj   *LiveObject

	LiveObjects   map[*ObjectReference]*LiveObject
	NewObjectRefs map[*ObjectReference]struct{}
	PrevObjectRef *ObjectReference
}

func newPendingEvent(kind EventKind) *PendingEvent {
	return &PendingEvent{
		Kind:          kind,
		LiveObjects:   make(map[*ObjectReference]*LiveObject),
		NewObjectRefs: make(map[*ObjectReference]struct{}),
	}
}

// NewPendingObjectCreation records that ref was just created with the given
// initial live object.
func NewPendingObjectCreation(ref *ObjectReference, obj *LiveObject) *PendingEvent {
	e := newPendingEvent(EventObjectCreation)
	e.LiveObj = obj
	e.LiveObjects[ref] = obj
	e.NewObjectRefs[ref] = struct{}{}
	return e
}

// NewPendingBeginTransaction records an explicit begin_transaction call.
func NewPendingBeginTransaction() *PendingEvent {
	return newPendingEvent(EventBeginTransaction)
}

// NewPendingEndTransaction records an explicit end_transaction call.
func NewPendingEndTransaction() *PendingEvent {
	return newPendingEvent(EventEndTransaction)
}

// NewPendingMethodCall records the start of a method invocation: caller is
// nil if this is the outermost call. self and callee are the same
// reference for a self/top-level call, different for a call into another
// object (RecordingThread resolves which CommittedEvent kind this becomes
// at commit time, once it knows whether caller == callee).
func NewPendingMethodCall(caller, self *ObjectReference, selfObj *LiveObject, method string, params []Value) *PendingEvent {
	e := newPendingEvent(EventMethodCall)
	e.PrevObjectRef = caller
	e.CalleeRef = self
	e.Name = method
	e.Params = params
	if selfObj != nil {
		e.LiveObjects[self] = selfObj
	}
	return e
}

// NewPendingMethodReturn records a method's return value.
func NewPendingMethodReturn(v Value) *PendingEvent {
	e := newPendingEvent(EventMethodReturn)
	e.Retval = v
	return e
}

// Touch records that ref's live object snapshot obj was read or written
// during this event, for the eventual SharedObjectTransaction split.
func (e *PendingEvent) Touch(ref *ObjectReference, obj *LiveObject) {
	e.LiveObjects[ref] = obj
}

// MarkNew records that ref was newly created during this event.
func (e *PendingEvent) MarkNew(ref *ObjectReference) {
	e.NewObjectRefs[ref] = struct{}{}
}

// IsNew reports whether ref was newly created during this event.
func (e *PendingEvent) IsNew(ref *ObjectReference) bool {
	_, ok := e.NewObjectRefs[ref]
	return ok
}

// ToCommittedEvent converts the PendingEvent to its CommittedEvent form for
// the committed kind given by kindOverride. The caller (RecordingThread, at
// commit time) has already decided which kind each object's history gets --
// e.g. SUB_METHOD_CALL for the caller's own transaction and plain
// METHOD_CALL for the callee's -- and passes it in explicitly; e.Kind is not
// consulted.
func (e *PendingEvent) ToCommittedEvent(kindOverride EventKind) CommittedEvent {
	switch kindOverride {
	case EventObjectCreation:
		return NewObjectCreationEvent(e.LiveObj)
	case EventSubObjectCreation:
		return NewSubObjectCreationEvent(e.Name, e.NewRef)
	case EventBeginTransaction:
		return NewBeginTransactionEvent()
	case EventEndTransaction:
		return NewEndTransactionEvent()
	case EventMethodCall:
		return NewMethodCallEvent(e.Name, e.Params)
	case EventMethodReturn:
		return NewMethodReturnEvent(e.Retval)
	case EventSubMethodCall:
		return NewSubMethodCallEvent(e.CalleeRef, e.Name, e.Params)
	case EventSubMethodReturn:
		return NewSubMethodReturnEvent(e.Retval)
	case EventSelfMethodCall:
		return NewSelfMethodCallEvent(e.Name, e.Params)
	case EventSelfMethodReturn:
		return NewSelfMethodReturnEvent(e.Retval)
	default:
		mustInvariant(false, "pending event: unknown committed kind %v", kindOverride)
		return CommittedEvent{}
	}
}
