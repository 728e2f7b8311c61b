// (c) 2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package engine

// timestampedEvent pairs a CommittedEvent with the (origin peer, id) that
// produced it, for conflict reporting.
type timestampedEvent struct {
	event      CommittedEvent
	originPeer PeerHandle
	id         TransactionID
}

// PlaybackThread drives a cloned LiveObject forward by matching interpreter
// behavior against a flat, time-ordered queue of expected events. Per spec
// §9 ("Coroutine-like control flow"), this is implemented synchronously:
// the interpreter's InvokeMethod runs on the caller's goroutine and the
// queue is drained inline, rather than replicating the original's
// NOT_STARTED/STARTING/RUNNING/PAUSED/STOPPING/STOPPED worker-thread state
// machine.
type PlaybackThread struct {
	self *ObjectReference

	events []timestampedEvent
	cursor int

	liveObject *LiveObject

	conflictDetected bool
	conflict         *ConflictError

	// newObjectReferences implements the "new object" matching semantics of
	// §4.I at the level needed for anonymous sub-objects created during
	// replay to re-pair with anonymous objects created during recording.
	newObjectReferences map[*ObjectReference]struct{}
}

// NewPlaybackThread returns a PlaybackThread that will replay events
// (already filtered to those visible at the requested sequence point and
// ordered ascending by TransactionID) against self.
func NewPlaybackThread(self *ObjectReference, events []timestampedEvent) *PlaybackThread {
	return &PlaybackThread{
		self:                self,
		events:              events,
		newObjectReferences: make(map[*ObjectReference]struct{}),
	}
}

// ConflictDetected reports whether replay has diverged from the recorded
// events. Once set it is sticky for the lifetime of the PlaybackThread
// (§4.I).
func (pt *PlaybackThread) ConflictDetected() bool { return pt.conflictDetected }

// Conflict returns the recorded conflict, if any.
func (pt *PlaybackThread) Conflict() *ConflictError { return pt.conflict }

// LiveObject returns the replay's resulting object state. Only meaningful
// if !ConflictDetected().
func (pt *PlaybackThread) LiveObject() *LiveObject { return pt.liveObject }

func (pt *PlaybackThread) fail(originPeer PeerHandle, id TransactionID, why string) {
	if pt.conflictDetected {
		return
	}
	pt.conflictDetected = true
	pt.conflict = &ConflictError{Peer: originPeer, ID: id, Why: why}
}

func (pt *PlaybackThread) peekKind() (EventKind, bool) {
	if pt.cursor >= len(pt.events) {
		return 0, false
	}
	return pt.events[pt.cursor].event.Kind, true
}

// Run drains the event queue, invoking the interpreter as it goes. It
// returns once every event has been consumed, or as soon as a conflict is
// detected -- remaining events are then drained without further interpreter
// calls, per §4.I ("remaining queued events are drained and discarded").
func (pt *PlaybackThread) Run() {
	for pt.cursor < len(pt.events) && !pt.conflictDetected {
		cur := pt.events[pt.cursor]
		switch cur.event.Kind {
		case EventObjectCreation:
			obj, err := cur.event.ObjectCreation()
			if err != nil {
				pt.fail(cur.originPeer, cur.id, err.Error())
				return
			}
			if pt.liveObject == nil {
				pt.liveObject = obj.Clone()
			}
			pt.cursor++

		case EventBeginTransaction:
			pt.cursor++
			if pt.liveObject != nil {
				_ = pt // begin_transaction has no observable LiveObject effect here
			}

		case EventEndTransaction:
			pt.cursor++

		case EventMethodCall:
			pt.cursor++
			method, params, _ := cur.event.MethodCall()
			if pt.liveObject == nil {
				pt.fail(cur.originPeer, cur.id, "METHOD_CALL before OBJECT_CREATION")
				return
			}
			newObj, actualRet, err := pt.liveObject.InvokeMethod(pt, pt.self, method, params)
			if pt.conflictDetected {
				return
			}
			if err != nil {
				pt.fail(cur.originPeer, cur.id, err.Error())
				return
			}
			pt.liveObject = newObj

			kind, ok := pt.peekKind()
			if !ok || kind != EventMethodReturn {
				pt.fail(cur.originPeer, cur.id, "expected METHOD_RETURN")
				return
			}
			retEv := pt.events[pt.cursor]
			expectedRet, _ := retEv.event.MethodReturn()
			pt.cursor++
			if !pt.valuesMatch(actualRet, expectedRet) {
				pt.fail(retEv.originPeer, retEv.id, "method return value mismatch")
				return
			}

		default:
			pt.fail(cur.originPeer, cur.id, "unexpected top-level event "+cur.event.Kind.String())
			return
		}
	}
}

// valuesMatch compares actual against expected, allowing a fresh anonymous
// ObjectReference produced by replay to bind to the one recorded, per the
// new-object bookkeeping §4.I describes.
func (pt *PlaybackThread) valuesMatch(actual, expected Value) bool {
	if expected.Kind == ValueObjectReference && actual.Kind == ValueObjectReference {
		er, _ := expected.ObjectReference()
		ar, _ := actual.ObjectReference()
		if pt.objectMatches(ar, er) {
			return true
		}
	}
	return actual.Equal(expected)
}

// objectMatches implements §4.I's ObjectMatches: true if ref is already
// registered on shared, or if shared is new, ref is unbound, and no prior
// match has bound shared elsewhere.
func (pt *PlaybackThread) objectMatches(actualRef, expectedRef *ObjectReference) bool {
	if actualRef == expectedRef {
		return true
	}
	if actualRef == nil || expectedRef == nil {
		return false
	}
	if _, isNew := pt.newObjectReferences[actualRef]; isNew && !expectedRef.IsBound() {
		pt.newObjectReferences[expectedRef] = struct{}{}
		return true
	}
	return ObjectsAreIdentical(actualRef, expectedRef)
}

// --- MethodContext implementation: called back into from the interpreter
// while InvokeMethod (above) is running on the caller's goroutine. ---

func (pt *PlaybackThread) BeginTransaction() error {
	kind, ok := pt.peekKind()
	if !ok || kind != EventBeginTransaction {
		pt.fail(nil, MinTransactionID, "expected BEGIN_TRANSACTION")
		return RewindRequested
	}
	pt.cursor++
	return nil
}

func (pt *PlaybackThread) EndTransaction() error {
	kind, ok := pt.peekKind()
	if !ok || kind != EventEndTransaction {
		pt.fail(nil, MinTransactionID, "expected END_TRANSACTION")
		return RewindRequested
	}
	pt.cursor++
	return nil
}

func (pt *PlaybackThread) CreateObject(initial LocalObject, name string) (*ObjectReference, error) {
	kind, ok := pt.peekKind()
	if !ok || kind != EventSubObjectCreation {
		pt.fail(nil, MinTransactionID, "expected SUB_OBJECT_CREATION")
		return nil, RewindRequested
	}
	ev := pt.events[pt.cursor]
	expName, expRef, _ := ev.event.SubObjectCreation()
	pt.cursor++
	if expName != name {
		pt.fail(ev.originPeer, ev.id, "SUB_OBJECT_CREATION name mismatch")
		return nil, RewindRequested
	}
	pt.newObjectReferences[expRef] = struct{}{}
	return expRef, nil
}

func (pt *PlaybackThread) CallMethod(ref *ObjectReference, method string, params []Value) (Value, error) {
	kind, ok := pt.peekKind()
	if !ok {
		pt.fail(nil, MinTransactionID, "no more events for sub-call")
		return Value{}, RewindRequested
	}

	switch kind {
	case EventSubMethodCall:
		ev := pt.events[pt.cursor]
		calleeRef, expMethod, expParams, _ := ev.event.SubMethodCall()
		if ObjectsAreIdentical(ref, pt.self) {
			pt.fail(ev.originPeer, ev.id, "SUB_METHOD_CALL target must differ from self")
			return Value{}, RewindRequested
		}
		if !pt.objectMatches(ref, calleeRef) || expMethod != method || !paramsMatch(params, expParams) {
			pt.fail(ev.originPeer, ev.id, "SUB_METHOD_CALL mismatch")
			return Value{}, RewindRequested
		}
		pt.cursor++

		for {
			k, ok := pt.peekKind()
			if !ok || k != EventMethodCall {
				break
			}
			// Re-entrant METHOD_CALL injected back into *this* object by
			// the callee: replay it inline before looking for the
			// SUB_METHOD_RETURN.
			reentrant := pt.events[pt.cursor]
			pt.cursor++
			reMethod, reParams, _ := reentrant.event.MethodCall()
			newObj, actualRet, err := pt.liveObject.InvokeMethod(pt, pt.self, reMethod, reParams)
			if pt.conflictDetected {
				return Value{}, RewindRequested
			}
			if err != nil {
				pt.fail(reentrant.originPeer, reentrant.id, err.Error())
				return Value{}, RewindRequested
			}
			pt.liveObject = newObj
			k2, ok2 := pt.peekKind()
			if !ok2 || k2 != EventMethodReturn {
				pt.fail(reentrant.originPeer, reentrant.id, "expected METHOD_RETURN (re-entrant)")
				return Value{}, RewindRequested
			}
			retEv := pt.events[pt.cursor]
			expRet, _ := retEv.event.MethodReturn()
			pt.cursor++
			if !pt.valuesMatch(actualRet, expRet) {
				pt.fail(retEv.originPeer, retEv.id, "re-entrant return value mismatch")
				return Value{}, RewindRequested
			}
		}

		k, ok := pt.peekKind()
		if !ok || k != EventSubMethodReturn {
			pt.fail(ev.originPeer, ev.id, "expected SUB_METHOD_RETURN")
			return Value{}, RewindRequested
		}
		retEv := pt.events[pt.cursor]
		ret, _ := retEv.event.SubMethodReturn()
		pt.cursor++
		return ret, nil

	case EventSelfMethodCall:
		ev := pt.events[pt.cursor]
		expMethod, expParams, _ := ev.event.MethodCall()
		if !ObjectsAreIdentical(ref, pt.self) {
			pt.fail(ev.originPeer, ev.id, "SELF_METHOD_CALL target must be self")
			return Value{}, RewindRequested
		}
		if expMethod != method || !paramsMatch(params, expParams) {
			pt.fail(ev.originPeer, ev.id, "SELF_METHOD_CALL mismatch")
			return Value{}, RewindRequested
		}
		pt.cursor++

		newObj, actualRet, err := pt.liveObject.InvokeMethod(pt, pt.self, method, params)
		if pt.conflictDetected {
			return Value{}, RewindRequested
		}
		if err != nil {
			pt.fail(ev.originPeer, ev.id, err.Error())
			return Value{}, RewindRequested
		}
		pt.liveObject = newObj

		k, ok := pt.peekKind()
		if !ok || k != EventSelfMethodReturn {
			pt.fail(ev.originPeer, ev.id, "expected SELF_METHOD_RETURN")
			return Value{}, RewindRequested
		}
		retEv := pt.events[pt.cursor]
		expRet, _ := retEv.event.MethodReturn()
		pt.cursor++
		if !pt.valuesMatch(actualRet, expRet) {
			pt.fail(retEv.originPeer, retEv.id, "self return value mismatch")
			return Value{}, RewindRequested
		}
		return actualRet, nil

	default:
		pt.fail(nil, MinTransactionID, "unexpected event where a sub-call was expected")
		return Value{}, RewindRequested
	}
}

func (pt *PlaybackThread) ObjectsAreIdentical(a, b *ObjectReference) bool {
	return ObjectsAreIdentical(a, b)
}

func paramsMatch(actual, expected []Value) bool {
	if len(actual) != len(expected) {
		return false
	}
	for i := range actual {
		if !actual[i].Equal(expected[i]) {
			return false
		}
	}
	return true
}

var _ MethodContext = (*PlaybackThread)(nil)
