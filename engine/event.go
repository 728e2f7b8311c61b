// (c) 2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package engine

// EventKind tags the variant held by a CommittedEvent / PendingEvent.
type EventKind uint8

const (
	EventObjectCreation EventKind = iota
	EventSubObjectCreation
	EventBeginTransaction
	EventEndTransaction
	EventMethodCall
	EventMethodReturn
	EventSubMethodCall
	EventSubMethodReturn
	EventSelfMethodCall
	EventSelfMethodReturn
)

func (k EventKind) String() string {
	switch k {
	case EventObjectCreation:
		return "OBJECT_CREATION"
	case EventSubObjectCreation:
		return "SUB_OBJECT_CREATION"
	case EventBeginTransaction:
		return "BEGIN_TRANSACTION"
	case EventEndTransaction:
		return "END_TRANSACTION"
	case EventMethodCall:
		return "METHOD_CALL"
	case EventMethodReturn:
		return "METHOD_RETURN"
	case EventSubMethodCall:
		return "SUB_METHOD_CALL"
	case EventSubMethodReturn:
		return "SUB_METHOD_RETURN"
	case EventSelfMethodCall:
		return "SELF_METHOD_CALL"
	case EventSelfMethodReturn:
		return "SELF_METHOD_RETURN"
	default:
		return "UNKNOWN"
	}
}

// CommittedEvent is the sum type over the ten variants named in §3. Each
// payload-carrying variant has an accessor (METHOD_CALL and SELF_METHOD_CALL
// share MethodCall, METHOD_RETURN and SELF_METHOD_RETURN share MethodReturn;
// BEGIN_TRANSACTION and END_TRANSACTION carry no payload); calling the wrong
// accessor returns InvalidEventAccess (§4.F). CommittedEvents are shared-immutable
// once placed in an ObjectContent's committed_versions.
type CommittedEvent struct {
	Kind EventKind

	// OBJECT_CREATION
	liveObject *LiveObject

	// SUB_OBJECT_CREATION
	name     string
	newRef   *ObjectReference

	// METHOD_CALL / SUB_METHOD_CALL / SELF_METHOD_CALL
	method    string
	params    []Value
	calleeRef *ObjectReference // SUB_METHOD_CALL only

	// METHOD_RETURN / SUB_METHOD_RETURN / SELF_METHOD_RETURN
	retval Value
}

func NewObjectCreationEvent(obj *LiveObject) CommittedEvent {
	return CommittedEvent{Kind: EventObjectCreation, liveObject: obj}
}

func NewSubObjectCreationEvent(name string, ref *ObjectReference) CommittedEvent {
	return CommittedEvent{Kind: EventSubObjectCreation, name: name, newRef: ref}
}

func NewBeginTransactionEvent() CommittedEvent {
	return CommittedEvent{Kind: EventBeginTransaction}
}

func NewEndTransactionEvent() CommittedEvent {
	return CommittedEvent{Kind: EventEndTransaction}
}

func NewMethodCallEvent(method string, params []Value) CommittedEvent {
	return CommittedEvent{Kind: EventMethodCall, method: method, params: params}
}

func NewMethodReturnEvent(v Value) CommittedEvent {
	return CommittedEvent{Kind: EventMethodReturn, retval: v}
}

func NewSubMethodCallEvent(callee *ObjectReference, method string, params []Value) CommittedEvent {
	return CommittedEvent{Kind: EventSubMethodCall, calleeRef: callee, method: method, params: params}
}

func NewSubMethodReturnEvent(v Value) CommittedEvent {
	return CommittedEvent{Kind: EventSubMethodReturn, retval: v}
}

func NewSelfMethodCallEvent(method string, params []Value) CommittedEvent {
	return CommittedEvent{Kind: EventSelfMethodCall, method: method, params: params}
}

func NewSelfMethodReturnEvent(v Value) CommittedEvent {
	return CommittedEvent{Kind: EventSelfMethodReturn, retval: v}
}

func (e CommittedEvent) access(kind EventKind, accessor string) error {
	if e.Kind != kind {
		return &InvalidEventAccess{Variant: e.Kind.String(), Accessor: accessor}
	}
	return nil
}

func (e CommittedEvent) ObjectCreation() (*LiveObject, error) {
	if err := e.access(EventObjectCreation, "ObjectCreation"); err != nil {
		return nil, err
	}
	return e.liveObject, nil
}

func (e CommittedEvent) SubObjectCreation() (name string, ref *ObjectReference, err error) {
	if err = e.access(EventSubObjectCreation, "SubObjectCreation"); err != nil {
		return "", nil, err
	}
	return e.name, e.newRef, nil
}

func (e CommittedEvent) MethodCall() (method string, params []Value, err error) {
	if e.Kind != EventMethodCall && e.Kind != EventSelfMethodCall {
		return "", nil, &InvalidEventAccess{Variant: e.Kind.String(), Accessor: "MethodCall"}
	}
	return e.method, e.params, nil
}

func (e CommittedEvent) MethodReturn() (Value, error) {
	if e.Kind != EventMethodReturn && e.Kind != EventSelfMethodReturn {
		return Value{}, &InvalidEventAccess{Variant: e.Kind.String(), Accessor: "MethodReturn"}
	}
	return e.retval, nil
}

func (e CommittedEvent) SubMethodCall() (callee *ObjectReference, method string, params []Value, err error) {
	if err = e.access(EventSubMethodCall, "SubMethodCall"); err != nil {
		return nil, "", nil, err
	}
	return e.calleeRef, e.method, e.params, nil
}

func (e CommittedEvent) SubMethodReturn() (Value, error) {
	if err := e.access(EventSubMethodReturn, "SubMethodReturn"); err != nil {
		return Value{}, err
	}
	return e.retval, nil
}

// Clone returns a deep copy. LiveObjects and ObjectReferences are shared
// (they are themselves shared-immutable handles, §3), values are deep
// copied.
func (e CommittedEvent) Clone() CommittedEvent {
	out := e
	if e.params != nil {
		out.params = make([]Value, len(e.params))
		for i, p := range e.params {
			out.params[i] = p.Clone()
		}
	}
	out.retval = e.retval.Clone()
	return out
}

// SharedObjectTransaction is (events, origin_peer): one peer's contribution
// to a single committed transaction against a single SharedObject (§3).
type SharedObjectTransaction struct {
	Events     []CommittedEvent
	OriginPeer PeerHandle
}

// Clone returns a deep copy.
func (t *SharedObjectTransaction) Clone() *SharedObjectTransaction {
	out := &SharedObjectTransaction{OriginPeer: t.OriginPeer, Events: make([]CommittedEvent, len(t.Events))}
	for i, e := range t.Events {
		out.Events[i] = e.Clone()
	}
	return out
}
