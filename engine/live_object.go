// (c) 2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package engine

import "io"

// LocalObject is the interpreter adapter's object trait (§6): the
// interpreter-specific payload a LiveObject wraps. Implementations are
// expected to be immutable once constructed -- InvokeMethod returns a new
// LocalObject rather than mutating the receiver, so LiveObject's
// clone-on-write discipline holds.
type LocalObject interface {
	// Clone returns a deep copy suitable for independent mutation.
	Clone() LocalObject

	// Serialize writes a byte encoding of the object using ctx to resolve
	// any ObjectReferences it holds to small integer indices.
	Serialize(ctx SerializationContext) ([]byte, error)

	// InvokeMethod runs method name with params against the receiver,
	// using methodCtx for any BeginTransaction/EndTransaction/CreateObject/
	// CallMethod/ObjectsAreIdentical calls the method makes. It returns the
	// (possibly new, clone-on-write) LocalObject reflecting the mutation,
	// and the method's return value.
	InvokeMethod(methodCtx MethodContext, self *ObjectReference, method string, params []Value) (LocalObject, Value, error)

	// Dump writes a structured diagnostic representation.
	Dump(w io.Writer) error
}

// SerializationContext hands out stable integer indices for
// ObjectReferences encountered while serializing a LocalObject (§6).
type SerializationContext interface {
	IndexOf(ref *ObjectReference) int
}

// MethodContext is what the core supplies to InvokeMethod, identical in
// shape whether the underlying driver is a RecordingThread or a
// PlaybackThread (§6).
type MethodContext interface {
	BeginTransaction() error
	EndTransaction() error
	CreateObject(initial LocalObject, name string) (*ObjectReference, error)
	CallMethod(ref *ObjectReference, method string, params []Value) (Value, error)
	ObjectsAreIdentical(a, b *ObjectReference) bool
}

// LiveObject is an owning, reference-counted handle to the interpreter's
// in-memory object. Mutation never mutates an existing LiveObject in place;
// InvokeMethod (via Clone) produces a fresh node when other readers may
// still hold the old one, so a LiveObject is effectively immutable on the
// read side (§3, §5).
type LiveObject struct {
	local LocalObject
}

// NewLiveObject wraps local in a fresh LiveObject.
func NewLiveObject(local LocalObject) *LiveObject {
	return &LiveObject{local: local}
}

// Clone returns a LiveObject wrapping an independent copy of the underlying
// LocalObject.
func (o *LiveObject) Clone() *LiveObject {
	if o == nil {
		return nil
	}
	return &LiveObject{local: o.local.Clone()}
}

// Serialize delegates to the wrapped LocalObject.
func (o *LiveObject) Serialize(ctx SerializationContext) ([]byte, error) {
	return o.local.Serialize(ctx)
}

// InvokeMethod delegates to the wrapped LocalObject and rewraps the
// resulting LocalObject as a LiveObject.
func (o *LiveObject) InvokeMethod(ctx MethodContext, self *ObjectReference, method string, params []Value) (*LiveObject, Value, error) {
	next, ret, err := o.local.InvokeMethod(ctx, self, method, params)
	if err != nil {
		return nil, Value{}, err
	}
	return &LiveObject{local: next}, ret, nil
}

// Dump delegates to the wrapped LocalObject.
func (o *LiveObject) Dump(w io.Writer) error {
	if o == nil {
		_, err := io.WriteString(w, "null")
		return err
	}
	return o.local.Dump(w)
}

// Local returns the wrapped LocalObject, for collaborators (e.g. a fake
// interpreter in tests) that need direct access.
func (o *LiveObject) Local() LocalObject { return o.local }
