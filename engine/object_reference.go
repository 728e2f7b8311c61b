// (c) 2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package engine

import "sync"

// ObjectReference is an owning handle to an object identity. It may start
// unbound -- no SharedObject attached yet, so a recording thread can hold a
// placeholder -- and is later bound to exactly one SharedObject; once bound
// the binding is permanent (§3, §4.G).
type ObjectReference struct {
	name string // non-empty only for references minted for named objects

	mu     sync.Mutex
	shared *SharedObject
}

// NewUnboundObjectReference returns a placeholder reference with no
// SharedObject attached.
func NewUnboundObjectReference() *ObjectReference {
	return &ObjectReference{}
}

// NewBoundObjectReference returns a reference already bound to shared.
func NewBoundObjectReference(shared *SharedObject) *ObjectReference {
	return &ObjectReference{shared: shared}
}

// IsBound reports whether the reference has a SharedObject attached.
func (r *ObjectReference) IsBound() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.shared != nil
}

// SharedObject returns the bound SharedObject, or nil if unbound.
func (r *ObjectReference) SharedObject() *SharedObject {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.shared
}

// SetSharedObjectIfUnset performs an atomic compare-and-set: if the
// reference is still unbound, it becomes bound to shared and shared is
// returned. If another SharedObject was already bound, that existing
// SharedObject is returned instead, and the caller's shared argument is a
// duplicate the caller should discard (§4.G).
func (r *ObjectReference) SetSharedObjectIfUnset(shared *SharedObject) *SharedObject {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.shared == nil {
		r.shared = shared
		return shared
	}
	return r.shared
}

// ObjectsAreIdentical returns true iff a == b by handle, or both are bound
// to the same SharedObject (§4.G).
func ObjectsAreIdentical(a, b *ObjectReference) bool {
	if a == b {
		return true
	}
	if a == nil || b == nil {
		return false
	}
	sa, sb := a.SharedObject(), b.SharedObject()
	return sa != nil && sa == sb
}
