// (c) 2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package faketemple is a minimal interpreter adapter used by the engine's
// own tests: a LocalObject that accumulates a string, grounded on the
// append/get/clear object exercised throughout the scenario walkthroughs.
package faketemple

import (
	"fmt"
	"io"

	"github.com/luxfi/floatingtemple/engine"
)

const (
	voidLocalType   int32 = 0
	stringLocalType int32 = 1
)

// StringObject is a LocalObject wrapping a single accumulated string, with
// three methods: append(string), clear(), get() string.
type StringObject struct {
	s string
}

// NewStringObject returns an empty StringObject.
func NewStringObject() *StringObject {
	return &StringObject{}
}

// NewStringObjectWithValue returns a StringObject already holding s.
func NewStringObjectWithValue(s string) *StringObject {
	return &StringObject{s: s}
}

var _ engine.LocalObject = (*StringObject)(nil)

// Clone implements engine.LocalObject.
func (o *StringObject) Clone() engine.LocalObject {
	return &StringObject{s: o.s}
}

// Serialize implements engine.LocalObject.
func (o *StringObject) Serialize(ctx engine.SerializationContext) ([]byte, error) {
	return append([]byte("StringObject:"), o.s...), nil
}

// InvokeMethod implements engine.LocalObject.
func (o *StringObject) InvokeMethod(methodCtx engine.MethodContext, self *engine.ObjectReference, method string, params []engine.Value) (engine.LocalObject, engine.Value, error) {
	switch method {
	case "append":
		if len(params) != 1 {
			return nil, engine.Value{}, fmt.Errorf("append: want 1 parameter, got %d", len(params))
		}
		arg, err := params[0].String()
		if err != nil {
			return nil, engine.Value{}, fmt.Errorf("append: %w", err)
		}
		next := &StringObject{s: o.s + arg}
		return next, engine.EmptyValue(), nil

	case "clear":
		if len(params) != 0 {
			return nil, engine.Value{}, fmt.Errorf("clear: want 0 parameters, got %d", len(params))
		}
		return &StringObject{}, engine.EmptyValue(), nil

	case "get":
		if len(params) != 0 {
			return nil, engine.Value{}, fmt.Errorf("get: want 0 parameters, got %d", len(params))
		}
		return o, engine.StringValue(stringLocalType, o.s), nil

	default:
		return nil, engine.Value{}, fmt.Errorf("unrecognized method %q", method)
	}
}

// Dump implements engine.LocalObject.
func (o *StringObject) Dump(w io.Writer) error {
	_, err := fmt.Fprintf(w, "%q", o.s)
	return err
}

// Value returns the accumulated string, for tests and diagnostics that need
// to inspect state without going through InvokeMethod("get").
func (o *StringObject) Value() string { return o.s }
