// (c) 2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package faketemple

import (
	"fmt"
	"io"

	"github.com/luxfi/floatingtemple/engine"
)

// BoxObject is a LocalObject whose "fill" method delegates into another
// object, for exercising SUB_METHOD_CALL/SUB_METHOD_RETURN recording and
// replay: fill(target, arg) calls target.append(arg) via methodCtx.
type BoxObject struct{}

// NewBoxObject returns an empty BoxObject.
func NewBoxObject() *BoxObject { return &BoxObject{} }

var _ engine.LocalObject = (*BoxObject)(nil)

// Clone implements engine.LocalObject.
func (o *BoxObject) Clone() engine.LocalObject { return &BoxObject{} }

// Serialize implements engine.LocalObject.
func (o *BoxObject) Serialize(ctx engine.SerializationContext) ([]byte, error) {
	return []byte("BoxObject"), nil
}

// InvokeMethod implements engine.LocalObject.
func (o *BoxObject) InvokeMethod(methodCtx engine.MethodContext, self *engine.ObjectReference, method string, params []engine.Value) (engine.LocalObject, engine.Value, error) {
	switch method {
	case "fill":
		if len(params) != 2 {
			return nil, engine.Value{}, fmt.Errorf("fill: want 2 parameters, got %d", len(params))
		}
		target, err := params[0].ObjectReference()
		if err != nil {
			return nil, engine.Value{}, fmt.Errorf("fill: %w", err)
		}
		arg, err := params[1].String()
		if err != nil {
			return nil, engine.Value{}, fmt.Errorf("fill: %w", err)
		}
		ret, err := methodCtx.CallMethod(target, "append", []engine.Value{engine.StringValue(stringLocalType, arg)})
		if err != nil {
			return nil, engine.Value{}, err
		}
		return o, ret, nil

	default:
		return nil, engine.Value{}, fmt.Errorf("unrecognized method %q", method)
	}
}

// Dump implements engine.LocalObject.
func (o *BoxObject) Dump(w io.Writer) error {
	_, err := io.WriteString(w, "BoxObject{}")
	return err
}
