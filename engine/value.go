// (c) 2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package engine

// ValueKind tags the variant held by a Value.
type ValueKind uint8

const (
	ValueEmpty ValueKind = iota
	ValueFloat64
	ValueFloat32
	ValueInt64
	ValueUint64
	ValueBool
	ValueString
	ValueBytes
	ValueObjectReference
)

func (k ValueKind) String() string {
	switch k {
	case ValueEmpty:
		return "EMPTY"
	case ValueFloat64:
		return "F64"
	case ValueFloat32:
		return "F32"
	case ValueInt64:
		return "I64"
	case ValueUint64:
		return "U64"
	case ValueBool:
		return "BOOL"
	case ValueString:
		return "STRING"
	case ValueBytes:
		return "BYTES"
	case ValueObjectReference:
		return "OBJECT_REFERENCE"
	default:
		return "UNKNOWN"
	}
}

// Value is a tagged union over {EMPTY, f64, f32, i64, u64, bool, string,
// bytes, ObjectReference}, carrying an opaque interpreter-defined LocalType
// that participates in equality but is otherwise meaningless to the engine
// (§3).
type Value struct {
	Kind      ValueKind
	LocalType int32

	f64 float64
	f32 float32
	i64 int64
	u64 uint64
	b   bool
	str string
	buf []byte
	ref *ObjectReference
}

// EmptyValue returns the EMPTY value.
func EmptyValue() Value { return Value{Kind: ValueEmpty} }

func Float64Value(localType int32, v float64) Value {
	return Value{Kind: ValueFloat64, LocalType: localType, f64: v}
}

func Float32Value(localType int32, v float32) Value {
	return Value{Kind: ValueFloat32, LocalType: localType, f32: v}
}

func Int64Value(localType int32, v int64) Value {
	return Value{Kind: ValueInt64, LocalType: localType, i64: v}
}

func Uint64Value(localType int32, v uint64) Value {
	return Value{Kind: ValueUint64, LocalType: localType, u64: v}
}

func BoolValue(localType int32, v bool) Value {
	return Value{Kind: ValueBool, LocalType: localType, b: v}
}

func StringValue(localType int32, v string) Value {
	return Value{Kind: ValueString, LocalType: localType, str: v}
}

func BytesValue(localType int32, v []byte) Value {
	cp := append([]byte(nil), v...)
	return Value{Kind: ValueBytes, LocalType: localType, buf: cp}
}

func ObjectReferenceValue(localType int32, ref *ObjectReference) Value {
	return Value{Kind: ValueObjectReference, LocalType: localType, ref: ref}
}

func (v Value) Float64() (float64, error) {
	if v.Kind != ValueFloat64 {
		return 0, &InvalidEventAccess{Variant: v.Kind.String(), Accessor: "Float64"}
	}
	return v.f64, nil
}

func (v Value) Float32() (float32, error) {
	if v.Kind != ValueFloat32 {
		return 0, &InvalidEventAccess{Variant: v.Kind.String(), Accessor: "Float32"}
	}
	return v.f32, nil
}

func (v Value) Int64() (int64, error) {
	if v.Kind != ValueInt64 {
		return 0, &InvalidEventAccess{Variant: v.Kind.String(), Accessor: "Int64"}
	}
	return v.i64, nil
}

func (v Value) Uint64() (uint64, error) {
	if v.Kind != ValueUint64 {
		return 0, &InvalidEventAccess{Variant: v.Kind.String(), Accessor: "Uint64"}
	}
	return v.u64, nil
}

func (v Value) Bool() (bool, error) {
	if v.Kind != ValueBool {
		return false, &InvalidEventAccess{Variant: v.Kind.String(), Accessor: "Bool"}
	}
	return v.b, nil
}

func (v Value) String() (string, error) {
	if v.Kind != ValueString {
		return "", &InvalidEventAccess{Variant: v.Kind.String(), Accessor: "String"}
	}
	return v.str, nil
}

func (v Value) Bytes() ([]byte, error) {
	if v.Kind != ValueBytes {
		return nil, &InvalidEventAccess{Variant: v.Kind.String(), Accessor: "Bytes"}
	}
	return append([]byte(nil), v.buf...), nil
}

func (v Value) ObjectReference() (*ObjectReference, error) {
	if v.Kind != ValueObjectReference {
		return nil, &InvalidEventAccess{Variant: v.Kind.String(), Accessor: "ObjectReference"}
	}
	return v.ref, nil
}

// Equal compares LocalType and payload. ObjectReference equality is the
// "same shared object" check (§4.G's ObjectsAreIdentical), not pointer
// equality of the Value's *ObjectReference field.
func (v Value) Equal(other Value) bool {
	if v.Kind != other.Kind || v.LocalType != other.LocalType {
		return false
	}
	switch v.Kind {
	case ValueEmpty:
		return true
	case ValueFloat64:
		return v.f64 == other.f64
	case ValueFloat32:
		return v.f32 == other.f32
	case ValueInt64:
		return v.i64 == other.i64
	case ValueUint64:
		return v.u64 == other.u64
	case ValueBool:
		return v.b == other.b
	case ValueString:
		return v.str == other.str
	case ValueBytes:
		if len(v.buf) != len(other.buf) {
			return false
		}
		for i := range v.buf {
			if v.buf[i] != other.buf[i] {
				return false
			}
		}
		return true
	case ValueObjectReference:
		return ObjectsAreIdentical(v.ref, other.ref)
	default:
		return false
	}
}

// Clone returns a deep copy of v. Payloads are either immutable (numbers,
// strings) or copied (bytes); ObjectReference payloads are shared, since
// ObjectReferences are themselves shared-immutable handles once bound
// (§3 Ownership summary).
func (v Value) Clone() Value {
	if v.Kind == ValueBytes {
		return BytesValue(v.LocalType, v.buf)
	}
	return v
}
