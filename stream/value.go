package stream

import (
	"bytes"
	"fmt"
	"strconv"

	"github.com/amazon-ion/ion-go/ion"
)

// ValueKind discriminates Value payloads.
type ValueKind int64

const (
	ValueNull ValueKind = iota
	ValueBool
	ValueInt
	ValueFloat
	ValueString
	ValueBytes
)

func (k ValueKind) String() string {
	switch k {
	case ValueNull:
		return "null"
	case ValueBool:
		return "bool"
	case ValueInt:
		return "int"
	case ValueFloat:
		return "float"
	case ValueString:
		return "string"
	case ValueBytes:
		return "bytes"
	default:
		return fmt.Sprintf("ValueKind(%d)", int64(k))
	}
}

// Value is an opaque boxed markup value (a setter value, a trigger threshold).
// It is persisted as a self describing Ion struct so that readers can skip
// kinds they do not know.
type Value struct {
	Kind   ValueKind `ion:"kind"`
	Bool   bool      `ion:"b"`
	Int    int64     `ion:"i"`
	Float  float64   `ion:"f"`
	String string    `ion:"s"`
	Bytes  []byte    `ion:"x"`
}

func NullValue() Value             { return Value{} }
func BoolValue(b bool) Value       { return Value{Kind: ValueBool, Bool: b} }
func IntValue(i int64) Value       { return Value{Kind: ValueInt, Int: i} }
func FloatValue(f float64) Value   { return Value{Kind: ValueFloat, Float: f} }
func StringValue(s string) Value   { return Value{Kind: ValueString, String: s} }
func BytesValue(b []byte) Value    { return Value{Kind: ValueBytes, Bytes: bytes.Clone(b)} }
func (v Value) IsNull() bool       { return v.Kind == ValueNull }
func (v Value) Equal(o Value) bool { return v.Kind == o.Kind && v.payloadEqual(o) }

func (v Value) payloadEqual(o Value) bool {
	switch v.Kind {
	case ValueBool:
		return v.Bool == o.Bool
	case ValueInt:
		return v.Int == o.Int
	case ValueFloat:
		return v.Float == o.Float
	case ValueString:
		return v.String == o.String
	case ValueBytes:
		return bytes.Equal(v.Bytes, o.Bytes)
	default:
		return true
	}
}

// AsFloat converts numeric and numeric looking string values.
func (v Value) AsFloat() (float64, bool) {
	switch v.Kind {
	case ValueInt:
		return float64(v.Int), true
	case ValueFloat:
		return v.Float, true
	case ValueString:
		f, err := strconv.ParseFloat(v.String, 64)
		return f, err == nil
	default:
		return 0, false
	}
}

func (v Value) Format() string {
	switch v.Kind {
	case ValueBool:
		return strconv.FormatBool(v.Bool)
	case ValueInt:
		return strconv.FormatInt(v.Int, 10)
	case ValueFloat:
		return strconv.FormatFloat(v.Float, 'g', -1, 64)
	case ValueString:
		return strconv.Quote(v.String)
	case ValueBytes:
		return fmt.Sprintf("<%d bytes>", len(v.Bytes))
	default:
		return "null"
	}
}

// Native returns the payload as a plain Go value, used by expression
// predicates.
func (v Value) Native() any {
	switch v.Kind {
	case ValueBool:
		return v.Bool
	case ValueInt:
		return v.Int
	case ValueFloat:
		return v.Float
	case ValueString:
		return v.String
	case ValueBytes:
		return v.Bytes
	default:
		return nil
	}
}

func marshalValue(v Value) ([]byte, error) {
	// only the active payload field is kept, so equal values encode equally
	norm := Value{Kind: v.Kind}
	switch v.Kind {
	case ValueBool:
		norm.Bool = v.Bool
	case ValueInt:
		norm.Int = v.Int
	case ValueFloat:
		norm.Float = v.Float
	case ValueString:
		norm.String = v.String
	case ValueBytes:
		norm.Bytes = v.Bytes
	}
	return ion.MarshalBinary(norm)
}

func unmarshalValue(data []byte) (Value, error) {
	var v Value
	if err := ion.Unmarshal(data, &v); err != nil {
		return Value{}, err
	}
	if v.Kind < ValueNull || v.Kind > ValueBytes {
		return Value{}, fmt.Errorf("unknown value kind %d", int64(v.Kind))
	}
	return v, nil
}

// MarshalText renders any ion-marshalable dump model, used by debug output.
func MarshalText(v any) ([]byte, error) {
	return ion.MarshalText(v)
}
