package container

import (
	"fmt"
	"math"

	"github.com/robert-malhotra/go-darr/darr"
	"github.com/robert-malhotra/go-darr/internal/binary"
	"github.com/robert-malhotra/go-darr/internal/nd"
)

// ValueKind tags the variants an attribute value can take.
type ValueKind uint8

const (
	// ValueInt is a signed integer scalar.
	ValueInt ValueKind = iota
	// ValueUint is an unsigned integer scalar.
	ValueUint
	// ValueFloat is a floating point scalar.
	ValueFloat
	// ValueString is a UTF-8 string.
	ValueString
	// ValueArray is a small fixed-shape numeric array.
	ValueArray
)

func (k ValueKind) String() string {
	switch k {
	case ValueInt:
		return "int"
	case ValueUint:
		return "uint"
	case ValueFloat:
		return "float"
	case ValueString:
		return "string"
	case ValueArray:
		return "array"
	default:
		return fmt.Sprintf("kind(%d)", uint8(k))
	}
}

// Value is an attribute value: a scalar of a fixed set of primitive types,
// or a small fixed-shape numeric array. The zero Value is the integer 0.
type Value struct {
	kind ValueKind

	i int64
	u uint64
	f float64
	s string

	dtype darr.Dtype
	shape []int
	raw   []byte
}

// IntValue makes a signed integer value.
func IntValue(v int64) Value { return Value{kind: ValueInt, i: v} }

// UintValue makes an unsigned integer value.
func UintValue(v uint64) Value { return Value{kind: ValueUint, u: v} }

// FloatValue makes a floating point value.
func FloatValue(v float64) Value { return Value{kind: ValueFloat, f: v} }

// StringValue makes a string value.
func StringValue(v string) Value { return Value{kind: ValueString, s: v} }

// ArrayValue makes a fixed-shape numeric array value from raw little-endian
// element bytes.
func ArrayValue(dtype darr.Dtype, shape []int, raw []byte) (Value, error) {
	if !dtype.Valid() {
		return Value{}, fmt.Errorf("container: unsupported attribute dtype %v", dtype)
	}
	for i, s := range shape {
		if s <= 0 {
			return Value{}, fmt.Errorf("container: attribute shape[%d] = %d, extents must be positive", i, s)
		}
	}
	if len(raw) != nd.Size(shape)*dtype.Size {
		return Value{}, fmt.Errorf("container: attribute value is %d bytes, shape %v of %v needs %d",
			len(raw), shape, dtype, nd.Size(shape)*dtype.Size)
	}
	v := Value{kind: ValueArray, dtype: dtype}
	v.shape = append([]int(nil), shape...)
	v.raw = append([]byte(nil), raw...)
	return v, nil
}

// Float64sValue makes a 1-d float64 array value.
func Float64sValue(vals []float64) Value {
	v, err := ArrayValue(darr.Float64, []int{len(vals)}, darr.PutFloat64s(vals))
	if err != nil {
		panic(err) // shape and length are consistent by construction
	}
	return v
}

// Kind returns the value's variant tag.
func (v Value) Kind() ValueKind { return v.kind }

// Int returns the signed integer scalar.
func (v Value) Int() (int64, error) {
	if v.kind != ValueInt {
		return 0, fmt.Errorf("container: attribute is %v, not int", v.kind)
	}
	return v.i, nil
}

// Uint returns the unsigned integer scalar.
func (v Value) Uint() (uint64, error) {
	if v.kind != ValueUint {
		return 0, fmt.Errorf("container: attribute is %v, not uint", v.kind)
	}
	return v.u, nil
}

// Float returns the floating point scalar.
func (v Value) Float() (float64, error) {
	if v.kind != ValueFloat {
		return 0, fmt.Errorf("container: attribute is %v, not float", v.kind)
	}
	return v.f, nil
}

// Str returns the string value.
func (v Value) Str() (string, error) {
	if v.kind != ValueString {
		return "", fmt.Errorf("container: attribute is %v, not string", v.kind)
	}
	return v.s, nil
}

// Array returns the dtype, shape and raw element bytes of an array value.
func (v Value) Array() (darr.Dtype, []int, []byte, error) {
	if v.kind != ValueArray {
		return darr.Dtype{}, nil, nil, fmt.Errorf("container: attribute is %v, not array", v.kind)
	}
	return v.dtype, append([]int(nil), v.shape...), append([]byte(nil), v.raw...), nil
}

// EncodeTo writes the value in its on-disk form: the variant tag followed
// by the variant payload.
func (v Value) EncodeTo(w *binary.Writer) error {
	if err := w.WriteUint8(uint8(v.kind)); err != nil {
		return err
	}
	switch v.kind {
	case ValueInt:
		return w.WriteUint64(uint64(v.i))
	case ValueUint:
		return w.WriteUint64(v.u)
	case ValueFloat:
		return w.WriteUint64(math.Float64bits(v.f))
	case ValueString:
		return w.WriteString(v.s)
	case ValueArray:
		if err := w.WriteUint8(v.dtype.Code()); err != nil {
			return err
		}
		if err := w.WriteUint8(uint8(len(v.shape))); err != nil {
			return err
		}
		for _, s := range v.shape {
			if err := w.WriteUint64(uint64(s)); err != nil {
				return err
			}
		}
		return w.WriteBytes(v.raw)
	default:
		return fmt.Errorf("container: cannot encode attribute kind %v", v.kind)
	}
}

// DecodeValue reads a value in its on-disk form.
func DecodeValue(r *binary.Reader) (Value, error) {
	tag, err := r.ReadUint8()
	if err != nil {
		return Value{}, err
	}
	switch ValueKind(tag) {
	case ValueInt:
		u, err := r.ReadUint64()
		if err != nil {
			return Value{}, err
		}
		return IntValue(int64(u)), nil
	case ValueUint:
		u, err := r.ReadUint64()
		if err != nil {
			return Value{}, err
		}
		return UintValue(u), nil
	case ValueFloat:
		u, err := r.ReadUint64()
		if err != nil {
			return Value{}, err
		}
		return FloatValue(math.Float64frombits(u)), nil
	case ValueString:
		s, err := r.ReadString()
		if err != nil {
			return Value{}, err
		}
		return StringValue(s), nil
	case ValueArray:
		code, err := r.ReadUint8()
		if err != nil {
			return Value{}, err
		}
		dtype, err := darr.DtypeFromCode(code)
		if err != nil {
			return Value{}, err
		}
		ndim, err := r.ReadUint8()
		if err != nil {
			return Value{}, err
		}
		shape := make([]int, ndim)
		n := 1
		for i := range shape {
			u, err := r.ReadUint64()
			if err != nil {
				return Value{}, err
			}
			shape[i] = int(u)
			n *= shape[i]
		}
		raw, err := r.ReadBytes(n * dtype.Size)
		if err != nil {
			return Value{}, err
		}
		return ArrayValue(dtype, shape, raw)
	default:
		return Value{}, fmt.Errorf("container: unknown attribute kind tag %d", tag)
	}
}
