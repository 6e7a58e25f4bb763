// Package darr implements n-dimensional arrays that are logically global
// but physically partitioned across the ranks of a communicator group.
//
// An Array is distributed along exactly one axis: each rank owns a
// contiguous slab of that axis and the full extent of every other axis.
// The partition is a pure function of (extent, group size), so every rank
// can compute every other rank's slab without communication.
package darr

import (
	"encoding/binary"
	"fmt"
	"math"
)

// Kind classifies the numeric element kinds supported by arrays and
// attributes.
type Kind uint8

const (
	// KindInt is a signed two's-complement integer.
	KindInt Kind = iota
	// KindUint is an unsigned integer.
	KindUint
	// KindFloat is an IEEE 754 floating point number.
	KindFloat
)

// Dtype describes an array element type: a numeric kind and a width in
// bytes. Elements are stored little-endian in array buffers.
type Dtype struct {
	Kind Kind
	Size int
}

// The supported element types.
var (
	Int8    = Dtype{KindInt, 1}
	Int16   = Dtype{KindInt, 2}
	Int32   = Dtype{KindInt, 4}
	Int64   = Dtype{KindInt, 8}
	Uint8   = Dtype{KindUint, 1}
	Uint16  = Dtype{KindUint, 2}
	Uint32  = Dtype{KindUint, 4}
	Uint64  = Dtype{KindUint, 8}
	Float32 = Dtype{KindFloat, 4}
	Float64 = Dtype{KindFloat, 8}
)

func (d Dtype) String() string {
	switch d.Kind {
	case KindInt:
		return fmt.Sprintf("int%d", d.Size*8)
	case KindUint:
		return fmt.Sprintf("uint%d", d.Size*8)
	case KindFloat:
		return fmt.Sprintf("float%d", d.Size*8)
	default:
		return fmt.Sprintf("dtype(kind=%d,size=%d)", d.Kind, d.Size)
	}
}

// Valid reports whether d is one of the supported element types.
func (d Dtype) Valid() bool {
	switch d.Kind {
	case KindInt, KindUint:
		return d.Size == 1 || d.Size == 2 || d.Size == 4 || d.Size == 8
	case KindFloat:
		return d.Size == 4 || d.Size == 8
	default:
		return false
	}
}

// Code returns the one-byte on-disk code for d.
func (d Dtype) Code() uint8 {
	return uint8(d.Kind)<<4 | uint8(d.Size)
}

// DtypeFromCode decodes a one-byte on-disk dtype code.
func DtypeFromCode(code uint8) (Dtype, error) {
	d := Dtype{Kind: Kind(code >> 4), Size: int(code & 0x0f)}
	if !d.Valid() {
		return Dtype{}, fmt.Errorf("invalid dtype code 0x%02x", code)
	}
	return d, nil
}

// PutFloat64s encodes vals as little-endian float64 elements.
func PutFloat64s(vals []float64) []byte {
	buf := make([]byte, 8*len(vals))
	for i, v := range vals {
		binary.LittleEndian.PutUint64(buf[8*i:], math.Float64bits(v))
	}
	return buf
}

// AsFloat64s decodes a little-endian float64 element buffer.
func AsFloat64s(buf []byte) []float64 {
	vals := make([]float64, len(buf)/8)
	for i := range vals {
		vals[i] = math.Float64frombits(binary.LittleEndian.Uint64(buf[8*i:]))
	}
	return vals
}

// PutInt32s encodes vals as little-endian int32 elements.
func PutInt32s(vals []int32) []byte {
	buf := make([]byte, 4*len(vals))
	for i, v := range vals {
		binary.LittleEndian.PutUint32(buf[4*i:], uint32(v))
	}
	return buf
}

// AsInt32s decodes a little-endian int32 element buffer.
func AsInt32s(buf []byte) []int32 {
	vals := make([]int32, len(buf)/4)
	for i := range vals {
		vals[i] = int32(binary.LittleEndian.Uint32(buf[4*i:]))
	}
	return vals
}

// PutUint64s encodes vals as little-endian uint64 elements.
func PutUint64s(vals []uint64) []byte {
	buf := make([]byte, 8*len(vals))
	for i, v := range vals {
		binary.LittleEndian.PutUint64(buf[8*i:], v)
	}
	return buf
}

// AsUint64s decodes a little-endian uint64 element buffer.
func AsUint64s(buf []byte) []uint64 {
	vals := make([]uint64, len(buf)/8)
	for i := range vals {
		vals[i] = binary.LittleEndian.Uint64(buf[8*i:])
	}
	return vals
}
