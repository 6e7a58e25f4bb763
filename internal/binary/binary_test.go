package binary

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriteReadRoundTrip(t *testing.T) {
	var buf Buffer
	w := NewWriter(&buf)

	require.NoError(t, w.WriteUint8(0x12))
	require.NoError(t, w.WriteUint16(0x3456))
	require.NoError(t, w.WriteUint32(0x789abcde))
	require.NoError(t, w.WriteUint64(0x0123456789abcdef))
	require.NoError(t, w.WriteString("dataset/name"))
	require.NoError(t, w.WriteZeros(3))

	r := NewReader(bytes.NewReader(buf.Bytes()))

	v8, err := r.ReadUint8()
	require.NoError(t, err)
	assert.Equal(t, uint8(0x12), v8)

	v16, err := r.ReadUint16()
	require.NoError(t, err)
	assert.Equal(t, uint16(0x3456), v16)

	v32, err := r.ReadUint32()
	require.NoError(t, err)
	assert.Equal(t, uint32(0x789abcde), v32)

	v64, err := r.ReadUint64()
	require.NoError(t, err)
	assert.Equal(t, uint64(0x0123456789abcdef), v64)

	s, err := r.ReadString()
	require.NoError(t, err)
	assert.Equal(t, "dataset/name", s)

	z, err := r.ReadBytes(3)
	require.NoError(t, err)
	assert.Equal(t, []byte{0, 0, 0}, z)

	assert.Equal(t, w.Pos(), r.Pos())
}

func TestReaderAt(t *testing.T) {
	var buf Buffer
	w := NewWriter(&buf)
	require.NoError(t, w.WriteUint64(11))
	require.NoError(t, w.WriteUint64(22))

	r := NewReader(bytes.NewReader(buf.Bytes())).At(8)
	v, err := r.ReadUint64()
	require.NoError(t, err)
	assert.Equal(t, uint64(22), v)
}

func TestStringTooLong(t *testing.T) {
	var buf Buffer
	w := NewWriter(&buf)
	require.NoError(t, w.WriteUint32(MaxStringLen+1))

	r := NewReader(bytes.NewReader(buf.Bytes()))
	_, err := r.ReadString()
	require.ErrorIs(t, err, ErrStringTooLong)
}

func TestChecksum(t *testing.T) {
	data := []byte("metadata block")
	sum := Checksum(data)

	require.NoError(t, VerifyChecksum(data, sum))

	data[0] ^= 0xff
	assert.ErrorIs(t, VerifyChecksum(data, sum), ErrChecksum)
}
