// Package ndf persists container trees to a self-describing on-disk
// format using collective parallel I/O.
//
// A file holds a tree of named groups, datasets and attributes. Each
// dataset's payload is stored once, in row-major global index order,
// spanning its full global shape: nothing in the format records how many
// ranks wrote the file, so it can be read back by any number of ranks.
//
// The byte layout is a fixed header, a data region holding the dataset
// payloads 8-byte aligned in tree walk order, and a metadata footer
// describing the tree, checksummed with xxhash64. Every byte position is
// a pure function of the tree metadata, so during a collective write all
// ranks compute the same layout independently and each writes only the
// disjoint byte ranges it owns.
package ndf

import (
	"bytes"
	"errors"
	"fmt"

	"github.com/robert-malhotra/go-darr/internal/binary"
)

// Common errors
var (
	ErrNotNDF     = errors.New("not an ndf file")
	ErrVersion    = errors.New("unsupported format version")
	ErrCorrupt    = errors.New("file is corrupt")
	ErrNoOverride = errors.New("option names a dataset not present in the file")
)

const (
	magic      = "aNDF"
	version    = 1
	flagLittle = 0x01

	headerSize = 64
	// The checksummed span of the header: magic through file length.
	headerSummed = 32
)

// header is the fixed-size block at offset 0.
type header struct {
	metaOffset uint64
	metaLength uint64
	fileLength uint64
}

func writeHeader(w *binary.Writer, h header) error {
	var buf binary.Buffer
	bw := binary.NewWriter(&buf)
	if err := bw.WriteBytes([]byte(magic)); err != nil {
		return err
	}
	if err := bw.WriteUint8(version); err != nil {
		return err
	}
	if err := bw.WriteUint8(flagLittle); err != nil {
		return err
	}
	if err := bw.WriteUint16(0); err != nil {
		return err
	}
	if err := bw.WriteUint64(h.metaOffset); err != nil {
		return err
	}
	if err := bw.WriteUint64(h.metaLength); err != nil {
		return err
	}
	if err := bw.WriteUint64(h.fileLength); err != nil {
		return err
	}
	summed := buf.Bytes()
	if err := bw.WriteUint64(binary.Checksum(summed[:headerSummed])); err != nil {
		return err
	}
	if err := w.WriteBytes(buf.Bytes()); err != nil {
		return err
	}
	return w.WriteZeros(headerSize - int(bw.Pos()))
}

func readHeader(r *binary.Reader) (header, error) {
	raw, err := r.ReadBytes(headerSummed)
	if err != nil {
		return header{}, fmt.Errorf("reading header: %w", err)
	}
	if string(raw[:4]) != magic {
		return header{}, ErrNotNDF
	}
	if raw[4] != version {
		return header{}, fmt.Errorf("%w: %d", ErrVersion, raw[4])
	}
	if raw[5]&flagLittle == 0 {
		return header{}, fmt.Errorf("%w: big-endian data", ErrVersion)
	}
	stored, err := r.ReadUint64()
	if err != nil {
		return header{}, fmt.Errorf("reading header: %w", err)
	}
	if err := binary.VerifyChecksum(raw, stored); err != nil {
		return header{}, fmt.Errorf("%w: header checksum", ErrCorrupt)
	}

	hr := binary.NewReader(bytes.NewReader(raw)).At(8)
	h := header{}
	if h.metaOffset, err = hr.ReadUint64(); err != nil {
		return header{}, err
	}
	if h.metaLength, err = hr.ReadUint64(); err != nil {
		return header{}, err
	}
	if h.fileLength, err = hr.ReadUint64(); err != nil {
		return header{}, err
	}
	return h, nil
}
