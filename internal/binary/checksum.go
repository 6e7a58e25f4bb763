package binary

import (
	"errors"

	"github.com/cespare/xxhash/v2"
)

// ErrChecksum is returned when a stored block checksum does not match the
// block contents.
var ErrChecksum = errors.New("checksum mismatch")

// Checksum computes the xxhash64 checksum used for header and metadata
// blocks in the container format.
func Checksum(data []byte) uint64 {
	return xxhash.Sum64(data)
}

// VerifyChecksum checks data against a stored checksum value.
func VerifyChecksum(data []byte, stored uint64) error {
	if Checksum(data) != stored {
		return ErrChecksum
	}
	return nil
}
