// Package comm provides the fixed-size process-group communicator that all
// collective operations in this module are built on.
//
// A group has a fixed membership of size ranks, numbered 0..size-1, decided
// at construction. Communicators are passed explicitly to every operation
// that needs one; nothing in this module keeps global communicator state,
// so independent groups can coexist in one process.
//
// Operations documented as collective must be called by every rank of the
// group, in the same order. A collective call blocks until the matching
// calls on all participating ranks have been made; a rank that never makes
// the call blocks the others indefinitely. There are no timeouts. The only
// escape is Abort, which poisons the whole group: every blocked or future
// Send/Recv returns an AbortError instead of hanging.
package comm

import (
	"errors"
	"fmt"
)

// ErrAborted is matched (via errors.Is) by every error produced after a
// communicator has been aborted.
var ErrAborted = errors.New("communicator aborted")

// AbortError is returned from communicator operations after the group has
// been poisoned by Abort. Cause is the error passed to Abort by the
// detecting rank, when known.
type AbortError struct {
	Cause error
}

func (e *AbortError) Error() string {
	if e.Cause == nil {
		return "communicator aborted"
	}
	return fmt.Sprintf("communicator aborted: %v", e.Cause)
}

func (e *AbortError) Unwrap() error { return e.Cause }

// Is reports true for ErrAborted so callers can test with errors.Is.
func (e *AbortError) Is(target error) bool { return target == ErrAborted }

// Communicator is the identity of one rank within a fixed process group,
// plus the tagged point-to-point transport the collectives are built from.
//
// Send and Recv match on (peer, tag) pairs and preserve per-pair FIFO
// order. User tags must be non-negative; negative tags are reserved for
// the collectives in this package.
type Communicator interface {
	// Rank returns this participant's index, in [0, Size).
	Rank() int

	// Size returns the fixed number of ranks in the group.
	Size() int

	// Send delivers a copy of buf to rank dst under tag. It does not
	// block waiting for the receiver.
	Send(dst, tag int, buf []byte) error

	// Recv blocks until a message from rank src under tag arrives, or
	// the group is aborted.
	Recv(src, tag int) ([]byte, error)

	// Abort poisons the whole group with the given cause. A rank that
	// detects a fatal condition must call Abort before returning its
	// error, so peers blocked in collective calls fail instead of
	// hanging.
	Abort(cause error)
}

// Tags reserved for the collectives below. User tags are >= 0.
const (
	tagBarrier = -1
	tagBcast   = -2
	tagGather  = -3
)
