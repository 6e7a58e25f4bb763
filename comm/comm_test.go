package comm

import (
	"errors"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSendRecv(t *testing.T) {
	err := Spawn(2, func(c Communicator) error {
		if c.Rank() == 0 {
			return c.Send(1, 7, []byte("ping"))
		}
		msg, err := c.Recv(0, 7)
		if err != nil {
			return err
		}
		assert.Equal(t, []byte("ping"), msg)
		return nil
	})
	require.NoError(t, err)
}

func TestSendCopiesBuffer(t *testing.T) {
	ranks := NewLocalGroup(1)
	c := ranks[0]

	buf := []byte{1, 2, 3}
	require.NoError(t, c.Send(0, 0, buf))
	buf[0] = 99

	msg, err := c.Recv(0, 0)
	require.NoError(t, err)
	assert.Equal(t, []byte{1, 2, 3}, msg)
}

func TestRecvOrderPerPair(t *testing.T) {
	ranks := NewLocalGroup(2)
	require.NoError(t, ranks[0].Send(1, 0, []byte("a")))
	require.NoError(t, ranks[0].Send(1, 0, []byte("b")))

	first, err := ranks[1].Recv(0, 0)
	require.NoError(t, err)
	second, err := ranks[1].Recv(0, 0)
	require.NoError(t, err)
	assert.Equal(t, "a", string(first))
	assert.Equal(t, "b", string(second))
}

func TestRecvMatchesTag(t *testing.T) {
	ranks := NewLocalGroup(2)
	require.NoError(t, ranks[0].Send(1, 5, []byte("five")))
	require.NoError(t, ranks[0].Send(1, 3, []byte("three")))

	msg, err := ranks[1].Recv(0, 3)
	require.NoError(t, err)
	assert.Equal(t, "three", string(msg))
}

func TestSendInvalidRank(t *testing.T) {
	ranks := NewLocalGroup(2)
	assert.Error(t, ranks[0].Send(2, 0, nil))
	assert.Error(t, ranks[0].Send(-1, 0, nil))
}

func TestBarrier(t *testing.T) {
	for _, size := range []int{1, 2, 4} {
		var passed atomic.Int32
		err := Spawn(size, func(c Communicator) error {
			if err := Barrier(c); err != nil {
				return err
			}
			passed.Add(1)
			return Barrier(c)
		})
		require.NoError(t, err)
		assert.Equal(t, int32(size), passed.Load())
	}
}

func TestBcast(t *testing.T) {
	for _, size := range []int{1, 2, 4} {
		err := Spawn(size, func(c Communicator) error {
			var buf []byte
			if c.Rank() == 1%size {
				buf = []byte("payload")
			}
			got, err := Bcast(c, 1%size, buf)
			if err != nil {
				return err
			}
			assert.Equal(t, "payload", string(got))
			return nil
		})
		require.NoError(t, err)
	}
}

func TestGather(t *testing.T) {
	err := Spawn(4, func(c Communicator) error {
		local := []byte{byte(c.Rank())}
		parts, err := Gather(c, 2, local)
		if err != nil {
			return err
		}
		if c.Rank() != 2 {
			assert.Nil(t, parts)
			return nil
		}
		if !assert.Len(t, parts, 4) {
			return nil
		}
		for r, part := range parts {
			assert.Equal(t, []byte{byte(r)}, part)
		}
		return nil
	})
	require.NoError(t, err)
}

func TestAllGather(t *testing.T) {
	for _, size := range []int{1, 2, 4} {
		err := Spawn(size, func(c Communicator) error {
			parts, err := AllGather(c, []byte{byte(c.Rank() * 10)})
			if err != nil {
				return err
			}
			if !assert.Len(t, parts, size) {
				return nil
			}
			for r, part := range parts {
				assert.Equal(t, []byte{byte(r * 10)}, part)
			}
			return nil
		})
		require.NoError(t, err)
	}
}

// A rank that fails must unblock peers stuck in a collective call rather
// than leaving them hanging.
func TestAbortUnblocksPeers(t *testing.T) {
	boom := errors.New("boom")
	err := Spawn(4, func(c Communicator) error {
		if c.Rank() == 3 {
			return boom
		}
		// The other ranks wait in a barrier rank 3 never enters.
		err := Barrier(c)
		assert.ErrorIs(t, err, ErrAborted)
		return nil
	})
	require.ErrorIs(t, err, boom)
}

func TestAbortFirstCauseWins(t *testing.T) {
	ranks := NewLocalGroup(2)
	first := errors.New("first")
	ranks[0].Abort(first)
	ranks[1].Abort(errors.New("second"))

	_, err := ranks[0].Recv(1, 0)
	var abort *AbortError
	require.ErrorAs(t, err, &abort)
	assert.Equal(t, first, abort.Cause)
}
