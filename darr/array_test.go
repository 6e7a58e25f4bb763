package darr

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/robert-malhotra/go-darr/comm"
)

// globalPattern fills a buffer of n elements with a deterministic byte
// pattern so misplaced slabs are visible.
func globalPattern(n, elem int) []byte {
	buf := make([]byte, n*elem)
	for i := range buf {
		buf[i] = byte(i*7 + 3)
	}
	return buf
}

func TestNewPartitionsAxis(t *testing.T) {
	err := comm.Spawn(4, func(c comm.Communicator) error {
		a, err := New(c, []int{4, 100}, Float64, 0)
		if err != nil {
			return err
		}
		assert.Equal(t, []int{4, 100}, a.GlobalShape())
		assert.Equal(t, []int{1, 100}, a.LocalShape())
		assert.Equal(t, c.Rank(), a.LocalOffset())
		assert.Equal(t, 1*100*8, len(a.Local()))
		assert.Equal(t, c.Rank(), a.GlobalIndex(0))

		v := a.LocalView()
		assert.Equal(t, a.LocalShape(), v.Shape)
		assert.Equal(t, a.LocalOffset(), v.Offset)
		v.Data[0] = 9 // the view aliases the slab
		assert.Equal(t, byte(9), a.Local()[0])
		return nil
	})
	require.NoError(t, err)
}

func TestNewValidation(t *testing.T) {
	err := comm.Spawn(1, func(c comm.Communicator) error {
		if _, err := New(c, nil, Float64, 0); err == nil {
			return fmt.Errorf("empty shape accepted")
		}
		if _, err := New(c, []int{4, 0}, Float64, 0); err == nil {
			return fmt.Errorf("zero extent accepted")
		}
		if _, err := New(c, []int{4}, Float64, 1); err == nil {
			return fmt.Errorf("axis out of range accepted")
		}
		if _, err := New(c, []int{4}, Dtype{KindFloat, 3}, 0); err == nil {
			return fmt.Errorf("bad dtype accepted")
		}
		return nil
	})
	require.NoError(t, err)
}

func TestWrapRejectsWrongLength(t *testing.T) {
	err := comm.Spawn(2, func(c comm.Communicator) error {
		_, err := Wrap(c, []int{4, 3}, Int32, 0, make([]byte, 5))
		assert.Error(t, err)
		return nil
	})
	require.NoError(t, err)
}

func TestGatherScatterInverse(t *testing.T) {
	for _, size := range []int{1, 2, 4} {
		t.Run(fmt.Sprintf("size=%d", size), func(t *testing.T) {
			shape := []int{4, 6}
			full := globalPattern(24, 4)

			err := comm.Spawn(size, func(c comm.Communicator) error {
				var src []byte
				if c.Rank() == 0 {
					src = full
				}
				a, err := Scatter(c, src, shape, Int32, 0, 0)
				if err != nil {
					return err
				}
				got, err := a.Gather(0)
				if err != nil {
					return err
				}
				if c.Rank() == 0 {
					assert.Equal(t, full, got)
				} else {
					assert.Nil(t, got)
				}
				return nil
			})
			require.NoError(t, err)
		})
	}
}

func TestGatherNonZeroRoot(t *testing.T) {
	shape := []int{3, 5}
	full := globalPattern(15, 8)

	err := comm.Spawn(3, func(c comm.Communicator) error {
		var src []byte
		if c.Rank() == 2 {
			src = full
		}
		a, err := Scatter(c, src, shape, Float64, 1, 2)
		if err != nil {
			return err
		}
		got, err := a.Gather(2)
		if err != nil {
			return err
		}
		if c.Rank() == 2 {
			assert.Equal(t, full, got)
		}
		return nil
	})
	require.NoError(t, err)
}

func TestAllGather(t *testing.T) {
	shape := []int{5, 4}
	full := globalPattern(20, 4)

	err := comm.Spawn(4, func(c comm.Communicator) error {
		var src []byte
		if c.Rank() == 0 {
			src = full
		}
		a, err := Scatter(c, src, shape, Uint32, 0, 0)
		if err != nil {
			return err
		}
		got, err := a.AllGather()
		if err != nil {
			return err
		}
		assert.Equal(t, full, got)
		return nil
	})
	require.NoError(t, err)
}

// Ranks past the extent hold zero-size slabs; gather must still assemble
// the full array.
func TestGatherWithEmptySlabs(t *testing.T) {
	shape := []int{2, 3}
	full := globalPattern(6, 1)

	err := comm.Spawn(4, func(c comm.Communicator) error {
		var src []byte
		if c.Rank() == 0 {
			src = full
		}
		a, err := Scatter(c, src, shape, Uint8, 0, 0)
		if err != nil {
			return err
		}
		if c.Rank() >= 2 {
			assert.Equal(t, 0, len(a.Local()))
		}
		got, err := a.Gather(0)
		if err != nil {
			return err
		}
		if c.Rank() == 0 {
			assert.Equal(t, full, got)
		}
		return nil
	})
	require.NoError(t, err)
}
