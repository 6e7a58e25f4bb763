package comm

import (
	"fmt"

	"golang.org/x/sync/errgroup"
)

// Spawn creates a fresh size-rank local group and runs fn once per rank,
// each on its own goroutine. It returns after every rank has finished.
//
// A rank whose fn returns an error aborts the group before Spawn returns,
// so the remaining ranks fail out of any collective call they are blocked
// in rather than deadlocking. The first error observed is returned.
func Spawn(size int, fn func(Communicator) error, opts ...GroupOption) error {
	ranks := NewLocalGroup(size, opts...)

	var g errgroup.Group
	for _, c := range ranks {
		c := c
		g.Go(func() error {
			if err := fn(c); err != nil {
				c.Abort(err)
				return fmt.Errorf("rank %d: %w", c.Rank(), err)
			}
			return nil
		})
	}
	return g.Wait()
}
