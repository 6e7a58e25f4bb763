package comm

import (
	"fmt"
	"sync"

	"github.com/rs/zerolog"
)

// Local is the in-process implementation of Communicator: every rank is a
// goroutine in the same process and messages travel through a shared
// mailbox. It exists so multi-rank code and its tests can run at any group
// size inside a single process; an out-of-process transport would
// implement Communicator the same way.
type Local struct {
	rank int
	g    *localGroup
}

type msgKey struct {
	src, dst, tag int
}

type localGroup struct {
	size   int
	logger zerolog.Logger

	mu     sync.Mutex
	cond   *sync.Cond
	queues map[msgKey][][]byte
	abort  error
}

// GroupOption configures a local group.
type GroupOption func(*localGroup)

// WithLogger sets the logger used for group lifecycle events. The default
// discards everything.
func WithLogger(logger zerolog.Logger) GroupOption {
	return func(g *localGroup) {
		g.logger = logger
	}
}

// NewLocalGroup creates a group of size in-process ranks and returns one
// communicator per rank, indexed by rank.
func NewLocalGroup(size int, opts ...GroupOption) []*Local {
	if size < 1 {
		panic(fmt.Sprintf("comm: group size %d < 1", size))
	}
	g := &localGroup{
		size:   size,
		logger: zerolog.Nop(),
		queues: make(map[msgKey][][]byte),
	}
	g.cond = sync.NewCond(&g.mu)
	for _, opt := range opts {
		opt(g)
	}

	ranks := make([]*Local, size)
	for i := range ranks {
		ranks[i] = &Local{rank: i, g: g}
	}
	return ranks
}

// Rank returns this participant's index.
func (c *Local) Rank() int { return c.rank }

// Size returns the group size.
func (c *Local) Size() int { return c.g.size }

// Send delivers a copy of buf to rank dst under tag. It never blocks on
// the receiver: the message is queued until the matching Recv.
func (c *Local) Send(dst, tag int, buf []byte) error {
	if dst < 0 || dst >= c.g.size {
		return fmt.Errorf("comm: send from rank %d to invalid rank %d (size %d)", c.rank, dst, c.g.size)
	}

	g := c.g
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.abort != nil {
		return &AbortError{Cause: g.abort}
	}

	msg := make([]byte, len(buf))
	copy(msg, buf)
	key := msgKey{src: c.rank, dst: dst, tag: tag}
	g.queues[key] = append(g.queues[key], msg)
	g.cond.Broadcast()
	return nil
}

// Recv blocks until a message from rank src under tag arrives, or the
// group is aborted.
func (c *Local) Recv(src, tag int) ([]byte, error) {
	if src < 0 || src >= c.g.size {
		return nil, fmt.Errorf("comm: recv at rank %d from invalid rank %d (size %d)", c.rank, src, c.g.size)
	}

	g := c.g
	g.mu.Lock()
	defer g.mu.Unlock()

	key := msgKey{src: src, dst: c.rank, tag: tag}
	for {
		if g.abort != nil {
			return nil, &AbortError{Cause: g.abort}
		}
		if q := g.queues[key]; len(q) > 0 {
			msg := q[0]
			if len(q) == 1 {
				delete(g.queues, key)
			} else {
				g.queues[key] = q[1:]
			}
			return msg, nil
		}
		g.cond.Wait()
	}
}

// Abort poisons the group. The first cause wins; later calls are ignored.
func (c *Local) Abort(cause error) {
	g := c.g
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.abort != nil {
		return
	}
	if cause == nil {
		cause = ErrAborted
	}
	g.abort = cause
	g.logger.Error().Err(cause).Int("rank", c.rank).Msg("communicator aborted")
	g.cond.Broadcast()
}
