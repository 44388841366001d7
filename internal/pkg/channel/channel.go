package channel

import (
	"sync"

	"github.com/airenas/go-app/pkg/goapp"
	"github.com/pkg/errors"

	"github.com/mconf/mconf-aggr-sub000/internal/pkg/event"
)

// ErrClosed is returned on publish after Close
var ErrClosed = errors.New("channel closed")

// Channel is a FIFO queue between the aggregator and one subscriber worker.
// Pop blocks until an item arrives or the channel is closed and drained.
// With a capacity set, Publish blocks the producer while the queue is full
type Channel struct {
	lock     sync.Mutex
	notEmpty *sync.Cond
	notFull  *sync.Cond
	items    []event.Event
	capacity int
	closed   bool
}

// New creates an unbounded channel
func New() *Channel {
	return NewBounded(0)
}

// NewBounded creates a channel blocking producers when capacity items
// are queued. capacity < 1 means unbounded
func NewBounded(capacity int) *Channel {
	res := &Channel{capacity: capacity}
	res.notEmpty = sync.NewCond(&res.lock)
	res.notFull = sync.NewCond(&res.lock)
	return res
}

// Publish enqueues one item, blocking on a full bounded channel
func (c *Channel) Publish(ev event.Event) error {
	c.lock.Lock()
	defer c.lock.Unlock()
	for !c.closed && c.capacity > 0 && len(c.items) >= c.capacity {
		c.notFull.Wait()
	}
	if c.closed {
		return ErrClosed
	}
	c.items = append(c.items, ev)
	c.notEmpty.Signal()
	return nil
}

// Pop blocks until an item is available and returns it. The second value
// is false once the channel is closed and all prior items were drained
func (c *Channel) Pop() (event.Event, bool) {
	c.lock.Lock()
	defer c.lock.Unlock()
	for len(c.items) == 0 && !c.closed {
		c.notEmpty.Wait()
	}
	if len(c.items) == 0 {
		return nil, false
	}
	ev := c.items[0]
	c.items = c.items[1:]
	c.notFull.Signal()
	return ev, true
}

// Close marks the channel closed. Idempotent. Queued items remain
// available to Pop; a warning is logged when items are still unconsumed
func (c *Channel) Close() {
	c.lock.Lock()
	defer c.lock.Unlock()
	if c.closed {
		return
	}
	c.closed = true
	if len(c.items) > 0 {
		goapp.Log.Warn().Int("items", len(c.items)).Msg("closing channel with unconsumed items")
	}
	c.notEmpty.Broadcast()
	c.notFull.Broadcast()
}

// Len returns the current queue size
func (c *Channel) Len() int {
	c.lock.Lock()
	defer c.lock.Unlock()
	return len(c.items)
}
