package eventbus

import (
	"context"
	"errors"
	"sync"

	"github.com/maxlab/magnetpanel/internal/tango"
)

var ErrClosed = errors.New("coalescer closed")

// Update is one attribute notification on its way to the UI loop. Token
// names the panel binding that subscribed to it.
type Update struct {
	Token string
	Attr  tango.ModelID
	Value tango.Value
}

type updateKey struct {
	token string
	attr  tango.ModelID
}

// Stats counts what went through a Coalescer.
type Stats struct {
	Posted    uint64
	Coalesced uint64 // replaced by a newer value before delivery
	Delivered uint64
	Dropped   uint64 // pending when their binding was released
}

// Coalescer queues notifications from any goroutine and hands them to the
// UI loop in batches. Pending updates with the same token and attribute
// collapse into the latest one, which keeps the slot of the first.
type Coalescer struct {
	mu     sync.Mutex
	queue  []Update
	index  map[updateKey]int
	ready  chan struct{}
	closed bool
	stats  Stats
}

func NewCoalescer() *Coalescer {
	return &Coalescer{
		index: make(map[updateKey]int),
		ready: make(chan struct{}, 1),
	}
}

// Post never blocks.
func (c *Coalescer) Post(u Update) {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.stats.Posted++
	k := updateKey{u.Token, u.Attr}
	if i, ok := c.index[k]; ok {
		c.queue[i] = u
		c.stats.Coalesced++
	} else {
		c.index[k] = len(c.queue)
		c.queue = append(c.queue, u)
	}
	c.mu.Unlock()
	c.signal()
}

func (c *Coalescer) signal() {
	select {
	case c.ready <- struct{}{}:
	default:
	}
}

// Next blocks until updates are pending and returns all of them in
// arrival order.
func (c *Coalescer) Next(ctx context.Context) ([]Update, error) {
	for {
		c.mu.Lock()
		if len(c.queue) > 0 {
			batch := c.queue
			c.queue = nil
			clear(c.index)
			c.stats.Delivered += uint64(len(batch))
			c.mu.Unlock()
			return batch, nil
		}
		if c.closed {
			c.mu.Unlock()
			return nil, ErrClosed
		}
		c.mu.Unlock()

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-c.ready:
		}
	}
}

// Drop discards pending updates of a released binding.
func (c *Coalescer) Drop(token string) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	kept := c.queue[:0]
	dropped := 0
	for _, u := range c.queue {
		if u.Token == token {
			dropped++
			continue
		}
		kept = append(kept, u)
	}
	c.queue = kept
	clear(c.index)
	for i, u := range c.queue {
		c.index[updateKey{u.Token, u.Attr}] = i
	}
	c.stats.Dropped += uint64(dropped)
	return dropped
}

// Pending is the number of updates waiting for the UI loop.
func (c *Coalescer) Pending() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.queue)
}

func (c *Coalescer) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.stats
}

// Close wakes any waiter; later posts are ignored.
func (c *Coalescer) Close() {
	c.mu.Lock()
	c.closed = true
	c.mu.Unlock()
	c.signal()
}
