// Package channel implements the numbered logical channels (C6) that
// multiplex N logical streams over one WebSocket connection, grounded on
// the original source's server/channel.rs and a per-client fan-out
// pattern of one goroutine per subscriber.
package channel

import (
	"sync"

	"github.com/jsonmona/twilight/internal/logging"
)

var log = logging.L("channel")

// Subscriber is anything the multiplexer can fan a message out to — in
// practice a (WebSocket connection, channel) pair owned by the wsio
// package. Deliver must be non-blocking; returning false means the
// subscriber's outbound queue is saturated and it should be evicted from
// the channel (spec.md §4.5/§4.8).
type Subscriber interface {
	Deliver(msg []byte) bool
	String() string
}

// Channel is a single numbered logical stream with a fan-out subscriber
// set. It is strongly referenced by the session that opened it and by
// every active subscriber; once a Multiplexer.Close removes it from the
// session's map and nothing else holds a reference, Go's GC reclaims it —
// the idiomatic Go stand-in for the original's weak/strong reference split.
type Channel struct {
	ID uint16

	mu   sync.RWMutex
	subs map[Subscriber]struct{}
}

func newChannel(id uint16) *Channel {
	return &Channel{ID: id, subs: make(map[Subscriber]struct{})}
}

// Subscribe adds sub to the channel's fan-out set.
func (c *Channel) Subscribe(sub Subscriber) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.subs[sub] = struct{}{}
}

// Unsubscribe removes sub from the channel's fan-out set.
func (c *Channel) Unsubscribe(sub Subscriber) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.subs, sub)
}

// SubscriberCount reports the number of currently attached subscribers.
func (c *Channel) SubscriberCount() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.subs)
}

// Send concurrently feeds msg to every subscriber, one goroutine per
// subscriber, and returns once every delivery has finished. A subscriber
// whose outbound queue is full is evicted without the send error
// propagating to the others — one slow subscriber must not stall the
// channel (spec.md §4.5). Within a single subscriber, delivery order
// matches call order because each Send completes before the caller's next
// serial Send begins.
func (c *Channel) Send(msg []byte) {
	c.mu.RLock()
	subs := make([]Subscriber, 0, len(c.subs))
	for s := range c.subs {
		subs = append(subs, s)
	}
	c.mu.RUnlock()

	var wg sync.WaitGroup
	for _, sub := range subs {
		wg.Add(1)
		go func(sub Subscriber) {
			defer wg.Done()
			if !sub.Deliver(msg) {
				log.Warn("subscriber outbound queue full, evicting", "channel", c.ID, "subscriber", sub.String())
				c.Unsubscribe(sub)
			}
		}(sub)
	}
	wg.Wait()
}
