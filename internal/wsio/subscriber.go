package wsio

import "fmt"

// subscriberHandle adapts one (connection, channel) pair to
// channel.Subscriber. Its queue is the per-channel outbound bound from
// spec.md §4.8 (16 frames by default); Deliver never blocks, so a stalled
// reader on the client end shows up as a full queue here, not as a stuck
// writer goroutine.
type subscriberHandle struct {
	conn *Conn
	ch   uint16

	queue chan []byte
	done  chan struct{}
}

func newSubscriberHandle(conn *Conn, ch uint16, outboundQueueSize int) *subscriberHandle {
	return &subscriberHandle{
		conn:  conn,
		ch:    ch,
		queue: make(chan []byte, outboundQueueSize),
		done:  make(chan struct{}),
	}
}

// Deliver implements channel.Subscriber. A full queue returns false,
// which tells the channel to evict this subscriber (spec.md §4.5/§4.8) —
// one slow viewer must not stall the others.
func (h *subscriberHandle) Deliver(msg []byte) bool {
	select {
	case h.queue <- msg:
		return true
	default:
		return false
	}
}

func (h *subscriberHandle) String() string {
	return fmt.Sprintf("wsio-subscriber(ch=%d)", h.ch)
}

func (h *subscriberHandle) run() {
	for {
		select {
		case msg := <-h.queue:
			if err := h.conn.writeBinary(msg); err != nil {
				log.Warn("subscriber write failed, closing connection", "channel", h.ch, "error", err)
				h.conn.Close()
				return
			}
		case <-h.done:
			return
		case <-h.conn.closing:
			return
		}
	}
}

func (h *subscriberHandle) stop() {
	close(h.done)
}
