package wsio

import (
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/jsonmona/twilight/internal/channel"
	"github.com/jsonmona/twilight/internal/logging"
	"github.com/jsonmona/twilight/internal/protocol"
	"github.com/jsonmona/twilight/internal/session"
)

var log = logging.L("wsio")

// Timing constants ported from internal/websocket/client.go's
// reconnectLoop/readPump/writePump pair, generalized to the accept side.
const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 512 * 1024
)

// InboundHandler receives demultiplexed frames read off a Conn. Channel
// 0 is the control channel by convention (spec.md §4.8); any other id
// must already be open on sess, or the frame is logged and dropped.
type InboundHandler interface {
	HandleFrame(sess *session.Session, frame protocol.Frame)
}

// Conn is one accepted streaming WebSocket for a single (session,
// stream) pair (spec.md §4.8). It owns the read pump, the ping ticker,
// and one subscriberHandle per channel the session has subscribed this
// connection to.
type Conn struct {
	ws      *websocket.Conn
	sess    *session.Session
	handler InboundHandler

	outboundQueueSize int

	writeMu sync.Mutex
	closing chan struct{}
	closeOnce sync.Once

	subMu sync.Mutex
	subs  map[uint16]*subscriberHandle
}

func newConn(ws *websocket.Conn, sess *session.Session, handler InboundHandler, outboundQueueSize int) *Conn {
	return &Conn{
		ws:                ws,
		sess:              sess,
		handler:           handler,
		outboundQueueSize: outboundQueueSize,
		closing:           make(chan struct{}),
		subs:              make(map[uint16]*subscriberHandle),
	}
}

// Subscribe attaches this connection as a subscriber to ch; the handle it
// creates is kept on the Conn so Close can stop it.
func (c *Conn) Subscribe(ch *channel.Channel) {
	c.subMu.Lock()
	if _, exists := c.subs[ch.ID]; exists {
		c.subMu.Unlock()
		return
	}
	handle := newSubscriberHandle(c, ch.ID, c.outboundQueueSize)
	c.subs[ch.ID] = handle
	c.subMu.Unlock()

	ch.Subscribe(handle)
	go handle.run()
}

// writeBinary serializes a binary write against the underlying
// connection. gorilla/websocket forbids concurrent writers, so every
// writer (subscriber handles, the ping ticker) goes through this one
// mutex.
func (c *Conn) writeBinary(msg []byte) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	c.ws.SetWriteDeadline(time.Now().Add(writeWait))
	return c.ws.WriteMessage(websocket.BinaryMessage, msg)
}

func (c *Conn) writePing() error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	c.ws.SetWriteDeadline(time.Now().Add(writeWait))
	return c.ws.WriteMessage(websocket.PingMessage, nil)
}

// Close tears the connection down: stop every subscriber handle, update
// open_streams, and close the socket. Safe to call more than once and
// from multiple goroutines (read pump, a subscriber write failure, server
// shutdown).
func (c *Conn) Close() {
	c.closeOnce.Do(func() {
		close(c.closing)

		c.subMu.Lock()
		for id, handle := range c.subs {
			handle.stop()
			delete(c.subs, id)
		}
		c.subMu.Unlock()

		c.sess.CloseStream()
		c.ws.Close()
	})
}

func (c *Conn) pingLoop() {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-c.closing:
			return
		case <-ticker.C:
			if err := c.writePing(); err != nil {
				log.Warn("ping failed, closing connection", "error", err)
				c.Close()
				return
			}
		}
	}
}

// readPump demultiplexes incoming binary frames by channel id and hands
// each one to the InboundHandler. Per spec.md §4.8: unknown channels are
// logged and dropped, text frames are a protocol error that closes the
// connection. On exit the deferred Close stops the subscriber handles and
// closes the socket; messages still queued in those handles are discarded,
// not flushed.
func (c *Conn) readPump() {
	defer c.Close()

	c.ws.SetReadLimit(maxMessageSize)
	c.ws.SetReadDeadline(time.Now().Add(pongWait))
	c.ws.SetPongHandler(func(string) error {
		c.ws.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		msgType, data, err := c.ws.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Warn("read error", "session", c.sess.ID.String(), "error", err)
			}
			return
		}

		if msgType == websocket.TextMessage {
			log.Warn("text frame received, protocol violation", "session", c.sess.ID.String())
			return
		}

		frame, err := protocol.ParseFrame(data)
		if err != nil {
			log.Warn("malformed frame, dropping", "error", err)
			continue
		}

		if frame.Channel != 0 {
			if _, ok := c.sess.Channels.Get(frame.Channel); !ok {
				log.Warn("frame on unknown channel, dropping", "channel", frame.Channel)
				continue
			}
		}

		if c.handler != nil {
			c.handler.HandleFrame(c.sess, frame)
		}
	}
}
