package wsio

import (
	"net/http"
	"sync"

	"github.com/gorilla/websocket"

	"github.com/jsonmona/twilight/internal/session"
)

const (
	defaultOutboundQueueSize = 16
	defaultInboundQueueSize  = 64
)

// Server is the accept-side counterpart of internal/client's dial-side
// WebSocket handling: it upgrades an authenticated HTTP request to the
// streaming transport and demultiplexes it into per-channel subscriber
// handles. Implements controlplane.StreamAcceptor.
type Server struct {
	upgrader websocket.Upgrader

	handler           InboundHandler
	outboundQueueSize int
	inboundQueueSize  int

	connsMu sync.Mutex
	conns   map[*Conn]struct{}
}

// Config configures queue sizing; a zero OutboundQueueSize falls back to 16
// per channel. InboundQueueSize (default 64) is stored but no inbound queue
// exists: the read pump hands each frame to Handler synchronously.
type Config struct {
	Handler           InboundHandler
	OutboundQueueSize int
	InboundQueueSize  int
}

// NewServer builds a wsio.Server. CheckOrigin is left permissive since
// the control-plane's bearer/token auth is the actual trust boundary, not
// the WebSocket handshake's Origin header.
func NewServer(cfg Config) *Server {
	if cfg.OutboundQueueSize <= 0 {
		cfg.OutboundQueueSize = defaultOutboundQueueSize
	}
	if cfg.InboundQueueSize <= 0 {
		cfg.InboundQueueSize = defaultInboundQueueSize
	}

	return &Server{
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
		handler:           cfg.Handler,
		outboundQueueSize: cfg.OutboundQueueSize,
		inboundQueueSize:  cfg.InboundQueueSize,
		conns:             make(map[*Conn]struct{}),
	}
}

// Accept upgrades the HTTP request to a WebSocket and starts the read
// pump and ping loop for sess. Implements controlplane.StreamAcceptor.
func (s *Server) Accept(w http.ResponseWriter, r *http.Request, sess *session.Session) {
	ws, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Warn("upgrade failed", "error", err)
		return
	}

	sess.OpenStream()
	conn := newConn(ws, sess, s.handler, s.outboundQueueSize)

	for _, ch := range sess.Channels.All() {
		conn.Subscribe(ch)
	}

	s.connsMu.Lock()
	s.conns[conn] = struct{}{}
	s.connsMu.Unlock()

	go conn.pingLoop()
	go func() {
		conn.readPump()
		s.connsMu.Lock()
		delete(s.conns, conn)
		s.connsMu.Unlock()
	}()
}

// Shutdown closes every currently accepted connection. Messages still
// waiting in a subscriber handle's queue are discarded, not flushed, when
// its connection closes.
func (s *Server) Shutdown() {
	s.connsMu.Lock()
	conns := make([]*Conn, 0, len(s.conns))
	for c := range s.conns {
		conns = append(conns, c)
	}
	s.connsMu.Unlock()

	for _, c := range conns {
		c.Close()
	}
}
