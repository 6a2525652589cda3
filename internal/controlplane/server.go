// Package controlplane implements the HTTP control-plane service (C8):
// auth, monitor listing, capture start, and channel lifecycle — the
// out-of-band JSON plane alongside the binary streaming WebSocket.
// Routing uses gorilla/mux; request/response handling follows the
// bounded-body, structured-error conventions of internal/httputil.
package controlplane

import (
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/jsonmona/twilight/internal/desktop"
	"github.com/jsonmona/twilight/internal/logging"
	"github.com/jsonmona/twilight/internal/session"
)

var log = logging.L("controlplane")

// StreamAcceptor upgrades an authenticated request to the streaming
// WebSocket transport. Implemented by wsio.Server; kept as an interface
// here so controlplane never imports the concrete gorilla/websocket
// plumbing directly.
type StreamAcceptor interface {
	Accept(w http.ResponseWriter, r *http.Request, sess *session.Session)
}

// CaptureStarter begins publishing a desktop capture pipeline onto an
// already-open channel. Implemented by the streaming coordinator wired up
// in cmd/twilightd; kept as an interface so controlplane stays free of
// pipeline/encoder construction details.
type CaptureStarter interface {
	StartCapture(sess *session.Session, ch uint16, monitorID string) error
}

// Server is the control-plane HTTP handler tree.
type Server struct {
	router   *mux.Router
	registry *session.Registry
	stream   StreamAcceptor
	capture  CaptureStarter
	monitors func() []desktop.MonitorInfo

	upgradeTimeout time.Duration
}

// Config bundles the collaborators a Server needs. Monitors is called
// fresh on every GET /capture/desktop so monitor hot-plug is reflected
// without a restart.
type Config struct {
	BasePath       string
	Registry       *session.Registry
	Stream         StreamAcceptor
	Capture        CaptureStarter
	Monitors       func() []desktop.MonitorInfo
	UpgradeTimeout time.Duration
}

// NewServer builds a Server and registers every route from spec.md §4.7
// under cfg.BasePath.
func NewServer(cfg Config) *Server {
	if cfg.BasePath == "" {
		cfg.BasePath = "/twilight"
	}
	if cfg.UpgradeTimeout <= 0 {
		cfg.UpgradeTimeout = 30 * time.Second
	}

	s := &Server{
		router:         mux.NewRouter(),
		registry:       cfg.Registry,
		stream:         cfg.Stream,
		capture:        cfg.Capture,
		monitors:       cfg.Monitors,
		upgradeTimeout: cfg.UpgradeTimeout,
	}

	base := s.router.PathPrefix(cfg.BasePath).Subrouter()
	base.HandleFunc("/auth/username", s.handleAuthUsername).Methods(http.MethodPost)
	base.HandleFunc("/capture/desktop", s.requireAuth(s.handleGetCaptureDesktop)).Methods(http.MethodGet)
	base.HandleFunc("/capture/desktop", s.requireAuth(s.handlePostCaptureDesktop)).Methods(http.MethodPost)
	base.HandleFunc("/channel", s.requireAuth(s.handlePutChannel)).Methods(http.MethodPut)
	base.HandleFunc("/channel/{ch}", s.requireAuth(s.handleDeleteChannel)).Methods(http.MethodDelete)
	base.HandleFunc("/stream/v1", s.handleStreamV1).Methods(http.MethodGet)

	return s
}

// Router returns the http.Handler to mount on an *http.Server.
func (s *Server) Router() http.Handler {
	return s.router
}
