// Package client implements the client worker (C10): the state machine
// that authenticates, opens a channel, dials the streaming WebSocket, and
// feeds decoded frames to a renderer, using internal/httputil.Do for the
// HTTP legs (auth, monitor list, channel open, capture start).
package client

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/jsonmona/twilight/internal/desktop"
	"github.com/jsonmona/twilight/internal/httputil"
	"github.com/jsonmona/twilight/internal/logging"
	"github.com/jsonmona/twilight/internal/protocol"
)

var log = logging.L("client")

// EventHandler receives state transitions and decoded output from the
// worker, delivered from whichever internal goroutine produced them —
// implementations must be safe to call concurrently and must not block.
type EventHandler interface {
	OnStateChange(State)
	OnConnected(desktop.MonitorInfo)
	OnFrame(desktop.Update[*desktop.Image])
}

// Config bundles everything a Worker needs to run once.
type Config struct {
	Origin      desktop.Origin
	Username    string
	Decoder     desktop.Decoder
	Handler     EventHandler
	HTTPClient  *http.Client
	RetryConfig httputil.RetryConfig
}

// Worker drives the DISCONNECTED→...→CLOSED state machine of spec.md
// §4.9 for one connection attempt. A fresh Worker is used per attempt;
// reconnection is the caller's responsibility (e.g. wrapping Run in a
// backoff loop).
type Worker struct {
	cfg Config

	stateMu sync.Mutex
	state   State

	lastShape *desktop.CursorShape
}

// New builds a Worker. RetryConfig defaults to httputil.DefaultRetryConfig
// when left zero-valued, and HTTPClient defaults to http.DefaultClient.
func New(cfg Config) *Worker {
	if cfg.HTTPClient == nil {
		cfg.HTTPClient = http.DefaultClient
	}
	if cfg.RetryConfig == (httputil.RetryConfig{}) {
		cfg.RetryConfig = httputil.DefaultRetryConfig()
	}
	return &Worker{cfg: cfg, state: StateDisconnected}
}

func (w *Worker) setState(s State) {
	w.stateMu.Lock()
	w.state = s
	w.stateMu.Unlock()
	if w.cfg.Handler != nil {
		w.cfg.Handler.OnStateChange(s)
	}
}

// State returns the worker's current state.
func (w *Worker) State() State {
	w.stateMu.Lock()
	defer w.stateMu.Unlock()
	return w.state
}

func (w *Worker) baseURL() string {
	scheme := "https"
	if w.cfg.Origin.Cleartext {
		scheme = "http"
	}
	return fmt.Sprintf("%s://%s:%d%s", scheme, w.cfg.Origin.Host, w.cfg.Origin.Port, w.cfg.Origin.Path)
}

// Run executes one full connection attempt: auth, monitor discovery,
// channel open, WebSocket dial, capture start, and the RUNNING frame
// loop. It returns when ctx is cancelled or an unrecoverable error
// occurs; every suspension point is paired with ctx.Done() in a select
// biased toward shutdown, per spec.md §4.9's cancellation model.
func (w *Worker) Run(ctx context.Context) error {
	w.setState(StateAuthPending)
	token, err := w.authenticate(ctx)
	if err != nil {
		w.setState(StateDisconnected)
		return fmt.Errorf("client: auth failed: %w", err)
	}
	w.setState(StateAuthed)

	monitors, err := w.listMonitors(ctx, token)
	if err != nil {
		w.setState(StateDisconnected)
		return fmt.Errorf("client: monitor list failed: %w", err)
	}
	if len(monitors) == 0 {
		w.setState(StateDisconnected)
		return fmt.Errorf("client: server reports no capturable monitors")
	}
	monitor := monitors[0]

	ch, err := w.openChannel(ctx, token)
	if err != nil {
		w.setState(StateDisconnected)
		return fmt.Errorf("client: channel open failed: %w", err)
	}

	conn, err := w.dialStream(ctx, token)
	if err != nil {
		w.setState(StateDisconnected)
		return fmt.Errorf("client: websocket dial failed: %w", err)
	}
	defer conn.Close()
	w.setState(StateStreamOpen)

	if err := w.startCapture(ctx, token, ch, monitor.ID); err != nil {
		w.setState(StateDisconnected)
		return fmt.Errorf("client: capture start failed: %w", err)
	}
	w.setState(StateSubscribed)

	return w.runLoop(ctx, conn, monitor)
}

func (w *Worker) authenticate(ctx context.Context) (string, error) {
	body, _ := json.Marshal(map[string]string{"username": w.cfg.Username})
	resp, err := httputil.Do(ctx, w.cfg.HTTPClient, http.MethodPost, w.baseURL()+"/auth/username", body,
		http.Header{"Content-Type": []string{"application/json"}}, w.cfg.RetryConfig)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()
	if resp.StatusCode/100 != 2 {
		return "", fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	var out struct {
		Token string `json:"token"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", err
	}
	return out.Token, nil
}

func (w *Worker) authHeader(token string) http.Header {
	return http.Header{"Authorization": []string{"Bearer " + token}}
}

func (w *Worker) listMonitors(ctx context.Context, token string) ([]desktop.MonitorInfo, error) {
	resp, err := httputil.Do(ctx, w.cfg.HTTPClient, http.MethodGet, w.baseURL()+"/capture/desktop", nil,
		w.authHeader(token), w.cfg.RetryConfig)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode/100 != 2 {
		return nil, fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	var out struct {
		Monitor []desktop.MonitorInfo `json:"monitor"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, err
	}
	return out.Monitor, nil
}

func (w *Worker) openChannel(ctx context.Context, token string) (uint16, error) {
	resp, err := httputil.Do(ctx, w.cfg.HTTPClient, http.MethodPut, w.baseURL()+"/channel", nil,
		w.authHeader(token), w.cfg.RetryConfig)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()
	if resp.StatusCode/100 != 2 {
		return 0, fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	var out struct {
		Ch uint16 `json:"ch"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return 0, err
	}
	return out.Ch, nil
}

func (w *Worker) startCapture(ctx context.Context, token string, ch uint16, monitorID string) error {
	body, _ := json.Marshal(map[string]any{"ch": ch, "id": monitorID})
	resp, err := httputil.Do(ctx, w.cfg.HTTPClient, http.MethodPost, w.baseURL()+"/capture/desktop", body,
		w.authHeader(token), w.cfg.RetryConfig)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode/100 != 2 {
		return fmt.Errorf("unexpected status %d", resp.StatusCode)
	}
	return nil
}

func (w *Worker) dialStream(ctx context.Context, token string) (*websocket.Conn, error) {
	scheme := "wss"
	if w.cfg.Origin.Cleartext {
		scheme = "ws"
	}
	u := url.URL{
		Scheme:   scheme,
		Host:     fmt.Sprintf("%s:%d", w.cfg.Origin.Host, w.cfg.Origin.Port),
		Path:     w.cfg.Origin.Path + "/stream/v1",
		RawQuery: "auth=" + token,
	}

	dialer := websocket.Dialer{HandshakeTimeout: 10 * time.Second}
	conn, _, err := dialer.DialContext(ctx, u.String(), nil)
	return conn, err
}

// runLoop is the RUNNING state: read frames until ctx is cancelled or the
// connection fails. The first successfully decoded frame fires
// OnConnected before any OnFrame, matching "Connected is delivered before
// the first NextFrame" (spec.md §5).
func (w *Worker) runLoop(ctx context.Context, conn *websocket.Conn, monitor desktop.MonitorInfo) error {
	done := make(chan struct{})
	go func() {
		<-ctx.Done()
		conn.Close()
	}()
	defer close(done)

	announced := false
	var videoWidth, videoHeight int

	for {
		select {
		case <-ctx.Done():
			w.setState(StateClosing)
			w.setState(StateClosed)
			return ctx.Err()
		default:
		}

		_, data, err := conn.ReadMessage()
		if err != nil {
			if ctx.Err() != nil {
				w.setState(StateClosing)
				w.setState(StateClosed)
				return ctx.Err()
			}
			return fmt.Errorf("client: read failed: %w", err)
		}

		frame, err := protocol.ParseFrame(data)
		if err != nil {
			log.Warn("malformed frame from server, dropping", "error", err)
			continue
		}

		kind, body, err := protocol.DecodeSchemaKind(frame.Schema)
		if err != nil {
			log.Warn("malformed schema envelope, dropping", "error", err)
			continue
		}

		if kind == protocol.KindNotifyVideoStart {
			start, err := protocol.UnmarshalNotifyVideoStart(body)
			if err != nil {
				log.Warn("malformed NotifyVideoStart, dropping", "error", err)
				continue
			}
			videoWidth, videoHeight = int(start.Width), int(start.Height)
			continue
		}
		if kind != protocol.KindVideoFrame {
			log.Warn("unknown message kind, dropping", "kind", kind)
			continue
		}

		videoFrame, err := protocol.UnmarshalVideoFrame(body)
		if err != nil {
			log.Warn("malformed video frame schema, dropping", "error", err)
			continue
		}
		if uint64(len(frame.Payload)) != videoFrame.VideoBytes {
			log.Warn("video_bytes mismatch, dropping frame",
				"declared", videoFrame.VideoBytes, "actual", len(frame.Payload))
			continue
		}

		img, err := w.cfg.Decoder.Decode(frame.Payload, videoWidth, videoHeight)
		if err != nil {
			return fmt.Errorf("client: decode failed: %w", err)
		}

		if !announced {
			w.setState(StateRunning)
			if w.cfg.Handler != nil {
				w.cfg.Handler.OnConnected(monitor)
			}
			announced = true
		}

		update := desktop.Update[*desktop.Image]{Desktop: img}
		if videoFrame.Cursor != nil {
			update.Cursor = w.resolveCursor(videoFrame.Cursor)
		}

		if w.cfg.Handler != nil {
			w.cfg.Handler.OnFrame(update)
		}
	}
}

// resolveCursor applies the cursor-shape memoisation rule from spec.md:
// a CursorUpdate with a nil Shape means the shape is unchanged from the
// last one seen, so the receiver retains and reapplies it.
func (w *Worker) resolveCursor(c *protocol.CursorUpdate) *desktop.CursorState {
	state := &desktop.CursorState{X: c.X, Y: c.Y, Visible: c.Visible}

	if c.Shape != nil {
		img, err := desktop.NewImage(int(c.Shape.Width), int(c.Shape.Height), int(c.Shape.Width)*4, desktop.PixelFormatBGRA8888, c.Shape.Image)
		if err == nil {
			w.lastShape = &desktop.CursorShape{
				Image:    img,
				XOR:      c.Shape.XOR,
				HotspotX: c.Shape.HotspotX,
				HotspotY: c.Shape.HotspotY,
			}
		} else {
			log.Warn("malformed cursor shape image, keeping previous shape", "error", err)
		}
	}
	state.Shape = w.lastShape
	return state
}
