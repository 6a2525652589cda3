package wsio

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/jsonmona/twilight/internal/protocol"
	"github.com/jsonmona/twilight/internal/session"
)

type recordingHandler struct {
	frames chan protocol.Frame
}

func (h *recordingHandler) HandleFrame(sess *session.Session, frame protocol.Frame) {
	h.frames <- frame
}

func TestAcceptFansOutToAlreadyOpenChannel(t *testing.T) {
	registry := session.NewRegistry(10, time.Minute)
	sess, err := registry.Create("alice")
	if err != nil {
		t.Fatal(err)
	}
	ch, err := sess.Channels.Open()
	if err != nil {
		t.Fatal(err)
	}

	handler := &recordingHandler{frames: make(chan protocol.Frame, 4)}
	srv := NewServer(Config{Handler: handler})

	httpSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		srv.Accept(w, r, sess)
	}))
	defer httpSrv.Close()

	wsURL := "ws" + strings.TrimPrefix(httpSrv.URL, "http")
	clientConn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatalf("dial failed: %v", err)
	}
	defer clientConn.Close()

	time.Sleep(20 * time.Millisecond) // let Accept finish subscribing

	schema := protocol.NotifyVideoStart{Stream: 1, Width: 640, Height: 480, Codec: protocol.CodecJPEG}.Marshal()
	wire := protocol.BuildFrame(ch.ID, schema, []byte("payload"))
	ch.Send(wire)

	clientConn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, data, err := clientConn.ReadMessage()
	if err != nil {
		t.Fatalf("ReadMessage failed: %v", err)
	}

	frame, err := protocol.ParseFrame(data)
	if err != nil {
		t.Fatal(err)
	}
	if frame.Channel != ch.ID {
		t.Fatalf("channel = %d, want %d", frame.Channel, ch.ID)
	}
	if string(frame.Payload) != "payload" {
		t.Fatalf("payload = %q, want %q", frame.Payload, "payload")
	}
}

func TestAcceptOpensStreamOnSession(t *testing.T) {
	registry := session.NewRegistry(10, time.Minute)
	sess, err := registry.Create("alice")
	if err != nil {
		t.Fatal(err)
	}

	srv := NewServer(Config{})
	httpSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		srv.Accept(w, r, sess)
	}))
	defer httpSrv.Close()

	wsURL := "ws" + strings.TrimPrefix(httpSrv.URL, "http")
	clientConn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatalf("dial failed: %v", err)
	}

	time.Sleep(20 * time.Millisecond)
	if sess.OpenStreams() != 1 {
		t.Fatalf("OpenStreams() = %d, want 1", sess.OpenStreams())
	}

	clientConn.Close()
	time.Sleep(50 * time.Millisecond)
	if sess.OpenStreams() != 0 {
		t.Fatalf("OpenStreams() = %d after close, want 0", sess.OpenStreams())
	}
}
