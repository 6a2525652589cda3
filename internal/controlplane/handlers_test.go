package controlplane

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/jsonmona/twilight/internal/desktop"
	"github.com/jsonmona/twilight/internal/session"
)

type noopStream struct{}

func (noopStream) Accept(w http.ResponseWriter, r *http.Request, sess *session.Session) {
	w.WriteHeader(http.StatusOK)
}

type noopCapture struct{ err error }

func (c noopCapture) StartCapture(sess *session.Session, ch uint16, monitorID string) error {
	return c.err
}

func newTestServer() (*Server, *session.Registry) {
	reg := session.NewRegistry(16, time.Minute)
	srv := NewServer(Config{
		BasePath: "/twilight",
		Registry: reg,
		Stream:   noopStream{},
		Capture:  noopCapture{},
		Monitors: func() []desktop.MonitorInfo {
			return []desktop.MonitorInfo{{ID: "0", Name: "Primary", Width: 1920, Height: 1080}}
		},
	})
	return srv, reg
}

func doRequest(srv *Server, method, path, body, token string) *httptest.ResponseRecorder {
	var r *http.Request
	if body != "" {
		r = httptest.NewRequest(method, path, bytes.NewBufferString(body))
	} else {
		r = httptest.NewRequest(method, path, nil)
	}
	if token != "" {
		r.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	srv.Router().ServeHTTP(w, r)
	return w
}

// TestAuthUsernameHappyPath is scenario S1: a well-formed username
// returns a 200 with a 64-character hex token.
func TestAuthUsernameHappyPath(t *testing.T) {
	srv, _ := newTestServer()

	w := doRequest(srv, http.MethodPost, "/twilight/auth/username", `{"username":"alice"}`, "")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200, body = %s", w.Code, w.Body.String())
	}

	var resp authUsernameResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if len(resp.Token) != 64 {
		t.Fatalf("token length = %d, want 64", len(resp.Token))
	}
}

// TestAuthUsernameRejectsBadUsername is scenario S2: a username
// containing disallowed characters is rejected with 400.
func TestAuthUsernameRejectsBadUsername(t *testing.T) {
	srv, _ := newTestServer()

	w := doRequest(srv, http.MethodPost, "/twilight/auth/username", `{"username":"bad username!"}`, "")
	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", w.Code)
	}
}

func TestCaptureDesktopRequiresAuth(t *testing.T) {
	srv, _ := newTestServer()

	w := doRequest(srv, http.MethodGet, "/twilight/capture/desktop", "", "")
	if w.Code != http.StatusForbidden {
		t.Fatalf("status = %d, want 403", w.Code)
	}
}

func TestCaptureDesktopListsMonitors(t *testing.T) {
	srv, reg := newTestServer()
	sess, err := reg.Create("alice")
	if err != nil {
		t.Fatal(err)
	}

	w := doRequest(srv, http.MethodGet, "/twilight/capture/desktop", "", sess.ID.String())
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200, body = %s", w.Code, w.Body.String())
	}

	var resp captureDesktopResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if len(resp.Monitor) != 1 || resp.Monitor[0].ID != "0" {
		t.Fatalf("unexpected monitor list: %+v", resp.Monitor)
	}
}

func TestChannelOpenAndClose(t *testing.T) {
	srv, reg := newTestServer()
	sess, err := reg.Create("alice")
	if err != nil {
		t.Fatal(err)
	}

	w := doRequest(srv, http.MethodPut, "/twilight/channel", "", sess.ID.String())
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	var resp putChannelResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}

	if _, ok := sess.Channels.Get(resp.Ch); !ok {
		t.Fatal("channel not registered on session after PUT /channel")
	}

	w2 := doRequest(srv, http.MethodDelete, fmt.Sprintf("/twilight/channel/%d", resp.Ch), "", sess.ID.String())
	if w2.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w2.Code)
	}
	if _, ok := sess.Channels.Get(resp.Ch); ok {
		t.Fatal("channel still registered after DELETE /channel/{ch}")
	}
}

func TestPostCaptureDesktopFailsWithoutOpenChannel(t *testing.T) {
	srv, reg := newTestServer()
	sess, err := reg.Create("alice")
	if err != nil {
		t.Fatal(err)
	}

	w := doRequest(srv, http.MethodPost, "/twilight/capture/desktop", `{"ch":999,"id":"0"}`, sess.ID.String())
	if w.Code != http.StatusFailedDependency {
		t.Fatalf("status = %d, want 424", w.Code)
	}
}
