package controlplane

import (
	"encoding/json"
	"errors"
	"net/http"
	"regexp"
	"strconv"

	"github.com/gorilla/mux"

	"github.com/jsonmona/twilight/internal/channel"
	"github.com/jsonmona/twilight/internal/session"
)

// maxBodyBytes bounds every request body this service reads, matching
// the 413 "body too large" code in spec.md §4.7's error table.
const maxBodyBytes = 4096

var usernameRe = regexp.MustCompile(`^[A-Za-z0-9_-]+$`)

type errorResponse struct {
	Error string `json:"error"`
}

func writeError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(errorResponse{Error: msg})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func readJSONBody(w http.ResponseWriter, r *http.Request, v any) error {
	body := http.MaxBytesReader(w, r.Body, maxBodyBytes)
	defer body.Close()
	if err := json.NewDecoder(body).Decode(v); err != nil {
		return err
	}
	return nil
}

type authUsernameRequest struct {
	Username string `json:"username"`
}

type authUsernameResponse struct {
	Token string `json:"token"`
}

// handleAuthUsername is POST /auth/username: trade a username for a
// bearer token session, per spec.md §4.7.
func (s *Server) handleAuthUsername(w http.ResponseWriter, r *http.Request) {
	var req authUsernameRequest
	if err := readJSONBody(w, r, &req); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			writeError(w, http.StatusRequestEntityTooLarge, "request body too large")
			return
		}
		writeError(w, http.StatusBadRequest, "malformed request body")
		return
	}

	if req.Username == "" || len(req.Username) > 256 || !usernameRe.MatchString(req.Username) {
		writeError(w, http.StatusBadRequest, "invalid username")
		return
	}

	sess, err := s.registry.Create(req.Username)
	if err != nil {
		log.Warn("session creation failed", "error", err)
		writeError(w, http.StatusInternalServerError, "could not create session")
		return
	}

	writeJSON(w, http.StatusOK, authUsernameResponse{Token: sess.ID.String()})
}

type captureDesktopResponse struct {
	Monitor []monitorInfoDTO `json:"monitor"`
}

type monitorInfoDTO struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Width  int    `json:"width"`
	Height int    `json:"height"`
}

// handleGetCaptureDesktop is GET /capture/desktop: list capturable
// monitors for the authenticated session.
func (s *Server) handleGetCaptureDesktop(w http.ResponseWriter, r *http.Request) {
	var monitors []monitorInfoDTO
	for _, m := range s.monitors() {
		monitors = append(monitors, monitorInfoDTO{ID: m.ID, Name: m.Name, Width: m.Width, Height: m.Height})
	}
	writeJSON(w, http.StatusOK, captureDesktopResponse{Monitor: monitors})
}

type postCaptureDesktopRequest struct {
	Ch uint16 `json:"ch"`
	ID string `json:"id"`
}

// handlePostCaptureDesktop is POST /capture/desktop: begin publishing the
// named monitor's capture pipeline onto an already-open channel. A
// channel that does not belong to this session, or one the session never
// opened a stream for, is a 424 per spec.md §4.7.
func (s *Server) handlePostCaptureDesktop(w http.ResponseWriter, r *http.Request) {
	sess := sessionFromContext(r)

	var req postCaptureDesktopRequest
	if err := readJSONBody(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "malformed request body")
		return
	}

	if _, ok := sess.Channels.Get(req.Ch); !ok {
		writeError(w, http.StatusFailedDependency, "channel not open")
		return
	}
	if sess.OpenStreams() == 0 {
		writeError(w, http.StatusFailedDependency, "no open stream")
		return
	}

	if err := s.capture.StartCapture(sess, req.Ch, req.ID); err != nil {
		log.Error("capture start failed", "error", err, "channel", req.Ch, "monitor", req.ID)
		writeError(w, http.StatusInternalServerError, "capture start failed")
		return
	}

	w.WriteHeader(http.StatusOK)
}

type putChannelResponse struct {
	Ch uint16 `json:"ch"`
}

// handlePutChannel is PUT /channel: allocate a fresh channel id on this
// session's multiplexer.
func (s *Server) handlePutChannel(w http.ResponseWriter, r *http.Request) {
	sess := sessionFromContext(r)

	ch, err := sess.Channels.Open()
	if err != nil {
		if errors.Is(err, channel.ErrNoChannelAvailable) {
			writeError(w, http.StatusInternalServerError, "no channel id available")
			return
		}
		writeError(w, http.StatusInternalServerError, "could not open channel")
		return
	}

	writeJSON(w, http.StatusOK, putChannelResponse{Ch: ch.ID})
}

// handleDeleteChannel is DELETE /channel/{ch}: close a channel on this
// session's multiplexer.
func (s *Server) handleDeleteChannel(w http.ResponseWriter, r *http.Request) {
	sess := sessionFromContext(r)

	chStr := mux.Vars(r)["ch"]
	chID, err := strconv.ParseUint(chStr, 10, 16)
	if err != nil {
		writeError(w, http.StatusBadRequest, "malformed channel id")
		return
	}

	sess.Channels.Close(uint16(chID))
	w.WriteHeader(http.StatusOK)
}

// handleStreamV1 is GET /stream/v1?auth=<token>: the only endpoint that
// takes its bearer token in the query string, since the browser
// WebSocket API cannot set request headers (spec.md §4.7).
func (s *Server) handleStreamV1(w http.ResponseWriter, r *http.Request) {
	tok := r.URL.Query().Get("auth")
	if tok == "" {
		writeError(w, http.StatusForbidden, "missing auth token")
		return
	}

	sid, err := session.ParseID(tok)
	if err != nil {
		writeError(w, http.StatusBadRequest, "malformed token")
		return
	}

	sess, err := s.registry.Access(sid)
	if err != nil {
		writeError(w, http.StatusForbidden, "unauthenticated")
		return
	}

	s.stream.Accept(w, r, sess)
}
