package session

import (
	"sync"
	"time"

	"github.com/jsonmona/twilight/internal/channel"
)

// Session is an authenticated principal with its own channel namespace
// (C6) and a stream-open counter used by the registry's idle-expiry rule.
// Fields are ported from server/web/session.rs's Session struct.
type Session struct {
	ID        ID
	Username  string
	CreatedAt time.Time

	Channels *channel.Multiplexer

	mu          sync.Mutex
	lastUsed    time.Time
	openStreams uint32
}

func newSession(id ID, username string, now time.Time) *Session {
	return &Session{
		ID:        id,
		Username:  username,
		CreatedAt: now,
		Channels:  channel.NewMultiplexer(),
		lastUsed:  now,
	}
}

// LastUsed returns the timestamp of the most recent authenticated request
// against this session.
func (s *Session) LastUsed() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastUsed
}

func (s *Session) touch(now time.Time) {
	s.mu.Lock()
	s.lastUsed = now
	s.mu.Unlock()
}

// OpenStreams reports how many streaming transports currently hold this
// session open. A session with OpenStreams() > 0 is exempt from idle
// expiry regardless of LastUsed.
func (s *Session) OpenStreams() uint32 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.openStreams
}

// OpenStream records the start of a streaming transport (spec.md §4.4).
func (s *Session) OpenStream() {
	s.mu.Lock()
	s.openStreams++
	s.mu.Unlock()
}

// CloseStream records the end of a streaming transport. It is a no-op if
// the counter is already zero, which should not happen on a correctly
// paired Open/Close but is tolerated defensively since it runs on
// connection-teardown paths that must never panic.
func (s *Session) CloseStream() {
	s.mu.Lock()
	if s.openStreams > 0 {
		s.openStreams--
	}
	s.mu.Unlock()
}
