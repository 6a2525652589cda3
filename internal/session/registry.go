package session

import (
	"container/list"
	"sync"
	"time"

	"github.com/jsonmona/twilight/internal/logging"
)

var log = logging.L("session")

const defaultExpireTimeout = 30 * time.Minute

const maxCreateAttempts = 1000

// Registry is the session store (C5): creation, bearer-token lookup, and
// idle expiry. Grounded on server/web/session.rs's SessionStorage, with
// the BTreeMap<(Instant, SessionId)> LRU key replaced by a container/list
// access-order list — Go's GC takes the place of the original's
// Weak<Session> upgrade-on-lookup step, since removing an entry from
// byID is the only strong reference the registry itself ever held.
type Registry struct {
	mu            sync.Mutex
	byID          map[ID]*list.Element // list.Element.Value is *Session
	lru           *list.List
	maxSessions   int
	expireTimeout time.Duration

	// now is overridden in tests to drive expiry deterministically.
	now func() time.Time
}

// NewRegistry builds a Registry with the given capacity and idle-expiry
// timeout. A timeout of zero selects the 30-minute default.
func NewRegistry(maxSessions int, expireTimeout time.Duration) *Registry {
	if expireTimeout <= 0 {
		expireTimeout = defaultExpireTimeout
	}
	return &Registry{
		byID:          make(map[ID]*list.Element),
		lru:           list.New(),
		maxSessions:   maxSessions,
		expireTimeout: expireTimeout,
		now:           time.Now,
	}
}

// Create issues a fresh Session for username, retrying up to 1000 times
// to find an unused SessionId before giving up with
// ErrOutOfSessionSlots. Every call runs expire() first to reclaim idle
// slots.
func (r *Registry) Create(username string) (*Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.now()
	r.expireLocked(now)

	if r.maxSessions > 0 && len(r.byID) >= r.maxSessions {
		return nil, ErrOutOfSessionSlots
	}

	for attempt := 0; attempt < maxCreateAttempts; attempt++ {
		id, err := NewID()
		if err != nil {
			return nil, err
		}
		if _, taken := r.byID[id]; taken {
			continue
		}

		sess := newSession(id, username, now)
		elem := r.lru.PushBack(sess)
		r.byID[id] = elem
		return sess, nil
	}

	return nil, ErrOutOfSessionSlots
}

// Access looks up sid, updating LastUsed and moving the session to the
// back of the LRU on success. Every call also runs expire().
func (r *Registry) Access(sid ID) (*Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.now()
	r.expireLocked(now)

	elem, ok := r.byID[sid]
	if !ok {
		return nil, ErrUnauthorized
	}

	sess := elem.Value.(*Session)
	sess.touch(now)
	r.lru.MoveToBack(elem)
	return sess, nil
}

// Count reports the number of live sessions.
func (r *Registry) Count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.byID)
}

// expireLocked removes every session idle beyond expireTimeout with no
// open streams. Unlike a plain LRU eviction, it scans the full list
// rather than stopping at the first non-expirable entry, since an
// open-stream session can sit anywhere in access order.
func (r *Registry) expireLocked(now time.Time) {
	var next *list.Element
	for elem := r.lru.Front(); elem != nil; elem = next {
		next = elem.Next()
		sess := elem.Value.(*Session)

		if sess.OpenStreams() > 0 {
			continue
		}
		if now.Sub(sess.LastUsed()) < r.expireTimeout {
			continue
		}

		log.Debug("expiring idle session", "session", sess.ID.String(), "idle", now.Sub(sess.LastUsed()))
		delete(r.byID, sess.ID)
		r.lru.Remove(elem)
	}
}
