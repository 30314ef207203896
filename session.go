package deliblade

import (
	"container/list"
	"sync"
	"time"

	"github.com/flarexio/deliblade/provider"
)

type session struct {
	id         string
	turns      []provider.Message
	lastAccess time.Time
}

// SessionStore is a bounded, in-memory conversation cache. The
// least-recently-accessed session is evicted at capacity, and idle
// sessions expire lazily on access.
type SessionStore struct {
	mu       sync.Mutex
	capacity int
	ttl      time.Duration
	entries  map[string]*list.Element
	order    *list.List // front = most recently accessed

	now func() time.Time
}

func NewSessionStore(capacity int, ttl time.Duration) *SessionStore {
	if capacity <= 0 {
		capacity = 1000
	}

	if ttl <= 0 {
		ttl = 30 * time.Minute
	}

	return &SessionStore{
		capacity: capacity,
		ttl:      ttl,
		entries:  make(map[string]*list.Element),
		order:    list.New(),
		now:      time.Now,
	}
}

// GetOrCreate returns a snapshot of the session's turns, creating the
// session if it is unseen or expired.
func (s *SessionStore) GetOrCreate(id string) []provider.Message {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess := s.touch(id)

	turns := make([]provider.Message, len(sess.turns))
	copy(turns, sess.turns)
	return turns
}

// Append adds turns to the session, creating it if needed.
func (s *SessionStore) Append(id string, turns ...provider.Message) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess := s.touch(id)
	sess.turns = append(sess.turns, turns...)
}

// Len returns the number of live sessions.
func (s *SessionStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.order.Len()
}

// Sweep drops every expired session. Expiry is already enforced
// lazily on access; sweeping just frees memory earlier.
func (s *SessionStore) Sweep() {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()

	for elem := s.order.Back(); elem != nil; {
		prev := elem.Prev()

		sess := elem.Value.(*session)
		if now.Sub(sess.lastAccess) > s.ttl {
			s.order.Remove(elem)
			delete(s.entries, sess.id)
		}

		elem = prev
	}
}

// touch returns the live session for id, resetting expired ones and
// evicting the least-recently-accessed session when at capacity.
// Callers must hold s.mu.
func (s *SessionStore) touch(id string) *session {
	now := s.now()

	if elem, ok := s.entries[id]; ok {
		sess := elem.Value.(*session)

		if now.Sub(sess.lastAccess) > s.ttl {
			sess.turns = nil
		}

		sess.lastAccess = now
		s.order.MoveToFront(elem)
		return sess
	}

	if s.order.Len() >= s.capacity {
		oldest := s.order.Back()
		if oldest != nil {
			s.order.Remove(oldest)
			delete(s.entries, oldest.Value.(*session).id)
		}
	}

	sess := &session{
		id:         id,
		lastAccess: now,
	}

	s.entries[id] = s.order.PushFront(sess)
	return sess
}
