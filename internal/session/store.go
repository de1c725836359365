// Package session keeps the in-memory conversation state of every chat.
package session

import (
	"sync"
	"sync/atomic"
	"time"

	"vpnstore/internal/domain"
)

// UpdateFunc receives the current session (ok=false when absent) and
// returns the session to store, or nil to delete it.
type UpdateFunc func(cur *domain.Session, ok bool) (*domain.Session, error)

type entry struct {
	mu   sync.Mutex
	sess *domain.Session
}

// Store holds zero or one session per chat. Updates for the same chat are
// serialized; different chats proceed independently.
type Store struct {
	mu      sync.Mutex
	entries map[int64]*entry
	gen     atomic.Uint64
	now     func() time.Time
}

// NewStore creates an empty store
func NewStore() *Store {
	return &Store{
		entries: make(map[int64]*entry),
		now:     time.Now,
	}
}

// lock returns the chat's entry with its mutex held. An entry dropped
// between lookup and locking is retried.
func (s *Store) lock(chatID int64) *entry {
	for {
		s.mu.Lock()
		e, ok := s.entries[chatID]
		if !ok {
			e = &entry{}
			s.entries[chatID] = e
		}
		s.mu.Unlock()

		e.mu.Lock()
		s.mu.Lock()
		live := s.entries[chatID] == e
		s.mu.Unlock()
		if live {
			return e
		}
		e.mu.Unlock()
	}
}

// drop removes the entry when it no longer holds a session. Called with e.mu held.
func (s *Store) drop(chatID int64, e *entry) {
	if e.sess != nil {
		return
	}
	s.mu.Lock()
	if s.entries[chatID] == e {
		delete(s.entries, chatID)
	}
	s.mu.Unlock()
}

// Get returns a copy of the chat's session
func (s *Store) Get(chatID int64) (domain.Session, bool) {
	e := s.lock(chatID)
	defer e.mu.Unlock()
	defer s.drop(chatID, e)
	if e.sess == nil {
		return domain.Session{}, false
	}
	return *e.sess, true
}

// Set overwrites the chat's session unconditionally
func (s *Store) Set(chatID int64, sess domain.Session) {
	e := s.lock(chatID)
	defer e.mu.Unlock()
	sess.ChatID = chatID
	e.sess = &sess
}

// Delete removes the chat's session
func (s *Store) Delete(chatID int64) {
	e := s.lock(chatID)
	defer e.mu.Unlock()
	e.sess = nil
	s.drop(chatID, e)
}

// Begin starts a new flow for the chat, replacing any existing one. The
// returned session carries a fresh generation.
func (s *Store) Begin(chatID int64, flow domain.FlowKind, phase domain.Phase, init func(*domain.Session)) domain.Session {
	sess := domain.Session{
		ChatID:     chatID,
		Flow:       flow,
		Phase:      phase,
		Generation: s.gen.Add(1),
		CreatedAt:  s.now(),
	}
	if init != nil {
		init(&sess)
	}
	s.Set(chatID, sess)
	return sess
}

// Update runs fn under the chat's lock and stores its result. A returned
// session that differs from the current one counts as a step and gets its
// Step counter bumped; returning it unchanged is a no-op. The lock is held
// while fn runs, so fn must not call back into the store for the same chat.
func (s *Store) Update(chatID int64, fn UpdateFunc) (*domain.Session, error) {
	e := s.lock(chatID)
	defer e.mu.Unlock()
	defer s.drop(chatID, e)

	var cur *domain.Session
	if e.sess != nil {
		cp := *e.sess
		cur = &cp
	}

	next, err := fn(cur, cur != nil)
	if err != nil {
		return nil, err
	}
	if next == nil {
		e.sess = nil
		return nil, nil
	}

	next.ChatID = chatID
	if prev := e.sess; prev != nil && next.Generation == prev.Generation {
		next.Step = prev.Step
		if *next == *prev {
			unchanged := *prev
			return &unchanged, nil
		}
		next.Step = prev.Step + 1
	}
	stored := *next
	e.sess = &stored
	return &stored, nil
}

// ExpireIf deletes the chat's session only when it still has the given
// generation and step. It returns the removed session.
func (s *Store) ExpireIf(chatID int64, generation, step uint64) (domain.Session, bool) {
	e := s.lock(chatID)
	defer e.mu.Unlock()
	defer s.drop(chatID, e)

	if e.sess == nil || e.sess.Generation != generation || e.sess.Step != step {
		return domain.Session{}, false
	}
	expired := *e.sess
	e.sess = nil
	return expired, true
}

// Arm schedules a conditional expiry of the session's current step.
// onExpire runs only when the expiry actually removed the session.
func (s *Store) Arm(sess domain.Session, after time.Duration, onExpire func(domain.Session)) *time.Timer {
	return time.AfterFunc(after, func() {
		expired, ok := s.ExpireIf(sess.ChatID, sess.Generation, sess.Step)
		if ok && onExpire != nil {
			onExpire(expired)
		}
	})
}

// Len returns the number of active sessions
func (s *Store) Len() int {
	s.mu.Lock()
	entries := make([]*entry, 0, len(s.entries))
	for _, e := range s.entries {
		entries = append(entries, e)
	}
	s.mu.Unlock()

	n := 0
	for _, e := range entries {
		e.mu.Lock()
		if e.sess != nil {
			n++
		}
		e.mu.Unlock()
	}
	return n
}
