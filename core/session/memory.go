package session

import (
	"sync"
	"time"

	"github.com/cespare/xxhash/v2"
)

const defaultShards = 32

type userLock struct {
	mu   sync.Mutex
	refs int
}

type shard struct {
	mu       sync.RWMutex
	sessions map[string]*Session
	locks    map[string]*userLock
}

// Store is an in-memory session store safe for concurrent use.
// Sessions are copied in and out; callers never share memory with the store.
type Store struct {
	shards []*shard
	now    func() time.Time
}

// NewStore constructs a Store with the default number of shards.
func NewStore() *Store {
	return NewStoreWithShards(defaultShards)
}

// NewStoreWithShards constructs a Store with n shards (at least one).
func NewStoreWithShards(n int) *Store {
	if n <= 0 {
		n = 1
	}
	s := &Store{
		shards: make([]*shard, n),
		now:    time.Now,
	}
	for i := range s.shards {
		s.shards[i] = &shard{
			sessions: make(map[string]*Session),
			locks:    make(map[string]*userLock),
		}
	}
	return s
}

func (s *Store) shard(userID string) *shard {
	return s.shards[xxhash.Sum64String(userID)%uint64(len(s.shards))]
}

// Get returns a copy of the user's session if one exists.
func (s *Store) Get(userID string) (Session, bool) {
	sh := s.shard(userID)
	sh.mu.RLock()
	defer sh.mu.RUnlock()

	if sess, ok := sh.sessions[userID]; ok {
		return sess.Clone(), true
	}
	return Session{}, false
}

// GetOrCreate returns the user's session, creating an empty one if absent.
func (s *Store) GetOrCreate(userID string) Session {
	sh := s.shard(userID)
	sh.mu.Lock()
	defer sh.mu.Unlock()

	sess, ok := sh.sessions[userID]
	if !ok {
		sess = &Session{UpdatedAt: s.now()}
		sh.sessions[userID] = sess
	}
	return sess.Clone()
}

// Reset replaces the user's session with a fresh empty one.
func (s *Store) Reset(userID string) {
	sh := s.shard(userID)
	sh.mu.Lock()
	defer sh.mu.Unlock()

	sh.sessions[userID] = &Session{UpdatedAt: s.now()}
}

// Clear empties the selection and leaves free-text mode, creating the session if absent.
func (s *Store) Clear(userID string) {
	sh := s.shard(userID)
	sh.mu.Lock()
	defer sh.mu.Unlock()

	sess, ok := sh.sessions[userID]
	if !ok {
		sess = &Session{}
		sh.sessions[userID] = sess
	}
	sess.Selected = nil
	sess.AwaitingFreeText = false
	sess.UpdatedAt = s.now()
}

// Put stores a copy of sess for the user.
func (s *Store) Put(userID string, sess Session) {
	cp := sess.Clone()
	cp.UpdatedAt = s.now()

	sh := s.shard(userID)
	sh.mu.Lock()
	defer sh.mu.Unlock()
	sh.sessions[userID] = &cp
}

// Remove deletes the user's session entirely.
func (s *Store) Remove(userID string) {
	sh := s.shard(userID)
	sh.mu.Lock()
	defer sh.mu.Unlock()

	delete(sh.sessions, userID)
}

// Len returns the number of live sessions.
func (s *Store) Len() int {
	n := 0
	for _, sh := range s.shards {
		sh.mu.RLock()
		n += len(sh.sessions)
		sh.mu.RUnlock()
	}
	return n
}

// Lock acquires the user's mutation lock and returns the release function.
// Different users never contend on the same lock.
func (s *Store) Lock(userID string) (unlock func()) {
	sh := s.shard(userID)

	sh.mu.Lock()
	l, ok := sh.locks[userID]
	if !ok {
		l = &userLock{}
		sh.locks[userID] = l
	}
	l.refs++
	sh.mu.Unlock()

	l.mu.Lock()

	var once sync.Once
	return func() {
		once.Do(func() {
			l.mu.Unlock()
			sh.mu.Lock()
			l.refs--
			if l.refs == 0 {
				delete(sh.locks, userID)
			}
			sh.mu.Unlock()
		})
	}
}
