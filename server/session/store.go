// Package session keeps the temporal memory of every tracked subject.
package session

import (
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/san-kum/pose-sentinel/server/pose"
	"go.uber.org/zap"
)

// Session is one tracked subject. Mu must be held while classifying so
// that reading and overwriting Memory happen as one step.
type Session struct {
	ID string

	Mu            sync.Mutex
	Memory        pose.TemporalMemory
	LastTimestamp int64
	Frames        int64

	createdAt time.Time
	lastSeen  time.Time
}

// Info is a point in time summary of a session.
type Info struct {
	ID        string    `json:"id"`
	Frames    int64     `json:"frames"`
	Tracking  bool      `json:"tracking"`
	CreatedAt time.Time `json:"created_at"`
	LastSeen  time.Time `json:"last_seen"`
}

// Store maps session IDs to sessions. Sessions idle for longer than the
// TTL are dropped and the least recently used session is evicted when the
// store is full.
type Store struct {
	sessions map[string]*Session
	mutex    sync.Mutex
	maxSize  int
	ttl      time.Duration
	logger   *zap.Logger
	cleanup  *time.Ticker
	stopCh   chan struct{}
	once     sync.Once
	now      func() time.Time
}

func NewStore(maxSize int, ttl time.Duration, logger *zap.Logger) *Store {
	store := &Store{
		sessions: make(map[string]*Session),
		maxSize:  maxSize,
		ttl:      ttl,
		logger:   logger,
		stopCh:   make(chan struct{}),
		now:      time.Now,
	}

	store.cleanup = time.NewTicker(30 * time.Second)
	go store.cleanupExpired()

	return store
}

// NewID returns a fresh session ID.
func NewID() string {
	return uuid.New().String()
}

// GetOrCreate returns the session for id, creating it with empty memory if
// it does not exist or has expired. An empty id creates a new session.
func (s *Store) GetOrCreate(id string) (*Session, bool) {
	if id == "" {
		id = NewID()
	}

	s.mutex.Lock()
	defer s.mutex.Unlock()

	now := s.now()

	if sess, ok := s.sessions[id]; ok && now.Sub(sess.lastSeen) <= s.ttl {
		sess.lastSeen = now
		return sess, false
	}

	if len(s.sessions) >= s.maxSize {
		s.evictLRU()
	}

	sess := &Session{ID: id, createdAt: now, lastSeen: now}
	s.sessions[id] = sess

	s.logger.Debug("Session created", zap.String("session_id", id))
	return sess, true
}

// Get returns the live session for id.
func (s *Store) Get(id string) (*Session, bool) {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	sess, ok := s.sessions[id]
	if !ok || s.now().Sub(sess.lastSeen) > s.ttl {
		return nil, false
	}
	return sess, true
}

// Reset forgets the remembered joint positions of session id. It reports
// whether the session existed.
func (s *Store) Reset(id string) bool {
	sess, ok := s.Get(id)
	if !ok {
		return false
	}

	sess.Mu.Lock()
	sess.Memory.Reset()
	sess.LastTimestamp = 0
	sess.Mu.Unlock()

	return true
}

func (s *Store) Delete(id string) {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	delete(s.sessions, id)
}

func (s *Store) Len() int {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	return len(s.sessions)
}

// List returns a summary of every session ordered by ID. Tracking reports
// whether the session remembers joint positions from an earlier frame.
func (s *Store) List() []Info {
	s.mutex.Lock()
	sessions := make([]*Session, 0, len(s.sessions))
	infos := make([]Info, 0, len(s.sessions))
	for _, sess := range s.sessions {
		sessions = append(sessions, sess)
		infos = append(infos, Info{ID: sess.ID, CreatedAt: sess.createdAt, LastSeen: sess.lastSeen})
	}
	s.mutex.Unlock()

	for i, sess := range sessions {
		sess.Mu.Lock()
		infos[i].Frames = sess.Frames
		infos[i].Tracking = !sess.Memory.Empty()
		sess.Mu.Unlock()
	}

	slices.SortFunc(infos, func(a, b Info) int { return strings.Compare(a.ID, b.ID) })

	return infos
}

func (s *Store) Close() error {
	s.once.Do(func() {
		s.cleanup.Stop()
		close(s.stopCh)
	})
	return nil
}

func (s *Store) evictLRU() {
	var oldestID string
	var oldestTime time.Time

	for id, sess := range s.sessions {
		if oldestID == "" || sess.lastSeen.Before(oldestTime) {
			oldestID = id
			oldestTime = sess.lastSeen
		}
	}

	if oldestID != "" {
		delete(s.sessions, oldestID)
		s.logger.Info("Session evicted, store full", zap.String("session_id", oldestID))
	}
}

func (s *Store) cleanupExpired() {
	for {
		select {
		case <-s.cleanup.C:
			s.mutex.Lock()
			now := s.now()
			for id, sess := range s.sessions {
				if now.Sub(sess.lastSeen) > s.ttl {
					delete(s.sessions, id)
				}
			}
			s.mutex.Unlock()
		case <-s.stopCh:
			return
		}
	}
}
