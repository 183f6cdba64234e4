package session

import (
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/matiasroldan/adambot/internal/clock"
	"github.com/matiasroldan/adambot/internal/validate"
)

// DefaultTTL is the default inactivity duration before a session is reclaimed.
const DefaultTTL = 24 * time.Hour

// Store owns all in-flight sessions: an in-memory map mirrored to disk.
// Per-user operations are linearizable — callers serialize all transitions
// for one user id through Acquire, while different users proceed
// independently. The mirror is written before the in-memory state is
// published, so visible state never gets ahead of durable state.
type Store struct {
	mirror Mirror
	clk    clock.Clock
	ttl    time.Duration
	logger zerolog.Logger

	mu       sync.RWMutex
	sessions map[int64]*Session
	locks    map[int64]*sync.Mutex
}

// NewStore creates a Store over the given mirror. A non-positive ttl falls
// back to DefaultTTL.
func NewStore(mirror Mirror, clk clock.Clock, ttl time.Duration, logger zerolog.Logger) *Store {
	if mirror == nil {
		mirror = NoopMirror{}
	}
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Store{
		mirror:   mirror,
		clk:      clk,
		ttl:      ttl,
		logger:   logger.With().Str("component", "session.store").Logger(),
		sessions: make(map[int64]*Session),
		locks:    make(map[int64]*sync.Mutex),
	}
}

// TTL returns the configured inactivity limit.
func (s *Store) TTL() time.Duration {
	return s.ttl
}

// Restore loads mirrored sessions from disk, dropping any already expired.
func (s *Store) Restore() error {
	loaded, err := s.mirror.LoadAll()
	if err != nil {
		return fmt.Errorf("failed to restore sessions: %w", err)
	}

	now := s.clk.Now()
	restored := 0

	s.mu.Lock()
	for userID, sess := range loaded {
		if sess.ExpiredAt(now, s.ttl) {
			continue
		}
		s.sessions[userID] = sess
		restored++
	}
	s.mu.Unlock()

	s.logger.Info().Int("restored", restored).Int("on_disk", len(loaded)).Msg("sessions restored")
	return nil
}

// Acquire returns the per-user mutex, creating it on first use. Callers hold
// it across a full read-modify-write transition; operations for different
// user ids never contend on it.
func (s *Store) Acquire(userID int64) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()

	lock, ok := s.locks[userID]
	if !ok {
		lock = &sync.Mutex{}
		s.locks[userID] = lock
	}
	return lock
}

// Get returns a deep copy of the user's session, or absent. Callers mutate
// the copy and publish it via Put.
func (s *Store) Get(userID int64) (*Session, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sess, ok := s.sessions[userID]
	if !ok {
		return nil, false
	}
	return sess.Clone(), true
}

// Put persists the session: the free-text fields are re-sanitized at this
// boundary, the mirror is written first, and only on success does the
// in-memory map change. A mirror failure therefore leaves the previous state
// fully intact.
func (s *Store) Put(sess *Session) error {
	copied := sess.Clone()
	sanitizeAnswers(copied)

	if err := s.mirror.Save(copied); err != nil {
		return fmt.Errorf("failed to mirror session %d: %w", copied.UserID, err)
	}

	s.mu.Lock()
	s.sessions[copied.UserID] = copied
	s.mu.Unlock()
	return nil
}

// Delete removes the session from memory and from the mirror.
func (s *Store) Delete(userID int64) error {
	s.mu.Lock()
	delete(s.sessions, userID)
	s.mu.Unlock()

	if err := s.mirror.Delete(userID); err != nil {
		return fmt.Errorf("failed to delete mirrored session %d: %w", userID, err)
	}
	return nil
}

// SweepExpired removes every session whose inactivity exceeds the TTL at
// now, deleting both the in-memory entry and its mirror record. It returns
// the number reclaimed.
func (s *Store) SweepExpired(now time.Time) int {
	s.mu.Lock()
	var expired []int64
	for userID, sess := range s.sessions {
		if sess.ExpiredAt(now, s.ttl) {
			expired = append(expired, userID)
		}
	}
	for _, userID := range expired {
		delete(s.sessions, userID)
		delete(s.locks, userID)
	}
	s.mu.Unlock()

	for _, userID := range expired {
		if err := s.mirror.Delete(userID); err != nil {
			s.logger.Warn().Int64("user_id", userID).Err(err).Msg("failed to delete mirrored session during sweep")
		}
	}

	if len(expired) > 0 {
		s.logger.Info().Int("reclaimed", len(expired)).Msg("expired sessions reclaimed")
	}
	return len(expired)
}

// Len returns the number of live sessions.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}

// sanitizeAnswers re-runs sanitization over the raw answer text at the
// storage boundary, independent of validation-time sanitization.
func sanitizeAnswers(sess *Session) {
	for stage, answers := range sess.Answers {
		for i := range answers {
			answers[i].Raw = validate.Sanitize(answers[i].Raw)
		}
		sess.Answers[stage] = answers
	}
}
