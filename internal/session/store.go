package session

import (
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

type storeKey struct {
	userID    string
	channelID string
}

// Store keeps at most one Session per (user, channel) pair.
//
// Concurrency discipline: the store's own mutex only guards the map.
// All session field access goes through the per-session lock, which the
// orchestrator holds for the full pipeline of one message. The sweep
// uses TryLock so it never stalls behind an in-flight message; a busy
// session is by definition active and not expired.
type Store struct {
	mu       sync.RWMutex
	sessions map[storeKey]*Session
	timeout  time.Duration
	logger   *logrus.Logger
}

// NewStore creates a session store with the given inactivity timeout.
func NewStore(timeout time.Duration, logger *logrus.Logger) *Store {
	return &Store{
		sessions: make(map[storeKey]*Session),
		timeout:  timeout,
		logger:   logger,
	}
}

// GetOrCreate returns the session for the pair, creating it on first
// contact. A session found past its inactivity timeout has its result
// state cleared in place before it is returned; history is retained.
// Never fails.
func (st *Store) GetOrCreate(userID, channelID string) *Session {
	key := storeKey{userID: userID, channelID: channelID}

	st.mu.Lock()
	s, ok := st.sessions[key]
	if !ok {
		now := time.Now()
		s = &Session{
			UserID:         userID,
			ChannelID:      channelID,
			createdAt:      now,
			lastActivityAt: now,
		}
		st.sessions[key] = s
	}
	st.mu.Unlock()

	s.Lock()
	if s.expired(st.timeout, time.Now()) {
		s.ClearResult()
		st.logger.WithFields(logrus.Fields{
			"user":    userID,
			"channel": channelID,
		}).Info("Session expired, result state cleared")
	}
	s.Touch()
	s.Unlock()

	return s
}

// Sweep clears the result state of every session idle past the
// timeout. Sessions whose lock is held are skipped; they are in the
// middle of a message and therefore not idle. Returns the number of
// sessions cleared.
func (st *Store) Sweep(now time.Time) int {
	st.mu.RLock()
	candidates := make([]*Session, 0, len(st.sessions))
	for _, s := range st.sessions {
		candidates = append(candidates, s)
	}
	st.mu.RUnlock()

	cleared := 0
	for _, s := range candidates {
		if !s.mu.TryLock() {
			continue
		}
		if s.expired(st.timeout, now) && s.HasResult() {
			s.ClearResult()
			cleared++
		}
		s.mu.Unlock()
	}

	if cleared > 0 {
		st.logger.WithField("sessions", cleared).Info("Sweep cleared expired result state")
	}
	return cleared
}

// Len returns the number of live sessions.
func (st *Store) Len() int {
	st.mu.RLock()
	defer st.mu.RUnlock()
	return len(st.sessions)
}

// StartSweeper runs Sweep on the given interval until the returned
// stop function is called.
func (st *Store) StartSweeper(interval time.Duration) func() {
	ticker := time.NewTicker(interval)
	done := make(chan struct{})

	go func() {
		for {
			select {
			case <-ticker.C:
				st.Sweep(time.Now())
			case <-done:
				return
			}
		}
	}()

	return func() {
		ticker.Stop()
		close(done)
	}
}
