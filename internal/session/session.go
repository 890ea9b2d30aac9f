package session

import (
	"sync"
	"time"

	"github.com/databot/databot-backend/internal/models"
)

const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Turn is one utterance in a conversation.
type Turn struct {
	Role      string
	Text      string
	Timestamp time.Time
}

// Session holds the conversational state for one (user, channel) pair:
// the turn history plus the result state of the most recent data fetch.
//
// The result state is a unit: LastResult, LastQueryText, LastSummary and
// LastUserQuestion are always set or cleared together. History is
// append-only for the session's life; only a bounded recent window is
// ever read.
type Session struct {
	UserID    string
	ChannelID string

	// mu serializes message processing for this session. The
	// orchestrator holds it for the full pipeline of one message;
	// the expiry sweep only takes it opportunistically.
	mu sync.Mutex

	history          []Turn
	lastResult       *models.ResultSet
	lastQueryText    string
	lastSummary      string
	lastUserQuestion string

	createdAt      time.Time
	lastActivityAt time.Time
}

// Lock acquires the session's processing lock.
func (s *Session) Lock() {
	s.mu.Lock()
}

// Unlock releases the session's processing lock.
func (s *Session) Unlock() {
	s.mu.Unlock()
}

// Touch records inbound activity. Caller must hold the session lock.
func (s *Session) Touch() {
	s.lastActivityAt = time.Now()
}

// AppendTurn appends one turn to the history. Caller must hold the
// session lock.
func (s *Session) AppendTurn(role, text string) {
	s.history = append(s.history, Turn{
		Role:      role,
		Text:      text,
		Timestamp: time.Now(),
	})
}

// SaveResult replaces the whole result state with the outcome of a new
// or refined query. Caller must hold the session lock.
func (s *Session) SaveResult(rs *models.ResultSet, queryText, summary, userQuestion string) {
	s.lastResult = rs
	s.lastQueryText = queryText
	s.lastSummary = summary
	s.lastUserQuestion = userQuestion
}

// ClearResult drops the whole result state, leaving history untouched.
// Caller must hold the session lock.
func (s *Session) ClearResult() {
	s.lastResult = nil
	s.lastQueryText = ""
	s.lastSummary = ""
	s.lastUserQuestion = ""
}

// HasResult reports whether a result set is held. Caller must hold the
// session lock.
func (s *Session) HasResult() bool {
	return s.lastResult != nil
}

// ResultState returns the four result-state fields as one unit. Caller
// must hold the session lock.
func (s *Session) ResultState() (rs *models.ResultSet, queryText, summary, userQuestion string) {
	return s.lastResult, s.lastQueryText, s.lastSummary, s.lastUserQuestion
}

// RecentHistory returns a copy of the most recent n turns, oldest
// first. Caller must hold the session lock.
func (s *Session) RecentHistory(n int) []Turn {
	start := len(s.history) - n
	if start < 0 {
		start = 0
	}
	out := make([]Turn, len(s.history)-start)
	copy(out, s.history[start:])
	return out
}

// HistoryLen returns the total number of turns. Caller must hold the
// session lock.
func (s *Session) HistoryLen() int {
	return len(s.history)
}

// LastActivity returns the time of the last inbound message. Caller
// must hold the session lock.
func (s *Session) LastActivity() time.Time {
	return s.lastActivityAt
}

func (s *Session) expired(timeout time.Duration, now time.Time) bool {
	return now.Sub(s.lastActivityAt) > timeout
}
