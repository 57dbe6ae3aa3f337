package state

import (
	"sync"
	"time"

	"mallbot/core/logger"
	tghelpers "mallbot/core/telegram/helpers"
	"log/slog"

	tele "gopkg.in/telebot.v4"
)

type memoryManager struct {
	mu       sync.RWMutex
	sessions map[int64]Session
	now      func() time.Time
}

// NewMemoryManager constructs an in-memory Manager implementation.
func NewMemoryManager() Manager {
	return &memoryManager{
		sessions: make(map[int64]Session),
		now:      time.Now,
	}
}

// Get returns a copy of the session for a user if it exists.
func (m *memoryManager) Get(userID int64) (Session, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	session, ok := m.sessions[userID]
	if !ok {
		return Session{}, false
	}
	session.Data = cloneData(session.Data)
	return session, true
}

// Apply merges a partial update into the user's session, creating it if needed.
func (m *memoryManager) Apply(userID int64, upd Update) Session {
	m.mu.Lock()
	defer m.mu.Unlock()

	next := merged(m.sessions[userID], upd, m.now())
	m.sessions[userID] = next
	next.Data = cloneData(next.Data)
	return next
}

// Clear removes the entire session for a user.
func (m *memoryManager) Clear(userID int64) {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.sessions, userID)
}

// Sweep deletes every session whose last activity is older than maxIdle.
// It is safe to call concurrently with normal access.
func (m *memoryManager) Sweep(maxIdle time.Duration) int {
	cutoff := m.now().Add(-maxIdle)

	m.mu.Lock()
	defer m.mu.Unlock()

	removed := 0
	for userID, session := range m.sessions {
		if session.LastActivity.Before(cutoff) {
			delete(m.sessions, userID)
			removed++
		}
	}
	return removed
}

// GetState returns the current FSM state of a user, or StateIdle if none exists.
func (m *memoryManager) GetState(userID int64) State {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if session, ok := m.sessions[userID]; ok {
		return session.State
	}
	return StateIdle
}

// StateOf returns the state as a plain string for middleware guards.
func (m *memoryManager) StateOf(userID int64) string {
	return string(m.GetState(userID))
}

// InProgress reports whether the user currently has an active FSM state.
func (m *memoryManager) InProgress(userID int64) bool {
	return m.GetState(userID) != StateIdle
}

// ManagerHandler executes the handler function registered for the user's current state, if any.
func (m *memoryManager) ManagerHandler(c tele.Context) error {
	return dispatch(m, c)
}

func dispatch(m Manager, c tele.Context) error {
	userID := c.Sender().ID
	current := m.GetState(userID)
	ctx := tghelpers.BuildContext(c)
	logger.Debug(ctx, "tg", "fsm.manager",
		slog.String("status", "ok"),
		slog.Int64("user_id", userID),
		slog.String("state", string(current)),
	)

	if handler, ok := fsmHandlers[current]; ok {
		return handler(c)
	}
	return nil
}
