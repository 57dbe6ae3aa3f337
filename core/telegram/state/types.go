package state

import (
	"time"

	tele "gopkg.in/telebot.v4"
)

// State identifies a finite-state-machine step used in conversations.
type State string

const (
	// StateIdle indicates there is no active conversation with the user.
	StateIdle State = "idle"
)

// Session stores conversation state and collected fields for a user.
// Data accumulates across steps; LastActivity is refreshed on every write.
type Session struct {
	State        State             `json:"state"`
	Data         map[string]string `json:"data"`
	LastActivity time.Time         `json:"last_activity"`
}

// Value returns the data field for key, or empty string when absent.
func (s Session) Value(key string) string {
	if s.Data == nil {
		return ""
	}
	return s.Data[key]
}

// Update describes a partial session mutation. A nil State preserves the
// current state; Data entries are merged key-wise into the existing data,
// never replacing it wholesale.
type Update struct {
	State *State
	Data  map[string]string
}

// To builds an Update that moves to the given state and merges data.
func To(st State, data map[string]string) Update {
	return Update{State: &st, Data: data}
}

// Merge builds an Update that merges data without changing state.
func Merge(data map[string]string) Update {
	return Update{Data: data}
}

// Manager orchestrates user sessions and FSM state transitions.
type Manager interface {
	// Get returns a copy of the session for a user and whether it exists.
	Get(userID int64) (Session, bool)
	// Apply merges a partial update into the user's session, creating it if
	// necessary, and refreshes LastActivity. The updated copy is returned.
	Apply(userID int64, upd Update) Session
	// Clear removes the session for a user. Clearing an absent session is a no-op.
	Clear(userID int64)
	// Sweep deletes sessions idle longer than maxIdle and reports how many.
	Sweep(maxIdle time.Duration) int

	// GetState returns the current FSM state of a user, or StateIdle if none exists.
	GetState(userID int64) State
	// StateOf returns the state as a plain string for middleware guards.
	StateOf(userID int64) string
	// InProgress reports whether the user currently has an active FSM state.
	InProgress(userID int64) bool
	// ManagerHandler dispatches the update to the handler registered for the
	// user's current state, if any. Unregistered states are ignored.
	ManagerHandler(c tele.Context) error
}

func cloneData(data map[string]string) map[string]string {
	out := make(map[string]string, len(data))
	for k, v := range data {
		out[k] = v
	}
	return out
}

func merged(base Session, upd Update, now time.Time) Session {
	next := Session{
		State:        base.State,
		Data:         cloneData(base.Data),
		LastActivity: now,
	}
	if next.State == "" {
		next.State = StateIdle
	}
	if upd.State != nil {
		next.State = *upd.State
	}
	for k, v := range upd.Data {
		next.Data[k] = v
	}
	return next
}
