package state

import (
	"context"
	"encoding/json"
	"errors"
	"strconv"
	"time"

	"mallbot/core/logger"
	"log/slog"

	"github.com/redis/go-redis/v9"
	tele "gopkg.in/telebot.v4"
)

const redisKeyPrefix = "fsm:session:"

// redisManager keeps sessions in Redis so they survive process restarts.
// Every write refreshes the key TTL, which replaces the explicit sweep.
// Read-modify-write is not transactional; the bot relies on Telegram
// delivering updates for one user serially.
type redisManager struct {
	rdb *redis.Client
	ttl time.Duration
	now func() time.Time
}

// NewRedisManager constructs a Redis-backed Manager. The ttl bounds session
// idle lifetime; it must be positive.
func NewRedisManager(rdb *redis.Client, ttl time.Duration) Manager {
	if ttl <= 0 {
		ttl = 30 * time.Minute
	}
	return &redisManager{rdb: rdb, ttl: ttl, now: time.Now}
}

func redisKey(userID int64) string {
	return redisKeyPrefix + strconv.FormatInt(userID, 10)
}

func (m *redisManager) load(userID int64) (Session, bool) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	raw, err := m.rdb.Get(ctx, redisKey(userID)).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			logger.Warn(ctx, "tg.state", "session.load.fail",
				slog.Int64("user_id", userID),
				slog.String("err", err.Error()),
			)
		}
		return Session{}, false
	}

	var session Session
	if err := json.Unmarshal(raw, &session); err != nil {
		logger.Warn(ctx, "tg.state", "session.decode.fail",
			slog.Int64("user_id", userID),
			slog.String("err", err.Error()),
		)
		return Session{}, false
	}
	return session, true
}

func (m *redisManager) store(userID int64, session Session) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	raw, err := json.Marshal(session)
	if err != nil {
		logger.Warn(ctx, "tg.state", "session.encode.fail",
			slog.Int64("user_id", userID),
			slog.String("err", err.Error()),
		)
		return
	}
	if err := m.rdb.Set(ctx, redisKey(userID), raw, m.ttl).Err(); err != nil {
		logger.Warn(ctx, "tg.state", "session.store.fail",
			slog.Int64("user_id", userID),
			slog.String("err", err.Error()),
		)
	}
}

// Get returns the session for a user if it exists.
func (m *redisManager) Get(userID int64) (Session, bool) {
	return m.load(userID)
}

// Apply merges a partial update into the user's session, creating it if needed.
func (m *redisManager) Apply(userID int64, upd Update) Session {
	base, _ := m.load(userID)
	next := merged(base, upd, m.now())
	m.store(userID, next)
	return next
}

// Clear removes the session for a user.
func (m *redisManager) Clear(userID int64) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	if err := m.rdb.Del(ctx, redisKey(userID)).Err(); err != nil {
		logger.Warn(ctx, "tg.state", "session.clear.fail",
			slog.Int64("user_id", userID),
			slog.String("err", err.Error()),
		)
	}
}

// Sweep is a no-op for the Redis backend; key TTL handles idle expiry.
func (m *redisManager) Sweep(time.Duration) int {
	return 0
}

// GetState returns the current FSM state of a user, or StateIdle if none exists.
func (m *redisManager) GetState(userID int64) State {
	if session, ok := m.load(userID); ok {
		return session.State
	}
	return StateIdle
}

// StateOf returns the state as a plain string for middleware guards.
func (m *redisManager) StateOf(userID int64) string {
	return string(m.GetState(userID))
}

// InProgress reports whether the user currently has an active FSM state.
func (m *redisManager) InProgress(userID int64) bool {
	return m.GetState(userID) != StateIdle
}

// ManagerHandler executes the handler function registered for the user's current state, if any.
func (m *redisManager) ManagerHandler(c tele.Context) error {
	return dispatch(m, c)
}
