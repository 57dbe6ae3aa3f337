package state

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestApplyCreatesSession(t *testing.T) {
	m := NewMemoryManager()

	_, ok := m.Get(1)
	require.False(t, ok)

	sess := m.Apply(1, To("collecting", map[string]string{"name": "Alice"}))
	assert.Equal(t, State("collecting"), sess.State)
	assert.Equal(t, "Alice", sess.Value("name"))
	assert.False(t, sess.LastActivity.IsZero())

	got, ok := m.Get(1)
	require.True(t, ok)
	assert.Equal(t, sess.State, got.State)
}

func TestApplyMergesDataKeyWise(t *testing.T) {
	m := NewMemoryManager()

	m.Apply(1, To("step_one", map[string]string{"a": "1", "b": "2"}))
	m.Apply(1, Merge(map[string]string{"b": "changed", "c": "3"}))

	got, ok := m.Get(1)
	require.True(t, ok)
	assert.Equal(t, "1", got.Value("a"), "unspecified keys persist")
	assert.Equal(t, "changed", got.Value("b"), "new keys overwrite same-named old keys")
	assert.Equal(t, "3", got.Value("c"))
}

func TestMergeWithoutStatePreservesState(t *testing.T) {
	m := NewMemoryManager()

	m.Apply(7, To("confirming", nil))
	m.Apply(7, Merge(map[string]string{"payment_method": "kpay"}))

	assert.Equal(t, State("confirming"), m.GetState(7))
	got, _ := m.Get(7)
	assert.Equal(t, "kpay", got.Value("payment_method"))
}

func TestClearIsIdempotent(t *testing.T) {
	m := NewMemoryManager()

	m.Apply(1, To("x", nil))
	m.Clear(1)
	m.Clear(1)

	_, ok := m.Get(1)
	assert.False(t, ok)
	assert.Equal(t, StateIdle, m.GetState(1))
	assert.False(t, m.InProgress(1))
}

func TestSweepRemovesOnlyIdleSessions(t *testing.T) {
	now := time.Now()
	mm := &memoryManager{sessions: make(map[int64]Session), now: func() time.Time { return now }}

	mm.Apply(1, To("old", nil))
	mm.Apply(2, To("older", nil))

	// Age the first two sessions, then write a fresh one.
	mm.now = func() time.Time { return now.Add(45 * time.Minute) }
	mm.Apply(3, To("fresh", nil))

	removed := mm.Sweep(30 * time.Minute)
	assert.Equal(t, 2, removed)

	_, ok := mm.Get(1)
	assert.False(t, ok)
	_, ok = mm.Get(2)
	assert.False(t, ok)
	_, ok = mm.Get(3)
	assert.True(t, ok, "sessions younger than the threshold are untouched")
}

func TestSweepZeroThresholdRemovesAllPast(t *testing.T) {
	now := time.Now()
	mm := &memoryManager{sessions: make(map[int64]Session), now: func() time.Time { return now }}

	mm.Apply(1, To("x", nil))
	mm.now = func() time.Time { return now.Add(time.Second) }

	assert.Equal(t, 1, mm.Sweep(0))
}

func TestGetReturnsCopy(t *testing.T) {
	m := NewMemoryManager()
	m.Apply(1, To("s", map[string]string{"k": "v"}))

	got, _ := m.Get(1)
	got.Data["k"] = "mutated"

	again, _ := m.Get(1)
	assert.Equal(t, "v", again.Value("k"))
}

func TestStateOf(t *testing.T) {
	m := NewMemoryManager()
	assert.Equal(t, "idle", m.StateOf(5))
	m.Apply(5, To("busy", nil))
	assert.Equal(t, "busy", m.StateOf(5))
	assert.True(t, m.InProgress(5))
}
