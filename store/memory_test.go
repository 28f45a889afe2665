package store

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/soroban-labs/mastery"
)

var t0 = time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

// practicedState builds a belief state with a few attempts applied.
func practicedState(t *testing.T, skillID string, attempts int) mastery.BeliefState {
	t.Helper()

	u, err := mastery.NewUpdater(mastery.Params{})
	require.NoError(t, err)

	state := u.NewState(skillID)
	for i := 0; i < attempts; i++ {
		state, err = u.ApplyAttempt(state, mastery.Attempt{
			SkillID:   skillID,
			SessionID: "session-1",
			Correct:   i%2 == 0,
			At:        t0.Add(time.Duration(i) * time.Minute),
		})
		require.NoError(t, err)
	}
	return state
}

func putState(t *testing.T, s StateStore, playerID string, state mastery.BeliefState) {
	t.Helper()

	_, err := s.Update(context.Background(), playerID, state.SkillID,
		func(_ mastery.BeliefState, _ bool) (mastery.BeliefState, error) {
			return state, nil
		})
	require.NoError(t, err)
}

// --- MemoryStates ---

func TestMemoryStatesGetNotFound(t *testing.T) {
	m := NewMemoryStates()
	_, err := m.Get(context.Background(), "p1", "add-1d")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMemoryStatesUpdateCreates(t *testing.T) {
	m := NewMemoryStates()
	want := practicedState(t, "add-1d", 3)

	got, err := m.Update(context.Background(), "p1", "add-1d",
		func(state mastery.BeliefState, ok bool) (mastery.BeliefState, error) {
			assert.False(t, ok, "first update should see no existing state")
			return want, nil
		})
	require.NoError(t, err)
	assert.Equal(t, want.PKnown, got.PKnown)

	stored, err := m.Get(context.Background(), "p1", "add-1d")
	require.NoError(t, err)
	assert.Equal(t, want.PKnown, stored.PKnown)
	assert.Equal(t, want.Opportunities, stored.Opportunities)
	assert.Equal(t, want.WindowLen(), stored.WindowLen())
}

func TestMemoryStatesUpdateSeesExisting(t *testing.T) {
	m := NewMemoryStates()
	putState(t, m, "p1", practicedState(t, "add-1d", 3))

	_, err := m.Update(context.Background(), "p1", "add-1d",
		func(state mastery.BeliefState, ok bool) (mastery.BeliefState, error) {
			assert.True(t, ok)
			assert.Equal(t, 3, state.Opportunities)
			return state, nil
		})
	require.NoError(t, err)
}

func TestMemoryStatesUpdateErrorAborts(t *testing.T) {
	m := NewMemoryStates()
	putState(t, m, "p1", practicedState(t, "add-1d", 3))

	boom := errors.New("boom")
	_, err := m.Update(context.Background(), "p1", "add-1d",
		func(state mastery.BeliefState, ok bool) (mastery.BeliefState, error) {
			return mastery.BeliefState{}, boom
		})
	assert.ErrorIs(t, err, boom)

	// The stored state must be untouched.
	stored, err := m.Get(context.Background(), "p1", "add-1d")
	require.NoError(t, err)
	assert.Equal(t, 3, stored.Opportunities)
}

func TestMemoryStatesPlayerSnapshot(t *testing.T) {
	m := NewMemoryStates()
	putState(t, m, "p1", practicedState(t, "add-1d", 2))
	putState(t, m, "p1", practicedState(t, "sub-1d", 4))
	putState(t, m, "p2", practicedState(t, "add-1d", 1))

	got, err := m.Player(context.Background(), "p1")
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, 2, got["add-1d"].Opportunities)
	assert.Equal(t, 4, got["sub-1d"].Opportunities)
}

func TestMemoryStatesPlayerUnknown(t *testing.T) {
	m := NewMemoryStates()
	got, err := m.Player(context.Background(), "nobody")
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestMemoryStatesIsolation(t *testing.T) {
	// Mutating a returned state must not affect the stored copy.
	m := NewMemoryStates()
	putState(t, m, "p1", practicedState(t, "add-1d", 3))

	u, err := mastery.NewUpdater(mastery.Params{})
	require.NoError(t, err)

	got, err := m.Get(context.Background(), "p1", "add-1d")
	require.NoError(t, err)
	_, err = u.ApplyAttempt(got, mastery.Attempt{SkillID: "add-1d", Correct: true, At: t0})
	require.NoError(t, err)

	stored, err := m.Get(context.Background(), "p1", "add-1d")
	require.NoError(t, err)
	assert.Equal(t, 3, stored.Opportunities)
}

// --- MemoryDeferrals ---

func TestMemoryDeferralsRoundTrip(t *testing.T) {
	m := NewMemoryDeferrals()

	d, err := mastery.NewDeferral("p1", "add-2d", t0, 0)
	require.NoError(t, err)
	require.NoError(t, m.Upsert(context.Background(), d))

	got, err := m.Get(context.Background(), "p1", "add-2d")
	require.NoError(t, err)
	assert.Equal(t, d, got)
}

func TestMemoryDeferralsGetNotFound(t *testing.T) {
	m := NewMemoryDeferrals()
	_, err := m.Get(context.Background(), "p1", "add-2d")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMemoryDeferralsUpsertReplaces(t *testing.T) {
	m := NewMemoryDeferrals()

	first, err := mastery.NewDeferral("p1", "add-2d", t0, 0)
	require.NoError(t, err)
	require.NoError(t, m.Upsert(context.Background(), first))

	second, err := mastery.NewDeferral("p1", "add-2d", t0.Add(48*time.Hour), 0)
	require.NoError(t, err)
	require.NoError(t, m.Upsert(context.Background(), second))

	got, err := m.Get(context.Background(), "p1", "add-2d")
	require.NoError(t, err)
	assert.Equal(t, second.ExpiresAt, got.ExpiresAt)

	all, err := m.Player(context.Background(), "p1")
	require.NoError(t, err)
	assert.Len(t, all, 1)
}

func TestMemoryDeferralsDelete(t *testing.T) {
	m := NewMemoryDeferrals()

	d, err := mastery.NewDeferral("p1", "add-2d", t0, 0)
	require.NoError(t, err)
	require.NoError(t, m.Upsert(context.Background(), d))

	require.NoError(t, m.Delete(context.Background(), "p1", "add-2d"))
	_, err = m.Get(context.Background(), "p1", "add-2d")
	assert.ErrorIs(t, err, ErrNotFound)

	// Deleting again is a no-op.
	assert.NoError(t, m.Delete(context.Background(), "p1", "add-2d"))
}

func TestMemoryDeferralsPlayerSorted(t *testing.T) {
	m := NewMemoryDeferrals()

	for _, skill := range []string{"sub-1d", "add-1d", "mul-1d"} {
		d, err := mastery.NewDeferral("p1", skill, t0, 0)
		require.NoError(t, err)
		require.NoError(t, m.Upsert(context.Background(), d))
	}

	got, err := m.Player(context.Background(), "p1")
	require.NoError(t, err)
	require.Len(t, got, 3)
	assert.Equal(t, "add-1d", got[0].SkillID)
	assert.Equal(t, "mul-1d", got[1].SkillID)
	assert.Equal(t, "sub-1d", got[2].SkillID)
}
