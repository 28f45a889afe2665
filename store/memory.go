package store

import (
	"context"
	"sort"
	"sync"

	"github.com/soroban-labs/mastery"
)

// MemoryStates is an in-memory [StateStore]. It is safe for concurrent
// use and returns deep copies, so callers can never mutate stored
// values.
type MemoryStates struct {
	mu     sync.RWMutex
	states map[string]map[string]mastery.BeliefState
}

// NewMemoryStates creates an empty in-memory state store.
func NewMemoryStates() *MemoryStates {
	return &MemoryStates{states: make(map[string]map[string]mastery.BeliefState)}
}

var _ StateStore = (*MemoryStates)(nil)

func (m *MemoryStates) Get(ctx context.Context, playerID, skillID string) (mastery.BeliefState, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	state, ok := m.states[playerID][skillID]
	if !ok {
		return mastery.BeliefState{}, ErrNotFound
	}
	return state.Clone(), nil
}

func (m *MemoryStates) Update(ctx context.Context, playerID, skillID string, fn UpdateFunc) (mastery.BeliefState, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	current, ok := m.states[playerID][skillID]
	if ok {
		current = current.Clone()
	}

	next, err := fn(current, ok)
	if err != nil {
		return mastery.BeliefState{}, err
	}

	if m.states[playerID] == nil {
		m.states[playerID] = make(map[string]mastery.BeliefState)
	}
	m.states[playerID][skillID] = next.Clone()
	return next, nil
}

func (m *MemoryStates) Player(ctx context.Context, playerID string) (map[string]mastery.BeliefState, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make(map[string]mastery.BeliefState, len(m.states[playerID]))
	for skillID, state := range m.states[playerID] {
		out[skillID] = state.Clone()
	}
	return out, nil
}

// Close is a no-op for the in-memory store.
func (m *MemoryStates) Close() error { return nil }

// MemoryDeferrals is an in-memory [DeferralStore].
type MemoryDeferrals struct {
	mu        sync.RWMutex
	deferrals map[string]map[string]mastery.Deferral
}

// NewMemoryDeferrals creates an empty in-memory deferral store.
func NewMemoryDeferrals() *MemoryDeferrals {
	return &MemoryDeferrals{deferrals: make(map[string]map[string]mastery.Deferral)}
}

var _ DeferralStore = (*MemoryDeferrals)(nil)

func (m *MemoryDeferrals) Upsert(ctx context.Context, d mastery.Deferral) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.deferrals[d.PlayerID] == nil {
		m.deferrals[d.PlayerID] = make(map[string]mastery.Deferral)
	}
	m.deferrals[d.PlayerID][d.SkillID] = d
	return nil
}

func (m *MemoryDeferrals) Get(ctx context.Context, playerID, skillID string) (mastery.Deferral, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	d, ok := m.deferrals[playerID][skillID]
	if !ok {
		return mastery.Deferral{}, ErrNotFound
	}
	return d, nil
}

func (m *MemoryDeferrals) Delete(ctx context.Context, playerID, skillID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.deferrals[playerID], skillID)
	return nil
}

func (m *MemoryDeferrals) Player(ctx context.Context, playerID string) ([]mastery.Deferral, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]mastery.Deferral, 0, len(m.deferrals[playerID]))
	for _, d := range m.deferrals[playerID] {
		out = append(out, d)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].SkillID < out[j].SkillID })
	return out, nil
}

// Close is a no-op for the in-memory store.
func (m *MemoryDeferrals) Close() error { return nil }
