package state

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
)

// ============================================================================
// STATE STORE
// ============================================================================

// Store persists agent state. Load returns (nil, nil) for an unknown agent.
// Both operations are atomic with respect to a single agent id; serializing
// step execution per agent is the caller's responsibility.
type Store interface {
	Load(ctx context.Context, agentID string) (*AgentState, error)
	Save(ctx context.Context, agentID string, st *AgentState) error
}

// MemoryStore is the in-process store. States are stored as JSON snapshots
// so callers never share mutable memory with the store.
type MemoryStore struct {
	mu     sync.RWMutex
	states map[string][]byte
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{states: make(map[string][]byte)}
}

// Load returns a private copy of the stored state.
func (m *MemoryStore) Load(_ context.Context, agentID string) (*AgentState, error) {
	m.mu.RLock()
	raw, ok := m.states[agentID]
	m.mu.RUnlock()
	if !ok {
		return nil, nil
	}

	var st AgentState
	if err := json.Unmarshal(raw, &st); err != nil {
		return nil, fmt.Errorf("failed to decode state for agent %q: %w", agentID, err)
	}
	return &st, nil
}

// Save snapshots the state.
func (m *MemoryStore) Save(_ context.Context, agentID string, st *AgentState) error {
	if agentID == "" {
		return fmt.Errorf("agent id is required")
	}
	if st == nil {
		return fmt.Errorf("state is required")
	}

	raw, err := json.Marshal(st)
	if err != nil {
		return fmt.Errorf("failed to encode state for agent %q: %w", agentID, err)
	}

	m.mu.Lock()
	m.states[agentID] = raw
	m.mu.Unlock()
	return nil
}

// Delete removes an agent's state. Unknown agents are a no-op.
func (m *MemoryStore) Delete(_ context.Context, agentID string) error {
	m.mu.Lock()
	delete(m.states, agentID)
	m.mu.Unlock()
	return nil
}
