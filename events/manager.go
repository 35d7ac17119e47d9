package events

import (
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
)

// ============================================================================
// EVENT MANAGER
// ============================================================================

// Handler consumes events. Handlers run on a dedicated goroutine per
// subscriber; a slow handler never stalls the orchestrator, it only grows
// (and eventually overflows) its own queue.
type Handler func(Event)

const defaultQueueSize = 256

type subscriber struct {
	ch      chan Event
	dropped atomic.Uint64
}

// Manager fans events out to subscribers while preserving per-subscriber
// emission order. Emit never blocks: when a subscriber queue is full the
// event is dropped for that subscriber and counted.
type Manager struct {
	runID    string
	sequence atomic.Uint64

	mu   sync.RWMutex
	subs []*subscriber
	wg   sync.WaitGroup

	closed atomic.Bool
}

// NewManager creates an event manager with a fresh run identifier.
func NewManager() *Manager {
	return &Manager{runID: uuid.NewString()}
}

// RunID returns the identifier stamped on every event from this manager.
func (m *Manager) RunID() string {
	return m.runID
}

// Subscribe registers a handler and returns an unsubscribe function.
func (m *Manager) Subscribe(handler Handler) func() {
	sub := &subscriber{ch: make(chan Event, defaultQueueSize)}

	m.mu.Lock()
	m.subs = append(m.subs, sub)
	m.mu.Unlock()

	m.wg.Add(1)
	go func() {
		defer m.wg.Done()
		for ev := range sub.ch {
			handler(ev)
		}
	}()

	var once sync.Once
	return func() {
		once.Do(func() {
			m.mu.Lock()
			for i, s := range m.subs {
				if s == sub {
					m.subs = append(m.subs[:i], m.subs[i+1:]...)
					break
				}
			}
			m.mu.Unlock()
			close(sub.ch)
		})
	}
}

// Emit stamps the event with time, sequence, and run ID, then dispatches it.
func (m *Manager) Emit(ev Event) {
	if m.closed.Load() {
		return
	}
	ev.Time = time.Now().UTC()
	ev.Sequence = m.sequence.Add(1)
	ev.RunID = m.runID

	m.mu.RLock()
	subs := m.subs
	m.mu.RUnlock()

	for _, sub := range subs {
		select {
		case sub.ch <- ev:
		default:
			if sub.dropped.Add(1) == 1 {
				slog.Warn("Event subscriber queue full, dropping events",
					"run_id", m.runID, "type", ev.Type)
			}
		}
	}
}

// Close stops dispatch and waits for in-flight handler queues to drain.
func (m *Manager) Close() {
	if !m.closed.CompareAndSwap(false, true) {
		return
	}
	m.mu.Lock()
	subs := m.subs
	m.subs = nil
	m.mu.Unlock()
	for _, sub := range subs {
		close(sub.ch)
	}
	m.wg.Wait()
}
