package playstate

import (
	"sync"

	"github.com/charmbracelet/log"

	"github.com/zotley/sabcore/sab"
)

// Callback is a registered play-state listener.
type Callback func(State)

// Backend is the subset of the audio backend the play-state machine talks
// to: a one-shot configuration handoff plus best-effort transition
// notification. backend.AudioBackend satisfies this.
type Backend interface {
	Configure(Config)
	OnPlayState(State)
}

// Machine owns the current play state and drives every transition's side
// effects: backend handoff, state-vector reinitialization, and callback
// fan-out.
type Machine struct {
	mu       sync.Mutex
	current  State
	region   *sab.Region
	backend  Backend
	onChange []Callback
	log      *log.Logger
}

// NewMachine builds a play-state machine bound to one Region and one
// backend. log may be nil to suppress diagnostics.
func NewMachine(region *sab.Region, backend Backend, logger *log.Logger) *Machine {
	return &Machine{region: region, backend: backend, log: logger}
}

// Current returns the current state.
func (m *Machine) Current() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.current
}

// SetBackend rebinds the backend the machine notifies, used when the
// control host swaps backends between performances.
func (m *Machine) SetBackend(backend Backend) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.backend = backend
}

// AddPlayStateCallback appends a listener. A nil callback is logged and
// skipped, leaving the existing registrations untouched.
func (m *Machine) AddPlayStateCallback(cb Callback) {
	if cb == nil {
		if m.log != nil {
			m.log.Warn("ignoring nil play-state callback")
		}
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.onChange = append(m.onChange, cb)
}

// SetPlayStateCallback replaces every previously registered listener with
// a single one. A nil callback is logged and skipped.
func (m *Machine) SetPlayStateCallback(cb Callback) {
	if cb == nil {
		if m.log != nil {
			m.log.Warn("ignoring nil play-state callback")
		}
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.onChange = []Callback{cb}
}

// Transition moves to a new state, running its side effects —
// realtimePerformanceStarted hands the backend its configuration,
// realtimePerformanceEnded/renderEnded reinitialize the state vector —
// then forwards the transition to the backend (best-effort) and every
// registered callback. A per-callback recover isolates listeners: one
// panicking callback must not prevent the others running.
func (m *Machine) Transition(to State) {
	m.mu.Lock()
	m.current = to
	backend := m.backend
	callbacks := append([]Callback(nil), m.onChange...)
	m.mu.Unlock()

	switch to {
	case RealtimePerformanceStarted:
		if backend != nil {
			backend.Configure(PrepareRealtimePerformance(m.region.State))
		}
	case RealtimePerformanceEnded, RenderEnded:
		m.region.State.ResetToTemplate()
	}

	if backend != nil {
		m.safeNotifyBackend(backend, to)
	}
	for _, cb := range callbacks {
		m.safeInvoke(cb, to)
	}
}

func (m *Machine) safeNotifyBackend(backend Backend, to State) {
	defer func() {
		if r := recover(); r != nil && m.log != nil {
			m.log.Error("audio backend play-state notification failed", "state", to, "recover", r)
		}
	}()
	backend.OnPlayState(to)
}

func (m *Machine) safeInvoke(cb Callback, to State) {
	defer func() {
		if r := recover(); r != nil && m.log != nil {
			m.log.Error("play-state callback panicked", "state", to, "recover", r)
		}
	}()
	cb(to)
}
