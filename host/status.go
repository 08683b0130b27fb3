package host

import (
	"sync"

	"github.com/zotley/sabcore/playstate"
)

// StatusSnapshot is a point-in-time copy of the fields worth exposing to
// a caller without racing the live performance: current play state,
// channel counts, sample rate, buffer sizes, and ring fill levels.
type StatusSnapshot struct {
	PlayState    playstate.State
	Nchnls       int32
	NchnlsIn     int32
	SampleRate   int32
	HWBufferSize int32
	SWBufferSize int32
	AvailInBufs  int32
	AvailOutBufs int32
}

type statusStore struct {
	mu       sync.RWMutex
	snapshot StatusSnapshot
}

func (s *statusStore) set(snap StatusSnapshot) {
	s.mu.Lock()
	s.snapshot = snap
	s.mu.Unlock()
}

func (s *statusStore) get() StatusSnapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snapshot
}
