// Package backend implements the audio-device side of the shared-memory
// region: the realtime-priority, wall-clock-driven collaborator that
// drains out_ring, fills in_ring, and rings the worker's doorbell. It
// owns nothing about play state beyond what it's told.
package backend

import (
	"encoding/binary"
	"math"

	"github.com/zotley/sabcore/playstate"
	"github.com/zotley/sabcore/sab"
)

// AudioBackend is what playstate.Machine needs from a backend (every
// transition is forwarded to it, best-effort) plus the lifecycle
// operations the control host drives directly.
type AudioBackend interface {
	playstate.Backend

	// Attach binds the backend to the shared region and the doorbell the
	// synthesis worker waits on. Called once by the control host at
	// initialize time, before any Configure; the binding holds for every
	// performance of that host.
	//
	// The doorbell is what lets the backend drive the worker's
	// steady-state wake cycle during normal realtime playback — a
	// backend that updates AvailOutBufs/AvailInBufs without calling
	// Notify() leaves the worker blocked on its doorbell forever.
	Attach(region *sab.Region, doorbell *sab.Doorbell)

	Start() error
	Stop()
	Close()
}

// float32SliceBytes packs interleaved float32 samples into the little
// endian byte layout oto and malgo both expect.
func float32SliceBytes(samples []float32) []byte {
	out := make([]byte, len(samples)*4)
	for i, s := range samples {
		binary.LittleEndian.PutUint32(out[i*4:], math.Float32bits(s))
	}
	return out
}
