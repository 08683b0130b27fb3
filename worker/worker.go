// Package worker implements the synthesis render loop: the dedicated
// goroutine that waits on the doorbell, drains MIDI, drains the callback
// RPC, and copies ksmps-sized blocks between the engine's own spin/spout
// buffers and the shared audio rings.
package worker

import (
	"math"
	"runtime"
	"strings"

	"github.com/charmbracelet/log"

	"github.com/zotley/sabcore/engine"
	"github.com/zotley/sabcore/playstate"
	"github.com/zotley/sabcore/rpc"
	"github.com/zotley/sabcore/sab"
)

// Worker drives one performance's render loop against one Region, one
// Engine and one play-state Machine.
type Worker struct {
	region     *sab.Region
	engine     engine.Engine
	dispatcher *rpc.Dispatcher
	machine    *playstate.Machine
	doorbell   *sab.Doorbell
	pauseBell  *sab.Doorbell
	log        *log.Logger

	performanceEnded bool
	lastReturn       int32

	ksmps    int32
	nchnls   int32
	nchnlsIn int32
	zerodBFS float64
}

// New wires a Worker. doorbell must be bound to sab.AtomicNotify,
// pauseBell to sab.IsPaused — the loop's two suspension points.
func New(region *sab.Region, eng engine.Engine, dispatcher *rpc.Dispatcher, machine *playstate.Machine, doorbell, pauseBell *sab.Doorbell, logger *log.Logger) *Worker {
	return &Worker{
		region:     region,
		engine:     eng,
		dispatcher: dispatcher,
		machine:    machine,
		doorbell:   doorbell,
		pauseBell:  pauseBell,
		log:        logger,
	}
}

// Setup performs the worker-side start handshake: reinitialize the state
// vector, query the engine's fixed parameters, publish them, and
// broadcast realtimePerformanceStarted. Setup assumes the engine was
// already created by host.Initialize — one engine instance per Host,
// created at initialize time, not per start.
func (w *Worker) Setup() error {
	state := w.region.State
	state.ResetToTemplate()
	w.performanceEnded = false
	w.lastReturn = 0

	// A notify left over from the previous performance's teardown (a
	// backend callback still firing, a stop notify the exit path never
	// consumed) must not fire this performance's first wake.
	w.doorbell.Drain()
	w.pauseBell.Drain()

	w.nchnls = w.engine.Nchnls()
	w.nchnlsIn = 0
	if strings.Contains(w.engine.InputName(), "adc") {
		w.nchnlsIn = w.engine.NchnlsIn()
	}
	w.ksmps = w.engine.Ksmps()
	w.zerodBFS = w.engine.ZerodBFS()

	state.Store(sab.Nchnls, w.nchnls)
	state.Store(sab.NchnlsIn, w.nchnlsIn)
	state.Store(sab.SampleRate, w.engine.SampleRate())
	if w.engine.IsRequestingRTMIDI() {
		state.Store(sab.IsRequestingRTMIDI, 1)
	} else {
		state.Store(sab.IsRequestingRTMIDI, 0)
	}

	state.Store(sab.IsPerforming, 1)
	w.machine.Transition(playstate.RealtimePerformanceStarted)
	return nil
}

// Run executes the steady-state loop until stop is requested or the
// engine signals end-of-performance. It blocks the calling goroutine —
// callers hand it a dedicated one, which Run locks to its OS thread for
// the life of the loop.
func (w *Worker) Run() {
	runtime.LockOSThread()
	defer runtime.UnlockOSThread()
	state := w.region.State
	for {
		w.doorbell.Wait()

		if state.Load(sab.Stop) == 1 || state.Load(sab.IsPerforming) != 1 || w.performanceEnded {
			w.drainToEnd()
			return
		}

		if state.Load(sab.IsPaused) == 1 {
			w.pauseBell.Wait()
			w.pauseBell.Rearm()
		}

		w.drainMIDI()
		w.dispatcher.Drain()
		w.copyFrames()

		w.doorbell.Rearm()
	}
}

// drainToEnd gives the engine its final stop plus one more perform_block
// so any trailing log lines flush, then broadcasts
// realtimePerformanceEnded.
func (w *Worker) drainToEnd() {
	state := w.region.State
	if !w.performanceEnded {
		w.engine.Stop()
		w.engine.PerformBlock()
		w.performanceEnded = true
	}
	state.Store(sab.IsPerforming, 0)
	w.machine.Transition(playstate.RealtimePerformanceEnded)
}

// drainMIDI pushes every queued MIDI event to the engine, in submission
// order, then advances the consume cursor and the pending count.
// RTMIDIIndex is kept in event-slot units: sab.MidiRing owns word-level
// addressing internally via its own producer cursor, so the shared cursor
// only tracks how many events the worker has consumed, and event units
// feed MidiRing.Read directly with no division at the call site.
func (w *Worker) drainMIDI() {
	if !w.engine.IsRequestingRTMIDI() {
		return
	}
	state := w.region.State
	n := state.Load(sab.AvailRTMIDIEvents)
	if n <= 0 {
		return
	}
	idx := state.Load(sab.RTMIDIIndex)
	for i := int32(0); i < n; i++ {
		slot := (idx + i) % (sab.MidiBufferSize / sab.MidiBufferPayloadSize)
		ev := w.region.Midi.Read(int(slot))
		w.engine.PushMIDI(ev.Status, ev.Data1, ev.Data2)
	}
	state.Store(sab.RTMIDIIndex, (idx+n)%(sab.MidiBufferSize/sab.MidiBufferPayloadSize))
	state.Add(sab.AvailRTMIDIEvents, -n)
}

// copyFrames moves one software block between the engine's spin/spout and
// the shared rings: ring samples are normalized ±1, engine samples are
// ±0dBFS, and perform_block runs each time the output cursor crosses a
// ksmps boundary.
func (w *Worker) copyFrames() {
	state := w.region.State
	hwBufSize := state.Load(sab.HWBufferSize)
	swBufSize := state.Load(sab.SWBufferSize)
	if hwBufSize == 0 || swBufSize == 0 || w.ksmps == 0 {
		return
	}

	availIn := state.Load(sab.AvailInBufs)
	hasInput := availIn >= swBufSize

	inputReadIndex := state.Load(sab.InputReadIndex)
	outputWriteIndex := state.Load(sab.OutputWriteIndex)

	spin := w.engine.Spin()
	spout := w.engine.Spout()

	for i := int32(0); i < swBufSize; i++ {
		ci := (inputReadIndex + i) % hwBufSize
		co := (outputWriteIndex + i) % hwBufSize
		pi := ci % w.ksmps
		po := co % w.ksmps

		if po == 0 && !w.performanceEnded {
			if w.lastReturn == 0 {
				w.lastReturn = w.engine.PerformBlock()
			} else {
				w.performanceEnded = true
			}
		}

		for k := int32(0); k < w.nchnls; k++ {
			ring := w.region.OutRing.Channel(int(k))
			var v float64
			if idx := int(po)*int(w.nchnls) + int(k); idx < len(spout) {
				v = spout[idx] / w.zerodBFS
			}
			if math.IsNaN(v) {
				v = 0
			}
			ring[co] = v
		}

		if hasInput {
			for k := int32(0); k < w.nchnlsIn; k++ {
				ring := w.region.InRing.Channel(int(k))
				if idx := int(pi)*int(w.nchnlsIn) + int(k); idx < len(spin) {
					spin[idx] = ring[ci] * w.zerodBFS
				}
			}
		}
	}

	if hasInput {
		state.Store(sab.InputReadIndex, (inputReadIndex+swBufSize)%hwBufSize)
		state.Add(sab.AvailInBufs, -swBufSize)
	}
	state.Store(sab.OutputWriteIndex, (outputWriteIndex+swBufSize)%hwBufSize)
	state.Add(sab.AvailOutBufs, swBufSize)
}
