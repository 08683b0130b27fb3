package worker

import (
	"testing"
	"time"

	"github.com/zotley/sabcore/backend"
	"github.com/zotley/sabcore/engine"
	"github.com/zotley/sabcore/playstate"
	"github.com/zotley/sabcore/rpc"
	"github.com/zotley/sabcore/sab"
)

// newWired builds a Worker over a Passthrough engine and a fresh Region,
// the same wiring host.Initialize performs, minus the control-host layer.
// The returned *backend.TestBackend plays the audio backend's real role:
// it is the thing that drives the worker's steady-state wake cycle, via
// TestBackend.PumpFrames, exactly as OtoBackend.Read and
// MalgoBackend.onFrames do against a real device.
func newWired(t *testing.T, hw, sw int32) (*Worker, *sab.Region, *playstate.Machine, *backend.TestBackend) {
	t.Helper()
	region := sab.NewRegion()
	region.State.SetBufferSizes(hw, sw)

	eng := engine.NewPassthrough(48000, sw, 2, 2, 32768)
	ops := rpc.NewOpcodeTable()
	gw := rpc.NewGateway(region.Callback, ops)
	dispatcher := rpc.NewDispatcher(region.Callback, ops, eng, gw)

	doorbell := sab.NewDoorbell(region.State, sab.AtomicNotify)
	pauseBell := sab.NewDoorbell(region.State, sab.IsPaused)

	be := backend.NewTestBackend()
	machine := playstate.NewMachine(region, be, nil)
	be.Attach(region, doorbell)

	w := New(region, eng, dispatcher, machine, doorbell, pauseBell, nil)
	return w, region, machine, be
}

// TestHappyPath: the backend supplies one block of input and rings the
// doorbell once, and the worker produces exactly one block's worth of
// bookkeeping in response.
func TestHappyPath(t *testing.T) {
	w, region, _, be := newWired(t, 4096, 128)
	if err := w.Setup(); err != nil {
		t.Fatalf("Setup: %v", err)
	}

	done := make(chan struct{})
	go func() {
		w.Run()
		close(done)
	}()

	region.State.Store(sab.AvailInBufs, 128)
	be.PumpFrames(0, false) // just the doorbell notify

	waitForCondition(t, func() bool {
		return region.State.Load(sab.AvailOutBufs) == 128
	})

	if got := region.State.Load(sab.AvailInBufs); got != 0 {
		t.Fatalf("AvailInBufs = %d, want 0", got)
	}
	if got := region.State.Load(sab.OutputWriteIndex); got != 128 {
		t.Fatalf("OutputWriteIndex = %d, want 128", got)
	}

	region.State.Store(sab.Stop, 1)
	be.PumpFrames(0, false)
	<-done
}

// TestPauseThenResume: no output is produced while paused; resuming
// releases the queued block within one wake.
func TestPauseThenResume(t *testing.T) {
	w, region, machine, be := newWired(t, 4096, 128)
	if err := w.Setup(); err != nil {
		t.Fatalf("Setup: %v", err)
	}

	done := make(chan struct{})
	go func() {
		w.Run()
		close(done)
	}()

	region.State.Store(sab.IsPaused, 1)
	machine.Transition(playstate.RealtimePerformancePaused)

	region.State.Store(sab.AvailInBufs, 128)
	be.PumpFrames(0, false)

	time.Sleep(50 * time.Millisecond)
	if got := region.State.Load(sab.AvailOutBufs); got != 0 {
		t.Fatalf("AvailOutBufs changed to %d while paused, want 0", got)
	}

	region.State.Store(sab.IsPaused, 0)
	w.pauseBell.Notify()
	machine.Transition(playstate.RealtimePerformanceResumed)

	waitForCondition(t, func() bool {
		return region.State.Load(sab.AvailOutBufs) == 128
	})

	states := be.States()
	if len(states) < 2 || states[0] != playstate.RealtimePerformanceStarted {
		t.Fatalf("backend states = %v, want starting with realtimePerformanceStarted", states)
	}

	region.State.Store(sab.Stop, 1)
	be.PumpFrames(0, false)
	<-done
}

// TestMIDIDelivery: events queued between wakes arrive at the engine in
// submission order, in one batch.
func TestMIDIDelivery(t *testing.T) {
	w, region, _, be := newWired(t, 4096, 128)
	eng := w.engine.(*engine.Passthrough)
	eng.RequestRTMIDI(true)
	if err := w.Setup(); err != nil {
		t.Fatalf("Setup: %v", err)
	}

	region.Midi.Push(sab.MidiEvent{Status: 0x90, Data1: 60, Data2: 100})
	region.Midi.Push(sab.MidiEvent{Status: 0x80, Data1: 60, Data2: 0})
	region.Midi.Push(sab.MidiEvent{Status: 0xB0, Data1: 7, Data2: 64})
	region.State.Store(sab.AvailRTMIDIEvents, 3)

	if got := region.State.Load(sab.AvailRTMIDIEvents); got != 3 {
		t.Fatalf("AvailRTMIDIEvents = %d, want 3", got)
	}

	done := make(chan struct{})
	go func() {
		w.Run()
		close(done)
	}()
	be.PumpFrames(0, false)

	waitForCondition(t, func() bool {
		return region.State.Load(sab.AvailRTMIDIEvents) == 0
	})

	ev, count := eng.LastMIDI()
	if count != 3 {
		t.Fatalf("midiCount = %d, want 3", count)
	}
	if ev != ([3]int32{0xB0, 7, 64}) {
		t.Fatalf("last event = %v, want the CC message delivered last", ev)
	}
	// RTMIDIIndex is in event-slot units (see drainMIDI's doc comment):
	// three consumed events advance it to 3 mod the ring's event capacity.
	const capacity = sab.MidiBufferSize / sab.MidiBufferPayloadSize
	if got := region.State.Load(sab.RTMIDIIndex); got != 3%capacity {
		t.Fatalf("RTMIDIIndex = %d, want 3 mod %d event slots", got, capacity)
	}

	region.State.Store(sab.Stop, 1)
	be.PumpFrames(0, false)
	<-done
}

func waitForCondition(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatalf("condition not met within deadline")
}
