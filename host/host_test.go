package host

import (
	"context"
	"testing"
	"time"

	"github.com/zotley/sabcore/backend"
	"github.com/zotley/sabcore/engine"
	"github.com/zotley/sabcore/sab"
)

func newTestHost(t *testing.T) (*Host, *engine.Passthrough, *backend.TestBackend) {
	t.Helper()
	eng := engine.NewPassthrough(48000, 128, 2, 2, 32768)
	be := backend.NewTestBackend()
	h := New(eng, be, nil)
	if err := h.Initialize(nil, 4096, 128); err != nil {
		t.Fatalf("Initialize: %v", err)
	}
	return h, eng, be
}

func waitUntil(t *testing.T, cond func() bool) {
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

// TestStopOutsideStopable: Stop before any Start returns an error and
// leaves the state vector untouched.
func TestStopOutsideStopable(t *testing.T) {
	h, _, _ := newTestHost(t)
	before := h.region.State.Snapshot()

	if err := h.Stop(); err == nil {
		t.Fatalf("Stop() before Start() = nil, want an error")
	}

	after := h.region.State.Snapshot()
	if before != after {
		t.Fatalf("audio_state changed across a rejected Stop: before=%v after=%v", before, after)
	}
}

// TestHappyPathThroughHost drives one block of input through the public
// Host API. The backend's PumpFrames plays the audio backend's real role:
// it is what drives the worker's wake cycle, not the test poking the
// doorbell directly.
func TestHappyPathThroughHost(t *testing.T) {
	h, _, be := newTestHost(t)
	if err := h.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}

	h.region.State.Store(sab.AvailInBufs, 128)
	be.PumpFrames(0, false)

	waitUntil(t, func() bool {
		return h.region.State.Load(sab.AvailOutBufs) == 128
	})

	if err := h.Stop(); err != nil {
		t.Fatalf("Stop: %v", err)
	}
}

// TestStopWhilePaused: Stop while paused resolves once the worker
// broadcasts realtimePerformanceEnded, leaving the state vector equal to
// the initial template.
func TestStopWhilePaused(t *testing.T) {
	h, _, _ := newTestHost(t)
	if err := h.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if err := h.Pause(); err != nil {
		t.Fatalf("Pause: %v", err)
	}

	if err := h.Stop(); err != nil {
		t.Fatalf("Stop while paused: %v", err)
	}

	if !h.region.State.EqualsTemplate() {
		t.Fatalf("audio_state != initial template after stop-while-paused")
	}
}

// TestCallbackDuringPerformance exercises Host.Call's routing: while
// realtimePerformanceStarted, a call goes through the callback ring
// instead of straight to the engine.
func TestCallbackDuringPerformance(t *testing.T) {
	h, eng, be := newTestHost(t)
	opName := h.RegisterOp("scoreTime", "")
	eng.RegisterCall(opName, func(args engine.CallArgs) (engine.CallResult, error) {
		return engine.CallResult{Float64: 42}, nil
	})

	if err := h.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}

	// Keep the worker waking (as a real backend's device callback would)
	// so the callback ring actually drains.
	stop := make(chan struct{})
	go func() {
		for {
			select {
			case <-stop:
				return
			default:
				be.PumpFrames(0, false)
				time.Sleep(time.Millisecond)
			}
		}
	}()
	defer close(stop)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	res, err := h.Call(ctx, opName, engine.CallArgs{})
	if err != nil {
		t.Fatalf("Call: %v", err)
	}
	if res.Float64 != 42 {
		t.Fatalf("result = %v, want 42", res.Float64)
	}

	if err := h.Stop(); err != nil {
		t.Fatalf("Stop: %v", err)
	}
}

// TestMessageCallbackRegistration: Add appends, Set replaces, and a nil
// registration is skipped without disturbing the existing listeners.
func TestMessageCallbackRegistration(t *testing.T) {
	h, _, _ := newTestHost(t)
	var got []string
	h.AddMessageCallback(func(msg string) { got = append(got, "add:"+msg) })
	h.AddMessageCallback(nil)
	h.Message("hello")
	if len(got) != 1 || got[0] != "add:hello" {
		t.Fatalf("messages after Add = %v, want [add:hello]", got)
	}

	h.SetMessageCallback(func(msg string) { got = append(got, "set:"+msg) })
	h.Message("again")
	if len(got) != 2 || got[1] != "set:again" {
		t.Fatalf("messages after Set = %v, want the replacement listener only", got)
	}
}

// TestResetErasesResidualCursors exercises Reset() after a stopable
// performance: audio_state returns to template and a fresh Start still
// works, confirming the callback ring survives Reset() (sab.Region.Reset
// clears it in place rather than reallocating it out from under the
// already-wired Gateway/Dispatcher).
func TestResetErasesResidualCursors(t *testing.T) {
	h, _, be := newTestHost(t)
	if err := h.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}
	h.region.State.Store(sab.AvailInBufs, 128)
	be.PumpFrames(0, false)
	waitUntil(t, func() bool {
		return h.region.State.Load(sab.AvailOutBufs) == 128
	})

	if err := h.Reset(); err != nil {
		t.Fatalf("Reset: %v", err)
	}
	if !h.region.State.EqualsTemplate() {
		t.Fatalf("audio_state != template after Reset")
	}

	if err := h.Start(); err != nil {
		t.Fatalf("Start after Reset: %v", err)
	}
	h.region.State.Store(sab.AvailInBufs, 128)
	be.PumpFrames(0, false)
	waitUntil(t, func() bool {
		return h.region.State.Load(sab.AvailOutBufs) == 128
	})
	if err := h.Stop(); err != nil {
		t.Fatalf("Stop: %v", err)
	}
}
