// Package host implements the control host façade: the public operation
// namespace callers use to drive one performance. It owns the shared
// region, the engine instance, and the worker/backend it hands the
// region to.
package host

import (
	"context"
	"fmt"
	"os"
	"sync"

	"github.com/charmbracelet/log"

	"github.com/zotley/sabcore/backend"
	"github.com/zotley/sabcore/engine"
	"github.com/zotley/sabcore/playstate"
	"github.com/zotley/sabcore/rpc"
	"github.com/zotley/sabcore/sab"
	"github.com/zotley/sabcore/worker"
)

// MessageCallback receives forwarded log/diagnostic messages.
type MessageCallback func(msg string)

// PlayStateCallback receives play-state transitions; it's just
// playstate.Callback under this package's name for callers who don't want
// to import playstate directly.
type PlayStateCallback = playstate.Callback

// Host is the control host façade. One Host drives one performance at a
// time; Reset tears down and reconfigures it for the next one.
type Host struct {
	mu sync.Mutex

	region  *sab.Region
	engine  engine.Engine
	ops     *rpc.OpcodeTable
	gateway *rpc.Gateway
	machine *playstate.Machine
	backend backend.AudioBackend

	doorbell  *sab.Doorbell
	pauseBell *sab.Doorbell

	wkr     *worker.Worker
	runDone chan struct{}

	FileBridge FileBridge
	log        *log.Logger
	status     statusStore

	initialized bool
	hwBufSize   int32
	swBufSize   int32

	messageMu sync.Mutex
	onMessage []MessageCallback
}

// New constructs an unconfigured Host. Call Initialize before anything
// else.
func New(eng engine.Engine, be backend.AudioBackend, logger *log.Logger) *Host {
	return &Host{
		engine:  eng,
		backend: be,
		log:     logger,
	}
}

// Initialize instantiates the shared region, the opcode table, the
// play-state machine and the worker, and creates one engine instance.
// Re-entrant calls fail.
func (h *Host) Initialize(plugins []string, hwBufferSize, swBufferSize int32) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.initialized {
		return fmt.Errorf("host: already initialized")
	}

	h.region = sab.NewRegion()
	h.hwBufSize = hwBufferSize
	h.swBufSize = swBufferSize
	h.region.State.SetBufferSizes(hwBufferSize, swBufferSize)

	h.doorbell = sab.NewDoorbell(h.region.State, sab.AtomicNotify)
	h.pauseBell = sab.NewDoorbell(h.region.State, sab.IsPaused)

	h.ops = rpc.NewOpcodeTable()
	h.gateway = rpc.NewGateway(h.region.Callback, h.ops)
	h.gateway.WorkerAlive = h.workerAlive

	h.machine = playstate.NewMachine(h.region, h.backend, h.log)
	h.backend.Attach(h.region, h.doorbell)

	dispatcher := rpc.NewDispatcher(h.region.Callback, h.ops, h.engine, h.gateway)
	h.wkr = worker.New(h.region, h.engine, dispatcher, h.machine, h.doorbell, h.pauseBell, h.log)

	if err := h.engine.Initialize(engine.InitOptions{Plugins: plugins}); err != nil {
		return err
	}
	if err := h.engine.Create(); err != nil {
		return err
	}

	h.initialized = true
	return nil
}

// workerAlive reports whether the render-loop goroutine is still draining
// the callback ring. A worker that exited on its own (end of performance)
// counts as gone even before Stop clears the bookkeeping, so a pending
// ticket resolves with a terminal worker-down status instead of hanging.
func (h *Host) workerAlive() bool {
	h.mu.Lock()
	done := h.runDone
	h.mu.Unlock()
	if done == nil {
		return false
	}
	select {
	case <-done:
		return false
	default:
		return true
	}
}

// Call is the generic engine API wrapper for every entry point besides
// create/start/stop/reset: routed through the callback RPC while the play
// state is realtimePerformanceStarted or renderStarted; in every other
// state, paused and resumed included, it calls the engine directly.
func (h *Host) Call(ctx context.Context, op string, args engine.CallArgs) (engine.CallResult, error) {
	h.mu.Lock()
	state := h.machine.Current()
	h.mu.Unlock()

	if state == playstate.RealtimePerformanceStarted || state == playstate.RenderStarted {
		ticket, err := h.gateway.Call(op, args)
		if err != nil {
			return engine.CallResult{}, err
		}
		return h.gateway.Wait(ctx, ticket)
	}
	return h.engine.Call(op, args)
}

// RegisterOp registers an engine API entry point's stock name under the
// strip-prefix-and-lowercase naming rule, so later Call(ctx, wrappedName,
// ...) reaches it whether the worker is running or not.
func (h *Host) RegisterOp(stockName, prefix string) string {
	name := rpc.WrapName(stockName, prefix)
	h.ops.Register(name)
	return name
}

// Start begins a realtime performance: runs the worker's start handshake
// synchronously (it broadcasts realtimePerformanceStarted itself before
// returning, so there is nothing further to await), then hands the
// steady-state loop to its own goroutine.
func (h *Host) Start() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if !h.initialized {
		return fmt.Errorf("host: not initialized")
	}
	if h.runDone != nil {
		return fmt.Errorf("host: already running")
	}

	h.region.State.Store(sab.Stop, 0)
	if err := h.wkr.Setup(); err != nil {
		return err
	}

	done := make(chan struct{})
	h.runDone = done
	go func() {
		h.wkr.Run()
		h.gateway.FailPending()
		close(done)
	}()
	return nil
}

// StartRender begins an offline render-to-completion instead of a
// realtime performance. Like Start, the starting transition is broadcast
// before this returns.
func (h *Host) StartRender() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if !h.initialized {
		return fmt.Errorf("host: not initialized")
	}
	if h.runDone != nil {
		return fmt.Errorf("host: already running")
	}

	h.region.State.Store(sab.Stop, 0)
	h.region.State.Store(sab.IsPerforming, 1)
	h.machine.Transition(playstate.RenderStarted)

	done := make(chan struct{})
	h.runDone = done
	go func() {
		h.wkr.RunOffline()
		h.gateway.FailPending()
		close(done)
	}()
	return nil
}

// Stop signals the worker to flush and exit, and blocks until it has
// broadcast its terminal state. Rejected unless the current state is
// stopable.
func (h *Host) Stop() error {
	h.mu.Lock()
	state := h.machine.Current()
	if !state.Stopable() {
		h.mu.Unlock()
		return fmt.Errorf("host: cannot stop in state %s", state)
	}
	done := h.runDone
	h.mu.Unlock()

	h.region.State.Store(sab.Stop, 1)
	h.region.State.Store(sab.IsPerforming, 0)
	if h.region.State.Load(sab.IsPaused) == 1 {
		h.region.State.Store(sab.IsPaused, 0)
		h.pauseBell.Notify()
	}
	// The offline render loop polls Stop itself; only the realtime loop
	// sits behind the doorbell.
	if state != playstate.RenderStarted {
		h.doorbell.Notify()
	}

	if done != nil {
		<-done
	}

	h.mu.Lock()
	h.runDone = nil
	h.mu.Unlock()
	return nil
}

// Pause suspends the worker at its next doorbell wake. The worker blocks
// on the pause doorbell until Resume notifies it.
func (h *Host) Pause() error {
	h.mu.Lock()
	state := h.machine.Current()
	h.mu.Unlock()
	if state != playstate.RealtimePerformanceStarted && state != playstate.RealtimePerformanceResumed {
		return fmt.Errorf("host: cannot pause in state %s", state)
	}
	h.region.State.Store(sab.IsPaused, 1)
	h.machine.Transition(playstate.RealtimePerformancePaused)
	return nil
}

// Resume wakes a paused worker.
func (h *Host) Resume() error {
	h.mu.Lock()
	state := h.machine.Current()
	h.mu.Unlock()
	if state != playstate.RealtimePerformancePaused {
		return fmt.Errorf("host: cannot resume in state %s", state)
	}
	h.pauseBell.Notify()
	h.machine.Transition(playstate.RealtimePerformanceResumed)
	return nil
}

// Reset stops the current performance (if one is running), forwards reset
// to the engine, and resets the region so the next start begins from a
// clean state vector with no residual cursors.
func (h *Host) Reset() error {
	h.mu.Lock()
	state := h.machine.Current()
	h.mu.Unlock()

	if state.Stopable() {
		if err := h.Stop(); err != nil {
			return err
		}
	}
	if err := h.engine.Reset(); err != nil {
		return err
	}

	h.mu.Lock()
	h.region.Reset()
	h.mu.Unlock()
	return nil
}

// OnMIDI pushes one realtime MIDI event into the shared ring and bumps
// AvailRTMIDIEvents. Safe to call from any goroutine; MidiRing.Push owns
// its own producer index.
func (h *Host) OnMIDI(status, data1, data2 int32) {
	h.region.Midi.Push(sab.MidiEvent{Status: status, Data1: data1, Data2: data2})
	h.region.State.Add(sab.AvailRTMIDIEvents, 1)
}

// AddPlayStateCallback registers an additional play-state listener.
func (h *Host) AddPlayStateCallback(cb PlayStateCallback) {
	h.machine.AddPlayStateCallback(cb)
}

// SetPlayStateCallback replaces every previously registered play-state
// listener with a single one.
func (h *Host) SetPlayStateCallback(cb PlayStateCallback) {
	h.machine.SetPlayStateCallback(cb)
}

// AddMessageCallback registers an additional forwarded-message listener.
// A nil callback is logged and skipped.
func (h *Host) AddMessageCallback(cb MessageCallback) {
	if cb == nil {
		if h.log != nil {
			h.log.Warn("ignoring nil message callback")
		}
		return
	}
	h.messageMu.Lock()
	defer h.messageMu.Unlock()
	h.onMessage = append(h.onMessage, cb)
}

// SetMessageCallback replaces every previously registered
// forwarded-message listener with a single one. A nil callback is logged
// and skipped.
func (h *Host) SetMessageCallback(cb MessageCallback) {
	if cb == nil {
		if h.log != nil {
			h.log.Warn("ignoring nil message callback")
		}
		return
	}
	h.messageMu.Lock()
	defer h.messageMu.Unlock()
	h.onMessage = []MessageCallback{cb}
}

// Message forwards one diagnostic/log message to every registered
// listener, in registration order.
func (h *Host) Message(msg string) {
	h.messageMu.Lock()
	cbs := append([]MessageCallback(nil), h.onMessage...)
	h.messageMu.Unlock()
	for _, cb := range cbs {
		cb(msg)
	}
}

// StatusSnapshot returns a point-in-time copy of the fields worth exposing
// to a caller without racing the live performance.
func (h *Host) StatusSnapshot() StatusSnapshot {
	state := h.region.State
	snap := StatusSnapshot{
		PlayState:    h.machine.Current(),
		Nchnls:       state.Load(sab.Nchnls),
		NchnlsIn:     state.Load(sab.NchnlsIn),
		SampleRate:   state.Load(sab.SampleRate),
		HWBufferSize: state.Load(sab.HWBufferSize),
		SWBufferSize: state.Load(sab.SWBufferSize),
		AvailInBufs:  state.Load(sab.AvailInBufs),
		AvailOutBufs: state.Load(sab.AvailOutBufs),
	}
	h.status.set(snap)
	return snap
}

// LastStatus returns the most recently taken snapshot without touching
// the live state, for pollers that only want what StatusSnapshot last
// observed.
func (h *Host) LastStatus() StatusSnapshot {
	return h.status.get()
}

// WriteFile, ReadFile, List, ListDetailed and RemoveAll pass through to
// the injected FileBridge.
func (h *Host) WriteFile(path string, data []byte) error { return h.FileBridge.WriteFile(path, data) }
func (h *Host) ReadFile(path string) ([]byte, error)     { return h.FileBridge.ReadFile(path) }
func (h *Host) List(path string) ([]string, error)       { return h.FileBridge.List(path) }
func (h *Host) ListDetailed(path string) ([]os.FileInfo, error) {
	return h.FileBridge.ListDetailed(path)
}
func (h *Host) RemoveAll(path string) error { return h.FileBridge.RemoveAll(path) }
