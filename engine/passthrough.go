package engine

import "sync"

// Passthrough is a minimal, fully deterministic Engine used by the
// round-trip property tests: PerformBlock copies Spin straight into
// Spout, channel for channel, so the worker's in_ring/spin/spout/out_ring
// pipeline round-trips a sample exactly, up to ×ZerodBFS/÷ZerodBFS
// floating-point error.
//
// It also doubles as the simplest possible reference for Engine.Call:
// every opcode not explicitly wired returns ErrUnknownOp.
type Passthrough struct {
	mu sync.Mutex

	initialized bool
	created     bool
	stopped     bool

	sampleRate int32
	ksmps      int32
	nchnls     int32
	nchnlsIn   int32
	zerodBFS   float64

	spin  []float64
	spout []float64

	requestingRTMIDI bool
	lastMIDI         [3]int32
	midiCount        int

	calls map[string]func(CallArgs) (CallResult, error)
}

// NewPassthrough builds a Passthrough engine with the given fixed
// parameters (a real engine would derive these from the loaded program;
// this one just takes them as constructor arguments since it has no
// program to inspect).
func NewPassthrough(sampleRate, ksmps, nchnls, nchnlsIn int32, zerodBFS float64) *Passthrough {
	e := &Passthrough{
		sampleRate: sampleRate,
		ksmps:      ksmps,
		nchnls:     nchnls,
		nchnlsIn:   nchnlsIn,
		zerodBFS:   zerodBFS,
		spin:       make([]float64, int(nchnlsIn)*int(ksmps)),
		spout:      make([]float64, int(nchnls)*int(ksmps)),
		calls:      map[string]func(CallArgs) (CallResult, error){},
	}
	return e
}

// RequestRTMIDI flips IsRequestingRTMIDI() on, for tests exercising
// realtime MIDI delivery.
func (e *Passthrough) RequestRTMIDI(want bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.requestingRTMIDI = want
}

// RegisterCall installs a handler for an opcode, so tests can exercise
// Engine.Call and the callback RPC without a real engine.
func (e *Passthrough) RegisterCall(op string, fn func(CallArgs) (CallResult, error)) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.calls[op] = fn
}

func (e *Passthrough) Initialize(InitOptions) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.initialized = true
	return nil
}

func (e *Passthrough) Create() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.created = true
	return nil
}

func (e *Passthrough) PerformBlock() int32 {
	e.mu.Lock()
	defer e.mu.Unlock()
	n := min(len(e.spin), len(e.spout))
	copy(e.spout[:n], e.spin[:n])
	for i := n; i < len(e.spout); i++ {
		e.spout[i] = 0
	}
	return 0
}

func (e *Passthrough) Stop() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.stopped = true
}

func (e *Passthrough) Reset() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	for i := range e.spin {
		e.spin[i] = 0
	}
	for i := range e.spout {
		e.spout[i] = 0
	}
	e.stopped = false
	e.midiCount = 0
	return nil
}

func (e *Passthrough) Spin() []float64  { return e.spin }
func (e *Passthrough) Spout() []float64 { return e.spout }

func (e *Passthrough) SampleRate() int32 { return e.sampleRate }
func (e *Passthrough) Ksmps() int32      { return e.ksmps }
func (e *Passthrough) Nchnls() int32     { return e.nchnls }
func (e *Passthrough) NchnlsIn() int32   { return e.nchnlsIn }
func (e *Passthrough) ZerodBFS() float64 { return e.zerodBFS }
func (e *Passthrough) InputName() string { return "adc" }

func (e *Passthrough) IsRequestingRTMIDI() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.requestingRTMIDI
}

func (e *Passthrough) PushMIDI(status, data1, data2 int32) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.lastMIDI = [3]int32{status, data1, data2}
	e.midiCount++
}

// LastMIDI returns the most recently pushed event and how many have been
// pushed in total, for test assertions.
func (e *Passthrough) LastMIDI() (ev [3]int32, count int) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.lastMIDI, e.midiCount
}

func (e *Passthrough) Call(op string, args CallArgs) (CallResult, error) {
	e.mu.Lock()
	fn := e.calls[op]
	e.mu.Unlock()
	if fn == nil {
		return CallResult{}, ErrUnknownOp
	}
	return fn(args)
}
