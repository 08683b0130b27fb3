// Package engine defines the fixed synthesis-engine ABI the worker and
// the callback RPC call across: perform_block, get_spin/get_spout,
// get_sr/get_ksmps/get_nchnls/get_nchnls_i/get_0dbfs, push_midi, stop,
// reset, create, initialize, input_name, is_requesting_rtmidi, plus an
// enumerated set of other control/query entry points routed by opcode.
//
// The synthesis itself is an external concern behind this boundary. Two
// concrete engines exercise it: Passthrough (deterministic, for the
// round-trip tests) and the Lua-sandboxed engine in luasandbox.go (a
// sandboxed bytecode program with no filesystem or process access).
package engine

import "fmt"

// InitOptions is the subset of engine construction parameters the control
// host controls; everything else is queried back out of the engine once
// created.
type InitOptions struct {
	Plugins []string
}

// CallArgs is the decoded argument tuple for an arbitrary (non-core) ABI
// entry point, reached through Engine.Call: inline scalars plus an
// optional string and float-array payload, the same shapes the callback
// RPC transports.
type CallArgs struct {
	Ints   []int32
	Floats []float64
	Str    string
}

// CallResult is the decoded return value of Engine.Call.
type CallResult struct {
	Int32   int32
	Float64 float64
	Str     string
}

// ErrUnknownOp is returned by Call for an opcode the engine does not
// recognize.
var ErrUnknownOp = fmt.Errorf("engine: unknown opcode")

// Engine is the fixed ABI. Every method here corresponds 1:1 to a named
// entry point; Call covers the open-ended set of other control/query
// entry points.
type Engine interface {
	Initialize(InitOptions) error
	Create() error
	// PerformBlock renders one ksmps-frame block into Spout (and, if the
	// engine wants input, reads one block from Spin first). Returns the
	// engine's raw completion code: 0 means "continue", nonzero means
	// end-of-performance.
	PerformBlock() int32
	Stop()
	Reset() error

	// Spin/Spout return views into the engine's own internal sample
	// block. Spin is nchnls_i*ksmps samples, Spout is nchnls*ksmps, both
	// scaled to ±ZerodBFS().
	Spin() []float64
	Spout() []float64

	SampleRate() int32
	Ksmps() int32
	Nchnls() int32
	NchnlsIn() int32
	ZerodBFS() float64

	InputName() string
	IsRequestingRTMIDI() bool
	PushMIDI(status, data1, data2 int32)

	// Call reaches every other engine API entry point by name, used both
	// by the callback RPC (worker-side drain) and by the control host's
	// direct proxy path when the worker is not inside a performance.
	Call(op string, args CallArgs) (CallResult, error)
}
