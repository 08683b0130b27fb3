package engine

import (
	"fmt"
	"sync"

	lua "github.com/yuin/gopher-lua"
)

// LuaSandbox runs a synthesis program as sandboxed bytecode: a Lua chunk
// inside a *lua.LState with the os/io/package/channel libraries never
// opened, so the loaded program has no filesystem or process access —
// only base, table, string and math.
//
// The loaded chunk is expected to define:
//
//	function setup()           -- sizes spin/spout, sets nchnls etc.
//	function perform_block()   -- reads spin, writes spout, returns 0/1
//	function reset()           -- optional
//	function on_midi(status, d1, d2)  -- optional
//
// and the globals sr, ksmps, nchnls, nchnls_i, zerodbfs, wants_rtmidi,
// input_name, spin (table), spout (table).
type LuaSandbox struct {
	mu sync.Mutex

	program string
	state   *lua.LState

	sampleRate int32
	ksmps      int32
	nchnls     int32
	nchnlsIn   int32
	zerodBFS   float64
	inputName  string
	wantsMIDI  bool

	spin  []float64
	spout []float64
}

// NewLuaSandbox stores the given Lua program source. Initialize creates
// the sandboxed VM and runs the chunk; Create then calls its setup().
func NewLuaSandbox(program string) *LuaSandbox {
	return &LuaSandbox{program: program}
}

func (e *LuaSandbox) openSandboxedLibs(L *lua.LState) {
	// Deliberately a strict subset: no OpenOs, OpenIo, OpenPackage,
	// OpenChannel, OpenCoroutine — the loaded chunk cannot touch the
	// filesystem, spawn goroutines, or require() anything.
	for _, lib := range []struct {
		name string
		fn   lua.LGFunction
	}{
		{lua.BaseLibName, lua.OpenBase},
		{lua.TabLibName, lua.OpenTable},
		{lua.StringLibName, lua.OpenString},
		{lua.MathLibName, lua.OpenMath},
	} {
		L.Push(L.NewFunction(lib.fn))
		L.Push(lua.LString(lib.name))
		L.Call(1, 0)
	}
}

func (e *LuaSandbox) Initialize(InitOptions) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	L := lua.NewState(lua.Options{SkipOpenLibs: true})
	e.openSandboxedLibs(L)
	if err := L.DoString(e.program); err != nil {
		L.Close()
		return fmt.Errorf("engine: lua program failed to load: %w", err)
	}
	e.state = L
	return nil
}

func (e *LuaSandbox) Create() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.state == nil {
		return fmt.Errorf("engine: Create called before Initialize")
	}
	if err := e.state.CallByParam(lua.P{Fn: e.state.GetGlobal("setup"), NRet: 0, Protect: true}); err != nil {
		return fmt.Errorf("engine: lua setup() failed: %w", err)
	}
	e.sampleRate = int32(luaNumberGlobal(e.state, "sr", 48000))
	e.ksmps = int32(luaNumberGlobal(e.state, "ksmps", 32))
	e.nchnls = int32(luaNumberGlobal(e.state, "nchnls", 2))
	e.nchnlsIn = int32(luaNumberGlobal(e.state, "nchnls_i", 0))
	e.zerodBFS = luaNumberGlobal(e.state, "zerodbfs", 32768)
	e.inputName = luaStringGlobal(e.state, "input_name", "")
	e.wantsMIDI = luaNumberGlobal(e.state, "wants_rtmidi", 0) != 0

	e.spin = make([]float64, int(e.nchnlsIn)*int(e.ksmps))
	e.spout = make([]float64, int(e.nchnls)*int(e.ksmps))
	return nil
}

func (e *LuaSandbox) PerformBlock() int32 {
	e.mu.Lock()
	defer e.mu.Unlock()
	L := e.state

	spinTable := L.NewTable()
	for i, v := range e.spin {
		spinTable.RawSetInt(i+1, lua.LNumber(v))
	}
	L.SetGlobal("spin", spinTable)

	spoutTable := L.NewTable()
	L.SetGlobal("spout", spoutTable)

	if err := L.CallByParam(lua.P{Fn: L.GetGlobal("perform_block"), NRet: 1, Protect: true}); err != nil {
		return 1
	}
	ret := L.Get(-1)
	L.Pop(1)

	spout := L.GetGlobal("spout")
	if tbl, ok := spout.(*lua.LTable); ok {
		for i := range e.spout {
			e.spout[i] = float64(lua.LVAsNumber(tbl.RawGetInt(i + 1)))
		}
	}

	if n, ok := ret.(lua.LNumber); ok {
		return int32(n)
	}
	return 0
}

func (e *LuaSandbox) Stop() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.state == nil {
		return
	}
	fn := e.state.GetGlobal("stop")
	if fn != lua.LNil {
		_ = e.state.CallByParam(lua.P{Fn: fn, NRet: 0, Protect: true})
	}
}

func (e *LuaSandbox) Reset() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.state == nil {
		return nil
	}
	fn := e.state.GetGlobal("reset")
	if fn == lua.LNil {
		return nil
	}
	return e.state.CallByParam(lua.P{Fn: fn, NRet: 0, Protect: true})
}

func (e *LuaSandbox) Spin() []float64  { return e.spin }
func (e *LuaSandbox) Spout() []float64 { return e.spout }

func (e *LuaSandbox) SampleRate() int32 { return e.sampleRate }
func (e *LuaSandbox) Ksmps() int32      { return e.ksmps }
func (e *LuaSandbox) Nchnls() int32     { return e.nchnls }
func (e *LuaSandbox) NchnlsIn() int32   { return e.nchnlsIn }
func (e *LuaSandbox) ZerodBFS() float64 { return e.zerodBFS }
func (e *LuaSandbox) InputName() string { return e.inputName }

func (e *LuaSandbox) IsRequestingRTMIDI() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.wantsMIDI
}

func (e *LuaSandbox) PushMIDI(status, data1, data2 int32) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.state == nil {
		return
	}
	fn := e.state.GetGlobal("on_midi")
	if fn == lua.LNil {
		return
	}
	_ = e.state.CallByParam(lua.P{Fn: fn, NRet: 0, Protect: true},
		lua.LNumber(status), lua.LNumber(data1), lua.LNumber(data2))
}

func (e *LuaSandbox) Call(op string, args CallArgs) (CallResult, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.state == nil {
		return CallResult{}, ErrUnknownOp
	}
	fn := e.state.GetGlobal(op)
	if fn == lua.LNil {
		return CallResult{}, ErrUnknownOp
	}

	var lvals []lua.LValue
	for _, v := range args.Ints {
		lvals = append(lvals, lua.LNumber(v))
	}
	for _, v := range args.Floats {
		lvals = append(lvals, lua.LNumber(v))
	}
	if args.Str != "" {
		lvals = append(lvals, lua.LString(args.Str))
	}

	if err := e.state.CallByParam(lua.P{Fn: fn, NRet: 1, Protect: true}, lvals...); err != nil {
		return CallResult{}, fmt.Errorf("engine: lua call %q failed: %w", op, err)
	}
	ret := e.state.Get(-1)
	e.state.Pop(1)

	switch v := ret.(type) {
	case lua.LNumber:
		return CallResult{Int32: int32(v), Float64: float64(v)}, nil
	case lua.LString:
		return CallResult{Str: string(v)}, nil
	default:
		return CallResult{}, nil
	}
}

// Close releases the underlying Lua VM.
func (e *LuaSandbox) Close() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.state != nil {
		e.state.Close()
		e.state = nil
	}
}

func luaNumberGlobal(L *lua.LState, name string, fallback float64) float64 {
	v := L.GetGlobal(name)
	if n, ok := v.(lua.LNumber); ok {
		return float64(n)
	}
	return fallback
}

func luaStringGlobal(L *lua.LState, name string, fallback string) string {
	v := L.GetGlobal(name)
	if s, ok := v.(lua.LString); ok {
		return string(s)
	}
	return fallback
}
