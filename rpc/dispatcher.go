package rpc

import (
	"github.com/google/uuid"

	"github.com/zotley/sabcore/engine"
	"github.com/zotley/sabcore/sab"
)

// Dispatcher is the worker side of the callback RPC: once per render-loop
// wake it drains every pending request off the ring, in FIFO order, runs
// it against the engine, and completes the matching Gateway ticket.
type Dispatcher struct {
	ring    *sab.CallbackRing
	ops     *OpcodeTable
	engine  engine.Engine
	gateway *Gateway
}

// NewDispatcher wires a ring, opcode table, engine and gateway together.
// gateway may be the same Gateway a host used to submit calls (in-process
// shared-memory model) so completions are visible immediately.
func NewDispatcher(ring *sab.CallbackRing, ops *OpcodeTable, eng engine.Engine, gateway *Gateway) *Dispatcher {
	return &Dispatcher{ring: ring, ops: ops, engine: eng, gateway: gateway}
}

// Drain processes every record currently queued. Called from the
// synthesis worker's render loop after each doorbell wake.
func (d *Dispatcher) Drain() {
	d.ring.Drain(func(rec sab.RequestRecord, str []byte, f64 []float64) {
		ticket := uuid.UUID(rec.UID)
		name, ok := d.ops.Name(rec.Opcode)
		if !ok {
			d.gateway.complete(ticket, engine.CallResult{}, engine.ErrUnknownOp)
			return
		}

		args := engine.CallArgs{
			Ints:   append([]int32(nil), rec.InlineArgs[:int(rec.ArgCount)]...),
			Floats: append([]float64(nil), f64...),
			Str:    string(str),
		}
		result, err := d.engine.Call(name, args)
		d.gateway.complete(ticket, result, err)
	})
}
