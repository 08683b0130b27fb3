// Package rpc implements the callback RPC protocol on top of
// sab.CallbackRing: the control host submits named calls against the
// engine's ABI and gets back a ticket; the synthesis worker drains the
// ring once per wake, invokes the engine, and completes the ticket.
// Tickets a caller abandons are pruned by TTL and by a hard cap, so a
// host that never polls cannot leak return-queue entries forever.
package rpc

import "strings"

// OpcodeTable is a bidirectional name<->code mapping for engine.Call
// entry points, built at startup from the engine's own stock naming
// (for example SynthGetScoreTime becomes getScoreTime): strip the
// engine's stock prefix, then lowercase the first remaining character.
type OpcodeTable struct {
	byName map[string]int32
	byCode map[int32]string
	next   int32
}

// NewOpcodeTable builds an empty table.
func NewOpcodeTable() *OpcodeTable {
	return &OpcodeTable{
		byName: make(map[string]int32),
		byCode: make(map[int32]string),
	}
}

// WrapName applies the naming rule: strip prefix, lowercase the first
// remaining rune. A stock name that doesn't carry the prefix is returned
// unchanged (some ABI entry points, like "reset" or "stop", never carried
// one to begin with).
func WrapName(stockName, prefix string) string {
	rest, ok := strings.CutPrefix(stockName, prefix)
	if !ok || rest == "" {
		return stockName
	}
	return strings.ToLower(rest[:1]) + rest[1:]
}

// Register assigns a fresh opcode to name, or returns the existing one if
// name was already registered.
func (t *OpcodeTable) Register(name string) int32 {
	if code, ok := t.byName[name]; ok {
		return code
	}
	code := t.next
	t.next++
	t.byName[name] = code
	t.byCode[code] = name
	return code
}

// RegisterStock registers a whole batch of stock names at once, applying
// WrapName to each.
func (t *OpcodeTable) RegisterStock(prefix string, stockNames ...string) {
	for _, n := range stockNames {
		t.Register(WrapName(n, prefix))
	}
}

// Code looks up the opcode for a call name. ok is false for an
// unregistered name, detected host-side before ever touching the ring.
func (t *OpcodeTable) Code(name string) (int32, bool) {
	code, ok := t.byName[name]
	return code, ok
}

// Name reverses Code, used by the worker to recover the call name it
// drained off the ring.
func (t *OpcodeTable) Name(code int32) (string, bool) {
	name, ok := t.byCode[code]
	return name, ok
}
