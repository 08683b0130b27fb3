package rpc

import (
	"context"
	"testing"
	"time"

	"github.com/zotley/sabcore/engine"
	"github.com/zotley/sabcore/sab"
)

func newWiredGateway(t *testing.T) (*Gateway, *Dispatcher, *engine.Passthrough) {
	t.Helper()
	ring := &sab.CallbackRing{}
	ops := NewOpcodeTable()
	ops.Register("scoreTime")

	eng := engine.NewPassthrough(48000, 32, 2, 0, 32768)
	eng.RegisterCall("scoreTime", func(args engine.CallArgs) (engine.CallResult, error) {
		return engine.CallResult{Float64: 42}, nil
	})

	gw := NewGateway(ring, ops)
	d := NewDispatcher(ring, ops, eng, gw)
	return gw, d, eng
}

// TestCallbackRoundTrip: a call submitted while the worker owns the ring
// gets exactly one reply and is removed from the return queue once
// observed.
func TestCallbackRoundTrip(t *testing.T) {
	gw, d, _ := newWiredGateway(t)

	ticket, err := gw.Call("scoreTime", engine.CallArgs{})
	if err != nil {
		t.Fatalf("Call: %v", err)
	}

	d.Drain() // simulates one worker wake

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	res, err := gw.Wait(ctx, ticket)
	if err != nil {
		t.Fatalf("Wait: %v", err)
	}
	if res.Float64 != 42 {
		t.Fatalf("result = %v, want 42", res.Float64)
	}

	if _, _, err := gw.Poll(ticket); err != ErrStaleTicket {
		t.Fatalf("Poll after observed terminal state = %v, want ErrStaleTicket (no dangling completion)", err)
	}
}

func TestCallUnknownOpcodeRejectedHostSide(t *testing.T) {
	gw, _, _ := newWiredGateway(t)
	if _, err := gw.Call("nonexistent", engine.CallArgs{}); err != engine.ErrUnknownOp {
		t.Fatalf("Call(unregistered) = %v, want ErrUnknownOp", err)
	}
}

func TestDrainOrderIsFIFO(t *testing.T) {
	ring := &sab.CallbackRing{}
	ops := NewOpcodeTable()
	ops.Register("note")

	var order []int32
	eng := engine.NewPassthrough(48000, 32, 2, 0, 32768)
	eng.RegisterCall("note", func(args engine.CallArgs) (engine.CallResult, error) {
		order = append(order, args.Ints[0])
		return engine.CallResult{}, nil
	})

	gw := NewGateway(ring, ops)
	d := NewDispatcher(ring, ops, eng, gw)

	for i := int32(0); i < 5; i++ {
		if _, err := gw.Call("note", engine.CallArgs{Ints: []int32{i}}); err != nil {
			t.Fatalf("Call #%d: %v", i, err)
		}
	}
	d.Drain()

	for i, v := range order {
		if v != int32(i) {
			t.Fatalf("drain order = %v, want [0 1 2 3 4] (FIFO)", order)
		}
	}
}

// TestFailPendingWakesBlockedWaiters: a ticket the worker never drains
// resolves with ErrWorkerDown once FailPending runs, instead of leaving
// the waiter blocked until its context expires.
func TestFailPendingWakesBlockedWaiters(t *testing.T) {
	gw, _, _ := newWiredGateway(t)
	ticket, err := gw.Call("scoreTime", engine.CallArgs{})
	if err != nil {
		t.Fatalf("Call: %v", err)
	}

	result := make(chan error, 1)
	go func() {
		_, err := gw.Wait(context.Background(), ticket)
		result <- err
	}()

	// Give the waiter a moment to block before the worker "exits".
	time.Sleep(10 * time.Millisecond)
	gw.FailPending()

	select {
	case err := <-result:
		if err != ErrWorkerDown {
			t.Fatalf("Wait after FailPending = %v, want ErrWorkerDown", err)
		}
	case <-time.After(time.Second):
		t.Fatal("Wait still blocked after FailPending")
	}
}

func TestWaitTimesOutWithoutDrain(t *testing.T) {
	gw, _, _ := newWiredGateway(t)
	ticket, err := gw.Call("scoreTime", engine.CallArgs{})
	if err != nil {
		t.Fatalf("Call: %v", err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	if _, err := gw.Wait(ctx, ticket); err == nil {
		t.Fatalf("Wait returned nil error for a ticket nobody completed")
	}
}
