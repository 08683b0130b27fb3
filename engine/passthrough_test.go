package engine

import (
	"math"
	"testing"

	"pgregory.net/rapid"
)

func TestPassthroughRoundTrip(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		e := NewPassthrough(48000, 32, 2, 2, 32768)
		x := rapid.Float64Range(-1, 1).Draw(t, "x")

		// a sample × 0dBFS ÷ 0dBFS round-trips up to floating point error
		for i := range e.spin {
			e.spin[i] = x * e.zerodBFS
		}
		e.PerformBlock()
		for i := range e.spout {
			got := e.spout[i] / e.zerodBFS
			if math.Abs(got-x) > 1e-9 {
				t.Fatalf("round trip: got %v, want %v", got, x)
			}
		}
	})
}

func TestPassthroughCallUnknownOp(t *testing.T) {
	e := NewPassthrough(48000, 32, 2, 0, 32768)
	if _, err := e.Call("nope", CallArgs{}); err != ErrUnknownOp {
		t.Fatalf("Call(unregistered) = %v, want ErrUnknownOp", err)
	}
}

func TestPassthroughCallRegistered(t *testing.T) {
	e := NewPassthrough(48000, 32, 2, 0, 32768)
	e.RegisterCall("score_time", func(args CallArgs) (CallResult, error) {
		return CallResult{Float64: 1.5}, nil
	})
	res, err := e.Call("score_time", CallArgs{})
	if err != nil {
		t.Fatalf("Call: %v", err)
	}
	if res.Float64 != 1.5 {
		t.Fatalf("result = %v, want 1.5", res.Float64)
	}
}

func TestPassthroughMIDI(t *testing.T) {
	e := NewPassthrough(48000, 32, 2, 0, 32768)
	e.PushMIDI(0x90, 60, 100)
	e.PushMIDI(0x80, 60, 0)
	ev, count := e.LastMIDI()
	if count != 2 {
		t.Fatalf("midi count = %d, want 2", count)
	}
	if ev != [3]int32{0x80, 60, 0} {
		t.Fatalf("last midi = %v, want [0x80 60 0]", ev)
	}
}

func TestPassthroughReset(t *testing.T) {
	e := NewPassthrough(48000, 32, 2, 2, 32768)
	e.spin[0] = 1
	e.spout[0] = 1
	e.Stop()
	if err := e.Reset(); err != nil {
		t.Fatalf("Reset: %v", err)
	}
	if e.spin[0] != 0 || e.spout[0] != 0 {
		t.Fatalf("Reset did not clear spin/spout")
	}
	if e.stopped {
		t.Fatalf("Reset did not clear stopped")
	}
}
