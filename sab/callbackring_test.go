package sab

import "testing"

func TestCallbackRingFIFOOrder(t *testing.T) {
	r := &CallbackRing{}
	var uidA, uidB [16]byte
	uidA[0], uidB[0] = 1, 2

	if err := r.Push(RequestRecord{UID: uidA, Opcode: 7, ArgCount: 1, InlineArgs: [InlineArgCount]int32{11}}, nil, nil); err != nil {
		t.Fatalf("Push A: %v", err)
	}
	if err := r.Push(RequestRecord{UID: uidB, Opcode: 8, ArgCount: 1, InlineArgs: [InlineArgCount]int32{22}}, nil, nil); err != nil {
		t.Fatalf("Push B: %v", err)
	}
	if got := r.Pending(); got != 2 {
		t.Fatalf("Pending() = %d, want 2", got)
	}

	var seen []int32
	r.Drain(func(rec RequestRecord, _ []byte, _ []float64) {
		seen = append(seen, rec.InlineArgs[0])
	})

	if len(seen) != 2 || seen[0] != 11 || seen[1] != 22 {
		t.Fatalf("Drain order = %v, want [11 22] (FIFO)", seen)
	}
	if r.Pending() != 0 {
		t.Fatalf("Pending() after Drain = %d, want 0", r.Pending())
	}
}

func TestCallbackRingSideBuffers(t *testing.T) {
	r := &CallbackRing{}
	var uid [16]byte
	uid[0] = 9

	floats := []float64{1.5, -2.5, 3.5}
	if err := r.Push(RequestRecord{UID: uid, Opcode: 1}, []byte("hello"), floats); err != nil {
		t.Fatalf("Push: %v", err)
	}

	var gotStr string
	var gotF64 []float64
	r.Drain(func(_ RequestRecord, str []byte, f64 []float64) {
		gotStr = string(str)
		gotF64 = append([]float64(nil), f64...)
	})

	if gotStr != "hello" {
		t.Fatalf("str payload = %q, want %q", gotStr, "hello")
	}
	if len(gotF64) != 3 || gotF64[0] != 1.5 || gotF64[2] != 3.5 {
		t.Fatalf("f64 payload = %v, want %v", gotF64, floats)
	}
}

func TestCallbackRingFullReturnsErrFull(t *testing.T) {
	r := &CallbackRing{}
	var uid [16]byte
	for i := 0; i < CallbackRingCapacity; i++ {
		if err := r.Push(RequestRecord{UID: uid, Opcode: int32(i)}, nil, nil); err != nil {
			t.Fatalf("Push #%d: %v", i, err)
		}
	}
	if err := r.Push(RequestRecord{UID: uid, Opcode: 999}, nil, nil); err != ErrFull {
		t.Fatalf("Push on full ring = %v, want ErrFull", err)
	}
}
