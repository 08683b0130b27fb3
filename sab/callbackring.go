package sab

import "sync/atomic"

// Callback RPC record layout. The ring holds fixed-size records; each
// record's uid, opcode, inline scalar args, and the length of any
// side-buffer payload are all inline words — there is no implicit,
// unbounded-size record. Every record carries explicit StrLen/F64Len
// fields that bound exactly how much of callback_str_data/
// callback_f64_data belongs to it.
const (
	// CallbackRecordWords is the word width of one request record.
	CallbackRecordWords = 16

	recUIDWords  = 4 // [0:4) — raw bytes of a uuid.UUID, 4 words
	recOpcode    = 4
	recArgCount  = 5
	recInlineLo  = 6 // [6:10) — up to 4 inline int32 scalar args
	recInlineHi  = 10
	recStrOffset = 10
	recStrLen    = 11
	recF64Offset = 12
	recF64Len    = 13
	// words 14, 15 reserved for future argument kinds.
)

// InlineArgCount is how many scalar int32 arguments fit directly in a
// record without touching either side buffer.
const InlineArgCount = recInlineHi - recInlineLo

// RequestRecord is the decoded form of one ring slot.
type RequestRecord struct {
	UID        [16]byte
	Opcode     int32
	ArgCount   int32
	InlineArgs [InlineArgCount]int32
	StrOffset  int32 // -1 if no string argument
	StrLen     int32
	F64Offset  int32 // -1 if no float-array argument
	F64Len     int32
}

func (r RequestRecord) encode(words []int32) {
	for i := 0; i < recUIDWords; i++ {
		lo := i * 4
		words[i] = int32(uint32(r.UID[lo]) | uint32(r.UID[lo+1])<<8 | uint32(r.UID[lo+2])<<16 | uint32(r.UID[lo+3])<<24)
	}
	words[recOpcode] = r.Opcode
	words[recArgCount] = r.ArgCount
	for i := 0; i < InlineArgCount; i++ {
		words[recInlineLo+i] = r.InlineArgs[i]
	}
	words[recStrOffset] = r.StrOffset
	words[recStrLen] = r.StrLen
	words[recF64Offset] = r.F64Offset
	words[recF64Len] = r.F64Len
}

func decodeRequestRecord(words []int32) RequestRecord {
	var r RequestRecord
	for i := 0; i < recUIDWords; i++ {
		w := uint32(words[i])
		lo := i * 4
		r.UID[lo] = byte(w)
		r.UID[lo+1] = byte(w >> 8)
		r.UID[lo+2] = byte(w >> 16)
		r.UID[lo+3] = byte(w >> 24)
	}
	r.Opcode = words[recOpcode]
	r.ArgCount = words[recArgCount]
	for i := 0; i < InlineArgCount; i++ {
		r.InlineArgs[i] = words[recInlineLo+i]
	}
	r.StrOffset = words[recStrOffset]
	r.StrLen = words[recStrLen]
	r.F64Offset = words[recF64Offset]
	r.F64Len = words[recF64Len]
	return r
}

// CallbackRing is callback_req_ring plus its two side buffers
// (callback_str_data, callback_f64_data). The host is the single producer;
// the worker is the single consumer, draining once per wake — so
// head/tail bookkeeping needs only atomics, no mutex.
type CallbackRing struct {
	entries [CallbackRingCapacity * CallbackRecordWords]int32
	head    atomic.Uint32 // next free slot, host-owned
	tail    atomic.Uint32 // next slot to drain, worker-owned

	strData   [CallbackDataBufferSize]byte
	strCursor atomic.Uint32 // single-writer (host) append cursor
	f64Data   [CallbackDataBufferSize]float64
	f64Cursor atomic.Uint32
}

// ErrFull is returned by Push when the ring has no free slot.
var ErrFull = errFull{}

type errFull struct{}

func (errFull) Error() string { return "sab: callback ring full" }

// Push enqueues a request record, copying any string/float-array payload
// into the side buffers first. Host-side only.
func (c *CallbackRing) Push(rec RequestRecord, str []byte, f64 []float64) error {
	head := c.head.Load()
	tail := c.tail.Load()
	if head-tail >= CallbackRingCapacity {
		return ErrFull
	}

	if len(str) > 0 {
		off := c.strCursor.Load()
		if int(off)+len(str) > CallbackDataBufferSize {
			c.strCursor.Store(0)
			off = 0
		}
		copy(c.strData[off:], str)
		c.strCursor.Store(off + uint32(len(str)))
		rec.StrOffset = int32(off)
		rec.StrLen = int32(len(str))
	} else {
		rec.StrOffset, rec.StrLen = -1, 0
	}

	if len(f64) > 0 {
		off := c.f64Cursor.Load()
		if int(off)+len(f64) > CallbackDataBufferSize {
			c.f64Cursor.Store(0)
			off = 0
		}
		copy(c.f64Data[off:], f64)
		c.f64Cursor.Store(off + uint32(len(f64)))
		rec.F64Offset = int32(off)
		rec.F64Len = int32(len(f64))
	} else {
		rec.F64Offset, rec.F64Len = -1, 0
	}

	slot := int(head % CallbackRingCapacity)
	rec.encode(c.entries[slot*CallbackRecordWords : (slot+1)*CallbackRecordWords])
	c.head.Add(1)
	return nil
}

// Drain calls fn once per pending record, in FIFO submission order, then
// advances the tail. Worker-side only.
func (c *CallbackRing) Drain(fn func(RequestRecord, []byte, []float64)) {
	head := c.head.Load()
	tail := c.tail.Load()
	for tail != head {
		slot := int(tail % CallbackRingCapacity)
		rec := decodeRequestRecord(c.entries[slot*CallbackRecordWords : (slot+1)*CallbackRecordWords])

		var str []byte
		if rec.StrLen > 0 {
			str = c.strData[rec.StrOffset : rec.StrOffset+rec.StrLen]
		}
		var f64 []float64
		if rec.F64Len > 0 {
			f64 = c.f64Data[rec.F64Offset : rec.F64Offset+rec.F64Len]
		}
		fn(rec, str, f64)
		tail++
	}
	c.tail.Store(tail)
}

// Pending reports how many records are queued but not yet drained.
func (c *CallbackRing) Pending() int {
	return int(c.head.Load() - c.tail.Load())
}

// Clear drops every pending record by aligning tail to head, in place —
// used by Region.Reset so the Gateway/Dispatcher pair wired at
// host.Initialize keeps pointing at a live ring instead of one orphaned
// by a fresh allocation.
func (c *CallbackRing) Clear() {
	c.tail.Store(c.head.Load())
}
