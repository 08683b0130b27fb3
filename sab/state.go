package sab

import "sync/atomic"

// Field identifies one word of the shared audio state vector.
type Field int

const (
	IsPerforming Field = iota
	IsPaused
	Stop
	// AtomicNotify is the doorbell word: the worker waits on it, the
	// audio backend (or the host, on stop) stores into it and notifies.
	// There is exactly one doorbell word — no alias.
	AtomicNotify
	Nchnls
	NchnlsIn
	SampleRate
	HWBufferSize
	SWBufferSize
	AvailInBufs
	AvailOutBufs
	InputReadIndex
	OutputWriteIndex
	IsRequestingRTMIDI
	AvailRTMIDIEvents
	RTMIDIIndex

	fieldCount
)

// State is the atomically-accessed audio state vector. Every access goes
// through sync/atomic on the backing array — no field is ever touched with
// a plain read or write, since all three agents may be on separate OS
// threads.
//
// template holds the initial values ResetToTemplate restores to. Most
// fields template to zero, but HWBufferSize/SWBufferSize are configured
// once by the host at initialize time and must survive every subsequent
// ResetToTemplate, since every performance after the first would
// otherwise start with no configured ring/block size.
type State struct {
	words    [fieldCount]atomic.Int32
	template [fieldCount]int32
}

// NewState allocates a fresh State already stamped with the initial
// template: counters and cursors all zero before the first start.
func NewState() *State {
	s := &State{}
	s.ResetToTemplate()
	return s
}

// SetBufferSizes stamps HWBufferSize/SWBufferSize into both the live
// state and the template, so they survive every future ResetToTemplate.
// Called once by host.Initialize.
func (s *State) SetBufferSizes(hw, sw int32) {
	s.template[HWBufferSize] = hw
	s.template[SWBufferSize] = sw
	s.words[HWBufferSize].Store(hw)
	s.words[SWBufferSize].Store(sw)
}

// ResetToTemplate restores every field to its initial template value.
// Used on construction, and again whenever a performance ends or Reset()
// is invoked.
func (s *State) ResetToTemplate() {
	for f := Field(0); f < fieldCount; f++ {
		s.words[f].Store(s.template[f])
	}
}

// Load atomically reads a field.
func (s *State) Load(f Field) int32 { return s.words[f].Load() }

// Store atomically writes a field.
func (s *State) Store(f Field, v int32) { s.words[f].Store(v) }

// Add atomically adds delta to a field and returns the new value.
func (s *State) Add(f Field, delta int32) int32 { return s.words[f].Add(delta) }

// CompareAndSwap atomically compares and swaps a field.
func (s *State) CompareAndSwap(f Field, old, new int32) bool {
	return s.words[f].CompareAndSwap(old, new)
}

// Snapshot copies every field into a plain array — used by tests to
// compare whole state vectors without racing the live state.
func (s *State) Snapshot() [fieldCount]int32 {
	var out [fieldCount]int32
	for f := Field(0); f < fieldCount; f++ {
		out[f] = s.words[f].Load()
	}
	return out
}

// EqualsTemplate reports whether every field currently equals its initial
// value. Holds after every performance end.
func (s *State) EqualsTemplate() bool {
	for f := Field(0); f < fieldCount; f++ {
		if s.words[f].Load() != s.template[f] {
			return false
		}
	}
	return true
}
