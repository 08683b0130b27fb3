package sab

// Region is the complete shared-memory layout: one State vector, two
// audio rings, one MIDI ring, and one callback RPC ring. The
// control host allocates exactly one Region per performance lifetime and
// hands it — by pointer, never copied — to the synthesis worker and to
// the audio backend.
type Region struct {
	State    *State
	InRing   *AudioRing
	OutRing  *AudioRing
	Midi     *MidiRing
	Callback *CallbackRing
}

// NewRegion allocates a fresh Region with State already stamped with the
// initial template.
func NewRegion() *Region {
	return &Region{
		State:    NewState(),
		InRing:   NewAudioRing(),
		OutRing:  NewAudioRing(),
		Midi:     &MidiRing{},
		Callback: &CallbackRing{},
	}
}

// Reset reallocates the audio/MIDI rings and restores the state vector to
// its template, so a fresh performance never observes a stale cursor or
// residual sample from the previous one. Reallocation is safe only
// because every backend re-reads the region's configuration on the next
// performance start (see backend.Configure).
//
// The callback ring is the one exception: host.Initialize wires
// rpc.Gateway and rpc.Dispatcher directly to this Region's original
// *CallbackRing pointer, so swapping it for a new allocation here would
// silently orphan both — Gateway.Call would keep enqueuing into a ring the
// worker's Dispatcher never sees again. Callback.Clear() drops any pending
// records in place instead, preserving the pointer both sides already
// hold.
func (r *Region) Reset() {
	r.State.ResetToTemplate()
	r.InRing = NewAudioRing()
	r.OutRing = NewAudioRing()
	r.Midi = &MidiRing{}
	r.Callback.Clear()
}
