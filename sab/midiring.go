package sab

import "sync/atomic"

// MidiEvent is one (status, data1, data2) triple.
type MidiEvent struct {
	Status, Data1, Data2 int32
}

// MidiRing is the flat int32 ring the host writes into on MIDI input and
// the worker drains once per wake. It holds MidiBufferSize/
// MidiBufferPayloadSize events.
//
// The host is the sole producer (OnMIDI) and the worker is the sole
// consumer, draining once per wake; the pending count and the consumer
// cursor live in the State vector (AvailRTMIDIEvents, RTMIDIIndex), not
// here — MidiRing holds the payload words plus the producer's own slot
// cursor.
type MidiRing struct {
	words [MidiBufferSize]int32
	// writeIndex tracks the host's next free slot independently of the
	// worker-owned RTMIDIIndex in State, so concurrent OnMIDI calls from
	// multiple input sources never race each other's slot computation.
	writeIndex atomic.Uint32
}

func (r *MidiRing) capacity() int { return MidiBufferSize / MidiBufferPayloadSize }

// Push appends one event at the next producer slot. The caller (host.OnMIDI)
// is responsible for the paired AvailRTMIDIEvents increment in State;
// Push only places the payload words atomically.
func (r *MidiRing) Push(ev MidiEvent) {
	slot := r.writeIndex.Add(1) - 1
	idx := (int(slot) % r.capacity()) * MidiBufferPayloadSize
	atomic.StoreInt32(&r.words[idx], ev.Status)
	atomic.StoreInt32(&r.words[idx+1], ev.Data1)
	atomic.StoreInt32(&r.words[idx+2], ev.Data2)
}

// Read loads the event at a given ring index (0-based event slot, not
// word offset), used by the worker while draining.
func (r *MidiRing) Read(eventSlot int) MidiEvent {
	idx := (eventSlot % r.capacity()) * MidiBufferPayloadSize
	return MidiEvent{
		Status: atomic.LoadInt32(&r.words[idx]),
		Data1:  atomic.LoadInt32(&r.words[idx+1]),
		Data2:  atomic.LoadInt32(&r.words[idx+2]),
	}
}
