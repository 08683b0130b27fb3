// Package sab implements the shared-memory layout that bridges the control
// host, the synthesis worker and the audio backend: the audio state vector,
// the dual audio rings, the MIDI ring and the callback RPC buffers.
package sab

// Layout constants: the fixed shared constants table handed to all three
// agents at construction time.
const (
	// MaxChannels bounds both in_ring and out_ring channel counts.
	MaxChannels = 16

	// MaxHardwareBufferSize is the largest HWBufferSize (_B) a performance
	// may request, in frames per channel.
	MaxHardwareBufferSize = 8192

	// MidiBufferPayloadSize is the word count of one MIDI event
	// (status, data1, data2).
	MidiBufferPayloadSize = 3

	// MidiBufferSize is the total word capacity of the MIDI ring.
	// MidiBufferSize / MidiBufferPayloadSize events fit at once.
	MidiBufferSize = 3 * 256

	// CallbackDataBufferSize is the byte/float capacity of each callback
	// argument region (callback_str_data in bytes, callback_f64_data in
	// float64 slots).
	CallbackDataBufferSize = 64 * 1024

	// CallbackRingCapacity bounds the number of in-flight callback requests.
	CallbackRingCapacity = 256
)
