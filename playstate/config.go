package playstate

import "github.com/zotley/sabcore/sab"

// Config is the one-shot snapshot the host hands the audio backend on
// realtimePerformanceStarted: a single value delivered once per
// performance, never mutated field-by-field afterward.
type Config struct {
	Nchnls             int32
	NchnlsIn           int32
	SampleRate         int32
	HWBufferSize       int32
	SWBufferSize       int32
	IsRequestingRTMIDI bool
}

// PrepareRealtimePerformance reads the performance's configuration
// (channel counts, sample rate, buffer sizes, MIDI appetite) out of the
// shared state vector, after the worker has published it.
func PrepareRealtimePerformance(state *sab.State) Config {
	return Config{
		Nchnls:             state.Load(sab.Nchnls),
		NchnlsIn:           state.Load(sab.NchnlsIn),
		SampleRate:         state.Load(sab.SampleRate),
		HWBufferSize:       state.Load(sab.HWBufferSize),
		SWBufferSize:       state.Load(sab.SWBufferSize),
		IsRequestingRTMIDI: state.Load(sab.IsRequestingRTMIDI) != 0,
	}
}
