// Package playstate implements the play-state machine: the single value
// the control host and the audio backend both mirror, the stopable gate
// on the stop operation, and the one-shot configuration handoff that
// happens on realtimePerformanceStarted.
package playstate

// State is one value of the play-state enumeration.
type State int32

const (
	Stop State = iota
	RenderStarted
	RenderEnded
	RealtimePerformanceStarted
	RealtimePerformancePaused
	RealtimePerformanceResumed
	RealtimePerformanceEnded
)

func (s State) String() string {
	switch s {
	case Stop:
		return "stop"
	case RenderStarted:
		return "renderStarted"
	case RenderEnded:
		return "renderEnded"
	case RealtimePerformanceStarted:
		return "realtimePerformanceStarted"
	case RealtimePerformancePaused:
		return "realtimePerformancePaused"
	case RealtimePerformanceResumed:
		return "realtimePerformanceResumed"
	case RealtimePerformanceEnded:
		return "realtimePerformanceEnded"
	default:
		return "unknown"
	}
}

// stopable is the set of states the stop operation is legal from.
var stopable = map[State]bool{
	RealtimePerformanceStarted: true,
	RenderStarted:              true,
	RealtimePerformancePaused:  true,
	RealtimePerformanceResumed: true,
}

// Stopable reports whether stop() is legal from this state.
func (s State) Stopable() bool { return stopable[s] }
