package rpc

import (
	"time"

	"github.com/google/uuid"
)

// Status is a callback-RPC ticket's lifecycle state.
type Status int32

const (
	StatusPending Status = iota
	StatusRunning
	StatusOK
	StatusError
	StatusTimeout
	StatusWorkerDown
)

func (s Status) Terminal() bool {
	return s != StatusPending && s != StatusRunning
}

func (s Status) String() string {
	switch s {
	case StatusPending:
		return "pending"
	case StatusRunning:
		return "running"
	case StatusOK:
		return "ok"
	case StatusError:
		return "error"
	case StatusTimeout:
		return "timeout"
	case StatusWorkerDown:
		return "worker_down"
	default:
		return "unknown"
	}
}

// completionTTL and maxCompletions bound the return queue: a host that
// never polls a ticket must not leak it forever.
const (
	completionTTL  = 60 * time.Second
	maxCompletions = 256
)

// completion is one entry in the Gateway's return queue.
type completion struct {
	ticket   uuid.UUID
	status   Status
	result   any
	err      error
	observed bool // two-read eviction: first terminal read marks, second removes
	created  time.Time
}

// pruneCompletions removes entries that are either too old (TTL) or past
// the cap (oldest evicted first). Called at the top of every new Call so
// a host that forgets to poll never grows the map without bound.
func pruneCompletions(completions map[uuid.UUID]*completion) {
	now := time.Now()
	for k, c := range completions {
		if now.Sub(c.created) > completionTTL {
			delete(completions, k)
		}
	}
	for len(completions) > maxCompletions {
		var oldestKey uuid.UUID
		var oldestTime time.Time
		first := true
		for k, c := range completions {
			if first || c.created.Before(oldestTime) {
				oldestKey = k
				oldestTime = c.created
				first = false
			}
		}
		delete(completions, oldestKey)
	}
}
