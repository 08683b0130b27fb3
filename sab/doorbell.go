package sab

// Doorbell is a futex-style wait/notify pair: a single atomic word in
// State plus a buffered channel used to wake a blocked goroutine without
// busy-polling.
//
// Wait's return value never gates anything — it returns once notified,
// and whether the loop around it should keep running is entirely the
// caller's decision. The render loop terminates only on its own explicit
// stop checks, never because a wait "failed".
type Doorbell struct {
	state *State
	field Field
	wake  chan struct{}
}

// NewDoorbell binds a doorbell to one field of state. The worker waits on
// it; some other agent (the audio backend, or the host on stop/resume)
// notifies it.
func NewDoorbell(state *State, field Field) *Doorbell {
	return &Doorbell{state: state, field: field, wake: make(chan struct{}, 1)}
}

// Notify stores 1 into the backing field and wakes exactly one blocked
// Wait call (or primes the next one, if nobody is currently waiting).
func (d *Doorbell) Notify() {
	d.state.Store(d.field, 1)
	select {
	case d.wake <- struct{}{}:
	default:
	}
}

// Wait blocks until Notify has been called at least once since the last
// Wait/Drain. It never returns early on spurious wakeups because the
// channel only ever carries real Notify calls.
func (d *Doorbell) Wait() {
	<-d.wake
}

// Rearm stores 0 into the backing field, re-arming the doorbell for the
// next wake.
func (d *Doorbell) Rearm() {
	d.state.Store(d.field, 0)
}

// Drain discards any primed-but-unconsumed wake and clears the backing
// field. A notify that lands after the worker has already decided to exit
// (a backend callback still firing during teardown, a stop notify the
// exit path never consumed) would otherwise carry over and fire the first
// Wait of the next performance with nothing behind it.
func (d *Doorbell) Drain() {
	select {
	case <-d.wake:
	default:
	}
	d.state.Store(d.field, 0)
}
