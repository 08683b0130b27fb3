package backend

import (
	"sync"

	"github.com/zotley/sabcore/playstate"
	"github.com/zotley/sabcore/sab"
)

// TestBackend is a no-device AudioBackend for unit tests: it records
// every play-state transition and configuration it's handed instead of
// touching any real device, playing the same role the headless build tag
// plays for the demo CLI.
type TestBackend struct {
	mu         sync.Mutex
	region     *sab.Region
	doorbell   *sab.Doorbell
	cfg        playstate.Config
	states     []playstate.State
	started    bool
	startCount int
	stopCount  int
}

func NewTestBackend() *TestBackend {
	return &TestBackend{}
}

func (b *TestBackend) Attach(region *sab.Region, doorbell *sab.Doorbell) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.region = region
	b.doorbell = doorbell
}

// PumpFrames simulates one realtime callback: it subtracts n from
// AvailOutBufs and, if withInput is true, adds n to AvailInBufs, then
// wakes the worker's doorbell — the same update-then-notify sequence a
// real backend's device callback performs, without opening any device.
// The ring contents themselves are neither read nor written.
func (b *TestBackend) PumpFrames(n int32, withInput bool) {
	b.mu.Lock()
	region, doorbell := b.region, b.doorbell
	b.mu.Unlock()
	if region == nil {
		return
	}
	region.State.Add(sab.AvailOutBufs, -n)
	if withInput {
		region.State.Add(sab.AvailInBufs, n)
	}
	if doorbell != nil {
		doorbell.Notify()
	}
}

func (b *TestBackend) Configure(cfg playstate.Config) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.cfg = cfg
}

func (b *TestBackend) OnPlayState(s playstate.State) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.states = append(b.states, s)
}

func (b *TestBackend) Start() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.started = true
	b.startCount++
	return nil
}

func (b *TestBackend) Stop() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.started = false
	b.stopCount++
}

func (b *TestBackend) Close() { b.Stop() }

// States returns every play-state transition observed so far, for test
// assertions.
func (b *TestBackend) States() []playstate.State {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]playstate.State(nil), b.states...)
}

// Config returns the last Config handed to Configure.
func (b *TestBackend) Config() playstate.Config {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.cfg
}
