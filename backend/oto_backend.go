//go:build !headless

package backend

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/ebitengine/oto/v3"

	"github.com/zotley/sabcore/playstate"
	"github.com/zotley/sabcore/sab"
)

// OtoBackend is an output-only AudioBackend built on ebitengine/oto/v3:
// an atomic pointer to the live region plus a pre-allocated sample
// buffer, reading an arbitrary channel count straight out of
// sab.AudioRing.
type OtoBackend struct {
	ctx    *oto.Context
	player *oto.Player

	region   atomic.Pointer[sab.Region]
	doorbell atomic.Pointer[sab.Doorbell]

	mu         sync.Mutex
	cfg        playstate.Config
	readCursor atomic.Int64
	sampleBuf  []float32
	started    bool
}

// NewOtoBackend constructs an unconfigured backend; Configure opens the
// device once play state reaches realtimePerformanceStarted.
func NewOtoBackend() *OtoBackend {
	return &OtoBackend{}
}

func (b *OtoBackend) Attach(region *sab.Region, doorbell *sab.Doorbell) {
	b.region.Store(region)
	b.doorbell.Store(doorbell)
}

// Configure opens (or reopens) the oto context for the performance's
// channel count and sample rate. Device-open failures are often
// transient (device briefly busy right after a previous Close), so this
// retries with backoff — a retry purely around acquiring the device
// handle, never around any shared-memory protocol step.
func (b *OtoBackend) Configure(cfg playstate.Config) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.cfg = cfg

	nchnls := int(cfg.Nchnls)
	if nchnls < 1 {
		nchnls = 1
	}

	open := func() (*oto.Context, error) {
		opts := &oto.NewContextOptions{
			SampleRate:   int(cfg.SampleRate),
			ChannelCount: nchnls,
			Format:       oto.FormatFloat32LE,
			BufferSize:   4 * time.Millisecond,
		}
		ctx, ready, err := oto.NewContext(opts)
		if err != nil {
			return nil, err
		}
		<-ready
		return ctx, nil
	}

	ctx, err := backoff.Retry(context.Background(), open, backoff.WithMaxTries(5))
	if err != nil {
		return
	}

	b.ctx = ctx
	b.player = ctx.NewPlayer(b)
	b.sampleBuf = make([]float32, 4096*nchnls)
	b.readCursor.Store(0)
}

// Read implements io.Reader for oto.Player, pulling interleaved samples
// straight out of the shared region's out_ring, then rings the worker's
// doorbell: the backend is what drives the worker's steady-state wake
// cycle during realtime playback.
func (b *OtoBackend) Read(p []byte) (n int, err error) {
	region := b.region.Load()
	nchnls := int(b.cfg.Nchnls)
	if nchnls < 1 {
		nchnls = 1
	}
	if region == nil {
		clear(p)
		return len(p), nil
	}

	frameBytes := 4 * nchnls
	numFrames := len(p) / frameBytes
	need := numFrames * nchnls
	if len(b.sampleBuf) < need {
		b.sampleBuf = make([]float32, need)
	}
	samples := b.sampleBuf[:need]

	hw := region.State.Load(sab.HWBufferSize)
	if hw == 0 {
		clear(p)
		return len(p), nil
	}

	for i := 0; i < numFrames; i++ {
		idx := int(b.readCursor.Add(1)-1) % int(hw)
		for k := 0; k < nchnls; k++ {
			samples[i*nchnls+k] = float32(region.OutRing.Channel(k)[idx])
		}
	}
	region.State.Add(sab.AvailOutBufs, -int32(numFrames))
	if db := b.doorbell.Load(); db != nil {
		db.Notify()
	}

	copy(p, float32SliceBytes(samples))
	return len(p), nil
}

func (b *OtoBackend) Start() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if !b.started && b.player != nil {
		b.player.Play()
		b.started = true
	}
	return nil
}

func (b *OtoBackend) Stop() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.started && b.player != nil {
		b.player.Pause()
		b.started = false
	}
}

func (b *OtoBackend) Close() {
	b.Stop()
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.player != nil {
		b.player.Close()
		b.player = nil
	}
}

func (b *OtoBackend) OnPlayState(s playstate.State) {
	switch s {
	case playstate.RealtimePerformanceStarted, playstate.RealtimePerformanceResumed:
		_ = b.Start()
	case playstate.RealtimePerformancePaused, playstate.RealtimePerformanceEnded, playstate.RenderEnded:
		b.Stop()
	}
}
