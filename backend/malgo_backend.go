//go:build !headless

package backend

import (
	"context"
	"math"
	"sync"
	"sync/atomic"

	"github.com/cenkalti/backoff/v5"
	"github.com/charmbracelet/log"
	"github.com/gen2brain/malgo"

	"github.com/zotley/sabcore/playstate"
	"github.com/zotley/sabcore/sab"
)

// MalgoBackend is the full-duplex production AudioBackend, built on
// gen2brain/malgo as one malgo.Duplex device callback rather than
// separate capture/playback devices: in_ring and out_ring live in one
// region, and one duplex stream keeps them on one clock instead of two
// independently-drifting device callbacks that would each need their own
// synchronization with the worker.
type MalgoBackend struct {
	ctx    *malgo.AllocatedContext
	device *malgo.Device

	region   atomic.Pointer[sab.Region]
	doorbell atomic.Pointer[sab.Doorbell]

	mu          sync.Mutex
	cfg         playstate.Config
	readCursor  atomic.Int64
	writeCursor atomic.Int64
	started     bool

	log *log.Logger
}

// NewMalgoBackend constructs an unconfigured duplex backend.
func NewMalgoBackend(logger *log.Logger) *MalgoBackend {
	return &MalgoBackend{log: logger}
}

func (b *MalgoBackend) Attach(region *sab.Region, doorbell *sab.Doorbell) {
	b.region.Store(region)
	b.doorbell.Store(doorbell)
}

func (b *MalgoBackend) Configure(cfg playstate.Config) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.cfg = cfg

	open := func() (*malgo.AllocatedContext, error) {
		return malgo.InitContext(nil, malgo.ContextConfig{}, nil)
	}
	ctx, err := backoff.Retry(context.Background(), open, backoff.WithMaxTries(5))
	if err != nil {
		if b.log != nil {
			b.log.Error("malgo context init failed", "error", err)
		}
		return
	}
	b.ctx = ctx

	deviceConfig := malgo.DefaultDeviceConfig(malgo.Duplex)
	deviceConfig.Capture.Format = malgo.FormatF32
	deviceConfig.Capture.Channels = uint32(max32(cfg.NchnlsIn, 1))
	deviceConfig.Playback.Format = malgo.FormatF32
	deviceConfig.Playback.Channels = uint32(max32(cfg.Nchnls, 1))
	deviceConfig.SampleRate = uint32(cfg.SampleRate)

	device, err := malgo.InitDevice(ctx.Context, deviceConfig, malgo.DeviceCallbacks{
		Data: b.onFrames,
	})
	if err != nil {
		if b.log != nil {
			b.log.Error("malgo device init failed", "error", err)
		}
		return
	}
	b.device = device
	b.readCursor.Store(0)
	b.writeCursor.Store(0)
}

func max32(v int32, floor int32) int32 {
	if v < floor {
		return floor
	}
	return v
}

// onFrames is the realtime audio callback: it writes captured frames into
// in_ring and reads rendered frames out of out_ring — decrements of
// AvailOutBufs and increments of AvailInBufs come exclusively from here —
// then rings the worker's doorbell so the next steady-state wake has
// fresh buffers to work with.
func (b *MalgoBackend) onFrames(pOutputSample, pInputSamples []byte, frameCount uint32) {
	region := b.region.Load()
	if region == nil {
		return
	}
	nchnlsOut := int(max32(b.cfg.Nchnls, 1))
	nchnlsIn := int(max32(b.cfg.NchnlsIn, 1))
	hw := region.State.Load(sab.HWBufferSize)
	if hw == 0 {
		return
	}

	for i := uint32(0); i < frameCount; i++ {
		outIdx := int(b.readCursor.Add(1)-1) % int(hw)
		for k := 0; k < nchnlsOut; k++ {
			v := float32(region.OutRing.Channel(k)[outIdx])
			putFloat32LE(pOutputSample, (int(i)*nchnlsOut+k)*4, v)
		}

		if len(pInputSamples) > 0 {
			inIdx := int(b.writeCursor.Add(1)-1) % int(hw)
			for k := 0; k < nchnlsIn; k++ {
				v := getFloat32LE(pInputSamples, (int(i)*nchnlsIn+k)*4)
				region.InRing.Channel(k)[inIdx] = float64(v)
			}
		}
	}

	region.State.Add(sab.AvailOutBufs, -int32(frameCount))
	if len(pInputSamples) > 0 {
		region.State.Add(sab.AvailInBufs, int32(frameCount))
	}
	if db := b.doorbell.Load(); db != nil {
		db.Notify()
	}
}

func (b *MalgoBackend) Start() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.started || b.device == nil {
		return nil
	}
	if err := b.device.Start(); err != nil {
		return err
	}
	b.started = true
	return nil
}

func (b *MalgoBackend) Stop() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.started && b.device != nil {
		_ = b.device.Stop()
		b.started = false
	}
}

func (b *MalgoBackend) Close() {
	b.Stop()
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.device != nil {
		b.device.Uninit()
		b.device = nil
	}
	if b.ctx != nil {
		_ = b.ctx.Uninit()
		b.ctx.Free()
		b.ctx = nil
	}
}

func (b *MalgoBackend) OnPlayState(s playstate.State) {
	switch s {
	case playstate.RealtimePerformanceStarted, playstate.RealtimePerformanceResumed:
		if err := b.Start(); err != nil && b.log != nil {
			b.log.Error("malgo device start failed", "error", err)
		}
	case playstate.RealtimePerformancePaused, playstate.RealtimePerformanceEnded, playstate.RenderEnded:
		b.Stop()
	}
}

func putFloat32LE(buf []byte, offset int, v float32) {
	bits := math.Float32bits(v)
	buf[offset+0] = byte(bits)
	buf[offset+1] = byte(bits >> 8)
	buf[offset+2] = byte(bits >> 16)
	buf[offset+3] = byte(bits >> 24)
}

func getFloat32LE(buf []byte, offset int) float32 {
	bits := uint32(buf[offset]) | uint32(buf[offset+1])<<8 | uint32(buf[offset+2])<<16 | uint32(buf[offset+3])<<24
	return math.Float32frombits(bits)
}
