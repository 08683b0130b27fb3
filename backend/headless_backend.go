//go:build headless

package backend

import (
	"github.com/zotley/sabcore/playstate"
	"github.com/zotley/sabcore/sab"
)

// HeadlessBackend is a no-device stand-in, used in builds and CI where no
// real audio device is available.
type HeadlessBackend struct {
	started  bool
	region   *sab.Region
	doorbell *sab.Doorbell
	cfg      playstate.Config
}

func NewHeadlessBackend() *HeadlessBackend {
	return &HeadlessBackend{}
}

func (b *HeadlessBackend) Attach(region *sab.Region, doorbell *sab.Doorbell) {
	b.region = region
	b.doorbell = doorbell
}
func (b *HeadlessBackend) Configure(cfg playstate.Config) { b.cfg = cfg }
func (b *HeadlessBackend) OnPlayState(playstate.State)    {}

func (b *HeadlessBackend) Start() error {
	b.started = true
	return nil
}

func (b *HeadlessBackend) Stop() {
	b.started = false
}

func (b *HeadlessBackend) Close() {
	b.started = false
}
