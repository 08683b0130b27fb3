package worker

import (
	"github.com/zotley/sabcore/playstate"
	"github.com/zotley/sabcore/sab"
)

// RunOffline renders to completion with no audio device or realtime
// doorbell: perform_block in a tight loop with pause handling and
// callback draining, for bounce-to-disk style rendering. Exits when the
// engine signals end-of-performance or stop is requested, then
// broadcasts renderEnded.
func (w *Worker) RunOffline() {
	state := w.region.State
	w.pauseBell.Drain()
	for {
		if state.Load(sab.Stop) == 1 {
			break
		}
		if state.Load(sab.IsPaused) == 1 {
			w.pauseBell.Wait()
			w.pauseBell.Rearm()
			continue
		}

		w.dispatcher.Drain()
		if w.engine.PerformBlock() != 0 {
			break
		}
	}

	state.Store(sab.IsPerforming, 0)
	w.machine.Transition(playstate.RenderEnded)
}
