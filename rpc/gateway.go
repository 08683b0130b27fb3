package rpc

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/zotley/sabcore/engine"
	"github.com/zotley/sabcore/sab"
)

// ErrStaleTicket is returned by Poll/Wait for a ticket the gateway has
// already pruned or never issued.
var ErrStaleTicket = fmt.Errorf("rpc: stale or unknown ticket")

// ErrWorkerDown is returned for a ticket whose render loop exited before
// completing it.
var ErrWorkerDown = fmt.Errorf("rpc: worker exited with call pending")

// Gateway is the host side of the callback RPC: it encodes named calls
// into sab.RequestRecord and pushes them onto the ring, and tracks each
// ticket's completion in a return queue until Wait hands back its result,
// or until a Poll caller has read it twice in a terminal state. Host and worker share one address space,
// so the return queue is just a map — replies need no second ring.
type Gateway struct {
	mu sync.Mutex

	ring *sab.CallbackRing
	ops  *OpcodeTable

	completions map[uuid.UUID]*completion
	waiters     map[uuid.UUID]chan struct{}

	// WorkerAlive reports whether the synthesis worker is still draining
	// the ring. nil means "always alive" (tests with no real worker).
	WorkerAlive func() bool
}

// NewGateway builds a Gateway over an already-allocated ring and opcode
// table (normally sab.Region.Callback and a table built once at startup).
func NewGateway(ring *sab.CallbackRing, ops *OpcodeTable) *Gateway {
	return &Gateway{
		ring:        ring,
		ops:         ops,
		completions: make(map[uuid.UUID]*completion),
		waiters:     make(map[uuid.UUID]chan struct{}),
	}
}

// Call submits a named engine call and returns its ticket. The call is
// async: use Poll or Wait to retrieve the result once the worker has
// drained and executed it.
func (g *Gateway) Call(op string, args engine.CallArgs) (uuid.UUID, error) {
	code, ok := g.ops.Code(op)
	if !ok {
		return uuid.Nil, engine.ErrUnknownOp
	}
	if len(args.Ints) > sab.InlineArgCount {
		return uuid.Nil, fmt.Errorf("rpc: %d inline args exceeds limit of %d", len(args.Ints), sab.InlineArgCount)
	}

	g.mu.Lock()
	defer g.mu.Unlock()
	pruneCompletions(g.completions)

	ticket := uuid.New()
	rec := sab.RequestRecord{
		UID:      ticket,
		Opcode:   code,
		ArgCount: int32(len(args.Ints)),
	}
	copy(rec.InlineArgs[:], args.Ints)

	if err := g.ring.Push(rec, []byte(args.Str), args.Floats); err != nil {
		return uuid.Nil, err
	}

	g.completions[ticket] = &completion{ticket: ticket, status: StatusPending, created: time.Now()}
	return ticket, nil
}

// complete is called by the worker-side Dispatcher once it has executed a
// drained record.
func (g *Gateway) complete(ticket uuid.UUID, result engine.CallResult, err error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	comp, ok := g.completions[ticket]
	if !ok {
		return
	}
	comp.result = result
	comp.err = err
	if err != nil {
		comp.status = StatusError
	} else {
		comp.status = StatusOK
	}
	if ch, ok := g.waiters[ticket]; ok {
		close(ch)
		delete(g.waiters, ticket)
	}
}

// FailPending marks every not-yet-terminal ticket worker-down and wakes
// its waiters. The host calls this when the render-loop goroutine exits,
// so no submitted ticket is ever left dangling: a Wait blocked on a call
// the worker will never drain resolves immediately with ErrWorkerDown.
func (g *Gateway) FailPending() {
	g.mu.Lock()
	defer g.mu.Unlock()
	for ticket, comp := range g.completions {
		if comp.status.Terminal() {
			continue
		}
		comp.status = StatusWorkerDown
		comp.err = ErrWorkerDown
		if ch, ok := g.waiters[ticket]; ok {
			close(ch)
			delete(g.waiters, ticket)
		}
	}
}

// Poll returns a ticket's current status without blocking, evicting it
// from the return queue on the second terminal-state read so a caller
// gets one repeatable look at a result before it is reclaimed.
func (g *Gateway) Poll(ticket uuid.UUID) (Status, engine.CallResult, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	comp, ok := g.completions[ticket]
	if !ok {
		return StatusError, engine.CallResult{}, ErrStaleTicket
	}

	status := comp.status
	if !status.Terminal() && g.WorkerAlive != nil && !g.WorkerAlive() {
		status = StatusWorkerDown
		comp.status = status
	}

	if status.Terminal() {
		if comp.observed {
			delete(g.completions, ticket)
		} else {
			comp.observed = true
		}
	}

	result, _ := comp.result.(engine.CallResult)
	return status, result, comp.err
}

// Wait blocks until the ticket reaches a terminal state or ctx is done.
// Handing back a terminal result removes the ticket from the return
// queue, so a later Poll or Wait on it reports ErrStaleTicket.
func (g *Gateway) Wait(ctx context.Context, ticket uuid.UUID) (engine.CallResult, error) {
	g.mu.Lock()
	comp, ok := g.completions[ticket]
	if !ok {
		g.mu.Unlock()
		return engine.CallResult{}, ErrStaleTicket
	}
	if comp.status.Terminal() {
		delete(g.completions, ticket)
		g.mu.Unlock()
		result, _ := comp.result.(engine.CallResult)
		err := comp.err
		if comp.status == StatusError && err == nil {
			err = fmt.Errorf("rpc: call failed")
		}
		return result, err
	}
	ch, ok := g.waiters[ticket]
	if !ok {
		ch = make(chan struct{})
		g.waiters[ticket] = ch
	}
	g.mu.Unlock()

	select {
	case <-ch:
		g.mu.Lock()
		delete(g.completions, ticket)
		g.mu.Unlock()
		result, _ := comp.result.(engine.CallResult)
		return result, comp.err
	case <-ctx.Done():
		return engine.CallResult{}, ctx.Err()
	}
}
