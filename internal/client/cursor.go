package client

import (
	"context"

	"golang.org/x/time/rate"

	"syncboard/internal/geom"
	"syncboard/internal/protocol"
)

// CursorOutbox is the explicit best-effort channel for local cursor
// positions. The contract is drop-if-stale: a capacity-one buffer where a
// newer position replaces an unsent one, plus a rate limit on the wire.
// Nothing here is queued, retried, or acknowledged; a lost update is
// corrected by the next one.
type CursorOutbox struct {
	ch      chan geom.Point
	limiter *rate.Limiter
	emit    EmitFunc
}

// NewCursorOutbox sends at most hz updates per second through emit.
func NewCursorOutbox(emit EmitFunc, hz float64) *CursorOutbox {
	if hz <= 0 {
		hz = 30
	}
	return &CursorOutbox{
		ch:      make(chan geom.Point, 1),
		limiter: rate.NewLimiter(rate.Limit(hz), 1),
		emit:    emit,
	}
}

// Move records the latest position. Never blocks: if an older position is
// still buffered it is discarded first.
func (o *CursorOutbox) Move(p geom.Point) {
	for {
		select {
		case o.ch <- p:
			return
		default:
			select {
			case <-o.ch: // stale, drop it
			default:
			}
		}
	}
}

// Run forwards buffered positions until the context ends. Each send waits
// for the rate limiter, then takes whatever position is newest at that
// moment.
func (o *CursorOutbox) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case p := <-o.ch:
			if err := o.limiter.Wait(ctx); err != nil {
				return
			}
			// A newer position may have arrived while we waited.
			select {
			case newer := <-o.ch:
				p = newer
			default:
			}
			o.emit(protocol.Message{Type: protocol.TypeCursorMove, X: p.X, Y: p.Y})
		}
	}
}
