package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"bookfeed/internal/domain"
	"bookfeed/internal/infra"
)

const (
	stateIdle int32 = iota
	stateProcessing
)

// processor drains the session queue strictly one message at a time. It is
// the only goroutine that touches the session's engine, which makes the
// Idle/Processing pair a real state machine rather than a lock: there is
// never a second apply call in flight.
type processor struct {
	sess  *Session
	pub   *Publisher
	depth int
	state atomic.Int32
}

func (p *processor) run(ctx context.Context) {
	defer close(p.sess.done)

	for {
		select {
		case <-ctx.Done():
			return
		case <-p.sess.notify:
		}

		if !p.step() {
			return
		}
		// One message per wakeup. Re-arming instead of looping means a burst
		// of N messages takes N discrete scheduling turns, so transport reads
		// and consumers get to run between book updates.
		if p.sess.queue.Len() > 0 {
			p.sess.wake()
		}
	}
}

// step processes at most one queued message. It returns false once the
// session has been invalidated; the caller stops draining for good.
func (p *processor) step() bool {
	if !p.sess.Alive() {
		return false
	}

	raw, ok := p.sess.queue.Pop()
	if !ok {
		return true
	}

	p.state.Store(stateProcessing)
	start := time.Now()
	res := p.apply(raw)
	p.state.Store(stateIdle)

	if !p.sess.Alive() {
		// Superseded mid-flight: discard the result silently.
		return false
	}

	switch res.Kind {
	case domain.ResultApplied:
		p.pub.PublishLevels(res.Bids, res.Asks)
		infra.GlobalMetrics.RecordApplied(time.Since(start).Nanoseconds())
	case domain.ResultIntegrityFailure:
		p.pub.MarkInvalid()
		infra.GlobalMetrics.RecordIntegrityFailure()
		slog.Warn("book checksum mismatch",
			slog.String("symbol", p.sess.Instrument.Symbol))
	case domain.ResultIgnored:
		infra.GlobalMetrics.RecordIgnored()
	case domain.ResultFailure:
		infra.GlobalMetrics.RecordError()
		slog.Debug("message discarded",
			slog.String("symbol", p.sess.Instrument.Symbol), slog.Any("error", res.Err))
	}
	return true
}

// apply shields the loop from a panicking engine; the panic is downgraded to
// a generic failure and the next message still gets processed.
func (p *processor) apply(raw []byte) (res domain.EngineResult) {
	defer func() {
		if r := recover(); r != nil {
			res = domain.EngineResult{
				Kind: domain.ResultFailure,
				Err:  fmt.Errorf("engine panic: %v", r),
			}
		}
	}()
	return p.sess.engine.Apply(raw, p.depth)
}
