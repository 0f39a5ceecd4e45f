package pipeline

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"

	"bookfeed/internal/domain"
	"bookfeed/internal/infra"

	"github.com/google/uuid"
)

// Session is the live binding between one instrument, one engine handle and
// one transport connection. The liveness flag is the single token late work
// checks before touching session state; it flips false exactly once.
type Session struct {
	ID         uuid.UUID
	Instrument domain.Instrument

	queue     *messageQueue
	engine    domain.BookEngine
	transport domain.Transport

	alive  atomic.Bool
	notify chan struct{}
	done   chan struct{} // closed when the processor goroutine exits
	cancel context.CancelFunc
}

func newSession(inst domain.Instrument, engine domain.BookEngine) *Session {
	s := &Session{
		ID:         uuid.New(),
		Instrument: inst,
		queue:      newMessageQueue(),
		engine:     engine,
		notify:     make(chan struct{}, 1),
		done:       make(chan struct{}),
	}
	s.alive.Store(true)
	return s
}

// Alive reports whether this session is still the active one.
func (s *Session) Alive() bool {
	return s.alive.Load()
}

func (s *Session) invalidate() {
	s.alive.Store(false)
}

// wake arms the processor's notify channel. The 1-slot buffer coalesces
// bursts; a pending wakeup is enough.
func (s *Session) wake() {
	select {
	case s.notify <- struct{}{}:
	default:
	}
}

// Controller owns the session lifecycle. It is the only component that
// creates or destroys engine handles and transport connections; the
// processor never initiates lifecycle changes.
type Controller struct {
	mu           sync.Mutex
	depth        int
	newEngine    domain.EngineFactory
	newTransport domain.TransportFactory
	pub          *Publisher
	current      *Session
}

// NewController wires a controller to its collaborator factories. depth is
// the per-side level count requested from both the feed and the engine.
func NewController(depth int, engines domain.EngineFactory, transports domain.TransportFactory, pub *Publisher) *Controller {
	return &Controller{
		depth:        depth,
		newEngine:    engines,
		newTransport: transports,
		pub:          pub,
	}
}

// SwitchInstrument retires the current session (if any) and activates a new
// one for inst. Switching to the already-active instrument is a no-op.
// Transport failures are reported through the published connection state,
// not as an error; the controller does not retry on its own.
func (c *Controller) SwitchInstrument(ctx context.Context, inst domain.Instrument) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.current != nil && c.current.Instrument.Symbol == inst.Symbol {
		return nil
	}
	return c.rebuildLocked(ctx, inst)
}

// Reconnect tears the current session down and rebuilds it for the same
// instrument, forcing a fresh snapshot from the feed. Callers own the retry
// policy; the controller only performs one rebuild per call.
func (c *Controller) Reconnect(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.current == nil {
		return nil
	}
	return c.rebuildLocked(ctx, c.current.Instrument)
}

func (c *Controller) rebuildLocked(ctx context.Context, inst domain.Instrument) error {
	c.retireLocked()
	c.pub.Reset(inst.Symbol)

	engine, err := c.newEngine(inst.Symbol, c.depth)
	if err != nil {
		return err
	}
	engine.SetPrecision(inst.PricePrecision, inst.QtyPrecision)

	sess := newSession(inst, engine)
	c.current = sess
	infra.GlobalMetrics.RecordSessionSwitch()
	slog.Info("session activated",
		slog.String("symbol", inst.Symbol), slog.String("session", sess.ID.String()))

	pctx, cancel := context.WithCancel(context.Background())
	sess.cancel = cancel
	proc := &processor{sess: sess, pub: c.pub, depth: c.depth}
	go proc.run(pctx)

	tr, err := c.newTransport(inst.Symbol, c.depth, domain.TransportHooks{
		OnMessage: func(raw []byte) { c.enqueue(sess, raw) },
		OnState: func(state domain.ConnState) {
			// Late callbacks from a superseded transport must not clobber
			// the new session's state.
			if sess.Alive() {
				c.pub.SetConnState(state)
				infra.GlobalMetrics.SetConnected(state == domain.StateConnected)
			}
		},
	})
	if err != nil {
		slog.Warn("transport construction failed",
			slog.String("symbol", inst.Symbol), slog.Any("error", err))
		c.pub.SetConnState(domain.StateDisconnected)
		return nil
	}
	sess.transport = tr

	if err := tr.Connect(ctx); err != nil {
		slog.Warn("transport connect failed",
			slog.String("symbol", inst.Symbol), slog.Any("error", err))
		c.pub.SetConnState(domain.StateDisconnected)
	}
	return nil
}

// retireLocked fully tears down the current session: invalidate liveness,
// stop the processor, release the engine, close the transport. The engine
// release happens only after the processor has exited, so a handle is never
// released while an apply call is in flight.
func (c *Controller) retireLocked() {
	sess := c.current
	if sess == nil {
		return
	}
	c.current = nil

	sess.invalidate()
	if sess.cancel != nil {
		sess.cancel()
	}
	<-sess.done

	sess.engine.Release()
	if sess.transport != nil {
		sess.transport.Close()
	}
}

// enqueue is the transport's entry point into the session queue. It touches
// only the captured session, never the controller lock, so a transport
// delivering during a switch cannot deadlock against teardown.
func (c *Controller) enqueue(sess *Session, raw []byte) {
	if !sess.Alive() {
		return
	}
	if dropped := sess.queue.Push(raw); dropped > 0 {
		infra.GlobalMetrics.RecordDropped(uint64(dropped))
		slog.Debug("queue overflow",
			slog.String("symbol", sess.Instrument.Symbol), slog.Int("dropped", dropped))
	}
	infra.GlobalMetrics.RecordEnqueued()
	sess.wake()
}

// Active returns the instrument of the live session, if there is one.
func (c *Controller) Active() (domain.Instrument, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.current == nil {
		return domain.Instrument{}, false
	}
	return c.current.Instrument, true
}

// Close retires the active session. Safe to call more than once.
func (c *Controller) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.retireLocked()
	c.pub.SetConnState(domain.StateDisconnected)
	infra.GlobalMetrics.SetConnected(false)
}
