package ws

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"bookfeed/internal/domain"

	"github.com/gorilla/websocket"
)

const (
	handshakeTimeout = 10 * time.Second
	pingInterval     = 30 * time.Second
	readTimeout      = 60 * time.Second
)

type subscribeParams struct {
	Channel string   `json:"channel"`
	Symbol  []string `json:"symbol"`
	Depth   int      `json:"depth"`
}

type subscribeRequest struct {
	Method string          `json:"method"`
	Params subscribeParams `json:"params"`
}

// Transport is one websocket connection subscribed to the book channel of a
// single instrument. It connects once; a dropped connection is reported via
// the state hook and the transport stops. Reconnect policy lives with the
// caller.
type Transport struct {
	url    string
	symbol string
	depth  int
	hooks  domain.TransportHooks

	conn    *websocket.Conn
	mu      sync.RWMutex
	writeMu sync.Mutex
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

// NewTransport creates a transport for one instrument at the given depth.
func NewTransport(url, symbol string, depth int, hooks domain.TransportHooks) *Transport {
	return &Transport{
		url:    url,
		symbol: symbol,
		depth:  depth,
		hooks:  hooks,
	}
}

// Factory returns a domain.TransportFactory bound to url.
func Factory(url string) domain.TransportFactory {
	return func(symbol string, depth int, hooks domain.TransportHooks) (domain.Transport, error) {
		return NewTransport(url, symbol, depth, hooks), nil
	}
}

// Connect dials the feed, sends the book subscription and starts the read
// and ping loops. A dial or subscribe failure leaves the transport
// disconnected and is returned to the caller; there is no retry here.
func (t *Transport) Connect(ctx context.Context) error {
	t.setState(domain.StateConnecting)

	dialer := websocket.Dialer{HandshakeTimeout: handshakeTimeout}
	conn, _, err := dialer.DialContext(ctx, t.url, nil)
	if err != nil {
		t.setState(domain.StateDisconnected)
		return domain.NewNetworkError("dial", err)
	}

	t.mu.Lock()
	t.conn = conn
	t.mu.Unlock()

	if err := t.subscribe(); err != nil {
		t.closeConnection()
		t.setState(domain.StateDisconnected)
		return domain.NewNetworkError("subscribe", err)
	}

	ctx, t.cancel = context.WithCancel(ctx)
	t.wg.Add(2)
	go t.readLoop(ctx)
	go t.pingLoop(ctx)

	t.setState(domain.StateConnected)
	slog.Info("feed connected", slog.String("symbol", t.symbol), slog.Int("depth", t.depth))
	return nil
}

func (t *Transport) subscribe() error {
	req := subscribeRequest{
		Method: "subscribe",
		Params: subscribeParams{
			Channel: "book",
			Symbol:  []string{t.symbol},
			Depth:   t.depth,
		},
	}
	b, err := json.Marshal(req)
	if err != nil {
		return err
	}
	return t.threadSafeWrite(websocket.TextMessage, b)
}

func (t *Transport) threadSafeWrite(msgType int, data []byte) error {
	t.writeMu.Lock()
	defer t.writeMu.Unlock()
	t.mu.RLock()
	defer t.mu.RUnlock()
	if t.conn == nil {
		return fmt.Errorf("no conn")
	}
	return t.conn.WriteMessage(msgType, data)
}

func (t *Transport) readLoop(ctx context.Context) {
	defer t.wg.Done()
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		t.mu.RLock()
		conn := t.conn
		t.mu.RUnlock()
		if conn == nil {
			return
		}
		conn.SetReadDeadline(time.Now().Add(readTimeout))

		_, msg, err := conn.ReadMessage()
		if err != nil {
			t.closeConnection()
			t.setState(domain.StateDisconnected)
			return
		}
		if t.hooks.OnMessage != nil {
			t.hooks.OnMessage(msg)
		}
	}
}

func (t *Transport) pingLoop(ctx context.Context) {
	defer t.wg.Done()
	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			t.threadSafeWrite(websocket.PingMessage, nil)
		}
	}
}

func (t *Transport) setState(state domain.ConnState) {
	if t.hooks.OnState != nil {
		t.hooks.OnState(state)
	}
}

func (t *Transport) closeConnection() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.conn != nil {
		t.conn.Close()
		t.conn = nil
	}
}

// Close stops the loops and closes the socket. Safe to call on a transport
// that never connected.
func (t *Transport) Close() {
	if t.cancel != nil {
		t.cancel()
	}
	t.closeConnection()
	t.wg.Wait()
}
