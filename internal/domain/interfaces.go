package domain

import "context"

// TransportHooks are callbacks the transport invokes from its read loop.
// OnMessage receives every raw text frame in arrival order; OnState reports
// connection lifecycle transitions.
type TransportHooks struct {
	OnMessage func(raw []byte)
	OnState   func(state ConnState)
}

// Transport is one streaming-feed connection subscribed to the book channel
// of a single instrument. It does not reconnect on its own; a failed or
// dropped connection is reported through OnState and the transport stops.
type Transport interface {
	Connect(ctx context.Context) error
	Close()
}

// TransportFactory builds a transport for one instrument at the requested
// book depth.
type TransportFactory func(symbol string, depth int, hooks TransportHooks) (Transport, error)
