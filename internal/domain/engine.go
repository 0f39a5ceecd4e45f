package domain

// ResultKind classifies the outcome of one engine apply call. The processor
// consumes this exhaustively; no engine error crosses the pipeline boundary
// any other way.
type ResultKind int

const (
	// ResultApplied means the message changed the book; Bids/Asks carry the
	// new depth-limited levels.
	ResultApplied ResultKind = iota
	// ResultIntegrityFailure means the engine's checksum no longer matches
	// the authoritative feed. The book is considered diverged.
	ResultIntegrityFailure
	// ResultIgnored means the message was not relevant to book state
	// (heartbeats, subscription acks, other channels).
	ResultIgnored
	// ResultFailure is any other processing error (malformed payload,
	// released engine, engine panic).
	ResultFailure
)

// EngineResult is the tagged outcome of BookEngine.Apply.
type EngineResult struct {
	Kind     ResultKind
	Snapshot bool // true when the message replaced the whole book
	Bids     []PriceLevel
	Asks     []PriceLevel
	Err      error
}

// BookEngine maintains the order book for one instrument. Implementations
// are single-session: constructed per instrument, fed messages strictly in
// arrival order by one goroutine, and released exactly once.
type BookEngine interface {
	// SetPrecision configures the decimal precisions used for the
	// integrity checksum. Must be called before the first Apply.
	SetPrecision(pricePrecision, qtyPrecision int)

	// Apply interprets one raw feed message and returns the resulting
	// depth-limited levels, with bids descending and asks ascending,
	// truncated to depth per side.
	Apply(raw []byte, depth int) EngineResult

	// Release frees resources held by the engine. The caller guarantees at
	// most one call; Apply after Release reports ResultFailure.
	Release()
}

// EngineFactory builds a BookEngine for one instrument symbol at a fixed
// subscription depth.
type EngineFactory func(symbol string, depth int) (BookEngine, error)
