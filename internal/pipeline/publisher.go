package pipeline

import (
	"sync"

	"bookfeed/internal/domain"

	"github.com/shopspring/decimal"
)

// Publisher is the sole writer of the consumer-visible BookView. Every
// processing outcome updates all derived fields together under one lock, so
// readers never observe a half-published snapshot.
type Publisher struct {
	mu   sync.RWMutex
	view domain.BookView
}

// NewPublisher creates a publisher holding an empty, valid, disconnected view.
func NewPublisher() *Publisher {
	return &Publisher{view: emptyView("")}
}

func emptyView(symbol string) domain.BookView {
	return domain.BookView{
		Symbol:     symbol,
		ChecksumOK: true,
		ConnState:  domain.StateDisconnected,
	}
}

// Reset discards all session-scoped state and rebinds the view to symbol:
// empty book, no spread/mid, update counter 0, validity true, disconnected.
func (p *Publisher) Reset(symbol string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.view = emptyView(symbol)
}

// PublishLevels installs the engine's depth-limited levels. The engine is
// trusted to return bids descending and asks ascending; no re-sort here.
// Spread and mid are recomputed only when both best levels exist and are
// strictly positive, otherwise they are undefined.
func (p *Publisher) PublishLevels(bids, asks []domain.PriceLevel) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.view.Bids = bids
	p.view.Asks = asks
	p.view.Spread = nil
	p.view.Mid = nil

	if len(bids) > 0 && len(asks) > 0 {
		bestBid := bids[0].Price
		bestAsk := asks[0].Price
		if bestBid.IsPositive() && bestAsk.IsPositive() {
			spread := bestAsk.Sub(bestBid)
			mid := bestAsk.Add(bestBid).Div(decimal.NewFromInt(2))
			p.view.Spread = &spread
			p.view.Mid = &mid
		}
	}

	p.view.UpdateCount++
	p.view.ChecksumOK = true
}

// MarkInvalid flags a checksum divergence. The book itself is left as the
// last known-good publication.
func (p *Publisher) MarkInvalid() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.view.ChecksumOK = false
}

// SetConnState records a transport lifecycle transition.
func (p *Publisher) SetConnState(state domain.ConnState) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.view.ConnState = state
}

// View returns a copy of the current projection. Level slices are copied so
// callers can hold the result across later publications.
func (p *Publisher) View() domain.BookView {
	p.mu.RLock()
	defer p.mu.RUnlock()

	out := p.view
	out.Bids = append([]domain.PriceLevel(nil), p.view.Bids...)
	out.Asks = append([]domain.PriceLevel(nil), p.view.Asks...)
	if p.view.Spread != nil {
		s := *p.view.Spread
		out.Spread = &s
	}
	if p.view.Mid != nil {
		m := *p.view.Mid
		out.Mid = &m
	}
	return out
}
