package domain

import "github.com/shopspring/decimal"

// ConnState tracks the transport connection lifecycle.
type ConnState string

const (
	StateDisconnected ConnState = "disconnected"
	StateConnecting   ConnState = "connecting"
	StateConnected    ConnState = "connected"
)

// PriceLevel is a (price, aggregate quantity) pair at one price point.
type PriceLevel struct {
	Price decimal.Decimal `json:"price"`
	Qty   decimal.Decimal `json:"qty"`
}

// BookView is the consumer-facing projection of the active session's book.
// Bids are ordered descending by price, asks ascending. Spread and Mid are
// nil whenever either side is empty or a best price is not strictly
// positive; they are never zero placeholders and never stale.
type BookView struct {
	Symbol      string           `json:"symbol"`
	Bids        []PriceLevel     `json:"bids"`
	Asks        []PriceLevel     `json:"asks"`
	Spread      *decimal.Decimal `json:"spread,omitempty"`
	Mid         *decimal.Decimal `json:"mid,omitempty"`
	UpdateCount uint64           `json:"update_count"`
	ChecksumOK  bool             `json:"checksum_ok"`
	ConnState   ConnState        `json:"conn_state"`
}

// BestBid returns the highest bid price, if any.
func (v *BookView) BestBid() (decimal.Decimal, bool) {
	if len(v.Bids) == 0 {
		return decimal.Zero, false
	}
	return v.Bids[0].Price, true
}

// BestAsk returns the lowest ask price, if any.
func (v *BookView) BestAsk() (decimal.Decimal, bool) {
	if len(v.Asks) == 0 {
		return decimal.Zero, false
	}
	return v.Asks[0].Price, true
}
