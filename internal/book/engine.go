package book

import (
	"encoding/json"
	"hash/crc32"
	"sort"
	"strings"

	"bookfeed/internal/domain"

	"github.com/shopspring/decimal"
)

// checksumDepth is the number of levels per side covered by the feed's
// integrity checksum.
const checksumDepth = 10

type wireLevel struct {
	Price decimal.Decimal `json:"price"`
	Qty   decimal.Decimal `json:"qty"`
}

type wireBook struct {
	Symbol   string      `json:"symbol"`
	Bids     []wireLevel `json:"bids"`
	Asks     []wireLevel `json:"asks"`
	Checksum uint32      `json:"checksum"`
}

type wireMessage struct {
	Channel string     `json:"channel"`
	Type    string     `json:"type"`
	Data    []wireBook `json:"data"`
}

// Engine is the default domain.BookEngine: a locally maintained two-sided
// book fed by snapshot/update messages, with a CRC32 integrity checksum over
// the top levels. It holds no lock; the pipeline guarantees a single caller.
type Engine struct {
	symbol    string
	depth     int
	pricePrec int
	qtyPrec   int

	bids []domain.PriceLevel // descending by price
	asks []domain.PriceLevel // ascending by price

	released bool
	seeded   bool // a snapshot has been applied
}

// NewEngine builds an engine for one symbol maintained at depth levels per side.
func NewEngine(symbol string, depth int) (*Engine, error) {
	if symbol == "" {
		return nil, domain.ErrInvalidSymbol
	}
	if depth <= 0 {
		return nil, domain.ErrInvalidDepth
	}
	return &Engine{symbol: symbol, depth: depth}, nil
}

// Factory returns a domain.EngineFactory producing this engine.
func Factory() domain.EngineFactory {
	return func(symbol string, depth int) (domain.BookEngine, error) {
		return NewEngine(symbol, depth)
	}
}

// SetPrecision configures the decimal places used when formatting levels for
// the checksum. Must match the venue's pair spec or every checksum fails.
func (e *Engine) SetPrecision(pricePrecision, qtyPrecision int) {
	e.pricePrec = pricePrecision
	e.qtyPrec = qtyPrecision
}

// Apply interprets one raw feed message. Non-book channels and unknown
// message types are reported as ignored; malformed payloads as failures.
func (e *Engine) Apply(raw []byte, depth int) domain.EngineResult {
	if e.released {
		return domain.EngineResult{Kind: domain.ResultFailure, Err: domain.ErrEngineReleased}
	}

	var msg wireMessage
	if err := json.Unmarshal(raw, &msg); err != nil {
		return domain.EngineResult{Kind: domain.ResultFailure, Err: err}
	}
	if msg.Channel != "book" || len(msg.Data) == 0 {
		return domain.EngineResult{Kind: domain.ResultIgnored}
	}
	data := msg.Data[0]
	if data.Symbol != "" && data.Symbol != e.symbol {
		return domain.EngineResult{Kind: domain.ResultIgnored}
	}

	var snapshot bool
	switch msg.Type {
	case "snapshot":
		e.applySnapshot(data)
		snapshot = true
	case "update":
		if !e.seeded {
			// Deltas before the first snapshot have nothing to apply to.
			return domain.EngineResult{Kind: domain.ResultIgnored}
		}
		e.applyUpdate(data)
	default:
		return domain.EngineResult{Kind: domain.ResultIgnored}
	}

	if data.Checksum != 0 && e.checksum() != data.Checksum {
		return domain.EngineResult{Kind: domain.ResultIntegrityFailure}
	}

	return domain.EngineResult{
		Kind:     domain.ResultApplied,
		Snapshot: snapshot,
		Bids:     topN(e.bids, depth),
		Asks:     topN(e.asks, depth),
	}
}

// Release frees the book state. Further Apply calls fail.
func (e *Engine) Release() {
	e.released = true
	e.bids = nil
	e.asks = nil
}

func (e *Engine) applySnapshot(data wireBook) {
	e.bids = toLevels(data.Bids)
	e.asks = toLevels(data.Asks)
	sort.Slice(e.bids, func(i, j int) bool { return e.bids[i].Price.GreaterThan(e.bids[j].Price) })
	sort.Slice(e.asks, func(i, j int) bool { return e.asks[i].Price.LessThan(e.asks[j].Price) })
	e.truncate()
	e.seeded = true
}

func (e *Engine) applyUpdate(data wireBook) {
	for _, lv := range data.Bids {
		e.bids = upsert(e.bids, lv, func(a, b decimal.Decimal) bool { return a.GreaterThan(b) })
	}
	for _, lv := range data.Asks {
		e.asks = upsert(e.asks, lv, func(a, b decimal.Decimal) bool { return a.LessThan(b) })
	}
	e.truncate()
}

func (e *Engine) truncate() {
	if len(e.bids) > e.depth {
		e.bids = e.bids[:e.depth]
	}
	if len(e.asks) > e.depth {
		e.asks = e.asks[:e.depth]
	}
}

// checksum computes the CRC32 over the top checksumDepth asks then bids,
// each level formatted at the configured precision with the decimal point
// and leading zeros stripped.
func (e *Engine) checksum() uint32 {
	var sb strings.Builder
	for _, lv := range topN(e.asks, checksumDepth) {
		sb.WriteString(checksumField(lv.Price, e.pricePrec))
		sb.WriteString(checksumField(lv.Qty, e.qtyPrec))
	}
	for _, lv := range topN(e.bids, checksumDepth) {
		sb.WriteString(checksumField(lv.Price, e.pricePrec))
		sb.WriteString(checksumField(lv.Qty, e.qtyPrec))
	}
	return crc32.ChecksumIEEE([]byte(sb.String()))
}

func checksumField(d decimal.Decimal, precision int) string {
	s := d.StringFixed(int32(precision))
	s = strings.Replace(s, ".", "", 1)
	return strings.TrimLeft(s, "0")
}

// Checksum exposes the current integrity value, mostly for tests and
// scripted feeds.
func (e *Engine) Checksum() uint32 {
	return e.checksum()
}

func toLevels(in []wireLevel) []domain.PriceLevel {
	out := make([]domain.PriceLevel, 0, len(in))
	for _, lv := range in {
		if lv.Qty.IsZero() {
			continue
		}
		out = append(out, domain.PriceLevel{Price: lv.Price, Qty: lv.Qty})
	}
	return out
}

// upsert inserts, replaces or (on zero qty) deletes one level, keeping the
// side ordered by the before relation.
func upsert(levels []domain.PriceLevel, lv wireLevel, before func(a, b decimal.Decimal) bool) []domain.PriceLevel {
	idx := sort.Search(len(levels), func(i int) bool {
		return !before(levels[i].Price, lv.Price)
	})
	found := idx < len(levels) && levels[idx].Price.Equal(lv.Price)

	if lv.Qty.IsZero() {
		if found {
			return append(levels[:idx], levels[idx+1:]...)
		}
		return levels
	}
	if found {
		levels[idx].Qty = lv.Qty
		return levels
	}
	levels = append(levels, domain.PriceLevel{})
	copy(levels[idx+1:], levels[idx:])
	levels[idx] = domain.PriceLevel{Price: lv.Price, Qty: lv.Qty}
	return levels
}

func topN(levels []domain.PriceLevel, n int) []domain.PriceLevel {
	if n > len(levels) {
		n = len(levels)
	}
	return append([]domain.PriceLevel(nil), levels[:n]...)
}
