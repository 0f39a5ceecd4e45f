package domain

// Instrument identifies one tradable pair together with the decimal
// precisions the feed quotes it at. The precisions feed straight into the
// engine's integrity check, so they must match the venue exactly.
type Instrument struct {
	Symbol         string `json:"symbol"`
	PricePrecision int    `json:"price_precision"`
	QtyPrecision   int    `json:"qty_precision"`
}

// SupportedInstruments is the built-in set used when the config file does
// not override it. Precisions follow the venue's published pair specs.
var SupportedInstruments = []Instrument{
	{Symbol: "BTC/USD", PricePrecision: 1, QtyPrecision: 8},
	{Symbol: "ETH/USD", PricePrecision: 2, QtyPrecision: 8},
	{Symbol: "SOL/USD", PricePrecision: 2, QtyPrecision: 8},
	{Symbol: "XRP/USD", PricePrecision: 5, QtyPrecision: 8},
}

// FindInstrument looks up an instrument by symbol in the supported set.
func FindInstrument(symbol string) (Instrument, bool) {
	for _, inst := range SupportedInstruments {
		if inst.Symbol == symbol {
			return inst, true
		}
	}
	return Instrument{}, false
}
