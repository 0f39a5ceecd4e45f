package book

import (
	"fmt"
	"testing"

	"bookfeed/internal/domain"

	"github.com/shopspring/decimal"
)

func newTestEngine(t *testing.T) *Engine {
	t.Helper()
	e, err := NewEngine("BTC/USD", 25)
	if err != nil {
		t.Fatalf("NewEngine failed: %v", err)
	}
	e.SetPrecision(1, 8)
	return e
}

const snapshotMsg = `{
	"channel": "book",
	"type": "snapshot",
	"data": [{
		"symbol": "BTC/USD",
		"bids": [{"price": 99.5, "qty": 1.0}, {"price": 100.0, "qty": 2.0}],
		"asks": [{"price": 101.0, "qty": 3.0}, {"price": 100.5, "qty": 1.5}]
	}]
}`

func TestEngine_SnapshotOrdersAndLimits(t *testing.T) {
	e := newTestEngine(t)

	res := e.Apply([]byte(snapshotMsg), 25)
	if res.Kind != domain.ResultApplied {
		t.Fatalf("expected applied, got %v (%v)", res.Kind, res.Err)
	}
	if !res.Snapshot {
		t.Error("expected snapshot flag")
	}

	// Bids descending regardless of wire order
	if !res.Bids[0].Price.Equal(decimal.NewFromFloat(100.0)) {
		t.Errorf("expected best bid 100.0, got %v", res.Bids[0].Price)
	}
	if !res.Bids[1].Price.Equal(decimal.NewFromFloat(99.5)) {
		t.Errorf("expected second bid 99.5, got %v", res.Bids[1].Price)
	}
	// Asks ascending
	if !res.Asks[0].Price.Equal(decimal.NewFromFloat(100.5)) {
		t.Errorf("expected best ask 100.5, got %v", res.Asks[0].Price)
	}

	// Display depth truncation
	res = e.Apply([]byte(snapshotMsg), 1)
	if len(res.Bids) != 1 || len(res.Asks) != 1 {
		t.Errorf("expected 1 level per side at depth 1, got %d/%d", len(res.Bids), len(res.Asks))
	}
}

func TestEngine_UpdateUpsertsAndDeletes(t *testing.T) {
	e := newTestEngine(t)
	e.Apply([]byte(snapshotMsg), 25)

	update := `{
		"channel": "book",
		"type": "update",
		"data": [{
			"symbol": "BTC/USD",
			"bids": [{"price": 100.0, "qty": 5.0}, {"price": 99.9, "qty": 0.5}],
			"asks": [{"price": 100.5, "qty": 0}]
		}]
	}`
	res := e.Apply([]byte(update), 25)
	if res.Kind != domain.ResultApplied {
		t.Fatalf("expected applied, got %v (%v)", res.Kind, res.Err)
	}

	// 100.0 modified in place, 99.9 inserted between 100.0 and 99.5
	if !res.Bids[0].Qty.Equal(decimal.NewFromFloat(5.0)) {
		t.Errorf("expected qty 5.0 at best bid, got %v", res.Bids[0].Qty)
	}
	if !res.Bids[1].Price.Equal(decimal.NewFromFloat(99.9)) {
		t.Errorf("expected inserted bid 99.9, got %v", res.Bids[1].Price)
	}
	if len(res.Bids) != 3 {
		t.Errorf("expected 3 bids, got %d", len(res.Bids))
	}

	// Zero qty removed 100.5; next ask is 101.0
	if len(res.Asks) != 1 || !res.Asks[0].Price.Equal(decimal.NewFromFloat(101.0)) {
		t.Errorf("expected single ask 101.0 after delete, got %v", res.Asks)
	}
}

func TestEngine_ChecksumMismatchIsIntegrityFailure(t *testing.T) {
	e := newTestEngine(t)

	bad := `{
		"channel": "book",
		"type": "snapshot",
		"data": [{
			"symbol": "BTC/USD",
			"bids": [{"price": 100.0, "qty": 2.0}],
			"asks": [{"price": 100.5, "qty": 1.5}],
			"checksum": 12345
		}]
	}`
	res := e.Apply([]byte(bad), 25)
	if res.Kind != domain.ResultIntegrityFailure {
		t.Fatalf("expected integrity failure, got %v", res.Kind)
	}
}

func TestEngine_ChecksumMatchPasses(t *testing.T) {
	e := newTestEngine(t)

	// Seed without a checksum, read the value the engine derives, then
	// re-apply the identical snapshot carrying that value.
	if res := e.Apply([]byte(snapshotMsg), 25); res.Kind != domain.ResultApplied {
		t.Fatalf("seed failed: %v", res.Kind)
	}
	sum := e.Checksum()

	withSum := fmt.Sprintf(`{
		"channel": "book",
		"type": "snapshot",
		"data": [{
			"symbol": "BTC/USD",
			"bids": [{"price": 99.5, "qty": 1.0}, {"price": 100.0, "qty": 2.0}],
			"asks": [{"price": 101.0, "qty": 3.0}, {"price": 100.5, "qty": 1.5}],
			"checksum": %d
		}]
	}`, sum)

	res := e.Apply([]byte(withSum), 25)
	if res.Kind != domain.ResultApplied {
		t.Fatalf("expected applied with matching checksum, got %v", res.Kind)
	}
}

func TestEngine_IgnoresNonBookMessages(t *testing.T) {
	e := newTestEngine(t)

	cases := []string{
		`{"channel":"heartbeat"}`,
		`{"channel":"status","type":"update","data":[]}`,
		`{"method":"subscribe","success":true}`,
		`{"channel":"book","type":"weird","data":[{"symbol":"BTC/USD"}]}`,
		`{"channel":"book","type":"update","data":[{"symbol":"ETH/USD"}]}`,
	}
	for _, raw := range cases {
		if res := e.Apply([]byte(raw), 25); res.Kind != domain.ResultIgnored {
			t.Errorf("expected ignored for %s, got %v", raw, res.Kind)
		}
	}
}

func TestEngine_UpdateBeforeSnapshotIgnored(t *testing.T) {
	e := newTestEngine(t)

	update := `{"channel":"book","type":"update","data":[{"symbol":"BTC/USD","bids":[{"price":100.0,"qty":1.0}]}]}`
	if res := e.Apply([]byte(update), 25); res.Kind != domain.ResultIgnored {
		t.Errorf("expected delta before snapshot ignored, got %v", res.Kind)
	}
}

func TestEngine_MalformedPayloadFails(t *testing.T) {
	e := newTestEngine(t)

	if res := e.Apply([]byte("{not json"), 25); res.Kind != domain.ResultFailure {
		t.Errorf("expected failure, got %v", res.Kind)
	}
}

func TestEngine_ApplyAfterReleaseFails(t *testing.T) {
	e := newTestEngine(t)
	e.Apply([]byte(snapshotMsg), 25)

	e.Release()

	res := e.Apply([]byte(snapshotMsg), 25)
	if res.Kind != domain.ResultFailure {
		t.Fatalf("expected failure after release, got %v", res.Kind)
	}
}

func TestEngine_ConstructionValidation(t *testing.T) {
	if _, err := NewEngine("", 25); err == nil {
		t.Error("expected error for empty symbol")
	}
	if _, err := NewEngine("BTC/USD", 0); err == nil {
		t.Error("expected error for zero depth")
	}
}

func BenchmarkEngine_ApplyUpdate(b *testing.B) {
	e, _ := NewEngine("BTC/USD", 25)
	e.SetPrecision(1, 8)
	e.Apply([]byte(snapshotMsg), 25)

	update := []byte(`{"channel":"book","type":"update","data":[{"symbol":"BTC/USD","bids":[{"price":100.0,"qty":4.0}]}]}`)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		e.Apply(update, 25)
	}
}
