package portfolio

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rustyeddy/backtester/market"
)

var t0 = time.Date(2020, 1, 2, 0, 0, 0, 0, time.UTC)

func obs(instrument string, px float64) market.Observation {
	return market.Observation{
		Instrument: instrument,
		Time:       t0,
		Fields:     map[string]float64{market.FieldClose: px},
	}
}

func sig(instrument string, dir market.Direction, qty float64) market.Signal {
	return market.Signal{Instrument: instrument, Time: t0, Direction: dir, Quantity: qty}
}

func fill(instrument string, dir market.Direction, px, qty, commission, slippage float64) market.Fill {
	return market.Fill{
		Instrument: instrument,
		Time:       t0,
		Direction:  dir,
		Price:      px,
		Quantity:   qty,
		Commission: commission,
		Slippage:   slippage,
	}
}

func TestGenerateOrdersBuyFeasibility(t *testing.T) {
	t.Parallel()

	batch := market.Batch{obs("SPX", 100)}

	tests := []struct {
		name      string
		qty       float64
		wantOrder bool
	}{
		{"within cash", 9, true},
		{"exactly cash", 10, true},
		{"over cash", 11, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			l := NewLedger(1000)
			orders, err := l.GenerateOrders([]market.Signal{sig("SPX", market.Buy, tt.qty)}, batch)
			require.NoError(t, err)
			if tt.wantOrder {
				require.Len(t, orders, 1)
				assert.Equal(t, market.Buy, orders[0].Direction)
				assert.Equal(t, tt.qty, orders[0].Quantity)
				assert.Equal(t, market.OrderMarket, orders[0].Type)
			} else {
				assert.Empty(t, orders)
			}
		})
	}
}

func TestGenerateOrdersSellRequiresInventory(t *testing.T) {
	t.Parallel()

	batch := market.Batch{obs("SPX", 100)}
	l := NewLedger(10_000)

	// Nothing held: sell is dropped, not an error.
	orders, err := l.GenerateOrders([]market.Signal{sig("SPX", market.Sell, 1)}, batch)
	require.NoError(t, err)
	assert.Empty(t, orders)

	require.NoError(t, l.ApplyFills([]market.Fill{fill("SPX", market.Buy, 100, 5, 0, 0)}, batch))

	orders, err = l.GenerateOrders([]market.Signal{
		sig("SPX", market.Sell, 5), // covered
		sig("SPX", market.Sell, 6), // not covered
	}, batch)
	require.NoError(t, err)
	require.Len(t, orders, 1)
	assert.Equal(t, 5.0, orders[0].Quantity)
}

func TestGenerateOrdersMissingPrice(t *testing.T) {
	t.Parallel()

	l := NewLedger(1000)
	batch := market.Batch{obs("SPX", 100)}

	_, err := l.GenerateOrders([]market.Signal{sig("TLT", market.Buy, 1)}, batch)
	var mp *market.MissingPriceError
	require.True(t, errors.As(err, &mp))
	assert.Equal(t, "TLT", mp.Instrument)
}

func TestGenerateOrdersFlatDropped(t *testing.T) {
	t.Parallel()

	l := NewLedger(1000)
	orders, err := l.GenerateOrders([]market.Signal{sig("SPX", market.Flat, 1)}, market.Batch{obs("SPX", 100)})
	require.NoError(t, err)
	assert.Empty(t, orders)
}

func TestApplyFillsCashAccounting(t *testing.T) {
	t.Parallel()

	l := NewLedger(10_000)
	batch := market.Batch{obs("SPX", 100)}

	// Buy 10 @ 100 with 1 commission and 2 slippage cost.
	require.NoError(t, l.ApplyFills([]market.Fill{fill("SPX", market.Buy, 100, 10, 1, 2)}, batch))
	assert.InDelta(t, 10_000-1000-1-2, l.Cash(), 1e-9)

	// Sell 4 @ 110 with 1 commission and 0.5 slippage cost.
	require.NoError(t, l.ApplyFills([]market.Fill{fill("SPX", market.Sell, 110, 4, 1, 0.5)}, batch))
	assert.InDelta(t, 10_000-1003+4*110-1-0.5, l.Cash(), 1e-9)
	assert.InDelta(t, 6, l.Quantity("SPX"), 1e-9)
}

func TestApplyFillsVWAP(t *testing.T) {
	t.Parallel()

	l := NewLedger(100_000)
	batch := market.Batch{obs("SPX", 120)}

	require.NoError(t, l.ApplyFills([]market.Fill{fill("SPX", market.Buy, 100, 10, 0, 0)}, batch))
	require.NoError(t, l.ApplyFills([]market.Fill{fill("SPX", market.Buy, 120, 10, 0, 0)}, batch))

	snap := l.Snapshot()
	require.Len(t, snap.Positions, 1)
	assert.InDelta(t, 110, snap.Positions[0].AvgPrice, 1e-9)
	assert.InDelta(t, 20, snap.Positions[0].Quantity, 1e-9)
}

func TestApplyFillsSellClampAndAvgReset(t *testing.T) {
	t.Parallel()

	l := NewLedger(100_000)
	batch := market.Batch{obs("SPX", 100)}

	require.NoError(t, l.ApplyFills([]market.Fill{fill("SPX", market.Buy, 100, 5, 0, 0)}, batch))

	// Oversized sell: quantity floors at zero, never negative.
	require.NoError(t, l.ApplyFills([]market.Fill{fill("SPX", market.Sell, 100, 8, 0, 0)}, batch))

	snap := l.Snapshot()
	require.Len(t, snap.Positions, 1)
	assert.Equal(t, 0.0, snap.Positions[0].Quantity)
	assert.Equal(t, 0.0, snap.Positions[0].AvgPrice)
}

func TestApplyFillsAvgResetsExactlyAtZero(t *testing.T) {
	t.Parallel()

	l := NewLedger(100_000)
	batch := market.Batch{obs("SPX", 100)}

	require.NoError(t, l.ApplyFills([]market.Fill{fill("SPX", market.Buy, 100, 3, 0, 0)}, batch))
	require.NoError(t, l.ApplyFills([]market.Fill{fill("SPX", market.Sell, 100, 3, 0, 0)}, batch))

	snap := l.Snapshot()
	assert.Equal(t, 0.0, snap.Positions[0].Quantity)
	assert.Equal(t, 0.0, snap.Positions[0].AvgPrice)
}

func TestMarkToMarketRecomputedFromBatch(t *testing.T) {
	t.Parallel()

	l := NewLedger(100_000)
	require.NoError(t, l.ApplyFills(
		[]market.Fill{
			fill("SPX", market.Buy, 100, 10, 0, 0),
			fill("TLT", market.Buy, 50, 4, 0, 0),
		},
		market.Batch{obs("SPX", 100), obs("TLT", 50)},
	))
	assert.InDelta(t, 10*100+4*50, l.NetLiquidation(), 1e-9)

	// A later batch reprices both positions even though neither traded.
	require.NoError(t, l.ApplyFills(nil, market.Batch{obs("SPX", 110), obs("TLT", 45)}))
	assert.InDelta(t, 10*110+4*45, l.NetLiquidation(), 1e-9)

	// An instrument absent from the batch contributes nothing.
	require.NoError(t, l.ApplyFills(nil, market.Batch{obs("SPX", 120)}))
	assert.InDelta(t, 10*120, l.NetLiquidation(), 1e-9)
}

func TestSnapshotSortedAndTotals(t *testing.T) {
	t.Parallel()

	l := NewLedger(1_000)
	batch := market.Batch{obs("ZZZ", 10), obs("AAA", 20)}
	require.NoError(t, l.ApplyFills(
		[]market.Fill{
			fill("ZZZ", market.Buy, 10, 2, 0, 0),
			fill("AAA", market.Buy, 20, 1, 0, 0),
		},
		batch,
	))

	snap := l.Snapshot()
	require.Len(t, snap.Positions, 2)
	assert.Equal(t, "AAA", snap.Positions[0].Instrument)
	assert.Equal(t, "ZZZ", snap.Positions[1].Instrument)
	assert.InDelta(t, snap.Cash+snap.NetLiquidation, snap.TotalValue, 1e-9)
}
