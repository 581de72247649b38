// Package portfolio owns the cash and position ledger. The ledger is the
// only stateful stage of the pipeline: it gates signals into orders against
// cash/inventory, applies confirmed fills, and marks positions to the
// latest batch prices. Cash moves in ApplyFills and nowhere else.
package portfolio

import (
	"sort"

	"github.com/rustyeddy/backtester/market"
)

// epsilon absorbs float drift in quantity and cash comparisons.
const epsilon = 1e-9

// Position is one instrument's holding: signed quantity in principle, but
// this ledger only accumulates long. AvgPrice is the volume-weighted entry
// price; CurrentValue is the latest mark-to-market value.
type Position struct {
	Instrument   string  `json:"symbol"`
	Quantity     float64 `json:"qty"`
	AvgPrice     float64 `json:"avg_price"`
	CurrentValue float64 `json:"current_value"`
}

// Snapshot is a point-in-time copy of the ledger for reporting.
type Snapshot struct {
	Cash           float64    `json:"cash"`
	NetLiquidation float64    `json:"net_liquidation_value"`
	TotalValue     float64    `json:"total_value"`
	Positions      []Position `json:"positions"`
}

// Ledger tracks cash and per-instrument positions. It is exclusively owned
// by the engine's single control thread; no locking here.
type Ledger struct {
	cash      float64
	netLiq    float64
	positions map[string]*Position
}

func NewLedger(cash float64) *Ledger {
	return &Ledger{
		cash:      cash,
		positions: make(map[string]*Position),
	}
}

func (l *Ledger) Cash() float64 { return l.cash }

// NetLiquidation is the sum of position values as of the last
// mark-to-market pass.
func (l *Ledger) NetLiquidation() float64 { return l.netLiq }

// Quantity returns the held quantity for an instrument, zero if none.
func (l *Ledger) Quantity(instrument string) float64 {
	if p, ok := l.positions[instrument]; ok {
		return p.Quantity
	}
	return 0
}

// GenerateOrders converts signals into feasible market orders. Buys must be
// covered by cash at the batch price, sells by held inventory; anything
// else is dropped silently — no queueing, no partial fills. A signal for an
// instrument the batch has no price for aborts with MissingPriceError.
func (l *Ledger) GenerateOrders(signals []market.Signal, batch market.Batch) ([]market.Order, error) {
	var orders []market.Order

	for _, sig := range signals {
		px, err := batch.Price(sig.Instrument)
		if err != nil {
			return nil, err
		}

		switch sig.Direction {
		case market.Buy:
			if px*sig.Quantity > l.cash+epsilon {
				continue
			}
		case market.Sell:
			if l.Quantity(sig.Instrument)+epsilon < sig.Quantity {
				continue
			}
		default:
			continue
		}

		orders = append(orders, market.Order{
			Instrument: sig.Instrument,
			Time:       sig.Time,
			Direction:  sig.Direction,
			Quantity:   sig.Quantity,
			Type:       market.OrderMarket,
		})
	}

	return orders, nil
}

// ApplyFills applies confirmed fills to cash and positions, then marks
// every position to the batch's prices. This is the single cash mutation
// path: buys debit notional plus costs, sells credit notional minus costs,
// once per fill.
func (l *Ledger) ApplyFills(fills []market.Fill, batch market.Batch) error {
	for _, fill := range fills {
		pos, ok := l.positions[fill.Instrument]
		if !ok {
			pos = &Position{Instrument: fill.Instrument}
			l.positions[fill.Instrument] = pos
		}

		qtyChange := fill.Quantity * float64(fill.Direction)

		if qtyChange > 0 {
			newQty := pos.Quantity + qtyChange
			pos.AvgPrice = (pos.AvgPrice*pos.Quantity + fill.Price*qtyChange) / newQty
			pos.Quantity = newQty
			l.cash -= fill.Notional() + fill.Commission + fill.Slippage
		} else if qtyChange < 0 {
			pos.Quantity += qtyChange
			if pos.Quantity <= epsilon {
				pos.Quantity = 0
				pos.AvgPrice = 0
			}
			l.cash += fill.Notional() - fill.Commission - fill.Slippage
		}
	}

	l.markToMarket(batch)
	return nil
}

// markToMarket revalues every position from the batch. Net liquidation is
// recomputed from scratch each pass, never accumulated, so it cannot drift.
// Positions whose instrument is absent from the batch keep their last value
// but contribute nothing until priced again.
func (l *Ledger) markToMarket(batch market.Batch) {
	netLiq := 0.0
	for _, pos := range l.positions {
		if px, ok := batch.Field(pos.Instrument, market.FieldClose); ok {
			pos.CurrentValue = pos.Quantity * px
			netLiq += pos.CurrentValue
		}
	}
	l.netLiq = netLiq
}

// Snapshot copies the ledger state, positions sorted by instrument.
func (l *Ledger) Snapshot() Snapshot {
	positions := make([]Position, 0, len(l.positions))
	for _, pos := range l.positions {
		positions = append(positions, *pos)
	}
	sort.Slice(positions, func(i, j int) bool {
		return positions[i].Instrument < positions[j].Instrument
	})

	return Snapshot{
		Cash:           l.cash,
		NetLiquidation: l.netLiq,
		TotalValue:     l.cash + l.netLiq,
		Positions:      positions,
	}
}
