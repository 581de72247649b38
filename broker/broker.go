// Package broker simulates order execution. Every order for a tick fills
// at the batch's reference price adjusted by a basis-point slippage cost,
// plus a flat commission per trade. Execution is deterministic: same
// orders, same batch, same parameters, same fills.
package broker

import (
	"github.com/rustyeddy/backtester/internal/id"
	"github.com/rustyeddy/backtester/market"
)

// Executor converts feasible orders into fills against the current batch.
type Executor interface {
	Execute(orders []market.Order, batch market.Batch) ([]market.Fill, error)
}

// Costs parameterizes the simulated execution model.
type Costs struct {
	// Commission is a flat charge per trade, in account currency.
	Commission float64

	// SlippageBP is the slippage as a percentage of the reference price:
	// 0.01 is one basis point. The fill price shifts by price*SlippageBP/100
	// against the order: buys pay more, sells receive less.
	SlippageBP float64
}

// Sim is the simulated broker. No intra-tick price path, no partial fills,
// no order book: one order, one fill, at the reference price plus costs.
type Sim struct {
	costs Costs
}

func NewSim(costs Costs) *Sim {
	return &Sim{costs: costs}
}

func (s *Sim) Execute(orders []market.Order, batch market.Batch) ([]market.Fill, error) {
	var fills []market.Fill

	for _, order := range orders {
		px, err := batch.Price(order.Instrument)
		if err != nil {
			return nil, err
		}

		slip := px * s.costs.SlippageBP / 100
		fillPrice := px + slip
		if order.Direction == market.Sell {
			fillPrice = px - slip
		}

		fills = append(fills, market.Fill{
			ID:         id.New(),
			Instrument: order.Instrument,
			Time:       order.Time,
			Direction:  order.Direction,
			Price:      fillPrice,
			Quantity:   order.Quantity,
			Commission: s.costs.Commission,
			Slippage:   abs(slip * order.Quantity),
		})
	}

	return fills, nil
}

func abs(x float64) float64 {
	if x < 0 {
		return -x
	}
	return x
}
