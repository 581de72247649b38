// Package strategy holds the signal generators. A strategy is an opaque,
// replaceable policy behind a single entry point: it sees the current batch
// of observations and emits zero or more signals. Any internal memory
// (rolling indicators, last-cross state) is the strategy's own business.
package strategy

import (
	"fmt"
	"strings"

	"github.com/rustyeddy/backtester/market"
)

// Strategy turns a batch of observations into trading signals. It must
// never emit a signal for an instrument absent from the batch.
type Strategy interface {
	Name() string
	OnBatch(batch market.Batch) []market.Signal
}

// Params collects the knobs the built-in strategies understand. Unused
// fields are ignored by strategies that don't need them.
type Params struct {
	Instrument string

	// threshold
	Field string  // ratio field name, e.g. "pe"
	Hi    float64 // sell above
	Lo    float64 // buy below

	// ma-cross
	Fast int
	Slow int

	// sizing: Quantity in asset units, or Notional converted to units at
	// the observed price. Quantity wins when both are set.
	Quantity float64
	Notional float64
}

// ByName builds one of the built-in strategies.
func ByName(name string, p Params) (Strategy, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "noop", "none":
		return Noop{}, nil

	case "threshold", "ratio-threshold":
		return NewThreshold(p.Instrument, p.Field, p.Hi, p.Lo, p.Quantity, p.Notional)

	case "ma-cross", "macross":
		return NewMACross(p.Instrument, p.Fast, p.Slow, p.Quantity)

	default:
		return nil, fmt.Errorf("unknown strategy %q (supported: noop, threshold, ma-cross)", name)
	}
}

// Noop emits nothing. Baseline for engine plumbing tests.
type Noop struct{}

func (Noop) Name() string { return "noop" }

func (Noop) OnBatch(market.Batch) []market.Signal { return nil }

// sizeIn converts the configured sizing to asset units at the given price.
// Notional sizing is resolved here, at the strategy boundary, so quantity
// is the one unit flowing through the rest of the pipeline.
func sizeIn(quantity, notional, price float64) float64 {
	if quantity > 0 {
		return quantity
	}
	if notional > 0 && price > 0 {
		return notional / price
	}
	return 0
}
