// Package market defines the immutable event records passed between the
// backtest stages: observations in, signals, orders and fills out. Records
// are created fresh each tick and never mutated after construction.
package market

import "time"

// Direction of a signal, order or fill.
type Direction int

const (
	Buy  Direction = +1
	Flat Direction = 0
	Sell Direction = -1
)

func (d Direction) String() string {
	switch d {
	case Buy:
		return "buy"
	case Sell:
		return "sell"
	}
	return "flat"
}

// FieldClose is the reference price field every observation is expected to
// carry. Orders and fills price against it.
const FieldClose = "close"

// Observation is a single market data point: one instrument at one time,
// with arbitrary named numeric fields (close, a fundamental ratio, ...).
type Observation struct {
	Instrument string             `json:"symbol"`
	Time       time.Time          `json:"timestamp"`
	Fields     map[string]float64 `json:"data"`
}

// Field returns the named numeric field, false if absent.
func (o Observation) Field(name string) (float64, bool) {
	v, ok := o.Fields[name]
	return v, ok
}

// Close returns the reference price, false if the observation carries none.
func (o Observation) Close() (float64, bool) {
	return o.Field(FieldClose)
}

// Batch is the set of observations sharing one tick's timestamp.
type Batch []Observation

// Time returns the batch timestamp. Zero for an empty batch.
func (b Batch) Time() time.Time {
	if len(b) == 0 {
		return time.Time{}
	}
	return b[0].Time
}

// Has reports whether the batch carries an observation for instrument.
func (b Batch) Has(instrument string) bool {
	for _, o := range b {
		if o.Instrument == instrument {
			return true
		}
	}
	return false
}

// Field looks up a named field for an instrument, false if either the
// instrument or the field is absent.
func (b Batch) Field(instrument, name string) (float64, bool) {
	for _, o := range b {
		if o.Instrument == instrument {
			return o.Field(name)
		}
	}
	return 0, false
}

// Price returns the reference price for an instrument. A missing instrument
// or a missing close field is a MissingPriceError: it means the strategy or
// the fill stream references data the batch does not carry.
func (b Batch) Price(instrument string) (float64, error) {
	if px, ok := b.Field(instrument, FieldClose); ok {
		return px, nil
	}
	return 0, &MissingPriceError{Instrument: instrument, Time: b.Time()}
}

// Signal is a trading intent emitted by a strategy. Quantity is always in
// asset units; strategies that size by notional convert at their boundary.
type Signal struct {
	Instrument string            `json:"symbol"`
	Time       time.Time         `json:"timestamp"`
	Direction  Direction         `json:"direction"`
	Quantity   float64           `json:"qty"`
	Meta       map[string]string `json:"meta,omitempty"`
}

// OrderType distinguishes market from limit orders.
type OrderType string

const (
	OrderMarket OrderType = "market"
	OrderLimit  OrderType = "limit"
)

// Order is an intent that passed the ledger's feasibility check.
type Order struct {
	Instrument string    `json:"symbol"`
	Time       time.Time `json:"timestamp"`
	Direction  Direction `json:"direction"`
	Quantity   float64   `json:"qty"`
	Type       OrderType `json:"order_type"`
	LimitPrice float64   `json:"limit_price,omitempty"` // limit orders only
}

// Fill is a confirmed execution. Price, Commission and Slippage are always
// non-negative; Direction mirrors the originating order.
type Fill struct {
	ID         string    `json:"fill_id"`
	Instrument string    `json:"symbol"`
	Time       time.Time `json:"timestamp"`
	Direction  Direction `json:"direction"`
	Price      float64   `json:"fill_price"`
	Quantity   float64   `json:"qty"`
	Commission float64   `json:"commission"`
	Slippage   float64   `json:"slippage"`
}

// Notional is the cash value of the fill before costs.
func (f Fill) Notional() float64 {
	return f.Price * f.Quantity
}
