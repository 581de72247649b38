// Package data provides market data sources for the backtest engine. A
// Source hands out batches of observations in timestamp order and reports
// exhaustion; it buffers at most one pending batch so HasNext is idempotent
// and NextBatch consumes each batch exactly once.
package data

import (
	"errors"

	"github.com/rustyeddy/backtester/market"
)

// ErrExhausted is returned by NextBatch after the source reported
// exhaustion. Hitting it is a programming error in the caller.
var ErrExhausted = errors.New("data: source exhausted")

// Source produces zero or more observations per logical time point.
type Source interface {
	// HasNext is true iff at least one more batch is available. It may be
	// called any number of times without consuming anything.
	HasNext() bool

	// NextBatch returns all observations sharing the current timestamp and
	// consumes them. Calling it when HasNext is false returns ErrExhausted.
	NextBatch() (market.Batch, error)
}

// SliceSource replays pre-built batches from memory. Useful for tests and
// synthetic scenarios.
type SliceSource struct {
	batches []market.Batch
	idx     int
}

func NewSliceSource(batches ...market.Batch) *SliceSource {
	return &SliceSource{batches: batches}
}

func (s *SliceSource) HasNext() bool {
	return s.idx < len(s.batches)
}

func (s *SliceSource) NextBatch() (market.Batch, error) {
	if !s.HasNext() {
		return nil, ErrExhausted
	}
	b := s.batches[s.idx]
	s.idx++
	return b, nil
}
