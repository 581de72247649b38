package data

import (
	"github.com/rustyeddy/backtester/market"
)

// MergeSource combines several per-instrument sources into one stream of
// multi-instrument batches. Each emitted batch is the union of every child
// batch carrying the earliest pending timestamp, so instruments that trade
// on different calendars interleave correctly.
type MergeSource struct {
	srcs    []Source
	pending []market.Batch
	err     error
}

func NewMergeSource(srcs ...Source) *MergeSource {
	return &MergeSource{
		srcs:    srcs,
		pending: make([]market.Batch, len(srcs)),
	}
}

func (m *MergeSource) HasNext() bool {
	if m.err != nil {
		return true
	}
	m.fill()
	if m.err != nil {
		return true
	}
	for _, b := range m.pending {
		if b != nil {
			return true
		}
	}
	return false
}

func (m *MergeSource) NextBatch() (market.Batch, error) {
	if !m.HasNext() {
		return nil, ErrExhausted
	}
	if m.err != nil {
		err := m.err
		m.err = nil
		return nil, err
	}

	// Earliest pending timestamp wins; ties merge.
	min := -1
	for i, b := range m.pending {
		if b == nil {
			continue
		}
		if min == -1 || b.Time().Before(m.pending[min].Time()) {
			min = i
		}
	}

	ts := m.pending[min].Time()
	var out market.Batch
	for i, b := range m.pending {
		if b != nil && b.Time().Equal(ts) {
			out = append(out, b...)
			m.pending[i] = nil
		}
	}
	return out, nil
}

// fill tops up the one-batch peek buffer for every child that has data.
func (m *MergeSource) fill() {
	for i, src := range m.srcs {
		if m.pending[i] != nil {
			continue
		}
		if !src.HasNext() {
			continue
		}
		b, err := src.NextBatch()
		if err != nil {
			m.err = err
			return
		}
		if len(b) > 0 {
			m.pending[i] = b
		}
	}
}
