package strategy

import (
	"fmt"

	"github.com/rustyeddy/backtester/market"
)

// Threshold is the reference policy: compare a ratio field against high/low
// bounds and lean against it. Above Hi the instrument looks expensive
// (sell); below Lo it looks cheap (buy); in between, nothing. No
// hysteresis.
type Threshold struct {
	Instrument string
	Field      string
	Hi         float64
	Lo         float64

	quantity float64
	notional float64
}

func NewThreshold(instrument, field string, hi, lo, quantity, notional float64) (*Threshold, error) {
	if instrument == "" {
		return nil, fmt.Errorf("threshold: instrument is required")
	}
	if field == "" {
		return nil, fmt.Errorf("threshold: ratio field is required")
	}
	if hi <= lo {
		return nil, fmt.Errorf("threshold: hi (%.2f) must exceed lo (%.2f)", hi, lo)
	}
	if quantity <= 0 && notional <= 0 {
		return nil, fmt.Errorf("threshold: quantity or notional must be positive")
	}
	return &Threshold{
		Instrument: instrument,
		Field:      field,
		Hi:         hi,
		Lo:         lo,
		quantity:   quantity,
		notional:   notional,
	}, nil
}

func (s *Threshold) Name() string { return "threshold" }

func (s *Threshold) OnBatch(batch market.Batch) []market.Signal {
	var signals []market.Signal

	for _, obs := range batch {
		if obs.Instrument != s.Instrument {
			continue
		}
		ratio, ok := obs.Field(s.Field)
		if !ok {
			continue
		}

		var dir market.Direction
		var reason string
		switch {
		case ratio > s.Hi:
			dir = market.Sell
			reason = fmt.Sprintf("%s %.2f > %.2f", s.Field, ratio, s.Hi)
		case ratio < s.Lo:
			dir = market.Buy
			reason = fmt.Sprintf("%s %.2f < %.2f", s.Field, ratio, s.Lo)
		default:
			continue
		}

		px, _ := obs.Close()
		qty := sizeIn(s.quantity, s.notional, px)
		if qty <= 0 {
			continue
		}

		signals = append(signals, market.Signal{
			Instrument: obs.Instrument,
			Time:       obs.Time,
			Direction:  dir,
			Quantity:   qty,
			Meta:       map[string]string{"reason": reason},
		})
	}

	return signals
}
