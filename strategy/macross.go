package strategy

import (
	"fmt"

	"github.com/rustyeddy/backtester/market"
)

// MACross trades a single instrument on a fast/slow EMA crossover of the
// close price. It keeps its indicator state across batches and only fires
// on the cross itself:
//   - bull cross (fast moves above slow): buy
//   - bear cross (fast moves below slow): sell
//
// Whether a sell actually trades depends on the ledger's inventory check;
// the strategy just states intent.
type MACross struct {
	Instrument string
	FastPeriod int
	SlowPeriod int

	quantity float64

	fast *ema
	slow *ema

	lastDiff     float64
	haveLastDiff bool
}

func NewMACross(instrument string, fast, slow int, quantity float64) (*MACross, error) {
	if instrument == "" {
		return nil, fmt.Errorf("ma-cross: instrument is required")
	}
	if fast <= 0 || slow <= 0 || fast >= slow {
		return nil, fmt.Errorf("ma-cross: need 0 < fast < slow, got fast=%d slow=%d", fast, slow)
	}
	if quantity <= 0 {
		return nil, fmt.Errorf("ma-cross: quantity must be positive")
	}
	return &MACross{
		Instrument: instrument,
		FastPeriod: fast,
		SlowPeriod: slow,
		quantity:   quantity,
		fast:       newEMA(fast),
		slow:       newEMA(slow),
	}, nil
}

func (s *MACross) Name() string { return "ma-cross" }

func (s *MACross) OnBatch(batch market.Batch) []market.Signal {
	for _, obs := range batch {
		if obs.Instrument != s.Instrument {
			continue
		}
		px, ok := obs.Close()
		if !ok {
			continue
		}

		s.fast.update(px)
		s.slow.update(px)

		if !s.fast.ready() || !s.slow.ready() {
			return nil
		}

		diff := s.fast.value() - s.slow.value()

		if !s.haveLastDiff {
			s.lastDiff = diff
			s.haveLastDiff = true
			return nil
		}

		bullCross := diff > 0 && s.lastDiff <= 0
		bearCross := diff < 0 && s.lastDiff >= 0
		s.lastDiff = diff

		var dir market.Direction
		switch {
		case bullCross:
			dir = market.Buy
		case bearCross:
			dir = market.Sell
		default:
			return nil
		}

		return []market.Signal{{
			Instrument: obs.Instrument,
			Time:       obs.Time,
			Direction:  dir,
			Quantity:   s.quantity,
			Meta:       map[string]string{"reason": fmt.Sprintf("ema%d/%d cross", s.FastPeriod, s.SlowPeriod)},
		}}
	}
	return nil
}

// ema is a streaming exponential moving average. Seeds with an SMA over the
// first period values, then smooths.
type ema struct {
	period     int
	multiplier float64
	val        float64
	count      int
	warmupSum  float64
}

func newEMA(period int) *ema {
	return &ema{
		period:     period,
		multiplier: 2.0 / float64(period+1),
	}
}

func (e *ema) update(px float64) {
	e.count++
	if e.count <= e.period {
		e.warmupSum += px
		e.val = e.warmupSum / float64(e.count)
		return
	}
	e.val = (px-e.val)*e.multiplier + e.val
}

func (e *ema) ready() bool { return e.count >= e.period }

func (e *ema) value() float64 { return e.val }
