// Package journal records per-run artifacts: one row per fill and one
// equity snapshot per tick. Sinks are pluggable (CSV files or SQLite); the
// Reporter adapter attaches a journal to an engine. There is no cross-run
// registry or query surface — a journal describes exactly one run.
package journal

import (
	"time"

	"github.com/rustyeddy/backtester/engine"
	"github.com/rustyeddy/backtester/internal/id"
)

type FillRecord struct {
	FillID     string
	RunID      string
	Instrument string
	Direction  int
	Quantity   float64
	Price      float64
	Commission float64
	Slippage   float64
	Time       time.Time
}

type EquitySnapshot struct {
	RunID          string
	Time           time.Time
	Cash           float64
	NetLiquidation float64
	TotalValue     float64
}

type Journal interface {
	RecordFill(FillRecord) error
	RecordEquity(EquitySnapshot) error
	Close() error
}

// Reporter bridges an engine to a journal: every fill in a frame becomes a
// FillRecord, every frame an EquitySnapshot.
type Reporter struct {
	runID string
	j     Journal
}

func NewReporter(j Journal) *Reporter {
	return &Reporter{runID: id.New(), j: j}
}

// RunID identifies this run's rows in shared sinks.
func (r *Reporter) RunID() string { return r.runID }

func (r *Reporter) OnTick(f engine.Frame) error {
	for _, fill := range f.Fills {
		err := r.j.RecordFill(FillRecord{
			FillID:     fill.ID,
			RunID:      r.runID,
			Instrument: fill.Instrument,
			Direction:  int(fill.Direction),
			Quantity:   fill.Quantity,
			Price:      fill.Price,
			Commission: fill.Commission,
			Slippage:   fill.Slippage,
			Time:       fill.Time,
		})
		if err != nil {
			return err
		}
	}

	return r.j.RecordEquity(EquitySnapshot{
		RunID:          r.runID,
		Time:           f.Time,
		Cash:           f.Portfolio.Cash,
		NetLiquidation: f.Portfolio.NetLiquidation,
		TotalValue:     f.Portfolio.TotalValue,
	})
}
