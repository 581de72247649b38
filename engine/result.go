package engine

import (
	"fmt"
	"io"
	"time"

	"github.com/rustyeddy/backtester/portfolio"
)

// Result is a lightweight summary of a completed run.
type Result struct {
	Ticks   int
	Signals int
	Orders  int
	Fills   int

	Start time.Time
	End   time.Time

	Final portfolio.Snapshot
}

// PrintResult writes a human-readable run summary.
func PrintResult(w io.Writer, r Result) {
	fmt.Fprintln(w, "==================================================")
	fmt.Fprintln(w, " Backtest Result")
	fmt.Fprintln(w, "==================================================")

	if !r.Start.IsZero() {
		fmt.Fprintf(w, "Start:         %s\n", r.Start.Format(time.RFC3339))
		fmt.Fprintf(w, "End:           %s\n", r.End.Format(time.RFC3339))
	}
	fmt.Fprintf(w, "Ticks:         %d\n", r.Ticks)
	fmt.Fprintf(w, "Signals:       %d\n", r.Signals)
	fmt.Fprintf(w, "Orders:        %d\n", r.Orders)
	fmt.Fprintf(w, "Fills:         %d\n", r.Fills)

	fmt.Fprintln(w)
	fmt.Fprintln(w, "Portfolio")
	fmt.Fprintln(w, "--------------------------------------------------")
	fmt.Fprintf(w, "Cash:          %.2f\n", r.Final.Cash)
	fmt.Fprintf(w, "Net Liq:       %.2f\n", r.Final.NetLiquidation)
	fmt.Fprintf(w, "Total Value:   %.2f\n", r.Final.TotalValue)

	for _, pos := range r.Final.Positions {
		fmt.Fprintf(w, "  %-12s qty=%.4f avg=%.4f value=%.2f\n",
			pos.Instrument, pos.Quantity, pos.AvgPrice, pos.CurrentValue)
	}

	fmt.Fprintln(w)
}

// FrameBuffer is a Reporter that keeps every frame in memory. The replay
// API uses it to materialize a whole run.
type FrameBuffer struct {
	frames []Frame
}

func (b *FrameBuffer) OnTick(f Frame) error {
	b.frames = append(b.frames, f)
	return nil
}

// Frames returns the collected frames in tick order.
func (b *FrameBuffer) Frames() []Frame { return b.frames }

// EquityCurve extracts the per-tick total portfolio value, in tick order.
func (b *FrameBuffer) EquityCurve() []float64 {
	curve := make([]float64, len(b.frames))
	for i, f := range b.frames {
		curve[i] = f.Portfolio.TotalValue
	}
	return curve
}
