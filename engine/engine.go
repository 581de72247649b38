// Package engine orchestrates the backtest loop. One tick pulls a batch
// from the data source, asks the strategy for signals, gates them through
// the ledger into orders, executes them, applies the fills back to the
// ledger, and hands a frame to any attached reporters. Ticks are strictly
// sequential; nothing observes a later tick before the current one is
// fully processed.
package engine

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/rustyeddy/backtester/broker"
	"github.com/rustyeddy/backtester/data"
	"github.com/rustyeddy/backtester/market"
	"github.com/rustyeddy/backtester/portfolio"
	"github.com/rustyeddy/backtester/strategy"
)

// State of the engine loop.
type State int

const (
	Running State = iota
	Halted
)

func (s State) String() string {
	if s == Running {
		return "running"
	}
	return "halted"
}

// Frame is the per-tick reporting snapshot external consumers (replay API,
// journal, metrics) build on.
type Frame struct {
	Seq          int                `json:"idx"`
	Time         time.Time          `json:"t"`
	Observations market.Batch       `json:"market_events"`
	Signals      []market.Signal    `json:"signals"`
	Orders       []market.Order     `json:"orders"`
	Fills        []market.Fill      `json:"fills"`
	Portfolio    portfolio.Snapshot `json:"portfolio"`
}

// Reporter receives one frame per tick. A reporter error aborts the run:
// ledger invariants are only guaranteed across complete tick boundaries,
// so there is no partial recovery.
type Reporter interface {
	OnTick(Frame) error
}

// Engine wires the stages together and drives them. The ledger is owned
// here and handed to the stages by reference; no ambient shared state.
type Engine struct {
	Clock    Clock
	Source   data.Source
	Strategy strategy.Strategy
	Ledger   *portfolio.Ledger
	Executor broker.Executor
	Log      zerolog.Logger

	reporters []Reporter
	state     State
	seq       int
}

// New builds an engine with a data-driven (unbounded) clock and no logging.
// Callers may replace Clock and Log before Run.
func New(source data.Source, strat strategy.Strategy, ledger *portfolio.Ledger, exec broker.Executor) *Engine {
	return &Engine{
		Clock:    Unbounded(),
		Source:   source,
		Strategy: strat,
		Ledger:   ledger,
		Executor: exec,
		Log:      zerolog.Nop(),
		state:    Running,
	}
}

// AddReporter attaches a per-tick reporting hook. Reporters run in the
// order they were added, on the engine's control thread.
func (e *Engine) AddReporter(r Reporter) {
	e.reporters = append(e.reporters, r)
}

// State reports whether the loop is still running.
func (e *Engine) State() State { return e.state }

// Run drives the loop until the clock or the data source is exhausted,
// whichever comes first, or the context is cancelled between ticks. Any
// failure during a tick aborts the whole run.
func (e *Engine) Run(ctx context.Context) (Result, error) {
	if e.Source == nil {
		return Result{}, fmt.Errorf("engine: Source is required")
	}
	if e.Strategy == nil {
		return Result{}, fmt.Errorf("engine: Strategy is required")
	}
	if e.Ledger == nil {
		return Result{}, fmt.Errorf("engine: Ledger is required")
	}
	if e.Executor == nil {
		return Result{}, fmt.Errorf("engine: Executor is required")
	}
	if e.Clock == nil {
		e.Clock = Unbounded()
	}

	e.state = Running
	var res Result

	for {
		if err := ctx.Err(); err != nil {
			e.state = Halted
			return res, err
		}
		if _, ok := e.Clock.Next(); !ok {
			e.Log.Info().Int("ticks", res.Ticks).Msg("clock exhausted")
			break
		}
		if !e.Source.HasNext() {
			e.Log.Info().Int("ticks", res.Ticks).Msg("data exhausted")
			break
		}

		if err := e.tick(&res); err != nil {
			e.state = Halted
			return res, err
		}
	}

	e.state = Halted
	res.Final = e.Ledger.Snapshot()
	return res, nil
}

func (e *Engine) tick(res *Result) error {
	batch, err := e.Source.NextBatch()
	if err != nil {
		return fmt.Errorf("next batch: %w", err)
	}
	if len(batch) == 0 {
		return nil
	}

	signals := e.Strategy.OnBatch(batch)

	orders, err := e.Ledger.GenerateOrders(signals, batch)
	if err != nil {
		return fmt.Errorf("generate orders: %w", err)
	}

	fills, err := e.Executor.Execute(orders, batch)
	if err != nil {
		return fmt.Errorf("execute: %w", err)
	}

	if err := e.Ledger.ApplyFills(fills, batch); err != nil {
		return fmt.Errorf("apply fills: %w", err)
	}

	ts := batch.Time()
	frame := Frame{
		Seq:          e.seq,
		Time:         ts,
		Observations: batch,
		Signals:      signals,
		Orders:       orders,
		Fills:        fills,
		Portfolio:    e.Ledger.Snapshot(),
	}

	for _, r := range e.reporters {
		if err := r.OnTick(frame); err != nil {
			return fmt.Errorf("reporter: %w", err)
		}
	}

	e.Log.Debug().
		Time("t", ts).
		Int("signals", len(signals)).
		Int("orders", len(orders)).
		Int("fills", len(fills)).
		Float64("cash", frame.Portfolio.Cash).
		Float64("net_liq", frame.Portfolio.NetLiquidation).
		Msg("tick")

	e.seq++
	res.Ticks++
	res.Signals += len(signals)
	res.Orders += len(orders)
	res.Fills += len(fills)
	if res.Start.IsZero() || ts.Before(res.Start) {
		res.Start = ts
	}
	if ts.After(res.End) {
		res.End = ts
	}

	return nil
}
