package metrics

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/rustyeddy/backtester/engine"
)

var (
	TicksTotal = prometheus.NewCounter(
		prometheus.CounterOpts{Name: "backtester_ticks_total", Help: "Engine ticks processed"},
	)
	SignalsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "backtester_signals_total", Help: "Signals emitted by strategies"},
		[]string{"symbol", "direction"},
	)
	OrdersTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "backtester_orders_total", Help: "Orders admitted by the ledger"},
		[]string{"symbol", "direction"},
	)
	FillsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "backtester_fills_total", Help: "Fills applied to the ledger"},
		[]string{"symbol", "direction"},
	)
)

func init() {
	prometheus.MustRegister(TicksTotal, SignalsTotal, OrdersTotal, FillsTotal)
}

// Reporter feeds the counters from engine frames.
type Reporter struct{}

func (Reporter) OnTick(f engine.Frame) error {
	TicksTotal.Inc()
	for _, s := range f.Signals {
		SignalsTotal.WithLabelValues(s.Instrument, s.Direction.String()).Inc()
	}
	for _, o := range f.Orders {
		OrdersTotal.WithLabelValues(o.Instrument, o.Direction.String()).Inc()
	}
	for _, fl := range f.Fills {
		FillsTotal.WithLabelValues(fl.Instrument, fl.Direction.String()).Inc()
	}
	return nil
}
