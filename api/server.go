// Package api exposes the thin HTTP replay surface. A replay request
// builds a fresh engine from query parameters, runs it to completion, and
// returns every per-tick frame plus the final portfolio snapshot. The core
// stays oblivious: the API is just another consumer of the reporting hook.
package api

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"github.com/rustyeddy/backtester/analytics"
	"github.com/rustyeddy/backtester/broker"
	"github.com/rustyeddy/backtester/config"
	"github.com/rustyeddy/backtester/data"
	"github.com/rustyeddy/backtester/engine"
	"github.com/rustyeddy/backtester/internal/metrics"
	"github.com/rustyeddy/backtester/portfolio"
	"github.com/rustyeddy/backtester/strategy"
)

type Server struct {
	addr    string
	log     zerolog.Logger
	limiter *rate.Limiter
}

func NewServer(cfg config.APIConfig, log zerolog.Logger) *Server {
	limit := rate.Inf
	if cfg.RateLimit > 0 {
		limit = rate.Limit(cfg.RateLimit)
	}
	burst := cfg.Burst
	if burst < 1 {
		burst = 1
	}
	return &Server{
		addr:    cfg.Addr,
		log:     log,
		limiter: rate.NewLimiter(limit, burst),
	}
}

func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/replay-all", s.handleReplayAll)
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})
	mux.Handle("/metrics", promhttp.Handler())
	return s.logging(mux)
}

func (s *Server) ListenAndServe() error {
	s.log.Info().Str("addr", s.addr).Msg("replay api listening")
	srv := &http.Server{
		Addr:              s.addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	return srv.ListenAndServe()
}

// replaySpec echoes the parameters a replay was built from.
type replaySpec struct {
	Symbol      string  `json:"symbol"`
	Strategy    string  `json:"strategy"`
	CSVPath     string  `json:"csv_path"`
	InitialCash float64 `json:"initial_cash"`
	Hi          float64 `json:"hi"`
	Lo          float64 `json:"lo"`
	Quantity    float64 `json:"quantity"`
	Notional    float64 `json:"notional"`
	Commission  float64 `json:"commission"`
	SlippageBP  float64 `json:"slippage_bp"`
}

type replayResponse struct {
	Spec   replaySpec         `json:"spec"`
	Frames []engine.Frame     `json:"frames"`
	Final  portfolio.Snapshot `json:"final"`
	Sharpe float64            `json:"sharpe"`
	MaxDD  float64            `json:"max_drawdown"`
}

func (s *Server) handleReplayAll(w http.ResponseWriter, r *http.Request) {
	if !s.limiter.Allow() {
		http.Error(w, "too many replay requests", http.StatusTooManyRequests)
		return
	}

	q := r.URL.Query()
	spec := replaySpec{
		Symbol:      q.Get("symbol"),
		Strategy:    qs(q.Get("strategy"), "threshold"),
		CSVPath:     q.Get("csv_path"),
		InitialCash: qf(q.Get("initial_cash"), 100_000),
		Hi:          qf(q.Get("hi"), 25),
		Lo:          qf(q.Get("lo"), 15),
		Quantity:    qf(q.Get("quantity"), 0),
		Notional:    qf(q.Get("notional"), 0),
		Commission:  qf(q.Get("commission"), 0),
		SlippageBP:  qf(q.Get("slippage_bp"), 0),
	}
	if spec.Symbol == "" || spec.CSVPath == "" {
		http.Error(w, "symbol and csv_path are required", http.StatusBadRequest)
		return
	}
	if spec.Quantity == 0 && spec.Notional == 0 {
		spec.Notional = 0.05 * spec.InitialCash
	}

	frames, final, err := s.replay(r.Context(), spec)
	if err != nil {
		s.log.Error().Err(err).Str("symbol", spec.Symbol).Msg("replay failed")
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	curve := make([]float64, len(frames))
	for i, f := range frames {
		curve[i] = f.Portfolio.TotalValue
	}
	returns := analytics.Returns(curve)

	resp := replayResponse{
		Spec:   spec,
		Frames: frames,
		Final:  final,
		Sharpe: analytics.SharpeRatio(returns, 0, 252),
		MaxDD:  analytics.MaxDrawdown(curve),
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		s.log.Error().Err(err).Msg("encode response")
	}
}

func (s *Server) replay(ctx context.Context, spec replaySpec) ([]engine.Frame, portfolio.Snapshot, error) {
	src, err := data.NewCSVSource(spec.CSVPath, spec.Symbol)
	if err != nil {
		return nil, portfolio.Snapshot{}, err
	}
	defer src.Close()

	strat, err := strategy.ByName(spec.Strategy, strategy.Params{
		Instrument: spec.Symbol,
		Field:      "pe",
		Hi:         spec.Hi,
		Lo:         spec.Lo,
		Fast:       20,
		Slow:       50,
		Quantity:   spec.Quantity,
		Notional:   spec.Notional,
	})
	if err != nil {
		return nil, portfolio.Snapshot{}, err
	}

	ledger := portfolio.NewLedger(spec.InitialCash)
	eng := engine.New(src, strat, ledger, broker.NewSim(broker.Costs{
		Commission: spec.Commission,
		SlippageBP: spec.SlippageBP,
	}))
	eng.Log = s.log

	var buf engine.FrameBuffer
	eng.AddReporter(&buf)
	eng.AddReporter(metrics.Reporter{})

	res, err := eng.Run(ctx)
	if err != nil {
		return nil, portfolio.Snapshot{}, err
	}

	return buf.Frames(), res.Final, nil
}

func (s *Server) logging(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		s.log.Info().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Dur("took", time.Since(start)).
			Msg("request")
	})
}

func qs(v, def string) string {
	if v == "" {
		return def
	}
	return v
}

func qf(v string, def float64) float64 {
	if v == "" {
		return def
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return def
	}
	return f
}
