package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/rustyeddy/backtester/analytics"
	"github.com/rustyeddy/backtester/broker"
	"github.com/rustyeddy/backtester/config"
	"github.com/rustyeddy/backtester/data"
	"github.com/rustyeddy/backtester/engine"
	"github.com/rustyeddy/backtester/internal/util"
	"github.com/rustyeddy/backtester/journal"
	"github.com/rustyeddy/backtester/portfolio"
	"github.com/rustyeddy/backtester/strategy"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run a backtest over a CSV time series",
	Long: `Run replays a CSV time series through the engine loop.

Supported strategies:
  - noop: emits nothing (baseline test)
  - threshold: sell above a high ratio bound, buy below a low one
  - ma-cross: fast/slow EMA crossover on the close price

Example:
  backtester run --csv data/pe_ratio_sp500.csv --symbol SP500 --strategy threshold --hi 25 --lo 15`,
	RunE: runRun,
}

var (
	runConfigPath string
	runCSVPath    string
	runSymbol     string
	runCash       float64
	runStrategy   string
	runField      string
	runHi         float64
	runLo         float64
	runFast       int
	runSlow       int
	runQuantity   float64
	runNotional   float64
	runCommission float64
	runSlippageBP float64
	runJournalDB  string
)

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().StringVarP(&runConfigPath, "config", "c", "", "config file (flags override it)")
	runCmd.Flags().StringVar(&runCSVPath, "csv", "", "path to CSV time series")
	runCmd.Flags().StringVar(&runSymbol, "symbol", "", "instrument identifier")
	runCmd.Flags().Float64VarP(&runCash, "cash", "b", 100_000, "starting cash")

	runCmd.Flags().StringVarP(&runStrategy, "strategy", "s", "threshold", "strategy name (noop, threshold, ma-cross)")
	runCmd.Flags().StringVar(&runField, "field", "pe", "threshold: ratio field name")
	runCmd.Flags().Float64Var(&runHi, "hi", 25, "threshold: sell above")
	runCmd.Flags().Float64Var(&runLo, "lo", 15, "threshold: buy below")
	runCmd.Flags().IntVar(&runFast, "fast", 20, "ma-cross: fast EMA period")
	runCmd.Flags().IntVar(&runSlow, "slow", 50, "ma-cross: slow EMA period")
	runCmd.Flags().Float64VarP(&runQuantity, "quantity", "q", 0, "order size in asset units")
	runCmd.Flags().Float64Var(&runNotional, "notional", 0, "order size in cash, converted at the observed price")

	runCmd.Flags().Float64Var(&runCommission, "commission", 0, "flat commission per trade")
	runCmd.Flags().Float64Var(&runSlippageBP, "slippage-bp", 0, "slippage as percent of price (0.01 = 1bp)")

	runCmd.Flags().StringVarP(&runJournalDB, "db", "d", "", "record fills and equity to this SQLite journal")
}

func runRun(cmd *cobra.Command, args []string) error {
	cfg := config.Default()
	if runConfigPath != "" {
		loaded, err := config.LoadFromFile(runConfigPath)
		if err != nil {
			return err
		}
		cfg = loaded
	}
	applyRunFlags(cmd, cfg)

	if cfg.Data.CSVPath == "" || cfg.Data.Instrument == "" {
		return fmt.Errorf("a CSV path and a symbol are required (--csv, --symbol)")
	}

	log := util.NewLogger(logLevel)

	src, err := data.NewCSVSource(cfg.Data.CSVPath, cfg.Data.Instrument)
	if err != nil {
		return fmt.Errorf("open data: %w", err)
	}
	defer src.Close()

	strat, err := strategy.ByName(cfg.Strategy.Name, strategy.Params{
		Instrument: cfg.Strategy.Instrument,
		Field:      cfg.Strategy.Field,
		Hi:         cfg.Strategy.Hi,
		Lo:         cfg.Strategy.Lo,
		Fast:       cfg.Strategy.Fast,
		Slow:       cfg.Strategy.Slow,
		Quantity:   cfg.Strategy.Quantity,
		Notional:   cfg.Strategy.Notional,
	})
	if err != nil {
		return fmt.Errorf("strategy: %w", err)
	}

	ledger := portfolio.NewLedger(cfg.Account.Cash)
	eng := engine.New(src, strat, ledger, broker.NewSim(broker.Costs{
		Commission: cfg.Broker.Commission,
		SlippageBP: cfg.Broker.SlippageBP,
	}))
	eng.Log = log

	var buf engine.FrameBuffer
	eng.AddReporter(&buf)

	if cfg.Journal.Type == "sqlite" {
		j, err := journal.NewSQLite(cfg.Journal.DBPath)
		if err != nil {
			return fmt.Errorf("open journal: %w", err)
		}
		defer j.Close()

		rep := journal.NewReporter(j)
		eng.AddReporter(rep)
		log.Info().Str("run_id", rep.RunID()).Str("db", cfg.Journal.DBPath).Msg("journaling to sqlite")
	} else if cfg.Journal.Type == "csv" {
		j, err := journal.NewCSV(cfg.Journal.FillsFile, cfg.Journal.EquityFile)
		if err != nil {
			return fmt.Errorf("open journal: %w", err)
		}
		defer j.Close()
		eng.AddReporter(journal.NewReporter(j))
	}

	res, err := eng.Run(cmd.Context())
	if err != nil {
		return fmt.Errorf("run: %w", err)
	}

	engine.PrintResult(os.Stdout, res)

	curve := buf.EquityCurve()
	returns := analytics.Returns(curve)
	fmt.Printf("Sharpe:        %.4f\n", analytics.SharpeRatio(returns, 0, 252))
	fmt.Printf("Max Drawdown:  %.2f%%\n", analytics.MaxDrawdown(curve)*100)

	return nil
}

// applyRunFlags layers explicitly-set flags over the loaded config.
func applyRunFlags(cmd *cobra.Command, cfg *config.Config) {
	set := cmd.Flags().Changed

	if set("csv") || cfg.Data.CSVPath == "" {
		cfg.Data.CSVPath = runCSVPath
	}
	if set("symbol") || cfg.Data.Instrument == "" {
		cfg.Data.Instrument = runSymbol
		cfg.Strategy.Instrument = runSymbol
	}
	if set("cash") {
		cfg.Account.Cash = runCash
	}
	if set("strategy") {
		cfg.Strategy.Name = runStrategy
	}
	if set("field") {
		cfg.Strategy.Field = runField
	}
	if set("hi") {
		cfg.Strategy.Hi = runHi
	}
	if set("lo") {
		cfg.Strategy.Lo = runLo
	}
	if set("fast") {
		cfg.Strategy.Fast = runFast
	}
	if set("slow") {
		cfg.Strategy.Slow = runSlow
	}
	if set("quantity") {
		cfg.Strategy.Quantity = runQuantity
	}
	if set("notional") {
		cfg.Strategy.Notional = runNotional
	}
	if set("commission") {
		cfg.Broker.Commission = runCommission
	}
	if set("slippage-bp") {
		cfg.Broker.SlippageBP = runSlippageBP
	}
	if set("db") {
		cfg.Journal.Type = "sqlite"
		cfg.Journal.DBPath = runJournalDB
	}
}
