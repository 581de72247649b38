package cmd

import (
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

var logLevel string

var rootCmd = &cobra.Command{
	Use:   "backtester",
	Short: "A discrete-event market simulation and backtesting engine",
	Long: `Backtester replays historical market observations through a strategy,
a portfolio ledger and a simulated broker, one tick at a time.

It provides tools for:
  - Backtesting strategies against CSV time series
  - Recording fills and equity curves to CSV or SQLite journals
  - Serving full replays over a small HTTP API
  - Summary analytics (Sharpe ratio, max drawdown)`,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	// Local overrides (paths, addresses) may live in a .env file.
	_ = godotenv.Load()

	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "log level (trace, debug, info, warn, error)")
}
