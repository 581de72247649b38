package cmd

import (
	"github.com/spf13/cobra"

	"github.com/rustyeddy/backtester/api"
	"github.com/rustyeddy/backtester/config"
	"github.com/rustyeddy/backtester/internal/util"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the replay HTTP API",
	Long: `Serve starts the replay API. GET /replay-all runs a full backtest from
query parameters and returns every tick frame as JSON.

Example:
  backtester serve --addr :8000
  curl 'localhost:8000/replay-all?symbol=SP500&csv_path=data/pe_ratio_sp500.csv'`,
	RunE: runServe,
}

var (
	serveAddr      string
	serveRateLimit float64
	serveBurst     int
)

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().StringVarP(&serveAddr, "addr", "a", ":8000", "listen address")
	serveCmd.Flags().Float64Var(&serveRateLimit, "rate", 1, "replay requests per second (0 = unlimited)")
	serveCmd.Flags().IntVar(&serveBurst, "burst", 2, "replay request burst")
}

func runServe(cmd *cobra.Command, args []string) error {
	log := util.NewLogger(logLevel)

	srv := api.NewServer(config.APIConfig{
		Addr:      serveAddr,
		RateLimit: serveRateLimit,
		Burst:     serveBurst,
	}, log)

	return srv.ListenAndServe()
}
