package writer

import (
	"github.com/rxtech-lab/fx-backtest/internal/types"
)

// RunResult is everything the reporting layer needs from one finished run:
// the raw bars, the broker's per-bar records (plus retained indicator
// values), the closed trades, and the summary aggregate.
type RunResult struct {
	Bars             []types.Bar
	Records          []types.BarRecord
	IndicatorColumns []string
	IndicatorRows    [][]float64
	Trades           []types.ClosedTrade
	Summary          types.Summary
}

// ResultWriter writes the results of one backtest run to a folder.
type ResultWriter interface {
	// Write emits history.csv, history.parquet, trades.csv, weekly.csv
	// and summary.yaml into the given folder.
	Write(folder string, result RunResult) error
	// Close releases any resources held by the writer.
	Close() error
}
