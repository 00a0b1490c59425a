package types

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// PipScale converts an absolute price difference into pips for reporting.
// One pip is 0.0001 for the normalized quote convention used throughout.
const PipScale = 10000.0

// Summary is the aggregate view of a finished (or in-progress) run. It is
// recomputed on demand from the broker's counters and history, never stored.
type Summary struct {
	// Start and End are the run window.
	Start time.Time `yaml:"start"`
	End   time.Time `yaml:"end"`
	// Pair is the instrument identifier, e.g. EURUSD.
	Pair string `yaml:"pair"`
	// Frequency is the data interval label, e.g. M5.
	Frequency string `yaml:"frequency"`
	// TotalTrades counts close events.
	TotalTrades int `yaml:"total_trades"`
	// TotalPnL is the final cumulative realized profit in price units.
	TotalPnL float64 `yaml:"total_pnl"`
	// TotalPnLPips is TotalPnL scaled by PipScale.
	TotalPnLPips float64 `yaml:"total_pnl_pips"`
	// Win/loss/tie counts and percentages. Percentages are 0 when
	// TotalTrades is 0.
	TradesWon     int     `yaml:"trades_won"`
	TradesWonPct  float64 `yaml:"trades_won_pct"`
	TradesLost    int     `yaml:"trades_lost"`
	TradesLostPct float64 `yaml:"trades_lost_pct"`
	TradesTied    int     `yaml:"trades_tied"`
	TradesTiedPct float64 `yaml:"trades_tied_pct"`
}

// WriteSummary writes the run summary to a YAML file.
func WriteSummary(path string, summary Summary) error {
	data, err := yaml.Marshal(summary)
	if err != nil {
		return fmt.Errorf("failed to marshal summary to YAML: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write summary to file: %w", err)
	}

	return nil
}
