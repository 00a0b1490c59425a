package strategy

import (
	"github.com/rxtech-lab/fx-backtest/internal/types"
)

// Strategy turns the bar series into per-bar trading signals. A strategy
// may keep incremental indicator state between bars; Initialize is called
// at the start of every run and must reset that state so that runs never
// leak into each other.
type Strategy interface {
	// Initialize sets up the strategy with a YAML configuration string
	// (empty string means defaults) and resets all per-run state.
	Initialize(config string) error
	// ProcessBar produces the signal for bar `index`. bars[:index+1] is
	// the series seen so far; strategies must not look ahead of index.
	ProcessBar(index int, bars []types.Bar) (types.Signal, error)
	// Name returns the name of the strategy.
	Name() string
}
