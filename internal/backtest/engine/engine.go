package engine

import (
	"context"
	"time"

	"github.com/moznion/go-optional"
	"github.com/rxtech-lab/fx-backtest/internal/backtest/engine/engine_v1/datasource"
	"github.com/rxtech-lab/fx-backtest/internal/strategy"
)

// Lifecycle callback types for backtest phases.
// Callbacks with an error return can abort execution by returning an error.

// OnRunStartCallback is called when one strategy+limit+data file run begins.
type OnRunStartCallback func(strategyName string, limitPips float64, dataFilePath string, totalBars int) error

// OnRunEndCallback is called when one strategy+limit+data file run ends.
type OnRunEndCallback func(strategyName string, limitPips float64, dataFilePath string, resultFolderPath string)

// OnProcessDataCallback is called for each bar processed.
type OnProcessDataCallback func(current int, total int) error

// LifecycleCallbacks holds the lifecycle callback functions for the
// backtest engine. All fields are pointers, nil means no callback.
type LifecycleCallbacks struct {
	OnRunStart    *OnRunStartCallback
	OnRunEnd      *OnRunEndCallback
	OnProcessData *OnProcessDataCallback
}

type Engine interface {
	// Initialize the engine with the given YAML configuration content.
	Initialize(config string) error
	// SetDataPath sets the path to the market data files. Accepts glob
	// patterns for batch loading (e.g. "data/*.csv").
	SetDataPath(path string) error
	// SetResultsFolder sets the output directory for backtest results.
	// Each run writes into <folder>/<strategy>/<limit>Limit/<datafile>/.
	SetResultsFolder(folder string) error
	// LoadStrategy adds a trading strategy. Could be called multiple
	// times to run multiple strategies.
	LoadStrategy(strategy strategy.Strategy) error
	// SetDataSource sets the data source for the engine.
	SetDataSource(dataSource datasource.DataSource) error
	// SetTimeWindow overrides the run window from the configuration.
	SetTimeWindow(start optional.Option[time.Time], end optional.Option[time.Time]) error
	// Run executes every strategy against every limit level and data
	// file. The context can be used to cancel the backtest operation.
	Run(ctx context.Context, callbacks LifecycleCallbacks) error
	// GetConfigSchema returns the JSON schema of the engine configuration.
	GetConfigSchema() (string, error)
}
