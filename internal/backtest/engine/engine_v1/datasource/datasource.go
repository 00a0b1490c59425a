package datasource

import (
	"time"

	"github.com/moznion/go-optional"
	"github.com/rxtech-lab/fx-backtest/internal/types"
)

// DataSource supplies the ordered bar series for a backtest run.
type DataSource interface {
	// Initialize loads the bar data at the given path (CSV or Parquet)
	// into the data source. May be called again to switch data files.
	Initialize(path string) error
	// ReadAll yields every bar inside the optional time window, in
	// ascending time order.
	ReadAll(start optional.Option[time.Time], end optional.Option[time.Time]) func(yield func(types.Bar, error) bool)
	// Count returns the number of bars inside the optional time window.
	Count(start optional.Option[time.Time], end optional.Option[time.Time]) (int, error)
	// Close closes the data source and releases any resources.
	Close() error
}
