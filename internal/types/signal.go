package types

import (
	"time"

	"github.com/moznion/go-optional"
)

type SignalType string

const (
	// SignalTypeBuy is a signal that tells the broker to go long (or close a short).
	SignalTypeBuy SignalType = "buy"
	// SignalTypeSell is a signal that tells the broker to go short (or close a long).
	SignalTypeSell SignalType = "sell"
	// SignalTypeHold is a signal that tells the broker to keep the current position.
	SignalTypeHold SignalType = "hold"
)

// IndicatorRow carries the indicator values a strategy computed for one bar.
// Columns keeps the column order stable so that retained history is
// byte-identical across replays of the same run.
type IndicatorRow struct {
	Columns []string
	Values  map[string]float64
}

type Signal struct {
	// Time is the time of the bar the signal was generated for
	Time time.Time
	// Type is the type of the signal
	Type SignalType
	// Name is the name of the strategy that generated the signal
	Name string
	// Reason is the reason for the signal
	Reason string
	// Indicators is the optional indicator row for this bar, retained in
	// the history when indicator storage is enabled
	Indicators optional.Option[IndicatorRow]
}

// HoldSignal returns a hold signal for the given bar time.
func HoldSignal(t time.Time) Signal {
	return Signal{
		Time:       t,
		Type:       SignalTypeHold,
		Name:       "",
		Reason:     "",
		Indicators: optional.None[IndicatorRow](),
	}
}
