package types

import (
	"time"

	"github.com/moznion/go-optional"
)

// Bar is a single timestamped unit of price data in the replayed series.
// Bid and Ask are optional; datasets exported without quote data carry only
// a close price, which substitutes for both sides.
type Bar struct {
	Time   time.Time `csv:"time"`
	Open   float64   `csv:"open"`
	High   float64   `csv:"high"`
	Low    float64   `csv:"low"`
	Close  float64   `csv:"close"`
	Volume float64   `csv:"volume"`

	Bid optional.Option[float64] `csv:"bid"`
	Ask optional.Option[float64] `csv:"ask"`
}

// BidPrice returns the bid price, substituting the close price when the
// dataset has no quote data.
func (b Bar) BidPrice() float64 {
	if b.Bid.IsSome() {
		return b.Bid.Unwrap()
	}

	return b.Close
}

// AskPrice returns the ask price, substituting the close price when the
// dataset has no quote data.
func (b Bar) AskPrice() float64 {
	if b.Ask.IsSome() {
		return b.Ask.Unwrap()
	}

	return b.Close
}
