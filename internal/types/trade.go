package types

import (
	"time"

	"github.com/moznion/go-optional"
)

// PositionSide is the broker's holding state.
type PositionSide string

const (
	PositionSideFlat  PositionSide = "flat"
	PositionSideLong  PositionSide = "long"
	PositionSideShort PositionSide = "short"
)

// Sign returns the direction multiplier used in PnL calculations:
// +1 for long, -1 for short, 0 for flat.
func (p PositionSide) Sign() int {
	switch p {
	case PositionSideLong:
		return 1
	case PositionSideShort:
		return -1
	default:
		return 0
	}
}

// Action is what the broker did on a bar.
type Action string

const (
	ActionBuy        Action = "buy"
	ActionShort      Action = "short"
	ActionCloseLong  Action = "close long"
	ActionCloseShort Action = "close short"
	ActionHold       Action = "hold"
)

// BarRecord is the outcome of processing one bar. Records are allocated
// up front for the whole series and filled exactly once per index.
type BarRecord struct {
	Index  int          `csv:"index"`
	Time   time.Time    `csv:"time"`
	Signal SignalType   `csv:"signal"`
	Action Action       `csv:"action"`
	// Position is the side after the bar was processed.
	Position PositionSide `csv:"position"`
	// PnL is the realized profit/loss booked on this bar. Zero unless a
	// close happened on this bar.
	PnL float64 `csv:"pnl"`
	// TotalProfit is the cumulative realized profit after this bar.
	TotalProfit float64 `csv:"total_profit"`
	// ExecutedPrice is set only when a transition or close executed on
	// this bar.
	ExecutedPrice optional.Option[float64] `csv:"executed_price"`
	// StopLossLevel and TakeProfitLevel are the active limit price levels,
	// zero while flat.
	StopLossLevel   float64 `csv:"stop_loss"`
	TakeProfitLevel float64 `csv:"take_profit"`
}

// ClosedTrade is one completed round trip.
type ClosedTrade struct {
	// ID is a unique identifier assigned when the trade closes.
	ID string `csv:"trade_id"`
	// Index is the bar index the trade closed on.
	Index int `csv:"index"`
	// ClosedAt is the time of the bar the trade closed on.
	ClosedAt time.Time `csv:"closed_at"`
	// Action is either ActionCloseLong or ActionCloseShort.
	Action Action `csv:"action"`
	// EntryPrice is the execution price the position was opened at.
	EntryPrice float64 `csv:"entry_price"`
	// ExitPrice is the execution price the position was closed at.
	ExitPrice float64 `csv:"exit_price"`
	// PnL is the net realized profit/loss, after banding and broker cost.
	PnL float64 `csv:"pnl"`
}
