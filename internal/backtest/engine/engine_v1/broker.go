package engine

import (
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/moznion/go-optional"
	"github.com/rxtech-lab/fx-backtest/internal/logger"
	"github.com/rxtech-lab/fx-backtest/internal/types"
	"github.com/rxtech-lab/fx-backtest/pkg/errors"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// classificationPrecision is the number of decimal places the net PnL is
// rounded to before a closed trade is classified as won, lost or tied.
// Comparing the raw float against zero would misclassify true zero-sum
// trades on floating point noise.
const classificationPrecision = 5

// BrokerConfig configures a single Broker instance for one run.
// Offsets are signed and in absolute price units, not pips: the stop-loss
// offset must be negative and the take-profit offset positive so that a
// long position gets a stop below and a target above its entry price, and
// a short position the mirror image.
type BrokerConfig struct {
	StopLoss       float64 `validate:"lt=0"`
	TakeProfit     float64 `validate:"gt=0"`
	GuaranteedStop bool
	BrokerCost     float64 `validate:"gte=0"`
	Pair           string  `validate:"required"`
	Frequency      string  `validate:"required"`
	Start          time.Time
	End            time.Time
	StoreIndicators bool
}

// Validate fails fast on a configuration that could only ever produce
// nonsensical trades.
func (c BrokerConfig) Validate() error {
	if c.StopLoss >= 0 {
		return errors.Newf(errors.ErrCodeInvalidStopLoss, "stop loss offset must be negative, got %f", c.StopLoss)
	}

	if c.TakeProfit <= 0 {
		return errors.Newf(errors.ErrCodeInvalidTakeProfit, "take profit offset must be positive, got %f", c.TakeProfit)
	}

	if c.BrokerCost < 0 {
		return errors.Newf(errors.ErrCodeInvalidBrokerCost, "broker cost must not be negative, got %f", c.BrokerCost)
	}

	validate := validator.New()
	if err := validate.Struct(c); err != nil {
		return errors.Wrap(errors.ErrCodeInvalidConfiguration, "invalid broker config", err)
	}

	return nil
}

// Broker is the position and execution state machine of a backtest run.
// It consumes one signal and one bar at a time, in strict index order,
// opens/holds/flips/closes a single position, applies guaranteed-stop
// banding and the flat broker cost, and records the outcome of every bar
// in its history.
//
// A Broker owns all of its mutable state; one run gets exactly one
// instance and instances are never shared.
type Broker struct {
	config BrokerConfig
	log    *logger.Logger

	side            types.PositionSide
	entryPrice      optional.Option[float64]
	stopLossLevel   float64
	takeProfitLevel float64

	tradesTotal int
	tradesWon   int
	tradesLost  int
	tradesTied  int
	totalProfit float64

	history   *History
	trades    []types.ClosedTrade
	nextIndex int
}

// barOutcome is what the transition logic decided for one bar.
type barOutcome struct {
	action        types.Action
	pnl           float64
	executedPrice optional.Option[float64]
}

func holdOutcome() barOutcome {
	return barOutcome{
		action:        types.ActionHold,
		pnl:           0,
		executedPrice: optional.None[float64](),
	}
}

// NewBroker creates a broker for a series of barCount bars.
func NewBroker(config BrokerConfig, barCount int, log *logger.Logger) (*Broker, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	if barCount < 0 {
		return nil, errors.Newf(errors.ErrCodeInsufficientData, "bar count must not be negative, got %d", barCount)
	}

	return &Broker{
		config:          config,
		log:             log,
		side:            types.PositionSideFlat,
		entryPrice:      optional.None[float64](),
		stopLossLevel:   0,
		takeProfitLevel: 0,
		tradesTotal:     0,
		tradesWon:       0,
		tradesLost:      0,
		tradesTied:      0,
		totalProfit:     0,
		history:         NewHistory(barCount, config.StoreIndicators),
		trades:          nil,
		nextIndex:       0,
	}, nil
}

// ProcessBar applies one bar atomically: it runs the transition logic for
// the inbound signal, evaluates stop/target limits for any open position,
// and fills the bar's history record. Bars must arrive in increasing index
// order; anything else is an invariant violation and aborts the run.
//
// A signal that is not buy or sell collapses to hold — strategy output is
// not under the broker's control and must not kill a long replay.
func (b *Broker) ProcessBar(index int, bar types.Bar, signal types.Signal) error {
	if index != b.nextIndex {
		return errors.Newf(errors.ErrCodeOutOfOrderBar, "bar %d processed out of order, expected %d", index, b.nextIndex)
	}

	if index >= b.history.Len() {
		return errors.Newf(errors.ErrCodeRecordOutOfRange, "bar index %d outside series of %d bars", index, b.history.Len())
	}

	bid := bar.BidPrice()
	ask := bar.AskPrice()

	var outcome barOutcome

	switch signal.Type {
	case types.SignalTypeBuy:
		outcome = b.buy(index, bar, bid, ask)
	case types.SignalTypeSell:
		outcome = b.sell(index, bar, bid, ask)
	case types.SignalTypeHold:
		outcome = b.checkStopConditions(index, bar, bid, ask)
	default:
		b.log.Debug("unrecognized signal treated as hold",
			zap.String("signal", string(signal.Type)),
			zap.Int("bar", index),
		)

		outcome = b.checkStopConditions(index, bar, bid, ask)
	}

	record := types.BarRecord{
		Index:           index,
		Time:            bar.Time,
		Signal:          signal.Type,
		Action:          outcome.action,
		Position:        b.side,
		PnL:             outcome.pnl,
		TotalProfit:     b.totalProfit,
		ExecutedPrice:   outcome.executedPrice,
		StopLossLevel:   b.stopLossLevel,
		TakeProfitLevel: b.takeProfitLevel,
	}

	if err := b.history.Fill(index, record); err != nil {
		return err
	}

	if signal.Indicators.IsSome() {
		if err := b.history.AppendIndicators(index, signal.Indicators.Unwrap()); err != nil {
			return err
		}
	}

	b.nextIndex++

	return nil
}

// buy handles a buy signal: open long from flat, close a short, or — when
// already long — fall through to the limit checks without re-entering.
func (b *Broker) buy(index int, bar types.Bar, bid float64, ask float64) barOutcome {
	switch b.side {
	case types.PositionSideFlat:
		b.openPosition(types.PositionSideLong, ask)

		return barOutcome{
			action:        types.ActionBuy,
			pnl:           0,
			executedPrice: optional.Some(ask),
		}
	case types.PositionSideLong:
		return b.checkStopConditions(index, bar, bid, ask)
	case types.PositionSideShort:
		pnl := b.bandPL(b.markToMarket(ask))
		b.closeTrade(index, bar.Time, types.ActionCloseShort, ask, pnl)

		return barOutcome{
			action:        types.ActionCloseShort,
			pnl:           pnl,
			executedPrice: optional.Some(ask),
		}
	}

	return holdOutcome()
}

// sell handles a sell signal: open short from flat, close a long, or —
// when already short — fall through to the limit checks.
func (b *Broker) sell(index int, bar types.Bar, bid float64, ask float64) barOutcome {
	switch b.side {
	case types.PositionSideFlat:
		b.openPosition(types.PositionSideShort, bid)

		return barOutcome{
			action:        types.ActionShort,
			pnl:           0,
			executedPrice: optional.Some(bid),
		}
	case types.PositionSideShort:
		return b.checkStopConditions(index, bar, bid, ask)
	case types.PositionSideLong:
		pnl := b.bandPL(b.markToMarket(bid))
		b.closeTrade(index, bar.Time, types.ActionCloseLong, bid, pnl)

		return barOutcome{
			action:        types.ActionCloseLong,
			pnl:           pnl,
			executedPrice: optional.Some(bid),
		}
	}

	return holdOutcome()
}

// checkStopConditions evaluates the stop-loss/take-profit limits for an
// open position. It runs on every bar regardless of the inbound signal, but
// only after the transition logic had the chance to act on an explicit
// opposing signal — an explicit close takes precedence and a position is
// never double-closed on one bar.
//
// Take-profit is checked before stop-loss. When one bar numerically
// breaches both limits the take-profit outcome wins. This tie-break (and
// the close-precedence above) is load-bearing: reordering it changes
// historical backtest results.
func (b *Broker) checkStopConditions(index int, bar types.Bar, bid float64, ask float64) barOutcome {
	switch b.side {
	case types.PositionSideShort:
		// Valued at ask, as if buying back the short.
		pnl := b.markToMarket(ask)

		if b.takeProfitLevel >= ask {
			net := b.bandPL(pnl)
			b.closeTrade(index, bar.Time, types.ActionCloseShort, ask, net)

			return barOutcome{
				action:        types.ActionCloseShort,
				pnl:           net,
				executedPrice: optional.Some(ask),
			}
		}

		if b.stopLossLevel <= ask {
			net := b.bandPL(pnl)
			b.closeTrade(index, bar.Time, types.ActionCloseShort, ask, net)

			return barOutcome{
				action:        types.ActionCloseShort,
				pnl:           net,
				executedPrice: optional.Some(ask),
			}
		}
	case types.PositionSideLong:
		// Valued at bid, as if selling the long.
		pnl := b.markToMarket(bid)

		if b.takeProfitLevel <= bid {
			net := b.bandPL(pnl)
			b.closeTrade(index, bar.Time, types.ActionCloseLong, bid, net)

			return barOutcome{
				action:        types.ActionCloseLong,
				pnl:           net,
				executedPrice: optional.Some(bid),
			}
		}

		if b.stopLossLevel >= bid {
			net := b.bandPL(pnl)
			b.closeTrade(index, bar.Time, types.ActionCloseLong, bid, net)

			return barOutcome{
				action:        types.ActionCloseLong,
				pnl:           net,
				executedPrice: optional.Some(bid),
			}
		}
	case types.PositionSideFlat:
	}

	return holdOutcome()
}

// openPosition records the entry and derives both limit levels from it.
// Entry price, stop level and target level are always set together.
func (b *Broker) openPosition(side types.PositionSide, executionPrice float64) {
	sign := decimal.NewFromInt(int64(side.Sign()))
	entry := decimal.NewFromFloat(executionPrice)

	b.side = side
	b.entryPrice = optional.Some(executionPrice)
	b.stopLossLevel, _ = entry.Add(sign.Mul(decimal.NewFromFloat(b.config.StopLoss))).Float64()
	b.takeProfitLevel, _ = entry.Add(sign.Mul(decimal.NewFromFloat(b.config.TakeProfit))).Float64()
}

// markToMarket returns the raw PnL of the open position valued at the
// given close price: side_sign * (close - entry).
func (b *Broker) markToMarket(closePrice float64) float64 {
	entry := b.entryPrice.Unwrap()
	sign := decimal.NewFromInt(int64(b.side.Sign()))

	pnl, _ := decimal.NewFromFloat(closePrice).
		Sub(decimal.NewFromFloat(entry)).
		Mul(sign).
		Float64()

	return pnl
}

// bandPL finalizes a raw PnL: with a guaranteed stop the PnL is clamped
// into [StopLoss, TakeProfit] (fixed-slippage fills, in offset units
// regardless of entry price); without it the raw PnL passes through and
// may exceed the nominal limit on a gap. The flat broker cost comes off
// last, after any clamping.
func (b *Broker) bandPL(pnl float64) float64 {
	if b.config.GuaranteedStop {
		if pnl > b.config.TakeProfit {
			pnl = b.config.TakeProfit
		} else if pnl < b.config.StopLoss {
			pnl = b.config.StopLoss
		}
	}

	net, _ := decimal.NewFromFloat(pnl).
		Sub(decimal.NewFromFloat(b.config.BrokerCost)).
		Float64()

	return net
}

// closeTrade books a close event: bumps the trade counters, adds the net
// PnL to the cumulative profit, classifies the trade on the rounded PnL
// and resets the position state. Entry price and both limit levels are
// cleared together.
func (b *Broker) closeTrade(index int, barTime time.Time, action types.Action, exitPrice float64, pnl float64) {
	entry := b.entryPrice.Unwrap()

	b.tradesTotal++
	b.totalProfit, _ = decimal.NewFromFloat(b.totalProfit).
		Add(decimal.NewFromFloat(pnl)).
		Float64()

	switch decimal.NewFromFloat(pnl).Round(classificationPrecision).Sign() {
	case 1:
		b.tradesWon++
	case -1:
		b.tradesLost++
	default:
		b.tradesTied++
	}

	b.trades = append(b.trades, types.ClosedTrade{
		ID:         uuid.New().String(),
		Index:      index,
		ClosedAt:   barTime,
		Action:     action,
		EntryPrice: entry,
		ExitPrice:  exitPrice,
		PnL:        pnl,
	})

	b.side = types.PositionSideFlat
	b.entryPrice = optional.None[float64]()
	b.stopLossLevel = 0
	b.takeProfitLevel = 0
}

// History returns the per-bar record store. Read-only for callers.
func (b *Broker) History() *History {
	return b.history
}

// Trades returns all closed trades in close order. Read-only for callers.
func (b *Broker) Trades() []types.ClosedTrade {
	return b.trades
}

// Side returns the current position side.
func (b *Broker) Side() types.PositionSide {
	return b.side
}

// EntryPrice returns the entry price of the open position, if any.
func (b *Broker) EntryPrice() optional.Option[float64] {
	return b.entryPrice
}

// StopLossLevel returns the active stop-loss price level, 0 while flat.
func (b *Broker) StopLossLevel() float64 {
	return b.stopLossLevel
}

// TakeProfitLevel returns the active take-profit price level, 0 while flat.
func (b *Broker) TakeProfitLevel() float64 {
	return b.takeProfitLevel
}

// TotalProfit returns the cumulative realized profit so far.
func (b *Broker) TotalProfit() float64 {
	return b.totalProfit
}

// TradeCounts returns (total, won, lost, tied). won+lost+tied == total
// holds at every point of a run.
func (b *Broker) TradeCounts() (int, int, int, int) {
	return b.tradesTotal, b.tradesWon, b.tradesLost, b.tradesTied
}

// Summary aggregates the final state into the reporting view. It is a pure
// function of the broker's counters and history; calling it mid-run gives
// the aggregate up to the last processed bar.
func (b *Broker) Summary() types.Summary {
	percentage := func(n int) float64 {
		if b.tradesTotal == 0 {
			return 0
		}

		return float64(n) / float64(b.tradesTotal) * 100
	}

	totalPnL := b.history.LastTotalProfit()

	return types.Summary{
		Start:         b.config.Start,
		End:           b.config.End,
		Pair:          b.config.Pair,
		Frequency:     b.config.Frequency,
		TotalTrades:   b.tradesTotal,
		TotalPnL:      totalPnL,
		TotalPnLPips:  totalPnL * types.PipScale,
		TradesWon:     b.tradesWon,
		TradesWonPct:  percentage(b.tradesWon),
		TradesLost:    b.tradesLost,
		TradesLostPct: percentage(b.tradesLost),
		TradesTied:    b.tradesTied,
		TradesTiedPct: percentage(b.tradesTied),
	}
}
