package engine

import (
	"testing"
	"time"

	"github.com/moznion/go-optional"
	"github.com/rxtech-lab/fx-backtest/internal/logger"
	"github.com/rxtech-lab/fx-backtest/internal/types"
	"github.com/rxtech-lab/fx-backtest/pkg/errors"
	"github.com/stretchr/testify/suite"
)

// BrokerTestSuite is a test suite for the Broker state machine.
type BrokerTestSuite struct {
	suite.Suite
	logger *logger.Logger
	config BrokerConfig
}

// SetupSuite runs once before all tests in the suite
func (suite *BrokerTestSuite) SetupSuite() {
	suite.logger = logger.NewNopLogger()
}

// SetupTest runs before each test
func (suite *BrokerTestSuite) SetupTest() {
	suite.config = BrokerConfig{
		StopLoss:        -0.0020,
		TakeProfit:      0.0020,
		GuaranteedStop:  false,
		BrokerCost:      0.0002,
		Pair:            "EURUSD",
		Frequency:       "M5",
		Start:           time.Date(2023, 1, 2, 0, 0, 0, 0, time.UTC),
		End:             time.Date(2023, 1, 6, 0, 0, 0, 0, time.UTC),
		StoreIndicators: true,
	}
}

// TestBrokerSuite runs the test suite
func TestBrokerSuite(t *testing.T) {
	suite.Run(t, new(BrokerTestSuite))
}

func (suite *BrokerTestSuite) newBroker(barCount int) *Broker {
	broker, err := NewBroker(suite.config, barCount, suite.logger)
	suite.Require().NoError(err)

	return broker
}

// quoteBar builds a bar at the given bid/ask, spaced five minutes apart
// by index.
func quoteBar(index int, bid float64, ask float64) types.Bar {
	return types.Bar{
		Time:   time.Date(2023, 1, 2, 0, 0, 0, 0, time.UTC).Add(time.Duration(index) * 5 * time.Minute),
		Open:   bid,
		High:   ask,
		Low:    bid,
		Close:  bid,
		Volume: 100,
		Bid:    optional.Some(bid),
		Ask:    optional.Some(ask),
	}
}

func signalFor(bar types.Bar, signalType types.SignalType) types.Signal {
	return types.Signal{
		Time:       bar.Time,
		Type:       signalType,
		Name:       "test",
		Reason:     "",
		Indicators: optional.None[types.IndicatorRow](),
	}
}

func (suite *BrokerTestSuite) TestConfigValidation() {
	tests := []struct {
		name     string
		mutate   func(c *BrokerConfig)
		wantCode errors.ErrorCode
	}{
		{
			name:     "positive stop loss",
			mutate:   func(c *BrokerConfig) { c.StopLoss = 0.0020 },
			wantCode: errors.ErrCodeInvalidStopLoss,
		},
		{
			name:     "zero stop loss",
			mutate:   func(c *BrokerConfig) { c.StopLoss = 0 },
			wantCode: errors.ErrCodeInvalidStopLoss,
		},
		{
			name:     "negative take profit",
			mutate:   func(c *BrokerConfig) { c.TakeProfit = -0.0020 },
			wantCode: errors.ErrCodeInvalidTakeProfit,
		},
		{
			name:     "negative broker cost",
			mutate:   func(c *BrokerConfig) { c.BrokerCost = -0.0001 },
			wantCode: errors.ErrCodeInvalidBrokerCost,
		},
		{
			name:     "missing pair",
			mutate:   func(c *BrokerConfig) { c.Pair = "" },
			wantCode: errors.ErrCodeInvalidConfiguration,
		},
	}

	for _, tc := range tests {
		suite.Run(tc.name, func() {
			config := suite.config
			tc.mutate(&config)

			_, err := NewBroker(config, 10, suite.logger)
			suite.Require().Error(err)
			suite.Assert().True(errors.HasCode(err, tc.wantCode))
		})
	}
}

func (suite *BrokerTestSuite) TestLongRoundTrip() {
	broker := suite.newBroker(2)

	// Open long at the ask.
	entryBar := quoteBar(0, 1.1048, 1.1050)
	err := broker.ProcessBar(0, entryBar, signalFor(entryBar, types.SignalTypeBuy))
	suite.Require().NoError(err)

	suite.Assert().Equal(types.PositionSideLong, broker.Side())
	suite.Assert().True(broker.EntryPrice().IsSome())
	suite.Assert().InDelta(1.1050, broker.EntryPrice().Unwrap(), 1e-9)
	suite.Assert().InDelta(1.1030, broker.StopLossLevel(), 1e-9)
	suite.Assert().InDelta(1.1070, broker.TakeProfitLevel(), 1e-9)

	record := broker.History().Record(0)
	suite.Assert().Equal(types.ActionBuy, record.Action)
	suite.Assert().Equal(types.PositionSideLong, record.Position)
	suite.Assert().InDelta(1.1050, record.ExecutedPrice.Unwrap(), 1e-9)
	suite.Assert().InDelta(0, record.PnL, 1e-9)

	// Close at the bid on an explicit sell, 20 pips gross, 2 pips cost.
	exitBar := quoteBar(1, 1.1070, 1.1072)
	err = broker.ProcessBar(1, exitBar, signalFor(exitBar, types.SignalTypeSell))
	suite.Require().NoError(err)

	suite.Assert().Equal(types.PositionSideFlat, broker.Side())
	suite.Assert().True(broker.EntryPrice().IsNone())
	suite.Assert().InDelta(0, broker.StopLossLevel(), 1e-9)
	suite.Assert().InDelta(0, broker.TakeProfitLevel(), 1e-9)
	suite.Assert().InDelta(0.0018, broker.TotalProfit(), 1e-9)

	total, won, lost, tied := broker.TradeCounts()
	suite.Assert().Equal(1, total)
	suite.Assert().Equal(1, won)
	suite.Assert().Equal(0, lost)
	suite.Assert().Equal(0, tied)

	record = broker.History().Record(1)
	suite.Assert().Equal(types.ActionCloseLong, record.Action)
	suite.Assert().Equal(types.PositionSideFlat, record.Position)
	suite.Assert().InDelta(0.0018, record.PnL, 1e-9)
	suite.Assert().InDelta(0.0018, record.TotalProfit, 1e-9)
	// Levels are cleared together with the position on the close bar.
	suite.Assert().InDelta(0, record.StopLossLevel, 1e-9)
	suite.Assert().InDelta(0, record.TakeProfitLevel, 1e-9)

	trades := broker.Trades()
	suite.Require().Len(trades, 1)
	suite.Assert().Equal(types.ActionCloseLong, trades[0].Action)
	suite.Assert().InDelta(1.1050, trades[0].EntryPrice, 1e-9)
	suite.Assert().InDelta(1.1070, trades[0].ExitPrice, 1e-9)
	suite.Assert().InDelta(0.0018, trades[0].PnL, 1e-9)
	suite.Assert().NotEmpty(trades[0].ID)
}

func (suite *BrokerTestSuite) TestLongHeldOverQuietBars() {
	broker := suite.newBroker(5)

	entryBar := quoteBar(0, 1.1048, 1.1050)
	suite.Require().NoError(broker.ProcessBar(0, entryBar, signalFor(entryBar, types.SignalTypeBuy)))

	// Three quiet bars between entry and exit, none breaching a limit.
	for i := 1; i <= 3; i++ {
		bar := quoteBar(i, 1.1055, 1.1057)
		suite.Require().NoError(broker.ProcessBar(i, bar, signalFor(bar, types.SignalTypeHold)))
		suite.Assert().Equal(types.PositionSideLong, broker.Side())
	}

	exitBar := quoteBar(4, 1.1070, 1.1072)
	suite.Require().NoError(broker.ProcessBar(4, exitBar, signalFor(exitBar, types.SignalTypeSell)))

	suite.Assert().InDelta(0.0018, broker.TotalProfit(), 1e-9)

	total, won, _, _ := broker.TradeCounts()
	suite.Assert().Equal(1, total)
	suite.Assert().Equal(1, won)
}

func (suite *BrokerTestSuite) TestShortRoundTrip() {
	broker := suite.newBroker(2)

	// Open short at the bid.
	entryBar := quoteBar(0, 1.1050, 1.1052)
	err := broker.ProcessBar(0, entryBar, signalFor(entryBar, types.SignalTypeSell))
	suite.Require().NoError(err)

	suite.Assert().Equal(types.PositionSideShort, broker.Side())
	suite.Assert().InDelta(1.1050, broker.EntryPrice().Unwrap(), 1e-9)
	// Short levels mirror the long ones around the entry.
	suite.Assert().InDelta(1.1070, broker.StopLossLevel(), 1e-9)
	suite.Assert().InDelta(1.1030, broker.TakeProfitLevel(), 1e-9)

	suite.Assert().Equal(types.ActionShort, broker.History().Record(0).Action)

	// Close at the ask on an explicit buy.
	exitBar := quoteBar(1, 1.1028, 1.1030)
	err = broker.ProcessBar(1, exitBar, signalFor(exitBar, types.SignalTypeBuy))
	suite.Require().NoError(err)

	suite.Assert().Equal(types.PositionSideFlat, broker.Side())
	suite.Assert().InDelta(0.0018, broker.TotalProfit(), 1e-9)

	record := broker.History().Record(1)
	suite.Assert().Equal(types.ActionCloseShort, record.Action)
	suite.Assert().InDelta(0.0018, record.PnL, 1e-9)
}

func (suite *BrokerTestSuite) TestHoldKeepsPosition() {
	broker := suite.newBroker(3)

	entryBar := quoteBar(0, 1.1048, 1.1050)
	suite.Require().NoError(broker.ProcessBar(0, entryBar, signalFor(entryBar, types.SignalTypeBuy)))

	// Bid stays inside the limit band.
	holdBar := quoteBar(1, 1.1055, 1.1057)
	suite.Require().NoError(broker.ProcessBar(1, holdBar, signalFor(holdBar, types.SignalTypeHold)))

	suite.Assert().Equal(types.PositionSideLong, broker.Side())
	suite.Assert().Equal(types.ActionHold, broker.History().Record(1).Action)
	suite.Assert().InDelta(0, broker.History().Record(1).PnL, 1e-9)

	total, _, _, _ := broker.TradeCounts()
	suite.Assert().Equal(0, total)
}

func (suite *BrokerTestSuite) TestSameDirectionSignalDoesNotReenter() {
	broker := suite.newBroker(2)

	entryBar := quoteBar(0, 1.1048, 1.1050)
	suite.Require().NoError(broker.ProcessBar(0, entryBar, signalFor(entryBar, types.SignalTypeBuy)))

	// A second buy while long falls through to the limit checks.
	repeatBar := quoteBar(1, 1.1055, 1.1057)
	suite.Require().NoError(broker.ProcessBar(1, repeatBar, signalFor(repeatBar, types.SignalTypeBuy)))

	suite.Assert().Equal(types.PositionSideLong, broker.Side())
	suite.Assert().InDelta(1.1050, broker.EntryPrice().Unwrap(), 1e-9)
	suite.Assert().Equal(types.ActionHold, broker.History().Record(1).Action)
	suite.Assert().True(broker.History().Record(1).ExecutedPrice.IsNone())
}

func (suite *BrokerTestSuite) TestUnknownSignalTreatedAsHold() {
	broker := suite.newBroker(1)

	bar := quoteBar(0, 1.1048, 1.1050)
	signal := signalFor(bar, types.SignalType("rebalance"))

	suite.Require().NoError(broker.ProcessBar(0, bar, signal))

	record := broker.History().Record(0)
	suite.Assert().Equal(types.SignalType("rebalance"), record.Signal)
	suite.Assert().Equal(types.ActionHold, record.Action)
	suite.Assert().Equal(types.PositionSideFlat, broker.Side())
}

func (suite *BrokerTestSuite) TestTakeProfitHit() {
	broker := suite.newBroker(2)

	entryBar := quoteBar(0, 1.1048, 1.1050)
	suite.Require().NoError(broker.ProcessBar(0, entryBar, signalFor(entryBar, types.SignalTypeBuy)))

	// Bid gaps 2 pips past the 1.1070 target.
	targetBar := quoteBar(1, 1.1072, 1.1074)
	suite.Require().NoError(broker.ProcessBar(1, targetBar, signalFor(targetBar, types.SignalTypeHold)))

	suite.Assert().Equal(types.PositionSideFlat, broker.Side())

	// Without a guaranteed stop the gap passes through: 22 pips gross.
	record := broker.History().Record(1)
	suite.Assert().Equal(types.ActionCloseLong, record.Action)
	suite.Assert().InDelta(0.0020, record.PnL, 1e-9)
	suite.Assert().InDelta(1.1072, record.ExecutedPrice.Unwrap(), 1e-9)
}

func (suite *BrokerTestSuite) TestTakeProfitGuaranteedStopClamps() {
	suite.config.GuaranteedStop = true
	broker := suite.newBroker(2)

	entryBar := quoteBar(0, 1.1048, 1.1050)
	suite.Require().NoError(broker.ProcessBar(0, entryBar, signalFor(entryBar, types.SignalTypeBuy)))

	// A 35 pip favorable gap is clamped to the 20 pip target offset.
	gapBar := quoteBar(1, 1.1085, 1.1087)
	suite.Require().NoError(broker.ProcessBar(1, gapBar, signalFor(gapBar, types.SignalTypeHold)))

	record := broker.History().Record(1)
	suite.Assert().Equal(types.ActionCloseLong, record.Action)
	suite.Assert().InDelta(0.0018, record.PnL, 1e-9)
}

func (suite *BrokerTestSuite) TestStopLossHit() {
	broker := suite.newBroker(2)

	entryBar := quoteBar(0, 1.1048, 1.1050)
	suite.Require().NoError(broker.ProcessBar(0, entryBar, signalFor(entryBar, types.SignalTypeBuy)))

	// Bid gaps 5 pips past the 1.1030 stop.
	stopBar := quoteBar(1, 1.1025, 1.1027)
	suite.Require().NoError(broker.ProcessBar(1, stopBar, signalFor(stopBar, types.SignalTypeHold)))

	record := broker.History().Record(1)
	suite.Assert().Equal(types.ActionCloseLong, record.Action)
	suite.Assert().InDelta(-0.0027, record.PnL, 1e-9)

	_, _, lost, _ := broker.TradeCounts()
	suite.Assert().Equal(1, lost)
}

func (suite *BrokerTestSuite) TestStopLossGuaranteedStopClamps() {
	suite.config.GuaranteedStop = true
	broker := suite.newBroker(2)

	entryBar := quoteBar(0, 1.1048, 1.1050)
	suite.Require().NoError(broker.ProcessBar(0, entryBar, signalFor(entryBar, types.SignalTypeBuy)))

	gapBar := quoteBar(1, 1.1025, 1.1027)
	suite.Require().NoError(broker.ProcessBar(1, gapBar, signalFor(gapBar, types.SignalTypeHold)))

	// Clamped to the -20 pip stop offset, cost still comes off after.
	suite.Assert().InDelta(-0.0022, broker.History().Record(1).PnL, 1e-9)
}

func (suite *BrokerTestSuite) TestShortStopConditions() {
	broker := suite.newBroker(3)

	entryBar := quoteBar(0, 1.1050, 1.1052)
	suite.Require().NoError(broker.ProcessBar(0, entryBar, signalFor(entryBar, types.SignalTypeSell)))

	// Ask inside the band, nothing happens.
	holdBar := quoteBar(1, 1.1044, 1.1046)
	suite.Require().NoError(broker.ProcessBar(1, holdBar, signalFor(holdBar, types.SignalTypeHold)))
	suite.Assert().Equal(types.PositionSideShort, broker.Side())

	// Ask drops through the 1.1030 target, valued as buying back the short.
	targetBar := quoteBar(2, 1.1026, 1.1028)
	suite.Require().NoError(broker.ProcessBar(2, targetBar, signalFor(targetBar, types.SignalTypeHold)))

	record := broker.History().Record(2)
	suite.Assert().Equal(types.ActionCloseShort, record.Action)
	suite.Assert().InDelta(0.0020, record.PnL, 1e-9)
	suite.Assert().InDelta(1.1028, record.ExecutedPrice.Unwrap(), 1e-9)
}

func (suite *BrokerTestSuite) TestExplicitCloseTakesPrecedenceOverLimits() {
	broker := suite.newBroker(2)

	entryBar := quoteBar(0, 1.1048, 1.1050)
	suite.Require().NoError(broker.ProcessBar(0, entryBar, signalFor(entryBar, types.SignalTypeBuy)))

	// The bid breaches the target and the signal says sell on the same bar.
	// The position must close exactly once.
	bothBar := quoteBar(1, 1.1080, 1.1082)
	suite.Require().NoError(broker.ProcessBar(1, bothBar, signalFor(bothBar, types.SignalTypeSell)))

	total, won, lost, tied := broker.TradeCounts()
	suite.Assert().Equal(1, total)
	suite.Assert().Equal(won+lost+tied, total)
	suite.Assert().Equal(types.PositionSideFlat, broker.Side())
	suite.Assert().InDelta(0.0028, broker.TotalProfit(), 1e-9)
}

func (suite *BrokerTestSuite) TestTiedTradeClassification() {
	broker := suite.newBroker(2)

	entryBar := quoteBar(0, 1.1048, 1.1050)
	suite.Require().NoError(broker.ProcessBar(0, entryBar, signalFor(entryBar, types.SignalTypeBuy)))

	// Gross gain exactly equal to the broker cost nets to zero.
	exitBar := quoteBar(1, 1.1052, 1.1054)
	suite.Require().NoError(broker.ProcessBar(1, exitBar, signalFor(exitBar, types.SignalTypeSell)))

	total, won, lost, tied := broker.TradeCounts()
	suite.Assert().Equal(1, total)
	suite.Assert().Equal(0, won)
	suite.Assert().Equal(0, lost)
	suite.Assert().Equal(1, tied)
}

func (suite *BrokerTestSuite) TestOutOfOrderBarRejected() {
	broker := suite.newBroker(3)

	bar := quoteBar(0, 1.1048, 1.1050)
	suite.Require().NoError(broker.ProcessBar(0, bar, types.HoldSignal(bar.Time)))

	// Replaying the same index is rejected.
	err := broker.ProcessBar(0, bar, types.HoldSignal(bar.Time))
	suite.Require().Error(err)
	suite.Assert().True(errors.HasCode(err, errors.ErrCodeOutOfOrderBar))

	// Skipping ahead is rejected too.
	skipBar := quoteBar(2, 1.1048, 1.1050)
	err = broker.ProcessBar(2, skipBar, types.HoldSignal(skipBar.Time))
	suite.Require().Error(err)
	suite.Assert().True(errors.HasCode(err, errors.ErrCodeOutOfOrderBar))
}

func (suite *BrokerTestSuite) TestBarBeyondSeriesRejected() {
	broker := suite.newBroker(1)

	bar := quoteBar(0, 1.1048, 1.1050)
	suite.Require().NoError(broker.ProcessBar(0, bar, types.HoldSignal(bar.Time)))

	extraBar := quoteBar(1, 1.1048, 1.1050)
	err := broker.ProcessBar(1, extraBar, types.HoldSignal(extraBar.Time))
	suite.Require().Error(err)
	suite.Assert().True(errors.HasCode(err, errors.ErrCodeRecordOutOfRange))
}

func (suite *BrokerTestSuite) TestCloseSubstitutesForMissingQuotes() {
	broker := suite.newBroker(2)

	// Bars without bid/ask trade at the close on both sides.
	entryBar := types.Bar{
		Time:  time.Date(2023, 1, 2, 0, 0, 0, 0, time.UTC),
		Open:  1.1050,
		High:  1.1052,
		Low:   1.1048,
		Close: 1.1050,
	}
	suite.Require().NoError(broker.ProcessBar(0, entryBar, signalFor(entryBar, types.SignalTypeBuy)))
	suite.Assert().InDelta(1.1050, broker.EntryPrice().Unwrap(), 1e-9)

	exitBar := entryBar
	exitBar.Time = entryBar.Time.Add(5 * time.Minute)
	exitBar.Close = 1.1070
	suite.Require().NoError(broker.ProcessBar(1, exitBar, signalFor(exitBar, types.SignalTypeSell)))

	suite.Assert().InDelta(0.0018, broker.TotalProfit(), 1e-9)
}

// replayScript feeds the given signal types over a fixed price path and
// returns the finished broker.
func (suite *BrokerTestSuite) replayScript(bids []float64, signals []types.SignalType) *Broker {
	suite.Require().Equal(len(bids), len(signals))

	broker := suite.newBroker(len(bids))

	for i, bid := range bids {
		bar := quoteBar(i, bid, bid+0.0002)
		suite.Require().NoError(broker.ProcessBar(i, bar, signalFor(bar, signals[i])))

		total, won, lost, tied := broker.TradeCounts()
		suite.Assert().Equal(total, won+lost+tied)
	}

	return broker
}

func (suite *BrokerTestSuite) TestCounterInvariantAcrossMixedRun() {
	bids := []float64{1.1050, 1.1060, 1.1075, 1.1070, 1.1040, 1.1020, 1.1020, 1.1035}
	signals := []types.SignalType{
		types.SignalTypeBuy,  // open long
		types.SignalTypeHold, // inside band
		types.SignalTypeHold, // target hit, close
		types.SignalTypeSell, // open short
		types.SignalTypeHold, // short target hit, close
		types.SignalTypeHold, // flat
		types.SignalTypeSell, // open short again
		types.SignalTypeBuy,  // explicit close, small loss
	}

	broker := suite.replayScript(bids, signals)

	total, won, lost, tied := broker.TradeCounts()
	suite.Assert().Equal(3, total)
	suite.Assert().Equal(total, won+lost+tied)
	suite.Assert().Equal(types.PositionSideFlat, broker.Side())
}

func (suite *BrokerTestSuite) TestReplayIsDeterministic() {
	bids := []float64{1.1050, 1.1060, 1.1075, 1.1070, 1.1040, 1.1020}
	signals := []types.SignalType{
		types.SignalTypeBuy,
		types.SignalTypeHold,
		types.SignalTypeHold,
		types.SignalTypeSell,
		types.SignalTypeHold,
		types.SignalTypeHold,
	}

	first := suite.replayScript(bids, signals)
	second := suite.replayScript(bids, signals)

	suite.Assert().Equal(first.History().Records(), second.History().Records())
	suite.Assert().Equal(first.Summary(), second.Summary())
}

func (suite *BrokerTestSuite) TestSummaryWithoutTrades() {
	broker := suite.newBroker(2)

	for i := 0; i < 2; i++ {
		bar := quoteBar(i, 1.1050, 1.1052)
		suite.Require().NoError(broker.ProcessBar(i, bar, types.HoldSignal(bar.Time)))
	}

	summary := broker.Summary()
	suite.Assert().Equal(0, summary.TotalTrades)
	suite.Assert().InDelta(0, summary.TotalPnL, 1e-9)
	suite.Assert().InDelta(0, summary.TotalPnLPips, 1e-9)
	suite.Assert().InDelta(0, summary.TradesWonPct, 1e-9)
	suite.Assert().InDelta(0, summary.TradesLostPct, 1e-9)
	suite.Assert().InDelta(0, summary.TradesTiedPct, 1e-9)
}

func (suite *BrokerTestSuite) TestSummaryAggregates() {
	bids := []float64{1.1050, 1.1075, 1.1070, 1.1092}
	signals := []types.SignalType{
		types.SignalTypeBuy,  // open long at 1.1052 ask
		types.SignalTypeHold, // target hit at 1.1075 bid, +0.0021 net
		types.SignalTypeBuy,  // open long at 1.1072 ask
		types.SignalTypeHold, // target hit at 1.1092 bid, +0.0018 net
	}

	broker := suite.replayScript(bids, signals)

	summary := broker.Summary()
	suite.Assert().Equal("EURUSD", summary.Pair)
	suite.Assert().Equal("M5", summary.Frequency)
	suite.Assert().Equal(suite.config.Start, summary.Start)
	suite.Assert().Equal(suite.config.End, summary.End)
	suite.Assert().Equal(2, summary.TotalTrades)
	suite.Assert().InDelta(0.0039, summary.TotalPnL, 1e-9)
	suite.Assert().InDelta(39, summary.TotalPnLPips, 1e-6)
	suite.Assert().Equal(2, summary.TradesWon)
	suite.Assert().InDelta(100, summary.TradesWonPct, 1e-9)
	suite.Assert().Equal(0, summary.TradesLost)
	suite.Assert().InDelta(0, summary.TradesLostPct, 1e-9)
}

func (suite *BrokerTestSuite) TestIndicatorRetention() {
	broker := suite.newBroker(2)

	bar := quoteBar(0, 1.1050, 1.1052)
	signal := signalFor(bar, types.SignalTypeHold)
	signal.Indicators = optional.Some(types.IndicatorRow{
		Columns: []string{"macd", "macd_signal"},
		Values:  map[string]float64{"macd": 0.0004, "macd_signal": 0.0001},
	})

	suite.Require().NoError(broker.ProcessBar(0, bar, signal))

	history := broker.History()
	suite.Assert().Equal([]string{"macd", "macd_signal"}, history.IndicatorColumns())
	suite.Require().NotNil(history.IndicatorRows()[0])
	suite.Assert().InDelta(0.0004, history.IndicatorRows()[0][0], 1e-9)
	suite.Assert().InDelta(0.0001, history.IndicatorRows()[0][1], 1e-9)
}
