package types

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"
	"gopkg.in/yaml.v3"
)

type StatisticsTestSuite struct {
	suite.Suite
}

func TestStatisticsSuite(t *testing.T) {
	suite.Run(t, new(StatisticsTestSuite))
}

func (suite *StatisticsTestSuite) TestWriteSummaryRoundTrip() {
	summary := Summary{
		Start:         time.Date(2023, 1, 2, 0, 0, 0, 0, time.UTC),
		End:           time.Date(2023, 1, 6, 0, 0, 0, 0, time.UTC),
		Pair:          "EURUSD",
		Frequency:     "M5",
		TotalTrades:   3,
		TotalPnL:      0.0039,
		TotalPnLPips:  39,
		TradesWon:     2,
		TradesWonPct:  66.66666666666666,
		TradesLost:    1,
		TradesLostPct: 33.33333333333333,
		TradesTied:    0,
		TradesTiedPct: 0,
	}

	path := filepath.Join(suite.T().TempDir(), "summary.yaml")
	suite.Require().NoError(WriteSummary(path, summary))

	content, err := os.ReadFile(path)
	suite.Require().NoError(err)

	var loaded Summary
	suite.Require().NoError(yaml.Unmarshal(content, &loaded))

	suite.Assert().Equal(summary.Pair, loaded.Pair)
	suite.Assert().Equal(summary.TotalTrades, loaded.TotalTrades)
	suite.Assert().InDelta(summary.TotalPnL, loaded.TotalPnL, 1e-9)
	suite.Assert().InDelta(summary.TradesWonPct, loaded.TradesWonPct, 1e-9)
	suite.Assert().True(summary.Start.Equal(loaded.Start))
}

func (suite *StatisticsTestSuite) TestWriteSummaryFailsOnMissingFolder() {
	err := WriteSummary(filepath.Join(suite.T().TempDir(), "missing", "summary.yaml"), Summary{})
	suite.Assert().Error(err)
}
