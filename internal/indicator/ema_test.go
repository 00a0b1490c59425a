package indicator

import (
	"testing"

	"github.com/stretchr/testify/suite"
)

type EMATestSuite struct {
	suite.Suite
}

func TestEMASuite(t *testing.T) {
	suite.Run(t, new(EMATestSuite))
}

func (suite *EMATestSuite) TestInvalidPeriod() {
	_, err := NewEMA(0)
	suite.Assert().Error(err)

	_, err = NewEMA(-3)
	suite.Assert().Error(err)
}

func (suite *EMATestSuite) TestSeedingAndSmoothing() {
	ema, err := NewEMA(3)
	suite.Require().NoError(err)

	// The seeding window is a plain arithmetic mean.
	suite.Assert().InDelta(1.0, ema.Update(1), 1e-9)
	suite.Assert().False(ema.Ready())

	suite.Assert().InDelta(1.5, ema.Update(2), 1e-9)
	suite.Assert().False(ema.Ready())

	suite.Assert().InDelta(2.0, ema.Update(3), 1e-9)
	suite.Assert().True(ema.Ready())

	// After seeding the smoothing recurrence applies with k = 2/(3+1).
	suite.Assert().InDelta(3.0, ema.Update(4), 1e-9)
	suite.Assert().InDelta(3.0, ema.Value(), 1e-9)
}

func (suite *EMATestSuite) TestReset() {
	ema, err := NewEMA(2)
	suite.Require().NoError(err)

	ema.Update(5)
	ema.Update(7)
	suite.Require().True(ema.Ready())

	ema.Reset()
	suite.Assert().False(ema.Ready())
	suite.Assert().InDelta(0, ema.Value(), 1e-9)
	suite.Assert().InDelta(9, ema.Update(9), 1e-9)
}
