package engine

import (
	"testing"
	"time"

	"github.com/stretchr/testify/suite"
	"gopkg.in/yaml.v3"
)

type ConfigTestSuite struct {
	suite.Suite
}

func TestConfigSuite(t *testing.T) {
	suite.Run(t, new(ConfigTestSuite))
}

func (suite *ConfigTestSuite) TestUnmarshalFullConfig() {
	content := `
pair: EURUSD
frequency: M5
one_pip: 0.0001
limit_pips: [10, 20]
guaranteed_stop: true
broker_cost_pips: 2
store_indicators: true
start_time: 2023-01-02T00:00:00Z
end_time: 2023-01-06T00:00:00Z
`

	config := EmptyConfig()
	suite.Require().NoError(yaml.Unmarshal([]byte(content), &config))
	suite.Require().NoError(config.Validate())

	suite.Assert().Equal("EURUSD", config.Pair)
	suite.Assert().Equal("M5", config.Frequency)
	suite.Assert().InDelta(0.0001, config.OnePip, 1e-12)
	suite.Assert().Equal([]float64{10, 20}, config.LimitPips)
	suite.Assert().True(config.GuaranteedStop)
	suite.Assert().InDelta(2, config.BrokerCostPips, 1e-12)
	suite.Assert().True(config.StoreIndicators)
	suite.Require().True(config.StartTime.IsSome())
	suite.Assert().Equal(time.Date(2023, 1, 2, 0, 0, 0, 0, time.UTC), config.StartTime.Unwrap().UTC())
	suite.Require().True(config.EndTime.IsSome())
}

func (suite *ConfigTestSuite) TestUnmarshalWithoutWindow() {
	content := `
pair: EURUSD
frequency: M5
one_pip: 0.0001
limit_pips: [15]
`

	config := EmptyConfig()
	suite.Require().NoError(yaml.Unmarshal([]byte(content), &config))
	suite.Require().NoError(config.Validate())

	suite.Assert().True(config.StartTime.IsNone())
	suite.Assert().True(config.EndTime.IsNone())
}

func (suite *ConfigTestSuite) TestValidateRejectsBadValues() {
	tests := []struct {
		name   string
		mutate func(c *BacktestEngineV1Config)
	}{
		{
			name:   "missing pair",
			mutate: func(c *BacktestEngineV1Config) { c.Pair = "" },
		},
		{
			name:   "zero pip size",
			mutate: func(c *BacktestEngineV1Config) { c.OnePip = 0 },
		},
		{
			name:   "no limit levels",
			mutate: func(c *BacktestEngineV1Config) { c.LimitPips = nil },
		},
		{
			name:   "negative limit level",
			mutate: func(c *BacktestEngineV1Config) { c.LimitPips = []float64{-10} },
		},
		{
			name:   "negative broker cost",
			mutate: func(c *BacktestEngineV1Config) { c.BrokerCostPips = -1 },
		},
	}

	for _, tc := range tests {
		suite.Run(tc.name, func() {
			config := TestConfig("EURUSD", 20)
			tc.mutate(&config)

			suite.Assert().Error(config.Validate())
		})
	}
}

func (suite *ConfigTestSuite) TestValidateRejectsInvertedWindow() {
	config := TestConfig("EURUSD", 20)

	content := `
start_time: 2023-01-06T00:00:00Z
end_time: 2023-01-02T00:00:00Z
`
	partial := EmptyConfig()
	suite.Require().NoError(yaml.Unmarshal([]byte(content), &partial))

	config.StartTime = partial.StartTime
	config.EndTime = partial.EndTime

	suite.Assert().Error(config.Validate())
}

func (suite *ConfigTestSuite) TestGenerateSchema() {
	config := EmptyConfig()

	schema, err := config.GenerateSchemaJSON()
	suite.Require().NoError(err)
	suite.Assert().Contains(schema, "limit_pips")
	suite.Assert().Contains(schema, "guaranteed_stop")
	suite.Assert().Contains(schema, "date-time")
}
