package strategy

import (
	"fmt"

	"github.com/moznion/go-optional"
	"github.com/rxtech-lab/fx-backtest/internal/indicator"
	"github.com/rxtech-lab/fx-backtest/internal/types"
	"github.com/rxtech-lab/fx-backtest/pkg/errors"
	"gopkg.in/yaml.v3"
)

// MACDCrossover signals buy when the MACD line crosses above its signal
// line and sell when it crosses below.
type MACDCrossover struct {
	config MACDCrossoverConfig

	macd          *indicator.MACD
	prevHistogram float64
	hasPrev       bool
}

type MACDCrossoverConfig struct {
	FastPeriod   int `yaml:"fast_period"`
	SlowPeriod   int `yaml:"slow_period"`
	SignalPeriod int `yaml:"signal_period"`
}

// NewMACDCrossover creates a MACD crossover strategy with default periods.
func NewMACDCrossover() Strategy {
	return &MACDCrossover{
		config: MACDCrossoverConfig{
			FastPeriod:   12,
			SlowPeriod:   26,
			SignalPeriod: 9,
		},
		macd:          nil,
		prevHistogram: 0,
		hasPrev:       false,
	}
}

// Name implements Strategy.
func (s *MACDCrossover) Name() string {
	return fmt.Sprintf("MACD_Crossover_%d_%d_%d", s.config.FastPeriod, s.config.SlowPeriod, s.config.SignalPeriod)
}

// Initialize implements Strategy.
func (s *MACDCrossover) Initialize(config string) error {
	if config != "" {
		if err := yaml.Unmarshal([]byte(config), &s.config); err != nil {
			return errors.Wrap(errors.ErrCodeInvalidConfiguration, "failed to parse MACD crossover config", err)
		}
	}

	if s.config.SlowPeriod <= s.config.FastPeriod {
		return errors.Newf(errors.ErrCodeInvalidPeriod,
			"slow period %d must be greater than fast period %d", s.config.SlowPeriod, s.config.FastPeriod)
	}

	macd, err := indicator.NewMACD(s.config.FastPeriod, s.config.SlowPeriod, s.config.SignalPeriod)
	if err != nil {
		return err
	}

	s.macd = macd
	s.prevHistogram = 0
	s.hasPrev = false

	return nil
}

// ProcessBar implements Strategy.
func (s *MACDCrossover) ProcessBar(index int, bars []types.Bar) (types.Signal, error) {
	if s.macd == nil {
		return types.Signal{}, errors.New(errors.ErrCodeInvalidConfiguration, "strategy not initialized")
	}

	bar := bars[index]
	value := s.macd.Update(bar.Close)

	signal := types.Signal{
		Time:   bar.Time,
		Type:   types.SignalTypeHold,
		Name:   s.Name(),
		Reason: "",
		Indicators: optional.Some(types.IndicatorRow{
			Columns: []string{"macd", "macd_signal", "macd_histogram"},
			Values: map[string]float64{
				"macd":           value.MACD,
				"macd_signal":    value.Signal,
				"macd_histogram": value.Histogram,
			},
		}),
	}

	if !s.macd.Ready() {
		return signal, nil
	}

	if s.hasPrev {
		switch {
		case s.prevHistogram <= 0 && value.Histogram > 0:
			signal.Type = types.SignalTypeBuy
			signal.Reason = "MACD crossed above signal line"
		case s.prevHistogram >= 0 && value.Histogram < 0:
			signal.Type = types.SignalTypeSell
			signal.Reason = "MACD crossed below signal line"
		}
	}

	s.prevHistogram = value.Histogram
	s.hasPrev = true

	return signal, nil
}
