package strategy

import (
	"fmt"

	"github.com/moznion/go-optional"
	"github.com/rxtech-lab/fx-backtest/internal/indicator"
	"github.com/rxtech-lab/fx-backtest/internal/types"
	"github.com/rxtech-lab/fx-backtest/pkg/errors"
	"gopkg.in/yaml.v3"
)

// PSARReversal is a stop-and-reverse strategy on the parabolic SAR. It
// buys on the bar where the SAR flips below the price and sells on the
// bar where it flips above.
type PSARReversal struct {
	config PSARReversalConfig

	psar *indicator.PSAR
}

type PSARReversalConfig struct {
	Step float64 `yaml:"step"`
	Max  float64 `yaml:"max"`
}

// NewPSARReversal creates a parabolic SAR strategy with the conventional
// 0.02/0.2 acceleration parameters.
func NewPSARReversal() Strategy {
	return &PSARReversal{
		config: PSARReversalConfig{
			Step: 0.02,
			Max:  0.2,
		},
		psar: nil,
	}
}

// Name implements Strategy.
func (s *PSARReversal) Name() string {
	return fmt.Sprintf("PSAR_%g_%g", s.config.Step, s.config.Max)
}

// Initialize implements Strategy.
func (s *PSARReversal) Initialize(config string) error {
	if config != "" {
		if err := yaml.Unmarshal([]byte(config), &s.config); err != nil {
			return errors.Wrap(errors.ErrCodeInvalidConfiguration, "failed to parse PSAR config", err)
		}
	}

	psar, err := indicator.NewPSAR(s.config.Step, s.config.Max)
	if err != nil {
		return err
	}

	s.psar = psar

	return nil
}

// ProcessBar implements Strategy.
func (s *PSARReversal) ProcessBar(index int, bars []types.Bar) (types.Signal, error) {
	if s.psar == nil {
		return types.Signal{}, errors.New(errors.ErrCodeInvalidConfiguration, "strategy not initialized")
	}

	bar := bars[index]
	value := s.psar.Update(bar.High, bar.Low)

	trend := -1.0
	if value.Uptrend {
		trend = 1.0
	}

	signal := types.Signal{
		Time:   bar.Time,
		Type:   types.SignalTypeHold,
		Name:   s.Name(),
		Reason: "",
		Indicators: optional.Some(types.IndicatorRow{
			Columns: []string{"psar", "trend"},
			Values: map[string]float64{
				"psar":  value.SAR,
				"trend": trend,
			},
		}),
	}

	if !s.psar.Ready() || !value.Flipped {
		return signal, nil
	}

	if value.Uptrend {
		signal.Type = types.SignalTypeBuy
		signal.Reason = "SAR flipped below price"
	} else {
		signal.Type = types.SignalTypeSell
		signal.Reason = "SAR flipped above price"
	}

	return signal, nil
}
