package indicator

import (
	"github.com/rxtech-lab/fx-backtest/pkg/errors"
)

// PSAR is Wilder's parabolic stop-and-reverse. The SAR trails the price
// with an accelerating factor and flips to the other side of the price
// when breached, which is the reversal event stop-and-reverse strategies
// trade on.
type PSAR struct {
	step float64
	max  float64

	count    int
	prevHigh float64
	prevLow  float64
	sar      float64
	ep       float64
	af       float64
	uptrend  bool
}

// PSARValue is one bar's worth of parabolic SAR output.
type PSARValue struct {
	SAR     float64
	Uptrend bool
	// Flipped is true on the bar where the SAR reversed sides.
	Flipped bool
}

// NewPSAR creates a parabolic SAR with the given acceleration step and cap.
// The conventional parameters are step 0.02 and max 0.2.
func NewPSAR(step float64, max float64) (*PSAR, error) {
	if step <= 0 || max <= 0 || step > max {
		return nil, errors.Newf(errors.ErrCodeInvalidPeriod,
			"parabolic SAR requires 0 < step <= max, got step=%f max=%f", step, max)
	}

	return &PSAR{
		step:     step,
		max:      max,
		count:    0,
		prevHigh: 0,
		prevLow:  0,
		sar:      0,
		ep:       0,
		af:       0,
		uptrend:  false,
	}, nil
}

// Update feeds the next bar's high/low and returns the current SAR state.
func (p *PSAR) Update(high float64, low float64) PSARValue {
	p.count++

	switch p.count {
	case 1:
		p.prevHigh = high
		p.prevLow = low

		return PSARValue{SAR: 0, Uptrend: false, Flipped: false}
	case 2:
		// Seed the trend from the direction of the second bar.
		p.uptrend = high >= p.prevHigh

		if p.uptrend {
			p.sar = p.prevLow
			p.ep = high
		} else {
			p.sar = p.prevHigh
			p.ep = low
		}

		p.af = p.step
		p.prevHigh = high
		p.prevLow = low

		return PSARValue{SAR: p.sar, Uptrend: p.uptrend, Flipped: false}
	}

	sar := p.sar + p.af*(p.ep-p.sar)

	// The SAR may never enter the previous bar's range.
	if p.uptrend {
		if sar > p.prevLow {
			sar = p.prevLow
		}
	} else {
		if sar < p.prevHigh {
			sar = p.prevHigh
		}
	}

	flipped := false

	if p.uptrend {
		if low < sar {
			// Price fell through the SAR: reverse to downtrend.
			flipped = true
			p.uptrend = false
			sar = p.ep
			p.ep = low
			p.af = p.step
		} else {
			if high > p.ep {
				p.ep = high
				p.af = min(p.af+p.step, p.max)
			}
		}
	} else {
		if high > sar {
			// Price rose through the SAR: reverse to uptrend.
			flipped = true
			p.uptrend = true
			sar = p.ep
			p.ep = high
			p.af = p.step
		} else {
			if low < p.ep {
				p.ep = low
				p.af = min(p.af+p.step, p.max)
			}
		}
	}

	p.sar = sar
	p.prevHigh = high
	p.prevLow = low

	return PSARValue{SAR: p.sar, Uptrend: p.uptrend, Flipped: flipped}
}

// Ready reports whether the SAR has been seeded.
func (p *PSAR) Ready() bool {
	return p.count >= 2
}

// Reset returns the indicator to its initial state.
func (p *PSAR) Reset() {
	p.count = 0
	p.prevHigh = 0
	p.prevLow = 0
	p.sar = 0
	p.ep = 0
	p.af = 0
	p.uptrend = false
}
