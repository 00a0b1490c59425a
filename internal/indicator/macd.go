package indicator

// MACD is the moving average convergence/divergence indicator: the spread
// between a fast and a slow EMA, smoothed by a signal-line EMA. The signal
// line is only fed once the slow EMA is seeded.
type MACD struct {
	fast   *EMA
	slow   *EMA
	signal *EMA
}

// MACDValue is one bar's worth of MACD output.
type MACDValue struct {
	MACD      float64
	Signal    float64
	Histogram float64
}

// NewMACD creates a MACD with the given fast/slow/signal periods.
func NewMACD(fastPeriod int, slowPeriod int, signalPeriod int) (*MACD, error) {
	fast, err := NewEMA(fastPeriod)
	if err != nil {
		return nil, err
	}

	slow, err := NewEMA(slowPeriod)
	if err != nil {
		return nil, err
	}

	signal, err := NewEMA(signalPeriod)
	if err != nil {
		return nil, err
	}

	return &MACD{
		fast:   fast,
		slow:   slow,
		signal: signal,
	}, nil
}

// Update feeds the next close price and returns the current MACD state.
func (m *MACD) Update(price float64) MACDValue {
	fastValue := m.fast.Update(price)
	slowValue := m.slow.Update(price)

	if !m.slow.Ready() {
		return MACDValue{MACD: 0, Signal: 0, Histogram: 0}
	}

	macd := fastValue - slowValue
	signal := m.signal.Update(macd)

	return MACDValue{
		MACD:      macd,
		Signal:    signal,
		Histogram: macd - signal,
	}
}

// Ready reports whether both the slow EMA and the signal line are seeded.
func (m *MACD) Ready() bool {
	return m.slow.Ready() && m.signal.Ready()
}

// Reset returns the indicator to its initial state.
func (m *MACD) Reset() {
	m.fast.Reset()
	m.slow.Reset()
	m.signal.Reset()
}
