package indicator

// EMA is an incremental exponential moving average. The first `period`
// values are averaged arithmetically to seed the EMA; after that the
// standard smoothing recurrence applies.
type EMA struct {
	period int
	k      float64
	value  float64
	sum    float64
	count  int
}

// NewEMA creates an EMA with the given period.
func NewEMA(period int) (*EMA, error) {
	if err := validatePeriod(period); err != nil {
		return nil, err
	}

	return &EMA{
		period: period,
		k:      2.0 / (float64(period) + 1.0),
		value:  0,
		sum:    0,
		count:  0,
	}, nil
}

// Update feeds the next value and returns the current average.
func (e *EMA) Update(price float64) float64 {
	e.count++

	if e.count <= e.period {
		e.sum += price
		e.value = e.sum / float64(e.count)

		return e.value
	}

	e.value += (price - e.value) * e.k

	return e.value
}

// Value returns the current average without feeding a new value.
func (e *EMA) Value() float64 {
	return e.value
}

// Ready reports whether the seeding window has been filled.
func (e *EMA) Ready() bool {
	return e.count >= e.period
}

// Reset returns the EMA to its initial state.
func (e *EMA) Reset() {
	e.value = 0
	e.sum = 0
	e.count = 0
}
