package engine

import (
	"math"

	"github.com/rxtech-lab/fx-backtest/internal/types"
	"github.com/rxtech-lab/fx-backtest/pkg/errors"
)

// History is the per-bar record store for one run. The record slice is
// sized to the bar count up front and every index is written exactly once;
// a second write to the same index is an invariant violation.
type History struct {
	records []types.BarRecord
	filled  []bool

	storeIndicators  bool
	indicatorColumns []string
	// indicatorRows is aligned with records; a nil row means the strategy
	// produced no indicator values for that bar. Values follow the order
	// of indicatorColumns.
	indicatorRows [][]float64
}

// NewHistory allocates a history store for a series of barCount bars.
func NewHistory(barCount int, storeIndicators bool) *History {
	return &History{
		records:          make([]types.BarRecord, barCount),
		filled:           make([]bool, barCount),
		storeIndicators:  storeIndicators,
		indicatorColumns: nil,
		indicatorRows:    make([][]float64, barCount),
	}
}

// Fill stores the record for one bar index.
func (h *History) Fill(index int, record types.BarRecord) error {
	if index < 0 || index >= len(h.records) {
		return errors.Newf(errors.ErrCodeRecordOutOfRange, "bar index %d outside history of %d bars", index, len(h.records))
	}

	if h.filled[index] {
		return errors.Newf(errors.ErrCodeRecordAlreadyFilled, "record for bar %d already filled", index)
	}

	h.records[index] = record
	h.filled[index] = true

	return nil
}

// AppendIndicators retains the indicator row for one bar. The first row
// seen seeds the column set; later rows only contribute their most recent
// values, in the seeded column order. Missing columns are recorded as NaN.
func (h *History) AppendIndicators(index int, row types.IndicatorRow) error {
	if !h.storeIndicators {
		return nil
	}

	if index < 0 || index >= len(h.indicatorRows) {
		return errors.Newf(errors.ErrCodeRecordOutOfRange, "bar index %d outside history of %d bars", index, len(h.indicatorRows))
	}

	if h.indicatorColumns == nil {
		h.indicatorColumns = append(h.indicatorColumns, row.Columns...)
	}

	values := make([]float64, len(h.indicatorColumns))

	for i, column := range h.indicatorColumns {
		value, ok := row.Values[column]
		if !ok {
			value = math.NaN()
		}

		values[i] = value
	}

	h.indicatorRows[index] = values

	return nil
}

// Len returns the number of bars in the history.
func (h *History) Len() int {
	return len(h.records)
}

// Records returns the ordered per-bar records. The returned slice is the
// history's own buffer; callers must treat it as read-only.
func (h *History) Records() []types.BarRecord {
	return h.records
}

// Record returns the record at the given bar index.
func (h *History) Record(index int) types.BarRecord {
	return h.records[index]
}

// IndicatorColumns returns the retained indicator column names, in the
// order they were seeded.
func (h *History) IndicatorColumns() []string {
	return h.indicatorColumns
}

// IndicatorRows returns the retained indicator values aligned with Records.
func (h *History) IndicatorRows() [][]float64 {
	return h.indicatorRows
}

// LastTotalProfit returns the cumulative profit after the last filled bar,
// or 0 for an empty history.
func (h *History) LastTotalProfit() float64 {
	for i := len(h.records) - 1; i >= 0; i-- {
		if h.filled[i] {
			return h.records[i].TotalProfit
		}
	}

	return 0
}
