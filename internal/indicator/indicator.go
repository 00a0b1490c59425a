// Package indicator implements the technical indicators used by the
// bundled strategies. Indicators are incremental: one Update call per bar,
// in series order, and Ready reports whether enough bars have been seen
// for the value to be meaningful.
package indicator

import (
	"github.com/rxtech-lab/fx-backtest/pkg/errors"
)

func validatePeriod(period int) error {
	if period <= 0 {
		return errors.Newf(errors.ErrCodeInvalidPeriod, "period must be a positive integer, got %d", period)
	}

	return nil
}
