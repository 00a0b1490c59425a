package writer

import (
	"database/sql"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strings"

	"github.com/Masterminds/squirrel"
	_ "github.com/marcboeker/go-duckdb"
	"github.com/rxtech-lab/fx-backtest/internal/logger"
	"github.com/rxtech-lab/fx-backtest/internal/types"
	"github.com/rxtech-lab/fx-backtest/pkg/errors"
	"go.uber.org/zap"
)

// DuckDBWriter stages run results in an in-memory DuckDB database and
// exports them as CSV/Parquet files plus a YAML summary. The weekly report
// is computed with SQL aggregation over the staged history.
type DuckDBWriter struct {
	db     *sql.DB
	logger *logger.Logger
	sq     squirrel.StatementBuilderType
}

// NewDuckDBWriter creates a result writer backed by an in-memory DuckDB.
func NewDuckDBWriter(logger *logger.Logger) (ResultWriter, error) {
	db, err := sql.Open("duckdb", ":memory:")
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeReportWriteFailed, "failed to open duckdb", err)
	}

	return &DuckDBWriter{
		db:     db,
		logger: logger,
		sq:     squirrel.StatementBuilder.PlaceholderFormat(squirrel.Question),
	}, nil
}

// Write implements ResultWriter.
func (w *DuckDBWriter) Write(folder string, result RunResult) error {
	if len(result.Records) != len(result.Bars) {
		return errors.Newf(errors.ErrCodeReportWriteFailed,
			"record count %d does not match bar count %d", len(result.Records), len(result.Bars))
	}

	if err := os.MkdirAll(folder, 0755); err != nil {
		return errors.Wrap(errors.ErrCodeReportWriteFailed, "failed to create result folder", err)
	}

	if err := w.stageHistory(result); err != nil {
		return err
	}

	if err := w.stageTrades(result.Trades); err != nil {
		return err
	}

	historyCsv := filepath.Join(folder, "history.csv")
	historyParquet := filepath.Join(folder, "history.parquet")
	tradesCsv := filepath.Join(folder, "trades.csv")
	weeklyCsv := filepath.Join(folder, "weekly.csv")

	// COPY needs raw SQL; Squirrel has no syntax for it.
	exports := []struct {
		name  string
		query string
	}{
		{"history csv", fmt.Sprintf(`COPY history TO '%s' (FORMAT CSV, HEADER)`, historyCsv)},
		{"history parquet", fmt.Sprintf(`COPY history TO '%s' (FORMAT PARQUET)`, historyParquet)},
		{"trades csv", fmt.Sprintf(`COPY trades TO '%s' (FORMAT CSV, HEADER)`, tradesCsv)},
		{"weekly csv", fmt.Sprintf(`COPY (%s) TO '%s' (FORMAT CSV, HEADER)`, weeklyQuery, weeklyCsv)},
	}

	for _, export := range exports {
		if _, err := w.db.Exec(export.query); err != nil {
			return errors.Wrapf(errors.ErrCodeReportWriteFailed, err, "failed to export %s", export.name)
		}
	}

	if err := types.WriteSummary(filepath.Join(folder, "summary.yaml"), result.Summary); err != nil {
		return errors.Wrap(errors.ErrCodeReportWriteFailed, "failed to write summary", err)
	}

	w.logger.Info("Backtest results written",
		zap.String("folder", folder),
		zap.Int("bars", len(result.Records)),
		zap.Int("trades", len(result.Trades)),
	)

	return w.cleanup()
}

// weeklyQuery aggregates realized PnL and trade counts per ISO week.
const weeklyQuery = `
	SELECT
		date_trunc('week', time) AS week,
		SUM(pnl) AS pnl,
		SUM(pnl) * 10000 AS pnl_pips,
		SUM(CASE WHEN action IN ('close long', 'close short') THEN 1 ELSE 0 END) AS trades,
		SUM(CASE WHEN action IN ('close long', 'close short') AND ROUND(pnl, 5) > 0 THEN 1 ELSE 0 END) AS trades_won,
		SUM(CASE WHEN action IN ('close long', 'close short') AND ROUND(pnl, 5) < 0 THEN 1 ELSE 0 END) AS trades_lost
	FROM history
	GROUP BY 1
	ORDER BY 1
`

// stageHistory loads bars, per-bar records and retained indicator values
// into the history table.
func (w *DuckDBWriter) stageHistory(result RunResult) error {
	columns := []string{
		"time TIMESTAMP",
		`"open" DOUBLE`,
		"high DOUBLE",
		"low DOUBLE",
		`"close" DOUBLE`,
		"bid DOUBLE",
		"ask DOUBLE",
	}

	for _, name := range result.IndicatorColumns {
		columns = append(columns, fmt.Sprintf("%s DOUBLE", quoteIdent(name)))
	}

	columns = append(columns,
		"signal TEXT",
		"action TEXT",
		"position TEXT",
		"pnl DOUBLE",
		"total_profit DOUBLE",
		"executed_price DOUBLE",
		"stop_loss DOUBLE",
		"take_profit DOUBLE",
	)

	_, err := w.db.Exec(`DROP TABLE IF EXISTS history`)
	if err != nil {
		return errors.Wrap(errors.ErrCodeReportWriteFailed, "failed to drop history table", err)
	}

	_, err = w.db.Exec(fmt.Sprintf(`CREATE TABLE history (%s)`, strings.Join(columns, ", ")))
	if err != nil {
		return errors.Wrap(errors.ErrCodeReportWriteFailed, "failed to create history table", err)
	}

	insertColumns := []string{"time", "open", "high", "low", "close", "bid", "ask"}
	for _, name := range result.IndicatorColumns {
		insertColumns = append(insertColumns, quoteIdent(name))
	}

	insertColumns = append(insertColumns,
		"signal", "action", "position", "pnl", "total_profit",
		"executed_price", "stop_loss", "take_profit",
	)

	tx, err := w.db.Begin()
	if err != nil {
		return errors.Wrap(errors.ErrCodeReportWriteFailed, "failed to begin transaction", err)
	}

	for i, record := range result.Records {
		bar := result.Bars[i]

		values := []interface{}{
			bar.Time,
			bar.Open,
			bar.High,
			bar.Low,
			bar.Close,
			nullableOption(bar.Bid.IsSome(), bar.Bid.TakeOr(0)),
			nullableOption(bar.Ask.IsSome(), bar.Ask.TakeOr(0)),
		}

		values = append(values, indicatorValues(result.IndicatorColumns, result.IndicatorRows, i)...)

		values = append(values,
			string(record.Signal),
			string(record.Action),
			string(record.Position),
			record.PnL,
			record.TotalProfit,
			nullableOption(record.ExecutedPrice.IsSome(), record.ExecutedPrice.TakeOr(0)),
			record.StopLossLevel,
			record.TakeProfitLevel,
		)

		insert := w.sq.
			Insert("history").
			Columns(insertColumns...).
			Values(values...).
			RunWith(tx)

		if _, err := insert.Exec(); err != nil {
			tx.Rollback()

			return errors.Wrapf(errors.ErrCodeReportWriteFailed, err, "failed to insert history row %d", i)
		}
	}

	if err := tx.Commit(); err != nil {
		return errors.Wrap(errors.ErrCodeReportWriteFailed, "failed to commit history", err)
	}

	return nil
}

// stageTrades loads the closed trades into the trades table.
func (w *DuckDBWriter) stageTrades(trades []types.ClosedTrade) error {
	_, err := w.db.Exec(`DROP TABLE IF EXISTS trades`)
	if err != nil {
		return errors.Wrap(errors.ErrCodeReportWriteFailed, "failed to drop trades table", err)
	}

	_, err = w.db.Exec(`
		CREATE TABLE trades (
			trade_id TEXT PRIMARY KEY,
			bar_index INTEGER,
			closed_at TIMESTAMP,
			action TEXT,
			entry_price DOUBLE,
			exit_price DOUBLE,
			pnl DOUBLE,
			pnl_pips DOUBLE
		)
	`)
	if err != nil {
		return errors.Wrap(errors.ErrCodeReportWriteFailed, "failed to create trades table", err)
	}

	tx, err := w.db.Begin()
	if err != nil {
		return errors.Wrap(errors.ErrCodeReportWriteFailed, "failed to begin transaction", err)
	}

	for _, trade := range trades {
		insert := w.sq.
			Insert("trades").
			Columns("trade_id", "bar_index", "closed_at", "action", "entry_price", "exit_price", "pnl", "pnl_pips").
			Values(trade.ID, trade.Index, trade.ClosedAt, string(trade.Action),
				trade.EntryPrice, trade.ExitPrice, trade.PnL, trade.PnL*types.PipScale).
			RunWith(tx)

		if _, err := insert.Exec(); err != nil {
			tx.Rollback()

			return errors.Wrapf(errors.ErrCodeReportWriteFailed, err, "failed to insert trade %s", trade.ID)
		}
	}

	if err := tx.Commit(); err != nil {
		return errors.Wrap(errors.ErrCodeReportWriteFailed, "failed to commit trades", err)
	}

	return nil
}

func (w *DuckDBWriter) cleanup() error {
	_, err := w.db.Exec(`
		DROP TABLE IF EXISTS history;
		DROP TABLE IF EXISTS trades;
	`)
	if err != nil {
		return errors.Wrap(errors.ErrCodeReportWriteFailed, "failed to cleanup staging tables", err)
	}

	return nil
}

// Close implements ResultWriter.
func (w *DuckDBWriter) Close() error {
	return w.db.Close()
}

// indicatorValues returns the staged values for one bar's indicator row,
// NULL for bars without a row and for NaN entries.
func indicatorValues(columns []string, rows [][]float64, index int) []interface{} {
	values := make([]interface{}, len(columns))

	var row []float64
	if index < len(rows) {
		row = rows[index]
	}

	for i := range columns {
		if row == nil || i >= len(row) || math.IsNaN(row[i]) {
			values[i] = nil

			continue
		}

		values[i] = row[i]
	}

	return values
}

func nullableOption(present bool, value float64) interface{} {
	if !present {
		return nil
	}

	return value
}

func quoteIdent(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}
