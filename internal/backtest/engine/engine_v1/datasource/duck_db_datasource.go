package datasource

import (
	"database/sql"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/Masterminds/squirrel"
	_ "github.com/marcboeker/go-duckdb"
	"github.com/moznion/go-optional"
	"github.com/rxtech-lab/fx-backtest/internal/logger"
	"github.com/rxtech-lab/fx-backtest/internal/types"
	"github.com/rxtech-lab/fx-backtest/pkg/errors"
	"go.uber.org/zap"
)

// DuckDBDataSource loads historical bar files into a DuckDB view and
// serves them in time order. Datasets without bid/ask columns are served
// with the close price substituted for both sides.
type DuckDBDataSource struct {
	db     *sql.DB
	logger *logger.Logger
	sq     squirrel.StatementBuilderType

	hasBidAsk bool
	hasVolume bool
}

// NewDataSource creates a new DuckDB data source instance with the
// specified database path (usually ":memory:"). This is distinct from
// Initialize() which loads bar data into the database.
func NewDataSource(path string, logger *logger.Logger) (DataSource, error) {
	db, err := sql.Open("duckdb", path)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeDataSourceUnavailable, "failed to open duckdb", err)
	}

	return &DuckDBDataSource{
		db:        db,
		logger:    logger,
		sq:        squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
		hasBidAsk: false,
		hasVolume: false,
	}, nil
}

// Initialize implements DataSource.
func (d *DuckDBDataSource) Initialize(path string) error {
	d.logger.Debug("Initializing DuckDB data source", zap.String("path", path))

	// First drop the view if it exists
	_, err := d.db.Exec(`DROP VIEW IF EXISTS bars;`)
	if err != nil {
		return errors.Wrap(errors.ErrCodeQueryFailed, "failed to drop existing view", err)
	}

	var reader string

	switch strings.ToLower(filepath.Ext(path)) {
	case ".csv":
		reader = "read_csv_auto"
	case ".parquet":
		reader = "read_parquet"
	default:
		return errors.Newf(errors.ErrCodeUnsupportedDataFormat, "unsupported data file format: %s", filepath.Ext(path))
	}

	// Using raw SQL as Squirrel doesn't support CREATE VIEW
	query := fmt.Sprintf(`
		CREATE VIEW bars AS
		SELECT * FROM %s('%s');
	`, reader, path)

	_, err = d.db.Exec(query)
	if err != nil {
		return errors.Wrap(errors.ErrCodeQueryFailed, "failed to create bars view", err)
	}

	return d.inspectColumns()
}

// inspectColumns checks which optional columns the loaded dataset carries.
// time and close are required; open/high/low fall back to close, volume to
// zero, and bid/ask to the close substitution.
func (d *DuckDBDataSource) inspectColumns() error {
	rows, err := d.db.Query(`SELECT column_name FROM (DESCRIBE bars)`)
	if err != nil {
		return errors.Wrap(errors.ErrCodeQueryFailed, "failed to describe bars view", err)
	}
	defer rows.Close()

	columns := make(map[string]bool)

	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return errors.Wrap(errors.ErrCodeQueryFailed, "failed to scan column name", err)
		}

		columns[strings.ToLower(name)] = true
	}

	if err := rows.Err(); err != nil {
		return errors.Wrap(errors.ErrCodeQueryFailed, "error iterating columns", err)
	}

	for _, required := range []string{"time", "close"} {
		if !columns[required] {
			return errors.Newf(errors.ErrCodeMalformedBar, "dataset is missing required column %q", required)
		}
	}

	d.hasBidAsk = columns["bid"] && columns["ask"]
	d.hasVolume = columns["volume"]

	return nil
}

// selectColumns returns the column expressions for reading bars, with
// fallbacks for columns the dataset does not carry.
func (d *DuckDBDataSource) selectColumns() []string {
	columns := []string{
		"time",
		"COALESCE(open, close) AS open",
		"COALESCE(high, close) AS high",
		"COALESCE(low, close) AS low",
		"close",
	}

	if d.hasVolume {
		columns = append(columns, "volume")
	} else {
		columns = append(columns, "0 AS volume")
	}

	if d.hasBidAsk {
		columns = append(columns, "bid", "ask")
	} else {
		columns = append(columns, "NULL AS bid", "NULL AS ask")
	}

	return columns
}

// ReadAll implements DataSource.
func (d *DuckDBDataSource) ReadAll(start optional.Option[time.Time], end optional.Option[time.Time]) func(yield func(types.Bar, error) bool) {
	return func(yield func(types.Bar, error) bool) {
		query := d.sq.
			Select(d.selectColumns()...).
			From("bars").
			OrderBy("time ASC")

		if start.IsSome() {
			query = query.Where(squirrel.GtOrEq{"time": start.Unwrap()})
		}

		if end.IsSome() {
			query = query.Where(squirrel.LtOrEq{"time": end.Unwrap()})
		}

		rows, err := query.RunWith(d.db).Query()
		if err != nil {
			yield(types.Bar{}, errors.Wrap(errors.ErrCodeQueryFailed, "failed to query bars", err))

			return
		}
		defer rows.Close()

		for rows.Next() {
			bar, err := scanBar(rows)
			if err != nil {
				yield(types.Bar{}, err)

				return
			}

			if !yield(bar, nil) {
				return
			}
		}

		if err := rows.Err(); err != nil {
			yield(types.Bar{}, errors.Wrap(errors.ErrCodeQueryFailed, "error iterating bars", err))
		}
	}
}

func scanBar(rows *sql.Rows) (types.Bar, error) {
	var bar types.Bar

	var bid, ask sql.NullFloat64

	err := rows.Scan(
		&bar.Time,
		&bar.Open,
		&bar.High,
		&bar.Low,
		&bar.Close,
		&bar.Volume,
		&bid,
		&ask,
	)
	if err != nil {
		return types.Bar{}, errors.Wrap(errors.ErrCodeMalformedBar, "failed to scan bar", err)
	}

	if bid.Valid {
		bar.Bid = optional.Some(bid.Float64)
	}

	if ask.Valid {
		bar.Ask = optional.Some(ask.Float64)
	}

	return bar, nil
}

// Count implements DataSource.
func (d *DuckDBDataSource) Count(start optional.Option[time.Time], end optional.Option[time.Time]) (int, error) {
	query := d.sq.
		Select("COUNT(*)").
		From("bars")

	if start.IsSome() {
		query = query.Where(squirrel.GtOrEq{"time": start.Unwrap()})
	}

	if end.IsSome() {
		query = query.Where(squirrel.LtOrEq{"time": end.Unwrap()})
	}

	var count int

	err := query.RunWith(d.db).QueryRow().Scan(&count)
	if err != nil {
		return 0, errors.Wrap(errors.ErrCodeQueryFailed, "failed to count bars", err)
	}

	return count, nil
}

// Close implements DataSource.
func (d *DuckDBDataSource) Close() error {
	return d.db.Close()
}
