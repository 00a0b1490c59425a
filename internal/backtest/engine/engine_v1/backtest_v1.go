package engine

import (
	"context"
	"os"
	"path/filepath"
	"time"

	"github.com/moznion/go-optional"
	"github.com/rxtech-lab/fx-backtest/internal/backtest/engine"
	"github.com/rxtech-lab/fx-backtest/internal/backtest/engine/engine_v1/datasource"
	"github.com/rxtech-lab/fx-backtest/internal/backtest/engine/engine_v1/writer"
	"github.com/rxtech-lab/fx-backtest/internal/logger"
	"github.com/rxtech-lab/fx-backtest/internal/strategy"
	"github.com/rxtech-lab/fx-backtest/internal/types"
	"github.com/rxtech-lab/fx-backtest/pkg/errors"
	"github.com/schollz/progressbar/v3"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

// BacktestEngineV1 drives the full run matrix: every loaded strategy is
// replayed over every configured limit level and every data file, each
// combination with a fresh broker, and each run's results land in their
// own folder under the results directory.
type BacktestEngineV1 struct {
	config        BacktestEngineV1Config
	strategies    []strategy.Strategy
	dataPaths     []string
	resultsFolder string
	log           *logger.Logger
	datasource    datasource.DataSource
}

func NewBacktestEngineV1() engine.Engine {
	return &BacktestEngineV1{
		config:        EmptyConfig(),
		strategies:    nil,
		dataPaths:     nil,
		resultsFolder: "",
		log:           nil,
		datasource:    nil,
	}
}

// Initialize implements engine.Engine.
func (b *BacktestEngineV1) Initialize(config string) error {
	if err := yaml.Unmarshal([]byte(config), &b.config); err != nil {
		return errors.Wrap(errors.ErrCodeInvalidConfiguration, "failed to parse engine config", err)
	}

	if err := b.config.Validate(); err != nil {
		return err
	}

	var loggerError error

	b.log, loggerError = logger.NewLogger()
	if loggerError != nil {
		return loggerError
	}

	b.log.Debug("Backtest engine initialized",
		zap.String("pair", b.config.Pair),
		zap.String("frequency", b.config.Frequency),
		zap.Float64s("limit_pips", b.config.LimitPips),
	)

	return nil
}

// LoadStrategy implements engine.Engine.
func (b *BacktestEngineV1) LoadStrategy(s strategy.Strategy) error {
	b.strategies = append(b.strategies, s)
	b.log.Debug("Strategy loaded",
		zap.String("strategy", s.Name()),
		zap.Int("total_strategies", len(b.strategies)),
	)

	return nil
}

// SetDataPath implements engine.Engine.
func (b *BacktestEngineV1) SetDataPath(path string) error {
	// use glob to get all the files that match the path
	files, err := filepath.Glob(path)
	if err != nil {
		return errors.Wrap(errors.ErrCodeDataNotFound, "invalid data path pattern", err)
	}

	if len(files) == 0 {
		return errors.Newf(errors.ErrCodeDataNotFound, "no data files match %q", path)
	}

	// Convert all paths to absolute paths
	absolutePaths := make([]string, len(files))

	for i, file := range files {
		absPath, err := filepath.Abs(file)
		if err != nil {
			return errors.Wrapf(errors.ErrCodeDataNotFound, err, "failed to resolve %q", file)
		}

		absolutePaths[i] = absPath
	}

	b.dataPaths = absolutePaths
	b.log.Debug("Data paths set",
		zap.Strings("files", absolutePaths),
	)

	return nil
}

// SetResultsFolder implements engine.Engine.
func (b *BacktestEngineV1) SetResultsFolder(folder string) error {
	b.resultsFolder = folder
	b.log.Debug("Results folder set",
		zap.String("folder", folder),
	)

	return nil
}

// SetDataSource implements engine.Engine.
func (b *BacktestEngineV1) SetDataSource(source datasource.DataSource) error {
	b.datasource = source

	return nil
}

// SetTimeWindow implements engine.Engine.
func (b *BacktestEngineV1) SetTimeWindow(start optional.Option[time.Time], end optional.Option[time.Time]) error {
	if start.IsSome() && end.IsSome() && end.Unwrap().Before(start.Unwrap()) {
		return errors.New(errors.ErrCodeInvalidConfiguration, "end of the run window is before its start")
	}

	if start.IsSome() {
		b.config.StartTime = start
	}

	if end.IsSome() {
		b.config.EndTime = end
	}

	return nil
}

// Run implements engine.Engine.
func (b *BacktestEngineV1) Run(ctx context.Context, callbacks engine.LifecycleCallbacks) error {
	if err := b.preRunCheck(); err != nil {
		return err
	}

	// clean the results folder from the previous run
	if _, err := os.Stat(b.resultsFolder); err == nil {
		os.RemoveAll(b.resultsFolder)
	}

	if err := os.MkdirAll(b.resultsFolder, 0755); err != nil {
		return errors.Wrap(errors.ErrCodeReportWriteFailed, "failed to create results folder", err)
	}

	resultWriter, err := writer.NewDuckDBWriter(b.log)
	if err != nil {
		return err
	}
	defer resultWriter.Close()

	for _, s := range b.strategies {
		for _, limitPips := range b.config.LimitPips {
			for _, dataPath := range b.dataPaths {
				if err := ctx.Err(); err != nil {
					return err
				}

				if err := b.runOne(ctx, s, limitPips, dataPath, resultWriter, callbacks); err != nil {
					return err
				}
			}
		}
	}

	return nil
}

// runOne replays one strategy over one data file at one limit level. Every
// run gets a fresh broker so that no position or counter state leaks
// between combinations.
func (b *BacktestEngineV1) runOne(
	ctx context.Context,
	s strategy.Strategy,
	limitPips float64,
	dataPath string,
	resultWriter writer.ResultWriter,
	callbacks engine.LifecycleCallbacks,
) error {
	if err := b.datasource.Initialize(dataPath); err != nil {
		return err
	}

	bars, err := b.collectBars()
	if err != nil {
		return err
	}

	if len(bars) == 0 {
		return errors.Newf(errors.ErrCodeInsufficientData, "no bars in %q inside the configured window", dataPath)
	}

	start := b.config.StartTime.TakeOr(bars[0].Time)
	end := b.config.EndTime.TakeOr(bars[len(bars)-1].Time)

	brokerConfig := BrokerConfig{
		StopLoss:        -limitPips * b.config.OnePip,
		TakeProfit:      limitPips * b.config.OnePip,
		GuaranteedStop:  b.config.GuaranteedStop,
		BrokerCost:      b.config.BrokerCostPips * b.config.OnePip,
		Pair:            b.config.Pair,
		Frequency:       b.config.Frequency,
		Start:           start,
		End:             end,
		StoreIndicators: b.config.StoreIndicators,
	}

	broker, err := NewBroker(brokerConfig, len(bars), b.log)
	if err != nil {
		return err
	}

	if err := s.Initialize(""); err != nil {
		return errors.Wrapf(errors.ErrCodeInvalidConfiguration, err, "failed to initialize strategy %s", s.Name())
	}

	resultFolderPath := getResultFolder(b.resultsFolder, s.Name(), limitPips, dataPath)

	if callbacks.OnRunStart != nil {
		if err := (*callbacks.OnRunStart)(s.Name(), limitPips, dataPath, len(bars)); err != nil {
			return err
		}
	}

	b.log.Info("Running strategy",
		zap.String("strategy", s.Name()),
		zap.Float64("limit_pips", limitPips),
		zap.String("data", dataPath),
		zap.String("result", resultFolderPath),
	)

	progress := progressbar.Default(int64(len(bars)))

	for i, bar := range bars {
		if err := ctx.Err(); err != nil {
			return err
		}

		signal, err := s.ProcessBar(i, bars)
		if err != nil {
			return errors.Wrapf(errors.ErrCodeUnknown, err, "strategy %s failed on bar %d", s.Name(), i)
		}

		if err := broker.ProcessBar(i, bar, signal); err != nil {
			return err
		}

		progress.Add(1)

		if callbacks.OnProcessData != nil {
			if err := (*callbacks.OnProcessData)(i+1, len(bars)); err != nil {
				return err
			}
		}
	}

	history := broker.History()

	result := writer.RunResult{
		Bars:             bars,
		Records:          history.Records(),
		IndicatorColumns: history.IndicatorColumns(),
		IndicatorRows:    history.IndicatorRows(),
		Trades:           broker.Trades(),
		Summary:          broker.Summary(),
	}

	if err := resultWriter.Write(resultFolderPath, result); err != nil {
		return err
	}

	if callbacks.OnRunEnd != nil {
		(*callbacks.OnRunEnd)(s.Name(), limitPips, dataPath, resultFolderPath)
	}

	return nil
}

// collectBars materializes the bar series for the configured time window.
// Strategies get random access to past bars and the broker needs the bar
// count up front, so the run works on a slice rather than the raw iterator.
func (b *BacktestEngineV1) collectBars() ([]types.Bar, error) {
	count, err := b.datasource.Count(b.config.StartTime, b.config.EndTime)
	if err != nil {
		return nil, err
	}

	bars := make([]types.Bar, 0, count)

	for bar, err := range b.datasource.ReadAll(b.config.StartTime, b.config.EndTime) {
		if err != nil {
			return nil, err
		}

		bars = append(bars, bar)
	}

	return bars, nil
}

// GetConfigSchema implements engine.Engine.
func (b *BacktestEngineV1) GetConfigSchema() (string, error) {
	config := b.config

	schema, err := config.GenerateSchemaJSON()
	if err != nil {
		return "", errors.Wrap(errors.ErrCodeUnknown, "failed to generate schema", err)
	}

	return schema, nil
}

func (b *BacktestEngineV1) preRunCheck() error {
	if len(b.strategies) == 0 {
		return errors.New(errors.ErrCodeRunNoStrategies, "no strategies loaded")
	}

	if len(b.dataPaths) == 0 {
		return errors.New(errors.ErrCodeRunNoDataPaths, "no data paths loaded")
	}

	if b.resultsFolder == "" {
		return errors.New(errors.ErrCodeRunNoResultsDir, "no results folder set")
	}

	if b.datasource == nil {
		return errors.New(errors.ErrCodeRunNoDatasource, "no datasource set")
	}

	return nil
}
