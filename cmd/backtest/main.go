package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/moznion/go-optional"
	backtestengine "github.com/rxtech-lab/fx-backtest/internal/backtest/engine"
	engine "github.com/rxtech-lab/fx-backtest/internal/backtest/engine/engine_v1"
	"github.com/rxtech-lab/fx-backtest/internal/backtest/engine/engine_v1/datasource"
	"github.com/rxtech-lab/fx-backtest/internal/logger"
	"github.com/rxtech-lab/fx-backtest/internal/strategy"
	"github.com/urfave/cli/v3"
)

// backtestAction is the core logic executed by the CLI command. It wires
// up the data source and the engine, loads the built-in strategies, and
// runs the full strategy/limit/data matrix.
func backtestAction(ctx context.Context, cmd *cli.Command) error {
	configPath := cmd.String("config")
	dataPath := cmd.String("data")
	resultsFolder := cmd.String("results")

	configContent, err := os.ReadFile(configPath)
	if err != nil {
		return fmt.Errorf("failed to read config %s: %w", configPath, err)
	}

	backtest := engine.NewBacktestEngineV1()

	if err := backtest.Initialize(string(configContent)); err != nil {
		return fmt.Errorf("failed to initialize engine: %w", err)
	}

	runLogger, err := logger.NewLogger()
	if err != nil {
		return fmt.Errorf("failed to create logger: %w", err)
	}
	defer runLogger.Sync()

	source, err := datasource.NewDataSource(":memory:", runLogger)
	if err != nil {
		return fmt.Errorf("failed to create data source: %w", err)
	}
	defer source.Close()

	if err := backtest.SetDataSource(source); err != nil {
		return err
	}

	if err := backtest.SetDataPath(dataPath); err != nil {
		return err
	}

	if err := backtest.SetResultsFolder(resultsFolder); err != nil {
		return err
	}

	start := optional.None[time.Time]()
	if cmd.IsSet("start") {
		start = optional.Some(cmd.Timestamp("start"))
	}

	end := optional.None[time.Time]()
	if cmd.IsSet("end") {
		end = optional.Some(cmd.Timestamp("end"))
	}

	if err := backtest.SetTimeWindow(start, end); err != nil {
		return err
	}

	for _, s := range []strategy.Strategy{
		strategy.NewMACDCrossover(),
		strategy.NewPSARReversal(),
	} {
		if err := backtest.LoadStrategy(s); err != nil {
			return err
		}
	}

	return backtest.Run(ctx, backtestengine.LifecycleCallbacks{})
}

// schemaAction prints the JSON schema of the engine configuration.
func schemaAction(ctx context.Context, cmd *cli.Command) error {
	backtest := engine.NewBacktestEngineV1()

	schema, err := backtest.GetConfigSchema()
	if err != nil {
		return err
	}

	fmt.Println(schema)

	return nil
}

func main() {
	cmd := &cli.Command{
		Name:  "backtest",
		Usage: "Replay trading strategies over historical FX bar data",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:     "config",
				Aliases:  []string{"c"},
				Usage:    "Path to the engine configuration YAML file",
				Required: true,
			},
			&cli.StringFlag{
				Name:     "data",
				Aliases:  []string{"d"},
				Usage:    "Path or glob of CSV/Parquet bar data files (e.g. \"data/*.csv\")",
				Required: true,
			},
			&cli.StringFlag{
				Name:     "results",
				Aliases:  []string{"r"},
				Usage:    "Path to the results output directory",
				Value:    "results",
				Required: false,
			},
			&cli.TimestampFlag{
				Name:    "start",
				Aliases: []string{"s"},
				Usage:   "Start of the run window in `YYYY-MM-DD` format (or other RFC3339 compatible)",
				Config: cli.TimestampConfig{
					Layouts: []string{"2006-01-02", time.RFC3339},
				},
				Required: false,
			},
			&cli.TimestampFlag{
				Name:    "end",
				Aliases: []string{"e"},
				Usage:   "End of the run window in `YYYY-MM-DD` format (or other RFC3339 compatible)",
				Config: cli.TimestampConfig{
					Layouts: []string{"2006-01-02", time.RFC3339},
				},
				Required: false,
			},
		},
		Action: backtestAction,
		Commands: []*cli.Command{
			{
				Name:   "schema",
				Usage:  "Print the JSON schema of the engine configuration",
				Action: schemaAction,
			},
		},
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		log.Fatal(err)
	}
}
