package engine

import (
	"encoding/json"
	"reflect"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/invopop/jsonschema"
	"github.com/moznion/go-optional"
	"github.com/rxtech-lab/fx-backtest/pkg/errors"
	"gopkg.in/yaml.v3"
)

// BacktestEngineV1Config configures one backtest run matrix. Limit levels
// are given in pips; the engine derives the signed stop-loss/take-profit
// offsets (stop = -limit * one_pip, target = +limit * one_pip) for each run.
type BacktestEngineV1Config struct {
	Pair            string                     `yaml:"pair" json:"pair" jsonschema:"title=Pair,description=Instrument identifier such as EURUSD" validate:"required"`
	Frequency       string                     `yaml:"frequency" json:"frequency" jsonschema:"title=Frequency,description=Data interval label such as M5" validate:"required"`
	OnePip          float64                    `yaml:"one_pip" json:"one_pip" jsonschema:"title=One Pip,description=Absolute price value of one pip,default=0.0001" validate:"gt=0"`
	LimitPips       []float64                  `yaml:"limit_pips" json:"limit_pips" jsonschema:"title=Limit Levels,description=Stop/target distances in pips; one backtest run per level" validate:"min=1,dive,gt=0"`
	GuaranteedStop  bool                       `yaml:"guaranteed_stop" json:"guaranteed_stop" jsonschema:"title=Guaranteed Stop,description=Clamp realized PnL to the configured offsets on limit hits"`
	BrokerCostPips  float64                    `yaml:"broker_cost_pips" json:"broker_cost_pips" jsonschema:"title=Broker Cost,description=Flat per-trade cost in pips" validate:"gte=0"`
	StoreIndicators bool                       `yaml:"store_indicators" json:"store_indicators" jsonschema:"title=Store Indicators,description=Retain strategy indicator values in the history output"`
	StartTime       optional.Option[time.Time] `yaml:"start_time" json:"start_time" jsonschema:"title=Start Time,description=Optional start of the run window"`
	EndTime         optional.Option[time.Time] `yaml:"end_time" json:"end_time" jsonschema:"title=End Time,description=Optional end of the run window"`
}

// UnmarshalYAML implements custom unmarshaling for BacktestEngineV1Config
// so that optional time bounds round-trip through plain YAML timestamps.
func (c *BacktestEngineV1Config) UnmarshalYAML(value *yaml.Node) error {
	type plainConfig struct {
		Pair            string     `yaml:"pair"`
		Frequency       string     `yaml:"frequency"`
		OnePip          float64    `yaml:"one_pip"`
		LimitPips       []float64  `yaml:"limit_pips"`
		GuaranteedStop  bool       `yaml:"guaranteed_stop"`
		BrokerCostPips  float64    `yaml:"broker_cost_pips"`
		StoreIndicators bool       `yaml:"store_indicators"`
		StartTime       *time.Time `yaml:"start_time"`
		EndTime         *time.Time `yaml:"end_time"`
	}

	var config plainConfig
	if err := value.Decode(&config); err != nil {
		return err
	}

	c.Pair = config.Pair
	c.Frequency = config.Frequency
	c.OnePip = config.OnePip
	c.LimitPips = config.LimitPips
	c.GuaranteedStop = config.GuaranteedStop
	c.BrokerCostPips = config.BrokerCostPips
	c.StoreIndicators = config.StoreIndicators

	if config.StartTime != nil {
		c.StartTime = optional.Some(*config.StartTime)
	}

	if config.EndTime != nil {
		c.EndTime = optional.Some(*config.EndTime)
	}

	return nil
}

// Validate checks the configuration and fails fast on values that could
// only ever produce nonsensical trades.
func (c *BacktestEngineV1Config) Validate() error {
	validate := validator.New()
	if err := validate.Struct(c); err != nil {
		return errors.Wrap(errors.ErrCodeInvalidConfiguration, "invalid backtest config", err)
	}

	if c.StartTime.IsSome() && c.EndTime.IsSome() && c.EndTime.Unwrap().Before(c.StartTime.Unwrap()) {
		return errors.New(errors.ErrCodeInvalidConfiguration, "end_time is before start_time")
	}

	return nil
}

// GenerateSchema generates a JSON schema for the BacktestEngineV1Config
func (c *BacktestEngineV1Config) GenerateSchema() *jsonschema.Schema {
	reflector := jsonschema.Reflector{
		RequiredFromJSONSchemaTags: true,
		ExpandedStruct:             true,
		AllowAdditionalProperties:  false,
		Mapper: func(t reflect.Type) *jsonschema.Schema {
			if t.String() == "optional.Option[time.Time]" {
				return &jsonschema.Schema{
					Type:   "string",
					Format: "date-time",
				}
			}

			return nil
		},
	}

	schema := reflector.Reflect(c)
	schema.Title = "backtest-engine-v1-config"
	schema.Description = "Configuration schema for BacktestEngineV1"
	schema.Version = "http://json-schema.org/draft-07/schema#"

	return schema
}

// GenerateSchemaJSON generates a JSON schema string for the BacktestEngineV1Config
func (c *BacktestEngineV1Config) GenerateSchemaJSON() (string, error) {
	schema := c.GenerateSchema()

	schemaBytes, err := json.MarshalIndent(schema, "", "  ")
	if err != nil {
		return "", err
	}

	return string(schemaBytes), nil
}

// EmptyConfig returns a BacktestEngineV1Config with default values
func EmptyConfig() BacktestEngineV1Config {
	return BacktestEngineV1Config{
		Pair:            "",
		Frequency:       "",
		OnePip:          0.0001,
		LimitPips:       nil,
		GuaranteedStop:  false,
		BrokerCostPips:  0,
		StoreIndicators: true,
		StartTime:       optional.None[time.Time](),
		EndTime:         optional.None[time.Time](),
	}
}

// TestConfig returns a minimal valid config for tests.
func TestConfig(pair string, limitPips float64) BacktestEngineV1Config {
	config := EmptyConfig()
	config.Pair = pair
	config.Frequency = "M5"
	config.LimitPips = []float64{limitPips}
	config.BrokerCostPips = 2

	return config
}
