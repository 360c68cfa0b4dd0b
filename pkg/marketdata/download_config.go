package marketdata

import (
	"encoding/json"
	"fmt"

	"github.com/go-playground/validator/v10"
	"github.com/rxtech-lab/argo-harvest/internal/types"
)

// DownloadConfig describes the dataset a run fills in. It is the download
// section of the config file and the payload of `harvest download --json`.
type DownloadConfig struct {
	Symbols  []string `yaml:"symbols" json:"symbols" env:"SYMBOLS" envSeparator:"," jsonschema:"title=Symbols,description=Ticker symbols to download (e.g. THYAO.IS or AAPL),minItems=1,required" validate:"required,min=1,dive,required"`
	Period   string   `yaml:"period" json:"period" env:"PERIOD" jsonschema:"title=Period,description=Lookback window such as 1y or 6mo or ytd or max,default=1y,required" validate:"required"`
	Interval string   `yaml:"interval" json:"interval" env:"INTERVAL" jsonschema:"title=Interval,description=Bar interval,default=1d,required,enum=1m,enum=2m,enum=5m,enum=15m,enum=30m,enum=60m,enum=90m,enum=1h,enum=1d,enum=5d,enum=1wk,enum=1mo,enum=3mo" validate:"required,oneof=1m 2m 5m 15m 30m 60m 90m 1h 1d 5d 1wk 1mo 3mo"`
}

// Validate validates the DownloadConfig fields.
func (c *DownloadConfig) Validate() error {
	validate := validator.New()
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	if _, err := types.ParsePeriod(c.Period); err != nil {
		return err
	}

	if _, err := types.NewUniverse(c.Symbols); err != nil {
		return err
	}

	return nil
}

// ToDownloadParams converts a DownloadConfig to DownloadParams.
func (c *DownloadConfig) ToDownloadParams() DownloadParams {
	return DownloadParams{
		Symbols:  append([]string(nil), c.Symbols...),
		Period:   c.Period,
		Interval: c.Interval,
	}
}

// ParseDownloadConfig parses JSON into a DownloadConfig.
func ParseDownloadConfig(jsonConfig string) (*DownloadConfig, error) {
	var config DownloadConfig
	if err := json.Unmarshal([]byte(jsonConfig), &config); err != nil {
		return nil, fmt.Errorf("failed to parse JSON config: %w", err)
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return &config, nil
}
