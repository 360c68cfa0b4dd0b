// Package config loads the harvester configuration from YAML, .env and the environment.
package config

import (
	"fmt"
	"os"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/robfig/cron/v3"
	"github.com/rxtech-lab/argo-harvest/internal/types"
	"github.com/rxtech-lab/argo-harvest/pkg/errors"
	"github.com/rxtech-lab/argo-harvest/pkg/marketdata"
	"github.com/rxtech-lab/argo-harvest/pkg/marketdata/artifact"
	"github.com/rxtech-lab/argo-harvest/pkg/marketdata/pacing"
	"github.com/rxtech-lab/argo-harvest/pkg/marketdata/provider"
	"github.com/rxtech-lab/argo-harvest/pkg/utils"
	"gopkg.in/yaml.v3"
)

// EnvPrefix prefixes every environment override, e.g. HARVEST_PROVIDER_NAME.
const EnvPrefix = "HARVEST_"

// DefaultPath is where the CLI looks for the config file.
const DefaultPath = "configs/config.yaml"

// CronParser accepts standard five field specs, an optional leading seconds
// field and descriptors such as @daily.
var CronParser = cron.NewParser(
	cron.SecondOptional | cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor,
)

// Config represents the application configuration.
type Config struct {
	Download marketdata.DownloadConfig `yaml:"download" json:"download" envPrefix:"DOWNLOAD_"`
	Provider ProviderConfig            `yaml:"provider" json:"provider" envPrefix:"PROVIDER_"`
	Storage  StorageConfig             `yaml:"storage" json:"storage" envPrefix:"STORAGE_"`
	Pacing   PacingConfig              `yaml:"pacing" json:"pacing" envPrefix:"PACING_"`
	Log      LogConfig                 `yaml:"log" json:"log" envPrefix:"LOG_"`
	Schedule ScheduleConfig            `yaml:"schedule" json:"schedule" envPrefix:"SCHEDULE_"`
}

// ProviderConfig selects the remote data source.
type ProviderConfig struct {
	Name     string        `yaml:"name" json:"name" env:"NAME" jsonschema:"title=Provider,enum=yahoo,enum=polygon,enum=binance,default=yahoo" validate:"oneof=yahoo polygon binance"`
	BaseURL  string        `yaml:"base_url" json:"base_url,omitempty" env:"BASE_URL" jsonschema:"title=Base URL,description=Overrides the provider endpoint" validate:"omitempty,url"`
	APIKey   string        `yaml:"api_key" json:"api_key,omitempty" env:"API_KEY" jsonschema:"title=API Key,description=Required for polygon" validate:"required_if=Name polygon"`
	ProxyURL string        `yaml:"proxy_url" json:"proxy_url,omitempty" env:"PROXY_URL" jsonschema:"title=Proxy URL" validate:"omitempty,url"`
	Timeout  time.Duration `yaml:"timeout" json:"timeout,omitempty" env:"TIMEOUT" jsonschema:"title=Request timeout,type=string" validate:"gte=0"`
}

// StorageConfig locates artifacts and reports.
type StorageConfig struct {
	DataDir   string `yaml:"data_dir" json:"data_dir" env:"DATA_DIR" jsonschema:"title=Data directory,default=data" validate:"required"`
	OutputDir string `yaml:"output_dir" json:"output_dir" env:"OUTPUT_DIR" jsonschema:"title=Report directory,default=output" validate:"required"`
	Format    string `yaml:"format" json:"format" env:"FORMAT" jsonschema:"title=Artifact format,enum=csv,enum=parquet,default=csv" validate:"oneof=csv parquet"`
}

// PacingConfig spaces out provider requests.
type PacingConfig struct {
	Policy   string        `yaml:"policy" json:"policy" env:"POLICY" jsonschema:"title=Pacing policy,enum=fixed,enum=backoff,enum=none,default=fixed" validate:"oneof=fixed backoff none"`
	Delay    time.Duration `yaml:"delay" json:"delay" env:"DELAY" jsonschema:"title=Delay between requests,type=string,default=1s" validate:"gte=0"`
	MaxDelay time.Duration `yaml:"max_delay" json:"max_delay,omitempty" env:"MAX_DELAY" jsonschema:"title=Backoff ceiling,type=string" validate:"gte=0"`
	Factor   float64       `yaml:"factor" json:"factor,omitempty" env:"FACTOR" jsonschema:"title=Backoff factor" validate:"gte=0"`
}

// LogConfig configures the logger.
type LogConfig struct {
	Level string `yaml:"level" json:"level" env:"LEVEL" jsonschema:"title=Log level,enum=debug,enum=info,enum=warn,enum=error,default=info" validate:"oneof=debug info warn error"`
	File  string `yaml:"file" json:"file,omitempty" env:"FILE" jsonschema:"title=Log file,default=logs/download.log"`
}

// ScheduleConfig drives periodic runs of `harvest schedule`.
type ScheduleConfig struct {
	Cron       string `yaml:"cron" json:"cron,omitempty" env:"CRON" jsonschema:"title=Cron spec,description=Five or six field cron spec or a descriptor such as @daily"`
	RunOnStart bool   `yaml:"run_on_start" json:"run_on_start,omitempty" env:"RUN_ON_START" jsonschema:"title=Run once at startup"`
}

// Default returns the configuration used when nothing is configured.
func Default() Config {
	return Config{
		Download: marketdata.DownloadConfig{
			Symbols:  nil,
			Period:   "1y",
			Interval: "1d",
		},
		Provider: ProviderConfig{
			Name:     string(provider.ProviderYahoo),
			BaseURL:  "",
			APIKey:   "",
			ProxyURL: "",
			Timeout:  30 * time.Second,
		},
		Storage: StorageConfig{
			DataDir:   "data",
			OutputDir: "output",
			Format:    string(artifact.FormatCSV),
		},
		Pacing: PacingConfig{
			Policy:   pacing.PolicyFixed,
			Delay:    time.Second,
			MaxDelay: 0,
			Factor:   0,
		},
		Log: LogConfig{
			Level: "info",
			File:  "logs/download.log",
		},
		Schedule: ScheduleConfig{
			Cron:       "",
			RunOnStart: false,
		},
	}
}

// Override adjusts a loaded configuration before it is validated, e.g. from
// command line flags.
type Override func(*Config) error

// Load reads the YAML file at path on top of the defaults, then applies the
// .env file, HARVEST_* environment overrides and the given overrides, and
// validates the result. A missing file is only an error when required is set.
func Load(path string, required bool, overrides ...Override) (*Config, error) {
	cfg, err := load(path, required, overrides)
	if err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// LoadBase is Load for commands that only touch stored artifacts. The
// download section is not validated.
func LoadBase(path string, required bool, overrides ...Override) (*Config, error) {
	cfg, err := load(path, required, overrides)
	if err != nil {
		return nil, err
	}

	if err := cfg.ValidateBase(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func load(path string, required bool, overrides []Override) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil && (required || !os.IsNotExist(err)) {
		return nil, errors.Wrapf(errors.ErrCodeInvalidConfiguration, err, "read config %s", path)
	}

	if len(data) > 0 {
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, errors.Wrapf(errors.ErrCodeInvalidConfiguration, err, "parse config %s", path)
		}
	}

	// Load .env file if it exists
	_ = godotenv.Load()

	if err := env.ParseWithOptions(&cfg, env.Options{Prefix: EnvPrefix}); err != nil { //nolint:exhaustruct
		return nil, errors.Wrap(errors.ErrCodeInvalidConfiguration, "failed to parse environment", err)
	}

	for _, override := range overrides {
		if err := override(&cfg); err != nil {
			return nil, errors.Wrap(errors.ErrCodeInvalidConfiguration, "invalid override", err)
		}
	}

	return &cfg, nil
}

// Validate checks the whole configuration.
func (c *Config) Validate() error {
	if err := c.ValidateBase(); err != nil {
		return err
	}

	if err := c.Download.Validate(); err != nil {
		return errors.Wrap(errors.ErrCodeInvalidConfiguration, "invalid download section", err)
	}

	return nil
}

// ValidateBase checks every section except download.
func (c *Config) ValidateBase() error {
	validate := validator.New()

	for name, section := range map[string]any{
		"provider": c.Provider,
		"storage":  c.Storage,
		"pacing":   c.Pacing,
		"log":      c.Log,
		"schedule": c.Schedule,
	} {
		if err := validate.Struct(section); err != nil {
			return errors.Wrapf(errors.ErrCodeInvalidConfiguration, err, "invalid %s section", name)
		}
	}

	if c.Pacing.Policy != pacing.PolicyNone && c.Pacing.Delay <= 0 {
		return errors.Newf(errors.ErrCodeInvalidConfiguration, "pacing delay must be positive, got %s", c.Pacing.Delay)
	}

	if c.Schedule.Cron != "" {
		if _, err := CronParser.Parse(c.Schedule.Cron); err != nil {
			return errors.Wrapf(errors.ErrCodeInvalidConfiguration, err, "invalid cron spec %q", c.Schedule.Cron)
		}
	}

	return nil
}

// ToClientConfig converts the configuration into the market data client config.
func (c *Config) ToClientConfig() marketdata.ClientConfig {
	return marketdata.ClientConfig{
		Provider: provider.Config{
			Name:     provider.ProviderType(c.Provider.Name),
			BaseURL:  c.Provider.BaseURL,
			APIKey:   c.Provider.APIKey,
			ProxyURL: c.Provider.ProxyURL,
			Timeout:  c.Provider.Timeout,
		},
		Format:    artifact.Format(c.Storage.Format),
		DataDir:   c.Storage.DataDir,
		OutputDir: c.Storage.OutputDir,
		Pacing: pacing.Config{
			Policy:   c.Pacing.Policy,
			Delay:    c.Pacing.Delay,
			MaxDelay: c.Pacing.MaxDelay,
			Factor:   c.Pacing.Factor,
		},
	}
}

// DownloadParams returns the run parameters of the download section.
func (c *Config) DownloadParams() marketdata.DownloadParams {
	return c.Download.ToDownloadParams()
}

// Universe returns the configured symbols as a universe.
func (c *Config) Universe() (types.Universe, error) {
	return types.NewUniverse(c.Download.Symbols)
}

// Schema returns the JSON schema of the config file.
func Schema() (string, error) {
	return utils.GetSchemaFromConfig(Config{}) //nolint:exhaustruct
}

// String renders the configuration as YAML with the API key masked.
func (c Config) String() string {
	if c.Provider.APIKey != "" {
		c.Provider.APIKey = "****"
	}

	out, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Sprintf("config: %v", err)
	}

	return string(out)
}
