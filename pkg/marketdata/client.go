// Package marketdata wires the acquisition pipeline together.
package marketdata

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/rxtech-lab/argo-harvest/internal/logger"
	"github.com/rxtech-lab/argo-harvest/internal/types"
	"github.com/rxtech-lab/argo-harvest/pkg/errors"
	"github.com/rxtech-lab/argo-harvest/pkg/marketdata/acquisition"
	"github.com/rxtech-lab/argo-harvest/pkg/marketdata/artifact"
	"github.com/rxtech-lab/argo-harvest/pkg/marketdata/inventory"
	"github.com/rxtech-lab/argo-harvest/pkg/marketdata/pacing"
	"github.com/rxtech-lab/argo-harvest/pkg/marketdata/provider"
	"github.com/rxtech-lab/argo-harvest/pkg/marketdata/quality"
	"github.com/rxtech-lab/argo-harvest/pkg/marketdata/report"
	"github.com/rxtech-lab/argo-harvest/pkg/marketdata/writer"
	"go.uber.org/zap"
)

// ClientConfig holds the configuration for the market data client.
type ClientConfig struct {
	Provider  provider.Config
	Format    artifact.Format `validate:"required,oneof=csv parquet"`
	DataDir   string          `validate:"required"`
	OutputDir string          `validate:"required"`
	Pacing    pacing.Config
}

// DownloadParams holds the parameters for one acquisition run.
type DownloadParams struct {
	Symbols  []string `validate:"required,min=1,dive,required"`
	Period   string   `validate:"required"`
	Interval string   `validate:"required"`
}

// DownloadResult is what a run produced.
type DownloadResult struct {
	Run        acquisition.RunResult
	Report     types.SummaryReport
	ReportPath string
}

// ArtifactCheck is the result of re-validating a stored artifact.
type ArtifactCheck struct {
	Path       string
	Key        artifact.Key
	Stats      types.TableStats
	Validation types.ValidationResult
	// Sidecar is the metadata stored when the artifact was written, nil if absent.
	Sidecar *artifact.Meta
	// SidecarErr is set when the sidecar exists but cannot be trusted.
	SidecarErr error
}

// ValidationChanged reports whether the stored verdict differs from the fresh one.
func (c ArtifactCheck) ValidationChanged() bool {
	return c.Sidecar != nil && c.Sidecar.Validation.Passed != c.Validation.Passed
}

// Option customizes a Client.
type Option func(*Client)

// WithFetcher replaces the fetcher built from the provider config.
func WithFetcher(fetcher provider.Fetcher) Option {
	return func(c *Client) {
		c.fetcher = fetcher
	}
}

// WithPacing replaces the pacing policy built from the pacing config.
func WithPacing(policy pacing.Policy) Option {
	return func(c *Client) {
		c.pacing = policy
	}
}

// WithClock sets the clock used to stamp runs.
func WithClock(now func() time.Time) Option {
	return func(c *Client) {
		c.now = now
	}
}

// WithOnProgress registers a callback invoked after every attempted symbol.
func WithOnProgress(onProgress acquisition.OnProgress) Option {
	return func(c *Client) {
		c.onProgress = onProgress
	}
}

// Client is the market data client. It downloads missing symbols from the
// configured provider, stores them and writes the run summary.
type Client struct {
	config     ClientConfig
	validate   *validator.Validate
	logger     *logger.Logger
	fetcher    provider.Fetcher
	pacing     pacing.Policy
	store      writer.Store
	scanner    *inventory.Scanner
	validator  *quality.Validator
	reporter   *report.Reporter
	scheduler  *acquisition.Scheduler
	onProgress acquisition.OnProgress
	now        func() time.Time
}

// NewClient creates a new market data client with the given configuration.
func NewClient(config ClientConfig, log *logger.Logger, opts ...Option) (*Client, error) {
	validate := validator.New()
	if err := validate.Struct(config); err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidConfiguration, "invalid client configuration", err)
	}

	client := &Client{ //nolint:exhaustruct
		config:   config,
		validate: validate,
		logger:   log,
		now:      time.Now,
	}

	for _, opt := range opts {
		opt(client)
	}

	var err error

	if client.fetcher == nil {
		client.fetcher, err = provider.NewFetcher(config.Provider, log)
		if err != nil {
			return nil, fmt.Errorf("failed to create %s fetcher: %w", providerName(config.Provider), err)
		}
	}

	if client.pacing == nil {
		client.pacing, err = pacing.NewPolicy(config.Pacing)
		if err != nil {
			return nil, err
		}
	}

	client.store, err = writer.New(config.Format, config.DataDir, log)
	if err != nil {
		return nil, err
	}

	client.scanner = inventory.NewScanner(config.DataDir, log)
	client.validator = quality.NewValidator(log)
	client.reporter = report.NewReporter(config.OutputDir, log)
	client.scheduler = acquisition.NewScheduler(acquisition.Dependencies{
		Scanner:    client.scanner,
		Fetcher:    client.fetcher,
		Validator:  client.validator,
		Store:      client.store,
		Pacing:     client.pacing,
		Logger:     log,
		OnProgress: client.onProgress,
	})

	return client, nil
}

// Download runs the acquisition for every symbol that is not stored yet and
// writes the summary report. The report is written for cancelled runs too.
// When only the report write fails, the result is returned with the error and
// an empty ReportPath.
func (c *Client) Download(ctx context.Context, params DownloadParams) (*DownloadResult, error) {
	runParams, err := c.runParams(params)
	if err != nil {
		return nil, err
	}

	runAt := c.now()

	run, err := c.scheduler.Run(ctx, runParams)
	if err != nil {
		return nil, fmt.Errorf("download failed: %w", err)
	}

	summary := c.reporter.Summarize(runAt, run.Results)
	result := &DownloadResult{
		Run:    run,
		Report: summary,
	}

	// Artifacts are already stored at this point, so the result is returned
	// even when the summary file cannot be written.
	result.ReportPath, err = c.reporter.Write(summary)
	if err != nil {
		return result, err
	}

	return result, nil
}

// Progress reports how much of the universe is already stored.
func (c *Client) Progress(_ context.Context, params DownloadParams) (inventory.ProgressReport, error) {
	runParams, err := c.runParams(params)
	if err != nil {
		return inventory.ProgressReport{}, err //nolint:exhaustruct
	}

	inv, err := c.scanner.Scan()
	if err != nil {
		return inventory.ProgressReport{}, err //nolint:exhaustruct
	}

	return inventory.Progress(runParams.Universe, inv, runParams.Period, runParams.Interval), nil
}

// Validate loads a stored artifact and runs the quality checks on it again.
// A relative path is resolved against the data directory.
func (c *Client) Validate(ctx context.Context, path string) (ArtifactCheck, error) {
	if !filepath.IsAbs(path) {
		if _, err := os.Stat(path); err != nil {
			path = filepath.Join(c.config.DataDir, path)
		}
	}

	key, err := artifact.Parse(filepath.Base(path))
	if err != nil {
		return ArtifactCheck{}, err //nolint:exhaustruct
	}

	store := c.store
	if key.Format != store.Format() {
		if store, err = writer.New(key.Format, filepath.Dir(path), c.logger); err != nil {
			return ArtifactCheck{}, err //nolint:exhaustruct
		}
	}

	table, err := store.Load(ctx, path)
	if err != nil {
		return ArtifactCheck{}, err //nolint:exhaustruct
	}

	result := c.validator.Validate(table)

	sidecar, sidecarErr := artifact.ReadSidecar(filepath.Dir(path), key)
	if sidecarErr != nil {
		c.logger.Warn("artifact metadata unusable", zap.String("path", path), zap.Error(sidecarErr))
	}

	c.logger.Info("validated artifact",
		zap.String("path", path),
		zap.Int("records", table.Len()),
		zap.Bool("passed", result.Passed),
	)

	return ArtifactCheck{
		Path:       path,
		Key:        key,
		Stats:      table.Stats(),
		Validation: result,
		Sidecar:    sidecar,
		SidecarErr: sidecarErr,
	}, nil
}

// Render prints a summary report.
func (c *Client) Render(w io.Writer, summary types.SummaryReport) {
	c.reporter.Render(w, summary)
}

// ProviderName returns the name of the active fetcher.
func (c *Client) ProviderName() string {
	return c.fetcher.Name()
}

func (c *Client) runParams(params DownloadParams) (acquisition.RunParams, error) {
	if err := c.validate.Struct(params); err != nil {
		return acquisition.RunParams{}, errors.Wrap(errors.ErrCodeInvalidParameter, "invalid download parameters", err) //nolint:exhaustruct
	}

	universe, err := types.NewUniverse(params.Symbols)
	if err != nil {
		return acquisition.RunParams{}, err //nolint:exhaustruct
	}

	period, err := types.ParsePeriod(params.Period)
	if err != nil {
		return acquisition.RunParams{}, err //nolint:exhaustruct
	}

	interval, err := types.ParseInterval(params.Interval)
	if err != nil {
		return acquisition.RunParams{}, err //nolint:exhaustruct
	}

	return acquisition.RunParams{
		Universe: universe,
		Period:   period,
		Interval: interval,
	}, nil
}

func providerName(cfg provider.Config) string {
	if cfg.Name == "" {
		return string(provider.ProviderYahoo)
	}

	return string(cfg.Name)
}
