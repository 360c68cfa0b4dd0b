package main

import (
	"context"
	"fmt"
	"os"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/rxtech-lab/argo-harvest/internal/config"
	"github.com/rxtech-lab/argo-harvest/internal/logger"
	"github.com/rxtech-lab/argo-harvest/internal/scheduler"
	"github.com/rxtech-lab/argo-harvest/internal/tui"
	"github.com/rxtech-lab/argo-harvest/pkg/marketdata"
	"github.com/rxtech-lab/argo-harvest/pkg/marketdata/inventory"
	"github.com/rxtech-lab/argo-harvest/pkg/utils"
	"github.com/urfave/cli/v3"
	"go.uber.org/zap"
)

// exitInterrupted is the conventional exit status after SIGINT.
const exitInterrupted = 130

// setup loads the configuration with the command's flag overrides and builds
// the logger and market data client.
func setup(cmd *cli.Command, opts ...marketdata.Option) (*config.Config, *logger.Logger, *marketdata.Client, error) {
	cfg, err := config.Load(cmd.String("config"), cmd.IsSet("config"), flagOverrides(cmd))
	if err != nil {
		return nil, nil, nil, err
	}

	log, client, err := build(cfg, opts...)
	if err != nil {
		return nil, nil, nil, err
	}

	return cfg, log, client, nil
}

// setupBase is setup for commands that ignore the download section.
func setupBase(cmd *cli.Command) (*logger.Logger, *marketdata.Client, error) {
	cfg, err := config.LoadBase(cmd.String("config"), cmd.IsSet("config"), flagOverrides(cmd))
	if err != nil {
		return nil, nil, err
	}

	return build(cfg)
}

func build(cfg *config.Config, opts ...marketdata.Option) (*logger.Logger, *marketdata.Client, error) {
	log, err := logger.NewLogger(logger.Options{Level: cfg.Log.Level, File: cfg.Log.File})
	if err != nil {
		return nil, nil, err
	}

	client, err := marketdata.NewClient(cfg.ToClientConfig(), log, opts...)
	if err != nil {
		_ = log.Sync()

		return nil, nil, err
	}

	return log, client, nil
}

// flagOverrides applies command line flags on top of the file and environment.
// Flags a command does not define are never set.
func flagOverrides(cmd *cli.Command) config.Override {
	return func(cfg *config.Config) error {
		if cmd.IsSet("json") {
			download, err := marketdata.ParseDownloadConfig(cmd.String("json"))
			if err != nil {
				return err
			}

			cfg.Download = *download
		}

		if cmd.IsSet("symbols") {
			cfg.Download.Symbols = cmd.StringSlice("symbols")
		}

		if cmd.IsSet("period") {
			cfg.Download.Period = cmd.String("period")
		}

		if cmd.IsSet("interval") {
			cfg.Download.Interval = cmd.String("interval")
		}

		if cmd.IsSet("provider") {
			cfg.Provider.Name = cmd.String("provider")
		}

		if cmd.IsSet("format") {
			cfg.Storage.Format = cmd.String("format")
		}

		if cmd.IsSet("log-level") {
			cfg.Log.Level = cmd.String("log-level")
		}

		if cmd.IsSet("cron") {
			cfg.Schedule.Cron = cmd.String("cron")
		}

		return nil
	}
}

func downloadAction(ctx context.Context, cmd *cli.Command) error {
	var opts []marketdata.Option

	bar := newProgressBar(os.Stderr)
	if !cmd.Bool("quiet") {
		opts = append(opts, marketdata.WithOnProgress(bar.Update))
	}

	cfg, log, client, err := setup(cmd, opts...)
	if err != nil {
		return err
	}
	defer log.Sync() //nolint:errcheck

	log.Info("Starting download",
		zap.String("provider", client.ProviderName()),
		zap.Int("symbols", len(cfg.Download.Symbols)),
		zap.String("period", cfg.Download.Period),
		zap.String("interval", cfg.Download.Interval),
	)

	result, err := client.Download(ctx, cfg.DownloadParams())
	bar.Finish()

	if result != nil {
		client.Render(os.Stdout, result.Report)
	}

	if err != nil {
		return fmt.Errorf("download failed: %w", err)
	}

	fmt.Fprintf(os.Stdout, "Report written to %s\n", result.ReportPath)

	if len(result.Run.Missing) == 0 {
		fmt.Fprintln(os.Stdout, "Nothing to download: every symbol is already stored.")
	}

	if result.Run.Cancelled {
		return cli.Exit(fmt.Sprintf("interrupted: %d symbols left, run again to resume", len(result.Run.Remaining)), exitInterrupted)
	}

	return nil
}

func progressAction(ctx context.Context, cmd *cli.Command) error {
	cfg, log, client, err := setup(cmd)
	if err != nil {
		return err
	}
	defer log.Sync() //nolint:errcheck

	progress, err := client.Progress(ctx, cfg.DownloadParams())
	if err != nil {
		return err
	}

	renderProgress(os.Stdout, progress)

	return nil
}

func validateAction(ctx context.Context, cmd *cli.Command) error {
	paths := cmd.Args().Slice()
	if len(paths) == 0 {
		return cli.Exit("validate needs at least one artifact path", 2)
	}

	log, client, err := setupBase(cmd)
	if err != nil {
		return err
	}
	defer log.Sync() //nolint:errcheck

	failed := 0

	for _, path := range paths {
		check, err := client.Validate(ctx, path)
		if err != nil {
			fmt.Fprintf(os.Stdout, "%s: %v\n", path, err)

			failed++

			continue
		}

		renderCheck(os.Stdout, check)

		if !check.Validation.Passed {
			failed++
		}
	}

	if failed > 0 {
		return cli.Exit(fmt.Sprintf("%d of %d artifacts failed validation", failed, len(paths)), 1)
	}

	return nil
}

func scheduleAction(ctx context.Context, cmd *cli.Command) error {
	cfg, log, client, err := setup(cmd)
	if err != nil {
		return err
	}
	defer log.Sync() //nolint:errcheck

	if cfg.Schedule.Cron == "" {
		return cli.Exit("schedule needs schedule.cron in the config or --cron", 2)
	}

	params := cfg.DownloadParams()

	sched, err := scheduler.New(ctx, cfg.Schedule.Cron, func(ctx context.Context) error {
		result, err := client.Download(ctx, params)
		if result != nil {
			client.Render(os.Stdout, result.Report)
		}

		if err != nil {
			return err
		}

		log.Info("Report written", zap.String("path", result.ReportPath))

		return nil
	}, log)
	if err != nil {
		return err
	}

	sched.Run(cfg.Schedule.RunOnStart || cmd.Bool("run-on-start"))

	return nil
}

func schemaAction(_ context.Context, cmd *cli.Command) error {
	var target any = config.Config{} //nolint:exhaustruct
	if cmd.Bool("download") {
		target = marketdata.DownloadConfig{} //nolint:exhaustruct
	}

	schema, err := utils.GetIndentedSchemaFromConfig(target, "  ")
	if err != nil {
		return fmt.Errorf("failed to generate schema: %w", err)
	}

	out := cmd.String("out")
	if out == "" {
		fmt.Fprintln(os.Stdout, schema)

		return nil
	}

	if err := os.WriteFile(out, []byte(schema+"\n"), 0o644); err != nil {
		return fmt.Errorf("failed to write schema: %w", err)
	}

	fmt.Fprintf(os.Stdout, "Schema written to %s. Reference it from YAML with:\n%s", out, utils.YAMLSchemaHeader(out))

	return nil
}

func browseAction(ctx context.Context, cmd *cli.Command) error {
	cfg, err := config.LoadBase(cmd.String("config"), cmd.IsSet("config"), flagOverrides(cmd))
	if err != nil {
		return err
	}

	// Log lines would tear the alternate screen.
	scanner := inventory.NewScanner(cfg.Storage.DataDir, logger.NewNopLogger())

	program := tea.NewProgram(tui.NewModel(scanner, cfg.Download.Symbols), tea.WithAltScreen(), tea.WithContext(ctx))
	if _, err := program.Run(); err != nil {
		return fmt.Errorf("browser failed: %w", err)
	}

	return nil
}

func providersAction(_ context.Context, _ *cli.Command) error {
	renderProviders(os.Stdout)

	return nil
}
